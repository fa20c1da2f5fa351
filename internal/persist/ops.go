package persist

import (
	"context"
	"database/sql"

	"github.com/nadimkh/mouneh/internal/inventory"
	"github.com/nadimkh/mouneh/internal/ledger"
	"github.com/nadimkh/mouneh/internal/model"
	"github.com/nadimkh/mouneh/internal/store"
)

// EnqueueItemQuantity persists an item's new quantity.
func EnqueueItemQuantity(q *Queue, item model.Item) {
	id, qty := item.ID, item.Quantity
	q.Enqueue(Op{
		Name: "item.quantity",
		Exec: func(ctx context.Context, db *sql.DB, ids *IDMap) (int64, error) {
			return 0, store.UpdateItemQuantity(ctx, db, ids.Resolve(id), qty)
		},
	})
}

// EnqueueItemInsert persists a cache-created item and rebinds its
// placeholder ID in the repository once the store assigns one.
func EnqueueItemInsert(q *Queue, inv *inventory.Repository, item model.Item) {
	locationID := item.LocationID
	q.Enqueue(Op{
		Name:   "item.insert",
		TempID: item.ID,
		Rebind: func(tempID, storeID int64) {
			inv.Rebind(locationID, tempID, storeID)
		},
		Exec: func(ctx context.Context, db *sql.DB, ids *IDMap) (int64, error) {
			it := item
			it.ID = 0
			return store.InsertItem(ctx, db, it)
		},
	})
}

// EnqueueItemUpdate persists an item's edited fields.
func EnqueueItemUpdate(q *Queue, item model.Item) {
	q.Enqueue(Op{
		Name: "item.update",
		Exec: func(ctx context.Context, db *sql.DB, ids *IDMap) (int64, error) {
			it := item
			it.ID = ids.Resolve(it.ID)
			return 0, store.UpdateItem(ctx, db, it)
		},
	})
}

// EnqueueItemDelete removes an item from the store.
func EnqueueItemDelete(q *Queue, itemID int64) {
	q.Enqueue(Op{
		Name: "item.delete",
		Exec: func(ctx context.Context, db *sql.DB, ids *IDMap) (int64, error) {
			return 0, store.DeleteItem(ctx, db, ids.Resolve(itemID))
		},
	})
}

// EnqueueTransactionInsert persists an appended transaction and rebinds
// its placeholder ID in the log once the store assigns one.
func EnqueueTransactionInsert(q *Queue, log *ledger.Log, txn model.Transaction) {
	q.Enqueue(Op{
		Name:   "transaction.insert",
		TempID: txn.ID,
		Rebind: log.Rebind,
		Exec: func(ctx context.Context, db *sql.DB, ids *IDMap) (int64, error) {
			t := txn
			t.ID = 0
			return store.InsertTransaction(ctx, db, t)
		},
	})
}

// EnqueueTransactionStatus persists a status transition.
func EnqueueTransactionStatus(q *Queue, txnID int64, status, reason string) {
	q.Enqueue(Op{
		Name: "transaction.status",
		Exec: func(ctx context.Context, db *sql.DB, ids *IDMap) (int64, error) {
			return 0, store.UpdateTransactionStatus(ctx, db, ids.Resolve(txnID), status, reason)
		},
	})
}
