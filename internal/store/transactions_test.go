package store

import (
	"context"
	"database/sql"
	"testing"

	"github.com/nadimkh/mouneh/internal/db"
	"github.com/nadimkh/mouneh/internal/model"
)

func insertTestTxn(t *testing.T, database *sql.DB, txn model.Transaction) int64 {
	t.Helper()
	id, err := InsertTransaction(context.Background(), database, txn)
	if err != nil {
		t.Fatalf("InsertTransaction: %v", err)
	}
	return id
}

func TestInsertAndGetTransaction(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	id := insertTestTxn(t, database, model.Transaction{
		GroupID: "g1", Type: model.TypeTransfer, Status: model.StatusPendingTarget,
		FromLocation: "warehouse", ToLocation: "branch-hamra",
		ItemNameEn: "Rice", Quantity: 20, Unit: "kg", PerformedBy: "Warehouse Manager",
	})

	txn, err := GetTransaction(ctx, database, id)
	if err != nil {
		t.Fatalf("GetTransaction: %v", err)
	}
	if txn == nil {
		t.Fatal("expected transaction, got nil")
	}
	if txn.ItemNameEn != "Rice" || txn.Status != model.StatusPendingTarget {
		t.Errorf("unexpected transaction: %+v", txn)
	}
	if txn.CreatedAt.IsZero() {
		t.Error("expected created_at to be set")
	}

	missing, err := GetTransaction(ctx, database, 9999)
	if err != nil {
		t.Fatalf("GetTransaction missing: %v", err)
	}
	if missing != nil {
		t.Error("expected nil for unknown transaction")
	}
}

func TestUpdateTransactionStatus(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	id := insertTestTxn(t, database, model.Transaction{
		GroupID: "g1", Type: model.TypeTransfer, Status: model.StatusPendingTarget,
		FromLocation: "warehouse", ToLocation: "branch-hamra",
		ItemNameEn: "Rice", Quantity: 20,
	})

	if err := UpdateTransactionStatus(ctx, database, id, model.StatusRejected, "damaged"); err != nil {
		t.Fatalf("UpdateTransactionStatus: %v", err)
	}

	txn, _ := GetTransaction(ctx, database, id)
	if txn.Status != model.StatusRejected {
		t.Errorf("expected rejected, got %s", txn.Status)
	}
	if txn.RejectionReason != "damaged" {
		t.Errorf("expected reason recorded, got %q", txn.RejectionReason)
	}

	// A transition without a reason keeps the existing one.
	if err := UpdateTransactionStatus(ctx, database, id, model.StatusCompleted, ""); err != nil {
		t.Fatalf("UpdateTransactionStatus: %v", err)
	}
	txn, _ = GetTransaction(ctx, database, id)
	if txn.RejectionReason != "damaged" {
		t.Errorf("expected reason preserved, got %q", txn.RejectionReason)
	}
}

func TestListTransactionsFilters(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	insertTestTxn(t, database, model.Transaction{
		GroupID: "g1", Type: model.TypeTransfer, Status: model.StatusPendingTarget,
		FromLocation: "warehouse", ToLocation: "branch-hamra", ItemNameEn: "Rice", Quantity: 20,
	})
	insertTestTxn(t, database, model.Transaction{
		GroupID: "g2", Type: model.TypeUsage, Status: model.StatusCompleted,
		FromLocation: "branch-hamra", ToLocation: model.SentinelConsumed, ItemNameEn: "Rice", Quantity: 2,
	})
	insertTestTxn(t, database, model.Transaction{
		GroupID: "g3", Type: model.TypeTransfer, Status: model.StatusCompleted,
		FromLocation: "warehouse", ToLocation: "mammal", ItemNameEn: "Milk", Quantity: 10,
	})

	// Location matches either end.
	branch, err := ListTransactions(ctx, database, "branch-hamra", "")
	if err != nil {
		t.Fatalf("ListTransactions: %v", err)
	}
	if len(branch) != 2 {
		t.Errorf("expected 2 transactions touching branch-hamra, got %d", len(branch))
	}

	pending, _ := ListTransactions(ctx, database, "", model.StatusPendingTarget)
	if len(pending) != 1 {
		t.Errorf("expected 1 pending transaction, got %d", len(pending))
	}

	all, _ := ListTransactions(ctx, database, "", "")
	if len(all) != 3 {
		t.Errorf("expected 3 transactions, got %d", len(all))
	}
}

func TestListTransactionGroup(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	first := insertTestTxn(t, database, model.Transaction{
		GroupID: "g1", Type: model.TypeTransfer, Status: model.StatusPendingTarget,
		FromLocation: "warehouse", ToLocation: "branch-hamra", ItemNameEn: "Rice", Quantity: 20,
	})
	insertTestTxn(t, database, model.Transaction{
		GroupID: "g1", Type: model.TypeTransfer, Status: model.StatusPendingTarget,
		FromLocation: "warehouse", ToLocation: "branch-hamra", ItemNameEn: "Sugar", Quantity: 5,
	})
	insertTestTxn(t, database, model.Transaction{
		GroupID: "g2", Type: model.TypeTransfer, Status: model.StatusPendingTarget,
		FromLocation: "warehouse", ToLocation: "mammal", ItemNameEn: "Milk", Quantity: 10,
	})

	group, err := ListTransactionGroup(ctx, database, "g1")
	if err != nil {
		t.Fatalf("ListTransactionGroup: %v", err)
	}
	if len(group) != 2 {
		t.Fatalf("expected 2 group members, got %d", len(group))
	}
	if group[0].ID != first {
		t.Errorf("expected insertion order, got %d first", group[0].ID)
	}
}
