// Package dailylog records single-location stock movements: usage
// (consumed on site) and receive (delivered by a supplier). There is no
// approval step; every entry is created completed.
package dailylog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/nadimkh/mouneh/internal/inventory"
	"github.com/nadimkh/mouneh/internal/ledger"
	"github.com/nadimkh/mouneh/internal/model"
	"github.com/nadimkh/mouneh/internal/persist"
)

var (
	// ErrInvalidType means the entry type is not usage or receive.
	ErrInvalidType = errors.New("entry type must be usage or receive")
	// ErrNonPositiveQuantity means the quantity is zero or negative.
	ErrNonPositiveQuantity = errors.New("quantity must be positive")
	// ErrNegativeAmount means a bulk entry has a negative received or used amount.
	ErrNegativeAmount = errors.New("amounts must not be negative")
)

// Entry is one item's deltas in a bulk submission. Received is applied
// before Used, so a delivery and its same-day consumption can be logged
// together.
type Entry struct {
	ItemID   int64   `json:"item_id"`
	Received float64 `json:"received"`
	Used     float64 `json:"used"`
	Notes    string  `json:"notes,omitempty"`
}

// Orchestrator records daily-log entries against one shared inventory
// cache and transaction log.
type Orchestrator struct {
	mu    sync.Mutex
	inv   *inventory.Repository
	log   *ledger.Log
	queue *persist.Queue
}

// New returns a daily-log orchestrator.
func New(inv *inventory.Repository, log *ledger.Log, queue *persist.Queue) *Orchestrator {
	return &Orchestrator{inv: inv, log: log, queue: queue}
}

// Record logs a single usage or receive entry at a location. Usage is
// refused if it exceeds current stock; receive has no upper bound.
func (o *Orchestrator) Record(ctx context.Context, actor *model.User, locationID, entryType string, itemID int64, quantity float64, notes string) (*model.Transaction, error) {
	if entryType != model.TypeUsage && entryType != model.TypeReceive {
		return nil, fmt.Errorf("%w: %q", ErrInvalidType, entryType)
	}
	if quantity <= 0 {
		return nil, ErrNonPositiveQuantity
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	item, err := o.inv.Get(locationID, itemID)
	if err != nil {
		return nil, err
	}

	delta := quantity
	if entryType == model.TypeUsage {
		delta = -quantity
	}
	updated, err := o.inv.Adjust(locationID, itemID, delta)
	if err != nil {
		return nil, err
	}
	persist.EnqueueItemQuantity(o.queue, updated)

	txn := o.log.Append(buildEntry(actor, locationID, entryType, item, quantity, notes, uuid.NewString()))
	persist.EnqueueTransactionInsert(o.queue, o.log, txn)

	slog.Info("daily log recorded", "type", entryType, "item", item.NameEn,
		"quantity", quantity, "location", locationID, "by", actor.Name)
	return &txn, nil
}

// SubmitBulk applies a batch of per-item deltas in one pass. Every entry
// is validated before anything mutates, so an invalid batch changes
// nothing. Each non-zero received amount and each non-zero used amount
// yields its own transaction; the whole batch shares one group ID.
func (o *Orchestrator) SubmitBulk(ctx context.Context, actor *model.User, locationID string, entries []Entry) ([]model.Transaction, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	// Phase one: validate the whole batch against current stock.
	// Entries for the same item are folded together so duplicates
	// cannot slip past the guard one at a time.
	items := make(map[int64]model.Item, len(entries))
	received := make(map[int64]float64, len(entries))
	used := make(map[int64]float64, len(entries))
	for _, e := range entries {
		if e.Received < 0 || e.Used < 0 {
			return nil, fmt.Errorf("%w: item %d", ErrNegativeAmount, e.ItemID)
		}
		if e.Received == 0 && e.Used == 0 {
			continue
		}
		item, ok := items[e.ItemID]
		if !ok {
			var err error
			item, err = o.inv.Get(locationID, e.ItemID)
			if err != nil {
				return nil, err
			}
			items[e.ItemID] = item
		}
		received[e.ItemID] += e.Received
		used[e.ItemID] += e.Used
		// Same-batch deliveries count toward what can be used.
		if used[e.ItemID] > item.Quantity+received[e.ItemID] {
			return nil, fmt.Errorf("%w: %s has %g, need %g",
				inventory.ErrInsufficientStock, item.NameEn,
				item.Quantity+received[e.ItemID], used[e.ItemID])
		}
	}

	// Phase two: apply. Each item's stock moves once, by its net delta
	// over the whole batch; the validated totals guarantee it cannot go
	// negative, so no failure paths remain.
	groupID := uuid.NewString()
	adjusted := make(map[int64]bool, len(items))
	var txns []model.Transaction
	for _, e := range entries {
		if e.Received == 0 && e.Used == 0 {
			continue
		}
		item := items[e.ItemID]

		if !adjusted[e.ItemID] {
			adjusted[e.ItemID] = true
			updated, err := o.inv.Adjust(locationID, e.ItemID, received[e.ItemID]-used[e.ItemID])
			if err != nil {
				return txns, err
			}
			persist.EnqueueItemQuantity(o.queue, updated)
		}

		if e.Received > 0 {
			txn := o.log.Append(buildEntry(actor, locationID, model.TypeReceive, item, e.Received, e.Notes, groupID))
			persist.EnqueueTransactionInsert(o.queue, o.log, txn)
			txns = append(txns, txn)
		}
		if e.Used > 0 {
			txn := o.log.Append(buildEntry(actor, locationID, model.TypeUsage, item, e.Used, e.Notes, groupID))
			persist.EnqueueTransactionInsert(o.queue, o.log, txn)
			txns = append(txns, txn)
		}
	}

	slog.Info("daily log batch submitted", "location", locationID,
		"entries", len(txns), "by", actor.Name)
	return txns, nil
}

// buildEntry fills in the sentinel endpoints: usage flows location →
// Consumed, receive flows External Supplier → location.
func buildEntry(actor *model.User, locationID, entryType string, item model.Item, quantity float64, notes, groupID string) model.Transaction {
	txn := model.Transaction{
		GroupID:     groupID,
		Type:        entryType,
		Status:      model.StatusCompleted,
		ItemNameEn:  item.NameEn,
		ItemNameAr:  item.NameAr,
		Quantity:    quantity,
		Unit:        item.Unit,
		PerformedBy: actor.Name,
		Notes:       notes,
	}
	if entryType == model.TypeUsage {
		txn.FromLocation = locationID
		txn.ToLocation = model.SentinelConsumed
	} else {
		txn.FromLocation = model.SentinelSupplier
		txn.ToLocation = locationID
	}
	return txn
}
