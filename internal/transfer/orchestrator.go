// Package transfer implements the stock movement workflow between
// locations. A transfer of N items creates N transactions under one group
// ID. The initial status depends on the actor's authority over the source:
// a manager's goods are deducted immediately (pending_target), anyone
// else's wait for an outbound confirmation (pending_source).
//
//	pending_source --ConfirmOutbound--> pending_target --Receive--> completed
//	pending_source --Reject/Cancel----> rejected/cancelled  (no reversal)
//	pending_target --Reject/Cancel----> rejected/cancelled  (restock source)
package transfer

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
	// ErrNoDestination means the transfer has no destination location.
	ErrNoDestination = errors.New("transfer needs a destination")
	// ErrSameLocation means source and destination are equal.
	ErrSameLocation = errors.New("cannot transfer a location to itself")
	// ErrEmptyTransfer means no transferable items were submitted.
	ErrEmptyTransfer = errors.New("transfer needs at least one item")
	// ErrNonPositiveQuantity means a line's quantity is zero or negative.
	ErrNonPositiveQuantity = errors.New("quantity must be positive")
)

// Line is one requested item of a transfer.
type Line struct {
	ItemID   int64   `json:"item_id"`
	Quantity float64 `json:"quantity"`
}

// InitiateResult reports what a transfer submission produced. Missing
// lists item IDs that were not found at the source and therefore skipped;
// they are reported rather than silently dropped.
type InitiateResult struct {
	GroupID      string              `json:"group_id"`
	Status       string              `json:"status"`
	Transactions []model.Transaction `json:"transactions"`
	Missing      []int64             `json:"missing,omitempty"`
}

// TransitionResult reports a single status transition and whether the
// matching inventory side effect was applied. StockApplied can be false
// on ConfirmOutbound when the source item has since disappeared: the
// status still advances, by design, and the gap is surfaced here.
type TransitionResult struct {
	Transaction  model.Transaction `json:"transaction"`
	StockApplied bool              `json:"stock_applied"`
	ItemCreated  bool              `json:"item_created"`
}

// Orchestrator drives the transfer state machine. All operations are
// serialized on one mutex: validation and mutation of the shared caches
// happen as one step, which is what makes the two-phase guards sound.
type Orchestrator struct {
	mu    sync.Mutex
	inv   *inventory.Repository
	log   *ledger.Log
	queue *persist.Queue
}

// New returns a transfer orchestrator over the given caches and write queue.
func New(inv *inventory.Repository, log *ledger.Log, queue *persist.Queue) *Orchestrator {
	return &Orchestrator{inv: inv, log: log, queue: queue}
}

// Initiate submits a multi-item transfer from source to dest. Items not
// found at the source are skipped and reported in the result. When the
// actor manages the source, every line is checked against current stock
// before anything mutates and the deduction happens immediately.
func (o *Orchestrator) Initiate(ctx context.Context, actor *model.User, source, dest string, lines []Line) (*InitiateResult, error) {
	if dest == "" {
		return nil, ErrNoDestination
	}
	if source == "" || source == model.LocationGlobal {
		return nil, fmt.Errorf("%w: no source location", ErrEmptyTransfer)
	}
	if source == dest {
		return nil, ErrSameLocation
	}
	if len(lines) == 0 {
		return nil, ErrEmptyTransfer
	}
	for _, line := range lines {
		if line.Quantity <= 0 {
			return nil, fmt.Errorf("%w: item %d", ErrNonPositiveQuantity, line.ItemID)
		}
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	status := model.StatusPendingSource
	if actor.ManagesLocation(source) {
		status = model.StatusPendingTarget
	}

	// Resolve every line first. Unknown items are skipped but reported.
	type resolved struct {
		item model.Item
		qty  float64
	}
	var toMove []resolved
	var missing []int64
	for _, line := range lines {
		item, err := o.inv.Get(source, line.ItemID)
		if errors.Is(err, inventory.ErrNotFound) {
			missing = append(missing, line.ItemID)
			continue
		}
		if err != nil {
			return nil, err
		}
		toMove = append(toMove, resolved{item: item, qty: line.Quantity})
	}
	if len(toMove) == 0 {
		return nil, fmt.Errorf("%w: no items found at %s", ErrEmptyTransfer, source)
	}

	// Immediate deduction needs the whole submission to be coverable
	// before any single line mutates. Lines for the same item count
	// against one shared stock figure, not each against a fresh read.
	if status == model.StatusPendingTarget {
		needed := make(map[int64]float64, len(toMove))
		for _, m := range toMove {
			needed[m.item.ID] += m.qty
			if needed[m.item.ID] > m.item.Quantity {
				return nil, fmt.Errorf("%w: %s has %g, need %g",
					inventory.ErrInsufficientStock, m.item.NameEn, m.item.Quantity, needed[m.item.ID])
			}
		}
	}

	groupID := uuid.NewString()
	result := &InitiateResult{GroupID: groupID, Status: status, Missing: missing}

	for _, m := range toMove {
		if status == model.StatusPendingTarget {
			updated, err := o.inv.Adjust(source, m.item.ID, -m.qty)
			if err != nil {
				// Unreachable after the guard above; surface it anyway.
				return nil, err
			}
			persist.EnqueueItemQuantity(o.queue, updated)
		}

		txn := o.log.Append(model.Transaction{
			GroupID:      groupID,
			Type:         model.TypeTransfer,
			Status:       status,
			FromLocation: source,
			ToLocation:   dest,
			ItemNameEn:   m.item.NameEn,
			ItemNameAr:   m.item.NameAr,
			Quantity:     m.qty,
			Unit:         m.item.Unit,
			PerformedBy:  actor.Name,
		})
		persist.EnqueueTransactionInsert(o.queue, o.log, txn)
		result.Transactions = append(result.Transactions, txn)
	}

	slog.Info("transfer initiated", "group", groupID, "from", source, "to", dest,
		"items", len(result.Transactions), "status", status, "by", actor.Name)
	return result, nil
}

// ConfirmOutbound moves a pending_source transaction to pending_target,
// performing the deferred source deduction. If the source item has been
// deleted (or no longer covers the quantity), the status still advances
// and the result records that no stock was taken.
func (o *Orchestrator) ConfirmOutbound(ctx context.Context, actor *model.User, txnID int64) (*TransitionResult, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	txn, err := o.log.Transition(txnID, model.StatusPendingSource, model.StatusPendingTarget, "")
	if err != nil {
		return nil, err
	}
	persist.EnqueueTransactionStatus(o.queue, txn.ID, txn.Status, "")

	result := &TransitionResult{Transaction: txn}

	item, err := o.inv.FindByName(txn.FromLocation, txn.ItemNameEn, txn.ItemNameAr)
	if err != nil {
		slog.Warn("outbound confirmed without deduction, source item missing",
			"txn", txn.ID, "item", txn.ItemNameEn, "location", txn.FromLocation)
		return result, nil
	}

	updated, err := o.inv.Adjust(txn.FromLocation, item.ID, -txn.Quantity)
	if err != nil {
		slog.Warn("outbound confirmed without deduction",
			"txn", txn.ID, "item", txn.ItemNameEn, "error", err)
		return result, nil
	}
	persist.EnqueueItemQuantity(o.queue, updated)
	result.StockApplied = true

	slog.Info("outbound confirmed", "txn", txn.ID, "item", txn.ItemNameEn,
		"quantity", txn.Quantity, "by", actor.Name)
	return result, nil
}

// Receive moves a pending_target transaction to completed, crediting the
// destination. An item with a matching name is topped up; otherwise a new
// item is created at the destination.
func (o *Orchestrator) Receive(ctx context.Context, actor *model.User, txnID int64) (*TransitionResult, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.receiveLocked(actor, txnID)
}

func (o *Orchestrator) receiveLocked(actor *model.User, txnID int64) (*TransitionResult, error) {
	txn, err := o.log.Transition(txnID, model.StatusPendingTarget, model.StatusCompleted, "")
	if err != nil {
		return nil, err
	}
	persist.EnqueueTransactionStatus(o.queue, txn.ID, txn.Status, "")

	result := &TransitionResult{Transaction: txn, StockApplied: true}
	result.ItemCreated = o.creditLocked(txn.ToLocation, txn, model.CategoryReceived)

	slog.Info("transfer received", "txn", txn.ID, "item", txn.ItemNameEn,
		"quantity", txn.Quantity, "at", txn.ToLocation, "by", actor.Name)
	return result, nil
}

// creditLocked adds a transaction's quantity to the named item at a
// location, creating the item with the given category if it is absent.
// Reports whether a new item was created. Callers must hold o.mu.
func (o *Orchestrator) creditLocked(locationID string, txn model.Transaction, category string) bool {
	item, err := o.inv.FindByName(locationID, txn.ItemNameEn, txn.ItemNameAr)
	if err == nil {
		updated, err := o.inv.Adjust(locationID, item.ID, txn.Quantity)
		if err == nil {
			persist.EnqueueItemQuantity(o.queue, updated)
		}
		return false
	}

	created := o.inv.Insert(model.Item{
		LocationID:   locationID,
		NameEn:       txn.ItemNameEn,
		NameAr:       txn.ItemNameAr,
		Category:     category,
		Unit:         txn.Unit,
		Quantity:     txn.Quantity,
		MinThreshold: 0,
	})
	persist.EnqueueItemInsert(o.queue, o.inv, created)
	return true
}

// Reject refuses a pending transfer, recording the reason. If the source
// had already been deducted (status was pending_target), the stock is
// returned to the source, recreating the item if it no longer exists.
func (o *Orchestrator) Reject(ctx context.Context, actor *model.User, txnID int64, reason string) (*TransitionResult, error) {
	return o.abort(actor, txnID, model.StatusRejected, reason)
}

// Cancel withdraws a pending transfer. Same reversal policy as Reject,
// without requiring a reason.
func (o *Orchestrator) Cancel(ctx context.Context, actor *model.User, txnID int64) (*TransitionResult, error) {
	return o.abort(actor, txnID, model.StatusCancelled, "")
}

func (o *Orchestrator) abort(actor *model.User, txnID int64, to, reason string) (*TransitionResult, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	prior, err := o.log.Get(txnID)
	if err != nil {
		return nil, err
	}
	if prior.Status != model.StatusPendingSource && prior.Status != model.StatusPendingTarget {
		return nil, fmt.Errorf("%w: id %d is %s", ledger.ErrStatusConflict, txnID, prior.Status)
	}

	txn, err := o.log.Transition(txnID, prior.Status, to, reason)
	if err != nil {
		return nil, err
	}
	persist.EnqueueTransactionStatus(o.queue, txn.ID, txn.Status, reason)

	result := &TransitionResult{Transaction: txn}

	// pending_source never deducted anything; only the status flips.
	if prior.Status == model.StatusPendingTarget {
		result.StockApplied = true
		result.ItemCreated = o.creditLocked(txn.FromLocation, txn, model.CategoryReturned)
	}

	slog.Info("transfer aborted", "txn", txn.ID, "status", to,
		"restocked", result.StockApplied, "by", actor.Name)
	return result, nil
}

// BulkAccept applies Receive to every still-pending member of a transfer
// group. Items are independent, so order does not matter. Members already
// past pending_target are skipped.
func (o *Orchestrator) BulkAccept(ctx context.Context, actor *model.User, groupID string) ([]TransitionResult, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	group := o.log.Group(groupID)
	if len(group) == 0 {
		return nil, fmt.Errorf("%w: group %s", ledger.ErrNotFound, groupID)
	}

	var results []TransitionResult
	for _, txn := range group {
		if txn.Status != model.StatusPendingTarget {
			continue
		}
		res, err := o.receiveLocked(actor, txn.ID)
		if err != nil {
			return results, err
		}
		results = append(results, *res)
	}
	return results, nil
}

