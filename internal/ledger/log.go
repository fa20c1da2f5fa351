// Package ledger keeps the in-memory transaction log: an append-only
// record of every stock movement. Entries are never deleted; only their
// status (and rejection reason) mutates, and only through guarded
// transitions.
package ledger

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/nadimkh/mouneh/internal/model"
)

var (
	// ErrNotFound means no transaction has the given ID.
	ErrNotFound = errors.New("transaction not found")
	// ErrStatusConflict means the transaction was not in the status the
	// transition expected. Double accepts and double rejects land here
	// instead of corrupting inventory.
	ErrStatusConflict = errors.New("transaction status conflict")
)

// Log is the transaction log. Entries inserted before the store assigns
// an ID carry a negative placeholder until Rebind.
type Log struct {
	mu       sync.Mutex
	entries  []*model.Transaction // in append order
	byID     map[int64]*model.Transaction
	nextTemp int64
}

// NewLog returns an empty log.
func NewLog() *Log {
	return &Log{byID: make(map[int64]*model.Transaction)}
}

// Load replaces all entries. Used at startup and on resync. Entries are
// expected newest-first (the store's list order) and are kept that way.
func (l *Log) Load(txns []model.Transaction) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.entries = nil
	l.byID = make(map[int64]*model.Transaction)
	for i := range txns {
		t := txns[i]
		l.entries = append(l.entries, &t)
		l.byID[t.ID] = &t
	}
}

// Append records a new transaction. A zero ID gets a negative placeholder.
// Returns the stored copy.
func (l *Log) Append(t model.Transaction) model.Transaction {
	l.mu.Lock()
	defer l.mu.Unlock()

	if t.ID == 0 {
		l.nextTemp--
		t.ID = l.nextTemp
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now()
	}
	// Newest first, matching the store's list order.
	l.entries = append([]*model.Transaction{&t}, l.entries...)
	l.byID[t.ID] = &t
	return t
}

// Get returns a copy of a transaction by ID.
func (l *Log) Get(id int64) (model.Transaction, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	t, ok := l.byID[id]
	if !ok {
		return model.Transaction{}, fmt.Errorf("%w: id %d", ErrNotFound, id)
	}
	return *t, nil
}

// Group returns copies of all transactions sharing a group ID, oldest first.
func (l *Log) Group(groupID string) []model.Transaction {
	l.mu.Lock()
	defer l.mu.Unlock()

	var txns []model.Transaction
	for i := len(l.entries) - 1; i >= 0; i-- {
		if l.entries[i].GroupID == groupID {
			txns = append(txns, *l.entries[i])
		}
	}
	return txns
}

// List returns copies of transactions newest first, optionally filtered by
// location (matching either end) and status.
func (l *Log) List(locationID, status string) []model.Transaction {
	l.mu.Lock()
	defer l.mu.Unlock()

	var txns []model.Transaction
	for _, t := range l.entries {
		if locationID != "" && t.FromLocation != locationID && t.ToLocation != locationID {
			continue
		}
		if status != "" && t.Status != status {
			continue
		}
		txns = append(txns, *t)
	}
	return txns
}

// PendingFor returns transactions awaiting acceptance at a location.
func (l *Log) PendingFor(locationID string) []model.Transaction {
	return l.List(locationID, model.StatusPendingTarget)
}

// Transition moves a transaction from one status to another. The current
// status must equal from, otherwise ErrStatusConflict is returned and
// nothing changes. A non-empty reason is recorded as the rejection reason.
func (l *Log) Transition(id int64, from, to, reason string) (model.Transaction, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	t, ok := l.byID[id]
	if !ok {
		return model.Transaction{}, fmt.Errorf("%w: id %d", ErrNotFound, id)
	}
	if t.Status != from {
		return model.Transaction{}, fmt.Errorf("%w: id %d is %s, expected %s",
			ErrStatusConflict, id, t.Status, from)
	}

	t.Status = to
	if reason != "" {
		t.RejectionReason = reason
	}
	return *t, nil
}

// Rebind swaps a placeholder ID for the store-assigned one.
func (l *Log) Rebind(tempID, storeID int64) {
	l.mu.Lock()
	defer l.mu.Unlock()

	t, ok := l.byID[tempID]
	if !ok {
		return
	}
	delete(l.byID, tempID)
	t.ID = storeID
	l.byID[storeID] = t
}
