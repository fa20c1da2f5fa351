// Package notify surfaces incoming-transfer alerts. It watches for
// pending_target transactions addressed to a viewer's location and raises
// each one exactly once per session; repeated log refreshes do not
// re-alert.
package notify

import (
	"fmt"
	"sync"

	"github.com/nadimkh/mouneh/internal/model"
)

// Alert is the (title, body) pair handed to the notification surface.
type Alert struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

// Emitter tracks which transfers each user has already been alerted
// about. The seen sets are session-scoped: Reset clears a user's set on
// logout. Transfers are keyed by (group, item) rather than transaction
// ID, which changes when the persistence worker rebinds a placeholder.
type Emitter struct {
	mu   sync.Mutex
	seen map[int64]map[string]struct{} // user ID -> alerted transfer keys
	sink func(Alert)
}

// NewEmitter returns an emitter. sink, if non-nil, is called synchronously
// for every new alert; the delivery mechanism behind it is external.
func NewEmitter(sink func(Alert)) *Emitter {
	return &Emitter{seen: make(map[int64]map[string]struct{}), sink: sink}
}

func alertKey(t model.Transaction) string {
	return t.GroupID + "/" + t.ItemNameEn
}

// Scan inspects a fresh view of the transaction log for the given viewer
// and location and returns the alerts not yet raised this session. The
// seen set is updated before the sink is invoked, so a racing refresh
// cannot alert twice for the same transaction.
func (e *Emitter) Scan(userID int64, locationID string, txns []model.Transaction) []Alert {
	e.mu.Lock()
	defer e.mu.Unlock()

	seen, ok := e.seen[userID]
	if !ok {
		seen = make(map[string]struct{})
		e.seen[userID] = seen
	}

	var alerts []Alert
	for _, t := range txns {
		if t.Status != model.StatusPendingTarget || t.ToLocation != locationID {
			continue
		}
		key := alertKey(t)
		if _, done := seen[key]; done {
			continue
		}
		seen[key] = struct{}{}

		alert := Alert{
			Title: "Incoming transfer",
			Body: fmt.Sprintf("%g %s %s from %s awaiting acceptance",
				t.Quantity, t.Unit, t.ItemNameEn, t.FromLocation),
		}
		alerts = append(alerts, alert)
		if e.sink != nil {
			e.sink(alert)
		}
	}
	return alerts
}

// Reset clears a user's seen set. Called on logout so a new session
// re-alerts for still-pending transfers.
func (e *Emitter) Reset(userID int64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.seen, userID)
}
