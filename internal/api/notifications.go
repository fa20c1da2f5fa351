package api

import (
	"net/http"

	"github.com/nadimkh/mouneh/internal/ledger"
	"github.com/nadimkh/mouneh/internal/model"
	"github.com/nadimkh/mouneh/internal/notify"
)

// NotificationsHandler returns incoming-transfer alerts for the viewer's
// location. Each pending transfer alerts once per session; the seen set
// is cleared on logout.
type NotificationsHandler struct {
	Ledger   *ledger.Log
	Notifier *notify.Emitter
}

// List handles GET /api/notifications.
func (h *NotificationsHandler) List(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())

	loc := activeLocation(r, claims)
	if loc == "" || loc == model.LocationGlobal {
		jsonResponse(w, http.StatusOK, []notify.Alert{})
		return
	}

	alerts := h.Notifier.Scan(claims.UserID, loc, h.Ledger.PendingFor(loc))
	if alerts == nil {
		alerts = []notify.Alert{}
	}
	jsonResponse(w, http.StatusOK, alerts)
}
