package api

import (
	"net/http"

	"github.com/nadimkh/mouneh/internal/dailylog"
	"github.com/nadimkh/mouneh/internal/model"
)

// DailyLogHandler exposes single-location usage and receive logging.
type DailyLogHandler struct {
	DailyLog *dailylog.Orchestrator
}

type dailyLogRequest struct {
	Type     string  `json:"type"`
	ItemID   int64   `json:"item_id"`
	Quantity float64 `json:"quantity"`
	Notes    string  `json:"notes"`
}

type dailyLogBulkRequest struct {
	Entries []dailylog.Entry `json:"entries"`
}

// Record handles POST /api/daily-log.
func (h *DailyLogHandler) Record(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())

	var req dailyLogRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	loc := activeLocation(r, claims)
	if loc == "" || loc == model.LocationGlobal {
		jsonError(w, http.StatusBadRequest, "location required")
		return
	}
	if !mustOperateAt(w, claims, loc) {
		return
	}

	txn, err := h.DailyLog.Record(r.Context(), claims.Actor(), loc, req.Type, req.ItemID, req.Quantity, req.Notes)
	if err != nil {
		domainError(w, err)
		return
	}
	jsonResponse(w, http.StatusCreated, txn)
}

// SubmitBulk handles POST /api/daily-log/bulk. The whole batch is
// validated before anything is applied; a bad entry fails the batch.
func (h *DailyLogHandler) SubmitBulk(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())

	var req dailyLogBulkRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Entries) == 0 {
		jsonError(w, http.StatusBadRequest, "no entries")
		return
	}

	loc := activeLocation(r, claims)
	if loc == "" || loc == model.LocationGlobal {
		jsonError(w, http.StatusBadRequest, "location required")
		return
	}
	if !mustOperateAt(w, claims, loc) {
		return
	}

	txns, err := h.DailyLog.SubmitBulk(r.Context(), claims.Actor(), loc, req.Entries)
	if err != nil {
		domainError(w, err)
		return
	}
	if txns == nil {
		txns = []model.Transaction{}
	}
	jsonResponse(w, http.StatusCreated, txns)
}
