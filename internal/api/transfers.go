package api

import (
	"net/http"
	"strconv"

	"github.com/nadimkh/mouneh/internal/ledger"
	"github.com/nadimkh/mouneh/internal/model"
	"github.com/nadimkh/mouneh/internal/transfer"
)

// TransfersHandler exposes the transfer workflow. Status transitions are
// authorized against the side of the transfer they act on: outbound
// confirmation belongs to the source, receive and reject to the target.
type TransfersHandler struct {
	Ledger    *ledger.Log
	Transfers *transfer.Orchestrator
}

type transferRequest struct {
	FromLocation string          `json:"from_location"`
	ToLocation   string          `json:"to_location"`
	Lines        []transfer.Line `json:"lines"`
}

type rejectRequest struct {
	Reason string `json:"reason"`
}

// Create handles POST /api/transfers.
func (h *TransfersHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())

	var req transferRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.FromLocation == "" {
		req.FromLocation = activeLocation(r, claims)
	}

	result, err := h.Transfers.Initiate(r.Context(), claims.Actor(), req.FromLocation, req.ToLocation, req.Lines)
	if err != nil {
		domainError(w, err)
		return
	}
	jsonResponse(w, http.StatusCreated, result)
}

// List handles GET /api/transactions. The active location filters to
// transactions touching it; "global" shows everything. An optional
// ?status= narrows further.
func (h *TransfersHandler) List(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())

	loc := activeLocation(r, claims)
	if loc == model.LocationGlobal {
		loc = ""
	}
	txns := h.Ledger.List(loc, r.URL.Query().Get("status"))
	if txns == nil {
		txns = []model.Transaction{}
	}
	jsonResponse(w, http.StatusOK, txns)
}

// Get handles GET /api/transactions/{id}.
func (h *TransfersHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := txnID(w, r)
	if !ok {
		return
	}
	txn, err := h.Ledger.Get(id)
	if err != nil {
		domainError(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, txn)
}

// Confirm handles POST /api/transactions/{id}/confirm: the source side
// releases a pending_source transfer, deducting its stock.
func (h *TransfersHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())
	id, ok := txnID(w, r)
	if !ok {
		return
	}

	txn, err := h.Ledger.Get(id)
	if err != nil {
		domainError(w, err)
		return
	}
	if !mustManage(w, claims, txn.FromLocation) {
		return
	}

	result, err := h.Transfers.ConfirmOutbound(r.Context(), claims.Actor(), id)
	if err != nil {
		domainError(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, result)
}

// Receive handles POST /api/transactions/{id}/receive: the target side
// accepts a pending_target transfer, crediting its stock.
func (h *TransfersHandler) Receive(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())
	id, ok := txnID(w, r)
	if !ok {
		return
	}

	txn, err := h.Ledger.Get(id)
	if err != nil {
		domainError(w, err)
		return
	}
	if !mustManage(w, claims, txn.ToLocation) {
		return
	}

	result, err := h.Transfers.Receive(r.Context(), claims.Actor(), id)
	if err != nil {
		domainError(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, result)
}

// Reject handles POST /api/transactions/{id}/reject. Either side of a
// pending transfer may refuse it; the reason is required.
func (h *TransfersHandler) Reject(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())
	id, ok := txnID(w, r)
	if !ok {
		return
	}

	var req rejectRequest
	if err := decodeJSON(r, &req); err != nil || req.Reason == "" {
		jsonError(w, http.StatusBadRequest, "rejection reason required")
		return
	}

	txn, err := h.Ledger.Get(id)
	if err != nil {
		domainError(w, err)
		return
	}
	actor := claims.Actor()
	if !actor.ManagesLocation(txn.FromLocation) && !actor.ManagesLocation(txn.ToLocation) {
		jsonError(w, http.StatusForbidden, "not a party to this transfer")
		return
	}

	result, err := h.Transfers.Reject(r.Context(), actor, id, req.Reason)
	if err != nil {
		domainError(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, result)
}

// Cancel handles POST /api/transactions/{id}/cancel: the initiating side
// withdraws a still-pending transfer.
func (h *TransfersHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())
	id, ok := txnID(w, r)
	if !ok {
		return
	}

	txn, err := h.Ledger.Get(id)
	if err != nil {
		domainError(w, err)
		return
	}
	actor := claims.Actor()
	if !actor.ManagesLocation(txn.FromLocation) && !actor.ManagesLocation(txn.ToLocation) {
		jsonError(w, http.StatusForbidden, "not a party to this transfer")
		return
	}

	result, err := h.Transfers.Cancel(r.Context(), actor, id)
	if err != nil {
		domainError(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, result)
}

// Group handles GET /api/transfers/{group}.
func (h *TransfersHandler) Group(w http.ResponseWriter, r *http.Request) {
	txns := h.Ledger.Group(r.PathValue("group"))
	if len(txns) == 0 {
		jsonError(w, http.StatusNotFound, "transfer group not found")
		return
	}
	jsonResponse(w, http.StatusOK, txns)
}

// AcceptGroup handles POST /api/transfers/{group}/accept: receive every
// still-pending member of a group at once.
func (h *TransfersHandler) AcceptGroup(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())
	groupID := r.PathValue("group")

	group := h.Ledger.Group(groupID)
	if len(group) == 0 {
		jsonError(w, http.StatusNotFound, "transfer group not found")
		return
	}
	if !mustManage(w, claims, group[0].ToLocation) {
		return
	}

	results, err := h.Transfers.BulkAccept(r.Context(), claims.Actor(), groupID)
	if err != nil {
		domainError(w, err)
		return
	}
	if results == nil {
		results = []transfer.TransitionResult{}
	}
	jsonResponse(w, http.StatusOK, results)
}

func txnID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid transaction id")
		return 0, false
	}
	return id, true
}
