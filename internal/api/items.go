package api

import (
	"database/sql"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/nadimkh/mouneh/internal/imaging"
	"github.com/nadimkh/mouneh/internal/inventory"
	"github.com/nadimkh/mouneh/internal/model"
	"github.com/nadimkh/mouneh/internal/persist"
	"github.com/nadimkh/mouneh/internal/store"
)

// ItemsHandler handles inventory item endpoints. Reads and quantity-free
// edits go through the in-memory repository with the matching durable
// write enqueued; images bypass the cache and hit the store directly.
type ItemsHandler struct {
	DB        *sql.DB
	Inventory *inventory.Repository
	Queue     *persist.Queue
}

type itemRequest struct {
	LocationID   string  `json:"location_id"`
	NameEn       string  `json:"name_en"`
	NameAr       string  `json:"name_ar"`
	Category     string  `json:"category"`
	Unit         string  `json:"unit"`
	Quantity     float64 `json:"quantity"`
	MinThreshold float64 `json:"min_threshold"`
	Description  string  `json:"description"`
	Version      int64   `json:"version"`
}

// List handles GET /api/items. The active location decides the view;
// "global" lists everything.
func (h *ItemsHandler) List(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())
	loc := activeLocation(r, claims)

	var items []model.Item
	if loc == model.LocationGlobal {
		items = h.Inventory.ListAll()
	} else {
		items = h.Inventory.List(loc)
	}
	if items == nil {
		items = []model.Item{}
	}
	jsonResponse(w, http.StatusOK, items)
}

// Create handles POST /api/items.
func (h *ItemsHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())

	var req itemRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.LocationID == "" {
		req.LocationID = activeLocation(r, claims)
	}
	if req.LocationID == "" || req.LocationID == model.LocationGlobal {
		jsonError(w, http.StatusBadRequest, "location required")
		return
	}
	if req.NameEn == "" && req.NameAr == "" {
		jsonError(w, http.StatusBadRequest, "item name required")
		return
	}
	if req.Quantity < 0 || req.MinThreshold < 0 {
		jsonError(w, http.StatusBadRequest, "quantity and threshold must not be negative")
		return
	}
	if !mustManage(w, claims, req.LocationID) {
		return
	}

	item := h.Inventory.Insert(model.Item{
		LocationID:   req.LocationID,
		NameEn:       req.NameEn,
		NameAr:       req.NameAr,
		Category:     req.Category,
		Unit:         req.Unit,
		Quantity:     req.Quantity,
		MinThreshold: req.MinThreshold,
		Description:  req.Description,
	})
	persist.EnqueueItemInsert(h.Queue, h.Inventory, item)

	slog.Info("item created", "name", item.NameEn, "location", item.LocationID, "by", claims.Name)
	jsonResponse(w, http.StatusCreated, item)
}

// Get handles GET /api/items/{id}.
func (h *ItemsHandler) Get(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid item id")
		return
	}

	loc := activeLocation(r, claims)
	if loc == model.LocationGlobal {
		for _, item := range h.Inventory.ListAll() {
			if item.ID == id {
				jsonResponse(w, http.StatusOK, item)
				return
			}
		}
		jsonError(w, http.StatusNotFound, "item not found")
		return
	}

	item, err := h.Inventory.Get(loc, id)
	if err != nil {
		domainError(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, item)
}

// Update handles PUT /api/items/{id}. The request's version must match
// the cached item's version, so concurrent edits fail with 409 instead of
// silently overwriting each other.
func (h *ItemsHandler) Update(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid item id")
		return
	}

	var req itemRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.LocationID == "" {
		req.LocationID = activeLocation(r, claims)
	}
	if !mustManage(w, claims, req.LocationID) {
		return
	}

	item, err := h.Inventory.Update(model.Item{
		ID:           id,
		LocationID:   req.LocationID,
		NameEn:       req.NameEn,
		NameAr:       req.NameAr,
		Category:     req.Category,
		Unit:         req.Unit,
		Quantity:     req.Quantity,
		MinThreshold: req.MinThreshold,
		Description:  req.Description,
		Version:      req.Version,
	})
	if err != nil {
		domainError(w, err)
		return
	}
	persist.EnqueueItemUpdate(h.Queue, item)

	jsonResponse(w, http.StatusOK, item)
}

// Delete handles DELETE /api/items/{id}.
func (h *ItemsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid item id")
		return
	}

	loc := activeLocation(r, claims)
	if !mustManage(w, claims, loc) {
		return
	}

	if err := h.Inventory.Remove(loc, id); err != nil {
		domainError(w, err)
		return
	}
	persist.EnqueueItemDelete(h.Queue, id)

	slog.Info("item deleted", "id", id, "location", loc, "by", claims.Name)
	jsonResponse(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// UploadImage handles PUT /api/items/{id}/image.
func (h *ItemsHandler) UploadImage(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid item id")
		return
	}

	data, mime, err := imaging.Normalize(r.Body)
	r.Body.Close()
	if err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := store.SetItemImage(r.Context(), h.DB, id, data, mime); err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to store image")
		return
	}
	jsonResponse(w, http.StatusOK, map[string]string{"status": "image stored"})
}

// GetImage handles GET /api/items/{id}/image.
func (h *ItemsHandler) GetImage(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid item id")
		return
	}

	data, mime, err := store.GetItemImage(r.Context(), h.DB, id)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to load image")
		return
	}
	if len(data) == 0 {
		jsonError(w, http.StatusNotFound, "no image")
		return
	}

	w.Header().Set("Content-Type", mime)
	w.Write(data)
}
