package api

import (
	"database/sql"
	"net/http"

	"github.com/nadimkh/mouneh/internal/inventory"
	"github.com/nadimkh/mouneh/internal/model"
	"github.com/nadimkh/mouneh/internal/store"
)

// LocationsHandler serves location listings and per-location stock views.
// Stock reads come from the in-memory repository, not the store, so they
// reflect optimistic state immediately.
type LocationsHandler struct {
	DB        *sql.DB
	Inventory *inventory.Repository
}

// List handles GET /api/locations.
func (h *LocationsHandler) List(w http.ResponseWriter, r *http.Request) {
	locs, err := store.ListLocations(r.Context(), h.DB)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to list locations")
		return
	}
	if locs == nil {
		locs = []model.Location{}
	}
	jsonResponse(w, http.StatusOK, locs)
}

// GetInventory handles GET /api/locations/{id}/inventory. The id
// "global" returns the cross-location view with location IDs populated.
func (h *LocationsHandler) GetInventory(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var items []model.Item
	if id == model.LocationGlobal {
		items = h.Inventory.ListAll()
	} else {
		items = h.Inventory.List(id)
	}
	if items == nil {
		items = []model.Item{}
	}
	jsonResponse(w, http.StatusOK, items)
}
