// Package inventory holds the authoritative in-memory view of per-location
// stock. Orchestrators mutate it synchronously and enqueue the matching
// durable writes afterwards, so readers always see the intended state even
// while the store is catching up.
package inventory

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/nadimkh/mouneh/internal/model"
)

var (
	// ErrNotFound means the item does not exist at the given location.
	ErrNotFound = errors.New("item not found")
	// ErrInsufficientStock means a deduction would drive the quantity negative.
	ErrInsufficientStock = errors.New("insufficient stock")
	// ErrVersionConflict means an update raced with another mutation.
	ErrVersionConflict = errors.New("item version conflict")
)

// Repository is a per-location collection of stock items. Items inserted
// before the store has assigned an ID carry a negative placeholder ID
// until Rebind swaps it for the durable one.
type Repository struct {
	mu         sync.Mutex
	byLocation map[string]map[int64]*model.Item
	nextTemp   int64
}

// NewRepository returns an empty repository.
func NewRepository() *Repository {
	return &Repository{byLocation: make(map[string]map[int64]*model.Item)}
}

// Load replaces all cached state. Used at startup and when resyncing
// after a failed durable write.
func (r *Repository) Load(items []model.Item) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.byLocation = make(map[string]map[int64]*model.Item)
	for i := range items {
		item := items[i]
		if item.Version == 0 {
			item.Version = 1
		}
		r.locked(item.LocationID)[item.ID] = &item
	}
}

// locked returns the item map for a location, creating it if needed.
// Callers must hold r.mu.
func (r *Repository) locked(locationID string) map[int64]*model.Item {
	m, ok := r.byLocation[locationID]
	if !ok {
		m = make(map[int64]*model.Item)
		r.byLocation[locationID] = m
	}
	return m
}

// List returns a copy of all items at a location, sorted by name.
func (r *Repository) List(locationID string) []model.Item {
	r.mu.Lock()
	defer r.mu.Unlock()

	var items []model.Item
	for _, item := range r.byLocation[locationID] {
		items = append(items, *item)
	}
	sortItems(items)
	return items
}

// ListAll returns every item across all locations, for the global view.
func (r *Repository) ListAll() []model.Item {
	r.mu.Lock()
	defer r.mu.Unlock()

	var items []model.Item
	for _, loc := range r.byLocation {
		for _, item := range loc {
			items = append(items, *item)
		}
	}
	sortItems(items)
	return items
}

func sortItems(items []model.Item) {
	sort.Slice(items, func(i, j int) bool {
		if items[i].NameEn != items[j].NameEn {
			return items[i].NameEn < items[j].NameEn
		}
		return items[i].LocationID < items[j].LocationID
	})
}

// Get returns a copy of an item by location and ID.
func (r *Repository) Get(locationID string, id int64) (model.Item, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	item, ok := r.byLocation[locationID][id]
	if !ok {
		return model.Item{}, fmt.Errorf("%w: id %d at %s", ErrNotFound, id, locationID)
	}
	return *item, nil
}

// FindByName returns a copy of the item at a location whose English or
// Arabic name matches. Transfer receipts and restocks resolve items by
// name because IDs are per-location.
func (r *Repository) FindByName(locationID, nameEn, nameAr string) (model.Item, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, item := range r.byLocation[locationID] {
		if nameEn != "" && strings.EqualFold(item.NameEn, nameEn) {
			return *item, nil
		}
		if nameAr != "" && item.NameAr == nameAr {
			return *item, nil
		}
	}
	return model.Item{}, fmt.Errorf("%w: %q at %s", ErrNotFound, nameEn, locationID)
}

// Insert adds an item. A zero ID gets a negative placeholder assigned;
// the caller is expected to Rebind it once the store reports the durable
// ID. Returns the stored copy.
func (r *Repository) Insert(item model.Item) model.Item {
	r.mu.Lock()
	defer r.mu.Unlock()

	if item.ID == 0 {
		r.nextTemp--
		item.ID = r.nextTemp
	}
	item.Version = 1
	item.LastUpdated = time.Now()
	r.locked(item.LocationID)[item.ID] = &item
	return item
}

// Update replaces an item's editable fields. The incoming Version must
// match the cached one, so stale edits are rejected instead of silently
// overwriting a concurrent change.
func (r *Repository) Update(item model.Item) (model.Item, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur, ok := r.byLocation[item.LocationID][item.ID]
	if !ok {
		return model.Item{}, fmt.Errorf("%w: id %d at %s", ErrNotFound, item.ID, item.LocationID)
	}
	if item.Version != 0 && item.Version != cur.Version {
		return model.Item{}, fmt.Errorf("%w: id %d", ErrVersionConflict, item.ID)
	}
	if item.Quantity < 0 {
		return model.Item{}, fmt.Errorf("%w: %s", ErrInsufficientStock, cur.NameEn)
	}

	cur.NameEn = item.NameEn
	cur.NameAr = item.NameAr
	cur.Category = item.Category
	cur.Unit = item.Unit
	cur.Quantity = item.Quantity
	cur.MinThreshold = item.MinThreshold
	cur.Description = item.Description
	cur.Version++
	cur.LastUpdated = time.Now()
	return *cur, nil
}

// Adjust changes an item's quantity by delta, refusing any change that
// would drive it negative. Returns the updated copy.
func (r *Repository) Adjust(locationID string, id int64, delta float64) (model.Item, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	item, ok := r.byLocation[locationID][id]
	if !ok {
		return model.Item{}, fmt.Errorf("%w: id %d at %s", ErrNotFound, id, locationID)
	}
	if item.Quantity+delta < 0 {
		return model.Item{}, fmt.Errorf("%w: %s has %g, need %g",
			ErrInsufficientStock, item.NameEn, item.Quantity, -delta)
	}

	item.Quantity += delta
	item.Version++
	item.LastUpdated = time.Now()
	return *item, nil
}

// Remove deletes an item. Items are only removed explicitly, never by
// reaching zero quantity.
func (r *Repository) Remove(locationID string, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byLocation[locationID][id]; !ok {
		return fmt.Errorf("%w: id %d at %s", ErrNotFound, id, locationID)
	}
	delete(r.byLocation[locationID], id)
	return nil
}

// Rebind swaps a placeholder ID for the store-assigned one.
func (r *Repository) Rebind(locationID string, tempID, storeID int64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	item, ok := r.byLocation[locationID][tempID]
	if !ok {
		return
	}
	delete(r.byLocation[locationID], tempID)
	item.ID = storeID
	r.byLocation[locationID][storeID] = item
}
