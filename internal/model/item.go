package model

import "time"

// Item represents the stock of one product at one location.
// Quantities are fractional because most stock is weighed or measured
// (kg, L), not counted.
type Item struct {
	ID           int64     `json:"id"`
	LocationID   string    `json:"location_id"`
	NameEn       string    `json:"name_en"`
	NameAr       string    `json:"name_ar,omitempty"`
	Category     string    `json:"category,omitempty"`
	Unit         string    `json:"unit"`
	Quantity     float64   `json:"quantity"`
	MinThreshold float64   `json:"min_threshold"`
	Description  string    `json:"description,omitempty"`
	ImageMime    string    `json:"image_mime,omitempty"`
	LastUpdated  time.Time `json:"last_updated"`

	// Version is bumped on every in-memory mutation so callers can detect
	// lost updates. It is not persisted.
	Version int64 `json:"version,omitempty"`
}

// Categories assigned automatically by the transfer workflow.
const (
	CategoryReceived = "Received"
	CategoryReturned = "Returned"
)

// LowStock reports whether the item should be flagged in stock views.
// A zero threshold means the item is never flagged.
func (i *Item) LowStock() bool {
	return i.MinThreshold > 0 && i.Quantity <= i.MinThreshold
}

// DisplayName returns the English name, falling back to Arabic.
func (i *Item) DisplayName() string {
	if i.NameEn != "" {
		return i.NameEn
	}
	return i.NameAr
}
