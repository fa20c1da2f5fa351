package model

import "time"

// Transaction is one entry in the stock movement log. Transfers create one
// transaction per moved item, sharing a group ID; usage and receive entries
// get their own group.
type Transaction struct {
	ID              int64     `json:"id"`
	GroupID         string    `json:"group_id"`
	Type            string    `json:"type"`
	Status          string    `json:"status"`
	FromLocation    string    `json:"from_location,omitempty"`
	ToLocation      string    `json:"to_location,omitempty"`
	ItemNameEn      string    `json:"item_name_en"`
	ItemNameAr      string    `json:"item_name_ar,omitempty"`
	Quantity        float64   `json:"quantity"`
	Unit            string    `json:"unit,omitempty"`
	PerformedBy     string    `json:"performed_by,omitempty"`
	Notes           string    `json:"notes,omitempty"`
	RejectionReason string    `json:"rejection_reason,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

// Transaction types.
const (
	TypeTransfer = "transfer"
	TypeUsage    = "usage"
	TypeReceive  = "receive"
)

// Transaction statuses. A transfer starts as pending_source (outbound
// confirmation still required) or pending_target (source already deducted)
// and ends as completed, rejected or cancelled. Usage and receive entries
// are always created completed.
const (
	StatusPendingSource = "pending_source"
	StatusPendingTarget = "pending_target"
	StatusCompleted     = "completed"
	StatusCancelled     = "cancelled"
	StatusRejected      = "rejected"
)

// Location sentinels used on daily-log entries.
const (
	SentinelConsumed = "Consumed"
	SentinelSupplier = "External Supplier"
)

// Terminal reports whether the transaction can no longer transition.
func (t *Transaction) Terminal() bool {
	switch t.Status {
	case StatusCompleted, StatusCancelled, StatusRejected:
		return true
	}
	return false
}
