package ledger

import (
	"errors"
	"testing"

	"github.com/nadimkh/mouneh/internal/model"
)

func TestAppendAssignsPlaceholderID(t *testing.T) {
	log := NewLog()

	a := log.Append(model.Transaction{Type: model.TypeTransfer, Status: model.StatusPendingSource})
	b := log.Append(model.Transaction{Type: model.TypeTransfer, Status: model.StatusPendingSource})

	if a.ID >= 0 || b.ID >= 0 {
		t.Errorf("expected negative placeholder IDs, got %d and %d", a.ID, b.ID)
	}
	if a.ID == b.ID {
		t.Errorf("expected distinct placeholder IDs, both %d", a.ID)
	}
	if a.CreatedAt.IsZero() {
		t.Error("expected CreatedAt to be set")
	}
}

func TestListNewestFirst(t *testing.T) {
	log := NewLog()
	log.Append(model.Transaction{ItemNameEn: "first"})
	log.Append(model.Transaction{ItemNameEn: "second"})

	txns := log.List("", "")
	if len(txns) != 2 {
		t.Fatalf("expected 2 transactions, got %d", len(txns))
	}
	if txns[0].ItemNameEn != "second" {
		t.Errorf("expected newest first, got %q", txns[0].ItemNameEn)
	}
}

func TestListFiltersByLocationEitherEnd(t *testing.T) {
	log := NewLog()
	log.Append(model.Transaction{FromLocation: "warehouse", ToLocation: "branch-a"})
	log.Append(model.Transaction{FromLocation: "branch-a", ToLocation: "mammal"})
	log.Append(model.Transaction{FromLocation: "warehouse", ToLocation: "mammal"})

	if got := len(log.List("branch-a", "")); got != 2 {
		t.Errorf("expected 2 transactions touching branch-a, got %d", got)
	}
	if got := len(log.List("warehouse", "")); got != 2 {
		t.Errorf("expected 2 transactions touching warehouse, got %d", got)
	}
}

func TestGroupOldestFirst(t *testing.T) {
	log := NewLog()
	log.Append(model.Transaction{GroupID: "g1", ItemNameEn: "first"})
	log.Append(model.Transaction{GroupID: "g1", ItemNameEn: "second"})
	log.Append(model.Transaction{GroupID: "g2", ItemNameEn: "other"})

	group := log.Group("g1")
	if len(group) != 2 {
		t.Fatalf("expected 2 group members, got %d", len(group))
	}
	if group[0].ItemNameEn != "first" {
		t.Errorf("expected oldest first, got %q", group[0].ItemNameEn)
	}
}

func TestTransitionGuard(t *testing.T) {
	log := NewLog()
	txn := log.Append(model.Transaction{Status: model.StatusPendingTarget})

	// Wrong expected status changes nothing.
	_, err := log.Transition(txn.ID, model.StatusPendingSource, model.StatusPendingTarget, "")
	if !errors.Is(err, ErrStatusConflict) {
		t.Fatalf("expected ErrStatusConflict, got %v", err)
	}
	got, _ := log.Get(txn.ID)
	if got.Status != model.StatusPendingTarget {
		t.Errorf("expected status unchanged, got %s", got.Status)
	}

	// The matching transition succeeds once.
	updated, err := log.Transition(txn.ID, model.StatusPendingTarget, model.StatusCompleted, "")
	if err != nil {
		t.Fatalf("Transition: %v", err)
	}
	if updated.Status != model.StatusCompleted {
		t.Errorf("expected completed, got %s", updated.Status)
	}

	// Repeating it conflicts.
	if _, err := log.Transition(txn.ID, model.StatusPendingTarget, model.StatusCompleted, ""); !errors.Is(err, ErrStatusConflict) {
		t.Errorf("expected conflict on double transition, got %v", err)
	}
}

func TestTransitionRecordsReason(t *testing.T) {
	log := NewLog()
	txn := log.Append(model.Transaction{Status: model.StatusPendingTarget})

	updated, err := log.Transition(txn.ID, model.StatusPendingTarget, model.StatusRejected, "damaged in transit")
	if err != nil {
		t.Fatalf("Transition: %v", err)
	}
	if updated.RejectionReason != "damaged in transit" {
		t.Errorf("expected reason recorded, got %q", updated.RejectionReason)
	}
}

func TestRebindSwapsID(t *testing.T) {
	log := NewLog()
	txn := log.Append(model.Transaction{Status: model.StatusPendingSource})

	log.Rebind(txn.ID, 7)

	if _, err := log.Get(txn.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected placeholder ID to be gone, got %v", err)
	}
	got, err := log.Get(7)
	if err != nil {
		t.Fatalf("Get after rebind: %v", err)
	}
	if got.Status != model.StatusPendingSource {
		t.Errorf("unexpected transaction after rebind: %+v", got)
	}
}

func TestPendingFor(t *testing.T) {
	log := NewLog()
	log.Append(model.Transaction{ToLocation: "branch-a", Status: model.StatusPendingTarget})
	log.Append(model.Transaction{ToLocation: "branch-a", Status: model.StatusCompleted})
	log.Append(model.Transaction{ToLocation: "branch-b", Status: model.StatusPendingTarget})

	pending := log.PendingFor("branch-a")
	if len(pending) != 1 {
		t.Errorf("expected 1 pending transaction for branch-a, got %d", len(pending))
	}
}
