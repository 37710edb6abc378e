package storage

import (
	"testing"
	"time"

	"campuschat/models"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	store, err := OpenPath(":memory:")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Errorf("close store: %v", err)
		}
	})
	return store
}

func TestReplaceSnapshotOverwritesCache(t *testing.T) {
	store := newTestStore(t)

	first := []models.Notification{
		{ID: "n1", Type: models.NotificationTypeMessage, Text: "old", CreatedAtUTC: 100},
	}
	if err := store.ReplaceSnapshot(first); err != nil {
		t.Fatalf("first ReplaceSnapshot failed: %v", err)
	}

	second := []models.Notification{
		{ID: "n2", Type: models.NotificationTypeRequest, Text: "newer", CreatedAtUTC: 300, Seen: true},
		{ID: "n3", Type: models.NotificationTypeNewUser, Text: "newest", CreatedAtUTC: 500},
	}
	if err := store.ReplaceSnapshot(second); err != nil {
		t.Fatalf("second ReplaceSnapshot failed: %v", err)
	}

	cached, err := store.CachedNotifications()
	if err != nil {
		t.Fatalf("CachedNotifications failed: %v", err)
	}
	if len(cached) != 2 {
		t.Fatalf("expected 2 cached rows, got %d", len(cached))
	}
	if cached[0].ID != "n3" || cached[1].ID != "n2" {
		t.Fatalf("expected newest-first order, got %q then %q", cached[0].ID, cached[1].ID)
	}
	if !cached[1].Seen {
		t.Fatalf("expected seen flag round-trip for n2")
	}
}

func TestReplaceSnapshotRejectsMissingID(t *testing.T) {
	store := newTestStore(t)

	err := store.ReplaceSnapshot([]models.Notification{{Text: "no id"}})
	if err == nil {
		t.Fatalf("expected error for notification without id")
	}

	cached, err := store.CachedNotifications()
	if err != nil {
		t.Fatalf("CachedNotifications failed: %v", err)
	}
	if len(cached) != 0 {
		t.Fatalf("expected rollback to keep cache empty, got %d rows", len(cached))
	}
}

func TestSeenIDLedger(t *testing.T) {
	store := newTestStore(t)

	if err := store.MarkSeenID("n1"); err != nil {
		t.Fatalf("MarkSeenID failed: %v", err)
	}
	if err := store.MarkSeenID("n1"); err != nil {
		t.Fatalf("repeat MarkSeenID failed: %v", err)
	}
	if err := store.MarkSeenID("n2"); err != nil {
		t.Fatalf("MarkSeenID failed: %v", err)
	}

	seen, err := store.SeenIDs()
	if err != nil {
		t.Fatalf("SeenIDs failed: %v", err)
	}
	if len(seen) != 2 {
		t.Fatalf("expected 2 seen ids, got %d", len(seen))
	}
	if _, ok := seen["n1"]; !ok {
		t.Fatalf("expected n1 in seen ledger")
	}

	pruned, err := store.PruneSeenIDs(time.Now().UnixMilli() + 1000)
	if err != nil {
		t.Fatalf("PruneSeenIDs failed: %v", err)
	}
	if pruned != 2 {
		t.Fatalf("expected 2 pruned rows, got %d", pruned)
	}
}

func TestMarkSeenIDRequiresID(t *testing.T) {
	store := newTestStore(t)

	if err := store.MarkSeenID(""); err == nil {
		t.Fatalf("expected error for empty notification id")
	}
}
