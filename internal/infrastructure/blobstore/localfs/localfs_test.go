package localfs

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/railsewa/grievance-service/internal/core/domain"
)

func TestLoadAllMissingFileIsEmpty(t *testing.T) {
	store, err := New(filepath.Join(t.TempDir(), "complaints.json"), time.Second)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	all, err := store.LoadAll(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(all) != 0 {
		t.Fatalf("expected empty collection, got %d records", len(all))
	}
}

func TestMergeWriteRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "complaints.json")
	store, err := New(path, time.Second)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}

	err = store.MergeWrite(context.Background(), []domain.Complaint{
		{ID: "CMP-1", Status: domain.StatusRegistered},
		{ID: "CMP-2", Status: domain.StatusRegistered},
	}, nil)
	if err != nil {
		t.Fatalf("first write: %v", err)
	}
	err = store.MergeWrite(context.Background(), []domain.Complaint{
		{ID: "CMP-1", Status: domain.StatusResolved},
	}, []string{"CMP-2"})
	if err != nil {
		t.Fatalf("second write: %v", err)
	}

	all, err := store.LoadAll(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("expected 1 record, got %d", len(all))
	}
	if all[0].ID != "CMP-1" || all[0].Status != domain.StatusResolved {
		t.Fatalf("expected CMP-1 resolved, got %+v", all[0])
	}
}

func TestSubscribeDetectsExternalWrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "complaints.json")
	self, err := New(path, 5*time.Millisecond)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	if err := self.SaveAll(context.Background(), nil); err != nil {
		t.Fatalf("initial write: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	signals := make(chan struct{}, 8)
	go func() {
		_ = self.Subscribe(ctx, func() { signals <- struct{}{} })
	}()

	// Own write: the fingerprint matches, no signal expected.
	if err := self.MergeWrite(ctx, []domain.Complaint{{ID: "CMP-1"}}, nil); err != nil {
		t.Fatalf("own write: %v", err)
	}
	select {
	case <-signals:
		t.Fatal("expected no signal for this handle's own write")
	case <-time.After(30 * time.Millisecond):
	}

	// A second handle on the same file acts as another process.
	other, err := New(path, time.Second)
	if err != nil {
		t.Fatalf("second handle: %v", err)
	}
	if err := other.MergeWrite(ctx, []domain.Complaint{{ID: "CMP-2"}}, nil); err != nil {
		t.Fatalf("external write: %v", err)
	}

	select {
	case <-signals:
	case <-time.After(time.Second):
		t.Fatal("expected a signal for the external write")
	}
}
