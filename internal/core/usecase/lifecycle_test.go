package usecase

import (
	"context"
	"encoding/base64"
	"log/slog"
	"reflect"
	"strings"
	"sync"
	"testing"

	"github.com/railsewa/grievance-service/internal/core/domain"
	"github.com/railsewa/grievance-service/internal/core/ports"
)

type fakeStore struct {
	mu        sync.Mutex
	records   []domain.Complaint
	failMerge error
}

func (s *fakeStore) LoadAll(_ context.Context) ([]domain.Complaint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Complaint, 0, len(s.records))
	for _, c := range s.records {
		out = append(out, c.Clone())
	}
	return out, nil
}

func (s *fakeStore) SaveAll(_ context.Context, all []domain.Complaint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append([]domain.Complaint(nil), all...)
	return nil
}

func (s *fakeStore) MergeWrite(_ context.Context, changed []domain.Complaint, deletedIDs []string) error {
	if s.failMerge != nil {
		return s.failMerge
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range changed {
		replaced := false
		for i := range s.records {
			if s.records[i].ID == c.ID {
				s.records[i] = c.Clone()
				replaced = true
				break
			}
		}
		if !replaced {
			s.records = append(s.records, c.Clone())
		}
	}
	for _, id := range deletedIDs {
		for i := range s.records {
			if s.records[i].ID == id {
				s.records = append(s.records[:i], s.records[i+1:]...)
				break
			}
		}
	}
	return nil
}

func (s *fakeStore) Subscribe(ctx context.Context, _ func()) error {
	<-ctx.Done()
	return nil
}

func (s *fakeStore) find(id string) *domain.Complaint {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.records {
		if c.ID == id {
			out := c.Clone()
			return &out
		}
	}
	return nil
}

type fakeScheduler struct {
	mu        sync.Mutex
	scheduled []string
	cancelled []string
}

func (s *fakeScheduler) Schedule(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scheduled = append(s.scheduled, id)
}

func (s *fakeScheduler) Cancel(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelled = append(s.cancelled, id)
}

type fakeExtractor struct {
	draft *ports.Draft
	err   error
}

func (e *fakeExtractor) Extract(_ context.Context, _, _ string) (*ports.Draft, error) {
	return e.draft, e.err
}

type fakeBroadcaster struct {
	mu        sync.Mutex
	announced int
}

func (b *fakeBroadcaster) Announce(_ context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.announced++
	return nil
}

func (b *fakeBroadcaster) Listen(ctx context.Context, _ func()) error {
	<-ctx.Done()
	return nil
}

func (b *fakeBroadcaster) count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.announced
}

func newTestLifecycle(store *fakeStore, extractor ports.Extractor) (*Lifecycle, *fakeScheduler, *fakeBroadcaster) {
	scheduler := &fakeScheduler{}
	broadcaster := &fakeBroadcaster{}
	l := NewLifecycle(store, extractor, scheduler, broadcaster, slog.Default())
	return l, scheduler, broadcaster
}

func passenger(email string) domain.Identity {
	return domain.Identity{Email: email, Role: domain.RolePassenger}
}

func admin() domain.Identity {
	return domain.Identity{Email: "officer@rail.local", Role: domain.RoleAdmin}
}

func TestCreatePersistsAndSchedulesEnrichment(t *testing.T) {
	store := &fakeStore{}
	l, scheduler, broadcaster := newTestLifecycle(store, &fakeExtractor{})

	created := l.Create(context.Background(), passenger("rita@example.com"), ports.Draft{
		Area:    domain.AreaStation,
		Type:    "Cleanliness",
		SubType: "Platform",
	}, []ports.MediaFile{
		{Name: "photo.jpg", MimeType: "image/jpeg", Content: []byte("jpegdata")},
		{Name: "empty.bin", MimeType: "application/octet-stream", Content: nil},
	})
	if created == nil {
		t.Fatal("expected a created complaint")
	}
	if !strings.HasPrefix(created.ID, "CMP-") {
		t.Fatalf("expected CMP- reference for station complaints, got %q", created.ID)
	}
	if created.Title != "Cleanliness: Platform" {
		t.Fatalf("expected assembled title, got %q", created.Title)
	}
	if created.Status != domain.StatusRegistered {
		t.Fatalf("expected REGISTERED, got %s", created.Status)
	}
	if created.Source != domain.SourceForm {
		t.Fatalf("expected FORM source, got %s", created.Source)
	}
	if created.OwnerEmail != "rita@example.com" {
		t.Fatalf("expected owner email, got %q", created.OwnerEmail)
	}
	if created.Priority != domain.PriorityMedium {
		t.Fatalf("expected default MEDIUM priority, got %s", created.Priority)
	}
	if len(created.Media) != 1 {
		t.Fatalf("expected the empty upload to be skipped, got %d media", len(created.Media))
	}
	if created.Media[0].Type != domain.MediaImage {
		t.Fatalf("expected IMAGE media, got %s", created.Media[0].Type)
	}
	if created.Media[0].Content != base64.StdEncoding.EncodeToString([]byte("jpegdata")) {
		t.Fatal("expected base64 media payload")
	}

	if store.find(created.ID) == nil {
		t.Fatal("expected the record persisted")
	}
	if len(scheduler.scheduled) != 1 || scheduler.scheduled[0] != created.ID {
		t.Fatalf("expected one enrichment task for %s, got %v", created.ID, scheduler.scheduled)
	}
	if broadcaster.count() == 0 {
		t.Fatal("expected a change announcement")
	}
}

func TestCreateSuggestionUsesSUGPrefix(t *testing.T) {
	store := &fakeStore{}
	l, _, _ := newTestLifecycle(store, &fakeExtractor{})

	created := l.Create(context.Background(), passenger("rita@example.com"), ports.Draft{
		Area:        domain.AreaSuggestions,
		Description: "More water booths",
	}, nil)
	if created == nil {
		t.Fatal("expected a created complaint")
	}
	if !strings.HasPrefix(created.ID, "SUG-") {
		t.Fatalf("expected SUG- reference, got %q", created.ID)
	}
	if created.Title != "General: Complaint" {
		t.Fatalf("expected fallback title, got %q", created.Title)
	}
}

func TestCreateAnonymousOwner(t *testing.T) {
	store := &fakeStore{}
	l, _, _ := newTestLifecycle(store, &fakeExtractor{})

	created := l.Create(context.Background(), domain.Anonymous(), ports.Draft{Area: domain.AreaTrain}, nil)
	if created == nil {
		t.Fatal("expected a created complaint")
	}
	if created.OwnerEmail != domain.AnonymousEmail {
		t.Fatalf("expected anonymous owner sentinel, got %q", created.OwnerEmail)
	}
}

func TestCreateRejectsAdmin(t *testing.T) {
	store := &fakeStore{}
	l, scheduler, _ := newTestLifecycle(store, &fakeExtractor{})

	if created := l.Create(context.Background(), admin(), ports.Draft{Area: domain.AreaTrain}, nil); created != nil {
		t.Fatal("expected nil for administrative caller")
	}
	if len(scheduler.scheduled) != 0 {
		t.Fatal("expected no enrichment task")
	}
	if len(store.records) != 0 {
		t.Fatal("expected nothing persisted")
	}
}

func TestCreateFromConversation(t *testing.T) {
	draft := &ports.Draft{
		Area:        domain.AreaTrain,
		Type:        "Electrical",
		SubType:     "Fan",
		Description: "Fan not working in coach B2",
	}
	store := &fakeStore{}
	l, scheduler, _ := newTestLifecycle(store, &fakeExtractor{draft: draft})

	created := l.CreateFromConversation(context.Background(), passenger("rita@example.com"), "fan broken", "noted")
	if created == nil {
		t.Fatal("expected a created complaint")
	}
	if created.Source != domain.SourceChatbot {
		t.Fatalf("expected CHATBOT source, got %s", created.Source)
	}
	if created.Description != draft.Description {
		t.Fatalf("expected extracted description, got %q", created.Description)
	}
	if len(scheduler.scheduled) != 1 {
		t.Fatalf("expected one enrichment task, got %d", len(scheduler.scheduled))
	}
}

func TestCreateFromConversationNothingExtracted(t *testing.T) {
	store := &fakeStore{}
	l, _, _ := newTestLifecycle(store, &fakeExtractor{draft: nil})

	if created := l.CreateFromConversation(context.Background(), passenger("rita@example.com"), "hello", "hi"); created != nil {
		t.Fatal("expected nil when extraction yields nothing")
	}
	if len(store.records) != 0 {
		t.Fatal("expected nothing persisted")
	}
}

func TestCreateFromConversationRequiresAuthenticatedPassenger(t *testing.T) {
	draft := &ports.Draft{Area: domain.AreaTrain, Description: "something"}
	store := &fakeStore{}
	l, _, _ := newTestLifecycle(store, &fakeExtractor{draft: draft})

	if created := l.CreateFromConversation(context.Background(), domain.Anonymous(), "x", "y"); created != nil {
		t.Fatal("expected nil for anonymous caller")
	}
	if created := l.CreateFromConversation(context.Background(), admin(), "x", "y"); created != nil {
		t.Fatal("expected nil for administrative caller")
	}
}

func TestCreateFromStructuredInput(t *testing.T) {
	store := &fakeStore{}
	l, _, _ := newTestLifecycle(store, &fakeExtractor{})

	created := l.CreateFromStructuredInput(context.Background(), passenger("rita@example.com"), ports.Draft{
		Area:        domain.AreaEnquiry,
		Description: "Where is my refund",
	})
	if created == nil {
		t.Fatal("expected a created complaint")
	}
	if created.Source != domain.SourceChatbot {
		t.Fatalf("expected CHATBOT source, got %s", created.Source)
	}
	if !strings.HasPrefix(created.ID, "ENQ-") {
		t.Fatalf("expected ENQ- reference, got %q", created.ID)
	}

	if created := l.CreateFromStructuredInput(context.Background(), admin(), ports.Draft{Area: domain.AreaTrain}); created != nil {
		t.Fatal("expected nil for administrative caller")
	}
}

func TestUpdateScopedToOwner(t *testing.T) {
	store := &fakeStore{}
	l, _, _ := newTestLifecycle(store, &fakeExtractor{})
	created := l.Create(context.Background(), passenger("rita@example.com"), ports.Draft{Area: domain.AreaTrain}, nil)

	desc := "updated description"
	if l.Update(context.Background(), passenger("mallory@example.com"), created.ID, ports.Patch{Description: &desc}) {
		t.Fatal("expected update by a stranger to fail")
	}
	if !l.Update(context.Background(), passenger("rita@example.com"), created.ID, ports.Patch{Description: &desc}) {
		t.Fatal("expected update by the owner to succeed")
	}
	if got := store.find(created.ID); got.Description != desc {
		t.Fatalf("expected persisted description, got %q", got.Description)
	}

	zone := "Northern"
	if !l.Update(context.Background(), admin(), created.ID, ports.Patch{Zone: &zone}) {
		t.Fatal("expected update by an administrator to succeed")
	}
}

func TestWithdrawIgnoresCurrentStatus(t *testing.T) {
	store := &fakeStore{}
	l, _, _ := newTestLifecycle(store, &fakeExtractor{})
	created := l.Create(context.Background(), passenger("rita@example.com"), ports.Draft{Area: domain.AreaTrain}, nil)

	resolved := domain.StatusResolved
	if !l.Update(context.Background(), admin(), created.ID, ports.Patch{Status: &resolved}) {
		t.Fatal("expected status update to succeed")
	}
	if !l.Withdraw(context.Background(), passenger("rita@example.com"), created.ID) {
		t.Fatal("expected withdraw to succeed on a resolved record")
	}
	if got := store.find(created.ID); got.Status != domain.StatusWithdrawn {
		t.Fatalf("expected WITHDRAWN, got %s", got.Status)
	}
}

func TestResubmitResetsAnalysisAndAppendsMedia(t *testing.T) {
	store := &fakeStore{}
	l, scheduler, _ := newTestLifecycle(store, &fakeExtractor{})
	created := l.Create(context.Background(), passenger("rita@example.com"), ports.Draft{Area: domain.AreaTrain}, []ports.MediaFile{
		{Name: "before.jpg", MimeType: "image/jpeg", Content: []byte("a")},
	})

	enriched := store.find(created.ID).Clone()
	enriched.Status = domain.StatusInProgress
	enriched.Analysis = &domain.Analysis{ID: "a1", ComplaintID: created.ID, Category: "Electrical"}
	if err := store.MergeWrite(context.Background(), []domain.Complaint{enriched}, nil); err != nil {
		t.Fatalf("seed enrichment: %v", err)
	}
	l.ApplyEnriched(context.Background(), enriched)

	desc := "still broken"
	resubmitted := l.Resubmit(context.Background(), passenger("rita@example.com"), created.ID, ports.Patch{Description: &desc}, []ports.MediaFile{
		{Name: "after.mp4", MimeType: "video/mp4", Content: []byte("b")},
	})
	if resubmitted == nil {
		t.Fatal("expected resubmission to succeed")
	}
	if resubmitted.Status != domain.StatusRegistered {
		t.Fatalf("expected status reset to REGISTERED, got %s", resubmitted.Status)
	}
	if resubmitted.Analysis != nil {
		t.Fatal("expected analysis cleared")
	}
	if len(resubmitted.Media) != 2 {
		t.Fatalf("expected media appended, got %d entries", len(resubmitted.Media))
	}
	if resubmitted.Description != desc {
		t.Fatalf("expected patched description, got %q", resubmitted.Description)
	}
	if len(scheduler.scheduled) != 2 {
		t.Fatalf("expected a second enrichment task, got %v", scheduler.scheduled)
	}
}

func TestDeleteRemovesAndCancelsEnrichment(t *testing.T) {
	store := &fakeStore{}
	l, scheduler, _ := newTestLifecycle(store, &fakeExtractor{})
	created := l.Create(context.Background(), passenger("rita@example.com"), ports.Draft{Area: domain.AreaTrain}, nil)

	if l.Delete(context.Background(), passenger("mallory@example.com"), created.ID) {
		t.Fatal("expected delete by a stranger to fail")
	}
	if !l.Delete(context.Background(), passenger("rita@example.com"), created.ID) {
		t.Fatal("expected delete by the owner to succeed")
	}
	if store.find(created.ID) != nil {
		t.Fatal("expected the record removed from the store")
	}
	if len(scheduler.cancelled) != 1 || scheduler.cancelled[0] != created.ID {
		t.Fatalf("expected the enrichment task cancelled, got %v", scheduler.cancelled)
	}
	if l.GetByID(context.Background(), passenger("rita@example.com"), created.ID) != nil {
		t.Fatal("expected the record gone from the view")
	}
}

func TestListFiltersByCaller(t *testing.T) {
	store := &fakeStore{}
	l, _, _ := newTestLifecycle(store, &fakeExtractor{})
	l.Create(context.Background(), passenger("rita@example.com"), ports.Draft{Area: domain.AreaTrain}, nil)
	l.Create(context.Background(), passenger("amit@example.com"), ports.Draft{Area: domain.AreaStation}, nil)

	if got := l.List(context.Background(), passenger("rita@example.com")); len(got) != 1 {
		t.Fatalf("expected the passenger to see 1 record, got %d", len(got))
	}
	if got := l.List(context.Background(), admin()); len(got) != 2 {
		t.Fatalf("expected the administrator to see 2 records, got %d", len(got))
	}
	if got := l.List(context.Background(), passenger("nobody@example.com")); len(got) != 0 {
		t.Fatalf("expected an empty view, got %d", len(got))
	}
}

func TestRefreshPicksUpExternalWrites(t *testing.T) {
	store := &fakeStore{}
	l, _, _ := newTestLifecycle(store, &fakeExtractor{})
	created := l.Create(context.Background(), passenger("rita@example.com"), ports.Draft{Area: domain.AreaTrain}, nil)

	external := store.find(created.ID).Clone()
	external.Status = domain.StatusEscalated
	if err := store.MergeWrite(context.Background(), []domain.Complaint{external}, nil); err != nil {
		t.Fatalf("external write: %v", err)
	}

	if got := l.GetByID(context.Background(), passenger("rita@example.com"), created.ID); got.Status != domain.StatusRegistered {
		t.Fatalf("expected the stale cached status before refresh, got %s", got.Status)
	}
	if err := l.Refresh(context.Background(), passenger("rita@example.com")); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if got := l.GetByID(context.Background(), passenger("rita@example.com"), created.ID); got.Status != domain.StatusEscalated {
		t.Fatalf("expected the refreshed status, got %s", got.Status)
	}
}

func TestRefreshIsIdempotentWithoutWrites(t *testing.T) {
	store := &fakeStore{}
	l, _, _ := newTestLifecycle(store, &fakeExtractor{})
	l.Create(context.Background(), passenger("rita@example.com"), ports.Draft{Area: domain.AreaTrain, Type: "Electrical"}, nil)
	l.Create(context.Background(), passenger("rita@example.com"), ports.Draft{Area: domain.AreaStation, Type: "Cleanliness"}, nil)

	if err := l.Refresh(context.Background(), passenger("rita@example.com")); err != nil {
		t.Fatalf("first refresh: %v", err)
	}
	before := l.List(context.Background(), passenger("rita@example.com"))

	if err := l.Refresh(context.Background(), passenger("rita@example.com")); err != nil {
		t.Fatalf("second refresh: %v", err)
	}
	after := l.List(context.Background(), passenger("rita@example.com"))

	if !reflect.DeepEqual(before, after) {
		t.Fatalf("expected an unchanged view across refreshes:\nbefore %+v\nafter  %+v", before, after)
	}
}

func TestOverrideStatusAdminOnly(t *testing.T) {
	store := &fakeStore{}
	l, _, _ := newTestLifecycle(store, &fakeExtractor{})
	created := l.Create(context.Background(), passenger("rita@example.com"), ports.Draft{Area: domain.AreaTrain}, nil)

	if l.OverrideStatus(context.Background(), passenger("rita@example.com"), created.ID, domain.StatusClosed) {
		t.Fatal("expected override by a passenger to fail")
	}
	if !l.OverrideStatus(context.Background(), admin(), created.ID, domain.StatusClosed) {
		t.Fatal("expected override by an administrator to succeed")
	}
	if got := store.find(created.ID); got.Status != domain.StatusClosed {
		t.Fatalf("expected CLOSED, got %s", got.Status)
	}
}

func TestCreateFailsWhenMergeWriteFails(t *testing.T) {
	store := &fakeStore{failMerge: context.DeadlineExceeded}
	l, scheduler, _ := newTestLifecycle(store, &fakeExtractor{})

	if created := l.Create(context.Background(), passenger("rita@example.com"), ports.Draft{Area: domain.AreaTrain}, nil); created != nil {
		t.Fatal("expected nil when the store write fails")
	}
	if len(scheduler.scheduled) != 0 {
		t.Fatal("expected no enrichment task")
	}
}
