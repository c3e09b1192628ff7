package usecase

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/railsewa/grievance-service/internal/core/domain"
)

type fakeAnalyzer struct {
	analysis domain.Analysis
	err      error
	delay    time.Duration
}

func (a *fakeAnalyzer) Analyze(ctx context.Context, _ domain.Complaint) (domain.Analysis, error) {
	if a.delay > 0 {
		select {
		case <-ctx.Done():
			return domain.Analysis{}, ctx.Err()
		case <-time.After(a.delay):
		}
	}
	return a.analysis, a.err
}

type outcomeRecorder struct {
	mu       sync.Mutex
	outcomes []string
}

func (r *outcomeRecorder) record(outcome string, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes = append(r.outcomes, outcome)
}

func (r *outcomeRecorder) all() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.outcomes...)
}

func seedComplaint(t *testing.T, store *fakeStore, id string) {
	t.Helper()
	err := store.MergeWrite(context.Background(), []domain.Complaint{{
		ID:         id,
		Status:     domain.StatusRegistered,
		OwnerEmail: "rita@example.com",
	}}, nil)
	if err != nil {
		t.Fatalf("seed store: %v", err)
	}
}

func newTestEnricher(store *fakeStore, analyzer *fakeAnalyzer) (*Enricher, *outcomeRecorder) {
	recorder := &outcomeRecorder{}
	e := NewEnricher(store, analyzer, time.Millisecond, time.Second, slog.Default(), func() string { return "analysis-1" })
	e.Observe = recorder.record
	return e, recorder
}

func TestEnricherAppliesAnalysis(t *testing.T) {
	store := &fakeStore{}
	seedComplaint(t, store, "CMP-00001-AAAA")

	analyzer := &fakeAnalyzer{analysis: domain.Analysis{
		Category:            "Electrical",
		UrgencyScore:        17,
		Summary:             "fan broken",
		Keywords:            []string{"fan", "fan", "coach"},
		SuggestedDepartment: "Electrical Maintenance",
	}}
	e, recorder := newTestEnricher(store, analyzer)

	var applied *domain.Complaint
	var mu sync.Mutex
	e.OnApplied = func(_ context.Context, enriched domain.Complaint) {
		mu.Lock()
		applied = &enriched
		mu.Unlock()
	}

	e.Schedule("CMP-00001-AAAA")
	e.Wait()

	got := store.find("CMP-00001-AAAA")
	if got.Analysis == nil {
		t.Fatal("expected analysis attached")
	}
	if got.Analysis.ID != "analysis-1" || got.Analysis.ComplaintID != "CMP-00001-AAAA" {
		t.Fatalf("expected analysis identifiers set, got %+v", got.Analysis)
	}
	if got.Analysis.UrgencyScore != 10 {
		t.Fatalf("expected urgency clamped to 10, got %v", got.Analysis.UrgencyScore)
	}
	if len(got.Analysis.Keywords) != 2 {
		t.Fatalf("expected deduplicated keywords, got %v", got.Analysis.Keywords)
	}
	if got.Status != domain.StatusInProgress {
		t.Fatalf("expected IN_PROGRESS, got %s", got.Status)
	}
	if got.AssignedTo != "Electrical Maintenance" {
		t.Fatalf("expected suggested department assignment, got %q", got.AssignedTo)
	}

	mu.Lock()
	defer mu.Unlock()
	if applied == nil || applied.ID != "CMP-00001-AAAA" {
		t.Fatal("expected the applied callback with the enriched record")
	}
	if got := recorder.all(); len(got) != 1 || got[0] != EnrichOutcomeApplied {
		t.Fatalf("expected applied outcome, got %v", got)
	}
}

func TestEnricherFallsBackToDefaultAssignee(t *testing.T) {
	store := &fakeStore{}
	seedComplaint(t, store, "CMP-00002-BBBB")

	analyzer := &fakeAnalyzer{analysis: domain.Analysis{Category: "Other", UrgencyScore: 3}}
	e, _ := newTestEnricher(store, analyzer)

	e.Schedule("CMP-00002-BBBB")
	e.Wait()

	if got := store.find("CMP-00002-BBBB"); got.AssignedTo != DefaultAssignee {
		t.Fatalf("expected default assignee, got %q", got.AssignedTo)
	}
}

func TestEnricherLeavesRecordOnFailure(t *testing.T) {
	store := &fakeStore{}
	seedComplaint(t, store, "CMP-00003-CCCC")

	analyzer := &fakeAnalyzer{err: errors.New("model unavailable")}
	e, recorder := newTestEnricher(store, analyzer)

	e.Schedule("CMP-00003-CCCC")
	e.Wait()

	got := store.find("CMP-00003-CCCC")
	if got.Analysis != nil {
		t.Fatal("expected no analysis on failure")
	}
	if got.Status != domain.StatusRegistered {
		t.Fatalf("expected the record untouched, got %s", got.Status)
	}
	if got := recorder.all(); len(got) != 1 || got[0] != EnrichOutcomeFailed {
		t.Fatalf("expected failed outcome, got %v", got)
	}
}

func TestEnricherSkipsVanishedRecord(t *testing.T) {
	store := &fakeStore{}
	analyzer := &fakeAnalyzer{}
	e, recorder := newTestEnricher(store, analyzer)

	e.Schedule("CMP-00004-DDDD")
	e.Wait()

	if got := recorder.all(); len(got) != 1 || got[0] != EnrichOutcomeVanished {
		t.Fatalf("expected vanished outcome, got %v", got)
	}
}

func TestEnricherSkipsRecordDeletedDuringAnalysis(t *testing.T) {
	store := &fakeStore{}
	seedComplaint(t, store, "CMP-00005-EEEE")

	analyzer := &fakeAnalyzer{delay: 20 * time.Millisecond, analysis: domain.Analysis{Category: "Other"}}
	e, recorder := newTestEnricher(store, analyzer)

	e.Schedule("CMP-00005-EEEE")
	time.Sleep(5 * time.Millisecond)
	if err := store.MergeWrite(context.Background(), nil, []string{"CMP-00005-EEEE"}); err != nil {
		t.Fatalf("delete during analysis: %v", err)
	}
	e.Wait()

	if store.find("CMP-00005-EEEE") != nil {
		t.Fatal("expected the record to stay deleted")
	}
	if got := recorder.all(); len(got) != 1 || got[0] != EnrichOutcomeVanished {
		t.Fatalf("expected vanished outcome, got %v", got)
	}
}

func TestCancelStopsPendingTask(t *testing.T) {
	store := &fakeStore{}
	seedComplaint(t, store, "CMP-00006-FFFF")

	analyzer := &fakeAnalyzer{analysis: domain.Analysis{Category: "Other"}}
	recorder := &outcomeRecorder{}
	e := NewEnricher(store, analyzer, time.Hour, time.Second, slog.Default(), func() string { return "analysis-1" })
	e.Observe = recorder.record

	e.Schedule("CMP-00006-FFFF")
	e.Cancel("CMP-00006-FFFF")
	e.Wait()

	if got := store.find("CMP-00006-FFFF"); got.Analysis != nil {
		t.Fatal("expected no analysis after cancel")
	}
	if got := recorder.all(); len(got) != 1 || got[0] != EnrichOutcomeCancelled {
		t.Fatalf("expected cancelled outcome, got %v", got)
	}
}

func TestRescheduleCancelsPriorTask(t *testing.T) {
	store := &fakeStore{}
	seedComplaint(t, store, "CMP-00007-GGGG")

	analyzer := &fakeAnalyzer{analysis: domain.Analysis{Category: "Other"}}
	recorder := &outcomeRecorder{}
	e := NewEnricher(store, analyzer, 10*time.Millisecond, time.Second, slog.Default(), func() string { return "analysis-1" })
	e.Observe = recorder.record

	e.Schedule("CMP-00007-GGGG")
	e.Schedule("CMP-00007-GGGG")
	e.Wait()

	outcomes := recorder.all()
	if len(outcomes) != 2 {
		t.Fatalf("expected two task outcomes, got %v", outcomes)
	}
	cancelled, applied := 0, 0
	for _, o := range outcomes {
		switch o {
		case EnrichOutcomeCancelled:
			cancelled++
		case EnrichOutcomeApplied:
			applied++
		}
	}
	if cancelled != 1 || applied != 1 {
		t.Fatalf("expected one cancelled and one applied task, got %v", outcomes)
	}
}
