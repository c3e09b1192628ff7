package usecase

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/railsewa/grievance-service/internal/core/domain"
	"github.com/railsewa/grievance-service/internal/core/ports"
)

// DefaultAssignee receives enriched complaints when the analysis does not
// suggest a department.
const DefaultAssignee = "Customer Service"

// Enrichment outcomes reported to the observer hook.
const (
	EnrichOutcomeApplied   = "applied"
	EnrichOutcomeFailed    = "failed"
	EnrichOutcomeCancelled = "cancelled"
	EnrichOutcomeVanished  = "vanished"
)

// Enricher schedules deferred analysis tasks, one per complaint ID. A task
// waits a short delay, calls the Analysis Service and merge-writes the
// result after re-verifying the target still exists, so a delete that
// raced the delay turns the task into a no-op. Failures are logged and the
// record is left exactly as it was.
type Enricher struct {
	store    ports.SnapshotStore
	analyzer ports.Analyzer
	delay    time.Duration
	timeout  time.Duration
	logger   *slog.Logger

	// OnApplied runs after an enrichment write lands, with the written record.
	OnApplied func(ctx context.Context, enriched domain.Complaint)
	// OnScheduled and Observe report task starts and outcomes for metrics.
	// Either may be nil.
	OnScheduled func()
	Observe     func(outcome string, took time.Duration)

	mu    sync.Mutex
	tasks map[string]*enrichTask
	wg    sync.WaitGroup

	newID func() string
	now   func() time.Time
}

type enrichTask struct {
	cancel context.CancelFunc
}

func NewEnricher(store ports.SnapshotStore, analyzer ports.Analyzer, delay, timeout time.Duration, logger *slog.Logger, newID func() string) *Enricher {
	if logger == nil {
		logger = slog.Default()
	}
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return &Enricher{
		store:    store,
		analyzer: analyzer,
		delay:    delay,
		timeout:  timeout,
		logger:   logger,
		tasks:    make(map[string]*enrichTask),
		newID:    newID,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Schedule registers a deferred enrichment task for id, replacing any task
// already outstanding for the same record.
func (e *Enricher) Schedule(id string) {
	ctx, cancel := context.WithCancel(context.Background())
	task := &enrichTask{cancel: cancel}

	e.mu.Lock()
	if prev, ok := e.tasks[id]; ok {
		prev.cancel()
	}
	e.tasks[id] = task
	e.mu.Unlock()

	if e.OnScheduled != nil {
		e.OnScheduled()
	}
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		defer e.finish(id, task)
		e.run(ctx, id)
	}()
}

// Cancel stops the outstanding task for id, if any.
func (e *Enricher) Cancel(id string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if task, ok := e.tasks[id]; ok {
		task.cancel()
		delete(e.tasks, id)
	}
}

// Wait blocks until every in-flight task has finished. Used on shutdown and
// in tests.
func (e *Enricher) Wait() {
	e.wg.Wait()
}

func (e *Enricher) run(ctx context.Context, id string) {
	started := e.now()

	timer := time.NewTimer(e.delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		e.observe(EnrichOutcomeCancelled, started)
		return
	case <-timer.C:
	}

	target, ok := e.lookup(ctx, id)
	if !ok {
		e.observe(EnrichOutcomeVanished, started)
		return
	}

	analyzeCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()
	analysis, err := e.analyzer.Analyze(analyzeCtx, target)
	if err != nil {
		if ctx.Err() != nil {
			e.observe(EnrichOutcomeCancelled, started)
			return
		}
		// Best-effort: the submitter never sees this.
		e.logger.Error("enrichment analysis failed", "id", id, "error", err)
		e.observe(EnrichOutcomeFailed, started)
		return
	}

	// Re-verify the target survived the analysis latency before writing.
	target, ok = e.lookup(ctx, id)
	if !ok {
		e.observe(EnrichOutcomeVanished, started)
		return
	}

	enriched := e.applyAnalysis(target, analysis)
	if err := e.store.MergeWrite(ctx, []domain.Complaint{enriched}, nil); err != nil {
		e.logger.Error("enrichment merge write failed", "id", id, "error", err)
		e.observe(EnrichOutcomeFailed, started)
		return
	}

	if e.OnApplied != nil {
		e.OnApplied(ctx, enriched)
	}
	e.observe(EnrichOutcomeApplied, started)
}

func (e *Enricher) lookup(ctx context.Context, id string) (domain.Complaint, bool) {
	all, err := e.store.LoadAll(ctx)
	if err != nil {
		e.logger.Error("enrichment snapshot load failed", "id", id, "error", err)
		return domain.Complaint{}, false
	}
	for _, c := range all {
		if c.ID == id {
			return c.Clone(), true
		}
	}
	return domain.Complaint{}, false
}

func (e *Enricher) applyAnalysis(c domain.Complaint, a domain.Analysis) domain.Complaint {
	a.ID = e.newID()
	a.ComplaintID = c.ID
	a.UrgencyScore = domain.ClampUrgency(a.UrgencyScore)
	a.Keywords = domain.DedupKeywords(a.Keywords)
	a.AnalyzedAt = e.now()

	c.Status = domain.StatusInProgress
	if a.SuggestedDepartment != "" {
		c.AssignedTo = a.SuggestedDepartment
	} else {
		c.AssignedTo = DefaultAssignee
	}
	c.Analysis = &a
	c.UpdatedAt = e.now()
	return c
}

// finish clears the task table entry unless a newer task already replaced it.
func (e *Enricher) finish(id string, task *enrichTask) {
	task.cancel()
	e.mu.Lock()
	defer e.mu.Unlock()
	if current, ok := e.tasks[id]; ok && current == task {
		delete(e.tasks, id)
	}
}

func (e *Enricher) observe(outcome string, started time.Time) {
	if e.Observe != nil {
		e.Observe(outcome, e.now().Sub(started))
	}
}
