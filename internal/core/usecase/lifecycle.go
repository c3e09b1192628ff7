package usecase

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/railsewa/grievance-service/internal/core/domain"
	"github.com/railsewa/grievance-service/internal/core/ports"
	"github.com/railsewa/grievance-service/internal/crn"
)

// Lifecycle owns the complaint record lifecycle: creation, mutation,
// withdrawal, resubmission and the role-scoped view of the store. Every
// failure is caught here, logged, and converted into a nil/false result.
type Lifecycle struct {
	store       ports.SnapshotStore
	extractor   ports.Extractor
	enricher    ports.EnrichmentScheduler
	broadcaster ports.ChangeBroadcaster
	logger      *slog.Logger

	mu     sync.Mutex
	cache  []domain.Complaint
	loaded bool

	now func() time.Time
}

func NewLifecycle(
	store ports.SnapshotStore,
	extractor ports.Extractor,
	enricher ports.EnrichmentScheduler,
	broadcaster ports.ChangeBroadcaster,
	logger *slog.Logger,
) *Lifecycle {
	if logger == nil {
		logger = slog.Default()
	}
	return &Lifecycle{
		store:       store,
		extractor:   extractor,
		enricher:    enricher,
		broadcaster: broadcaster,
		logger:      logger,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

func (l *Lifecycle) Create(ctx context.Context, caller domain.Identity, draft ports.Draft, files []ports.MediaFile) *domain.Complaint {
	if caller.IsAdmin() {
		l.logger.Warn("create rejected: administrative callers cannot author complaints", "caller", caller.Email)
		return nil
	}
	c := l.assemble(caller, draft, domain.SourceForm)
	c.Media = encodeFiles(files)
	if !l.persistNew(ctx, c) {
		return nil
	}
	l.enricher.Schedule(c.ID)
	out := c.Clone()
	return &out
}

func (l *Lifecycle) CreateFromConversation(ctx context.Context, caller domain.Identity, conversationSummary, botResponse string) *domain.Complaint {
	if caller.IsAdmin() || !caller.IsAuthenticated() {
		l.logger.Warn("chat create rejected: requires an authenticated non-administrative caller", "caller", caller.Email)
		return nil
	}
	draft, err := l.extractor.Extract(ctx, conversationSummary, botResponse)
	if err != nil {
		l.logger.Error("chat extraction failed", "error", err)
		return nil
	}
	if draft == nil || draft.Description == "" || draft.Area == "" {
		l.logger.Info("chat extraction yielded no usable fields, nothing created")
		return nil
	}
	c := l.assemble(caller, *draft, domain.SourceChatbot)
	if !l.persistNew(ctx, c) {
		return nil
	}
	l.enricher.Schedule(c.ID)
	out := c.Clone()
	return &out
}

func (l *Lifecycle) CreateFromStructuredInput(ctx context.Context, caller domain.Identity, draft ports.Draft) *domain.Complaint {
	if caller.IsAdmin() {
		l.logger.Warn("structured create rejected: administrative callers cannot author complaints", "caller", caller.Email)
		return nil
	}
	c := l.assemble(caller, draft, domain.SourceChatbot)
	if !l.persistNew(ctx, c) {
		return nil
	}
	l.enricher.Schedule(c.ID)
	out := c.Clone()
	return &out
}

func (l *Lifecycle) Update(ctx context.Context, caller domain.Identity, id string, patch ports.Patch) bool {
	return l.mutate(ctx, caller, id, "update", func(c *domain.Complaint) {
		applyPatch(c, patch)
	})
}

func (l *Lifecycle) Delete(ctx context.Context, caller domain.Identity, id string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.ensureLoadedLocked(ctx); err != nil {
		l.logger.Error("delete: load snapshot", "id", id, "error", err)
		return false
	}
	if l.findVisibleLocked(caller, id) < 0 {
		return false
	}
	if err := l.store.MergeWrite(ctx, nil, []string{id}); err != nil {
		l.logger.Error("delete: merge write", "id", id, "error", err)
		return false
	}
	l.enricher.Cancel(id)
	l.removeFromCacheLocked(id)
	l.announce(ctx)
	return true
}

// Withdraw flips the record to WITHDRAWN regardless of its current status.
// The guard named by the nominal state machine is intentionally not
// enforced, matching the reference behavior.
func (l *Lifecycle) Withdraw(ctx context.Context, caller domain.Identity, id string) bool {
	return l.mutate(ctx, caller, id, "withdraw", func(c *domain.Complaint) {
		c.Status = domain.StatusWithdrawn
	})
}

func (l *Lifecycle) Resubmit(ctx context.Context, caller domain.Identity, id string, patch ports.Patch, newFiles []ports.MediaFile) *domain.Complaint {
	var resubmitted *domain.Complaint
	ok := l.mutate(ctx, caller, id, "resubmit", func(c *domain.Complaint) {
		c.Media = append(c.Media, encodeFiles(newFiles)...)
		applyPatch(c, patch)
		c.Status = domain.StatusRegistered
		c.Analysis = nil
		cp := c.Clone()
		resubmitted = &cp
	})
	if !ok {
		return nil
	}
	l.enricher.Schedule(id)
	return resubmitted
}

func (l *Lifecycle) GetByID(ctx context.Context, caller domain.Identity, id string) *domain.Complaint {
	for _, c := range l.List(ctx, caller) {
		if c.ID == id {
			return &c
		}
	}
	return nil
}

func (l *Lifecycle) List(ctx context.Context, caller domain.Identity) []domain.Complaint {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.ensureLoadedLocked(ctx); err != nil {
		l.logger.Error("list: load snapshot", "error", err)
		return nil
	}
	return FilterForCaller(l.cache, caller)
}

// Refresh discards the cached snapshot and reloads it from the store. The
// caller's view is recomputed on the next read.
func (l *Lifecycle) Refresh(ctx context.Context, _ domain.Identity) error {
	return l.Reload(ctx)
}

// Reload is Refresh without a caller; the change notifier uses it when an
// external write invalidates the current view wholesale.
func (l *Lifecycle) Reload(ctx context.Context) error {
	all, err := l.store.LoadAll(ctx)
	if err != nil {
		l.logger.Error("reload snapshot", "error", err)
		return fmt.Errorf("reload snapshot: %w", err)
	}
	l.mu.Lock()
	l.cache = all
	l.loaded = true
	l.mu.Unlock()
	return nil
}

// OverrideStatus is the administrative escape hatch: it sets any status
// unconditionally, bypassing the guarded state machine.
func (l *Lifecycle) OverrideStatus(ctx context.Context, caller domain.Identity, id string, status domain.Status) bool {
	if !caller.IsAdmin() {
		l.logger.Warn("status override rejected: administrative callers only", "caller", caller.Email)
		return false
	}
	return l.mutate(ctx, caller, id, "override status", func(c *domain.Complaint) {
		c.Status = status
	})
}

// mutate applies fn to the record with the given id inside the caller's
// filtered view, refreshes UpdatedAt and persists via merge-write.
func (l *Lifecycle) mutate(ctx context.Context, caller domain.Identity, id, op string, fn func(*domain.Complaint)) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.ensureLoadedLocked(ctx); err != nil {
		l.logger.Error(op+": load snapshot", "id", id, "error", err)
		return false
	}
	idx := l.findVisibleLocked(caller, id)
	if idx < 0 {
		return false
	}
	updated := l.cache[idx].Clone()
	fn(&updated)
	updated.UpdatedAt = l.now()
	if updated.UpdatedAt.Before(updated.CreatedAt) {
		updated.UpdatedAt = updated.CreatedAt
	}
	if err := l.store.MergeWrite(ctx, []domain.Complaint{updated}, nil); err != nil {
		l.logger.Error(op+": merge write", "id", id, "error", err)
		return false
	}
	l.cache[idx] = updated
	l.announce(ctx)
	return true
}

func (l *Lifecycle) assemble(caller domain.Identity, draft ports.Draft, source domain.Source) domain.Complaint {
	now := l.now()
	priority := draft.Priority
	if priority == "" {
		priority = domain.PriorityMedium
	}
	return domain.Complaint{
		ID:          crn.New(draft.Area),
		Title:       domain.BuildTitle(draft.Type, draft.SubType),
		Description: draft.Description,
		Status:      domain.StatusRegistered,
		Area:        draft.Area,
		Type:        draft.Type,
		SubType:     draft.SubType,
		OwnerEmail:  caller.OwnerEmail(),
		Source:      source,
		Priority:    priority,
		CreatedAt:   now,
		UpdatedAt:   now,
		Department:  draft.Department,
		Zone:        draft.Zone,
		Details:     draft.Details,
	}
}

func (l *Lifecycle) persistNew(ctx context.Context, c domain.Complaint) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.ensureLoadedLocked(ctx); err != nil {
		l.logger.Error("create: load snapshot", "error", err)
		return false
	}
	if err := l.store.MergeWrite(ctx, []domain.Complaint{c}, nil); err != nil {
		l.logger.Error("create: merge write", "id", c.ID, "error", err)
		return false
	}
	l.cache = append(l.cache, c)
	l.announce(ctx)
	return true
}

// ApplyEnriched folds the record an enrichment task just wrote back into
// the cached snapshot, then announces the write to sibling processes.
func (l *Lifecycle) ApplyEnriched(ctx context.Context, enriched domain.Complaint) {
	l.mu.Lock()
	for i := range l.cache {
		if l.cache[i].ID == enriched.ID {
			l.cache[i] = enriched
			break
		}
	}
	l.mu.Unlock()
	l.announce(ctx)
}

func (l *Lifecycle) ensureLoadedLocked(ctx context.Context) error {
	if l.loaded {
		return nil
	}
	all, err := l.store.LoadAll(ctx)
	if err != nil {
		return err
	}
	l.cache = all
	l.loaded = true
	return nil
}

// findVisibleLocked returns the cache index of id, or -1 when the record is
// absent or outside the caller's view.
func (l *Lifecycle) findVisibleLocked(caller domain.Identity, id string) int {
	for i, c := range l.cache {
		if c.ID != id {
			continue
		}
		if !caller.IsAdmin() && c.OwnerEmail != caller.OwnerEmail() {
			return -1
		}
		return i
	}
	return -1
}

func (l *Lifecycle) removeFromCacheLocked(id string) {
	for i, c := range l.cache {
		if c.ID == id {
			l.cache = append(l.cache[:i], l.cache[i+1:]...)
			return
		}
	}
}

func (l *Lifecycle) announce(ctx context.Context) {
	if l.broadcaster == nil {
		return
	}
	if err := l.broadcaster.Announce(ctx); err != nil {
		l.logger.Warn("announce change", "error", err)
	}
}

func applyPatch(c *domain.Complaint, patch ports.Patch) {
	if patch.Title != nil {
		c.Title = *patch.Title
	}
	if patch.Description != nil {
		c.Description = *patch.Description
	}
	if patch.Type != nil {
		c.Type = *patch.Type
	}
	if patch.SubType != nil {
		c.SubType = *patch.SubType
	}
	if patch.Priority != nil {
		c.Priority = *patch.Priority
	}
	if patch.Status != nil {
		c.Status = *patch.Status
	}
	if patch.AssignedTo != nil {
		c.AssignedTo = *patch.AssignedTo
	}
	if patch.Department != nil {
		c.Department = *patch.Department
	}
	if patch.Zone != nil {
		c.Zone = *patch.Zone
	}
	if patch.Details != nil {
		c.Details = *patch.Details
	}
}

func encodeFiles(files []ports.MediaFile) []domain.Media {
	out := make([]domain.Media, 0, len(files))
	for _, f := range files {
		if len(f.Content) == 0 {
			continue
		}
		out = append(out, domain.Media{
			ID:       uuid.NewString(),
			Name:     f.Name,
			Type:     domain.MediaTypeFromMime(f.MimeType),
			MimeType: f.MimeType,
			Content:  base64.StdEncoding.EncodeToString(f.Content),
		})
	}
	return out
}
