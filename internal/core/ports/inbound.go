package ports

import (
	"context"

	"github.com/railsewa/grievance-service/internal/core/domain"
)

// Draft carries the submitter-provided fields of a complaint before a
// record exists. Zero-valued fields are treated as absent on update paths.
type Draft struct {
	Area        domain.Area
	Type        string
	SubType     string
	Description string
	Priority    domain.Priority
	Department  string
	Zone        string
	Details     domain.AreaDetails
}

// MediaFile is one uploaded attachment prior to encoding.
type MediaFile struct {
	Name     string
	MimeType string
	Content  []byte
}

// Patch holds the mutable complaint fields an update may touch. Nil members
// are left unchanged. OwnerEmail is deliberately not patchable.
type Patch struct {
	Title       *string
	Description *string
	Type        *string
	SubType     *string
	Priority    *domain.Priority
	Status      *domain.Status
	AssignedTo  *string
	Department  *string
	Zone        *string
	Details     *domain.AreaDetails
}

// ComplaintLifecycle is the inbound contract for the record lifecycle.
// Failed operations return nil/false after logging; no panics escape.
type ComplaintLifecycle interface {
	Create(ctx context.Context, caller domain.Identity, draft Draft, files []MediaFile) *domain.Complaint
	CreateFromConversation(ctx context.Context, caller domain.Identity, conversationSummary, botResponse string) *domain.Complaint
	CreateFromStructuredInput(ctx context.Context, caller domain.Identity, draft Draft) *domain.Complaint
	Update(ctx context.Context, caller domain.Identity, id string, patch Patch) bool
	Delete(ctx context.Context, caller domain.Identity, id string) bool
	Withdraw(ctx context.Context, caller domain.Identity, id string) bool
	Resubmit(ctx context.Context, caller domain.Identity, id string, patch Patch, newFiles []MediaFile) *domain.Complaint
	GetByID(ctx context.Context, caller domain.Identity, id string) *domain.Complaint
	List(ctx context.Context, caller domain.Identity) []domain.Complaint
	Refresh(ctx context.Context, caller domain.Identity) error
	OverrideStatus(ctx context.Context, caller domain.Identity, id string, status domain.Status) bool
}

// EnrichmentScheduler registers and cancels deferred analysis tasks.
type EnrichmentScheduler interface {
	Schedule(id string)
	Cancel(id string)
}
