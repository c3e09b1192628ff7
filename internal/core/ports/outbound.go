package ports

import (
	"context"

	"github.com/railsewa/grievance-service/internal/core/domain"
)

// SnapshotStore persists the full complaint collection as one blob.
// There are no secondary indices; every write rewrites the whole blob.
type SnapshotStore interface {
	// LoadAll reads the current persisted snapshot.
	LoadAll(ctx context.Context) ([]domain.Complaint, error)
	// SaveAll replaces the persisted snapshot wholesale.
	SaveAll(ctx context.Context, all []domain.Complaint) error
	// MergeWrite re-reads the current snapshot, replaces every record whose
	// ID matches a changed record (inserting new ones), removes deletedIDs,
	// and writes the result back. Last-writer-wins at the record level.
	MergeWrite(ctx context.Context, changed []domain.Complaint, deletedIDs []string) error
	// Subscribe blocks until ctx is done, invoking onExternalChange for
	// every write the store detects that this handle did not perform.
	Subscribe(ctx context.Context, onExternalChange func()) error
}

// Analyzer is the external Analysis Service: AI triage of one complaint.
type Analyzer interface {
	Analyze(ctx context.Context, c domain.Complaint) (domain.Analysis, error)
}

// Extractor turns free-form chat context into structured complaint fields.
// A conversation with nothing usable yields (nil, nil).
type Extractor interface {
	Extract(ctx context.Context, conversationSummary, botResponse string) (*Draft, error)
}

// ChangeBroadcaster propagates "the blob changed" signals between sibling
// writers (other processes or instances).
type ChangeBroadcaster interface {
	// Announce tells siblings this process just wrote the blob. Best-effort.
	Announce(ctx context.Context) error
	// Listen blocks until ctx is done, invoking onRemoteChange for every
	// announcement that did not originate from this process.
	Listen(ctx context.Context, onRemoteChange func()) error
}
