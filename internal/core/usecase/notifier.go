package usecase

import (
	"context"
	"log/slog"

	"github.com/railsewa/grievance-service/internal/core/ports"
)

// ChangeNotifier converges external-write signals onto a forced reload of
// the cached snapshot: the store backend's own change detection and, when
// configured, the cross-process broadcast channel.
type ChangeNotifier struct {
	store       ports.SnapshotStore
	broadcaster ports.ChangeBroadcaster
	reload      func(ctx context.Context) error
	logger      *slog.Logger
}

func NewChangeNotifier(store ports.SnapshotStore, broadcaster ports.ChangeBroadcaster, reload func(ctx context.Context) error, logger *slog.Logger) *ChangeNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &ChangeNotifier{
		store:       store,
		broadcaster: broadcaster,
		reload:      reload,
		logger:      logger,
	}
}

// Run blocks until ctx is done. Signals invalidate the view wholesale;
// there is no record-level merge of remote changes.
func (n *ChangeNotifier) Run(ctx context.Context) error {
	onChange := func() {
		if err := n.reload(ctx); err != nil {
			n.logger.Error("reload after external change", "error", err)
		}
	}

	errCh := make(chan error, 2)
	go func() {
		errCh <- n.store.Subscribe(ctx, onChange)
	}()
	if n.broadcaster != nil {
		go func() {
			errCh <- n.broadcaster.Listen(ctx, onChange)
		}()
	}

	<-ctx.Done()
	return <-errCh
}
