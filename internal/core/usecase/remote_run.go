package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/aravindkv/underwriter-review/internal/core/domain"
	"github.com/aravindkv/underwriter-review/internal/core/ports"
)

// RemoteRunCoordinator is the API-side view of runs executed by workers.
// Triggers and cancels travel over the queue; progress is a projection of
// the status events the workers publish. The worker's own single-flight
// guard stays authoritative, this projection only serves fast 409s and
// progress reads.
type RemoteRunCoordinator struct {
	signals ports.RunSignalPublisher
	logger  *slog.Logger

	mu       sync.Mutex
	progress map[string]domain.RunProgress
}

func NewRemoteRunCoordinator(signals ports.RunSignalPublisher, logger *slog.Logger) *RemoteRunCoordinator {
	if logger == nil {
		logger = slog.Default()
	}
	return &RemoteRunCoordinator{
		signals:  signals,
		logger:   logger,
		progress: make(map[string]domain.RunProgress),
	}
}

// WatchEvents starts consuming worker status events. Call once at startup.
func (c *RemoteRunCoordinator) WatchEvents(ctx context.Context, stream ports.StatusEventStream) error {
	return stream.SubscribeStatusChanged(ctx, c.Observe)
}

// Observe folds one status event into the projection.
func (c *RemoteRunCoordinator) Observe(event domain.StatusEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.progress[event.ProposerID] = domain.RunProgress{
		Processed: event.Processed,
		Total:     event.Total,
		Phase:     event.Phase,
		Active:    event.Active,
	}
}

func (c *RemoteRunCoordinator) Launch(ctx context.Context, proposerID string) error {
	if c.Progress(proposerID).Active {
		return domain.WrapError(domain.ErrRunActive, "launch run", fmt.Errorf("proposer %s", proposerID))
	}
	if err := c.signals.PublishRunRequested(ctx, proposerID); err != nil {
		return fmt.Errorf("request run: %w", err)
	}

	// Mark active optimistically so an immediate re-trigger conflicts even
	// before the worker's first event lands.
	c.mu.Lock()
	c.progress[proposerID] = domain.RunProgress{Phase: "Queued", Active: true}
	c.mu.Unlock()
	return nil
}

func (c *RemoteRunCoordinator) Cancel(ctx context.Context, proposerID string) bool {
	active := c.Progress(proposerID).Active
	if err := c.signals.PublishCancelRequested(ctx, proposerID); err != nil {
		c.logger.Warn("publish_cancel_failed", "proposer_id", proposerID, "error", err)
		return false
	}
	return active
}

func (c *RemoteRunCoordinator) Progress(proposerID string) domain.RunProgress {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.progress[proposerID]
}
