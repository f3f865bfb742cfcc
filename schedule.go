package crmsync

import (
	"context"
	"time"

	"github.com/agentstation/crmsync/pkg/errors"
	"github.com/agentstation/crmsync/pkg/logging"
	"github.com/agentstation/crmsync/pkg/sync"
)

// Run executes a pass immediately and then once every interval until ctx is
// done. A failed pass is logged and the next one runs on schedule; passes
// never overlap. Run returns nil when ctx is done and an error only for
// options that can never produce a valid pass.
func (s *syncer) Run(ctx context.Context, every time.Duration, opts ...sync.Option) error {
	if every <= 0 {
		return &errors.ValidationError{
			Field:   "every",
			Value:   every,
			Message: "pass interval must be positive",
		}
	}
	if err := sync.Defaults().Apply(opts...).Validate(); err != nil {
		return err
	}
	if ctx == nil {
		ctx = context.Background()
	}

	ticker := s.options.clock.NewTicker(every)
	defer ticker.Stop()

	logging.FromContext(ctx).Info().
		Dur("every", every).
		Msg("Scheduled passes started")

	for {
		if _, err := s.Sync(ctx, opts...); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			logging.FromContext(ctx).Error().Err(err).Msg("Scheduled pass failed")
		}

		select {
		case <-ctx.Done():
			logging.FromContext(ctx).Info().Msg("Scheduled passes stopped")
			return nil
		case <-ticker.Chan():
		}
	}
}
