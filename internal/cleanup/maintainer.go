// Package cleanup prunes stale device tokens from the registry after
// delivery failures.
package cleanup

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Registry is the subset of the token registry the maintainer touches.
type Registry interface {
	QueryUsersByToken(ctx context.Context, token string) ([]string, error)
	DeleteTokenField(ctx context.Context, userID string) error
}

// Maintainer removes the token field from every registry record holding a
// token that failed delivery. Removals are independent and idempotent, so
// they run concurrently and individual failures are logged, never raised.
type Maintainer struct {
	registry Registry
	timeout  time.Duration
	logger   *slog.Logger
}

func NewMaintainer(registry Registry, timeout time.Duration, logger *slog.Logger) *Maintainer {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Maintainer{
		registry: registry,
		timeout:  timeout,
		logger:   logger.With("component", "TokenMaintainer"),
	}
}

// RemoveStaleTokens fans out one cleanup per failed token. The failed set is
// normally tiny relative to the recipient count, so the fan-out is unbounded.
func (m *Maintainer) RemoveStaleTokens(ctx context.Context, tokens []string) {
	var wg sync.WaitGroup
	for _, token := range tokens {
		wg.Add(1)
		go func(token string) {
			defer wg.Done()
			m.removeToken(ctx, token)
		}(token)
	}
	wg.Wait()
}

func (m *Maintainer) removeToken(ctx context.Context, token string) {
	opCtx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	userIDs, err := m.registry.QueryUsersByToken(opCtx, token)
	if err != nil {
		m.logger.Warn("Failed to look up owners of stale token", "err", err)
		return
	}
	for _, userID := range userIDs {
		if err := m.registry.DeleteTokenField(opCtx, userID); err != nil {
			m.logger.Warn("Failed to delete stale token field", "user_id", userID, "err", err)
		}
	}
}
