// Package resolve computes the recipient set for one message.
package resolve

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/tinywideclouds/go-chat-fanout-service/pkg/fanout"
)

// ErrResolution marks a registry read failure during recipient lookup.
// The pipeline halts on it with no dispatch attempted; redelivery is the
// broker's concern, not ours.
var ErrResolution = errors.New("recipient resolution failed")

// Resolver turns a sender id into the ordered token list of everyone else.
type Resolver struct {
	registry fanout.TokenRegistry
	logger   *slog.Logger
}

func NewResolver(registry fanout.TokenRegistry, logger *slog.Logger) *Resolver {
	return &Resolver{
		registry: registry,
		logger:   logger.With("component", "RecipientResolver"),
	}
}

// Resolve returns every registered token except the sender's own, in the
// registry's query order. The exclusion filters by user id, so a sender
// without a token is simply absent from the base query.
func (r *Resolver) Resolve(ctx context.Context, senderID string) ([]string, error) {
	records, err := r.registry.QueryUsersWithToken(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrResolution, err)
	}

	tokens := make([]string, 0, len(records))
	for _, record := range records {
		if record.UserID == senderID {
			continue
		}
		if record.Token == "" {
			continue
		}
		tokens = append(tokens, record.Token)
	}
	r.logger.Debug("Recipients resolved", "sender_id", senderID, "count", len(tokens))
	return tokens, nil
}
