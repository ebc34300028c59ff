package pipeline

import (
	"context"
	"log/slog"

	"github.com/illmade-knight/go-dataflow/pkg/messagepipeline"
	"github.com/tinywideclouds/go-chat-fanout-service/internal/cleanup"
	"github.com/tinywideclouds/go-chat-fanout-service/internal/dispatch"
	"github.com/tinywideclouds/go-chat-fanout-service/internal/resolve"
	"github.com/tinywideclouds/go-chat-fanout-service/pkg/fanout"
)

// NewProcessor creates the per-invocation fan-out logic: resolve the
// recipient set, dispatch it in batches, reconcile the outcomes, and prune
// stale tokens.
//
// Only a recipient resolution failure is returned as an error (the broker's
// redelivery policy is the sole retry mechanism). Everything after
// resolution is captured as data and folded into the delivery report; a
// partially failed fan-out is a normal, successful invocation.
func NewProcessor(
	resolver *resolve.Resolver,
	dispatcher *dispatch.Dispatcher,
	maintainer *cleanup.Maintainer,
	logger *slog.Logger,
) messagepipeline.StreamProcessor[fanout.ChatMessage] {

	return func(ctx context.Context, original messagepipeline.Message, msg *fanout.ChatMessage) error {
		procLogger := logger.With(
			"sender_id", msg.User.UID,
			"pubsub_msg_id", original.ID,
		)

		tokens, err := resolver.Resolve(ctx, msg.User.UID)
		if err != nil {
			procLogger.Error("Recipient resolution failed", "err", err)
			return err // Retryable
		}
		if len(tokens) == 0 {
			procLogger.Info("No registered recipients; dropping notification.",
				"outcome", fanout.OutcomeNoRecipients)
			return nil
		}

		payload := dispatch.BuildPayload(*msg, original.ID)
		results := dispatcher.Dispatch(ctx, tokens, payload)
		report := dispatch.Reconcile(results)

		if failed := dispatch.FailedTokens(results); len(failed) > 0 {
			procLogger.Info("Cleaning up stale device tokens", "count", len(failed))
			maintainer.RemoveStaleTokens(ctx, failed)
		}

		procLogger.Info("Fan-out complete",
			"outcome", report.Outcome,
			"recipients", len(tokens),
			"delivered", report.Delivered,
			"failed", report.Failed,
		)
		return nil
	}
}
