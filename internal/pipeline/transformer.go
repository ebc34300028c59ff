// Package pipeline contains the core message processing components for the
// service.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/illmade-knight/go-dataflow/pkg/messagepipeline"
	"github.com/tinywideclouds/go-chat-fanout-service/pkg/fanout"
)

// NewChatMessageTransformer returns a dataflow Transformer that safely
// unmarshals a raw message-created event into a fanout.ChatMessage.
//
// Two distinct skip paths exist:
//   - Malformed JSON skips WITH an error, so the StreamingService can apply
//     its Nack/DLQ handling to the poison payload.
//   - A structurally valid but incomplete message (no text, no sender id)
//     skips with NO error. These are frequent and expected; the only side
//     effect is a debug log.
func NewChatMessageTransformer(logger *slog.Logger) func(context.Context, *messagepipeline.Message) (*fanout.ChatMessage, bool, error) {
	tLogger := logger.With("component", "ChatMessageTransformer")

	return func(_ context.Context, msg *messagepipeline.Message) (*fanout.ChatMessage, bool, error) {
		var chat fanout.ChatMessage
		if err := json.Unmarshal(msg.Payload, &chat); err != nil {
			return nil, true, fmt.Errorf("failed to unmarshal chat message %s: %w", msg.ID, err)
		}

		if !chat.Valid() {
			tLogger.Debug("Skipping incomplete chat message", "pubsub_msg_id", msg.ID)
			return nil, true, nil
		}

		return &chat, false, nil
	}
}
