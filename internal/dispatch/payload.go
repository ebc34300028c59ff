// Package dispatch partitions a recipient set into multicast batches,
// delivers them through the gateway, and reconciles the per-token outcomes.
package dispatch

import (
	"github.com/tinywideclouds/go-chat-fanout-service/pkg/fanout"
)

const (
	titlePrefix    = "New message from "
	fallbackSender = "Team Member"
	maxBodyChars   = 100
	clickAction    = "OPEN_CHAT"
)

// BuildPayload constructs the notification content shared by every batch of
// one invocation. messageID is the broker id of the triggering event; the
// client uses it to de-duplicate taps.
func BuildPayload(msg fanout.ChatMessage, messageID string) fanout.NotificationPayload {
	sender := msg.User.Name
	if sender == "" {
		sender = fallbackSender
	}
	return fanout.NotificationPayload{
		Title: titlePrefix + sender,
		Body:  truncate(msg.Text, maxBodyChars),
		Data: map[string]string{
			"type":        "chat",
			"messageId":   messageID,
			"clickAction": clickAction,
		},
	}
}

// truncate limits s to max characters, appending an ellipsis when cut.
// Counting is per rune so multi-byte text never yields a torn character.
func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "..."
}
