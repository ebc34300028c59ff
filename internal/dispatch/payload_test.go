package dispatch_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tinywideclouds/go-chat-fanout-service/internal/dispatch"
	"github.com/tinywideclouds/go-chat-fanout-service/pkg/fanout"
)

func TestBuildPayload(t *testing.T) {
	t.Run("Title uses sender name", func(t *testing.T) {
		msg := fanout.ChatMessage{Text: "hi", User: fanout.ChatUser{UID: "u1", Name: "Ann"}}

		payload := dispatch.BuildPayload(msg, "msg-1")

		assert.Equal(t, "New message from Ann", payload.Title)
	})

	t.Run("Title falls back for empty sender name", func(t *testing.T) {
		msg := fanout.ChatMessage{Text: "hi", User: fanout.ChatUser{UID: "u1", Name: ""}}

		payload := dispatch.BuildPayload(msg, "msg-1")

		assert.Equal(t, "New message from Team Member", payload.Title)
	})

	t.Run("Long body is truncated with ellipsis", func(t *testing.T) {
		text := strings.Repeat("x", 150)
		msg := fanout.ChatMessage{Text: text, User: fanout.ChatUser{UID: "u1", Name: "Ann"}}

		payload := dispatch.BuildPayload(msg, "msg-1")

		assert.Equal(t, text[:100]+"...", payload.Body)
	})

	t.Run("Short body passes through verbatim", func(t *testing.T) {
		text := strings.Repeat("x", 50)
		msg := fanout.ChatMessage{Text: text, User: fanout.ChatUser{UID: "u1", Name: "Ann"}}

		payload := dispatch.BuildPayload(msg, "msg-1")

		assert.Equal(t, text, payload.Body)
	})

	t.Run("Exactly 100 characters gets no ellipsis", func(t *testing.T) {
		text := strings.Repeat("x", 100)
		msg := fanout.ChatMessage{Text: text, User: fanout.ChatUser{UID: "u1", Name: "Ann"}}

		payload := dispatch.BuildPayload(msg, "msg-1")

		assert.Equal(t, text, payload.Body)
	})

	t.Run("Multi-byte text is cut per character", func(t *testing.T) {
		text := strings.Repeat("é", 120)
		msg := fanout.ChatMessage{Text: text, User: fanout.ChatUser{UID: "u1", Name: "Ann"}}

		payload := dispatch.BuildPayload(msg, "msg-1")

		assert.Equal(t, strings.Repeat("é", 100)+"...", payload.Body)
	})

	t.Run("Delivery hints carry type and message reference", func(t *testing.T) {
		msg := fanout.ChatMessage{Text: "hi", User: fanout.ChatUser{UID: "u1", Name: "Ann"}}

		payload := dispatch.BuildPayload(msg, "broker-id-42")

		assert.Equal(t, "chat", payload.Data["type"])
		assert.Equal(t, "broker-id-42", payload.Data["messageId"])
		assert.Equal(t, "OPEN_CHAT", payload.Data["clickAction"])
	})
}
