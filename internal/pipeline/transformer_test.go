package pipeline_test

import (
	"context"
	"testing"
	"time"

	"github.com/illmade-knight/go-dataflow/pkg/messagepipeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tinywideclouds/go-chat-fanout-service/internal/pipeline"
)

func TestChatMessageTransformer(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)

	transformer := pipeline.NewChatMessageTransformer(newTestLogger())

	testCases := []struct {
		name        string
		payload     string
		expectSkip  bool
		expectError bool
	}{
		{
			name:    "Happy Path - Complete Message",
			payload: `{"text":"hello team","user":{"uid":"user-1","name":"Ann"},"createdAt":"2024-05-01T10:00:00Z"}`,
		},
		{
			name:        "Failure - Malformed JSON",
			payload:     `{"this is not valid json"`,
			expectSkip:  true,
			expectError: true,
		},
		{
			name:       "Skip - Missing Text",
			payload:    `{"user":{"uid":"user-1","name":"Ann"}}`,
			expectSkip: true,
		},
		{
			name:       "Skip - Missing User",
			payload:    `{"text":"hello team"}`,
			expectSkip: true,
		},
		{
			name:       "Skip - Empty Sender UID",
			payload:    `{"text":"hello team","user":{"uid":"","name":"Ann"}}`,
			expectSkip: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			msg := &messagepipeline.Message{
				MessageData: messagepipeline.MessageData{ID: "msg-1", Payload: []byte(tc.payload)},
			}

			chat, skip, err := transformer(ctx, msg)

			if tc.expectError {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tc.expectSkip, skip)

			if !tc.expectSkip {
				require.NotNil(t, chat)
				assert.Equal(t, "hello team", chat.Text)
				assert.Equal(t, "user-1", chat.User.UID)
			} else {
				assert.Nil(t, chat)
			}
		})
	}
}
