// Package fcm provides the multicast gateway over Firebase Cloud Messaging.
package fcm

import (
	"context"
	"fmt"
	"log/slog"

	"firebase.google.com/go/v4/messaging"
	"github.com/tinywideclouds/go-chat-fanout-service/pkg/fanout"
)

// MessagingClient defines the subset of the Firebase Messaging API we use.
// This interface allows us to mock the client for unit testing.
type MessagingClient interface {
	SendEachForMulticast(ctx context.Context, msg *messaging.MulticastMessage) (*messaging.BatchResponse, error)
}

// Gateway implements fanout.MulticastGateway with SendEachForMulticast.
type Gateway struct {
	client MessagingClient
	logger *slog.Logger
}

// NewGateway accepts the concrete client but stores it as the interface.
// Note: *messaging.Client automatically satisfies MessagingClient.
func NewGateway(client MessagingClient, logger *slog.Logger) *Gateway {
	return &Gateway{
		client: client,
		logger: logger.With("component", "FCMGateway"),
	}
}

// SendMulticast delivers one batch and maps the gateway's positional
// responses back onto the batch's tokens. A transport-level failure is
// returned as an error; the dispatcher converts it into failure results for
// the whole batch.
func (g *Gateway) SendMulticast(ctx context.Context, batch fanout.DispatchBatch) ([]fanout.DeliveryResult, error) {
	if len(batch.Tokens) == 0 {
		return nil, nil
	}

	msg := &messaging.MulticastMessage{
		Tokens: batch.Tokens,
		Data:   batch.Payload.Data,
		Notification: &messaging.Notification{
			Title: batch.Payload.Title,
			Body:  batch.Payload.Body,
		},
		Android: &messaging.AndroidConfig{
			Priority: "high",
			Notification: &messaging.AndroidNotification{
				Sound: "default",
			},
		},
		APNS: &messaging.APNSConfig{
			Headers: map[string]string{"apns-priority": "10"},
			Payload: &messaging.APNSPayload{
				Aps: &messaging.Aps{
					ContentAvailable: true,
					Sound:            "default",
				},
			},
		},
	}

	br, err := g.client.SendEachForMulticast(ctx, msg)
	if err != nil {
		return nil, fmt.Errorf("fcm transport failed: %w", err)
	}

	results := make([]fanout.DeliveryResult, len(batch.Tokens))
	for i, token := range batch.Tokens {
		if i >= len(br.Responses) {
			results[i] = fanout.DeliveryResult{Token: token, ErrorReason: "no gateway response for token"}
			continue
		}
		resp := br.Responses[i]
		result := fanout.DeliveryResult{Token: token, Success: resp.Success}
		if !resp.Success {
			if resp.Error != nil {
				result.ErrorReason = resp.Error.Error()
			} else {
				result.ErrorReason = "delivery failed"
			}
		}
		results[i] = result
	}

	if br.FailureCount > 0 {
		g.logger.Debug("Multicast batch had failures",
			"batch", batch.Seq, "success", br.SuccessCount, "failed", br.FailureCount)
	}
	return results, nil
}
