// Package firestore implements the token registry on Google Cloud Firestore.
package firestore

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/tinywideclouds/go-chat-fanout-service/pkg/fanout"
)

const (
	usersCollection = "users"
	tokenField      = "fcmToken"
	updatedAtField  = "tokenUpdatedAt"
)

// TokenRegistry implements fanout.TokenRegistry over a per-user document in
// the users collection, holding at most one current token per user.
type TokenRegistry struct {
	client *firestore.Client
}

func NewTokenRegistry(client *firestore.Client) *TokenRegistry {
	return &TokenRegistry{client: client}
}

// userRecord is the internal DB representation of the fields we touch.
type userRecord struct {
	Token string `firestore:"fcmToken,omitempty"`
}

// QueryUsersWithToken returns every user record with a non-empty token
// field, in the query's document order.
func (r *TokenRegistry) QueryUsersWithToken(ctx context.Context) ([]fanout.DeviceTokenRecord, error) {
	iter := r.users().Where(tokenField, "!=", "").Documents(ctx)
	defer iter.Stop()

	records := make([]fanout.DeviceTokenRecord, 0)
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("firestore iteration failed: %w", err)
		}

		var record userRecord
		if err := doc.DataTo(&record); err != nil {
			// Skip corrupt rows rather than failing the whole broadcast.
			continue
		}
		if record.Token == "" {
			continue
		}
		records = append(records, fanout.DeviceTokenRecord{UserID: doc.Ref.ID, Token: record.Token})
	}
	return records, nil
}

// QueryUsersByToken returns the ids of every user whose token field equals
// the given value.
func (r *TokenRegistry) QueryUsersByToken(ctx context.Context, token string) ([]string, error) {
	iter := r.users().Where(tokenField, "==", token).Documents(ctx)
	defer iter.Stop()

	var userIDs []string
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("firestore iteration failed: %w", err)
		}
		userIDs = append(userIDs, doc.Ref.ID)
	}
	return userIDs, nil
}

// DeleteTokenField removes the token field from the user's record. Deleting
// an absent field, or a missing record entirely, is a no-op.
func (r *TokenRegistry) DeleteTokenField(ctx context.Context, userID string) error {
	_, err := r.users().Doc(userID).Update(ctx, []firestore.Update{
		{Path: tokenField, Value: firestore.Delete},
	})
	if status.Code(err) == codes.NotFound {
		return nil
	}
	return err
}

// RegisterToken upserts the user's current device token.
func (r *TokenRegistry) RegisterToken(ctx context.Context, userID, token string) error {
	_, err := r.users().Doc(userID).Set(ctx, map[string]interface{}{
		tokenField:     token,
		updatedAtField: firestore.ServerTimestamp,
	}, firestore.MergeAll)
	return err
}

// UnregisterToken removes the user's device token. Idempotent.
func (r *TokenRegistry) UnregisterToken(ctx context.Context, userID string) error {
	return r.DeleteTokenField(ctx, userID)
}

func (r *TokenRegistry) users() *firestore.CollectionRef {
	return r.client.Collection(usersCollection)
}
