package fanout

import "context"

// TokenRegistry defines the contract for the per-user device token store.
// The pipeline only ever reads tokens and deletes stale ones; registration
// happens through the token API.
type TokenRegistry interface {
	// QueryUsersWithToken returns every record holding a non-empty token.
	// Order must be stable within one call.
	QueryUsersWithToken(ctx context.Context) ([]DeviceTokenRecord, error)

	// QueryUsersByToken returns the ids of the users whose token field equals
	// the given value. Zero matches is not an error.
	QueryUsersByToken(ctx context.Context, token string) ([]string, error)

	// DeleteTokenField removes the token field from a user's record.
	// It is idempotent: deleting an absent field or record is a no-op.
	DeleteTokenField(ctx context.Context, userID string) error

	// RegisterToken adds or replaces the user's device token (upsert).
	RegisterToken(ctx context.Context, userID, token string) error

	// UnregisterToken removes the user's device token. Idempotent.
	UnregisterToken(ctx context.Context, userID string) error
}

// MulticastGateway defines the contract for a component that delivers one
// batch to many device tokens in a single request.
type MulticastGateway interface {
	// SendMulticast delivers the batch. On a nil error the returned slice
	// holds exactly one result per token, positionally aligned with
	// batch.Tokens. A non-nil error means the whole batch failed.
	SendMulticast(ctx context.Context, batch DispatchBatch) ([]DeliveryResult, error)
}
