package cache_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/tinywideclouds/go-chat-fanout-service/internal/storage/cache"
	"github.com/tinywideclouds/go-chat-fanout-service/pkg/fanout"
)

type MockCache struct {
	mock.Mock
}

func (m *MockCache) Get(ctx context.Context, key string, dest interface{}) error {
	return m.Called(ctx, key, dest).Error(0)
}

func (m *MockCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	return m.Called(ctx, key, value, ttl).Error(0)
}

func (m *MockCache) Del(ctx context.Context, key string) error {
	return m.Called(ctx, key).Error(0)
}

type MockRegistry struct {
	mock.Mock
}

func (m *MockRegistry) QueryUsersWithToken(ctx context.Context) ([]fanout.DeviceTokenRecord, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]fanout.DeviceTokenRecord), args.Error(1)
}

func (m *MockRegistry) QueryUsersByToken(ctx context.Context, token string) ([]string, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockRegistry) DeleteTokenField(ctx context.Context, userID string) error {
	return m.Called(ctx, userID).Error(0)
}

func (m *MockRegistry) RegisterToken(ctx context.Context, userID, token string) error {
	return m.Called(ctx, userID, token).Error(0)
}

func (m *MockRegistry) UnregisterToken(ctx context.Context, userID string) error {
	return m.Called(ctx, userID).Error(0)
}

func TestCachedTokenRegistry(t *testing.T) {
	ctx := context.Background()
	ttl := 5 * time.Minute
	records := []fanout.DeviceTokenRecord{
		{UserID: "user-a", Token: "token-a"},
		{UserID: "user-b", Token: "token-b"},
	}

	t.Run("Cache Hit - Registry Untouched", func(t *testing.T) {
		mockCache := new(MockCache)
		mockRegistry := new(MockRegistry)
		registry := cache.NewCachedTokenRegistry(mockRegistry, mockCache, ttl)

		mockCache.On("Get", ctx, mock.Anything, mock.Anything).
			Run(func(args mock.Arguments) {
				dest := args.Get(2).(*[]fanout.DeviceTokenRecord)
				*dest = records
			}).
			Return(nil)

		got, err := registry.QueryUsersWithToken(ctx)

		require.NoError(t, err)
		assert.Equal(t, records, got)
		mockRegistry.AssertNotCalled(t, "QueryUsersWithToken")
	})

	t.Run("Cache Miss - Registry Queried And Snapshot Stored", func(t *testing.T) {
		mockCache := new(MockCache)
		mockRegistry := new(MockRegistry)
		registry := cache.NewCachedTokenRegistry(mockRegistry, mockCache, ttl)

		mockCache.On("Get", ctx, mock.Anything, mock.Anything).Return(errors.New("cache miss"))
		mockRegistry.On("QueryUsersWithToken", ctx).Return(records, nil)
		mockCache.On("Set", ctx, mock.Anything, records, ttl).Return(nil)

		got, err := registry.QueryUsersWithToken(ctx)

		require.NoError(t, err)
		assert.Equal(t, records, got)
		mockCache.AssertExpectations(t)
		mockRegistry.AssertExpectations(t)
	})

	t.Run("Cache Miss - Set Failure Is Not Fatal", func(t *testing.T) {
		mockCache := new(MockCache)
		mockRegistry := new(MockRegistry)
		registry := cache.NewCachedTokenRegistry(mockRegistry, mockCache, ttl)

		mockCache.On("Get", ctx, mock.Anything, mock.Anything).Return(errors.New("cache miss"))
		mockRegistry.On("QueryUsersWithToken", ctx).Return(records, nil)
		mockCache.On("Set", ctx, mock.Anything, mock.Anything, ttl).Return(errors.New("redis down"))

		got, err := registry.QueryUsersWithToken(ctx)

		require.NoError(t, err)
		assert.Equal(t, records, got)
	})

	t.Run("Reverse Lookup Bypasses The Cache", func(t *testing.T) {
		mockCache := new(MockCache)
		mockRegistry := new(MockRegistry)
		registry := cache.NewCachedTokenRegistry(mockRegistry, mockCache, ttl)

		mockRegistry.On("QueryUsersByToken", ctx, "token-a").Return([]string{"user-a"}, nil)

		owners, err := registry.QueryUsersByToken(ctx, "token-a")

		require.NoError(t, err)
		assert.Equal(t, []string{"user-a"}, owners)
		mockCache.AssertNotCalled(t, "Get")
	})

	t.Run("Writes Invalidate The Snapshot", func(t *testing.T) {
		mockCache := new(MockCache)
		mockRegistry := new(MockRegistry)
		registry := cache.NewCachedTokenRegistry(mockRegistry, mockCache, ttl)

		mockRegistry.On("RegisterToken", ctx, "user-a", "token-new").Return(nil)
		mockRegistry.On("DeleteTokenField", ctx, "user-b").Return(nil)
		mockRegistry.On("UnregisterToken", ctx, "user-a").Return(nil)
		mockCache.On("Del", ctx, mock.Anything).Return(nil).Times(3)

		require.NoError(t, registry.RegisterToken(ctx, "user-a", "token-new"))
		require.NoError(t, registry.DeleteTokenField(ctx, "user-b"))
		require.NoError(t, registry.UnregisterToken(ctx, "user-a"))

		mockCache.AssertExpectations(t)
	})

	t.Run("Write Failure Skips Invalidation", func(t *testing.T) {
		mockCache := new(MockCache)
		mockRegistry := new(MockRegistry)
		registry := cache.NewCachedTokenRegistry(mockRegistry, mockCache, ttl)

		mockRegistry.On("RegisterToken", ctx, "user-a", "token-new").Return(errors.New("firestore unavailable"))

		err := registry.RegisterToken(ctx, "user-a", "token-new")

		require.Error(t, err)
		mockCache.AssertNotCalled(t, "Del")
	})
}
