package redis_test

import (
	"context"
	"encoding/hex"
	"testing"
	"time"

	"payment-api-gateway/internal/adapter/storage/cardcrypt"
	"payment-api-gateway/internal/adapter/storage/redis"
	"payment-api-gateway/internal/core/domain"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newVault(t *testing.T) (*redis.TokenVault, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	sealer, err := cardcrypt.NewSealer(hex.EncodeToString(make([]byte, 32)))
	require.NoError(t, err)
	return redis.NewTokenVault(client, sealer), mr
}

func testCard() *domain.Card {
	return &domain.Card{Number: "4242424242424242", ExpMonth: 12, ExpYear: 2030, CVC: "123"}
}

func TestTokenVault_RoundTrip(t *testing.T) {
	vault, _ := newVault(t)
	ctx := context.Background()
	merchantID := uuid.New()

	require.NoError(t, vault.Put(ctx, merchantID, "tok_abc", testCard(), 15*time.Minute))

	got, err := vault.Get(ctx, merchantID, "tok_abc")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "4242424242424242", got.Number)
	assert.Equal(t, "123", got.CVC)
}

func TestTokenVault_StoresCiphertextOnly(t *testing.T) {
	vault, mr := newVault(t)
	ctx := context.Background()
	merchantID := uuid.New()

	require.NoError(t, vault.Put(ctx, merchantID, "tok_abc", testCard(), 15*time.Minute))

	keys := mr.Keys()
	require.Len(t, keys, 1)
	raw, err := mr.Get(keys[0])
	require.NoError(t, err)
	assert.NotContains(t, raw, "4242424242424242")
	assert.NotContains(t, raw, "123")
}

func TestTokenVault_ScopedToMerchant(t *testing.T) {
	vault, _ := newVault(t)
	ctx := context.Background()

	require.NoError(t, vault.Put(ctx, uuid.New(), "tok_abc", testCard(), 15*time.Minute))

	got, err := vault.Get(ctx, uuid.New(), "tok_abc")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestTokenVault_ExpiresWithTTL(t *testing.T) {
	vault, mr := newVault(t)
	ctx := context.Background()
	merchantID := uuid.New()

	require.NoError(t, vault.Put(ctx, merchantID, "tok_abc", testCard(), time.Minute))

	mr.FastForward(2 * time.Minute)

	got, err := vault.Get(ctx, merchantID, "tok_abc")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestTokenVault_DeleteConsumes(t *testing.T) {
	vault, _ := newVault(t)
	ctx := context.Background()
	merchantID := uuid.New()

	require.NoError(t, vault.Put(ctx, merchantID, "tok_abc", testCard(), 15*time.Minute))
	require.NoError(t, vault.Delete(ctx, merchantID, "tok_abc"))

	got, err := vault.Get(ctx, merchantID, "tok_abc")
	require.NoError(t, err)
	assert.Nil(t, got)
}
