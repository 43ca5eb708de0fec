package postgres

import (
	"context"
	"encoding/hex"
	"strings"
	"testing"
	"time"

	"payment-api-gateway/internal/adapter/storage/cardcrypt"
	"payment-api-gateway/internal/core/domain"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

func TestRateLimitStore_FirstHitPrunesStaleWindows(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	// 45s into a one-minute window.
	at := time.Date(2025, 6, 1, 12, 30, 45, 0, time.UTC)
	windowStart := at.Unix() / 60 * 60
	store := NewRateLimitStore(mock, fixedClock{t: at}, zerolog.Nop())

	mock.ExpectQuery("INSERT INTO rate_limit_counters").
		WithArgs("rl:merchant-1", windowStart).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(1)))
	mock.ExpectExec("DELETE FROM rate_limit_counters").
		WithArgs("rl:merchant-1", windowStart).
		WillReturnResult(pgxmock.NewResult("DELETE", 2))

	count, reset, err := store.Incr(context.Background(), "rl:merchant-1", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
	assert.Equal(t, 15*time.Second, reset)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRateLimitStore_SubsequentHitSkipsPrune(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	at := time.Date(2025, 6, 1, 12, 30, 45, 0, time.UTC)
	store := NewRateLimitStore(mock, fixedClock{t: at}, zerolog.Nop())

	mock.ExpectQuery("INSERT INTO rate_limit_counters").
		WithArgs("rl:merchant-1", at.Unix()/60*60).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(42)))

	count, _, err := store.Incr(context.Background(), "rl:merchant-1", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(42), count)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func newTestRecord() *domain.IdempotencyRecord {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &domain.IdempotencyRecord{
		Key:         "idem-key-1",
		MerchantID:  uuid.New(),
		Endpoint:    "POST /v1/payment_intents",
		RequestHash: "deadbeef",
		CreatedAt:   now,
	}
}

func TestIdempotencyStore_PutInFlight_Claimed(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store := NewIdempotencyStore(mock)
	record := newTestRecord()
	scope := domain.IdempotencyScope(record.MerchantID, record.Endpoint, record.Key)

	mock.ExpectExec("INSERT INTO idempotency_records").
		WithArgs(scope,
			record.Key, record.MerchantID, record.Endpoint, record.RequestHash,
			0, []byte(nil), []byte(nil), record.CreatedAt, record.CreatedAt.Add(24*time.Hour),
		).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	ok, err := store.PutInFlight(context.Background(), record, 24*time.Hour)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, record.CreatedAt.Add(24*time.Hour), record.ExpiresAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIdempotencyStore_PutInFlight_AlreadyHeld(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store := NewIdempotencyStore(mock)
	record := newTestRecord()

	mock.ExpectExec("INSERT INTO idempotency_records").
		WithArgs(anyArgs(10)...).
		WillReturnResult(pgxmock.NewResult("INSERT", 0))

	ok, err := store.PutInFlight(context.Background(), record, 24*time.Hour)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIdempotencyStore_Get(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store := NewIdempotencyStore(mock)
	record := newTestRecord()
	record.StatusCode = 201
	record.Response = []byte(`{"id":"pi_1"}`)
	record.ExpiresAt = record.CreatedAt.Add(24 * time.Hour)
	scope := domain.IdempotencyScope(record.MerchantID, record.Endpoint, record.Key)
	headers := []byte(`{"Location":"/api/v1/payment_intents/pi_1"}`)

	mock.ExpectQuery("SELECT .+ FROM idempotency_records WHERE scope").
		WithArgs(scope).
		WillReturnRows(pgxmock.NewRows([]string{"key", "merchant_id", "endpoint", "request_hash", "status_code", "response", "headers", "created_at", "expires_at"}).
			AddRow(record.Key, record.MerchantID, record.Endpoint, record.RequestHash,
				record.StatusCode, record.Response, headers, record.CreatedAt, record.ExpiresAt))

	got, err := store.Get(context.Background(), scope)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 201, got.StatusCode)
	assert.Equal(t, "/api/v1/payment_intents/pi_1", got.Headers["Location"])
	assert.False(t, got.InFlight())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIdempotencyStore_Get_Absent(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store := NewIdempotencyStore(mock)

	mock.ExpectQuery("SELECT .+ FROM idempotency_records WHERE scope").
		WithArgs("missing-scope").
		WillReturnRows(pgxmock.NewRows([]string{"key", "merchant_id", "endpoint", "request_hash", "status_code", "response", "headers", "created_at", "expires_at"}))

	got, err := store.Get(context.Background(), "missing-scope")
	assert.NoError(t, err)
	assert.Nil(t, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIdempotencyStore_Complete(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store := NewIdempotencyStore(mock)
	record := newTestRecord()
	record.StatusCode = 200
	record.Response = []byte(`{"ok":true}`)
	record.Headers = map[string]string{"Content-Type": "application/json"}
	scope := domain.IdempotencyScope(record.MerchantID, record.Endpoint, record.Key)

	mock.ExpectExec("UPDATE idempotency_records SET status_code").
		WithArgs(200, record.Response, []byte(`{"Content-Type":"application/json"}`),
			record.CreatedAt.Add(time.Hour), scope).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err = store.Complete(context.Background(), record, time.Hour)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIdempotencyStore_Release(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store := NewIdempotencyStore(mock)

	mock.ExpectExec("DELETE FROM idempotency_records").
		WithArgs("some-scope").
		WillReturnResult(pgxmock.NewResult("DELETE", 1))

	err = store.Release(context.Background(), "some-scope")
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// sealedArg matches any []byte that does not contain the PAN in cleartext.
type sealedArg struct {
	pan string
}

func (a sealedArg) Match(v any) bool {
	b, ok := v.([]byte)
	if !ok {
		return false
	}
	return len(b) > 0 && !strings.Contains(string(b), a.pan)
}

func newTestSealer(t *testing.T) *cardcrypt.Sealer {
	t.Helper()
	sealer, err := cardcrypt.NewSealer(hex.EncodeToString(make([]byte, 32)))
	require.NoError(t, err)
	return sealer
}

func TestTokenVault_PutStoresCiphertextOnly(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	sealer := newTestSealer(t)
	vault := NewTokenVault(mock, sealer)
	merchantID := uuid.New()
	card := &domain.Card{Number: "4242424242424242", ExpMonth: 12, ExpYear: 2030, CVC: "123"}

	mock.ExpectExec("INSERT INTO card_tokens").
		WithArgs(merchantID, "tok_abc", sealedArg{pan: card.Number}, pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err = vault.Put(context.Background(), merchantID, "tok_abc", card, 15*time.Minute)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTokenVault_GetOpensSealedCard(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	sealer := newTestSealer(t)
	vault := NewTokenVault(mock, sealer)
	merchantID := uuid.New()
	card := &domain.Card{Number: "4242424242424242", ExpMonth: 12, ExpYear: 2030, CVC: "123"}
	sealed, err := sealer.Seal(card)
	require.NoError(t, err)

	mock.ExpectQuery("SELECT card_sealed FROM card_tokens").
		WithArgs(merchantID, "tok_abc").
		WillReturnRows(pgxmock.NewRows([]string{"card_sealed"}).AddRow(sealed))

	got, err := vault.Get(context.Background(), merchantID, "tok_abc")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, card.Number, got.Number)
	assert.Equal(t, card.CVC, got.CVC)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTokenVault_Get_Absent(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	vault := NewTokenVault(mock, newTestSealer(t))

	mock.ExpectQuery("SELECT card_sealed FROM card_tokens").
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"card_sealed"}))

	got, err := vault.Get(context.Background(), uuid.New(), "tok_missing")
	assert.NoError(t, err)
	assert.Nil(t, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTokenVault_Delete(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	vault := NewTokenVault(mock, newTestSealer(t))
	merchantID := uuid.New()

	mock.ExpectExec("DELETE FROM card_tokens").
		WithArgs(merchantID, "tok_abc").
		WillReturnResult(pgxmock.NewResult("DELETE", 1))

	err = vault.Delete(context.Background(), merchantID, "tok_abc")
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
