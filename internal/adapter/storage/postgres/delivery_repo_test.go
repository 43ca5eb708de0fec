package postgres

import (
	"context"
	"testing"
	"time"

	"payment-api-gateway/internal/core/domain"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDelivery() *domain.WebhookDelivery {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &domain.WebhookDelivery{
		ID:          uuid.New(),
		MerchantID:  uuid.New(),
		EventType:   "payment_intent.succeeded",
		EventID:     uuid.New(),
		EndpointURL: "https://merchant.example.com/hooks",
		Secret:      "whsec_test",
		Payload:     []byte(`{"id":"evt_1"}`),
		Attempt:     1,
		MaxAttempts: domain.DeliveryMaxAttempts,
		NextRetryAt: now,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func anyArgs(n int) []any {
	args := make([]any, n)
	for i := range args {
		args[i] = pgxmock.AnyArg()
	}
	return args
}

func deliveryColumnNames() []string {
	return []string{"id", "merchant_id", "event_type", "event_id", "endpoint_url", "secret", "payload",
		"attempt", "max_attempts", "status_code", "response_body", "error", "next_retry_at",
		"delivered", "delivered_at", "created_at", "updated_at"}
}

func deliveryRow(d *domain.WebhookDelivery) *pgxmock.Rows {
	return pgxmock.NewRows(deliveryColumnNames()).AddRow(
		d.ID, d.MerchantID, d.EventType, d.EventID, d.EndpointURL, d.Secret, d.Payload,
		d.Attempt, d.MaxAttempts, d.StatusCode, d.ResponseBody, d.Error, d.NextRetryAt,
		d.Delivered, d.DeliveredAt, d.CreatedAt, d.UpdatedAt,
	)
}

func TestWebhookDeliveryRepo_CreateBatch(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewWebhookDeliveryRepo(mock)
	first := newTestDelivery()
	second := newTestDelivery()

	mock.ExpectBegin()
	for _, d := range []*domain.WebhookDelivery{first, second} {
		mock.ExpectExec("INSERT INTO webhook_deliveries").
			WithArgs(
				d.ID, d.MerchantID, d.EventType, d.EventID, d.EndpointURL, d.Secret, d.Payload,
				d.Attempt, d.MaxAttempts, d.StatusCode, d.ResponseBody, d.Error, d.NextRetryAt,
				d.Delivered, d.DeliveredAt, d.CreatedAt, d.UpdatedAt,
			).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
	}
	mock.ExpectCommit()

	err = repo.CreateBatch(context.Background(), []*domain.WebhookDelivery{first, second})
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWebhookDeliveryRepo_CreateBatch_Empty(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewWebhookDeliveryRepo(mock)

	err = repo.CreateBatch(context.Background(), nil)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWebhookDeliveryRepo_CreateBatch_RollsBackOnFailure(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewWebhookDeliveryRepo(mock)
	delivery := newTestDelivery()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO webhook_deliveries").
		WithArgs(anyArgs(17)...).
		WillReturnError(assert.AnError)
	mock.ExpectRollback()

	err = repo.CreateBatch(context.Background(), []*domain.WebhookDelivery{delivery})
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWebhookDeliveryRepo_Due(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewWebhookDeliveryRepo(mock)
	delivery := newTestDelivery()
	now := time.Now().UTC()

	mock.ExpectQuery("SELECT .+ FROM webhook_deliveries").
		WithArgs(now, 50).
		WillReturnRows(deliveryRow(delivery))

	due, err := repo.Due(context.Background(), now, 50)
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, delivery.ID, due[0].ID)
	assert.Equal(t, delivery.Payload, due[0].Payload)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWebhookDeliveryRepo_Update(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewWebhookDeliveryRepo(mock)
	delivery := newTestDelivery()
	status := 200
	deliveredAt := time.Now().UTC()
	delivery.StatusCode = &status
	delivery.Delivered = true
	delivery.DeliveredAt = &deliveredAt

	mock.ExpectExec("UPDATE webhook_deliveries SET").
		WithArgs(
			delivery.Attempt, delivery.StatusCode, delivery.ResponseBody, delivery.Error,
			delivery.NextRetryAt, delivery.Delivered, delivery.DeliveredAt, delivery.UpdatedAt, delivery.ID,
		).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err = repo.Update(context.Background(), delivery)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWebhookDeliveryRepo_Update_NotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewWebhookDeliveryRepo(mock)
	delivery := newTestDelivery()

	mock.ExpectExec("UPDATE webhook_deliveries SET").
		WithArgs(anyArgs(9)...).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err = repo.Update(context.Background(), delivery)
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
