package cybersource

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"payment-api-gateway/internal/acquirer"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

func newTestAdapter(t *testing.T, handler http.HandlerFunc) (*Adapter, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	a, err := New(Config{
		MerchantID: "testrest",
		KeyID:      "key-1",
		SecretKey:  base64.StdEncoding.EncodeToString([]byte("shared-secret")),
		Endpoint:   srv.URL,
	}, fixedClock{t: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}, zerolog.Nop())
	require.NoError(t, err)
	return a, srv
}

func TestFormatAmount(t *testing.T) {
	assert.Equal(t, "10.00", formatAmount(1000))
	assert.Equal(t, "0.05", formatAmount(5))
	assert.Equal(t, "666.00", formatAmount(66600))
	assert.Equal(t, "12.34", formatAmount(1234))
}

func TestAuthorizeSendsSignedRequest(t *testing.T) {
	var got *http.Request
	var body paymentRequest
	a, _ := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		got = r
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		json.NewEncoder(w).Encode(paymentResponse{ID: "cs_123", Status: "AUTHORIZED"})
	})

	out, err := a.Authorize(context.Background(), acquirer.AuthorizeInput{
		PaymentIntentID: "pi_1",
		Amount:          2500,
		Currency:        "usd",
		Card:            acquirer.CardInput{Number: "4242424242424242", CVV: "123", ExpMonth: 7, ExpYear: 2030},
	})
	require.NoError(t, err)
	assert.Equal(t, acquirer.OutcomeAuthorized, out.Outcome)
	assert.Equal(t, "cs_123", out.AcquirerReference)
	assert.Equal(t, int64(2500), out.AmountAuthorized)

	require.NotNil(t, got)
	assert.Equal(t, "testrest", got.Header.Get("v-c-merchant-id"))
	assert.Equal(t, "Fri, 01 Mar 2024 12:00:00 GMT", got.Header.Get("Date"))
	assert.NotEmpty(t, got.Header.Get("Digest"))
	sig := got.Header.Get("Signature")
	assert.Contains(t, sig, `keyid="key-1"`)
	assert.Contains(t, sig, `headers="host date (request-target) digest v-c-merchant-id"`)

	assert.False(t, body.ProcessingInformation.Capture)
	assert.Equal(t, "internet", body.ProcessingInformation.CommerceIndicator)
	assert.Equal(t, "25.00", body.OrderInformation.AmountDetails.TotalAmount)
	assert.Equal(t, "USD", body.OrderInformation.AmountDetails.Currency)
	assert.Equal(t, "07", body.PaymentInformation.Card.ExpirationMonth)
	assert.Equal(t, "2030", body.PaymentInformation.Card.ExpirationYear)
	require.NotNil(t, body.OrderInformation.BillTo)
	assert.Equal(t, "MX", body.OrderInformation.BillTo.Country)
	assert.Equal(t, "00000", body.OrderInformation.BillTo.PostalCode)
}

func TestAuthorizePendingAuthentication(t *testing.T) {
	a, _ := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(paymentResponse{
			ID:     "cs_3ds",
			Status: "PENDING_AUTHENTICATION",
			ConsumerAuthentication: &consumerAuthResponse{
				AcsURL:                      "https://acs.example/3ds",
				PAReq:                       "paReqBlob",
				AuthenticationTransactionID: "txn_9",
			},
		})
	})

	out, err := a.Authorize(context.Background(), acquirer.AuthorizeInput{Amount: 66600, Currency: "mxn"})
	require.NoError(t, err)
	assert.Equal(t, acquirer.OutcomeRequiresAction, out.Outcome)
	require.NotNil(t, out.ThreeDS)
	assert.Equal(t, "https://acs.example/3ds", out.ThreeDS.RedirectURL)
	assert.Equal(t, "paReqBlob", out.ThreeDS.Data["pareq"])
	assert.Equal(t, "txn_9", out.ThreeDS.Data["authentication_transaction_id"])
}

func TestAuthorizeDeclined(t *testing.T) {
	a, _ := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(paymentResponse{
			Status:           "DECLINED",
			ErrorInformation: &errorInformation{Reason: "PROCESSOR_DECLINED", Message: "Decline of the transaction."},
		})
	})

	out, err := a.Authorize(context.Background(), acquirer.AuthorizeInput{Amount: 99900, Currency: "usd"})
	require.NoError(t, err)
	assert.Equal(t, acquirer.OutcomeFailed, out.Outcome)
	assert.Equal(t, "Decline of the transaction.", out.Processor.Message)
	assert.Equal(t, "PROCESSOR_DECLINED", out.Processor.Code)
}

func TestCaptureRefundVoidMapping(t *testing.T) {
	status := "PENDING"
	a, _ := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(paymentResponse{ID: "cs_f1", Status: status})
	})
	ctx := context.Background()

	cap, err := a.Capture(ctx, acquirer.CaptureInput{AcquirerReference: "cs_123", Amount: 2500, Currency: "usd"})
	require.NoError(t, err)
	assert.Equal(t, acquirer.OutcomeSucceeded, cap.Outcome)

	ref, err := a.Refund(ctx, acquirer.RefundInput{AcquirerReference: "cs_123", Amount: 1000, Currency: "usd"})
	require.NoError(t, err)
	assert.Equal(t, acquirer.OutcomeSucceeded, ref.Outcome)

	status = "VOIDED"
	void, err := a.Void(ctx, acquirer.VoidInput{AcquirerReference: "cs_123"})
	require.NoError(t, err)
	assert.Equal(t, acquirer.OutcomeSucceeded, void.Outcome)

	status = "INVALID_REQUEST"
	cap2, err := a.Capture(ctx, acquirer.CaptureInput{AcquirerReference: "cs_123", Amount: 1, Currency: "usd"})
	require.NoError(t, err)
	assert.Equal(t, acquirer.OutcomeFailed, cap2.Outcome)
}

func TestAuthorizeWith3DSNeverReturnsRequiresAction(t *testing.T) {
	a, _ := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(paymentResponse{ID: "cs_x", Status: "PENDING_AUTHENTICATION"})
	})

	out, err := a.AuthorizeWith3DS(context.Background(), acquirer.ContinueInput{
		AcquirerReference: "cs_x",
		PaRes:             "blob",
		Amount:            500,
		Currency:          "usd",
	})
	require.NoError(t, err)
	assert.Equal(t, acquirer.OutcomeFailed, out.Outcome)
}

func TestServerErrorsSurfaceAsTransportErrors(t *testing.T) {
	a, _ := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})
	_, err := a.Authorize(context.Background(), acquirer.AuthorizeInput{Amount: 100, Currency: "usd"})
	assert.Error(t, err)
}
