package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"payment-api-gateway/internal/acquirer"
	"payment-api-gateway/internal/core/domain"
	"payment-api-gateway/internal/core/ports"
	"payment-api-gateway/internal/core/ports/mocks"
	"payment-api-gateway/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

// fixedClock pins time so status timestamps are deterministic.
type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

// stubAdapter is a scriptable acquirer used in place of the real ones.
type stubAdapter struct {
	name string

	authorizeOut *acquirer.AuthorizeOutput
	authorizeErr error
	continueOut  *acquirer.AuthorizeOutput
	continueErr  error
	captureOut   *acquirer.CaptureOutput
	captureErr   error
	refundOut    *acquirer.RefundOutput
	refundErr    error
	voidOut      *acquirer.VoidOutput
	voidErr      error

	lastAuthorize acquirer.AuthorizeInput
	lastContinue  acquirer.ContinueInput
	lastCapture   acquirer.CaptureInput
	lastRefund    acquirer.RefundInput
	lastVoid      acquirer.VoidInput
}

func (a *stubAdapter) Name() string { return a.name }

func (a *stubAdapter) Authorize(_ context.Context, in acquirer.AuthorizeInput) (*acquirer.AuthorizeOutput, error) {
	a.lastAuthorize = in
	return a.authorizeOut, a.authorizeErr
}

func (a *stubAdapter) AuthorizeWith3DS(_ context.Context, in acquirer.ContinueInput) (*acquirer.AuthorizeOutput, error) {
	a.lastContinue = in
	return a.continueOut, a.continueErr
}

func (a *stubAdapter) Capture(_ context.Context, in acquirer.CaptureInput) (*acquirer.CaptureOutput, error) {
	a.lastCapture = in
	return a.captureOut, a.captureErr
}

func (a *stubAdapter) Refund(_ context.Context, in acquirer.RefundInput) (*acquirer.RefundOutput, error) {
	a.lastRefund = in
	return a.refundOut, a.refundErr
}

func (a *stubAdapter) Void(_ context.Context, in acquirer.VoidInput) (*acquirer.VoidOutput, error) {
	a.lastVoid = in
	return a.voidOut, a.voidErr
}

type orchestratorTestDeps struct {
	svc          *PaymentOrchestratorImpl
	intentRepo   *mocks.MockPaymentIntentRepository
	chargeRepo   *mocks.MockChargeRepository
	refundRepo   *mocks.MockRefundRepository
	merchantRepo *mocks.MockMerchantRepository
	balanceRepo  *mocks.MockBalanceRepository
	router       *mocks.MockRouter
	tokens       *mocks.MockCardTokenService
	emitter      *mocks.MockEventEmitter
	adapter      *stubAdapter
	now          time.Time
	ctrl         *gomock.Controller
}

func setupOrchestrator(t *testing.T) *orchestratorTestDeps {
	ctrl := gomock.NewController(t)
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	d := &orchestratorTestDeps{
		intentRepo:   mocks.NewMockPaymentIntentRepository(ctrl),
		chargeRepo:   mocks.NewMockChargeRepository(ctrl),
		refundRepo:   mocks.NewMockRefundRepository(ctrl),
		merchantRepo: mocks.NewMockMerchantRepository(ctrl),
		balanceRepo:  mocks.NewMockBalanceRepository(ctrl),
		router:       mocks.NewMockRouter(ctrl),
		tokens:       mocks.NewMockCardTokenService(ctrl),
		emitter:      mocks.NewMockEventEmitter(ctrl),
		adapter:      &stubAdapter{name: "mock"},
		now:          now,
		ctrl:         ctrl,
	}
	// events are fire-and-forget; individual tests assert the interesting ones
	d.emitter.EXPECT().Emit(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).AnyTimes()

	registry := acquirer.NewRegistry(zerolog.Nop())
	registry.Register(d.adapter)

	d.svc = NewPaymentOrchestrator(
		d.intentRepo, d.chargeRepo, d.refundRepo, d.merchantRepo, d.balanceRepo,
		registry, d.router, d.tokens, d.emitter, fixedClock{now}, zerolog.Nop(),
	)
	return d
}

func testCard() *domain.Card {
	return &domain.Card{Number: "4242424242424242", ExpMonth: 12, ExpYear: 2030, CVC: "123", Name: "Ada Lovelace"}
}

func testIntent(merchantID uuid.UUID, status domain.IntentStatus) *domain.PaymentIntent {
	return &domain.PaymentIntent{
		ID:                 uuid.New(),
		MerchantID:         merchantID,
		Amount:             2500,
		Currency:           "USD",
		CaptureMethod:      domain.CaptureAutomatic,
		ConfirmationMethod: domain.ConfirmationAutomatic,
		Status:             status,
	}
}

func mockRoute() *domain.SelectedRoute {
	return &domain.SelectedRoute{Adapter: "mock"}
}

// ==================== CreateIntent ====================

func TestOrchestrator_CreateIntent_Defaults(t *testing.T) {
	d := setupOrchestrator(t)
	defer d.ctrl.Finish()

	merchantID := uuid.New()
	d.intentRepo.EXPECT().Create(gomock.Any(), gomock.Any()).Return(nil)

	intent, err := d.svc.CreateIntent(context.Background(), ports.CreateIntentParams{
		MerchantID: merchantID,
		Amount:     2500,
		Currency:   "USD",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.IntentStatusRequiresPaymentMethod, intent.Status)
	assert.Equal(t, domain.CaptureAutomatic, intent.CaptureMethod)
	assert.Equal(t, domain.ConfirmationAutomatic, intent.ConfirmationMethod)
	assert.Equal(t, "USD", intent.Currency)
	assert.Equal(t, d.now, intent.CreatedAt)
}

func TestOrchestrator_CreateIntent_RejectsBadInput(t *testing.T) {
	d := setupOrchestrator(t)
	defer d.ctrl.Finish()

	_, err := d.svc.CreateIntent(context.Background(), ports.CreateIntentParams{Amount: 0, Currency: "usd"})
	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "invalid_amount", appErr.Code)

	_, err = d.svc.CreateIntent(context.Background(), ports.CreateIntentParams{Amount: 100, Currency: "usdollar"})
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperror.TypeValidation, appErr.Type)
	assert.Equal(t, "currency", appErr.Param)
}

// ==================== Confirm ====================

func TestOrchestrator_Confirm_AutoCapture_Succeeds(t *testing.T) {
	d := setupOrchestrator(t)
	defer d.ctrl.Finish()

	merchantID := uuid.New()
	intent := testIntent(merchantID, domain.IntentStatusRequiresPaymentMethod)
	d.adapter.authorizeOut = &acquirer.AuthorizeOutput{
		Outcome:           acquirer.OutcomeAuthorized,
		AmountAuthorized:  2500,
		AcquirerReference: "mock_auth_1",
		AuthorizationCode: "999999",
		Network:           "visa",
		Processor:         acquirer.ProcessorResponse{Code: "00", Message: "Approved"},
	}

	d.intentRepo.EXPECT().GetByID(gomock.Any(), merchantID, intent.ID).Return(intent, nil)
	d.merchantRepo.EXPECT().GetByID(gomock.Any(), merchantID).Return(&domain.Merchant{ID: merchantID}, nil)
	d.router.EXPECT().PickRoute(gomock.Any(), gomock.Any(), intent).Return(mockRoute(), nil)
	d.intentRepo.EXPECT().
		UpdateIfStatus(gomock.Any(), intent, domain.IntentStatusRequiresPaymentMethod).
		Return(true, nil)

	var created *domain.Charge
	d.chargeRepo.EXPECT().Create(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, c *domain.Charge) error {
			created = c
			return nil
		})
	d.intentRepo.EXPECT().Update(gomock.Any(), intent).Return(nil)
	d.balanceRepo.EXPECT().CreateTransaction(gomock.Any(), gomock.Any()).Return(nil)

	got, err := d.svc.Confirm(context.Background(), ports.ConfirmParams{
		MerchantID: merchantID,
		IntentID:   intent.ID,
		Card:       testCard(),
	})
	require.NoError(t, err)
	assert.Equal(t, domain.IntentStatusSucceeded, got.Status)
	require.NotNil(t, got.PaymentMethod)
	assert.Equal(t, "4242", got.PaymentMethod.Last4)

	require.NotNil(t, created)
	assert.Equal(t, domain.ChargeStatusCaptured, created.Status)
	assert.Equal(t, int64(2500), created.AmountCaptured)
	assert.Equal(t, "mock", created.AcquirerName)
	assert.Equal(t, "999999", *created.AuthorizationCode)

	// the full PAN reaches the adapter but never the summary
	assert.Equal(t, "4242424242424242", d.adapter.lastAuthorize.Card.Number)
}

func TestOrchestrator_Confirm_ManualCapture_LeavesChargeAuthorized(t *testing.T) {
	d := setupOrchestrator(t)
	defer d.ctrl.Finish()

	merchantID := uuid.New()
	intent := testIntent(merchantID, domain.IntentStatusRequiresPaymentMethod)
	intent.CaptureMethod = domain.CaptureManual
	d.adapter.authorizeOut = &acquirer.AuthorizeOutput{
		Outcome:          acquirer.OutcomeAuthorized,
		AmountAuthorized: 2500,
	}

	d.intentRepo.EXPECT().GetByID(gomock.Any(), merchantID, intent.ID).Return(intent, nil)
	d.merchantRepo.EXPECT().GetByID(gomock.Any(), merchantID).Return(&domain.Merchant{ID: merchantID}, nil)
	d.router.EXPECT().PickRoute(gomock.Any(), gomock.Any(), intent).Return(mockRoute(), nil)
	d.intentRepo.EXPECT().
		UpdateIfStatus(gomock.Any(), intent, domain.IntentStatusRequiresPaymentMethod).
		Return(true, nil)

	var created *domain.Charge
	d.chargeRepo.EXPECT().Create(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, c *domain.Charge) error {
			created = c
			return nil
		})
	d.intentRepo.EXPECT().Update(gomock.Any(), intent).Return(nil)
	// no ledger entry until capture

	got, err := d.svc.Confirm(context.Background(), ports.ConfirmParams{
		MerchantID: merchantID,
		IntentID:   intent.ID,
		Card:       testCard(),
	})
	require.NoError(t, err)
	assert.Equal(t, domain.IntentStatusProcessing, got.Status)
	assert.Equal(t, domain.ChargeStatusAuthorized, created.Status)
	assert.Equal(t, int64(0), created.AmountCaptured)
}

func TestOrchestrator_Confirm_RequiresAction_ParksIntent(t *testing.T) {
	d := setupOrchestrator(t)
	defer d.ctrl.Finish()

	merchantID := uuid.New()
	intent := testIntent(merchantID, domain.IntentStatusRequiresPaymentMethod)
	d.adapter.authorizeOut = &acquirer.AuthorizeOutput{
		Outcome:           acquirer.OutcomeRequiresAction,
		AcquirerReference: "mock_3ds_1",
		ThreeDS: &acquirer.ThreeDSAction{
			Flow:        "redirect",
			RedirectURL: "https://mock-acquirer.local/3ds/x",
			Data:        map[string]string{"md": "mock_3ds_1"},
		},
	}

	d.intentRepo.EXPECT().GetByID(gomock.Any(), merchantID, intent.ID).Return(intent, nil)
	d.merchantRepo.EXPECT().GetByID(gomock.Any(), merchantID).Return(&domain.Merchant{ID: merchantID}, nil)
	d.router.EXPECT().PickRoute(gomock.Any(), gomock.Any(), intent).Return(mockRoute(), nil)
	d.intentRepo.EXPECT().
		UpdateIfStatus(gomock.Any(), intent, domain.IntentStatusRequiresPaymentMethod).
		Return(true, nil)
	d.intentRepo.EXPECT().Update(gomock.Any(), intent).Return(nil)

	got, err := d.svc.Confirm(context.Background(), ports.ConfirmParams{
		MerchantID: merchantID,
		IntentID:   intent.ID,
		Card:       testCard(),
	})
	require.NoError(t, err)
	assert.Equal(t, domain.IntentStatusRequiresAction, got.Status)
	require.NotNil(t, got.ThreeDS)
	assert.Equal(t, "mock_3ds_1", got.ThreeDS.AcquirerReference)
	assert.Equal(t, "https://mock-acquirer.local/3ds/x", got.ThreeDS.RedirectURL)
}

func TestOrchestrator_Confirm_Declined(t *testing.T) {
	d := setupOrchestrator(t)
	defer d.ctrl.Finish()

	merchantID := uuid.New()
	intent := testIntent(merchantID, domain.IntentStatusRequiresPaymentMethod)
	d.adapter.authorizeOut = &acquirer.AuthorizeOutput{
		Outcome:   acquirer.OutcomeFailed,
		Processor: acquirer.ProcessorResponse{Code: "05", Message: "Do not honor"},
	}

	d.intentRepo.EXPECT().GetByID(gomock.Any(), merchantID, intent.ID).Return(intent, nil)
	d.merchantRepo.EXPECT().GetByID(gomock.Any(), merchantID).Return(&domain.Merchant{ID: merchantID}, nil)
	d.router.EXPECT().PickRoute(gomock.Any(), gomock.Any(), intent).Return(mockRoute(), nil)
	d.intentRepo.EXPECT().
		UpdateIfStatus(gomock.Any(), intent, domain.IntentStatusRequiresPaymentMethod).
		Return(true, nil)

	var failedCharge *domain.Charge
	d.chargeRepo.EXPECT().Create(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, c *domain.Charge) error {
			failedCharge = c
			return nil
		})
	d.intentRepo.EXPECT().Update(gomock.Any(), intent).Return(nil)

	_, err := d.svc.Confirm(context.Background(), ports.ConfirmParams{
		MerchantID: merchantID,
		IntentID:   intent.ID,
		Card:       testCard(),
	})
	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "05", appErr.Code)
	assert.Equal(t, "Do not honor", appErr.Message)
	assert.Equal(t, domain.IntentStatusFailed, intent.Status)
	assert.Equal(t, domain.ChargeStatusFailed, failedCharge.Status)
}

func TestOrchestrator_Confirm_TransportError_RevertsClaim(t *testing.T) {
	d := setupOrchestrator(t)
	defer d.ctrl.Finish()

	merchantID := uuid.New()
	intent := testIntent(merchantID, domain.IntentStatusRequiresPaymentMethod)
	d.adapter.authorizeErr = errors.New("connection refused")

	d.intentRepo.EXPECT().GetByID(gomock.Any(), merchantID, intent.ID).Return(intent, nil)
	d.merchantRepo.EXPECT().GetByID(gomock.Any(), merchantID).Return(&domain.Merchant{ID: merchantID}, nil)
	d.router.EXPECT().PickRoute(gomock.Any(), gomock.Any(), intent).Return(mockRoute(), nil)
	d.intentRepo.EXPECT().
		UpdateIfStatus(gomock.Any(), intent, domain.IntentStatusRequiresPaymentMethod).
		Return(true, nil)
	// the revert puts the intent back so the client can retry
	d.intentRepo.EXPECT().
		UpdateIfStatus(gomock.Any(), intent, domain.IntentStatusProcessing).
		Return(true, nil)

	_, err := d.svc.Confirm(context.Background(), ports.ConfirmParams{
		MerchantID: merchantID,
		IntentID:   intent.ID,
		Card:       testCard(),
	})
	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperror.TypeAPI, appErr.Type)
	assert.Equal(t, domain.IntentStatusRequiresPaymentMethod, intent.Status)
	assert.Nil(t, intent.Routing)
	assert.Nil(t, intent.PaymentMethod)
}

func TestOrchestrator_Confirm_LosesClaimRace(t *testing.T) {
	d := setupOrchestrator(t)
	defer d.ctrl.Finish()

	merchantID := uuid.New()
	intent := testIntent(merchantID, domain.IntentStatusRequiresPaymentMethod)

	d.intentRepo.EXPECT().GetByID(gomock.Any(), merchantID, intent.ID).Return(intent, nil)
	d.merchantRepo.EXPECT().GetByID(gomock.Any(), merchantID).Return(&domain.Merchant{ID: merchantID}, nil)
	d.router.EXPECT().PickRoute(gomock.Any(), gomock.Any(), intent).Return(mockRoute(), nil)
	d.intentRepo.EXPECT().
		UpdateIfStatus(gomock.Any(), intent, domain.IntentStatusRequiresPaymentMethod).
		Return(false, nil)

	_, err := d.svc.Confirm(context.Background(), ports.ConfirmParams{
		MerchantID: merchantID,
		IntentID:   intent.ID,
		Card:       testCard(),
	})
	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "invalid_state", appErr.Code)
}

func TestOrchestrator_Confirm_WrongState(t *testing.T) {
	d := setupOrchestrator(t)
	defer d.ctrl.Finish()

	merchantID := uuid.New()
	intent := testIntent(merchantID, domain.IntentStatusSucceeded)
	d.intentRepo.EXPECT().GetByID(gomock.Any(), merchantID, intent.ID).Return(intent, nil)

	_, err := d.svc.Confirm(context.Background(), ports.ConfirmParams{
		MerchantID: merchantID,
		IntentID:   intent.ID,
		Card:       testCard(),
	})
	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "invalid_state", appErr.Code)
}

func TestOrchestrator_Confirm_WithToken_RedeemsVault(t *testing.T) {
	d := setupOrchestrator(t)
	defer d.ctrl.Finish()

	merchantID := uuid.New()
	intent := testIntent(merchantID, domain.IntentStatusRequiresPaymentMethod)
	d.adapter.authorizeOut = &acquirer.AuthorizeOutput{
		Outcome:          acquirer.OutcomeAuthorized,
		AmountAuthorized: 2500,
	}

	d.intentRepo.EXPECT().GetByID(gomock.Any(), merchantID, intent.ID).Return(intent, nil)
	d.tokens.EXPECT().Redeem(gomock.Any(), merchantID, "tok_abc").Return(testCard(), nil)
	d.merchantRepo.EXPECT().GetByID(gomock.Any(), merchantID).Return(&domain.Merchant{ID: merchantID}, nil)
	d.router.EXPECT().PickRoute(gomock.Any(), gomock.Any(), intent).Return(mockRoute(), nil)
	d.intentRepo.EXPECT().
		UpdateIfStatus(gomock.Any(), intent, domain.IntentStatusRequiresPaymentMethod).
		Return(true, nil)
	d.chargeRepo.EXPECT().Create(gomock.Any(), gomock.Any()).Return(nil)
	d.intentRepo.EXPECT().Update(gomock.Any(), intent).Return(nil)
	d.balanceRepo.EXPECT().CreateTransaction(gomock.Any(), gomock.Any()).Return(nil)

	_, err := d.svc.Confirm(context.Background(), ports.ConfirmParams{
		MerchantID: merchantID,
		IntentID:   intent.ID,
		Token:      "tok_abc",
	})
	require.NoError(t, err)
}

func TestOrchestrator_Confirm_ForwardsBillingDetails(t *testing.T) {
	d := setupOrchestrator(t)
	defer d.ctrl.Finish()

	merchantID := uuid.New()
	intent := testIntent(merchantID, domain.IntentStatusRequiresPaymentMethod)
	desc := "ACME Store order 42"
	intent.Description = &desc
	d.adapter.authorizeOut = &acquirer.AuthorizeOutput{
		Outcome:          acquirer.OutcomeAuthorized,
		AmountAuthorized: 2500,
	}

	d.intentRepo.EXPECT().GetByID(gomock.Any(), merchantID, intent.ID).Return(intent, nil)
	d.merchantRepo.EXPECT().GetByID(gomock.Any(), merchantID).Return(&domain.Merchant{ID: merchantID}, nil)
	d.router.EXPECT().PickRoute(gomock.Any(), gomock.Any(), intent).Return(mockRoute(), nil)
	d.intentRepo.EXPECT().
		UpdateIfStatus(gomock.Any(), intent, domain.IntentStatusRequiresPaymentMethod).
		Return(true, nil)
	d.chargeRepo.EXPECT().Create(gomock.Any(), gomock.Any()).Return(nil)
	d.intentRepo.EXPECT().Update(gomock.Any(), intent).Return(nil)
	d.balanceRepo.EXPECT().CreateTransaction(gomock.Any(), gomock.Any()).Return(nil)

	_, err := d.svc.Confirm(context.Background(), ports.ConfirmParams{
		MerchantID: merchantID,
		IntentID:   intent.ID,
		Card:       testCard(),
		Billing: &ports.BillingDetails{
			Name:  "Grace Hopper",
			Email: "grace@example.com",
			Address: &ports.BillingAddress{
				Line1:      "1 Navy Way",
				City:       "Arlington",
				State:      "VA",
				Country:    "US",
				PostalCode: "22202",
			},
		},
	})
	require.NoError(t, err)

	in := d.adapter.lastAuthorize
	require.NotNil(t, in.Customer)
	assert.Equal(t, "Grace Hopper", in.Customer.Name)
	assert.Equal(t, "grace@example.com", in.Customer.Email)
	require.NotNil(t, in.Billing)
	assert.Equal(t, "1 Navy Way", in.Billing.Line1)
	assert.Equal(t, "Arlington", in.Billing.City)
	assert.Equal(t, "VA", in.Billing.State)
	assert.Equal(t, "US", in.Billing.Country)
	assert.Equal(t, "22202", in.Billing.PostalCode)
	assert.Equal(t, "ACME Store order 42", in.StatementDescriptor)
}

func TestOrchestrator_Confirm_BadTokenPrefix(t *testing.T) {
	d := setupOrchestrator(t)
	defer d.ctrl.Finish()

	merchantID := uuid.New()
	intent := testIntent(merchantID, domain.IntentStatusRequiresPaymentMethod)
	d.intentRepo.EXPECT().GetByID(gomock.Any(), merchantID, intent.ID).Return(intent, nil)

	_, err := d.svc.Confirm(context.Background(), ports.ConfirmParams{
		MerchantID: merchantID,
		IntentID:   intent.ID,
		Token:      "sk_not_a_card_token",
	})
	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "invalid_token", appErr.Code)
}

// ==================== CompleteAuthentication ====================

func TestOrchestrator_CompleteAuthentication_Succeeds(t *testing.T) {
	d := setupOrchestrator(t)
	defer d.ctrl.Finish()

	merchantID := uuid.New()
	intent := testIntent(merchantID, domain.IntentStatusRequiresAction)
	intent.Routing = mockRoute()
	intent.ThreeDS = &domain.ThreeDSState{AcquirerReference: "mock_3ds_1"}
	d.adapter.continueOut = &acquirer.AuthorizeOutput{
		Outcome:          acquirer.OutcomeAuthorized,
		AmountAuthorized: 2500,
	}

	d.intentRepo.EXPECT().GetByID(gomock.Any(), merchantID, intent.ID).Return(intent, nil)
	d.intentRepo.EXPECT().
		UpdateIfStatus(gomock.Any(), intent, domain.IntentStatusRequiresAction).
		Return(true, nil)
	d.chargeRepo.EXPECT().Create(gomock.Any(), gomock.Any()).Return(nil)
	d.intentRepo.EXPECT().Update(gomock.Any(), intent).Return(nil)
	d.balanceRepo.EXPECT().CreateTransaction(gomock.Any(), gomock.Any()).Return(nil)

	got, err := d.svc.CompleteAuthentication(context.Background(), ports.CompleteAuthParams{
		MerchantID: merchantID,
		IntentID:   intent.ID,
		PaRes:      "pares-blob",
		MD:         "mock_3ds_1",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.IntentStatusSucceeded, got.Status)
	assert.Nil(t, got.ThreeDS)
	assert.Equal(t, "mock_3ds_1", d.adapter.lastContinue.AcquirerReference)
	assert.Equal(t, "pares-blob", d.adapter.lastContinue.PaRes)
}

func TestOrchestrator_CompleteAuthentication_TransportError_RevertsClaim(t *testing.T) {
	d := setupOrchestrator(t)
	defer d.ctrl.Finish()

	merchantID := uuid.New()
	intent := testIntent(merchantID, domain.IntentStatusRequiresAction)
	intent.Routing = mockRoute()
	intent.ThreeDS = &domain.ThreeDSState{AcquirerReference: "mock_3ds_1"}
	d.adapter.continueErr = errors.New("connection refused")

	d.intentRepo.EXPECT().GetByID(gomock.Any(), merchantID, intent.ID).Return(intent, nil)
	d.intentRepo.EXPECT().
		UpdateIfStatus(gomock.Any(), intent, domain.IntentStatusRequiresAction).
		Return(true, nil)
	// the revert parks the intent again so the completion can be retried
	d.intentRepo.EXPECT().
		UpdateIfStatus(gomock.Any(), intent, domain.IntentStatusProcessing).
		Return(true, nil)

	_, err := d.svc.CompleteAuthentication(context.Background(), ports.CompleteAuthParams{
		MerchantID: merchantID,
		IntentID:   intent.ID,
		PaRes:      "pares-blob",
	})
	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperror.TypeAPI, appErr.Type)
	assert.Equal(t, domain.IntentStatusRequiresAction, intent.Status)
	require.NotNil(t, intent.ThreeDS)
	assert.Equal(t, "mock_3ds_1", intent.ThreeDS.AcquirerReference)
}

func TestOrchestrator_CompleteAuthentication_NoPendingAuth(t *testing.T) {
	d := setupOrchestrator(t)
	defer d.ctrl.Finish()

	merchantID := uuid.New()
	intent := testIntent(merchantID, domain.IntentStatusProcessing)
	d.intentRepo.EXPECT().GetByID(gomock.Any(), merchantID, intent.ID).Return(intent, nil)

	_, err := d.svc.CompleteAuthentication(context.Background(), ports.CompleteAuthParams{
		MerchantID: merchantID,
		IntentID:   intent.ID,
	})
	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "invalid_state", appErr.Code)
}

// ==================== Capture ====================

func TestOrchestrator_Capture_Partial(t *testing.T) {
	d := setupOrchestrator(t)
	defer d.ctrl.Finish()

	merchantID := uuid.New()
	intent := testIntent(merchantID, domain.IntentStatusProcessing)
	intent.Routing = mockRoute()
	ref := "mock_auth_1"
	charge := &domain.Charge{
		ID:                uuid.New(),
		MerchantID:        merchantID,
		PaymentIntentID:   intent.ID,
		AmountAuthorized:  2500,
		Currency:          "USD",
		Status:            domain.ChargeStatusAuthorized,
		AcquirerReference: &ref,
	}
	d.adapter.captureOut = &acquirer.CaptureOutput{Outcome: acquirer.OutcomeSucceeded}

	d.intentRepo.EXPECT().GetByID(gomock.Any(), merchantID, intent.ID).Return(intent, nil)
	d.chargeRepo.EXPECT().GetByIntentID(gomock.Any(), intent.ID).Return(charge, nil)
	d.chargeRepo.EXPECT().
		UpdateIfStatus(gomock.Any(), charge, domain.ChargeStatusAuthorized).
		Return(true, nil)
	d.intentRepo.EXPECT().
		UpdateIfStatus(gomock.Any(), intent, domain.IntentStatusProcessing).
		Return(true, nil)
	d.balanceRepo.EXPECT().CreateTransaction(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, tx *domain.BalanceTransaction) error {
			assert.Equal(t, int64(1000), tx.Amount)
			assert.Equal(t, domain.BalanceTxCharge, tx.Type)
			return nil
		})

	amount := int64(1000)
	got, err := d.svc.Capture(context.Background(), ports.CaptureParams{
		MerchantID: merchantID,
		IntentID:   intent.ID,
		Amount:     &amount,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.IntentStatusSucceeded, got.Status)
	assert.Equal(t, int64(1000), charge.AmountCaptured)
	assert.Equal(t, domain.ChargeStatusCaptured, charge.Status)
	assert.Equal(t, "mock_auth_1", d.adapter.lastCapture.AcquirerReference)
}

func TestOrchestrator_Capture_AmountExceedsAuthorization(t *testing.T) {
	d := setupOrchestrator(t)
	defer d.ctrl.Finish()

	merchantID := uuid.New()
	intent := testIntent(merchantID, domain.IntentStatusProcessing)
	charge := &domain.Charge{
		ID:               uuid.New(),
		PaymentIntentID:  intent.ID,
		AmountAuthorized: 2500,
		Status:           domain.ChargeStatusAuthorized,
	}
	d.intentRepo.EXPECT().GetByID(gomock.Any(), merchantID, intent.ID).Return(intent, nil)
	d.chargeRepo.EXPECT().GetByIntentID(gomock.Any(), intent.ID).Return(charge, nil)

	amount := int64(9999)
	_, err := d.svc.Capture(context.Background(), ports.CaptureParams{
		MerchantID: merchantID,
		IntentID:   intent.ID,
		Amount:     &amount,
	})
	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "invalid_amount", appErr.Code)
}

func TestOrchestrator_Capture_AlreadyCaptured(t *testing.T) {
	d := setupOrchestrator(t)
	defer d.ctrl.Finish()

	merchantID := uuid.New()
	intent := testIntent(merchantID, domain.IntentStatusSucceeded)
	charge := &domain.Charge{
		ID:              uuid.New(),
		PaymentIntentID: intent.ID,
		Status:          domain.ChargeStatusCaptured,
	}
	d.intentRepo.EXPECT().GetByID(gomock.Any(), merchantID, intent.ID).Return(intent, nil)
	d.chargeRepo.EXPECT().GetByIntentID(gomock.Any(), intent.ID).Return(charge, nil)

	_, err := d.svc.Capture(context.Background(), ports.CaptureParams{MerchantID: merchantID, IntentID: intent.ID})
	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "invalid_state", appErr.Code)
}

// ==================== Cancel ====================

func TestOrchestrator_Cancel_VoidsAuthorization(t *testing.T) {
	d := setupOrchestrator(t)
	defer d.ctrl.Finish()

	merchantID := uuid.New()
	intent := testIntent(merchantID, domain.IntentStatusProcessing)
	intent.Routing = mockRoute()
	ref := "mock_auth_1"
	charge := &domain.Charge{
		ID:                uuid.New(),
		MerchantID:        merchantID,
		PaymentIntentID:   intent.ID,
		AmountAuthorized:  2500,
		Status:            domain.ChargeStatusAuthorized,
		AcquirerReference: &ref,
	}
	d.adapter.voidOut = &acquirer.VoidOutput{Outcome: acquirer.OutcomeSucceeded}

	d.intentRepo.EXPECT().GetByID(gomock.Any(), merchantID, intent.ID).Return(intent, nil)
	d.chargeRepo.EXPECT().GetByIntentID(gomock.Any(), intent.ID).Return(charge, nil)
	d.chargeRepo.EXPECT().
		UpdateIfStatus(gomock.Any(), charge, domain.ChargeStatusAuthorized).
		Return(true, nil)
	d.intentRepo.EXPECT().
		UpdateIfStatus(gomock.Any(), intent, domain.IntentStatusProcessing).
		Return(true, nil)

	got, err := d.svc.Cancel(context.Background(), merchantID, intent.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.IntentStatusCanceled, got.Status)
	assert.Equal(t, domain.ChargeStatusVoided, charge.Status)
	assert.Equal(t, "mock_auth_1", d.adapter.lastVoid.AcquirerReference)
}

func TestOrchestrator_Cancel_CapturedChargeRejected(t *testing.T) {
	d := setupOrchestrator(t)
	defer d.ctrl.Finish()

	merchantID := uuid.New()
	intent := testIntent(merchantID, domain.IntentStatusProcessing)
	charge := &domain.Charge{
		ID:              uuid.New(),
		PaymentIntentID: intent.ID,
		Status:          domain.ChargeStatusCaptured,
	}
	d.intentRepo.EXPECT().GetByID(gomock.Any(), merchantID, intent.ID).Return(intent, nil)
	d.chargeRepo.EXPECT().GetByIntentID(gomock.Any(), intent.ID).Return(charge, nil)

	_, err := d.svc.Cancel(context.Background(), merchantID, intent.ID)
	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "invalid_state", appErr.Code)
}

func TestOrchestrator_Cancel_NoCharge(t *testing.T) {
	d := setupOrchestrator(t)
	defer d.ctrl.Finish()

	merchantID := uuid.New()
	intent := testIntent(merchantID, domain.IntentStatusRequiresPaymentMethod)

	d.intentRepo.EXPECT().GetByID(gomock.Any(), merchantID, intent.ID).Return(intent, nil)
	d.chargeRepo.EXPECT().GetByIntentID(gomock.Any(), intent.ID).Return(nil, nil)
	d.intentRepo.EXPECT().
		UpdateIfStatus(gomock.Any(), intent, domain.IntentStatusRequiresPaymentMethod).
		Return(true, nil)

	got, err := d.svc.Cancel(context.Background(), merchantID, intent.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.IntentStatusCanceled, got.Status)
}

// ==================== CreateRefund ====================

func refundableCharge(merchantID, intentID uuid.UUID) *domain.Charge {
	ref := "mock_auth_1"
	return &domain.Charge{
		ID:                uuid.New(),
		MerchantID:        merchantID,
		PaymentIntentID:   intentID,
		AmountAuthorized:  2500,
		AmountCaptured:    2500,
		Currency:          "USD",
		Status:            domain.ChargeStatusCaptured,
		AcquirerReference: &ref,
	}
}

func TestOrchestrator_CreateRefund_Full(t *testing.T) {
	d := setupOrchestrator(t)
	defer d.ctrl.Finish()

	merchantID := uuid.New()
	intent := testIntent(merchantID, domain.IntentStatusSucceeded)
	intent.Routing = mockRoute()
	charge := refundableCharge(merchantID, intent.ID)
	d.adapter.refundOut = &acquirer.RefundOutput{
		Outcome:           acquirer.OutcomeSucceeded,
		AcquirerReference: "mock_ref_1",
	}

	d.chargeRepo.EXPECT().GetByID(gomock.Any(), merchantID, charge.ID).Return(charge, nil)
	d.intentRepo.EXPECT().GetByID(gomock.Any(), merchantID, intent.ID).Return(intent, nil)
	d.refundRepo.EXPECT().Create(gomock.Any(), gomock.Any()).Return(nil)
	d.chargeRepo.EXPECT().ApplyRefund(gomock.Any(), charge.ID, int64(2500)).DoAndReturn(
		func(_ context.Context, _ uuid.UUID, amount int64) (*domain.Charge, error) {
			updated := *charge
			updated.AmountRefunded = amount
			updated.Status = domain.ChargeStatusRefunded
			return &updated, nil
		})
	d.balanceRepo.EXPECT().CreateTransaction(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, tx *domain.BalanceTransaction) error {
			assert.Equal(t, int64(-2500), tx.Amount)
			assert.Equal(t, domain.BalanceTxRefund, tx.Type)
			return nil
		})

	refund, err := d.svc.CreateRefund(context.Background(), ports.RefundParams{
		MerchantID: merchantID,
		ChargeID:   charge.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.RefundStatusSucceeded, refund.Status)
	assert.Equal(t, int64(2500), refund.Amount)
	assert.Equal(t, "mock_ref_1", *refund.AcquirerReference)
	assert.Equal(t, refund.ID.String(), d.adapter.lastRefund.RequestID)
}

func TestOrchestrator_CreateRefund_ExceedsRefundable(t *testing.T) {
	d := setupOrchestrator(t)
	defer d.ctrl.Finish()

	merchantID := uuid.New()
	charge := refundableCharge(merchantID, uuid.New())
	charge.AmountRefunded = 2000
	charge.Status = domain.ChargeStatusPartiallyRefunded

	d.chargeRepo.EXPECT().GetByID(gomock.Any(), merchantID, charge.ID).Return(charge, nil)

	amount := int64(1000)
	_, err := d.svc.CreateRefund(context.Background(), ports.RefundParams{
		MerchantID: merchantID,
		ChargeID:   charge.ID,
		Amount:     &amount,
	})
	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "invalid_amount", appErr.Code)
}

func TestOrchestrator_CreateRefund_UnrefundableState(t *testing.T) {
	d := setupOrchestrator(t)
	defer d.ctrl.Finish()

	merchantID := uuid.New()
	charge := refundableCharge(merchantID, uuid.New())
	charge.Status = domain.ChargeStatusAuthorized

	d.chargeRepo.EXPECT().GetByID(gomock.Any(), merchantID, charge.ID).Return(charge, nil)

	_, err := d.svc.CreateRefund(context.Background(), ports.RefundParams{MerchantID: merchantID, ChargeID: charge.ID})
	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "invalid_state", appErr.Code)
}

func TestOrchestrator_CreateRefund_ConcurrentHeadroomLoss(t *testing.T) {
	d := setupOrchestrator(t)
	defer d.ctrl.Finish()

	merchantID := uuid.New()
	intent := testIntent(merchantID, domain.IntentStatusSucceeded)
	intent.Routing = mockRoute()
	charge := refundableCharge(merchantID, intent.ID)
	d.adapter.refundOut = &acquirer.RefundOutput{Outcome: acquirer.OutcomeSucceeded}

	d.chargeRepo.EXPECT().GetByID(gomock.Any(), merchantID, charge.ID).Return(charge, nil)
	d.intentRepo.EXPECT().GetByID(gomock.Any(), merchantID, intent.ID).Return(intent, nil)
	d.refundRepo.EXPECT().Create(gomock.Any(), gomock.Any()).Return(nil)
	d.chargeRepo.EXPECT().ApplyRefund(gomock.Any(), charge.ID, int64(2500)).Return(nil, nil)

	_, err := d.svc.CreateRefund(context.Background(), ports.RefundParams{
		MerchantID: merchantID,
		ChargeID:   charge.ID,
	})
	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperror.TypeAPI, appErr.Type)
}

// ==================== UpdateIntent / lookups ====================

func TestOrchestrator_UpdateIntent_TerminalRejected(t *testing.T) {
	d := setupOrchestrator(t)
	defer d.ctrl.Finish()

	merchantID := uuid.New()
	intent := testIntent(merchantID, domain.IntentStatusCanceled)
	d.intentRepo.EXPECT().GetByID(gomock.Any(), merchantID, intent.ID).Return(intent, nil)

	amount := int64(5000)
	_, err := d.svc.UpdateIntent(context.Background(), ports.UpdateIntentParams{
		MerchantID: merchantID,
		IntentID:   intent.ID,
		Amount:     &amount,
	})
	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "invalid_state", appErr.Code)
}

func TestOrchestrator_GetIntent_NotFound(t *testing.T) {
	d := setupOrchestrator(t)
	defer d.ctrl.Finish()

	merchantID := uuid.New()
	id := uuid.New()
	d.intentRepo.EXPECT().GetByID(gomock.Any(), merchantID, id).Return(nil, nil)

	_, err := d.svc.GetIntent(context.Background(), merchantID, id)
	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperror.TypeInvalidRequest, appErr.Type)
}
