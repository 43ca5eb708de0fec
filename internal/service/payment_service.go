package service

import (
	"context"
	"fmt"
	"strings"

	"payment-api-gateway/internal/acquirer"
	"payment-api-gateway/internal/core/domain"
	"payment-api-gateway/internal/core/ports"
	"payment-api-gateway/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// PaymentOrchestratorImpl implements ports.PaymentOrchestrator. It owns the
// intent/charge state machine; every state transition goes through a
// conditional update so concurrent calls on the same intent serialise with
// one winner.
type PaymentOrchestratorImpl struct {
	intentRepo   ports.PaymentIntentRepository
	chargeRepo   ports.ChargeRepository
	refundRepo   ports.RefundRepository
	merchantRepo ports.MerchantRepository
	balanceRepo  ports.BalanceRepository
	registry     *acquirer.Registry
	router       ports.Router
	tokens       ports.CardTokenService
	emitter      ports.EventEmitter
	clock        ports.Clock
	log          zerolog.Logger
}

// NewPaymentOrchestrator creates a PaymentOrchestratorImpl.
func NewPaymentOrchestrator(
	intentRepo ports.PaymentIntentRepository,
	chargeRepo ports.ChargeRepository,
	refundRepo ports.RefundRepository,
	merchantRepo ports.MerchantRepository,
	balanceRepo ports.BalanceRepository,
	registry *acquirer.Registry,
	router ports.Router,
	tokens ports.CardTokenService,
	emitter ports.EventEmitter,
	clock ports.Clock,
	log zerolog.Logger,
) *PaymentOrchestratorImpl {
	return &PaymentOrchestratorImpl{
		intentRepo:   intentRepo,
		chargeRepo:   chargeRepo,
		refundRepo:   refundRepo,
		merchantRepo: merchantRepo,
		balanceRepo:  balanceRepo,
		registry:     registry,
		router:       router,
		tokens:       tokens,
		emitter:      emitter,
		clock:        clock,
		log:          log,
	}
}

// CreateIntent inserts a fresh intent in requires_payment_method.
func (s *PaymentOrchestratorImpl) CreateIntent(ctx context.Context, params ports.CreateIntentParams) (*domain.PaymentIntent, error) {
	if params.Amount <= 0 {
		return nil, apperror.ErrInvalidAmount("amount must be greater than zero")
	}
	if len(params.Currency) != 3 {
		return nil, apperror.ValidationParam("currency must be a 3-letter ISO code", "currency")
	}

	captureMethod := params.CaptureMethod
	if captureMethod == "" {
		captureMethod = domain.CaptureAutomatic
	}
	confirmationMethod := params.ConfirmationMethod
	if confirmationMethod == "" {
		confirmationMethod = domain.ConfirmationAutomatic
	}

	now := s.clock.Now()
	intent := &domain.PaymentIntent{
		ID:                 uuid.New(),
		MerchantID:         params.MerchantID,
		CustomerID:         params.CustomerID,
		Amount:             params.Amount,
		Currency:           strings.ToUpper(params.Currency),
		CaptureMethod:      captureMethod,
		ConfirmationMethod: confirmationMethod,
		Status:             domain.IntentStatusRequiresPaymentMethod,
		Description:        params.Description,
		Metadata:           params.Metadata,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if err := s.intentRepo.Create(ctx, intent); err != nil {
		return nil, apperror.Internal(fmt.Errorf("create payment intent: %w", err))
	}

	s.emitter.Emit(ctx, intent.MerchantID, domain.EventPaymentIntentCreated, intent)
	s.log.Info().
		Str("payment_intent_id", intent.ID.String()).
		Int64("amount", intent.Amount).
		Str("currency", intent.Currency).
		Msg("payment intent created")
	return intent, nil
}

// GetIntent fetches one intent, merchant-scoped.
func (s *PaymentOrchestratorImpl) GetIntent(ctx context.Context, merchantID, id uuid.UUID) (*domain.PaymentIntent, error) {
	intent, err := s.intentRepo.GetByID(ctx, merchantID, id)
	if err != nil {
		return nil, apperror.Internal(fmt.Errorf("get payment intent: %w", err))
	}
	if intent == nil {
		return nil, apperror.ErrNotFound("payment_intent")
	}
	return intent, nil
}

// ListIntents returns intents newest first.
func (s *PaymentOrchestratorImpl) ListIntents(ctx context.Context, params ports.IntentListParams) ([]domain.PaymentIntent, int64, error) {
	intents, total, err := s.intentRepo.List(ctx, params)
	if err != nil {
		return nil, 0, apperror.Internal(fmt.Errorf("list payment intents: %w", err))
	}
	return intents, total, nil
}

// UpdateIntent applies a partial update to a non-terminal intent.
func (s *PaymentOrchestratorImpl) UpdateIntent(ctx context.Context, params ports.UpdateIntentParams) (*domain.PaymentIntent, error) {
	intent, err := s.GetIntent(ctx, params.MerchantID, params.IntentID)
	if err != nil {
		return nil, err
	}
	if !intent.CanUpdate() {
		return nil, apperror.ErrInvalidState(fmt.Sprintf("payment intent in status %q cannot be updated", intent.Status))
	}

	if params.Amount != nil {
		if *params.Amount <= 0 {
			return nil, apperror.ErrInvalidAmount("amount must be greater than zero")
		}
		intent.Amount = *params.Amount
	}
	if params.Currency != nil {
		if len(*params.Currency) != 3 {
			return nil, apperror.ValidationParam("currency must be a 3-letter ISO code", "currency")
		}
		intent.Currency = strings.ToUpper(*params.Currency)
	}
	if params.Description != nil {
		intent.Description = params.Description
	}
	if params.Metadata != nil {
		intent.Metadata = params.Metadata
	}
	intent.UpdatedAt = s.clock.Now()

	ok, err := s.intentRepo.UpdateIfStatus(ctx, intent, intent.Status)
	if err != nil {
		return nil, apperror.Internal(fmt.Errorf("update payment intent: %w", err))
	}
	if !ok {
		return nil, apperror.ErrInvalidState("payment intent was modified concurrently")
	}
	return intent, nil
}

// Confirm runs the authorize leg of the state machine.
func (s *PaymentOrchestratorImpl) Confirm(ctx context.Context, params ports.ConfirmParams) (*domain.PaymentIntent, error) {
	intent, err := s.GetIntent(ctx, params.MerchantID, params.IntentID)
	if err != nil {
		return nil, err
	}
	if !intent.CanConfirm() {
		return nil, apperror.ErrInvalidState(fmt.Sprintf("payment intent in status %q cannot be confirmed", intent.Status))
	}
	if intent.Amount <= 0 {
		return nil, apperror.ErrInvalidAmount("amount must be greater than zero")
	}

	card, err := s.resolveCard(ctx, params)
	if err != nil {
		return nil, err
	}

	merchant, err := s.merchantRepo.GetByID(ctx, params.MerchantID)
	if err != nil {
		return nil, apperror.Internal(fmt.Errorf("get merchant: %w", err))
	}
	if merchant == nil {
		return nil, apperror.ErrNotFound("merchant")
	}

	route, err := s.router.PickRoute(ctx, merchant, intent)
	if err != nil {
		return nil, apperror.Internal(fmt.Errorf("pick route: %w", err))
	}
	adapter, err := s.registry.Get(route.Adapter)
	if err != nil {
		return nil, apperror.Internal(err)
	}

	// claim the intent; a losing concurrent confirm gets invalid_state
	summary := card.Summary()
	intent.PaymentMethod = &summary
	intent.Routing = route
	intent.Status = domain.IntentStatusProcessing
	intent.UpdatedAt = s.clock.Now()
	ok, err := s.intentRepo.UpdateIfStatus(ctx, intent, domain.IntentStatusRequiresPaymentMethod)
	if err != nil {
		return nil, apperror.Internal(fmt.Errorf("claim payment intent: %w", err))
	}
	if !ok {
		return nil, apperror.ErrInvalidState("payment intent is already being confirmed")
	}

	out, err := adapter.Authorize(ctx, s.buildAuthorizeInput(intent, merchant, card, route, params.Billing))
	if err != nil {
		s.revertToRequiresPaymentMethod(ctx, intent)
		return nil, apperror.Upstream(fmt.Errorf("authorize via %s: %w", route.Adapter, err))
	}

	switch out.Outcome {
	case acquirer.OutcomeAuthorized:
		return s.settleAuthorized(ctx, intent, out)
	case acquirer.OutcomeRequiresAction:
		return s.parkForAuthentication(ctx, intent, out)
	default:
		return nil, s.settleDeclined(ctx, intent, out)
	}
}

// CompleteAuthentication runs the 3DS return leg.
func (s *PaymentOrchestratorImpl) CompleteAuthentication(ctx context.Context, params ports.CompleteAuthParams) (*domain.PaymentIntent, error) {
	intent, err := s.GetIntent(ctx, params.MerchantID, params.IntentID)
	if err != nil {
		return nil, err
	}
	if intent.Status != domain.IntentStatusRequiresAction {
		return nil, apperror.ErrInvalidState(fmt.Sprintf("payment intent in status %q has no pending authentication", intent.Status))
	}
	if intent.Routing == nil || intent.ThreeDS == nil {
		return nil, apperror.Internal(fmt.Errorf("payment intent %s lacks authentication state", intent.ID))
	}

	adapter, err := s.registry.Get(intent.Routing.Adapter)
	if err != nil {
		return nil, apperror.Internal(err)
	}
	threeDS, ok := adapter.(acquirer.ThreeDSAuthorizer)
	if !ok {
		return nil, apperror.Internal(fmt.Errorf("adapter %s does not support deferred authentication", intent.Routing.Adapter))
	}

	intent.Status = domain.IntentStatusProcessing
	intent.UpdatedAt = s.clock.Now()
	claimed, err := s.intentRepo.UpdateIfStatus(ctx, intent, domain.IntentStatusRequiresAction)
	if err != nil {
		return nil, apperror.Internal(fmt.Errorf("claim payment intent: %w", err))
	}
	if !claimed {
		return nil, apperror.ErrInvalidState("authentication is already being completed")
	}

	out, err := threeDS.AuthorizeWith3DS(ctx, acquirer.ContinueInput{
		RequestID:         intent.ID.String(),
		AcquirerReference: intent.ThreeDS.AcquirerReference,
		PaRes:             params.PaRes,
		TransactionID:     params.TransactionID,
		MD:                params.MD,
		Amount:            intent.Amount,
		Currency:          intent.Currency,
		Route:             toAcquirerRoute(intent.Routing),
	})
	if err != nil {
		s.revertToRequiresAction(ctx, intent)
		return nil, apperror.Upstream(fmt.Errorf("complete authentication via %s: %w", intent.Routing.Adapter, err))
	}

	if out.Outcome == acquirer.OutcomeAuthorized {
		return s.settleAuthorized(ctx, intent, out)
	}
	return nil, s.settleDeclined(ctx, intent, out)
}

// Capture captures a previously authorized charge.
func (s *PaymentOrchestratorImpl) Capture(ctx context.Context, params ports.CaptureParams) (*domain.PaymentIntent, error) {
	intent, err := s.GetIntent(ctx, params.MerchantID, params.IntentID)
	if err != nil {
		return nil, err
	}
	charge, err := s.chargeRepo.GetByIntentID(ctx, intent.ID)
	if err != nil {
		return nil, apperror.Internal(fmt.Errorf("get charge: %w", err))
	}
	if charge == nil {
		return nil, apperror.ErrNotFound("charge")
	}
	if !charge.CanCapture() {
		return nil, apperror.ErrInvalidState(fmt.Sprintf("charge in status %q cannot be captured", charge.Status))
	}

	amount := charge.AmountAuthorized
	if params.Amount != nil {
		amount = *params.Amount
	}
	if amount <= 0 || amount > charge.AmountAuthorized {
		return nil, apperror.ErrInvalidAmount("capture amount must be between 1 and the authorized amount")
	}

	adapter, route, err := s.adapterForIntent(intent)
	if err != nil {
		return nil, err
	}
	out, err := adapter.Capture(ctx, acquirer.CaptureInput{
		RequestID:         charge.ID.String(),
		AcquirerReference: deref(charge.AcquirerReference),
		Amount:            amount,
		Currency:          charge.Currency,
		Route:             route,
	})
	if err != nil {
		return nil, apperror.Upstream(fmt.Errorf("capture via %s: %w", route.Adapter, err))
	}
	if out.Outcome == acquirer.OutcomeFailed {
		return nil, apperror.ErrCardDeclined(out.Processor.Code, failureMessage(out.Processor, "capture failed"))
	}

	now := s.clock.Now()
	charge.AmountCaptured = amount
	charge.Status = domain.ChargeStatusCaptured
	charge.UpdatedAt = now
	ok, err := s.chargeRepo.UpdateIfStatus(ctx, charge, domain.ChargeStatusAuthorized)
	if err != nil {
		return nil, apperror.Internal(fmt.Errorf("update charge: %w", err))
	}
	if !ok {
		return nil, apperror.ErrInvalidState("charge was captured or voided concurrently")
	}

	intent.Status = domain.IntentStatusSucceeded
	intent.UpdatedAt = now
	if _, err := s.intentRepo.UpdateIfStatus(ctx, intent, domain.IntentStatusProcessing); err != nil {
		return nil, apperror.Internal(fmt.Errorf("update payment intent: %w", err))
	}

	s.recordLedger(ctx, charge.MerchantID, domain.BalanceTxCharge, charge.ID, amount, charge.Currency)
	s.emitter.Emit(ctx, charge.MerchantID, domain.EventChargeCaptured, charge)
	s.emitter.Emit(ctx, intent.MerchantID, domain.EventPaymentIntentSucceeded, intent)

	s.log.Info().
		Str("charge_id", charge.ID.String()).
		Int64("amount_captured", amount).
		Msg("charge captured")
	return intent, nil
}

// Cancel cancels an intent, voiding its authorization when one exists.
func (s *PaymentOrchestratorImpl) Cancel(ctx context.Context, merchantID, id uuid.UUID) (*domain.PaymentIntent, error) {
	intent, err := s.GetIntent(ctx, merchantID, id)
	if err != nil {
		return nil, err
	}
	if !intent.CanCancel() {
		return nil, apperror.ErrInvalidState(fmt.Sprintf("payment intent in status %q cannot be canceled", intent.Status))
	}

	charge, err := s.chargeRepo.GetByIntentID(ctx, intent.ID)
	if err != nil {
		return nil, apperror.Internal(fmt.Errorf("get charge: %w", err))
	}

	now := s.clock.Now()
	if charge != nil && charge.Status == domain.ChargeStatusAuthorized {
		adapter, route, aerr := s.adapterForIntent(intent)
		if aerr != nil {
			return nil, aerr
		}
		voider, ok := adapter.(acquirer.Voider)
		if !ok {
			return nil, apperror.Internal(fmt.Errorf("adapter %s cannot void authorizations", route.Adapter))
		}
		out, verr := voider.Void(ctx, acquirer.VoidInput{
			RequestID:         charge.ID.String(),
			AcquirerReference: deref(charge.AcquirerReference),
			Route:             route,
		})
		if verr != nil {
			return nil, apperror.Upstream(fmt.Errorf("void via %s: %w", route.Adapter, verr))
		}
		if out.Outcome == acquirer.OutcomeFailed {
			return nil, apperror.ErrCardDeclined(out.Processor.Code, failureMessage(out.Processor, "void failed"))
		}

		charge.Status = domain.ChargeStatusVoided
		charge.UpdatedAt = now
		ok, uerr := s.chargeRepo.UpdateIfStatus(ctx, charge, domain.ChargeStatusAuthorized)
		if uerr != nil {
			return nil, apperror.Internal(fmt.Errorf("update charge: %w", uerr))
		}
		if !ok {
			return nil, apperror.ErrInvalidState("charge was captured or voided concurrently")
		}
		s.emitter.Emit(ctx, charge.MerchantID, domain.EventChargeVoided, charge)
	} else if charge != nil && charge.Status == domain.ChargeStatusCaptured {
		return nil, apperror.ErrInvalidState("captured payments must be refunded, not canceled")
	}

	from := intent.Status
	intent.Status = domain.IntentStatusCanceled
	intent.UpdatedAt = now
	ok, err := s.intentRepo.UpdateIfStatus(ctx, intent, from)
	if err != nil {
		return nil, apperror.Internal(fmt.Errorf("update payment intent: %w", err))
	}
	if !ok {
		return nil, apperror.ErrInvalidState("payment intent was modified concurrently")
	}

	s.emitter.Emit(ctx, intent.MerchantID, domain.EventPaymentIntentCanceled, intent)
	s.log.Info().Str("payment_intent_id", intent.ID.String()).Msg("payment intent canceled")
	return intent, nil
}

// CreateRefund refunds part or all of a captured charge.
func (s *PaymentOrchestratorImpl) CreateRefund(ctx context.Context, params ports.RefundParams) (*domain.Refund, error) {
	charge, err := s.GetCharge(ctx, params.MerchantID, params.ChargeID)
	if err != nil {
		return nil, err
	}
	if !charge.CanRefund() {
		return nil, apperror.ErrInvalidState(fmt.Sprintf("charge in status %q cannot be refunded", charge.Status))
	}

	amount := charge.Refundable()
	if params.Amount != nil {
		amount = *params.Amount
	}
	if amount <= 0 || amount > charge.Refundable() {
		return nil, apperror.ErrInvalidAmount("refund amount must be between 1 and the remaining captured amount")
	}

	intent, err := s.GetIntent(ctx, params.MerchantID, charge.PaymentIntentID)
	if err != nil {
		return nil, err
	}
	adapter, route, err := s.adapterForIntent(intent)
	if err != nil {
		return nil, err
	}

	refundID := uuid.New()
	out, err := adapter.Refund(ctx, acquirer.RefundInput{
		RequestID:         refundID.String(),
		AcquirerReference: deref(charge.AcquirerReference),
		Amount:            amount,
		Currency:          charge.Currency,
		Route:             route,
	})
	if err != nil {
		return nil, apperror.Upstream(fmt.Errorf("refund via %s: %w", route.Adapter, err))
	}
	if out.Outcome == acquirer.OutcomeFailed {
		return nil, apperror.ErrCardDeclined(out.Processor.Code, failureMessage(out.Processor, "refund failed"))
	}

	now := s.clock.Now()
	refund := &domain.Refund{
		ID:         refundID,
		MerchantID: params.MerchantID,
		ChargeID:   charge.ID,
		Amount:     amount,
		Currency:   charge.Currency,
		Reason:     params.Reason,
		Status:     domain.RefundStatusSucceeded,
		Metadata:   params.Metadata,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if out.AcquirerReference != "" {
		refund.AcquirerReference = &out.AcquirerReference
	}
	if err := s.refundRepo.Create(ctx, refund); err != nil {
		return nil, apperror.Internal(fmt.Errorf("create refund: %w", err))
	}

	updated, err := s.chargeRepo.ApplyRefund(ctx, charge.ID, amount)
	if err != nil {
		return nil, apperror.Internal(fmt.Errorf("apply refund to charge: %w", err))
	}
	if updated == nil {
		// the acquirer accepted but a concurrent refund consumed the headroom
		return nil, apperror.Internal(fmt.Errorf("refund %s exceeded captured amount on charge %s", refund.ID, charge.ID))
	}

	s.recordLedger(ctx, refund.MerchantID, domain.BalanceTxRefund, refund.ID, -amount, refund.Currency)
	s.emitter.Emit(ctx, refund.MerchantID, domain.EventRefundCreated, refund)
	s.emitter.Emit(ctx, refund.MerchantID, domain.EventRefundSucceeded, refund)

	s.log.Info().
		Str("refund_id", refund.ID.String()).
		Str("charge_id", charge.ID.String()).
		Int64("amount", amount).
		Msg("refund processed")
	return refund, nil
}

// GetRefund fetches one refund, merchant-scoped.
func (s *PaymentOrchestratorImpl) GetRefund(ctx context.Context, merchantID, id uuid.UUID) (*domain.Refund, error) {
	refund, err := s.refundRepo.GetByID(ctx, merchantID, id)
	if err != nil {
		return nil, apperror.Internal(fmt.Errorf("get refund: %w", err))
	}
	if refund == nil {
		return nil, apperror.ErrNotFound("refund")
	}
	return refund, nil
}

// ListRefunds returns refunds newest first.
func (s *PaymentOrchestratorImpl) ListRefunds(ctx context.Context, params ports.RefundListParams) ([]domain.Refund, int64, error) {
	refunds, total, err := s.refundRepo.List(ctx, params)
	if err != nil {
		return nil, 0, apperror.Internal(fmt.Errorf("list refunds: %w", err))
	}
	return refunds, total, nil
}

// GetCharge fetches one charge, merchant-scoped.
func (s *PaymentOrchestratorImpl) GetCharge(ctx context.Context, merchantID, id uuid.UUID) (*domain.Charge, error) {
	charge, err := s.chargeRepo.GetByID(ctx, merchantID, id)
	if err != nil {
		return nil, apperror.Internal(fmt.Errorf("get charge: %w", err))
	}
	if charge == nil {
		return nil, apperror.ErrNotFound("charge")
	}
	return charge, nil
}

// ListCharges returns charges newest first.
func (s *PaymentOrchestratorImpl) ListCharges(ctx context.Context, params ports.ChargeListParams) ([]domain.Charge, int64, error) {
	charges, total, err := s.chargeRepo.List(ctx, params)
	if err != nil {
		return nil, 0, apperror.Internal(fmt.Errorf("list charges: %w", err))
	}
	return charges, total, nil
}

// --- internal helpers ---

// resolveCard turns the confirm payload into a full card, consuming the
// vault token when one was supplied.
func (s *PaymentOrchestratorImpl) resolveCard(ctx context.Context, params ports.ConfirmParams) (*domain.Card, error) {
	switch {
	case params.Token != "":
		if !strings.HasPrefix(params.Token, CardTokenPrefix) {
			return nil, apperror.ErrInvalidToken()
		}
		return s.tokens.Redeem(ctx, params.MerchantID, params.Token)
	case params.Card != nil:
		if !params.Card.ValidLuhn() {
			return nil, apperror.ValidationParam("invalid card number", "payment_method.number")
		}
		return params.Card, nil
	default:
		return nil, apperror.ValidationParam("payment_method is required", "payment_method")
	}
}

func (s *PaymentOrchestratorImpl) buildAuthorizeInput(intent *domain.PaymentIntent, merchant *domain.Merchant, card *domain.Card, route *domain.SelectedRoute, billing *ports.BillingDetails) acquirer.AuthorizeInput {
	in := acquirer.AuthorizeInput{
		RequestID:       intent.ID.String(),
		MerchantID:      merchant.ID.String(),
		PaymentIntentID: intent.ID.String(),
		Amount:          intent.Amount,
		Currency:        intent.Currency,
		Card: acquirer.CardInput{
			Number:   card.Number,
			CVV:      card.CVC,
			ExpMonth: card.ExpMonth,
			ExpYear:  card.ExpYear,
			Brand:    card.Brand(),
			Network:  card.Brand(),
			Last4:    card.Last4(),
		},
		Route:    toAcquirerRoute(route),
		Metadata: intent.Metadata,
	}
	if intent.Description != nil {
		in.StatementDescriptor = *intent.Description
	}

	name := card.Name
	var email string
	if billing != nil {
		if billing.Name != "" {
			name = billing.Name
		}
		email = billing.Email
		if a := billing.Address; a != nil {
			in.Billing = &acquirer.BillingAddress{
				Line1:      a.Line1,
				City:       a.City,
				State:      a.State,
				PostalCode: a.PostalCode,
				Country:    a.Country,
			}
		}
	}
	if intent.CustomerID != nil {
		in.Customer = &acquirer.CustomerInput{ID: intent.CustomerID.String(), Name: name, Email: email}
	} else if name != "" || email != "" {
		in.Customer = &acquirer.CustomerInput{Name: name, Email: email}
	}
	return in
}

// settleAuthorized finishes the authorized branch shared by Confirm and
// CompleteAuthentication. The intent is in processing at this point.
func (s *PaymentOrchestratorImpl) settleAuthorized(ctx context.Context, intent *domain.PaymentIntent, out *acquirer.AuthorizeOutput) (*domain.PaymentIntent, error) {
	now := s.clock.Now()
	autoCapture := intent.CaptureMethod == domain.CaptureAutomatic

	charge := &domain.Charge{
		ID:               uuid.New(),
		MerchantID:       intent.MerchantID,
		PaymentIntentID:  intent.ID,
		AmountAuthorized: out.AmountAuthorized,
		Currency:         intent.Currency,
		Status:           domain.ChargeStatusAuthorized,
		AcquirerName:     intent.Routing.Adapter,
		Processor: &domain.ProcessorResponse{
			Code:    out.Processor.Code,
			Message: out.Processor.Message,
			AVS:     out.Processor.AVS,
			CVC:     out.Processor.CVV,
			Raw:     out.Raw,
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if out.AcquirerReference != "" {
		charge.AcquirerReference = &out.AcquirerReference
	}
	if out.AuthorizationCode != "" {
		charge.AuthorizationCode = &out.AuthorizationCode
	}
	if out.Network != "" {
		charge.Network = &out.Network
	}
	if autoCapture {
		charge.Status = domain.ChargeStatusCaptured
		charge.AmountCaptured = out.AmountAuthorized
	}
	if err := s.chargeRepo.Create(ctx, charge); err != nil {
		return nil, apperror.Internal(fmt.Errorf("create charge: %w", err))
	}

	intent.ThreeDS = nil
	if autoCapture {
		intent.Status = domain.IntentStatusSucceeded
	} else {
		intent.Status = domain.IntentStatusProcessing
	}
	intent.UpdatedAt = now
	if err := s.intentRepo.Update(ctx, intent); err != nil {
		return nil, apperror.Internal(fmt.Errorf("update payment intent: %w", err))
	}

	if autoCapture {
		s.recordLedger(ctx, charge.MerchantID, domain.BalanceTxCharge, charge.ID, charge.AmountCaptured, charge.Currency)
	}

	s.emitter.Emit(ctx, charge.MerchantID, domain.EventChargeAuthorized, charge)
	if autoCapture {
		s.emitter.Emit(ctx, charge.MerchantID, domain.EventChargeCaptured, charge)
		s.emitter.Emit(ctx, intent.MerchantID, domain.EventPaymentIntentSucceeded, intent)
	} else {
		s.emitter.Emit(ctx, intent.MerchantID, domain.EventPaymentIntentProcessing, intent)
	}

	s.log.Info().
		Str("payment_intent_id", intent.ID.String()).
		Str("charge_id", charge.ID.String()).
		Bool("auto_capture", autoCapture).
		Msg("payment authorized")
	return intent, nil
}

// parkForAuthentication stores the 3DS continuation state and waits for the
// return leg.
func (s *PaymentOrchestratorImpl) parkForAuthentication(ctx context.Context, intent *domain.PaymentIntent, out *acquirer.AuthorizeOutput) (*domain.PaymentIntent, error) {
	intent.Status = domain.IntentStatusRequiresAction
	intent.ThreeDS = &domain.ThreeDSState{AcquirerReference: out.AcquirerReference}
	if out.ThreeDS != nil {
		intent.ThreeDS.Flow = out.ThreeDS.Flow
		intent.ThreeDS.RedirectURL = out.ThreeDS.RedirectURL
		intent.ThreeDS.MethodURL = out.ThreeDS.MethodURL
		intent.ThreeDS.Data = out.ThreeDS.Data
	}
	intent.UpdatedAt = s.clock.Now()
	if err := s.intentRepo.Update(ctx, intent); err != nil {
		return nil, apperror.Internal(fmt.Errorf("update payment intent: %w", err))
	}

	s.emitter.Emit(ctx, intent.MerchantID, domain.EventPaymentIntentRequiresAction, intent)
	s.log.Info().
		Str("payment_intent_id", intent.ID.String()).
		Msg("payment requires authentication")
	return intent, nil
}

// settleDeclined finishes the failed branch and returns the decline error.
func (s *PaymentOrchestratorImpl) settleDeclined(ctx context.Context, intent *domain.PaymentIntent, out *acquirer.AuthorizeOutput) error {
	now := s.clock.Now()
	charge := &domain.Charge{
		ID:               uuid.New(),
		MerchantID:       intent.MerchantID,
		PaymentIntentID:  intent.ID,
		AmountAuthorized: 0,
		Currency:         intent.Currency,
		Status:           domain.ChargeStatusFailed,
		AcquirerName:     intent.Routing.Adapter,
		Processor: &domain.ProcessorResponse{
			Code:    out.Processor.Code,
			Message: out.Processor.Message,
			Raw:     out.Raw,
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.chargeRepo.Create(ctx, charge); err != nil {
		return apperror.Internal(fmt.Errorf("create failed charge: %w", err))
	}

	intent.Status = domain.IntentStatusFailed
	intent.ThreeDS = nil
	intent.UpdatedAt = now
	if err := s.intentRepo.Update(ctx, intent); err != nil {
		return apperror.Internal(fmt.Errorf("update payment intent: %w", err))
	}

	s.emitter.Emit(ctx, intent.MerchantID, domain.EventPaymentIntentFailed, intent)
	s.emitter.Emit(ctx, charge.MerchantID, domain.EventChargeFailed, charge)

	s.log.Info().
		Str("payment_intent_id", intent.ID.String()).
		Str("decline_code", out.Processor.Code).
		Msg("payment declined")
	return apperror.ErrCardDeclined(out.Processor.Code, failureMessage(out.Processor, "Your card was declined."))
}

// revertToRequiresPaymentMethod undoes the processing claim after a
// transport failure so the client can retry.
func (s *PaymentOrchestratorImpl) revertToRequiresPaymentMethod(ctx context.Context, intent *domain.PaymentIntent) {
	intent.Status = domain.IntentStatusRequiresPaymentMethod
	intent.Routing = nil
	intent.PaymentMethod = nil
	intent.UpdatedAt = s.clock.Now()
	if _, err := s.intentRepo.UpdateIfStatus(ctx, intent, domain.IntentStatusProcessing); err != nil {
		s.log.Error().Err(err).
			Str("payment_intent_id", intent.ID.String()).
			Msg("failed to revert payment intent after adapter error")
	}
}

// revertToRequiresAction undoes the processing claim after a transport
// failure on the 3DS return leg. The continuation state stays so the client
// can retry the completion.
func (s *PaymentOrchestratorImpl) revertToRequiresAction(ctx context.Context, intent *domain.PaymentIntent) {
	intent.Status = domain.IntentStatusRequiresAction
	intent.UpdatedAt = s.clock.Now()
	if _, err := s.intentRepo.UpdateIfStatus(ctx, intent, domain.IntentStatusProcessing); err != nil {
		s.log.Error().Err(err).
			Str("payment_intent_id", intent.ID.String()).
			Msg("failed to revert payment intent after adapter error")
	}
}

func (s *PaymentOrchestratorImpl) adapterForIntent(intent *domain.PaymentIntent) (acquirer.Adapter, acquirer.Route, error) {
	if intent.Routing == nil {
		return nil, acquirer.Route{}, apperror.Internal(fmt.Errorf("payment intent %s has no resolved route", intent.ID))
	}
	adapter, err := s.registry.Get(intent.Routing.Adapter)
	if err != nil {
		return nil, acquirer.Route{}, apperror.Internal(err)
	}
	return adapter, toAcquirerRoute(intent.Routing), nil
}

// recordLedger is best-effort; a ledger write failure never fails the
// payment operation.
func (s *PaymentOrchestratorImpl) recordLedger(ctx context.Context, merchantID uuid.UUID, txType domain.BalanceTransactionType, sourceID uuid.UUID, amount int64, currency string) {
	entry := &domain.BalanceTransaction{
		ID:         uuid.New(),
		MerchantID: merchantID,
		Type:       txType,
		SourceID:   sourceID,
		Amount:     amount,
		Currency:   currency,
		CreatedAt:  s.clock.Now(),
	}
	if err := s.balanceRepo.CreateTransaction(ctx, entry); err != nil {
		s.log.Warn().Err(err).
			Str("source_id", sourceID.String()).
			Msg("failed to record balance transaction")
	}
}

func toAcquirerRoute(route *domain.SelectedRoute) acquirer.Route {
	return acquirer.Route{
		Adapter:     route.Adapter,
		MerchantRef: route.MerchantRef,
		Config:      route.Config,
	}
}

func failureMessage(p acquirer.ProcessorResponse, fallback string) string {
	if p.Message != "" {
		return p.Message
	}
	return fallback
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
