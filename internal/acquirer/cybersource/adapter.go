package cybersource

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"payment-api-gateway/internal/acquirer"
	"payment-api-gateway/internal/core/ports"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Defaults applied when the authorization carries no billing address.
const (
	defaultBillToCountry = "MX"
	defaultBillToPostal  = "00000"
)

// Adapter implements the acquirer contract against CyberSource's
// /pts/v2/payments API family.
type Adapter struct {
	client *client
	logger zerolog.Logger
}

var _ acquirer.Adapter = (*Adapter)(nil)
var _ acquirer.Voider = (*Adapter)(nil)
var _ acquirer.ThreeDSAuthorizer = (*Adapter)(nil)

// New builds a CyberSource adapter from config.
func New(cfg Config, clock ports.Clock, logger zerolog.Logger) (*Adapter, error) {
	log := logger.With().Str("adapter", "cybersource").Logger()
	c, err := newClient(cfg, clock, log)
	if err != nil {
		return nil, err
	}
	return &Adapter{client: c, logger: log}, nil
}

func (a *Adapter) Name() string { return "cybersource" }

// --- wire types ---

type clientReferenceInformation struct {
	Code string `json:"code"`
}

type processingInformation struct {
	Capture           bool     `json:"capture"`
	CommerceIndicator string   `json:"commerceIndicator,omitempty"`
	ActionList        []string `json:"actionList,omitempty"`
}

type cardInformation struct {
	Number          string `json:"number"`
	ExpirationMonth string `json:"expirationMonth"`
	ExpirationYear  string `json:"expirationYear"`
	SecurityCode    string `json:"securityCode,omitempty"`
}

type paymentInformation struct {
	Card cardInformation `json:"card"`
}

type amountDetails struct {
	TotalAmount string `json:"totalAmount"`
	Currency    string `json:"currency"`
}

type billTo struct {
	FirstName          string `json:"firstName,omitempty"`
	LastName           string `json:"lastName,omitempty"`
	Address1           string `json:"address1,omitempty"`
	Locality           string `json:"locality,omitempty"`
	AdministrativeArea string `json:"administrativeArea,omitempty"`
	PostalCode         string `json:"postalCode"`
	Country            string `json:"country"`
	Email              string `json:"email,omitempty"`
}

type orderInformation struct {
	AmountDetails amountDetails `json:"amountDetails"`
	BillTo        *billTo       `json:"billTo,omitempty"`
}

type consumerAuthentication struct {
	CAVV                        string `json:"cavv,omitempty"`
	ECIRaw                      string `json:"eciRaw,omitempty"`
	XID                         string `json:"xid,omitempty"`
	SignedPares                 string `json:"signedPares,omitempty"`
	AuthenticationTransactionID string `json:"authenticationTransactionId,omitempty"`
}

type paymentRequest struct {
	ClientReferenceInformation clientReferenceInformation `json:"clientReferenceInformation"`
	ProcessingInformation      processingInformation      `json:"processingInformation"`
	PaymentInformation         *paymentInformation        `json:"paymentInformation,omitempty"`
	OrderInformation           orderInformation           `json:"orderInformation"`
	ConsumerAuthentication     *consumerAuthentication    `json:"consumerAuthenticationInformation,omitempty"`
}

type followOnRequest struct {
	ClientReferenceInformation clientReferenceInformation `json:"clientReferenceInformation"`
	OrderInformation           *orderInformation          `json:"orderInformation,omitempty"`
}

type errorInformation struct {
	Reason  string `json:"reason"`
	Message string `json:"message"`
}

type avsResult struct {
	Code string `json:"code"`
}

type cardVerificationResult struct {
	ResultCode string `json:"resultCode"`
}

type processorInformation struct {
	ApprovalCode     string                 `json:"approvalCode"`
	ResponseCode     string                 `json:"responseCode"`
	AVS              avsResult              `json:"avs"`
	CardVerification cardVerificationResult `json:"cardVerification"`
}

type consumerAuthResponse struct {
	AcsURL                      string `json:"acsUrl"`
	PAReq                       string `json:"pareq"`
	AuthenticationTransactionID string `json:"authenticationTransactionId"`
	StepUpURL                   string `json:"stepUpUrl"`
}

type paymentResponse struct {
	ID                     string                `json:"id"`
	Status                 string                `json:"status"`
	ErrorInformation       *errorInformation     `json:"errorInformation"`
	ProcessorInformation   *processorInformation `json:"processorInformation"`
	ConsumerAuthentication *consumerAuthResponse `json:"consumerAuthenticationInformation"`
}

// formatAmount renders minor units as the decimal string CyberSource expects,
// always with two fractional digits.
func formatAmount(minor int64) string {
	return decimal.NewFromInt(minor).Div(decimal.NewFromInt(100)).StringFixed(2)
}

func buildBillTo(in acquirer.AuthorizeInput) *billTo {
	bt := &billTo{
		Country:    defaultBillToCountry,
		PostalCode: defaultBillToPostal,
	}
	if in.Customer != nil {
		bt.Email = in.Customer.Email
		first, last, _ := strings.Cut(in.Customer.Name, " ")
		bt.FirstName = first
		bt.LastName = last
	}
	if b := in.Billing; b != nil {
		bt.Address1 = b.Line1
		bt.Locality = b.City
		bt.AdministrativeArea = b.State
		if b.PostalCode != "" {
			bt.PostalCode = b.PostalCode
		}
		if b.Country != "" {
			bt.Country = b.Country
		}
	}
	return bt
}

// --- operations ---

func (a *Adapter) Authorize(ctx context.Context, in acquirer.AuthorizeInput) (*acquirer.AuthorizeOutput, error) {
	req := paymentRequest{
		ClientReferenceInformation: clientReferenceInformation{Code: in.PaymentIntentID},
		ProcessingInformation: processingInformation{
			Capture:           false,
			CommerceIndicator: "internet",
		},
		PaymentInformation: &paymentInformation{
			Card: cardInformation{
				Number:          in.Card.Number,
				ExpirationMonth: fmt.Sprintf("%02d", in.Card.ExpMonth),
				ExpirationYear:  fmt.Sprintf("%04d", in.Card.ExpYear),
				SecurityCode:    in.Card.CVV,
			},
		},
		OrderInformation: orderInformation{
			AmountDetails: amountDetails{
				TotalAmount: formatAmount(in.Amount),
				Currency:    strings.ToUpper(in.Currency),
			},
			BillTo: buildBillTo(in),
		},
	}
	if in.ThreeDS != nil {
		req.ConsumerAuthentication = &consumerAuthentication{
			CAVV:   in.ThreeDS.CAVV,
			ECIRaw: in.ThreeDS.ECI,
			XID:    in.ThreeDS.XID,
		}
	}

	resp, raw, err := a.send(ctx, "/pts/v2/payments", req)
	if err != nil {
		return nil, err
	}
	return a.mapAuthorize(in.Amount, resp, raw), nil
}

func (a *Adapter) AuthorizeWith3DS(ctx context.Context, in acquirer.ContinueInput) (*acquirer.AuthorizeOutput, error) {
	req := paymentRequest{
		ClientReferenceInformation: clientReferenceInformation{Code: in.RequestID},
		ProcessingInformation: processingInformation{
			Capture:           false,
			CommerceIndicator: "internet",
			ActionList:        []string{"VALIDATE_CONSUMER_AUTHENTICATION"},
		},
		OrderInformation: orderInformation{
			AmountDetails: amountDetails{
				TotalAmount: formatAmount(in.Amount),
				Currency:    strings.ToUpper(in.Currency),
			},
		},
		ConsumerAuthentication: &consumerAuthentication{
			SignedPares:                 in.PaRes,
			AuthenticationTransactionID: in.TransactionID,
		},
	}

	resp, raw, err := a.send(ctx, "/pts/v2/payments", req)
	if err != nil {
		return nil, err
	}
	out := a.mapAuthorize(in.Amount, resp, raw)
	// requires_action is not a legal verdict on the return leg
	if out.Outcome == acquirer.OutcomeRequiresAction {
		out = &acquirer.AuthorizeOutput{
			Outcome: acquirer.OutcomeFailed,
			Processor: acquirer.ProcessorResponse{
				Message: "authentication did not complete",
			},
			Raw: raw,
		}
	}
	return out, nil
}

func (a *Adapter) Capture(ctx context.Context, in acquirer.CaptureInput) (*acquirer.CaptureOutput, error) {
	req := followOnRequest{
		ClientReferenceInformation: clientReferenceInformation{Code: in.RequestID},
		OrderInformation: &orderInformation{
			AmountDetails: amountDetails{
				TotalAmount: formatAmount(in.Amount),
				Currency:    strings.ToUpper(in.Currency),
			},
		},
	}
	resp, raw, err := a.send(ctx, "/pts/v2/payments/"+in.AcquirerReference+"/captures", req)
	if err != nil {
		return nil, err
	}
	return &acquirer.CaptureOutput{
		Outcome:           mapFollowOn(resp.Status, "PENDING"),
		AcquirerReference: resp.ID,
		Processor:         processorOf(resp),
		Raw:               raw,
	}, nil
}

func (a *Adapter) Refund(ctx context.Context, in acquirer.RefundInput) (*acquirer.RefundOutput, error) {
	req := followOnRequest{
		ClientReferenceInformation: clientReferenceInformation{Code: in.RequestID},
		OrderInformation: &orderInformation{
			AmountDetails: amountDetails{
				TotalAmount: formatAmount(in.Amount),
				Currency:    strings.ToUpper(in.Currency),
			},
		},
	}
	resp, raw, err := a.send(ctx, "/pts/v2/payments/"+in.AcquirerReference+"/refunds", req)
	if err != nil {
		return nil, err
	}
	return &acquirer.RefundOutput{
		Outcome:           mapFollowOn(resp.Status, "PENDING"),
		AcquirerReference: resp.ID,
		Processor:         processorOf(resp),
		Raw:               raw,
	}, nil
}

func (a *Adapter) Void(ctx context.Context, in acquirer.VoidInput) (*acquirer.VoidOutput, error) {
	req := followOnRequest{
		ClientReferenceInformation: clientReferenceInformation{Code: in.RequestID},
	}
	resp, raw, err := a.send(ctx, "/pts/v2/payments/"+in.AcquirerReference+"/voids", req)
	if err != nil {
		return nil, err
	}
	return &acquirer.VoidOutput{
		Outcome:           mapFollowOn(resp.Status, "VOIDED", "REVERSED"),
		AcquirerReference: resp.ID,
		Processor:         processorOf(resp),
		Raw:               raw,
	}, nil
}

func (a *Adapter) send(ctx context.Context, path string, req any) (*paymentResponse, json.RawMessage, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal cybersource request: %w", err)
	}
	_, raw, err := a.client.post(ctx, path, body)
	if err != nil {
		return nil, nil, err
	}
	var resp paymentResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, nil, fmt.Errorf("decode cybersource response: %w", err)
	}
	return &resp, raw, nil
}

func (a *Adapter) mapAuthorize(amount int64, resp *paymentResponse, raw json.RawMessage) *acquirer.AuthorizeOutput {
	switch resp.Status {
	case "AUTHORIZED":
		out := &acquirer.AuthorizeOutput{
			Outcome:           acquirer.OutcomeAuthorized,
			AmountAuthorized:  amount,
			AcquirerReference: resp.ID,
			Processor:         processorOf(resp),
			Raw:               raw,
		}
		if p := resp.ProcessorInformation; p != nil {
			out.AuthorizationCode = p.ApprovalCode
		}
		return out
	case "PENDING_AUTHENTICATION":
		action := &acquirer.ThreeDSAction{Flow: "redirect", Data: map[string]string{}}
		if ca := resp.ConsumerAuthentication; ca != nil {
			action.RedirectURL = ca.AcsURL
			if action.RedirectURL == "" {
				action.RedirectURL = ca.StepUpURL
			}
			if ca.PAReq != "" {
				action.Data["pareq"] = ca.PAReq
			}
			if ca.AuthenticationTransactionID != "" {
				action.Data["authentication_transaction_id"] = ca.AuthenticationTransactionID
			}
		}
		return &acquirer.AuthorizeOutput{
			Outcome:           acquirer.OutcomeRequiresAction,
			AcquirerReference: resp.ID,
			ThreeDS:           action,
			Raw:               raw,
		}
	default:
		out := &acquirer.AuthorizeOutput{
			Outcome:   acquirer.OutcomeFailed,
			Processor: processorOf(resp),
			Raw:       raw,
		}
		if out.Processor.Message == "" {
			out.Processor.Message = "payment declined"
		}
		return out
	}
}

func mapFollowOn(status string, ok ...string) acquirer.Outcome {
	for _, s := range ok {
		if status == s {
			return acquirer.OutcomeSucceeded
		}
	}
	return acquirer.OutcomeFailed
}

func processorOf(resp *paymentResponse) acquirer.ProcessorResponse {
	pr := acquirer.ProcessorResponse{}
	if p := resp.ProcessorInformation; p != nil {
		pr.Code = p.ResponseCode
		pr.AVS = p.AVS.Code
		pr.CVV = p.CardVerification.ResultCode
	}
	if e := resp.ErrorInformation; e != nil {
		pr.Message = e.Message
		if pr.Code == "" {
			pr.Code = e.Reason
		}
	}
	return pr
}
