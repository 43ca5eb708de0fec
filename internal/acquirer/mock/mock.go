// Package mock provides a deterministic in-process acquirer used in
// development and tests. Outcomes are selected by amount so test suites can
// exercise every branch of the orchestrator without network access.
package mock

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"payment-api-gateway/internal/acquirer"
)

// Magic amounts, in minor units.
const (
	AmountRequiresAction int64 = 66600
	AmountDeclined       int64 = 99900
)

// Adapter simulates an acquirer with 50-150ms of latency per call, enough
// to expose concurrency bugs under parallel tests.
type Adapter struct {
	// Delay disables the simulated latency when false.
	Delay bool
}

var _ acquirer.Adapter = (*Adapter)(nil)
var _ acquirer.Voider = (*Adapter)(nil)
var _ acquirer.ThreeDSAuthorizer = (*Adapter)(nil)

// New returns a mock adapter with simulated latency enabled.
func New() *Adapter {
	return &Adapter{Delay: true}
}

func (a *Adapter) Name() string { return "mock" }

func (a *Adapter) Authorize(ctx context.Context, in acquirer.AuthorizeInput) (*acquirer.AuthorizeOutput, error) {
	if err := a.sleep(ctx); err != nil {
		return nil, err
	}
	switch in.Amount {
	case AmountRequiresAction:
		ref := "mock_3ds_" + in.PaymentIntentID
		return &acquirer.AuthorizeOutput{
			Outcome:           acquirer.OutcomeRequiresAction,
			AcquirerReference: ref,
			ThreeDS: &acquirer.ThreeDSAction{
				Flow:        "redirect",
				RedirectURL: fmt.Sprintf("https://mock-acquirer.local/3ds/%s", in.PaymentIntentID),
				Data:        map[string]string{"md": ref},
			},
		}, nil
	case AmountDeclined:
		return &acquirer.AuthorizeOutput{
			Outcome: acquirer.OutcomeFailed,
			Processor: acquirer.ProcessorResponse{
				Code:    "05",
				Message: "Do not honor",
			},
		}, nil
	default:
		return &acquirer.AuthorizeOutput{
			Outcome:           acquirer.OutcomeAuthorized,
			AmountAuthorized:  in.Amount,
			AcquirerReference: "mock_auth_" + in.PaymentIntentID,
			AuthorizationCode: "999999",
			Network:           in.Card.Network,
			Processor: acquirer.ProcessorResponse{
				Code:    "00",
				Message: "Approved",
				AVS:     "Y",
				CVV:     "M",
			},
		}, nil
	}
}

func (a *Adapter) AuthorizeWith3DS(ctx context.Context, in acquirer.ContinueInput) (*acquirer.AuthorizeOutput, error) {
	if err := a.sleep(ctx); err != nil {
		return nil, err
	}
	return &acquirer.AuthorizeOutput{
		Outcome:           acquirer.OutcomeAuthorized,
		AmountAuthorized:  in.Amount,
		AcquirerReference: in.AcquirerReference,
		AuthorizationCode: "999999",
		Processor: acquirer.ProcessorResponse{
			Code:    "00",
			Message: "Approved",
		},
	}, nil
}

func (a *Adapter) Capture(ctx context.Context, in acquirer.CaptureInput) (*acquirer.CaptureOutput, error) {
	if err := a.sleep(ctx); err != nil {
		return nil, err
	}
	return &acquirer.CaptureOutput{
		Outcome:           acquirer.OutcomeSucceeded,
		AcquirerReference: in.AcquirerReference,
		Processor:         acquirer.ProcessorResponse{Code: "00", Message: "Captured"},
	}, nil
}

func (a *Adapter) Refund(ctx context.Context, in acquirer.RefundInput) (*acquirer.RefundOutput, error) {
	if err := a.sleep(ctx); err != nil {
		return nil, err
	}
	return &acquirer.RefundOutput{
		Outcome:           acquirer.OutcomeSucceeded,
		AcquirerReference: in.AcquirerReference,
		Processor:         acquirer.ProcessorResponse{Code: "00", Message: "Refunded"},
	}, nil
}

func (a *Adapter) Void(ctx context.Context, in acquirer.VoidInput) (*acquirer.VoidOutput, error) {
	if err := a.sleep(ctx); err != nil {
		return nil, err
	}
	return &acquirer.VoidOutput{
		Outcome:           acquirer.OutcomeSucceeded,
		AcquirerReference: in.AcquirerReference,
		Processor:         acquirer.ProcessorResponse{Code: "00", Message: "Voided"},
	}, nil
}

func (a *Adapter) sleep(ctx context.Context) error {
	if !a.Delay {
		return ctx.Err()
	}
	d := time.Duration(50+rand.Intn(100)) * time.Millisecond
	select {
	case <-time.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
