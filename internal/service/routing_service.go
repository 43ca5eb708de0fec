package service

import (
	"context"

	"payment-api-gateway/internal/core/domain"

	"github.com/rs/zerolog"
)

// RouterImpl resolves which acquirer handles a payment intent.
type RouterImpl struct {
	defaultAdapter string // environment-level fallback, e.g. "mock"
	log            zerolog.Logger
}

// NewRouter creates a RouterImpl. defaultAdapter comes from configuration and
// may be empty.
func NewRouter(defaultAdapter string, log zerolog.Logger) *RouterImpl {
	return &RouterImpl{defaultAdapter: defaultAdapter, log: log}
}

// PickRoute resolves the acquirer route for an intent. A route already
// persisted on the intent wins, so retries and 3DS continuation always hit
// the same acquirer.
func (r *RouterImpl) PickRoute(ctx context.Context, merchant *domain.Merchant, intent *domain.PaymentIntent) (*domain.SelectedRoute, error) {
	if intent.Routing != nil && intent.Routing.Adapter != "" {
		return intent.Routing, nil
	}

	cfg := merchant.RoutingConfig
	strategy := cfg.Strategy
	if strategy == "" {
		strategy = domain.RoutingStrategyDefault
	}
	if strategy != domain.RoutingStrategyDefault {
		// rules and smart are reserved; fall back to the default path
		r.log.Debug().
			Str("merchant_id", merchant.ID.String()).
			Str("strategy", string(strategy)).
			Msg("routing strategy not implemented, using default")
	}

	if cfg.DefaultAdapter != "" {
		if account, ok := cfg.Adapters[cfg.DefaultAdapter]; ok && account.Enabled {
			return &domain.SelectedRoute{
				Adapter:     cfg.DefaultAdapter,
				MerchantRef: account.MerchantRef,
				Config:      account.Config,
			}, nil
		}
	}

	if r.defaultAdapter != "" {
		return &domain.SelectedRoute{Adapter: r.defaultAdapter}, nil
	}
	return &domain.SelectedRoute{Adapter: "mock"}, nil
}
