package service

import (
	"context"
	"sync"

	"storefront/internal/pricing"
	"storefront/internal/util"

	"go.uber.org/zap"
)

// RatesAPI serves the server-owned pricing rates.
type RatesAPI interface {
	PricingConfig(ctx context.Context) (*pricing.Rates, error)
}

// RatesProvider holds the GST rate and delivery fee used for totals. It
// starts from the configured defaults and, when enabled, adopts the rates
// published by the API.
type RatesProvider struct {
	api        RatesAPI
	fromServer bool
	logger     *zap.Logger

	mu    sync.RWMutex
	rates pricing.Rates
}

func NewRatesProvider(api RatesAPI, defaults pricing.Rates, fromServer bool) *RatesProvider {
	return &RatesProvider{
		api:        api,
		fromServer: fromServer,
		rates:      defaults,
		logger:     util.GetLogger(),
	}
}

// Load refreshes the rates from the API. On failure the current rates stay
// in effect.
func (p *RatesProvider) Load(ctx context.Context) pricing.Rates {
	if !p.fromServer {
		return p.Rates()
	}

	ctx, span := util.StartSpan(ctx, "RatesProvider.Load")
	defer span.End()

	rates, err := p.api.PricingConfig(ctx)
	if err != nil {
		p.logger.Warn("Using configured pricing rates, server rates unavailable", zap.Error(err))
		return p.Rates()
	}

	p.mu.Lock()
	p.rates = *rates
	p.mu.Unlock()

	p.logger.Info("Loaded pricing rates",
		zap.String("gst_rate", rates.GSTRate.String()),
		zap.String("delivery_fee", rates.DeliveryFee.String()))
	return *rates
}

func (p *RatesProvider) Rates() pricing.Rates {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.rates
}
