package service

import (
	"context"
	"fmt"

	"salesguard/internal/core/domain"
	"salesguard/internal/core/ports"
	"salesguard/pkg/apperror"
	"salesguard/pkg/clock"

	"github.com/shopspring/decimal"
)

type priceStatsService struct {
	repo  ports.PriceHistoryRepository
	clock clock.Clock
}

// NewPriceStatsService creates the per-product price statistics store.
func NewPriceStatsService(repo ports.PriceHistoryRepository, clk clock.Clock) ports.PriceStatsService {
	return &priceStatsService{repo: repo, clock: clk}
}

// RecordObservation folds one sale price into the product's aggregate.
// The merge happens in the storage layer so concurrent observations of
// the same product are never lost.
func (s *priceStatsService) RecordObservation(ctx context.Context, productName string, unitPrice decimal.Decimal) error {
	key := domain.ProductKey(productName)
	if key == "" {
		return fmt.Errorf("record price observation: %w", domain.ErrProductNameRequired)
	}
	if err := s.repo.Upsert(ctx, key, unitPrice, s.clock.Now()); err != nil {
		return fmt.Errorf("record price observation for %q: %w", key, err)
	}
	return nil
}

// GetPriceHistory returns the aggregate for productName, matched case
// insensitively. Returns nil, nil if the product was never sold.
func (s *priceStatsService) GetPriceHistory(ctx context.Context, productName string) (*domain.PriceHistory, error) {
	h, err := s.repo.Get(ctx, domain.ProductKey(productName))
	if err != nil {
		return nil, apperror.InternalError(err)
	}
	return h, nil
}

// ListPriceHistory returns every product aggregate.
func (s *priceStatsService) ListPriceHistory(ctx context.Context) ([]domain.PriceHistory, error) {
	list, err := s.repo.List(ctx)
	if err != nil {
		return nil, apperror.InternalError(err)
	}
	return list, nil
}
