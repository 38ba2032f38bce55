package service

import (
	"context"
	"fmt"
	"time"

	"salesguard/internal/core/domain"
	"salesguard/internal/core/ports"
	"salesguard/internal/metrics"
	"salesguard/pkg/clock"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// Fact names, used for logging and the fact latency metric.
const (
	factPriceHistory   = "price_history"
	factAvgQuantity    = "avg_quantity"
	factRecentSales    = "recent_sales"
	factWorkerActivity = "worker_activity"
)

// SuspicionOptions configures the look-back windows of the engine.
type SuspicionOptions struct {
	RapidWindow    time.Duration
	ActivityWindow time.Duration
	// FactTimeout bounds each evaluation's lookups; zero means no bound.
	FactTimeout time.Duration
}

// SuspicionServiceImpl implements ports.SuspicionEngine.
type SuspicionServiceImpl struct {
	prices   ports.PriceHistoryRepository
	stats    ports.SaleStatsReader
	findings ports.SuspiciousActivityRepository
	rules    []Rule
	opts     SuspicionOptions
	clock    clock.Clock
	metrics  *metrics.Metrics
	log      zerolog.Logger
}

// NewSuspicionService creates a new SuspicionServiceImpl.
func NewSuspicionService(
	prices ports.PriceHistoryRepository,
	stats ports.SaleStatsReader,
	findings ports.SuspiciousActivityRepository,
	rules []Rule,
	opts SuspicionOptions,
	clk clock.Clock,
	m *metrics.Metrics,
	log zerolog.Logger,
) *SuspicionServiceImpl {
	return &SuspicionServiceImpl{
		prices:   prices,
		stats:    stats,
		findings: findings,
		rules:    rules,
		opts:     opts,
		clock:    clk,
		metrics:  m,
		log:      log,
	}
}

// Evaluate gathers the facts for sale concurrently and runs every rule.
// A failed lookup is logged and leaves its fact empty; it never cancels
// the other lookups or fails the evaluation.
func (s *SuspicionServiceImpl) Evaluate(ctx context.Context, sale *domain.Sale) []domain.Finding {
	start := time.Now()
	facts := s.gatherFacts(ctx, sale)
	findings := ApplyRules(s.rules, facts)
	s.metrics.ObserveEvaluateLatency(time.Since(start))

	for _, f := range findings {
		s.metrics.IncrementFinding(f.Rule, string(f.Severity))
	}
	return findings
}

func (s *SuspicionServiceImpl) gatherFacts(ctx context.Context, sale *domain.Sale) Facts {
	if s.opts.FactTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.FactTimeout)
		defer cancel()
	}

	now := s.clock.Now()
	facts := Facts{Sale: sale}

	// Plain Group: one failed lookup must not cancel the others.
	var g errgroup.Group

	g.Go(func() error {
		h, err := fetchFact(s, factPriceHistory, sale, func() (*domain.PriceHistory, error) {
			return s.prices.Get(ctx, sale.ProductKey())
		})
		if err == nil {
			facts.PriceHistory = h
		}
		return nil
	})

	g.Go(func() error {
		avg, err := fetchFact(s, factAvgQuantity, sale, func() (*decimal.Decimal, error) {
			return s.stats.AverageQuantity(ctx, sale.ProductName)
		})
		if err == nil {
			facts.AvgQuantity = avg
		}
		return nil
	})

	g.Go(func() error {
		count, err := fetchFact(s, factRecentSales, sale, func() (int64, error) {
			return s.stats.CountByWorkerSince(ctx, sale.WorkerID, now.Add(-s.opts.RapidWindow))
		})
		if err == nil {
			facts.RecentSales = &count
		}
		return nil
	})

	g.Go(func() error {
		activity, err := fetchFact(s, factWorkerActivity, sale, func() ([]domain.WorkerActivity, error) {
			return s.stats.WorkerActivitySince(ctx, now.Add(-s.opts.ActivityWindow))
		})
		if err == nil {
			if activity == nil {
				activity = []domain.WorkerActivity{}
			}
			facts.Activity = activity
		}
		return nil
	})

	_ = g.Wait()
	return facts
}

// fetchFact times one lookup and logs its failure.
func fetchFact[T any](s *SuspicionServiceImpl, name string, sale *domain.Sale, fetch func() (T, error)) (T, error) {
	start := time.Now()
	v, err := fetch()
	s.metrics.ObserveFactLatency(name, time.Since(start))
	if err != nil {
		s.metrics.IncrementFactFailure(name)
		s.log.Warn().Err(err).
			Str("fact", name).
			Str("sale_id", sale.ID.String()).
			Msg("suspicion fact lookup failed, dependent rules skipped")
	}
	return v, err
}

// RecordFindings persists findings for sale in one write. No findings is
// a no-op.
func (s *SuspicionServiceImpl) RecordFindings(ctx context.Context, sale *domain.Sale, findings []domain.Finding) error {
	if len(findings) == 0 {
		return nil
	}

	now := s.clock.Now()
	activities := make([]domain.SuspiciousActivity, 0, len(findings))
	for _, f := range findings {
		activities = append(activities, domain.NewSuspiciousActivity(sale, f, now))
	}

	if err := s.findings.CreateBatch(ctx, activities); err != nil {
		return fmt.Errorf("record findings: %w", err)
	}

	s.log.Info().
		Str("sale_id", sale.ID.String()).
		Str("worker_id", sale.WorkerID.String()).
		Int("findings", len(findings)).
		Msg("suspicious activity recorded")
	return nil
}
