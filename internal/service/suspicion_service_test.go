package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"salesguard/internal/core/domain"
	"salesguard/internal/core/ports/mocks"
	"salesguard/internal/metrics"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type suspicionTestDeps struct {
	svc      *SuspicionServiceImpl
	prices   *mocks.MockPriceHistoryRepository
	stats    *mocks.MockSaleStatsReader
	findings *mocks.MockSuspiciousActivityRepository
	metrics  *metrics.Metrics
	ctrl     *gomock.Controller
}

func setupSuspicionService(t *testing.T) *suspicionTestDeps {
	ctrl := gomock.NewController(t)
	d := &suspicionTestDeps{
		prices:   mocks.NewMockPriceHistoryRepository(ctrl),
		stats:    mocks.NewMockSaleStatsReader(ctrl),
		findings: mocks.NewMockSuspiciousActivityRepository(ctrl),
		metrics:  metrics.New(prometheus.NewRegistry()),
		ctrl:     ctrl,
	}
	rules := DefaultRules(RuleConfig{
		HighValueThreshold: decimal.NewFromInt(500000),
		Currency:           "TZS",
		RapidMaxSales:      5,
	})
	d.svc = NewSuspicionService(d.prices, d.stats, d.findings, rules, SuspicionOptions{
		RapidWindow:    5 * time.Minute,
		ActivityWindow: 7 * 24 * time.Hour,
	}, newTestClock(), d.metrics, newTestLogger())
	return d
}

func bulkSugarSale() *domain.Sale {
	return &domain.Sale{
		ID:          uuid.New(),
		WorkerID:    uuid.New(),
		ProductName: "Sugar",
		Quantity:    250,
		UnitType:    domain.UnitTypeKg,
		UnitPrice:   decimal.NewFromInt(1000),
		TotalAmount: decimal.NewFromInt(250000),
	}
}

func TestSuspicionService_Evaluate_AllFacts(t *testing.T) {
	d := setupSuspicionService(t)
	defer d.ctrl.Finish()

	sale := bulkSugarSale()
	avg := decimal.NewFromInt(40)
	recent := int64(6)
	idle := uuid.New()

	d.prices.EXPECT().Get(gomock.Any(), "sugar").Return(&domain.PriceHistory{
		ProductName: "sugar",
		MinPrice:    decimal.NewFromInt(2200),
		MaxPrice:    decimal.NewFromInt(2800),
		AvgPrice:    decimal.NewFromInt(2500),
		SaleCount:   12,
	}, nil)
	d.stats.EXPECT().AverageQuantity(gomock.Any(), "Sugar").Return(&avg, nil)
	d.stats.EXPECT().CountByWorkerSince(gomock.Any(), sale.WorkerID, testNow.Add(-5*time.Minute)).Return(recent, nil)
	d.stats.EXPECT().WorkerActivitySince(gomock.Any(), testNow.Add(-7*24*time.Hour)).Return([]domain.WorkerActivity{
		{WorkerID: sale.WorkerID, SaleCount: 1},
		{WorkerID: idle, SaleCount: 29},
	}, nil)

	findings := d.svc.Evaluate(context.Background(), sale)

	byRule := findingsByRule(findings)
	assert.ElementsMatch(t, []string{RulePriceRange, RuleHighQuantity, RuleRapidSubmission, RuleLowActivity}, keys(byRule))
	assert.Equal(t, "Unit price (1000) is significantly lower than typical range (2200 - 2800)", byRule[RulePriceRange].Reason)
	assert.Equal(t, "Quantity (250) is unusually high compared to average (40.0)", byRule[RuleHighQuantity].Reason)
	assert.Equal(t, domain.SeverityLow, byRule[RuleLowActivity].Severity)

	assert.Equal(t, 1.0, testutil.ToFloat64(d.metrics.Findings.WithLabelValues(RulePriceRange, string(domain.SeverityHigh))))
}

func TestSuspicionService_Evaluate_FailedFactSkipsOnlyDependentRules(t *testing.T) {
	d := setupSuspicionService(t)
	defer d.ctrl.Finish()

	sale := bulkSugarSale()
	avg := decimal.NewFromInt(40)

	d.prices.EXPECT().Get(gomock.Any(), "sugar").Return(nil, errors.New("get price history: timeout"))
	d.stats.EXPECT().AverageQuantity(gomock.Any(), "Sugar").Return(&avg, nil)
	d.stats.EXPECT().CountByWorkerSince(gomock.Any(), gomock.Any(), gomock.Any()).Return(int64(0), errors.New("count sales: timeout"))
	d.stats.EXPECT().WorkerActivitySince(gomock.Any(), gomock.Any()).Return(nil, errors.New("worker activity: timeout"))

	findings := d.svc.Evaluate(context.Background(), sale)

	require.Len(t, findings, 1)
	assert.Equal(t, RuleHighQuantity, findings[0].Rule)
	assert.Equal(t, 1.0, testutil.ToFloat64(d.metrics.FactFailures.WithLabelValues(factPriceHistory)))
	assert.Equal(t, 1.0, testutil.ToFloat64(d.metrics.FactFailures.WithLabelValues(factRecentSales)))
	assert.Equal(t, 1.0, testutil.ToFloat64(d.metrics.FactFailures.WithLabelValues(factWorkerActivity)))
	assert.Equal(t, 0.0, testutil.ToFloat64(d.metrics.FactFailures.WithLabelValues(factAvgQuantity)))
}

func TestSuspicionService_Evaluate_FirstSaleOfProduct(t *testing.T) {
	d := setupSuspicionService(t)
	defer d.ctrl.Finish()

	sale := bulkSugarSale()
	sale.ProductName = "Maize Flour"

	d.prices.EXPECT().Get(gomock.Any(), "maize flour").Return(nil, nil)
	d.stats.EXPECT().AverageQuantity(gomock.Any(), "Maize Flour").Return(nil, nil)
	d.stats.EXPECT().CountByWorkerSince(gomock.Any(), sale.WorkerID, gomock.Any()).Return(int64(1), nil)
	d.stats.EXPECT().WorkerActivitySince(gomock.Any(), gomock.Any()).Return(nil, nil)

	assert.Empty(t, d.svc.Evaluate(context.Background(), sale))
}

func TestSuspicionService_Evaluate_FactTimeout(t *testing.T) {
	d := setupSuspicionService(t)
	defer d.ctrl.Finish()
	d.svc.opts.FactTimeout = 20 * time.Millisecond

	sale := bulkSugarSale()
	sale.TotalAmount = decimal.NewFromInt(-5)

	blockUntilDone := func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}
	d.prices.EXPECT().Get(gomock.Any(), gomock.Any()).DoAndReturn(func(ctx context.Context, _ string) (*domain.PriceHistory, error) {
		return nil, blockUntilDone(ctx)
	})
	d.stats.EXPECT().AverageQuantity(gomock.Any(), gomock.Any()).DoAndReturn(func(ctx context.Context, _ string) (*decimal.Decimal, error) {
		return nil, blockUntilDone(ctx)
	})
	d.stats.EXPECT().CountByWorkerSince(gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(func(ctx context.Context, _ uuid.UUID, _ time.Time) (int64, error) {
		return 0, blockUntilDone(ctx)
	})
	d.stats.EXPECT().WorkerActivitySince(gomock.Any(), gomock.Any()).DoAndReturn(func(ctx context.Context, _ time.Time) ([]domain.WorkerActivity, error) {
		return nil, blockUntilDone(ctx)
	})

	findings := d.svc.Evaluate(context.Background(), sale)

	require.Len(t, findings, 1)
	assert.Equal(t, RuleNegativeTotal, findings[0].Rule)
}

func TestSuspicionService_RecordFindings(t *testing.T) {
	d := setupSuspicionService(t)
	defer d.ctrl.Finish()

	sale := bulkSugarSale()
	findings := []domain.Finding{
		{Rule: RulePriceRange, Reason: "low price", Severity: domain.SeverityHigh},
		{Rule: RuleHighQuantity, Reason: "bulk", Severity: domain.SeverityMedium},
	}

	d.findings.EXPECT().CreateBatch(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, rows []domain.SuspiciousActivity) error {
		require.Len(t, rows, 2)
		for i, r := range rows {
			assert.Equal(t, sale.ID, r.SaleID)
			assert.Equal(t, sale.WorkerID, r.WorkerID)
			assert.Equal(t, findings[i].Reason, r.Reason)
			assert.Equal(t, findings[i].Severity, r.Severity)
			assert.False(t, r.Reviewed)
			assert.Equal(t, testNow, r.CreatedAt)
		}
		return nil
	})

	require.NoError(t, d.svc.RecordFindings(context.Background(), sale, findings))
}

func TestSuspicionService_RecordFindings_Empty(t *testing.T) {
	d := setupSuspicionService(t)
	defer d.ctrl.Finish()

	assert.NoError(t, d.svc.RecordFindings(context.Background(), bulkSugarSale(), nil))
}

func TestSuspicionService_RecordFindings_Error(t *testing.T) {
	d := setupSuspicionService(t)
	defer d.ctrl.Finish()

	d.findings.EXPECT().CreateBatch(gomock.Any(), gomock.Any()).Return(errors.New("insert suspicious activity: deadlock"))

	err := d.svc.RecordFindings(context.Background(), bulkSugarSale(), []domain.Finding{{Reason: "x", Severity: domain.SeverityLow}})
	assert.ErrorContains(t, err, "record findings")
}
