package service

import (
	"context"
	"fmt"

	"salesguard/internal/core/domain"
	"salesguard/internal/core/ports"
	"salesguard/pkg/apperror"

	"golang.org/x/sync/errgroup"
)

const (
	topProductsLimit = 10
	dailyReportDays  = 30
)

// reportingService implements ports.ReportingService.
type reportingService struct {
	repo     ports.ReportRepository
	timezone string
}

// NewReportingService creates a new reporting service. Daily totals are
// bucketed by calendar day in timezone.
func NewReportingService(repo ports.ReportRepository, timezone string) ports.ReportingService {
	return &reportingService{repo: repo, timezone: timezone}
}

// Summary runs the three summary queries concurrently.
func (s *reportingService) Summary(ctx context.Context, r domain.ReportRange) (*domain.SummaryReport, error) {
	if err := validateRange(r); err != nil {
		return nil, err
	}

	report := &domain.SummaryReport{}
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		summary, err := s.repo.Summary(ctx, r)
		if err != nil {
			return err
		}
		report.Summary = *summary
		return nil
	})
	g.Go(func() error {
		top, err := s.repo.TopProducts(ctx, r, topProductsLimit)
		if err != nil {
			return err
		}
		report.TopProducts = top
		return nil
	})
	g.Go(func() error {
		perf, err := s.repo.WorkerPerformance(ctx, r)
		if err != nil {
			return err
		}
		report.WorkerPerformance = perf
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("build summary report: %w", err))
	}
	if report.TopProducts == nil {
		report.TopProducts = []domain.ProductSales{}
	}
	if report.WorkerPerformance == nil {
		report.WorkerPerformance = []domain.WorkerPerformance{}
	}
	return report, nil
}

// Daily returns per-day totals for the last 30 days that had sales.
func (s *reportingService) Daily(ctx context.Context, r domain.ReportRange) ([]domain.DailySales, error) {
	if err := validateRange(r); err != nil {
		return nil, err
	}
	days, err := s.repo.Daily(ctx, r, s.timezone, dailyReportDays)
	if err != nil {
		return nil, apperror.InternalError(err)
	}
	return days, nil
}

func validateRange(r domain.ReportRange) error {
	if r.Start != nil && r.End != nil && r.End.Before(*r.Start) {
		return apperror.Validation("end date must not be before start date")
	}
	return nil
}
