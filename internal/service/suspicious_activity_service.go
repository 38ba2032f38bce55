package service

import (
	"context"

	"salesguard/internal/core/domain"
	"salesguard/internal/core/ports"
	"salesguard/pkg/apperror"
	"salesguard/pkg/clock"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type suspiciousActivityService struct {
	repo  ports.SuspiciousActivityRepository
	clock clock.Clock
	log   zerolog.Logger
}

// NewSuspiciousActivityService creates the admin review queue service.
func NewSuspiciousActivityService(repo ports.SuspiciousActivityRepository, clk clock.Clock, log zerolog.Logger) ports.SuspiciousActivityService {
	return &suspiciousActivityService{repo: repo, clock: clk, log: log}
}

// List returns findings, optionally only reviewed or unreviewed ones.
func (s *suspiciousActivityService) List(ctx context.Context, filter domain.SuspiciousActivityFilter) ([]domain.SuspiciousActivityView, error) {
	views, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, apperror.InternalError(err)
	}
	return views, nil
}

// MarkReviewed flags a finding as reviewed. Reviewing an already reviewed
// finding succeeds and keeps the original reviewer.
func (s *suspiciousActivityService) MarkReviewed(ctx context.Context, activityID uuid.UUID, reviewerID uuid.UUID) (*domain.SuspiciousActivity, error) {
	a, err := s.repo.MarkReviewed(ctx, activityID, reviewerID, s.clock.Now())
	if err != nil {
		return nil, apperror.InternalError(err)
	}
	if a == nil {
		return nil, apperror.ErrNotFound("Suspicious activity")
	}

	s.log.Info().
		Str("activity_id", activityID.String()).
		Str("reviewer_id", reviewerID.String()).
		Msg("suspicious activity reviewed")
	return a, nil
}
