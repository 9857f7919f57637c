package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/akinalp/dmrelay/models"
	"github.com/akinalp/dmrelay/pkg"
	"github.com/akinalp/dmrelay/repository"
)

// ReportService, kullanıcı ve sohbet şikayetlerini kaydeder; admin
// paneli son şikayetleri listeler.
type ReportService interface {
	Report(ctx context.Context, reporterID, targetID string, scope models.ReportScope, req *models.ReportRequest) (*models.Report, error)
	ListRecent(ctx context.Context, limit int) ([]models.Report, error)
}

type reportService struct {
	reportRepo repository.ReportRepository
	userRepo   repository.UserRepository
	now        func() time.Time
}

// NewReportService, constructor.
func NewReportService(reportRepo repository.ReportRepository, userRepo repository.UserRepository) ReportService {
	return &reportService{
		reportRepo: reportRepo,
		userRepo:   userRepo,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

func (s *reportService) Report(ctx context.Context, reporterID, targetID string, scope models.ReportScope, req *models.ReportRequest) (*models.Report, error) {
	if scope != models.ReportScopeUser && scope != models.ReportScopeChat {
		return nil, fmt.Errorf("%w: unknown report scope %q", pkg.ErrBadRequest, scope)
	}
	if reporterID == targetID {
		return nil, fmt.Errorf("%w: cannot report yourself", pkg.ErrBadRequest)
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if _, err := s.userRepo.GetByID(ctx, targetID); err != nil {
		return nil, err
	}

	report := &models.Report{
		ID:           uuid.NewString(),
		ReporterID:   reporterID,
		TargetUserID: targetID,
		Scope:        scope,
		Reason:       req.Reason,
		Description:  req.Description,
		CreatedAt:    s.now(),
	}
	if err := s.reportRepo.Upsert(ctx, report); err != nil {
		return nil, err
	}

	log.Printf("[reports] %s reported %s (%s): %s", reporterID, targetID, scope, report.Reason)
	return report, nil
}

func (s *reportService) ListRecent(ctx context.Context, limit int) ([]models.Report, error) {
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	return s.reportRepo.ListRecent(ctx, limit)
}
