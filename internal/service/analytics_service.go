package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/mohsenjasser15-hash/jexam-api/internal/models"
	appErrors "github.com/mohsenjasser15-hash/jexam-api/pkg/errors"
)

type analyticsEnrollmentStore interface {
	ListByClass(ctx context.Context, classID string) ([]models.EnrollmentDetail, error)
}

// AnalyticsService builds the per-class student report: one row per
// enrolled student with score and attendance from the scoring backend.
// Rows are cached per class; the cache key carries no actor information
// because the rows are identical for every authorized viewer.
type AnalyticsService struct {
	enrollments analyticsEnrollmentStore
	classes     *ClassService
	scorer      Scorer
	cache       *CacheService
	cacheTTL    time.Duration
	logger      *zap.Logger
}

// NewAnalyticsService constructs an AnalyticsService.
func NewAnalyticsService(enrollments analyticsEnrollmentStore, classes *ClassService, scorer Scorer, cache *CacheService, ttl time.Duration, logger *zap.Logger) *AnalyticsService {
	if scorer == nil {
		scorer = HashScorer{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AnalyticsService{enrollments: enrollments, classes: classes, scorer: scorer, cache: cache, cacheTTL: ttl, logger: logger}
}

// ClassReport returns the report rows for a class, sorted by student name.
// Only the class owner or an admin may view it.
func (s *AnalyticsService) ClassReport(ctx context.Context, classID, actorID string, role models.UserRole) ([]models.StudentReportRow, error) {
	class, err := s.classes.AuthorizeByID(ctx, classID, actorID, role)
	if err != nil {
		return nil, err
	}
	if role != models.RoleAdmin && class.OwnerID != actorID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only the class owner can view the report")
	}

	cacheKey := fmt.Sprintf("analytics:class:%s", classID)
	var rows []models.StudentReportRow
	if hit, err := s.cache.Get(ctx, cacheKey, &rows); err == nil && hit {
		return rows, nil
	}

	rows, err = s.BuildReport(ctx, classID)
	if err != nil {
		return nil, err
	}

	if err := s.cache.Set(ctx, cacheKey, rows, s.cacheTTL); err != nil {
		s.logger.Warn("failed to cache class report", zap.String("class_id", classID), zap.Error(err))
	}
	return rows, nil
}

// BuildReport assembles the rows without touching the cache or checking
// authorization. The report export worker uses it directly; authorization
// happened when the export was requested.
func (s *AnalyticsService) BuildReport(ctx context.Context, classID string) ([]models.StudentReportRow, error) {
	enrollments, err := s.enrollments.ListByClass(ctx, classID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list enrollments")
	}

	rows := make([]models.StudentReportRow, 0, len(enrollments))
	for _, e := range enrollments {
		score, attendance := s.scorer.Score(classID, e.StudentID)
		rows = append(rows, models.StudentReportRow{
			StudentID:  e.StudentID,
			Name:       e.StudentName,
			Score:      score,
			Attendance: attendance,
		})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Name < rows[j].Name })
	return rows, nil
}
