package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mohsenjasser15-hash/jexam-api/internal/models"
	appErrors "github.com/mohsenjasser15-hash/jexam-api/pkg/errors"
)

type enrollmentRepository interface {
	List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, int, error)
	Exists(ctx context.Context, classID, studentID string) (bool, error)
	Create(ctx context.Context, enrollment *models.Enrollment) error
}

type enrollmentClassStore interface {
	FindByID(ctx context.Context, id string) (*models.Class, error)
	FindByAccessCode(ctx context.Context, code string) (*models.Class, error)
}

// JoinClassRequest carries the join code a student submits.
type JoinClassRequest struct {
	AccessCode string `json:"access_code" validate:"required,len=8"`
}

// EnrollmentService handles class membership. Enrollment is append-only:
// joining twice is an error and there is no leave operation.
type EnrollmentService struct {
	repo      enrollmentRepository
	classes   enrollmentClassStore
	validator *validator.Validate
	logger    *zap.Logger
}

// NewEnrollmentService constructs an EnrollmentService.
func NewEnrollmentService(repo enrollmentRepository, classes enrollmentClassStore, validate *validator.Validate, logger *zap.Logger) *EnrollmentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &EnrollmentService{repo: repo, classes: classes, validator: validate, logger: logger}
}

// Join enrolls the student in the class matching the submitted code. The
// error for an unknown code matches nothing about which codes exist.
func (s *EnrollmentService) Join(ctx context.Context, studentID string, req JoinClassRequest) (*models.Class, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid join payload")
	}

	class, err := s.classes.FindByAccessCode(ctx, req.AccessCode)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "no class matches this code")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to look up access code")
	}

	if class.OwnerID == studentID {
		return nil, appErrors.Clone(appErrors.ErrConflict, "cannot join your own class")
	}

	enrolled, err := s.repo.Exists(ctx, class.ID, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check enrollment")
	}
	if enrolled {
		return nil, appErrors.Clone(appErrors.ErrConflict, "already enrolled in this class")
	}

	enrollment := &models.Enrollment{
		ID:        uuid.NewString(),
		ClassID:   class.ID,
		StudentID: studentID,
		JoinedAt:  time.Now().UTC(),
	}
	if err := s.repo.Create(ctx, enrollment); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to enroll student")
	}

	class.AccessCode = ""
	s.logger.Info("student enrolled", zap.String("class_id", class.ID), zap.String("student_id", studentID))
	return class, nil
}

// Roster lists the enrollments of a class. Only the owner or an admin may
// see the full roster.
func (s *EnrollmentService) Roster(ctx context.Context, classID, actorID string, role models.UserRole, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, *models.Pagination, error) {
	class, err := s.classes.FindByID(ctx, classID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}
	if role != models.RoleAdmin && class.OwnerID != actorID {
		return nil, nil, appErrors.Clone(appErrors.ErrForbidden, "only the class owner can view the roster")
	}

	filter.ClassID = classID
	rows, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list enrollments")
	}
	return rows, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}, nil
}

// MyEnrollments lists the classes a student has joined.
func (s *EnrollmentService) MyEnrollments(ctx context.Context, studentID string, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, *models.Pagination, error) {
	filter.StudentID = studentID
	rows, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list enrollments")
	}
	return rows, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}, nil
}
