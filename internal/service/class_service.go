package service

import (
	"context"
	"crypto/rand"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mohsenjasser15-hash/jexam-api/internal/models"
	appErrors "github.com/mohsenjasser15-hash/jexam-api/pkg/errors"
)

type classRepository interface {
	List(ctx context.Context, filter models.ClassFilter) ([]models.Class, int, error)
	FindByID(ctx context.Context, id string) (*models.Class, error)
	FindDetailByID(ctx context.Context, id string) (*models.ClassDetail, error)
	Create(ctx context.Context, class *models.Class) error
}

type classEnrollmentChecker interface {
	Exists(ctx context.Context, classID, studentID string) (bool, error)
}

// CreateClassRequest carries the payload for creating a class.
type CreateClassRequest struct {
	Title       string `json:"title" validate:"required,min=2,max=200"`
	Description string `json:"description" validate:"max=2000"`
}

// ClassService manages class records and membership-based visibility.
type ClassService struct {
	repo        classRepository
	enrollments classEnrollmentChecker
	cache       *CacheService
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewClassService constructs a ClassService.
func NewClassService(repo classRepository, enrollments classEnrollmentChecker, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *ClassService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &ClassService{repo: repo, enrollments: enrollments, cache: cache, validator: validate, logger: logger}
}

// Create registers a new class owned by the acting teacher. The join code
// is generated server-side and returned only to the owner.
func (s *ClassService) Create(ctx context.Context, ownerID string, req CreateClassRequest) (*models.Class, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid class payload")
	}

	code, err := generateAccessCode()
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to generate access code")
	}

	class := &models.Class{
		ID:          uuid.NewString(),
		OwnerID:     ownerID,
		Title:       req.Title,
		Description: req.Description,
		AccessCode:  code,
		IsLive:      false,
		CreatedAt:   time.Now().UTC(),
		UpdatedAt:   time.Now().UTC(),
	}
	if err := s.repo.Create(ctx, class); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create class")
	}

	if s.cache.Enabled() {
		_ = s.cache.Invalidate(ctx, fmt.Sprintf("classes:owner:%s:*", ownerID))
	}
	s.logger.Info("class created", zap.String("class_id", class.ID), zap.String("owner_id", ownerID))
	return class, nil
}

// List returns the classes visible to the actor: teachers see classes they
// own, students see classes they are enrolled in, admins see everything.
func (s *ClassService) List(ctx context.Context, actorID string, role models.UserRole, filter models.ClassFilter) ([]models.Class, *models.Pagination, error) {
	switch role {
	case models.RoleTeacher:
		filter.OwnerID = actorID
	case models.RoleStudent:
		filter.StudentID = actorID
	}

	classes, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list classes")
	}

	// the join code is owner-only information
	for i := range classes {
		if classes[i].OwnerID != actorID && role != models.RoleAdmin {
			classes[i].AccessCode = ""
		}
	}
	return classes, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}, nil
}

// Get returns one class with owner info. Access requires ownership,
// enrollment, or the admin role.
func (s *ClassService) Get(ctx context.Context, classID, actorID string, role models.UserRole) (*models.ClassDetail, error) {
	detail, err := s.repo.FindDetailByID(ctx, classID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}

	if err := s.Authorize(ctx, &detail.Class, actorID, role); err != nil {
		return nil, err
	}
	if detail.OwnerID != actorID && role != models.RoleAdmin {
		detail.AccessCode = ""
	}
	return detail, nil
}

// Authorize checks that the actor may access class content. It is shared
// by the class-scoped services (videos, exams, forum, live view).
func (s *ClassService) Authorize(ctx context.Context, class *models.Class, actorID string, role models.UserRole) error {
	if role == models.RoleAdmin || class.OwnerID == actorID {
		return nil
	}
	if role == models.RoleStudent {
		enrolled, err := s.enrollments.Exists(ctx, class.ID, actorID)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check enrollment")
		}
		if enrolled {
			return nil
		}
	}
	return appErrors.Clone(appErrors.ErrForbidden, "not a member of this class")
}

// AuthorizeByID loads the class then applies Authorize.
func (s *ClassService) AuthorizeByID(ctx context.Context, classID, actorID string, role models.UserRole) (*models.Class, error) {
	class, err := s.repo.FindByID(ctx, classID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}
	if err := s.Authorize(ctx, class, actorID, role); err != nil {
		return nil, err
	}
	return class, nil
}

const accessCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

func generateAccessCode() (string, error) {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	for i, b := range buf {
		buf[i] = accessCodeAlphabet[int(b)%len(accessCodeAlphabet)]
	}
	return string(buf), nil
}
