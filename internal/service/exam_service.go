package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mohsenjasser15-hash/jexam-api/internal/models"
	appErrors "github.com/mohsenjasser15-hash/jexam-api/pkg/errors"
	"github.com/mohsenjasser15-hash/jexam-api/pkg/storage"
)

type examRepository interface {
	Create(ctx context.Context, exam *models.Exam, questions []models.ExamQuestion) error
	FindByID(ctx context.Context, id string) (*models.Exam, error)
	ListQuestions(ctx context.Context, examID string) ([]models.ExamQuestion, error)
	ListByClass(ctx context.Context, filter models.ExamFilter) ([]models.Exam, int, error)
}

type imageStorage interface {
	SaveStream(filename string, r io.Reader) (string, error)
}

// CreateExamQuestion is one question in an exam creation payload.
type CreateExamQuestion struct {
	Text         string  `json:"text" validate:"required"`
	ImageURL     *string `json:"image_url,omitempty"`
	OptionA      string  `json:"option_a" validate:"required"`
	OptionB      string  `json:"option_b" validate:"required"`
	OptionC      string  `json:"option_c" validate:"required"`
	OptionD      string  `json:"option_d" validate:"required"`
	CorrectIndex int     `json:"correct_index" validate:"gte=0,lte=3"`
}

// CreateExamRequest carries the payload for creating an exam with its
// questions in one shot.
type CreateExamRequest struct {
	Title     string               `json:"title" validate:"required,min=2,max=200"`
	Questions []CreateExamQuestion `json:"questions" validate:"required,min=1,dive"`
}

var allowedImageExtensions = map[string]struct{}{
	".png":  {},
	".jpg":  {},
	".jpeg": {},
	".gif":  {},
	".webp": {},
}

// ExamService manages multiple-choice exams. Question order is fixed at
// creation; answer keys are stripped from student reads.
type ExamService struct {
	repo      examRepository
	classes   *ClassService
	store     imageStorage
	signer    *storage.SignedURLSigner
	validator *validator.Validate
	logger    *zap.Logger
}

// NewExamService constructs an ExamService.
func NewExamService(repo examRepository, classes *ClassService, store imageStorage, signer *storage.SignedURLSigner, validate *validator.Validate, logger *zap.Logger) *ExamService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &ExamService{repo: repo, classes: classes, store: store, signer: signer, validator: validate, logger: logger}
}

// Create persists the exam and its questions atomically. Only the class
// owner may create exams.
func (s *ExamService) Create(ctx context.Context, classID, actorID string, role models.UserRole, req CreateExamRequest) (*models.ExamDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid exam payload")
	}

	class, err := s.classes.AuthorizeByID(ctx, classID, actorID, role)
	if err != nil {
		return nil, err
	}
	if role != models.RoleAdmin && class.OwnerID != actorID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only the class owner can create exams")
	}

	exam := &models.Exam{
		ID:        uuid.NewString(),
		ClassID:   classID,
		Title:     req.Title,
		CreatedBy: actorID,
		CreatedAt: time.Now().UTC(),
	}
	questions := make([]models.ExamQuestion, len(req.Questions))
	for i, q := range req.Questions {
		questions[i] = models.ExamQuestion{
			ID:           uuid.NewString(),
			ExamID:       exam.ID,
			Text:         q.Text,
			ImageURL:     q.ImageURL,
			OptionA:      q.OptionA,
			OptionB:      q.OptionB,
			OptionC:      q.OptionC,
			OptionD:      q.OptionD,
			CorrectIndex: q.CorrectIndex,
			Position:     i,
			CreatedAt:    time.Now().UTC(),
		}
	}

	if err := s.repo.Create(ctx, exam, questions); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create exam")
	}

	s.logger.Info("exam created", zap.String("class_id", classID), zap.String("exam_id", exam.ID), zap.Int("questions", len(questions)))
	return &models.ExamDetail{Exam: *exam, Questions: questions}, nil
}

// Get returns the exam with its questions in creation order. Students get
// the questions without the answer key.
func (s *ExamService) Get(ctx context.Context, examID, actorID string, role models.UserRole) (*models.ExamDetail, error) {
	exam, err := s.repo.FindByID(ctx, examID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "exam not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load exam")
	}

	class, err := s.classes.AuthorizeByID(ctx, exam.ClassID, actorID, role)
	if err != nil {
		return nil, err
	}

	questions, err := s.repo.ListQuestions(ctx, examID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load questions")
	}

	if role == models.RoleStudent && class.OwnerID != actorID {
		for i := range questions {
			questions[i].CorrectIndex = -1
		}
	}
	return &models.ExamDetail{Exam: *exam, Questions: questions}, nil
}

// List returns the exams of a class.
func (s *ExamService) List(ctx context.Context, classID, actorID string, role models.UserRole, filter models.ExamFilter) ([]models.Exam, *models.Pagination, error) {
	if _, err := s.classes.AuthorizeByID(ctx, classID, actorID, role); err != nil {
		return nil, nil, err
	}

	filter.ClassID = classID
	exams, total, err := s.repo.ListByClass(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list exams")
	}
	return exams, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}, nil
}

// UploadQuestionImage stores an illustration for use in exam questions and
// returns its signed URL.
func (s *ExamService) UploadQuestionImage(ctx context.Context, classID, actorID string, role models.UserRole, filename string, body io.Reader) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if _, ok := allowedImageExtensions[ext]; !ok {
		return "", appErrors.Clone(appErrors.ErrValidation, "unsupported image format")
	}

	class, err := s.classes.AuthorizeByID(ctx, classID, actorID, role)
	if err != nil {
		return "", err
	}
	if role != models.RoleAdmin && class.OwnerID != actorID {
		return "", appErrors.Clone(appErrors.ErrForbidden, "only the class owner can upload exam images")
	}

	imageID := uuid.NewString()
	stored := fmt.Sprintf("exam-images/%s/%s%s", classID, imageID, ext)
	if _, err := s.store.SaveStream(stored, body); err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrUploadFailed.Code, appErrors.ErrUploadFailed.Status, "failed to store image")
	}

	url, _, err := s.signer.Generate(imageID, stored)
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign image link")
	}
	return url, nil
}
