package service

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mohsenjasser15-hash/jexam-api/internal/models"
	appErrors "github.com/mohsenjasser15-hash/jexam-api/pkg/errors"
)

type forumRepository interface {
	Create(ctx context.Context, post *models.ForumPost) error
	ListByClass(ctx context.Context, filter models.ForumFilter) ([]models.ForumPostDetail, int, error)
}

// CreatePostRequest carries a new forum message.
type CreatePostRequest struct {
	Body string `json:"body" validate:"required,min=1,max=5000"`
}

// ForumService manages the per-class discussion board. Any class member
// may read and post; posts are immutable once created.
type ForumService struct {
	repo      forumRepository
	classes   *ClassService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewForumService constructs a ForumService.
func NewForumService(repo forumRepository, classes *ClassService, validate *validator.Validate, logger *zap.Logger) *ForumService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &ForumService{repo: repo, classes: classes, validator: validate, logger: logger}
}

// CreatePost appends a message to the class forum.
func (s *ForumService) CreatePost(ctx context.Context, classID, actorID string, role models.UserRole, req CreatePostRequest) (*models.ForumPost, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid post payload")
	}

	if _, err := s.classes.AuthorizeByID(ctx, classID, actorID, role); err != nil {
		return nil, err
	}

	post := &models.ForumPost{
		ID:        uuid.NewString(),
		ClassID:   classID,
		AuthorID:  actorID,
		Body:      req.Body,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.repo.Create(ctx, post); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create post")
	}

	s.logger.Debug("forum post created", zap.String("class_id", classID), zap.String("post_id", post.ID))
	return post, nil
}

// ListPosts returns the class forum, newest first.
func (s *ForumService) ListPosts(ctx context.Context, classID, actorID string, role models.UserRole, filter models.ForumFilter) ([]models.ForumPostDetail, *models.Pagination, error) {
	if _, err := s.classes.AuthorizeByID(ctx, classID, actorID, role); err != nil {
		return nil, nil, err
	}

	filter.ClassID = classID
	posts, total, err := s.repo.ListByClass(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list posts")
	}
	return posts, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}, nil
}
