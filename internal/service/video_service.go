package service

import (
	"context"
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

type videoRepository interface {
	Create(ctx context.Context, video *models.Video) error
	ListByClass(ctx context.Context, filter models.VideoFilter) ([]models.Video, int, error)
}

type videoStorage interface {
	SaveStream(filename string, r io.Reader) (string, error)
	Path(filename string) string
}

// UploadVideoRequest describes an incoming video upload.
type UploadVideoRequest struct {
	Title    string `validate:"required,min=2,max=200"`
	Filename string `validate:"required"`
	Size     int64  `validate:"gt=0"`
}

var allowedVideoExtensions = map[string]struct{}{
	".mp4":  {},
	".webm": {},
	".mkv":  {},
	".mov":  {},
}

// VideoService stores lecture recordings and hands out signed links.
type VideoService struct {
	repo      videoRepository
	classes   *ClassService
	store     videoStorage
	signer    *storage.SignedURLSigner
	maxSize   int64
	validator *validator.Validate
	logger    *zap.Logger
}

// NewVideoService constructs a VideoService.
func NewVideoService(repo videoRepository, classes *ClassService, store videoStorage, signer *storage.SignedURLSigner, maxSize int64, validate *validator.Validate, logger *zap.Logger) *VideoService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &VideoService{repo: repo, classes: classes, store: store, signer: signer, maxSize: maxSize, validator: validate, logger: logger}
}

// Upload persists the uploaded file and its metadata. Only the class owner
// may upload; the stored record carries a signed download link.
func (s *VideoService) Upload(ctx context.Context, classID, actorID string, role models.UserRole, req UploadVideoRequest, body io.Reader) (*models.Video, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid video payload")
	}
	if s.maxSize > 0 && req.Size > s.maxSize {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("file exceeds the %d byte limit", s.maxSize))
	}
	ext := strings.ToLower(filepath.Ext(req.Filename))
	if _, ok := allowedVideoExtensions[ext]; !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unsupported video format")
	}

	class, err := s.classes.AuthorizeByID(ctx, classID, actorID, role)
	if err != nil {
		return nil, err
	}
	if role != models.RoleAdmin && class.OwnerID != actorID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only the class owner can upload videos")
	}

	videoID := uuid.NewString()
	stored := fmt.Sprintf("videos/%s/%s%s", classID, videoID, ext)
	if _, err := s.store.SaveStream(stored, body); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUploadFailed.Code, appErrors.ErrUploadFailed.Status, "failed to store video")
	}

	url, _, err := s.signer.Generate(videoID, stored)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign video link")
	}

	video := &models.Video{
		ID:         videoID,
		ClassID:    classID,
		Title:      req.Title,
		URL:        url,
		SizeBytes:  req.Size,
		UploadedBy: actorID,
		CreatedAt:  time.Now().UTC(),
	}
	if err := s.repo.Create(ctx, video); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist video")
	}

	s.logger.Info("video uploaded", zap.String("class_id", classID), zap.String("video_id", videoID), zap.Int64("size", req.Size))
	return video, nil
}

// List returns the videos of a class, newest first. Any class member may
// list.
func (s *VideoService) List(ctx context.Context, classID, actorID string, role models.UserRole, filter models.VideoFilter) ([]models.Video, *models.Pagination, error) {
	if _, err := s.classes.AuthorizeByID(ctx, classID, actorID, role); err != nil {
		return nil, nil, err
	}

	filter.ClassID = classID
	videos, total, err := s.repo.ListByClass(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list videos")
	}
	return videos, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}, nil
}
