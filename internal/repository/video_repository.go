package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/mohsenjasser15-hash/jexam-api/internal/models"
)

// VideoRepository manages lecture video metadata.
type VideoRepository struct {
	db *sqlx.DB
}

// NewVideoRepository constructs the repository.
func NewVideoRepository(db *sqlx.DB) *VideoRepository {
	return &VideoRepository{db: db}
}

// Create persists a video record.
func (r *VideoRepository) Create(ctx context.Context, video *models.Video) error {
	if video.ID == "" {
		video.ID = uuid.NewString()
	}
	if video.CreatedAt.IsZero() {
		video.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO videos (id, class_id, title, url, size_bytes, uploaded_by, created_at)
        VALUES (:id, :class_id, :title, :url, :size_bytes, :uploaded_by, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, video); err != nil {
		return fmt.Errorf("create video: %w", err)
	}
	return nil
}

// ListByClass returns videos for a class with total count.
func (r *VideoRepository) ListByClass(ctx context.Context, filter models.VideoFilter) ([]models.Video, int, error) {
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "DESC"
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT id, class_id, title, url, size_bytes, uploaded_by, created_at
        FROM videos WHERE class_id = $1 ORDER BY created_at %s LIMIT %d OFFSET %d`, order, size, offset)
	var videos []models.Video
	if err := r.db.SelectContext(ctx, &videos, query, filter.ClassID); err != nil {
		return nil, 0, fmt.Errorf("list videos: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM videos WHERE class_id = $1`, filter.ClassID); err != nil {
		return nil, 0, fmt.Errorf("count videos: %w", err)
	}
	return videos, total, nil
}
