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

// ForumRepository manages class forum posts.
type ForumRepository struct {
	db *sqlx.DB
}

// NewForumRepository constructs the repository.
func NewForumRepository(db *sqlx.DB) *ForumRepository {
	return &ForumRepository{db: db}
}

// Create persists a forum post.
func (r *ForumRepository) Create(ctx context.Context, post *models.ForumPost) error {
	if post.ID == "" {
		post.ID = uuid.NewString()
	}
	if post.CreatedAt.IsZero() {
		post.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO forum_posts (id, class_id, author_id, body, created_at)
        VALUES (:id, :class_id, :author_id, :body, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, post); err != nil {
		return fmt.Errorf("create forum post: %w", err)
	}
	return nil
}

// ListByClass returns posts for a class, newest first by default.
func (r *ForumRepository) ListByClass(ctx context.Context, filter models.ForumFilter) ([]models.ForumPostDetail, int, error) {
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

	query := fmt.Sprintf(`SELECT p.id, p.class_id, p.author_id, p.body, p.created_at, u.full_name AS author_name
        FROM forum_posts p LEFT JOIN users u ON u.id = p.author_id
        WHERE p.class_id = $1 ORDER BY p.created_at %s LIMIT %d OFFSET %d`, order, size, offset)
	var posts []models.ForumPostDetail
	if err := r.db.SelectContext(ctx, &posts, query, filter.ClassID); err != nil {
		return nil, 0, fmt.Errorf("list forum posts: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM forum_posts WHERE class_id = $1`, filter.ClassID); err != nil {
		return nil, 0, fmt.Errorf("count forum posts: %w", err)
	}
	return posts, total, nil
}
