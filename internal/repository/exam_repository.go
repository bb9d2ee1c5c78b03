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

// ExamRepository manages exams and their questions.
type ExamRepository struct {
	db *sqlx.DB
}

// NewExamRepository constructs the repository.
func NewExamRepository(db *sqlx.DB) *ExamRepository {
	return &ExamRepository{db: db}
}

// Create persists an exam and its questions in one transaction.
func (r *ExamRepository) Create(ctx context.Context, exam *models.Exam, questions []models.ExamQuestion) error {
	if exam.ID == "" {
		exam.ID = uuid.NewString()
	}
	if exam.CreatedAt.IsZero() {
		exam.CreatedAt = time.Now().UTC()
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin exam tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	const examQuery = `INSERT INTO exams (id, class_id, title, created_by, created_at)
        VALUES (:id, :class_id, :title, :created_by, :created_at)`
	if _, err := tx.NamedExecContext(ctx, examQuery, exam); err != nil {
		return fmt.Errorf("create exam: %w", err)
	}

	const questionQuery = `INSERT INTO exam_questions (id, exam_id, text, image_url, option_a, option_b, option_c, option_d, correct_index, position, created_at)
        VALUES (:id, :exam_id, :text, :image_url, :option_a, :option_b, :option_c, :option_d, :correct_index, :position, :created_at)`
	for i := range questions {
		q := &questions[i]
		if q.ID == "" {
			q.ID = uuid.NewString()
		}
		q.ExamID = exam.ID
		q.Position = i
		if q.CreatedAt.IsZero() {
			q.CreatedAt = exam.CreatedAt
		}
		if _, err := tx.NamedExecContext(ctx, questionQuery, q); err != nil {
			return fmt.Errorf("create exam question: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit exam tx: %w", err)
	}
	return nil
}

// FindByID returns an exam by its ID.
func (r *ExamRepository) FindByID(ctx context.Context, id string) (*models.Exam, error) {
	const query = `SELECT id, class_id, title, created_by, created_at FROM exams WHERE id = $1`
	var exam models.Exam
	if err := r.db.GetContext(ctx, &exam, query, id); err != nil {
		return nil, err
	}
	return &exam, nil
}

// ListQuestions returns the exam's questions ordered by position.
func (r *ExamRepository) ListQuestions(ctx context.Context, examID string) ([]models.ExamQuestion, error) {
	const query = `SELECT id, exam_id, text, image_url, option_a, option_b, option_c, option_d, correct_index, position, created_at
        FROM exam_questions WHERE exam_id = $1 ORDER BY position ASC`
	var questions []models.ExamQuestion
	if err := r.db.SelectContext(ctx, &questions, query, examID); err != nil {
		return nil, fmt.Errorf("list exam questions: %w", err)
	}
	return questions, nil
}

// ListByClass returns exams for a class with total count.
func (r *ExamRepository) ListByClass(ctx context.Context, filter models.ExamFilter) ([]models.Exam, int, error) {
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

	query := fmt.Sprintf(`SELECT id, class_id, title, created_by, created_at
        FROM exams WHERE class_id = $1 ORDER BY created_at %s LIMIT %d OFFSET %d`, order, size, offset)
	var exams []models.Exam
	if err := r.db.SelectContext(ctx, &exams, query, filter.ClassID); err != nil {
		return nil, 0, fmt.Errorf("list exams: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM exams WHERE class_id = $1`, filter.ClassID); err != nil {
		return nil, 0, fmt.Errorf("count exams: %w", err)
	}
	return exams, total, nil
}
