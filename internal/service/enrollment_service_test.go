package service

import (
	"context"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mohsenjasser15-hash/jexam-api/internal/models"
	appErrors "github.com/mohsenjasser15-hash/jexam-api/pkg/errors"
)

type mockEnrollmentRepo struct {
	existing map[string]bool
	created  *models.Enrollment
	rows     []models.EnrollmentDetail
}

func (m *mockEnrollmentRepo) List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, int, error) {
	var out []models.EnrollmentDetail
	for _, row := range m.rows {
		if filter.ClassID != "" && row.ClassID != filter.ClassID {
			continue
		}
		if filter.StudentID != "" && row.StudentID != filter.StudentID {
			continue
		}
		out = append(out, row)
	}
	return out, len(out), nil
}

func (m *mockEnrollmentRepo) Exists(ctx context.Context, classID, studentID string) (bool, error) {
	return m.existing[classID+":"+studentID], nil
}

func (m *mockEnrollmentRepo) Create(ctx context.Context, enrollment *models.Enrollment) error {
	m.created = enrollment
	return nil
}

func newEnrollmentFixture() (*EnrollmentService, *mockEnrollmentRepo, *mockClassRepo) {
	repo := &mockEnrollmentRepo{existing: make(map[string]bool)}
	classes := newMockClassRepo()
	svc := NewEnrollmentService(repo, classes, validator.New(), zap.NewNop())
	return svc, repo, classes
}

func TestJoinByAccessCode(t *testing.T) {
	svc, repo, classes := newEnrollmentFixture()
	classes.classes["class-1"] = &models.Class{ID: "class-1", OwnerID: "teacher-1", Title: "Algebra", AccessCode: "ABCD2345"}

	class, err := svc.Join(context.Background(), "student-1", JoinClassRequest{AccessCode: "ABCD2345"})
	require.NoError(t, err)
	assert.Equal(t, "class-1", class.ID)
	assert.Empty(t, class.AccessCode, "the join code is not echoed back")
	require.NotNil(t, repo.created)
	assert.Equal(t, "student-1", repo.created.StudentID)
}

func TestJoinUnknownCode(t *testing.T) {
	svc, _, _ := newEnrollmentFixture()

	_, err := svc.Join(context.Background(), "student-1", JoinClassRequest{AccessCode: "ZZZZ9999"})
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}

func TestJoinTwiceConflicts(t *testing.T) {
	svc, repo, classes := newEnrollmentFixture()
	classes.classes["class-1"] = &models.Class{ID: "class-1", OwnerID: "teacher-1", AccessCode: "ABCD2345"}
	repo.existing["class-1:student-1"] = true

	_, err := svc.Join(context.Background(), "student-1", JoinClassRequest{AccessCode: "ABCD2345"})
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrConflict.Code, appErr.Code)
}

func TestJoinOwnClassRejected(t *testing.T) {
	svc, _, classes := newEnrollmentFixture()
	classes.classes["class-1"] = &models.Class{ID: "class-1", OwnerID: "teacher-1", AccessCode: "ABCD2345"}

	_, err := svc.Join(context.Background(), "teacher-1", JoinClassRequest{AccessCode: "ABCD2345"})
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrConflict.Code, appErr.Code)
}

func TestRosterOwnerOnly(t *testing.T) {
	svc, repo, classes := newEnrollmentFixture()
	classes.classes["class-1"] = &models.Class{ID: "class-1", OwnerID: "teacher-1"}
	repo.rows = []models.EnrollmentDetail{
		{Enrollment: models.Enrollment{ID: "e1", ClassID: "class-1", StudentID: "student-1"}, StudentName: "Student One"},
	}

	rows, _, err := svc.Roster(context.Background(), "class-1", "teacher-1", models.RoleTeacher, models.EnrollmentFilter{Page: 1, PageSize: 20})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Student One", rows[0].StudentName)

	_, _, err = svc.Roster(context.Background(), "class-1", "student-1", models.RoleStudent, models.EnrollmentFilter{})
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErr.Code)
}
