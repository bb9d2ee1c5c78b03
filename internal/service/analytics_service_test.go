package service

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mohsenjasser15-hash/jexam-api/internal/models"
	appErrors "github.com/mohsenjasser15-hash/jexam-api/pkg/errors"
)

type mockAnalyticsEnrollments struct {
	rows map[string][]models.EnrollmentDetail
}

func (m *mockAnalyticsEnrollments) ListByClass(ctx context.Context, classID string) ([]models.EnrollmentDetail, error) {
	return m.rows[classID], nil
}

func newAnalyticsFixture() (*AnalyticsService, *mockClassRepo) {
	classes := newMockClassRepo()
	classes.classes["class-1"] = &models.Class{ID: "class-1", OwnerID: "teacher-1"}
	classService := NewClassService(classes, &mockEnrollmentChecker{members: map[string]bool{}}, nil, validator.New(), zap.NewNop())

	enrollments := &mockAnalyticsEnrollments{rows: map[string][]models.EnrollmentDetail{
		"class-1": {
			{Enrollment: models.Enrollment{ClassID: "class-1", StudentID: "student-b"}, StudentName: "Zoe"},
			{Enrollment: models.Enrollment{ClassID: "class-1", StudentID: "student-a"}, StudentName: "Amir"},
		},
	}}
	svc := NewAnalyticsService(enrollments, classService, HashScorer{}, nil, time.Minute, zap.NewNop())
	return svc, classes
}

func TestClassReportRowsAreDeterministic(t *testing.T) {
	svc, _ := newAnalyticsFixture()
	ctx := context.Background()

	first, err := svc.ClassReport(ctx, "class-1", "teacher-1", models.RoleTeacher)
	require.NoError(t, err)
	second, err := svc.ClassReport(ctx, "class-1", "teacher-1", models.RoleTeacher)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	require.Len(t, first, 2)
	assert.True(t, sort.SliceIsSorted(first, func(i, j int) bool { return first[i].Name < first[j].Name }))
	for _, row := range first {
		assert.GreaterOrEqual(t, row.Score, 40.0)
		assert.LessOrEqual(t, row.Score, 100.0)
		assert.GreaterOrEqual(t, row.Attendance, 50.0)
		assert.LessOrEqual(t, row.Attendance, 100.0)
	}
}

func TestClassReportOwnerOnly(t *testing.T) {
	svc, _ := newAnalyticsFixture()

	_, err := svc.ClassReport(context.Background(), "class-1", "teacher-2", models.RoleTeacher)
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErr.Code)
}

func TestHashScorerStablePerPair(t *testing.T) {
	scorer := HashScorer{}
	s1, a1 := scorer.Score("class-1", "student-1")
	s2, a2 := scorer.Score("class-1", "student-1")
	assert.Equal(t, s1, s2)
	assert.Equal(t, a1, a2)

	s3, _ := scorer.Score("class-2", "student-1")
	assert.NotEqual(t, s1, s3, "different classes should usually score differently")
}
