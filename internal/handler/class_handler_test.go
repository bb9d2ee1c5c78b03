package handler

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/mohsenjasser15-hash/jexam-api/internal/models"
	"github.com/mohsenjasser15-hash/jexam-api/internal/service"
)

func newClassHandlerFixture(t *testing.T) (*ClassHandler, *fakeClassStore) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	classes := &fakeClassStore{classes: map[string]*models.Class{
		"class-1": {ID: "class-1", OwnerID: "teacher-1", Title: "Algebra", AccessCode: "ABCD2345"},
	}}
	membership := &fakeMembership{members: map[string]bool{
		"class-1:student-1": true,
	}}
	svc := service.NewClassService(classes, membership, nil, nil, nil)
	return NewClassHandler(svc), classes
}

func TestClassHandlerCreate(t *testing.T) {
	handler, classes := newClassHandlerFixture(t)

	c, w := newLiveContext(http.MethodPost, "", []byte(`{"title":"Geometry"}`), &models.JWTClaims{UserID: "teacher-1", Role: models.RoleTeacher})
	handler.Create(c)

	require.Equal(t, http.StatusCreated, w.Code)
	require.Contains(t, w.Body.String(), "Geometry")
	require.Len(t, classes.classes, 2)
}

func TestClassHandlerCreateRejectsShortTitle(t *testing.T) {
	handler, _ := newClassHandlerFixture(t)

	c, w := newLiveContext(http.MethodPost, "", []byte(`{"title":"x"}`), &models.JWTClaims{UserID: "teacher-1", Role: models.RoleTeacher})
	handler.Create(c)

	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestClassHandlerGetHidesCodeFromStudents(t *testing.T) {
	handler, _ := newClassHandlerFixture(t)

	c, w := newLiveContext(http.MethodGet, "class-1", nil, &models.JWTClaims{UserID: "student-1", Role: models.RoleStudent})
	handler.Get(c)

	require.Equal(t, http.StatusOK, w.Code)
	require.NotContains(t, w.Body.String(), "ABCD2345")
}

func TestClassHandlerGetShowsCodeToOwner(t *testing.T) {
	handler, _ := newClassHandlerFixture(t)

	c, w := newLiveContext(http.MethodGet, "class-1", nil, &models.JWTClaims{UserID: "teacher-1", Role: models.RoleTeacher})
	handler.Get(c)

	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "ABCD2345")
}

func TestClassHandlerGetUnknownClass(t *testing.T) {
	handler, _ := newClassHandlerFixture(t)

	c, w := newLiveContext(http.MethodGet, "missing", nil, &models.JWTClaims{UserID: "teacher-1", Role: models.RoleTeacher})
	handler.Get(c)

	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestClassHandlerRequiresAuth(t *testing.T) {
	handler, _ := newClassHandlerFixture(t)

	c, w := newLiveContext(http.MethodGet, "class-1", nil, nil)
	handler.Get(c)

	require.Equal(t, http.StatusUnauthorized, w.Code)
}
