package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mohsenjasser15-hash/jexam-api/internal/models"
	"github.com/mohsenjasser15-hash/jexam-api/internal/service"
	appErrors "github.com/mohsenjasser15-hash/jexam-api/pkg/errors"
	"github.com/mohsenjasser15-hash/jexam-api/pkg/response"
)

// EnrollmentHandler exposes class membership endpoints.
type EnrollmentHandler struct {
	service *service.EnrollmentService
}

// NewEnrollmentHandler creates a new handler.
func NewEnrollmentHandler(svc *service.EnrollmentService) *EnrollmentHandler {
	return &EnrollmentHandler{service: svc}
}

// Join godoc
// @Summary Join a class
// @Description Enroll the authenticated student using a join code
// @Tags Enrollments
// @Accept json
// @Produce json
// @Param payload body service.JoinClassRequest true "Join payload"
// @Success 201 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Security BearerAuth
// @Router /enrollments/join [post]
func (h *EnrollmentHandler) Join(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.JoinClassRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid join payload"))
		return
	}

	class, err := h.service.Join(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, class)
}

// Mine godoc
// @Summary List my enrollments
// @Tags Enrollments
// @Produce json
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /enrollments [get]
func (h *EnrollmentHandler) Mine(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	page, pageSize := parsePage(c)
	rows, pagination, err := h.service.MyEnrollments(c.Request.Context(), claims.UserID, models.EnrollmentFilter{Page: page, PageSize: pageSize})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, rows, pagination)
}

// Roster godoc
// @Summary List class roster
// @Description Class owner view of enrolled students
// @Tags Enrollments
// @Produce json
// @Param id path string true "Class ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Security BearerAuth
// @Router /classes/{id}/roster [get]
func (h *EnrollmentHandler) Roster(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	page, pageSize := parsePage(c)
	rows, pagination, err := h.service.Roster(c.Request.Context(), c.Param("id"), claims.UserID, claims.Role, models.EnrollmentFilter{Page: page, PageSize: pageSize})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, rows, pagination)
}
