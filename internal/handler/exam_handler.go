package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mohsenjasser15-hash/jexam-api/internal/models"
	"github.com/mohsenjasser15-hash/jexam-api/internal/service"
	appErrors "github.com/mohsenjasser15-hash/jexam-api/pkg/errors"
	"github.com/mohsenjasser15-hash/jexam-api/pkg/response"
)

// ExamHandler exposes exam endpoints.
type ExamHandler struct {
	service *service.ExamService
}

// NewExamHandler creates a new handler.
func NewExamHandler(svc *service.ExamService) *ExamHandler {
	return &ExamHandler{service: svc}
}

// Create godoc
// @Summary Create an exam
// @Description Create an exam with its questions, class owner only
// @Tags Exams
// @Accept json
// @Produce json
// @Param id path string true "Class ID"
// @Param payload body service.CreateExamRequest true "Exam payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Security BearerAuth
// @Router /classes/{id}/exams [post]
func (h *ExamHandler) Create(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.CreateExamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid exam payload"))
		return
	}

	exam, err := h.service.Create(c.Request.Context(), c.Param("id"), claims.UserID, claims.Role, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, exam)
}

// List godoc
// @Summary List class exams
// @Tags Exams
// @Produce json
// @Param id path string true "Class ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /classes/{id}/exams [get]
func (h *ExamHandler) List(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	page, pageSize := parsePage(c)
	exams, pagination, err := h.service.List(c.Request.Context(), c.Param("id"), claims.UserID, claims.Role, models.ExamFilter{Page: page, PageSize: pageSize})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, exams, pagination)
}

// Get godoc
// @Summary Get an exam with questions
// @Description Questions in creation order; answer keys hidden from students
// @Tags Exams
// @Produce json
// @Param examId path string true "Exam ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /exams/{examId} [get]
func (h *ExamHandler) Get(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	exam, err := h.service.Get(c.Request.Context(), c.Param("examId"), claims.UserID, claims.Role)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, exam, nil)
}

// UploadImage godoc
// @Summary Upload a question illustration
// @Tags Exams
// @Accept multipart/form-data
// @Produce json
// @Param id path string true "Class ID"
// @Param file formData file true "Image file"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Security BearerAuth
// @Router /classes/{id}/exam-images [post]
func (h *ExamHandler) UploadImage(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "file required"))
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "failed to read upload"))
		return
	}
	defer file.Close()

	url, err := h.service.UploadQuestionImage(c.Request.Context(), c.Param("id"), claims.UserID, claims.Role, fileHeader.Filename, file)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, gin.H{"url": url})
}
