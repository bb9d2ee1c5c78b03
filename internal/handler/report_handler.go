package handler

import (
	"io"
	"net/http"
	"path/filepath"

	"github.com/gin-gonic/gin"

	"github.com/mohsenjasser15-hash/jexam-api/internal/models"
	"github.com/mohsenjasser15-hash/jexam-api/internal/service"
	appErrors "github.com/mohsenjasser15-hash/jexam-api/pkg/errors"
	"github.com/mohsenjasser15-hash/jexam-api/pkg/response"
)

// ReportHandler exposes the asynchronous report export endpoints.
type ReportHandler struct {
	service *service.ReportService
}

// NewReportHandler creates a new handler.
func NewReportHandler(svc *service.ReportService) *ReportHandler {
	return &ReportHandler{service: svc}
}

// Export godoc
// @Summary Queue a report export
// @Description Render the class report to CSV or PDF in the background
// @Tags Reports
// @Accept json
// @Produce json
// @Param id path string true "Class ID"
// @Param payload body map[string]string true "Format payload"
// @Success 202 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Security BearerAuth
// @Router /classes/{id}/report/export [post]
func (h *ReportHandler) Export(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var payload struct {
		Format models.ReportFormat `json:"format" binding:"required"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "format required"))
		return
	}

	job, err := h.service.RequestExport(c.Request.Context(), c.Param("id"), claims.UserID, claims.Role, payload.Format)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Accepted(c, job)
}

// Status godoc
// @Summary Report job status
// @Tags Reports
// @Produce json
// @Param jobId path string true "Job ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /reports/{jobId} [get]
func (h *ReportHandler) Status(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	job, err := h.service.GetJob(c.Request.Context(), c.Param("jobId"), claims.UserID, claims.Role)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, job, nil)
}

// Download godoc
// @Summary Download a finished report
// @Description Streams the rendered file; the token is the signed link from the job record
// @Tags Reports
// @Produce application/octet-stream
// @Param token query string true "Signed download token"
// @Success 200 {string} string "file"
// @Failure 401 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /reports/{jobId}/download [get]
func (h *ReportHandler) Download(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "token required"))
		return
	}

	file, relPath, err := h.service.ResolveDownload(token)
	if err != nil {
		response.Error(c, err)
		return
	}
	defer file.Close()

	filename := filepath.Base(relPath)
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	contentType := "text/csv"
	if filepath.Ext(filename) == ".pdf" {
		contentType = "application/pdf"
	}
	c.Header("Content-Type", contentType)
	c.Status(http.StatusOK)
	_, _ = io.Copy(c.Writer, file)
}
