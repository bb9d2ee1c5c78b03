package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mohsenjasser15-hash/jexam-api/internal/models"
	"github.com/mohsenjasser15-hash/jexam-api/internal/service"
	appErrors "github.com/mohsenjasser15-hash/jexam-api/pkg/errors"
	"github.com/mohsenjasser15-hash/jexam-api/pkg/response"
)

// VideoHandler exposes lecture video endpoints.
type VideoHandler struct {
	service *service.VideoService
}

// NewVideoHandler creates a new handler.
func NewVideoHandler(svc *service.VideoService) *VideoHandler {
	return &VideoHandler{service: svc}
}

// Upload godoc
// @Summary Upload a lecture video
// @Description Multipart upload, class owner only
// @Tags Videos
// @Accept multipart/form-data
// @Produce json
// @Param id path string true "Class ID"
// @Param title formData string true "Video title"
// @Param file formData file true "Video file"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 502 {object} response.Envelope
// @Security BearerAuth
// @Router /classes/{id}/videos [post]
func (h *VideoHandler) Upload(c *gin.Context) {
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

	req := service.UploadVideoRequest{
		Title:    c.PostForm("title"),
		Filename: fileHeader.Filename,
		Size:     fileHeader.Size,
	}
	video, err := h.service.Upload(c.Request.Context(), c.Param("id"), claims.UserID, claims.Role, req, file)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, video)
}

// List godoc
// @Summary List class videos
// @Tags Videos
// @Produce json
// @Param id path string true "Class ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /classes/{id}/videos [get]
func (h *VideoHandler) List(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	page, pageSize := parsePage(c)
	videos, pagination, err := h.service.List(c.Request.Context(), c.Param("id"), claims.UserID, claims.Role, models.VideoFilter{Page: page, PageSize: pageSize})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, videos, pagination)
}
