package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mohsenjasser15-hash/jexam-api/internal/service"
	appErrors "github.com/mohsenjasser15-hash/jexam-api/pkg/errors"
	"github.com/mohsenjasser15-hash/jexam-api/pkg/response"
)

// AnalyticsHandler exposes the class report endpoint.
type AnalyticsHandler struct {
	service *service.AnalyticsService
}

// NewAnalyticsHandler creates a new handler.
func NewAnalyticsHandler(svc *service.AnalyticsService) *AnalyticsHandler {
	return &AnalyticsHandler{service: svc}
}

// ClassReport godoc
// @Summary Class student report
// @Description Per-student score and attendance rows, class owner only
// @Tags Analytics
// @Produce json
// @Param id path string true "Class ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Security BearerAuth
// @Router /classes/{id}/report [get]
func (h *AnalyticsHandler) ClassReport(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	rows, err := h.service.ClassReport(c.Request.Context(), c.Param("id"), claims.UserID, claims.Role)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, rows, nil)
}
