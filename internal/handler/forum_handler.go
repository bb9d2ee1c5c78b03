package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mohsenjasser15-hash/jexam-api/internal/models"
	"github.com/mohsenjasser15-hash/jexam-api/internal/service"
	appErrors "github.com/mohsenjasser15-hash/jexam-api/pkg/errors"
	"github.com/mohsenjasser15-hash/jexam-api/pkg/response"
)

// ForumHandler exposes class forum endpoints.
type ForumHandler struct {
	service *service.ForumService
}

// NewForumHandler creates a new handler.
func NewForumHandler(svc *service.ForumService) *ForumHandler {
	return &ForumHandler{service: svc}
}

// CreatePost godoc
// @Summary Post to the class forum
// @Tags Forum
// @Accept json
// @Produce json
// @Param id path string true "Class ID"
// @Param payload body service.CreatePostRequest true "Post payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Security BearerAuth
// @Router /classes/{id}/posts [post]
func (h *ForumHandler) CreatePost(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.CreatePostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid post payload"))
		return
	}

	post, err := h.service.CreatePost(c.Request.Context(), c.Param("id"), claims.UserID, claims.Role, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, post)
}

// ListPosts godoc
// @Summary List forum posts
// @Description Posts of the class forum, newest first
// @Tags Forum
// @Produce json
// @Param id path string true "Class ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /classes/{id}/posts [get]
func (h *ForumHandler) ListPosts(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	page, pageSize := parsePage(c)
	posts, pagination, err := h.service.ListPosts(c.Request.Context(), c.Param("id"), claims.UserID, claims.Role, models.ForumFilter{Page: page, PageSize: pageSize})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, posts, pagination)
}
