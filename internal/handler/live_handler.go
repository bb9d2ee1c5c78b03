package handler

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mohsenjasser15-hash/jexam-api/internal/models"
	"github.com/mohsenjasser15-hash/jexam-api/internal/service"
	appErrors "github.com/mohsenjasser15-hash/jexam-api/pkg/errors"
	"github.com/mohsenjasser15-hash/jexam-api/pkg/response"
)

// LiveHandler exposes the live session command set plus the event stream.
type LiveHandler struct {
	live     *service.LiveService
	classes  *service.ClassService
	observer service.SessionObserver
	logger   *zap.Logger
}

// NewLiveHandler creates a new handler.
func NewLiveHandler(live *service.LiveService, classes *service.ClassService, observer service.SessionObserver, logger *zap.Logger) *LiveHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LiveHandler{live: live, classes: classes, observer: observer, logger: logger}
}

// Start godoc
// @Summary Start a live session
// @Description Begin broadcasting for the class in camera mode
// @Tags Live
// @Produce json
// @Param id path string true "Class ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /classes/{id}/live/start [post]
func (h *LiveHandler) Start(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	session, err := h.live.StartSession(c.Request.Context(), c.Param("id"), claims.UserID, claims.Role)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, session, nil)
}

// End godoc
// @Summary End a live session
// @Tags Live
// @Produce json
// @Param id path string true "Class ID"
// @Success 204 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Security BearerAuth
// @Router /classes/{id}/live/end [post]
func (h *LiveHandler) End(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	if err := h.live.EndSession(c.Request.Context(), c.Param("id"), claims.UserID, claims.Role); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}

// SetMode godoc
// @Summary Switch broadcast mode
// @Description Set the session to CAMERA, SCREEN or WHITEBOARD
// @Tags Live
// @Accept json
// @Produce json
// @Param id path string true "Class ID"
// @Param payload body map[string]string true "Mode payload"
// @Success 204 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Security BearerAuth
// @Router /classes/{id}/live/mode [put]
func (h *LiveHandler) SetMode(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var payload struct {
		Mode models.BroadcastMode `json:"mode" binding:"required"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "mode required"))
		return
	}

	if err := h.live.SetMode(c.Request.Context(), c.Param("id"), claims.UserID, claims.Role, payload.Mode); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}

// RaiseHand godoc
// @Summary Raise hand
// @Tags Live
// @Produce json
// @Param id path string true "Class ID"
// @Success 204 {object} response.Envelope
// @Security BearerAuth
// @Router /classes/{id}/live/hand [post]
func (h *LiveHandler) RaiseHand(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	classID := c.Param("id")

	if _, err := h.classes.AuthorizeByID(c.Request.Context(), classID, claims.UserID, claims.Role); err != nil {
		response.Error(c, err)
		return
	}
	if err := h.live.RaiseHand(c.Request.Context(), classID, claims.UserID); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}

// LowerHand godoc
// @Summary Lower hand
// @Tags Live
// @Produce json
// @Param id path string true "Class ID"
// @Success 204 {object} response.Envelope
// @Security BearerAuth
// @Router /classes/{id}/live/hand [delete]
func (h *LiveHandler) LowerHand(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	classID := c.Param("id")

	if _, err := h.classes.AuthorizeByID(c.Request.Context(), classID, claims.UserID, claims.Role); err != nil {
		response.Error(c, err)
		return
	}
	if err := h.live.LowerHand(c.Request.Context(), classID, claims.UserID); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}

// AdmitSpeaker godoc
// @Summary Admit a speaker
// @Description Grant the microphone to a student with a raised hand
// @Tags Live
// @Produce json
// @Param id path string true "Class ID"
// @Param studentId path string true "Student ID"
// @Success 204 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Security BearerAuth
// @Router /classes/{id}/live/speakers/{studentId} [post]
func (h *LiveHandler) AdmitSpeaker(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	if err := h.live.AdmitSpeaker(c.Request.Context(), c.Param("id"), claims.UserID, claims.Role, c.Param("studentId")); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}

// MuteSpeaker godoc
// @Summary Mute a speaker
// @Tags Live
// @Produce json
// @Param id path string true "Class ID"
// @Param studentId path string true "Student ID"
// @Success 204 {object} response.Envelope
// @Security BearerAuth
// @Router /classes/{id}/live/speakers/{studentId} [delete]
func (h *LiveHandler) MuteSpeaker(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	if err := h.live.MuteSpeaker(c.Request.Context(), c.Param("id"), claims.UserID, claims.Role, c.Param("studentId")); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}

// State godoc
// @Summary Current session state
// @Description Snapshot of the live session with resolved raised hands
// @Tags Live
// @Produce json
// @Param id path string true "Class ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /classes/{id}/live [get]
func (h *LiveHandler) State(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	classID := c.Param("id")

	if _, err := h.classes.AuthorizeByID(c.Request.Context(), classID, claims.UserID, claims.Role); err != nil {
		response.Error(c, err)
		return
	}

	view, err := h.live.GetSessionState(c.Request.Context(), classID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, view, nil)
}

// Events godoc
// @Summary Live session event stream
// @Description Server-sent events for session lifecycle and membership changes
// @Tags Live
// @Produce text/event-stream
// @Param id path string true "Class ID"
// @Success 200 {string} string "SSE stream"
// @Security BearerAuth
// @Router /classes/{id}/live/events [get]
func (h *LiveHandler) Events(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	classID := c.Param("id")

	if _, err := h.classes.AuthorizeByID(c.Request.Context(), classID, claims.UserID, claims.Role); err != nil {
		response.Error(c, err)
		return
	}

	ctx := c.Request.Context()
	events, cancel, err := h.observer.Observe(ctx, classID)
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open event stream"))
		return
	}
	defer cancel()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	// send the current state first so late subscribers start in sync
	if session, err := h.live.GetSession(ctx, classID); err == nil {
		initial := models.SessionEvent{Type: models.SessionEventUpdated, ClassID: classID, Session: session}
		if session == nil {
			initial.Type = models.SessionEventEnded
		}
		writeSSE(c.Writer, initial)
		c.Writer.Flush()
	}

	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case event, ok := <-events:
			if !ok {
				return false
			}
			writeSSE(w, event)
			return true
		}
	})
}

func writeSSE(w io.Writer, event models.SessionEvent) {
	payload, err := json.Marshal(event)
	if err != nil {
		return
	}
	_, _ = w.Write([]byte("event: " + string(event.Type) + "\ndata: "))
	_, _ = w.Write(payload)
	_, _ = w.Write([]byte("\n\n"))
}
