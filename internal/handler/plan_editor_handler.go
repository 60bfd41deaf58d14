package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/timetable-editor/internal/dto"
	"github.com/noah-isme/timetable-editor/internal/middleware"
	"github.com/noah-isme/timetable-editor/internal/service"
	appErrors "github.com/noah-isme/timetable-editor/pkg/errors"
	"github.com/noah-isme/timetable-editor/pkg/response"
)

type planEditor interface {
	Start(ctx context.Context, planID int64, owner string) (*dto.EditorSessionView, error)
	Get(ctx context.Context, sessionID, owner string) (*dto.EditorSessionView, error)
	Move(ctx context.Context, sessionID, owner string, req dto.MoveRequest) (*dto.EditorSessionView, error)
	Remove(ctx context.Context, sessionID, owner, key string) (*dto.EditorSessionView, error)
	Reset(ctx context.Context, sessionID, owner string) (*dto.EditorSessionView, error)
	Save(ctx context.Context, sessionID, owner string) (*dto.EditorSessionView, error)
	Cancel(ctx context.Context, sessionID, owner string) error
}

// PlanEditorHandler exposes timetable editing sessions.
type PlanEditorHandler struct {
	service planEditor
}

// NewPlanEditorHandler constructs the handler.
func NewPlanEditorHandler(svc *service.PlanEditorService) *PlanEditorHandler {
	return &PlanEditorHandler{service: svc}
}

// Register mounts the editor routes on group. Authentication and role checks
// are expected on the group already.
func (h *PlanEditorHandler) Register(group *gin.RouterGroup) {
	group.POST("/plans/:planId/editor", h.Start)
	sessions := group.Group("/editor/sessions/:sessionId")
	sessions.GET("", h.Get)
	sessions.DELETE("", h.Cancel)
	sessions.POST("/moves", h.Move)
	sessions.DELETE("/cells/:key", h.Remove)
	sessions.POST("/reset", h.Reset)
	sessions.POST("/save", h.Save)
}

// Start godoc
// @Summary Open an editing session on a committed plan
// @Tags Editor
// @Produce json
// @Param planId path int true "Plan ID"
// @Success 201 {object} response.Envelope{data=dto.EditorSessionView}
// @Failure 404 {object} response.Envelope
// @Failure 503 {object} response.Envelope
// @Router /plans/{planId}/editor [post]
func (h *PlanEditorHandler) Start(c *gin.Context) {
	planID, err := strconv.ParseInt(c.Param("planId"), 10, 64)
	if err != nil || planID <= 0 {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "planId must be a positive integer"))
		return
	}
	view, err := h.service.Start(c.Request.Context(), planID, owner(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, view)
}

// Get godoc
// @Summary Render an editing session
// @Tags Editor
// @Produce json
// @Param sessionId path string true "Session ID"
// @Success 200 {object} response.Envelope{data=dto.EditorSessionView}
// @Failure 404 {object} response.Envelope
// @Router /editor/sessions/{sessionId} [get]
func (h *PlanEditorHandler) Get(c *gin.Context) {
	h.respond(c, func(ctx context.Context, id, who string) (*dto.EditorSessionView, error) {
		return h.service.Get(ctx, id, who)
	})
}

// Move godoc
// @Summary Apply a drag-and-drop move
// @Description Moves a lesson or band group between grid cells and the staging area.
// @Tags Editor
// @Accept json
// @Produce json
// @Param sessionId path string true "Session ID"
// @Param payload body dto.MoveRequest true "Move"
// @Success 200 {object} response.Envelope{data=dto.EditorSessionView}
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /editor/sessions/{sessionId}/moves [post]
func (h *PlanEditorHandler) Move(c *gin.Context) {
	var req dto.MoveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid move payload"))
		return
	}
	h.respond(c, func(ctx context.Context, id, who string) (*dto.EditorSessionView, error) {
		return h.service.Move(ctx, id, who, req)
	})
}

// Remove godoc
// @Summary Remove the lesson at a grid cell
// @Tags Editor
// @Produce json
// @Param sessionId path string true "Session ID"
// @Param key path string true "Cell key class:day:period"
// @Success 200 {object} response.Envelope{data=dto.EditorSessionView}
// @Router /editor/sessions/{sessionId}/cells/{key} [delete]
func (h *PlanEditorHandler) Remove(c *gin.Context) {
	key := c.Param("key")
	h.respond(c, func(ctx context.Context, id, who string) (*dto.EditorSessionView, error) {
		return h.service.Remove(ctx, id, who, key)
	})
}

// Reset godoc
// @Summary Discard local edits
// @Tags Editor
// @Produce json
// @Param sessionId path string true "Session ID"
// @Success 200 {object} response.Envelope{data=dto.EditorSessionView}
// @Router /editor/sessions/{sessionId}/reset [post]
func (h *PlanEditorHandler) Reset(c *gin.Context) {
	h.respond(c, func(ctx context.Context, id, who string) (*dto.EditorSessionView, error) {
		return h.service.Reset(ctx, id, who)
	})
}

// Save godoc
// @Summary Persist the edited plan
// @Description Replaces every slot of the plan. Fails while the staging area holds items.
// @Tags Editor
// @Produce json
// @Param sessionId path string true "Session ID"
// @Success 200 {object} response.Envelope{data=dto.EditorSessionView}
// @Failure 409 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Failure 502 {object} response.Envelope
// @Router /editor/sessions/{sessionId}/save [post]
func (h *PlanEditorHandler) Save(c *gin.Context) {
	h.respond(c, func(ctx context.Context, id, who string) (*dto.EditorSessionView, error) {
		return h.service.Save(ctx, id, who)
	})
}

// Cancel godoc
// @Summary Close an editing session without saving
// @Tags Editor
// @Param sessionId path string true "Session ID"
// @Success 204
// @Router /editor/sessions/{sessionId} [delete]
func (h *PlanEditorHandler) Cancel(c *gin.Context) {
	if err := h.service.Cancel(c.Request.Context(), c.Param("sessionId"), owner(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

func (h *PlanEditorHandler) respond(c *gin.Context, op func(ctx context.Context, sessionID, owner string) (*dto.EditorSessionView, error)) {
	view, err := op(c.Request.Context(), c.Param("sessionId"), owner(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, view)
}

func owner(c *gin.Context) string {
	if claims := middleware.Claims(c); claims != nil {
		return claims.UserID
	}
	return ""
}
