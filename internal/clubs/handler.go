package clubs

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/clubhouse/backend/internal/middleware"
	"github.com/clubhouse/backend/pkg/response"
)

// Handler handles club HTTP endpoints.
type Handler struct {
	svc    *Service
	logger *zap.Logger
}

// NewHandler creates a clubs handler.
func NewHandler(svc *Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{svc: svc, logger: logger}
}

// RegisterRoutes mounts public routes on public and authenticated routes on protected.
func (h *Handler) RegisterRoutes(public, protected gin.IRoutes) {
	public.GET("/clubs", h.GetClubs)
	public.GET("/clubs/:clubId", h.GetClubByID)

	protected.GET("/clubs/me", h.GetMyClubs)
	protected.POST("/clubs", h.CreateClub)
	protected.PATCH("/clubs/:clubId", h.UpdateClub)
	protected.DELETE("/clubs/:clubId", h.DeleteClub)
	protected.POST("/clubs/:clubId/join", h.JoinClub)
	protected.DELETE("/clubs/:clubId/join", h.OutClub)
	protected.GET("/clubs/:clubId/requests", h.GetJoinRequests)
	protected.POST("/clubs/:clubId/approve", h.Approve)
	protected.PUT("/clubs/:clubId/delegate", h.Delegate)
}

// CreateClub handles POST /clubs.
func (h *Handler) CreateClub(c *gin.Context) {
	userID := c.MustGet(middleware.ContextUserID).(int64)
	var body CreateClubPayload
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	club, err := h.svc.CreateClub(c.Request.Context(), userID, body)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Created(c, club)
}

// JoinClub handles POST /clubs/:clubId/join.
func (h *Handler) JoinClub(c *gin.Context) {
	clubID, ok := clubIDParam(c)
	if !ok {
		return
	}
	userID := c.MustGet(middleware.ContextUserID).(int64)
	if err := h.svc.JoinClub(c.Request.Context(), clubID, userID); err != nil {
		h.fail(c, err)
		return
	}
	response.NoContent(c)
}

// OutClub handles DELETE /clubs/:clubId/join. Cancels a request or leaves the club.
func (h *Handler) OutClub(c *gin.Context) {
	clubID, ok := clubIDParam(c)
	if !ok {
		return
	}
	userID := c.MustGet(middleware.ContextUserID).(int64)
	if err := h.svc.OutClub(c.Request.Context(), clubID, userID); err != nil {
		h.fail(c, err)
		return
	}
	response.NoContent(c)
}

// GetClubs handles GET /clubs.
func (h *Handler) GetClubs(c *gin.Context) {
	list, err := h.svc.GetClubs(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, list)
}

// GetMyClubs handles GET /clubs/me.
func (h *Handler) GetMyClubs(c *gin.Context) {
	userID := c.MustGet(middleware.ContextUserID).(int64)
	list, err := h.svc.GetMyClubs(c.Request.Context(), userID)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, list)
}

// GetClubByID handles GET /clubs/:clubId.
func (h *Handler) GetClubByID(c *gin.Context) {
	clubID, ok := clubIDParam(c)
	if !ok {
		return
	}
	club, err := h.svc.GetClubByID(c.Request.Context(), clubID)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, club)
}

// UpdateClub handles PATCH /clubs/:clubId (owner only).
func (h *Handler) UpdateClub(c *gin.Context) {
	clubID, ok := clubIDParam(c)
	if !ok {
		return
	}
	userID := c.MustGet(middleware.ContextUserID).(int64)
	var body UpdateClubPayload
	// An empty body changes nothing.
	if err := c.ShouldBindJSON(&body); err != nil && !errors.Is(err, io.EOF) {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	if err := body.Validate(); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	club, err := h.svc.UpdateClub(c.Request.Context(), clubID, body, userID)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, club)
}

// DeleteClub handles DELETE /clubs/:clubId (owner only).
func (h *Handler) DeleteClub(c *gin.Context) {
	clubID, ok := clubIDParam(c)
	if !ok {
		return
	}
	userID := c.MustGet(middleware.ContextUserID).(int64)
	if err := h.svc.DeleteClub(c.Request.Context(), clubID, userID); err != nil {
		h.fail(c, err)
		return
	}
	response.NoContent(c)
}

// Delegate handles PUT /clubs/:clubId/delegate (owner only).
func (h *Handler) Delegate(c *gin.Context) {
	clubID, ok := clubIDParam(c)
	if !ok {
		return
	}
	userID := c.MustGet(middleware.ContextUserID).(int64)
	var body DelegatePayload
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	club, err := h.svc.Delegate(c.Request.Context(), clubID, userID, body)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, club)
}

// Approve handles POST /clubs/:clubId/approve (owner only).
func (h *Handler) Approve(c *gin.Context) {
	clubID, ok := clubIDParam(c)
	if !ok {
		return
	}
	userID := c.MustGet(middleware.ContextUserID).(int64)
	var body ApprovePayload
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	if err := h.svc.Approve(c.Request.Context(), clubID, userID, body); err != nil {
		h.fail(c, err)
		return
	}
	response.NoContent(c)
}

// GetJoinRequests handles GET /clubs/:clubId/requests (owner only).
func (h *Handler) GetJoinRequests(c *gin.Context) {
	clubID, ok := clubIDParam(c)
	if !ok {
		return
	}
	userID := c.MustGet(middleware.ContextUserID).(int64)
	list, err := h.svc.GetJoinRequests(c.Request.Context(), clubID, userID)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, list)
}

func clubIDParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("clubId"), 10, 64)
	if err != nil || id < 1 {
		response.BadRequest(c, "invalid club id")
		return 0, false
	}
	return id, true
}

// fail maps service errors to responses; anything unrecognised is a 500.
func (h *Handler) fail(c *gin.Context, err error) {
	var ce *Error
	if errors.As(err, &ce) {
		switch {
		case errors.Is(ce, ErrNotFound):
			response.NotFound(c, ce.Message)
		case errors.Is(ce, ErrConflict):
			response.Conflict(c, ce.Message)
		case errors.Is(ce, ErrForbidden):
			response.Forbidden(c, ce.Message)
		case errors.Is(ce, ErrBadRequest):
			response.BadRequest(c, ce.Message)
		default:
			response.Fail(c, http.StatusInternalServerError, ce.Message)
		}
		return
	}
	h.logger.Error("club request failed",
		zap.Error(err),
		zap.String("method", c.Request.Method),
		zap.String("path", c.FullPath()),
	)
	response.Internal(c, "internal server error")
}
