package notifications

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/clubhouse/backend/internal/middleware"
	"github.com/clubhouse/backend/pkg/response"
)

const (
	defaultLimit = 50
	maxLimit     = 200
)

// Handler handles notification inbox endpoints.
type Handler struct {
	repo   *Repository
	logger *zap.Logger
}

// NewHandler creates a notifications handler.
func NewHandler(repo *Repository, logger *zap.Logger) *Handler {
	return &Handler{repo: repo, logger: logger}
}

// List handles GET /notifications?limit=N.
func (h *Handler) List(c *gin.Context) {
	userID := c.MustGet(middleware.ContextUserID).(int64)
	limit := defaultLimit
	if s := c.Query("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 {
			response.BadRequest(c, "limit must be a positive integer")
			return
		}
		limit = min(n, maxLimit)
	}
	list, err := h.repo.ListForUser(c.Request.Context(), userID, limit)
	if err != nil {
		h.logger.Error("list notifications", zap.Error(err), zap.Int64("user_id", userID))
		response.Internal(c, "failed to load notifications")
		return
	}
	response.OK(c, list)
}

// MarkAllRead handles POST /notifications/read.
func (h *Handler) MarkAllRead(c *gin.Context) {
	userID := c.MustGet(middleware.ContextUserID).(int64)
	n, err := h.repo.MarkAllRead(c.Request.Context(), userID)
	if err != nil {
		h.logger.Error("mark notifications read", zap.Error(err), zap.Int64("user_id", userID))
		response.Internal(c, "failed to update notifications")
		return
	}
	response.OK(c, gin.H{"updated": n})
}
