package middleware

import (
	"context"
	"errors"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/clubhouse/backend/internal/auth"
	"github.com/clubhouse/backend/internal/models"
	"github.com/clubhouse/backend/pkg/response"
)

const (
	// ContextUserID is the key for the numeric user ID in gin context.
	ContextUserID = auth.ContextUserID
	// ContextUserEmail is the key for user email in gin context.
	ContextUserEmail = "user_email"
)

// UserLookup resolves the active user behind a token. *auth.Repository
// satisfies it and hides soft-deleted users.
type UserLookup interface {
	GetByID(ctx context.Context, id int64) (*models.User, error)
}

// JWT returns a middleware that validates the bearer token, checks the user
// still exists and sets user claims in context.
func JWT(jwtService *auth.JWTService, users UserLookup) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			response.Unauthorized(c, "missing authorization header")
			c.Abort()
			return
		}
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			response.Unauthorized(c, "invalid authorization header")
			c.Abort()
			return
		}
		claims, err := jwtService.Validate(strings.TrimSpace(parts[1]))
		if err != nil {
			response.Unauthorized(c, "invalid or expired token")
			c.Abort()
			return
		}

		if _, err := users.GetByID(c.Request.Context(), claims.UserID); err != nil {
			if errors.Is(err, auth.ErrUserNotFound) {
				response.Unauthorized(c, "user no longer exists")
			} else {
				_ = c.Error(err)
				response.Internal(c, "failed to verify user")
			}
			c.Abort()
			return
		}

		c.Set(ContextUserID, claims.UserID)
		c.Set(ContextUserEmail, claims.Email)
		c.Next()
	}
}
