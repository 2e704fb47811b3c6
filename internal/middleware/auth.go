package middleware

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Divy1030/Code-Arena-Backend/internal/auth"
	"github.com/Divy1030/Code-Arena-Backend/internal/config"
	"github.com/Divy1030/Code-Arena-Backend/internal/models"
)

// Context keys set by the auth middleware.
const (
	ContextUserKey   = "user"
	ContextUserIDKey = "userId"
)

// UserLoader resolves token subjects to user rows.
type UserLoader interface {
	GetUser(ctx context.Context, id string) (*models.User, error)
}

// Auth validates the access token (cookie or bearer header), loads the
// user and stores it in the gin context. Requests without a valid token
// are aborted with 401.
func Auth(cfg *config.Config, users UserLoader) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := auth.TokenFromRequest(c.Request)
		if token == "" {
			abortUnauthorized(c, "unauthorized request")
			return
		}

		userID, err := auth.Verify(token, cfg.AccessTokenSecret)
		if err != nil {
			abortUnauthorized(c, "invalid access token")
			return
		}

		user, err := users.GetUser(c.Request.Context(), userID)
		if err != nil {
			abortUnauthorized(c, "invalid access token")
			return
		}

		c.Set(ContextUserKey, user)
		c.Set(ContextUserIDKey, user.ID)
		c.Next()
	}
}

// OptionalAuth loads the user when a valid token is present but lets
// anonymous requests through untouched.
func OptionalAuth(cfg *config.Config, users UserLoader) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := auth.TokenFromRequest(c.Request)
		if token == "" {
			c.Next()
			return
		}
		userID, err := auth.Verify(token, cfg.AccessTokenSecret)
		if err != nil {
			c.Next()
			return
		}
		if user, err := users.GetUser(c.Request.Context(), userID); err == nil {
			c.Set(ContextUserKey, user)
			c.Set(ContextUserIDKey, user.ID)
		}
		c.Next()
	}
}

// CurrentUser pulls the authenticated user out of the gin context.
func CurrentUser(c *gin.Context) (*models.User, bool) {
	v, ok := c.Get(ContextUserKey)
	if !ok {
		return nil, false
	}
	user, ok := v.(*models.User)
	return user, ok
}

func abortUnauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"statusCode": http.StatusUnauthorized,
		"message":    message,
		"success":    false,
		"errors":     []string{message},
	})
}
