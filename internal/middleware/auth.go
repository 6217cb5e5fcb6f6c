package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/campusdesk/campus-api/internal/models"
	appErrors "github.com/campusdesk/campus-api/pkg/errors"
	"github.com/campusdesk/campus-api/pkg/response"
)

// Context keys set by the auth middleware.
const (
	ContextUserKey   = "auth_user"
	ContextClaimsKey = "auth_claims"
)

type authenticator interface {
	Authenticate(ctx context.Context, rawToken string) (*models.User, *models.JWTClaims, error)
}

// Auth validates the Authorization bearer token and stores the resolved user
// on the request context. Requests without a valid token are rejected.
func Auth(auth authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "authorization header required"))
			c.Abort()
			return
		}
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
			response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "authorization header must be a bearer token"))
			c.Abort()
			return
		}

		user, claims, err := auth.Authenticate(c.Request.Context(), parts[1])
		if err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}

		c.Set(ContextUserKey, user)
		c.Set(ContextClaimsKey, claims)
		c.Next()
	}
}

// RequireRoles rejects authenticated requests whose user holds none of the
// given roles.
func RequireRoles(roles ...models.UserRole) gin.HandlerFunc {
	allowed := make(map[models.UserRole]struct{}, len(roles))
	for _, role := range roles {
		allowed[role] = struct{}{}
	}
	return func(c *gin.Context) {
		user, ok := UserFromContext(c)
		if !ok {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		if _, ok := allowed[user.Role]; !ok {
			response.Error(c, appErrors.ErrForbidden)
			c.Abort()
			return
		}
		c.Next()
	}
}

// UserFromContext extracts the authenticated user placed by Auth.
func UserFromContext(c *gin.Context) (*models.User, bool) {
	value, exists := c.Get(ContextUserKey)
	if !exists {
		return nil, false
	}
	user, ok := value.(*models.User)
	return user, ok
}
