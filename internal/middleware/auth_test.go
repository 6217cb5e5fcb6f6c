package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/campusdesk/campus-api/internal/models"
	appErrors "github.com/campusdesk/campus-api/pkg/errors"
)

type stubAuthenticator struct {
	user *models.User
	err  error
}

func (s *stubAuthenticator) Authenticate(_ context.Context, _ string) (*models.User, *models.JWTClaims, error) {
	if s.err != nil {
		return nil, nil, s.err
	}
	return s.user, &models.JWTClaims{UserID: s.user.ID, Role: s.user.Role}, nil
}

func newAuthRouter(auth *stubAuthenticator, roles ...models.UserRole) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	group := router.Group("", Auth(auth))
	if len(roles) > 0 {
		group.Use(RequireRoles(roles...))
	}
	group.GET("/protected", func(c *gin.Context) {
		user, _ := UserFromContext(c)
		c.JSON(http.StatusOK, gin.H{"user_id": user.ID})
	})
	return router
}

func request(router *gin.Engine, authorization string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestAuthRejectsMissingHeader(t *testing.T) {
	router := newAuthRouter(&stubAuthenticator{user: &models.User{ID: "u1"}})
	rec := request(router, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthRejectsNonBearerScheme(t *testing.T) {
	router := newAuthRouter(&stubAuthenticator{user: &models.User{ID: "u1"}})
	rec := request(router, "Basic dXNlcjpwYXNz")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthRejectsInvalidToken(t *testing.T) {
	router := newAuthRouter(&stubAuthenticator{err: appErrors.ErrInvalidToken})
	rec := request(router, "Bearer bad-token")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthStoresUserOnContext(t *testing.T) {
	router := newAuthRouter(&stubAuthenticator{user: &models.User{ID: "u1", Role: models.RoleAdmin}})
	rec := request(router, "Bearer good-token")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"u1"`)
}

func TestRequireRolesRejectsInsufficientRole(t *testing.T) {
	router := newAuthRouter(
		&stubAuthenticator{user: &models.User{ID: "u1", Role: models.RoleAdmin}},
		models.RoleSuperAdmin,
	)
	rec := request(router, "Bearer good-token")
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRequireRolesAllowsMatchingRole(t *testing.T) {
	router := newAuthRouter(
		&stubAuthenticator{user: &models.User{ID: "u1", Role: models.RoleSuperAdmin}},
		models.RoleAdmin, models.RoleSuperAdmin,
	)
	rec := request(router, "Bearer good-token")
	assert.Equal(t, http.StatusOK, rec.Code)
}
