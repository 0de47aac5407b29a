package handler

import (
	"context"
	"database/sql"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/topfive-api/internal/models"
	"github.com/noah-isme/topfive-api/internal/service"
)

type stubUserRepo struct {
	users map[string]*models.User
}

func (s *stubUserRepo) List(context.Context, models.UserFilter) ([]models.User, int, error) {
	return nil, 0, nil
}

func (s *stubUserRepo) FindByID(_ context.Context, id string) (*models.User, error) {
	if u, ok := s.users[id]; ok {
		return u, nil
	}
	return nil, sql.ErrNoRows
}

func (s *stubUserRepo) Create(context.Context, *models.User) error { return nil }
func (s *stubUserRepo) Update(context.Context, *models.User) error { return nil }
func (s *stubUserRepo) Delete(context.Context, string) error       { return nil }

func (s *stubUserRepo) SetRole(context.Context, string, models.UserRole) (*models.User, error) {
	return nil, sql.ErrNoRows
}

func newUserHandlerFixture() *UserHandler {
	repo := &stubUserRepo{users: map[string]*models.User{
		"admin-1": {ID: "admin-1", Email: "admin@example.com", Role: models.RoleAdmin, Active: true},
		"user-2":  {ID: "user-2", Email: "fan@example.com", Role: models.RoleUser, Active: true},
	}}
	return NewUserHandler(service.NewUserService(repo, nil, nil, nil))
}

func TestUserHandlerGetHidesAdminsFromUsers(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newUserHandlerFixture()

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/users/admin-1", nil)
	c.Params = gin.Params{{Key: "id", Value: "admin-1"}}
	withClaims(c, "user-1", models.RoleUser)

	handler.Get(c)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	c, _ = gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/users/user-2", nil)
	c.Params = gin.Params{{Key: "id", Value: "user-2"}}
	withClaims(c, "user-1", models.RoleUser)

	handler.Get(c)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestUserHandlerDeleteRefusesSelf(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newUserHandlerFixture()

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodDelete, "/users/admin-1", nil)
	c.Params = gin.Params{{Key: "id", Value: "admin-1"}}
	withClaims(c, "admin-1", models.RoleAdmin)

	handler.Delete(c)

	require.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), "your own account")
}

func TestUserHandlerCreateRejectsMalformedJSON(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newUserHandlerFixture()

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/users", strings.NewReader(`{"email":`))
	c.Request.Header.Set("Content-Type", "application/json")
	withClaims(c, "admin-1", models.RoleAdmin)

	handler.Create(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
