package handler

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"

	"github.com/yourusername/dealership-api/internal/domain/entity"
	apperrors "github.com/yourusername/dealership-api/internal/pkg/errors"
	"github.com/yourusername/dealership-api/internal/service"
)

func TestUserHandler_Me(t *testing.T) {
	users := new(MockUserService)
	h := NewUserHandler(users, zap.NewNop())
	users.On("GetByID", mock.Anything, uint(5)).Return(&entity.User{ID: 5, FullName: "Kamal", Role: entity.RoleSales}, nil)

	c, w := newTestGinContext(http.MethodGet, "/api/users/me", nil)
	authenticate(c, 5, entity.RoleSales)
	h.Me(c)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Kamal", parseJSONResponse(t, w)["full_name"])

	c, w = newTestGinContext(http.MethodGet, "/api/users/me", nil)
	h.Me(c)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestUserHandler_ListClampsQuery(t *testing.T) {
	users := new(MockUserService)
	h := NewUserHandler(users, zap.NewNop())
	users.On("List", mock.Anything, 1, 20).Return(&service.UserPage{Users: []entity.User{}, Page: 1, PerPage: 20}, nil)

	c, w := newTestGinContext(http.MethodGet, "/api/users?page=-2&page_size=abc", nil)
	h.List(c)

	assert.Equal(t, http.StatusOK, w.Code)
	users.AssertExpectations(t)
}

func TestUserHandler_Create(t *testing.T) {
	users := new(MockUserService)
	h := NewUserHandler(users, zap.NewNop())

	in := service.CreateUserInput{
		FullName:     "Sunil Silva",
		MobileNumber: "0771234567",
		Password:     "password-123",
		Role:         entity.RoleSales,
	}
	users.On("Create", mock.Anything, in).Return(&entity.User{ID: 9, FullName: "Sunil Silva"}, nil)

	c, w := newTestGinContext(http.MethodPost, "/api/users", map[string]string{
		"fullName":     "Sunil Silva",
		"mobileNumber": "0771234567",
		"password":     "password-123",
		"role":         "sales",
	})
	h.Create(c)
	assert.Equal(t, http.StatusCreated, w.Code)

	users.On("Create", mock.Anything, mock.Anything).Return(nil, apperrors.ErrConflict)
	c, w = newTestGinContext(http.MethodPost, "/api/users", map[string]string{
		"fullName":     "Dup",
		"mobileNumber": "0771234567",
		"password":     "password-123",
		"role":         "sales",
	})
	h.Create(c)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestUserHandler_UpdatePassesActorAndTarget(t *testing.T) {
	users := new(MockUserService)
	h := NewUserHandler(users, zap.NewNop())

	active := false
	users.On("Update", mock.Anything, uint(1), uint(7), service.UpdateUserInput{Active: &active}).
		Return(&entity.User{ID: 7, Active: false}, nil)

	c, w := newTestGinContext(http.MethodPatch, "/api/users/7", map[string]bool{"active": false})
	authenticate(c, 1, entity.RoleAdmin)
	c.Set(ParamUserID, uint(7))
	h.Update(c)

	assert.Equal(t, http.StatusOK, w.Code)
	users.AssertExpectations(t)
}
