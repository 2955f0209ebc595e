package user

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"gymflow/internal/apperr"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockService struct {
	mock.Mock
}

func (m *MockService) Register(ctx context.Context, req RegisterRequest) (*User, string, string, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, "", "", args.Error(3)
	}
	return args.Get(0).(*User), args.String(1), args.String(2), args.Error(3)
}

func (m *MockService) Login(ctx context.Context, req LoginRequest) (*User, string, string, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, "", "", args.Error(3)
	}
	return args.Get(0).(*User), args.String(1), args.String(2), args.Error(3)
}

func (m *MockService) GetByID(ctx context.Context, userID int) (*User, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*User), args.Error(1)
}

func (m *MockService) RefreshToken(ctx context.Context, refreshToken string) (string, *User, error) {
	args := m.Called(ctx, refreshToken)
	if args.Get(1) == nil {
		return "", nil, args.Error(2)
	}
	return args.String(0), args.Get(1).(*User), args.Error(2)
}

func (m *MockService) ListActiveStaff(ctx context.Context) ([]Contact, error) {
	args := m.Called(ctx)
	return args.Get(0).([]Contact), args.Error(1)
}

func (m *MockService) List(ctx context.Context, f ListFilter) (*Page, error) {
	args := m.Called(ctx, f)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Page), args.Error(1)
}

func (m *MockService) SetStatus(ctx context.Context, adminID, id int, req StatusRequest) (*User, error) {
	args := m.Called(ctx, adminID, id, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*User), args.Error(1)
}

func setupRouter(svc Service, userID int) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewHandler(svc)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		if userID > 0 {
			c.Set("user_id", userID)
		}
		c.Next()
	})
	r.POST("/auth/register", h.Register)
	r.POST("/auth/login", h.Login)
	r.POST("/auth/refresh", h.RefreshToken)
	r.GET("/me", h.GetMe)
	r.GET("/admin/users", h.ListUsers)
	r.PATCH("/admin/users/:id/status", h.UpdateStatus)
	return r
}

func doJSON(r *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHandler_Register(t *testing.T) {
	t.Run("created", func(t *testing.T) {
		svc := new(MockService)
		svc.On("Register", mock.Anything, mock.Anything).
			Return(&User{ID: 1, Email: "n@example.com", Status: StatusPendingSubscription}, "access", "refresh", nil)

		w := doJSON(setupRouter(svc, 0), http.MethodPost, "/auth/register",
			map[string]string{"name": "New", "email": "n@example.com", "password": "secret1"})

		assert.Equal(t, http.StatusCreated, w.Code)
		var body map[string]interface{}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, true, body["success"])
		data := body["data"].(map[string]interface{})
		assert.Equal(t, "access", data["access_token"])
		assert.NotContains(t, w.Body.String(), "password_hash")
	})

	t.Run("invalid body", func(t *testing.T) {
		w := doJSON(setupRouter(new(MockService), 0), http.MethodPost, "/auth/register",
			map[string]string{"email": "not-an-email"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("duplicate email", func(t *testing.T) {
		svc := new(MockService)
		svc.On("Register", mock.Anything, mock.Anything).Return(nil, "", "", apperr.Conflict("Email already registered"))

		w := doJSON(setupRouter(svc, 0), http.MethodPost, "/auth/register",
			map[string]string{"name": "New", "email": "n@example.com", "password": "secret1"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "Email already registered")
	})
}

func TestHandler_Login(t *testing.T) {
	svc := new(MockService)
	svc.On("Login", mock.Anything, LoginRequest{Email: "m@example.com", Password: "bad"}).
		Return(nil, "", "", ErrInvalidCredentials)

	w := doJSON(setupRouter(svc, 0), http.MethodPost, "/auth/login",
		map[string]string{"email": "m@example.com", "password": "bad"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestHandler_GetMe(t *testing.T) {
	t.Run("authenticated", func(t *testing.T) {
		svc := new(MockService)
		svc.On("GetByID", mock.Anything, 4).Return(&User{ID: 4, Name: "Mia"}, nil)

		w := doJSON(setupRouter(svc, 4), http.MethodGet, "/me", nil)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"name":"Mia"`)
	})

	t.Run("anonymous", func(t *testing.T) {
		w := doJSON(setupRouter(new(MockService), 0), http.MethodGet, "/me", nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestHandler_RefreshToken(t *testing.T) {
	svc := new(MockService)
	svc.On("RefreshToken", mock.Anything, "bad").Return("", nil, ErrInvalidCredentials)

	w := doJSON(setupRouter(svc, 0), http.MethodPost, "/auth/refresh", map[string]string{"refresh_token": "bad"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doJSON(setupRouter(svc, 0), http.MethodPost, "/auth/refresh", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandler_ListUsers(t *testing.T) {
	svc := new(MockService)
	svc.On("List", mock.Anything, ListFilter{Status: StatusFrozen, Page: 2}).
		Return(&Page{Users: []User{{ID: 9, PasswordHash: "secret"}}}, nil)

	w := doJSON(setupRouter(svc, 1), http.MethodGet, "/admin/users?status=frozen&page=2", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), "secret")

	w = doJSON(setupRouter(svc, 1), http.MethodGet, "/admin/users?status=vip", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	svc.AssertExpectations(t)
}

func TestHandler_UpdateStatus(t *testing.T) {
	svc := new(MockService)
	req := StatusRequest{Status: StatusSuspended, Reason: "chargeback"}
	svc.On("SetStatus", mock.Anything, 1, 7, req).Return(&User{ID: 7, Status: StatusSuspended}, nil)

	w := doJSON(setupRouter(svc, 1), http.MethodPatch, "/admin/users/7/status", req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"suspended"`)

	w = doJSON(setupRouter(svc, 1), http.MethodPatch, "/admin/users/7/status", map[string]string{"status": "deleted"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(setupRouter(svc, 1), http.MethodPatch, "/admin/users/x/status", req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	svc.AssertExpectations(t)
}
