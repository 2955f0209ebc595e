package api

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"gymflow/internal/apperr"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestNewPagination(t *testing.T) {
	tests := []struct {
		name               string
		page, limit, total int
		want               Pagination
	}{
		{"empty", 1, 10, 0, Pagination{CurrentPage: 1}},
		{"single page", 1, 10, 7, Pagination{CurrentPage: 1, TotalPages: 1, Total: 7}},
		{"first of three", 1, 10, 21, Pagination{CurrentPage: 1, TotalPages: 3, Total: 21, HasNextPage: true}},
		{"middle", 2, 10, 21, Pagination{CurrentPage: 2, TotalPages: 3, Total: 21, HasNextPage: true, HasPrevPage: true}},
		{"last exact", 2, 10, 20, Pagination{CurrentPage: 2, TotalPages: 2, Total: 20, HasPrevPage: true}},
		{"zero limit", 1, 0, 5, Pagination{CurrentPage: 1, Total: 5}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NewPagination(tt.page, tt.limit, tt.total))
		})
	}
}

func TestError(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		err    error
		status int
		body   string
	}{
		{apperr.NotFound("Subscription not found"), http.StatusNotFound, "Subscription not found"},
		{apperr.Conflict("Class is full"), http.StatusBadRequest, "Class is full"},
		{apperr.Permission("You can only update your own classes"), http.StatusForbidden, "You can only update your own classes"},
		{fmt.Errorf("select: %w", errors.New("connection reset")), http.StatusInternalServerError, `"success":false`},
	}

	for _, tt := range tests {
		t.Run(tt.body, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

			Error(c, tt.err)

			assert.Equal(t, tt.status, w.Code)
			assert.Contains(t, w.Body.String(), tt.body)
			assert.NotContains(t, w.Body.String(), "connection reset")
		})
	}
}
