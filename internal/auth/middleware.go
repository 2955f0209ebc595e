package auth

import (
	"errors"
	"net/http"
	"strings"

	"gymflow/internal/api"

	"github.com/gin-gonic/gin"
)

const (
	ctxUserID    = "user_id"
	ctxUserEmail = "user_email"
	ctxUserRole  = "user_role"
)

// AuthMiddleware accepts only access tokens and stores the bearer's
// identity on the gin context.
func AuthMiddleware(tokens *Issuer) gin.HandlerFunc {
	return func(c *gin.Context) {
		scheme, token, found := strings.Cut(c.GetHeader("Authorization"), " ")
		switch {
		case !found && scheme == "":
			abort(c, http.StatusUnauthorized, "Authorization header required")
			return
		case !found || strings.TrimSpace(scheme) != "Bearer":
			abort(c, http.StatusUnauthorized, "Invalid authorization header format")
			return
		}

		token = strings.TrimSpace(token)
		if token == "" {
			abort(c, http.StatusUnauthorized, "Token is empty")
			return
		}

		claims, err := tokens.Parse(token, KindAccess)
		if err != nil {
			switch {
			case errors.Is(err, ErrTokenExpired):
				abort(c, http.StatusUnauthorized, "Token expired")
			case errors.Is(err, ErrInvalidTokenType):
				abort(c, http.StatusUnauthorized, "Access token required")
			default:
				abort(c, http.StatusUnauthorized, "Invalid or malformed token")
			}
			return
		}

		c.Set(ctxUserID, claims.UserID)
		c.Set(ctxUserEmail, claims.Email)
		c.Set(ctxUserRole, claims.Role)

		c.Next()
	}
}

// RequireRole lets the request through when the caller has any of roles.
func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		role, ok := GetUserRole(c)
		if !ok {
			abort(c, http.StatusUnauthorized, "User role not found")
			return
		}

		for _, r := range roles {
			if r == role {
				c.Next()
				return
			}
		}

		abort(c, http.StatusForbidden, "Insufficient permissions")
	}
}

func GetUserID(c *gin.Context) (int, bool) {
	id, ok := c.Get(ctxUserID)
	if !ok {
		return 0, false
	}
	userID, ok := id.(int)
	return userID, ok
}

func GetUserRole(c *gin.Context) (string, bool) {
	role, ok := c.Get(ctxUserRole)
	if !ok {
		return "", false
	}
	r, ok := role.(string)
	return r, ok
}

func abort(c *gin.Context, status int, msg string) {
	api.Fail(c, status, msg)
	c.Abort()
}
