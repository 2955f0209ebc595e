package server

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"reflect"
	"strings"

	"gymflow/internal/api"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

const maxBodyBytes = 1 << 20

// registerValidators makes binding errors name fields by their JSON keys.
func registerValidators() {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return
	}
	v.RegisterTagNameFunc(jsonFieldName)
}

func jsonFieldName(f reflect.StructField) string {
	for _, tag := range []string{"json", "form"} {
		name := strings.SplitN(f.Tag.Get(tag), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name != "" {
			return name
		}
	}
	return f.Name
}

// JSONBodyMiddleware caps request bodies and rejects malformed JSON before
// it reaches a handler. Empty bodies pass through.
func JSONBodyMiddleware(limit int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		switch c.Request.Method {
		case http.MethodGet, http.MethodDelete, http.MethodOptions, http.MethodHead:
			c.Next()
			return
		}
		if c.Request.Body == nil || !strings.Contains(c.GetHeader("Content-Type"), "application/json") {
			c.Next()
			return
		}

		body, err := io.ReadAll(io.LimitReader(c.Request.Body, limit+1))
		if err != nil {
			api.Fail(c, http.StatusBadRequest, "Could not read request body")
			c.Abort()
			return
		}
		if int64(len(body)) > limit {
			api.Fail(c, http.StatusRequestEntityTooLarge, "Request body too large")
			c.Abort()
			return
		}
		if len(bytes.TrimSpace(body)) > 0 && !json.Valid(body) {
			api.Fail(c, http.StatusBadRequest, "Request body must be valid JSON")
			c.Abort()
			return
		}

		c.Request.Body = io.NopCloser(bytes.NewReader(body))
		c.Request.ContentLength = int64(len(body))
		c.Next()
	}
}
