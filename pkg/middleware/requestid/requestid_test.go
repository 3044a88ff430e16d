package requestid

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestMiddlewareKeepsOrReplacesHeader(t *testing.T) {
	gin.SetMode(gin.TestMode)
	var seen, fromCtx string
	router := gin.New()
	router.Use(Middleware())
	router.GET("/", func(c *gin.Context) {
		seen = Value(c)
		fromCtx = FromContext(c.Request.Context())
		c.Status(http.StatusOK)
	})

	cases := []struct {
		name   string
		header string
		keep   bool
	}{
		{name: "valid", header: "req-123_abc.1", keep: true},
		{name: "missing", header: ""},
		{name: "unsafe characters", header: "abc\r\nSet-Cookie: x"},
		{name: "too long", header: strings.Repeat("a", 65)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req, _ := http.NewRequest(http.MethodGet, "/", nil)
			if tc.header != "" {
				req.Header.Set(headerKey, tc.header)
			}
			router.ServeHTTP(w, req)

			assert.NotEmpty(t, seen)
			assert.Equal(t, seen, fromCtx)
			assert.Equal(t, seen, w.Header().Get(headerKey))
			if tc.keep {
				assert.Equal(t, tc.header, seen)
			} else {
				assert.NotEqual(t, tc.header, seen)
			}
		})
	}
}
