package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-timetable-api/internal/models"
	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
)

type validatorStub map[string]*models.JWTClaims

func (v validatorStub) ValidateToken(token string) (*models.JWTClaims, error) {
	if claims, ok := v[token]; ok {
		return claims, nil
	}
	return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token")
}

func newProtectedRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	tokens := validatorStub{
		"admin-token":   {UserID: "admin-1", Role: models.RoleAdmin},
		"teacher-token": {UserID: "teacher-1", Role: models.RoleTeacher},
	}
	router := gin.New()
	group := router.Group("/", JWT(tokens))
	group.GET("/timetables", func(c *gin.Context) { c.Status(http.StatusOK) })
	group.POST("/timetables", RequireRoles(models.RoleAdmin, models.RoleSuperAdmin), func(c *gin.Context) { c.Status(http.StatusCreated) })
	return router
}

func TestJWTAndRBAC(t *testing.T) {
	router := newProtectedRouter()
	cases := []struct {
		name   string
		method string
		header string
		status int
	}{
		{"missing header", http.MethodGet, "", http.StatusUnauthorized},
		{"malformed header", http.MethodGet, "Token admin-token", http.StatusUnauthorized},
		{"unknown token", http.MethodGet, "Bearer nope", http.StatusUnauthorized},
		{"teacher reads", http.MethodGet, "Bearer teacher-token", http.StatusOK},
		{"teacher cannot edit", http.MethodPost, "Bearer teacher-token", http.StatusForbidden},
		{"admin edits", http.MethodPost, "Bearer admin-token", http.StatusCreated},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req, _ := http.NewRequest(tc.method, "/timetables", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			router.ServeHTTP(w, req)
			require.Equal(t, tc.status, w.Code)
		})
	}
}
