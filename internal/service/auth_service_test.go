package service

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-timetable-api/internal/models"
	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
)

func signToken(t *testing.T, method jwt.SigningMethod, key interface{}, claims models.JWTClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)
	return token
}

func adminClaims(expiresIn time.Duration) models.JWTClaims {
	now := time.Now()
	return models.JWTClaims{
		UserID: "admin-1",
		Role:   models.RoleAdmin,
		Email:  "admin@school.test",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "sma-auth",
			Audience:  jwt.ClaimStrings{"sma-timetable"},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(expiresIn)),
		},
	}
}

func TestAuthServiceValidateToken(t *testing.T) {
	svc := NewAuthService(nil, AuthConfig{AccessTokenSecret: "secret", Issuer: "sma-auth", Audience: "sma-timetable"})

	claims, err := svc.ValidateToken(signToken(t, jwt.SigningMethodHS256, []byte("secret"), adminClaims(time.Hour)))
	require.NoError(t, err)
	assert.Equal(t, "admin-1", claims.UserID)
	assert.Equal(t, models.RoleAdmin, claims.Role)
}

func TestAuthServiceRejectsInvalidTokens(t *testing.T) {
	svc := NewAuthService(nil, AuthConfig{AccessTokenSecret: "secret", Issuer: "sma-auth"})

	cases := map[string]string{
		"wrong secret": signToken(t, jwt.SigningMethodHS256, []byte("other"), adminClaims(time.Hour)),
		"expired":      signToken(t, jwt.SigningMethodHS256, []byte("secret"), adminClaims(-time.Minute)),
		"wrong alg":    signToken(t, jwt.SigningMethodHS512, []byte("secret"), adminClaims(time.Hour)),
		"garbage":      "not-a-token",
	}
	for name, token := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.ValidateToken(token)
			requireAppError(t, err, appErrors.ErrUnauthorized.Code)
		})
	}

	foreign := adminClaims(time.Hour)
	foreign.Issuer = "elsewhere"
	_, err := svc.ValidateToken(signToken(t, jwt.SigningMethodHS256, []byte("secret"), foreign))
	requireAppError(t, err, appErrors.ErrUnauthorized.Code)

	anonymous := adminClaims(time.Hour)
	anonymous.UserID = ""
	_, err = svc.ValidateToken(signToken(t, jwt.SigningMethodHS256, []byte("secret"), anonymous))
	requireAppError(t, err, appErrors.ErrUnauthorized.Code)
}
