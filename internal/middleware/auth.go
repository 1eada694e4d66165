package middleware

import (
	"net/http"
	"snaptrade/internal/dto"
	"snaptrade/internal/model"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
)

const (
	tokenContextKey     = "session_token"
	requesterContextKey = "requester"
)

// SessionClaims is what the auth provider puts in its session token. The
// subject is the user id.
type SessionClaims struct {
	Email string `json:"email,omitempty"`
	Role  string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// AuthMiddleware verifies the HS256 bearer token issued by the auth provider
// and stores the caller as a *model.Requester. Requests without a valid
// session are answered with 401.
func AuthMiddleware(secret string) echo.MiddlewareFunc {
	verify := echojwt.WithConfig(echojwt.Config{
		SigningKey:    []byte(secret),
		SigningMethod: echojwt.AlgorithmHS256,
		ContextKey:    tokenContextKey,
		TokenLookup:   "header:Authorization:Bearer ",
		NewClaimsFunc: func(c echo.Context) jwt.Claims {
			return new(SessionClaims)
		},
		ErrorHandler: func(c echo.Context, err error) error {
			return unauthorized(c)
		},
	})

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return verify(func(c echo.Context) error {
			token, ok := c.Get(tokenContextKey).(*jwt.Token)
			if !ok {
				return unauthorized(c)
			}
			claims, ok := token.Claims.(*SessionClaims)
			if !ok || strings.TrimSpace(claims.Subject) == "" {
				return unauthorized(c)
			}

			c.Set(requesterContextKey, &model.Requester{
				ID:    strings.TrimSpace(claims.Subject),
				Email: strings.TrimSpace(claims.Email),
				Role:  strings.TrimSpace(claims.Role),
			})
			return next(c)
		})
	}
}

// RequesterFrom returns the caller stored by AuthMiddleware, or nil.
func RequesterFrom(c echo.Context) *model.Requester {
	requester, _ := c.Get(requesterContextKey).(*model.Requester)
	return requester
}

func unauthorized(c echo.Context) error {
	return c.JSON(http.StatusUnauthorized, dto.Response{
		Success:    false,
		StatusCode: http.StatusUnauthorized,
		Message:    "please sign in to continue",
	})
}
