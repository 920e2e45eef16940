package middleware

import (
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

// demoBuyerID stands in when no JWT secret is configured, so the API can be
// exercised locally without the storefront's auth service running.
const demoBuyerID = "demo-buyer-001"

const (
	contextBuyerID    = "buyer_id"
	contextBuyerEmail = "buyer_email"
)

// BuyerAuth resolves the buyer from a Bearer token issued by the storefront's
// auth service. Tokens are HS256; the subject claim carries the buyer id.
// Rejections point the client at authURL so the storefront can send the
// buyer through the login flow.
func BuyerAuth(secret, authURL string) echo.MiddlewareFunc {
	unauthorized := func(c echo.Context, msg string) error {
		body := map[string]any{"error": msg}
		if authURL != "" {
			body["redirect_to"] = authURL
		}
		return c.JSON(http.StatusUnauthorized, body)
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if secret == "" {
				c.Set(contextBuyerID, demoBuyerID)
				return next(c)
			}

			header := c.Request().Header.Get(echo.HeaderAuthorization)
			tokenStr, found := strings.CutPrefix(header, "Bearer ")
			if !found || tokenStr == "" {
				return unauthorized(c, "missing bearer token")
			}

			token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
				return []byte(secret), nil
			}, jwt.WithValidMethods([]string{"HS256"}))
			if err != nil || !token.Valid {
				return unauthorized(c, "invalid token")
			}

			claims, ok := token.Claims.(jwt.MapClaims)
			if !ok {
				return unauthorized(c, "invalid token claims")
			}
			sub, _ := claims["sub"].(string)
			if sub == "" {
				return unauthorized(c, "token has no subject")
			}

			c.Set(contextBuyerID, sub)
			if email, ok := claims["email"].(string); ok {
				c.Set(contextBuyerEmail, email)
			}
			return next(c)
		}
	}
}

// BuyerID returns the authenticated buyer for the request. Empty outside the
// BuyerAuth middleware.
func BuyerID(c echo.Context) string {
	id, _ := c.Get(contextBuyerID).(string)
	return id
}

func BuyerEmail(c echo.Context) string {
	email, _ := c.Get(contextBuyerEmail).(string)
	return email
}
