package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testAuthURL = "https://tienda.example.com/login"

func callAuth(t *testing.T, secret, header string) (*httptest.ResponseRecorder, string) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if header != "" {
		req.Header.Set(echo.HeaderAuthorization, header)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	var buyer string
	h := BuyerAuth(secret, testAuthURL)(func(c echo.Context) error {
		buyer = BuyerID(c)
		return c.NoContent(http.StatusOK)
	})
	require.NoError(t, h(c))
	return rec, buyer
}

func signedToken(t *testing.T, secret, sub string) string {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":   sub,
		"email": "ana@example.com",
		"exp":   time.Now().Add(time.Hour).Unix(),
	})
	s, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return s
}

func TestBuyerAuthValidToken(t *testing.T) {
	rec, buyer := callAuth(t, "shh", "Bearer "+signedToken(t, "shh", "buyer-7"))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "buyer-7", buyer)
}

func TestBuyerAuthMissingTokenRedirects(t *testing.T) {
	rec, _ := callAuth(t, "shh", "")

	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "missing bearer token", body["error"])
	assert.Equal(t, testAuthURL, body["redirect_to"])
}

func TestBuyerAuthBadTokenRedirects(t *testing.T) {
	rec, _ := callAuth(t, "shh", "Bearer "+signedToken(t, "wrong-secret", "buyer-7"))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "invalid token", body["error"])
	assert.Equal(t, testAuthURL, body["redirect_to"])
}

func TestBuyerAuthDemoFallback(t *testing.T) {
	rec, buyer := callAuth(t, "", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, demoBuyerID, buyer)
}
