package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "unit-test-secret"

func TestProfileTokenRoundTrip(t *testing.T) {
	token, err := GenerateProfileToken("u1", "Morticia", "🦇", testSecret, 72)
	require.NoError(t, err)

	claims, err := ParseProfileToken(token, testSecret)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
	assert.Equal(t, "Morticia", claims.Name)
	assert.Equal(t, "🦇", claims.Avatar)
}

func TestParseRejectsWrongSecret(t *testing.T) {
	token, err := GenerateProfileToken("u1", "Morticia", "", testSecret, 72)
	require.NoError(t, err)

	_, err = ParseProfileToken(token, "other-secret")
	assert.Error(t, err)
}

func TestParseRejectsExpiredToken(t *testing.T) {
	token, err := GenerateProfileToken("u1", "Morticia", "", testSecret, -1)
	require.NoError(t, err)

	_, err = ParseProfileToken(token, testSecret)
	assert.Error(t, err)
}

func newMiddlewareRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/protected", Middleware(testSecret), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"userID": GetUserID(c)})
	})
	return r
}

func TestMiddlewareRejectsMissingToken(t *testing.T) {
	r := newMiddlewareRouter()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestMiddlewareRejectsInvalidToken(t *testing.T) {
	r := newMiddlewareRouter()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestMiddlewarePassesValidToken(t *testing.T) {
	token, err := GenerateProfileToken("u1", "Morticia", "", testSecret, 1)
	require.NoError(t, err)

	r := newMiddlewareRouter()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"u1"`)
}
