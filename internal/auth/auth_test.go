package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestManager_RoundTrip(t *testing.T) {
	m, err := NewManager("test-secret")
	require.NoError(t, err)

	token, err := m.GenerateToken(7, "alice", true)
	require.NoError(t, err)

	claims, err := m.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, uint(7), claims.UserID)
	assert.Equal(t, "alice", claims.Username)
	assert.True(t, claims.IsAdmin)
}

func TestManager_RejectsForeignAndExpired(t *testing.T) {
	m, _ := NewManager("test-secret")
	other, _ := NewManager("other-secret")

	token, err := other.GenerateToken(1, "mallory", true)
	require.NoError(t, err)
	_, err = m.ValidateToken(token)
	assert.Error(t, err)

	token, err = m.GenerateToken(1, "bob", false)
	require.NoError(t, err)
	m.now = func() time.Time { return time.Now().Add(25 * time.Hour) }
	_, err = m.ValidateToken(token)
	assert.Error(t, err)

	_, err = NewManager("")
	assert.Error(t, err)
}

func TestMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m, _ := NewManager("test-secret")

	r := gin.New()
	r.GET("/me", AuthMiddleware(m, zap.NewNop()), func(c *gin.Context) {
		id, _ := GetUserID(c)
		c.JSON(http.StatusOK, gin.H{"id": id})
	})
	r.GET("/admin", AuthMiddleware(m, zap.NewNop()), AdminMiddleware(), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	userToken, _ := m.GenerateToken(3, "carol", false)
	adminToken, _ := m.GenerateToken(1, "root", true)

	tests := []struct {
		name   string
		path   string
		header string
		want   int
	}{
		{"missing header", "/me", "", http.StatusUnauthorized},
		{"bad scheme", "/me", "Token " + userToken, http.StatusUnauthorized},
		{"garbage token", "/me", "Bearer nope", http.StatusUnauthorized},
		{"user ok", "/me", "Bearer " + userToken, http.StatusOK},
		{"user on admin route", "/admin", "Bearer " + userToken, http.StatusForbidden},
		{"admin ok", "/admin", "Bearer " + adminToken, http.StatusNoContent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			assert.Equal(t, tt.want, w.Code)
		})
	}
}
