package middleware

import (
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/ignatzorin/freelance-escrow/internal/logger"
	"github.com/ignatzorin/freelance-escrow/internal/models"
	"github.com/ignatzorin/freelance-escrow/internal/service"
)

func TestMain(m *testing.M) {
	logger.Init("error")
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

func authTestRouter(tokens *service.TokenManager) *gin.Engine {
	r := gin.New()
	r.GET("/protected", AuthMiddleware(tokens), func(c *gin.Context) {
		userID := c.MustGet(ContextUserIDKey).(uuid.UUID)
		c.JSON(http.StatusOK, gin.H{"user_id": userID})
	})
	return r
}

func TestAuthMiddleware_ValidToken(t *testing.T) {
	tokens := service.NewTokenManager("access-secret", "refresh-secret", 15*time.Minute, 24*time.Hour)
	r := authTestRouter(tokens)

	user := &models.User{ID: uuid.New(), Role: "user"}
	pair, err := tokens.GeneratePair(user)
	assert.NoError(t, err)

	req, _ := http.NewRequest("GET", "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+pair.AccessToken)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), user.ID.String())
}

func TestAuthMiddleware_Rejects(t *testing.T) {
	tokens := service.NewTokenManager("access-secret", "refresh-secret", 15*time.Minute, 24*time.Hour)
	r := authTestRouter(tokens)

	cases := map[string]string{
		"без заголовка":    "",
		"без схемы Bearer": "Token abc",
		"пустой токен":     "Bearer ",
		"мусорный токен":   "Bearer not-a-jwt",
	}
	for name, header := range cases {
		t.Run(name, func(t *testing.T) {
			req, _ := http.NewRequest("GET", "/protected", nil)
			if header != "" {
				req.Header.Set("Authorization", header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			assert.Equal(t, http.StatusUnauthorized, w.Code)
		})
	}
}

func TestAuthMiddleware_ForeignSecret(t *testing.T) {
	tokens := service.NewTokenManager("access-secret", "refresh-secret", 15*time.Minute, 24*time.Hour)
	foreign := service.NewTokenManager("other-secret", "refresh-secret", 15*time.Minute, 24*time.Hour)
	r := authTestRouter(tokens)

	pair, err := foreign.GeneratePair(&models.User{ID: uuid.New(), Role: "user"})
	assert.NoError(t, err)

	req, _ := http.NewRequest("GET", "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+pair.AccessToken)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
