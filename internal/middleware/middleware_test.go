package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"freight/internal/domain"
)

func TestActorMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	var got domain.Actor
	router := gin.New()
	router.Use(ActorMiddleware())
	router.GET("/whoami", func(c *gin.Context) {
		got = ActorFrom(c)
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("X-Organization-ID", " org-a ")
	req.Header.Set("X-User-ID", "user-1")
	req.Header.Set("X-User-Role", "accountant")
	router.ServeHTTP(httptest.NewRecorder(), req)

	assert.Equal(t, domain.Actor{OrganizationID: "org-a", UserID: "user-1", Role: domain.RoleAccountant}, got)
	assert.True(t, got.Authenticated())

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/whoami", nil))
	assert.False(t, got.Authenticated())
}

func TestActorFrom_WithoutMiddleware(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	assert.Equal(t, domain.Actor{}, ActorFrom(c))
}

func TestIdempotencyMiddleware_DisabledWithoutRedis(t *testing.T) {
	gin.SetMode(gin.TestMode)

	calls := 0
	router := gin.New()
	router.Use(IdempotencyMiddleware(nil))
	router.POST("/v1/settlements/:id/advances", func(c *gin.Context) {
		calls++
		c.JSON(http.StatusCreated, gin.H{"n": calls})
	})

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/v1/settlements/S1/advances", nil)
		req.Header.Set(idempotencyHeader, "k-1")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		require.Equal(t, http.StatusCreated, w.Code)
	}
	assert.Equal(t, 2, calls)
}

func TestIdempotencyCacheKey(t *testing.T) {
	a := idempotencyCacheKey("org-a", http.MethodPost, "/v1/settlements/S1/deductions", "k")
	b := idempotencyCacheKey("org-b", http.MethodPost, "/v1/settlements/S1/deductions", "k")
	assert.NotEqual(t, a, b)
	assert.Equal(t, "idempotency:org-a:POST:/v1/settlements/S1/deductions:k", a)

	assert.True(t, mutating(http.MethodDelete))
	assert.True(t, mutating(http.MethodPatch))
	assert.False(t, mutating(http.MethodGet))
}
