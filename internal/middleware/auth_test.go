package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const testSecret = "test-secret"

func signed(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func perform(r *gin.Engine, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestUserAuthSetsUserID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	userID := primitive.NewObjectID()

	var seen primitive.ObjectID
	r := gin.New()
	r.GET("/", UserAuth(testSecret), func(c *gin.Context) {
		seen = c.MustGet("userId").(primitive.ObjectID)
		c.Status(http.StatusOK)
	})

	w := perform(r, signed(t, testSecret, jwt.MapClaims{
		"sub":   userID.Hex(),
		"email": "ama@example.com",
		"exp":   time.Now().Add(time.Minute).Unix(),
	}))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, userID, seen)
}

func TestUserAuthRejects(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/", UserAuth(testSecret), func(c *gin.Context) { c.Status(http.StatusOK) })

	cases := map[string]string{
		"missing":      "",
		"wrong secret": signed(t, "other", jwt.MapClaims{"sub": primitive.NewObjectID().Hex(), "exp": time.Now().Add(time.Minute).Unix()}),
		"expired":      signed(t, testSecret, jwt.MapClaims{"sub": primitive.NewObjectID().Hex(), "exp": time.Now().Add(-time.Minute).Unix()}),
		"no subject":   signed(t, testSecret, jwt.MapClaims{"exp": time.Now().Add(time.Minute).Unix()}),
	}
	for name, token := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, http.StatusUnauthorized, perform(r, token).Code)
		})
	}
}

func TestOptionalUserAuthAllowsAnonymous(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/", OptionalUserAuth(testSecret), func(c *gin.Context) {
		_, authenticated := c.Get("userId")
		c.JSON(http.StatusOK, gin.H{"authenticated": authenticated})
	})

	w := perform(r, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"authenticated":false}`, w.Body.String())

	w = perform(r, "garbage")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAdminAuthRequiresRoleAndAllowList(t *testing.T) {
	gin.SetMode(gin.TestMode)
	allowed := map[string]bool{"boss@example.com": true}
	r := gin.New()
	r.GET("/", AdminAuth(testSecret, func(email string) bool { return allowed[email] }), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	exp := time.Now().Add(time.Minute).Unix()
	assert.Equal(t, http.StatusOK, perform(r, signed(t, testSecret, jwt.MapClaims{"role": RoleAdmin, "email": "boss@example.com", "exp": exp})).Code)
	assert.Equal(t, http.StatusForbidden, perform(r, signed(t, testSecret, jwt.MapClaims{"role": "customer", "email": "boss@example.com", "exp": exp})).Code)
	assert.Equal(t, http.StatusForbidden, perform(r, signed(t, testSecret, jwt.MapClaims{"role": RoleAdmin, "email": "former@example.com", "exp": exp})).Code)
	assert.Equal(t, http.StatusUnauthorized, perform(r, "").Code)
}
