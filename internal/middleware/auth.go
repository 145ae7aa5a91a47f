package middleware

import (
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

var (
	errMissingToken = errors.New("missing token")
	errTokenFormat  = errors.New("invalid token")
)

// RoleAdmin is the role claim carried by tokens issued to allow-listed accounts.
const RoleAdmin = "admin"

func bearerClaims(c *gin.Context, secret string) (jwt.MapClaims, error) {
	raw := strings.TrimSpace(c.GetHeader("Authorization"))
	if raw == "" {
		return nil, errMissingToken
	}

	parts := strings.Split(raw, " ")
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return nil, errTokenFormat
	}

	token, err := jwt.Parse(parts[1], func(t *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		return nil, err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, errTokenFormat
	}
	return claims, nil
}

// AdminAuth lets a request through only with a valid admin token whose email
// is still on the allow-list.
func AdminAuth(secret string, isAdmin func(email string) bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, err := bearerClaims(c, secret)
		if errors.Is(err, errMissingToken) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
			return
		}
		if err != nil || claims == nil {
			log.Println("[AUTH] [ERROR] admin token rejected:", err)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		role, _ := claims["role"].(string)
		email, _ := claims["email"].(string)
		if role != RoleAdmin || !isAdmin(email) {
			log.Printf("[AUTH] [WARN] admin access denied for %q", email)
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
			return
		}

		c.Set("claims", claims)
		c.Set("email", email)
		c.Next()
	}
}
