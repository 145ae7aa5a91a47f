package middleware

import (
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func userFromClaims(claims jwt.MapClaims) (primitive.ObjectID, string, bool) {
	userIDValue, _ := claims["userId"].(string)
	if strings.TrimSpace(userIDValue) == "" {
		userIDValue, _ = claims["sub"].(string)
	}
	userID, err := primitive.ObjectIDFromHex(strings.TrimSpace(userIDValue))
	if err != nil {
		return primitive.NilObjectID, "", false
	}
	email, _ := claims["email"].(string)
	return userID, email, true
}

// UserAuth validates user JWT tokens and injects userId and email into the context.
func UserAuth(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, err := bearerClaims(c, secret)
		if errors.Is(err, errMissingToken) {
			log.Println("[AUTH] [ERROR] missing token")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
			return
		}
		if err != nil || claims == nil {
			log.Println("[AUTH] [ERROR] token validation failed:", err)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		userID, email, ok := userFromClaims(claims)
		if !ok {
			log.Println("[AUTH] [ERROR] userId claim missing")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		c.Set("userId", userID)
		c.Set("email", email)
		c.Next()
	}
}

// OptionalUserAuth behaves like UserAuth when an Authorization header is
// sent and lets anonymous requests through untouched.
func OptionalUserAuth(secret string) gin.HandlerFunc {
	required := UserAuth(secret)
	return func(c *gin.Context) {
		if strings.TrimSpace(c.GetHeader("Authorization")) == "" {
			c.Next()
			return
		}
		required(c)
	}
}
