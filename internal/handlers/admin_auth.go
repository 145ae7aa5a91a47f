package handlers

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"

	"pureplatter/internal/store"
)

// AdminLogin signs in an allow-listed customer account for the back office.
func AdminLogin(auth Auth) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /admin/login"
		defer handlePanic(c, route)

		var req LoginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}

		email := strings.ToLower(strings.TrimSpace(req.Email))
		ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
		defer cancel()

		admin, err := auth.Customers.FindByEmail(ctx, email)
		if errors.Is(err, store.ErrNotFound) {
			respondWithError(c, http.StatusUnauthorized, route, "invalid credentials")
			return
		}
		if err != nil {
			respondStoreError(c, route, err)
			return
		}
		if err := bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte(req.Password)); err != nil {
			respondWithError(c, http.StatusUnauthorized, route, "invalid credentials")
			return
		}
		if !admin.IsActive || !auth.isAdmin(admin.Email) {
			log.Printf("[%s] non-admin sign-in refused: %s", route, email)
			respondWithError(c, http.StatusForbidden, route, "forbidden")
			return
		}

		tokens, err := auth.issueTokens(ctx, admin)
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "token generation failed")
			return
		}

		auth.respondWithTokens(c, http.StatusOK, admin, tokens, nil)
	}
}
