package handlers

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"

	"pureplatter/internal/cart"
	"pureplatter/internal/middleware"
	"pureplatter/internal/models"
	"pureplatter/internal/store"
)

type RegisterRequest struct {
	FullName string `json:"fullName" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
	Phone    string `json:"phone"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refreshToken" binding:"required"`
}

type LoginResponseUser struct {
	ID       string `json:"id"`
	FullName string `json:"fullName"`
	Email    string `json:"email"`
	Phone    string `json:"phone,omitempty"`
	IsAdmin  bool   `json:"isAdmin"`
}

// Auth issues access and refresh tokens for customer accounts.
type Auth struct {
	Customers  store.CustomerRepository
	Tokens     store.RefreshTokenRepository
	Secret     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	IsAdmin    func(email string) bool
}

type issuedTokens struct {
	AccessToken    string
	RefreshToken   string
	RefreshTokenID primitive.ObjectID
	ExpiresIn      int64
}

func (a Auth) isAdmin(email string) bool {
	return a.IsAdmin != nil && a.IsAdmin(email)
}

func (a Auth) accessToken(customer *models.Customer, now time.Time) (string, error) {
	role := "customer"
	if a.isAdmin(customer.Email) {
		role = middleware.RoleAdmin
	}
	claims := jwt.MapClaims{
		"sub":    customer.ID.Hex(),
		"userId": customer.ID.Hex(),
		"role":   role,
		"email":  customer.Email,
		"exp":    now.Add(a.AccessTTL).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(a.Secret))
}

func (a Auth) issueTokens(ctx context.Context, customer *models.Customer) (*issuedTokens, error) {
	now := time.Now().UTC()
	accessToken, err := a.accessToken(customer, now)
	if err != nil {
		return nil, err
	}

	plainRefresh, err := generateRefreshString()
	if err != nil {
		return nil, err
	}
	refresh := models.RefreshToken{
		UserID:    customer.ID,
		TokenHash: hashToken(plainRefresh),
		ExpiresAt: now.Add(a.RefreshTTL),
		CreatedAt: now,
	}
	if err := a.Tokens.Insert(ctx, &refresh); err != nil {
		return nil, err
	}

	return &issuedTokens{
		AccessToken:    accessToken,
		RefreshToken:   plainRefresh,
		RefreshTokenID: refresh.ID,
		ExpiresIn:      int64(a.AccessTTL.Seconds()),
	}, nil
}

func (a Auth) respondWithTokens(c *gin.Context, status int, customer *models.Customer, tokens *issuedTokens, extra gin.H) {
	body := gin.H{
		"accessToken":  tokens.AccessToken,
		"refreshToken": tokens.RefreshToken,
		"expiresIn":    tokens.ExpiresIn,
		"user":         a.responseUser(customer),
	}
	for k, v := range extra {
		body[k] = v
	}
	c.JSON(status, body)
}

func (a Auth) responseUser(customer *models.Customer) LoginResponseUser {
	return LoginResponseUser{
		ID:       customer.ID.Hex(),
		FullName: customer.FullName,
		Email:    customer.Email,
		Phone:    customer.Phone,
		IsAdmin:  a.isAdmin(customer.Email),
	}
}

// reconcileCart attaches the guest cart named by X-Cart-Session to the
// signed-in customer. Failures never fail the sign-in.
func reconcileCart(ctx context.Context, carts *cart.Manager, c *gin.Context, userID primitive.ObjectID) gin.H {
	sessionID := strings.TrimSpace(c.GetHeader(cartSessionHeader))
	if carts == nil || sessionID == "" {
		return nil
	}
	if strings.HasPrefix(sessionID, userCartPrefix) && sessionID != userCartPrefix+userID.Hex() {
		log.Println("[AUTH] [WARN] ignoring cart session of another customer")
		return nil
	}
	svc, err := carts.Session(ctx, sessionID, &userID)
	if err != nil {
		log.Println("[AUTH] [WARN] cart session load failed:", err)
		return nil
	}
	if _, err := svc.Reconcile(ctx); err != nil {
		log.Println("[AUTH] [WARN] cart reconcile failed:", err)
	}
	return gin.H{"cart": cartResponse(svc)}
}

func Register(auth Auth, carts *cart.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /auth/register"
		defer handlePanic(c, route)

		var req RegisterRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}

		email := strings.ToLower(strings.TrimSpace(req.Email))
		fullName := strings.TrimSpace(req.FullName)
		if fullName == "" {
			respondWithError(c, http.StatusBadRequest, route, "fullName is required")
			return
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
		if err != nil {
			log.Println("[AUTH] [ERROR] register password hash failed:", err)
			respondWithError(c, http.StatusInternalServerError, route, "password hash failed")
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
		defer cancel()

		now := time.Now().UTC()
		customer := models.Customer{
			FullName:     fullName,
			Email:        email,
			Phone:        strings.TrimSpace(req.Phone),
			PasswordHash: string(hash),
			IsActive:     true,
			Addresses:    []models.Address{},
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if err := auth.Customers.Insert(ctx, &customer); err != nil {
			if errors.Is(err, store.ErrDuplicate) {
				respondWithError(c, http.StatusConflict, route, "email already registered")
				return
			}
			respondStoreError(c, route, err)
			return
		}

		tokens, err := auth.issueTokens(ctx, &customer)
		if err != nil {
			log.Println("[AUTH] [ERROR] register token generation failed:", err)
			respondWithError(c, http.StatusInternalServerError, route, "token generation failed")
			return
		}

		log.Println("[AUTH] [INFO] customer registered:", email)
		auth.respondWithTokens(c, http.StatusCreated, &customer, tokens, reconcileCart(ctx, carts, c, customer.ID))
	}
}

func Login(auth Auth, carts *cart.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /auth/login"
		defer handlePanic(c, route)

		var req LoginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}

		email := strings.ToLower(strings.TrimSpace(req.Email))
		ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
		defer cancel()

		customer, err := auth.Customers.FindByEmail(ctx, email)
		if errors.Is(err, store.ErrNotFound) {
			log.Println("[AUTH] [ERROR] login invalid credentials")
			respondWithError(c, http.StatusUnauthorized, route, "invalid credentials")
			return
		}
		if err != nil {
			respondStoreError(c, route, err)
			return
		}
		if err := bcrypt.CompareHashAndPassword([]byte(customer.PasswordHash), []byte(req.Password)); err != nil {
			log.Println("[AUTH] [ERROR] login invalid credentials")
			respondWithError(c, http.StatusUnauthorized, route, "invalid credentials")
			return
		}
		if !customer.IsActive {
			respondWithError(c, http.StatusForbidden, route, "user is inactive")
			return
		}

		tokens, err := auth.issueTokens(ctx, customer)
		if err != nil {
			log.Println("[AUTH] [ERROR] login token generation failed:", err)
			respondWithError(c, http.StatusInternalServerError, route, "token generation failed")
			return
		}

		log.Println("[AUTH] [INFO] customer login succeeded:", customer.Email)
		auth.respondWithTokens(c, http.StatusOK, customer, tokens, reconcileCart(ctx, carts, c, customer.ID))
	}
}

// Refresh rotates a refresh token: the presented token is revoked and
// replaced by a new pair.
func Refresh(auth Auth) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /auth/refresh"
		defer handlePanic(c, route)

		var req RefreshRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
		defer cancel()

		token, err := auth.Tokens.FindActive(ctx, hashToken(strings.TrimSpace(req.RefreshToken)))
		if errors.Is(err, store.ErrNotFound) {
			respondWithError(c, http.StatusUnauthorized, route, "invalid refresh token")
			return
		}
		if err != nil {
			respondStoreError(c, route, err)
			return
		}
		if time.Now().After(token.ExpiresAt) {
			_ = auth.Tokens.Revoke(ctx, token.ID, nil)
			respondWithError(c, http.StatusUnauthorized, route, "refresh token expired")
			return
		}

		customer, err := auth.Customers.FindByID(ctx, token.UserID)
		if err != nil {
			respondWithError(c, http.StatusUnauthorized, route, "user not found")
			return
		}
		if !customer.IsActive {
			respondWithError(c, http.StatusForbidden, route, "user is inactive")
			return
		}

		tokens, err := auth.issueTokens(ctx, customer)
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "token generation failed")
			return
		}
		if err := auth.Tokens.Revoke(ctx, token.ID, &tokens.RefreshTokenID); err != nil {
			log.Println("[AUTH] [WARN] old refresh token not revoked:", err)
		}

		auth.respondWithTokens(c, http.StatusOK, customer, tokens, nil)
	}
}

func Logout(auth Auth) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /auth/logout"
		defer handlePanic(c, route)

		var req RefreshRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
		defer cancel()

		revoked, err := auth.Tokens.RevokeByHash(ctx, hashToken(strings.TrimSpace(req.RefreshToken)))
		if err != nil {
			respondStoreError(c, route, err)
			return
		}
		if !revoked {
			respondWithError(c, http.StatusUnauthorized, route, "invalid refresh token")
			return
		}

		c.JSON(http.StatusOK, gin.H{"success": true, "message": "logged out"})
	}
}

func GetMe(auth Auth) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /auth/me"
		defer handlePanic(c, route)

		userID, ok := currentUser(c)
		if !ok {
			respondWithError(c, http.StatusUnauthorized, route, "unauthorized")
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
		defer cancel()

		customer, err := auth.Customers.FindByID(ctx, userID)
		if errors.Is(err, store.ErrNotFound) {
			respondWithError(c, http.StatusNotFound, route, "user not found")
			return
		}
		if err != nil {
			respondStoreError(c, route, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"id":        customer.ID.Hex(),
			"email":     customer.Email,
			"fullName":  customer.FullName,
			"phone":     customer.Phone,
			"isAdmin":   auth.isAdmin(customer.Email),
			"addresses": customer.Addresses,
			"createdAt": customer.CreatedAt,
			"updatedAt": customer.UpdatedAt,
		})
	}
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func generateRefreshString() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
