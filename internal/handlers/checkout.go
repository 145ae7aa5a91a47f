package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"pureplatter/internal/cart"
	"pureplatter/internal/payment"
)

// PaymentSetup prepares the client-side payment widget.
type PaymentSetup interface {
	Setup(ctx context.Context, email string, amount float64, metadata map[string]any) (*payment.SetupParams, error)
}

type checkoutRequest struct {
	Email string `json:"email" binding:"omitempty,email"`
}

// InitializeCheckout returns gateway parameters for the current cart total.
// No order exists until the client posts the resulting reference to /orders.
func InitializeCheckout(gateway PaymentSetup, carts *cart.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /checkout/initialize"
		defer handlePanic(c, route)

		var req checkoutRequest
		if c.Request.ContentLength != 0 {
			if err := c.ShouldBindJSON(&req); err != nil {
				respondValidationError(c, err)
				return
			}
		}

		email := strings.TrimSpace(req.Email)
		if email == "" {
			email = c.GetString("email")
		}
		if email == "" {
			respondWithError(c, http.StatusBadRequest, route, "email is required")
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*requestTimeout)
		defer cancel()

		svc, err := openCart(ctx, c, carts)
		if err != nil {
			respondCartError(c, route, err)
			return
		}
		if svc.TotalItems() == 0 {
			respondWithError(c, http.StatusBadRequest, route, "cart is empty")
			return
		}

		userID, _ := currentUser(c)
		params, err := gateway.Setup(ctx, email, svc.TotalAmount().InexactFloat64(), map[string]any{
			"userId":    userID.Hex(),
			"sessionId": svc.SessionID(),
		})
		switch {
		case errors.Is(err, payment.ErrNotConfigured):
			respondWithError(c, http.StatusServiceUnavailable, route, "payments are not available")
			return
		case errors.Is(err, payment.ErrInvalidAmount):
			respondWithError(c, http.StatusBadRequest, route, err.Error())
			return
		case err != nil:
			respondWithError(c, http.StatusInternalServerError, route, "payment gateway error")
			return
		}

		c.JSON(http.StatusOK, gin.H{"success": true, "payment": params})
	}
}
