package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"pureplatter/internal/models"
	"pureplatter/internal/orders"
)

/* POST /contact */
func SubmitContact(outbox orders.Enqueuer) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /contact"
		defer handlePanic(c, route)

		var msg models.ContactMessage
		if err := c.ShouldBindJSON(&msg); err != nil {
			respondValidationError(c, err)
			return
		}
		msg.Email = strings.ToLower(strings.TrimSpace(msg.Email))

		outbox.Enqueue(c.Request.Context(), models.TaskContactMessage, msg)
		c.JSON(http.StatusAccepted, gin.H{"success": true, "message": "message received"})
	}
}

/* POST /quote */
func SubmitQuote(outbox orders.Enqueuer) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /quote"
		defer handlePanic(c, route)

		var req models.QuoteRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}
		req.Email = strings.ToLower(strings.TrimSpace(req.Email))

		outbox.Enqueue(c.Request.Context(), models.TaskQuoteRequest, req)
		c.JSON(http.StatusAccepted, gin.H{"success": true, "message": "quote request received"})
	}
}

type notifyAdminRequest struct {
	OrderID string `json:"orderId" binding:"required"`
}

/* POST /notify-admin-order */
func NotifyAdminOrder(svc *orders.Service, outbox orders.Enqueuer) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /notify-admin-order"
		defer handlePanic(c, route)

		userID, ok := currentUser(c)
		if !ok {
			respondWithError(c, http.StatusUnauthorized, route, "unauthorized")
			return
		}

		var req notifyAdminRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}
		orderID, err := primitive.ObjectIDFromHex(strings.TrimSpace(req.OrderID))
		if err != nil {
			respondWithError(c, http.StatusBadRequest, route, "invalid orderId")
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
		defer cancel()

		if _, err := svc.Get(ctx, orderID, &userID); err != nil {
			if errors.Is(err, orders.ErrOrderNotFound) {
				respondWithError(c, http.StatusNotFound, route, "order not found")
				return
			}
			respondStoreError(c, route, err)
			return
		}

		outbox.Enqueue(ctx, models.TaskAdminNewOrder, models.OrderRef{OrderID: orderID.Hex()})
		c.JSON(http.StatusAccepted, gin.H{"success": true})
	}
}
