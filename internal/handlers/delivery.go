package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"pureplatter/internal/delivery"
)

type generateCodeRequest struct {
	OrderID string `json:"orderId" binding:"required"`
}

type confirmDeliveryRequest struct {
	OrderID string `json:"orderId" binding:"required"`
	Code    string `json:"code" binding:"required"`
}

func respondDeliveryError(c *gin.Context, route string, err error) {
	switch {
	case errors.Is(err, delivery.ErrInvalidCode):
		respondWithError(c, http.StatusBadRequest, route, err.Error())
	case errors.Is(err, delivery.ErrOrderNotFound), errors.Is(err, delivery.ErrNoOutstandingQR):
		respondWithError(c, http.StatusNotFound, route, err.Error())
	case errors.Is(err, delivery.ErrNotShipped), errors.Is(err, delivery.ErrOrderClosed):
		respondWithError(c, http.StatusConflict, route, err.Error())
	case errors.Is(err, delivery.ErrCodesExhausted):
		respondWithError(c, http.StatusServiceUnavailable, route, err.Error())
	default:
		respondStoreError(c, route, err)
	}
}

/* POST /delivery/generate-code */
func GenerateDeliveryCode(codes *delivery.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /delivery/generate-code"
		defer handlePanic(c, route)

		userID, ok := currentUser(c)
		if !ok {
			respondWithError(c, http.StatusUnauthorized, route, "unauthorized")
			return
		}

		var req generateCodeRequest
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

		confirmation, err := codes.GenerateCode(ctx, orderID, &userID)
		if err != nil {
			respondDeliveryError(c, route, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"orderId": orderID.Hex(),
			"code":    confirmation.ConfirmationCode,
		})
	}
}

/* POST /delivery/confirm */
func ConfirmDelivery(codes *delivery.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /delivery/confirm"
		defer handlePanic(c, route)

		userID, ok := currentUser(c)
		if !ok {
			respondWithError(c, http.StatusUnauthorized, route, "unauthorized")
			return
		}

		var req confirmDeliveryRequest
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

		order, err := codes.ConfirmDelivery(ctx, orderID, userID, req.Code)
		if err != nil {
			respondDeliveryError(c, route, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"message": "delivery confirmed",
			"order":   order,
		})
	}
}

/* GET /delivery/:orderId/qr */
func GetDeliveryQR(codes *delivery.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /delivery/:orderId/qr"
		defer handlePanic(c, route)

		userID, ok := currentUser(c)
		if !ok {
			respondWithError(c, http.StatusUnauthorized, route, "unauthorized")
			return
		}
		orderID, ok := objectIDParam(c, "orderId")
		if !ok {
			respondWithError(c, http.StatusBadRequest, route, "invalid orderId")
			return
		}

		size := 256
		if raw := c.Query("size"); raw != "" {
			parsed, err := strconv.Atoi(raw)
			if err != nil || parsed < 64 || parsed > 1024 {
				respondWithError(c, http.StatusBadRequest, route, "size must be between 64 and 1024")
				return
			}
			size = parsed
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
		defer cancel()

		png, err := codes.QRCode(ctx, orderID, userID, size)
		if err != nil {
			respondDeliveryError(c, route, err)
			return
		}
		c.Header("Cache-Control", "no-store")
		c.Data(http.StatusOK, "image/png", png)
	}
}
