package handlers

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"pureplatter/internal/models"
	"pureplatter/internal/store"
)

type createReviewRequest struct {
	OrderID    string `json:"orderId" binding:"required"`
	ProductID  string `json:"productId" binding:"required"`
	Rating     int    `json:"rating" binding:"required,min=1,max=5"`
	ReviewText string `json:"reviewText" binding:"max=2000"`
}

/* POST /reviews */
func CreateReview(s *store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /reviews"
		defer handlePanic(c, route)

		userID, ok := currentUser(c)
		if !ok {
			respondWithError(c, http.StatusUnauthorized, route, "unauthorized")
			return
		}

		var req createReviewRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}
		orderID, err := primitive.ObjectIDFromHex(strings.TrimSpace(req.OrderID))
		if err != nil {
			respondWithError(c, http.StatusBadRequest, route, "invalid orderId")
			return
		}
		productID := strings.TrimSpace(req.ProductID)

		ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
		defer cancel()

		order, err := s.Orders.FindByID(ctx, orderID)
		if errors.Is(err, store.ErrNotFound) || (err == nil && order.UserID != userID) {
			respondWithError(c, http.StatusNotFound, route, "order not found")
			return
		}
		if err != nil {
			respondStoreError(c, route, err)
			return
		}
		if order.Status != models.StatusDelivered {
			respondWithError(c, http.StatusConflict, route, "only delivered orders can be reviewed")
			return
		}

		items, err := s.Orders.Items(ctx, []primitive.ObjectID{orderID})
		if err != nil {
			respondStoreError(c, route, err)
			return
		}
		purchased := false
		for _, item := range items {
			if item.ProductID == productID {
				purchased = true
				break
			}
		}
		if !purchased {
			respondWithError(c, http.StatusBadRequest, route, "product is not part of this order")
			return
		}

		userName := order.UserFullName
		if customer, err := s.Customers.FindByID(ctx, userID); err == nil && customer.FullName != "" {
			userName = customer.FullName
		}

		review := models.Review{
			UserID:     userID,
			OrderID:    orderID,
			ProductID:  productID,
			Rating:     req.Rating,
			ReviewText: strings.TrimSpace(req.ReviewText),
			UserName:   userName,
			UserEmail:  order.UserEmail,
			IsVerified: true,
			CreatedAt:  time.Now().UTC(),
		}
		if err := s.Reviews.Insert(ctx, &review); err != nil {
			if errors.Is(err, store.ErrDuplicate) {
				respondWithError(c, http.StatusConflict, route, "product already reviewed for this order")
				return
			}
			respondStoreError(c, route, err)
			return
		}

		log.Printf("[%s] review %s saved for order %s", route, review.ID.Hex(), orderID.Hex())
		c.JSON(http.StatusCreated, gin.H{"success": true, "review": review})
	}
}

/* GET /reviews */
func GetReviews(reviews store.ReviewRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /reviews"
		defer handlePanic(c, route)

		featured := false
		if raw := strings.TrimSpace(c.Query("featured")); raw != "" {
			parsed, err := parseBoolValue(raw)
			if err != nil {
				respondWithError(c, http.StatusBadRequest, route, "featured must be boolean")
				return
			}
			featured = parsed
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
		defer cancel()

		list, err := reviews.List(ctx, featured)
		if err != nil {
			respondStoreError(c, route, err)
			return
		}
		c.JSON(http.StatusOK, list)
	}
}
