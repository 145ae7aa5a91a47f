package handlers

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"pureplatter/internal/middleware"
	"pureplatter/internal/models"
	"pureplatter/internal/orders"
)

type orderStatusRequest struct {
	Status         string  `json:"status" binding:"required"`
	AdminNotes     *string `json:"adminNotes"`
	TrackingNumber *string `json:"trackingNumber"`
}

/* GET /admin/api/orders */
func AdminListOrders(svc *orders.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /admin/api/orders"
		defer handlePanic(c, route)

		var filter models.OrderStatus
		if raw := strings.TrimSpace(c.Query("status")); raw != "" {
			status, ok := models.ParseOrderStatus(raw)
			if !ok {
				respondWithError(c, http.StatusBadRequest, route, "invalid status")
				return
			}
			filter = status
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
		defer cancel()

		list, err := svc.ListAllOrders(ctx)
		middleware.RecordOrderOperation("list_all", err == nil)
		if err != nil {
			respondStoreError(c, route, err)
			return
		}

		if filter != "" {
			kept := list[:0]
			for _, order := range list {
				if order.Status == filter {
					kept = append(kept, order)
				}
			}
			list = kept
		}
		c.JSON(http.StatusOK, list)
	}
}

/* PATCH /admin/api/orders/:id */
func AdminUpdateOrder(svc *orders.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "PATCH /admin/api/orders/:id"
		defer handlePanic(c, route)

		id, ok := objectIDParam(c, "id")
		if !ok {
			respondWithError(c, http.StatusBadRequest, route, "invalid id")
			return
		}

		var req orderStatusRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
		defer cancel()

		order, err := svc.UpdateStatus(ctx, id, orders.StatusChange{
			Status:         req.Status,
			AdminNotes:     req.AdminNotes,
			TrackingNumber: req.TrackingNumber,
		})
		middleware.RecordOrderOperation("update_status", err == nil)
		switch {
		case errors.Is(err, orders.ErrInvalidStatus):
			respondWithError(c, http.StatusBadRequest, route, err.Error())
			return
		case errors.Is(err, models.ErrInvalidTransition):
			respondWithError(c, http.StatusConflict, route, err.Error())
			return
		case errors.Is(err, orders.ErrOrderNotFound):
			respondWithError(c, http.StatusNotFound, route, "order not found")
			return
		case err != nil:
			respondStoreError(c, route, err)
			return
		}

		log.Printf("[%s] order %s updated by %s", route, id.Hex(), c.GetString("email"))
		c.JSON(http.StatusOK, gin.H{"success": true, "order": order})
	}
}
