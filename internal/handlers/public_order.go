package handlers

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"pureplatter/internal/cart"
	"pureplatter/internal/delivery"
	"pureplatter/internal/middleware"
	"pureplatter/internal/models"
	"pureplatter/internal/orders"
	"pureplatter/internal/receipt"
	"pureplatter/internal/store"
)

type createOrderItemRequest struct {
	ProductID string `json:"productId" binding:"required"`
	Quantity  int    `json:"quantity" binding:"required,min=1"`
}

// createOrderRequest carries the delivery details inline. Items are
// optional: without them the order is built from the session cart.
type createOrderRequest struct {
	models.DeliveryDetails
	Items []createOrderItemRequest `json:"items" binding:"omitempty,dive"`
}

// priceItems turns requested lines into cart lines priced from the catalogue.
func priceItems(ctx context.Context, products store.ProductRepository, requested []createOrderItemRequest) ([]models.CartItem, error) {
	items := make([]models.CartItem, 0, len(requested))
	seen := make(map[string]int, len(requested))
	for _, req := range requested {
		product, err := activeProduct(ctx, products, req.ProductID)
		if err != nil {
			return nil, err
		}
		id := product.ID.Hex()
		if idx, ok := seen[id]; ok {
			items[idx].Quantity += req.Quantity
		} else {
			seen[id] = len(items)
			items = append(items, models.CartItem{
				ProductID:   id,
				ProductName: product.Name,
				UnitPrice:   product.EffectivePrice(),
				WeightLabel: product.WeightLabel,
				ImageURL:    product.ImagePath,
			})
			items[len(items)-1].Quantity = req.Quantity
		}
		if qty := items[seen[id]].Quantity; product.Stock < qty {
			return nil, outOfStockError{ProductID: id, Available: product.Stock, Requested: qty}
		}
	}
	return items, nil
}

// cartLines turns the session cart into order lines so they are priced and
// stock-checked like a request body.
func cartLines(items []models.CartItem) []createOrderItemRequest {
	lines := make([]createOrderItemRequest, 0, len(items))
	for _, item := range items {
		lines = append(lines, createOrderItemRequest{ProductID: item.ProductID, Quantity: item.Quantity})
	}
	return lines
}

func respondOrderPlaced(c *gin.Context, order *models.Order, replayed bool) {
	status := http.StatusCreated
	if replayed {
		status = http.StatusOK
	}
	c.JSON(status, gin.H{
		"success":  true,
		"orderId":  order.ID.Hex(),
		"order":    order,
		"replayed": replayed,
	})
}

/* POST /orders */
func CreateOrder(svc *orders.Service, carts *cart.Manager, products store.ProductRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /orders"
		defer handlePanic(c, route)

		userID, ok := currentUser(c)
		if !ok {
			respondWithError(c, http.StatusUnauthorized, route, "unauthorized")
			return
		}

		var req createOrderRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*requestTimeout)
		defer cancel()

		key := c.GetHeader("Idempotency-Key")
		replay, err := svc.Replay(ctx, userID, key)
		if err != nil {
			respondStoreError(c, route, err)
			return
		}
		if replay != nil {
			middleware.RecordOrderOperation("create", true)
			respondOrderPlaced(c, replay, true)
			return
		}

		var session *cart.Service
		if carts != nil {
			s, err := openCart(ctx, c, carts)
			if errors.Is(err, errForeignCartSession) {
				respondWithError(c, http.StatusForbidden, route, err.Error())
				return
			}
			if err != nil {
				log.Printf("[%s] cart session unavailable: %v", route, err)
			} else {
				session = s
			}
		}

		requested := req.Items
		if len(requested) == 0 && session != nil {
			requested = cartLines(session.Items())
		}
		var items []models.CartItem
		if len(requested) > 0 {
			priced, err := priceItems(ctx, products, requested)
			if err != nil {
				respondProductError(c, route, err)
				return
			}
			items = priced
		}

		order, replayed, err := svc.CreateOrder(ctx, orders.CreateInput{
			UserID:         userID,
			Items:          items,
			Details:        req.DeliveryDetails,
			IdempotencyKey: key,
		})
		middleware.RecordOrderOperation("create", err == nil)
		switch {
		case errors.Is(err, orders.ErrEmptyOrder), errors.Is(err, orders.ErrNonPositiveTotal), orders.IsInvalidItem(err):
			respondWithError(c, http.StatusBadRequest, route, err.Error())
			return
		case errors.Is(err, orders.ErrPaymentReferenceUsed):
			respondWithError(c, http.StatusConflict, route, err.Error())
			return
		case err != nil:
			respondStoreError(c, route, err)
			return
		}

		if session != nil && !replayed {
			if err := session.ClearOnOrderSuccess(ctx); err != nil {
				log.Printf("[%s] local cart not cleared: %v", route, err)
			}
		}
		respondOrderPlaced(c, order, replayed)
	}
}

/* GET /orders */
func GetOrders(svc *orders.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /orders"
		defer handlePanic(c, route)

		userID, ok := currentUser(c)
		if !ok {
			respondWithError(c, http.StatusUnauthorized, route, "unauthorized")
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
		defer cancel()

		list, err := svc.ListOrders(ctx, userID)
		middleware.RecordOrderOperation("list", err == nil)
		if err != nil {
			respondStoreError(c, route, err)
			return
		}
		c.JSON(http.StatusOK, list)
	}
}

func loadOwnOrder(ctx context.Context, c *gin.Context, svc *orders.Service, route string) (*models.Order, bool) {
	userID, ok := currentUser(c)
	if !ok {
		respondWithError(c, http.StatusUnauthorized, route, "unauthorized")
		return nil, false
	}
	id, ok := objectIDParam(c, "id")
	if !ok {
		respondWithError(c, http.StatusBadRequest, route, "invalid id")
		return nil, false
	}

	order, err := svc.Get(ctx, id, &userID)
	if errors.Is(err, orders.ErrOrderNotFound) {
		respondWithError(c, http.StatusNotFound, route, "order not found")
		return nil, false
	}
	if err != nil {
		respondStoreError(c, route, err)
		return nil, false
	}
	return order, true
}

/* GET /orders/:id */
func GetOrder(svc *orders.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /orders/:id"
		defer handlePanic(c, route)

		ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
		defer cancel()

		order, ok := loadOwnOrder(ctx, c, svc, route)
		if !ok {
			return
		}
		c.JSON(http.StatusOK, order)
	}
}

/* GET /orders/:id/receipt */
func GetOrderReceipt(svc *orders.Service, codes *delivery.Service, opts receipt.Options) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /orders/:id/receipt"
		defer handlePanic(c, route)

		ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
		defer cancel()

		order, ok := loadOwnOrder(ctx, c, svc, route)
		if !ok {
			return
		}

		opts := opts
		if codes != nil && !order.Status.IsTerminal() {
			png, err := codes.QRCode(ctx, order.ID, order.UserID, 256)
			if err == nil {
				opts.QRCode = png
			} else if !errors.Is(err, delivery.ErrNoOutstandingQR) {
				log.Printf("[%s] delivery qr skipped: %v", route, err)
			}
		}

		pdf, err := receipt.Render(order, opts)
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "receipt generation failed")
			return
		}

		filename := fmt.Sprintf("receipt-%s.pdf", strings.ToUpper(order.ID.Hex()[16:]))
		c.Header("Content-Disposition", "attachment; filename="+filename)
		c.Data(http.StatusOK, "application/pdf", pdf)
	}
}
