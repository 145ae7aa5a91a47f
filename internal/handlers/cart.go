package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"pureplatter/internal/cart"
	"pureplatter/internal/store"
)

const cartSessionHeader = "X-Cart-Session"

type addCartItemRequest struct {
	ProductID string `json:"productId" binding:"required"`
	Quantity  int    `json:"quantity"`
}

type updateCartItemRequest struct {
	Quantity *int `json:"quantity" binding:"required"`
}

const userCartPrefix = "user-"

var errForeignCartSession = errors.New("cart session belongs to another customer")

// openCart loads the cart for the request. Guests are identified by
// X-Cart-Session (a new id is minted when absent); signed-in customers
// without the header get a session derived from their id. A derived id is
// only usable with its owner's token.
func openCart(ctx context.Context, c *gin.Context, carts *cart.Manager) (*cart.Service, error) {
	sessionID := strings.TrimSpace(c.GetHeader(cartSessionHeader))
	userID, authenticated := currentUser(c)
	own := ""
	if authenticated {
		own = userCartPrefix + userID.Hex()
	}
	switch {
	case sessionID == "" && authenticated:
		sessionID = own
	case sessionID == "":
		sessionID = uuid.NewString()
	case strings.HasPrefix(sessionID, userCartPrefix) && sessionID != own:
		return nil, errForeignCartSession
	}
	c.Header(cartSessionHeader, sessionID)

	if authenticated {
		return carts.Session(ctx, sessionID, &userID)
	}
	return carts.Session(ctx, sessionID, nil)
}

// respondCartError maps a failure to open or change the cart.
func respondCartError(c *gin.Context, route string, err error) {
	if errors.Is(err, errForeignCartSession) {
		respondWithError(c, http.StatusForbidden, route, err.Error())
		return
	}
	respondStoreError(c, route, err)
}

func cartResponse(svc *cart.Service) gin.H {
	return gin.H{
		"sessionId":   svc.SessionID(),
		"items":       svc.Items(),
		"totalItems":  svc.TotalItems(),
		"totalAmount": svc.TotalAmount().InexactFloat64(),
	}
}

func GetCart(carts *cart.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /cart"
		defer handlePanic(c, route)

		ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
		defer cancel()

		svc, err := openCart(ctx, c, carts)
		if err != nil {
			respondCartError(c, route, err)
			return
		}
		c.JSON(http.StatusOK, cartResponse(svc))
	}
}

// AddCartItem prices the line from the catalogue, never from the client.
func AddCartItem(carts *cart.Manager, products store.ProductRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /cart/items"
		defer handlePanic(c, route)

		var req addCartItemRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
		defer cancel()

		product, err := activeProduct(ctx, products, req.ProductID)
		if err != nil {
			respondProductError(c, route, err)
			return
		}

		svc, err := openCart(ctx, c, carts)
		if err != nil {
			respondCartError(c, route, err)
			return
		}
		item := cart.Item{
			ProductID:   product.ID.Hex(),
			ProductName: product.Name,
			UnitPrice:   product.EffectivePrice(),
			WeightLabel: product.WeightLabel,
			ImageURL:    product.ImagePath,
		}
		if err := svc.Add(ctx, item, req.Quantity); err != nil {
			respondStoreError(c, route, err)
			return
		}
		c.JSON(http.StatusOK, cartResponse(svc))
	}
}

func UpdateCartItem(carts *cart.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "PATCH /cart/items/:productId"
		defer handlePanic(c, route)

		var req updateCartItemRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
		defer cancel()

		svc, err := openCart(ctx, c, carts)
		if err != nil {
			respondCartError(c, route, err)
			return
		}
		err = svc.UpdateQuantity(ctx, c.Param("productId"), *req.Quantity)
		if errors.Is(err, cart.ErrItemNotFound) {
			respondWithError(c, http.StatusNotFound, route, "item not in cart")
			return
		}
		if err != nil {
			respondStoreError(c, route, err)
			return
		}
		c.JSON(http.StatusOK, cartResponse(svc))
	}
}

func RemoveCartItem(carts *cart.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "DELETE /cart/items/:productId"
		defer handlePanic(c, route)

		ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
		defer cancel()

		svc, err := openCart(ctx, c, carts)
		if err != nil {
			respondCartError(c, route, err)
			return
		}
		if err := svc.Remove(ctx, c.Param("productId")); err != nil {
			respondStoreError(c, route, err)
			return
		}
		c.JSON(http.StatusOK, cartResponse(svc))
	}
}

func ClearCart(carts *cart.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "DELETE /cart"
		defer handlePanic(c, route)

		ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
		defer cancel()

		svc, err := openCart(ctx, c, carts)
		if err != nil {
			respondCartError(c, route, err)
			return
		}
		if err := svc.Clear(ctx); err != nil {
			respondStoreError(c, route, err)
			return
		}
		c.JSON(http.StatusOK, cartResponse(svc))
	}
}

// SyncCart runs reconciliation on demand; the per-user throttle may skip it.
func SyncCart(carts *cart.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /cart/sync"
		defer handlePanic(c, route)

		ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
		defer cancel()

		svc, err := openCart(ctx, c, carts)
		if err != nil {
			respondCartError(c, route, err)
			return
		}
		ran, err := svc.Reconcile(ctx)
		if err != nil {
			respondStoreError(c, route, err)
			return
		}

		body := cartResponse(svc)
		body["reconciled"] = ran
		c.JSON(http.StatusOK, body)
	}
}
