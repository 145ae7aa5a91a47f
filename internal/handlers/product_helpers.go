package handlers

import (
	"context"
	"errors"
	"log"
	"math"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"pureplatter/internal/models"
	"pureplatter/internal/store"
)

// presentProduct fills the derived flags the storefront reads.
func presentProduct(p *models.Product) {
	p.InStock = p.Stock > 0
	p.IsOnSale = p.OnSale()
}

func presentProducts(products []models.Product) []models.Product {
	for i := range products {
		presentProduct(&products[i])
	}
	return products
}

func paginated(data any, page, limit, total int64) gin.H {
	totalPages := int64(0)
	if total > 0 && limit > 0 {
		totalPages = int64(math.Ceil(float64(total) / float64(limit)))
	}
	return gin.H{
		"data": data,
		"pagination": gin.H{
			"page":       page,
			"limit":      limit,
			"total":      total,
			"totalPages": totalPages,
		},
	}
}

type productNotFoundError struct {
	ProductID string
}

func (e productNotFoundError) Error() string {
	return "product not found"
}

type outOfStockError struct {
	ProductID string
	Available int
	Requested int
}

func (e outOfStockError) Error() string {
	return "product out of stock"
}

// activeProduct loads a product a customer may buy.
func activeProduct(ctx context.Context, products store.ProductRepository, rawID string) (*models.Product, error) {
	id, err := primitive.ObjectIDFromHex(strings.TrimSpace(rawID))
	if err != nil {
		return nil, productNotFoundError{ProductID: rawID}
	}
	product, err := products.FindByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) || (err == nil && (!product.IsActive || product.IsDeleted)) {
		return nil, productNotFoundError{ProductID: rawID}
	}
	if err != nil {
		return nil, err
	}
	return product, nil
}

func respondProductError(c *gin.Context, route string, err error) {
	var notFound productNotFoundError
	if errors.As(err, &notFound) {
		log.Printf("[%s] product not found: %s", route, notFound.ProductID)
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error":     "product not found",
			"productId": notFound.ProductID,
		})
		return
	}
	var stockErr outOfStockError
	if errors.As(err, &stockErr) {
		log.Printf("[%s] out of stock: %s", route, stockErr.ProductID)
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error":     "insufficient stock",
			"productId": stockErr.ProductID,
			"available": stockErr.Available,
			"requested": stockErr.Requested,
		})
		return
	}
	respondStoreError(c, route, err)
}
