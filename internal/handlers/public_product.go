package handlers

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"pureplatter/internal/models"
	"pureplatter/internal/store"
)

/*
GET /products
- pagination is optional
- without page and limit every active product is returned
*/
func GetProducts(products store.ProductRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /products"
		defer handlePanic(c, route)

		filter := models.ProductFilter{Search: strings.TrimSpace(c.Query("search"))}

		pageStr := c.Query("page")
		limitStr := c.Query("limit")
		paged := pageStr != "" || limitStr != ""
		if paged {
			page, limit, err := parsePaginationParams(pageStr, limitStr)
			if err != nil {
				respondWithError(c, http.StatusBadRequest, route, err.Error())
				return
			}
			filter.Page, filter.Limit = page, limit
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
		defer cancel()

		list, total, err := products.List(ctx, filter)
		if err != nil {
			respondStoreError(c, route, err)
			return
		}
		presentProducts(list)

		log.Printf("[%s] returning %d products", route, len(list))
		if paged {
			c.JSON(http.StatusOK, paginated(list, filter.Page, filter.Limit, total))
			return
		}
		c.JSON(http.StatusOK, list)
	}
}

func GetProduct(products store.ProductRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /products/:id"
		defer handlePanic(c, route)

		id, ok := objectIDParam(c, "id")
		if !ok {
			respondWithError(c, http.StatusBadRequest, route, "invalid id")
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
		defer cancel()

		product, err := products.FindByID(ctx, id)
		if errors.Is(err, store.ErrNotFound) || (err == nil && !product.IsActive) {
			respondWithError(c, http.StatusNotFound, route, "product not found")
			return
		}
		if err != nil {
			respondStoreError(c, route, err)
			return
		}

		presentProduct(product)
		c.JSON(http.StatusOK, product)
	}
}
