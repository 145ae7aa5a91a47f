package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"pureplatter/internal/models"
	"pureplatter/internal/store"
)

type productUpdateRequest struct {
	Name        *string  `json:"name"`
	Description *string  `json:"description"`
	Price       *float64 `json:"price"`
	SaleEnabled *bool    `json:"saleEnabled"`
	SalePrice   *float64 `json:"salePrice"`
	WeightLabel *string  `json:"weightLabel"`
	Stock       *int     `json:"stock"`
	IsActive    *bool    `json:"isActive"`
}

func (r productUpdateRequest) input() productInput {
	var in productInput
	if r.Name != nil {
		in.Name, in.NameSet = strings.TrimSpace(*r.Name), true
	}
	if r.Description != nil {
		in.Description, in.DescriptionSet = strings.TrimSpace(*r.Description), true
	}
	if r.Price != nil {
		in.Price, in.PriceSet = *r.Price, true
	}
	if r.SaleEnabled != nil {
		in.SaleEnabled, in.SaleEnabledSet = *r.SaleEnabled, true
	}
	if r.SalePrice != nil {
		in.SalePrice, in.SalePriceSet = *r.SalePrice, true
	}
	if r.WeightLabel != nil {
		in.WeightLabel, in.WeightLabelSet = strings.TrimSpace(*r.WeightLabel), true
	}
	if r.Stock != nil {
		in.Stock, in.StockSet = *r.Stock, true
	}
	if r.IsActive != nil {
		in.IsActive, in.IsActiveSet = *r.IsActive, true
	}
	return in
}

// applyProductInput writes the sent fields onto product, validating them
// against its current state.
func applyProductInput(product *models.Product, in productInput) error {
	if in.NameSet {
		if in.Name == "" {
			return errors.New("name required")
		}
		product.Name = in.Name
	}
	if in.PriceSet && in.Price <= 0 {
		return errors.New("invalid price")
	}
	if in.StockSet {
		if in.Stock < 0 {
			return errors.New("stock must be zero or greater")
		}
		product.Stock = in.Stock
	}
	if in.DescriptionSet {
		product.Description = in.Description
	}
	if in.WeightLabelSet {
		product.WeightLabel = in.WeightLabel
	}
	if in.IsActiveSet {
		product.IsActive = in.IsActive
	}
	if in.ImageSet {
		product.ImagePath = in.ImagePath
	}

	var change models.PriceChange
	if in.PriceSet {
		change.Price = &in.Price
	}
	if in.SaleEnabledSet {
		change.SaleEnabled = &in.SaleEnabled
	}
	if in.SalePriceSet {
		change.SalePrice = &in.SalePrice
	}
	return product.ApplyPriceChange(change)
}

/* GET /admin/api/products */
func GetAllProducts(products store.ProductRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /admin/api/products"
		defer handlePanic(c, route)

		page, limit, err := parsePaginationParams(c.Query("page"), c.Query("limit"))
		if err != nil {
			respondWithError(c, http.StatusBadRequest, route, err.Error())
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
		defer cancel()

		list, total, err := products.List(ctx, models.ProductFilter{
			Search:        strings.TrimSpace(c.Query("search")),
			IncludeHidden: true,
			Page:          page,
			Limit:         limit,
		})
		if err != nil {
			respondStoreError(c, route, err)
			return
		}

		c.JSON(http.StatusOK, paginated(presentProducts(list), page, limit, total))
	}
}

/* POST /admin/api/products (multipart) */
func CreateProduct(products store.ProductRepository, uploads Uploads) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /admin/api/products"
		defer handlePanic(c, route)

		if !strings.HasPrefix(c.GetHeader("Content-Type"), "multipart/form-data") {
			respondWithError(c, http.StatusUnsupportedMediaType, route, "multipart/form-data required")
			return
		}

		input, err := parseMultipartProductRequest(c, uploads)
		if err != nil {
			respondWithError(c, http.StatusBadRequest, route, err.Error())
			return
		}

		switch {
		case !input.NameSet || input.Name == "":
			respondWithError(c, http.StatusBadRequest, route, "name required")
			return
		case !input.PriceSet:
			respondWithError(c, http.StatusBadRequest, route, "invalid price")
			return
		case !input.StockSet:
			respondWithError(c, http.StatusBadRequest, route, "stock required")
			return
		}

		now := time.Now().UTC()
		product := models.Product{IsActive: true, CreatedAt: now, UpdatedAt: now}
		if err := applyProductInput(&product, input); err != nil {
			_ = uploads.Delete(input.ImagePath)
			respondWithError(c, http.StatusBadRequest, route, err.Error())
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
		defer cancel()

		if err := products.Insert(ctx, &product); err != nil {
			_ = uploads.Delete(input.ImagePath)
			respondStoreError(c, route, err)
			return
		}

		log.Printf("[%s] product created: %s", route, product.ID.Hex())
		presentProduct(&product)
		c.JSON(http.StatusCreated, product)
	}
}

/* PUT /admin/api/products/:id (multipart or JSON) */
func UpdateProduct(products store.ProductRepository, uploads Uploads) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "PUT /admin/api/products/:id"
		defer handlePanic(c, route)

		id, ok := objectIDParam(c, "id")
		if !ok {
			respondWithError(c, http.StatusBadRequest, route, "invalid id")
			return
		}

		removeImage := false
		if raw := strings.TrimSpace(c.Query("removeImage")); raw != "" {
			parsed, err := strconv.ParseBool(raw)
			if err != nil {
				respondWithError(c, http.StatusBadRequest, route, "removeImage must be boolean")
				return
			}
			removeImage = parsed
		}

		var input productInput
		if strings.HasPrefix(c.GetHeader("Content-Type"), "multipart/form-data") {
			parsed, err := parseMultipartProductRequest(c, uploads)
			if err != nil {
				respondWithError(c, http.StatusBadRequest, route, err.Error())
				return
			}
			input = parsed
		} else {
			var req productUpdateRequest
			if err := json.NewDecoder(c.Request.Body).Decode(&req); err != nil {
				respondWithError(c, http.StatusBadRequest, route, "invalid body")
				return
			}
			input = req.input()
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
		defer cancel()

		product, err := products.FindByID(ctx, id)
		if errors.Is(err, store.ErrNotFound) {
			_ = uploads.Delete(input.ImagePath)
			respondWithError(c, http.StatusNotFound, route, "product not found")
			return
		}
		if err != nil {
			respondStoreError(c, route, err)
			return
		}

		previousImage := strings.TrimSpace(product.ImagePath)
		if err := applyProductInput(product, input); err != nil {
			_ = uploads.Delete(input.ImagePath)
			respondWithError(c, http.StatusBadRequest, route, err.Error())
			return
		}
		if removeImage && !input.ImageSet {
			product.ImagePath = ""
		}
		product.UpdatedAt = time.Now().UTC()

		if err := products.Replace(ctx, product); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				respondWithError(c, http.StatusNotFound, route, "product not found")
				return
			}
			respondStoreError(c, route, err)
			return
		}

		if previousImage != "" && previousImage != product.ImagePath {
			if err := uploads.Delete(previousImage); err != nil {
				log.Printf("[%s] old image delete failed: %v", route, err)
			}
		}

		presentProduct(product)
		c.JSON(http.StatusOK, product)
	}
}

/* DELETE /admin/api/products/:id (soft) */
func DeleteProduct(products store.ProductRepository, uploads Uploads) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "DELETE /admin/api/products/:id"
		defer handlePanic(c, route)

		id, ok := objectIDParam(c, "id")
		if !ok {
			respondWithError(c, http.StatusBadRequest, route, "invalid id")
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
		defer cancel()

		previous, err := products.SoftDelete(ctx, id, time.Now().UTC())
		if errors.Is(err, store.ErrNotFound) {
			respondWithError(c, http.StatusNotFound, route, "product not found")
			return
		}
		if err != nil {
			respondStoreError(c, route, err)
			return
		}

		if err := uploads.Delete(previous.ImagePath); err != nil {
			log.Printf("[%s] image delete failed: %v", route, err)
		}

		c.JSON(http.StatusOK, gin.H{"success": true, "message": "product deleted"})
	}
}
