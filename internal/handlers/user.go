package handlers

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"pureplatter/internal/models"
	"pureplatter/internal/store"
)

type addressRequest struct {
	Label     string `json:"label" binding:"required"`
	Address   string `json:"address" binding:"required"`
	City      string `json:"city" binding:"required"`
	Notes     string `json:"notes"`
	IsDefault bool   `json:"isDefault"`
}

func (r addressRequest) apply(addr *models.Address) {
	addr.Label = strings.TrimSpace(r.Label)
	addr.Address = strings.TrimSpace(r.Address)
	addr.City = strings.TrimSpace(r.City)
	addr.Notes = strings.TrimSpace(r.Notes)
	addr.IsDefault = r.IsDefault
}

// setDefault leaves at most one default address, the one at index.
func setDefault(addresses []models.Address, index int) {
	for i := range addresses {
		addresses[i].IsDefault = i == index
	}
}

func loadCustomer(ctx context.Context, c *gin.Context, customers store.CustomerRepository, route string) (*models.Customer, bool) {
	userID, ok := currentUser(c)
	if !ok {
		log.Println("[ADDRESS] [ERROR] userId missing in context")
		respondWithError(c, http.StatusUnauthorized, route, "unauthorized")
		return nil, false
	}
	customer, err := customers.FindByID(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		respondWithError(c, http.StatusNotFound, route, "user not found")
		return nil, false
	}
	if err != nil {
		respondStoreError(c, route, err)
		return nil, false
	}
	return customer, true
}

func addressIndex(addresses []models.Address, id string) int {
	for i, addr := range addresses {
		if addr.ID == id {
			return i
		}
	}
	return -1
}

/* GET /user/addresses */
func GetUserAddresses(customers store.CustomerRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /user/addresses"
		defer handlePanic(c, route)

		ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
		defer cancel()

		customer, ok := loadCustomer(ctx, c, customers, route)
		if !ok {
			return
		}
		addresses := customer.Addresses
		if addresses == nil {
			addresses = []models.Address{}
		}
		c.JSON(http.StatusOK, gin.H{"addresses": addresses})
	}
}

/* POST /user/addresses */
func CreateUserAddress(customers store.CustomerRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /user/addresses"
		defer handlePanic(c, route)

		var req addressRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
		defer cancel()

		customer, ok := loadCustomer(ctx, c, customers, route)
		if !ok {
			return
		}

		address := models.Address{ID: uuid.NewString()}
		req.apply(&address)
		if len(customer.Addresses) == 0 {
			address.IsDefault = true
		}

		addresses := append(customer.Addresses, address)
		if address.IsDefault {
			setDefault(addresses, len(addresses)-1)
		}

		if err := customers.SetAddresses(ctx, customer.ID, addresses, time.Now().UTC()); err != nil {
			respondStoreError(c, route, err)
			return
		}

		log.Println("[ADDRESS] [INFO] address created:", address.ID)
		c.JSON(http.StatusCreated, gin.H{"address": address})
	}
}

/* PUT /user/addresses/:id */
func UpdateUserAddress(customers store.CustomerRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "PUT /user/addresses/:id"
		defer handlePanic(c, route)

		var req addressRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}
		addressID := strings.TrimSpace(c.Param("id"))

		ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
		defer cancel()

		customer, ok := loadCustomer(ctx, c, customers, route)
		if !ok {
			return
		}

		index := addressIndex(customer.Addresses, addressID)
		if index == -1 {
			respondWithError(c, http.StatusNotFound, route, "address not found")
			return
		}
		req.apply(&customer.Addresses[index])
		if req.IsDefault {
			setDefault(customer.Addresses, index)
		}

		if err := customers.SetAddresses(ctx, customer.ID, customer.Addresses, time.Now().UTC()); err != nil {
			respondStoreError(c, route, err)
			return
		}

		log.Println("[ADDRESS] [INFO] address updated:", addressID)
		c.JSON(http.StatusOK, gin.H{"address": customer.Addresses[index]})
	}
}

/* DELETE /user/addresses/:id */
func DeleteUserAddress(customers store.CustomerRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "DELETE /user/addresses/:id"
		defer handlePanic(c, route)

		addressID := strings.TrimSpace(c.Param("id"))

		ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
		defer cancel()

		customer, ok := loadCustomer(ctx, c, customers, route)
		if !ok {
			return
		}

		index := addressIndex(customer.Addresses, addressID)
		if index == -1 {
			respondWithError(c, http.StatusNotFound, route, "address not found")
			return
		}
		removedDefault := customer.Addresses[index].IsDefault

		updated := make([]models.Address, 0, len(customer.Addresses)-1)
		updated = append(updated, customer.Addresses[:index]...)
		updated = append(updated, customer.Addresses[index+1:]...)
		if removedDefault && len(updated) > 0 {
			setDefault(updated, 0)
		}

		if err := customers.SetAddresses(ctx, customer.ID, updated, time.Now().UTC()); err != nil {
			respondStoreError(c, route, err)
			return
		}

		log.Println("[ADDRESS] [INFO] address deleted:", addressID)
		c.JSON(http.StatusOK, gin.H{"success": true, "message": "address deleted"})
	}
}
