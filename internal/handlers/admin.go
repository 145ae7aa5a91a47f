package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"pureplatter/internal/models"
	"pureplatter/internal/orders"
	"pureplatter/internal/store"
)

/* GET /admin/api/customers */
func AdminListCustomers(svc *orders.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /admin/api/customers"
		defer handlePanic(c, route)

		ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
		defer cancel()

		summaries, err := svc.CustomerSummaries(ctx)
		if err != nil {
			respondStoreError(c, route, err)
			return
		}

		if q := strings.ToLower(strings.TrimSpace(c.Query("search"))); q != "" {
			kept := summaries[:0]
			for _, s := range summaries {
				if strings.Contains(strings.ToLower(s.FullName), q) || strings.Contains(s.Email, q) {
					kept = append(kept, s)
				}
			}
			summaries = kept
		}
		c.JSON(http.StatusOK, summaries)
	}
}

/* PATCH /admin/api/customers/:id */
func AdminUpdateCustomer(customers store.CustomerRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "PATCH /admin/api/customers/:id"
		defer handlePanic(c, route)

		id, ok := objectIDParam(c, "id")
		if !ok {
			respondWithError(c, http.StatusBadRequest, route, "invalid id")
			return
		}

		var update models.CustomerUpdate
		if err := c.ShouldBindJSON(&update); err != nil {
			respondWithError(c, http.StatusBadRequest, route, "invalid body")
			return
		}
		if update.FullName != nil {
			name := strings.TrimSpace(*update.FullName)
			if name == "" {
				respondWithError(c, http.StatusBadRequest, route, "fullName cannot be empty")
				return
			}
			update.FullName = &name
		}
		if update.Phone != nil {
			phone := strings.TrimSpace(*update.Phone)
			update.Phone = &phone
		}
		if update.FullName == nil && update.Phone == nil && update.IsActive == nil {
			respondWithError(c, http.StatusBadRequest, route, "no fields to update")
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
		defer cancel()

		customer, err := customers.Update(ctx, id, update, time.Now().UTC())
		if errors.Is(err, store.ErrNotFound) {
			respondWithError(c, http.StatusNotFound, route, "customer not found")
			return
		}
		if err != nil {
			respondStoreError(c, route, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "customer": customer})
	}
}
