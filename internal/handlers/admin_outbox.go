package handlers

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"pureplatter/internal/models"
	"pureplatter/internal/store"
)

/* GET /admin/api/outbox */
func AdminListOutbox(outbox store.OutboxRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /admin/api/outbox"
		defer handlePanic(c, route)

		status := strings.TrimSpace(c.DefaultQuery("status", models.TaskFailed))
		switch status {
		case models.TaskPending, models.TaskProcessing, models.TaskDone, models.TaskFailed:
		default:
			respondWithError(c, http.StatusBadRequest, route, "invalid status")
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
		defer cancel()

		tasks, err := outbox.List(ctx, status)
		if err != nil {
			respondStoreError(c, route, err)
			return
		}
		c.JSON(http.StatusOK, tasks)
	}
}

/* POST /admin/api/outbox/:id/retry */
func AdminRetryOutbox(outbox store.OutboxRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /admin/api/outbox/:id/retry"
		defer handlePanic(c, route)

		id, ok := objectIDParam(c, "id")
		if !ok {
			respondWithError(c, http.StatusBadRequest, route, "invalid id")
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
		defer cancel()

		if err := outbox.Retry(ctx, id, time.Now().UTC()); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				respondWithError(c, http.StatusNotFound, route, "failed task not found")
				return
			}
			respondStoreError(c, route, err)
			return
		}

		log.Printf("[%s] task %s requeued", route, id.Hex())
		c.JSON(http.StatusOK, gin.H{"success": true})
	}
}
