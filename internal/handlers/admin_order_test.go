package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"pureplatter/internal/models"
)

func TestAdminRoutesRequireAllowListedAdmin(t *testing.T) {
	app := newTestApp(t)

	assert.Equal(t, http.StatusUnauthorized, app.do(t, http.MethodGet, "/admin/api/orders", "", nil).Code)

	customer := userToken(t, primitive.NewObjectID(), testAdminEmail)
	assert.Equal(t, http.StatusForbidden, app.do(t, http.MethodGet, "/admin/api/orders", customer, nil).Code)

	assert.Equal(t, http.StatusOK, app.do(t, http.MethodGet, "/admin/api/orders", adminToken(t), nil).Code)
}

func TestAdminUpdateOrderStatus(t *testing.T) {
	app := newTestApp(t)
	order := app.placeOrder(t, userToken(t, primitive.NewObjectID(), "ama@example.com"))
	admin := adminToken(t)
	path := "/admin/api/orders/" + order.ID.Hex()

	w := app.do(t, http.MethodPatch, path, admin, map[string]any{"status": "shipped"})
	assert.Equal(t, http.StatusConflict, w.Code, "skipping ahead is rejected")

	w = app.do(t, http.MethodPatch, path, admin, map[string]any{"status": "lost"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = app.do(t, http.MethodPatch, path, admin, map[string]any{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = app.do(t, http.MethodPatch, "/admin/api/orders/"+primitive.NewObjectID().Hex(), admin, map[string]any{"status": "confirmed"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = app.do(t, http.MethodPatch, path, admin, map[string]any{
		"status":         "confirmed",
		"adminNotes":     "  packed by Efua ",
		"trackingNumber": "TRK-1",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	updated := decodeBody(t, w)["order"].(map[string]any)
	assert.Equal(t, "confirmed", updated["status"])
	assert.Equal(t, "packed by Efua", updated["adminNotes"])
	assert.Equal(t, "TRK-1", updated["trackingNumber"])

	tasks, err := app.store.Outbox.List(context.Background(), models.TaskPending)
	require.NoError(t, err)
	kinds := make([]string, 0, len(tasks))
	for _, task := range tasks {
		kinds = append(kinds, task.Kind)
	}
	assert.Contains(t, kinds, models.TaskOrderStatusEmail)
}

func TestAdminListOrdersFiltersByStatus(t *testing.T) {
	app := newTestApp(t)
	token := userToken(t, primitive.NewObjectID(), "ama@example.com")
	first := app.placeOrder(t, token)
	app.placeOrder(t, token)
	app.advance(t, first.ID, models.StatusConfirmed)
	admin := adminToken(t)

	w := app.do(t, http.MethodGet, "/admin/api/orders", admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var all []models.Order
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &all))
	assert.Len(t, all, 2)

	w = app.do(t, http.MethodGet, "/admin/api/orders?status=confirmed", admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var confirmed []models.Order
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &confirmed))
	require.Len(t, confirmed, 1)
	assert.Equal(t, first.ID, confirmed[0].ID)
	assert.Len(t, confirmed[0].Items, 2)

	assert.Equal(t, http.StatusBadRequest, app.do(t, http.MethodGet, "/admin/api/orders?status=lost", admin, nil).Code)
}

func TestAdminCustomers(t *testing.T) {
	app := newTestApp(t)
	customer := app.customer(t, "ama@example.com")
	app.placeOrder(t, userToken(t, customer.ID, customer.Email))
	admin := adminToken(t)

	w := app.do(t, http.MethodGet, "/admin/api/customers", admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var summaries []models.CustomerSummary
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &summaries))
	require.Len(t, summaries, 1)
	assert.Equal(t, 1, summaries[0].OrderCount)
	assert.Equal(t, 1, summaries[0].PendingOrderCount)
	assert.Equal(t, 600.0, summaries[0].AverageOrderValue)

	w = app.do(t, http.MethodGet, "/admin/api/customers?search=kofi", admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &summaries))
	assert.Empty(t, summaries)

	path := "/admin/api/customers/" + customer.ID.Hex()
	assert.Equal(t, http.StatusBadRequest, app.do(t, http.MethodPatch, path, admin, map[string]any{"fullName": "  "}).Code)
	assert.Equal(t, http.StatusBadRequest, app.do(t, http.MethodPatch, path, admin, map[string]any{}).Code)
	assert.Equal(t, http.StatusNotFound, app.do(t, http.MethodPatch, "/admin/api/customers/"+primitive.NewObjectID().Hex(), admin, map[string]any{"isActive": false}).Code)

	w = app.do(t, http.MethodPatch, path, admin, map[string]any{"isActive": false, "phone": " 0209999999 "})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	stored, err := app.store.Customers.FindByID(context.Background(), customer.ID)
	require.NoError(t, err)
	assert.False(t, stored.IsActive)
	assert.Equal(t, "0209999999", stored.Phone)
}

func TestAdminOutboxRetry(t *testing.T) {
	app := newTestApp(t)
	admin := adminToken(t)
	ctx := context.Background()

	w := app.do(t, http.MethodGet, "/admin/api/outbox", admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, "[]", w.Body.String())

	now := time.Now().UTC()
	task := &models.OutboxTask{
		Kind:          models.TaskContactMessage,
		Payload:       "{}",
		Status:        models.TaskPending,
		NextAttemptAt: now,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	require.NoError(t, app.store.Outbox.Enqueue(ctx, task))
	require.NoError(t, app.store.Outbox.Fail(ctx, task.ID, 5, "smtp down", now))

	w = app.do(t, http.MethodGet, "/admin/api/outbox?status=failed", admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var failed []models.OutboxTask
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &failed))
	require.Len(t, failed, 1)
	assert.Equal(t, "smtp down", failed[0].LastError)

	w = app.do(t, http.MethodPost, "/admin/api/outbox/"+task.ID.Hex()+"/retry", admin, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	pending, err := app.store.Outbox.List(ctx, models.TaskPending)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, 0, pending[0].Attempts)

	w = app.do(t, http.MethodPost, "/admin/api/outbox/"+primitive.NewObjectID().Hex()+"/retry", admin, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	assert.Equal(t, http.StatusBadRequest, app.do(t, http.MethodGet, "/admin/api/outbox?status=stuck", admin, nil).Code)
}
