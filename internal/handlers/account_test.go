package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"pureplatter/internal/models"
)

func TestUserAddresses(t *testing.T) {
	app := newTestApp(t)
	customer := app.customer(t, "ama@example.com")
	token := userToken(t, customer.ID, customer.Email)

	w := app.do(t, http.MethodGet, "/user/addresses", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"addresses":[]}`, w.Body.String())

	create := func(label string, isDefault bool) models.Address {
		w := app.do(t, http.MethodPost, "/user/addresses", token, map[string]any{
			"label":     label,
			"address":   "12 Ring Road",
			"city":      "Accra",
			"isDefault": isDefault,
		})
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		var resp struct {
			Address models.Address `json:"address"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		return resp.Address
	}

	home := create("Home", false)
	assert.True(t, home.IsDefault, "first address becomes the default")
	assert.NotEmpty(t, home.ID)

	office := create("Office", true)
	stored, err := app.store.Customers.FindByID(context.Background(), customer.ID)
	require.NoError(t, err)
	require.Len(t, stored.Addresses, 2)
	assert.False(t, stored.Addresses[0].IsDefault)
	assert.True(t, stored.Addresses[1].IsDefault)

	w = app.do(t, http.MethodPut, "/user/addresses/"+home.ID, token, map[string]any{
		"label": "Home", "address": "3 Oxford Street", "city": "Accra", "isDefault": true,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	stored, err = app.store.Customers.FindByID(context.Background(), customer.ID)
	require.NoError(t, err)
	assert.Equal(t, "3 Oxford Street", stored.Addresses[0].Address)
	assert.True(t, stored.Addresses[0].IsDefault)
	assert.False(t, stored.Addresses[1].IsDefault)

	w = app.do(t, http.MethodDelete, "/user/addresses/"+home.ID, token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	stored, err = app.store.Customers.FindByID(context.Background(), customer.ID)
	require.NoError(t, err)
	require.Len(t, stored.Addresses, 1)
	assert.Equal(t, office.ID, stored.Addresses[0].ID)
	assert.True(t, stored.Addresses[0].IsDefault, "removing the default promotes the next address")

	assert.Equal(t, http.StatusNotFound, app.do(t, http.MethodDelete, "/user/addresses/missing", token, nil).Code)
	assert.Equal(t, http.StatusBadRequest, app.do(t, http.MethodPost, "/user/addresses", token, map[string]any{"label": "x"}).Code)

	ghost := userToken(t, primitive.NewObjectID(), "ghost@example.com")
	assert.Equal(t, http.StatusNotFound, app.do(t, http.MethodGet, "/user/addresses", ghost, nil).Code)
}

func TestCreateReview(t *testing.T) {
	app := newTestApp(t)
	customer := app.customer(t, "ama@example.com")
	token := userToken(t, customer.ID, customer.Email)
	order := app.placeOrder(t, token)
	productID := order.Items[0].ProductID

	review := func(body map[string]any) int {
		return app.do(t, http.MethodPost, "/reviews", token, body).Code
	}
	body := map[string]any{"orderId": order.ID.Hex(), "productId": productID, "rating": 5, "reviewText": "Lovely"}

	assert.Equal(t, http.StatusConflict, review(body), "order not delivered yet")

	app.advance(t, order.ID, models.StatusConfirmed, models.StatusProcessing, models.StatusShipped, models.StatusDelivered)

	assert.Equal(t, http.StatusBadRequest, review(map[string]any{"orderId": order.ID.Hex(), "productId": productID, "rating": 6}))
	assert.Equal(t, http.StatusBadRequest, review(map[string]any{"orderId": order.ID.Hex(), "productId": primitive.NewObjectID().Hex(), "rating": 4}))
	assert.Equal(t, http.StatusCreated, review(body))
	assert.Equal(t, http.StatusConflict, review(body), "one review per product per order")

	stranger := userToken(t, primitive.NewObjectID(), "kofi@example.com")
	assert.Equal(t, http.StatusNotFound, app.do(t, http.MethodPost, "/reviews", stranger, body).Code)

	w := app.do(t, http.MethodGet, "/reviews", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var reviews []models.Review
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &reviews))
	require.Len(t, reviews, 1)
	assert.True(t, reviews[0].IsVerified)
	assert.Equal(t, "Ama Mensah", reviews[0].UserName)

	w = app.do(t, http.MethodGet, "/reviews?featured=true", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, "[]", w.Body.String())

	assert.Equal(t, http.StatusBadRequest, app.do(t, http.MethodGet, "/reviews?featured=maybe", "", nil).Code)
}

func TestContactAndQuoteQueueEmails(t *testing.T) {
	app := newTestApp(t)

	w := app.do(t, http.MethodPost, "/contact", "", map[string]any{"firstName": "Ama", "email": "not-an-email"})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "validation failed")

	w = app.do(t, http.MethodPost, "/contact", "", map[string]any{
		"firstName": "Ama",
		"lastName":  "Mensah",
		"email":     "Ama@Example.com",
		"message":   "Do you cater weddings?",
	})
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())

	w = app.do(t, http.MethodPost, "/quote", "", map[string]any{
		"name":     "Kofi",
		"email":    "kofi@example.com",
		"quantity": "40 trays",
	})
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())

	tasks, err := app.store.Outbox.List(context.Background(), models.TaskPending)
	require.NoError(t, err)
	require.Len(t, tasks, 2)

	byKind := map[string]models.OutboxTask{}
	for _, task := range tasks {
		byKind[task.Kind] = task
	}
	require.Contains(t, byKind, models.TaskContactMessage)
	require.Contains(t, byKind, models.TaskQuoteRequest)

	var msg models.ContactMessage
	require.NoError(t, json.Unmarshal([]byte(byKind[models.TaskContactMessage].Payload), &msg))
	assert.Equal(t, "ama@example.com", msg.Email)
}

func TestNotifyAdminOrder(t *testing.T) {
	app := newTestApp(t)
	token := userToken(t, primitive.NewObjectID(), "ama@example.com")
	order := app.placeOrder(t, token)

	before, err := app.store.Outbox.List(context.Background(), models.TaskPending)
	require.NoError(t, err)

	w := app.do(t, http.MethodPost, "/notify-admin-order", token, map[string]any{"orderId": order.ID.Hex()})
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())

	after, err := app.store.Outbox.List(context.Background(), models.TaskPending)
	require.NoError(t, err)
	assert.Len(t, after, len(before)+1)

	stranger := userToken(t, primitive.NewObjectID(), "kofi@example.com")
	w = app.do(t, http.MethodPost, "/notify-admin-order", stranger, map[string]any{"orderId": order.ID.Hex()})
	assert.Equal(t, http.StatusNotFound, w.Code)
}
