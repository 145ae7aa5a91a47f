package handlers

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"pureplatter/internal/models"
	"pureplatter/internal/payment"
)

func TestGuestCartLifecycle(t *testing.T) {
	app := newTestApp(t)
	p1 := app.product(t, "Jollof Tray", 120, 10)
	p2 := app.product(t, "Palm Nut Soup", 240, 10)
	session := []string{cartSessionHeader, "guest-1"}

	w := app.do(t, http.MethodPost, "/cart/items", "", map[string]any{"productId": p1.ID.Hex()}, session...)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "guest-1", w.Header().Get(cartSessionHeader))

	app.do(t, http.MethodPost, "/cart/items", "", map[string]any{"productId": p1.ID.Hex()}, session...)
	w = app.do(t, http.MethodPost, "/cart/items", "", map[string]any{"productId": p2.ID.Hex(), "quantity": 2}, session...)
	body := decodeBody(t, w)
	assert.Len(t, body["items"], 2, "adding the same product twice keeps one line")
	assert.Equal(t, 4.0, body["totalItems"])
	assert.Equal(t, 720.0, body["totalAmount"])

	w = app.do(t, http.MethodPatch, "/cart/items/"+p1.ID.Hex(), "", map[string]any{"quantity": 0}, session...)
	require.Equal(t, http.StatusOK, w.Code)
	body = decodeBody(t, w)
	assert.Len(t, body["items"], 1)
	assert.Equal(t, 480.0, body["totalAmount"])

	w = app.do(t, http.MethodPatch, "/cart/items/"+p1.ID.Hex(), "", map[string]any{"quantity": 3}, session...)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = app.do(t, http.MethodDelete, "/cart/items/"+p2.ID.Hex(), "", nil, session...)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 0.0, decodeBody(t, w)["totalItems"])

	w = app.do(t, http.MethodGet, "/cart", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get(cartSessionHeader), "a session id is minted for new guests")
}

func TestAddCartItemUsesCataloguePrice(t *testing.T) {
	app := newTestApp(t)
	hidden := &models.Product{Name: "Retired", Price: 10, Stock: 1, IsActive: false}
	require.NoError(t, app.store.Products.Insert(context.Background(), hidden))
	sale := &models.Product{Name: "Kelewele", Price: 50, SaleEnabled: true, SalePrice: 40, Stock: 5, IsActive: true}
	require.NoError(t, app.store.Products.Insert(context.Background(), sale))

	w := app.do(t, http.MethodPost, "/cart/items", "", map[string]any{"productId": hidden.ID.Hex()})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = app.do(t, http.MethodPost, "/cart/items", "", map[string]any{"productId": sale.ID.Hex(), "unitPrice": 1})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 40.0, decodeBody(t, w)["totalAmount"])
}

func TestCustomerCartSessionNeedsOwnerToken(t *testing.T) {
	app := newTestApp(t)
	p := app.product(t, "Jollof Tray", 120, 10)
	owner := primitive.NewObjectID()
	token := userToken(t, owner, "ama@example.com")

	w := app.do(t, http.MethodPost, "/cart/items", token, map[string]any{"productId": p.ID.Hex()})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	ownSession := w.Header().Get(cartSessionHeader)
	require.Equal(t, "user-"+owner.Hex(), ownSession)

	w = app.do(t, http.MethodGet, "/cart", "", nil, cartSessionHeader, ownSession)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.NotContains(t, w.Body.String(), "Jollof Tray")

	stranger := userToken(t, primitive.NewObjectID(), "kofi@example.com")
	w = app.do(t, http.MethodPost, "/cart/items", stranger, map[string]any{"productId": p.ID.Hex()}, cartSessionHeader, ownSession)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = app.do(t, http.MethodGet, "/cart", token, nil, cartSessionHeader, ownSession)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1.0, decodeBody(t, w)["totalItems"])
}

func TestSyncCartRequiresAuth(t *testing.T) {
	app := newTestApp(t)
	assert.Equal(t, http.StatusUnauthorized, app.do(t, http.MethodPost, "/cart/sync", "", nil).Code)

	token := userToken(t, primitive.NewObjectID(), "ama@example.com")
	w := app.do(t, http.MethodPost, "/cart/sync", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, decodeBody(t, w), "reconciled")
}

func TestInitializeCheckout(t *testing.T) {
	app := newTestApp(t)
	p := app.product(t, "Jollof Tray", 120, 10)
	token := userToken(t, primitive.NewObjectID(), "ama@example.com")

	w := app.do(t, http.MethodPost, "/checkout/initialize", token, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code, "empty cart")

	app.do(t, http.MethodPost, "/cart/items", token, map[string]any{"productId": p.ID.Hex(), "quantity": 2})

	w = app.do(t, http.MethodPost, "/checkout/initialize", token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	params := decodeBody(t, w)["payment"].(map[string]any)
	assert.Equal(t, 24000.0, params["amount"])
	assert.Equal(t, "ama@example.com", app.gateway.email)

	app.gateway.err = payment.ErrNotConfigured
	assert.Equal(t, http.StatusServiceUnavailable, app.do(t, http.MethodPost, "/checkout/initialize", token, nil).Code)

	app.gateway.err = errors.New("gateway timeout")
	assert.Equal(t, http.StatusInternalServerError, app.do(t, http.MethodPost, "/checkout/initialize", token, nil).Code)
}
