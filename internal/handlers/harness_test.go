package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"pureplatter/internal/cart"
	"pureplatter/internal/delivery"
	"pureplatter/internal/middleware"
	"pureplatter/internal/models"
	"pureplatter/internal/notify"
	"pureplatter/internal/orders"
	"pureplatter/internal/payment"
	"pureplatter/internal/receipt"
	"pureplatter/internal/store"
	"pureplatter/internal/store/memstore"
)

const (
	testSecret     = "test-secret"
	testAdminEmail = "admin@pureplatter.test"
)

type testApp struct {
	store   *store.Store
	orders  *orders.Service
	codes   *delivery.Service
	carts   *cart.Manager
	gateway *fakeGateway
	router  *gin.Engine
}

type fakeGateway struct {
	err    error
	email  string
	amount float64
}

func (f *fakeGateway) Setup(_ context.Context, email string, amount float64, metadata map[string]any) (*payment.SetupParams, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.email, f.amount = email, amount
	return &payment.SetupParams{
		Key:              "pk_test",
		Email:            email,
		AmountMinorUnits: payment.ToMinorUnits(amount),
		Currency:         "GHS",
		Reference:        "PP-test",
		Metadata:         metadata,
	}, nil
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	gin.SetMode(gin.TestMode)

	s := memstore.New()
	outbox := notify.NewOutbox(s.Outbox)
	app := &testApp{
		store:   s,
		orders:  orders.NewService(s, outbox, nil),
		codes:   delivery.NewService(s, outbox, nil, ""),
		carts:   cart.NewManager(cart.NewMemoryLocalStore(), s.Carts, s, time.Millisecond),
		gateway: &fakeGateway{},
	}
	auth := Auth{
		Customers:  s.Customers,
		Tokens:     s.RefreshTokens,
		Secret:     testSecret,
		AccessTTL:  time.Minute,
		RefreshTTL: time.Hour,
		IsAdmin:    func(email string) bool { return email == testAdminEmail },
	}

	r := gin.New()
	r.POST("/contact", SubmitContact(outbox))
	r.POST("/quote", SubmitQuote(outbox))
	r.GET("/reviews", GetReviews(s.Reviews))
	r.GET("/products", GetProducts(s.Products))
	r.POST("/auth/register", Register(auth, app.carts))
	r.POST("/auth/login", Login(auth, app.carts))
	r.POST("/auth/refresh", Refresh(auth))
	r.POST("/auth/logout", Logout(auth))
	r.POST("/admin/login", AdminLogin(auth))

	carts := r.Group("/cart", middleware.OptionalUserAuth(testSecret))
	carts.GET("", GetCart(app.carts))
	carts.POST("/items", AddCartItem(app.carts, s.Products))
	carts.PATCH("/items/:productId", UpdateCartItem(app.carts))
	carts.DELETE("/items/:productId", RemoveCartItem(app.carts))
	carts.DELETE("", ClearCart(app.carts))
	carts.POST("/sync", middleware.UserAuth(testSecret), SyncCart(app.carts))

	authed := r.Group("/", middleware.UserAuth(testSecret))
	authed.GET("/auth/me", GetMe(auth))
	authed.POST("/checkout/initialize", InitializeCheckout(app.gateway, app.carts))
	authed.POST("/orders", CreateOrder(app.orders, app.carts, s.Products))
	authed.GET("/orders", GetOrders(app.orders))
	authed.GET("/orders/:id", GetOrder(app.orders))
	authed.GET("/orders/:id/receipt", GetOrderReceipt(app.orders, app.codes, receipt.Options{StoreName: "Pure Platter", Currency: "GHS"}))
	authed.POST("/delivery/generate-code", GenerateDeliveryCode(app.codes))
	authed.POST("/delivery/confirm", ConfirmDelivery(app.codes))
	authed.GET("/delivery/:orderId/qr", GetDeliveryQR(app.codes))
	authed.POST("/reviews", CreateReview(s))
	authed.POST("/notify-admin-order", NotifyAdminOrder(app.orders, outbox))
	authed.GET("/user/addresses", GetUserAddresses(s.Customers))
	authed.POST("/user/addresses", CreateUserAddress(s.Customers))
	authed.PUT("/user/addresses/:id", UpdateUserAddress(s.Customers))
	authed.DELETE("/user/addresses/:id", DeleteUserAddress(s.Customers))

	admin := r.Group("/admin/api", middleware.AdminAuth(testSecret, func(email string) bool { return email == testAdminEmail }))
	admin.GET("/orders", AdminListOrders(app.orders))
	admin.PATCH("/orders/:id", AdminUpdateOrder(app.orders))
	admin.GET("/customers", AdminListCustomers(app.orders))
	admin.PATCH("/customers/:id", AdminUpdateCustomer(s.Customers))
	admin.GET("/outbox", AdminListOutbox(s.Outbox))
	admin.POST("/outbox/:id/retry", AdminRetryOutbox(s.Outbox))

	app.router = r
	return app
}

func userToken(t *testing.T, userID primitive.ObjectID, email string) string {
	t.Helper()
	return signToken(t, jwt.MapClaims{
		"sub":    userID.Hex(),
		"userId": userID.Hex(),
		"email":  email,
		"role":   "customer",
		"exp":    time.Now().Add(time.Hour).Unix(),
	})
}

func adminToken(t *testing.T) string {
	t.Helper()
	return signToken(t, jwt.MapClaims{
		"sub":   primitive.NewObjectID().Hex(),
		"email": testAdminEmail,
		"role":  middleware.RoleAdmin,
		"exp":   time.Now().Add(time.Hour).Unix(),
	})
}

func signToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return token
}

func (a *testApp) do(t *testing.T, method, path, token string, body any, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func (a *testApp) product(t *testing.T, name string, price float64, stock int) *models.Product {
	t.Helper()
	p := &models.Product{Name: name, Price: price, Stock: stock, IsActive: true}
	require.NoError(t, a.store.Products.Insert(context.Background(), p))
	return p
}

func (a *testApp) customer(t *testing.T, email string) *models.Customer {
	t.Helper()
	c := &models.Customer{FullName: "Ama Mensah", Email: email, IsActive: true}
	require.NoError(t, a.store.Customers.Insert(context.Background(), c))
	return c
}

// placeOrder creates a 600.00 order for userID through the HTTP surface.
func (a *testApp) placeOrder(t *testing.T, token string) *models.Order {
	t.Helper()
	p1 := a.product(t, "Jollof Tray", 120, 10)
	p2 := a.product(t, "Palm Nut Soup", 240, 10)

	w := a.do(t, http.MethodPost, "/orders", token, map[string]any{
		"email":    "ama@example.com",
		"fullName": "Ama Mensah",
		"phone":    "0240000000",
		"address":  "12 Ring Road",
		"city":     "Accra",
		"items": []map[string]any{
			{"productId": p1.ID.Hex(), "quantity": 1},
			{"productId": p2.ID.Hex(), "quantity": 2},
		},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var resp struct {
		Order models.Order `json:"order"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return &resp.Order
}

// advance walks an order through the admin lifecycle to status.
func (a *testApp) advance(t *testing.T, orderID primitive.ObjectID, steps ...models.OrderStatus) {
	t.Helper()
	for _, status := range steps {
		_, err := a.orders.UpdateStatus(context.Background(), orderID, orders.StatusChange{Status: string(status)})
		require.NoError(t, err)
	}
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}
