package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"pureplatter/internal/cart"
	"pureplatter/internal/config"
	"pureplatter/internal/database"
	"pureplatter/internal/delivery"
	"pureplatter/internal/events"
	"pureplatter/internal/handlers"
	"pureplatter/internal/mailer"
	"pureplatter/internal/middleware"
	"pureplatter/internal/notify"
	"pureplatter/internal/orders"
	"pureplatter/internal/payment"
	"pureplatter/internal/receipt"
	"pureplatter/internal/store"
	"pureplatter/internal/store/memstore"
	"pureplatter/internal/store/mongostore"
)

func main() {
	config.Load()
	if err := config.AppEnv.Validate(); err != nil {
		log.Fatal(err)
	}
	env := config.AppEnv

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	checks := map[string]handlers.Pinger{}

	var s *store.Store
	switch env.StoreDriver {
	case "memory":
		log.Println("[MAIN] [WARN] using in-memory store, data is lost on restart")
		s = memstore.New()
	default:
		client, err := database.Connect(env.MongoURI)
		if err != nil {
			log.Fatal(err)
		}
		defer client.Disconnect(context.Background())

		db := client.Database(env.DBName)
		log.Println("MongoDB connected to:", db.Name())
		if err := database.EnsureIndexes(db); err != nil {
			log.Printf("[MAIN] [WARN] index warning: %v", err)
		}
		s = mongostore.New(db)
		checks["mongo"] = func(ctx context.Context) error { return client.Ping(ctx, readpref.Primary()) }
	}

	var local cart.LocalStore = cart.NewMemoryLocalStore()
	if env.RedisURL != "" {
		opts, err := redis.ParseURL(env.RedisURL)
		if err != nil {
			log.Fatalf("invalid REDIS_URL: %v", err)
		}
		rdb := redis.NewClient(opts)
		defer rdb.Close()
		local = cart.NewRedisLocalStore(rdb, env.CartTTL)
		checks["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
	}
	carts := cart.NewManager(local, s.Carts, s, env.CartSyncInterval)

	var publisher events.Publisher = events.NopPublisher{}
	if env.RabbitMQURL != "" {
		rabbit, err := events.NewRabbitPublisher(env.RabbitMQURL, env.OrderExchange)
		if err != nil {
			log.Printf("[MAIN] [WARN] rabbitmq unavailable, order events disabled: %v", err)
		} else {
			defer rabbit.Close()
			publisher = rabbit
		}
	}

	outbox := notify.NewOutbox(s.Outbox)
	orderService := orders.NewService(s, outbox, publisher)
	deliveryService := delivery.NewService(s, outbox, publisher, env.AppURL)
	paystack := payment.NewPaystack(env.PaystackBaseURL, env.PaystackPublicKey, env.PaystackSecretKey, env.Currency)

	worker := notify.NewWorker(s.Outbox, notify.WorkerConfig{
		PollInterval: env.OutboxPollInterval,
		MaxAttempts:  env.OutboxMaxAttempts,
	})
	tasks := &notify.Tasks{
		Store:  s,
		Sender: newSender(env),
		Composer: mailer.Composer{
			From:      env.EmailFrom,
			AdminTo:   env.AdminNotifyEmail,
			ContactTo: env.ContactEmailTo,
			AppURL:    env.AppURL,
		},
		Codes:    deliveryService,
		Payments: paystack,
		Currency: env.Currency,
	}
	tasks.Register(worker)

	background := make(chan struct{}, 2)
	go func() { worker.Run(ctx); background <- struct{}{} }()
	go func() { carts.RunJanitor(ctx, time.Hour); background <- struct{}{} }()

	auth := handlers.Auth{
		Customers:  s.Customers,
		Tokens:     s.RefreshTokens,
		Secret:     env.JWTSecret,
		AccessTTL:  env.AccessTokenTTL,
		RefreshTTL: env.RefreshTokenTTL,
		IsAdmin:    env.IsAdminEmail,
	}
	uploads := handlers.Uploads{Root: env.UploadDir}
	receiptOpts := receipt.Options{StoreName: "Pure Platter", Currency: env.Currency}

	r := gin.Default()
	r.Use(middleware.CORS(env.CORSOrigins))
	r.Use(middleware.PrometheusMiddleware())
	r.Static("/uploads", env.UploadDir)

	r.GET("/health", handlers.Health(checks))
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.GET("/products", handlers.GetProducts(s.Products))
	r.GET("/products/:id", handlers.GetProduct(s.Products))
	r.GET("/reviews", handlers.GetReviews(s.Reviews))
	r.POST("/contact", handlers.SubmitContact(outbox))
	r.POST("/quote", handlers.SubmitQuote(outbox))

	r.POST("/auth/register", handlers.Register(auth, carts))
	r.POST("/auth/login", handlers.Login(auth, carts))
	r.POST("/auth/refresh", handlers.Refresh(auth))
	r.POST("/auth/logout", handlers.Logout(auth))
	r.GET("/auth/me", middleware.UserAuth(env.JWTSecret), handlers.GetMe(auth))
	r.POST("/admin/login", handlers.AdminLogin(auth))

	cartGroup := r.Group("/cart")
	cartGroup.Use(middleware.OptionalUserAuth(env.JWTSecret))
	{
		cartGroup.GET("", handlers.GetCart(carts))
		cartGroup.POST("/items", handlers.AddCartItem(carts, s.Products))
		cartGroup.PATCH("/items/:productId", handlers.UpdateCartItem(carts))
		cartGroup.DELETE("/items/:productId", handlers.RemoveCartItem(carts))
		cartGroup.DELETE("", handlers.ClearCart(carts))
		cartGroup.POST("/sync", middleware.UserAuth(env.JWTSecret), handlers.SyncCart(carts))
	}

	authed := r.Group("/")
	authed.Use(middleware.UserAuth(env.JWTSecret))
	{
		authed.GET("/user/addresses", handlers.GetUserAddresses(s.Customers))
		authed.POST("/user/addresses", handlers.CreateUserAddress(s.Customers))
		authed.PUT("/user/addresses/:id", handlers.UpdateUserAddress(s.Customers))
		authed.DELETE("/user/addresses/:id", handlers.DeleteUserAddress(s.Customers))

		authed.POST("/checkout/initialize", handlers.InitializeCheckout(paystack, carts))
		authed.POST("/orders", handlers.CreateOrder(orderService, carts, s.Products))
		authed.GET("/orders", handlers.GetOrders(orderService))
		authed.GET("/orders/:id", handlers.GetOrder(orderService))
		authed.GET("/orders/:id/receipt", handlers.GetOrderReceipt(orderService, deliveryService, receiptOpts))

		authed.POST("/delivery/generate-code", handlers.GenerateDeliveryCode(deliveryService))
		authed.POST("/delivery/confirm", handlers.ConfirmDelivery(deliveryService))
		authed.GET("/delivery/:orderId/qr", handlers.GetDeliveryQR(deliveryService))

		authed.POST("/reviews", handlers.CreateReview(s))
		authed.POST("/notify-admin-order", handlers.NotifyAdminOrder(orderService, outbox))
	}

	admin := r.Group("/admin/api")
	admin.Use(middleware.AdminAuth(env.JWTSecret, env.IsAdminEmail))
	{
		admin.GET("/me", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"ok": true, "email": c.GetString("email")})
		})

		admin.GET("/orders", handlers.AdminListOrders(orderService))
		admin.PATCH("/orders/:id", handlers.AdminUpdateOrder(orderService))

		admin.GET("/customers", handlers.AdminListCustomers(orderService))
		admin.PATCH("/customers/:id", handlers.AdminUpdateCustomer(s.Customers))

		admin.GET("/products", handlers.GetAllProducts(s.Products))
		admin.POST("/products", handlers.CreateProduct(s.Products, uploads))
		admin.PUT("/products/:id", handlers.UpdateProduct(s.Products, uploads))
		admin.DELETE("/products/:id", handlers.DeleteProduct(s.Products, uploads))

		admin.GET("/outbox", handlers.AdminListOutbox(s.Outbox))
		admin.POST("/outbox/:id/retry", handlers.AdminRetryOutbox(s.Outbox))
	}

	server := &http.Server{
		Addr:              ":" + env.Port,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		log.Printf("[MAIN] [INFO] listening on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server error: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("[MAIN] [INFO] shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("[MAIN] [ERROR] graceful shutdown failed: %v", err)
	}
	for i := 0; i < cap(background); i++ {
		select {
		case <-background:
		case <-shutdownCtx.Done():
			log.Println("[MAIN] [WARN] background workers did not stop in time")
			return
		}
	}
	log.Println("[MAIN] [INFO] server stopped cleanly")
}

// newSender picks the HTTP email API, then SMTP, then the log sender.
func newSender(env config.Config) mailer.Sender {
	switch {
	case env.ResendAPIKey != "":
		return mailer.NewResendSender(env.ResendBaseURL, env.ResendAPIKey)
	case env.SMTPHost != "":
		return mailer.NewSMTPSender(env.SMTPHost, env.SMTPPort, env.SMTPUser, env.SMTPPassword)
	default:
		log.Println("[MAIN] [WARN] no mail provider configured, emails are only logged")
		return mailer.LogSender{}
	}
}
