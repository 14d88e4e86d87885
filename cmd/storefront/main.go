package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/aaravmahajanofficial/storefront/docs"
	"github.com/aaravmahajanofficial/storefront/internal/api/handlers"
	"github.com/aaravmahajanofficial/storefront/internal/api/middleware"
	"github.com/aaravmahajanofficial/storefront/internal/cache"
	"github.com/aaravmahajanofficial/storefront/internal/config"
	"github.com/aaravmahajanofficial/storefront/internal/health"
	"github.com/aaravmahajanofficial/storefront/internal/metrics"
	"github.com/aaravmahajanofficial/storefront/internal/pricing"
	repository "github.com/aaravmahajanofficial/storefront/internal/repositories"
	service "github.com/aaravmahajanofficial/storefront/internal/services"
	"github.com/aaravmahajanofficial/storefront/internal/telemetry"
	"github.com/aaravmahajanofficial/storefront/pkg/gateway"
	"github.com/aaravmahajanofficial/storefront/pkg/sendgrid"
	httpSwagger "github.com/swaggo/http-swagger"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

//	@title						Storefront API
//	@version					1.0
//	@description				Catalogue, cart, coupons, checkout and payment reconciliation.
//	@BasePath					/api/v1
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
func main() {
	// Logger setup
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// Load config
	cfg := config.MustLoad()

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	shutdownTracing, err := telemetry.Setup(ctx, cfg.Otel, health.Version)
	if err != nil {
		slog.Error("Error setting up tracing", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Database setup
	repos, err := repository.New(cfg)
	if err != nil {
		slog.Error("Error accessing the database", slog.String("error", err.Error()))
		os.Exit(1)
	}

	defer func() {
		if err := repos.Close(); err != nil {
			slog.Error("Error closing database connection", slog.String("error", err.Error()))
		} else {
			slog.Info("Database connection closed")
		}
	}()

	// Redis setup
	redisClient, err := repository.NewRedisClient(cfg)
	if err != nil {
		slog.Error("Error accessing the redis instance", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer redisClient.Close()

	shipping, tax, err := pricing.PoliciesFromConfig(cfg.Pricing)
	if err != nil {
		slog.Error("Invalid pricing configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	providers, err := paymentProviders(cfg)
	if err != nil {
		slog.Error("Invalid payment gateway configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if _, ok := providers[cfg.Gateway.Provider]; !ok {
		slog.Warn("Default payment gateway is not configured, only cash on delivery will succeed",
			slog.String("provider", cfg.Gateway.Provider))
	}

	jwtKey := []byte(cfg.Security.JWTKey)
	engine := pricing.NewEngine(shipping, tax)
	redisCache := cache.NewRedisCache(redisClient, &cfg.Cache)
	rateLimit := repository.NewRateLimitRepo(redisClient, cfg.RateConfig)
	tokens := repository.NewTokenRepo(redisClient)
	sendGridClient := sendgrid.NewEmailService(cfg.SendGrid.APIKey, cfg.SendGrid.FromEmail, cfg.SendGrid.FromName)

	userService := service.NewUserService(repos.User, repos.Address, rateLimit, tokens, cfg.Security)
	userHandler := handlers.NewUserHandler(userService, cfg.Security)
	productService := service.NewProductService(repos.Product, redisCache, cfg.Cache.DefaultTTL, cfg.Pricing.Currency)
	productHandler := handlers.NewProductHandler(productService)
	cartService := service.NewCartService(repos.Cart, repos.Product, cfg.Pricing.Currency)
	cartHandler := handlers.NewCartHandler(cartService)
	couponService := service.NewCouponService(repos.Coupon, repos.Cart, engine, redisCache, cfg.Cache.CouponTTL, cfg.Pricing.Currency)
	couponHandler := handlers.NewCouponHandler(couponService)
	notificationService := service.NewNotificationService(repos.Notification, repos.User, sendGridClient)
	notificationHandler := handlers.NewNotificationHandler(notificationService)
	orderService := service.NewOrderService(repos.Order, repos.Cart, repos.Product, repos.Address, couponService, notificationService, engine)
	orderHandler := handlers.NewOrderHandler(orderService)
	paymentService := service.NewPaymentService(repos.Order, repos.Payment, providers, cfg.Gateway.MaxPaymentAttempts)
	paymentHandler := handlers.NewPaymentHandler(paymentService)
	authMiddleware := middleware.NewAuthMiddleware(jwtKey)

	gatewayList := make([]gateway.Provider, 0, len(providers))
	for _, p := range providers {
		gatewayList = append(gatewayList, p)
	}

	healthHandler, err := health.NewHealthHandler(cfg, gatewayList...)
	if err != nil {
		slog.Error("Error setting up health checks", slog.String("error", err.Error()))
		os.Exit(1)
	}

	refundWorker := service.NewRefundWorker(repos.Order, providers, cfg.RefundWorker, logger)
	workerDone := make(chan struct{})

	go func() {
		defer close(workerDone)
		refundWorker.Run(ctx)
	}()

	slog.Info("storage initialized", slog.String("env", cfg.Env), slog.String("version", health.Version))

	// Setup router
	routerMux := http.NewServeMux()
	routerMux.Handle("GET /health", healthHandler.Handler())
	routerMux.Handle("GET /metrics", metrics.Handler())
	routerMux.Handle("GET /swagger/", httpSwagger.WrapHandler)

	routerMux.HandleFunc("POST /api/v1/auth/register", userHandler.Register())
	routerMux.HandleFunc("POST /api/v1/auth/login", userHandler.Login())
	routerMux.HandleFunc("POST /api/v1/auth/refresh-token", userHandler.RefreshToken())
	routerMux.HandleFunc("POST /api/v1/auth/logout", userHandler.Logout())
	routerMux.HandleFunc("GET /api/v1/users/profile", authMiddleware.Authenticate(userHandler.Profile()))
	routerMux.HandleFunc("POST /api/v1/users/addresses", authMiddleware.Authenticate(userHandler.AddAddress()))
	routerMux.HandleFunc("GET /api/v1/users/addresses", authMiddleware.Authenticate(userHandler.ListAddresses()))

	routerMux.HandleFunc("GET /api/v1/products", productHandler.ListProducts())
	routerMux.HandleFunc("GET /api/v1/products/{id}", productHandler.GetProduct())

	routerMux.HandleFunc("GET /api/v1/cart", authMiddleware.Authenticate(cartHandler.GetCart()))
	routerMux.HandleFunc("POST /api/v1/cart/items", authMiddleware.Authenticate(cartHandler.AddItem()))
	routerMux.HandleFunc("PUT /api/v1/cart/items/{productId}", authMiddleware.Authenticate(cartHandler.UpdateItem()))
	routerMux.HandleFunc("DELETE /api/v1/cart/items/{productId}", authMiddleware.Authenticate(cartHandler.RemoveItem()))
	routerMux.HandleFunc("DELETE /api/v1/cart/clear", authMiddleware.Authenticate(cartHandler.ClearCart()))

	routerMux.HandleFunc("POST /api/v1/coupons/validate", authMiddleware.Authenticate(couponHandler.ValidateCoupon()))
	routerMux.HandleFunc("GET /api/v1/coupons/available", authMiddleware.Authenticate(couponHandler.AvailableCoupons()))

	routerMux.HandleFunc("POST /api/v1/orders", authMiddleware.Authenticate(orderHandler.CreateOrder()))
	routerMux.HandleFunc("GET /api/v1/orders", authMiddleware.Authenticate(orderHandler.ListOrders()))
	routerMux.HandleFunc("GET /api/v1/orders/{id}", authMiddleware.Authenticate(orderHandler.GetOrder()))
	routerMux.HandleFunc("PUT /api/v1/orders/{id}/cancel", authMiddleware.Authenticate(orderHandler.CancelOrder()))

	routerMux.HandleFunc("POST /api/v1/payment/create-order", authMiddleware.Authenticate(paymentHandler.CreatePaymentOrder()))
	routerMux.HandleFunc("POST /api/v1/payment/verify", authMiddleware.Authenticate(paymentHandler.VerifyPayment()))
	routerMux.HandleFunc("POST /api/v1/payment/failure", authMiddleware.Authenticate(paymentHandler.PaymentFailure()))
	routerMux.HandleFunc("POST /api/v1/payment/webhook/{provider}", paymentHandler.Webhook())

	routerMux.HandleFunc("POST /api/v1/admin/coupons", authMiddleware.Authenticate(authMiddleware.RequireAdmin(couponHandler.CreateCoupon())))
	routerMux.HandleFunc("POST /api/v1/admin/products", authMiddleware.Authenticate(authMiddleware.RequireAdmin(productHandler.CreateProduct())))
	routerMux.HandleFunc("PATCH /api/v1/admin/orders/{id}/status", authMiddleware.Authenticate(authMiddleware.RequireAdmin(orderHandler.UpdateOrderStatus())))
	routerMux.HandleFunc("POST /api/v1/admin/notifications/email", authMiddleware.Authenticate(authMiddleware.RequireAdmin(notificationHandler.SendEmail())))

	// Middleware chaining
	var handler http.Handler = routerMux
	handler = metrics.Middleware(handler)
	handler = middleware.Logging(handler)
	handler = otelhttp.NewHandler(handler, "storefront")

	// Setup http server
	server := http.Server{
		Addr:         cfg.Addr,
		Handler:      handler,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	slog.Info("Server is starting...", slog.String("address", cfg.Addr))

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Failed to start server", slog.String("error", err.Error()))
			done <- syscall.SIGTERM
		}
	}()

	<-done

	slog.Warn("Shutdown signal received. Preparing to stop the server...")

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server shutdown encountered an issue", slog.String("error", err.Error()))
	} else {
		slog.Info("Server shut down gracefully. All connections closed.")
	}

	stop()
	<-workerDone

	if err := shutdownTracing(shutdownCtx); err != nil {
		slog.Error("Error flushing traces", slog.String("error", err.Error()))
	}
}

// paymentProviders builds a provider for every gateway with credentials set.
func paymentProviders(cfg *config.Config) (map[string]gateway.Provider, error) {
	providers := make(map[string]gateway.Provider)

	if cfg.Razorpay.KeyID != "" {
		providers[gateway.RazorpayName] = gateway.NewRazorpay(gateway.RazorpayConfig{
			KeyID:              cfg.Razorpay.KeyID,
			KeySecret:          cfg.Razorpay.KeySecret,
			WebhookSecret:      cfg.Razorpay.WebhookSecret,
			BaseURL:            cfg.Razorpay.BaseURL,
			Timeout:            cfg.Gateway.Timeout,
			BreakerFailures:    cfg.Gateway.BreakerFailures,
			BreakerOpenTimeout: cfg.Gateway.BreakerOpenTimeout,
		})
	}

	if cfg.Stripe.APIKey != "" {
		p, err := gateway.NewStripe(gateway.StripeConfig{
			APIKey:         cfg.Stripe.APIKey,
			PublishableKey: cfg.Stripe.PublishableKey,
			WebhookSecret:  cfg.Stripe.WebhookSecret,
		})
		if err != nil {
			return nil, err
		}

		providers[gateway.StripeName] = p
	}

	return providers, nil
}
