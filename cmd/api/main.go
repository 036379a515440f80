package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/agroconnect/agroconnect-backend/api/routes"
	"github.com/agroconnect/agroconnect-backend/internal/auth"
	"github.com/agroconnect/agroconnect-backend/internal/cart"
	"github.com/agroconnect/agroconnect-backend/internal/chat"
	"github.com/agroconnect/agroconnect-backend/internal/checkout"
	"github.com/agroconnect/agroconnect-backend/internal/dashboard"
	"github.com/agroconnect/agroconnect-backend/internal/feedback"
	"github.com/agroconnect/agroconnect-backend/internal/news"
	"github.com/agroconnect/agroconnect-backend/internal/orders"
	"github.com/agroconnect/agroconnect-backend/internal/products"
	"github.com/agroconnect/agroconnect-backend/internal/users"
	"github.com/agroconnect/agroconnect-backend/pkg/auth/session"
	"github.com/agroconnect/agroconnect-backend/pkg/config"
	"github.com/agroconnect/agroconnect-backend/pkg/db"
	"github.com/agroconnect/agroconnect-backend/pkg/logger"
	"github.com/agroconnect/agroconnect-backend/pkg/metrics"
	"github.com/agroconnect/agroconnect-backend/pkg/migrate"
	"github.com/agroconnect/agroconnect-backend/pkg/redis"
	"github.com/agroconnect/agroconnect-backend/pkg/stripe"
	"github.com/agroconnect/agroconnect-backend/pkg/weather"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		logg.Error(context.Background(), "failed to create session manager", err)
		os.Exit(1)
	}

	stripeClient, err := stripe.NewClient(context.Background(), cfg.Stripe, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create stripe client", err)
		os.Exit(1)
	}

	weatherOpts := []weather.Option{}
	if cfg.Weather.BaseURL != "" {
		weatherOpts = append(weatherOpts, weather.WithBaseURL(cfg.Weather.BaseURL))
	}
	weatherClient, err := weather.NewClient(cfg.Weather.APIKey, weatherOpts...)
	if err != nil {
		logg.Error(context.Background(), "failed to create weather client", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	chatMetrics := metrics.NewChatMetrics(registry)
	checkoutMetrics := metrics.NewCheckoutMetrics(registry)

	gormDB := dbClient.DB()

	authService, err := auth.NewService(auth.ServiceParams{
		UserRepo:       users.NewRepository(gormDB),
		SessionManager: sessionManager,
		JWTConfig:      cfg.JWT,
		PasswordConfig: cfg.Password,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create auth service", err)
		os.Exit(1)
	}

	productsRepo := products.NewRepository(gormDB)
	productService, err := products.NewService(productsRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create product service", err)
		os.Exit(1)
	}

	cartStore, err := cart.NewStore(redisClient, cfg.Cart, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create cart store", err)
		os.Exit(1)
	}

	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	hub := chat.NewHub(logg, chatMetrics)
	go hub.Run(runCtx)

	chatRepo := chat.NewRepository(gormDB)
	chatService := chat.NewService(chat.ServiceParams{
		Repo:     chatRepo,
		Hub:      hub,
		Presence: chat.NewPresence(redisClient, cfg.Chat.PresenceTTL),
		Logger:   logg,
		Metrics:  chatMetrics,
	})

	checkoutService := checkout.NewService(checkout.ServiceParams{
		Cart:    cartStore,
		Rooms:   chatService,
		Logger:  logg,
		Metrics: checkoutMetrics,
	})

	orderService := orders.NewService(orders.ServiceParams{
		Repo:     orders.NewRepository(gormDB, productsRepo),
		Products: productsRepo,
		Payments: stripeClient,
		Logger:   logg,
	})

	feedbackService := feedback.NewService(feedback.NewRepository(gormDB), productsRepo)
	newsService := news.NewService(news.NewRepository(gormDB))
	dashboardService := dashboard.NewService(dashboard.NewRepository(gormDB), chatRepo)

	handler := routes.NewRouter(routes.Deps{
		Config:         cfg,
		Logger:         logg,
		DB:             dbClient,
		Redis:          redisClient,
		SessionManager: sessionManager,
		Metrics:        registry,

		AuthService:      authService,
		ProductService:   productService,
		ProductRepo:      productsRepo,
		CartStore:        cartStore,
		CheckoutService:  checkoutService,
		OrderService:     orderService,
		ChatService:      chatService,
		FeedbackService:  feedbackService,
		NewsService:      newsService,
		DashboardService: dashboardService,
		WeatherClient:    weatherClient,
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port

	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr:    addr,
		Handler: handler,
	}

	go func() {
		<-runCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(shutdownCtx, "server shutdown failed", err)
		}
	}()

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
