package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/agroconnect/agroconnect-backend/api/controllers"
	"github.com/agroconnect/agroconnect-backend/api/middleware"
	authsvc "github.com/agroconnect/agroconnect-backend/internal/auth"
	cartsvc "github.com/agroconnect/agroconnect-backend/internal/cart"
	chatsvc "github.com/agroconnect/agroconnect-backend/internal/chat"
	checkoutsvc "github.com/agroconnect/agroconnect-backend/internal/checkout"
	dashboardsvc "github.com/agroconnect/agroconnect-backend/internal/dashboard"
	feedbacksvc "github.com/agroconnect/agroconnect-backend/internal/feedback"
	newssvc "github.com/agroconnect/agroconnect-backend/internal/news"
	ordersvc "github.com/agroconnect/agroconnect-backend/internal/orders"
	productsvc "github.com/agroconnect/agroconnect-backend/internal/products"
	"github.com/agroconnect/agroconnect-backend/pkg/auth/session"
	"github.com/agroconnect/agroconnect-backend/pkg/config"
	"github.com/agroconnect/agroconnect-backend/pkg/db"
	"github.com/agroconnect/agroconnect-backend/pkg/enums"
	"github.com/agroconnect/agroconnect-backend/pkg/logger"
	"github.com/agroconnect/agroconnect-backend/pkg/redis"
	"github.com/agroconnect/agroconnect-backend/pkg/weather"
)

// Deps carries everything the router wires into handlers.
type Deps struct {
	Config         *config.Config
	Logger         *logger.Logger
	DB             db.Pinger
	Redis          *redis.Client
	SessionManager *session.Manager
	Metrics        prometheus.Gatherer

	AuthService      authsvc.Service
	ProductService   productsvc.Service
	ProductRepo      *productsvc.Repository
	CartStore        *cartsvc.Store
	CheckoutService  checkoutsvc.Service
	OrderService     ordersvc.Service
	ChatService      chatsvc.Service
	FeedbackService  feedbacksvc.Service
	NewsService      newssvc.Service
	DashboardService dashboardsvc.Service
	WeatherClient    *weather.Client
}

func NewRouter(deps Deps) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginEmailLimit,
	)
	registerPolicy := middleware.NewAuthRateLimitPolicy(
		"register",
		cfg.AuthRateLimit.RegisterWindow,
		cfg.AuthRateLimit.RegisterIPLimit,
		cfg.AuthRateLimit.RegisterEmailLimit,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, deps.DB, deps.Redis, logg))
	})

	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(deps.Metrics, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.With(middleware.AuthRateLimit(loginPolicy, deps.Redis, logg)).Post("/login", controllers.AuthLogin(deps.AuthService, logg))
		r.With(middleware.AuthRateLimit(registerPolicy, deps.Redis, logg)).Post("/register", controllers.AuthRegister(deps.AuthService, logg))
		r.Post("/refresh", controllers.AuthRefresh(deps.AuthService, logg))
	})

	// Public catalogue, feed and weather surfaces.
	r.Group(func(r chi.Router) {
		r.Get("/api/v1/products", controllers.ListProducts(deps.ProductService, logg))
		r.Get("/api/v1/products/{productID}", controllers.GetProduct(deps.ProductService, logg))
		r.Get("/api/v1/products/{productID}/feedback", controllers.ListProductFeedback(deps.FeedbackService, logg))
		r.Get("/api/v1/news", controllers.ListNews(deps.NewsService, logg))
		r.Get("/api/v1/weather/current", controllers.CurrentWeather(deps.WeatherClient, logg))
		r.Get("/api/v1/weather/forecast", controllers.WeatherForecast(deps.WeatherClient, logg))
	})

	// Anonymous carts are addressed by the session header alone; the same
	// routes serve logged-in users through the auth'd group below.
	r.Route("/api/v1/cart", func(r chi.Router) {
		r.Use(middleware.OptionalAuth(cfg.JWT, deps.SessionManager, logg))
		r.Use(middleware.CartSession())
		r.Get("/", controllers.GetCart(deps.CartStore, logg))
		r.Post("/items", controllers.AddCartItem(deps.CartStore, deps.ProductRepo, logg))
		r.Put("/items/{productID}", controllers.SetCartQuantity(deps.CartStore, logg))
		r.Delete("/items/{productID}", controllers.RemoveCartItem(deps.CartStore, logg))
		r.Delete("/", controllers.ClearCart(deps.CartStore, logg))
	})

	// The socket authenticates through its token query parameter, so it
	// sits outside the bearer-auth group.
	r.Get("/ws/chat/{roomID}", controllers.ChatSocket(deps.ChatService, cfg.JWT, deps.SessionManager, cfg.Chat, logg))

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, deps.SessionManager, logg))
		r.Use(middleware.CartSession())
		r.Use(middleware.Idempotency(deps.Redis, logg))

		r.Route("/v1/auth", func(r chi.Router) {
			r.Post("/logout", controllers.AuthLogout(deps.AuthService, logg))
			r.Get("/me", controllers.AuthMe(deps.AuthService, logg))
			r.Patch("/me", controllers.AuthUpdateProfile(deps.AuthService, logg))
		})

		r.Route("/v1/products", func(r chi.Router) {
			r.Use(middleware.RequireRole(enums.UserRoleFarmer.String(), logg))
			r.Post("/", controllers.CreateProduct(deps.ProductService, logg))
			r.Patch("/{productID}", controllers.UpdateProduct(deps.ProductService, logg))
			r.Delete("/{productID}", controllers.DeleteProduct(deps.ProductService, logg))
		})

		r.Post("/v1/cart/migrate", controllers.MigrateCart(deps.CartStore, logg))
		r.Post("/v1/checkout", controllers.Checkout(deps.CheckoutService, logg))

		r.Route("/v1/orders", func(r chi.Router) {
			r.Post("/", controllers.CreateOrder(deps.OrderService, logg))
			r.Get("/", controllers.ListOrders(deps.OrderService, logg))
			r.Get("/{orderID}", controllers.GetOrder(deps.OrderService, logg))
			r.Post("/{orderID}/payment-intent", controllers.CreateOrderPaymentIntent(deps.OrderService, logg))
			r.Post("/{orderID}/confirm-payment", controllers.ConfirmOrderPayment(deps.OrderService, logg))
			r.With(middleware.RequireRole(enums.UserRoleFarmer.String(), logg)).Post("/{orderID}/ship", controllers.ShipOrder(deps.OrderService, logg))
			r.Post("/{orderID}/receipt", controllers.ConfirmOrderReceipt(deps.OrderService, logg))
		})

		r.Route("/v1/chat", func(r chi.Router) {
			r.Get("/rooms", controllers.ListChatRooms(deps.ChatService, logg))
			r.Post("/rooms", controllers.CreateChatRoom(deps.ChatService, logg))
			r.Get("/rooms/{roomID}", controllers.GetChatRoom(deps.ChatService, logg))
			r.Get("/rooms/{roomID}/messages", controllers.ChatHistory(deps.ChatService, logg))
			r.Post("/rooms/{roomID}/messages", controllers.SendChatMessage(deps.ChatService, logg))
			r.Post("/rooms/{roomID}/read", controllers.MarkChatRead(deps.ChatService, logg))
			r.Patch("/rooms/{roomID}/order-status", controllers.UpdateRoomOrderStatus(deps.ChatService, logg))
			r.Get("/unread", controllers.ChatUnreadCount(deps.ChatService, logg))
		})

		r.Post("/v1/feedback", controllers.SubmitFeedback(deps.FeedbackService, logg))

		r.With(middleware.RequireRole(enums.UserRoleFarmer.String(), logg)).Post("/v1/news", controllers.CreateNews(deps.NewsService, logg))
		r.With(middleware.RequireRole(enums.UserRoleFarmer.String(), logg)).Get("/v1/dashboard", controllers.FarmerDashboard(deps.DashboardService, logg))
	})

	return r
}
