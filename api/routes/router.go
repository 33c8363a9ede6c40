package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/vistore-backend/api/controllers"
	analyticscontrollers "github.com/angelmondragon/vistore-backend/api/controllers/analytics"
	cartcontrollers "github.com/angelmondragon/vistore-backend/api/controllers/cart"
	ordercontrollers "github.com/angelmondragon/vistore-backend/api/controllers/orders"
	"github.com/angelmondragon/vistore-backend/api/middleware"
	"github.com/angelmondragon/vistore-backend/internal/analytics"
	"github.com/angelmondragon/vistore-backend/internal/auth"
	"github.com/angelmondragon/vistore-backend/internal/catalog"
	"github.com/angelmondragon/vistore-backend/internal/orders"
	product "github.com/angelmondragon/vistore-backend/internal/products"
	"github.com/angelmondragon/vistore-backend/internal/settings"
	"github.com/angelmondragon/vistore-backend/internal/users"
	"github.com/angelmondragon/vistore-backend/pkg/auth/session"
	"github.com/angelmondragon/vistore-backend/pkg/config"
	"github.com/angelmondragon/vistore-backend/pkg/db/models"
	"github.com/angelmondragon/vistore-backend/pkg/enums"
	"github.com/angelmondragon/vistore-backend/pkg/logger"
	"github.com/angelmondragon/vistore-backend/pkg/metrics"
	pkgredis "github.com/angelmondragon/vistore-backend/pkg/redis"
)

// LiveCatalog is the storefront product list the read endpoints serve.
type LiveCatalog interface {
	Products() []models.Product
	Product(id string) (models.Product, bool)
	IsLive() bool
}

// Mirror is the live subscription surface the stream endpoints use.
type Mirror interface {
	SubscribeProducts(ctx context.Context, fn func([]models.Product)) (catalog.Unsubscribe, error)
	SubscribeOrders(ctx context.Context, fn func([]models.Order)) (catalog.Unsubscribe, error)
}

type rateStore interface {
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}

// Params groups everything the router wires into handlers. Nil stores turn
// off the middleware that needs them.
type Params struct {
	Config   *config.Config
	Logger   *logger.Logger
	Gatherer prometheus.Gatherer
	HTTP     *metrics.HTTPMetrics

	Readiness map[string]controllers.Pinger

	Sessions         session.AccessSessionChecker
	RateStore        rateStore
	IdempotencyStore pkgredis.IdempotencyStore

	Catalog   LiveCatalog
	Mirror    Mirror
	Carts     cartcontrollers.StoreOpener
	Products  product.Service
	Orders    orders.Service
	Settings  settings.Service
	Analytics analytics.Service
	Auth      auth.Service
	Users     users.Service
}

func NewRouter(p Params) http.Handler {
	cfg := p.Config
	logg := p.Logger

	r := chi.NewRouter()
	r.Use(
		chimiddleware.RealIP,
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.Metrics(p.HTTP),
		middleware.CORS(cfg.CORS),
	)

	loginLimit := middleware.RateLimit(middleware.NewRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		middleware.PerIP(cfg.AuthRateLimit.LoginIPLimit),
		middleware.PerEmail(cfg.AuthRateLimit.LoginEmailLimit),
	), p.RateStore, logg)
	registerLimit := middleware.RateLimit(middleware.NewRateLimitPolicy(
		"register",
		cfg.AuthRateLimit.RegisterWindow,
		middleware.PerIP(cfg.AuthRateLimit.RegisterIPLimit),
		middleware.PerEmail(cfg.AuthRateLimit.RegisterEmailLimit),
	), p.RateStore, logg)
	idempotent := middleware.Idempotency(p.IdempotencyStore, logg)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, p.Catalog, p.Readiness))
	})

	if cfg.Metrics.Enabled && p.Gatherer != nil {
		r.Handle(cfg.Metrics.Path, promhttp.HandlerFor(p.Gatherer, promhttp.HandlerOpts{}))
	}

	cartDeps := cartcontrollers.Deps{
		Stores:   p.Carts,
		Products: p.Catalog,
		Shipping: p.Settings,
		Logger:   logg,
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.With(loginLimit).Post("/login", controllers.AuthLogin(p.Auth, logg))
			r.With(registerLimit, idempotent).Post("/register", controllers.AuthRegister(p.Auth, logg))
			r.Post("/refresh", controllers.AuthRefresh(p.Auth, logg))
			r.With(middleware.Auth(cfg.JWT, p.Sessions, logg)).Post("/logout", controllers.AuthLogout(p.Auth, logg))
		})

		r.With(middleware.Auth(cfg.JWT, p.Sessions, logg)).Get("/me", controllers.Profile(p.Users, logg))

		r.Route("/products", func(r chi.Router) {
			r.Get("/", controllers.ProductList(p.Catalog, logg))
			r.Get("/sections", controllers.ProductSections(p.Catalog))
			r.Get("/stream", controllers.ProductStream(p.Mirror, logg))
			r.Get("/{productId}", controllers.ProductDetail(p.Catalog, logg))
		})

		r.Get("/settings", controllers.SettingsGet(p.Settings, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.OptionalAuth(cfg.JWT, p.Sessions, logg))
			r.Use(middleware.CartSession(cfg.Cart, cfg.App.IsProd(), logg))

			r.Route("/cart", func(r chi.Router) {
				r.Get("/", cartcontrollers.CartFetch(cartDeps))
				r.Delete("/", cartcontrollers.CartClear(cartDeps))
				r.Post("/items", cartcontrollers.CartAdd(cartDeps))
				r.Patch("/items/{productId}", cartcontrollers.CartUpdateQuantity(cartDeps))
				r.Delete("/items/{productId}", cartcontrollers.CartRemove(cartDeps))
			})
			r.Route("/wishlist", func(r chi.Router) {
				r.Get("/", cartcontrollers.WishlistFetch(cartDeps))
				r.Post("/toggle", cartcontrollers.WishlistToggle(cartDeps))
			})
			r.With(idempotent).Post("/orders/buy-now", ordercontrollers.BuyNow(p.Orders, logg))
		})
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, p.Sessions, logg))
		r.Use(middleware.RequireRole(logg, enums.UserRoleAdmin))

		r.Route("/products", func(r chi.Router) {
			r.With(idempotent).Post("/", controllers.AdminProductCreate(p.Products, logg))
			r.With(idempotent).Post("/seed", controllers.AdminProductSeed(p.Products, logg))
			r.Patch("/{productId}", controllers.AdminProductUpdate(p.Products, logg))
			r.Delete("/{productId}", controllers.AdminProductDelete(p.Products, logg))
		})
		r.Route("/orders", func(r chi.Router) {
			r.Get("/", ordercontrollers.AdminList(p.Orders, logg))
			r.Get("/stream", controllers.AdminOrderStream(p.Mirror, logg))
			r.Get("/{orderId}", ordercontrollers.AdminDetail(p.Orders, logg))
			r.Patch("/{orderId}/status", ordercontrollers.AdminUpdateStatus(p.Orders, logg))
		})
		r.Get("/analytics", analyticscontrollers.AdminDashboard(p.Analytics, logg))
		r.Put("/settings", controllers.AdminSettingsSave(p.Settings, logg))
	})

	return r
}
