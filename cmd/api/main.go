package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/angelmondragon/vistore-backend/api/controllers"
	"github.com/angelmondragon/vistore-backend/api/routes"
	"github.com/angelmondragon/vistore-backend/internal/analytics"
	"github.com/angelmondragon/vistore-backend/internal/auth"
	"github.com/angelmondragon/vistore-backend/internal/cart"
	"github.com/angelmondragon/vistore-backend/internal/catalog"
	"github.com/angelmondragon/vistore-backend/internal/orders"
	product "github.com/angelmondragon/vistore-backend/internal/products"
	"github.com/angelmondragon/vistore-backend/internal/settings"
	"github.com/angelmondragon/vistore-backend/internal/users"
	"github.com/angelmondragon/vistore-backend/pkg/auth/session"
	"github.com/angelmondragon/vistore-backend/pkg/changefeed"
	"github.com/angelmondragon/vistore-backend/pkg/config"
	"github.com/angelmondragon/vistore-backend/pkg/db"
	"github.com/angelmondragon/vistore-backend/pkg/logger"
	"github.com/angelmondragon/vistore-backend/pkg/metrics"
	"github.com/angelmondragon/vistore-backend/pkg/migrate"
	"github.com/angelmondragon/vistore-backend/pkg/pubsub"
	"github.com/angelmondragon/vistore-backend/pkg/redis"
)

const readHeaderTimeout = 10 * time.Second

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
		Env:         cfg.App.Env,
		WarnStack:   cfg.App.LogWarnStack,
		Format:      cfg.App.LogFormat,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logg); err != nil {
		logg.Error(context.Background(), "api stopped unexpectedly", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logg *logger.Logger) (err error) {
	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, dbClient.Close()) }()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		return err
	}

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, redisClient.Close()) }()

	deps := changefeed.Deps{Redis: redisClient}
	if strings.EqualFold(strings.TrimSpace(cfg.ChangeFeed.Driver), config.ChangeFeedGCP) {
		var psClient *pubsub.Client
		psClient, err = pubsub.NewClient(ctx, cfg.GCP, cfg.PubSub, logg)
		if err != nil {
			return err
		}
		defer func() { err = multierr.Append(err, psClient.Close()) }()
		deps.PubSub = psClient
	}
	feed, err := changefeed.Open(cfg, deps, logg)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, feed.Close()) }()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	conn := dbClient.DB()
	productRepo := product.NewRepository(conn)
	orderRepo := orders.NewRepository(conn)
	userRepo := users.NewRepository(conn)

	mirror, err := catalog.NewMirror(catalog.Options{
		Feed:       feed,
		Products:   productRepo,
		Orders:     orderRepo,
		Logger:     logg,
		Metrics:    metrics.NewMirrorMetrics(reg),
		MinBackoff: cfg.ChangeFeed.MinReconnect,
		MaxBackoff: cfg.ChangeFeed.MaxReconnect,
	})
	if err != nil {
		return err
	}
	defer mirror.Close()
	live := catalog.NewLiveCatalog(mirror, product.DefaultProducts(), logg)

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		return err
	}
	authService, err := auth.NewService(auth.ServiceParams{
		UserRepo:         userRepo,
		SessionManager:   sessionManager,
		JWTConfig:        cfg.JWT,
		PasswordConfig:   cfg.Password,
		AllowAdminSignup: cfg.FeatureFlags.AdminSignup && !cfg.App.IsProd(),
		Logger:           logg,
	})
	if err != nil {
		return err
	}
	productService, err := product.NewService(product.ServiceParams{Repo: productRepo, Publisher: feed, Logger: logg})
	if err != nil {
		return err
	}
	orderService, err := orders.NewService(orders.ServiceParams{
		Repo:      orderRepo,
		Products:  live,
		Users:     userRepo,
		Publisher: feed,
		Logger:    logg,
	})
	if err != nil {
		return err
	}
	settingsService, err := settings.NewService(settings.NewRepository(conn), feed, logg)
	if err != nil {
		return err
	}
	analyticsService, err := analytics.NewService(mirror)
	if err != nil {
		return err
	}
	userService, err := users.NewService(userRepo)
	if err != nil {
		return err
	}

	slot, err := cart.NewSlot(cfg.Cart, redisClient, conn)
	if err != nil {
		return err
	}
	carts, err := cart.NewRegistry(cart.RegistryParams{
		Config:  cfg.Cart,
		Slot:    slot,
		Logger:  logg,
		Metrics: metrics.NewCartMetrics(reg),
	})
	if err != nil {
		return err
	}

	handler := routes.NewRouter(routes.Params{
		Config:   cfg,
		Logger:   logg,
		Gatherer: reg,
		HTTP:     metrics.NewHTTPMetrics(reg),
		Readiness: map[string]controllers.Pinger{
			"db":    dbClient,
			"redis": redisClient,
		},
		Sessions:         sessionManager,
		RateStore:        redisClient,
		IdempotencyStore: redisClient,
		Catalog:          live,
		Mirror:           mirror,
		Carts:            carts,
		Products:         productService,
		Orders:           orderService,
		Settings:         settingsService,
		Analytics:        analyticsService,
		Auth:             authService,
		Users:            userService,
	})

	addr := ":" + cfg.App.Port
	server := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: readHeaderTimeout,
		// event streams stay open, so there is no write deadline
		WriteTimeout: 0,
	}

	ctx = logg.WithFields(ctx, map[string]any{"env": cfg.App.Env, "addr": addr})
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logg.Info(gctx, "starting api server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error { return live.Run(gctx) })
	g.Go(func() error { return carts.Run(gctx) })
	g.Go(func() error {
		<-gctx.Done()
		logg.Info(context.WithoutCancel(gctx), "shutting down api server")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), cfg.App.ShutdownTimeout)
		defer cancel()
		return multierr.Combine(
			server.Shutdown(shutdownCtx),
			carts.Close(shutdownCtx),
		)
	})
	return g.Wait()
}
