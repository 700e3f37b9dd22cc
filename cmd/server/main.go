// Command server runs the sweet shop HTTP API.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/YAnkir9/SweetShop-TDD/internal/config"
	"github.com/YAnkir9/SweetShop-TDD/internal/database"
	"github.com/YAnkir9/SweetShop-TDD/internal/handler"
	"github.com/YAnkir9/SweetShop-TDD/internal/middleware"
	"github.com/YAnkir9/SweetShop-TDD/internal/obs"
	"github.com/YAnkir9/SweetShop-TDD/internal/queue"
	"github.com/YAnkir9/SweetShop-TDD/internal/repository"
	"github.com/YAnkir9/SweetShop-TDD/internal/router"
	"github.com/YAnkir9/SweetShop-TDD/internal/service"
	"github.com/YAnkir9/SweetShop-TDD/internal/utils"
)

func main() {
	_ = godotenv.Load() // .env is optional; real environment wins
	cfg := config.Load()
	obs.InitLogger(cfg.LogLevel)
	obs.Logger.Info("service_starting", "env", cfg.Env)

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		obs.Logger.Error("database open failed", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	if cfg.DBAutoMigrate {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		err := database.Migrate(ctx, db)
		cancel()
		if err != nil {
			obs.Logger.Error("schema migration failed", "error", err)
			os.Exit(1)
		}
	}

	rdb := config.NewRedisClient(config.LoadRedisConfig())
	var deny utils.Denylist = utils.NewMemoryDenylist()
	if rdb != nil {
		defer rdb.Close()
		deny = utils.NewRedisDenylist(rdb, "")
	}

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	// Left nil when events are off so services skip publishing.
	var events service.EventPublisher
	if cfg.EventsOn() {
		pub := queue.NewPublisher(cfg.RabbitURL)
		defer pub.Close()
		events = pub
		go func() {
			if err := queue.StartEventConsumer(ctx, cfg.RabbitURL, cfg.EventsLogDir); err != nil && !errors.Is(err, context.Canceled) {
				obs.Logger.Error("event consumer stopped", "error", err)
			}
		}()
	}

	store := repository.NewStore(db)
	auth := service.NewAuthService(service.AuthConfig{
		JWTSecret:      cfg.JWTSecret,
		AccessTTLMin:   cfg.AccessTTLMin,
		RefreshTTLDays: cfg.RefreshTTLDays,
		BcryptCost:     cfg.BcryptCost,
		AutoVerify:     cfg.AutoVerifyUsers,
	}, store.Users, store.Tokens, deny)
	catalog := service.NewCatalogService(store.Categories, store.Sweets, store.Reviews)
	purchases := service.NewPurchaseService(store, store.Purchases, events)
	inventory := service.NewInventoryService(store, store.Restocks, events)
	reviews := service.NewReviewService(store.Reviews, store.Sweets)
	admin := service.NewAdminService(store.Users, store.Audit, store.Stats)

	if cfg.AdminEmail != "" {
		bctx, cancel := context.WithTimeout(ctx, 10*time.Second)
		err := auth.EnsureAdmin(bctx, cfg.AdminEmail, cfg.AdminPassword)
		cancel()
		if err != nil {
			obs.Logger.Error("admin bootstrap failed", "error", err)
			os.Exit(1)
		}
	}

	cacheCfg := config.LoadCacheConfig()
	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = handler.ErrorHandler
	e.Use(
		middleware.RequestID(),
		middleware.RequestLogger(),
		echomw.Recover(),
		echomw.CORS(),
		echomw.BodyLimit("1M"),
		middleware.Authenticate(cfg.JWTSecret, deny, store.Users),
		middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb),
		middleware.NewRedisCache(cacheCfg, rdb),
		middleware.PurgeOnWrite(middleware.NewCachePurger(cacheCfg, rdb)),
	)
	router.Register(e, router.Handlers{
		Auth:      handler.NewAuthHandler(auth),
		Catalog:   handler.NewCatalogHandler(catalog),
		Purchases: handler.NewPurchaseHandler(purchases),
		Reviews:   handler.NewReviewHandler(reviews),
		Admin:     handler.NewAdminHandler(inventory, purchases, admin),
		Health:    handler.Health(db),
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           e,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	go func() {
		obs.Logger.Info("http_listen", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			obs.Logger.Error("http_server_error", "error", err)
			os.Exit(1)
		}
	}()

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	s := <-sigc
	obs.Logger.Info("shutdown_signal", "signal", s.String())

	sctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		obs.Logger.Error("http_shutdown_error", "error", err)
	}
	stop()
	obs.Logger.Info("service_stopped")
}
