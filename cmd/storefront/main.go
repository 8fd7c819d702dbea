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

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/fjod/go_storefront/internal/address"
	"github.com/fjod/go_storefront/internal/authz"
	cartcache "github.com/fjod/go_storefront/internal/cart/cache"
	cartrepo "github.com/fjod/go_storefront/internal/cart/repository"
	cartsvc "github.com/fjod/go_storefront/internal/cart/service"
	catalog "github.com/fjod/go_storefront/internal/catalog/repository"
	checkoutsvc "github.com/fjod/go_storefront/internal/checkout/service"
	"github.com/fjod/go_storefront/internal/config"
	"github.com/fjod/go_storefront/internal/database"
	h "github.com/fjod/go_storefront/internal/http"
	"github.com/fjod/go_storefront/internal/inventory/store"
	"github.com/fjod/go_storefront/internal/logger"
	"github.com/fjod/go_storefront/internal/orders/reconciler"
	ordersrepo "github.com/fjod/go_storefront/internal/orders/repository"
	ordersvc "github.com/fjod/go_storefront/internal/orders/service"
	"github.com/fjod/go_storefront/internal/publisher"
	recommendsvc "github.com/fjod/go_storefront/internal/recommend/service"
	reviewsrepo "github.com/fjod/go_storefront/internal/reviews/repository"
	reviewsvc "github.com/fjod/go_storefront/internal/reviews/service"
)

func main() {
	cfg, note, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	zl, err := logger.New(cfg.LogLevel, cfg.LogDevelopment)
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer zl.Sync()
	zap.ReplaceGlobals(zl)
	if note != "" {
		zl.Info(note)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Carts: MongoDB behind a Redis read-through cache.
	mongoDB, err := cartrepo.ConnectMongoDB(ctx, cfg.MongoURI, cfg.MongoDBName)
	if err != nil {
		zl.Fatal("failed to connect to MongoDB", zap.Error(err))
	}
	cartRepo := cartrepo.NewMongoRepository(mongoDB)
	if err := cartRepo.CreateIndexes(ctx); err != nil {
		zl.Fatal("failed to create cart indexes", zap.Error(err))
	}
	zl.Info("connected to MongoDB", zap.String("uri", cfg.MongoURI))

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
	defer redisClient.Close()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		zl.Fatal("failed to connect to Redis", zap.Error(err))
	}

	// Catalog and stock share one SQLite file.
	catalogRepo, err := catalog.NewRepository(cfg.CatalogDBPath)
	if err != nil {
		zl.Fatal("failed to open catalog", zap.Error(err))
	}
	defer catalogRepo.Close()
	if err := catalogRepo.RunMigrations(cfg.CatalogMigrationsPath); err != nil {
		zl.Fatal("failed to migrate catalog", zap.Error(err))
	}
	ledger := store.NewSQLiteLedger(catalogRepo.DB())

	db, err := database.OpenPostgres(&database.Credentials{
		Host:     cfg.DBHost,
		Port:     cfg.DBPort,
		User:     cfg.DBUser,
		Password: cfg.DBPassword,
		DBName:   cfg.DBName,
	})
	if err != nil {
		zl.Fatal("failed to connect to Postgres", zap.Error(err))
	}
	defer db.Close()

	migrations := []struct{ dir, table string }{
		{cfg.AddressMigrationsPath, address.MigrationsTable},
		{cfg.OrdersMigrationsPath, ordersrepo.MigrationsTable},
		{cfg.ReviewsMigrationsPath, reviewsrepo.MigrationsTable},
	}
	for _, m := range migrations {
		if err := database.RunMigrations(db, m.dir, m.table); err != nil {
			zl.Fatal("failed to run migrations", zap.String("dir", m.dir), zap.Error(err))
		}
	}

	var events publisher.Publisher = publisher.NopPublisher{}
	if len(cfg.KafkaBrokers) > 0 {
		kp := publisher.NewKafkaPublisher(cfg.OrderEventsTopic, zl, cfg.KafkaBrokers...)
		defer kp.Close()
		events = kp
	} else {
		zl.Warn("KAFKA_BROKERS not set, order events are dropped")
	}

	policy := authz.RolePolicy{}
	ordersRepo := ordersrepo.NewRepository(db)
	engine := ordersvc.NewEngine(
		ordersRepo,
		ordersRepo,
		ledger,
		address.NewPostgresResolver(db),
		catalogRepo,
		events,
		policy,
		zl.Named("orders"),
		ordersvc.Options{StrictStock: cfg.StrictStock},
	)

	carts := cartsvc.NewCartService(cartRepo, cartcache.NewRedisCache(redisClient), catalogRepo, zl.Named("cart"))
	checkout := checkoutsvc.NewService(carts, engine, catalogRepo, zl.Named("checkout"))
	reviews := reviewsvc.NewGate(ordersRepo, reviewsrepo.NewRepository(db), policy, zl.Named("reviews"))
	recommend := recommendsvc.NewAggregator(ordersRepo, catalogRepo, zl.Named("recommend"))

	bgCtx, stopBackground := context.WithCancel(context.Background())
	defer stopBackground()
	go reconciler.New(ordersRepo, ledger, zl.Named("reconciler"), cfg.ReconcileInterval).Run(bgCtx)

	router := h.NewRouter(h.Handlers{
		Cart:      h.NewCartHandler(carts, zl, cfg.MaxRequestBodySize),
		Checkout:  h.NewCheckoutHandler(checkout, zl, cfg.MaxRequestBodySize),
		Orders:    h.NewOrdersHandler(engine, zl, cfg.MaxRequestBodySize),
		Reviews:   h.NewReviewsHandler(reviews, zl, cfg.MaxRequestBodySize),
		Recommend: h.NewRecommendHandler(recommend, zl),
		Admin:     h.NewAdminHandler(recommend, ledger, policy, zl, cfg.MaxRequestBodySize),
	}, h.NewAuthenticator(cfg.JWTSecret), cfg.RequestTimeout)

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      otelhttp.NewHandler(router, "storefront"),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		zl.Info("storefront starting", zap.String("port", cfg.HTTPPort), zap.Bool("strict_stock", cfg.StrictStock))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zl.Fatal("server error", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zl.Info("shutting down server...")
	stopBackground()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		zl.Error("server forced to shutdown", zap.Error(err))
	}
	if err := mongoDB.Client().Disconnect(shutdownCtx); err != nil {
		zl.Warn("mongo disconnect failed", zap.Error(err))
	}

	zl.Info("server exited")
}
