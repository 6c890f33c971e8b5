package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	// Adapters
	"github.com/Abdurahmanit/GroupProject/marketplace-service/internal/adapter/access"
	"github.com/Abdurahmanit/GroupProject/marketplace-service/internal/adapter/asset"
	"github.com/Abdurahmanit/GroupProject/marketplace-service/internal/adapter/eventlog"
	grpcAdapter "github.com/Abdurahmanit/GroupProject/marketplace-service/internal/adapter/grpc"
	"github.com/Abdurahmanit/GroupProject/marketplace-service/internal/adapter/http/handler"
	"github.com/Abdurahmanit/GroupProject/marketplace-service/internal/adapter/http/router"
	natsAdapter "github.com/Abdurahmanit/GroupProject/marketplace-service/internal/adapter/messaging/nats"
	cacheRepo "github.com/Abdurahmanit/GroupProject/marketplace-service/internal/adapter/repository/cache"
	memoryRepo "github.com/Abdurahmanit/GroupProject/marketplace-service/internal/adapter/repository/memory"
	mongoRepo "github.com/Abdurahmanit/GroupProject/marketplace-service/internal/adapter/repository/mongodb"
	"github.com/Abdurahmanit/GroupProject/marketplace-service/internal/adapter/settlement"
	s3Storage "github.com/Abdurahmanit/GroupProject/marketplace-service/internal/adapter/storage/s3"

	"github.com/Abdurahmanit/GroupProject/marketplace-service/internal/config"
	"github.com/Abdurahmanit/GroupProject/marketplace-service/internal/domain"
	"github.com/Abdurahmanit/GroupProject/marketplace-service/internal/mailer"
	"github.com/Abdurahmanit/GroupProject/marketplace-service/internal/usecase"

	// Platform
	"github.com/Abdurahmanit/GroupProject/marketplace-service/internal/platform/logger"
	"github.com/Abdurahmanit/GroupProject/marketplace-service/internal/platform/metrics"
	"github.com/Abdurahmanit/GroupProject/marketplace-service/internal/platform/tracer"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health/grpc_health_v1"
)

func main() {
	if err := godotenv.Load(); err != nil {
		fmt.Printf("INFO: .env file not found or error loading: %v. Relying on OS environment variables.\n", err)
	}

	// 1. Logger
	appLogger := logger.NewLogger()
	defer func() { _ = appLogger.Sync() }()

	// 2. Configuration
	cfg, err := config.LoadConfig(appLogger)
	if err != nil {
		appLogger.Fatal("Failed to load configuration", zap.Error(err))
	}
	appLogger.Info("Application starting...",
		zap.String("service_name", cfg.ServiceName),
		zap.String("http_port", cfg.HTTPPort),
		zap.String("grpc_port", cfg.GRPCPort),
		zap.String("store_backend", cfg.StoreBackend))

	// 3. Tracer
	tp := tracer.InitTracer(cfg.ServiceName, cfg.OTExporterOTLPEndpoint, cfg.TraceSampleRatio, appLogger)
	defer func() {
		ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancelShutdown()
		if err := tp.Shutdown(ctxShutdown); err != nil {
			appLogger.Error("Failed to shutdown tracer provider", zap.Error(err))
		}
	}()

	// 4. Listing store
	var store domain.ListingStore
	switch cfg.StoreBackend {
	case config.StoreBackendMongo:
		mongoClient, err := mongoRepo.NewClient(context.Background(), cfg.MongoURI)
		if err != nil {
			appLogger.Fatal("Failed to connect to MongoDB", zap.Error(err))
		}
		defer func() {
			appLogger.Info("Disconnecting from MongoDB...")
			if err := mongoClient.Disconnect(context.Background()); err != nil {
				appLogger.Error("Error disconnecting from MongoDB", zap.Error(err))
			}
		}()
		repo, err := mongoRepo.NewListingRepository(mongoClient, mongoClient.Database(cfg.MongoDatabase), appLogger)
		if err != nil {
			appLogger.Fatal("Failed to initialize ListingRepository", zap.Error(err))
		}
		store = repo
		appLogger.Info("MongoDB listing store initialized.", zap.String("database", cfg.MongoDatabase))
	default:
		store = memoryRepo.NewListingStore()
		appLogger.Warn("Using the in-memory listing store; listings are lost on restart.")
	}

	// 5. Listing cache (optional)
	var cache domain.ListingCache
	if cfg.RedisAddr != "" {
		redisClient, err := cacheRepo.NewClient(context.Background(), cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			appLogger.Fatal("Failed to connect to Redis", zap.Error(err))
		}
		defer redisClient.Close()
		cache = cacheRepo.NewListingCache(redisClient, cfg.CacheTTL)
		appLogger.Info("Redis listing cache initialized.", zap.String("addr", cfg.RedisAddr), zap.Duration("ttl", cfg.CacheTTL))
	}

	// 6. Event sinks
	events := eventlog.NewFanout()
	if cfg.NATSURL != "" {
		natsPublisher, err := natsAdapter.NewPublisher(cfg.NATSURL, appLogger, cfg.ServiceName)
		if err != nil {
			appLogger.Fatal("Failed to initialize NATS publisher", zap.Error(err))
		}
		defer natsPublisher.Close()
		events.Add(natsPublisher)
	}
	if cfg.MinioEndpoint != "" {
		archive, err := s3Storage.NewEventArchive(cfg.MinioEndpoint, cfg.MinioAccessKey, cfg.MinioSecretKey, cfg.MinioBucket, cfg.MinioUseSSL, appLogger)
		if err != nil {
			appLogger.Fatal("Failed to initialize S3 event archive", zap.Error(err))
		}
		events.Add(archive)
	}
	if cfg.SMTPHost != "" && cfg.SaleNotifyEmail != "" {
		events.Add(mailer.NewSaleNotifier(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword, cfg.SMTPUsername, cfg.SaleNotifyEmail, appLogger))
		appLogger.Info("Sale notifications enabled.", zap.String("to", cfg.SaleNotifyEmail))
	}

	// 7. Asset registries, settlement, access control
	uniqueAssets := asset.NewUniqueRegistry()
	fungibleAssets := asset.NewFungibleRegistry()
	ledger := settlement.NewLedger(appLogger)
	gate := access.NewGate(cfg.MarketplaceOwner, appLogger)

	// 8. Usecase
	exchange := usecase.NewExchangeUsecase(
		store, cache, asset.NewResolver(uniqueAssets, fungibleAssets), ledger, gate, events, cfg.MarketplaceOperator, appLogger)

	// 9. Metrics
	metricsManager := metrics.NewMetricsManager(cfg.ServiceName)
	go func() {
		if err := metrics.StartMetricsServer(cfg.PrometheusMetricsPort, appLogger, metricsManager.Registry); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.Error("Prometheus metrics server failed", zap.Error(err))
		}
	}()

	// 10. HTTP API
	mux := router.New(
		handler.NewListingHandler(exchange, metricsManager, appLogger),
		handler.NewAdminHandler(gate, ledger, appLogger),
		handler.NewAssetHandler(uniqueAssets, fungibleAssets, gate, appLogger),
		metricsManager, cfg.JWTSecret, appLogger)
	httpSrv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		appLogger.Info("Starting HTTP server", zap.String("port", cfg.HTTPPort))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	// 11. gRPC health
	grpcSrv, healthServer := grpcAdapter.NewGRPCServer(appLogger)
	if cfg.GRPCPort != "" {
		lis, err := net.Listen("tcp", ":"+cfg.GRPCPort)
		if err != nil {
			appLogger.Fatal("Failed to listen for gRPC", zap.String("port", cfg.GRPCPort), zap.Error(err))
		}
		go func() {
			appLogger.Info("Starting gRPC server", zap.String("port", cfg.GRPCPort))
			if err := grpcSrv.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
				appLogger.Fatal("gRPC server Serve error", zap.Error(err))
			}
		}()
		healthServer.SetServingStatus(grpcAdapter.ServiceName, grpc_health_v1.HealthCheckResponse_SERVING)
	}

	// 12. Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	appLogger.Info("Received shutdown signal", zap.String("signal", sig.String()))

	healthServer.SetServingStatus(grpcAdapter.ServiceName, grpc_health_v1.HealthCheckResponse_NOT_SERVING)

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(ctxShutdown); err != nil {
		appLogger.Error("HTTP server shutdown failed", zap.Error(err))
	}
	grpcSrv.GracefulStop()

	appLogger.Info("Application shutting down...")
}
