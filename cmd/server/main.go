package main

import (
	"context"
	"flag"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	grpclib "google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	grpcadapter "github.com/simaogato/folio-backend/internal/adapter/grpc"
	"github.com/simaogato/folio-backend/internal/adapter/market"
	"github.com/simaogato/folio-backend/internal/adapter/repository/postgres"
	"github.com/simaogato/folio-backend/internal/common"
	"github.com/simaogato/folio-backend/internal/usecase/catalog"
	"github.com/simaogato/folio-backend/internal/usecase/fifo"
	"github.com/simaogato/folio-backend/internal/usecase/ledger"
	"github.com/simaogato/folio-backend/internal/usecase/pricing"
	"github.com/simaogato/folio-backend/internal/usecase/recompute"
	"github.com/simaogato/folio-backend/internal/usecase/report"
	"github.com/simaogato/folio-backend/internal/usecase/snapshot"
	"github.com/simaogato/folio-backend/internal/usecase/valuation"
)

func main() {
	configPath := flag.String("config", os.Getenv("FOLIO_CONFIG"), "path to a TOML config file")
	flag.Parse()

	// 1. Load configuration and logging
	cfg, err := common.LoadConfig(*configPath)
	if err != nil {
		common.NewLogger(common.LoggingConfig{}).Fatal().Err(err).Msg("Failed to load config")
	}
	logger := common.NewLogger(cfg.Logging)

	policy, err := fifo.ParseSameDayPolicy(cfg.Engine.SameDayPolicy)
	if err != nil {
		logger.Fatal().Err(err).Msg("Invalid engine configuration")
	}

	// 2. Setup Database
	db, err := connect(cfg.Database.ConnString(), logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()

	if cfg.Database.Migrate {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		err := db.Migrate(ctx)
		cancel()
		if err != nil {
			logger.Fatal().Err(err).Msg("Failed to migrate database")
		}
		logger.Info().Msg("Database schema is up to date")
	}

	// 3. Initialize Repositories (Postgres)
	symbolRepo := postgres.NewSymbolRepository(db)
	transactionRepo := postgres.NewTransactionRepository(db)
	priceRepo := postgres.NewPriceRepository(db)
	rateRepo := postgres.NewRateRepository(db)
	holdingRepo := postgres.NewHoldingRepository(db)
	reportRepo := postgres.NewReportRepository(db)
	snapshotRepo := postgres.NewSnapshotRepository(db)

	// 4. Initialize market data sources
	timeout := cfg.Pricing.GetTimeout()
	clientOpts := []market.ClientOption{
		market.WithLogger(logger),
		market.WithTimeout(timeout),
	}
	router := market.NewDefaultRouter(cfg.Clients, clientOpts...)
	rateSource := market.NewExchangeRateSourceFromConfig(cfg.Clients.ExchangeRate, clientOpts...)

	// 5. Initialize Services (Use Cases)
	loc := cfg.Engine.Location()
	valuationCfg := valuation.Config{
		ReferenceCurrency: cfg.Currency.Reference,
		LocalCurrency:     cfg.Currency.Local,
	}

	recomputeService := recompute.NewService(
		symbolRepo, transactionRepo, priceRepo, rateRepo, holdingRepo, reportRepo,
		snapshot.NewWriter(snapshotRepo, loc),
		recompute.Config{Policy: policy, Workers: cfg.Engine.Workers, Valuation: valuationCfg},
		logger,
	)
	pricingService := pricing.NewService(
		symbolRepo, holdingRepo, priceRepo, rateRepo, router, rateSource,
		pricing.Config{
			Concurrency:       cfg.Pricing.Concurrency,
			Timeout:           timeout,
			ReferenceCurrency: cfg.Currency.Reference,
			LocalCurrency:     cfg.Currency.Local,
			Location:          loc,
		},
		logger,
	)
	reportService := report.NewService(reportRepo, snapshotRepo, priceRepo, symbolRepo, loc)
	symbolService := catalog.NewSymbolService(symbolRepo)
	transactionService := ledger.NewTransactionService(transactionRepo, symbolRepo)

	// 6. Start gRPC Server
	grpcServer := grpclib.NewServer(
		grpclib.ChainUnaryInterceptor(
			grpcadapter.LoggingInterceptor(logger),
			grpcadapter.AuthInterceptor(cfg.Server.APIToken),
		),
	)

	grpcAdapter := grpcadapter.NewServer(recomputeService, pricingService, reportService, symbolService, transactionService)
	grpcadapter.RegisterPortfolioServiceServer(grpcServer, grpcAdapter)

	healthServer := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus(grpcadapter.ServiceName, healthpb.HealthCheckResponse_SERVING)

	reflection.Register(grpcServer)

	lis, err := net.Listen("tcp", cfg.Server.Address)
	if err != nil {
		logger.Fatal().Err(err).Str("address", cfg.Server.Address).Msg("Failed to listen")
	}

	go func() {
		logger.Info().
			Str("address", cfg.Server.Address).
			Str("environment", cfg.Environment).
			Str("same_day_policy", string(policy)).
			Msg("gRPC server listening")
		if err := grpcServer.Serve(lis); err != nil {
			logger.Fatal().Err(err).Msg("Failed to serve gRPC server")
		}
	}()

	// Graceful shutdown
	waitForShutdown(grpcServer, healthServer, logger)
}

// connect retries until postgres accepts connections, which matters under docker-compose
func connect(connStr string, logger *common.Logger) (*postgres.DB, error) {
	var lastErr error
	for attempt := 1; attempt <= 5; attempt++ {
		db, err := postgres.NewDB(connStr)
		if err == nil {
			return db, nil
		}
		lastErr = err
		logger.Warn().Err(err).Int("attempt", attempt).Msg("Database not ready, retrying")
		time.Sleep(2 * time.Second)
	}
	return nil, lastErr
}

// waitForShutdown waits for SIGTERM or SIGINT and gracefully shuts down the server
func waitForShutdown(grpcServer *grpclib.Server, healthServer *health.Server, logger *common.Logger) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)

	sig := <-sigChan
	logger.Info().Str("signal", sig.String()).Msg("Shutting down gracefully")

	healthServer.Shutdown()
	grpcServer.GracefulStop()
	logger.Info().Msg("gRPC server stopped")
}
