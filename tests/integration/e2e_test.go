//go:build integration

package integration

import (
	"context"
	"fmt"
	"net"
	"os"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	grpcadapter "github.com/simaogato/folio-backend/internal/adapter/grpc"
	"github.com/simaogato/folio-backend/internal/adapter/market"
	"github.com/simaogato/folio-backend/internal/adapter/repository/postgres"
	"github.com/simaogato/folio-backend/internal/common"
	"github.com/simaogato/folio-backend/internal/domain"
	"github.com/simaogato/folio-backend/internal/usecase/catalog"
	"github.com/simaogato/folio-backend/internal/usecase/fifo"
	"github.com/simaogato/folio-backend/internal/usecase/ledger"
	"github.com/simaogato/folio-backend/internal/usecase/pricing"
	"github.com/simaogato/folio-backend/internal/usecase/recompute"
	"github.com/simaogato/folio-backend/internal/usecase/report"
	"github.com/simaogato/folio-backend/internal/usecase/snapshot"
	"github.com/simaogato/folio-backend/internal/usecase/valuation"
)

const apiToken = "integration-token"

var (
	db     *postgres.DB
	client *grpcadapter.PortfolioClient
)

// fixedSource quotes every code at the same price
type fixedSource struct {
	quote domain.Quote
}

func (s fixedSource) Latest(context.Context, string) (domain.Quote, error) {
	return s.quote, nil
}

type fixedRate decimal.Decimal

func (r fixedRate) Rate(context.Context, string, string) (decimal.Decimal, error) {
	return decimal.Decimal(r), nil
}

// TestMain sets up the test environment
func TestMain(m *testing.M) {
	ctx := context.Background()

	// 1. Start or connect to Postgres
	connStr, cleanup, err := startPostgres(ctx)
	if err != nil {
		panic(fmt.Sprintf("Failed to start postgres: %v", err))
	}

	db, err = postgres.NewDB(connStr)
	if err != nil {
		cleanup()
		panic(fmt.Sprintf("Failed to connect to database: %v", err))
	}
	if err := db.Migrate(ctx); err != nil {
		cleanup()
		panic(fmt.Sprintf("Failed to migrate database: %v", err))
	}

	// 2. Serve the PortfolioService in-process
	grpcServer, addr, err := startServer(db)
	if err != nil {
		cleanup()
		panic(fmt.Sprintf("Failed to start gRPC server: %v", err))
	}

	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		panic(fmt.Sprintf("Failed to connect to gRPC server: %v", err))
	}
	client = grpcadapter.NewPortfolioClient(conn)

	code := m.Run()

	conn.Close()
	grpcServer.GracefulStop()
	db.Close()
	cleanup()
	os.Exit(code)
}

// startPostgres uses DB_CONN_STR when set, otherwise a throwaway container
func startPostgres(ctx context.Context) (string, func(), error) {
	if connStr := os.Getenv("DB_CONN_STR"); connStr != "" {
		return connStr, func() {}, nil
	}

	req := testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "postgres",
			"POSTGRES_PASSWORD": "postgres",
			"POSTGRES_DB":       "folio",
		},
		WaitingFor: wait.ForAll(
			wait.ForListeningPort("5432/tcp"),
			wait.ForLog("database system is ready to accept connections").WithOccurrence(2),
		).WithDeadline(90 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return "", nil, fmt.Errorf("start postgres container: %w", err)
	}
	cleanup := func() { _ = container.Terminate(context.Background()) }

	host, err := container.Host(ctx)
	if err != nil {
		cleanup()
		return "", nil, fmt.Errorf("get postgres host: %w", err)
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		cleanup()
		return "", nil, fmt.Errorf("get postgres port: %w", err)
	}

	cfg := common.DatabaseConfig{
		Host: host, Port: port.Int(), User: "postgres", Password: "postgres", Name: "folio", SSLMode: "disable",
	}
	return cfg.ConnString(), cleanup, nil
}

// startServer wires the services like cmd/server does, with fixed market data:
// BIST quotes 300 TRY, crypto quotes 150 USD and USD/TRY is 40.
func startServer(db *postgres.DB) (*grpc.Server, string, error) {
	logger := common.NewSilentLogger()

	symbolRepo := postgres.NewSymbolRepository(db)
	transactionRepo := postgres.NewTransactionRepository(db)
	priceRepo := postgres.NewPriceRepository(db)
	rateRepo := postgres.NewRateRepository(db)
	holdingRepo := postgres.NewHoldingRepository(db)
	reportRepo := postgres.NewReportRepository(db)
	snapshotRepo := postgres.NewSnapshotRepository(db)

	router := market.NewRouter(map[domain.MarketCategory]domain.PriceSource{
		domain.MarketBIST:   fixedSource{domain.Quote{Value: decimal.NewFromInt(300), Currency: "TRY"}},
		domain.MarketCrypto: fixedSource{domain.Quote{Value: decimal.NewFromInt(150), Currency: "USD"}},
	}, domain.MarketBIST)

	valuationCfg := valuation.Config{ReferenceCurrency: "USD", LocalCurrency: "TRY"}
	recomputeService := recompute.NewService(
		symbolRepo, transactionRepo, priceRepo, rateRepo, holdingRepo, reportRepo,
		snapshot.NewWriter(snapshotRepo, time.UTC),
		recompute.Config{Policy: fifo.SameDayInOrder, Workers: 4, Valuation: valuationCfg},
		logger,
	)
	pricingService := pricing.NewService(
		symbolRepo, holdingRepo, priceRepo, rateRepo, router, fixedRate(decimal.NewFromInt(40)),
		pricing.Config{Concurrency: 2, Timeout: 5 * time.Second, ReferenceCurrency: "USD", LocalCurrency: "TRY", Location: time.UTC},
		logger,
	)

	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(
		grpcadapter.LoggingInterceptor(logger),
		grpcadapter.AuthInterceptor(apiToken),
	))
	grpcadapter.RegisterPortfolioServiceServer(srv, grpcadapter.NewServer(
		recomputeService,
		pricingService,
		report.NewService(reportRepo, snapshotRepo, priceRepo, symbolRepo, time.UTC),
		catalog.NewSymbolService(symbolRepo),
		ledger.NewTransactionService(transactionRepo, symbolRepo),
	))

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, "", err
	}
	go func() { _ = srv.Serve(lis) }()
	return srv, lis.Addr().String(), nil
}

func getAuthContext() context.Context {
	return metadata.AppendToOutgoingContext(context.Background(), "authorization", apiToken)
}

func call(t *testing.T, method string, fields map[string]any) map[string]any {
	t.Helper()
	var req *structpb.Struct
	if fields != nil {
		var err error
		req, err = structpb.NewStruct(fields)
		require.NoError(t, err)
	}
	resp, err := client.Call(getAuthContext(), method, req)
	require.NoError(t, err, "%s failed", method)
	return resp.AsMap()
}

func decimalOf(t *testing.T, v any) decimal.Decimal {
	t.Helper()
	s, ok := v.(string)
	require.True(t, ok, "expected a decimal string, got %v", v)
	return decimal.RequireFromString(s)
}

func assertDecimal(t *testing.T, want string, got any) {
	t.Helper()
	assert.True(t, decimal.RequireFromString(want).Equal(decimalOf(t, got)), "want %s, got %v", want, got)
}

func gridRow(t *testing.T, code string) map[string]any {
	t.Helper()
	for _, r := range call(t, grpcadapter.MethodGetGrid, nil)["rows"].([]any) {
		row := r.(map[string]any)
		if row["code"] == code {
			return row
		}
	}
	t.Fatalf("grid row %s not found", code)
	return nil
}

func addTransaction(t *testing.T, symbolID, date, kind, price, quantity string) string {
	t.Helper()
	tx := call(t, grpcadapter.MethodCreateTransaction, map[string]any{
		"symbol_id": symbolID,
		"date":      date,
		"type":      kind,
		"price":     price,
		"quantity":  quantity,
	})
	return tx["id"].(string)
}

func TestUnauthenticated(t *testing.T) {
	_, err := client.Call(context.Background(), grpcadapter.MethodGetSummary, nil)
	assert.Equal(t, codes.Unauthenticated, status.Code(err))
}

func TestEndToEndFlow(t *testing.T) {
	// 1. Register symbols
	coin := call(t, grpcadapter.MethodCreateSymbol, map[string]any{
		"name": "Bitcoin", "code": "btcusdt", "unit": "DOVIZ", "kind": "COIN", "market": "K",
	})
	bist := call(t, grpcadapter.MethodCreateSymbol, map[string]any{
		"name": "Türk Hava Yolları", "code": "THYAO", "unit": "TL", "kind": "BIST", "market": "B",
	})
	coinID, bistID := coin["id"].(string), bist["id"].(string)
	assert.Equal(t, "BTCUSDT", coin["code"])

	// 2. Record trades
	addTransaction(t, coinID, "2025-01-02", "BUY", "100", "10")
	addTransaction(t, coinID, "2025-01-03", "BUY", "120", "5")
	addTransaction(t, coinID, "2025-01-04", "SELL", "150", "12")
	addTransaction(t, bistID, "2025-01-02", "BUY", "200", "100")

	// 3. First recompute has holdings but no prices
	result := call(t, grpcadapter.MethodRecompute, nil)
	assert.Len(t, result["partial"], 2)
	assert.Empty(t, result["failed"])

	// nothing is priced and there is no USD/TRY rate yet: no P&L, no TRY cost basis
	summary := call(t, grpcadapter.MethodGetSummary, nil)
	assert.Nil(t, summary["profit_loss"])
	assert.Nil(t, summary["total_cost"])
	assert.Equal(t, float64(2), summary["incomplete"])

	// 4. Prices: crypto as-is, BIST converted at 40 TRY per USD
	batch := call(t, grpcadapter.MethodUpdatePrices, nil)
	assertDecimal(t, "40", batch["rate"])
	assert.Len(t, batch["succeeded"], 2)
	assert.Empty(t, batch["failed"])

	// 5. Recompute values everything
	result = call(t, grpcadapter.MethodRecompute, nil)
	assert.Len(t, result["succeeded"], 2)
	assert.Empty(t, result["partial"])

	coinRow := gridRow(t, "BTCUSDT")
	assertDecimal(t, "3", coinRow["balance"])
	assertDecimal(t, "120", coinRow["average_cost"])
	assertDecimal(t, "360", coinRow["total_cost"])
	assertDecimal(t, "450", coinRow["market_value"])
	assertDecimal(t, "25", coinRow["profit_loss_pct"])
	// 10 x (150-100) + 2 x (150-120)
	assertDecimal(t, "560", coinRow["realized_gain"])

	bistRow := gridRow(t, "THYAO")
	assert.Equal(t, "TRY", bistRow["currency"])
	assertDecimal(t, "7.5", bistRow["current_price"])
	assertDecimal(t, "500", bistRow["total_cost"])
	assertDecimal(t, "750", bistRow["market_value"])
	assertDecimal(t, "50", bistRow["profit_loss_pct"])

	summary = call(t, grpcadapter.MethodGetSummary, nil)
	assertDecimal(t, "1200", summary["total_value"])
	assertDecimal(t, "860", summary["total_cost"])
	assertDecimal(t, "340", summary["profit_loss"])
	assert.Equal(t, float64(0), summary["incomplete"])
	assertDecimal(t, "39.5349", summary["profit_loss_pct"])

	categories := call(t, grpcadapter.MethodGetCategories, nil)["rollups"].([]any)
	require.Len(t, categories, 2)
	assert.Equal(t, "BIST", categories[0].(map[string]any)["key"])

	// 6. A SELL beyond the open lots fails only that symbol; its last holding stays
	badTx := addTransaction(t, coinID, "2025-01-05", "SELL", "150", "10")
	result = call(t, grpcadapter.MethodRecompute, nil)
	require.Len(t, result["failed"], 1)
	assert.Equal(t, "BTCUSDT", result["failed"].([]any)[0].(map[string]any)["code"])

	coinRow = gridRow(t, "BTCUSDT")
	assert.Equal(t, "STALE", coinRow["status"])
	assertDecimal(t, "3", coinRow["balance"])

	call(t, grpcadapter.MethodDeleteTransaction, map[string]any{"id": badTx})
	result = call(t, grpcadapter.MethodRecompute, nil)
	assert.Empty(t, result["failed"])

	// 7. Every recompute rewrote today's snapshot
	history := call(t, grpcadapter.MethodGetHistory, nil)["snapshots"].([]any)
	require.Len(t, history, 1)
	assert.Equal(t, time.Now().UTC().Format(grpcadapter.DateLayout), history[0].(map[string]any)["date"])

	perf := call(t, grpcadapter.MethodGetPerformance, map[string]any{"symbol_id": coinID})
	assertDecimal(t, "150", perf["latest"])

	// 8. Deleting a symbol removes its ledger and its grid row
	call(t, grpcadapter.MethodDeleteSymbol, map[string]any{"id": bistID})
	txs := call(t, grpcadapter.MethodListTransactions, map[string]any{"symbol_id": bistID})["transactions"].([]any)
	assert.Empty(t, txs)
	for _, r := range call(t, grpcadapter.MethodGetGrid, nil)["rows"].([]any) {
		assert.NotEqual(t, "THYAO", r.(map[string]any)["code"])
	}

	_, err := client.Call(getAuthContext(), grpcadapter.MethodGetPerformance, mustStruct(t, map[string]any{"symbol_id": bistID}))
	assert.Equal(t, codes.NotFound, status.Code(err))
}

func mustStruct(t *testing.T, fields map[string]any) *structpb.Struct {
	t.Helper()
	s, err := structpb.NewStruct(fields)
	require.NoError(t, err)
	return s
}
