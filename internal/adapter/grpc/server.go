package grpc

import (
	"context"
	"encoding/base64"
	"errors"

	"github.com/google/uuid"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/simaogato/folio-backend/internal/domain"
	"github.com/simaogato/folio-backend/internal/usecase/catalog"
	"github.com/simaogato/folio-backend/internal/usecase/ledger"
	"github.com/simaogato/folio-backend/internal/usecase/pricing"
	"github.com/simaogato/folio-backend/internal/usecase/recompute"
	"github.com/simaogato/folio-backend/internal/usecase/report"
)

// Server implements the PortfolioService gRPC server
type Server struct {
	RecomputeService   *recompute.Service
	PricingService     *pricing.Service
	ReportService      *report.Service
	SymbolService      *catalog.SymbolService
	TransactionService *ledger.TransactionService
}

var _ PortfolioServiceServer = (*Server)(nil)

// NewServer creates a new gRPC server instance
func NewServer(
	recomputeService *recompute.Service,
	pricingService *pricing.Service,
	reportService *report.Service,
	symbolService *catalog.SymbolService,
	transactionService *ledger.TransactionService,
) *Server {
	return &Server{
		RecomputeService:   recomputeService,
		PricingService:     pricingService,
		ReportService:      reportService,
		SymbolService:      symbolService,
		TransactionService: transactionService,
	}
}

// Recompute replays every symbol and rebuilds the reports
func (s *Server) Recompute(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	result, err := s.RecomputeService.Run(ctx)
	if err != nil {
		return nil, mapError(err)
	}
	return toStruct(recomputeFields(result))
}

// UpdatePrices fetches fresh quotes for every held symbol
func (s *Server) UpdatePrices(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	result, err := s.PricingService.UpdatePrices(ctx)
	if err != nil {
		return nil, mapError(err)
	}
	return toStruct(priceBatchFields(result))
}

// GetGrid returns {"rows": [...]}
func (s *Server) GetGrid(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	rows, err := s.ReportService.Grid(ctx)
	if err != nil {
		return nil, mapError(err)
	}
	return toStruct(list("rows", rows, rowFields))
}

// GetCategories returns {"rollups": [...]} keyed by instrument kind
func (s *Server) GetCategories(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	rollups, err := s.ReportService.Categories(ctx)
	if err != nil {
		return nil, mapError(err)
	}
	return toStruct(list("rollups", rollups, rollupFields))
}

// GetExchanges returns {"rollups": [...]} keyed by settlement unit
func (s *Server) GetExchanges(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	rollups, err := s.ReportService.Exchanges(ctx)
	if err != nil {
		return nil, mapError(err)
	}
	return toStruct(list("rollups", rollups, rollupFields))
}

// GetSummary returns the portfolio totals of the last recompute
func (s *Server) GetSummary(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	summary, err := s.ReportService.Summary(ctx)
	if err != nil {
		return nil, mapError(err)
	}
	return toStruct(summaryFields(*summary))
}

// GetHistory takes an optional "from" date and returns {"snapshots": [...]}
func (s *Server) GetHistory(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	from, err := optionalDateField(req, "from")
	if err != nil {
		return nil, err
	}

	snapshots, err := s.ReportService.History(ctx, from)
	if err != nil {
		return nil, mapError(err)
	}
	return toStruct(list("snapshots", snapshots, snapshotFields))
}

// GetHistoryChart takes an optional "from" date and returns {"png": <base64>}
func (s *Server) GetHistoryChart(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	from, err := optionalDateField(req, "from")
	if err != nil {
		return nil, err
	}

	png, err := s.ReportService.HistoryChart(ctx, from)
	if err != nil {
		return nil, mapError(err)
	}
	return toStruct(map[string]any{"png": base64.StdEncoding.EncodeToString(png)})
}

// GetPerformance takes "symbol_id" and returns the look-back price changes
func (s *Server) GetPerformance(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	symbolID, err := uuidField(req, "symbol_id")
	if err != nil {
		return nil, err
	}

	perf, err := s.ReportService.Performance(ctx, symbolID)
	if err != nil {
		return nil, mapError(err)
	}
	return toStruct(performanceFields(perf))
}

// GetMarketRates returns the headline USD/TRY and BTC/USD rates; either may be null
func (s *Server) GetMarketRates(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	rates := s.PricingService.MarketRates(ctx)
	return toStruct(map[string]any{
		"usd_try": decString(rates.USDTRY),
		"btc_usd": decString(rates.BTCUSD),
	})
}

// ListSymbols returns {"symbols": [...]}
func (s *Server) ListSymbols(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	symbols, err := s.SymbolService.List(ctx)
	if err != nil {
		return nil, mapError(err)
	}
	return toStruct(list("symbols", symbols, symbolFields))
}

// CreateSymbol registers a new symbol
func (s *Server) CreateSymbol(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	symbol, err := s.SymbolService.Create(ctx, symbolFromRequest(req))
	if err != nil {
		return nil, mapError(err)
	}
	return toStruct(symbolFields(symbol))
}

// UpdateSymbol replaces the fields of the symbol named by "id"
func (s *Server) UpdateSymbol(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	id, err := uuidField(req, "id")
	if err != nil {
		return nil, err
	}

	input := symbolFromRequest(req)
	input.ID = id
	symbol, err := s.SymbolService.Update(ctx, input)
	if err != nil {
		return nil, mapError(err)
	}
	return toStruct(symbolFields(symbol))
}

// DeleteSymbol removes the symbol named by "id" with its transactions
func (s *Server) DeleteSymbol(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	id, err := uuidField(req, "id")
	if err != nil {
		return nil, err
	}

	if err := s.SymbolService.Delete(ctx, id); err != nil {
		return nil, mapError(err)
	}
	return toStruct(map[string]any{"id": id.String()})
}

// ListTransactions takes an optional "symbol_id" filter and returns {"transactions": [...]}
func (s *Server) ListTransactions(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var symbolID *uuid.UUID
	if stringField(req, "symbol_id") != "" {
		id, err := uuidField(req, "symbol_id")
		if err != nil {
			return nil, err
		}
		symbolID = &id
	}

	txs, err := s.TransactionService.List(ctx, symbolID)
	if err != nil {
		return nil, mapError(err)
	}
	return toStruct(list("transactions", txs, transactionFields))
}

// CreateTransaction records a BUY or SELL
func (s *Server) CreateTransaction(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	input, err := transactionFromRequest(req)
	if err != nil {
		return nil, err
	}

	tx, err := s.TransactionService.Create(ctx, input)
	if err != nil {
		return nil, mapError(err)
	}
	return toStruct(transactionFields(tx))
}

// UpdateTransaction replaces the transaction named by "id"
func (s *Server) UpdateTransaction(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	id, err := uuidField(req, "id")
	if err != nil {
		return nil, err
	}
	input, err := transactionFromRequest(req)
	if err != nil {
		return nil, err
	}
	input.ID = id

	tx, err := s.TransactionService.Update(ctx, input)
	if err != nil {
		return nil, mapError(err)
	}
	return toStruct(transactionFields(tx))
}

// DeleteTransaction removes the transaction named by "id"
func (s *Server) DeleteTransaction(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	id, err := uuidField(req, "id")
	if err != nil {
		return nil, err
	}

	if err := s.TransactionService.Delete(ctx, id); err != nil {
		return nil, mapError(err)
	}
	return toStruct(map[string]any{"id": id.String()})
}

// mapError converts domain errors to gRPC status errors
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}

	switch {
	case errors.Is(err, domain.ErrMalformedTransaction), errors.Is(err, domain.ErrInvalidSymbol):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, domain.ErrInsufficientInventory), errors.Is(err, report.ErrNotEnoughHistory):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, domain.ErrPriceSourceUnavailable):
		return status.Error(codes.Unavailable, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}
