package grpc

import (
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/simaogato/folio-backend/internal/domain"
)

// DateLayout is the wire format of calendar dates
const DateLayout = "2006-01-02"

// toStruct builds a response; decimals travel as strings, absent values as null
func toStruct(fields map[string]any) (*structpb.Struct, error) {
	s, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "failed to encode response: %v", err)
	}
	return s, nil
}

func decString(d *decimal.Decimal) any {
	if d == nil {
		return nil
	}
	return d.String()
}

func symbolFields(s *domain.Symbol) map[string]any {
	return map[string]any{
		"id":         s.ID.String(),
		"name":       s.Name,
		"code":       s.Code,
		"unit":       string(s.Unit),
		"kind":       string(s.Kind),
		"sub_code":   s.SubCode,
		"market":     string(s.Market),
		"note":       s.Note,
		"created_at": s.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func transactionFields(t *domain.Transaction) map[string]any {
	return map[string]any{
		"id":        t.ID.String(),
		"seq":       float64(t.Seq),
		"symbol_id": t.SymbolID.String(),
		"date":      t.Date.Format(DateLayout),
		"type":      string(t.Type),
		"price":     t.Price.String(),
		"quantity":  t.Quantity.String(),
		"balance":   decString(t.Balance),
		"note":      t.Note,
	}
}

func rowFields(r domain.ValuationRow) map[string]any {
	return map[string]any{
		"symbol_id":       r.SymbolID.String(),
		"code":            r.Code,
		"name":            r.Name,
		"category":        r.Category,
		"exchange":        r.Exchange,
		"currency":        r.Currency,
		"balance":         r.Balance.String(),
		"average_cost":    decString(r.AverageCost),
		"current_price":   decString(r.CurrentPrice),
		"total_cost":      decString(r.TotalCost),
		"market_value":    decString(r.MarketValue),
		"profit_loss":     decString(r.ProfitLoss),
		"profit_loss_pct": decString(r.ProfitLossPct),
		"realized_gain":   r.RealizedGain.String(),
		"status":          string(r.Status),
	}
}

func rollupFields(r domain.Rollup) map[string]any {
	return map[string]any{
		"key":          r.Key,
		"symbol_count": float64(r.SymbolCount),
		"total_cost":   decString(r.TotalCost),
		"total_value":  r.TotalValue.String(),
		"incomplete":   float64(r.Incomplete),
	}
}

func summaryFields(s domain.PortfolioSummary) map[string]any {
	return map[string]any{
		"total_cost":      decString(s.TotalCost),
		"total_value":     s.TotalValue.String(),
		"profit_loss":     decString(s.ProfitLoss),
		"profit_loss_pct": decString(s.ProfitLossPct),
		"incomplete":      float64(s.Incomplete),
	}
}

func snapshotFields(s *domain.PortfolioSnapshot) map[string]any {
	return map[string]any{
		"date":  s.Date.Format(DateLayout),
		"value": s.Value.String(),
		"cost":  decString(s.Cost),
	}
}

func performanceFields(p *domain.Performance) map[string]any {
	return map[string]any{
		"latest":      decString(p.Latest),
		"day_1":       decString(p.Day1),
		"day_5":       decString(p.Day5),
		"month_1":     decString(p.Month1),
		"month_3":     decString(p.Month3),
		"since_first": decString(p.SinceFirst),
	}
}

func recomputeFields(r *domain.RecomputeResult) map[string]any {
	succeeded := make([]any, 0, len(r.Succeeded))
	for _, id := range r.Succeeded {
		succeeded = append(succeeded, id.String())
	}
	partial := make([]any, 0, len(r.Partial))
	for _, p := range r.Partial {
		partial = append(partial, map[string]any{
			"symbol_id": p.SymbolID.String(),
			"code":      p.Code,
			"status":    string(p.Status),
		})
	}
	failed := make([]any, 0, len(r.Failed))
	for _, f := range r.Failed {
		failed = append(failed, map[string]any{
			"symbol_id": f.SymbolID.String(),
			"code":      f.Code,
			"error":     f.Err.Error(),
		})
	}
	return map[string]any{
		"succeeded": succeeded,
		"partial":   partial,
		"failed":    failed,
		"summary":   summaryFields(r.Summary),
	}
}

func priceBatchFields(r *domain.PriceBatchResult) map[string]any {
	succeeded := make([]any, 0, len(r.Succeeded))
	for _, u := range r.Succeeded {
		succeeded = append(succeeded, map[string]any{
			"symbol_id": u.SymbolID.String(),
			"code":      u.Code,
			"old_price": decString(u.OldPrice),
			"new_price": u.NewPrice.String(),
		})
	}
	failed := make([]any, 0, len(r.Failed))
	for _, f := range r.Failed {
		failed = append(failed, map[string]any{
			"symbol_id": f.SymbolID.String(),
			"code":      f.Code,
			"error":     f.Err.Error(),
		})
	}
	return map[string]any{
		"rate":      decString(r.Rate),
		"succeeded": succeeded,
		"failed":    failed,
	}
}

// list wraps converted items under a single key
func list[T any](key string, items []T, convert func(T) map[string]any) map[string]any {
	out := make([]any, 0, len(items))
	for _, item := range items {
		out = append(out, convert(item))
	}
	return map[string]any{key: out}
}

// Request field readers. Each returns an InvalidArgument status on a bad value.

func stringField(req *structpb.Struct, name string) string {
	v, ok := req.GetFields()[name]
	if !ok {
		return ""
	}
	return v.GetStringValue()
}

func hasField(req *structpb.Struct, name string) bool {
	v, ok := req.GetFields()[name]
	if !ok {
		return false
	}
	_, isNull := v.GetKind().(*structpb.Value_NullValue)
	return !isNull
}

func uuidField(req *structpb.Struct, name string) (uuid.UUID, error) {
	raw := stringField(req, name)
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, status.Errorf(codes.InvalidArgument, "invalid %s format: %v", name, err)
	}
	return id, nil
}

// decimalField accepts both string and number values
func decimalField(req *structpb.Struct, name string) (decimal.Decimal, error) {
	v, ok := req.GetFields()[name]
	if !ok {
		return decimal.Zero, status.Errorf(codes.InvalidArgument, "%s is required", name)
	}
	switch kind := v.GetKind().(type) {
	case *structpb.Value_StringValue:
		d, err := decimal.NewFromString(kind.StringValue)
		if err != nil {
			return decimal.Zero, status.Errorf(codes.InvalidArgument, "invalid %s format: %v", name, err)
		}
		return d, nil
	case *structpb.Value_NumberValue:
		v := kind.NumberValue
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return decimal.Zero, status.Errorf(codes.InvalidArgument, "invalid %s: %v is not a finite number", name, v)
		}
		return decimal.NewFromFloat(v), nil
	default:
		return decimal.Zero, status.Errorf(codes.InvalidArgument, "invalid %s format: %T", name, kind)
	}
}

func optionalDecimalField(req *structpb.Struct, name string) (*decimal.Decimal, error) {
	if !hasField(req, name) {
		return nil, nil
	}
	d, err := decimalField(req, name)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func dateField(req *structpb.Struct, name string) (time.Time, error) {
	raw := stringField(req, name)
	t, err := time.Parse(DateLayout, raw)
	if err != nil {
		return time.Time{}, status.Errorf(codes.InvalidArgument, "invalid %s format: %v", name, err)
	}
	return t, nil
}

func optionalDateField(req *structpb.Struct, name string) (*time.Time, error) {
	if stringField(req, name) == "" {
		return nil, nil
	}
	t, err := dateField(req, name)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func symbolFromRequest(req *structpb.Struct) *domain.Symbol {
	return &domain.Symbol{
		Name:    stringField(req, "name"),
		Code:    stringField(req, "code"),
		Unit:    domain.SettlementUnit(stringField(req, "unit")),
		Kind:    domain.InstrumentKind(stringField(req, "kind")),
		SubCode: stringField(req, "sub_code"),
		Market:  domain.MarketCategory(stringField(req, "market")),
		Note:    stringField(req, "note"),
	}
}

func transactionFromRequest(req *structpb.Struct) (*domain.Transaction, error) {
	symbolID, err := uuidField(req, "symbol_id")
	if err != nil {
		return nil, err
	}
	date, err := dateField(req, "date")
	if err != nil {
		return nil, err
	}
	price, err := decimalField(req, "price")
	if err != nil {
		return nil, err
	}
	quantity, err := decimalField(req, "quantity")
	if err != nil {
		return nil, err
	}
	balance, err := optionalDecimalField(req, "balance")
	if err != nil {
		return nil, err
	}
	return &domain.Transaction{
		SymbolID: symbolID,
		Date:     date,
		Type:     domain.TradeType(stringField(req, "type")),
		Price:    price,
		Quantity: quantity,
		Balance:  balance,
		Note:     stringField(req, "note"),
	}, nil
}
