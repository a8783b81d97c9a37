package cli

import (
	"context"
	"encoding/base64"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/google/subcommands"
	"google.golang.org/protobuf/types/known/structpb"

	grpcadapter "github.com/simaogato/folio-backend/internal/adapter/grpc"
)

// Commands lists every folioctl subcommand
var Commands = []subcommands.Command{
	&recomputeCmd{},
	&pricesCmd{},
	&gridCmd{},
	&rollupCmd{},
	&summaryCmd{},
	&historyCmd{},
	&perfCmd{},
	&ratesCmd{},
	&symbolsCmd{},
	&addSymbolCmd{},
	&rmSymbolCmd{},
	&txCmd{},
	&addTxCmd{},
	&rmTxCmd{},
}

func request(fields map[string]any) (*structpb.Struct, error) {
	return structpb.NewStruct(fields)
}

// recomputeCmd replays every ledger and refreshes the reports.
type recomputeCmd struct{}

func (*recomputeCmd) Name() string     { return "recompute" }
func (*recomputeCmd) Synopsis() string { return "replay all transactions and rebuild the reports" }
func (*recomputeCmd) Usage() string {
	return `folioctl recompute

  Recomputes FIFO holdings for every symbol, values them and stores a snapshot of today.
`
}
func (*recomputeCmd) SetFlags(*flag.FlagSet) {}

func (*recomputeCmd) Execute(ctx context.Context, _ *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	return run(ctx, args, func(ctx context.Context, c *grpcadapter.PortfolioClient, o *Options) (string, error) {
		resp, err := c.Call(ctx, grpcadapter.MethodRecompute, nil)
		if err != nil {
			return "", err
		}
		return renderRecompute(resp.AsMap(), o.Currency), nil
	})
}

// pricesCmd fetches fresh quotes.
type pricesCmd struct{}

func (*pricesCmd) Name() string     { return "prices" }
func (*pricesCmd) Synopsis() string { return "fetch the latest prices of every held symbol" }
func (*pricesCmd) Usage() string {
	return `folioctl prices

  Refreshes the USD/TRY rate and the price of every symbol with a positive balance.
`
}
func (*pricesCmd) SetFlags(*flag.FlagSet) {}

func (*pricesCmd) Execute(ctx context.Context, _ *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	return run(ctx, args, func(ctx context.Context, c *grpcadapter.PortfolioClient, o *Options) (string, error) {
		resp, err := c.Call(ctx, grpcadapter.MethodUpdatePrices, nil)
		if err != nil {
			return "", err
		}
		return renderPriceBatch(resp.AsMap(), o.Currency), nil
	})
}

type gridCmd struct{}

func (*gridCmd) Name() string           { return "grid" }
func (*gridCmd) Synopsis() string       { return "display the valuation of every symbol" }
func (*gridCmd) Usage() string          { return "folioctl grid\n" }
func (*gridCmd) SetFlags(*flag.FlagSet) {}

func (*gridCmd) Execute(ctx context.Context, _ *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	return run(ctx, args, func(ctx context.Context, c *grpcadapter.PortfolioClient, o *Options) (string, error) {
		resp, err := c.Call(ctx, grpcadapter.MethodGetGrid, nil)
		if err != nil {
			return "", err
		}
		return renderGrid(resp.AsMap(), o.Currency), nil
	})
}

// rollupCmd displays one of the two aggregate views.
type rollupCmd struct {
	by string
}

func (*rollupCmd) Name() string     { return "rollup" }
func (*rollupCmd) Synopsis() string { return "display totals by category or by exchange" }
func (*rollupCmd) Usage() string {
	return `folioctl rollup [-by category|exchange]
`
}

func (c *rollupCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.by, "by", "category", "group by 'category' (instrument kind) or 'exchange' (settlement unit)")
}

func (c *rollupCmd) Execute(ctx context.Context, _ *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	method, title := grpcadapter.MethodGetCategories, "Categories"
	switch c.by {
	case "category":
	case "exchange":
		method, title = grpcadapter.MethodGetExchanges, "Exchanges"
	default:
		fmt.Fprintf(os.Stderr, "Error: unknown grouping %q\n", c.by)
		return subcommands.ExitUsageError
	}

	return run(ctx, args, func(ctx context.Context, client *grpcadapter.PortfolioClient, o *Options) (string, error) {
		resp, err := client.Call(ctx, method, nil)
		if err != nil {
			return "", err
		}
		return renderRollups(title, resp.AsMap(), o.Currency), nil
	})
}

type summaryCmd struct{}

func (*summaryCmd) Name() string           { return "summary" }
func (*summaryCmd) Synopsis() string       { return "display portfolio totals" }
func (*summaryCmd) Usage() string          { return "folioctl summary\n" }
func (*summaryCmd) SetFlags(*flag.FlagSet) {}

func (*summaryCmd) Execute(ctx context.Context, _ *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	return run(ctx, args, func(ctx context.Context, c *grpcadapter.PortfolioClient, o *Options) (string, error) {
		resp, err := c.Call(ctx, grpcadapter.MethodGetSummary, nil)
		if err != nil {
			return "", err
		}
		return renderSummary(resp.AsMap(), o.Currency), nil
	})
}

// historyCmd lists snapshots or saves them as a chart.
type historyCmd struct {
	from string
	png  string
}

func (*historyCmd) Name() string     { return "history" }
func (*historyCmd) Synopsis() string { return "display daily portfolio snapshots" }
func (*historyCmd) Usage() string {
	return `folioctl history [-from YYYY-MM-DD] [-png <file>]

  Lists the daily snapshots, or writes them as a line chart when -png is set.
`
}

func (c *historyCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.from, "from", "", "first day to include")
	f.StringVar(&c.png, "png", "", "write a PNG chart to this file instead of listing")
}

func (c *historyCmd) Execute(ctx context.Context, _ *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	return run(ctx, args, func(ctx context.Context, client *grpcadapter.PortfolioClient, o *Options) (string, error) {
		fields := map[string]any{}
		if c.from != "" {
			fields["from"] = c.from
		}
		req, err := request(fields)
		if err != nil {
			return "", err
		}

		if c.png == "" {
			resp, err := client.Call(ctx, grpcadapter.MethodGetHistory, req)
			if err != nil {
				return "", err
			}
			return renderHistory(resp.AsMap(), o.Currency), nil
		}

		resp, err := client.Call(ctx, grpcadapter.MethodGetHistoryChart, req)
		if err != nil {
			return "", err
		}
		png, err := base64.StdEncoding.DecodeString(field(resp.AsMap(), "png"))
		if err != nil {
			return "", fmt.Errorf("failed to decode chart: %w", err)
		}
		if err := os.WriteFile(c.png, png, 0o644); err != nil {
			return "", fmt.Errorf("failed to write chart: %w", err)
		}
		return "", nil
	})
}

type perfCmd struct {
	symbol string
}

func (*perfCmd) Name() string     { return "perf" }
func (*perfCmd) Synopsis() string { return "display price changes of a symbol" }
func (*perfCmd) Usage() string {
	return `folioctl perf -s <symbol id|code>
`
}

func (c *perfCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.symbol, "s", "", "symbol ID or code")
}

func (c *perfCmd) Execute(ctx context.Context, _ *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	if c.symbol == "" {
		fmt.Fprintln(os.Stderr, "Error: -s is required")
		return subcommands.ExitUsageError
	}
	return run(ctx, args, func(ctx context.Context, client *grpcadapter.PortfolioClient, o *Options) (string, error) {
		id, code, err := resolveSymbol(ctx, client, c.symbol)
		if err != nil {
			return "", err
		}
		req, err := request(map[string]any{"symbol_id": id})
		if err != nil {
			return "", err
		}
		resp, err := client.Call(ctx, grpcadapter.MethodGetPerformance, req)
		if err != nil {
			return "", err
		}
		return renderPerformance(code, resp.AsMap(), o.Currency), nil
	})
}

type ratesCmd struct{}

func (*ratesCmd) Name() string           { return "rates" }
func (*ratesCmd) Synopsis() string       { return "display live USD/TRY and BTC/USD rates" }
func (*ratesCmd) Usage() string          { return "folioctl rates\n" }
func (*ratesCmd) SetFlags(*flag.FlagSet) {}

func (*ratesCmd) Execute(ctx context.Context, _ *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	return run(ctx, args, func(ctx context.Context, c *grpcadapter.PortfolioClient, _ *Options) (string, error) {
		resp, err := c.Call(ctx, grpcadapter.MethodGetMarketRates, nil)
		if err != nil {
			return "", err
		}
		return renderRates(resp.AsMap()), nil
	})
}

type symbolsCmd struct{}

func (*symbolsCmd) Name() string           { return "symbols" }
func (*symbolsCmd) Synopsis() string       { return "list registered symbols" }
func (*symbolsCmd) Usage() string          { return "folioctl symbols\n" }
func (*symbolsCmd) SetFlags(*flag.FlagSet) {}

func (*symbolsCmd) Execute(ctx context.Context, _ *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	return run(ctx, args, func(ctx context.Context, c *grpcadapter.PortfolioClient, _ *Options) (string, error) {
		resp, err := c.Call(ctx, grpcadapter.MethodListSymbols, nil)
		if err != nil {
			return "", err
		}
		return renderSymbols(resp.AsMap()), nil
	})
}

// addSymbolCmd registers a symbol, or updates one when -id is set.
type addSymbolCmd struct {
	id, name, code, unit, kind, subCode, market, note string
}

func (*addSymbolCmd) Name() string     { return "add-symbol" }
func (*addSymbolCmd) Synopsis() string { return "register or update a symbol" }
func (*addSymbolCmd) Usage() string {
	return `folioctl add-symbol -name <name> [-code <code>] [-unit TL|DOVIZ|KARMA] [-kind <kind>] [-market B|K|F] [-id <id>]

  Registers a new symbol. With -id, replaces the fields of an existing one.
`
}

func (c *addSymbolCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.id, "id", "", "update the symbol with this ID")
	f.StringVar(&c.name, "name", "", "display name")
	f.StringVar(&c.code, "code", "", "quote lookup code, e.g. THYAO or BTCUSDT")
	f.StringVar(&c.unit, "unit", "", "settlement unit: TL, DOVIZ or KARMA")
	f.StringVar(&c.kind, "kind", "", "instrument kind, e.g. BIST or COIN")
	f.StringVar(&c.subCode, "sub", "", "sub code")
	f.StringVar(&c.market, "market", "", "price source: B (BIST), K (crypto) or F (fund)")
	f.StringVar(&c.note, "note", "", "free text note")
}

func (c *addSymbolCmd) Execute(ctx context.Context, _ *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	return run(ctx, args, func(ctx context.Context, client *grpcadapter.PortfolioClient, _ *Options) (string, error) {
		fields := map[string]any{
			"name":     c.name,
			"code":     c.code,
			"unit":     c.unit,
			"kind":     c.kind,
			"sub_code": c.subCode,
			"market":   c.market,
			"note":     c.note,
		}
		method := grpcadapter.MethodCreateSymbol
		if c.id != "" {
			fields["id"] = c.id
			method = grpcadapter.MethodUpdateSymbol
		}
		req, err := request(fields)
		if err != nil {
			return "", err
		}
		resp, err := client.Call(ctx, method, req)
		if err != nil {
			return "", err
		}
		return renderSymbols(map[string]any{"symbols": []any{resp.AsMap()}}), nil
	})
}

type rmSymbolCmd struct {
	id string
}

func (*rmSymbolCmd) Name() string     { return "rm-symbol" }
func (*rmSymbolCmd) Synopsis() string { return "delete a symbol and all its transactions" }
func (*rmSymbolCmd) Usage() string    { return "folioctl rm-symbol -id <id>\n" }

func (c *rmSymbolCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.id, "id", "", "symbol ID")
}

func (c *rmSymbolCmd) Execute(ctx context.Context, _ *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	return run(ctx, args, func(ctx context.Context, client *grpcadapter.PortfolioClient, _ *Options) (string, error) {
		req, err := request(map[string]any{"id": c.id})
		if err != nil {
			return "", err
		}
		if _, err := client.Call(ctx, grpcadapter.MethodDeleteSymbol, req); err != nil {
			return "", err
		}
		return "Deleted symbol `" + c.id + "`.", nil
	})
}

type txCmd struct {
	symbol string
}

func (*txCmd) Name() string     { return "tx" }
func (*txCmd) Synopsis() string { return "list transactions, newest first" }
func (*txCmd) Usage() string    { return "folioctl tx [-s <symbol id|code>]\n" }

func (c *txCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.symbol, "s", "", "only list transactions of this symbol")
}

func (c *txCmd) Execute(ctx context.Context, _ *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	return run(ctx, args, func(ctx context.Context, client *grpcadapter.PortfolioClient, _ *Options) (string, error) {
		fields := map[string]any{}
		if c.symbol != "" {
			id, _, err := resolveSymbol(ctx, client, c.symbol)
			if err != nil {
				return "", err
			}
			fields["symbol_id"] = id
		}
		req, err := request(fields)
		if err != nil {
			return "", err
		}
		resp, err := client.Call(ctx, grpcadapter.MethodListTransactions, req)
		if err != nil {
			return "", err
		}
		return renderTransactions(resp.AsMap()), nil
	})
}

// addTxCmd records a transaction, or updates one when -id is set.
type addTxCmd struct {
	id, symbol, date, kind, price, quantity, balance, note string
}

func (*addTxCmd) Name() string     { return "add-tx" }
func (*addTxCmd) Synopsis() string { return "record or update a BUY or SELL" }
func (*addTxCmd) Usage() string {
	return `folioctl add-tx -s <symbol id|code> -d YYYY-MM-DD -t BUY|SELL -p <price> -q <quantity> [-id <id>]
`
}

func (c *addTxCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.id, "id", "", "update the transaction with this ID")
	f.StringVar(&c.symbol, "s", "", "symbol ID or code")
	f.StringVar(&c.date, "d", "", "trade date")
	f.StringVar(&c.kind, "t", "BUY", "BUY or SELL")
	f.StringVar(&c.price, "p", "", "unit price in the symbol's currency")
	f.StringVar(&c.quantity, "q", "", "quantity")
	f.StringVar(&c.balance, "b", "", "advisory running balance (BUY only)")
	f.StringVar(&c.note, "note", "", "free text note")
}

func (c *addTxCmd) Execute(ctx context.Context, _ *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	if c.symbol == "" || c.date == "" || c.price == "" || c.quantity == "" {
		fmt.Fprintln(os.Stderr, "Error: -s, -d, -p and -q are required")
		return subcommands.ExitUsageError
	}
	return run(ctx, args, func(ctx context.Context, client *grpcadapter.PortfolioClient, _ *Options) (string, error) {
		symbolID, _, err := resolveSymbol(ctx, client, c.symbol)
		if err != nil {
			return "", err
		}
		fields := map[string]any{
			"symbol_id": symbolID,
			"date":      c.date,
			"type":      c.kind,
			"price":     c.price,
			"quantity":  c.quantity,
			"note":      c.note,
		}
		if c.balance != "" {
			fields["balance"] = c.balance
		}
		method := grpcadapter.MethodCreateTransaction
		if c.id != "" {
			fields["id"] = c.id
			method = grpcadapter.MethodUpdateTransaction
		}
		req, err := request(fields)
		if err != nil {
			return "", err
		}
		resp, err := client.Call(ctx, method, req)
		if err != nil {
			return "", err
		}
		return renderTransactions(map[string]any{"transactions": []any{resp.AsMap()}}), nil
	})
}

type rmTxCmd struct {
	id string
}

func (*rmTxCmd) Name() string     { return "rm-tx" }
func (*rmTxCmd) Synopsis() string { return "delete a transaction" }
func (*rmTxCmd) Usage() string    { return "folioctl rm-tx -id <id>\n" }

func (c *rmTxCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.id, "id", "", "transaction ID")
}

func (c *rmTxCmd) Execute(ctx context.Context, _ *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	return run(ctx, args, func(ctx context.Context, client *grpcadapter.PortfolioClient, _ *Options) (string, error) {
		req, err := request(map[string]any{"id": c.id})
		if err != nil {
			return "", err
		}
		if _, err := client.Call(ctx, grpcadapter.MethodDeleteTransaction, req); err != nil {
			return "", err
		}
		return "Deleted transaction `" + c.id + "`.", nil
	})
}

// resolveSymbol accepts a symbol ID or a code and returns both
func resolveSymbol(ctx context.Context, client *grpcadapter.PortfolioClient, ref string) (string, string, error) {
	resp, err := client.Call(ctx, grpcadapter.MethodListSymbols, nil)
	if err != nil {
		return "", "", err
	}
	return findSymbol(resp.AsMap(), ref)
}

func findSymbol(resp map[string]any, ref string) (string, string, error) {
	for _, s := range items(resp, "symbols") {
		id, code := field(s, "id"), field(s, "code")
		if id == ref || (code != "" && strings.EqualFold(code, strings.TrimSpace(ref))) {
			if code == "" {
				code = field(s, "name")
			}
			return id, code, nil
		}
	}
	return "", "", fmt.Errorf("unknown symbol %q", ref)
}
