package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/charmbracelet/glamour"
	"github.com/shopspring/decimal"
)

const missing = "-"

// printMarkdown renders md for the terminal, falling back to the raw text
func printMarkdown(w io.Writer, md string, plain bool) {
	if !plain {
		r, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(140))
		if err == nil {
			if out, err := r.Render(md); err == nil {
				fmt.Fprint(w, out)
				return
			}
		}
	}
	fmt.Fprintln(w, md)
}

// field reads a string field of a response map; null and absent read as ""
func field(m map[string]any, name string) string {
	switch v := m[name].(type) {
	case string:
		return v
	case float64:
		return decimal.NewFromFloat(v).String()
	case bool:
		return fmt.Sprint(v)
	default:
		return ""
	}
}

func items(m map[string]any, name string) []map[string]any {
	raw, _ := m[name].([]any)
	out := make([]map[string]any, 0, len(raw))
	for _, r := range raw {
		if item, ok := r.(map[string]any); ok {
			out = append(out, item)
		}
	}
	return out
}

func parse(s string) (decimal.Decimal, bool) {
	if s == "" {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(s)
	return d, err == nil
}

// formatMoney displays a decimal string as an amount of currency, e.g. $1,234.50
func formatMoney(s, currency string) string {
	d, ok := parse(s)
	if !ok {
		return missing
	}
	cur := money.GetCurrency(currency)
	if cur == nil {
		return d.StringFixed(2) + " " + currency
	}
	minor := d.Shift(int32(cur.Fraction)).Round(0)
	return money.New(minor.IntPart(), cur.Code).Display()
}

// formatPercent displays a percentage with its sign, e.g. +12.5%
func formatPercent(s string) string {
	d, ok := parse(s)
	if !ok {
		return missing
	}
	out := d.StringFixed(2) + "%"
	if d.IsPositive() {
		out = "+" + out
	}
	return out
}

func formatQuantity(s string) string {
	d, ok := parse(s)
	if !ok {
		return missing
	}
	return d.String()
}

func orMissing(s string) string {
	if s == "" {
		return missing
	}
	return s
}

// table renders a markdown table; cells must not contain pipes
func table(headers []string, rows [][]string) string {
	var b strings.Builder
	b.WriteString("| " + strings.Join(headers, " | ") + " |\n")
	sep := make([]string, len(headers))
	for i := range sep {
		sep[i] = "---"
	}
	b.WriteString("|" + strings.Join(sep, "|") + "|\n")
	for _, r := range rows {
		cells := make([]string, len(r))
		for i, c := range r {
			cells[i] = strings.ReplaceAll(c, "|", "/")
		}
		b.WriteString("| " + strings.Join(cells, " | ") + " |\n")
	}
	return b.String()
}

func renderGrid(resp map[string]any, currency string) string {
	rows := items(resp, "rows")
	if len(rows) == 0 {
		return "# Holdings\n\nNo holdings. Run `folioctl recompute` first.\n"
	}

	out := make([][]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, []string{
			field(r, "code"),
			field(r, "name"),
			formatQuantity(field(r, "balance")),
			formatMoney(field(r, "average_cost"), field(r, "currency")),
			formatMoney(field(r, "current_price"), currency),
			formatMoney(field(r, "total_cost"), currency),
			formatMoney(field(r, "market_value"), currency),
			formatMoney(field(r, "profit_loss"), currency),
			formatPercent(field(r, "profit_loss_pct")),
			field(r, "status"),
		})
	}
	return "# Holdings\n\n" + table(
		[]string{"Code", "Name", "Balance", "Avg Cost", "Price", "Cost", "Value", "P&L", "P&L %", "Status"},
		out,
	)
}

func renderRollups(title string, resp map[string]any, currency string) string {
	out := [][]string{}
	for _, r := range items(resp, "rollups") {
		out = append(out, []string{
			field(r, "key"),
			field(r, "symbol_count"),
			formatMoney(field(r, "total_cost"), currency),
			formatMoney(field(r, "total_value"), currency),
			field(r, "incomplete"),
		})
	}
	return "# " + title + "\n\n" + table([]string{"Key", "Symbols", "Cost", "Value", "Incomplete"}, out)
}

func renderSummary(resp map[string]any, currency string) string {
	return "# Portfolio\n\n" + table([]string{"Value", "Cost", "P&L", "P&L %", "Incomplete"}, [][]string{{
		formatMoney(field(resp, "total_value"), currency),
		formatMoney(field(resp, "total_cost"), currency),
		formatMoney(field(resp, "profit_loss"), currency),
		formatPercent(field(resp, "profit_loss_pct")),
		field(resp, "incomplete"),
	}})
}

func renderHistory(resp map[string]any, currency string) string {
	out := [][]string{}
	for _, s := range items(resp, "snapshots") {
		out = append(out, []string{
			field(s, "date"),
			formatMoney(field(s, "value"), currency),
			formatMoney(field(s, "cost"), currency),
		})
	}
	return "# History\n\n" + table([]string{"Date", "Value", "Cost"}, out)
}

func renderPerformance(code string, resp map[string]any, currency string) string {
	return "# Performance of " + code + "\n\n" + table(
		[]string{"Latest", "1D", "5D", "1M", "3M", "First"},
		[][]string{{
			formatMoney(field(resp, "latest"), currency),
			formatPercent(field(resp, "day_1")),
			formatPercent(field(resp, "day_5")),
			formatPercent(field(resp, "month_1")),
			formatPercent(field(resp, "month_3")),
			formatPercent(field(resp, "since_first")),
		}},
	)
}

func renderRates(resp map[string]any) string {
	return "# Market Rates\n\n" + table([]string{"Pair", "Rate"}, [][]string{
		{"USD/TRY", formatQuantity(field(resp, "usd_try"))},
		{"BTC/USD", formatQuantity(field(resp, "btc_usd"))},
	})
}

func renderSymbols(resp map[string]any) string {
	out := [][]string{}
	for _, s := range items(resp, "symbols") {
		out = append(out, []string{
			field(s, "id"),
			field(s, "name"),
			orMissing(field(s, "code")),
			orMissing(field(s, "unit")),
			orMissing(field(s, "kind")),
			orMissing(field(s, "market")),
		})
	}
	return "# Symbols\n\n" + table([]string{"ID", "Name", "Code", "Unit", "Kind", "Market"}, out)
}

func renderTransactions(resp map[string]any) string {
	out := [][]string{}
	for _, t := range items(resp, "transactions") {
		out = append(out, []string{
			field(t, "date"),
			field(t, "type"),
			formatQuantity(field(t, "quantity")),
			formatQuantity(field(t, "price")),
			orMissing(field(t, "note")),
			field(t, "id"),
		})
	}
	return "# Transactions\n\n" + table([]string{"Date", "Type", "Quantity", "Price", "Note", "ID"}, out)
}

func renderRecompute(resp map[string]any, currency string) string {
	var b strings.Builder
	succeeded, _ := resp["succeeded"].([]any)
	fmt.Fprintf(&b, "# Recompute\n\n%d symbols computed.\n\n", len(succeeded))

	if partial := items(resp, "partial"); len(partial) > 0 {
		out := make([][]string, 0, len(partial))
		for _, p := range partial {
			out = append(out, []string{orMissing(field(p, "code")), field(p, "status")})
		}
		b.WriteString("## Incomplete\n\n" + table([]string{"Code", "Status"}, out) + "\n")
	}
	if failed := items(resp, "failed"); len(failed) > 0 {
		out := make([][]string, 0, len(failed))
		for _, f := range failed {
			out = append(out, []string{orMissing(field(f, "code")), field(f, "error")})
		}
		b.WriteString("## Failed\n\n" + table([]string{"Code", "Error"}, out) + "\n")
	}
	if summary, ok := resp["summary"].(map[string]any); ok {
		b.WriteString(strings.Replace(renderSummary(summary, currency), "# Portfolio", "## Portfolio", 1))
	}
	return b.String()
}

func renderPriceBatch(resp map[string]any, currency string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Prices\n\nUSD/TRY: %s\n\n", formatQuantity(field(resp, "rate")))

	updated := [][]string{}
	for _, u := range items(resp, "succeeded") {
		updated = append(updated, []string{
			field(u, "code"),
			formatMoney(field(u, "old_price"), currency),
			formatMoney(field(u, "new_price"), currency),
		})
	}
	b.WriteString(table([]string{"Code", "Old", "New"}, updated))

	if failed := items(resp, "failed"); len(failed) > 0 {
		out := make([][]string, 0, len(failed))
		for _, f := range failed {
			out = append(out, []string{orMissing(field(f, "code")), field(f, "error")})
		}
		b.WriteString("\n## Failed\n\n" + table([]string{"Code", "Error"}, out))
	}
	return b.String()
}
