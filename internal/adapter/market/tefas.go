package market

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/net/html"

	"github.com/simaogato/folio-backend/internal/domain"
)

const (
	DefaultTEFASURL = "https://www.tefas.gov.tr"
	lastPriceLabel  = "Son Fiyat"
)

// TEFASSource scrapes the last price of a Turkish investment fund from its TEFAS page.
// Quotes are in TRY.
type TEFASSource struct {
	*client
}

// NewTEFASSource creates a TEFAS price source
func NewTEFASSource(opts ...ClientOption) *TEFASSource {
	return &TEFASSource{client: newClient("tefas", DefaultTEFASURL, opts...)}
}

// Latest returns the last published price of a fund code such as TTE
func (s *TEFASSource) Latest(ctx context.Context, code string) (domain.Quote, error) {
	fund := strings.ToUpper(strings.TrimSpace(code))

	params := url.Values{}
	params.Set("FonKod", fund)

	doc, err := s.getHTML(ctx, "/FonAnaliz.aspx", params)
	if err != nil {
		return domain.Quote{}, err
	}

	text, ok := findLastPrice(doc)
	if !ok {
		return domain.Quote{}, fmt.Errorf("tefas %s: %q not found: %w", fund, lastPriceLabel, domain.ErrPriceSourceUnavailable)
	}

	price, err := parseTurkishDecimal(text)
	if err != nil {
		return domain.Quote{}, fmt.Errorf("tefas %s: %w", fund, err)
	}
	if price, err = positive(s.name, fund, price); err != nil {
		return domain.Quote{}, err
	}

	return domain.Quote{Value: price, Currency: "TRY"}, nil
}

// findLastPrice walks the list items under .top-list and returns the span text of
// the item labelled "Son Fiyat"
func findLastPrice(doc *html.Node) (string, bool) {
	var found string
	var ok bool

	var walk func(n *html.Node, inTopList bool)
	walk = func(n *html.Node, inTopList bool) {
		if ok {
			return
		}
		if n.Type == html.ElementNode && hasClass(n, "top-list") {
			inTopList = true
		}
		if inTopList && n.Type == html.ElementNode && n.Data == "li" &&
			strings.Contains(textContent(n), lastPriceLabel) {
			if span := firstElement(n, "span"); span != nil {
				found = strings.TrimSpace(textContent(span))
				ok = found != ""
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c, inTopList)
		}
	}
	walk(doc, false)

	return found, ok
}

func hasClass(n *html.Node, class string) bool {
	for _, a := range n.Attr {
		if a.Key == "class" {
			for _, c := range strings.Fields(a.Val) {
				if c == class {
					return true
				}
			}
		}
	}
	return false
}

func firstElement(n *html.Node, tag string) *html.Node {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c.Data == tag {
			return c
		}
		if found := firstElement(c, tag); found != nil {
			return found
		}
	}
	return nil
}

func textContent(n *html.Node) string {
	if n.Type == html.TextNode {
		return n.Data
	}
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		b.WriteString(textContent(c))
	}
	return b.String()
}

// parseTurkishDecimal parses numbers written with dot grouping and a decimal comma,
// e.g. "1.441.371,12"
func parseTurkishDecimal(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, ".", "")
	s = strings.ReplaceAll(s, ",", ".")
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid price %q: %w", s, domain.ErrPriceSourceUnavailable)
	}
	return d, nil
}
