package fifo

import (
	"bytes"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/simaogato/folio-backend/internal/domain"
)

// SameDayPolicy decides how transactions sharing a date are ordered
type SameDayPolicy string

const (
	// SameDayInOrder applies same-day transactions strictly in insertion order.
	// A BUY recorded after a same-day SELL is not available to that SELL.
	SameDayInOrder SameDayPolicy = "in_order"
	// SameDayBuysFirst applies every BUY of a day before any SELL of that day.
	SameDayBuysFirst SameDayPolicy = "buys_first"
)

// ParseSameDayPolicy validates a configured policy name
func ParseSameDayPolicy(s string) (SameDayPolicy, error) {
	switch SameDayPolicy(s) {
	case SameDayInOrder, SameDayBuysFirst:
		return SameDayPolicy(s), nil
	case "":
		return SameDayInOrder, nil
	}
	return "", fmt.Errorf("unknown same day policy %q", s)
}

type options struct {
	policy SameDayPolicy
	now    func() time.Time
}

// Option configures a Run
type Option func(*options)

// WithSameDayPolicy selects the same-day ordering policy
func WithSameDayPolicy(p SameDayPolicy) Option {
	return func(o *options) {
		o.policy = p
	}
}

// WithClock sets the clock stamped on the holding's ComputedAt
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

// Run replays the history of one symbol and returns its open lots and realizations.
// Logic:
//  1. Order a copy of the history by Date, then Seq, then ID (the policy may lift BUYs within a day)
//  2. BUY: push a lot {Remaining = Quantity, UnitCost = Price} to the back of the queue
//  3. SELL: take min(lot.Remaining, left) from the front lot until the sale is filled,
//     recording one Realization per lot touched; exhausted lots leave the queue
//  4. A SELL the queue cannot fill aborts the run with *domain.InsufficientInventoryError
//
// Run is a pure function of its input; it never mutates the given transactions and
// returns no holding on error.
func Run(symbolID uuid.UUID, txs []*domain.Transaction, opts ...Option) (*domain.Holding, error) {
	o := options{policy: SameDayInOrder, now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}

	ordered, err := order(symbolID, txs, o.policy)
	if err != nil {
		return nil, err
	}

	var q queue
	var realizations []domain.Realization

	for _, tx := range ordered {
		switch tx.Type {
		case domain.TradeBuy:
			q.push(tx)
		case domain.TradeSell:
			taken, err := q.consume(symbolID, tx)
			if err != nil {
				return nil, err
			}
			realizations = append(realizations, taken...)
		default:
			return nil, fmt.Errorf("%w: transaction %s has type %q", domain.ErrMalformedTransaction, tx.ID, tx.Type)
		}
	}

	return &domain.Holding{
		SymbolID:     symbolID,
		Lots:         q.open(),
		Realizations: realizations,
		ComputedAt:   o.now(),
	}, nil
}

// order returns a sorted copy of the history. The input slice is left untouched.
func order(symbolID uuid.UUID, txs []*domain.Transaction, policy SameDayPolicy) ([]domain.Transaction, error) {
	ordered := make([]domain.Transaction, 0, len(txs))
	for _, tx := range txs {
		if tx.SymbolID != symbolID {
			return nil, fmt.Errorf("%w: transaction %s belongs to symbol %s, not %s",
				domain.ErrMalformedTransaction, tx.ID, tx.SymbolID, symbolID)
		}
		if tx.Quantity.IsNegative() || tx.Price.IsNegative() {
			return nil, fmt.Errorf("%w: transaction %s has a negative price or quantity",
				domain.ErrMalformedTransaction, tx.ID)
		}
		c := *tx
		c.Date = domain.Day(c.Date)
		ordered = append(ordered, c)
	}

	sort.SliceStable(ordered, func(i, j int) bool {
		a, b := ordered[i], ordered[j]
		if !a.Date.Equal(b.Date) {
			return a.Date.Before(b.Date)
		}
		if policy == SameDayBuysFirst && a.Type != b.Type {
			return a.Type == domain.TradeBuy
		}
		if a.Seq != b.Seq {
			return a.Seq < b.Seq
		}
		return bytes.Compare(a.ID[:], b.ID[:]) < 0
	})
	return ordered, nil
}

// queue holds the open lots of one symbol, oldest first
type queue struct {
	lots []domain.Lot
	head int
}

func (q *queue) push(tx domain.Transaction) {
	if tx.Quantity.IsZero() {
		return
	}
	q.lots = append(q.lots, domain.Lot{
		TransactionID:    tx.ID,
		Date:             tx.Date,
		OriginalQuantity: tx.Quantity,
		Remaining:        tx.Quantity,
		UnitCost:         tx.Price,
	})
}

func (q *queue) available() decimal.Decimal {
	total := decimal.Zero
	for _, l := range q.lots[q.head:] {
		total = total.Add(l.Remaining)
	}
	return total
}

// consume fills a SELL from the front of the queue. The fill is checked before any lot
// is touched, so a rejected SELL leaves the queue exactly as it was.
func (q *queue) consume(symbolID uuid.UUID, tx domain.Transaction) ([]domain.Realization, error) {
	if tx.Quantity.IsZero() {
		return nil, nil
	}

	available := q.available()
	if available.LessThan(tx.Quantity) {
		return nil, &domain.InsufficientInventoryError{
			SymbolID:      symbolID,
			TransactionID: tx.ID,
			Requested:     tx.Quantity,
			Available:     available,
			Shortfall:     tx.Quantity.Sub(available),
		}
	}

	var taken []domain.Realization
	left := tx.Quantity
	for left.IsPositive() {
		front := &q.lots[q.head]
		qty := decimal.Min(front.Remaining, left)

		taken = append(taken, domain.Realization{
			SellTransactionID: tx.ID,
			LotTransactionID:  front.TransactionID,
			Date:              tx.Date,
			Quantity:          qty,
			UnitCost:          front.UnitCost,
			SellPrice:         tx.Price,
		})

		front.Remaining = front.Remaining.Sub(qty)
		left = left.Sub(qty)
		if front.Remaining.IsZero() {
			q.head++
		}
	}
	return taken, nil
}

func (q *queue) open() []domain.Lot {
	lots := make([]domain.Lot, len(q.lots)-q.head)
	copy(lots, q.lots[q.head:])
	return lots
}
