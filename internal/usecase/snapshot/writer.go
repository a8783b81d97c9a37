package snapshot

import (
	"context"
	"time"

	"github.com/simaogato/folio-backend/internal/domain"
)

// Writer records the daily portfolio value used for history charts
type Writer struct {
	SnapshotRepo domain.SnapshotRepository
	Location     *time.Location
}

// NewWriter creates a new Writer; days are cut in loc
func NewWriter(snapshotRepo domain.SnapshotRepository, loc *time.Location) *Writer {
	if loc == nil {
		loc = time.UTC
	}
	return &Writer{
		SnapshotRepo: snapshotRepo,
		Location:     loc,
	}
}

// Write upserts the snapshot of the day containing at.
// Logic: value and cost come from the portfolio summary, cost staying nil when it is
// unknown; a second write on the same day replaces the first, so re-running a
// recompute never adds rows.
func (w *Writer) Write(ctx context.Context, summary domain.PortfolioSummary, at time.Time) (*domain.PortfolioSnapshot, error) {
	snap := &domain.PortfolioSnapshot{
		Date:  domain.DayIn(at, w.Location),
		Value: summary.TotalValue,
	}
	if summary.TotalCost != nil {
		cost := *summary.TotalCost
		snap.Cost = &cost
	}

	if err := w.SnapshotRepo.Upsert(ctx, snap); err != nil {
		return nil, err
	}

	return snap, nil
}
