package snapshot

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/simaogato/folio-backend/internal/domain"
	"github.com/simaogato/folio-backend/internal/domain/mocks"
)

func TestWrite_UpsertsDayInLocation(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(mocks.SnapshotRepository)

	istanbul := time.FixedZone("TRT", 3*60*60)
	writer := NewWriter(mockRepo, istanbul)

	// 22:30 UTC on June 1 is already June 2 in Istanbul
	at := time.Date(2025, 6, 1, 22, 30, 0, 0, time.UTC)
	cost := decimal.NewFromInt(1000)
	summary := domain.PortfolioSummary{
		TotalCost:  &cost,
		TotalValue: decimal.NewFromInt(1250),
	}

	mockRepo.On("Upsert", ctx, mock.MatchedBy(func(s *domain.PortfolioSnapshot) bool {
		return s.Date.Equal(time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)) &&
			s.Value.Equal(decimal.NewFromInt(1250)) &&
			s.Cost != nil && s.Cost.Equal(decimal.NewFromInt(1000))
	})).Return(nil).Twice()

	// Execute twice: same day, same key
	first, err := writer.Write(ctx, summary, at)
	assert.NoError(t, err)
	second, err := writer.Write(ctx, summary, at.Add(time.Hour))
	assert.NoError(t, err)

	assert.Equal(t, first.Date, second.Date)
	mockRepo.AssertExpectations(t)
}

func TestWrite_RepositoryError(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(mocks.SnapshotRepository)
	writer := NewWriter(mockRepo, nil)

	mockRepo.On("Upsert", ctx, mock.Anything).Return(errors.New("database unavailable"))

	snap, err := writer.Write(ctx, domain.PortfolioSummary{}, time.Now())

	assert.Error(t, err)
	assert.Nil(t, snap)
	mockRepo.AssertExpectations(t)
}

func TestWrite_UnknownCost(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(mocks.SnapshotRepository)
	writer := NewWriter(mockRepo, nil)

	summary := domain.PortfolioSummary{
		TotalValue: decimal.NewFromInt(1900),
		Incomplete: 1,
	}

	mockRepo.On("Upsert", ctx, mock.MatchedBy(func(s *domain.PortfolioSnapshot) bool {
		return s.Cost == nil && s.Value.Equal(decimal.NewFromInt(1900))
	})).Return(nil)

	snap, err := writer.Write(ctx, summary, time.Now())

	assert.NoError(t, err)
	assert.Nil(t, snap.Cost)
	mockRepo.AssertExpectations(t)
}
