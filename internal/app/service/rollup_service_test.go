package service

import (
	"context"
	"testing"
	"time"

	"github.com/ikkim/storefront-backend/internal/app/model"
	"github.com/ikkim/storefront-backend/internal/app/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestRollupService_Rollup(t *testing.T) {
	ctx := context.Background()
	p := setupPipeline(t)
	fx := seedSyncOrders(t, p)

	_, err := p.sync.SyncOrders(ctx, SyncOptions{})
	require.NoError(t, err)

	result, err := p.rollup.Rollup(ctx)
	require.NoError(t, err)
	assert.Equal(t, &RollupResult{FactsRolledUp: 2, DatesTouched: 2, Amount: 655}, result)

	row := analyticsFor(t, p.db, "2024-03-22")
	assert.Equal(t, int64(255), row.TotalOrderQuantity)
	assert.Equal(t, int64(255), row.TotalOrderDone)
	assert.Zero(t, row.TotalOrderCancel)

	row = analyticsFor(t, p.db, "2024-03-23")
	assert.Equal(t, int64(400), row.TotalOrderQuantity)
	assert.Equal(t, int64(400), row.TotalOrderDone)

	assert.True(t, factFor(t, p.db, fx.first.ID).ExcludeFromAnalytics)
	assert.Contains(t, p.publisher.types(), EventRollupCompleted)

	t.Run("facts are counted once", func(t *testing.T) {
		again, err := p.rollup.Rollup(ctx)
		require.NoError(t, err)
		assert.Equal(t, &RollupResult{}, again)
		assert.Equal(t, int64(255), analyticsFor(t, p.db, "2024-03-22").TotalOrderQuantity)
	})

	t.Run("status change retracts and recounts", func(t *testing.T) {
		require.NoError(t, p.db.Transaction(func(tx *gorm.DB) error {
			return p.facts.ApplyStatus(ctx, tx, fx.first.ID, model.OrderStatusCancel)
		}))

		row := analyticsFor(t, p.db, "2024-03-22")
		assert.Zero(t, row.TotalOrderQuantity)
		assert.Zero(t, row.TotalOrderDone)

		fact := factFor(t, p.db, fx.first.ID)
		assert.False(t, fact.ExcludeFromAnalytics)
		assert.Equal(t, model.OrderStatusCancel, fact.Status)

		result, err := p.rollup.Rollup(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, result.FactsRolledUp)

		row = analyticsFor(t, p.db, "2024-03-22")
		assert.Equal(t, int64(255), row.TotalOrderQuantity)
		assert.Zero(t, row.TotalOrderDone)
		assert.Equal(t, int64(255), row.TotalOrderCancel)
	})

	t.Run("list by date range", func(t *testing.T) {
		start := time.Date(2024, 3, 23, 0, 0, 0, 0, time.UTC)
		rows, total, err := p.rollup.ListFactAnalytics(ctx, repository.DateFilter{Start: &start}, repository.Page{})
		require.NoError(t, err)
		assert.Equal(t, int64(1), total)
		require.Len(t, rows, 1)
		assert.Equal(t, int64(400), rows[0].TotalOrderQuantity)

		all, err := p.rollup.ExportFactAnalytics(ctx, repository.DateFilter{})
		require.NoError(t, err)
		assert.Len(t, all, 2)
	})
}

func TestRollupService_Rollup_LockHeld(t *testing.T) {
	ctx := context.Background()
	p := setupPipeline(t)
	fx := seedSyncOrders(t, p)

	_, err := p.sync.SyncOrders(ctx, SyncOptions{})
	require.NoError(t, err)

	p.locker.held[LockKeyRollup] = true
	_, err = p.rollup.Rollup(ctx)
	assert.ErrorIs(t, err, ErrJobInProgress)
	assert.False(t, factFor(t, p.db, fx.first.ID).ExcludeFromAnalytics)
}
