package service

import (
	"context"
	"testing"

	"github.com/ikkim/storefront-backend/internal/app/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type syncFixture struct {
	first  *model.Order // day1, 3 x 100 at 15%
	second *model.Order // day2, 2 x 200
}

func seedSyncOrders(t *testing.T, p *pipeline) syncFixture {
	catalog := seedCatalog(t, p.db)
	tee := seedVariant(t, p.db, seedProduct(t, p.db, catalog, "Tee", 100), "TEE-M")
	hoodie := seedVariant(t, p.db, seedProduct(t, p.db, catalog, "Hoodie", 200), "HOOD-L")
	user := seedUser(t, p.db, "alice")

	return syncFixture{
		first:  seedOrder(t, p.db, user, model.OrderStatusDone, day1, itemSpec{variant: tee, quantity: 3, discount: 15}),
		second: seedOrder(t, p.db, user, model.OrderStatusDone, day2, itemSpec{variant: hoodie, quantity: 2}),
	}
}

func TestSyncService_SyncOrders(t *testing.T) {
	ctx := context.Background()
	p := setupPipeline(t)
	fx := seedSyncOrders(t, p)

	report, err := p.sync.SyncOrders(ctx, SyncOptions{})
	require.NoError(t, err)

	assert.Equal(t, 2, report.OrdersSynced)
	assert.Equal(t, model.TableCount{Created: 2}, report.DimDate)
	assert.Equal(t, model.TableCount{Created: 1}, report.DimUser)
	assert.Equal(t, model.TableCount{Created: 2}, report.DimProductBase)
	assert.Equal(t, model.TableCount{Created: 2}, report.DimVariantOrder)
	assert.Equal(t, model.TableCount{Created: 2}, report.FactSales)

	fact := factFor(t, p.db, fx.first.ID)
	assert.Equal(t, int64(300), fact.TotalPrice)
	assert.Equal(t, int64(255), fact.TotalPriceAfterDiscount)
	assert.Equal(t, model.OrderStatusDone, fact.Status)
	assert.False(t, fact.ExcludeFromAnalytics)
	assert.Len(t, fact.Variants, 1)

	assert.Empty(t, loadUnsynced(t, p))
	assert.Equal(t, []string{EventSyncCompleted}, p.publisher.types())

	t.Run("second run finds nothing", func(t *testing.T) {
		again, err := p.sync.SyncOrders(ctx, SyncOptions{})
		require.NoError(t, err)
		assert.Equal(t, &SyncReport{}, again)
		assert.Len(t, p.publisher.types(), 1)
	})

	t.Run("verify matches", func(t *testing.T) {
		result, err := p.sync.VerifyFactSalesTotals(ctx, nil)
		require.NoError(t, err)
		assert.Equal(t, &VerifyResult{Expected: 655, Actual: 655, Match: true}, result)

		cancelled := model.OrderStatusCancel
		result, err = p.sync.VerifyFactSalesTotals(ctx, &cancelled)
		require.NoError(t, err)
		assert.Equal(t, &VerifyResult{Expected: 0, Actual: 0, Match: true}, result)
	})
}

func TestSyncService_SyncOrders_ItemEdit(t *testing.T) {
	ctx := context.Background()
	p := setupPipeline(t)
	fx := seedSyncOrders(t, p)

	_, err := p.sync.SyncOrders(ctx, SyncOptions{})
	require.NoError(t, err)

	item := fx.first.Items[0]
	item.Quantity = 2
	item.Recalculate()
	require.NoError(t, p.db.Model(&item).Updates(map[string]interface{}{
		"quantity":             item.Quantity,
		"total_price":          item.TotalPrice,
		"total_after_discount": item.TotalAfterDiscount,
	}).Error)
	require.NoError(t, p.orderRepo.MarkUnsynced(fx.first.ID))

	report, err := p.sync.SyncOrders(ctx, SyncOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, report.OrdersSynced)
	assert.Equal(t, model.TableCount{Existing: 1}, report.FactSales)

	fact := factFor(t, p.db, fx.first.ID)
	assert.Equal(t, int64(200), fact.TotalPrice)
	assert.Equal(t, int64(170), fact.TotalPriceAfterDiscount)

	result, err := p.sync.VerifyFactSalesTotals(ctx, nil)
	require.NoError(t, err)
	assert.True(t, result.Match)
	assert.Equal(t, int64(570), result.Actual)
}

func TestSyncService_Verify_EditedOrderAwaitingResync(t *testing.T) {
	ctx := context.Background()
	p := setupPipeline(t)
	fx := seedSyncOrders(t, p)

	_, err := p.sync.SyncOrders(ctx, SyncOptions{})
	require.NoError(t, err)

	seedLot(t, p.db, fx.first.Items[0].Variant, 5)
	quantity := 2
	_, err = p.orders.UpdateOrderItem(ctx, fx.first.ID, fx.first.Items[0].ID, UpdateOrderItemInput{Quantity: &quantity})
	require.NoError(t, err)

	unsynced := loadUnsynced(t, p)
	require.Len(t, unsynced, 1)
	assert.Equal(t, fx.first.ID, unsynced[0].ID)

	result, err := p.sync.VerifyFactSalesTotals(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, &VerifyResult{Expected: 570, Actual: 570, Match: true}, result)

	done := model.OrderStatusDone
	result, err = p.sync.VerifyFactSalesTotals(ctx, &done)
	require.NoError(t, err)
	assert.Equal(t, &VerifyResult{Expected: 570, Actual: 570, Match: true}, result)
}

func TestSyncService_SyncOrders_StatusFilter(t *testing.T) {
	ctx := context.Background()
	p := setupPipeline(t)
	catalog := seedCatalog(t, p.db)
	variant := seedVariant(t, p.db, seedProduct(t, p.db, catalog, "Tee", 100), "TEE-M")
	user := seedUser(t, p.db, "alice")

	seedOrder(t, p.db, user, model.OrderStatusDone, day1, itemSpec{variant: variant, quantity: 1})
	pending := seedOrder(t, p.db, user, model.OrderStatusInitial, day1, itemSpec{variant: variant, quantity: 1})

	done := model.OrderStatusDone
	report, err := p.sync.SyncOrders(ctx, SyncOptions{Status: &done})
	require.NoError(t, err)
	assert.Equal(t, 1, report.OrdersSynced)

	remaining := loadUnsynced(t, p)
	require.Len(t, remaining, 1)
	assert.Equal(t, pending.ID, remaining[0].ID)
}

func TestSyncService_SyncOrders_LockHeld(t *testing.T) {
	p := setupPipeline(t)
	seedSyncOrders(t, p)
	p.locker.held[LockKeySync] = true

	_, err := p.sync.SyncOrders(context.Background(), SyncOptions{})
	assert.ErrorIs(t, err, ErrSyncInProgress)
	assert.Len(t, loadUnsynced(t, p), 2)
	assert.Empty(t, p.publisher.types())
}
