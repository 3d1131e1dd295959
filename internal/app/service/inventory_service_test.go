package service

import (
	"context"
	"testing"

	"github.com/ikkim/storefront-backend/internal/app/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestInventoryService_Deduct(t *testing.T) {
	ctx := context.Background()
	p := setupPipeline(t)
	catalog := seedCatalog(t, p.db)
	variant := seedVariant(t, p.db, seedProduct(t, p.db, catalog, "Tee", 100), "TEE-M")
	user := seedUser(t, p.db, "alice")

	lotA := seedLot(t, p.db, variant, 3)
	lotB := seedLot(t, p.db, variant, 5)

	order := seedOrder(t, p.db, user, model.OrderStatusInitial, day1, itemSpec{variant: variant, quantity: 6})
	item := &order.Items[0]

	t.Run("oldest lot is consumed first", func(t *testing.T) {
		require.NoError(t, p.db.Transaction(func(tx *gorm.DB) error {
			return p.inventory.Deduct(ctx, tx, item)
		}))

		assert.Equal(t, 0, lotQuantity(t, p.db, lotA.ID))
		assert.Equal(t, 2, lotQuantity(t, p.db, lotB.ID))

		var entries []model.OrderItemVariantInvoiceQuantity
		require.NoError(t, p.db.Where("order_item_id = ?", item.ID).Order("id ASC").Find(&entries).Error)
		require.Len(t, entries, 2)
		assert.Equal(t, 3, entries[0].DeductedQuantity)
		assert.Equal(t, 3, entries[1].DeductedQuantity)

		available, err := p.inventory.Available(ctx, variant.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(2), available)
	})

	t.Run("deducting again replaces the previous entries", func(t *testing.T) {
		item.Quantity = 4
		require.NoError(t, p.db.Transaction(func(tx *gorm.DB) error {
			return p.inventory.Deduct(ctx, tx, item)
		}))

		assert.Equal(t, 0, lotQuantity(t, p.db, lotA.ID))
		assert.Equal(t, 4, lotQuantity(t, p.db, lotB.ID))
	})

	t.Run("short stock leaves lots untouched", func(t *testing.T) {
		item.Quantity = 9
		err := p.db.Transaction(func(tx *gorm.DB) error {
			return p.inventory.Deduct(ctx, tx, item)
		})
		assert.ErrorIs(t, err, ErrOutOfStock)

		assert.Equal(t, 0, lotQuantity(t, p.db, lotA.ID))
		assert.Equal(t, 4, lotQuantity(t, p.db, lotB.ID))
	})

	t.Run("restore returns every unit", func(t *testing.T) {
		require.NoError(t, p.db.Transaction(func(tx *gorm.DB) error {
			return p.inventory.Restore(ctx, tx, item.ID)
		}))

		assert.Equal(t, 3, lotQuantity(t, p.db, lotA.ID))
		assert.Equal(t, 5, lotQuantity(t, p.db, lotB.ID))

		var count int64
		require.NoError(t, p.db.Model(&model.OrderItemVariantInvoiceQuantity{}).
			Where("order_item_id = ?", item.ID).Count(&count).Error)
		assert.Zero(t, count)

		// second restore is a no-op
		require.NoError(t, p.db.Transaction(func(tx *gorm.DB) error {
			return p.inventory.Restore(ctx, tx, item.ID)
		}))
		assert.Equal(t, 3, lotQuantity(t, p.db, lotA.ID))
	})
}

func TestInventoryService_Deduct_InvalidInput(t *testing.T) {
	ctx := context.Background()
	p := setupPipeline(t)

	err := p.inventory.Deduct(ctx, p.db, &model.OrderItem{ID: 1, VariantID: uintPtr(1), Quantity: 0})
	assert.ErrorIs(t, err, ErrInvalidQuantity)

	// items whose variant was deleted hold no stock
	assert.NoError(t, p.inventory.Deduct(ctx, p.db, &model.OrderItem{ID: 1, Quantity: 2}))
}

func TestInventoryService_Reconcile(t *testing.T) {
	ctx := context.Background()
	p := setupPipeline(t)
	catalog := seedCatalog(t, p.db)
	variant := seedVariant(t, p.db, seedProduct(t, p.db, catalog, "Tee", 100), "TEE-M")
	user := seedUser(t, p.db, "alice")
	lot := seedLot(t, p.db, variant, 10)

	order := seedOrder(t, p.db, user, model.OrderStatusCancel, day1, itemSpec{variant: variant, quantity: 4})
	item := &order.Items[0]

	reconcile := func(from, to model.OrderStatus) {
		require.NoError(t, p.db.Transaction(func(tx *gorm.DB) error {
			return p.inventory.Reconcile(ctx, tx, item, from, to)
		}))
	}

	reconcile(model.OrderStatusCancel, model.OrderStatusInitial)
	assert.Equal(t, 6, lotQuantity(t, p.db, lot.ID))

	// moving between active statuses holds the same stock
	reconcile(model.OrderStatusInitial, model.OrderStatusSent)
	assert.Equal(t, 6, lotQuantity(t, p.db, lot.ID))

	reconcile(model.OrderStatusSent, model.OrderStatusRejected)
	assert.Equal(t, 10, lotQuantity(t, p.db, lot.ID))

	reconcile(model.OrderStatusRejected, model.OrderStatusCancel)
	assert.Equal(t, 10, lotQuantity(t, p.db, lot.ID))
}

func TestInventoryService_Lots(t *testing.T) {
	ctx := context.Background()
	p := setupPipeline(t)
	catalog := seedCatalog(t, p.db)
	variant := seedVariant(t, p.db, seedProduct(t, p.db, catalog, "Tee", 100), "TEE-M")
	seedLot(t, p.db, variant, 2)
	seedLot(t, p.db, variant, 7)

	lots, err := p.inventory.Lots(ctx, variant.ID)
	require.NoError(t, err)
	require.Len(t, lots, 2)
	assert.Equal(t, 2, lots[0].Quantity)
	assert.Equal(t, 7, lots[1].Quantity)

	available, err := p.inventory.Available(ctx, variant.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(9), available)
}

func uintPtr(v uint) *uint {
	return &v
}
