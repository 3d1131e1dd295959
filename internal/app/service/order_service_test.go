package service

import (
	"context"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/ikkim/storefront-backend/internal/app/model"
	"github.com/ikkim/storefront-backend/internal/app/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type orderFixture struct {
	p       *pipeline
	user    *model.User
	variant *model.Variant
	lot     *model.VariantInvoiceQuantity
}

func setupOrderServiceTest(t *testing.T) orderFixture {
	p := setupPipeline(t)
	catalog := seedCatalog(t, p.db)
	variant := seedVariant(t, p.db, seedProduct(t, p.db, catalog, "Tee", 100), "TEE-M")

	return orderFixture{
		p:       p,
		user:    seedUser(t, p.db, "alice"),
		variant: variant,
		lot:     seedLot(t, p.db, variant, 10),
	}
}

func TestOrderService_CreateOrder_Success(t *testing.T) {
	fx := setupOrderServiceTest(t)

	order, err := fx.p.orders.CreateOrder(context.Background(), CreateOrderInput{
		UserID: fx.user.ID,
		Items: []OrderItemInput{
			{VariantID: fx.variant.ID, Quantity: 3, DiscountPercent: 15},
		},
	})
	require.NoError(t, err)
	assert.NotZero(t, order.ID)
	assert.Equal(t, model.OrderStatusInitial, order.Status)
	assert.False(t, order.IsSyncedAnalytics)
	require.Len(t, order.Items, 1)
	assert.Equal(t, int64(100), order.Items[0].UnitPrice)
	assert.Equal(t, int64(300), order.Items[0].TotalPrice)
	assert.Equal(t, int64(255), order.Items[0].TotalAfterDiscount)

	// Verify stock decreased
	assert.Equal(t, 7, lotQuantity(t, fx.p.db, fx.lot.ID))
}

func TestOrderService_CreateOrder_CancelledHoldsNoStock(t *testing.T) {
	fx := setupOrderServiceTest(t)

	order, err := fx.p.orders.CreateOrder(context.Background(), CreateOrderInput{
		UserID: fx.user.ID,
		Status: " Cancel ",
		Items:  []OrderItemInput{{VariantID: fx.variant.ID, Quantity: 4}},
	})
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusCancel, order.Status)
	assert.Equal(t, 10, lotQuantity(t, fx.p.db, fx.lot.ID))
}

func TestOrderService_CreateOrder_InsufficientStock(t *testing.T) {
	fx := setupOrderServiceTest(t)

	order, err := fx.p.orders.CreateOrder(context.Background(), CreateOrderInput{
		UserID: fx.user.ID,
		Items:  []OrderItemInput{{VariantID: fx.variant.ID, Quantity: 11}},
	})
	assert.ErrorIs(t, err, ErrOutOfStock)
	assert.Nil(t, order)

	// Verify nothing was written
	var count int64
	require.NoError(t, fx.p.db.Model(&model.Order{}).Count(&count).Error)
	assert.Zero(t, count)
	assert.Equal(t, 10, lotQuantity(t, fx.p.db, fx.lot.ID))
}

// brokenInventory fails inside the order transaction the way a driver panic would.
type brokenInventory struct {
	InventoryService
}

func (brokenInventory) Deduct(ctx context.Context, tx *gorm.DB, item *model.OrderItem) error {
	panic("lot table unavailable")
}

func TestOrderService_CreateOrder_PanicRollsBack(t *testing.T) {
	fx := setupOrderServiceTest(t)
	orders := NewOrderService(
		fx.p.orderRepo,
		repository.NewCatalogRepository(fx.p.db),
		repository.NewUserRepository(fx.p.db),
		brokenInventory{},
		fx.p.facts,
		fx.p.db,
		fx.p.publisher,
	)

	var order *model.Order
	var err error
	assert.NotPanics(t, func() {
		order, err = orders.CreateOrder(context.Background(), CreateOrderInput{
			UserID: fx.user.ID,
			Items:  []OrderItemInput{{VariantID: fx.variant.ID, Quantity: 2}},
		})
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "lot table unavailable")
	assert.Nil(t, order)

	var count int64
	require.NoError(t, fx.p.db.Model(&model.Order{}).Count(&count).Error)
	assert.Zero(t, count)
	assert.Equal(t, 10, lotQuantity(t, fx.p.db, fx.lot.ID))
}

func TestOrderService_CreateOrder_InvalidInput(t *testing.T) {
	fx := setupOrderServiceTest(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		input   CreateOrderInput
		wantErr error
	}{
		{
			name:    "unknown status",
			input:   CreateOrderInput{UserID: fx.user.ID, Status: "lost", Items: []OrderItemInput{{VariantID: fx.variant.ID, Quantity: 1}}},
			wantErr: ErrInvalidStatus,
		},
		{
			name:    "unknown user",
			input:   CreateOrderInput{UserID: 9999, Items: []OrderItemInput{{VariantID: fx.variant.ID, Quantity: 1}}},
			wantErr: ErrUserNotFound,
		},
		{
			name:    "unknown variant",
			input:   CreateOrderInput{UserID: fx.user.ID, Items: []OrderItemInput{{VariantID: 9999, Quantity: 1}}},
			wantErr: ErrVariantNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			order, err := fx.p.orders.CreateOrder(ctx, tt.input)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Nil(t, order)
		})
	}

	t.Run("validation", func(t *testing.T) {
		var validationErrs validator.ValidationErrors

		_, err := fx.p.orders.CreateOrder(ctx, CreateOrderInput{UserID: fx.user.ID})
		assert.ErrorAs(t, err, &validationErrs)

		_, err = fx.p.orders.CreateOrder(ctx, CreateOrderInput{
			UserID: fx.user.ID,
			Items:  []OrderItemInput{{VariantID: fx.variant.ID, Quantity: 1, DiscountPercent: 120}},
		})
		assert.ErrorAs(t, err, &validationErrs)
	})
}

func TestOrderService_UpdateOrderStatus(t *testing.T) {
	fx := setupOrderServiceTest(t)
	ctx := context.Background()

	order, err := fx.p.orders.CreateOrder(ctx, CreateOrderInput{
		UserID: fx.user.ID,
		Items:  []OrderItemInput{{VariantID: fx.variant.ID, Quantity: 4}},
	})
	require.NoError(t, err)
	require.Equal(t, 6, lotQuantity(t, fx.p.db, fx.lot.ID))

	updated, err := fx.p.orders.UpdateOrderStatus(ctx, order.ID, "SENT")
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusSent, updated.Status)
	assert.Equal(t, 6, lotQuantity(t, fx.p.db, fx.lot.ID))

	updated, err = fx.p.orders.UpdateOrderStatus(ctx, order.ID, "rejected")
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusRejected, updated.Status)
	assert.Equal(t, 10, lotQuantity(t, fx.p.db, fx.lot.ID))

	// reopening takes the stock again
	_, err = fx.p.orders.UpdateOrderStatus(ctx, order.ID, "process")
	require.NoError(t, err)
	assert.Equal(t, 6, lotQuantity(t, fx.p.db, fx.lot.ID))

	assert.Equal(t, []string{
		EventOrderStatusChanged,
		EventOrderStatusChanged,
		EventOrderStatusChanged,
	}, fx.p.publisher.types())

	t.Run("invalid status", func(t *testing.T) {
		_, err := fx.p.orders.UpdateOrderStatus(ctx, order.ID, "shipped")
		assert.ErrorIs(t, err, ErrInvalidStatus)
	})

	t.Run("order not found", func(t *testing.T) {
		_, err := fx.p.orders.UpdateOrderStatus(ctx, 9999, "done")
		assert.ErrorIs(t, err, ErrOrderNotFound)
	})
}

func TestOrderService_UpdateOrderStatus_UpdatesFact(t *testing.T) {
	fx := setupOrderServiceTest(t)
	ctx := context.Background()

	order, err := fx.p.orders.CreateOrder(ctx, CreateOrderInput{
		UserID: fx.user.ID,
		Status: "done",
		Items:  []OrderItemInput{{VariantID: fx.variant.ID, Quantity: 2}},
	})
	require.NoError(t, err)

	_, err = fx.p.sync.SyncOrders(ctx, SyncOptions{})
	require.NoError(t, err)
	_, err = fx.p.rollup.Rollup(ctx)
	require.NoError(t, err)

	_, err = fx.p.orders.UpdateOrderStatus(ctx, order.ID, "cancel")
	require.NoError(t, err)

	fact := factFor(t, fx.p.db, order.ID)
	assert.Equal(t, model.OrderStatusCancel, fact.Status)
	assert.False(t, fact.ExcludeFromAnalytics)

	dateKey := fx.p.dimensions.DateKey(order.CreatedAt)
	assert.Zero(t, analyticsFor(t, fx.p.db, dateKey).TotalOrderDone)
}

func TestOrderService_OrderItems(t *testing.T) {
	fx := setupOrderServiceTest(t)
	ctx := context.Background()

	order, err := fx.p.orders.CreateOrder(ctx, CreateOrderInput{
		UserID: fx.user.ID,
		Status: "done",
		Items:  []OrderItemInput{{VariantID: fx.variant.ID, Quantity: 2}},
	})
	require.NoError(t, err)
	_, err = fx.p.sync.SyncOrders(ctx, SyncOptions{})
	require.NoError(t, err)

	t.Run("add", func(t *testing.T) {
		item, err := fx.p.orders.AddOrderItem(ctx, order.ID, OrderItemInput{VariantID: fx.variant.ID, Quantity: 3, DiscountPercent: 10})
		require.NoError(t, err)
		assert.Equal(t, int64(270), item.TotalAfterDiscount)
		assert.Equal(t, 5, lotQuantity(t, fx.p.db, fx.lot.ID))

		fact := factFor(t, fx.p.db, order.ID)
		assert.Equal(t, int64(500), fact.TotalPrice)
		assert.Equal(t, int64(470), fact.TotalPriceAfterDiscount)

		reloaded, err := fx.p.orders.GetOrder(ctx, order.ID)
		require.NoError(t, err)
		assert.False(t, reloaded.IsSyncedAnalytics)
	})

	t.Run("update", func(t *testing.T) {
		quantity := 6
		item, err := fx.p.orders.UpdateOrderItem(ctx, order.ID, order.Items[0].ID, UpdateOrderItemInput{Quantity: &quantity})
		require.NoError(t, err)
		assert.Equal(t, int64(600), item.TotalPrice)
		assert.Equal(t, 1, lotQuantity(t, fx.p.db, fx.lot.ID))

		quantity = 8
		_, err = fx.p.orders.UpdateOrderItem(ctx, order.ID, order.Items[0].ID, UpdateOrderItemInput{Quantity: &quantity})
		assert.ErrorIs(t, err, ErrOutOfStock)
		assert.Equal(t, 1, lotQuantity(t, fx.p.db, fx.lot.ID))
	})

	t.Run("remove", func(t *testing.T) {
		require.NoError(t, fx.p.orders.RemoveOrderItem(ctx, order.ID, order.Items[0].ID))
		assert.Equal(t, 7, lotQuantity(t, fx.p.db, fx.lot.ID))

		fact := factFor(t, fx.p.db, order.ID)
		assert.Equal(t, int64(270), fact.TotalPriceAfterDiscount)

		err := fx.p.orders.RemoveOrderItem(ctx, order.ID, order.Items[0].ID)
		assert.ErrorIs(t, err, ErrOrderItemNotFound)
	})
}

func TestOrderService_ListOrders(t *testing.T) {
	fx := setupOrderServiceTest(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		seedOrder(t, fx.p.db, fx.user, model.OrderStatusDone, day1, itemSpec{variant: fx.variant, quantity: 1})
	}
	seedOrder(t, fx.p.db, fx.user, model.OrderStatusCancel, day2, itemSpec{variant: fx.variant, quantity: 1})

	orders, total, err := fx.p.orders.ListOrders(ctx, repository.OrderFilter{}, repository.Page{Page: 1, PageSize: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(4), total)
	assert.Len(t, orders, 2)
	assert.Equal(t, model.OrderStatusCancel, orders[0].Status)

	done := model.OrderStatusDone
	_, total, err = fx.p.orders.ListOrders(ctx, repository.OrderFilter{Status: &done}, repository.Page{})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)

	_, err = fx.p.orders.GetOrder(ctx, 9999)
	assert.ErrorIs(t, err, ErrOrderNotFound)
}
