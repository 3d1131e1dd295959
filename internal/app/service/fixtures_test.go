package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/ikkim/storefront-backend/internal/app/model"
	"github.com/ikkim/storefront-backend/internal/app/repository"
	"github.com/ikkim/storefront-backend/internal/db"
	"github.com/ikkim/storefront-backend/pkg/redis"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type publishedEvent struct {
	Topic   string
	Type    string
	Payload interface{}
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []publishedEvent
}

func (p *recordingPublisher) Publish(topic, eventType string, payload interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, publishedEvent{Topic: topic, Type: eventType, Payload: payload})
	return nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

// heldLocker reports every key in held as taken by another process.
type heldLocker struct {
	held map[string]bool
}

func (l *heldLocker) Acquire(ctx context.Context, key string) (func(), error) {
	if l.held[key] {
		return nil, redis.ErrLockHeld
	}
	return func() {}, nil
}

type pipeline struct {
	db         *gorm.DB
	orderRepo  repository.OrderRepository
	dimensions DimensionService
	inventory  InventoryService
	facts      FactService
	sync       SyncService
	rollup     RollupService
	orders     OrderService
	purchases  PurchaseService
	analytics  AnalyticsService
	locker     *heldLocker
	publisher  *recordingPublisher
}

func setupPipeline(t *testing.T) *pipeline {
	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() {
		db.CleanupTestDB(testDB)
	})

	orderRepo := repository.NewOrderRepository(testDB)
	factRepo := repository.NewFactRepository(testDB)
	factAnalyticsRepo := repository.NewFactAnalyticsRepository(testDB)
	inventoryRepo := repository.NewInventoryRepository(testDB)
	catalogRepo := repository.NewCatalogRepository(testDB)

	locker := &heldLocker{held: map[string]bool{}}
	publisher := &recordingPublisher{}

	dimensions := NewDimensionService(repository.NewDimensionRepository(testDB), NewJalaliCalendar(), time.UTC)
	inventory := NewInventoryService(inventoryRepo, testDB)
	facts := NewFactService(factRepo, factAnalyticsRepo, orderRepo, dimensions)

	return &pipeline{
		db:         testDB,
		orderRepo:  orderRepo,
		dimensions: dimensions,
		inventory:  inventory,
		facts:      facts,
		sync:       NewSyncService(orderRepo, factRepo, dimensions, facts, testDB, locker, publisher, nil),
		rollup:     NewRollupService(factRepo, factAnalyticsRepo, testDB, locker, publisher, nil),
		orders:     NewOrderService(orderRepo, catalogRepo, repository.NewUserRepository(testDB), inventory, facts, testDB, publisher),
		purchases:  NewPurchaseService(repository.NewPurchaseRepository(testDB), catalogRepo, inventoryRepo, testDB),
		analytics:  NewAnalyticsService(repository.NewAnalyticsRepository(testDB)),
		locker:     locker,
		publisher:  publisher,
	}
}

type catalogFixture struct {
	Supplier *model.Supplier
	Brand    *model.Brand
	Category *model.Category
}

func seedCatalog(t *testing.T, testDB *gorm.DB) catalogFixture {
	supplier := &model.Supplier{Name: "Acme Trading"}
	require.NoError(t, testDB.Create(supplier).Error)

	brand := &model.Brand{Name: "Acme", SupplierID: &supplier.ID}
	require.NoError(t, testDB.Create(brand).Error)

	root := &model.Category{Name: "Apparel"}
	require.NoError(t, testDB.Create(root).Error)
	mid := &model.Category{Name: "Tops", ParentID: &root.ID}
	require.NoError(t, testDB.Create(mid).Error)
	leaf := &model.Category{Name: "T-Shirts", ParentID: &mid.ID}
	require.NoError(t, testDB.Create(leaf).Error)

	return catalogFixture{Supplier: supplier, Brand: brand, Category: leaf}
}

func seedProduct(t *testing.T, testDB *gorm.DB, catalog catalogFixture, name string, price int64) *model.Product {
	product := &model.Product{
		Name:        name,
		Price:       price,
		Rating:      4,
		IsAvailable: true,
		BrandID:     &catalog.Brand.ID,
		CategoryID:  &catalog.Category.ID,
	}
	require.NoError(t, testDB.Create(product).Error)
	return product
}

func seedVariant(t *testing.T, testDB *gorm.DB, product *model.Product, sku string) *model.Variant {
	variant := &model.Variant{ProductID: product.ID, SKU: sku, Color: "black", Size: "M"}
	require.NoError(t, testDB.Create(variant).Error)
	return variant
}

func seedUser(t *testing.T, testDB *gorm.DB, username string) *model.User {
	var ageRange model.AgeRange
	require.NoError(t, testDB.
		Where(model.AgeRange{Name: "26-35"}).
		Attrs(model.AgeRange{MinAge: 26, MaxAge: 35}).
		FirstOrCreate(&ageRange).Error)

	user := &model.User{
		Username:         username,
		Email:            username + "@example.com",
		Gender:           model.GenderFemale,
		Role:             model.RoleUser,
		City:             "Tehran",
		RegistrationDate: time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC),
		AgeRangeID:       &ageRange.ID,
	}
	require.NoError(t, testDB.Create(user).Error)
	return user
}

var lotSeq int

// seedLot receives a fresh invoice carrying quantity units of the variant.
func seedLot(t *testing.T, testDB *gorm.DB, variant *model.Variant, quantity int) *model.VariantInvoiceQuantity {
	lotSeq++
	invoice := &model.PurchaseInvoice{Title: fmt.Sprintf("lot-%d", lotSeq), Status: model.PurchaseInvoiceDone}
	require.NoError(t, testDB.Omit("Items", "Supplier").Create(invoice).Error)

	lot := &model.VariantInvoiceQuantity{
		VariantID:         variant.ID,
		PurchaseInvoiceID: invoice.ID,
		Quantity:          quantity,
		InitialQuantity:   quantity,
	}
	require.NoError(t, testDB.Create(lot).Error)
	return lot
}

type itemSpec struct {
	variant  *model.Variant
	quantity int
	discount int
}

// seedOrder writes an order directly, bypassing stock, with an explicit creation time.
func seedOrder(t *testing.T, testDB *gorm.DB, user *model.User, status model.OrderStatus, createdAt time.Time, specs ...itemSpec) *model.Order {
	items := make([]model.OrderItem, 0, len(specs))
	for _, spec := range specs {
		var product model.Product
		require.NoError(t, testDB.First(&product, spec.variant.ProductID).Error)

		variantID := spec.variant.ID
		variant := *spec.variant
		variant.Product = product
		item := model.OrderItem{
			VariantID:       &variantID,
			Quantity:        spec.quantity,
			DiscountPercent: spec.discount,
			Variant:         &variant,
		}
		item.Recalculate()
		items = append(items, item)
	}

	order := &model.Order{
		UserID:    user.ID,
		Status:    status,
		CreatedAt: createdAt,
		Items:     items,
	}
	require.NoError(t, repository.NewOrderRepository(testDB).Create(order))
	return order
}

func lotQuantity(t *testing.T, testDB *gorm.DB, lotID uint) int {
	var lot model.VariantInvoiceQuantity
	require.NoError(t, testDB.First(&lot, lotID).Error)
	return lot.Quantity
}

func factFor(t *testing.T, testDB *gorm.DB, orderID uint) model.FactSales {
	var fact model.FactSales
	require.NoError(t, testDB.Preload("Variants").Where("order_id = ?", orderID).First(&fact).Error)
	return fact
}

func analyticsFor(t *testing.T, testDB *gorm.DB, fullDate string) model.FactAnalytics {
	var row model.FactAnalytics
	require.NoError(t, testDB.
		Joins("JOIN dim_dates ON dim_dates.id = fact_analytics.dim_date_id").
		Where("dim_dates.full_date = ?", fullDate).
		First(&row).Error)
	return row
}

func loadUnsynced(t *testing.T, p *pipeline) []model.Order {
	orders, err := p.orderRepo.FindUnsyncedForAnalytics(nil)
	require.NoError(t, err)
	return orders
}

var (
	day1 = time.Date(2024, 3, 22, 10, 0, 0, 0, time.UTC)
	day2 = time.Date(2024, 3, 23, 10, 0, 0, 0, time.UTC)
)
