package controller

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ikkim/storefront-backend/internal/app/model"
	"github.com/ikkim/storefront-backend/internal/app/repository"
	"github.com/ikkim/storefront-backend/internal/app/service"
	"github.com/ikkim/storefront-backend/internal/db"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type apiFixture struct {
	db      *gorm.DB
	router  *gin.Engine
	user    *model.User
	variant *model.Variant
	lot     *model.VariantInvoiceQuantity
}

// setupAPITest mounts every handler without auth on real services over SQLite.
func setupAPITest(t *testing.T) *apiFixture {
	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() {
		db.CleanupTestDB(testDB)
	})

	orderRepo := repository.NewOrderRepository(testDB)
	catalogRepo := repository.NewCatalogRepository(testDB)
	inventoryRepo := repository.NewInventoryRepository(testDB)
	factRepo := repository.NewFactRepository(testDB)
	factAnalyticsRepo := repository.NewFactAnalyticsRepository(testDB)

	dimensionService := service.NewDimensionService(repository.NewDimensionRepository(testDB), service.NewJalaliCalendar(), time.UTC)
	inventoryService := service.NewInventoryService(inventoryRepo, testDB)
	factService := service.NewFactService(factRepo, factAnalyticsRepo, orderRepo, dimensionService)
	syncService := service.NewSyncService(orderRepo, factRepo, dimensionService, factService, testDB, nil, nil, nil)
	rollupService := service.NewRollupService(factRepo, factAnalyticsRepo, testDB, nil, nil, nil)
	exportService := service.NewExportService(rollupService, nil, nil, nil)
	orderService := service.NewOrderService(orderRepo, catalogRepo, repository.NewUserRepository(testDB), inventoryService, factService, testDB, nil)
	purchaseService := service.NewPurchaseService(repository.NewPurchaseRepository(testDB), catalogRepo, inventoryRepo, testDB)

	analyticsCtrl := NewAnalyticsController(syncService, rollupService, service.NewAnalyticsService(repository.NewAnalyticsRepository(testDB)), exportService)
	orderCtrl := NewOrderController(orderService)
	purchaseCtrl := NewPurchaseController(purchaseService, inventoryService)

	gin.SetMode(gin.TestMode)
	router := gin.New()

	analytics := router.Group("/analytics")
	analytics.POST("/sync", analyticsCtrl.Sync)
	analytics.POST("/verify", analyticsCtrl.Verify)
	analytics.GET("/simple-analysis", analyticsCtrl.SimpleAnalysis)
	analytics.GET("/simple-analysis/export", analyticsCtrl.ExportSimpleAnalysis)
	analytics.GET("/fact-sales", analyticsCtrl.ListFactSales)
	analytics.GET("/most-sold", analyticsCtrl.MostSoldProducts)
	analytics.GET("/orders-by-status", analyticsCtrl.OrdersByStatus)
	analytics.GET("/top-users", analyticsCtrl.TopUsers)
	analytics.GET("/top-suppliers", analyticsCtrl.TopSuppliers)

	orders := router.Group("/orders")
	orders.GET("", orderCtrl.ListOrders)
	orders.POST("", orderCtrl.CreateOrder)
	orders.GET("/:id", orderCtrl.GetOrder)
	orders.PUT("/:id/status", orderCtrl.UpdateOrderStatus)
	orders.POST("/:id/items", orderCtrl.AddOrderItem)
	orders.PUT("/:id/items/:item_id", orderCtrl.UpdateOrderItem)
	orders.DELETE("/:id/items/:item_id", orderCtrl.RemoveOrderItem)

	router.POST("/purchase-invoices", purchaseCtrl.CreateInvoice)
	router.GET("/purchase-invoices/:id", purchaseCtrl.GetInvoice)
	router.POST("/purchase-invoices/:id/receive", purchaseCtrl.ReceiveInvoice)
	router.GET("/variants/:id/stock", purchaseCtrl.GetVariantStock)

	fx := &apiFixture{db: testDB, router: router}
	fx.seed(t)
	return fx
}

func (fx *apiFixture) seed(t *testing.T) {
	supplier := &model.Supplier{Name: "Acme Trading"}
	require.NoError(t, fx.db.Create(supplier).Error)
	brand := &model.Brand{Name: "Acme", SupplierID: &supplier.ID}
	require.NoError(t, fx.db.Create(brand).Error)
	category := &model.Category{Name: "T-Shirts"}
	require.NoError(t, fx.db.Create(category).Error)

	product := &model.Product{Name: "Tee", Price: 100, IsAvailable: true, BrandID: &brand.ID, CategoryID: &category.ID}
	require.NoError(t, fx.db.Create(product).Error)
	fx.variant = &model.Variant{ProductID: product.ID, SKU: "TEE-M", Color: "black", Size: "M"}
	require.NoError(t, fx.db.Create(fx.variant).Error)

	fx.user = &model.User{
		Username:         "alice",
		Email:            "alice@example.com",
		Gender:           model.GenderFemale,
		Role:             model.RoleUser,
		City:             "Tehran",
		RegistrationDate: time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, fx.db.Create(fx.user).Error)

	invoice := &model.PurchaseInvoice{Title: "opening stock", Status: model.PurchaseInvoiceDone}
	require.NoError(t, fx.db.Omit("Items", "Supplier").Create(invoice).Error)
	fx.lot = &model.VariantInvoiceQuantity{VariantID: fx.variant.ID, PurchaseInvoiceID: invoice.ID, Quantity: 10, InitialQuantity: 10}
	require.NoError(t, fx.db.Create(fx.lot).Error)
}

func (fx *apiFixture) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	fx.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	var response map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	return response
}

// createOrder posts an order and returns its id.
func (fx *apiFixture) createOrder(t *testing.T, status string, quantity int) uint {
	w := fx.do(t, http.MethodPost, "/orders", gin.H{
		"user_id": fx.user.ID,
		"status":  status,
		"items": []gin.H{
			{"variant_id": fx.variant.ID, "quantity": quantity},
		},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	order := decode(t, w)["order"].(map[string]interface{})
	return uint(order["id"].(float64))
}
