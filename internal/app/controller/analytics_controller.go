package controller

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ikkim/storefront-backend/internal/app/model"
	"github.com/ikkim/storefront-backend/internal/app/service"
	"github.com/ikkim/storefront-backend/internal/errors"
	"github.com/ikkim/storefront-backend/internal/middleware"
	"github.com/ikkim/storefront-backend/internal/storage"
)

type AnalyticsController struct {
	syncService      service.SyncService
	rollupService    service.RollupService
	analyticsService service.AnalyticsService
	exportService    service.ExportService
}

func NewAnalyticsController(
	syncService service.SyncService,
	rollupService service.RollupService,
	analyticsService service.AnalyticsService,
	exportService service.ExportService,
) *AnalyticsController {
	return &AnalyticsController{
		syncService:      syncService,
		rollupService:    rollupService,
		analyticsService: analyticsService,
		exportService:    exportService,
	}
}

type SyncRequest struct {
	Status string `json:"status"`
}

func optionalStatus(raw string) (*model.OrderStatus, error) {
	if raw == "" {
		return nil, nil
	}
	status, ok := model.ParseOrderStatus(raw)
	if !ok {
		return nil, service.ErrInvalidStatus
	}
	return &status, nil
}

// Sync projects unsynced orders into the star schema
// POST /api/v1/analytics/sync
func (ctrl *AnalyticsController) Sync(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	var req SyncRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			errors.RespondWithBindingError(c, err)
			return
		}
	}
	status, err := optionalStatus(req.Status)
	if err != nil {
		respondServiceError(c, err, "sync")
		return
	}

	report, err := ctrl.syncService.SyncOrders(c.Request.Context(), service.SyncOptions{Status: status})
	if err != nil {
		respondServiceError(c, err, "sync")
		return
	}

	log.Info("Analytics sync requested", map[string]interface{}{
		"orders": report.OrdersSynced,
	})
	c.JSON(http.StatusOK, gin.H{
		"message": "Orders synced to analytics",
		"report":  report,
	})
}

// Verify compares order item totals with the fact table
// POST /api/v1/analytics/verify
func (ctrl *AnalyticsController) Verify(c *gin.Context) {
	status, err := statusQuery(c)
	if err != nil {
		respondServiceError(c, err, "verify")
		return
	}

	result, err := ctrl.syncService.VerifyFactSalesTotals(c.Request.Context(), status)
	if err != nil {
		respondServiceError(c, err, "verify")
		return
	}
	c.JSON(http.StatusOK, result)
}

// SimpleAnalysis folds pending facts into the daily aggregate, then lists it
// GET /api/v1/analytics/simple-analysis
func (ctrl *AnalyticsController) SimpleAnalysis(c *gin.Context) {
	filter, err := dateFilterFrom(c)
	if err != nil {
		errors.BadRequest(c, errors.ValidationInvalidFormat, "날짜 필터 형식이 올바르지 않습니다")
		return
	}
	page := pageFrom(c)

	if _, err := ctrl.rollupService.Rollup(c.Request.Context()); err != nil {
		respondServiceError(c, err, "rollup")
		return
	}

	rows, total, err := ctrl.rollupService.ListFactAnalytics(c.Request.Context(), filter, page)
	if err != nil {
		respondServiceError(c, err, "list fact analytics")
		return
	}
	c.JSON(http.StatusOK, paginated(rows, total, page))
}

// ExportSimpleAnalysis downloads the daily aggregate as XLSX
// GET /api/v1/analytics/simple-analysis/export
func (ctrl *AnalyticsController) ExportSimpleAnalysis(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	filter, err := dateFilterFrom(c)
	if err != nil {
		errors.BadRequest(c, errors.ValidationInvalidFormat, "날짜 필터 형식이 올바르지 않습니다")
		return
	}

	body, err := ctrl.exportService.FactAnalyticsWorkbook(c.Request.Context(), filter)
	if err != nil {
		log.Error("Failed to build analytics workbook", err)
		errors.RespondWithError(c, http.StatusInternalServerError, errors.AnalyticsExportFailed, "보고서 생성에 실패했습니다")
		return
	}

	filename := fmt.Sprintf("fact-analytics-%s.xlsx", time.Now().Format("20060102"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))
	c.Data(http.StatusOK, storage.XLSXContentType, body)
}

// ListFactSales GET /api/v1/analytics/fact-sales
func (ctrl *AnalyticsController) ListFactSales(c *gin.Context) {
	filter, err := salesFilterFrom(c)
	if err != nil {
		respondFilterError(c, err)
		return
	}
	page := pageFrom(c)

	rows, total, err := ctrl.analyticsService.ListFactSales(c.Request.Context(), filter, page)
	if err != nil {
		respondServiceError(c, err, "list fact sales")
		return
	}
	c.JSON(http.StatusOK, paginated(rows, total, page))
}

// MostSoldProducts GET /api/v1/analytics/most-sold
func (ctrl *AnalyticsController) MostSoldProducts(c *gin.Context) {
	filter, err := salesFilterFrom(c)
	if err != nil {
		respondFilterError(c, err)
		return
	}
	page := pageFrom(c)

	rows, total, err := ctrl.analyticsService.MostSoldProducts(c.Request.Context(), filter, page)
	if err != nil {
		respondServiceError(c, err, "most sold products")
		return
	}
	c.JSON(http.StatusOK, paginated(rows, total, page))
}

// OrdersByStatus GET /api/v1/analytics/orders-by-status
func (ctrl *AnalyticsController) OrdersByStatus(c *gin.Context) {
	filter, err := salesFilterFrom(c)
	if err != nil {
		respondFilterError(c, err)
		return
	}

	rows, err := ctrl.analyticsService.OrdersByStatus(c.Request.Context(), filter)
	if err != nil {
		respondServiceError(c, err, "orders by status")
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": rows})
}

// TopUsers GET /api/v1/analytics/top-users
func (ctrl *AnalyticsController) TopUsers(c *gin.Context) {
	filter, err := salesFilterFrom(c)
	if err != nil {
		respondFilterError(c, err)
		return
	}
	page := pageFrom(c)

	rows, total, err := ctrl.analyticsService.TopUsers(c.Request.Context(), filter, page)
	if err != nil {
		respondServiceError(c, err, "top users")
		return
	}
	c.JSON(http.StatusOK, paginated(rows, total, page))
}

// TopSuppliers GET /api/v1/analytics/top-suppliers
func (ctrl *AnalyticsController) TopSuppliers(c *gin.Context) {
	filter, err := salesFilterFrom(c)
	if err != nil {
		respondFilterError(c, err)
		return
	}
	page := pageFrom(c)

	rows, total, err := ctrl.analyticsService.TopSuppliers(c.Request.Context(), filter, page)
	if err != nil {
		respondServiceError(c, err, "top suppliers")
		return
	}
	c.JSON(http.StatusOK, paginated(rows, total, page))
}

func respondFilterError(c *gin.Context, err error) {
	if err == service.ErrInvalidStatus {
		respondServiceError(c, err, "filter")
		return
	}
	errors.BadRequest(c, errors.ValidationInvalidFormat, "필터 형식이 올바르지 않습니다")
}
