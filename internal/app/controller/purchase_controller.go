package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/ikkim/storefront-backend/internal/app/service"
	"github.com/ikkim/storefront-backend/internal/errors"
	"github.com/ikkim/storefront-backend/internal/middleware"
)

type PurchaseController struct {
	purchaseService  service.PurchaseService
	inventoryService service.InventoryService
}

func NewPurchaseController(purchaseService service.PurchaseService, inventoryService service.InventoryService) *PurchaseController {
	return &PurchaseController{
		purchaseService:  purchaseService,
		inventoryService: inventoryService,
	}
}

// CreateInvoice POST /api/v1/purchase-invoices
func (ctrl *PurchaseController) CreateInvoice(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	var req service.CreateInvoiceInput
	if err := c.ShouldBindJSON(&req); err != nil {
		errors.RespondWithBindingError(c, err)
		return
	}

	invoice, err := ctrl.purchaseService.CreateInvoice(c.Request.Context(), req)
	if err != nil {
		respondServiceError(c, err, "create invoice")
		return
	}

	log.Info("Purchase invoice created", map[string]interface{}{
		"invoice_id": invoice.ID,
	})
	c.JSON(http.StatusCreated, gin.H{
		"invoice": invoice,
	})
}

// GetInvoice GET /api/v1/purchase-invoices/:id
func (ctrl *PurchaseController) GetInvoice(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	invoice, err := ctrl.purchaseService.GetInvoice(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err, "get invoice")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"invoice": invoice,
	})
}

// ReceiveInvoice POST /api/v1/purchase-invoices/:id/receive
func (ctrl *PurchaseController) ReceiveInvoice(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	result, err := ctrl.purchaseService.ReceiveInvoice(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err, "receive invoice")
		return
	}
	c.JSON(http.StatusOK, result)
}

// GetVariantStock GET /api/v1/variants/:id/stock
func (ctrl *PurchaseController) GetVariantStock(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	lots, err := ctrl.inventoryService.Lots(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err, "variant stock")
		return
	}
	available := 0
	for _, lot := range lots {
		available += lot.Quantity
	}
	c.JSON(http.StatusOK, gin.H{
		"variant_id": id,
		"available":  available,
		"lots":       lots,
	})
}
