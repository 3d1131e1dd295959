package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/ikkim/storefront-backend/internal/app/repository"
	"github.com/ikkim/storefront-backend/internal/app/service"
	"github.com/ikkim/storefront-backend/internal/errors"
	"github.com/ikkim/storefront-backend/internal/middleware"
)

type OrderController struct {
	orderService service.OrderService
}

func NewOrderController(orderService service.OrderService) *OrderController {
	return &OrderController{
		orderService: orderService,
	}
}

type UpdateOrderStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// CreateOrder POST /api/v1/orders
func (ctrl *OrderController) CreateOrder(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	var req service.CreateOrderInput
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warn("Invalid create order request", map[string]interface{}{
			"error": err.Error(),
		})
		errors.RespondWithBindingError(c, err)
		return
	}

	order, err := ctrl.orderService.CreateOrder(c.Request.Context(), req)
	if err != nil {
		respondServiceError(c, err, "create order")
		return
	}

	log.Info("Order created", map[string]interface{}{
		"order_id": order.ID,
		"user_id":  order.UserID,
	})
	c.JSON(http.StatusCreated, gin.H{
		"order": order,
	})
}

// ListOrders GET /api/v1/orders
func (ctrl *OrderController) ListOrders(c *gin.Context) {
	status, err := statusQuery(c)
	if err != nil {
		respondServiceError(c, err, "list orders")
		return
	}
	page := pageFrom(c)

	orders, total, err := ctrl.orderService.ListOrders(c.Request.Context(), repository.OrderFilter{Status: status}, page)
	if err != nil {
		respondServiceError(c, err, "list orders")
		return
	}
	c.JSON(http.StatusOK, paginated(orders, total, page))
}

// GetOrder GET /api/v1/orders/:id
func (ctrl *OrderController) GetOrder(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	order, err := ctrl.orderService.GetOrder(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err, "get order")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"order": order,
	})
}

// UpdateOrderStatus PUT /api/v1/orders/:id/status
func (ctrl *OrderController) UpdateOrderStatus(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req UpdateOrderStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errors.RespondWithBindingError(c, err)
		return
	}

	order, err := ctrl.orderService.UpdateOrderStatus(c.Request.Context(), id, req.Status)
	if err != nil {
		respondServiceError(c, err, "update order status")
		return
	}

	log.Info("Order status updated", map[string]interface{}{
		"order_id": id,
		"status":   order.Status,
	})
	c.JSON(http.StatusOK, gin.H{
		"order": order,
	})
}

// AddOrderItem POST /api/v1/orders/:id/items
func (ctrl *OrderController) AddOrderItem(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req service.OrderItemInput
	if err := c.ShouldBindJSON(&req); err != nil {
		errors.RespondWithBindingError(c, err)
		return
	}

	item, err := ctrl.orderService.AddOrderItem(c.Request.Context(), id, req)
	if err != nil {
		respondServiceError(c, err, "create order item")
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"item": item,
	})
}

// UpdateOrderItem PUT /api/v1/orders/:id/items/:item_id
func (ctrl *OrderController) UpdateOrderItem(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	itemID, ok := parseIDParam(c, "item_id")
	if !ok {
		return
	}
	var req service.UpdateOrderItemInput
	if err := c.ShouldBindJSON(&req); err != nil {
		errors.RespondWithBindingError(c, err)
		return
	}

	item, err := ctrl.orderService.UpdateOrderItem(c.Request.Context(), id, itemID, req)
	if err != nil {
		respondServiceError(c, err, "update order item")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"item": item,
	})
}

// RemoveOrderItem DELETE /api/v1/orders/:id/items/:item_id
func (ctrl *OrderController) RemoveOrderItem(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	itemID, ok := parseIDParam(c, "item_id")
	if !ok {
		return
	}

	if err := ctrl.orderService.RemoveOrderItem(c.Request.Context(), id, itemID); err != nil {
		respondServiceError(c, err, "delete order item")
		return
	}
	c.Status(http.StatusNoContent)
}
