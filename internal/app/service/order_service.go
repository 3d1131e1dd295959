package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/ikkim/storefront-backend/internal/app/model"
	"github.com/ikkim/storefront-backend/internal/app/repository"
	"github.com/ikkim/storefront-backend/internal/websocket"
	"github.com/ikkim/storefront-backend/pkg/logger"
	"gorm.io/gorm"
)

var (
	ErrOrderNotFound     = errors.New("order not found")
	ErrOrderItemNotFound = errors.New("order item not found")
	ErrVariantNotFound   = errors.New("variant not found")
	ErrUserNotFound      = errors.New("user not found")
	ErrInvalidStatus     = errors.New("invalid order status")
)

const EventOrderStatusChanged = "order.status_changed"

var validate = validator.New()

type OrderItemInput struct {
	VariantID       uint `json:"variant_id" validate:"required"`
	Quantity        int  `json:"quantity" validate:"required,min=1"`
	DiscountPercent int  `json:"discount_percent" validate:"min=0,max=100"`
}

type CreateOrderInput struct {
	UserID uint             `json:"user_id" validate:"required"`
	Status string           `json:"status"`
	Items  []OrderItemInput `json:"items" validate:"required,min=1,dive"`
}

// UpdateOrderItemInput changes only the fields that are set.
type UpdateOrderItemInput struct {
	Quantity        *int `json:"quantity" validate:"omitempty,min=1"`
	DiscountPercent *int `json:"discount_percent" validate:"omitempty,min=0,max=100"`
}

// OrderService is the write path for orders. Every change keeps stock and the order's fact in step.
type OrderService interface {
	CreateOrder(ctx context.Context, input CreateOrderInput) (*model.Order, error)
	UpdateOrderStatus(ctx context.Context, orderID uint, rawStatus string) (*model.Order, error)
	AddOrderItem(ctx context.Context, orderID uint, input OrderItemInput) (*model.OrderItem, error)
	UpdateOrderItem(ctx context.Context, orderID, itemID uint, input UpdateOrderItemInput) (*model.OrderItem, error)
	RemoveOrderItem(ctx context.Context, orderID, itemID uint) error
	GetOrder(ctx context.Context, orderID uint) (*model.Order, error)
	ListOrders(ctx context.Context, filter repository.OrderFilter, page repository.Page) ([]model.Order, int64, error)
}

type orderService struct {
	orderRepo   repository.OrderRepository
	catalogRepo repository.CatalogRepository
	userRepo    repository.UserRepository
	inventory   InventoryService
	facts       FactService
	db          *gorm.DB
	publisher   EventPublisher
}

func NewOrderService(
	orderRepo repository.OrderRepository,
	catalogRepo repository.CatalogRepository,
	userRepo repository.UserRepository,
	inventory InventoryService,
	facts FactService,
	db *gorm.DB,
	publisher EventPublisher,
) OrderService {
	return &orderService{
		orderRepo:   orderRepo,
		catalogRepo: catalogRepo,
		userRepo:    userRepo,
		inventory:   inventory,
		facts:       facts,
		db:          db,
		publisher:   publisher,
	}
}

func (s *orderService) loadVariant(tx *gorm.DB, variantID uint) (*model.Variant, error) {
	variant, err := s.catalogRepo.WithTx(tx).FindVariantByID(variantID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %d", ErrVariantNotFound, variantID)
		}
		return nil, err
	}
	return variant, nil
}

func (s *orderService) lockOrder(tx *gorm.DB, orderID uint) (*model.Order, error) {
	order, err := s.orderRepo.WithTx(tx).LockByID(orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	return order, nil
}

func (s *orderService) CreateOrder(ctx context.Context, input CreateOrderInput) (created *model.Order, err error) {
	if err := validate.Struct(input); err != nil {
		return nil, err
	}

	status := model.OrderStatusInitial
	if input.Status != "" {
		parsed, ok := model.ParseOrderStatus(input.Status)
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, input.Status)
		}
		status = parsed
	}

	logger.Info("Creating order", map[string]interface{}{
		"user_id":    input.UserID,
		"status":     status,
		"item_count": len(input.Items),
	})

	if _, err := s.userRepo.FindByID(input.UserID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Warn("Order creation failed: user not found", map[string]interface{}{
				"user_id": input.UserID,
			})
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	tx := s.db.WithContext(ctx).Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			created = nil
			err = fmt.Errorf("order creation aborted: %v", r)
			logger.Error("Panic during order creation, rolling back", err, map[string]interface{}{
				"user_id": input.UserID,
			})
		}
	}()

	items := make([]model.OrderItem, 0, len(input.Items))
	for _, in := range input.Items {
		variant, err := s.loadVariant(tx, in.VariantID)
		if err != nil {
			tx.Rollback()
			logger.Warn("Order creation failed: variant lookup", map[string]interface{}{
				"user_id":    input.UserID,
				"variant_id": in.VariantID,
				"error":      err.Error(),
			})
			return nil, err
		}

		variantID := variant.ID
		item := model.OrderItem{
			VariantID:       &variantID,
			Quantity:        in.Quantity,
			DiscountPercent: in.DiscountPercent,
			Variant:         variant,
		}
		item.Recalculate()
		items = append(items, item)
	}

	order := &model.Order{
		UserID: input.UserID,
		Status: status,
		Items:  items,
	}
	if err := s.orderRepo.WithTx(tx).Create(order); err != nil {
		tx.Rollback()
		return nil, err
	}

	if status.IsActive() {
		for i := range order.Items {
			if err := s.inventory.Deduct(ctx, tx, &order.Items[i]); err != nil {
				tx.Rollback()
				return nil, err
			}
		}
	}

	if err := tx.Commit().Error; err != nil {
		logger.Error("Failed to commit order transaction", err, map[string]interface{}{
			"user_id":  input.UserID,
			"order_id": order.ID,
		})
		return nil, err
	}

	totalPrice, totalAfterDiscount := order.Totals()
	logger.Info("Order created successfully", map[string]interface{}{
		"order_id":             order.ID,
		"user_id":              input.UserID,
		"total_price":          totalPrice,
		"total_after_discount": totalAfterDiscount,
	})

	return s.orderRepo.WithTx(s.db.WithContext(ctx)).FindByID(order.ID)
}

func (s *orderService) UpdateOrderStatus(ctx context.Context, orderID uint, rawStatus string) (*model.Order, error) {
	status, ok := model.ParseOrderStatus(rawStatus)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, rawStatus)
	}

	logger.Info("Updating order status", map[string]interface{}{
		"order_id":   orderID,
		"new_status": status,
	})

	var from model.OrderStatus
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		order, err := s.lockOrder(tx, orderID)
		if err != nil {
			return err
		}
		from = order.Status
		if from == status {
			return nil
		}

		for i := range order.Items {
			if err := s.inventory.Reconcile(ctx, tx, &order.Items[i], from, status); err != nil {
				return err
			}
		}
		if err := s.orderRepo.WithTx(tx).UpdateStatus(orderID, status); err != nil {
			return err
		}
		return s.facts.ApplyStatus(ctx, tx, orderID, status)
	})
	if err != nil {
		logger.Error("Failed to update order status", err, map[string]interface{}{
			"order_id":   orderID,
			"new_status": status,
		})
		return nil, err
	}

	if from != status {
		logger.Info("Order status updated successfully", map[string]interface{}{
			"order_id": orderID,
			"from":     from,
			"to":       status,
		})
		publish(s.publisher, websocket.TopicAnalytics, EventOrderStatusChanged, map[string]interface{}{
			"order_id": orderID,
			"from":     from,
			"to":       status,
		})
	}
	return s.GetOrder(ctx, orderID)
}

// afterItemChange refreshes the fact totals and queues the order for the next sync,
// which re-resolves its variant associations.
func (s *orderService) afterItemChange(ctx context.Context, tx *gorm.DB, orderID uint) error {
	if err := s.facts.RecomputeTotals(ctx, tx, orderID); err != nil {
		return err
	}
	return s.orderRepo.WithTx(tx).MarkUnsynced(orderID)
}

func (s *orderService) AddOrderItem(ctx context.Context, orderID uint, input OrderItemInput) (*model.OrderItem, error) {
	if err := validate.Struct(input); err != nil {
		return nil, err
	}

	var item *model.OrderItem
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		order, err := s.lockOrder(tx, orderID)
		if err != nil {
			return err
		}
		variant, err := s.loadVariant(tx, input.VariantID)
		if err != nil {
			return err
		}

		variantID := variant.ID
		item = &model.OrderItem{
			OrderID:         orderID,
			VariantID:       &variantID,
			Quantity:        input.Quantity,
			DiscountPercent: input.DiscountPercent,
			Variant:         variant,
		}
		item.Recalculate()
		if err := s.orderRepo.WithTx(tx).CreateItem(item); err != nil {
			return err
		}
		if order.Status.IsActive() {
			if err := s.inventory.Deduct(ctx, tx, item); err != nil {
				return err
			}
		}
		return s.afterItemChange(ctx, tx, orderID)
	})
	if err != nil {
		logger.Warn("Failed to add order item", map[string]interface{}{
			"order_id":   orderID,
			"variant_id": input.VariantID,
			"error":      err.Error(),
		})
		return nil, err
	}

	logger.Info("Order item added", map[string]interface{}{
		"order_id":      orderID,
		"order_item_id": item.ID,
	})
	return item, nil
}

func (s *orderService) UpdateOrderItem(ctx context.Context, orderID, itemID uint, input UpdateOrderItemInput) (*model.OrderItem, error) {
	if err := validate.Struct(input); err != nil {
		return nil, err
	}

	var item *model.OrderItem
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		order, err := s.lockOrder(tx, orderID)
		if err != nil {
			return err
		}
		item, err = s.orderRepo.WithTx(tx).FindItem(orderID, itemID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrOrderItemNotFound
			}
			return err
		}

		if input.Quantity != nil {
			item.Quantity = *input.Quantity
		}
		if input.DiscountPercent != nil {
			item.DiscountPercent = *input.DiscountPercent
		}
		item.Recalculate()
		if err := s.orderRepo.WithTx(tx).SaveItem(item); err != nil {
			return err
		}
		if order.Status.IsActive() {
			if err := s.inventory.Deduct(ctx, tx, item); err != nil {
				return err
			}
		}
		return s.afterItemChange(ctx, tx, orderID)
	})
	if err != nil {
		logger.Warn("Failed to update order item", map[string]interface{}{
			"order_id":      orderID,
			"order_item_id": itemID,
			"error":         err.Error(),
		})
		return nil, err
	}
	return item, nil
}

func (s *orderService) RemoveOrderItem(ctx context.Context, orderID, itemID uint) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.lockOrder(tx, orderID); err != nil {
			return err
		}
		item, err := s.orderRepo.WithTx(tx).FindItem(orderID, itemID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrOrderItemNotFound
			}
			return err
		}

		if err := s.inventory.Restore(ctx, tx, item.ID); err != nil {
			return err
		}
		if err := s.orderRepo.WithTx(tx).DeleteItem(item); err != nil {
			return err
		}
		return s.afterItemChange(ctx, tx, orderID)
	})
	if err != nil {
		logger.Warn("Failed to remove order item", map[string]interface{}{
			"order_id":      orderID,
			"order_item_id": itemID,
			"error":         err.Error(),
		})
		return err
	}

	logger.Info("Order item removed", map[string]interface{}{
		"order_id":      orderID,
		"order_item_id": itemID,
	})
	return nil
}

func (s *orderService) GetOrder(ctx context.Context, orderID uint) (*model.Order, error) {
	order, err := s.orderRepo.WithTx(s.db.WithContext(ctx)).FindByID(orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Warn("Order not found", map[string]interface{}{
				"order_id": orderID,
			})
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	return order, nil
}

func (s *orderService) ListOrders(ctx context.Context, filter repository.OrderFilter, page repository.Page) ([]model.Order, int64, error) {
	return s.orderRepo.WithTx(s.db.WithContext(ctx)).List(filter, NormalizePage(page))
}
