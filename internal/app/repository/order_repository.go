package repository

import (
	"github.com/ikkim/storefront-backend/internal/app/model"
	"github.com/ikkim/storefront-backend/pkg/logger"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type OrderFilter struct {
	UserID *uint
	Status *model.OrderStatus
	Synced *bool
}

type OrderRepository interface {
	WithTx(tx *gorm.DB) OrderRepository

	Create(order *model.Order) error
	FindByID(id uint) (*model.Order, error)
	LockByID(id uint) (*model.Order, error)
	List(filter OrderFilter, page Page) ([]model.Order, int64, error)
	UpdateStatus(id uint, status model.OrderStatus) error
	MarkSynced(ids []uint) error
	MarkUnsynced(id uint) error
	FindUnsyncedForAnalytics(status *model.OrderStatus) ([]model.Order, error)

	CreateItem(item *model.OrderItem) error
	FindItem(orderID, itemID uint) (*model.OrderItem, error)
	SaveItem(item *model.OrderItem) error
	DeleteItem(item *model.OrderItem) error
	ListItems(orderID uint) ([]model.OrderItem, error)
	SumFactItemsAfterDiscount(status *model.OrderStatus) (int64, error)
}

type orderRepository struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) OrderRepository {
	return &orderRepository{db: db}
}

func (r *orderRepository) WithTx(tx *gorm.DB) OrderRepository {
	return &orderRepository{db: tx}
}

func (r *orderRepository) preloadOrder() *gorm.DB {
	return r.db.Preload("Items", func(db *gorm.DB) *gorm.DB {
		return db.Order("order_items.id ASC")
	}).Preload("Items.Variant.Product").Preload("User")
}

func (r *orderRepository) Create(order *model.Order) error {
	logger.Debug("Creating order in database", map[string]interface{}{
		"user_id":    order.UserID,
		"status":     order.Status,
		"item_count": len(order.Items),
	})

	if err := r.db.Omit(clause.Associations).Create(order).Error; err != nil {
		logger.Error("Failed to create order in database", err, map[string]interface{}{
			"user_id": order.UserID,
		})
		return err
	}
	for i := range order.Items {
		order.Items[i].OrderID = order.ID
		if err := r.CreateItem(&order.Items[i]); err != nil {
			return err
		}
	}

	logger.Debug("Order created in database", map[string]interface{}{
		"order_id": order.ID,
		"user_id":  order.UserID,
	})
	return nil
}

func (r *orderRepository) FindByID(id uint) (*model.Order, error) {
	logger.Debug("Finding order by ID in database", map[string]interface{}{
		"order_id": id,
	})

	var order model.Order
	if err := r.preloadOrder().First(&order, id).Error; err != nil {
		logger.Error("Failed to find order by ID in database", err, map[string]interface{}{
			"order_id": id,
		})
		return nil, err
	}
	return &order, nil
}

// LockByID locks the order row and loads its items with their variants and products.
func (r *orderRepository) LockByID(id uint) (*model.Order, error) {
	var order model.Order
	if err := r.db.
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("order_items.id ASC")
		}).
		Preload("Items.Variant.Product").
		First(&order, id).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *orderRepository) filtered(filter OrderFilter) *gorm.DB {
	query := r.db.Model(&model.Order{})
	if filter.UserID != nil {
		query = query.Where("user_id = ?", *filter.UserID)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.Synced != nil {
		query = query.Where("is_synced_analytics = ?", *filter.Synced)
	}
	return query
}

func (r *orderRepository) List(filter OrderFilter, page Page) ([]model.Order, int64, error) {
	var total int64
	if err := r.filtered(filter).Count(&total).Error; err != nil {
		logger.Error("Failed to count orders", err)
		return nil, 0, err
	}

	var orders []model.Order
	if err := r.filtered(filter).
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("order_items.id ASC")
		}).
		Order("created_at DESC, id DESC").
		Offset(page.Offset()).
		Limit(page.PageSize).
		Find(&orders).Error; err != nil {
		logger.Error("Failed to list orders", err)
		return nil, 0, err
	}
	return orders, total, nil
}

func (r *orderRepository) UpdateStatus(id uint, status model.OrderStatus) error {
	logger.Debug("Updating order status in database", map[string]interface{}{
		"order_id": id,
		"status":   status,
	})

	if err := r.db.Model(&model.Order{}).Where("id = ?", id).Update("status", status).Error; err != nil {
		logger.Error("Failed to update order status in database", err, map[string]interface{}{
			"order_id": id,
			"status":   status,
		})
		return err
	}
	return nil
}

func (r *orderRepository) MarkSynced(ids []uint) error {
	if len(ids) == 0 {
		return nil
	}
	return r.db.Model(&model.Order{}).Where("id IN ?", ids).Update("is_synced_analytics", true).Error
}

func (r *orderRepository) MarkUnsynced(id uint) error {
	return r.db.Model(&model.Order{}).Where("id = ?", id).Update("is_synced_analytics", false).Error
}

// FindUnsyncedForAnalytics loads everything the dimension resolver snapshots.
func (r *orderRepository) FindUnsyncedForAnalytics(status *model.OrderStatus) ([]model.Order, error) {
	query := r.db.
		Preload("User.AgeRange").
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("order_items.id ASC")
		}).
		Preload("Items.Variant.Product.Brand.Supplier").
		Preload("Items.Variant.Product.Category.Parent.Parent").
		Where("is_synced_analytics = ?", false)
	if status != nil {
		query = query.Where("status = ?", *status)
	}

	var orders []model.Order
	if err := query.Order("id ASC").Find(&orders).Error; err != nil {
		logger.Error("Failed to load unsynced orders", err)
		return nil, err
	}

	logger.Debug("Unsynced orders loaded", map[string]interface{}{
		"count": len(orders),
	})
	return orders, nil
}

func (r *orderRepository) CreateItem(item *model.OrderItem) error {
	if err := r.db.Omit(clause.Associations).Create(item).Error; err != nil {
		logger.Error("Failed to create order item", err, map[string]interface{}{
			"order_id": item.OrderID,
		})
		return err
	}
	return nil
}

func (r *orderRepository) FindItem(orderID, itemID uint) (*model.OrderItem, error) {
	var item model.OrderItem
	if err := r.db.
		Preload("Variant.Product").
		Where("order_id = ? AND id = ?", orderID, itemID).
		First(&item).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *orderRepository) SaveItem(item *model.OrderItem) error {
	if err := r.db.Omit(clause.Associations).Save(item).Error; err != nil {
		logger.Error("Failed to save order item", err, map[string]interface{}{
			"order_item_id": item.ID,
		})
		return err
	}
	return nil
}

func (r *orderRepository) DeleteItem(item *model.OrderItem) error {
	if err := r.db.Delete(&model.OrderItem{}, item.ID).Error; err != nil {
		logger.Error("Failed to delete order item", err, map[string]interface{}{
			"order_item_id": item.ID,
		})
		return err
	}
	return nil
}

func (r *orderRepository) ListItems(orderID uint) ([]model.OrderItem, error) {
	var items []model.OrderItem
	if err := r.db.Where("order_id = ?", orderID).Order("id ASC").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// SumFactItemsAfterDiscount sums discounted item totals of every order that has a fact row.
// The status filter applies to the fact snapshot so both sides of a verify cover the same orders.
func (r *orderRepository) SumFactItemsAfterDiscount(status *model.OrderStatus) (int64, error) {
	var total int64
	query := r.db.Model(&model.OrderItem{}).
		Joins("JOIN fact_sales ON fact_sales.order_id = order_items.order_id")
	if status != nil {
		query = query.Where("fact_sales.status = ?", *status)
	}
	if err := query.Select("COALESCE(SUM(order_items.total_after_discount), 0)").Scan(&total).Error; err != nil {
		logger.Error("Failed to sum order items of projected orders", err)
		return 0, err
	}
	return total, nil
}
