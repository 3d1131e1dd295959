package repository

import (
	"github.com/ikkim/storefront-backend/internal/app/model"
	"github.com/ikkim/storefront-backend/pkg/logger"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// FactRepository persists FactSales rows and their variant associations.
type FactRepository interface {
	WithTx(tx *gorm.DB) FactRepository

	FindByOrderIDs(orderIDs []uint) ([]model.FactSales, error)
	LockByOrderID(orderID uint) (*model.FactSales, error)
	Create(fact *model.FactSales) error
	UpdateFields(id uint, fields map[string]interface{}) error
	VariantIDs(factID uint) ([]uint, error)
	AddVariants(factID uint, dimVariantIDs []uint) error
	ReplaceVariants(factID uint, dimVariantIDs []uint) error

	LockEligibleForRollup() ([]model.FactSales, error)
	MarkExcluded(ids []uint) error
	SumAfterDiscount(status *model.OrderStatus) (int64, error)
}

type factRepository struct {
	db *gorm.DB
}

func NewFactRepository(db *gorm.DB) FactRepository {
	return &factRepository{db: db}
}

func (r *factRepository) WithTx(tx *gorm.DB) FactRepository {
	return &factRepository{db: tx}
}

func (r *factRepository) FindByOrderIDs(orderIDs []uint) ([]model.FactSales, error) {
	var facts []model.FactSales
	if len(orderIDs) == 0 {
		return facts, nil
	}
	if err := r.db.Preload("Variants").Where("order_id IN ?", orderIDs).Find(&facts).Error; err != nil {
		logger.Error("Failed to find facts by order ids", err, map[string]interface{}{
			"count": len(orderIDs),
		})
		return nil, err
	}
	return facts, nil
}

// LockByOrderID returns gorm.ErrRecordNotFound when the order has not been projected yet.
func (r *factRepository) LockByOrderID(orderID uint) (*model.FactSales, error) {
	var fact model.FactSales
	if err := r.db.
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("order_id = ?", orderID).
		First(&fact).Error; err != nil {
		return nil, err
	}
	return &fact, nil
}

// Create inserts the fact only; associations go through AddVariants.
func (r *factRepository) Create(fact *model.FactSales) error {
	logger.Debug("Creating fact sales row", map[string]interface{}{
		"order_id": fact.OrderID,
		"status":   fact.Status,
	})

	if err := r.db.Omit(clause.Associations).Create(fact).Error; err != nil {
		logger.Error("Failed to create fact sales row", err, map[string]interface{}{
			"order_id": fact.OrderID,
		})
		return err
	}
	return nil
}

func (r *factRepository) UpdateFields(id uint, fields map[string]interface{}) error {
	if err := r.db.Model(&model.FactSales{}).Where("id = ?", id).Updates(fields).Error; err != nil {
		logger.Error("Failed to update fact sales row", err, map[string]interface{}{
			"fact_id": id,
		})
		return err
	}
	return nil
}

func (r *factRepository) VariantIDs(factID uint) ([]uint, error) {
	var ids []uint
	if err := r.db.Model(&model.FactSalesVariant{}).
		Where("fact_sales_id = ?", factID).
		Order("dim_variant_order_id ASC").
		Pluck("dim_variant_order_id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *factRepository) AddVariants(factID uint, dimVariantIDs []uint) error {
	if len(dimVariantIDs) == 0 {
		return nil
	}
	rows := make([]model.FactSalesVariant, 0, len(dimVariantIDs))
	for _, id := range dimVariantIDs {
		rows = append(rows, model.FactSalesVariant{FactSalesID: factID, DimVariantOrderID: id})
	}
	if err := r.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&rows).Error; err != nil {
		logger.Error("Failed to associate fact variants", err, map[string]interface{}{
			"fact_id": factID,
			"count":   len(rows),
		})
		return err
	}
	return nil
}

func (r *factRepository) ReplaceVariants(factID uint, dimVariantIDs []uint) error {
	if err := r.db.Where("fact_sales_id = ?", factID).Delete(&model.FactSalesVariant{}).Error; err != nil {
		logger.Error("Failed to clear fact variants", err, map[string]interface{}{
			"fact_id": factID,
		})
		return err
	}
	return r.AddVariants(factID, dimVariantIDs)
}

func (r *factRepository) LockEligibleForRollup() ([]model.FactSales, error) {
	var facts []model.FactSales
	if err := r.db.
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("exclude_from_analytics = ?", false).
		Order("id ASC").
		Find(&facts).Error; err != nil {
		logger.Error("Failed to lock facts for rollup", err)
		return nil, err
	}
	return facts, nil
}

func (r *factRepository) MarkExcluded(ids []uint) error {
	if len(ids) == 0 {
		return nil
	}
	if err := r.db.Model(&model.FactSales{}).
		Where("id IN ?", ids).
		Update("exclude_from_analytics", true).Error; err != nil {
		logger.Error("Failed to mark facts as rolled up", err, map[string]interface{}{
			"count": len(ids),
		})
		return err
	}
	return nil
}

func (r *factRepository) SumAfterDiscount(status *model.OrderStatus) (int64, error) {
	var total int64
	query := r.db.Model(&model.FactSales{})
	if status != nil {
		query = query.Where("status = ?", *status)
	}
	if err := query.Select("COALESCE(SUM(total_price_after_discount), 0)").Scan(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}
