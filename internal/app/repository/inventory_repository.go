package repository

import (
	"github.com/ikkim/storefront-backend/internal/app/model"
	"github.com/ikkim/storefront-backend/pkg/logger"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// InventoryRepository reads and writes stock lots and the per-item deduction ledger.
type InventoryRepository interface {
	WithTx(tx *gorm.DB) InventoryRepository

	LockLotsByVariant(variantID uint) ([]model.VariantInvoiceQuantity, error)
	LockLotsByID(ids []uint) ([]model.VariantInvoiceQuantity, error)
	AdjustLot(lotID uint, delta int) error
	SumAvailable(variantID uint) (int64, error)
	InsertLots(lots []model.VariantInvoiceQuantity) (int, error)
	ListLots(variantID uint) ([]model.VariantInvoiceQuantity, error)

	CreateEntries(entries []model.OrderItemVariantInvoiceQuantity) error
	FindEntriesByItem(itemID uint) ([]model.OrderItemVariantInvoiceQuantity, error)
	DeleteEntriesByItem(itemID uint) error
	SumDeductedByItem(itemID uint) (int64, error)
}

type inventoryRepository struct {
	db *gorm.DB
}

func NewInventoryRepository(db *gorm.DB) InventoryRepository {
	return &inventoryRepository{db: db}
}

func (r *inventoryRepository) WithTx(tx *gorm.DB) InventoryRepository {
	return &inventoryRepository{db: tx}
}

// LockLotsByVariant locks the variant's lots in ascending id order, which is also the consumption order.
func (r *inventoryRepository) LockLotsByVariant(variantID uint) ([]model.VariantInvoiceQuantity, error) {
	var lots []model.VariantInvoiceQuantity
	if err := r.db.
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("variant_id = ?", variantID).
		Order("id ASC").
		Find(&lots).Error; err != nil {
		logger.Error("Failed to lock lots for variant", err, map[string]interface{}{
			"variant_id": variantID,
		})
		return nil, err
	}
	return lots, nil
}

func (r *inventoryRepository) LockLotsByID(ids []uint) ([]model.VariantInvoiceQuantity, error) {
	var lots []model.VariantInvoiceQuantity
	if len(ids) == 0 {
		return lots, nil
	}
	if err := r.db.
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id IN ?", ids).
		Order("id ASC").
		Find(&lots).Error; err != nil {
		logger.Error("Failed to lock lots by id", err, map[string]interface{}{
			"count": len(ids),
		})
		return nil, err
	}
	return lots, nil
}

// AdjustLot adds delta (negative to deduct) to the lot's remaining quantity in one statement.
func (r *inventoryRepository) AdjustLot(lotID uint, delta int) error {
	logger.Debug("Adjusting lot quantity", map[string]interface{}{
		"lot_id": lotID,
		"delta":  delta,
	})

	if err := r.db.Model(&model.VariantInvoiceQuantity{}).
		Where("id = ?", lotID).
		UpdateColumn("quantity", gorm.Expr("quantity + ?", delta)).Error; err != nil {
		logger.Error("Failed to adjust lot quantity", err, map[string]interface{}{
			"lot_id": lotID,
			"delta":  delta,
		})
		return err
	}
	return nil
}

func (r *inventoryRepository) SumAvailable(variantID uint) (int64, error) {
	var total int64
	if err := r.db.Model(&model.VariantInvoiceQuantity{}).
		Where("variant_id = ?", variantID).
		Select("COALESCE(SUM(quantity), 0)").
		Scan(&total).Error; err != nil {
		logger.Error("Failed to sum available stock", err, map[string]interface{}{
			"variant_id": variantID,
		})
		return 0, err
	}
	return total, nil
}

// InsertLots creates lots, skipping (variant, invoice) pairs that already exist.
func (r *inventoryRepository) InsertLots(lots []model.VariantInvoiceQuantity) (int, error) {
	if len(lots) == 0 {
		return 0, nil
	}
	result := r.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&lots)
	if result.Error != nil {
		logger.Error("Failed to insert lots", result.Error, map[string]interface{}{
			"count": len(lots),
		})
		return 0, result.Error
	}
	return int(result.RowsAffected), nil
}

func (r *inventoryRepository) ListLots(variantID uint) ([]model.VariantInvoiceQuantity, error) {
	var lots []model.VariantInvoiceQuantity
	if err := r.db.Where("variant_id = ?", variantID).Order("id ASC").Find(&lots).Error; err != nil {
		return nil, err
	}
	return lots, nil
}

func (r *inventoryRepository) CreateEntries(entries []model.OrderItemVariantInvoiceQuantity) error {
	if len(entries) == 0 {
		return nil
	}
	if err := r.db.Create(&entries).Error; err != nil {
		logger.Error("Failed to create ledger entries", err, map[string]interface{}{
			"order_item_id": entries[0].OrderItemID,
			"count":         len(entries),
		})
		return err
	}
	return nil
}

// FindEntriesByItem returns the item's ledger newest first, the order reversal replays it in.
func (r *inventoryRepository) FindEntriesByItem(itemID uint) ([]model.OrderItemVariantInvoiceQuantity, error) {
	var entries []model.OrderItemVariantInvoiceQuantity
	if err := r.db.Where("order_item_id = ?", itemID).Order("id DESC").Find(&entries).Error; err != nil {
		logger.Error("Failed to find ledger entries", err, map[string]interface{}{
			"order_item_id": itemID,
		})
		return nil, err
	}
	return entries, nil
}

func (r *inventoryRepository) DeleteEntriesByItem(itemID uint) error {
	if err := r.db.Where("order_item_id = ?", itemID).Delete(&model.OrderItemVariantInvoiceQuantity{}).Error; err != nil {
		logger.Error("Failed to delete ledger entries", err, map[string]interface{}{
			"order_item_id": itemID,
		})
		return err
	}
	return nil
}

func (r *inventoryRepository) SumDeductedByItem(itemID uint) (int64, error) {
	var total int64
	if err := r.db.Model(&model.OrderItemVariantInvoiceQuantity{}).
		Where("order_item_id = ?", itemID).
		Select("COALESCE(SUM(deducted_quantity), 0)").
		Scan(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}
