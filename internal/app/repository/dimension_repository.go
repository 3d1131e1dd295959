package repository

import (
	"github.com/ikkim/storefront-backend/internal/app/model"
	"github.com/ikkim/storefront-backend/pkg/logger"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DimensionRepository stores dimension rows. Every Insert* ignores natural-key
// conflicts and returns how many rows were actually written; callers re-read by key.
type DimensionRepository interface {
	WithTx(tx *gorm.DB) DimensionRepository

	InsertDates(rows []model.DimDate) (int, error)
	FindDatesByFullDate(fullDates []string) ([]model.DimDate, error)

	InsertUsers(rows []model.DimUser) (int, error)
	FindUsersByUserID(userIDs []uint) ([]model.DimUser, error)

	InsertProducts(rows []model.DimProductBase) (int, error)
	FindProductsByProductID(productIDs []uint) ([]model.DimProductBase, error)

	InsertVariants(rows []model.DimVariantOrder) (int, error)
	FindVariantsByVariantID(variantIDs []uint) ([]model.DimVariantOrder, error)
	UpdateVariantTotals(id uint, totalPrice, totalAfterDiscount int64) (bool, error)
}

type dimensionRepository struct {
	db *gorm.DB
}

func NewDimensionRepository(db *gorm.DB) DimensionRepository {
	return &dimensionRepository{db: db}
}

func (r *dimensionRepository) WithTx(tx *gorm.DB) DimensionRepository {
	return &dimensionRepository{db: tx}
}

func (r *dimensionRepository) insertIgnore(table string, rows interface{}, count int) (int, error) {
	if count == 0 {
		return 0, nil
	}

	result := r.db.Clauses(clause.OnConflict{DoNothing: true}).Create(rows)
	if result.Error != nil {
		logger.Error("Failed to insert dimension rows", result.Error, map[string]interface{}{
			"table": table,
			"count": count,
		})
		return 0, result.Error
	}

	logger.Debug("Dimension rows inserted", map[string]interface{}{
		"table":    table,
		"keys":     count,
		"inserted": result.RowsAffected,
	})
	return int(result.RowsAffected), nil
}

func (r *dimensionRepository) InsertDates(rows []model.DimDate) (int, error) {
	return r.insertIgnore("dim_dates", &rows, len(rows))
}

func (r *dimensionRepository) FindDatesByFullDate(fullDates []string) ([]model.DimDate, error) {
	var rows []model.DimDate
	if len(fullDates) == 0 {
		return rows, nil
	}
	if err := r.db.Where("full_date IN ?", fullDates).Find(&rows).Error; err != nil {
		logger.Error("Failed to find dim dates", err, map[string]interface{}{
			"count": len(fullDates),
		})
		return nil, err
	}
	return rows, nil
}

func (r *dimensionRepository) InsertUsers(rows []model.DimUser) (int, error) {
	return r.insertIgnore("dim_users", &rows, len(rows))
}

func (r *dimensionRepository) FindUsersByUserID(userIDs []uint) ([]model.DimUser, error) {
	var rows []model.DimUser
	if len(userIDs) == 0 {
		return rows, nil
	}
	if err := r.db.Where("user_id IN ?", userIDs).Find(&rows).Error; err != nil {
		logger.Error("Failed to find dim users", err, map[string]interface{}{
			"count": len(userIDs),
		})
		return nil, err
	}
	return rows, nil
}

func (r *dimensionRepository) InsertProducts(rows []model.DimProductBase) (int, error) {
	return r.insertIgnore("dim_product_bases", &rows, len(rows))
}

// FindProductsByProductID returns every flag combination recorded for the products.
func (r *dimensionRepository) FindProductsByProductID(productIDs []uint) ([]model.DimProductBase, error) {
	var rows []model.DimProductBase
	if len(productIDs) == 0 {
		return rows, nil
	}
	if err := r.db.Where("product_id IN ?", productIDs).Find(&rows).Error; err != nil {
		logger.Error("Failed to find dim products", err, map[string]interface{}{
			"count": len(productIDs),
		})
		return nil, err
	}
	return rows, nil
}

func (r *dimensionRepository) InsertVariants(rows []model.DimVariantOrder) (int, error) {
	return r.insertIgnore("dim_variant_orders", &rows, len(rows))
}

func (r *dimensionRepository) FindVariantsByVariantID(variantIDs []uint) ([]model.DimVariantOrder, error) {
	var rows []model.DimVariantOrder
	if len(variantIDs) == 0 {
		return rows, nil
	}
	if err := r.db.Where("variant_id IN ?", variantIDs).Find(&rows).Error; err != nil {
		logger.Error("Failed to find dim variants", err, map[string]interface{}{
			"count": len(variantIDs),
		})
		return nil, err
	}
	return rows, nil
}

// UpdateVariantTotals overwrites the line totals only when they differ; reports whether a row changed.
func (r *dimensionRepository) UpdateVariantTotals(id uint, totalPrice, totalAfterDiscount int64) (bool, error) {
	result := r.db.Model(&model.DimVariantOrder{}).
		Where("id = ? AND (total_price <> ? OR total_after_discount <> ?)", id, totalPrice, totalAfterDiscount).
		Updates(map[string]interface{}{
			"total_price":          totalPrice,
			"total_after_discount": totalAfterDiscount,
		})
	if result.Error != nil {
		logger.Error("Failed to update dim variant totals", result.Error, map[string]interface{}{
			"dim_variant_id": id,
		})
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
