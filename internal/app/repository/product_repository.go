package repository

import (
	"github.com/ikkim/storefront-backend/internal/app/model"
	"github.com/ikkim/storefront-backend/pkg/logger"
	"gorm.io/gorm"
)

// CatalogRepository exposes the read-only catalog the order and purchase paths price against.
type CatalogRepository interface {
	WithTx(tx *gorm.DB) CatalogRepository

	FindVariantByID(id uint) (*model.Variant, error)
	FindVariantBySKU(sku string) (*model.Variant, error)
	FindOrCreateSupplier(name string) (*model.Supplier, error)
}

type catalogRepository struct {
	db *gorm.DB
}

func NewCatalogRepository(db *gorm.DB) CatalogRepository {
	return &catalogRepository{db: db}
}

func (r *catalogRepository) WithTx(tx *gorm.DB) CatalogRepository {
	return &catalogRepository{db: tx}
}

func (r *catalogRepository) FindVariantByID(id uint) (*model.Variant, error) {
	logger.Debug("Finding variant by ID in database", map[string]interface{}{
		"variant_id": id,
	})

	var variant model.Variant
	if err := r.db.Preload("Product").First(&variant, id).Error; err != nil {
		logger.Error("Failed to find variant by ID in database", err, map[string]interface{}{
			"variant_id": id,
		})
		return nil, err
	}
	return &variant, nil
}

func (r *catalogRepository) FindVariantBySKU(sku string) (*model.Variant, error) {
	var variant model.Variant
	if err := r.db.Preload("Product").Where("sku = ?", sku).First(&variant).Error; err != nil {
		logger.Error("Failed to find variant by SKU in database", err, map[string]interface{}{
			"sku": sku,
		})
		return nil, err
	}
	return &variant, nil
}

// FindOrCreateSupplier matches suppliers by exact name.
func (r *catalogRepository) FindOrCreateSupplier(name string) (*model.Supplier, error) {
	var supplier model.Supplier
	err := r.db.Where("name = ?", name).
		Attrs(model.Supplier{Name: name}).
		FirstOrCreate(&supplier).Error
	if err != nil {
		logger.Error("Failed to find or create supplier", err, map[string]interface{}{
			"name": name,
		})
		return nil, err
	}
	return &supplier, nil
}
