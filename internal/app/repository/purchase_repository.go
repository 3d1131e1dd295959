package repository

import (
	"github.com/ikkim/storefront-backend/internal/app/model"
	"github.com/ikkim/storefront-backend/pkg/logger"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type PurchaseRepository interface {
	WithTx(tx *gorm.DB) PurchaseRepository

	CreateInvoice(invoice *model.PurchaseInvoice) error
	LockInvoice(id uint) (*model.PurchaseInvoice, error)
	FindInvoice(id uint) (*model.PurchaseInvoice, error)
	UpdateInvoice(invoice *model.PurchaseInvoice) error
}

type purchaseRepository struct {
	db *gorm.DB
}

func NewPurchaseRepository(db *gorm.DB) PurchaseRepository {
	return &purchaseRepository{db: db}
}

func (r *purchaseRepository) WithTx(tx *gorm.DB) PurchaseRepository {
	return &purchaseRepository{db: tx}
}

func (r *purchaseRepository) CreateInvoice(invoice *model.PurchaseInvoice) error {
	logger.Debug("Creating purchase invoice in database", map[string]interface{}{
		"title":      invoice.Title,
		"item_count": len(invoice.Items),
	})

	if err := r.db.Omit(clause.Associations).Create(invoice).Error; err != nil {
		logger.Error("Failed to create purchase invoice", err, map[string]interface{}{
			"title": invoice.Title,
		})
		return err
	}
	for i := range invoice.Items {
		invoice.Items[i].InvoiceID = invoice.ID
		if err := r.db.Omit(clause.Associations).Create(&invoice.Items[i]).Error; err != nil {
			logger.Error("Failed to create purchase item", err, map[string]interface{}{
				"invoice_id": invoice.ID,
			})
			return err
		}
	}
	return nil
}

// LockInvoice locks the invoice row and loads its items ordered by id.
func (r *purchaseRepository) LockInvoice(id uint) (*model.PurchaseInvoice, error) {
	var invoice model.PurchaseInvoice
	if err := r.db.
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("purchase_items.id ASC")
		}).
		Preload("Items.Variant.Product").
		First(&invoice, id).Error; err != nil {
		return nil, err
	}
	return &invoice, nil
}

func (r *purchaseRepository) FindInvoice(id uint) (*model.PurchaseInvoice, error) {
	var invoice model.PurchaseInvoice
	if err := r.db.
		Preload("Supplier").
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("purchase_items.id ASC")
		}).
		First(&invoice, id).Error; err != nil {
		return nil, err
	}
	return &invoice, nil
}

func (r *purchaseRepository) UpdateInvoice(invoice *model.PurchaseInvoice) error {
	if err := r.db.Model(&model.PurchaseInvoice{}).Where("id = ?", invoice.ID).Updates(map[string]interface{}{
		"status":      invoice.Status,
		"total_price": invoice.TotalPrice,
	}).Error; err != nil {
		logger.Error("Failed to update purchase invoice", err, map[string]interface{}{
			"invoice_id": invoice.ID,
		})
		return err
	}
	for i := range invoice.Items {
		item := &invoice.Items[i]
		if err := r.db.Model(&model.PurchaseItem{}).Where("id = ?", item.ID).
			Update("total_price", item.TotalPrice).Error; err != nil {
			return err
		}
	}
	return nil
}
