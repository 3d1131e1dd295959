package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ikkim/storefront-backend/internal/app/model"
	"github.com/ikkim/storefront-backend/internal/app/repository"
	"github.com/ikkim/storefront-backend/pkg/logger"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var (
	ErrInvoiceNotFound = errors.New("purchase invoice not found")
	ErrInvoiceClosed   = errors.New("purchase invoice is cancelled")
)

// PurchaseLineInput identifies the variant by id or, when the id is zero, by SKU.
type PurchaseLineInput struct {
	VariantID uint   `json:"variant_id"`
	SKU       string `json:"sku" validate:"required_without=VariantID"`
	Quantity  int    `json:"quantity" validate:"required,min=1"`
}

type CreateInvoiceInput struct {
	Title        string              `json:"title" validate:"required,max=100"`
	SupplierName string              `json:"supplier_name" validate:"max=100"`
	DeliveryDate *time.Time          `json:"delivery_date"`
	Items        []PurchaseLineInput `json:"items" validate:"required,min=1,dive"`
}

type ReceiveResult struct {
	Invoice     *model.PurchaseInvoice `json:"invoice"`
	LotsCreated int                    `json:"lots_created"`
}

// PurchaseService records supplier deliveries and turns received invoices into stock lots.
type PurchaseService interface {
	CreateInvoice(ctx context.Context, input CreateInvoiceInput) (*model.PurchaseInvoice, error)
	ReceiveInvoice(ctx context.Context, invoiceID uint) (*ReceiveResult, error)
	GetInvoice(ctx context.Context, invoiceID uint) (*model.PurchaseInvoice, error)
}

type purchaseService struct {
	purchaseRepo  repository.PurchaseRepository
	catalogRepo   repository.CatalogRepository
	inventoryRepo repository.InventoryRepository
	db            *gorm.DB
}

func NewPurchaseService(
	purchaseRepo repository.PurchaseRepository,
	catalogRepo repository.CatalogRepository,
	inventoryRepo repository.InventoryRepository,
	db *gorm.DB,
) PurchaseService {
	return &purchaseService{
		purchaseRepo:  purchaseRepo,
		catalogRepo:   catalogRepo,
		inventoryRepo: inventoryRepo,
		db:            db,
	}
}

// lineTotal is the product price times quantity at the time the invoice is written.
func lineTotal(variant *model.Variant, quantity int) decimal.Decimal {
	return decimal.NewFromInt(variant.Product.Price).Mul(decimal.NewFromInt(int64(quantity)))
}

func (s *purchaseService) CreateInvoice(ctx context.Context, input CreateInvoiceInput) (*model.PurchaseInvoice, error) {
	if err := validate.Struct(input); err != nil {
		return nil, err
	}

	invoice := &model.PurchaseInvoice{
		Title:        input.Title,
		Status:       model.PurchaseInvoicePending,
		DeliveryDate: input.DeliveryDate,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		catalog := s.catalogRepo.WithTx(tx)
		if input.SupplierName != "" {
			supplier, err := catalog.FindOrCreateSupplier(input.SupplierName)
			if err != nil {
				return err
			}
			invoice.SupplierID = &supplier.ID
		}

		total := decimal.Zero
		for _, line := range input.Items {
			var (
				variant *model.Variant
				err     error
			)
			if line.VariantID != 0 {
				variant, err = catalog.FindVariantByID(line.VariantID)
			} else {
				variant, err = catalog.FindVariantBySKU(line.SKU)
			}
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return fmt.Errorf("%w: id=%d sku=%q", ErrVariantNotFound, line.VariantID, line.SKU)
				}
				return err
			}

			variantID := variant.ID
			item := model.PurchaseItem{
				VariantID:  &variantID,
				Quantity:   line.Quantity,
				TotalPrice: lineTotal(variant, line.Quantity),
			}
			total = total.Add(item.TotalPrice)
			invoice.Items = append(invoice.Items, item)
		}
		invoice.TotalPrice = total

		return s.purchaseRepo.WithTx(tx).CreateInvoice(invoice)
	})
	if err != nil {
		logger.Error("Failed to create purchase invoice", err, map[string]interface{}{
			"title": input.Title,
		})
		return nil, err
	}

	logger.Info("Purchase invoice created", map[string]interface{}{
		"invoice_id":  invoice.ID,
		"item_count":  len(invoice.Items),
		"total_price": invoice.TotalPrice.StringFixed(2),
	})
	return invoice, nil
}

// ReceiveInvoice marks the invoice done and creates one lot per (variant, invoice) pair that
// has none yet. Receiving twice creates nothing new.
func (s *purchaseService) ReceiveInvoice(ctx context.Context, invoiceID uint) (*ReceiveResult, error) {
	result := &ReceiveResult{}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.purchaseRepo.WithTx(tx)
		invoice, err := repo.LockInvoice(invoiceID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrInvoiceNotFound
			}
			return err
		}
		if invoice.Status == model.PurchaseInvoiceCancelled {
			return ErrInvoiceClosed
		}

		quantities := make(map[uint]int)
		order := make([]uint, 0, len(invoice.Items))
		total := decimal.Zero
		for i := range invoice.Items {
			item := &invoice.Items[i]
			if item.Variant != nil {
				item.TotalPrice = lineTotal(item.Variant, item.Quantity)
			}
			total = total.Add(item.TotalPrice)

			if item.VariantID == nil {
				continue
			}
			if _, ok := quantities[*item.VariantID]; !ok {
				order = append(order, *item.VariantID)
			}
			quantities[*item.VariantID] += item.Quantity
		}

		lots := make([]model.VariantInvoiceQuantity, 0, len(order))
		for _, variantID := range order {
			lots = append(lots, model.VariantInvoiceQuantity{
				VariantID:         variantID,
				PurchaseInvoiceID: invoice.ID,
				Quantity:          quantities[variantID],
				InitialQuantity:   quantities[variantID],
			})
		}
		created, err := s.inventoryRepo.WithTx(tx).InsertLots(lots)
		if err != nil {
			return err
		}

		invoice.Status = model.PurchaseInvoiceDone
		invoice.TotalPrice = total
		if err := repo.UpdateInvoice(invoice); err != nil {
			return err
		}

		result.Invoice = invoice
		result.LotsCreated = created
		return nil
	})
	if err != nil {
		logger.Warn("Failed to receive purchase invoice", map[string]interface{}{
			"invoice_id": invoiceID,
			"error":      err.Error(),
		})
		return nil, err
	}

	logger.Info("Purchase invoice received", map[string]interface{}{
		"invoice_id":   invoiceID,
		"lots_created": result.LotsCreated,
	})
	return result, nil
}

func (s *purchaseService) GetInvoice(ctx context.Context, invoiceID uint) (*model.PurchaseInvoice, error) {
	invoice, err := s.purchaseRepo.WithTx(s.db.WithContext(ctx)).FindInvoice(invoiceID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvoiceNotFound
		}
		return nil, err
	}
	return invoice, nil
}
