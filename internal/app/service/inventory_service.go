package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/ikkim/storefront-backend/internal/app/model"
	"github.com/ikkim/storefront-backend/internal/app/repository"
	"github.com/ikkim/storefront-backend/pkg/logger"
	"gorm.io/gorm"
)

var (
	ErrOutOfStock      = errors.New("insufficient stock")
	ErrInvalidQuantity = errors.New("quantity must be positive")
)

// InventoryService keeps lot quantities and the per-item deduction ledger in step.
// Deduct, Restore and Reconcile run on the caller's transaction.
type InventoryService interface {
	Deduct(ctx context.Context, tx *gorm.DB, item *model.OrderItem) error
	Restore(ctx context.Context, tx *gorm.DB, itemID uint) error
	Reconcile(ctx context.Context, tx *gorm.DB, item *model.OrderItem, from, to model.OrderStatus) error
	Available(ctx context.Context, variantID uint) (int64, error)
	Lots(ctx context.Context, variantID uint) ([]model.VariantInvoiceQuantity, error)
}

type inventoryService struct {
	inventoryRepo repository.InventoryRepository
	db            *gorm.DB
}

func NewInventoryService(inventoryRepo repository.InventoryRepository, db *gorm.DB) InventoryService {
	return &inventoryService{
		inventoryRepo: inventoryRepo,
		db:            db,
	}
}

// Deduct consumes the item's quantity from its variant's lots, oldest lot first.
// Entries already recorded for the item are reversed before deducting again.
func (s *inventoryService) Deduct(ctx context.Context, tx *gorm.DB, item *model.OrderItem) error {
	if item.VariantID == nil {
		return nil
	}
	if item.Quantity <= 0 {
		return ErrInvalidQuantity
	}

	if err := s.Restore(ctx, tx, item.ID); err != nil {
		return err
	}

	repo := s.inventoryRepo.WithTx(tx.WithContext(ctx))
	lots, err := repo.LockLotsByVariant(*item.VariantID)
	if err != nil {
		return err
	}

	available := 0
	for _, lot := range lots {
		available += lot.Quantity
	}
	if available < item.Quantity {
		logger.Warn("Insufficient stock for order item", map[string]interface{}{
			"order_item_id": item.ID,
			"variant_id":    *item.VariantID,
			"requested":     item.Quantity,
			"available":     available,
		})
		return fmt.Errorf("%w: variant %d requested %d available %d", ErrOutOfStock, *item.VariantID, item.Quantity, available)
	}

	needed := item.Quantity
	entries := make([]model.OrderItemVariantInvoiceQuantity, 0, len(lots))
	for _, lot := range lots {
		if needed == 0 {
			break
		}
		if lot.Quantity <= 0 {
			continue
		}

		take := lot.Quantity
		if needed < take {
			take = needed
		}
		if err := repo.AdjustLot(lot.ID, -take); err != nil {
			return err
		}
		entries = append(entries, model.OrderItemVariantInvoiceQuantity{
			OrderItemID:              item.ID,
			VariantInvoiceQuantityID: lot.ID,
			DeductedQuantity:         take,
		})
		needed -= take
	}

	if err := repo.CreateEntries(entries); err != nil {
		return err
	}

	logger.Debug("Stock deducted for order item", map[string]interface{}{
		"order_item_id": item.ID,
		"variant_id":    *item.VariantID,
		"quantity":      item.Quantity,
		"lots":          len(entries),
	})
	return nil
}

// Restore puts every recorded deduction back on its lot, newest entry first, and clears the ledger.
func (s *inventoryService) Restore(ctx context.Context, tx *gorm.DB, itemID uint) error {
	if itemID == 0 {
		return nil
	}

	repo := s.inventoryRepo.WithTx(tx.WithContext(ctx))
	entries, err := repo.FindEntriesByItem(itemID)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		return nil
	}

	lotIDs := make([]uint, 0, len(entries))
	for _, entry := range entries {
		lotIDs = append(lotIDs, entry.VariantInvoiceQuantityID)
	}
	if _, err := repo.LockLotsByID(lotIDs); err != nil {
		return err
	}

	for _, entry := range entries {
		if err := repo.AdjustLot(entry.VariantInvoiceQuantityID, entry.DeductedQuantity); err != nil {
			return err
		}
	}
	if err := repo.DeleteEntriesByItem(itemID); err != nil {
		return err
	}

	logger.Debug("Stock restored for order item", map[string]interface{}{
		"order_item_id": itemID,
		"entries":       len(entries),
	})
	return nil
}

// Reconcile applies the stock effect of moving an item's order from one status to another.
func (s *inventoryService) Reconcile(ctx context.Context, tx *gorm.DB, item *model.OrderItem, from, to model.OrderStatus) error {
	switch {
	case !from.IsActive() && to.IsActive():
		return s.Deduct(ctx, tx, item)
	case from.IsActive() && to.IsCancelled():
		return s.Restore(ctx, tx, item.ID)
	}
	return nil
}

func (s *inventoryService) Available(ctx context.Context, variantID uint) (int64, error) {
	return s.inventoryRepo.WithTx(s.db.WithContext(ctx)).SumAvailable(variantID)
}

func (s *inventoryService) Lots(ctx context.Context, variantID uint) ([]model.VariantInvoiceQuantity, error) {
	return s.inventoryRepo.WithTx(s.db.WithContext(ctx)).ListLots(variantID)
}
