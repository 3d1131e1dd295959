package service

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/ikkim/storefront-backend/internal/app/model"
	"github.com/ikkim/storefront-backend/internal/app/repository"
	"github.com/ikkim/storefront-backend/pkg/logger"
	"gorm.io/gorm"
)

// FactService projects orders into FactSales rows and keeps them current as orders change.
type FactService interface {
	ProjectOrders(tx *gorm.DB, orders []model.Order, dims Dimensions) (model.TableCount, error)
	RecomputeTotals(ctx context.Context, tx *gorm.DB, orderID uint) error
	ApplyStatus(ctx context.Context, tx *gorm.DB, orderID uint, status model.OrderStatus) error
}

type factService struct {
	factRepo          repository.FactRepository
	factAnalyticsRepo repository.FactAnalyticsRepository
	orderRepo         repository.OrderRepository
	dimensions        DimensionService
}

func NewFactService(
	factRepo repository.FactRepository,
	factAnalyticsRepo repository.FactAnalyticsRepository,
	orderRepo repository.OrderRepository,
	dimensions DimensionService,
) FactService {
	return &factService{
		factRepo:          factRepo,
		factAnalyticsRepo: factAnalyticsRepo,
		orderRepo:         orderRepo,
		dimensions:        dimensions,
	}
}

// itemTotals sums the line totals, flooring the discount per item.
func itemTotals(items []model.OrderItem) (totalPrice, totalAfterDiscount int64) {
	for i := range items {
		tp, tad := model.LineTotals(items[i].UnitPrice, items[i].Quantity, items[i].DiscountPercent)
		totalPrice += tp
		totalAfterDiscount += tad
	}
	return totalPrice, totalAfterDiscount
}

func sameIDs(a, b []uint) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// variantSet returns the sorted, distinct variant dimension ids the order references.
func variantSet(order *model.Order, variants VariantMap) ([]uint, error) {
	seen := make(map[uint]struct{})
	ids := make([]uint, 0, len(order.Items))
	for i := range order.Items {
		item := &order.Items[i]
		if item.VariantID == nil || item.Variant == nil {
			continue
		}
		id, ok := variants[*item.VariantID]
		if !ok {
			return nil, fmt.Errorf("%w: dim_variant_order for variant %d", ErrDimensionMissing, *item.VariantID)
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (s *factService) ProjectOrders(tx *gorm.DB, orders []model.Order, dims Dimensions) (model.TableCount, error) {
	factRepo := s.factRepo.WithTx(tx)

	orderIDs := make([]uint, 0, len(orders))
	for i := range orders {
		orderIDs = append(orderIDs, orders[i].ID)
	}
	current, err := factRepo.FindByOrderIDs(orderIDs)
	if err != nil {
		return model.TableCount{}, err
	}
	byOrder := make(map[uint]*model.FactSales, len(current))
	for i := range current {
		byOrder[current[i].OrderID] = &current[i]
	}

	count := model.TableCount{}
	for i := range orders {
		order := &orders[i]

		dateKey := s.dimensions.DateKey(order.CreatedAt)
		dimDateID, ok := dims.Dates[dateKey]
		if !ok {
			return count, fmt.Errorf("%w: dim_date %s for order %d", ErrDimensionMissing, dateKey, order.ID)
		}
		dimUserID, ok := dims.Users[order.UserID]
		if !ok {
			return count, fmt.Errorf("%w: dim_user %d for order %d", ErrDimensionMissing, order.UserID, order.ID)
		}
		variantIDs, err := variantSet(order, dims.Variants)
		if err != nil {
			return count, err
		}
		totalPrice, totalAfterDiscount := itemTotals(order.Items)

		fact, exists := byOrder[order.ID]
		if !exists {
			fact = &model.FactSales{
				OrderID:                 order.ID,
				DimDateID:               dimDateID,
				DimUserID:               dimUserID,
				Status:                  order.Status,
				TotalPrice:              totalPrice,
				TotalPriceAfterDiscount: totalAfterDiscount,
			}
			if err := factRepo.Create(fact); err != nil {
				return count, err
			}
			if err := factRepo.AddVariants(fact.ID, variantIDs); err != nil {
				return count, err
			}
			count.Created++
			continue
		}

		count.Existing++
		known := make([]uint, 0, len(fact.Variants))
		for _, v := range fact.Variants {
			known = append(known, v.ID)
		}
		sort.Slice(known, func(a, b int) bool { return known[a] < known[b] })

		variantsChanged := !sameIDs(known, variantIDs)
		totalsChanged := fact.TotalPrice != totalPrice || fact.TotalPriceAfterDiscount != totalAfterDiscount
		statusChanged := fact.Status != order.Status
		if !variantsChanged && !totalsChanged && !statusChanged {
			continue
		}

		fields := map[string]interface{}{
			"status":                     order.Status,
			"total_price":                totalPrice,
			"total_price_after_discount": totalAfterDiscount,
		}
		if err := s.retract(tx, fact, fields); err != nil {
			return count, err
		}
		if err := factRepo.UpdateFields(fact.ID, fields); err != nil {
			return count, err
		}
		if variantsChanged {
			if err := factRepo.ReplaceVariants(fact.ID, variantIDs); err != nil {
				return count, err
			}
		}

		logger.Debug("Fact sales row refreshed", map[string]interface{}{
			"order_id":         order.ID,
			"status_changed":   statusChanged,
			"variants_changed": variantsChanged,
		})
	}

	return count, nil
}

// retract removes an already rolled-up fact's contribution from its date's rollup and
// adds the flag reset to fields, so the next rollup counts the fact again with its new values.
func (s *factService) retract(tx *gorm.DB, fact *model.FactSales, fields map[string]interface{}) error {
	if !fact.ExcludeFromAnalytics {
		return nil
	}

	amounts := map[string]int64{
		"total_order_quantity": -fact.TotalPriceAfterDiscount,
	}
	if status, ok := model.ParseOrderStatus(string(fact.Status)); ok {
		if column, ok := model.StatusColumn(status); ok {
			amounts[column] = -fact.TotalPriceAfterDiscount
		}
	}

	err := s.factAnalyticsRepo.WithTx(tx).Increment(fact.DimDateID, amounts)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	if err != nil {
		logger.Warn("Rolled-up fact has no aggregate row to retract from", map[string]interface{}{
			"fact_id":     fact.ID,
			"dim_date_id": fact.DimDateID,
		})
	}

	fields["exclude_from_analytics"] = false
	logger.Info("Retracted fact from daily aggregate", map[string]interface{}{
		"fact_id":     fact.ID,
		"order_id":    fact.OrderID,
		"dim_date_id": fact.DimDateID,
		"amount":      fact.TotalPriceAfterDiscount,
	})
	return nil
}

// RecomputeTotals re-sums the order's live items into its fact. Orders not projected yet are skipped.
func (s *factService) RecomputeTotals(ctx context.Context, tx *gorm.DB, orderID uint) error {
	tx = tx.WithContext(ctx)

	fact, err := s.factRepo.WithTx(tx).LockByOrderID(orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return err
	}

	items, err := s.orderRepo.WithTx(tx).ListItems(orderID)
	if err != nil {
		return err
	}
	totalPrice, totalAfterDiscount := itemTotals(items)
	if fact.TotalPrice == totalPrice && fact.TotalPriceAfterDiscount == totalAfterDiscount {
		return nil
	}

	fields := map[string]interface{}{
		"total_price":                totalPrice,
		"total_price_after_discount": totalAfterDiscount,
	}
	if err := s.retract(tx, fact, fields); err != nil {
		return err
	}
	return s.factRepo.WithTx(tx).UpdateFields(fact.ID, fields)
}

// ApplyStatus copies a status change onto the order's fact. Orders not projected yet are skipped.
func (s *factService) ApplyStatus(ctx context.Context, tx *gorm.DB, orderID uint, status model.OrderStatus) error {
	tx = tx.WithContext(ctx)

	fact, err := s.factRepo.WithTx(tx).LockByOrderID(orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return err
	}
	if fact.Status == status {
		return nil
	}

	fields := map[string]interface{}{
		"status": status,
	}
	if err := s.retract(tx, fact, fields); err != nil {
		return err
	}
	return s.factRepo.WithTx(tx).UpdateFields(fact.ID, fields)
}
