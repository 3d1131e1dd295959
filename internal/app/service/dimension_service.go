package service

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/ikkim/storefront-backend/internal/app/model"
	"github.com/ikkim/storefront-backend/internal/app/repository"
	"github.com/ikkim/storefront-backend/pkg/logger"
	"gorm.io/gorm"
)

var ErrDimensionMissing = errors.New("dimension row missing")

// Natural key -> dimension row id.
type (
	DateMap    map[string]uint
	UserMap    map[uint]uint
	ProductMap map[model.ProductKey]uint
	VariantMap map[uint]uint
)

// Dimensions carries the resolved id maps into fact projection.
type Dimensions struct {
	Dates    DateMap
	Users    UserMap
	Products ProductMap
	Variants VariantMap
}

// DimensionService maps the natural keys referenced by a batch of orders to
// dimension rows, creating the missing ones. Every method runs on the caller's transaction.
type DimensionService interface {
	DateKey(t time.Time) string
	ResolveDates(tx *gorm.DB, orders []model.Order) (DateMap, model.TableCount, error)
	ResolveUsers(tx *gorm.DB, orders []model.Order) (UserMap, model.TableCount, error)
	ResolveProducts(tx *gorm.DB, orders []model.Order) (ProductMap, model.TableCount, error)
	ResolveVariants(tx *gorm.DB, orders []model.Order, products ProductMap) (VariantMap, model.TableCount, error)
}

type dimensionService struct {
	dimRepo  repository.DimensionRepository
	calendar DateCalendar
	location *time.Location
}

// NewDimensionService accepts a nil calendar; dates are then stored with their full_date only.
func NewDimensionService(dimRepo repository.DimensionRepository, calendar DateCalendar, location *time.Location) DimensionService {
	if location == nil {
		location = time.UTC
	}
	return &dimensionService{
		dimRepo:  dimRepo,
		calendar: calendar,
		location: location,
	}
}

func (s *dimensionService) DateKey(t time.Time) string {
	return t.In(s.location).Format(model.DateLayout)
}

func countOf(keys, created int) model.TableCount {
	return model.TableCount{Created: created, Existing: keys - created}
}

func (s *dimensionService) dateRow(key string) model.DimDate {
	row := model.DimDate{FullDate: key}
	if s.calendar == nil {
		return row
	}

	day, err := time.ParseInLocation(model.DateLayout, key, s.location)
	if err != nil {
		return row
	}
	attrs, err := s.calendar.Attributes(day.Add(12 * time.Hour))
	if err != nil {
		logger.Warn("Calendar conversion failed, storing bare date", map[string]interface{}{
			"full_date": key,
			"error":     err.Error(),
		})
		return row
	}

	row.JalaliDate = attrs.JalaliDate
	row.DayOfWeek = attrs.DayOfWeek
	row.MonthName = attrs.MonthName
	row.Quarter = attrs.Quarter
	row.IsHoliday = attrs.IsHoliday
	return row
}

func (s *dimensionService) ResolveDates(tx *gorm.DB, orders []model.Order) (DateMap, model.TableCount, error) {
	repo := s.dimRepo.WithTx(tx)

	seen := make(map[string]struct{})
	keys := make([]string, 0)
	for i := range orders {
		key := s.DateKey(orders[i].CreatedAt)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		keys = append(keys, key)
	}
	sort.Strings(keys)

	rows := make([]model.DimDate, 0, len(keys))
	for _, key := range keys {
		rows = append(rows, s.dateRow(key))
	}

	created, err := repo.InsertDates(rows)
	if err != nil {
		return nil, model.TableCount{}, err
	}

	found, err := repo.FindDatesByFullDate(keys)
	if err != nil {
		return nil, model.TableCount{}, err
	}
	dates := make(DateMap, len(found))
	for _, row := range found {
		dates[row.FullDate] = row.ID
	}
	for _, key := range keys {
		if _, ok := dates[key]; !ok {
			return nil, model.TableCount{}, fmt.Errorf("%w: dim_date %s", ErrDimensionMissing, key)
		}
	}

	return dates, countOf(len(keys), created), nil
}

func (s *dimensionService) ResolveUsers(tx *gorm.DB, orders []model.Order) (UserMap, model.TableCount, error) {
	repo := s.dimRepo.WithTx(tx)

	seen := make(map[uint]struct{})
	ids := make([]uint, 0)
	rows := make([]model.DimUser, 0)
	for i := range orders {
		user := &orders[i].User
		if _, ok := seen[orders[i].UserID]; ok {
			continue
		}
		seen[orders[i].UserID] = struct{}{}
		ids = append(ids, orders[i].UserID)

		registered := user.RegistrationDate
		rows = append(rows, model.DimUser{
			UserID:           orders[i].UserID,
			Username:         user.Username,
			Gender:           string(user.Gender),
			City:             user.City,
			RegistrationDate: &registered,
			AgeRange:         user.AgeRangeName(),
		})
	}

	created, err := repo.InsertUsers(rows)
	if err != nil {
		return nil, model.TableCount{}, err
	}

	found, err := repo.FindUsersByUserID(ids)
	if err != nil {
		return nil, model.TableCount{}, err
	}
	users := make(UserMap, len(found))
	for _, row := range found {
		users[row.UserID] = row.ID
	}
	for _, id := range ids {
		if _, ok := users[id]; !ok {
			return nil, model.TableCount{}, fmt.Errorf("%w: dim_user %d", ErrDimensionMissing, id)
		}
	}

	return users, countOf(len(ids), created), nil
}

func productRow(p *model.Product) model.DimProductBase {
	row := model.DimProductBase{
		ProductID:        p.ID,
		IsExciting:       p.IsExciting,
		FreeShipping:     p.FreeShipping,
		HasGift:          p.HasGift,
		IsBudgetFriendly: p.IsBudgetFriendly,
		ProductName:      p.Name,
		Price:            p.Price,
		Rating:           p.Rating,
		IsAvailable:      p.IsAvailable,
		ExpireDate:       p.ExpireDate,
		BrandName:        p.BrandName(),
		SupplierName:     p.SupplierName(),
	}
	if p.Category != nil {
		levels := p.Category.Levels()
		targets := []*string{&row.CategoryLevel1, &row.CategoryLevel2, &row.CategoryLevel3}
		for i := range levels {
			*targets[i] = levels[i]
		}
	}
	return row
}

// orderedItems yields every item that still references a variant, in batch order.
func orderedItems(orders []model.Order, fn func(order *model.Order, item *model.OrderItem)) {
	for i := range orders {
		for j := range orders[i].Items {
			item := &orders[i].Items[j]
			if item.VariantID == nil || item.Variant == nil {
				continue
			}
			fn(&orders[i], item)
		}
	}
}

func (s *dimensionService) ResolveProducts(tx *gorm.DB, orders []model.Order) (ProductMap, model.TableCount, error) {
	repo := s.dimRepo.WithTx(tx)

	seen := make(map[model.ProductKey]struct{})
	keys := make([]model.ProductKey, 0)
	productIDs := make([]uint, 0)
	rows := make([]model.DimProductBase, 0)
	orderedItems(orders, func(_ *model.Order, item *model.OrderItem) {
		product := &item.Variant.Product
		key := model.ProductKeyOf(product)
		if _, ok := seen[key]; ok {
			return
		}
		seen[key] = struct{}{}
		keys = append(keys, key)
		productIDs = append(productIDs, product.ID)
		rows = append(rows, productRow(product))
	})

	created, err := repo.InsertProducts(rows)
	if err != nil {
		return nil, model.TableCount{}, err
	}

	found, err := repo.FindProductsByProductID(productIDs)
	if err != nil {
		return nil, model.TableCount{}, err
	}
	products := make(ProductMap, len(keys))
	for i := range found {
		key := found[i].Key()
		if _, ok := seen[key]; ok {
			products[key] = found[i].ID
		}
	}
	for _, key := range keys {
		if _, ok := products[key]; !ok {
			return nil, model.TableCount{}, fmt.Errorf("%w: dim_product_base %d", ErrDimensionMissing, key.ProductID)
		}
	}

	return products, countOf(len(keys), created), nil
}

// ResolveVariants creates variant rows from the first item seen for each variant. Rows that
// existed before this call take the line totals of the last item that differs from them.
func (s *dimensionService) ResolveVariants(tx *gorm.DB, orders []model.Order, products ProductMap) (VariantMap, model.TableCount, error) {
	repo := s.dimRepo.WithTx(tx)

	variantIDs := make([]uint, 0)
	firstItem := make(map[uint]*model.OrderItem)
	lastItem := make(map[uint]*model.OrderItem)
	orderedItems(orders, func(_ *model.Order, item *model.OrderItem) {
		id := *item.VariantID
		if _, ok := firstItem[id]; !ok {
			firstItem[id] = item
			variantIDs = append(variantIDs, id)
		}
		lastItem[id] = item
	})

	before, err := repo.FindVariantsByVariantID(variantIDs)
	if err != nil {
		return nil, model.TableCount{}, err
	}
	existing := make(map[uint]model.DimVariantOrder, len(before))
	for _, row := range before {
		existing[row.VariantID] = row
	}

	rows := make([]model.DimVariantOrder, 0, len(variantIDs))
	for _, id := range variantIDs {
		if _, ok := existing[id]; ok {
			continue
		}
		item := firstItem[id]
		productKey := model.ProductKeyOf(&item.Variant.Product)
		dimProductID, ok := products[productKey]
		if !ok {
			return nil, model.TableCount{}, fmt.Errorf("%w: dim_product_base %d", ErrDimensionMissing, productKey.ProductID)
		}
		totalPrice, totalAfterDiscount := model.LineTotals(item.UnitPrice, item.Quantity, item.DiscountPercent)
		rows = append(rows, model.DimVariantOrder{
			VariantID:          id,
			DimProductID:       dimProductID,
			SKU:                item.Variant.SKU,
			Color:              item.Variant.Color,
			Size:               item.Variant.Size,
			Quantity:           item.Quantity,
			UnitPrice:          item.UnitPrice,
			DiscountPercent:    item.DiscountPercent,
			TotalPrice:         totalPrice,
			TotalAfterDiscount: totalAfterDiscount,
		})
	}

	created, err := repo.InsertVariants(rows)
	if err != nil {
		return nil, model.TableCount{}, err
	}

	updated := 0
	for _, id := range variantIDs {
		row, ok := existing[id]
		if !ok {
			continue
		}
		item := lastItem[id]
		totalPrice, totalAfterDiscount := model.LineTotals(item.UnitPrice, item.Quantity, item.DiscountPercent)
		changed, err := repo.UpdateVariantTotals(row.ID, totalPrice, totalAfterDiscount)
		if err != nil {
			return nil, model.TableCount{}, err
		}
		if changed {
			updated++
		}
	}

	found, err := repo.FindVariantsByVariantID(variantIDs)
	if err != nil {
		return nil, model.TableCount{}, err
	}
	variants := make(VariantMap, len(found))
	for _, row := range found {
		variants[row.VariantID] = row.ID
	}
	for _, id := range variantIDs {
		if _, ok := variants[id]; !ok {
			return nil, model.TableCount{}, fmt.Errorf("%w: dim_variant_order %d", ErrDimensionMissing, id)
		}
	}

	if updated > 0 {
		logger.Debug("Variant dimension totals refreshed", map[string]interface{}{
			"updated": updated,
		})
	}
	return variants, countOf(len(variantIDs), created), nil
}
