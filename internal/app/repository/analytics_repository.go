package repository

import (
	"time"

	"github.com/ikkim/storefront-backend/internal/app/model"
	"github.com/ikkim/storefront-backend/pkg/logger"
	"gorm.io/gorm"
)

// SalesFilter narrows star-schema reads. Text matches are case-insensitive.
type SalesFilter struct {
	DateFilter
	Status   *model.OrderStatus
	Supplier string // contains
	City     string
	Gender   string
	AgeRange string
	Username string // contains
}

type ProductSales struct {
	ProductID     uint   `json:"product_id"`
	ProductName   string `json:"product_name"`
	TotalQuantity int64  `json:"total_qty"`
}

type StatusTotal struct {
	Status model.OrderStatus `json:"status"`
	Total  int64             `json:"total"`
}

type UserSales struct {
	UserID           uint       `json:"user_id"`
	Username         string     `json:"username"`
	Gender           string     `json:"gender"`
	City             string     `json:"city"`
	RegistrationDate *time.Time `json:"registration_date"`
	AgeRange         string     `json:"age_range"`
	TotalOrders      int64      `json:"total_orders"`
	TotalSpent       int64      `json:"total_spent"`
}

type SupplierSales struct {
	Supplier          string `json:"supplier"`
	TotalQuantitySold int64  `json:"total_quantity_sold"`
	TotalSoldPrice    int64  `json:"total_sold_price"`
	UserQuantity      int64  `json:"user_quantity"`
}

// AnalyticsRepository answers the read-side reports over fact_sales.
type AnalyticsRepository interface {
	MostSoldProducts(filter SalesFilter, page Page) ([]ProductSales, int64, error)
	OrdersByStatus(filter SalesFilter) ([]StatusTotal, error)
	TopUsers(filter SalesFilter, page Page) ([]UserSales, int64, error)
	TopSuppliers(filter SalesFilter, page Page) ([]SupplierSales, int64, error)
	ListFactSales(filter SalesFilter, page Page) ([]model.FactSales, int64, error)
}

type analyticsRepository struct {
	db *gorm.DB
}

func NewAnalyticsRepository(db *gorm.DB) AnalyticsRepository {
	return &analyticsRepository{db: db}
}

// facts joins the date and user dimensions under dd and du.
func (r *analyticsRepository) facts(filter SalesFilter) *gorm.DB {
	query := r.db.Table("fact_sales fs").
		Joins("JOIN dim_dates dd ON dd.id = fs.dim_date_id").
		Joins("JOIN dim_users du ON du.id = fs.dim_user_id")
	query = filter.DateFilter.apply(query, "dd")

	if filter.Status != nil {
		query = query.Where("fs.status = ?", *filter.Status)
	}
	if filter.City != "" {
		query = query.Where("LOWER(du.city) = LOWER(?)", filter.City)
	}
	if filter.Gender != "" {
		query = query.Where("LOWER(du.gender) = LOWER(?)", filter.Gender)
	}
	if filter.AgeRange != "" {
		query = query.Where("LOWER(du.age_range) = LOWER(?)", filter.AgeRange)
	}
	if filter.Username != "" {
		query = query.Where("LOWER(du.username) LIKE LOWER(?)", "%"+filter.Username+"%")
	}
	return query
}

// factVariants extends facts with the associated variant and product dimension rows (dv, dp).
func (r *analyticsRepository) factVariants(filter SalesFilter) *gorm.DB {
	query := r.facts(filter).
		Joins("JOIN fact_sales_variants fsv ON fsv.fact_sales_id = fs.id").
		Joins("JOIN dim_variant_orders dv ON dv.id = fsv.dim_variant_order_id").
		Joins("JOIN dim_product_bases dp ON dp.id = dv.dim_product_id")
	if filter.Supplier != "" {
		query = query.Where("LOWER(dp.supplier_name) LIKE LOWER(?)", "%"+filter.Supplier+"%")
	}
	return query
}

func (r *analyticsRepository) countGroups(grouped *gorm.DB) (int64, error) {
	var total int64
	if err := r.db.Table("(?) AS grouped", grouped).Count(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}

func (r *analyticsRepository) MostSoldProducts(filter SalesFilter, page Page) ([]ProductSales, int64, error) {
	grouped := func() *gorm.DB {
		return r.factVariants(filter).
			Select("dp.product_id AS product_id, MAX(dp.product_name) AS product_name, SUM(dv.quantity) AS total_quantity").
			Group("dp.product_id")
	}

	total, err := r.countGroups(grouped())
	if err != nil {
		logger.Error("Failed to count most sold products", err)
		return nil, 0, err
	}

	var rows []ProductSales
	if err := grouped().
		Order("total_quantity DESC, dp.product_id ASC").
		Offset(page.Offset()).
		Limit(page.PageSize).
		Scan(&rows).Error; err != nil {
		logger.Error("Failed to query most sold products", err)
		return nil, 0, err
	}
	return rows, total, nil
}

func (r *analyticsRepository) OrdersByStatus(filter SalesFilter) ([]StatusTotal, error) {
	var rows []StatusTotal
	if err := r.facts(filter).
		Select("fs.status AS status, COALESCE(SUM(fs.total_price_after_discount), 0) AS total").
		Group("fs.status").
		Order("fs.status ASC").
		Scan(&rows).Error; err != nil {
		logger.Error("Failed to query orders by status", err)
		return nil, err
	}
	return rows, nil
}

func (r *analyticsRepository) TopUsers(filter SalesFilter, page Page) ([]UserSales, int64, error) {
	grouped := func() *gorm.DB {
		return r.facts(filter).
			Select("du.user_id AS user_id, du.username AS username, du.gender AS gender, du.city AS city, " +
				"du.registration_date AS registration_date, du.age_range AS age_range, " +
				"COUNT(fs.id) AS total_orders, COALESCE(SUM(fs.total_price_after_discount), 0) AS total_spent").
			Group("du.user_id, du.username, du.gender, du.city, du.registration_date, du.age_range")
	}

	total, err := r.countGroups(grouped())
	if err != nil {
		logger.Error("Failed to count top users", err)
		return nil, 0, err
	}

	var rows []UserSales
	if err := grouped().
		Order("total_orders DESC, total_spent DESC, du.user_id ASC").
		Offset(page.Offset()).
		Limit(page.PageSize).
		Scan(&rows).Error; err != nil {
		logger.Error("Failed to query top users", err)
		return nil, 0, err
	}
	return rows, total, nil
}

// TopSuppliers counts each fact/variant association once; facts without a supplier fall under "Unknown".
func (r *analyticsRepository) TopSuppliers(filter SalesFilter, page Page) ([]SupplierSales, int64, error) {
	const supplierExpr = "COALESCE(NULLIF(dp.supplier_name, ''), 'Unknown')"
	grouped := func() *gorm.DB {
		return r.factVariants(filter).
			Select(supplierExpr + " AS supplier, SUM(dv.quantity) AS total_quantity_sold, " +
				"SUM(dv.quantity * dv.unit_price) AS total_sold_price, COUNT(DISTINCT fs.dim_user_id) AS user_quantity").
			Group(supplierExpr)
	}

	total, err := r.countGroups(grouped())
	if err != nil {
		logger.Error("Failed to count top suppliers", err)
		return nil, 0, err
	}

	var rows []SupplierSales
	if err := grouped().
		Order("total_quantity_sold DESC, supplier ASC").
		Offset(page.Offset()).
		Limit(page.PageSize).
		Scan(&rows).Error; err != nil {
		logger.Error("Failed to query top suppliers", err)
		return nil, 0, err
	}
	return rows, total, nil
}

func (r *analyticsRepository) ListFactSales(filter SalesFilter, page Page) ([]model.FactSales, int64, error) {
	ids := func() *gorm.DB {
		if filter.Supplier != "" {
			return r.factVariants(filter).Select("DISTINCT fs.id")
		}
		return r.facts(filter).Select("fs.id")
	}

	var total int64
	if err := r.db.Model(&model.FactSales{}).Where("id IN (?)", ids()).Count(&total).Error; err != nil {
		logger.Error("Failed to count fact sales", err)
		return nil, 0, err
	}

	var facts []model.FactSales
	if err := r.db.
		Preload("DimDate").
		Preload("DimUser").
		Preload("Variants").
		Where("id IN (?)", ids()).
		Order("id DESC").
		Offset(page.Offset()).
		Limit(page.PageSize).
		Find(&facts).Error; err != nil {
		logger.Error("Failed to list fact sales", err)
		return nil, 0, err
	}
	return facts, total, nil
}
