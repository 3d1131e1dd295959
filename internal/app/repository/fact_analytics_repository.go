package repository

import (
	"time"

	"github.com/ikkim/storefront-backend/internal/app/model"
	"github.com/ikkim/storefront-backend/pkg/logger"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Page is a 1-based page request.
type Page struct {
	Page     int
	PageSize int
}

func (p Page) Offset() int {
	if p.Page < 1 {
		return 0
	}
	return (p.Page - 1) * p.PageSize
}

// DateFilter narrows queries joined to dim_dates.
type DateFilter struct {
	Start      *time.Time
	End        *time.Time
	JalaliDate string
	DayOfWeek  string
	MonthName  string
	Quarter    *int
	IsHoliday  *bool
}

// apply expects dim_dates to be joined (or queried) under the given alias.
func (f DateFilter) apply(query *gorm.DB, alias string) *gorm.DB {
	if f.Start != nil {
		query = query.Where(alias+".full_date >= ?", f.Start.Format(model.DateLayout))
	}
	if f.End != nil {
		query = query.Where(alias+".full_date <= ?", f.End.Format(model.DateLayout))
	}
	if f.JalaliDate != "" {
		query = query.Where(alias+".jalali_date LIKE ?", "%"+f.JalaliDate+"%")
	}
	if f.DayOfWeek != "" {
		query = query.Where("LOWER("+alias+".day_of_week) = LOWER(?)", f.DayOfWeek)
	}
	if f.MonthName != "" {
		query = query.Where("LOWER("+alias+".month_name) = LOWER(?)", f.MonthName)
	}
	if f.Quarter != nil {
		query = query.Where(alias+".quarter = ?", *f.Quarter)
	}
	if f.IsHoliday != nil {
		query = query.Where(alias+".is_holiday = ?", *f.IsHoliday)
	}
	return query
}

// FactAnalyticsRepository maintains the per-date rollup rows.
type FactAnalyticsRepository interface {
	WithTx(tx *gorm.DB) FactAnalyticsRepository

	Ensure(dimDateIDs []uint) error
	Increment(dimDateID uint, amounts map[string]int64) error
	FindByDateID(dimDateID uint) (*model.FactAnalytics, error)
	List(filter DateFilter, page Page) ([]model.FactAnalytics, int64, error)
	ListAll(filter DateFilter) ([]model.FactAnalytics, error)
}

type factAnalyticsRepository struct {
	db *gorm.DB
}

func NewFactAnalyticsRepository(db *gorm.DB) FactAnalyticsRepository {
	return &factAnalyticsRepository{db: db}
}

func (r *factAnalyticsRepository) WithTx(tx *gorm.DB) FactAnalyticsRepository {
	return &factAnalyticsRepository{db: tx}
}

// Ensure creates zeroed rows for dates that have none yet.
func (r *factAnalyticsRepository) Ensure(dimDateIDs []uint) error {
	if len(dimDateIDs) == 0 {
		return nil
	}
	rows := make([]model.FactAnalytics, 0, len(dimDateIDs))
	for _, id := range dimDateIDs {
		rows = append(rows, model.FactAnalytics{DimDateID: id})
	}
	if err := r.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&rows).Error; err != nil {
		logger.Error("Failed to ensure fact analytics rows", err, map[string]interface{}{
			"count": len(rows),
		})
		return err
	}
	return nil
}

// Increment adds each amount to its column in one UPDATE; negative amounts retract.
func (r *factAnalyticsRepository) Increment(dimDateID uint, amounts map[string]int64) error {
	if len(amounts) == 0 {
		return nil
	}
	updates := make(map[string]interface{}, len(amounts))
	for column, amount := range amounts {
		updates[column] = gorm.Expr(column+" + ?", amount)
	}

	logger.Debug("Incrementing fact analytics", map[string]interface{}{
		"dim_date_id": dimDateID,
		"amounts":     amounts,
	})

	result := r.db.Model(&model.FactAnalytics{}).Where("dim_date_id = ?", dimDateID).UpdateColumns(updates)
	if result.Error != nil {
		logger.Error("Failed to increment fact analytics", result.Error, map[string]interface{}{
			"dim_date_id": dimDateID,
		})
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *factAnalyticsRepository) FindByDateID(dimDateID uint) (*model.FactAnalytics, error) {
	var row model.FactAnalytics
	if err := r.db.Preload("DimDate").Where("dim_date_id = ?", dimDateID).First(&row).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *factAnalyticsRepository) filtered(filter DateFilter) *gorm.DB {
	query := r.db.Model(&model.FactAnalytics{}).
		Joins("JOIN dim_dates dd ON dd.id = fact_analytics.dim_date_id")
	return filter.apply(query, "dd")
}

func (r *factAnalyticsRepository) List(filter DateFilter, page Page) ([]model.FactAnalytics, int64, error) {
	var total int64
	if err := r.filtered(filter).Count(&total).Error; err != nil {
		logger.Error("Failed to count fact analytics", err)
		return nil, 0, err
	}

	var rows []model.FactAnalytics
	if err := r.filtered(filter).
		Preload("DimDate").
		Order("dd.full_date DESC").
		Offset(page.Offset()).
		Limit(page.PageSize).
		Find(&rows).Error; err != nil {
		logger.Error("Failed to list fact analytics", err)
		return nil, 0, err
	}
	return rows, total, nil
}

func (r *factAnalyticsRepository) ListAll(filter DateFilter) ([]model.FactAnalytics, error) {
	var rows []model.FactAnalytics
	if err := r.filtered(filter).
		Preload("DimDate").
		Order("dd.full_date ASC").
		Find(&rows).Error; err != nil {
		logger.Error("Failed to list fact analytics", err)
		return nil, err
	}
	return rows, nil
}
