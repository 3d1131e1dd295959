package db

import (
	"fmt"

	"github.com/ikkim/storefront-backend/internal/app/model"
	"github.com/ikkim/storefront-backend/pkg/logger"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Models lists every table in dependency order.
func Models() []interface{} {
	return []interface{}{
		&model.AgeRange{},
		&model.User{},
		&model.Supplier{},
		&model.Brand{},
		&model.Category{},
		&model.Product{},
		&model.Variant{},
		&model.PurchaseInvoice{},
		&model.PurchaseItem{},
		&model.VariantInvoiceQuantity{},
		&model.Order{},
		&model.OrderItem{},
		&model.OrderItemVariantInvoiceQuantity{},
		&model.DimDate{},
		&model.DimUser{},
		&model.DimProductBase{},
		&model.DimVariantOrder{},
		&model.FactSales{},
		&model.FactSalesVariant{},
		&model.FactAnalytics{},
	}
}

// AutoMigrate registers the fact/variant join table and migrates every model on db.
func AutoMigrate(db *gorm.DB) error {
	if err := db.SetupJoinTable(&model.FactSales{}, "Variants", &model.FactSalesVariant{}); err != nil {
		return fmt.Errorf("failed to set up fact_sales_variants join table: %w", err)
	}
	return db.AutoMigrate(Models()...)
}

// Migrate runs database migrations
func Migrate() error {
	logger.Info("Running database migrations...")

	if err := AutoMigrate(DB); err != nil {
		logger.Error("Failed to run migrations", err)
		return err
	}

	if err := seedInitialData(); err != nil {
		logger.Error("Failed to seed initial data during migration", err)
		return err
	}

	logger.Info("Database migrations completed successfully", map[string]interface{}{
		"models_count": len(Models()),
	})
	return nil
}

// Seed adds initial data to the database (optional)
func Seed() error {
	return seedInitialData()
}

func seedInitialData() error {
	logger.Info("Seeding initial data...")

	if err := seedAgeRanges(DB); err != nil {
		logger.Error("Failed to seed age ranges", err)
		return err
	}

	logger.Info("Initial data seeded successfully")
	return nil
}

// DefaultAgeRanges are the buckets a user can be assigned to.
var DefaultAgeRanges = []model.AgeRange{
	{Name: "0-17", MinAge: 0, MaxAge: 17},
	{Name: "18-25", MinAge: 18, MaxAge: 25},
	{Name: "26-35", MinAge: 26, MaxAge: 35},
	{Name: "36-45", MinAge: 36, MaxAge: 45},
	{Name: "46-60", MinAge: 46, MaxAge: 60},
	{Name: "60+", MinAge: 61, MaxAge: 150},
}

// seedAgeRanges 연령대 기본 데이터 생성
func seedAgeRanges(db *gorm.DB) error {
	ranges := make([]model.AgeRange, len(DefaultAgeRanges))
	copy(ranges, DefaultAgeRanges)

	result := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&ranges)
	if result.Error != nil {
		return result.Error
	}

	logger.Info("Age ranges seeded", map[string]interface{}{
		"inserted": result.RowsAffected,
	})
	return nil
}
