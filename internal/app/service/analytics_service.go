package service

import (
	"context"

	"github.com/ikkim/storefront-backend/internal/app/model"
	"github.com/ikkim/storefront-backend/internal/app/repository"
)

const (
	DefaultPageSize = 5
	MaxPageSize     = 100
)

// NormalizePage clamps a page request: page starts at 1, size defaults to 5 and caps at 100.
func NormalizePage(page repository.Page) repository.Page {
	if page.Page < 1 {
		page.Page = 1
	}
	if page.PageSize < 1 {
		page.PageSize = DefaultPageSize
	}
	if page.PageSize > MaxPageSize {
		page.PageSize = MaxPageSize
	}
	return page
}

// AnalyticsService serves the read-side reports over the star schema.
type AnalyticsService interface {
	MostSoldProducts(ctx context.Context, filter repository.SalesFilter, page repository.Page) ([]repository.ProductSales, int64, error)
	OrdersByStatus(ctx context.Context, filter repository.SalesFilter) ([]repository.StatusTotal, error)
	TopUsers(ctx context.Context, filter repository.SalesFilter, page repository.Page) ([]repository.UserSales, int64, error)
	TopSuppliers(ctx context.Context, filter repository.SalesFilter, page repository.Page) ([]repository.SupplierSales, int64, error)
	ListFactSales(ctx context.Context, filter repository.SalesFilter, page repository.Page) ([]model.FactSales, int64, error)
}

type analyticsService struct {
	analyticsRepo repository.AnalyticsRepository
}

func NewAnalyticsService(analyticsRepo repository.AnalyticsRepository) AnalyticsService {
	return &analyticsService{analyticsRepo: analyticsRepo}
}

func (s *analyticsService) MostSoldProducts(ctx context.Context, filter repository.SalesFilter, page repository.Page) ([]repository.ProductSales, int64, error) {
	return s.analyticsRepo.MostSoldProducts(filter, NormalizePage(page))
}

func (s *analyticsService) OrdersByStatus(ctx context.Context, filter repository.SalesFilter) ([]repository.StatusTotal, error) {
	return s.analyticsRepo.OrdersByStatus(filter)
}

func (s *analyticsService) TopUsers(ctx context.Context, filter repository.SalesFilter, page repository.Page) ([]repository.UserSales, int64, error) {
	return s.analyticsRepo.TopUsers(filter, NormalizePage(page))
}

func (s *analyticsService) TopSuppliers(ctx context.Context, filter repository.SalesFilter, page repository.Page) ([]repository.SupplierSales, int64, error) {
	return s.analyticsRepo.TopSuppliers(filter, NormalizePage(page))
}

func (s *analyticsService) ListFactSales(ctx context.Context, filter repository.SalesFilter, page repository.Page) ([]model.FactSales, int64, error) {
	return s.analyticsRepo.ListFactSales(filter, NormalizePage(page))
}
