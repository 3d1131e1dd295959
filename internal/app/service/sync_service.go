package service

import (
	"context"
	"errors"
	"time"

	"github.com/ikkim/storefront-backend/internal/app/model"
	"github.com/ikkim/storefront-backend/internal/app/repository"
	"github.com/ikkim/storefront-backend/internal/websocket"
	"github.com/ikkim/storefront-backend/pkg/logger"
	"github.com/ikkim/storefront-backend/pkg/metrics"
	"gorm.io/gorm"
)

var ErrSyncInProgress = errors.New("analytics sync already running")

type SyncOptions struct {
	Status *model.OrderStatus // only sync orders in this status
}

// SyncReport counts, per table, the natural keys the run created versus found.
type SyncReport struct {
	DimDate         model.TableCount `json:"DimDate"`
	DimUser         model.TableCount `json:"DimUser"`
	DimProductBase  model.TableCount `json:"DimProductBase"`
	DimVariantOrder model.TableCount `json:"DimVariantOrder"`
	FactSales       model.TableCount `json:"FactSales"`
	OrdersSynced    int              `json:"orders_synced"`
}

type VerifyResult struct {
	Expected int64 `json:"expected"`
	Actual   int64 `json:"actual"`
	Match    bool  `json:"match"`
}

// SyncService projects unsynced orders into the star schema in one transaction.
type SyncService interface {
	SyncOrders(ctx context.Context, opts SyncOptions) (*SyncReport, error)
	VerifyFactSalesTotals(ctx context.Context, status *model.OrderStatus) (*VerifyResult, error)
}

type syncService struct {
	orderRepo  repository.OrderRepository
	factRepo   repository.FactRepository
	dimensions DimensionService
	facts      FactService
	db         *gorm.DB
	locker     JobLocker
	publisher  EventPublisher
	metrics    *metrics.JobMetrics
}

func NewSyncService(
	orderRepo repository.OrderRepository,
	factRepo repository.FactRepository,
	dimensions DimensionService,
	facts FactService,
	db *gorm.DB,
	locker JobLocker,
	publisher EventPublisher,
	jobMetrics *metrics.JobMetrics,
) SyncService {
	return &syncService{
		orderRepo:  orderRepo,
		factRepo:   factRepo,
		dimensions: dimensions,
		facts:      facts,
		db:         db,
		locker:     locker,
		publisher:  publisher,
		metrics:    jobMetrics,
	}
}

func (s *syncService) SyncOrders(ctx context.Context, opts SyncOptions) (*SyncReport, error) {
	started := time.Now()

	release, err := acquire(ctx, s.locker, LockKeySync)
	if err != nil {
		if errors.Is(err, ErrJobInProgress) {
			s.metrics.Observe(JobSync, metrics.JobStatusSkipped, started)
			return nil, ErrSyncInProgress
		}
		return nil, err
	}
	defer release()

	logger.Info("Starting analytics sync", map[string]interface{}{
		"status": opts.Status,
	})

	report := &SyncReport{}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		orders, err := s.orderRepo.WithTx(tx).FindUnsyncedForAnalytics(opts.Status)
		if err != nil {
			return err
		}
		if len(orders) == 0 {
			return nil
		}

		var dims Dimensions
		if dims.Dates, report.DimDate, err = s.dimensions.ResolveDates(tx, orders); err != nil {
			return err
		}
		if dims.Users, report.DimUser, err = s.dimensions.ResolveUsers(tx, orders); err != nil {
			return err
		}
		if dims.Products, report.DimProductBase, err = s.dimensions.ResolveProducts(tx, orders); err != nil {
			return err
		}
		if dims.Variants, report.DimVariantOrder, err = s.dimensions.ResolveVariants(tx, orders, dims.Products); err != nil {
			return err
		}
		if report.FactSales, err = s.facts.ProjectOrders(tx, orders, dims); err != nil {
			return err
		}

		ids := make([]uint, 0, len(orders))
		for i := range orders {
			ids = append(ids, orders[i].ID)
		}
		if err := s.orderRepo.WithTx(tx).MarkSynced(ids); err != nil {
			return err
		}
		report.OrdersSynced = len(ids)
		return nil
	})
	if err != nil {
		logger.Error("Analytics sync failed, nothing was committed", err)
		s.metrics.Observe(JobSync, metrics.JobStatusFailure, started)
		return nil, err
	}

	s.metrics.Observe(JobSync, metrics.JobStatusSuccess, started)
	s.metrics.AddRows("dim_dates", report.DimDate.Created)
	s.metrics.AddRows("dim_users", report.DimUser.Created)
	s.metrics.AddRows("dim_product_bases", report.DimProductBase.Created)
	s.metrics.AddRows("dim_variant_orders", report.DimVariantOrder.Created)
	s.metrics.AddRows("fact_sales", report.FactSales.Created)

	logger.Info("Analytics sync completed", map[string]interface{}{
		"orders":       report.OrdersSynced,
		"facts_new":    report.FactSales.Created,
		"facts_seen":   report.FactSales.Existing,
		"dates_new":    report.DimDate.Created,
		"variants_new": report.DimVariantOrder.Created,
		"duration_ms":  time.Since(started).Milliseconds(),
	})
	if report.OrdersSynced > 0 {
		publish(s.publisher, websocket.TopicAnalytics, EventSyncCompleted, report)
	}
	return report, nil
}

// VerifyFactSalesTotals compares discounted item totals of projected orders with the fact table.
// Orders flagged for resync still count on both sides since their fact row is kept current.
func (s *syncService) VerifyFactSalesTotals(ctx context.Context, status *model.OrderStatus) (*VerifyResult, error) {
	db := s.db.WithContext(ctx)

	expected, err := s.orderRepo.WithTx(db).SumFactItemsAfterDiscount(status)
	if err != nil {
		return nil, err
	}
	actual, err := s.factRepo.WithTx(db).SumAfterDiscount(status)
	if err != nil {
		return nil, err
	}

	result := &VerifyResult{
		Expected: expected,
		Actual:   actual,
		Match:    expected == actual,
	}
	if !result.Match {
		logger.Warn("Fact sales totals do not match order items", map[string]interface{}{
			"expected": expected,
			"actual":   actual,
			"status":   status,
		})
	}
	return result, nil
}
