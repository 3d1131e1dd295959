package service

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/ikkim/storefront-backend/internal/app/model"
	"github.com/ikkim/storefront-backend/internal/app/repository"
	"github.com/ikkim/storefront-backend/internal/websocket"
	"github.com/ikkim/storefront-backend/pkg/logger"
	"github.com/ikkim/storefront-backend/pkg/metrics"
	"gorm.io/gorm"
)

type RollupResult struct {
	FactsRolledUp int   `json:"facts_rolled_up"`
	DatesTouched  int   `json:"dates_touched"`
	Amount        int64 `json:"amount"`
}

// RollupService folds not-yet-counted facts into the per-date aggregate.
type RollupService interface {
	Rollup(ctx context.Context) (*RollupResult, error)
	ListFactAnalytics(ctx context.Context, filter repository.DateFilter, page repository.Page) ([]model.FactAnalytics, int64, error)
	ExportFactAnalytics(ctx context.Context, filter repository.DateFilter) ([]model.FactAnalytics, error)
}

type rollupService struct {
	factRepo          repository.FactRepository
	factAnalyticsRepo repository.FactAnalyticsRepository
	db                *gorm.DB
	locker            JobLocker
	publisher         EventPublisher
	metrics           *metrics.JobMetrics
}

func NewRollupService(
	factRepo repository.FactRepository,
	factAnalyticsRepo repository.FactAnalyticsRepository,
	db *gorm.DB,
	locker JobLocker,
	publisher EventPublisher,
	jobMetrics *metrics.JobMetrics,
) RollupService {
	return &rollupService{
		factRepo:          factRepo,
		factAnalyticsRepo: factAnalyticsRepo,
		db:                db,
		locker:            locker,
		publisher:         publisher,
		metrics:           jobMetrics,
	}
}

// Rollup adds every eligible fact to its date exactly once. Amounts are added, never assigned,
// so concurrent order edits that retract from the same row stay correct.
func (s *rollupService) Rollup(ctx context.Context) (*RollupResult, error) {
	started := time.Now()

	release, err := acquire(ctx, s.locker, LockKeyRollup)
	if err != nil {
		if errors.Is(err, ErrJobInProgress) {
			s.metrics.Observe(JobRollup, metrics.JobStatusSkipped, started)
		}
		return nil, err
	}
	defer release()

	result := &RollupResult{}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		facts, err := s.factRepo.WithTx(tx).LockEligibleForRollup()
		if err != nil {
			return err
		}
		if len(facts) == 0 {
			return nil
		}

		amounts := make(map[uint]map[string]int64)
		ids := make([]uint, 0, len(facts))
		for _, fact := range facts {
			bucket, ok := amounts[fact.DimDateID]
			if !ok {
				bucket = make(map[string]int64)
				amounts[fact.DimDateID] = bucket
			}
			bucket["total_order_quantity"] += fact.TotalPriceAfterDiscount

			status, known := model.ParseOrderStatus(string(fact.Status))
			if column, ok := model.StatusColumn(status); known && ok {
				bucket[column] += fact.TotalPriceAfterDiscount
			} else {
				logger.Warn("Unknown fact status, counted in total only", map[string]interface{}{
					"fact_id": fact.ID,
					"status":  fact.Status,
				})
			}

			ids = append(ids, fact.ID)
			result.Amount += fact.TotalPriceAfterDiscount
		}

		dateIDs := make([]uint, 0, len(amounts))
		for id := range amounts {
			dateIDs = append(dateIDs, id)
		}
		sort.Slice(dateIDs, func(i, j int) bool { return dateIDs[i] < dateIDs[j] })

		repo := s.factAnalyticsRepo.WithTx(tx)
		if err := repo.Ensure(dateIDs); err != nil {
			return err
		}
		for _, id := range dateIDs {
			if err := repo.Increment(id, amounts[id]); err != nil {
				return err
			}
		}
		if err := s.factRepo.WithTx(tx).MarkExcluded(ids); err != nil {
			return err
		}

		result.FactsRolledUp = len(ids)
		result.DatesTouched = len(dateIDs)
		return nil
	})
	if err != nil {
		logger.Error("Analytics rollup failed", err)
		s.metrics.Observe(JobRollup, metrics.JobStatusFailure, started)
		return nil, err
	}

	s.metrics.Observe(JobRollup, metrics.JobStatusSuccess, started)
	if result.FactsRolledUp > 0 {
		logger.Info("Analytics rollup completed", map[string]interface{}{
			"facts":  result.FactsRolledUp,
			"dates":  result.DatesTouched,
			"amount": result.Amount,
		})
		publish(s.publisher, websocket.TopicAnalytics, EventRollupCompleted, result)
	}
	return result, nil
}

func (s *rollupService) ListFactAnalytics(ctx context.Context, filter repository.DateFilter, page repository.Page) ([]model.FactAnalytics, int64, error) {
	return s.factAnalyticsRepo.WithTx(s.db.WithContext(ctx)).List(filter, NormalizePage(page))
}

func (s *rollupService) ExportFactAnalytics(ctx context.Context, filter repository.DateFilter) ([]model.FactAnalytics, error) {
	return s.factAnalyticsRepo.WithTx(s.db.WithContext(ctx)).ListAll(filter)
}
