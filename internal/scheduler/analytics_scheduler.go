package scheduler

import (
	"context"
	"errors"
	"time"

	"github.com/ikkim/storefront-backend/config"
	"github.com/ikkim/storefront-backend/internal/app/service"
	"github.com/ikkim/storefront-backend/pkg/logger"
	"github.com/robfig/cron/v3"
)

// AnalyticsScheduler 분석 파이프라인 주기 실행 스케줄러 (동기화, 집계, 보고서 보관)
type AnalyticsScheduler struct {
	cron          *cron.Cron
	cfg           config.AnalyticsConfig
	location      *time.Location
	syncService   service.SyncService
	rollupService service.RollupService
	exportService service.ExportService
	now           func() time.Time
}

// NewAnalyticsScheduler 분석 스케줄러 생성
func NewAnalyticsScheduler(
	cfg config.AnalyticsConfig,
	syncService service.SyncService,
	rollupService service.RollupService,
	exportService service.ExportService,
) *AnalyticsScheduler {
	location := cfg.Location()
	return &AnalyticsScheduler{
		cron:          cron.New(cron.WithLocation(location)),
		cfg:           cfg,
		location:      location,
		syncService:   syncService,
		rollupService: rollupService,
		exportService: exportService,
		now:           time.Now,
	}
}

// Start 스케줄러 시작. 빈 cron 표현식은 해당 작업을 비활성화함
func (s *AnalyticsScheduler) Start() error {
	jobs := []struct {
		name string
		spec string
		run  func(ctx context.Context) error
	}{
		{name: service.JobSync, spec: s.cfg.SyncSchedule, run: s.runSync},
		{name: service.JobRollup, spec: s.cfg.RollupSchedule, run: s.runRollup},
		{name: service.JobArchive, spec: s.cfg.ArchiveSchedule, run: s.runArchive},
	}

	for _, job := range jobs {
		if job.spec == "" {
			logger.Info("Analytics job disabled", map[string]interface{}{
				"job": job.name,
			})
			continue
		}

		job := job
		if _, err := s.cron.AddFunc(job.spec, func() { s.execute(job.name, job.run) }); err != nil {
			logger.Error("Failed to add cron job", err, map[string]interface{}{
				"job":  job.name,
				"spec": job.spec,
			})
			return err
		}
	}

	s.cron.Start()
	logger.Info("Analytics scheduler started", map[string]interface{}{
		"jobs":     len(s.cron.Entries()),
		"timezone": s.location.String(),
	})
	return nil
}

// Stop 스케줄러 중지. 실행 중인 작업이 끝날 때까지 기다림
func (s *AnalyticsScheduler) Stop() {
	logger.Info("Stopping analytics scheduler...", nil)
	<-s.cron.Stop().Done()
	logger.Info("Analytics scheduler stopped", nil)
}

func (s *AnalyticsScheduler) execute(name string, run func(ctx context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.LockTTL)
	defer cancel()

	logger.Info("Starting scheduled analytics job", map[string]interface{}{
		"job": name,
	})

	err := run(ctx)
	switch {
	case err == nil:
		logger.Info("Scheduled analytics job finished", map[string]interface{}{
			"job": name,
		})
	case errors.Is(err, service.ErrSyncInProgress),
		errors.Is(err, service.ErrJobInProgress),
		errors.Is(err, service.ErrArchiveDisabled):
		logger.Warn("Scheduled analytics job skipped", map[string]interface{}{
			"job":    name,
			"reason": err.Error(),
		})
	default:
		logger.Error("Scheduled analytics job failed", err, map[string]interface{}{
			"job": name,
		})
	}
}

func (s *AnalyticsScheduler) runSync(ctx context.Context) error {
	_, err := s.syncService.SyncOrders(ctx, service.SyncOptions{})
	return err
}

func (s *AnalyticsScheduler) runRollup(ctx context.Context) error {
	_, err := s.rollupService.Rollup(ctx)
	return err
}

// runArchive 전날 집계를 보관. 보관 전에 남은 팩트를 먼저 집계함
func (s *AnalyticsScheduler) runArchive(ctx context.Context) error {
	if _, err := s.rollupService.Rollup(ctx); err != nil && !errors.Is(err, service.ErrJobInProgress) {
		return err
	}
	yesterday := s.now().In(s.location).AddDate(0, 0, -1)
	_, err := s.exportService.ArchiveDailyReport(ctx, yesterday)
	return err
}
