package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/ikkim/storefront-backend/config"
	"github.com/ikkim/storefront-backend/internal/app/model"
	"github.com/ikkim/storefront-backend/internal/app/repository"
	"github.com/ikkim/storefront-backend/internal/app/service"
	"github.com/ikkim/storefront-backend/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSync struct {
	calls int
	err   error
}

func (f *fakeSync) SyncOrders(ctx context.Context, opts service.SyncOptions) (*service.SyncReport, error) {
	f.calls++
	return &service.SyncReport{}, f.err
}

func (f *fakeSync) VerifyFactSalesTotals(ctx context.Context, status *model.OrderStatus) (*service.VerifyResult, error) {
	return &service.VerifyResult{}, nil
}

type fakeRollup struct {
	calls int
	err   error
}

func (f *fakeRollup) Rollup(ctx context.Context) (*service.RollupResult, error) {
	f.calls++
	return &service.RollupResult{}, f.err
}

func (f *fakeRollup) ListFactAnalytics(ctx context.Context, filter repository.DateFilter, page repository.Page) ([]model.FactAnalytics, int64, error) {
	return nil, 0, nil
}

func (f *fakeRollup) ExportFactAnalytics(ctx context.Context, filter repository.DateFilter) ([]model.FactAnalytics, error) {
	return nil, nil
}

type fakeExport struct {
	archivedDay time.Time
	err         error
}

func (f *fakeExport) FactAnalyticsWorkbook(ctx context.Context, filter repository.DateFilter) ([]byte, error) {
	return nil, nil
}

func (f *fakeExport) ArchiveDailyReport(ctx context.Context, day time.Time) (*storage.StoredObject, error) {
	f.archivedDay = day
	if f.err != nil {
		return nil, f.err
	}
	return &storage.StoredObject{Key: "k"}, nil
}

func newTestScheduler(cfg config.AnalyticsConfig) (*AnalyticsScheduler, *fakeSync, *fakeRollup, *fakeExport) {
	if cfg.TimeZone == "" {
		cfg.TimeZone = "UTC"
	}
	cfg.LockTTL = time.Minute
	syncSvc, rollupSvc, exportSvc := &fakeSync{}, &fakeRollup{}, &fakeExport{}
	return NewAnalyticsScheduler(cfg, syncSvc, rollupSvc, exportSvc), syncSvc, rollupSvc, exportSvc
}

func TestAnalyticsScheduler_Start(t *testing.T) {
	t.Run("registers configured jobs", func(t *testing.T) {
		s, _, _, _ := newTestScheduler(config.AnalyticsConfig{
			SyncSchedule:    "*/10 * * * *",
			RollupSchedule:  "5 * * * *",
			ArchiveSchedule: "30 0 * * *",
		})
		require.NoError(t, s.Start())
		defer s.Stop()

		assert.Len(t, s.cron.Entries(), 3)
	})

	t.Run("empty spec disables a job", func(t *testing.T) {
		s, _, _, _ := newTestScheduler(config.AnalyticsConfig{
			SyncSchedule: "*/10 * * * *",
		})
		require.NoError(t, s.Start())
		defer s.Stop()

		assert.Len(t, s.cron.Entries(), 1)
	})

	t.Run("invalid spec", func(t *testing.T) {
		s, _, _, _ := newTestScheduler(config.AnalyticsConfig{
			SyncSchedule: "every now and then",
		})
		assert.Error(t, s.Start())
	})
}

func TestAnalyticsScheduler_Jobs(t *testing.T) {
	t.Run("sync and rollup delegate", func(t *testing.T) {
		s, syncSvc, rollupSvc, _ := newTestScheduler(config.AnalyticsConfig{})

		s.execute(service.JobSync, s.runSync)
		s.execute(service.JobRollup, s.runRollup)

		assert.Equal(t, 1, syncSvc.calls)
		assert.Equal(t, 1, rollupSvc.calls)
	})

	t.Run("archive rolls up then exports the previous local day", func(t *testing.T) {
		s, _, rollupSvc, exportSvc := newTestScheduler(config.AnalyticsConfig{TimeZone: "Asia/Tehran"})
		s.now = func() time.Time { return time.Date(2024, 3, 21, 22, 0, 0, 0, time.UTC) }

		require.NoError(t, s.runArchive(context.Background()))

		assert.Equal(t, 1, rollupSvc.calls)
		// 22:00 UTC is already 2024-03-22 in Tehran
		assert.Equal(t, "2024-03-21", exportSvc.archivedDay.Format(model.DateLayout))
	})

	t.Run("archive tolerates a held rollup lock", func(t *testing.T) {
		s, _, rollupSvc, exportSvc := newTestScheduler(config.AnalyticsConfig{})
		rollupSvc.err = service.ErrJobInProgress

		require.NoError(t, s.runArchive(context.Background()))
		assert.False(t, exportSvc.archivedDay.IsZero())
	})

	t.Run("disabled archive is reported", func(t *testing.T) {
		s, _, _, exportSvc := newTestScheduler(config.AnalyticsConfig{})
		exportSvc.err = service.ErrArchiveDisabled

		assert.ErrorIs(t, s.runArchive(context.Background()), service.ErrArchiveDisabled)
	})
}
