package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ikkim/storefront-backend/internal/app/model"
	"github.com/ikkim/storefront-backend/internal/app/repository"
	"github.com/ikkim/storefront-backend/internal/storage"
	"github.com/ikkim/storefront-backend/internal/websocket"
	"github.com/ikkim/storefront-backend/pkg/logger"
	"github.com/ikkim/storefront-backend/pkg/metrics"
	"github.com/xuri/excelize/v2"
)

const FactAnalyticsSheet = "FactAnalytics"

var ErrArchiveDisabled = errors.New("report archive is not configured")

var factAnalyticsHeaders = []string{
	"full_date", "jalali_date", "day_of_week", "month_name", "quarter", "is_holiday",
	"total_order_quantity", "total_order_initial", "total_order_in_process", "total_order_sent",
	"total_order_done", "total_order_cancel", "total_order_rejected",
}

// ReportStore persists generated workbooks; *storage.S3Storage implements it.
type ReportStore interface {
	PutReport(ctx context.Context, name string, day time.Time, body []byte) (*storage.StoredObject, error)
}

type ExportService interface {
	FactAnalyticsWorkbook(ctx context.Context, filter repository.DateFilter) ([]byte, error)
	ArchiveDailyReport(ctx context.Context, day time.Time) (*storage.StoredObject, error)
}

type exportService struct {
	rollup    RollupService
	store     ReportStore
	publisher EventPublisher
	metrics   *metrics.JobMetrics
}

// NewExportService accepts a nil store; archiving then reports ErrArchiveDisabled.
func NewExportService(rollup RollupService, store ReportStore, publisher EventPublisher, jobMetrics *metrics.JobMetrics) ExportService {
	return &exportService{
		rollup:    rollup,
		store:     store,
		publisher: publisher,
		metrics:   jobMetrics,
	}
}

func factAnalyticsRow(row *model.FactAnalytics) []interface{} {
	values := make([]interface{}, 0, len(factAnalyticsHeaders))
	if row.DimDate != nil {
		d := row.DimDate
		values = append(values, d.FullDate, d.JalaliDate, d.DayOfWeek, d.MonthName, d.Quarter, d.IsHoliday)
	} else {
		values = append(values, "", "", "", "", 0, false)
	}
	return append(values,
		row.TotalOrderQuantity,
		row.TotalOrderInitial,
		row.TotalOrderInProcess,
		row.TotalOrderSent,
		row.TotalOrderDone,
		row.TotalOrderCancel,
		row.TotalOrderRejected,
	)
}

// FactAnalyticsWorkbook renders the matching rollup rows, oldest date first, as an XLSX workbook.
func (s *exportService) FactAnalyticsWorkbook(ctx context.Context, filter repository.DateFilter) ([]byte, error) {
	rows, err := s.rollup.ExportFactAnalytics(ctx, filter)
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), FactAnalyticsSheet); err != nil {
		return nil, err
	}
	if err := f.SetSheetRow(FactAnalyticsSheet, "A1", &factAnalyticsHeaders); err != nil {
		return nil, err
	}
	for i := range rows {
		values := factAnalyticsRow(&rows[i])
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		if err := f.SetSheetRow(FactAnalyticsSheet, cell, &values); err != nil {
			return nil, err
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

// ArchiveDailyReport uploads the rollup rows of the given day.
func (s *exportService) ArchiveDailyReport(ctx context.Context, day time.Time) (*storage.StoredObject, error) {
	started := time.Now()
	if s.store == nil {
		s.metrics.Observe(JobArchive, metrics.JobStatusSkipped, started)
		return nil, ErrArchiveDisabled
	}

	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	body, err := s.FactAnalyticsWorkbook(ctx, repository.DateFilter{Start: &start, End: &start})
	if err != nil {
		s.metrics.Observe(JobArchive, metrics.JobStatusFailure, started)
		return nil, err
	}

	object, err := s.store.PutReport(ctx, "fact-analytics", start, body)
	if err != nil {
		logger.Error("Failed to archive analytics report", err, map[string]interface{}{
			"day": start.Format(model.DateLayout),
		})
		s.metrics.Observe(JobArchive, metrics.JobStatusFailure, started)
		return nil, err
	}

	s.metrics.Observe(JobArchive, metrics.JobStatusSuccess, started)
	logger.Info("Analytics report archived", map[string]interface{}{
		"day": start.Format(model.DateLayout),
		"key": object.Key,
	})
	publish(s.publisher, websocket.TopicAnalytics, EventReportArchived, object)
	return object, nil
}
