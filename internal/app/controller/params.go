package controller

import (
	stderrors "errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/ikkim/storefront-backend/internal/app/model"
	"github.com/ikkim/storefront-backend/internal/app/repository"
	"github.com/ikkim/storefront-backend/internal/app/service"
	"github.com/ikkim/storefront-backend/internal/errors"
	"github.com/ikkim/storefront-backend/internal/middleware"
)

// parseIDParam writes a 400 and returns false when the path parameter is not an id.
func parseIDParam(c *gin.Context, name string) (uint, bool) {
	raw := c.Param(name)
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		middleware.GetLoggerFromContext(c).Warn("Invalid ID format", map[string]interface{}{
			"param": name,
			"value": raw,
		})
		errors.BadRequest(c, errors.ValidationInvalidID, "잘못된 ID 형식입니다")
		return 0, false
	}
	return uint(id), true
}

func pageFrom(c *gin.Context) repository.Page {
	page, _ := strconv.Atoi(c.Query("page"))
	size, _ := strconv.Atoi(c.Query("page_size"))
	return service.NormalizePage(repository.Page{Page: page, PageSize: size})
}

func parseDateQuery(c *gin.Context, key string) (*time.Time, error) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(model.DateLayout, raw)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// dateFilterFrom reads start_date, end_date, jalali_date, day_of_week, month_name, quarter and is_holiday.
func dateFilterFrom(c *gin.Context) (repository.DateFilter, error) {
	filter := repository.DateFilter{
		JalaliDate: strings.TrimSpace(c.Query("jalali_date")),
		DayOfWeek:  strings.TrimSpace(c.Query("day_of_week")),
		MonthName:  strings.TrimSpace(c.Query("month_name")),
	}

	var err error
	if filter.Start, err = parseDateQuery(c, "start_date"); err != nil {
		return filter, err
	}
	if filter.End, err = parseDateQuery(c, "end_date"); err != nil {
		return filter, err
	}
	if raw := c.Query("quarter"); raw != "" {
		q, err := strconv.Atoi(raw)
		if err != nil || q < 1 || q > 4 {
			return filter, stderrors.New("quarter must be 1-4")
		}
		filter.Quarter = &q
	}
	if raw := c.Query("is_holiday"); raw != "" {
		h, err := strconv.ParseBool(raw)
		if err != nil {
			return filter, err
		}
		filter.IsHoliday = &h
	}
	return filter, nil
}

func statusQuery(c *gin.Context) (*model.OrderStatus, error) {
	raw := c.Query("status")
	if raw == "" {
		return nil, nil
	}
	status, ok := model.ParseOrderStatus(raw)
	if !ok {
		return nil, service.ErrInvalidStatus
	}
	return &status, nil
}

func salesFilterFrom(c *gin.Context) (repository.SalesFilter, error) {
	dates, err := dateFilterFrom(c)
	if err != nil {
		return repository.SalesFilter{}, err
	}
	status, err := statusQuery(c)
	if err != nil {
		return repository.SalesFilter{}, err
	}
	return repository.SalesFilter{
		DateFilter: dates,
		Status:     status,
		Supplier:   strings.TrimSpace(c.Query("supplier")),
		City:       strings.TrimSpace(c.Query("city")),
		Gender:     strings.TrimSpace(c.Query("gender")),
		AgeRange:   strings.TrimSpace(c.Query("age_range")),
		Username:   strings.TrimSpace(c.Query("username")),
	}, nil
}

func paginated(results interface{}, total int64, page repository.Page) gin.H {
	return gin.H{
		"results":   results,
		"count":     total,
		"page":      page.Page,
		"page_size": page.PageSize,
	}
}

// respondServiceError maps service sentinels onto status codes and error codes.
func respondServiceError(c *gin.Context, err error, context string) {
	log := middleware.GetLoggerFromContext(c)

	var verrs validator.ValidationErrors
	switch {
	case stderrors.As(err, &verrs):
		errors.RespondWithBindingError(c, err)
	case stderrors.Is(err, service.ErrInvalidStatus):
		errors.BadRequest(c, errors.OrderInvalidStatus, "허용되지 않는 주문 상태입니다")
	case stderrors.Is(err, service.ErrInvalidQuantity):
		errors.BadRequest(c, errors.ValidationInvalidRange, "수량은 1 이상이어야 합니다")
	case stderrors.Is(err, service.ErrOrderNotFound):
		errors.NotFound(c, errors.OrderNotFound, "주문을 찾을 수 없습니다")
	case stderrors.Is(err, service.ErrOrderItemNotFound):
		errors.NotFound(c, errors.OrderItemNotFound, "주문 항목을 찾을 수 없습니다")
	case stderrors.Is(err, service.ErrVariantNotFound):
		errors.NotFound(c, errors.OrderVariantMissing, "상품 옵션을 찾을 수 없습니다")
	case stderrors.Is(err, service.ErrUserNotFound):
		errors.NotFound(c, errors.ResourceNotFound, "사용자를 찾을 수 없습니다")
	case stderrors.Is(err, service.ErrInvoiceNotFound):
		errors.NotFound(c, errors.PurchaseInvoiceNotFound, "매입 전표를 찾을 수 없습니다")
	case stderrors.Is(err, service.ErrInvoiceClosed):
		errors.Conflict(c, errors.PurchaseInvoiceClosed, "취소된 전표는 입고 처리할 수 없습니다")
	case stderrors.Is(err, service.ErrOutOfStock):
		errors.Conflict(c, errors.InventoryOutOfStock, "재고가 부족합니다")
	case stderrors.Is(err, service.ErrSyncInProgress), stderrors.Is(err, service.ErrJobInProgress):
		errors.Conflict(c, errors.AnalyticsSyncInProgress, "분석 작업이 이미 진행 중입니다")
	case stderrors.Is(err, service.ErrDimensionMissing):
		log.Error("Analytics dimension missing", err)
		errors.RespondWithError(c, http.StatusInternalServerError, errors.AnalyticsDimensionMissing, "분석 차원 데이터가 누락되었습니다")
	default:
		log.Error("Request failed", err, map[string]interface{}{
			"context": context,
		})
		errors.ParseAndRespond(c, http.StatusInternalServerError, err, context)
	}
}
