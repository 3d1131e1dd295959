package model

import (
	"time"
)

// DateLayout is the natural key format of DimDate.FullDate.
const DateLayout = "2006-01-02"

type DimDate struct {
	ID         uint   `gorm:"primarykey" json:"id"`                                   // 날짜 차원 ID
	FullDate   string `gorm:"type:varchar(10);uniqueIndex;not null" json:"full_date"` // 그레고리력 날짜 (YYYY-MM-DD)
	JalaliDate string `gorm:"type:varchar(10)" json:"jalali_date,omitempty"`          // 페르시아력 날짜
	DayOfWeek  string `gorm:"type:varchar(20)" json:"day_of_week,omitempty"`          // 요일명
	MonthName  string `gorm:"type:varchar(20)" json:"month_name,omitempty"`           // 월 이름
	Quarter    int    `gorm:"default:0" json:"quarter,omitempty"`                     // 분기 (1~4)
	IsHoliday  bool   `gorm:"default:false" json:"is_holiday"`                        // 휴일 여부
}

func (DimDate) TableName() string {
	return "dim_dates"
}

type DimUser struct {
	ID               uint       `gorm:"primarykey" json:"id"`                         // 사용자 차원 ID
	UserID           uint       `gorm:"uniqueIndex;not null" json:"user_id"`          // 원본 사용자 ID
	Username         string     `gorm:"type:varchar(150)" json:"username"`            // 로그인 이름
	Gender           string     `gorm:"type:varchar(10)" json:"gender,omitempty"`     // 성별
	City             string     `gorm:"type:varchar(255)" json:"city,omitempty"`      // 거주 도시
	RegistrationDate *time.Time `json:"registration_date,omitempty"`                  // 가입일
	AgeRange         string     `gorm:"type:varchar(255)" json:"age_range,omitempty"` // 연령대 이름
}

func (DimUser) TableName() string {
	return "dim_users"
}

// ProductKey is the natural key of DimProductBase.
type ProductKey struct {
	ProductID        uint
	IsExciting       bool
	FreeShipping     bool
	HasGift          bool
	IsBudgetFriendly bool
}

func ProductKeyOf(p *Product) ProductKey {
	return ProductKey{
		ProductID:        p.ID,
		IsExciting:       p.IsExciting,
		FreeShipping:     p.FreeShipping,
		HasGift:          p.HasGift,
		IsBudgetFriendly: p.IsBudgetFriendly,
	}
}

type DimProductBase struct {
	ID               uint       `gorm:"primarykey" json:"id"`                                               // 상품 차원 ID
	ProductID        uint       `gorm:"not null;uniqueIndex:idx_dim_product_key" json:"product_id"`         // 원본 상품 ID
	IsExciting       bool       `gorm:"not null;uniqueIndex:idx_dim_product_key" json:"is_exciting"`        // 기획 상품 여부
	FreeShipping     bool       `gorm:"not null;uniqueIndex:idx_dim_product_key" json:"free_shipping"`      // 무료 배송 여부
	HasGift          bool       `gorm:"not null;uniqueIndex:idx_dim_product_key" json:"has_gift"`           // 사은품 여부
	IsBudgetFriendly bool       `gorm:"not null;uniqueIndex:idx_dim_product_key" json:"is_budget_friendly"` // 가성비 상품 여부
	ProductName      string     `gorm:"type:varchar(255)" json:"product_name"`                              // 상품명
	Price            int64      `gorm:"not null;default:0" json:"price"`                                    // 판매가 스냅샷
	Rating           int        `json:"rating"`                                                             // 평점
	IsAvailable      bool       `json:"is_available"`                                                       // 판매 가능 여부
	ExpireDate       *time.Time `json:"expire_date,omitempty"`                                              // 유통기한
	BrandName        string     `gorm:"type:varchar(255)" json:"brand_name,omitempty"`                      // 브랜드명
	SupplierName     string     `gorm:"type:varchar(100);index" json:"supplier_name,omitempty"`             // 공급사명
	CategoryLevel1   string     `gorm:"type:varchar(255)" json:"category_level_1,omitempty"`                // 말단 카테고리
	CategoryLevel2   string     `gorm:"type:varchar(255)" json:"category_level_2,omitempty"`                // 상위 카테고리
	CategoryLevel3   string     `gorm:"type:varchar(255)" json:"category_level_3,omitempty"`                // 최상위 카테고리
}

func (DimProductBase) TableName() string {
	return "dim_product_bases"
}

func (d *DimProductBase) Key() ProductKey {
	return ProductKey{
		ProductID:        d.ProductID,
		IsExciting:       d.IsExciting,
		FreeShipping:     d.FreeShipping,
		HasGift:          d.HasGift,
		IsBudgetFriendly: d.IsBudgetFriendly,
	}
}

type DimVariantOrder struct {
	ID                 uint   `gorm:"primarykey" json:"id"`                           // 옵션 차원 ID
	VariantID          uint   `gorm:"uniqueIndex;not null" json:"variant_id"`         // 원본 옵션 ID
	DimProductID       uint   `gorm:"not null;index" json:"dim_product_id"`           // 상품 차원 ID
	SKU                string `gorm:"type:varchar(100)" json:"sku"`                   // 재고 관리 코드
	Color              string `gorm:"type:varchar(50)" json:"color,omitempty"`        // 색상
	Size               string `gorm:"type:varchar(50)" json:"size,omitempty"`         // 사이즈
	Quantity           int    `gorm:"not null;default:0" json:"quantity"`             // 최초 주문 수량
	UnitPrice          int64  `gorm:"not null;default:0" json:"unit_price"`           // 최초 주문 단가
	DiscountPercent    int    `gorm:"not null;default:0" json:"discount_percent"`     // 최초 주문 할인율
	TotalPrice         int64  `gorm:"not null;default:0" json:"total_price"`          // 최근 주문 금액
	TotalAfterDiscount int64  `gorm:"not null;default:0" json:"total_after_discount"` // 최근 할인 적용 금액

	DimProduct *DimProductBase `gorm:"foreignKey:DimProductID;constraint:OnDelete:CASCADE" json:"dim_product,omitempty"` // 상품 차원
}

func (DimVariantOrder) TableName() string {
	return "dim_variant_orders"
}

type FactSales struct {
	ID                      uint        `gorm:"primarykey" json:"id"`                                 // 판매 팩트 ID
	OrderID                 uint        `gorm:"uniqueIndex;not null" json:"order_id"`                 // 원본 주문 ID
	DimDateID               uint        `gorm:"not null;index" json:"dim_date_id"`                    // 날짜 차원 ID
	DimUserID               uint        `gorm:"not null;index" json:"dim_user_id"`                    // 사용자 차원 ID
	Status                  OrderStatus `gorm:"type:varchar(20);index" json:"status"`                 // 주문 상태 스냅샷
	TotalPrice              int64       `gorm:"not null;default:0" json:"total_price"`                // 할인 전 합계
	TotalPriceAfterDiscount int64       `gorm:"not null;default:0" json:"total_price_after_discount"` // 할인 후 합계
	ExcludeFromAnalytics    bool        `gorm:"default:false;index" json:"exclude_from_analytics"`    // 집계 반영 완료 여부
	CreatedAt               time.Time   `json:"created_at"`                                           // 생성 시각
	UpdatedAt               time.Time   `json:"updated_at"`                                           // 수정 시각

	DimDate  *DimDate          `gorm:"foreignKey:DimDateID;constraint:OnDelete:RESTRICT" json:"dim_date,omitempty"` // 날짜 차원
	DimUser  *DimUser          `gorm:"foreignKey:DimUserID;constraint:OnDelete:RESTRICT" json:"dim_user,omitempty"` // 사용자 차원
	Variants []DimVariantOrder `gorm:"many2many:fact_sales_variants" json:"variants,omitempty"`                     // 옵션 차원 목록
}

func (FactSales) TableName() string {
	return "fact_sales"
}

// FactSalesVariant is the join row between a fact and the variant dimension rows it references.
type FactSalesVariant struct {
	FactSalesID       uint `gorm:"primaryKey"`
	DimVariantOrderID uint `gorm:"primaryKey"`
}

func (FactSalesVariant) TableName() string {
	return "fact_sales_variants"
}

type FactAnalytics struct {
	ID                  uint  `gorm:"primarykey" json:"id"`                             // 일별 집계 ID
	DimDateID           uint  `gorm:"uniqueIndex;not null" json:"dim_date_id"`          // 날짜 차원 ID
	TotalOrderQuantity  int64 `gorm:"not null;default:0" json:"total_order_quantity"`   // 전체 매출 합계
	TotalOrderInitial   int64 `gorm:"not null;default:0" json:"total_order_initial"`    // 접수 상태 합계
	TotalOrderInProcess int64 `gorm:"not null;default:0" json:"total_order_in_process"` // 처리 중 합계
	TotalOrderSent      int64 `gorm:"not null;default:0" json:"total_order_sent"`       // 발송 완료 합계
	TotalOrderDone      int64 `gorm:"not null;default:0" json:"total_order_done"`       // 거래 완료 합계
	TotalOrderCancel    int64 `gorm:"not null;default:0" json:"total_order_cancel"`     // 취소 합계
	TotalOrderRejected  int64 `gorm:"not null;default:0" json:"total_order_rejected"`   // 거절 합계

	DimDate *DimDate `gorm:"foreignKey:DimDateID;constraint:OnDelete:RESTRICT" json:"dim_date,omitempty"` // 날짜 차원
}

func (FactAnalytics) TableName() string {
	return "fact_analytics"
}

// StatusColumn maps a status to its FactAnalytics bucket column. ok is false for unknown statuses.
func StatusColumn(status OrderStatus) (column string, ok bool) {
	switch status {
	case OrderStatusInitial:
		return "total_order_initial", true
	case OrderStatusProcess:
		return "total_order_in_process", true
	case OrderStatusSent:
		return "total_order_sent", true
	case OrderStatusDone:
		return "total_order_done", true
	case OrderStatusCancel:
		return "total_order_cancel", true
	case OrderStatusRejected:
		return "total_order_rejected", true
	}
	return "", false
}

// TableCount reports how many natural keys a step created versus found.
type TableCount struct {
	Created  int `json:"created"`
	Existing int `json:"existing"`
}
