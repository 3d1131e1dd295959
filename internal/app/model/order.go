package model

import (
	"strings"
	"time"
)

type OrderStatus string // 주문 상태 코드

const (
	OrderStatusInitial  OrderStatus = "initial"  // 주문 접수
	OrderStatusProcess  OrderStatus = "process"  // 처리 중
	OrderStatusSent     OrderStatus = "sent"     // 발송 완료
	OrderStatusDone     OrderStatus = "done"     // 거래 완료
	OrderStatusCancel   OrderStatus = "cancel"   // 주문 취소
	OrderStatusRejected OrderStatus = "rejected" // 주문 거절
)

// OrderStatuses lists every known status in rollup bucket order.
var OrderStatuses = []OrderStatus{
	OrderStatusInitial,
	OrderStatusProcess,
	OrderStatusSent,
	OrderStatusDone,
	OrderStatusCancel,
	OrderStatusRejected,
}

// ParseOrderStatus normalizes a raw status string. ok is false for values outside the enumeration.
func ParseOrderStatus(raw string) (OrderStatus, bool) {
	status := OrderStatus(strings.ToLower(strings.TrimSpace(raw)))
	for _, known := range OrderStatuses {
		if status == known {
			return status, true
		}
	}
	return status, false
}

// IsActive reports whether stock must be held for the order.
func (s OrderStatus) IsActive() bool {
	switch s {
	case OrderStatusInitial, OrderStatusProcess, OrderStatusSent, OrderStatusDone:
		return true
	}
	return false
}

func (s OrderStatus) IsCancelled() bool {
	return s == OrderStatusCancel || s == OrderStatusRejected
}

type Order struct {
	ID                uint        `gorm:"primarykey" json:"id"`                                   // 주문 ID
	UserID            uint        `gorm:"not null;index" json:"user_id"`                          // 주문자 ID
	Status            OrderStatus `gorm:"type:varchar(20);default:'initial';index" json:"status"` // 주문 상태
	IsSyncedAnalytics bool        `gorm:"default:false;index" json:"is_synced_analytics"`         // 분석 테이블 동기화 여부
	CreatedAt         time.Time   `gorm:"index" json:"created_at"`                                // 생성 시각
	UpdatedAt         time.Time   `json:"updated_at"`                                             // 수정 시각

	User  User        `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"user,omitempty"`   // 주문자 정보
	Items []OrderItem `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"items,omitempty"` // 주문 항목 목록
}

func (Order) TableName() string {
	return "orders"
}

// Totals sums the stored line totals of the loaded items.
func (o *Order) Totals() (totalPrice, totalAfterDiscount int64) {
	for i := range o.Items {
		totalPrice += o.Items[i].TotalPrice
		totalAfterDiscount += o.Items[i].TotalAfterDiscount
	}
	return totalPrice, totalAfterDiscount
}

type OrderItem struct {
	ID                 uint      `gorm:"primarykey" json:"id"`                           // 주문 항목 ID
	OrderID            uint      `gorm:"not null;index" json:"order_id"`                 // 주문 ID
	VariantID          *uint     `gorm:"index" json:"variant_id,omitempty"`              // 옵션 ID (삭제 시 null)
	Quantity           int       `gorm:"not null;default:1" json:"quantity"`             // 수량
	UnitPrice          int64     `gorm:"not null;default:0" json:"unit_price"`           // 단가 (저장 시점 상품가)
	DiscountPercent    int       `gorm:"not null;default:0" json:"discount_percent"`     // 할인율 (0~100)
	TotalPrice         int64     `gorm:"not null;default:0" json:"total_price"`          // 단가 × 수량
	TotalAfterDiscount int64     `gorm:"not null;default:0" json:"total_after_discount"` // 할인 적용 금액
	CreatedAt          time.Time `json:"created_at"`                                     // 생성 시각
	UpdatedAt          time.Time `json:"updated_at"`                                     // 수정 시각

	Order   *Order   `gorm:"foreignKey:OrderID" json:"-"`                                                // 주문 정보
	Variant *Variant `gorm:"foreignKey:VariantID;constraint:OnDelete:SET NULL" json:"variant,omitempty"` // 옵션 정보
}

func (OrderItem) TableName() string {
	return "order_items"
}

// LineTotals is the single place the discount arithmetic lives; every copy of a
// line total (order items, variant dimension rows, facts) goes through it.
func LineTotals(unitPrice int64, quantity, discountPercent int) (totalPrice, totalAfterDiscount int64) {
	totalPrice = unitPrice * int64(quantity)
	totalAfterDiscount = totalPrice * int64(100-discountPercent) / 100
	return totalPrice, totalAfterDiscount
}

// Recalculate snapshots the unit price from the loaded variant's product and refreshes the totals.
func (i *OrderItem) Recalculate() {
	if i.Variant != nil && i.Variant.Product.ID != 0 {
		i.UnitPrice = i.Variant.Product.Price
	} else if i.VariantID == nil {
		i.UnitPrice = 0
	}
	i.TotalPrice, i.TotalAfterDiscount = LineTotals(i.UnitPrice, i.Quantity, i.DiscountPercent)
}

// OrderItemVariantInvoiceQuantity records how much of one lot an order item consumed.
type OrderItemVariantInvoiceQuantity struct {
	ID                       uint      `gorm:"primarykey" json:"id"`                              // 차감 내역 ID
	OrderItemID              uint      `gorm:"not null;index" json:"order_item_id"`               // 주문 항목 ID
	VariantInvoiceQuantityID uint      `gorm:"not null;index" json:"variant_invoice_quantity_id"` // 재고 로트 ID
	DeductedQuantity         int       `gorm:"not null" json:"deducted_quantity"`                 // 차감 수량
	CreatedAt                time.Time `json:"created_at"`                                        // 생성 시각

	OrderItem *OrderItem              `gorm:"foreignKey:OrderItemID;constraint:OnDelete:CASCADE" json:"-"`              // 주문 항목
	Lot       *VariantInvoiceQuantity `gorm:"foreignKey:VariantInvoiceQuantityID;constraint:OnDelete:CASCADE" json:"-"` // 재고 로트
}

func (OrderItemVariantInvoiceQuantity) TableName() string {
	return "order_item_variant_invoice_quantities"
}
