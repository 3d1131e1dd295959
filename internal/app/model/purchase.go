package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type PurchaseInvoiceStatus string // 매입 전표 상태

const (
	PurchaseInvoicePending   PurchaseInvoiceStatus = "pending" // 입고 대기
	PurchaseInvoiceDone      PurchaseInvoiceStatus = "done"    // 입고 완료
	PurchaseInvoiceCancelled PurchaseInvoiceStatus = "cancel"  // 취소
)

type PurchaseInvoice struct {
	ID           uint                  `gorm:"primarykey" json:"id"`                                     // 전표 ID
	Title        string                `gorm:"type:varchar(100)" json:"title"`                           // 전표 제목
	SupplierID   *uint                 `gorm:"index" json:"supplier_id,omitempty"`                       // 공급사 ID
	Status       PurchaseInvoiceStatus `gorm:"type:varchar(20);default:'pending'" json:"status"`         // 전표 상태
	TotalPrice   decimal.Decimal       `gorm:"type:decimal(15,2);not null;default:0" json:"total_price"` // 매입 총액
	DeliveryDate *time.Time            `json:"delivery_date,omitempty"`                                  // 입고 예정일
	CreatedAt    time.Time             `json:"created_at"`                                               // 생성 시각
	UpdatedAt    time.Time             `json:"updated_at"`                                               // 수정 시각

	Supplier *Supplier      `gorm:"foreignKey:SupplierID;constraint:OnDelete:SET NULL" json:"supplier,omitempty"` // 공급사 정보
	Items    []PurchaseItem `gorm:"foreignKey:InvoiceID;constraint:OnDelete:CASCADE" json:"items,omitempty"`      // 매입 항목
}

func (PurchaseInvoice) TableName() string {
	return "purchase_invoices"
}

type PurchaseItem struct {
	ID         uint            `gorm:"primarykey" json:"id"`                           // 매입 항목 ID
	InvoiceID  uint            `gorm:"not null;index" json:"invoice_id"`               // 전표 ID
	VariantID  *uint           `gorm:"index" json:"variant_id,omitempty"`              // 옵션 ID
	Quantity   int             `gorm:"not null" json:"quantity"`                       // 매입 수량
	TotalPrice decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"total_price"` // 항목 금액

	Variant *Variant `gorm:"foreignKey:VariantID;constraint:OnDelete:RESTRICT" json:"variant,omitempty"` // 옵션 정보
}

func (PurchaseItem) TableName() string {
	return "purchase_items"
}

// VariantInvoiceQuantity is a stock lot: what is left of one invoice's delivery of a variant.
type VariantInvoiceQuantity struct {
	ID                uint      `gorm:"primarykey" json:"id"`                                                    // 재고 로트 ID
	VariantID         uint      `gorm:"not null;uniqueIndex:idx_lot_variant_invoice" json:"variant_id"`          // 옵션 ID
	PurchaseInvoiceID uint      `gorm:"not null;uniqueIndex:idx_lot_variant_invoice" json:"purchase_invoice_id"` // 전표 ID
	Quantity          int       `gorm:"not null;default:0" json:"quantity"`                                      // 잔여 수량
	InitialQuantity   int       `gorm:"not null;default:0" json:"initial_quantity"`                              // 입고 수량
	CreatedAt         time.Time `json:"created_at"`                                                              // 생성 시각
	UpdatedAt         time.Time `json:"updated_at"`                                                              // 수정 시각

	Variant         *Variant         `gorm:"foreignKey:VariantID;constraint:OnDelete:CASCADE" json:"-"`         // 옵션 정보
	PurchaseInvoice *PurchaseInvoice `gorm:"foreignKey:PurchaseInvoiceID;constraint:OnDelete:CASCADE" json:"-"` // 전표 정보
}

func (VariantInvoiceQuantity) TableName() string {
	return "variant_invoice_quantities"
}
