package model

import (
	"time"
)

type Supplier struct {
	ID        uint      `gorm:"primarykey" json:"id"`                          // 공급사 ID
	Name      string    `gorm:"type:varchar(100);not null" json:"name"`        // 공급사명
	CreatedAt time.Time `json:"created_at"`                                    // 생성 시각
	UpdatedAt time.Time `json:"updated_at"`                                    // 수정 시각
	Brands    []Brand   `gorm:"foreignKey:SupplierID" json:"brands,omitempty"` // 취급 브랜드
}

func (Supplier) TableName() string {
	return "suppliers"
}

type Brand struct {
	ID         uint      `gorm:"primarykey" json:"id"`                               // 브랜드 ID
	Name       string    `gorm:"type:varchar(255);uniqueIndex;not null" json:"name"` // 브랜드명
	SupplierID *uint     `gorm:"index" json:"supplier_id,omitempty"`                 // 공급사 ID
	CreatedAt  time.Time `json:"created_at"`                                         // 생성 시각
	UpdatedAt  time.Time `json:"updated_at"`                                         // 수정 시각

	Supplier *Supplier `gorm:"foreignKey:SupplierID;constraint:OnDelete:CASCADE" json:"supplier,omitempty"` // 공급사 정보
}

func (Brand) TableName() string {
	return "brands"
}

// MaxCategoryDepth bounds the category tree; dimension rows keep one column per level.
const MaxCategoryDepth = 3

type Category struct {
	ID       uint   `gorm:"primarykey" json:"id"`                               // 카테고리 ID
	Name     string `gorm:"type:varchar(255);uniqueIndex;not null" json:"name"` // 카테고리명
	ParentID *uint  `gorm:"index" json:"parent_id,omitempty"`                   // 상위 카테고리 ID

	Parent *Category `gorm:"foreignKey:ParentID;constraint:OnDelete:CASCADE" json:"parent,omitempty"` // 상위 카테고리
}

func (Category) TableName() string {
	return "categories"
}

// Levels returns the category names from the leaf upwards, at most MaxCategoryDepth.
// Parents must already be loaded.
func (c *Category) Levels() []string {
	levels := make([]string, 0, MaxCategoryDepth)
	for node := c; node != nil && len(levels) < MaxCategoryDepth; node = node.Parent {
		levels = append(levels, node.Name)
	}
	return levels
}

type Product struct {
	ID               uint       `gorm:"primarykey" json:"id"`                   // 상품 ID
	Name             string     `gorm:"type:varchar(255);not null" json:"name"` // 상품명
	Description      string     `gorm:"type:text" json:"description"`           // 상품 설명
	Rating           int        `gorm:"default:1" json:"rating"`                // 평점 (1~5)
	ExpireDate       *time.Time `json:"expire_date,omitempty"`                  // 유통기한
	IsAvailable      bool       `gorm:"not null" json:"is_available"`           // 판매 가능 여부
	IsExciting       bool       `gorm:"not null" json:"is_exciting"`            // 기획 상품 여부
	FreeShipping     bool       `gorm:"not null" json:"free_shipping"`          // 무료 배송 여부
	HasGift          bool       `gorm:"not null" json:"has_gift"`               // 사은품 여부
	IsBudgetFriendly bool       `gorm:"not null" json:"is_budget_friendly"`     // 가성비 상품 여부
	Price            int64      `gorm:"not null" json:"price"`                  // 판매가
	BrandID          *uint      `gorm:"index" json:"brand_id,omitempty"`        // 브랜드 ID
	CategoryID       *uint      `gorm:"index" json:"category_id,omitempty"`     // 카테고리 ID
	CreatedAt        time.Time  `json:"created_at"`                             // 생성 시각
	UpdatedAt        time.Time  `json:"updated_at"`                             // 수정 시각

	Brand    *Brand    `gorm:"foreignKey:BrandID;constraint:OnDelete:SET NULL" json:"brand,omitempty"`       // 브랜드 정보
	Category *Category `gorm:"foreignKey:CategoryID;constraint:OnDelete:SET NULL" json:"category,omitempty"` // 카테고리 정보
	Variants []Variant `gorm:"foreignKey:ProductID" json:"variants,omitempty"`                               // 옵션 목록
}

func (Product) TableName() string {
	return "products"
}

// BrandName and SupplierName tolerate missing relations.
func (p *Product) BrandName() string {
	if p.Brand == nil {
		return ""
	}
	return p.Brand.Name
}

func (p *Product) SupplierName() string {
	if p.Brand == nil || p.Brand.Supplier == nil {
		return ""
	}
	return p.Brand.Supplier.Name
}

type Variant struct {
	ID        uint      `gorm:"primarykey" json:"id"`                              // 옵션 ID
	ProductID uint      `gorm:"not null;index" json:"product_id"`                  // 상품 ID
	SKU       string    `gorm:"type:varchar(100);uniqueIndex;not null" json:"sku"` // 재고 관리 코드
	Color     string    `gorm:"type:varchar(50)" json:"color,omitempty"`           // 색상
	Size      string    `gorm:"type:varchar(50)" json:"size,omitempty"`            // 사이즈
	CreatedAt time.Time `json:"created_at"`                                        // 생성 시각
	UpdatedAt time.Time `json:"updated_at"`                                        // 수정 시각

	Product Product `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE" json:"product,omitempty"` // 상품 정보
}

func (Variant) TableName() string {
	return "variants"
}
