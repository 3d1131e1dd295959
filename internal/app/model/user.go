package model

import (
	"time"
)

type Gender string // 성별 코드

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
	GenderOther  Gender = "other"
)

type UserRole string // 권한 코드

const (
	RoleUser  UserRole = "user"
	RoleAdmin UserRole = "admin"
)

type AgeRange struct {
	ID     uint   `gorm:"primarykey" json:"id"`                               // 연령대 ID
	Name   string `gorm:"type:varchar(255);uniqueIndex;not null" json:"name"` // 표시 이름 (예: 26-35)
	MinAge int    `gorm:"not null" json:"min_age"`                            // 최소 나이
	MaxAge int    `gorm:"not null" json:"max_age"`                            // 최대 나이
}

func (AgeRange) TableName() string {
	return "age_ranges"
}

type User struct {
	ID               uint      `gorm:"primarykey" json:"id"`                                   // 사용자 ID
	Username         string    `gorm:"type:varchar(150);uniqueIndex;not null" json:"username"` // 로그인 이름
	Email            string    `gorm:"type:varchar(255)" json:"email"`                         // 이메일
	Gender           Gender    `gorm:"type:varchar(10)" json:"gender,omitempty"`               // 성별
	Role             UserRole  `gorm:"type:varchar(20);not null;default:'user'" json:"role"`   // 권한
	City             string    `gorm:"type:varchar(255)" json:"city,omitempty"`                // 거주 도시
	RegistrationDate time.Time `json:"registration_date"`                                      // 가입일
	AgeRangeID       *uint     `gorm:"index" json:"age_range_id,omitempty"`                    // 연령대 ID
	CreatedAt        time.Time `json:"created_at"`                                             // 생성 시각
	UpdatedAt        time.Time `json:"updated_at"`                                             // 수정 시각

	AgeRange *AgeRange `gorm:"foreignKey:AgeRangeID;constraint:OnDelete:SET NULL" json:"age_range,omitempty"` // 연령대 정보
	Orders   []Order   `gorm:"foreignKey:UserID" json:"-"`                                                    // 주문 목록
}

func (User) TableName() string {
	return "users"
}

// AgeRangeName returns the snapshot label used by the user dimension.
func (u *User) AgeRangeName() string {
	if u.AgeRange == nil {
		return ""
	}
	return u.AgeRange.Name
}
