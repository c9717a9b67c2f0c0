package entity

import (
	"time"

	"gorm.io/gorm"
)

// Stock is one symbol in the fixed trading universe. Signal dispatch fans
// out over the active rows of this table.
type Stock struct {
	ID        uint           `gorm:"primaryKey"`
	Code      string         `gorm:"uniqueIndex;not null"`
	Name      string         `gorm:"not null"`
	Sector    string         `gorm:""`
	IsActive  bool           `gorm:"not null;default:true"`
	CreatedAt time.Time      `gorm:"autoCreateTime"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime"`
	DeletedAt gorm.DeletedAt `gorm:"index"`
}

func (Stock) TableName() string {
	return "stocks"
}
