package models

import (
	"time"

	"gorm.io/gorm"
)

type Plan struct {
	ID          uint64         `gorm:"primarykey" json:"id"`
	UserID      uint64         `gorm:"not null;index" json:"user_id"`
	Title       string         `gorm:"type:varchar(255);not null" json:"title"`
	Description string         `gorm:"type:text" json:"description"`
	Status      Status         `gorm:"type:varchar(20);not null;default:'ACTIVE'" json:"status"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`

	// Relations
	Owner      User        `gorm:"foreignKey:UserID" json:"owner,omitempty"`
	Milestones []Milestone `gorm:"foreignKey:PlanID" json:"milestones,omitempty"`
}
