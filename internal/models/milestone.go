package models

import (
	"time"

	"gorm.io/gorm"
)

type Milestone struct {
	ID          uint64         `gorm:"primarykey" json:"id"`
	PlanID      uint64         `gorm:"not null;index" json:"plan_id"`
	Title       string         `gorm:"type:varchar(255);not null" json:"title"`
	Description string         `gorm:"type:text" json:"description"`
	Sequence    int            `gorm:"not null;default:0" json:"sequence"`
	DueDate     *time.Time     `json:"due_date"`
	Status      Status         `gorm:"type:varchar(20);not null;default:'ACTIVE'" json:"status"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`

	// Relations
	Plan        Plan         `gorm:"foreignKey:PlanID" json:"-"`
	Initiatives []Initiative `gorm:"foreignKey:MilestoneID" json:"initiatives,omitempty"`
}
