package models

import "time"

// Initiative is the leaf of the hierarchy. Initiatives are hard-deleted.
type Initiative struct {
	ID          uint64    `gorm:"primarykey" json:"id"`
	MilestoneID uint64    `gorm:"not null;index" json:"milestone_id"`
	Title       string    `gorm:"type:varchar(255);not null" json:"title"`
	Description string    `gorm:"type:text" json:"description"`
	Status      Status    `gorm:"type:varchar(20);not null;default:'ACTIVE'" json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	// Relations
	Milestone   Milestone              `gorm:"foreignKey:MilestoneID" json:"-"`
	Assignments []InitiativeAssignment `gorm:"foreignKey:InitiativeID" json:"assignments,omitempty"`
	Comments    []Comment              `gorm:"foreignKey:InitiativeID" json:"-"`
}

type InitiativeAssignment struct {
	InitiativeID uint64    `gorm:"primarykey" json:"initiative_id"`
	UserID       uint64    `gorm:"primarykey" json:"user_id"`
	CreatedAt    time.Time `json:"created_at"`

	// Relations
	Initiative Initiative `gorm:"foreignKey:InitiativeID" json:"-"`
	User       User       `gorm:"foreignKey:UserID" json:"user,omitempty"`
}
