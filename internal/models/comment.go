package models

import "time"

type Comment struct {
	ID           uint64    `gorm:"primarykey" json:"id"`
	InitiativeID uint64    `gorm:"not null;index" json:"initiative_id"`
	AuthorID     uint64    `gorm:"not null" json:"author_id"`
	Body         string    `gorm:"type:text;not null" json:"body"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`

	// Relations
	Author User `gorm:"foreignKey:AuthorID" json:"author,omitempty"`
}
