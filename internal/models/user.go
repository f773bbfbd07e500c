package models

import (
	"time"

	"gorm.io/gorm"
)

type Role string

const (
	RoleEmployee Role = "EMPLOYEE"
	RoleManager  Role = "MANAGER"
	RoleAdmin    Role = "ADMIN"
)

// CanManage reports whether the role may mutate plans and milestones.
func (r Role) CanManage() bool {
	return r == RoleManager || r == RoleAdmin
}

type UserStatus string

const (
	UserStatusActive   UserStatus = "ACTIVE"
	UserStatusInactive UserStatus = "INACTIVE"
)

type User struct {
	ID           uint64         `gorm:"primarykey" json:"id"`
	Name         string         `gorm:"type:varchar(255);not null" json:"name"`
	Email        string         `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	PasswordHash string         `gorm:"type:varchar(255);not null" json:"-"`
	Department   string         `gorm:"type:varchar(255)" json:"department"`
	Role         Role           `gorm:"type:varchar(20);not null;default:'EMPLOYEE'" json:"role"`
	Status       UserStatus     `gorm:"type:varchar(20);not null;default:'ACTIVE'" json:"status"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`

	// Relations
	Plans       []Plan                 `gorm:"foreignKey:UserID" json:"-"`
	Assignments []InitiativeAssignment `gorm:"foreignKey:UserID" json:"-"`
}
