package models

import "time"

// AuditLog is an append-only record of a change to an entity.
type AuditLog struct {
	ID          uint64      `gorm:"primarykey" json:"id"`
	EntityType  EntityType  `gorm:"type:varchar(20);not null;index:idx_audit_entity" json:"entityType"`
	EntityID    uint64      `gorm:"not null;index:idx_audit_entity" json:"entityId"`
	Action      AuditAction `gorm:"type:varchar(20);not null" json:"action"`
	OldStatus   *Status     `gorm:"type:varchar(20)" json:"oldStatus"`
	NewStatus   *Status     `gorm:"type:varchar(20)" json:"newStatus"`
	Details     string      `gorm:"type:text" json:"details"`
	PerformedBy string      `gorm:"type:varchar(255);not null;index" json:"performedBy"`
	Timestamp   time.Time   `gorm:"not null;index" json:"timestamp"`
}
