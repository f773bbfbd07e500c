// Package audit records append-only change history for every entity type.
package audit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/anand-fs/plantrack/internal/logging"
	"github.com/anand-fs/plantrack/internal/models"
	"github.com/anand-fs/plantrack/internal/repository"
)

var ErrInvalidEntry = errors.New("invalid audit entry")

// Entry describes one change to record.
type Entry struct {
	EntityType  models.EntityType
	EntityID    uint64
	Action      models.AuditAction
	OldStatus   *models.Status
	NewStatus   *models.Status
	Details     string
	PerformedBy string
}

// Recorder persists audit entries. Implementations must join the transaction
// carried by ctx so a failed record rolls back the change it describes.
type Recorder interface {
	Record(ctx context.Context, entry Entry) (*models.AuditLog, error)
}

// LogRecorder writes entries through an AuditLogRepository.
type LogRecorder struct {
	repo repository.AuditLogRepository
	now  func() time.Time
}

func NewLogRecorder(repo repository.AuditLogRepository) *LogRecorder {
	return &LogRecorder{repo: repo, now: time.Now}
}

func (r *LogRecorder) Record(ctx context.Context, entry Entry) (*models.AuditLog, error) {
	if err := entry.validate(); err != nil {
		return nil, err
	}

	log := &models.AuditLog{
		EntityType:  entry.EntityType,
		EntityID:    entry.EntityID,
		Action:      entry.Action,
		OldStatus:   entry.OldStatus,
		NewStatus:   entry.NewStatus,
		Details:     entry.Details,
		PerformedBy: entry.PerformedBy,
		Timestamp:   r.now().UTC(),
	}
	if err := r.repo.Create(ctx, log); err != nil {
		logging.WithContext(ctx).WithError(err).WithFields(logrus.Fields{
			"entity_type": entry.EntityType,
			"entity_id":   entry.EntityID,
			"action":      entry.Action,
		}).Error("Failed to record audit log")
		return nil, fmt.Errorf("%w: %v", repository.ErrCreateAuditLog, err)
	}
	return log, nil
}

func (e Entry) validate() error {
	switch {
	case e.EntityType == "":
		return fmt.Errorf("%w: entity type is required", ErrInvalidEntry)
	case e.EntityID == 0:
		return fmt.Errorf("%w: entity id is required", ErrInvalidEntry)
	case e.Action == "":
		return fmt.Errorf("%w: action is required", ErrInvalidEntry)
	case e.PerformedBy == "":
		return fmt.Errorf("%w: performer is required", ErrInvalidEntry)
	case e.Action == models.AuditActionStatusChange && (e.OldStatus == nil || e.NewStatus == nil):
		return fmt.Errorf("%w: status change needs old and new status", ErrInvalidEntry)
	}
	return nil
}

// StatusChange builds the entry for a lifecycle transition.
func StatusChange(entityType models.EntityType, id uint64, from, to models.Status, performedBy, details string) Entry {
	return Entry{
		EntityType:  entityType,
		EntityID:    id,
		Action:      models.AuditActionStatusChange,
		OldStatus:   &from,
		NewStatus:   &to,
		Details:     details,
		PerformedBy: performedBy,
	}
}

// Created builds the entry for a new entity. status is nil for entities without a lifecycle.
func Created(entityType models.EntityType, id uint64, status *models.Status, performedBy, details string) Entry {
	return Entry{
		EntityType:  entityType,
		EntityID:    id,
		Action:      models.AuditActionCreate,
		NewStatus:   status,
		Details:     details,
		PerformedBy: performedBy,
	}
}

func Updated(entityType models.EntityType, id uint64, performedBy, details string) Entry {
	return Entry{
		EntityType:  entityType,
		EntityID:    id,
		Action:      models.AuditActionUpdate,
		Details:     details,
		PerformedBy: performedBy,
	}
}

func Deleted(entityType models.EntityType, id uint64, status *models.Status, performedBy, details string) Entry {
	return Entry{
		EntityType:  entityType,
		EntityID:    id,
		Action:      models.AuditActionDelete,
		OldStatus:   status,
		Details:     details,
		PerformedBy: performedBy,
	}
}
