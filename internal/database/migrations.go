package database

import (
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/anand-fs/plantrack/internal/logging"
	"github.com/anand-fs/plantrack/internal/models"
)

type indexSpec struct {
	model   interface{}
	table   string
	name    string
	columns []string
}

var indexes = []indexSpec{
	// Cascade traversal order
	{&models.Milestone{}, "milestones", "idx_milestones_plan_sequence", []string{"plan_id", "sequence", "id"}},
	{&models.Initiative{}, "initiatives", "idx_initiatives_milestone_status", []string{"milestone_id", "status"}},

	// Assignment lookups by user
	{&models.InitiativeAssignment{}, "initiative_assignments", "idx_initiative_assignments_user_id", []string{"user_id"}},

	// Comment threads
	{&models.Comment{}, "comments", "idx_comments_initiative_created", []string{"initiative_id", "created_at"}},

	// Audit filters
	{&models.AuditLog{}, "audit_logs", "idx_audit_logs_action_timestamp", []string{"action", "timestamp"}},
}

// AddIndexes adds the composite indexes gorm tags do not declare.
func AddIndexes(db *gorm.DB) error {
	log := logging.Logger()
	migrator := db.Migrator()

	for _, idx := range indexes {
		if migrator.HasIndex(idx.model, idx.name) {
			log.Debugf("Index %s already exists, skipping", idx.name)
			continue
		}

		sql := fmt.Sprintf("CREATE INDEX %s ON %s (%s)", idx.name, idx.table, strings.Join(idx.columns, ", "))
		if err := db.Exec(sql).Error; err != nil {
			return fmt.Errorf("failed to create index %s: %w", idx.name, err)
		}

		log.Infof("Created index %s on %s(%s)", idx.name, idx.table, strings.Join(idx.columns, ", "))
	}

	return nil
}
