package database

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/anand-fs/plantrack/internal/config"
	"github.com/anand-fs/plantrack/internal/logging"
	"github.com/anand-fs/plantrack/internal/models"
)

// Models lists every table owned by the service, in creation order.
var Models = []interface{}{
	&models.User{},
	&models.Plan{},
	&models.Milestone{},
	&models.Initiative{},
	&models.InitiativeAssignment{},
	&models.Comment{},
	&models.AuditLog{},
}

// Dialector picks the gorm driver for the configured database.
func Dialector(opts config.DatabaseOptions) (gorm.Dialector, error) {
	switch opts.Driver {
	case "mysql":
		return mysql.Open(opts.DSN()), nil
	case "postgres":
		return postgres.Open(opts.DSN()), nil
	case "sqlite":
		return sqlite.Open(opts.DSN()), nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", opts.Driver)
	}
}

// Connect opens the database described by cfg.
func Connect(cfg *config.Config) (*gorm.DB, error) {
	dialector, err := Dialector(cfg.Database)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logging.GormLevel(cfg.Log.Level)),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	logging.Logger().WithFields(logrus.Fields{
		"driver": cfg.Database.Driver,
		"host":   cfg.Database.Host,
		"name":   cfg.Database.Name,
	}).Info("Database connection established")
	return db, nil
}

// Migrate creates or updates the schema and secondary indexes.
func Migrate(db *gorm.DB) error {
	log := logging.Logger()
	log.Info("Running database migrations...")
	if err := db.AutoMigrate(Models...); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	if err := AddIndexes(db); err != nil {
		return fmt.Errorf("failed to add indexes: %w", err)
	}
	log.Info("Database migrations completed")
	return nil
}
