package database

import (
	"fmt"
	"log"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"guildhall-backend/shared/config"
	"guildhall-backend/shared/database/models"
	"guildhall-backend/shared/storage"
)

var DB *gorm.DB

// getLogLevel returns appropriate log level based on environment
func getLogLevel(cfg *config.Config) logger.LogLevel {
	if cfg.DBHost == "localhost" || cfg.DBHost == "127.0.0.1" {
		return logger.Warn
	}
	return logger.Error
}

// InitDatabase initializes the database connection and runs migrations
func InitDatabase() error {
	cfg := config.GetConfig()

	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=UTC",
		cfg.DBHost,
		cfg.DBUser,
		cfg.DBPassword,
		cfg.DBName,
		cfg.DBPort,
		cfg.DBSSLMode,
	)

	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(getLogLevel(cfg)),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	}

	var err error
	DB, err = gorm.Open(postgres.Open(dsn), gormConfig)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	// Configure connection pool
	sqlDB, err := DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}

	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	// Test connection
	if err := sqlDB.Ping(); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	log.Println("✅ Database connection established successfully")

	// Run migrations
	if err := runMigrations(); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	return nil
}

// runMigrations runs all database migrations
func runMigrations() error {
	log.Println("🔄 Checking database schema...")

	modelsToMigrate := []interface{}{
		&models.StorageRegion{},
	}

	migrator := DB.Migrator()
	allTablesExist := true

	for _, model := range modelsToMigrate {
		if !migrator.HasTable(model) {
			allTablesExist = false
			break
		}
	}

	if allTablesExist {
		log.Println("✅ Database schema is up to date - skipping migration")
		return nil
	}

	for _, model := range modelsToMigrate {
		if err := DB.AutoMigrate(model); err != nil {
			return fmt.Errorf("failed to migrate %T: %w", model, err)
		}
	}

	log.Println("✅ Database migrations completed")
	return nil
}

// SaveSnapshot persists every registered storage region, one row per
// region, upserted on the derived key.
func SaveSnapshot(store *storage.Store) error {
	snapshots, err := store.Snapshot()
	if err != nil {
		return err
	}

	for _, snapshot := range snapshots {
		row := models.StorageRegion{
			RegionKey: snapshot.Key,
			Name:      snapshot.Name,
			Payload:   snapshot.Payload,
		}
		err := DB.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "region_key"}},
			DoUpdates: clause.AssignmentColumns([]string{"name", "payload", "updated_at"}),
		}).Create(&row).Error
		if err != nil {
			return fmt.Errorf("failed to persist region %s: %w", snapshot.Name, err)
		}
	}

	log.Printf("✅ Storage snapshot saved (%d regions)", len(snapshots))
	return nil
}

// LoadSnapshot restores persisted regions into the store. Regions that
// are not registered in this build are left untouched in the database.
func LoadSnapshot(store *storage.Store) error {
	var rows []models.StorageRegion
	if err := DB.Find(&rows).Error; err != nil {
		return fmt.Errorf("failed to load storage regions: %w", err)
	}

	snapshots := make([]storage.RegionSnapshot, 0, len(rows))
	for _, row := range rows {
		snapshots = append(snapshots, storage.RegionSnapshot{
			Key:     row.RegionKey,
			Name:    row.Name,
			Payload: row.Payload,
		})
	}

	if err := store.Restore(snapshots); err != nil {
		return err
	}

	log.Printf("✅ Storage snapshot loaded (%d regions)", len(snapshots))
	return nil
}

// GetDB returns the database instance
func GetDB() *gorm.DB {
	return DB
}

// CloseDatabase closes the database connection
func CloseDatabase() error {
	if DB != nil {
		sqlDB, err := DB.DB()
		if err != nil {
			return err
		}
		return sqlDB.Close()
	}
	return nil
}
