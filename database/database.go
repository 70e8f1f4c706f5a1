package database

import (
	"academy/config"
	"academy/models"
	courseModels "academy/models/course"
	"fmt"
	"log"

	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// DbInstance holds the database connection handed to services and controllers
type DbInstance struct {
	Db *gorm.DB
}

// Dialector picks the GORM driver for the configured database
func Dialector(cfg *config.Config) (gorm.Dialector, error) {
	switch cfg.DBDriver {
	case "", "postgres":
		dsn := fmt.Sprintf(
			"host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
			cfg.DBHost, cfg.DBUser, cfg.DBPassword, cfg.DBName, cfg.DBPort,
		)
		return postgres.Open(dsn), nil
	case "mysql":
		dsn := fmt.Sprintf(
			"%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local",
			cfg.DBUser, cfg.DBPassword, cfg.DBHost, cfg.DBPort, cfg.DBName,
		)
		return mysql.Open(dsn), nil
	case "sqlite":
		return sqlite.Open(cfg.DBPath + "?_foreign_keys=1"), nil
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", cfg.DBDriver)
	}
}

// ConnectDb opens the configured database, sets up pooling and runs migrations
func ConnectDb(cfg *config.Config) (DbInstance, error) {
	dialector, err := Dialector(cfg)
	if err != nil {
		return DbInstance{}, err
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return DbInstance{}, fmt.Errorf("connect to %s: %w", cfg.DBDriver, err)
	}

	// Set up connection pooling
	sqlDB, err := db.DB()
	if err != nil {
		return DbInstance{}, fmt.Errorf("get database instance: %w", err)
	}
	sqlDB.SetMaxOpenConns(10) // Maximum open connections
	sqlDB.SetMaxIdleConns(5)  // Maximum idle connections
	sqlDB.SetConnMaxLifetime(0)

	if err := RunMigrations(db); err != nil {
		return DbInstance{}, err
	}

	return DbInstance{Db: db}, nil
}

// RunMigrations performs database migrations
func RunMigrations(db *gorm.DB) error {
	log.Println("Running Migrations...")

	err := db.AutoMigrate(
		&models.User{},
		&courseModels.Course{},
		&courseModels.Module{},
		&courseModels.Lesson{},
		&models.Payment{},
		&courseModels.Enrollment{},
		&courseModels.Progress{},
		&courseModels.Certificate{},
	)
	if err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	log.Println("Migrations completed successfully.")
	return nil
}
