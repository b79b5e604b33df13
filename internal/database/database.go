package database

import (
	"emperror.dev/errors"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/pterodactyl/hangar/internal/models"
	"github.com/pterodactyl/hangar/system"
)

var o system.AtomicBool
var db *gorm.DB

// Initialize configures the local SQLite database for hangar and ensures that the models have
// been fully migrated.
func Initialize(path string) error {
	if !o.SwapIf(true) {
		panic("database: attempt to initialize more than once during application lifecycle")
	}
	instance, err := Open(path)
	if err != nil {
		return err
	}
	db = instance
	return nil
}

// Open opens the SQLite database at the given path and migrates it. Most callers want
// Initialize and Instance, this exists for tools and tests that need their own handle.
func Open(path string) (*gorm.DB, error) {
	instance, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, errors.Wrap(err, "database: could not open database file")
	}
	if err := instance.AutoMigrate(&models.Activity{}); err != nil {
		return nil, errors.WithStack(err)
	}
	return instance, nil
}

// Instance returns the gorm database instance that was configured when the application was
// booted.
func Instance() *gorm.DB {
	if db == nil {
		panic("database: attempt to access instance before initialized")
	}
	return db
}
