package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"conduit/domain"
)

// DB provides the database connection.
type DB struct {
	Gorm *gorm.DB
	// DatabaseURL is a postgres connection string. Empty means sqlite.
	DatabaseURL string
}

// NewDB returns a new instance of DB.
func NewDB(databaseURL string) *DB {
	return &DB{DatabaseURL: databaseURL}
}

// Open opens the database connection. A postgres connection string
// selects postgres, otherwise an embedded sqlite file under ./data is
// used. Query logging is verbose in development and silent in
// production. TranslateError lets the services detect duplicate key
// violations as gorm.ErrDuplicatedKey on both drivers.
func Open(db *DB, isProd bool) (err error) {
	conf := &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	}
	if !isProd {
		conf.Logger = logger.Default.LogMode(logger.Info)
	}
	if db.DatabaseURL != "" {
		db.Gorm, err = gorm.Open(postgres.Open(db.DatabaseURL), conf)
		if err != nil {
			return fmt.Errorf("err opening gorm postgres connection: %w", err)
		}
		return nil
	}
	if err := os.MkdirAll("data", 0o755); err != nil {
		return fmt.Errorf("err creating data directory: %w", err)
	}
	db.Gorm, err = gorm.Open(sqlite.Open(filepath.Join("data", "conduit.db")), conf)
	if err != nil {
		return fmt.Errorf("err opening gorm sqlite connection: %w", err)
	}
	return nil
}

// AutoMigrate runs database migrations for all tables.
func AutoMigrate(db *DB) error {
	return db.Gorm.AutoMigrate(
		domain.User{},
		domain.Article{},
		domain.Comment{},
		domain.Favorite{},
		domain.Follow{},
	)
}

// Close closes the database connection.
func Close(db *DB) error {
	sqlDb, _ := db.Gorm.DB()
	return sqlDb.Close()
}
