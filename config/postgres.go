package config

import (
	"errors"
	"os"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var PostgresDB *gorm.DB

// PostgresURI is the DSN shared by gorm and the migrator.
func PostgresURI() (string, error) {
	uri := os.Getenv("POSTGRES_URI")
	if uri == "" {
		return "", errors.New("POSTGRES_URI environment variable is not set")
	}
	return uri, nil
}

// InitPostgres opens POSTGRES_URI. TranslateError lets the repositories see
// gorm.ErrForeignKeyViolated and gorm.ErrDuplicatedKey instead of raw pg codes.
func InitPostgres() error {
	uri, err := PostgresURI()
	if err != nil {
		return err
	}
	db, err := gorm.Open(postgres.Open(uri), &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Warn),
		NowFunc:        func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return err
	}

	// Connection Pooling settings
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)
	sqlDB.SetConnMaxIdleTime(5 * time.Minute)

	PostgresDB = db
	return nil
}
