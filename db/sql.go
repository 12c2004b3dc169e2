// db/sql.go
package db

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	logger "github.com/dev-mohitbeniwal/modelgate/logging"
)

var SQLDB *gorm.DB

// InitSQL opens the relational store selected by driver ("sqlite" or "postgres").
func InitSQL(driver, dsn string) error {
	var err error
	SQLDB, err = OpenSQL(driver, dsn, gormlogger.Warn)
	if err != nil {
		return err
	}
	logger.Info("Successfully opened SQL store", zap.String("driver", driver))
	return nil
}

func OpenSQL(driver, dsn string, level gormlogger.LogLevel) (*gorm.DB, error) {
	cfg := &gorm.Config{
		Logger:         gormlogger.Default.LogMode(level),
		TranslateError: true,
		NowFunc:        func() time.Time { return time.Now().UTC() },
	}

	switch driver {
	case "sqlite":
		if dir := filepath.Dir(dsn); dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("create db directory: %w", err)
			}
		}
		gdb, err := gorm.Open(sqlite.Open(dsn), cfg)
		if err != nil {
			return nil, fmt.Errorf("open database: %w", err)
		}
		sqlDB, err := gdb.DB()
		if err != nil {
			return nil, fmt.Errorf("get sql.DB: %w", err)
		}
		// a single writer keeps admission and completion updates serialised
		sqlDB.SetMaxOpenConns(1)
		if _, err := sqlDB.Exec("PRAGMA journal_mode=WAL"); err != nil {
			return nil, fmt.Errorf("set WAL mode: %w", err)
		}
		return gdb, nil
	case "postgres":
		gdb, err := gorm.Open(postgres.Open(dsn), cfg)
		if err != nil {
			return nil, fmt.Errorf("open database: %w", err)
		}
		return gdb, nil
	default:
		return nil, fmt.Errorf("unsupported SQL driver %q", driver)
	}
}

func CloseSQL() {
	if SQLDB == nil {
		return
	}
	sqlDB, err := SQLDB.DB()
	if err != nil {
		logger.Error("Error getting SQL connection", zap.Error(err))
		return
	}
	if err := sqlDB.Close(); err != nil {
		logger.Error("Error closing SQL connection", zap.Error(err))
	}
}
