package db

import (
	"fmt"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// DSN examples:
//
//	sqlite:civichub.db
//	file:civichub.db?_pragma=busy_timeout(5000)
//	app:apppass@tcp(127.0.0.1:3306)/civichub?charset=utf8mb4&parseTime=true&loc=Local
func dialector(dsn string) (gorm.Dialector, bool) {
	switch {
	case strings.HasPrefix(dsn, "sqlite:"):
		return sqlite.Open(strings.TrimPrefix(dsn, "sqlite:")), true
	case strings.HasPrefix(dsn, "file:"):
		return sqlite.Open(dsn), true
	default:
		return mysql.Open(dsn), false
	}
}

// gormWriter sends gorm's own log lines to zap.
type gormWriter struct {
	s *zap.SugaredLogger
}

func (w gormWriter) Printf(format string, args ...any) {
	w.s.Infof(format, args...)
}

func newGormLogger(log *zap.Logger) logger.Interface {
	return logger.New(
		gormWriter{s: log.Named("gorm").Sugar()},
		logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
			ParameterizedQueries:      true,
		},
	)
}

// Connect opens the database named by dsn. The sqlite driver is chosen for
// "sqlite:" and "file:" DSNs, MySQL otherwise.
func Connect(dsn string, log *zap.Logger) (*gorm.DB, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("db: empty DSN")
	}
	if log == nil {
		log = zap.NewNop()
	}

	d, isSQLite := dialector(dsn)
	gdb, err := gorm.Open(d, &gorm.Config{Logger: newGormLogger(log)})
	if err != nil {
		return nil, fmt.Errorf("db: open: %w", err)
	}

	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, err
	}
	if isSQLite {
		// one writer at a time
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetMaxOpenConns(100)
		sqlDB.SetConnMaxLifetime(time.Hour)
	}

	log.Info("database connected", zap.String("driver", d.Name()))
	return gdb, nil
}

// Migrate creates or updates the tables for models.
func Migrate(gdb *gorm.DB, models ...any) error {
	if err := gdb.AutoMigrate(models...); err != nil {
		return fmt.Errorf("db: migrate: %w", err)
	}
	return nil
}
