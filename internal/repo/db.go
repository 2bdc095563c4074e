package repo

import (
	"fmt"
	"strings"

	"pokernight/internal/model"
	"pokernight/pkg/logger"

	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var DB *gorm.DB

// sqliteBusyTimeout is how long, in milliseconds, sqlite waits on a locked
// database before failing with SQLITE_BUSY.
const sqliteBusyTimeout = 5000

func sqliteDSN(dsn string) string {
	// matches both _busy_timeout and its _timeout alias
	if strings.Contains(dsn, "_timeout=") {
		return dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return fmt.Sprintf("%s%s_busy_timeout=%d", dsn, sep, sqliteBusyTimeout)
}

// Dialector picks the gorm driver from a DATABASE_URL style DSN.
func Dialector(dsn string) (gorm.Dialector, error) {
	dsn = strings.TrimSpace(dsn)
	switch {
	case dsn == "":
		return nil, fmt.Errorf("database dsn is empty")
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		return postgres.Open(dsn), nil
	case strings.HasPrefix(dsn, "mysql://"):
		return mysql.Open(strings.TrimPrefix(dsn, "mysql://")), nil
	case strings.HasPrefix(dsn, "sqlite:///"):
		return sqlite.Open(sqliteDSN(strings.TrimPrefix(dsn, "sqlite:///"))), nil
	case strings.HasPrefix(dsn, "sqlite://"):
		return sqlite.Open(sqliteDSN(strings.TrimPrefix(dsn, "sqlite://"))), nil
	default:
		return sqlite.Open(sqliteDSN(dsn)), nil
	}
}

func Open(dsn string) (*gorm.DB, error) {
	dialector, err := Dialector(dsn)
	if err != nil {
		return nil, err
	}
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, err
	}
	// sqlite has a single writer.
	if dialector.Name() == "sqlite" {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
	}
	return db, nil
}

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(model.All()...)
}

func InitDB(dsn string) error {
	db, err := Open(dsn)
	if err != nil {
		logger.Log.Error("Failed to connect to database", zap.Error(err))
		return err
	}
	if err := Migrate(db); err != nil {
		logger.Log.Error("Failed to migrate database", zap.Error(err))
		return err
	}
	DB = db
	logger.Log.Info("database ready", zap.String("dialect", db.Dialector.Name()))
	return nil
}
