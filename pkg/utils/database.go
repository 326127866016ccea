package utils

import (
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	glog "gorm.io/gorm/logger"
)

// InitDatabase 根据驱动类型创建 *gorm.DB
// 支持 sqlite / mysql / postgres，driver 为空时默认 sqlite
func InitDatabase(logWriter io.Writer, driver, dsn string) (*gorm.DB, error) {
	if logWriter == nil {
		logWriter = io.Discard
	}

	gormLogger := glog.New(
		log.New(logWriter, "\r\n", log.LstdFlags),
		glog.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  glog.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	cfg := &gorm.Config{Logger: gormLogger}

	switch strings.ToLower(driver) {
	case "", "sqlite", "sqlite3":
		if dsn == "" {
			dsn = "file::memory:?cache=shared"
		}
		return gorm.Open(sqlite.Open(dsn), cfg)
	case "mysql":
		return gorm.Open(mysql.Open(dsn), cfg)
	case "postgres", "postgresql", "pgx":
		return gorm.Open(postgres.Open(dsn), cfg)
	default:
		return nil, fmt.Errorf("unsupported db driver: %s", driver)
	}
}

// MakeMigrates 执行实体迁移
func MakeMigrates(db *gorm.DB, entities []any) error {
	for _, entity := range entities {
		if err := db.AutoMigrate(entity); err != nil {
			return err
		}
	}
	return nil
}
