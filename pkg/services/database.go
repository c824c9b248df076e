package services

import (
	"fmt"
	"log"
	"os"
	"time"

	"silverbot-chat-api/pkg/models"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// OpenDatabase は商品・リード用の SQLite データベースを開き、スキーマを移行します。
// ":memory:" を指定するとインメモリのデータベースになります。
func OpenDatabase(path string, verbose bool) (*gorm.DB, error) {
	level := logger.Warn
	if verbose {
		level = logger.Info
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.New(log.New(os.Stdout, "\r\n", log.LstdFlags), logger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  level,
			IgnoreRecordNotFoundError: true,
		}),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database %s: %w", path, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database handle: %w", err)
	}
	// SQLite の書き込みは1接続のみ。インメモリDBも1接続に閉じる
	sqlDB.SetMaxOpenConns(1)

	if err := Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

// Migrate はテーブルを作成・更新します。
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&models.Product{}, &models.QuotationRequest{}, &models.Lead{}); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return nil
}
