package services

import (
	"context"
	"testing"

	config "silverbot-chat-api/configs"
	"silverbot-chat-api/pkg/models"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const testIntentsPath = "../../configs/intents.yaml"

// newTestDB はテスト用のインメモリSQLiteを返す
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, Migrate(db))
	return db
}

func loadTestIntents(t *testing.T) *config.IntentConfig {
	t.Helper()
	cfg, err := config.LoadIntentConfig(testIntentsPath)
	require.NoError(t, err)
	return cfg
}

func price(v float64) *float64 { return &v }

func strPtr(s string) *string { return &s }

// seedProducts は商品を順番に登録する
func seedProducts(t *testing.T, store *CatalogStore, products ...*models.Product) {
	t.Helper()
	for _, p := range products {
		require.NoError(t, store.Create(context.Background(), p))
	}
}
