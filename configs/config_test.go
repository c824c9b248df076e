package config

import (
	"os"
	"testing"
	"time"
)

func TestLoadConfig(t *testing.T) {
	// テスト用の環境変数を設定
	testCases := map[string]string{
		"PORT":          "9090",
		"ENVIRONMENT":   "test",
		"DATABASE_PATH": "/tmp/silverbot-test.db",
		"REDIS_URL":     "redis://localhost:6379/1",
		"SESSION_TTL":   "2h",
		"INQUIRY_FLOW":  "short",
		"API_KEY":       "test-key",
	}

	for key, value := range testCases {
		os.Setenv(key, value)
	}

	// テスト後にクリーンアップ
	defer func() {
		for key := range testCases {
			os.Unsetenv(key)
		}
	}()

	cfg := LoadConfig()

	if cfg.Port != "9090" {
		t.Errorf("Expected Port to be '9090', got '%s'", cfg.Port)
	}

	if cfg.Environment != "test" {
		t.Errorf("Expected Environment to be 'test', got '%s'", cfg.Environment)
	}

	if cfg.DatabasePath != "/tmp/silverbot-test.db" {
		t.Errorf("Expected DatabasePath to be '/tmp/silverbot-test.db', got '%s'", cfg.DatabasePath)
	}

	if cfg.RedisURL != "redis://localhost:6379/1" {
		t.Errorf("Expected RedisURL to be 'redis://localhost:6379/1', got '%s'", cfg.RedisURL)
	}

	if cfg.SessionTTL != 2*time.Hour {
		t.Errorf("Expected SessionTTL to be 2h, got %v", cfg.SessionTTL)
	}

	if cfg.InquiryFlow != InquiryFlowShort {
		t.Errorf("Expected InquiryFlow to be 'short', got '%s'", cfg.InquiryFlow)
	}

	if cfg.APIKey != "test-key" {
		t.Errorf("Expected APIKey to be 'test-key', got '%s'", cfg.APIKey)
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	// 環境変数をクリア
	vars := []string{
		"PORT", "ENVIRONMENT", "DATABASE_PATH", "REDIS_URL",
		"SESSION_TTL", "INTENTS_PATH", "INQUIRY_FLOW", "API_KEY",
	}

	for _, v := range vars {
		os.Unsetenv(v)
	}

	cfg := LoadConfig()

	// デフォルト値の検証
	if cfg.Port != "8080" {
		t.Errorf("Expected default Port to be '8080', got '%s'", cfg.Port)
	}

	if cfg.Environment != "development" {
		t.Errorf("Expected default Environment to be 'development', got '%s'", cfg.Environment)
	}

	if cfg.InquiryFlow != InquiryFlowExtended {
		t.Errorf("Expected default InquiryFlow to be 'extended', got '%s'", cfg.InquiryFlow)
	}

	if cfg.SessionTTL != 14*24*time.Hour {
		t.Errorf("Expected default SessionTTL to be 336h, got %v", cfg.SessionTTL)
	}

	if cfg.IntentsPath != "configs/intents.yaml" {
		t.Errorf("Expected default IntentsPath to be 'configs/intents.yaml', got '%s'", cfg.IntentsPath)
	}
}

func TestLoadConfigUnknownInquiryFlow(t *testing.T) {
	os.Setenv("INQUIRY_FLOW", "something-else")
	os.Setenv("SESSION_TTL", "3600")
	defer os.Unsetenv("INQUIRY_FLOW")
	defer os.Unsetenv("SESSION_TTL")

	cfg := LoadConfig()

	if cfg.InquiryFlow != InquiryFlowExtended {
		t.Errorf("Expected unknown flow to fall back to 'extended', got '%s'", cfg.InquiryFlow)
	}
	if cfg.SessionTTL != time.Hour {
		t.Errorf("Expected SessionTTL in seconds to be parsed as 1h, got %v", cfg.SessionTTL)
	}
}
