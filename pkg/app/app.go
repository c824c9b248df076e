// Package app は設定・ストア・ハンドラを組み立てて gin.Engine を構築します。
package app

import (
	"context"
	"errors"
	"fmt"
	"log"

	config "silverbot-chat-api/configs"
	"silverbot-chat-api/pkg/handlers"
	"silverbot-chat-api/pkg/services"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

const sessionKeyPrefix = "silverbot:session:"

// App は組み立て済みのアプリケーション
type App struct {
	Router     *gin.Engine
	DB         *gorm.DB
	Chat       *services.ChatService
	Monitoring *services.MonitoringService
	closers    []func() error
}

// New はすべてのサービスを初期化してルーターを構築します。
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	intents, err := config.LoadIntentConfig(cfg.IntentsPath)
	if err != nil {
		return nil, err
	}
	log.Printf("🟢 [app] intent table loaded from %s (%d intents)", cfg.IntentsPath, len(intents.Intents()))

	db, err := services.OpenDatabase(cfg.DatabasePath, cfg.Environment == "development")
	if err != nil {
		return nil, err
	}
	a := &App{DB: db}
	if sqlDB, err := db.DB(); err == nil {
		a.closers = append(a.closers, sqlDB.Close)
	}

	sessions, err := a.sessionStore(ctx, cfg)
	if err != nil {
		a.Close()
		return nil, err
	}

	catalog := services.NewCatalogStore(db)
	leads := services.NewLeadStore(db)
	a.Monitoring = services.NewMonitoringService()

	a.Chat = services.NewChatService(services.ChatDependencies{
		Classifier:    services.NewIntentClassifier(intents),
		Queries:       services.NewQueryBuilder(intents),
		Catalog:       catalog,
		Leads:         leads,
		Sessions:      sessions,
		Notifier:      leadNotifier(cfg),
		Recorder:      a.Monitoring,
		InquiryFlow:   cfg.InquiryFlow,
		ProductCutoff: intents.ProductCutoff(),
	})

	if cfg.APIKey == "" {
		log.Printf("⚠️ [app] API_KEY not set, admin and monitoring APIs are disabled")
	}

	a.Router = handlers.NewRouter(handlers.RouterDependencies{
		APIKey:     cfg.APIKey,
		Chat:       handlers.NewChatHandler(a.Chat, cfg.SessionTTL, cfg.Environment == "production"),
		Admin:      handlers.NewAdminHandler(cfg, catalog, leads, services.NewCatalogImporter(catalog)),
		Monitoring: a.Monitoring,
	})
	return a, nil
}

func (a *App) sessionStore(ctx context.Context, cfg *config.Config) (services.SessionStore, error) {
	if cfg.RedisURL == "" {
		log.Printf("⚠️ [app] REDIS_URL not set, sessions are kept in memory")
		return services.NewMemorySessionStore(cfg.SessionTTL), nil
	}
	client, err := services.NewRedisClient(ctx, cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect session store: %w", err)
	}
	store := services.NewRedisSessionStore(client, sessionKeyPrefix, cfg.SessionTTL)
	a.closers = append(a.closers, store.Close)
	log.Printf("🟢 [app] Redis session store connected")
	return store, nil
}

func leadNotifier(cfg *config.Config) services.LeadNotifier {
	if cfg.ResendAPIKey == "" {
		return services.NoopLeadNotifier{}
	}
	notifier, err := services.NewResendLeadNotifier(cfg.ResendAPIKey, cfg.LeadNotifyFrom, cfg.LeadNotifyTo)
	if err != nil {
		log.Printf("⚠️ [app] lead e-mail disabled: %v", err)
		return services.NoopLeadNotifier{}
	}
	return notifier
}

// Close はデータベースと Redis の接続を閉じます。
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
