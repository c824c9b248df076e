package handler

import (
	"context"
	"log"
	"net/http"
	"sync"

	config "silverbot-chat-api/configs"
	"silverbot-chat-api/pkg/app"

	"github.com/gin-gonic/gin"
)

var (
	engine  *gin.Engine
	initErr error
	once    sync.Once
)

// setupApp はGinアプリケーションを初期化します。
// サーバーレス環境では、リクエストごとに初期化が走らないようsync.Onceで一度だけ実行します。
func setupApp() (*gin.Engine, error) {
	once.Do(func() {
		// 環境変数はデプロイ先の設定から読み込まれるため、godotenvは呼び出しません。
		cfg := config.LoadConfig()
		gin.SetMode(gin.ReleaseMode)

		application, err := app.New(context.Background(), cfg)
		if err != nil {
			initErr = err
			log.Printf("❌ [setupApp] initialization failed: %v", err)
			return
		}
		engine = application.Router
		log.Printf("🟢 [setupApp] SilverBot initialized (inquiry flow: %s)", cfg.InquiryFlow)
	})
	return engine, initErr
}

// Handler はサーバーレス環境からのすべてのリクエストを処理するエントリーポイントです。
func Handler(w http.ResponseWriter, r *http.Request) {
	router, err := setupApp()
	if err != nil {
		http.Error(w, "service unavailable", http.StatusServiceUnavailable)
		return
	}
	router.ServeHTTP(w, r)
}
