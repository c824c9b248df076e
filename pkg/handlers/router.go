package handlers

import (
	"log"
	"net/http"

	"silverbot-chat-api/pkg/services"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// RouterDependencies はルーター構築に必要なハンドラ群
type RouterDependencies struct {
	APIKey     string
	Chat       *ChatHandler
	Admin      *AdminHandler
	Monitoring *services.MonitoringService
}

// APIKeyMiddleware は X-API-KEY ヘッダーを検証します。
// キーが未設定のときは管理APIを無効にし、すべて 403 を返します。
func APIKeyMiddleware(apiKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if apiKey == "" {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"success": false, "error": "Admin API is disabled: API_KEY is not set"})
			return
		}
		if c.GetHeader("X-API-KEY") != apiKey {
			log.Printf("❌ [認証] invalid API key from %s", c.ClientIP())
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "error": "Unauthorized"})
			return
		}
		c.Next()
	}
}

// NewRouter は全エンドポイントを登録した gin.Engine を返します。
func NewRouter(deps RouterDependencies) *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())
	r.Use(deps.Monitoring.LoggingMiddleware())

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowAllOrigins = true
	corsConfig.AllowCredentials = false
	corsConfig.AddAllowHeaders("X-API-KEY")
	r.Use(cors.New(corsConfig))

	// ヘルスチェックエンドポイント
	r.GET("/health", HealthCheck)

	// チャット（Web / WhatsApp）
	r.GET("/", deps.Chat.Home)
	r.GET("/get-response/", deps.Chat.GetResponse)
	r.POST("/whatsapp-webhook/", deps.Chat.WhatsAppWebhook)
	r.GET("/whatsapp-webhook/", deps.Chat.WhatsAppStatus)

	monitoringHandler := NewMonitoringHandler(deps.Monitoring)

	v1 := r.Group("/api/v1")
	v1.Use(APIKeyMiddleware(deps.APIKey))
	{
		// 管理者向けAPI
		admin := v1.Group("/admin")
		{
			admin.GET("/health-status", deps.Admin.GetHealthStatus)
			admin.POST("/maintenance/start", deps.Admin.StartMaintenance)
			admin.POST("/maintenance/stop", deps.Admin.StopMaintenance)

			admin.GET("/products", deps.Admin.ListProducts)
			admin.POST("/products", deps.Admin.CreateProduct)
			admin.POST("/products/import", deps.Admin.ImportProducts)
			admin.GET("/products/:id", deps.Admin.GetProduct)
			admin.PUT("/products/:id", deps.Admin.UpdateProduct)

			admin.GET("/quotation-requests", deps.Admin.ListQuotationRequests)
			admin.GET("/leads", deps.Admin.ListLeads)
		}

		// モニタリングAPI
		monitoring := v1.Group("/monitoring")
		{
			monitoring.GET("/logs", monitoringHandler.GetLogs)
		}
	}

	return r
}
