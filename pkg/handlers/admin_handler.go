package handlers

import (
	"errors"
	"log"
	"net/http"
	"strconv"
	"sync/atomic"

	config "silverbot-chat-api/configs"
	"silverbot-chat-api/pkg/models"
	"silverbot-chat-api/pkg/services"

	"github.com/gin-gonic/gin"
)

// isMaintenanceMode はサーバーがメンテナンスモードかどうかを示します。
var isMaintenanceMode atomic.Bool

const (
	defaultPageSize = 50
	maxPageSize     = 200
)

// AdminHandler は管理者向け操作（商品・リード・メンテナンス）のハンドラです。
type AdminHandler struct {
	AdminUsername string
	AdminPassword string
	catalog       *services.CatalogStore
	leads         *services.LeadStore
	importer      *services.CatalogImporter
}

// NewAdminHandler は新しいAdminHandlerを生成します。
func NewAdminHandler(cfg *config.Config, catalog *services.CatalogStore, leads *services.LeadStore, importer *services.CatalogImporter) *AdminHandler {
	return &AdminHandler{
		AdminUsername: cfg.AdminUsername,
		AdminPassword: cfg.AdminPassword,
		catalog:       catalog,
		leads:         leads,
		importer:      importer,
	}
}

// AdminCredentials は管理者認証のためのリクエストボディです。
type AdminCredentials struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (h *AdminHandler) checkCredentials(c *gin.Context) bool {
	var input AdminCredentials
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Username and password are required"})
		return false
	}
	if h.AdminPassword == "" || input.Username != h.AdminUsername || input.Password != h.AdminPassword {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": "Invalid credentials"})
		return false
	}
	return true
}

// StartMaintenance はメンテナンスモードを開始します。
func (h *AdminHandler) StartMaintenance(c *gin.Context) {
	if !h.checkCredentials(c) {
		return
	}
	isMaintenanceMode.Store(true)
	log.Printf("🛠️ [admin] maintenance mode started")
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Maintenance mode started"})
}

// StopMaintenance はメンテナンスモードを停止します。
func (h *AdminHandler) StopMaintenance(c *gin.Context) {
	if !h.checkCredentials(c) {
		return
	}
	isMaintenanceMode.Store(false)
	log.Printf("🛠️ [admin] maintenance mode stopped")
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Maintenance mode stopped"})
}

// GetHealthStatus は現在のサーバーの状態と件数を返します。
func (h *AdminHandler) GetHealthStatus(c *gin.Context) {
	ctx := c.Request.Context()
	leads, err := h.leads.CountLeads(ctx)
	if err != nil {
		respondError(c, err)
		return
	}
	quotations, err := h.leads.CountQuotationRequests(ctx)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"isMaintenanceMode": isMaintenanceMode.Load(),
		"leads":             leads,
		"quotationRequests": quotations,
	})
}

// HealthCheck は外部のヘルスチェッカーからのリクエストに応答します。
func HealthCheck(c *gin.Context) {
	if isMaintenanceMode.Load() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "message": "Server is in maintenance mode"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func pagination(c *gin.Context) (limit, offset int) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultPageSize)))
	if err != nil || limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	offset, err = strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil || offset < 0 {
		offset = 0
	}
	return limit, offset
}

func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": err.Error()})
	case errors.Is(err, services.ErrInvalidProduct), errors.Is(err, services.ErrUnsupportedFormat), errors.Is(err, services.ErrImportFormat):
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
	default:
		log.Printf("❌ [admin] %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Internal server error"})
	}
}

// ListProducts は商品一覧を返します（?search= で絞り込み）。
func (h *AdminHandler) ListProducts(c *gin.Context) {
	limit, offset := pagination(c)
	products, total, err := h.catalog.List(c.Request.Context(), c.Query("search"), limit, offset)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "products": products, "total": total})
}

// GetProduct は商品を1件返します。
func (h *AdminHandler) GetProduct(c *gin.Context) {
	product, err := h.catalog.FindByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "product": product})
}

// CreateProduct は商品を登録します。
func (h *AdminHandler) CreateProduct(c *gin.Context) {
	var input models.ProductInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid request: " + err.Error()})
		return
	}
	product := productFromInput(&input)
	if err := h.catalog.Create(c.Request.Context(), product); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "product": product})
}

// UpdateProduct は商品を更新します。
func (h *AdminHandler) UpdateProduct(c *gin.Context) {
	var input models.ProductInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid request: " + err.Error()})
		return
	}
	product := productFromInput(&input)
	product.ID = c.Param("id")
	ctx := c.Request.Context()
	if err := h.catalog.Update(ctx, product); err != nil {
		respondError(c, err)
		return
	}
	updated, err := h.catalog.FindByID(ctx, product.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "product": updated})
}

func productFromInput(input *models.ProductInput) *models.Product {
	return &models.Product{
		Name:        input.Name,
		Price:       input.Price,
		Category:    input.Category,
		Description: input.Description,
		Image:       input.Image,
		BestSeller:  input.BestSeller,
	}
}

// ImportProducts は .xlsx / .csv から商品を一括登録します。
func (h *AdminHandler) ImportProducts(c *gin.Context) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "file is required"})
		return
	}
	defer file.Close()

	result, err := h.importer.Import(c.Request.Context(), header.Filename, file)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "result": result})
}

// ListQuotationRequests は見積もり依頼を新しい順に返します。
func (h *AdminHandler) ListQuotationRequests(c *gin.Context) {
	limit, offset := pagination(c)
	rows, err := h.leads.ListQuotationRequests(c.Request.Context(), limit, offset)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "quotation_requests": rows})
}

// ListLeads はリードを新しい順に返します。
func (h *AdminHandler) ListLeads(c *gin.Context) {
	limit, offset := pagination(c)
	rows, err := h.leads.ListLeads(c.Request.Context(), limit, offset)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "leads": rows})
}
