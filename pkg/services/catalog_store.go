package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"silverbot-chat-api/pkg/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ErrNotFound は該当する行が存在しないときに返されます。
var ErrNotFound = errors.New("product not found")

// pricedLast は価格順に並べ、価格未設定の商品を最後にする
const pricedLast = "price IS NULL, price ASC"

// CatalogStore は商品テーブルへのアクセスを提供します。
// チャットからは読み取りのみで、書き込みは管理APIだけが行います。
type CatalogStore struct {
	db *gorm.DB
}

// NewCatalogStore は新しいCatalogStoreを生成します。
func NewCatalogStore(db *gorm.DB) *CatalogStore {
	return &CatalogStore{db: db}
}

func (s *CatalogStore) query(ctx context.Context, scopes ...ProductScope) *gorm.DB {
	q := s.db.WithContext(ctx).Model(&models.Product{})
	for _, scope := range scopes {
		if scope != nil {
			q = q.Scopes(scope)
		}
	}
	return q
}

// WithinBudget は maxPrice 以下の価格設定済み商品を最大 limit 件返します。
func (s *CatalogStore) WithinBudget(ctx context.Context, maxPrice float64, limit int, scope ProductScope) ([]*models.Product, error) {
	var products []*models.Product
	err := s.query(ctx, scope).
		Where("price IS NOT NULL AND price <= ?", maxPrice).
		Limit(limit).
		Find(&products).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find products within budget: %w", err)
	}
	return products, nil
}

// First は scope に一致する最初の商品を返します。
func (s *CatalogStore) First(ctx context.Context, scope ProductScope) (*models.Product, error) {
	var product models.Product
	if err := s.query(ctx, scope).Order("created_at ASC").First(&product).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to find product: %w", err)
	}
	return &product, nil
}

// ListByPrice は scope に一致する商品を安い順に最大 limit 件返します。
func (s *CatalogStore) ListByPrice(ctx context.Context, scope ProductScope, limit int) ([]*models.Product, error) {
	var products []*models.Product
	if err := s.query(ctx, scope).Order(pricedLast).Limit(limit).Find(&products).Error; err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	return products, nil
}

// CheapestPriced は価格設定済みの商品を安い順に最大 limit 件返します。
func (s *CatalogStore) CheapestPriced(ctx context.Context, limit int) ([]*models.Product, error) {
	var products []*models.Product
	err := s.query(ctx).
		Where("price IS NOT NULL").
		Order("price ASC").
		Limit(limit).
		Find(&products).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list priced products: %w", err)
	}
	return products, nil
}

// requestCount は見積もり依頼の集計結果の1行
type requestCount struct {
	ProductID    string
	RequestCount int64
}

// TopRequested は見積もり依頼の件数が多い順に商品を返します。
// 依頼が1件もない商品は含みません。
func (s *CatalogStore) TopRequested(ctx context.Context, limit int) ([]*models.Product, error) {
	var counts []requestCount
	err := s.db.WithContext(ctx).
		Model(&models.QuotationRequest{}).
		Select("product_id, COUNT(*) AS request_count").
		Where("product_id IS NOT NULL").
		Group("product_id").
		Order("request_count DESC").
		Limit(limit).
		Scan(&counts).Error
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate quotation requests: %w", err)
	}
	if len(counts) == 0 {
		return nil, nil
	}

	ids := make([]string, len(counts))
	for i, c := range counts {
		ids[i] = c.ProductID
	}
	var products []*models.Product
	if err := s.query(ctx).Where("id IN ?", ids).Find(&products).Error; err != nil {
		return nil, fmt.Errorf("failed to load best sellers: %w", err)
	}

	byID := make(map[string]*models.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}
	ordered := make([]*models.Product, 0, len(ids))
	for _, id := range ids {
		if p, ok := byID[id]; ok {
			ordered = append(ordered, p)
		}
	}
	return ordered, nil
}

// Names はすべての商品名を返します。
func (s *CatalogStore) Names(ctx context.Context) ([]string, error) {
	var names []string
	if err := s.query(ctx).Order("created_at ASC").Pluck("name", &names).Error; err != nil {
		return nil, fmt.Errorf("failed to list product names: %w", err)
	}
	return names, nil
}

// FindByName は名前が完全一致する商品を返す（大文字小文字は区別しない）。
// SQLite の LOWER は ASCII しか畳み込まないため、文字数で絞ってから Go 側で比較する。
func (s *CatalogStore) FindByName(ctx context.Context, name string) (*models.Product, error) {
	name = strings.TrimSpace(name)
	var candidates []*models.Product
	err := s.query(ctx).
		Where("LENGTH(name) = ?", utf8.RuneCountInString(name)).
		Order("created_at ASC").
		Find(&candidates).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find product by name: %w", err)
	}
	for _, p := range candidates {
		if strings.EqualFold(p.Name, name) {
			return p, nil
		}
	}
	return nil, ErrNotFound
}

// FindByID はIDで商品を取得します。
func (s *CatalogStore) FindByID(ctx context.Context, id string) (*models.Product, error) {
	return s.First(ctx, func(db *gorm.DB) *gorm.DB {
		return db.Where("id = ?", id)
	})
}

// List は登録順に商品を返します。search を指定すると絞り込みます。
func (s *CatalogStore) List(ctx context.Context, search string, limit, offset int) ([]*models.Product, int64, error) {
	q := s.query(ctx)
	if search = strings.TrimSpace(search); search != "" {
		p := containsPattern(search)
		q = q.Where(`LOWER(name) LIKE ? ESCAPE '\' OR LOWER(category) LIKE ? ESCAPE '\' OR LOWER(description) LIKE ? ESCAPE '\'`, p, p, p)
	}
	// Count と Find でステートメントを分ける
	q = q.Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count products: %w", err)
	}

	var products []*models.Product
	if err := q.Order("created_at ASC").Limit(limit).Offset(offset).Find(&products).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list products: %w", err)
	}
	return products, total, nil
}

// Create はIDと既定カテゴリを割り当てて商品を登録します。
func (s *CatalogStore) Create(ctx context.Context, product *models.Product) error {
	if err := validateProduct(product); err != nil {
		return err
	}
	if product.ID == "" {
		product.ID = uuid.New().String()
	}
	if err := s.db.WithContext(ctx).Create(product).Error; err != nil {
		return fmt.Errorf("failed to create product: %w", err)
	}
	return nil
}

// Update は既存商品の編集可能な項目を上書きします。
func (s *CatalogStore) Update(ctx context.Context, product *models.Product) error {
	if err := validateProduct(product); err != nil {
		return err
	}
	result := s.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ?", product.ID).
		Select("name", "price", "category", "description", "image", "best_seller", "updated_at").
		Updates(product)
	if err := result.Error; err != nil {
		return fmt.Errorf("failed to update product: %w", err)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ErrInvalidProduct は商品の内容が不正なときに返されます。
var ErrInvalidProduct = errors.New("invalid product")

func validateProduct(p *models.Product) error {
	p.Name = strings.TrimSpace(p.Name)
	if p.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidProduct)
	}
	if p.Price != nil && *p.Price < 0 {
		return fmt.Errorf("%w: price must not be negative", ErrInvalidProduct)
	}
	if p.Category = strings.TrimSpace(p.Category); p.Category == "" {
		p.Category = models.DefaultCategory
	}
	return nil
}
