package services

import (
	"context"
	"fmt"

	"silverbot-chat-api/pkg/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// LeadStore は見積もり依頼とリードを追記します。更新はしません。
type LeadStore struct {
	db *gorm.DB
}

// NewLeadStore は新しいLeadStoreを生成します。
func NewLeadStore(db *gorm.DB) *LeadStore {
	return &LeadStore{db: db}
}

// CreateQuotationRequest は見積もり依頼を保存します。
func (s *LeadStore) CreateQuotationRequest(ctx context.Context, qr *models.QuotationRequest) error {
	return createQuotation(s.db.WithContext(ctx), qr)
}

// CreateLeadWithQuotation はリードと見積もり依頼を1トランザクションで保存します。
func (s *LeadStore) CreateLeadWithQuotation(ctx context.Context, lead *models.Lead, qr *models.QuotationRequest) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if lead.ID == "" {
			lead.ID = uuid.New().String()
		}
		if err := tx.Create(lead).Error; err != nil {
			return fmt.Errorf("failed to create lead: %w", err)
		}
		return createQuotation(tx, qr)
	})
}

func createQuotation(db *gorm.DB, qr *models.QuotationRequest) error {
	if qr.Quantity <= 0 {
		return fmt.Errorf("failed to create quotation request: quantity must be positive, got %d", qr.Quantity)
	}
	if qr.ID == "" {
		qr.ID = uuid.New().String()
	}
	// Product は読み取り専用。関連の自動作成はしない
	if err := db.Omit("Product").Create(qr).Error; err != nil {
		return fmt.Errorf("failed to create quotation request: %w", err)
	}
	return nil
}

// ListQuotationRequests は見積もり依頼を商品付きで新しい順に返します。
func (s *LeadStore) ListQuotationRequests(ctx context.Context, limit, offset int) ([]*models.QuotationRequest, error) {
	var rows []*models.QuotationRequest
	err := s.db.WithContext(ctx).
		Preload("Product").
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list quotation requests: %w", err)
	}
	return rows, nil
}

// ListLeads はリードを新しい順に返します。
func (s *LeadStore) ListLeads(ctx context.Context, limit, offset int) ([]*models.Lead, error) {
	var rows []*models.Lead
	err := s.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list leads: %w", err)
	}
	return rows, nil
}

// CountQuotationRequests は見積もり依頼の総数を返します。
func (s *LeadStore) CountQuotationRequests(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.WithContext(ctx).Model(&models.QuotationRequest{}).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("failed to count quotation requests: %w", err)
	}
	return n, nil
}

// CountLeads はリードの総数を返します。
func (s *LeadStore) CountLeads(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.WithContext(ctx).Model(&models.Lead{}).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("failed to count leads: %w", err)
	}
	return n, nil
}
