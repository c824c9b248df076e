package models

import (
	"time"
)

// DefaultCategory is assigned to products created without a category.
const DefaultCategory = "Uncategorized"

// Product represents a catalog item. Price is nil until the admin configures it.
type Product struct {
	ID          string    `gorm:"primarykey;size:36" json:"id"`
	Name        string    `gorm:"size:100;not null;index" json:"name"`
	Price       *float64  `json:"price"`
	Category    string    `gorm:"size:100;not null;default:Uncategorized;index" json:"category"`
	Description *string   `json:"description,omitempty"`
	Image       *string   `gorm:"size:255" json:"image,omitempty"`
	BestSeller  bool      `gorm:"not null;default:false" json:"best_seller"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TableName returns the table name for Product model.
func (Product) TableName() string {
	return "products"
}

// HasPrice reports whether a price has been configured.
func (p *Product) HasPrice() bool {
	return p.Price != nil
}

// ImageURL returns the image reference or an empty string.
func (p *Product) ImageURL() string {
	if p.Image == nil {
		return ""
	}
	return *p.Image
}

// QuotationRequest is created once per completed capture flow. Never updated.
type QuotationRequest struct {
	ID           string    `gorm:"primarykey;size:36" json:"id"`
	CustomerName string    `gorm:"size:100;not null" json:"customer_name"`
	Contact      string    `gorm:"size:50;not null" json:"contact"`
	ProductID    *string   `gorm:"size:36;index" json:"product_id,omitempty"`
	Product      *Product  `gorm:"foreignKey:ProductID;constraint:OnDelete:SET NULL" json:"product,omitempty"`
	Quantity     int       `gorm:"not null;check:quantity > 0" json:"quantity"`
	Message      *string   `json:"message,omitempty"`
	CreatedAt    time.Time `gorm:"index" json:"created_at"`
}

// TableName returns the table name for QuotationRequest model.
func (QuotationRequest) TableName() string {
	return "quotation_requests"
}

// Lead is an interested visitor captured by the inquiry flow.
type Lead struct {
	ID        string    `gorm:"primarykey;size:36" json:"id"`
	Name      string    `gorm:"size:100;not null" json:"name"`
	Email     *string   `gorm:"size:254" json:"email,omitempty"`
	Phone     *string   `gorm:"size:15" json:"phone,omitempty"`
	Message   *string   `json:"message,omitempty"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
}

// TableName returns the table name for Lead model.
func (Lead) TableName() string {
	return "leads"
}

// ChatReply is the payload returned to both transports.
type ChatReply struct {
	Reply string `json:"reply"`
	Img   string `json:"img,omitempty"`
}

// ProductInput is the admin create/update request body.
type ProductInput struct {
	Name        string   `json:"name" binding:"required"`
	Price       *float64 `json:"price" binding:"omitempty,gte=0"`
	Category    string   `json:"category"`
	Description *string  `json:"description"`
	Image       *string  `json:"image"`
	BestSeller  bool     `json:"best_seller"`
}

// ImportResult summarises a catalog import.
type ImportResult struct {
	Imported int      `json:"imported"`
	Skipped  int      `json:"skipped"`
	Errors   []string `json:"errors,omitempty"`
}
