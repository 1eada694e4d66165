package model

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func init() {
	// prices go over the wire as JSON numbers
	decimal.MarshalJSONWithoutQuotes = true
}

type Product struct {
	ID          string    `gorm:"primaryKey;size:36;not null" json:"id"`
	Name        string    `gorm:"size:255;not null" json:"name"`
	Description string    `gorm:"type:text;not null" json:"description"`
	Owner       string    `gorm:"size:64;index;not null" json:"owner"` // user id of the lister
	Variants    []Variant `gorm:"foreignKey:ProductID" json:"variants"`
	Version     int       `gorm:"not null;default:1" json:"version"`
	CreatedAt   time.Time `gorm:"index" json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

type Variant struct {
	ID            string          `gorm:"primaryKey;size:36;not null" json:"id"`
	ProductID     string          `gorm:"size:36;index;not null" json:"productId"`
	Position      int             `gorm:"not null" json:"-"`
	Owner         string          `gorm:"size:64;index;not null" json:"owner"`
	Kind          VariantKind     `gorm:"size:16;not null" json:"type"`
	Label         string          `gorm:"-" json:"label"`
	Price         decimal.Decimal `gorm:"type:decimal(16,2);not null" json:"price"`
	Dimensions    Dimensions      `gorm:"embedded;embeddedPrefix:dim_" json:"dimensions"`
	ImageURL      string          `gorm:"size:1024;not null" json:"imageUrl"`
	PreviewURL    string          `gorm:"size:1024" json:"previewUrl"`
	DownloadURL   string          `gorm:"size:1024" json:"downloadUrl"`
	StorageFileID string          `gorm:"size:255;index" json:"fileId"`
	CreatedAt     time.Time       `json:"createdAt"`
}

func (v *Variant) AfterFind(tx *gorm.DB) error {
	v.Label = v.Kind.Label()
	return nil
}

type OrderStatus string

const (
	OrderStatusPending OrderStatus = "pending"
	OrderStatusPaid    OrderStatus = "paid"
	OrderStatusFailed  OrderStatus = "failed"
)

// Order snapshots the variant at purchase time. Product and variant ids are
// plain references without foreign keys so orders outlive their product.
type Order struct {
	ID             string          `gorm:"primaryKey;size:36;not null" json:"id"`
	UserID         string          `gorm:"size:64;index;not null" json:"user"`
	ProductID      string          `gorm:"size:36;index;not null" json:"productId"`
	ProductName    string          `gorm:"size:255" json:"productName"`
	VariantID      string          `gorm:"size:36;not null" json:"variantId"`
	VariantKind    VariantKind     `gorm:"size:16;not null" json:"variant"`
	Amount         decimal.Decimal `gorm:"type:decimal(16,2);not null" json:"amount"`
	Currency       string          `gorm:"size:8;not null" json:"currency"`
	Gateway        string          `gorm:"size:16;not null" json:"gateway"`
	GatewayOrderID string          `gorm:"size:64;uniqueIndex;not null" json:"gatewayOrderId"`
	ApproveURL     string          `gorm:"size:1024" json:"approveUrl,omitempty"` // hosted checkout link, when the gateway redirects
	PaymentID      string          `gorm:"size:64" json:"paymentId,omitempty"`
	Status         OrderStatus     `gorm:"size:16;index;not null" json:"status"`
	CreatedAt      time.Time       `gorm:"index" json:"createdAt"`
	UpdatedAt      time.Time       `json:"updatedAt"`
}

type WebhookEvent struct {
	EventID     string `gorm:"primaryKey;size:128;not null"`
	EventType   string `gorm:"size:64;index"`
	ProcessedAt time.Time
	CreatedAt   time.Time
}

// AssetCleanup records a storage asset whose deletion failed after its
// product was removed.
type AssetCleanup struct {
	ID         uint       `gorm:"primaryKey"`
	FileID     string     `gorm:"size:255;index;not null"`
	Provider   string     `gorm:"size:16;not null"`
	ProductID  string     `gorm:"size:36;index"`
	Attempts   int        `gorm:"not null;default:0"`
	LastError  string     `gorm:"type:text"`
	ResolvedAt *time.Time `gorm:"index"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
