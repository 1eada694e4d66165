package dto

import (
	"bytes"
	"encoding/json"
	"fmt"
	"snaptrade/internal/model"

	"github.com/shopspring/decimal"
)

// Response is the envelope every JSON endpoint answers with, except the
// upload auth endpoint which the upload widget reads raw.
type Response struct {
	Success    bool   `json:"success"`
	StatusCode int    `json:"statusCode"`
	Message    string `json:"message"`
	Data       any    `json:"data,omitempty"`
}

type VariantRequest struct {
	Type        string            `json:"type"`
	Price       *decimal.Decimal  `json:"price"`
	Dimensions  *model.Dimensions `json:"dimensions,omitempty"`
	ImageURL    string            `json:"imageUrl" validate:"omitempty,max=1024"`
	PreviewURL  string            `json:"previewUrl" validate:"omitempty,max=1024"`
	DownloadURL string            `json:"downloadUrl" validate:"omitempty,max=1024"`
	FileID      string            `json:"fileId" validate:"omitempty,max=255"`
}

type CreateProductRequest struct {
	Name        string           `json:"name" validate:"max=255"`
	Description string           `json:"description"`
	Variants    []VariantRequest `json:"variants" validate:"dive"`
}

// UpdateProductRequest is a partial update. A nil Variants keeps the stored
// variants; a non-nil one replaces them all.
type UpdateProductRequest struct {
	Name        *string          `json:"name,omitempty" validate:"omitempty,max=255"`
	Description *string          `json:"description,omitempty"`
	Variants    []VariantRequest `json:"variants,omitempty" validate:"omitempty,dive"`
	Version     *int             `json:"version,omitempty" validate:"omitempty,min=1"`
}

type ListProductsRequest struct {
	Owner  string `query:"owner"`
	Query  string `query:"q"`
	Cursor string `query:"cursor"`
	Limit  int    `query:"limit" validate:"omitempty,min=1,max=100"`
}

type ProductSummary struct {
	ID          string              `json:"id"`
	Name        string              `json:"name"`
	Description string              `json:"description"`
	Owner       string              `json:"owner"`
	FromPrice   decimal.Decimal     `json:"fromPrice"`
	Kinds       []model.VariantKind `json:"kinds"`
	PreviewURL  string              `json:"previewUrl,omitempty"`
}

func NewProductSummary(p *model.Product) ProductSummary {
	summary := ProductSummary{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Owner:       p.Owner,
		Kinds:       make([]model.VariantKind, 0, len(p.Variants)),
	}

	for i, v := range p.Variants {
		if i == 0 || v.Price.LessThan(summary.FromPrice) {
			summary.FromPrice = v.Price
		}
		summary.Kinds = append(summary.Kinds, v.Kind)
	}
	if first, ok := model.SelectVariant(p.Variants, ""); ok {
		summary.PreviewURL = first.PreviewURL
		if summary.PreviewURL == "" {
			summary.PreviewURL = first.ImageURL
		}
	}

	return summary
}

type ProductPage struct {
	Items      []ProductSummary `json:"items"`
	NextCursor string           `json:"nextCursor,omitempty"`
	HasMore    bool             `json:"hasMore"`
}

// VariantSelector is the variant named in a place order request. The
// storefront posts the whole selected variant object, other clients may send
// just the kind.
type VariantSelector struct {
	Kind string
}

func (v *VariantSelector) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		v.Kind = ""
		return nil
	}

	if data[0] == '"' {
		return json.Unmarshal(data, &v.Kind)
	}

	var obj struct {
		Type string `json:"type"`
		Kind string `json:"kind"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("variant must be a kind or a variant object: %w", err)
	}
	v.Kind = obj.Type
	if v.Kind == "" {
		v.Kind = obj.Kind
	}
	return nil
}

func (v VariantSelector) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Kind)
}

type PlaceOrderRequest struct {
	ProductID string          `json:"productId" validate:"required"`
	Variant   VariantSelector `json:"variant"`
}

// PlaceOrderResponse feeds the hosted payment widget. Amount is in the
// currency's minor unit.
type PlaceOrderResponse struct {
	OrderID    string `json:"orderId"`
	Amount     int64  `json:"amount"`
	Currency   string `json:"currency"`
	DBOrderID  string `json:"dbOrderId"`
	ApproveURL string `json:"approveUrl,omitempty"`
}

type DeleteProductResponse struct {
	ID string `json:"id"`
}
