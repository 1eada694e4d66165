package repository

import (
	"context"
	"errors"
	"fmt"
	"snaptrade/internal/apperror"
	"snaptrade/internal/model"
	"strings"
	"time"

	"gorm.io/gorm"
)

type ProductFilter struct {
	Owner string
	Query string // case-insensitive substring of the name
}

// likeEscaper pairs with ESCAPE '!' in name searches.
var likeEscaper = strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")

type ProductRepository interface {
	Create(ctx context.Context, product *model.Product) error
	FindByID(ctx context.Context, productID string) (*model.Product, error)
	Update(ctx context.Context, product *model.Product, expectedVersion int, replaceVariants bool) error
	Delete(ctx context.Context, productID string) error
	ListPage(ctx context.Context, filter ProductFilter, cursor string, limit int) ([]*model.Product, string, error)
}

type productRepoImpl struct {
	db *gorm.DB
}

func NewProductRepository(db *gorm.DB) ProductRepository {
	return &productRepoImpl{
		db: db,
	}
}

func orderedVariants(db *gorm.DB) *gorm.DB {
	return db.Order("position ASC")
}

// Create inserts the product and its variants in one transaction. Variant
// positions follow the slice order.
func (r *productRepoImpl) Create(ctx context.Context, product *model.Product) error {
	for i := range product.Variants {
		product.Variants[i].ProductID = product.ID
		product.Variants[i].Position = i
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(product).Error; err != nil {
			return fmt.Errorf("insert product: %w", err)
		}
		return nil
	})
}

func (r *productRepoImpl) FindByID(ctx context.Context, productID string) (*model.Product, error) {
	var product model.Product
	err := r.db.WithContext(ctx).
		Preload("Variants", orderedVariants).
		Where("id = ?", productID).
		First(&product).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("product not found")
		}
		return nil, err
	}

	return &product, nil
}

// Update writes name and description, and replaces the variant rows when
// replaceVariants is set. The write only lands if the stored version still
// equals expectedVersion.
func (r *productRepoImpl) Update(ctx context.Context, product *model.Product, expectedVersion int, replaceVariants bool) error {
	now := time.Now()

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&model.Product{}).
			Where("id = ? AND version = ?", product.ID, expectedVersion).
			Updates(map[string]interface{}{
				"name":        product.Name,
				"description": product.Description,
				"version":     gorm.Expr("version + 1"),
				"updated_at":  now,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return apperror.Conflict("product was modified by another request")
		}

		if !replaceVariants {
			return nil
		}

		if err := tx.Where("product_id = ?", product.ID).Delete(&model.Variant{}).Error; err != nil {
			return fmt.Errorf("delete old variants: %w", err)
		}
		for i := range product.Variants {
			product.Variants[i].ProductID = product.ID
			product.Variants[i].Position = i
		}
		if len(product.Variants) > 0 {
			if err := tx.Create(&product.Variants).Error; err != nil {
				return fmt.Errorf("insert variants: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	product.Version = expectedVersion + 1
	product.UpdatedAt = now
	return nil
}

func (r *productRepoImpl) Delete(ctx context.Context, productID string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("product_id = ?", productID).Delete(&model.Variant{}).Error; err != nil {
			return fmt.Errorf("delete variants: %w", err)
		}

		result := tx.Where("id = ?", productID).Delete(&model.Product{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return apperror.NotFound("product not found")
		}
		return nil
	})
}

// ListPage returns up to limit products, newest first, starting after cursor.
// Product ids are time ordered so the id alone is the keyset.
func (r *productRepoImpl) ListPage(ctx context.Context, filter ProductFilter, cursor string, limit int) ([]*model.Product, string, error) {
	after, err := DecodeCursor(cursor)
	if err != nil {
		return nil, "", apperror.Validation("invalid cursor")
	}

	q := r.db.WithContext(ctx).Model(&model.Product{})
	if filter.Owner != "" {
		q = q.Where("owner = ?", filter.Owner)
	}
	if s := strings.TrimSpace(filter.Query); s != "" {
		q = q.Where("LOWER(name) LIKE ? ESCAPE '!'", "%"+likeEscaper.Replace(strings.ToLower(s))+"%")
	}
	if after.ID != "" {
		q = q.Where("id < ?", after.ID)
	}

	var products []*model.Product
	err = q.Preload("Variants", orderedVariants).
		Order("id DESC").
		Limit(limit + 1).
		Find(&products).Error
	if err != nil {
		return nil, "", fmt.Errorf("list products: %w", err)
	}

	var next string
	if len(products) > limit {
		products = products[:limit]
		next = EncodeCursor(ProductCursor{ID: products[len(products)-1].ID})
	}

	return products, next, nil
}
