package repository

import (
	"context"
	"errors"
	"fmt"
	"snaptrade/internal/apperror"
	"snaptrade/internal/model"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProductRepositoryCreateAndFind(t *testing.T) {
	ctx := context.Background()
	repo := NewProductRepository(newTestDB(t))

	p := newProduct(t, "u1", "Sunset", model.VariantPortrait, model.VariantSquare, model.VariantWide)
	require.NoError(t, repo.Create(ctx, p))

	got, err := repo.FindByID(ctx, p.ID)
	require.NoError(t, err)

	assert.Equal(t, "Sunset", got.Name)
	assert.Equal(t, "u1", got.Owner)
	require.Len(t, got.Variants, 3)
	assert.Equal(t, model.VariantPortrait, got.Variants[0].Kind)
	assert.Equal(t, model.VariantSquare, got.Variants[1].Kind)
	assert.Equal(t, model.VariantWide, got.Variants[2].Kind)
	assert.Equal(t, "Portrait (3:4)", got.Variants[0].Label)
	assert.True(t, got.Variants[1].Price.Equal(decimal.NewFromInt(200)))
	assert.Equal(t, model.Dimensions{Width: 1600, Height: 900}, got.Variants[2].Dimensions)
}

func TestProductRepositoryFindMissing(t *testing.T) {
	repo := NewProductRepository(newTestDB(t))

	_, err := repo.FindByID(context.Background(), "missing")
	assert.True(t, errors.Is(err, apperror.ErrNotFound))
}

func TestProductRepositoryUpdateReplacesVariants(t *testing.T) {
	ctx := context.Background()
	repo := NewProductRepository(newTestDB(t))

	p := newProduct(t, "u1", "Sunset", model.VariantSquare, model.VariantWide)
	require.NoError(t, repo.Create(ctx, p))

	p.Name = "Sunrise"
	p.Variants = newProduct(t, "u1", "x", model.VariantPortrait).Variants
	require.NoError(t, repo.Update(ctx, p, 1, true))
	assert.Equal(t, 2, p.Version)

	got, err := repo.FindByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Sunrise", got.Name)
	assert.Equal(t, 2, got.Version)
	require.Len(t, got.Variants, 1)
	assert.Equal(t, model.VariantPortrait, got.Variants[0].Kind)
}

func TestProductRepositoryUpdateKeepsVariants(t *testing.T) {
	ctx := context.Background()
	repo := NewProductRepository(newTestDB(t))

	p := newProduct(t, "u1", "Sunset", model.VariantSquare, model.VariantWide)
	require.NoError(t, repo.Create(ctx, p))

	p.Description = "new description"
	require.NoError(t, repo.Update(ctx, p, 1, false))

	got, err := repo.FindByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "new description", got.Description)
	assert.Len(t, got.Variants, 2)
}

func TestProductRepositoryUpdateStaleVersion(t *testing.T) {
	ctx := context.Background()
	repo := NewProductRepository(newTestDB(t))

	p := newProduct(t, "u1", "Sunset", model.VariantSquare)
	require.NoError(t, repo.Create(ctx, p))
	require.NoError(t, repo.Update(ctx, p, 1, false))

	stale := *p
	stale.Name = "lost write"
	err := repo.Update(ctx, &stale, 1, false)
	assert.True(t, errors.Is(err, apperror.ErrConflict))

	got, err := repo.FindByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Sunset", got.Name)
}

func TestProductRepositoryDelete(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	repo := NewProductRepository(db)

	p := newProduct(t, "u1", "Sunset", model.VariantSquare, model.VariantWide)
	require.NoError(t, repo.Create(ctx, p))

	require.NoError(t, repo.Delete(ctx, p.ID))

	_, err := repo.FindByID(ctx, p.ID)
	assert.True(t, errors.Is(err, apperror.ErrNotFound))

	var variantCount int64
	require.NoError(t, db.Model(&model.Variant{}).Where("product_id = ?", p.ID).Count(&variantCount).Error)
	assert.Zero(t, variantCount)

	err = repo.Delete(ctx, p.ID)
	assert.True(t, errors.Is(err, apperror.ErrNotFound))
}

func TestProductRepositoryListPage(t *testing.T) {
	ctx := context.Background()
	repo := NewProductRepository(newTestDB(t))

	var ids []string
	for i := 0; i < 5; i++ {
		owner := "u1"
		if i%2 == 1 {
			owner = "u2"
		}
		p := newProduct(t, owner, fmt.Sprintf("Photo %d", i), model.VariantSquare)
		require.NoError(t, repo.Create(ctx, p))
		ids = append(ids, p.ID)
	}

	page, next, err := repo.ListPage(ctx, ProductFilter{}, "", 2)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, ids[4], page[0].ID)
	assert.Equal(t, ids[3], page[1].ID)
	assert.NotEmpty(t, next)
	assert.Len(t, page[0].Variants, 1)

	page, next, err = repo.ListPage(ctx, ProductFilter{}, next, 2)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, ids[2], page[0].ID)

	page, next, err = repo.ListPage(ctx, ProductFilter{}, next, 2)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, ids[0], page[0].ID)
	assert.Empty(t, next)
}

func TestProductRepositoryListPageFilters(t *testing.T) {
	ctx := context.Background()
	repo := NewProductRepository(newTestDB(t))

	require.NoError(t, repo.Create(ctx, newProduct(t, "u1", "Mountain Lake", model.VariantSquare)))
	require.NoError(t, repo.Create(ctx, newProduct(t, "u2", "Lake at night", model.VariantSquare)))
	require.NoError(t, repo.Create(ctx, newProduct(t, "u1", "City", model.VariantSquare)))

	byOwner, _, err := repo.ListPage(ctx, ProductFilter{Owner: "u1"}, "", 10)
	require.NoError(t, err)
	assert.Len(t, byOwner, 2)

	byName, _, err := repo.ListPage(ctx, ProductFilter{Query: "lake"}, "", 10)
	require.NoError(t, err)
	assert.Len(t, byName, 2)

	both, _, err := repo.ListPage(ctx, ProductFilter{Owner: "u2", Query: "LAKE"}, "", 10)
	require.NoError(t, err)
	require.Len(t, both, 1)
	assert.Equal(t, "Lake at night", both[0].Name)
}

func TestProductRepositoryListPageQueryIsLiteral(t *testing.T) {
	ctx := context.Background()
	repo := NewProductRepository(newTestDB(t))

	require.NoError(t, repo.Create(ctx, newProduct(t, "u1", "100% Pure", model.VariantSquare)))
	require.NoError(t, repo.Create(ctx, newProduct(t, "u1", "1000 Pure", model.VariantSquare)))
	require.NoError(t, repo.Create(ctx, newProduct(t, "u1", "snake_case", model.VariantSquare)))
	require.NoError(t, repo.Create(ctx, newProduct(t, "u1", "snakeXcase", model.VariantSquare)))
	require.NoError(t, repo.Create(ctx, newProduct(t, "u1", "Wow!", model.VariantSquare)))

	percent, _, err := repo.ListPage(ctx, ProductFilter{Query: "100%"}, "", 10)
	require.NoError(t, err)
	require.Len(t, percent, 1)
	assert.Equal(t, "100% Pure", percent[0].Name)

	underscore, _, err := repo.ListPage(ctx, ProductFilter{Query: "e_c"}, "", 10)
	require.NoError(t, err)
	require.Len(t, underscore, 1)
	assert.Equal(t, "snake_case", underscore[0].Name)

	bang, _, err := repo.ListPage(ctx, ProductFilter{Query: "wow!"}, "", 10)
	require.NoError(t, err)
	require.Len(t, bang, 1)
	assert.Equal(t, "Wow!", bang[0].Name)
}

func TestProductRepositoryListPageBadCursor(t *testing.T) {
	repo := NewProductRepository(newTestDB(t))

	_, _, err := repo.ListPage(context.Background(), ProductFilter{}, "%%%", 10)
	assert.True(t, errors.Is(err, apperror.ErrValidation))
}

func TestCursorRoundTrip(t *testing.T) {
	encoded := EncodeCursor(ProductCursor{ID: "abc"})

	decoded, err := DecodeCursor(encoded)
	require.NoError(t, err)
	assert.Equal(t, "abc", decoded.ID)

	empty, err := DecodeCursor("")
	require.NoError(t, err)
	assert.Empty(t, empty.ID)
}
