package service

import (
	"context"
	"fmt"
	"iter"
	"snaptrade/internal/apperror"
	"snaptrade/internal/dto"
	"snaptrade/internal/model"
	"snaptrade/internal/repository"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

type ProductService interface {
	Create(ctx context.Context, requester *model.Requester, req dto.CreateProductRequest) (*model.Product, error)
	Get(ctx context.Context, productID string) (*model.Product, error)
	Update(ctx context.Context, requester *model.Requester, productID string, req dto.UpdateProductRequest) (*model.Product, error)
	Delete(ctx context.Context, requester *model.Requester, productID string) error
	List(ctx context.Context, filter repository.ProductFilter, pageSize int) iter.Seq2[*model.Product, error]
	Page(ctx context.Context, req dto.ListProductsRequest) (*dto.ProductPage, error)
}

type productServiceImpl struct {
	productRepo  repository.ProductRepository
	assetService AssetService
	policy       Policy
	logger       *zap.Logger
}

func NewProductService(
	productRepo repository.ProductRepository,
	assetService AssetService,
	policy Policy,
	logger *zap.Logger,
) ProductService {
	return &productServiceImpl{
		productRepo:  productRepo,
		assetService: assetService,
		policy:       policy,
		logger:       logger,
	}
}

func (s *productServiceImpl) Create(ctx context.Context, requester *model.Requester, req dto.CreateProductRequest) (*model.Product, error) {
	if err := s.policy.CanListProducts(requester); err != nil {
		return nil, err
	}

	name, description, err := validateText(req.Name, req.Description)
	if err != nil {
		return nil, err
	}

	variants, err := buildVariants(requester.ID, req.Variants)
	if err != nil {
		return nil, err
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("generate product id: %w", err)
	}

	product := &model.Product{
		ID:          id.String(),
		Name:        name,
		Description: description,
		Owner:       requester.ID,
		Variants:    variants,
		Version:     1,
	}
	if err := s.productRepo.Create(ctx, product); err != nil {
		return nil, fmt.Errorf("create product: %w", err)
	}

	s.logger.Info("product created",
		zap.String("product_id", product.ID),
		zap.String("owner", product.Owner),
		zap.Int("variants", len(product.Variants)),
	)

	return s.productRepo.FindByID(ctx, product.ID)
}

func (s *productServiceImpl) Get(ctx context.Context, productID string) (*model.Product, error) {
	if strings.TrimSpace(productID) == "" {
		return nil, apperror.NotFound("product not found")
	}
	return s.productRepo.FindByID(ctx, productID)
}

func (s *productServiceImpl) Update(ctx context.Context, requester *model.Requester, productID string, req dto.UpdateProductRequest) (*model.Product, error) {
	product, err := s.Get(ctx, productID)
	if err != nil {
		return nil, err
	}

	if err := s.policy.AuthorizeOwner(requester, product); err != nil {
		return nil, err
	}

	if req.Version != nil && *req.Version != product.Version {
		return nil, apperror.Conflict("product was modified, reload and try again")
	}

	name, description := product.Name, product.Description
	if req.Name != nil {
		name = *req.Name
	}
	if req.Description != nil {
		description = *req.Description
	}
	name, description, err = validateText(name, description)
	if err != nil {
		return nil, err
	}
	product.Name = name
	product.Description = description

	replaceVariants := req.Variants != nil
	var removedFiles []string
	if replaceVariants {
		variants, err := buildVariants(product.Owner, req.Variants)
		if err != nil {
			return nil, err
		}
		removedFiles = droppedFiles(product.Variants, variants)
		product.Variants = variants
	}

	if err := s.productRepo.Update(ctx, product, product.Version, replaceVariants); err != nil {
		return nil, err
	}

	if len(removedFiles) > 0 {
		s.assetService.ScheduleDelete(ctx, product.ID, removedFiles)
	}

	s.logger.Info("product updated",
		zap.String("product_id", product.ID),
		zap.Int("version", product.Version),
		zap.Bool("variants_replaced", replaceVariants),
	)

	return s.productRepo.FindByID(ctx, product.ID)
}

func (s *productServiceImpl) Delete(ctx context.Context, requester *model.Requester, productID string) error {
	product, err := s.Get(ctx, productID)
	if err != nil {
		return err
	}

	if err := s.policy.AuthorizeOwner(requester, product); err != nil {
		return err
	}

	if err := s.productRepo.Delete(ctx, product.ID); err != nil {
		return err
	}

	s.logger.Info("product deleted",
		zap.String("product_id", product.ID),
		zap.String("owner", product.Owner),
	)

	if files := product.FileIDs(); len(files) > 0 {
		s.assetService.ScheduleDelete(ctx, product.ID, files)
	}
	return nil
}

// List walks every matching product, newest first, fetching one page at a
// time as the caller ranges. Each range starts over from the first page.
func (s *productServiceImpl) List(ctx context.Context, filter repository.ProductFilter, pageSize int) iter.Seq2[*model.Product, error] {
	pageSize = clampPageSize(pageSize)

	return func(yield func(*model.Product, error) bool) {
		cursor := ""
		for {
			products, next, err := s.productRepo.ListPage(ctx, filter, cursor, pageSize)
			if err != nil {
				yield(nil, err)
				return
			}
			for _, p := range products {
				if !yield(p, nil) {
					return
				}
			}
			if next == "" {
				return
			}
			cursor = next
		}
	}
}

func (s *productServiceImpl) Page(ctx context.Context, req dto.ListProductsRequest) (*dto.ProductPage, error) {
	filter := repository.ProductFilter{
		Owner: strings.TrimSpace(req.Owner),
		Query: req.Query,
	}

	products, next, err := s.productRepo.ListPage(ctx, filter, req.Cursor, clampPageSize(req.Limit))
	if err != nil {
		return nil, err
	}

	page := &dto.ProductPage{
		Items:      make([]dto.ProductSummary, 0, len(products)),
		NextCursor: next,
		HasMore:    next != "",
	}
	for _, p := range products {
		page.Items = append(page.Items, dto.NewProductSummary(p))
	}
	return page, nil
}

func clampPageSize(n int) int {
	if n <= 0 {
		return defaultPageSize
	}
	if n > maxPageSize {
		return maxPageSize
	}
	return n
}

func validateText(name, description string) (string, string, error) {
	name = strings.TrimSpace(name)
	description = strings.TrimSpace(description)

	if name == "" {
		return "", "", apperror.Validation("name is required")
	}
	if description == "" {
		return "", "", apperror.Validation("description is required")
	}
	return name, description, nil
}

func buildVariants(owner string, reqs []dto.VariantRequest) ([]model.Variant, error) {
	if len(reqs) == 0 {
		return nil, apperror.Validation("at least one variant is required")
	}

	seen := make(map[model.VariantKind]bool, len(reqs))
	variants := make([]model.Variant, 0, len(reqs))

	for i, r := range reqs {
		kind, ok := model.ParseVariantKind(r.Type)
		if !ok {
			return nil, apperror.Validation(fmt.Sprintf("variant %d: unknown type %q", i+1, r.Type))
		}
		if seen[kind] {
			return nil, apperror.Validation(fmt.Sprintf("variant %d: duplicate type %s", i+1, kind))
		}
		seen[kind] = true

		if r.Price == nil {
			return nil, apperror.Validation(fmt.Sprintf("variant %d: price is required", i+1))
		}
		if r.Price.IsNegative() {
			return nil, apperror.Validation(fmt.Sprintf("variant %d: price must not be negative", i+1))
		}
		if !r.Price.Equal(r.Price.Truncate(2)) {
			return nil, apperror.Validation(fmt.Sprintf("variant %d: price must have at most 2 decimal places", i+1))
		}

		imageURL := strings.TrimSpace(r.ImageURL)
		if imageURL == "" {
			return nil, apperror.Validation(fmt.Sprintf("variant %d: imageUrl is required", i+1))
		}

		spec, _ := kind.Spec()
		dims := spec.Dimensions
		if r.Dimensions != nil && (r.Dimensions.Width != 0 || r.Dimensions.Height != 0) {
			if r.Dimensions.Width <= 0 || r.Dimensions.Height <= 0 {
				return nil, apperror.Validation(fmt.Sprintf("variant %d: dimensions must be positive", i+1))
			}
			dims = *r.Dimensions
		}

		variants = append(variants, model.Variant{
			ID:            uuid.NewString(),
			Owner:         owner,
			Kind:          kind,
			Label:         spec.Label,
			Price:         *r.Price,
			Dimensions:    dims,
			ImageURL:      imageURL,
			PreviewURL:    strings.TrimSpace(r.PreviewURL),
			DownloadURL:   strings.TrimSpace(r.DownloadURL),
			StorageFileID: strings.TrimSpace(r.FileID),
		})
	}

	return variants, nil
}

// droppedFiles lists storage files referenced by old variants but by none of
// the replacements.
func droppedFiles(old, replacement []model.Variant) []string {
	kept := make(map[string]bool, len(replacement))
	for _, v := range replacement {
		if v.StorageFileID != "" {
			kept[v.StorageFileID] = true
		}
	}

	var dropped []string
	for _, v := range old {
		if v.StorageFileID != "" && !kept[v.StorageFileID] {
			dropped = append(dropped, v.StorageFileID)
		}
	}
	return dropped
}
