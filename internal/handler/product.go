package handler

import (
	"net/http"
	"snaptrade/internal/apperror"
	"snaptrade/internal/dto"
	"snaptrade/internal/middleware"
	"snaptrade/internal/service"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

type ProductHandler struct {
	productService service.ProductService
	logger         *zap.Logger
}

func NewProductHandler(productService service.ProductService, logger *zap.Logger) *ProductHandler {
	return &ProductHandler{
		productService: productService,
		logger:         logger,
	}
}

func (h *ProductHandler) CreateProduct(c echo.Context) error {
	ctx := c.Request().Context()

	var req dto.CreateProductRequest
	if err := bindAndValidate(c, &req); err != nil {
		return respondError(c, h.logger, err)
	}

	product, err := h.productService.Create(ctx, middleware.RequesterFrom(c), req)
	if err != nil {
		if apperror.KindOf(err) == apperror.KindUnauthorized {
			// the listing form reports a missing admin role as a bad request
			return respond(c, http.StatusBadRequest, apperror.MessageOf(err, "unauthorized request"), nil)
		}
		return respondError(c, h.logger, err)
	}

	return respond(c, http.StatusCreated, "Product created successfully", product)
}

func (h *ProductHandler) GetProduct(c echo.Context) error {
	ctx := c.Request().Context()

	product, err := h.productService.Get(ctx, c.Param("id"))
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return respond(c, http.StatusOK, "Product fetched successfully", product)
}

func (h *ProductHandler) UpdateProduct(c echo.Context) error {
	ctx := c.Request().Context()

	var req dto.UpdateProductRequest
	if err := bindAndValidate(c, &req); err != nil {
		return respondError(c, h.logger, err)
	}

	product, err := h.productService.Update(ctx, middleware.RequesterFrom(c), c.Param("id"), req)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return respond(c, http.StatusOK, "Product updated successfully", product)
}

func (h *ProductHandler) DeleteProduct(c echo.Context) error {
	ctx := c.Request().Context()
	productID := c.Param("id")

	if err := h.productService.Delete(ctx, middleware.RequesterFrom(c), productID); err != nil {
		return respondError(c, h.logger, err)
	}

	return respond(c, http.StatusOK, "Product deleted successfully", dto.DeleteProductResponse{ID: productID})
}

func (h *ProductHandler) ListProducts(c echo.Context) error {
	ctx := c.Request().Context()

	var req dto.ListProductsRequest
	if err := bindAndValidate(c, &req); err != nil {
		return respondError(c, h.logger, err)
	}

	page, err := h.productService.Page(ctx, req)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return respond(c, http.StatusOK, "Products fetched successfully", page)
}
