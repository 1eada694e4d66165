package handler

import (
	"net/http"
	"snaptrade/internal/middleware"
	"snaptrade/internal/model"
	"snaptrade/internal/service"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

type UploadHandler struct {
	assetService service.AssetService
	logger       *zap.Logger
}

func NewUploadHandler(assetService service.AssetService, logger *zap.Logger) *UploadHandler {
	return &UploadHandler{
		assetService: assetService,
		logger:       logger,
	}
}

// UploadAuth answers raw, without the envelope: the upload widget reads
// signature, expire and token from the top level.
func (h *UploadHandler) UploadAuth(c echo.Context) error {
	ctx := c.Request().Context()

	auth, err := h.assetService.UploadAuth(ctx, middleware.RequesterFrom(c))
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return c.JSON(http.StatusOK, auth)
}

func (h *UploadHandler) VariantKinds(c echo.Context) error {
	return respond(c, http.StatusOK, "Variant kinds fetched successfully", model.VariantKinds())
}
