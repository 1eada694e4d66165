package handler

import (
	"io"
	"net/http"
	"snaptrade/internal/apperror"
	"snaptrade/internal/dto"
	"snaptrade/internal/middleware"
	"snaptrade/internal/service"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

const maxWebhookBody = 1 << 20

type CheckoutHandler struct {
	checkoutService service.CheckoutService
	logger          *zap.Logger
}

func NewCheckoutHandler(checkoutService service.CheckoutService, logger *zap.Logger) *CheckoutHandler {
	return &CheckoutHandler{
		checkoutService: checkoutService,
		logger:          logger,
	}
}

func (h *CheckoutHandler) PlaceOrder(c echo.Context) error {
	ctx := c.Request().Context()

	var req dto.PlaceOrderRequest
	if err := bindAndValidate(c, &req); err != nil {
		return respondError(c, h.logger, err)
	}

	result, err := h.checkoutService.PlaceOrder(ctx, middleware.RequesterFrom(c), req)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return respond(c, http.StatusOK, "Order placed successfully", result)
}

func (h *CheckoutHandler) GetOrder(c echo.Context) error {
	ctx := c.Request().Context()

	order, err := h.checkoutService.GetOrder(ctx, middleware.RequesterFrom(c), c.Param("id"))
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return respond(c, http.StatusOK, "Order fetched successfully", order)
}

// PaymentWebhook needs the raw body, the gateway signs the exact bytes.
func (h *CheckoutHandler) PaymentWebhook(c echo.Context) error {
	ctx := c.Request().Context()

	body, err := io.ReadAll(io.LimitReader(c.Request().Body, maxWebhookBody))
	if err != nil {
		return respondError(c, h.logger, apperror.Validation("cannot read body"))
	}

	if err := h.checkoutService.HandleWebhook(ctx, c.Request().Header, body); err != nil {
		if apperror.KindOf(err) == apperror.KindUnauthorized {
			h.logger.Warn("rejected webhook", zap.Error(err))
			return respond(c, http.StatusUnauthorized, apperror.MessageOf(err, "invalid signature"), nil)
		}
		return respondError(c, h.logger, err)
	}

	return respond(c, http.StatusOK, "ok", nil)
}
