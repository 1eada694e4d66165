package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"snaptrade/internal/apperror"
	"snaptrade/internal/client"
	"snaptrade/internal/dto"
	"snaptrade/internal/model"
	"snaptrade/internal/repository"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type CheckoutService interface {
	PlaceOrder(ctx context.Context, requester *model.Requester, req dto.PlaceOrderRequest) (*dto.PlaceOrderResponse, error)
	GetOrder(ctx context.Context, requester *model.Requester, orderID string) (*model.Order, error)
	HandleWebhook(ctx context.Context, headers http.Header, body []byte) error
}

type CheckoutOptions struct {
	Currency          string
	GatewayTimeout    time.Duration
	IdempotencyWindow time.Duration
}

type checkoutServiceImpl struct {
	db               *gorm.DB
	gateway          client.PaymentGateway
	productRepo      repository.ProductRepository
	orderRepo        repository.OrderRepository
	webhookEventRepo repository.WebhookEventRepository
	policy           Policy
	logger           *zap.Logger
	opts             CheckoutOptions
	now              func() time.Time
}

func NewCheckoutService(
	db *gorm.DB,
	gateway client.PaymentGateway,
	productRepo repository.ProductRepository,
	orderRepo repository.OrderRepository,
	webhookEventRepo repository.WebhookEventRepository,
	policy Policy,
	logger *zap.Logger,
	opts CheckoutOptions,
) CheckoutService {
	if opts.Currency == "" {
		opts.Currency = "INR"
	}
	if opts.GatewayTimeout <= 0 {
		opts.GatewayTimeout = 15 * time.Second
	}

	return &checkoutServiceImpl{
		db:               db,
		gateway:          gateway,
		productRepo:      productRepo,
		orderRepo:        orderRepo,
		webhookEventRepo: webhookEventRepo,
		policy:           policy,
		logger:           logger,
		opts:             opts,
		now:              time.Now,
	}
}

func (s *checkoutServiceImpl) PlaceOrder(ctx context.Context, requester *model.Requester, req dto.PlaceOrderRequest) (*dto.PlaceOrderResponse, error) {
	if err := s.policy.RequireSession(requester); err != nil {
		return nil, err
	}

	if strings.TrimSpace(req.ProductID) == "" {
		return nil, apperror.Validation("productId is required")
	}
	if strings.TrimSpace(req.Variant.Kind) == "" {
		return nil, apperror.Validation("variant is required")
	}

	product, err := s.productRepo.FindByID(ctx, req.ProductID)
	if err != nil {
		return nil, err
	}

	kind, ok := model.ParseVariantKind(req.Variant.Kind)
	if !ok {
		return nil, apperror.InvalidVariant(fmt.Sprintf("unknown variant %q", req.Variant.Kind))
	}
	variant, ok := product.VariantByKind(kind)
	if !ok {
		return nil, apperror.InvalidVariant(fmt.Sprintf("%s is not available for this product", kind.Label()))
	}

	if existing := s.findReusable(ctx, requester, product, variant); existing != nil {
		s.logger.Info("reusing pending order",
			zap.String("order_id", existing.ID),
			zap.String("gateway_order_id", existing.GatewayOrderID),
		)
		return &dto.PlaceOrderResponse{
			OrderID:    existing.GatewayOrderID,
			Amount:     client.ToMinorUnits(existing.Amount),
			Currency:   existing.Currency,
			DBOrderID:  existing.ID,
			ApproveURL: existing.ApproveURL,
		}, nil
	}

	orderID := uuid.NewString()

	gatewayCtx, cancel := context.WithTimeout(ctx, s.opts.GatewayTimeout)
	defer cancel()

	gatewayOrder, err := s.gateway.CreateOrder(gatewayCtx, client.CreateOrderInput{
		Amount:      variant.Price,
		Currency:    s.opts.Currency,
		Receipt:     orderID,
		Description: fmt.Sprintf("%s - %s", product.Name, variant.Kind),
	})
	if err != nil {
		s.logger.Error("gateway create order",
			zap.String("gateway", s.gateway.Name()),
			zap.String("product_id", product.ID),
			zap.String("variant", string(variant.Kind)),
			zap.Error(err),
		)
		return nil, apperror.Wrap(apperror.KindGateway, "payment could not be started, please try again", err)
	}

	order := &model.Order{
		ID:             orderID,
		UserID:         requester.ID,
		ProductID:      product.ID,
		ProductName:    product.Name,
		VariantID:      variant.ID,
		VariantKind:    variant.Kind,
		Amount:         variant.Price,
		Currency:       s.opts.Currency,
		Gateway:        s.gateway.Name(),
		GatewayOrderID: gatewayOrder.ID,
		ApproveURL:     gatewayOrder.ApproveURL,
		Status:         model.OrderStatusPending,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.orderRepo.Create(ctx, tx, order); err != nil {
			return fmt.Errorf("store order in db: %w", err)
		}
		return nil
	})
	if err != nil {
		// the gateway order is left dangling; it expires on the gateway side
		s.logger.Error("persist order",
			zap.String("gateway_order_id", gatewayOrder.ID),
			zap.Error(err),
		)
		return nil, apperror.Wrap(apperror.KindInternal, "could not place order", err)
	}

	s.logger.Info("order placed",
		zap.String("order_id", order.ID),
		zap.String("gateway_order_id", order.GatewayOrderID),
		zap.String("user_id", order.UserID),
		zap.String("amount", order.Amount.StringFixed(2)),
	)

	amount := gatewayOrder.AmountMinor
	if amount == 0 {
		amount = client.ToMinorUnits(order.Amount)
	}
	currency := gatewayOrder.Currency
	if currency == "" {
		currency = order.Currency
	}

	return &dto.PlaceOrderResponse{
		OrderID:    gatewayOrder.ID,
		Amount:     amount,
		Currency:   currency,
		DBOrderID:  order.ID,
		ApproveURL: gatewayOrder.ApproveURL,
	}, nil
}

// findReusable returns a pending order for the same purchase placed within
// the idempotency window, as long as its price still matches.
func (s *checkoutServiceImpl) findReusable(ctx context.Context, requester *model.Requester, product *model.Product, variant model.Variant) *model.Order {
	if s.opts.IdempotencyWindow <= 0 {
		return nil
	}

	since := s.now().Add(-s.opts.IdempotencyWindow)
	existing, err := s.orderRepo.FindRecentPending(ctx, requester.ID, product.ID, variant.Kind, since)
	if err != nil {
		s.logger.Warn("lookup pending order", zap.Error(err))
		return nil
	}
	if existing == nil || existing.Gateway != s.gateway.Name() || !existing.Amount.Equal(variant.Price) {
		return nil
	}
	return existing
}

func (s *checkoutServiceImpl) GetOrder(ctx context.Context, requester *model.Requester, orderID string) (*model.Order, error) {
	if err := s.policy.RequireSession(requester); err != nil {
		return nil, err
	}

	order, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if err := s.policy.AuthorizeBuyer(requester, order); err != nil {
		return nil, err
	}
	return order, nil
}

func (s *checkoutServiceImpl) HandleWebhook(ctx context.Context, headers http.Header, body []byte) error {
	event, err := s.gateway.ParseWebhook(ctx, headers, body)
	if err != nil {
		switch {
		case errors.Is(err, client.ErrInvalidWebhookSignature):
			return apperror.Unauthorized("invalid webhook signature")
		case errors.Is(err, client.ErrInvalidWebhookPayload):
			return apperror.Wrap(apperror.KindValidation, "invalid webhook payload", err)
		default:
			s.logger.Error("parse webhook", zap.String("gateway", s.gateway.Name()), zap.Error(err))
			return apperror.Wrap(apperror.KindGateway, "webhook could not be verified", err)
		}
	}

	if event.ID == "" {
		return apperror.Validation("webhook event without id")
	}

	exists, err := s.webhookEventRepo.Exists(ctx, event.ID)
	if err != nil {
		return fmt.Errorf("check webhook event: %w", err)
	}
	if exists {
		s.logger.Info("duplicate webhook event", zap.String("event_id", event.ID))
		return nil
	}

	log := s.logger.With(
		zap.String("event_id", event.ID),
		zap.String("event_type", event.Type),
		zap.String("gateway_order_id", event.GatewayOrderID),
	)

	switch event.Outcome {
	case client.WebhookApproved:
		// PayPal only: the buyer approved, money moves once we capture
		if err := s.gateway.CaptureOrder(ctx, event.GatewayOrderID); err != nil {
			log.Error("capture order", zap.Error(err))
			return apperror.Wrap(apperror.KindGateway, "capture failed", err)
		}
		return s.webhookEventRepo.MarkProcessed(ctx, nil, event.ID, event.Type)

	case client.WebhookPaid, client.WebhookFailed:
		status := model.OrderStatusPaid
		if event.Outcome == client.WebhookFailed {
			status = model.OrderStatusFailed
		}

		return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			order, err := s.orderRepo.FindByGatewayOrderID(ctx, tx, event.GatewayOrderID)
			if err != nil {
				if apperror.KindOf(err) == apperror.KindNotFound {
					log.Warn("webhook for unknown order")
					return s.webhookEventRepo.MarkProcessed(ctx, tx, event.ID, event.Type)
				}
				return err
			}

			changed, err := s.orderRepo.MarkSettled(ctx, tx, order.ID, status, event.PaymentID)
			if err != nil {
				return fmt.Errorf("update order status: %w", err)
			}
			if changed {
				log.Info("order settled", zap.String("order_id", order.ID), zap.String("status", string(status)))
			} else {
				log.Info("order already settled", zap.String("order_id", order.ID), zap.String("status", string(order.Status)))
			}

			return s.webhookEventRepo.MarkProcessed(ctx, tx, event.ID, event.Type)
		})

	default:
		log.Debug("ignored webhook event")
		return s.webhookEventRepo.MarkProcessed(ctx, nil, event.ID, event.Type)
	}
}
