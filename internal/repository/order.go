package repository

import (
	"context"
	"errors"
	"snaptrade/internal/apperror"
	"snaptrade/internal/model"
	"time"

	"gorm.io/gorm"
)

type OrderRepository interface {
	Create(ctx context.Context, tx *gorm.DB, order *model.Order) error
	FindByID(ctx context.Context, orderID string) (*model.Order, error)
	FindByGatewayOrderID(ctx context.Context, tx *gorm.DB, gatewayOrderID string) (*model.Order, error)
	FindRecentPending(ctx context.Context, userID, productID string, kind model.VariantKind, since time.Time) (*model.Order, error)
	MarkSettled(ctx context.Context, tx *gorm.DB, orderID string, status model.OrderStatus, paymentID string) (bool, error)
}

type orderRepoImpl struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) OrderRepository {
	return &orderRepoImpl{
		db: db,
	}
}

func (r *orderRepoImpl) Create(ctx context.Context, tx *gorm.DB, order *model.Order) error {
	if tx == nil {
		tx = r.db
	}
	return tx.WithContext(ctx).Create(order).Error
}

func (r *orderRepoImpl) FindByID(ctx context.Context, orderID string) (*model.Order, error) {
	var order model.Order
	err := r.db.WithContext(ctx).
		Where("id = ?", orderID).
		First(&order).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("order not found")
		}
		return nil, err
	}

	return &order, nil
}

func (r *orderRepoImpl) FindByGatewayOrderID(ctx context.Context, tx *gorm.DB, gatewayOrderID string) (*model.Order, error) {
	if tx == nil {
		tx = r.db
	}

	var order model.Order
	err := tx.WithContext(ctx).
		Where("gateway_order_id = ?", gatewayOrderID).
		First(&order).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("order not found")
		}
		return nil, err
	}

	return &order, nil
}

// FindRecentPending returns the newest pending order for the same buyer,
// product and kind created at or after since, or nil when there is none.
func (r *orderRepoImpl) FindRecentPending(ctx context.Context, userID, productID string, kind model.VariantKind, since time.Time) (*model.Order, error) {
	var orders []model.Order
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND product_id = ? AND variant_kind = ?", userID, productID, kind).
		Where("status = ?", model.OrderStatusPending).
		Where("created_at >= ?", since).
		Order("created_at DESC").
		Limit(1).
		Find(&orders).Error
	if err != nil {
		return nil, err
	}

	if len(orders) == 0 {
		return nil, nil
	}
	return &orders[0], nil
}

// MarkSettled moves an order to status. Failed is only reached from pending;
// paid is also reached from failed, since a buyer may retry a declined
// payment on the same gateway order. It reports false when the transition is
// not allowed, leaving the order untouched.
func (r *orderRepoImpl) MarkSettled(ctx context.Context, tx *gorm.DB, orderID string, status model.OrderStatus, paymentID string) (bool, error) {
	if tx == nil {
		tx = r.db
	}

	updates := map[string]interface{}{
		"status":     status,
		"updated_at": time.Now(),
	}
	if paymentID != "" {
		updates["payment_id"] = paymentID
	}

	from := []model.OrderStatus{model.OrderStatusPending}
	if status == model.OrderStatusPaid {
		from = append(from, model.OrderStatusFailed)
	}

	result := tx.WithContext(ctx).Model(&model.Order{}).
		Where("id = ? AND status IN ?", orderID, from).
		Updates(updates)
	if result.Error != nil {
		return false, result.Error
	}

	return result.RowsAffected > 0, nil
}
