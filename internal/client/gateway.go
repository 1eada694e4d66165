package client

import (
	"context"
	"errors"
	"net/http"

	"github.com/shopspring/decimal"
)

var (
	ErrInvalidWebhookSignature = errors.New("invalid webhook signature")
	// ErrInvalidWebhookPayload marks a body that is not a gateway event.
	ErrInvalidWebhookPayload = errors.New("invalid webhook payload")
)

type CreateOrderInput struct {
	Amount      decimal.Decimal // major units, e.g. rupees
	Currency    string
	Receipt     string // local order id
	Description string
}

type GatewayOrder struct {
	ID          string
	AmountMinor int64
	Currency    string
	ApproveURL  string // empty for widget based gateways
}

type WebhookOutcome int

const (
	WebhookIgnored WebhookOutcome = iota
	WebhookApproved
	WebhookPaid
	WebhookFailed
)

type WebhookEvent struct {
	ID             string
	Type           string
	Outcome        WebhookOutcome
	GatewayOrderID string
	PaymentID      string
}

// PaymentGateway is a hosted checkout provider.
type PaymentGateway interface {
	Name() string
	CreateOrder(ctx context.Context, in CreateOrderInput) (*GatewayOrder, error)
	CaptureOrder(ctx context.Context, gatewayOrderID string) error
	ParseWebhook(ctx context.Context, headers http.Header, body []byte) (*WebhookEvent, error)
}

// ToMinorUnits converts a two-decimal currency amount to its smallest unit.
func ToMinorUnits(amount decimal.Decimal) int64 {
	return amount.Shift(2).Round(0).IntPart()
}
