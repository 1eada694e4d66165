package client

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"snaptrade/internal/config"
	"snaptrade/internal/model"
	"time"
)

type razorpayClientImpl struct {
	httpClient    *http.Client
	baseApiURL    string
	keyID         string
	keySecret     string
	webhookSecret string
}

func NewRazorpayClient(cfg *config.Razorpay, timeout time.Duration) PaymentGateway {
	return &razorpayClientImpl{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseApiURL:    cfg.BaseApiURL,
		keyID:         cfg.KeyID,
		keySecret:     cfg.KeySecret,
		webhookSecret: cfg.WebhookSecret,
	}
}

func (c *razorpayClientImpl) Name() string {
	return "razorpay"
}

func (c *razorpayClientImpl) CreateOrder(ctx context.Context, in CreateOrderInput) (*GatewayOrder, error) {
	payload := model.RazorpayCreateOrderRequest{
		Amount:   ToMinorUnits(in.Amount),
		Currency: in.Currency,
		Receipt:  in.Receipt,
	}
	if in.Description != "" {
		payload.Notes = map[string]string{"description": in.Description}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal req payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseApiURL+"/v1/orders",
		bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("http new request: %w", err)
	}
	req.SetBasicAuth(c.keyID, c.keySecret)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("razorpay create order request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		var errBody model.RazorpayErrorBody
		if json.Unmarshal(b, &errBody) == nil && errBody.Error.Description != "" {
			return nil, fmt.Errorf("razorpay error %d: %s: %s", resp.StatusCode, errBody.Error.Code, errBody.Error.Description)
		}
		return nil, fmt.Errorf("razorpay error %d: %s", resp.StatusCode, string(b))
	}

	var result model.RazorpayOrder
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode razorpay response: %w", err)
	}
	if result.ID == "" {
		return nil, fmt.Errorf("razorpay response without order id")
	}

	return &GatewayOrder{
		ID:          result.ID,
		AmountMinor: result.Amount,
		Currency:    result.Currency,
	}, nil
}

// CaptureOrder is a no-op: orders are created with automatic capture.
func (c *razorpayClientImpl) CaptureOrder(ctx context.Context, gatewayOrderID string) error {
	return nil
}

func (c *razorpayClientImpl) ParseWebhook(ctx context.Context, headers http.Header, body []byte) (*WebhookEvent, error) {
	if !c.validSignature(body, headers.Get("X-Razorpay-Signature")) {
		return nil, ErrInvalidWebhookSignature
	}

	var payload model.RazorpayWebhookEvent
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidWebhookPayload, err)
	}

	event := &WebhookEvent{
		ID:   headers.Get("X-Razorpay-Event-Id"),
		Type: payload.Event,
	}
	if payload.Payload.Payment != nil {
		event.GatewayOrderID = payload.Payload.Payment.Entity.OrderID
		event.PaymentID = payload.Payload.Payment.Entity.ID
	}
	if event.GatewayOrderID == "" && payload.Payload.Order != nil {
		event.GatewayOrderID = payload.Payload.Order.Entity.ID
	}

	switch payload.Event {
	case "payment.captured", "order.paid":
		event.Outcome = WebhookPaid
	case "payment.failed":
		event.Outcome = WebhookFailed
	default:
		event.Outcome = WebhookIgnored
	}

	if event.ID == "" {
		event.ID = fmt.Sprintf("%s:%s:%s", payload.Event, event.GatewayOrderID, event.PaymentID)
	}

	return event, nil
}

func (c *razorpayClientImpl) validSignature(body []byte, signature string) bool {
	if c.webhookSecret == "" || signature == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(c.webhookSecret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}
