package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"snaptrade/internal/config"
	"snaptrade/internal/model"
	"strings"
	"time"
)

type paypalClientImpl struct {
	httpClient         *http.Client
	baseApiURL         string
	paypalClientID     string
	paypalClientSecret string
	webhookID          string
}

func NewPaypalClient(paypalCfg *config.Paypal, timeout time.Duration) PaymentGateway {
	return &paypalClientImpl{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseApiURL:         paypalCfg.BaseApiURL,
		paypalClientID:     paypalCfg.ClientID,
		paypalClientSecret: paypalCfg.ClientSecret,
		webhookID:          paypalCfg.WebhookID,
	}
}

func (c *paypalClientImpl) Name() string {
	return "paypal"
}

func (c *paypalClientImpl) getAccessToken(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseApiURL+"/v1/oauth2/token",
		strings.NewReader(url.Values{"grant_type": {"client_credentials"}}.Encode()))
	if err != nil {
		return "", fmt.Errorf("http new request: %w", err)
	}
	req.SetBasicAuth(c.paypalClientID, c.paypalClientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("http client do: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("paypal oauth error %d: %s", resp.StatusCode, string(b))
	}

	var res struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return "", fmt.Errorf("decode oauth response: %w", err)
	}

	return res.AccessToken, nil
}

func (c *paypalClientImpl) doJSON(ctx context.Context, method, path string, payload any, out any) error {
	accessToken, err := c.getAccessToken(ctx)
	if err != nil {
		return fmt.Errorf("get paypal access token: %w", err)
	}

	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal req payload: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseApiURL+path, body)
	if err != nil {
		return fmt.Errorf("http new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("paypal request %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("paypal error %d: %s", resp.StatusCode, string(b))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode paypal response: %w", err)
	}
	return nil
}

func (c *paypalClientImpl) CreateOrder(ctx context.Context, in CreateOrderInput) (*GatewayOrder, error) {
	payload := model.PaypalCreateOrderRequest{
		Intent: "CAPTURE",
		PurchaseUnits: []model.PaypalPurchaseUnit{
			{
				ReferenceID: in.Receipt,
				CustomID:    in.Receipt,
				Description: in.Description,
				Amount: model.PaypalAmount{
					Currency: in.Currency,
					Value:    in.Amount.StringFixed(2),
				},
			},
		},
	}

	var result model.PaypalOrderResult
	if err := c.doJSON(ctx, http.MethodPost, "/v2/checkout/orders", payload, &result); err != nil {
		return nil, err
	}
	if result.ID == "" {
		return nil, fmt.Errorf("paypal response without order id")
	}

	return &GatewayOrder{
		ID:          result.ID,
		AmountMinor: ToMinorUnits(in.Amount),
		Currency:    in.Currency,
		ApproveURL:  _extractApproveURL(result.Links),
	}, nil
}

func (c *paypalClientImpl) CaptureOrder(ctx context.Context, gatewayOrderID string) error {
	path := fmt.Sprintf("/v2/checkout/orders/%s/capture", url.PathEscape(gatewayOrderID))
	if err := c.doJSON(ctx, http.MethodPost, path, nil, nil); err != nil {
		return fmt.Errorf("paypal capture order: %w", err)
	}
	return nil
}

func (c *paypalClientImpl) ParseWebhook(ctx context.Context, headers http.Header, body []byte) (*WebhookEvent, error) {
	var payload model.PayPalWebhookEvent
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidWebhookPayload, err)
	}

	// transport failures come back wrapped, not as ErrInvalidWebhookSignature
	if err := c.verifyWebhookSignature(ctx, headers, body); err != nil {
		return nil, err
	}

	event := &WebhookEvent{
		ID:   payload.ID,
		Type: payload.EventType,
	}

	switch payload.EventType {
	case "CHECKOUT.ORDER.APPROVED":
		event.Outcome = WebhookApproved
		event.GatewayOrderID = payload.Resource.ID
	case "PAYMENT.CAPTURE.COMPLETED":
		event.Outcome = WebhookPaid
		event.GatewayOrderID = payload.Resource.SupplementaryData.RelatedIDs.OrderID
		event.PaymentID = payload.Resource.ID
	case "PAYMENT.CAPTURE.DENIED", "PAYMENT.CAPTURE.DECLINED":
		event.Outcome = WebhookFailed
		event.GatewayOrderID = payload.Resource.SupplementaryData.RelatedIDs.OrderID
		event.PaymentID = payload.Resource.ID
	default:
		event.Outcome = WebhookIgnored
	}

	return event, nil
}

func (c *paypalClientImpl) verifyWebhookSignature(ctx context.Context, headers http.Header, body []byte) error {
	if c.webhookID == "" || headers.Get("PAYPAL-TRANSMISSION-SIG") == "" {
		return ErrInvalidWebhookSignature
	}

	payload := map[string]any{
		"auth_algo":         headers.Get("PAYPAL-AUTH-ALGO"),
		"cert_url":          headers.Get("PAYPAL-CERT-URL"),
		"transmission_id":   headers.Get("PAYPAL-TRANSMISSION-ID"),
		"transmission_sig":  headers.Get("PAYPAL-TRANSMISSION-SIG"),
		"transmission_time": headers.Get("PAYPAL-TRANSMISSION-TIME"),
		"webhook_id":        c.webhookID,
		"webhook_event":     json.RawMessage(body),
	}

	var result struct {
		VerificationStatus string `json:"verification_status"`
	}
	if err := c.doJSON(ctx, http.MethodPost, "/v1/notifications/verify-webhook-signature", payload, &result); err != nil {
		return fmt.Errorf("verify webhook signature: %w", err)
	}
	if result.VerificationStatus != "SUCCESS" {
		return ErrInvalidWebhookSignature
	}
	return nil
}

func _extractApproveURL(links []model.PaypalLink) string {
	for _, link := range links {
		if link.Rel == "approve" || link.Rel == "payer-action" {
			return link.Href
		}
	}
	return ""
}
