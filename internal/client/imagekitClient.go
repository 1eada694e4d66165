package client

import (
	"context"
	"crypto/hmac"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"snaptrade/internal/config"
	"strconv"
	"time"

	"github.com/google/uuid"
)

type imagekitClientImpl struct {
	httpClient *http.Client
	baseApiURL string
	privateKey string
	tokenTTL   time.Duration
	now        func() time.Time
}

func NewImageKitClient(cfg *config.ImageKit) AssetStorage {
	return &imagekitClientImpl{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		baseApiURL: cfg.BaseApiURL,
		privateKey: cfg.PrivateKey,
		tokenTTL:   cfg.TokenTTL,
		now:        time.Now,
	}
}

func (c *imagekitClientImpl) Name() string {
	return "imagekit"
}

// UploadAuth signs token+expire with the private key (HMAC-SHA1, hex), the
// scheme ImageKit's client-side upload expects. ImageKit rejects expiries more
// than an hour out.
func (c *imagekitClientImpl) UploadAuth(ctx context.Context) (*UploadAuth, error) {
	if c.privateKey == "" {
		return nil, fmt.Errorf("imagekit private key not configured")
	}

	ttl := c.tokenTTL
	if ttl <= 0 || ttl > time.Hour {
		ttl = 30 * time.Minute
	}

	token := uuid.NewString()
	expire := c.now().Add(ttl).Unix()

	mac := hmac.New(sha1.New, []byte(c.privateKey))
	mac.Write([]byte(token + strconv.FormatInt(expire, 10)))

	return &UploadAuth{
		Token:     token,
		Expire:    expire,
		Signature: hex.EncodeToString(mac.Sum(nil)),
	}, nil
}

func (c *imagekitClientImpl) DeleteFile(ctx context.Context, fileID string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete,
		c.baseApiURL+"/v1/files/"+url.PathEscape(fileID), nil)
	if err != nil {
		return fmt.Errorf("http new request: %w", err)
	}
	req.SetBasicAuth(c.privateKey, "")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("imagekit delete request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("imagekit delete error %d: %s", resp.StatusCode, string(b))
	}
	return nil
}
