package client

import (
	"context"
	"errors"
	"fmt"
	"path"
	"snaptrade/internal/config"
	"time"

	"cloud.google.com/go/storage"
	"github.com/google/uuid"
	"google.golang.org/api/option"
)

type gcsClientImpl struct {
	client       *storage.Client
	bucket       string
	uploadPrefix string
	uploadTTL    time.Duration
}

func NewGCSClient(ctx context.Context, cfg *config.GCS) (AssetStorage, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("gcs bucket not configured")
	}

	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("storage.NewClient: %w", err)
	}

	return &gcsClientImpl{
		client:       client,
		bucket:       cfg.Bucket,
		uploadPrefix: cfg.UploadPrefix,
		uploadTTL:    cfg.UploadURLTTL,
	}, nil
}

func (c *gcsClientImpl) Name() string {
	return "gcs"
}

// UploadAuth issues a V4 signed PUT url for a fresh object. The object path
// doubles as the token and becomes the variant's file id.
func (c *gcsClientImpl) UploadAuth(ctx context.Context) (*UploadAuth, error) {
	ttl := c.uploadTTL
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	expires := time.Now().Add(ttl)
	objectPath := path.Join(c.uploadPrefix, uuid.NewString())

	uploadURL, err := c.client.Bucket(c.bucket).SignedURL(objectPath, &storage.SignedURLOptions{
		Scheme:  storage.SigningSchemeV4,
		Method:  "PUT",
		Expires: expires,
	})
	if err != nil {
		return nil, fmt.Errorf("sign gcs upload url: %w", err)
	}

	return &UploadAuth{
		Token:     objectPath,
		Expire:    expires.Unix(),
		UploadURL: uploadURL,
	}, nil
}

func (c *gcsClientImpl) DeleteFile(ctx context.Context, fileID string) error {
	err := c.client.Bucket(c.bucket).Object(fileID).Delete(ctx)
	if err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
		return fmt.Errorf("delete gcs object %s: %w", fileID, err)
	}
	return nil
}
