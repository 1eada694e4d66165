package client

import "context"

// UploadAuth is handed to the browser so it can upload straight to the
// storage provider.
type UploadAuth struct {
	Token     string `json:"token"`
	Expire    int64  `json:"expire"`
	Signature string `json:"signature"`
	UploadURL string `json:"uploadUrl,omitempty"`
}

type AssetStorage interface {
	Name() string
	UploadAuth(ctx context.Context) (*UploadAuth, error)
	// DeleteFile succeeds when the file is already gone.
	DeleteFile(ctx context.Context, fileID string) error
}
