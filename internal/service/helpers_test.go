package service

import (
	"context"
	"fmt"
	"net/http"
	"snaptrade/internal/client"
	"snaptrade/internal/model"
	"snaptrade/internal/repository"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var (
	admin   = &model.Requester{ID: "u1", Email: "admin@example.com", Role: "admin"}
	admin2  = &model.Requester{ID: "u3", Email: "other-admin@example.com", Role: "admin"}
	shopper = &model.Requester{ID: "u2", Email: "buyer@example.com", Role: "user"}
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, client.Migrate(db))
	return db
}

type fakeGateway struct {
	mu        sync.Mutex
	created   []client.CreateOrderInput
	captured  []string
	createErr error
	delay     time.Duration
	event     *client.WebhookEvent
	parseErr  error
}

func (f *fakeGateway) Name() string { return "fake" }

func (f *fakeGateway) CreateOrder(ctx context.Context, in client.CreateOrderInput) (*client.GatewayOrder, error) {
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.createErr != nil {
		return nil, f.createErr
	}
	f.created = append(f.created, in)
	id := fmt.Sprintf("order_%d", len(f.created))
	return &client.GatewayOrder{
		ID:          id,
		AmountMinor: client.ToMinorUnits(in.Amount),
		Currency:    in.Currency,
		ApproveURL:  "https://pay.example/approve/" + id,
	}, nil
}

func (f *fakeGateway) CaptureOrder(ctx context.Context, gatewayOrderID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.captured = append(f.captured, gatewayOrderID)
	return nil
}

func (f *fakeGateway) ParseWebhook(ctx context.Context, headers http.Header, body []byte) (*client.WebhookEvent, error) {
	if f.parseErr != nil {
		return nil, f.parseErr
	}
	return f.event, nil
}

func (f *fakeGateway) createdCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.created)
}

type fakeStorage struct {
	mu      sync.Mutex
	deleted []string
	failing map[string]bool
}

func (f *fakeStorage) Name() string { return "fake" }

func (f *fakeStorage) UploadAuth(ctx context.Context) (*client.UploadAuth, error) {
	return &client.UploadAuth{Token: "tok", Expire: 1, Signature: "sig"}, nil
}

func (f *fakeStorage) DeleteFile(ctx context.Context, fileID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failing[fileID] {
		return fmt.Errorf("storage unavailable")
	}
	f.deleted = append(f.deleted, fileID)
	return nil
}

func (f *fakeStorage) setFailing(fileIDs ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failing = make(map[string]bool, len(fileIDs))
	for _, id := range fileIDs {
		f.failing[id] = true
	}
}

func (f *fakeStorage) deletedFiles() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.deleted...)
}

type fixture struct {
	db          *gorm.DB
	gateway     *fakeGateway
	storage     *fakeStorage
	productRepo repository.ProductRepository
	orderRepo   repository.OrderRepository
	cleanupRepo repository.AssetCleanupRepository
	assets      AssetService
	products    ProductService
	checkout    CheckoutService
}

func newFixture(t *testing.T, opts CheckoutOptions) *fixture {
	t.Helper()

	db := newTestDB(t)
	f := &fixture{
		db:          db,
		gateway:     &fakeGateway{},
		storage:     &fakeStorage{},
		productRepo: repository.NewProductRepository(db),
		orderRepo:   repository.NewOrderRepository(db),
		cleanupRepo: repository.NewAssetCleanupRepository(db),
	}

	policy := NewPolicy("admin")
	log := zap.NewNop()

	f.assets = NewAssetService(f.storage, f.cleanupRepo, policy, log, AssetServiceOptions{
		DeleteConcurrency: 2,
		MaxAttempts:       3,
		BatchSize:         10,
	})
	f.products = NewProductService(f.productRepo, f.assets, policy, log)
	f.checkout = NewCheckoutService(
		db, f.gateway,
		f.productRepo, f.orderRepo,
		repository.NewWebhookEventRepository(db),
		policy, log, opts,
	)

	t.Cleanup(f.assets.Wait)
	return f
}
