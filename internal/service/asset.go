package service

import (
	"context"
	"fmt"
	"snaptrade/internal/apperror"
	"snaptrade/internal/client"
	"snaptrade/internal/model"
	"snaptrade/internal/repository"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const assetDeleteTimeout = 2 * time.Minute

type AssetService interface {
	UploadAuth(ctx context.Context, requester *model.Requester) (*client.UploadAuth, error)
	// ScheduleDelete removes files in the background. It never fails the caller.
	ScheduleDelete(ctx context.Context, productID string, fileIDs []string)
	DeleteFiles(ctx context.Context, productID string, fileIDs []string) error
	Reconcile(ctx context.Context) (resolved int, failed int, err error)
	Wait()
}

type assetServiceImpl struct {
	storage     client.AssetStorage
	cleanupRepo repository.AssetCleanupRepository
	policy      Policy
	logger      *zap.Logger
	concurrency int
	maxAttempts int
	batchSize   int
	wg          sync.WaitGroup
}

type AssetServiceOptions struct {
	DeleteConcurrency int
	MaxAttempts       int
	BatchSize         int
}

func NewAssetService(
	storage client.AssetStorage,
	cleanupRepo repository.AssetCleanupRepository,
	policy Policy,
	logger *zap.Logger,
	opts AssetServiceOptions,
) AssetService {
	if opts.DeleteConcurrency <= 0 {
		opts.DeleteConcurrency = 4
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 5
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 50
	}

	return &assetServiceImpl{
		storage:     storage,
		cleanupRepo: cleanupRepo,
		policy:      policy,
		logger:      logger,
		concurrency: opts.DeleteConcurrency,
		maxAttempts: opts.MaxAttempts,
		batchSize:   opts.BatchSize,
	}
}

func (s *assetServiceImpl) UploadAuth(ctx context.Context, requester *model.Requester) (*client.UploadAuth, error) {
	if err := s.policy.RequireSession(requester); err != nil {
		return nil, err
	}

	auth, err := s.storage.UploadAuth(ctx)
	if err != nil {
		s.logger.Error("issue upload credentials", zap.String("provider", s.storage.Name()), zap.Error(err))
		return nil, apperror.Wrap(apperror.KindStorage, "could not issue upload credentials", err)
	}
	return auth, nil
}

func (s *assetServiceImpl) ScheduleDelete(ctx context.Context, productID string, fileIDs []string) {
	if len(fileIDs) == 0 {
		return
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		bgCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), assetDeleteTimeout)
		defer cancel()

		_ = s.DeleteFiles(bgCtx, productID, fileIDs)
	}()
}

// DeleteFiles attempts every file even when some fail. Each failure is
// logged and written to the cleanup ledger for the reconciler.
func (s *assetServiceImpl) DeleteFiles(ctx context.Context, productID string, fileIDs []string) error {
	var g errgroup.Group
	g.SetLimit(s.concurrency)

	for _, fileID := range fileIDs {
		g.Go(func() error {
			err := s.storage.DeleteFile(ctx, fileID)
			if err == nil {
				return nil
			}

			s.logger.Warn("storage delete failed",
				zap.String("provider", s.storage.Name()),
				zap.String("product_id", productID),
				zap.String("file_id", fileID),
				zap.Error(err),
			)

			recordErr := s.cleanupRepo.Record(ctx, &model.AssetCleanup{
				FileID:    fileID,
				Provider:  s.storage.Name(),
				ProductID: productID,
				Attempts:  1,
				LastError: err.Error(),
			})
			if recordErr != nil {
				s.logger.Error("record asset cleanup",
					zap.String("file_id", fileID),
					zap.Error(recordErr),
				)
			}

			return apperror.Wrap(apperror.KindStorage, "could not delete asset", fmt.Errorf("file %s: %w", fileID, err))
		})
	}

	return g.Wait()
}

func (s *assetServiceImpl) Reconcile(ctx context.Context) (int, int, error) {
	cleanups, err := s.cleanupRepo.ListUnresolved(ctx, s.storage.Name(), s.maxAttempts, s.batchSize)
	if err != nil {
		return 0, 0, fmt.Errorf("list unresolved cleanups: %w", err)
	}

	var (
		mu       sync.Mutex
		resolved int
		failed   int
		g        errgroup.Group
	)
	g.SetLimit(s.concurrency)

	for _, cleanup := range cleanups {
		g.Go(func() error {
			if err := s.storage.DeleteFile(ctx, cleanup.FileID); err != nil {
				mu.Lock()
				failed++
				mu.Unlock()

				if cleanup.Attempts+1 >= s.maxAttempts {
					s.logger.Error("asset cleanup giving up",
						zap.String("file_id", cleanup.FileID),
						zap.Int("attempts", cleanup.Attempts+1),
						zap.Error(err),
					)
				}
				return s.cleanupRepo.MarkFailed(ctx, cleanup.ID, err.Error())
			}

			mu.Lock()
			resolved++
			mu.Unlock()
			return s.cleanupRepo.MarkResolved(ctx, cleanup.ID)
		})
	}

	if err := g.Wait(); err != nil {
		return resolved, failed, fmt.Errorf("update cleanup ledger: %w", err)
	}
	return resolved, failed, nil
}

func (s *assetServiceImpl) Wait() {
	s.wg.Wait()
}
