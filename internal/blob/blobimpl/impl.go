package blobimpl

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/samber/lo"
	"go.uber.org/fx"

	"github.com/orgball2608/social-feed-bot/internal/api"
	"github.com/orgball2608/social-feed-bot/internal/blob"
	"github.com/orgball2608/social-feed-bot/internal/domain"
	"github.com/orgball2608/social-feed-bot/pkg/config"
	"github.com/orgball2608/social-feed-bot/pkg/errors"
	"github.com/orgball2608/social-feed-bot/pkg/logger"
	"github.com/orgball2608/social-feed-bot/pkg/retry"
)

type Opts struct {
	fx.In
	LC fx.Lifecycle

	Api    api.Client
	Config *config.Config
	Logger logger.Logger
}

type BlobImpl struct {
	api      api.Client
	pool     *ants.Pool
	retryCfg retry.Config
	logger   logger.Logger
}

func New(opts Opts) (*BlobImpl, error) {
	pool, err := ants.NewPool(opts.Config.Media.Workers, ants.WithPreAlloc(true))
	if err != nil {
		return nil, fmt.Errorf("failed to create media pool: %w", err)
	}

	opts.LC.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return pool.ReleaseTimeout(5 * time.Second)
		},
	})

	cfg := retry.DefaultConfig()
	cfg.MaxRetries = opts.Config.Media.MaxRetries
	return NewWithPool(opts.Api, pool, cfg, opts.Logger), nil
}

// NewWithPool builds a resolver on an existing pool. The caller owns the pool.
func NewWithPool(client api.Client, pool *ants.Pool, cfg retry.Config, log logger.Logger) *BlobImpl {
	if cfg.Retryable == nil {
		cfg.Retryable = errors.IsRetryable
	}
	return &BlobImpl{
		api:      client,
		pool:     pool,
		retryCfg: cfg,
		logger:   log.WithComponent("BlobResolver"),
	}
}

var _ blob.Resolver = (*BlobImpl)(nil)

type result struct {
	blob domain.DownloadedBlob
	err  error
}

func (b *BlobImpl) FetchBlobs(ctx context.Context, refs []string) ([]domain.DownloadedBlob, error) {
	refs = lo.Compact(refs)
	if len(refs) == 0 {
		return []domain.DownloadedBlob{}, nil
	}

	results := make([]result, len(refs))
	var wg sync.WaitGroup
	for i, ref := range refs {
		wg.Add(1)
		i, ref := i, ref

		err := b.pool.Submit(func() {
			defer wg.Done()
			results[i] = b.fetchOne(ctx, ref)
		})
		if err != nil {
			wg.Done()
			results[i] = result{err: fmt.Errorf("failed to submit download: %w", err)}
		}
	}
	wg.Wait()

	blobs := make([]domain.DownloadedBlob, 0, len(refs))
	var lastErr error
	for i, r := range results {
		if r.err != nil {
			b.logger.Warn("Failed to fetch media", "ref", refs[i], "error", r.err)
			lastErr = r.err
			continue
		}
		blobs = append(blobs, r.blob)
	}

	if len(blobs) == 0 {
		return nil, errors.WrapWithCode(lastErr, errors.CodeMediaFetch, fmt.Sprintf("failed to fetch all %d media items", len(refs)))
	}
	return blobs, nil
}

func (b *BlobImpl) fetchOne(ctx context.Context, ref string) result {
	if ctx.Err() != nil {
		return result{err: ctx.Err()}
	}

	var out domain.DownloadedBlob
	err := retry.Do(ctx, b.logger, "fetch media "+ref, func() error {
		downloaded, err := b.api.FetchBlob(ctx, ref)
		if err != nil {
			return err
		}
		out = downloaded
		return nil
	}, b.retryCfg)
	if err != nil {
		return result{err: err}
	}
	return result{blob: out}
}
