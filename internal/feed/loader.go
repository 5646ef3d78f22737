package feed

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"
	"go.uber.org/fx"

	"github.com/orgball2608/social-feed-bot/internal/api"
	"github.com/orgball2608/social-feed-bot/pkg/config"
	"github.com/orgball2608/social-feed-bot/pkg/errors"
	"github.com/orgball2608/social-feed-bot/pkg/logger"
)

type LoaderOpts struct {
	fx.In

	Api        api.Client
	Reconciler *Reconciler
	Config     *config.Config
	Logger     logger.Logger
}

// Loader fetches the feed and hands it to the Reconciler.
type Loader struct {
	api        api.Client
	reconciler *Reconciler
	interval   time.Duration
	timeout    time.Duration
	logger     logger.Logger
}

func NewLoader(opts LoaderOpts) *Loader {
	return &Loader{
		api:        opts.Api,
		reconciler: opts.Reconciler,
		interval:   opts.Config.Feed.RefreshInterval,
		timeout:    opts.Config.Feed.RequestTimeout,
		logger:     opts.Logger.WithComponent("FeedLoader"),
	}
}

// Refresh replaces the feed with a fresh fetch. On failure the feed is left
// as it was and the error is returned; Refresh does not retry.
func (l *Loader) Refresh(ctx context.Context) error {
	cred := l.reconciler.Credential()
	posts, err := l.api.FetchPosts(ctx, cred.Token)
	if err != nil {
		l.logger.Error("Failed to fetch feed, keeping current posts", "error", err)
		return errors.WrapWithCode(err, errors.CodeFeedFetch, "feed refresh failed")
	}
	l.reconciler.ReplaceAll(posts)
	return nil
}

// ScheduleRefresh refreshes the feed now and then every configured interval
// until ctx is done.
func (l *Loader) ScheduleRefresh(ctx context.Context) error {
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return fmt.Errorf("failed to create scheduler: %w", err)
	}

	_, err = scheduler.NewJob(
		gocron.DurationJob(l.interval),
		gocron.NewTask(func() {
			if ctx.Err() != nil {
				l.logger.Info("Context cancelled, skipping feed refresh")
				return
			}
			taskCtx, cancel := context.WithTimeout(ctx, l.timeout)
			defer cancel()

			l.logger.Debug("Starting scheduled feed refresh")
			_ = l.Refresh(taskCtx)
		}),
		gocron.WithStartAt(gocron.WithStartImmediately()),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return fmt.Errorf("failed to schedule feed refresh: %w", err)
	}

	scheduler.Start()
	l.logger.Info("Feed refresh scheduled", "interval", l.interval.String())

	go func() {
		<-ctx.Done()
		l.logger.Info("Stopping feed refresh scheduler")
		if err := scheduler.Shutdown(); err != nil {
			l.logger.Error("Failed to shut down scheduler", "error", err)
		}
	}()

	return nil
}
