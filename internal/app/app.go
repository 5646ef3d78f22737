package app

import (
	"context"
	"time"

	"go.uber.org/fx"

	"github.com/orgball2608/social-feed-bot/internal/api"
	"github.com/orgball2608/social-feed-bot/internal/api/apiimpl"
	"github.com/orgball2608/social-feed-bot/internal/blob"
	"github.com/orgball2608/social-feed-bot/internal/blob/blobimpl"
	"github.com/orgball2608/social-feed-bot/internal/command"
	"github.com/orgball2608/social-feed-bot/internal/command/commandimpl"
	"github.com/orgball2608/social-feed-bot/internal/composer"
	"github.com/orgball2608/social-feed-bot/internal/feed"
	"github.com/orgball2608/social-feed-bot/internal/httpserver"
	"github.com/orgball2608/social-feed-bot/internal/hydrator"
	"github.com/orgball2608/social-feed-bot/internal/ratelimit"
	"github.com/orgball2608/social-feed-bot/internal/render"
	"github.com/orgball2608/social-feed-bot/internal/session"
	"github.com/orgball2608/social-feed-bot/internal/telegram"
	"github.com/orgball2608/social-feed-bot/internal/telegram/telegramimpl"
	"github.com/orgball2608/social-feed-bot/internal/vote"
	"github.com/orgball2608/social-feed-bot/internal/vote/voteimpl"
	"github.com/orgball2608/social-feed-bot/pkg/config"
	"github.com/orgball2608/social-feed-bot/pkg/logger"
	"github.com/orgball2608/social-feed-bot/pkg/tracing"
)

var Module = fx.Options(
	fx.Provide(
		config.New,
		logger.FxOption,
		newCredential,
	),
	fx.Invoke(tracing.New),
	fx.Provide(
		fx.Annotate(
			apiimpl.New,
			fx.As(new(api.Client)),
		), fx.Annotate(
			blobimpl.New,
			fx.As(new(blob.Resolver)),
		), fx.Annotate(
			voteimpl.New,
			fx.As(new(vote.Resolver)),
		),
		hydrator.New,
		feed.New,
		feed.NewLoader,
		composer.New,
	),
	fx.Provide(
		fx.Annotate(
			telegramimpl.New,
			fx.As(new(telegram.Client)),
		),
		fx.Annotate(
			newLimiter,
			fx.As(new(ratelimit.Limiter)),
		),
		render.New,
		fx.Annotate(
			commandimpl.New,
			fx.As(new(command.Client)),
		),
		httpserver.New,
	),
	fx.Invoke(run),
)

// newCredential reads the startup viewer from FEED_TOKEN. A missing or
// malformed token starts the bot as an anonymous viewer.
func newCredential(cfg *config.Config, log logger.Logger) session.Credential {
	return session.FromToken(cfg.Feed.Token, log)
}

func newLimiter(cfg *config.Config) *ratelimit.InMemoryLimiter {
	return ratelimit.NewInMemoryLimiter(cfg.Command.Requests, cfg.Command.Per, cfg.Command.Burst)
}

func run(lc fx.Lifecycle, log logger.Logger, tgClient telegram.Client, loader *feed.Loader,
	renderer *render.Renderer, cmdClient command.Client, _ *httpserver.Server) {
	ctx, cancel := context.WithCancel(context.Background())

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go renderer.Run(ctx)

			if err := loader.ScheduleRefresh(ctx); err != nil {
				log.Error("Schedule feed refresh error", "Error", err)
				tgClient.SendMessageToUser("Schedule feed refresh error: " + err.Error())
			}

			go func() {
				for ctx.Err() == nil {
					if err := cmdClient.HandleCommand(ctx); err != nil && ctx.Err() == nil {
						log.Error("Command error", "Error", err)
						tgClient.SendMessageToUser("Command error: " + err.Error())
						select {
						case <-ctx.Done():
						case <-time.After(5 * time.Second):
						}
					}
				}
			}()

			return nil
		},
		OnStop: func(context.Context) error {
			cancel()
			return nil
		},
	})
}
