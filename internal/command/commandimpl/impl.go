package commandimpl

import (
	"sync"

	"go.uber.org/fx"

	"github.com/orgball2608/social-feed-bot/internal/command"
	"github.com/orgball2608/social-feed-bot/internal/composer"
	"github.com/orgball2608/social-feed-bot/internal/feed"
	"github.com/orgball2608/social-feed-bot/internal/ratelimit"
	"github.com/orgball2608/social-feed-bot/internal/render"
	"github.com/orgball2608/social-feed-bot/internal/telegram"
	"github.com/orgball2608/social-feed-bot/pkg/config"
	"github.com/orgball2608/social-feed-bot/pkg/logger"
)

type Opts struct {
	fx.In

	Telegram   telegram.Client
	Loader     *feed.Loader
	Reconciler *feed.Reconciler
	Composer   *composer.Composer
	Renderer   *render.Renderer
	Limiter    ratelimit.Limiter
	Logger     logger.Logger
	Config     *config.Config
}

type CommandImpl struct {
	Telegram   telegram.Client
	Loader     *feed.Loader
	Reconciler *feed.Reconciler
	Composer   *composer.Composer
	Renderer   *render.Renderer
	Limiter    ratelimit.Limiter
	Logger     logger.Logger
	Config     *config.Config

	// publishMu keeps one draft edit and publish sequence at a time.
	publishMu sync.Mutex
}

func New(opts Opts) *CommandImpl {
	return &CommandImpl{
		Telegram:   opts.Telegram,
		Loader:     opts.Loader,
		Reconciler: opts.Reconciler,
		Composer:   opts.Composer,
		Renderer:   opts.Renderer,
		Limiter:    opts.Limiter,
		Logger:     opts.Logger.WithComponent("Command"),
		Config:     opts.Config,
	}
}

var _ command.Client = (*CommandImpl)(nil)
