package hydrator

import (
	"context"
	"fmt"

	"github.com/sourcegraph/conc"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"

	"github.com/orgball2608/social-feed-bot/internal/blob"
	"github.com/orgball2608/social-feed-bot/internal/domain"
	"github.com/orgball2608/social-feed-bot/internal/session"
	"github.com/orgball2608/social-feed-bot/internal/vote"
	"github.com/orgball2608/social-feed-bot/pkg/logger"
)

type Opts struct {
	fx.In

	Blobs  blob.Resolver
	Votes  vote.Resolver
	Logger logger.Logger
}

// Hydrator turns a post record into a render-ready view model.
type Hydrator struct {
	blobs  blob.Resolver
	votes  vote.Resolver
	tracer trace.Tracer
	logger logger.Logger
}

func New(opts Opts) *Hydrator {
	return &Hydrator{
		blobs:  opts.Blobs,
		votes:  opts.Votes,
		tracer: otel.Tracer("github.com/orgball2608/social-feed-bot/internal/hydrator"),
		logger: opts.Logger.WithComponent("Hydrator"),
	}
}

// Hydrate runs one hydration cycle. The blob and vote lookups are issued
// together and both settle before it returns. Either failing only degrades
// the result: no media, or no vote.
func (h *Hydrator) Hydrate(ctx context.Context, post domain.Post, cred session.Credential) domain.ViewModel {
	ctx, span := h.tracer.Start(ctx, "hydrator.Hydrate", trace.WithAttributes(
		attribute.Int64("post.id", post.ID),
		attribute.Int("post.media", len(post.Media)),
		attribute.Bool("viewer.anonymous", cred.IsAnonymous()),
	))
	defer span.End()

	vm := baseViewModel(post)

	var (
		blobs     []domain.DownloadedBlob
		voteState domain.VoteState
		wg        conc.WaitGroup
	)

	if post.HasMedia() {
		wg.Go(func() {
			resolved, err := h.blobs.FetchBlobs(ctx, post.Media)
			if err != nil {
				h.logger.Warn("Media unavailable, rendering without it", "post_id", post.ID, "error", err)
				return
			}
			blobs = resolved
		})
	}

	if !cred.IsAnonymous() {
		wg.Go(func() {
			value, err := h.votes.GetVoteState(ctx, post.ID, cred.Token)
			if err != nil {
				h.logger.Warn("Vote state unavailable, showing none", "post_id", post.ID, "error", err)
				return
			}
			voteState = domain.VoteStateFromValue(value)
		})
	}

	if recovered := wg.WaitAndRecover(); recovered != nil {
		h.logger.Error("Resolver panicked during hydration", "post_id", post.ID, "panic", fmt.Sprint(recovered.Value))
		span.RecordError(recovered.AsError())
	}

	if blobs != nil {
		vm.ResolvedBlobs = blobs
	}
	vm.VoteState = voteState

	span.SetAttributes(
		attribute.Int("hydrate.blobs", len(vm.ResolvedBlobs)),
		attribute.String("hydrate.vote", vm.VoteState.String()),
	)
	return vm
}

func baseViewModel(post domain.Post) domain.ViewModel {
	return domain.ViewModel{
		PostID:        post.ID,
		Author:        post.FullName,
		Username:      post.Username,
		CreatedAt:     post.CreatedAt,
		DisplayLines:  post.Lines(),
		ResolvedBlobs: []domain.DownloadedBlob{},
		VoteState:     domain.VoteNone,
		Reputation:    post.Reputation,
		Comments:      post.Comments,
	}
}
