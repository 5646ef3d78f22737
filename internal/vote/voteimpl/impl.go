package voteimpl

import (
	"context"

	"go.uber.org/fx"

	"github.com/orgball2608/social-feed-bot/internal/api"
	"github.com/orgball2608/social-feed-bot/internal/vote"
	"github.com/orgball2608/social-feed-bot/pkg/errors"
	"github.com/orgball2608/social-feed-bot/pkg/logger"
)

type Opts struct {
	fx.In

	Api    api.Client
	Logger logger.Logger
}

type VoteImpl struct {
	api    api.Client
	logger logger.Logger
}

func New(opts Opts) *VoteImpl {
	return &VoteImpl{
		api:    opts.Api,
		logger: opts.Logger.WithComponent("VoteResolver"),
	}
}

var _ vote.Resolver = (*VoteImpl)(nil)

func (v *VoteImpl) GetVoteState(ctx context.Context, postID int64, token string) (int, error) {
	if token == "" {
		return 0, errors.WrapWithCode(errors.ErrUnauthorized, errors.CodeVoteFetch, "vote state needs a credential")
	}
	value, err := v.api.GetVoteState(ctx, token, postID)
	if err != nil {
		return 0, err
	}
	return value, nil
}

func (v *VoteImpl) CastVote(ctx context.Context, postID int64, token string, value int) (int, error) {
	if token == "" {
		return 0, errors.WrapWithCode(errors.ErrUnauthorized, errors.CodeVoteCast, "voting needs a credential")
	}
	if value < -1 || value > 1 {
		return 0, errors.WrapWithCode(errors.ErrInvalidInput, errors.CodeVoteCast, "vote value must be -1, 0 or 1")
	}

	reputation, err := v.api.CastVote(ctx, token, postID, value)
	if err != nil {
		v.logger.Warn("Failed to cast vote", "post_id", postID, "value", value, "error", err)
		return 0, err
	}
	return reputation, nil
}
