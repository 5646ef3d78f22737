package apiimpl

import (
	"context"
	"encoding/json"
	"strconv"

	"github.com/orgball2608/social-feed-bot/pkg/errors"
)

type castVoteBody struct {
	Type int `json:"type"`
}

func votePath(postID int64) string {
	return "post/" + strconv.FormatInt(postID, 10) + "/vote"
}

func (a *ApiImpl) GetVoteState(ctx context.Context, token string, postID int64) (int, error) {
	var raw json.RawMessage
	if _, err := a.do(ctx, a.request(token).Get(votePath(postID)), &raw); err != nil {
		return 0, errors.WrapWithCode(err, errors.CodeVoteFetch, "failed to fetch vote state")
	}
	v, err := decodeVote(raw)
	if err != nil {
		return 0, errors.WrapWithCode(err, errors.CodeVoteFetch, "failed to decode vote state")
	}
	return v, nil
}

func (a *ApiImpl) CastVote(ctx context.Context, token string, postID int64, value int) (int, error) {
	var raw json.RawMessage
	s := a.request(token).Post(votePath(postID)).BodyJSON(castVoteBody{Type: value})
	if _, err := a.do(ctx, s, &raw); err != nil {
		return 0, errors.WrapWithCode(err, errors.CodeVoteCast, "failed to cast vote")
	}
	reputation, err := decodeReputation(raw)
	if err != nil {
		return 0, errors.WrapWithCode(err, errors.CodeVoteCast, "failed to decode vote response")
	}
	a.logger.Debug("Vote cast", "post_id", postID, "value", value, "reputation", reputation)
	return reputation, nil
}
