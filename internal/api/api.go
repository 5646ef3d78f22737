package api

import (
	"context"

	"github.com/orgball2608/social-feed-bot/internal/domain"
)

// Client is the fetch-style transport to the feed REST API. Token is the raw
// bearer credential; an empty token sends no Authorization header.
//
//go:generate go run go.uber.org/mock/mockgen -source=api.go -destination=mocks/mock.go
type Client interface {
	// FetchPosts returns the feed in the order the API delivers it.
	FetchPosts(ctx context.Context, token string) ([]domain.Post, error)

	// Publish creates a post. The returned record may lack fields the API
	// does not echo back, such as the author display name.
	Publish(ctx context.Context, token string, req domain.PublishRequest) (domain.Post, error)

	// FetchBlob downloads the payload behind one media reference.
	FetchBlob(ctx context.Context, ref string) (domain.DownloadedBlob, error)

	// GetVoteState returns the raw vote value of the token owner on a post.
	GetVoteState(ctx context.Context, token string, postID int64) (int, error)

	// CastVote sets the vote value (1, -1 or 0) and returns the new reputation.
	CastVote(ctx context.Context, token string, postID int64, value int) (int, error)
}
