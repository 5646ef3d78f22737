package vote

import "context"

//go:generate go run go.uber.org/mock/mockgen -source=vote.go -destination=mocks/mock.go
type Resolver interface {
	// GetVoteState returns the raw vote value (1, -1 or 0) the token owner
	// holds on the post.
	GetVoteState(ctx context.Context, postID int64, token string) (int, error)

	// CastVote records value for the token owner and returns the post's
	// reputation afterwards.
	CastVote(ctx context.Context, postID int64, token string, value int) (int, error)
}
