package blob

import (
	"context"

	"github.com/orgball2608/social-feed-bot/internal/domain"
)

//go:generate go run go.uber.org/mock/mockgen -source=blob.go -destination=mocks/mock.go
type Resolver interface {
	// FetchBlobs downloads every reference and returns the blobs in
	// reference order. Items that fail are left out; the call only fails
	// when nothing could be downloaded.
	FetchBlobs(ctx context.Context, refs []string) ([]domain.DownloadedBlob, error)
}
