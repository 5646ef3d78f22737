package hydrator

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	mock_blob "github.com/orgball2608/social-feed-bot/internal/blob/mocks"
	"github.com/orgball2608/social-feed-bot/internal/domain"
	"github.com/orgball2608/social-feed-bot/internal/session"
	mock_vote "github.com/orgball2608/social-feed-bot/internal/vote/mocks"
	"github.com/orgball2608/social-feed-bot/pkg/errors"
	"github.com/orgball2608/social-feed-bot/pkg/logger"
)

type fixture struct {
	blobs    *mock_blob.MockResolver
	votes    *mock_vote.MockResolver
	hydrator *Hydrator
}

func newFixture(t *testing.T) fixture {
	ctrl := gomock.NewController(t)
	f := fixture{
		blobs: mock_blob.NewMockResolver(ctrl),
		votes: mock_vote.NewMockResolver(ctrl),
	}
	f.hydrator = New(Opts{Blobs: f.blobs, Votes: f.votes, Logger: logger.NewNop()})
	return f
}

var alice = session.Credential{Token: "tok-alice", Claims: session.Claims{FullName: "Alice A", Username: "alice"}}

func blobFor(ref string) domain.DownloadedBlob {
	return domain.DownloadedBlob{Ref: ref, ContentType: "image/png", Data: []byte(ref)}
}

func waitDone(t *testing.T, done <-chan struct{}) {
	t.Helper()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("hydration cycle did not settle")
	}
}

func TestHydrate_Scenario(t *testing.T) {
	f := newFixture(t)
	post := domain.Post{ID: 1, Content: "hello\nworld", Media: []string{"m1"}}

	f.blobs.EXPECT().FetchBlobs(gomock.Any(), []string{"m1"}).Return([]domain.DownloadedBlob{blobFor("m1")}, nil)
	f.votes.EXPECT().GetVoteState(gomock.Any(), int64(1), "tok-alice").Return(1, nil)

	vm := f.hydrator.Hydrate(context.Background(), post, alice)
	assert.Equal(t, []string{"hello", "world"}, vm.DisplayLines)
	assert.Equal(t, []domain.DownloadedBlob{blobFor("m1")}, vm.ResolvedBlobs)
	assert.Equal(t, domain.VoteUp, vm.VoteState)
}

func TestHydrate_NoMediaNoBlobCall(t *testing.T) {
	f := newFixture(t)
	f.votes.EXPECT().GetVoteState(gomock.Any(), int64(3), "tok-alice").Return(-1, nil)

	vm := f.hydrator.Hydrate(context.Background(), domain.Post{ID: 3, Content: "text only"}, alice)
	assert.Empty(t, vm.ResolvedBlobs)
	assert.Equal(t, domain.VoteDown, vm.VoteState)
}

func TestHydrate_AnonymousNoVoteCall(t *testing.T) {
	f := newFixture(t)
	f.blobs.EXPECT().FetchBlobs(gomock.Any(), []string{"m"}).Return([]domain.DownloadedBlob{blobFor("m")}, nil)

	vm := f.hydrator.Hydrate(context.Background(), domain.Post{ID: 4, Media: []string{"m"}}, session.Credential{})
	assert.Equal(t, domain.VoteNone, vm.VoteState)
	assert.Len(t, vm.ResolvedBlobs, 1)
}

func TestHydrate_BlobRejected(t *testing.T) {
	f := newFixture(t)
	f.blobs.EXPECT().FetchBlobs(gomock.Any(), []string{"m2"}).Return(nil, errors.ErrServiceUnavailable)
	f.votes.EXPECT().GetVoteState(gomock.Any(), int64(2), "tok-alice").Return(0, nil)

	card := NewCard(f.hydrator, nil)
	waitDone(t, card.Load(context.Background(), domain.Post{ID: 2, Media: []string{"m2"}}, alice))

	state := card.State()
	assert.Equal(t, domain.PhaseHydrated, state.Phase)
	assert.Empty(t, state.ViewModel.ResolvedBlobs)
}

func TestHydrate_VoteFailureIsNone(t *testing.T) {
	f := newFixture(t)
	f.votes.EXPECT().GetVoteState(gomock.Any(), int64(5), "tok-alice").Return(0, errors.ErrUnauthorized)

	vm := f.hydrator.Hydrate(context.Background(), domain.Post{ID: 5, Reputation: 7}, alice)
	assert.Equal(t, domain.VoteNone, vm.VoteState)
	assert.Equal(t, 7, vm.Reputation)
}

func TestHydrate_UnknownVoteValue(t *testing.T) {
	f := newFixture(t)
	f.votes.EXPECT().GetVoteState(gomock.Any(), int64(5), "tok-alice").Return(3, nil)

	vm := f.hydrator.Hydrate(context.Background(), domain.Post{ID: 5}, alice)
	assert.Equal(t, domain.VoteNone, vm.VoteState)
}

func TestHydrate_RecoversPanic(t *testing.T) {
	f := newFixture(t)
	f.blobs.EXPECT().FetchBlobs(gomock.Any(), gomock.Any()).DoAndReturn(
		func(context.Context, []string) ([]domain.DownloadedBlob, error) {
			panic("boom")
		})
	f.votes.EXPECT().GetVoteState(gomock.Any(), int64(6), "tok-alice").Return(1, nil)

	vm := f.hydrator.Hydrate(context.Background(), domain.Post{ID: 6, Media: []string{"m"}}, alice)
	assert.Empty(t, vm.ResolvedBlobs)
	assert.Equal(t, domain.VoteUp, vm.VoteState)
}

func TestHydrate_Idempotent(t *testing.T) {
	f := newFixture(t)
	post := domain.Post{ID: 8, Content: "a\nb", Media: []string{"m"}, Reputation: 2}
	f.blobs.EXPECT().FetchBlobs(gomock.Any(), []string{"m"}).Return([]domain.DownloadedBlob{blobFor("m")}, nil).Times(2)
	f.votes.EXPECT().GetVoteState(gomock.Any(), int64(8), "tok-alice").Return(-1, nil).Times(2)

	first := f.hydrator.Hydrate(context.Background(), post, alice)
	second := f.hydrator.Hydrate(context.Background(), post, alice)
	assert.Equal(t, first, second)
}

func TestHydrate_DisplayLinesRoundTrip(t *testing.T) {
	f := newFixture(t)
	for _, content := range []string{"", "one", "a\nb", "\n\n", "trailing\n", "x\n\ny"} {
		vm := f.hydrator.Hydrate(context.Background(), domain.Post{ID: 9, Content: content}, session.Credential{})
		assert.Equal(t, content, strings.Join(vm.DisplayLines, "\n"))
	}
}

func TestCard_LoadingThenHydrated(t *testing.T) {
	f := newFixture(t)
	release := make(chan struct{})
	f.votes.EXPECT().GetVoteState(gomock.Any(), int64(1), "tok-alice").DoAndReturn(
		func(context.Context, int64, string) (int, error) {
			<-release
			return 1, nil
		})

	var (
		mu     sync.Mutex
		phases []domain.Phase
	)
	card := NewCard(f.hydrator, func(state domain.CardState) {
		mu.Lock()
		defer mu.Unlock()
		phases = append(phases, state.Phase)
	})

	done := card.Load(context.Background(), domain.Post{ID: 1, Content: "hi", Reputation: 3}, alice)
	assert.Equal(t, domain.PhaseLoading, card.State().Phase)

	close(release)
	waitDone(t, done)

	state := card.State()
	assert.Equal(t, domain.PhaseHydrated, state.Phase)
	assert.Equal(t, domain.VoteUp, state.ViewModel.VoteState)
	assert.Equal(t, 3, state.ViewModel.Reputation)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []domain.Phase{domain.PhaseLoading, domain.PhaseHydrated}, phases)
}

func TestCard_StaleCycleDiscarded(t *testing.T) {
	f := newFixture(t)
	bob := session.Credential{Token: "tok-bob"}
	p1 := domain.Post{ID: 1, Content: "first", Media: []string{"m1"}}
	p2 := domain.Post{ID: 1, Content: "second\nedit", Media: []string{"m2"}}

	release := make(chan struct{})
	f.blobs.EXPECT().FetchBlobs(gomock.Any(), []string{"m1"}).DoAndReturn(
		func(context.Context, []string) ([]domain.DownloadedBlob, error) {
			<-release
			return []domain.DownloadedBlob{blobFor("m1")}, nil
		})
	f.votes.EXPECT().GetVoteState(gomock.Any(), int64(1), "tok-alice").DoAndReturn(
		func(context.Context, int64, string) (int, error) {
			<-release
			return 1, nil
		})
	f.blobs.EXPECT().FetchBlobs(gomock.Any(), []string{"m2"}).Return([]domain.DownloadedBlob{blobFor("m2")}, nil)
	f.votes.EXPECT().GetVoteState(gomock.Any(), int64(1), "tok-bob").Return(-1, nil)

	card := NewCard(f.hydrator, nil)
	first := card.Load(context.Background(), p1, alice)
	second := card.Load(context.Background(), p2, bob)
	waitDone(t, second)

	close(release)
	waitDone(t, first)

	state := card.State()
	assert.Equal(t, domain.PhaseHydrated, state.Phase)
	assert.Equal(t, []string{"second", "edit"}, state.ViewModel.DisplayLines)
	assert.Equal(t, []domain.DownloadedBlob{blobFor("m2")}, state.ViewModel.ResolvedBlobs)
	assert.Equal(t, domain.VoteDown, state.ViewModel.VoteState)
}

func TestCard_StaleCycleOfOtherPostDiscarded(t *testing.T) {
	f := newFixture(t)
	bob := session.Credential{Token: "tok-bob"}
	p1 := domain.Post{ID: 1, Content: "first", Media: []string{"m1"}, Reputation: 4}
	p2 := domain.Post{ID: 2, Content: "other post", Reputation: 9}

	release := make(chan struct{})
	f.blobs.EXPECT().FetchBlobs(gomock.Any(), []string{"m1"}).DoAndReturn(
		func(context.Context, []string) ([]domain.DownloadedBlob, error) {
			<-release
			return []domain.DownloadedBlob{blobFor("m1")}, nil
		})
	f.votes.EXPECT().GetVoteState(gomock.Any(), int64(1), "tok-alice").DoAndReturn(
		func(context.Context, int64, string) (int, error) {
			<-release
			return 1, nil
		})
	f.votes.EXPECT().GetVoteState(gomock.Any(), int64(2), "tok-bob").Return(0, nil)

	var mu sync.Mutex
	var seen []int64
	card := NewCard(f.hydrator, func(s domain.CardState) {
		mu.Lock()
		defer mu.Unlock()
		if s.Phase == domain.PhaseHydrated {
			seen = append(seen, s.ViewModel.PostID)
		}
	})
	first := card.Load(context.Background(), p1, alice)
	second := card.Load(context.Background(), p2, bob)
	waitDone(t, second)

	close(release)
	waitDone(t, first)

	state := card.State()
	assert.Equal(t, int64(2), state.ViewModel.PostID)
	assert.Equal(t, []string{"other post"}, state.ViewModel.DisplayLines)
	assert.Empty(t, state.ViewModel.ResolvedBlobs)
	assert.Equal(t, domain.VoteNone, state.ViewModel.VoteState)
	assert.Equal(t, 9, state.ViewModel.Reputation)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []int64{2}, seen)
}

func TestCard_Vote(t *testing.T) {
	f := newFixture(t)
	f.votes.EXPECT().GetVoteState(gomock.Any(), int64(1), "tok-alice").Return(0, nil)
	f.votes.EXPECT().CastVote(gomock.Any(), int64(1), "tok-alice", 1).Return(6, nil)

	card := NewCard(f.hydrator, nil)
	post := domain.Post{ID: 1, Reputation: 5}
	waitDone(t, card.Load(context.Background(), post, alice))

	state, err := card.Vote(context.Background(), domain.VoteUp)
	require.NoError(t, err)
	assert.Equal(t, 6, state.ViewModel.Reputation)
	assert.Equal(t, domain.VoteUp, state.ViewModel.VoteState)
	assert.Equal(t, 5, card.Post().Reputation)
}

func TestCard_VoteFailureKeepsOverlay(t *testing.T) {
	f := newFixture(t)
	f.votes.EXPECT().GetVoteState(gomock.Any(), int64(1), "tok-alice").Return(-1, nil)
	f.votes.EXPECT().CastVote(gomock.Any(), int64(1), "tok-alice", 0).Return(0, errors.ErrServiceUnavailable)

	card := NewCard(f.hydrator, nil)
	waitDone(t, card.Load(context.Background(), domain.Post{ID: 1, Reputation: 2}, alice))

	state, err := card.Vote(context.Background(), domain.VoteNone)
	require.Error(t, err)
	assert.Equal(t, errors.CodeVoteCast, errors.GetCode(err))
	assert.Equal(t, 2, state.ViewModel.Reputation)
	assert.Equal(t, domain.VoteDown, state.ViewModel.VoteState)
}

func TestCard_VoteRejected(t *testing.T) {
	f := newFixture(t)
	card := NewCard(f.hydrator, nil)

	_, err := card.Vote(context.Background(), domain.VoteUp)
	assert.True(t, errors.Is(err, errors.ErrInvalidInput))

	waitDone(t, card.Load(context.Background(), domain.Post{ID: 1}, session.Credential{}))
	_, err = card.Vote(context.Background(), domain.VoteUp)
	assert.True(t, errors.IsUnauthorized(err))
}

func TestCard_ReloadResetsOverlay(t *testing.T) {
	f := newFixture(t)
	f.votes.EXPECT().GetVoteState(gomock.Any(), int64(1), "tok-alice").Return(0, nil)
	f.votes.EXPECT().CastVote(gomock.Any(), int64(1), "tok-alice", 1).Return(11, nil)
	f.votes.EXPECT().GetVoteState(gomock.Any(), int64(1), "tok-alice").Return(1, nil)

	card := NewCard(f.hydrator, nil)
	waitDone(t, card.Load(context.Background(), domain.Post{ID: 1, Reputation: 10}, alice))
	_, err := card.Vote(context.Background(), domain.VoteUp)
	require.NoError(t, err)

	waitDone(t, card.Load(context.Background(), domain.Post{ID: 1, Reputation: 20}, alice))
	state := card.State()
	assert.Equal(t, 20, state.ViewModel.Reputation)
	assert.Equal(t, domain.VoteUp, state.ViewModel.VoteState)
}

func TestCard_ToggleComments(t *testing.T) {
	f := newFixture(t)
	card := NewCard(f.hydrator, nil)
	comments := []domain.Comment{{Comment: "first!"}}
	waitDone(t, card.Load(context.Background(), domain.Post{ID: 1, Comments: comments}, session.Credential{}))

	assert.False(t, card.State().ViewModel.CommentsVisible)
	assert.True(t, card.ToggleComments())
	state := card.State()
	assert.True(t, state.ViewModel.CommentsVisible)
	assert.Equal(t, comments, state.ViewModel.Comments)
	assert.False(t, card.ToggleComments())
}
