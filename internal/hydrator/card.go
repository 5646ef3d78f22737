package hydrator

import (
	"context"
	"sync"

	"github.com/orgball2608/social-feed-bot/internal/domain"
	"github.com/orgball2608/social-feed-bot/internal/session"
	"github.com/orgball2608/social-feed-bot/pkg/errors"
)

// Observer receives the card state after every change. Calls for one card
// are serialized.
type Observer func(state domain.CardState)

// cycleKey identifies the inputs a hydration cycle was dispatched with.
type cycleKey struct {
	postID int64
	token  string
}

// overlay holds the fields voting changes locally. It is never written back
// into the feed collection.
type overlay struct {
	reputation int
	vote       domain.VoteState
}

// Card owns the hydration state of one post.
type Card struct {
	hydrator *Hydrator
	observer Observer

	notifyMu sync.Mutex

	mu         sync.Mutex
	generation uint64
	key        cycleKey
	post       domain.Post
	cred       session.Credential
	phase      domain.Phase
	vm         domain.ViewModel
	overlay    overlay
	comments   bool
}

func NewCard(h *Hydrator, observer Observer) *Card {
	return &Card{hydrator: h, observer: observer}
}

// Load starts a new hydration cycle for post as seen by cred. The card is in
// Loading when Load returns. Results of any earlier cycle still in flight
// are dropped when they arrive. The returned channel is closed once this
// cycle has settled, whether it was committed or superseded.
func (c *Card) Load(ctx context.Context, post domain.Post, cred session.Credential) <-chan struct{} {
	c.mu.Lock()
	c.generation++
	gen := c.generation
	key := cycleKey{postID: post.ID, token: cred.Token}
	c.key = key
	c.post = post
	c.cred = cred
	c.phase = domain.PhaseLoading
	c.vm = baseViewModel(post)
	c.overlay = overlay{reputation: post.Reputation}
	c.mu.Unlock()

	c.notify()

	done := make(chan struct{})
	go func() {
		defer close(done)
		vm := c.hydrator.Hydrate(ctx, post, cred)
		if c.commit(gen, key, vm) {
			c.notify()
		}
	}()
	return done
}

func (c *Card) commit(gen uint64, key cycleKey, vm domain.ViewModel) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != c.generation || key != c.key {
		c.hydrator.logger.Debug("Dropping result of superseded cycle", "post_id", key.postID, "generation", gen)
		return false
	}
	c.vm = vm
	c.overlay = overlay{reputation: vm.Reputation, vote: vm.VoteState}
	c.phase = domain.PhaseHydrated
	return true
}

// State returns the current phase and view model with the overlay applied.
func (c *Card) State() domain.CardState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stateLocked()
}

func (c *Card) stateLocked() domain.CardState {
	vm := c.vm
	vm.DisplayLines = append([]string(nil), c.vm.DisplayLines...)
	vm.ResolvedBlobs = append([]domain.DownloadedBlob{}, c.vm.ResolvedBlobs...)
	vm.Reputation = c.overlay.reputation
	vm.VoteState = c.overlay.vote
	vm.CommentsVisible = c.comments
	return domain.CardState{Phase: c.phase, ViewModel: vm}
}

// Post returns the working copy of the post the current cycle was started
// with.
func (c *Card) Post() domain.Post {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.post
}

// ToggleComments flips the comments panel and returns the new visibility.
func (c *Card) ToggleComments() bool {
	c.mu.Lock()
	c.comments = !c.comments
	visible := c.comments
	c.mu.Unlock()

	c.notify()
	return visible
}

// Vote casts target for the card's viewer and overwrites the overlay with
// the reputation the server reports. A reply that arrives after a new cycle
// has started is dropped.
func (c *Card) Vote(ctx context.Context, target domain.VoteState) (domain.CardState, error) {
	c.mu.Lock()
	if c.phase != domain.PhaseHydrated {
		c.mu.Unlock()
		return domain.CardState{}, errors.WrapWithCode(errors.ErrInvalidInput, errors.CodeVoteCast, "post is still loading")
	}
	if c.cred.IsAnonymous() {
		c.mu.Unlock()
		return domain.CardState{}, errors.WrapWithCode(errors.ErrUnauthorized, errors.CodeVoteCast, "voting needs a credential")
	}
	gen := c.generation
	key := c.key
	c.mu.Unlock()

	reputation, err := c.hydrator.votes.CastVote(ctx, key.postID, key.token, target.Value())
	if err != nil {
		return c.State(), errors.WrapWithCode(err, errors.CodeVoteCast, "failed to cast vote")
	}

	c.mu.Lock()
	if gen != c.generation || key != c.key {
		state := c.stateLocked()
		c.mu.Unlock()
		return state, nil
	}
	c.overlay = overlay{reputation: reputation, vote: target}
	state := c.stateLocked()
	c.mu.Unlock()

	c.notify()
	return state, nil
}

func (c *Card) notify() {
	if c.observer == nil {
		return
	}
	c.notifyMu.Lock()
	defer c.notifyMu.Unlock()
	c.observer(c.State())
}
