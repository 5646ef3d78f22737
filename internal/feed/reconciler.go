package feed

import (
	"context"
	"sync"

	"github.com/samber/lo"
	"go.uber.org/fx"

	"github.com/orgball2608/social-feed-bot/internal/domain"
	"github.com/orgball2608/social-feed-bot/internal/hydrator"
	"github.com/orgball2608/social-feed-bot/internal/session"
	"github.com/orgball2608/social-feed-bot/pkg/logger"
)

type Opts struct {
	fx.In
	LC fx.Lifecycle

	Hydrator   *hydrator.Hydrator
	Credential session.Credential
	Logger     logger.Logger
}

// Reconciler owns the ordered post collection and one card per post id.
// Cards read from the collection but never write to it.
type Reconciler struct {
	hydrator *hydrator.Hydrator
	logger   logger.Logger

	ctx    context.Context
	cancel context.CancelFunc

	// inflight counts cycles that have not settled. A counter under a
	// condition variable lets loads start while Wait is blocked.
	inflightMu   sync.Mutex
	inflightDone *sync.Cond
	inflight     int

	// writeMu serializes mutations so cycles start in the order the
	// mutations happened.
	writeMu sync.Mutex

	listenersMu sync.RWMutex
	listeners   []hydrator.Observer
	removals    []func(ids []int64)

	mu    sync.RWMutex
	cred  session.Credential
	posts []domain.Post
	cards map[int64]*hydrator.Card
}

func New(opts Opts) *Reconciler {
	ctx, cancel := context.WithCancel(context.Background())
	r := &Reconciler{
		hydrator: opts.Hydrator,
		logger:   opts.Logger.WithComponent("FeedReconciler"),
		ctx:      ctx,
		cancel:   cancel,
		cred:     opts.Credential,
		posts:    []domain.Post{},
		cards:    make(map[int64]*hydrator.Card),
	}
	r.inflightDone = sync.NewCond(&r.inflightMu)

	opts.LC.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			r.cancel()
			return r.drain(ctx)
		},
	})
	return r
}

// Subscribe registers fn for state changes of every card, current and future.
func (r *Reconciler) Subscribe(fn hydrator.Observer) {
	r.listenersMu.Lock()
	defer r.listenersMu.Unlock()
	r.listeners = append(r.listeners, fn)
}

// SubscribeRemovals registers fn for the ids of posts that leave the feed.
func (r *Reconciler) SubscribeRemovals(fn func(ids []int64)) {
	r.listenersMu.Lock()
	defer r.listenersMu.Unlock()
	r.removals = append(r.removals, fn)
}

func (r *Reconciler) dispatchRemovals(ids []int64) {
	if len(ids) == 0 {
		return
	}
	r.listenersMu.RLock()
	removals := r.removals
	r.listenersMu.RUnlock()
	for _, fn := range removals {
		fn(ids)
	}
}

func (r *Reconciler) dispatch(state domain.CardState) {
	r.listenersMu.RLock()
	listeners := r.listeners
	r.listenersMu.RUnlock()
	for _, fn := range listeners {
		fn(state)
	}
}

// ReplaceAll installs posts as the whole collection, in the order given.
// Cards of unchanged posts keep their hydrated state; changed and new posts
// start a hydration cycle and cards of vanished posts are dropped.
func (r *Reconciler) ReplaceAll(posts []domain.Post) []domain.Post {
	r.writeMu.Lock()
	defer r.writeMu.Unlock()

	unique := lo.UniqBy(posts, func(p domain.Post) int64 { return p.ID })
	if len(unique) != len(posts) {
		r.logger.Warn("Feed contained duplicate post ids, keeping first occurrence", "received", len(posts), "kept", len(unique))
	}

	r.mu.Lock()
	cards := make(map[int64]*hydrator.Card, len(unique))
	var pending []pendingLoad
	for _, post := range unique {
		card, ok := r.cards[post.ID]
		switch {
		case !ok:
			card = hydrator.NewCard(r.hydrator, r.dispatch)
			pending = append(pending, pendingLoad{card: card, post: post})
		case !card.Post().Equal(post):
			pending = append(pending, pendingLoad{card: card, post: post})
		}
		cards[post.ID] = card
	}
	var removed []int64
	for id := range r.cards {
		if _, kept := cards[id]; !kept {
			removed = append(removed, id)
		}
	}
	r.cards = cards
	r.posts = unique
	cred := r.cred
	out := r.snapshotPosts()
	r.mu.Unlock()

	r.dispatchRemovals(removed)
	r.start(pending, cred)
	r.logger.Info("Feed replaced", "posts", len(unique), "hydrating", len(pending), "removed", len(removed))
	return out
}

// Prepend puts a freshly published post at the head of the collection. The
// publish response may leave out the author's display name, so it is taken
// from the credential, and a new post always starts at reputation 0.
func (r *Reconciler) Prepend(post domain.Post) []domain.Post {
	r.writeMu.Lock()
	defer r.writeMu.Unlock()

	r.mu.Lock()
	if r.cred.Claims.FullName != "" {
		post.FullName = r.cred.Claims.FullName
	}
	if post.Username == "" {
		post.Username = r.cred.Claims.Username
	}
	post.Reputation = 0

	rest := lo.Reject(r.posts, func(p domain.Post, _ int) bool { return p.ID == post.ID })
	r.posts = append([]domain.Post{post}, rest...)

	card, ok := r.cards[post.ID]
	if !ok {
		card = hydrator.NewCard(r.hydrator, r.dispatch)
		r.cards[post.ID] = card
	}
	cred := r.cred
	out := r.snapshotPosts()
	r.mu.Unlock()

	r.start([]pendingLoad{{card: card, post: post}}, cred)
	r.logger.Info("Post prepended", "post_id", post.ID, "posts", len(out))
	return out
}

// SetCredential switches the viewer. Every card starts a new cycle.
func (r *Reconciler) SetCredential(cred session.Credential) {
	r.writeMu.Lock()
	defer r.writeMu.Unlock()

	r.mu.Lock()
	r.cred = cred
	pending := lo.Map(r.posts, func(p domain.Post, _ int) pendingLoad {
		return pendingLoad{card: r.cards[p.ID], post: p}
	})
	r.mu.Unlock()

	r.start(pending, cred)
	r.logger.Info("Credential changed, re-hydrating feed", "anonymous", cred.IsAnonymous(), "posts", len(pending))
}

func (r *Reconciler) Credential() session.Credential {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.cred
}

type pendingLoad struct {
	card *hydrator.Card
	post domain.Post
}

// start runs outside r.mu: Card.Load notifies observers synchronously and
// observers may read the feed.
func (r *Reconciler) start(pending []pendingLoad, cred session.Credential) {
	for _, p := range pending {
		r.inflightMu.Lock()
		r.inflight++
		r.inflightMu.Unlock()

		done := p.card.Load(r.ctx, p.post, cred)
		go func() {
			<-done
			r.inflightMu.Lock()
			r.inflight--
			if r.inflight == 0 {
				r.inflightDone.Broadcast()
			}
			r.inflightMu.Unlock()
		}()
	}
}

// Wait blocks until no hydration cycle is in flight, including cycles
// started while it waits. It is safe to call concurrently with mutations.
func (r *Reconciler) Wait() {
	r.inflightMu.Lock()
	defer r.inflightMu.Unlock()
	for r.inflight > 0 {
		r.inflightDone.Wait()
	}
}

// drain waits for in-flight cycles on shutdown, giving up when ctx is done.
func (r *Reconciler) drain(ctx context.Context) error {
	idle := make(chan struct{})
	go func() {
		r.Wait()
		close(idle)
	}()

	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		r.logger.Warn("Stopped before every card settled", "error", ctx.Err())
		return ctx.Err()
	}
}

func (r *Reconciler) Posts() []domain.Post {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.snapshotPosts()
}

func (r *Reconciler) snapshotPosts() []domain.Post {
	return append([]domain.Post(nil), r.posts...)
}

func (r *Reconciler) Card(id int64) (*hydrator.Card, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	card, ok := r.cards[id]
	return card, ok
}

// Snapshot returns the state of every card in feed order.
func (r *Reconciler) Snapshot() []domain.CardState {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return lo.Map(r.posts, func(p domain.Post, _ int) domain.CardState {
		return r.cards[p.ID].State()
	})
}
