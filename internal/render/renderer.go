package render

import (
	"context"
	"fmt"
	"path"
	"slices"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/samber/lo"
	"go.uber.org/fx"

	"github.com/orgball2608/social-feed-bot/internal/domain"
	"github.com/orgball2608/social-feed-bot/internal/feed"
	"github.com/orgball2608/social-feed-bot/internal/telegram"
	"github.com/orgball2608/social-feed-bot/pkg/config"
	"github.com/orgball2608/social-feed-bot/pkg/logger"
)

type Opts struct {
	fx.In

	Telegram   telegram.Client
	Reconciler *feed.Reconciler
	Config     *config.Config
	Logger     logger.Logger
}

// Renderer mirrors the feed into one Telegram chat: one message per card,
// a placeholder while the card loads and the full card once hydrated.
// Updates are queued per post and only the latest state of a post is
// rendered.
type Renderer struct {
	tg         telegram.Client
	reconciler *feed.Reconciler
	logger     logger.Logger
	now        func() time.Time

	queueMu sync.Mutex
	pending map[int64]domain.CardState
	order   []int64
	removed []int64
	wake    chan struct{}

	mu        sync.Mutex
	chatID    int64
	messages  map[int64]int
	mediaSent map[int64]string
}

func New(opts Opts) *Renderer {
	r := &Renderer{
		tg:         opts.Telegram,
		reconciler: opts.Reconciler,
		logger:     opts.Logger.WithComponent("Renderer"),
		now:        time.Now,
		pending:    make(map[int64]domain.CardState),
		wake:       make(chan struct{}, 1),
		chatID:     opts.Config.Telegram.User,
		messages:   make(map[int64]int),
		mediaSent:  make(map[int64]string),
	}
	opts.Reconciler.Subscribe(r.enqueue)
	opts.Reconciler.SubscribeRemovals(r.enqueueRemovals)
	return r
}

// Attach moves rendering to chatID and renders the whole feed there, oldest
// post first so the newest ends up at the bottom of the chat.
func (r *Renderer) Attach(chatID int64) {
	r.mu.Lock()
	r.chatID = chatID
	r.messages = make(map[int64]int)
	r.mediaSent = make(map[int64]string)
	r.mu.Unlock()

	snapshot := r.reconciler.Snapshot()
	slices.Reverse(snapshot)
	for _, state := range snapshot {
		r.enqueue(state)
	}
	r.logger.Info("Renderer attached", "chatID", chatID, "cards", len(snapshot))
}

func (r *Renderer) ChatID() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.chatID
}

func (r *Renderer) enqueue(state domain.CardState) {
	id := state.ViewModel.PostID

	r.queueMu.Lock()
	if _, queued := r.pending[id]; !queued {
		r.order = append(r.order, id)
	}
	r.pending[id] = state
	r.queueMu.Unlock()

	select {
	case r.wake <- struct{}{}:
	default:
	}
}

// enqueueRemovals drops queued states of posts that left the feed and
// queues their messages for deletion.
func (r *Renderer) enqueueRemovals(ids []int64) {
	r.queueMu.Lock()
	for _, id := range ids {
		delete(r.pending, id)
	}
	r.order = lo.Without(r.order, ids...)
	r.removed = append(r.removed, ids...)
	r.queueMu.Unlock()

	select {
	case r.wake <- struct{}{}:
	default:
	}
}

func (r *Renderer) takeRemovals() []int64 {
	r.queueMu.Lock()
	defer r.queueMu.Unlock()
	ids := r.removed
	r.removed = nil
	return ids
}

func (r *Renderer) next() (domain.CardState, bool) {
	r.queueMu.Lock()
	defer r.queueMu.Unlock()
	if len(r.order) == 0 {
		return domain.CardState{}, false
	}
	id := r.order[0]
	r.order = r.order[1:]
	state := r.pending[id]
	delete(r.pending, id)
	return state, true
}

// Run renders queued card states until ctx is done.
func (r *Renderer) Run(ctx context.Context) {
	r.logger.Info("Renderer started", "chatID", r.ChatID())
	for {
		select {
		case <-ctx.Done():
			r.logger.Info("Renderer stopped")
			return
		case <-r.wake:
			for _, id := range r.takeRemovals() {
				r.prune(id)
			}
			for {
				state, ok := r.next()
				if !ok {
					break
				}
				r.render(state)
			}
		}
	}
}

func (r *Renderer) render(state domain.CardState) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.chatID == 0 {
		return
	}
	id := state.ViewModel.PostID

	text := Card(state, r.now())
	markup := Keyboard(state)

	msgID, exists := r.messages[id]
	if exists {
		if err := r.tg.EditMarkdown(r.chatID, msgID, text, markup); err != nil {
			r.logger.Warn("Failed to update card", "post_id", id, "error", err)
		}
	} else {
		sent, err := r.tg.SendMarkdown(r.chatID, text, markup)
		if err != nil {
			r.logger.Warn("Failed to send card", "post_id", id, "error", err)
			return
		}
		r.messages[id] = sent
	}

	if state.Phase != domain.PhaseHydrated || len(state.ViewModel.ResolvedBlobs) == 0 {
		return
	}
	refs := strings.Join(lo.Map(state.ViewModel.ResolvedBlobs, func(b domain.DownloadedBlob, _ int) string { return b.Ref }), "\n")
	if r.mediaSent[id] == refs {
		return
	}
	if err := r.tg.SendMediaGroup(r.chatID, MediaGroup(state.ViewModel.ResolvedBlobs)); err != nil {
		r.logger.Warn("Failed to send card media", "post_id", id, "error", err)
	}
	r.mediaSent[id] = refs
}

// prune deletes the message of a post that left the feed and forgets it.
func (r *Renderer) prune(id int64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	msgID, ok := r.messages[id]
	delete(r.messages, id)
	delete(r.mediaSent, id)
	if !ok || r.chatID == 0 {
		return
	}
	if _, err := r.tg.Request(tgbotapi.NewDeleteMessage(r.chatID, msgID)); err != nil {
		r.logger.Warn("Failed to delete card of removed post", "post_id", id, "error", err)
	}
}

func fileName(b domain.DownloadedBlob, i int) string {
	if name := path.Base(b.Ref); name != "." && name != "/" && name != "" {
		return name
	}
	return fmt.Sprintf("media_%d", i)
}

func hasPrefix(s, prefix string) bool {
	return strings.HasPrefix(strings.ToLower(s), prefix)
}
