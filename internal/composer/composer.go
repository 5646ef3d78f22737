package composer

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"unicode/utf8"

	"go.uber.org/fx"

	"github.com/orgball2608/social-feed-bot/internal/api"
	"github.com/orgball2608/social-feed-bot/internal/domain"
	"github.com/orgball2608/social-feed-bot/internal/feed"
	"github.com/orgball2608/social-feed-bot/pkg/errors"
	"github.com/orgball2608/social-feed-bot/pkg/logger"
)

type Opts struct {
	fx.In

	Api        api.Client
	Reconciler *feed.Reconciler
	Logger     logger.Logger
}

// Composer holds the draft of the configured user and publishes it.
type Composer struct {
	api        api.Client
	reconciler *feed.Reconciler
	logger     logger.Logger

	mu    sync.Mutex
	draft domain.Draft
	// generation changes on every draft edit so a finished publish only
	// clears the draft it sent.
	generation uint64
}

func New(opts Opts) *Composer {
	return &Composer{
		api:        opts.Api,
		reconciler: opts.Reconciler,
		logger:     opts.Logger.WithComponent("Composer"),
	}
}

// SetContent replaces the draft text. Text longer than MaxDraftLength runes
// is rejected and the draft keeps its previous content.
func (c *Composer) SetContent(content string) error {
	if n := utf8.RuneCountInString(content); n > domain.MaxDraftLength {
		return errors.WrapWithCode(errors.ErrInvalidInput, errors.CodeInvalidInput,
			fmt.Sprintf("post is %d characters, the limit is %d", n, domain.MaxDraftLength))
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.draft.Content = content
	c.generation++
	return nil
}

// AttachFiles replaces the draft attachments.
func (c *Composer) AttachFiles(files ...domain.File) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.draft.Files = append([]domain.File(nil), files...)
	c.generation++
}

// SetThread makes the draft a reply to parent. Zero clears it.
func (c *Composer) SetThread(parent int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.draft.Thread = parent
	c.generation++
}

func (c *Composer) Draft() domain.Draft {
	d, _ := c.snapshot()
	return d
}

func (c *Composer) snapshot() (domain.Draft, uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	d := c.draft
	d.Files = append([]domain.File(nil), c.draft.Files...)
	return d, c.generation
}

func (c *Composer) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.draft = domain.Draft{}
	c.generation++
}

// resetIfUnchanged clears the draft unless it was edited after generation.
func (c *Composer) resetIfUnchanged(generation uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.generation != generation {
		return false
	}
	c.draft = domain.Draft{}
	c.generation++
	return true
}

// Publish sends the draft. On success the post is prepended to the feed and
// the draft is cleared, unless it was edited while the request was in
// flight. On failure the draft is left untouched.
func (c *Composer) Publish(ctx context.Context) (domain.Post, error) {
	cred := c.reconciler.Credential()
	if cred.IsAnonymous() {
		return domain.Post{}, errors.WrapWithCode(errors.ErrUnauthorized, errors.CodeUnauthorized, "publishing needs a credential")
	}

	draft, generation := c.snapshot()
	if strings.TrimSpace(draft.Content) == "" && len(draft.Files) == 0 {
		return domain.Post{}, errors.WrapWithCode(errors.ErrInvalidInput, errors.CodeInvalidInput, "nothing to publish")
	}

	post, err := c.api.Publish(ctx, cred.Token, domain.PublishRequest{
		Content: draft.Content,
		Files:   draft.Files,
		Thread:  draft.Thread,
	})
	if err != nil {
		c.logger.Error("Failed to publish post, keeping draft", "thread", draft.Thread, "error", err)
		return domain.Post{}, errors.WrapWithCode(err, errors.CodePublishFailed, "failed to publish post")
	}

	posts := c.reconciler.Prepend(post)
	if !c.resetIfUnchanged(generation) {
		c.logger.Info("Draft edited during publish, keeping it", "post_id", post.ID)
	}
	return posts[0], nil
}
