package commandimpl

import (
	"context"
	"fmt"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/orgball2608/social-feed-bot/internal/domain"
	"github.com/orgball2608/social-feed-bot/internal/render"
	"github.com/orgball2608/social-feed-bot/pkg/errors"
	"github.com/orgball2608/social-feed-bot/pkg/formatter"
)

func (c *CommandImpl) handleVoteCommand(ctx context.Context, chatID int64, args string, target domain.VoteState) error {
	usage := "/up <post_id>"
	switch target {
	case domain.VoteDown:
		usage = "/down <post_id>"
	case domain.VoteNone:
		usage = "/unvote <post_id>"
	}
	postID, ok := c.parsePostID(chatID, args, usage)
	if !ok {
		return nil
	}

	text, err := c.vote(ctx, postID, target)
	c.Telegram.SendMessage(chatID, text)
	return err
}

// vote casts target on a post of the feed and returns the text to show.
func (c *CommandImpl) vote(ctx context.Context, postID int64, target domain.VoteState) (string, error) {
	card, found := c.Reconciler.Card(postID)
	if !found {
		return fmt.Sprintf("Post #%d is not in the feed.", postID), nil
	}

	ctxWithTimeout, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	state, err := card.Vote(ctxWithTimeout, target)
	switch {
	case err == nil:
		return fmt.Sprintf("Vote recorded (%s). Reputation is now %s.", state.ViewModel.VoteState, formatter.FormatNumber(state.ViewModel.Reputation)), nil
	case errors.IsUnauthorized(err):
		return "🔒 Sign in with /login <token> to vote.", err
	case errors.Is(err, errors.ErrInvalidInput):
		return fmt.Sprintf("Post #%d is still loading, try again in a moment.", postID), err
	default:
		return "❌ Could not record your vote, please try again.", err
	}
}

func (c *CommandImpl) handleCallback(ctx context.Context, q *tgbotapi.CallbackQuery) {
	answer := ""
	defer func() {
		// Answering removes the loading animation on the button.
		if _, err := c.Telegram.Request(tgbotapi.NewCallback(q.ID, answer)); err != nil {
			c.Logger.Warn("Failed to answer callback", "error", err)
		}
	}()

	if !c.isOwner(q.From) {
		answer = "This bot only takes commands from its owner."
		return
	}
	var chatID int64
	if q.Message != nil && q.Message.Chat != nil {
		chatID = q.Message.Chat.ID
	}
	if !c.Limiter.Allow(chatID) {
		answer = "Too many commands, please slow down."
		return
	}

	data, err := render.DecodeCallback(q.Data)
	if err != nil {
		c.Logger.Error("Failed to decode callback data", "error", err)
		return
	}

	switch data.Action {
	case render.ActionVote:
		text, err := c.vote(ctx, data.PostID, domain.VoteStateFromValue(data.Value))
		if err != nil {
			c.Logger.Warn("Vote from button failed", "post_id", data.PostID, "error", err)
		}
		answer = text
	case render.ActionComments:
		card, found := c.Reconciler.Card(data.PostID)
		if !found {
			answer = fmt.Sprintf("Post #%d is not in the feed.", data.PostID)
			return
		}
		card.ToggleComments()
	default:
		c.Logger.Warn("Unknown callback action", "action", data.Action)
	}
}
