package commandimpl

import (
	"context"
	"errors"
	"runtime/debug"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/orgball2608/social-feed-bot/internal/domain"
)

const helpMessage = `👋 Welcome to the feed bot!

FEED:
/feed - Refresh the feed and show it in this chat.
/comments <post_id> - Show or hide the comments of a post.

WRITING:
/post <text> - Publish a post. Send a photo or file with /post in the caption to attach it.
/reply <post_id> <text> - Publish a reply in the thread of a post.
/draft - Show the draft kept after a failed publish.
/retry - Publish the kept draft again.
/discard - Throw the kept draft away.

VOTING:
/up <post_id> - Upvote a post.
/down <post_id> - Downvote a post.
/unvote <post_id> - Withdraw your vote.

ACCOUNT:
/login <token> - Use another feed API token.
/logout - Continue as an anonymous viewer.
/whoami - Show who the bot acts as.

Type /help at any time to see this guide.`

func (c *CommandImpl) HandleCommand(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := c.Telegram.GetUpdatesChan(u)
	c.Logger.Info("Command handler started, listening for updates.")

	for {
		select {
		case <-ctx.Done():
			c.Logger.Info("Command handler shutting down.")
			c.Telegram.StopReceivingUpdates()
			return ctx.Err()
		case update, ok := <-updates:
			if !ok {
				c.Logger.Warn("Telegram updates channel closed unexpectedly.")
				return errors.New("telegram updates channel closed")
			}

			go func(u tgbotapi.Update) {
				defer func() {
					if r := recover(); r != nil {
						c.Logger.Error("Panic recovered while processing an update", "panic", r, "stack", string(debug.Stack()))
					}
				}()
				c.handleUpdate(ctx, u)
			}(update)
		}
	}
}

func (c *CommandImpl) handleUpdate(ctx context.Context, u tgbotapi.Update) {
	if u.CallbackQuery != nil {
		c.handleCallback(ctx, u.CallbackQuery)
		return
	}
	if u.Message == nil {
		return
	}

	msg := u.Message
	command, args, ok := commandOf(msg)
	if !ok {
		return
	}
	chatID := msg.Chat.ID

	c.Logger.Info("Command received", "from", fromName(msg.From), "command", command)

	if !c.Limiter.Allow(chatID) {
		c.Telegram.SendMessage(chatID, "⏳ Too many commands, please slow down.")
		return
	}
	if command != "help" && command != "start" && !c.isOwner(msg.From) {
		c.Telegram.SendMessage(chatID, "This bot only takes commands from its owner.")
		return
	}

	var files []domain.File
	if hasAttachment(msg) {
		var err error
		files, err = c.downloadAttachments(ctx, msg)
		if err != nil {
			c.Logger.Error("Failed to download attachment", "error", err)
			c.Telegram.SendMessage(chatID, "❌ Could not download your attachment, please send it again.")
			return
		}
	}

	if err := c.processCommand(ctx, chatID, command, args, files); err != nil {
		c.Logger.Error("Error processing command",
			"command", command,
			"error", err)
	}
}

func (c *CommandImpl) processCommand(ctx context.Context, chatID int64, command, args string, files []domain.File) error {
	switch command {
	case "start", "help":
		_, err := c.Telegram.SendMessage(chatID, helpMessage)
		return err
	case "feed":
		return c.handleFeed(ctx, chatID)
	case "comments":
		return c.handleComments(chatID, args)
	case "post":
		return c.handlePost(ctx, chatID, args, files)
	case "reply":
		return c.handleReply(ctx, chatID, args, files)
	case "draft":
		return c.handleDraft(chatID)
	case "retry":
		return c.handleRetry(ctx, chatID)
	case "discard":
		c.Composer.Reset()
		_, err := c.Telegram.SendMessage(chatID, "🗑 Draft discarded.")
		return err
	case "up":
		return c.handleVoteCommand(ctx, chatID, args, domain.VoteUp)
	case "down":
		return c.handleVoteCommand(ctx, chatID, args, domain.VoteDown)
	case "unvote":
		return c.handleVoteCommand(ctx, chatID, args, domain.VoteNone)
	case "login":
		return c.handleLogin(ctx, chatID, args)
	case "logout":
		return c.handleLogout(ctx, chatID)
	case "whoami":
		return c.handleWhoAmI(chatID)
	default:
		_, err := c.Telegram.SendMessage(chatID, "Unknown command. Type /help to see the list of available commands.")
		return err
	}
}

// commandOf reads the command of a text message, or of the caption of a
// photo or document, which Telegram does not mark as a command.
func commandOf(msg *tgbotapi.Message) (command, args string, ok bool) {
	if msg.IsCommand() {
		return msg.Command(), msg.CommandArguments(), true
	}

	caption := strings.TrimSpace(msg.Caption)
	if !strings.HasPrefix(caption, "/") {
		return "", "", false
	}
	head, rest, _ := strings.Cut(caption[1:], " ")
	head, _, _ = strings.Cut(head, "@")
	if head == "" {
		return "", "", false
	}
	return strings.ToLower(head), strings.TrimSpace(rest), true
}

func (c *CommandImpl) isOwner(from *tgbotapi.User) bool {
	if c.Config.Telegram.User == 0 {
		return true
	}
	return from != nil && from.ID == c.Config.Telegram.User
}

func fromName(from *tgbotapi.User) string {
	if from == nil {
		return ""
	}
	return from.UserName
}
