package commandimpl

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/orgball2608/social-feed-bot/internal/domain"
	"github.com/orgball2608/social-feed-bot/pkg/errors"
)

func (c *CommandImpl) handlePost(ctx context.Context, chatID int64, args string, files []domain.File) error {
	content := strings.TrimSpace(args)
	if content == "" && len(files) == 0 {
		_, err := c.Telegram.SendMessage(chatID, "Please write something: /post <text>")
		return err
	}
	return c.publish(ctx, chatID, content, 0, files)
}

func (c *CommandImpl) handleReply(ctx context.Context, chatID int64, args string, files []domain.File) error {
	idArg, content, _ := strings.Cut(strings.TrimSpace(args), " ")
	parent, ok := c.parsePostID(chatID, idArg, "/reply <post_id> <text>")
	if !ok {
		return nil
	}
	content = strings.TrimSpace(content)
	if content == "" && len(files) == 0 {
		_, err := c.Telegram.SendMessage(chatID, "Please write something: /reply <post_id> <text>")
		return err
	}
	return c.publish(ctx, chatID, content, parent, files)
}

func (c *CommandImpl) publish(ctx context.Context, chatID int64, content string, thread int64, files []domain.File) error {
	c.publishMu.Lock()
	defer c.publishMu.Unlock()

	if err := c.Composer.SetContent(content); err != nil {
		_, sendErr := c.Telegram.SendMessage(chatID, "❌ "+errors.GetMessage(err))
		return sendErr
	}
	c.Composer.AttachFiles(files...)
	c.Composer.SetThread(thread)

	return c.publishDraft(ctx, chatID)
}

func (c *CommandImpl) publishDraft(ctx context.Context, chatID int64) error {
	ctxWithTimeout, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	post, err := c.Composer.Publish(ctxWithTimeout)
	if err != nil {
		c.Telegram.SendMessage(chatID, publishErrorMessage(err))
		return err
	}

	text := fmt.Sprintf("✅ Published post #%d.", post.ID)
	if post.ID != 0 && c.Renderer.ChatID() != chatID {
		text += " Use /feed to see it here."
	}
	_, err = c.Telegram.SendMessage(chatID, text)
	return err
}

func publishErrorMessage(err error) string {
	switch {
	case errors.IsUnauthorized(err) && errors.GetCode(err) == errors.CodeUnauthorized:
		return "🔒 Sign in with /login <token> before publishing."
	case errors.IsUnauthorized(err):
		return "🔒 The feed API rejected the token. Your draft is kept, sign in again with /login and use /retry."
	case errors.GetCode(err) == errors.CodeInvalidInput:
		return "❌ " + errors.GetMessage(err)
	default:
		return "❌ Could not publish your post. Your draft is kept, use /retry to try again or /discard to drop it."
	}
}

func (c *CommandImpl) handleDraft(chatID int64) error {
	draft := c.Composer.Draft()
	if draft.IsEmpty() {
		_, err := c.Telegram.SendMessage(chatID, "There is no draft.")
		return err
	}

	var sb strings.Builder
	sb.WriteString("📝 Draft")
	if draft.Thread != 0 {
		sb.WriteString(fmt.Sprintf(" (reply to #%d)", draft.Thread))
	}
	sb.WriteString(fmt.Sprintf(", %d/%d characters", utf8.RuneCountInString(draft.Content), domain.MaxDraftLength))
	if n := len(draft.Files); n > 0 {
		sb.WriteString(fmt.Sprintf(", %d attachment(s)", n))
	}
	sb.WriteString(":\n\n")
	sb.WriteString(draft.Content)

	_, err := c.Telegram.SendMessage(chatID, sb.String())
	return err
}

func (c *CommandImpl) handleRetry(ctx context.Context, chatID int64) error {
	if c.Composer.Draft().IsEmpty() {
		_, err := c.Telegram.SendMessage(chatID, "There is no draft to publish.")
		return err
	}

	c.publishMu.Lock()
	defer c.publishMu.Unlock()
	return c.publishDraft(ctx, chatID)
}

func hasAttachment(msg *tgbotapi.Message) bool {
	return len(msg.Photo) > 0 || msg.Document != nil
}

// downloadAttachments fetches the photo or document sent along with a
// command. For photos only the largest size is kept.
func (c *CommandImpl) downloadAttachments(ctx context.Context, msg *tgbotapi.Message) ([]domain.File, error) {
	ctxWithTimeout, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()

	var files []domain.File
	if n := len(msg.Photo); n > 0 {
		photo := msg.Photo[n-1]
		data, err := c.Telegram.DownloadFile(ctxWithTimeout, photo.FileID)
		if err != nil {
			return nil, err
		}
		files = append(files, domain.File{
			Name:        fmt.Sprintf("photo_%d.jpg", msg.MessageID),
			ContentType: "image/jpeg",
			Data:        data,
		})
	}

	if doc := msg.Document; doc != nil {
		data, err := c.Telegram.DownloadFile(ctxWithTimeout, doc.FileID)
		if err != nil {
			return nil, err
		}
		name := doc.FileName
		if name == "" {
			name = fmt.Sprintf("file_%d", msg.MessageID)
		}
		contentType := doc.MimeType
		if contentType == "" {
			contentType = http.DetectContentType(data)
		}
		files = append(files, domain.File{Name: name, ContentType: contentType, Data: data})
	}
	return files, nil
}
