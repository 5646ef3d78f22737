package telegramimpl

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/orgball2608/social-feed-bot/pkg/logger"
)

// SendMessageToUser sends a text message to the configured user
func (tg *TelegramImpl) SendMessageToUser(message string) {
	if tg.Config.Telegram.User == 0 {
		tg.Logger.Debug("No user configured, dropping message")
		return
	}
	msg := tgbotapi.NewMessage(tg.Config.Telegram.User, message)
	_, err := tg.TgBot.Send(msg)
	if err != nil {
		tg.Logger.Error("Error sending message to user",
			"userID", tg.Config.Telegram.User,
			"error", err)
		return
	}

	tg.Logger.Info("Message sent to user",
		"userID", tg.Config.Telegram.User)
}

// SendMessage sends a plain text message to a specific chat ID
func (tg *TelegramImpl) SendMessage(chatID int64, text string) (int, error) {
	msg := tgbotapi.NewMessage(chatID, text)
	sentMsg, err := tg.TgBot.Send(msg)
	if err != nil {
		tg.Logger.Error("Error sending message",
			"chatID", chatID,
			"error", err)
		return 0, fmt.Errorf("failed to send message: %w", err)
	}

	tg.Logger.Debug("Message sent",
		"chatID", chatID,
		"messageID", sentMsg.MessageID)
	return sentMsg.MessageID, nil
}

// SendMarkdown sends a MarkdownV2 message, optionally with an inline keyboard
func (tg *TelegramImpl) SendMarkdown(chatID int64, text string, markup *tgbotapi.InlineKeyboardMarkup) (int, error) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdownV2
	msg.DisableWebPagePreview = true
	if markup != nil {
		msg.ReplyMarkup = *markup
	}

	sentMsg, err := tg.TgBot.Send(msg)
	if err != nil {
		tg.Logger.Error("Error sending markdown message",
			"chatID", chatID,
			"error", err)
		return 0, fmt.Errorf("failed to send message: %w", err)
	}
	return sentMsg.MessageID, nil
}

// EditMessageText replaces the text of a message sent earlier
func (tg *TelegramImpl) EditMessageText(chatID int64, messageID int, newText string) error {
	edit := tgbotapi.NewEditMessageText(chatID, messageID, newText)
	if _, err := tg.TgBot.Request(edit); err != nil {
		tg.Logger.Error("Error editing message",
			"chatID", chatID,
			"messageID", messageID,
			"error", err)
		return fmt.Errorf("failed to edit message: %w", err)
	}
	return nil
}

// EditMarkdown replaces text and keyboard of a message sent earlier
func (tg *TelegramImpl) EditMarkdown(chatID int64, messageID int, text string, markup *tgbotapi.InlineKeyboardMarkup) error {
	var edit tgbotapi.EditMessageTextConfig
	if markup != nil {
		edit = tgbotapi.NewEditMessageTextAndMarkup(chatID, messageID, text, *markup)
	} else {
		edit = tgbotapi.NewEditMessageText(chatID, messageID, text)
	}
	edit.ParseMode = tgbotapi.ModeMarkdownV2
	edit.DisableWebPagePreview = true

	if _, err := tg.TgBot.Request(edit); err != nil {
		if isNotModified(err) {
			return nil
		}
		tg.Logger.Error("Error editing markdown message",
			"chatID", chatID,
			"messageID", messageID,
			"error", err)
		return fmt.Errorf("failed to edit message: %w", err)
	}
	return nil
}

// SendMediaGroup sends an album. Telegram wants 2-10 items per group, so a
// single item goes out as a plain photo or document and longer lists are
// split.
func (tg *TelegramImpl) SendMediaGroup(chatID int64, media []interface{}) error {
	if len(media) == 0 {
		return nil
	}
	if len(media) == 1 {
		return tg.sendSingle(chatID, media[0])
	}

	for start := 0; start < len(media); start += 10 {
		end := min(start+10, len(media))
		chunk := media[start:end]
		if len(chunk) == 1 {
			if err := tg.sendSingle(chatID, chunk[0]); err != nil {
				return err
			}
			continue
		}
		if _, err := tg.TgBot.SendMediaGroup(tgbotapi.NewMediaGroup(chatID, chunk)); err != nil {
			tg.Logger.Error("Error sending media group",
				"chatID", chatID,
				"items", len(chunk),
				"error", err)
			return fmt.Errorf("failed to send media group: %w", err)
		}
	}
	return nil
}

func (tg *TelegramImpl) sendSingle(chatID int64, item interface{}) error {
	var c tgbotapi.Chattable
	switch m := item.(type) {
	case tgbotapi.InputMediaPhoto:
		photo := tgbotapi.NewPhoto(chatID, m.Media)
		photo.Caption = m.Caption
		c = photo
	case tgbotapi.InputMediaVideo:
		video := tgbotapi.NewVideo(chatID, m.Media)
		video.Caption = m.Caption
		c = video
	case tgbotapi.InputMediaDocument:
		doc := tgbotapi.NewDocument(chatID, m.Media)
		doc.Caption = m.Caption
		c = doc
	default:
		return fmt.Errorf("unsupported media item %T", item)
	}

	if _, err := tg.TgBot.Send(c); err != nil {
		tg.Logger.Error("Error sending media", "chatID", chatID, "error", err)
		return fmt.Errorf("failed to send media: %w", err)
	}
	return nil
}

// DownloadFile fetches a file a user sent to the bot
func (tg *TelegramImpl) DownloadFile(ctx context.Context, fileID string) ([]byte, error) {
	url, err := tg.TgBot.GetFileDirectURL(fileID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve file: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := tg.HttpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download file: %w", err)
	}
	defer safeClose(resp.Body, tg.Logger)

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to download file: status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("downloaded file %s is empty", fileID)
	}
	return data, nil
}

// GetUpdatesChan wraps the bot's GetUpdatesChan method
func (tg *TelegramImpl) GetUpdatesChan(u tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	return tg.TgBot.GetUpdatesChan(u)
}

func (tg *TelegramImpl) StopReceivingUpdates() {
	tg.TgBot.StopReceivingUpdates()
}

// Request sends a config that answers with a bare result, such as a callback answer
func (tg *TelegramImpl) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	return tg.TgBot.Request(c)
}

// Telegram rejects edits that leave a message unchanged; a re-render of an
// unchanged card is not an error for us.
func isNotModified(err error) bool {
	var tgErr *tgbotapi.Error
	if errors.As(err, &tgErr) {
		return strings.Contains(tgErr.Message, "message is not modified")
	}
	return strings.Contains(err.Error(), "message is not modified")
}

// safeClose safely closes an io.ReadCloser and logs any errors
func safeClose(closer io.ReadCloser, logger logger.Logger) {
	if err := closer.Close(); err != nil {
		logger.Error("Error closing response body", "error", err)
	}
}
