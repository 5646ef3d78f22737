package telegram

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

//go:generate go run go.uber.org/mock/mockgen -source=telegram.go -destination=mocks/mock.go
type Client interface {
	GetUpdatesChan(u tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)

	SendMessage(chatID int64, text string) (int, error)
	SendMarkdown(chatID int64, text string, markup *tgbotapi.InlineKeyboardMarkup) (int, error)
	EditMessageText(chatID int64, messageID int, newText string) error
	EditMarkdown(chatID int64, messageID int, text string, markup *tgbotapi.InlineKeyboardMarkup) error
	SendMediaGroup(chatID int64, media []interface{}) error
	DownloadFile(ctx context.Context, fileID string) ([]byte, error)

	SendMessageToUser(message string)
}
