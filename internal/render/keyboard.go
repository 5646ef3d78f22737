package render

import (
	"encoding/json"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/orgball2608/social-feed-bot/internal/domain"
)

const (
	ActionVote     = "vote"
	ActionComments = "comments"
)

// CallbackData is carried by the card buttons. Keys are short because
// Telegram caps callback data at 64 bytes.
type CallbackData struct {
	Action string `json:"a"`
	PostID int64  `json:"p"`
	Value  int    `json:"v,omitempty"`
}

func (d CallbackData) Encode() string {
	b, _ := json.Marshal(d)
	return string(b)
}

func DecodeCallback(data string) (CallbackData, error) {
	var d CallbackData
	if err := json.Unmarshal([]byte(data), &d); err != nil {
		return CallbackData{}, fmt.Errorf("failed to decode callback data: %w", err)
	}
	if d.Action == "" || d.PostID == 0 {
		return CallbackData{}, fmt.Errorf("incomplete callback data %q", data)
	}
	return d, nil
}

// Keyboard builds the voting and comments buttons of a hydrated card.
// Pressing the button of the vote already held withdraws it.
func Keyboard(state domain.CardState) *tgbotapi.InlineKeyboardMarkup {
	if state.Phase != domain.PhaseHydrated {
		return nil
	}
	vm := state.ViewModel

	up := CallbackData{Action: ActionVote, PostID: vm.PostID, Value: domain.VoteUp.Value()}
	upLabel := "👍"
	if vm.VoteState == domain.VoteUp {
		up.Value = domain.VoteNone.Value()
		upLabel = "👍 ✓"
	}
	down := CallbackData{Action: ActionVote, PostID: vm.PostID, Value: domain.VoteDown.Value()}
	downLabel := "👎"
	if vm.VoteState == domain.VoteDown {
		down.Value = domain.VoteNone.Value()
		downLabel = "👎 ✓"
	}

	commentsLabel := fmt.Sprintf("💬 Show comments (%d)", len(vm.Comments))
	if vm.CommentsVisible {
		commentsLabel = "💬 Hide comments"
	}

	markup := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(upLabel, up.Encode()),
			tgbotapi.NewInlineKeyboardButtonData(downLabel, down.Encode()),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(commentsLabel, CallbackData{Action: ActionComments, PostID: vm.PostID}.Encode()),
		),
	)
	return &markup
}

// MediaGroup turns resolved blobs into album items: images as photos,
// videos as videos, anything else as documents.
func MediaGroup(blobs []domain.DownloadedBlob) []interface{} {
	items := make([]interface{}, 0, len(blobs))
	for i, b := range blobs {
		file := tgbotapi.FileBytes{Name: fileName(b, i), Bytes: b.Data}
		switch {
		case hasPrefix(b.ContentType, "image/"):
			items = append(items, tgbotapi.NewInputMediaPhoto(file))
		case hasPrefix(b.ContentType, "video/"):
			items = append(items, tgbotapi.NewInputMediaVideo(file))
		default:
			items = append(items, tgbotapi.NewInputMediaDocument(file))
		}
	}
	return items
}
