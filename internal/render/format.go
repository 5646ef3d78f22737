package render

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf16"

	"github.com/orgball2608/social-feed-bot/internal/domain"
	"github.com/orgball2608/social-feed-bot/pkg/formatter"
)

const (
	// MaxMessageLength is Telegram's limit for a message after entity
	// parsing, in UTF-16 code units.
	MaxMessageLength = 4096

	maxContentLength = 3000
	// room kept for the "more comments" line
	moreCommentsReserve = 48
)

// Placeholder is all a card shows while it is loading.
func Placeholder(postID int64) string {
	return formatter.EscapeMarkdownV2(fmt.Sprintf("⏳ Loading post #%d...", postID))
}

// Card renders a hydrated card as MarkdownV2.
func Card(state domain.CardState, now time.Time) string {
	if state.Phase != domain.PhaseHydrated {
		return Placeholder(state.ViewModel.PostID)
	}
	vm := state.ViewModel
	esc := formatter.EscapeMarkdownV2

	var sb strings.Builder

	author := vm.Author
	if author == "" {
		author = vm.Username
	}
	if author == "" {
		author = "Unknown"
	}
	sb.WriteString("*" + esc(author) + "*")
	if vm.Username != "" {
		sb.WriteString(" " + esc("@"+vm.Username))
	}
	if ago := formatter.TimeAgo(vm.CreatedAt, now); ago != "" {
		sb.WriteString(" " + esc("· "+ago))
	}
	sb.WriteString(" " + esc(fmt.Sprintf("#%d", vm.PostID)))
	sb.WriteString("\n\n")

	sb.WriteString(esc(truncate(strings.Join(vm.DisplayLines, "\n"), maxContentLength)))

	if n := len(vm.ResolvedBlobs); n > 0 {
		sb.WriteString("\n\n" + esc(fmt.Sprintf("📎 %d attachment%s", n, plural(n))))
	}

	sb.WriteString("\n\n")
	sb.WriteString(esc(fmt.Sprintf("%s %s", voteIcon(vm.VoteState), formatter.FormatNumber(vm.Reputation))))
	sb.WriteString(" " + esc(fmt.Sprintf("· 💬 %d", len(vm.Comments))))

	if vm.CommentsVisible {
		sb.WriteString("\n")
		if len(vm.Comments) == 0 {
			sb.WriteString("\n_" + esc("No comments yet.") + "_")
		}
		size := visibleLen(sb.String())
		shown := 0
		for _, c := range vm.Comments {
			line := "└ " + c.Comment
			if ago := formatter.TimeAgo(c.CreatedAt, now); ago != "" {
				line += " (" + ago + ")"
			}
			line = "\n" + esc(line)
			n := visibleLen(line)
			if size+n+moreCommentsReserve > MaxMessageLength {
				break
			}
			sb.WriteString(line)
			size += n
			shown++
		}
		if hidden := len(vm.Comments) - shown; hidden > 0 {
			sb.WriteString("\n_" + esc(fmt.Sprintf("… and %d more comment%s", hidden, plural(hidden))) + "_")
		}
	}

	return sb.String()
}

// visibleLen counts what Telegram counts against MaxMessageLength: text
// after MarkdownV2 parsing, in UTF-16 code units. Card only leaves * and _
// unescaped as entity markers.
func visibleLen(markdown string) int {
	n := 0
	escaped := false
	for _, r := range markdown {
		switch {
		case escaped:
			escaped = false
		case r == '\\':
			escaped = true
			continue
		case r == '*' || r == '_':
			continue
		}
		n += utf16.RuneLen(r)
	}
	return n
}

// truncate cuts s to at most limit UTF-16 code units, ending in an ellipsis.
func truncate(s string, limit int) string {
	n := 0
	for _, r := range s {
		n += utf16.RuneLen(r)
	}
	if n <= limit {
		return s
	}
	n = 0
	for i, r := range s {
		n += utf16.RuneLen(r)
		if n > limit-1 {
			return s[:i] + "…"
		}
	}
	return s
}

func voteIcon(v domain.VoteState) string {
	switch v {
	case domain.VoteUp:
		return "▲"
	case domain.VoteDown:
		return "▼"
	default:
		return "△"
	}
}

func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}
