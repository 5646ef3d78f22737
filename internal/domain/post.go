package domain

import (
	"strings"
	"time"
)

// Post is the canonical post record every wire shape is normalized into.
type Post struct {
	ID         int64     `json:"id"`
	FullName   string    `json:"full_name"`
	Username   string    `json:"username"`
	Content    string    `json:"content"`
	Reputation int       `json:"reputation"`
	CreatedAt  time.Time `json:"created_at"`
	Media      []string  `json:"media,omitempty"`
	Comments   []Comment `json:"comments,omitempty"`
	Share      string    `json:"share,omitempty"`
}

type Comment struct {
	Comment   string    `json:"comment"`
	CreatedAt time.Time `json:"created_at"`
}

func (p Post) HasMedia() bool {
	return len(p.Media) > 0
}

// Lines splits the content into display lines. Joining them with "\n"
// gives the content back.
func (p Post) Lines() []string {
	return strings.Split(p.Content, "\n")
}

// Equal reports whether two records carry the same data. Cards use it to
// skip re-hydration when a refresh delivers an unchanged post.
func (p Post) Equal(o Post) bool {
	if p.ID != o.ID || p.FullName != o.FullName || p.Username != o.Username ||
		p.Content != o.Content || p.Reputation != o.Reputation || p.Share != o.Share ||
		!p.CreatedAt.Equal(o.CreatedAt) {
		return false
	}
	if len(p.Media) != len(o.Media) || len(p.Comments) != len(o.Comments) {
		return false
	}
	for i := range p.Media {
		if p.Media[i] != o.Media[i] {
			return false
		}
	}
	for i := range p.Comments {
		if p.Comments[i].Comment != o.Comments[i].Comment || !p.Comments[i].CreatedAt.Equal(o.Comments[i].CreatedAt) {
			return false
		}
	}
	return true
}
