package domain

import "time"

type Phase int

const (
	PhaseLoading Phase = iota
	PhaseHydrated
)

func (p Phase) String() string {
	if p == PhaseHydrated {
		return "hydrated"
	}
	return "loading"
}

func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// ViewModel is everything a card needs to render. It is derived, never stored.
type ViewModel struct {
	PostID          int64            `json:"post_id"`
	Author          string           `json:"author"`
	Username        string           `json:"username"`
	CreatedAt       time.Time        `json:"created_at"`
	DisplayLines    []string         `json:"display_lines"`
	ResolvedBlobs   []DownloadedBlob `json:"resolved_blobs"`
	VoteState       VoteState        `json:"vote_state"`
	Reputation      int              `json:"reputation"`
	CommentsVisible bool             `json:"comments_visible"`
	Comments        []Comment        `json:"comments,omitempty"`
}

// CardState is the observable state of one card.
type CardState struct {
	Phase     Phase     `json:"phase"`
	ViewModel ViewModel `json:"view_model"`
}
