package domain

type VoteState int8

const (
	VoteNone VoteState = 0
	VoteUp   VoteState = 1
	VoteDown VoteState = -1
)

// VoteStateFromValue maps the API vote value: 1 is an upvote, -1 a downvote,
// anything else counts as no vote.
func VoteStateFromValue(v int) VoteState {
	switch v {
	case 1:
		return VoteUp
	case -1:
		return VoteDown
	default:
		return VoteNone
	}
}

func (v VoteState) Value() int {
	return int(v)
}

func (v VoteState) String() string {
	switch v {
	case VoteUp:
		return "upvoted"
	case VoteDown:
		return "downvoted"
	default:
		return "none"
	}
}

func (v VoteState) MarshalText() ([]byte, error) {
	return []byte(v.String()), nil
}
