package apiimpl

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/samber/lo"

	"github.com/orgball2608/social-feed-bot/internal/domain"
	"github.com/orgball2608/social-feed-bot/pkg/errors"
	"github.com/orgball2608/social-feed-bot/pkg/logger"
)

// The feed API has shipped several response shapes over time. Everything in
// this file maps the accepted shapes into domain.Post; nothing outside this
// file looks at wire field names.

// flexInt accepts a JSON number, a numeric string or null.
type flexInt struct {
	Value int64
	Set   bool
}

func (f *flexInt) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		s = strings.TrimSpace(s)
		if s == "" {
			return nil
		}
		v, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return fmt.Errorf("not an integer: %q", s)
		}
		f.Value, f.Set = v, true
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	if v, err := n.Int64(); err == nil {
		f.Value, f.Set = v, true
		return nil
	}
	v, err := n.Float64()
	if err != nil {
		return err
	}
	f.Value, f.Set = int64(v), true
	return nil
}

type wireComment struct {
	Comment      string `json:"comment"`
	Content      string `json:"content"`
	CreatedAt    string `json:"created_at"`
	CreatedAtAlt string `json:"createdAt"`
}

type wirePost struct {
	ID           flexInt         `json:"id"`
	Content      string          `json:"content"`
	Reputation   flexInt         `json:"reputation"`
	FullName     string          `json:"full_name"`
	FullNameAlt  string          `json:"fullName"`
	Username     string          `json:"username"`
	CreatedBy    string          `json:"created_by"`
	CreatedAt    string          `json:"created_at"`
	CreatedAtAlt string          `json:"createdAt"`
	Media        json.RawMessage `json:"media"`
	Comments     []wireComment   `json:"comments"`
	Share        json.RawMessage `json:"share"`
}

var timeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func parseTime(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

// parseMedia accepts null, a single reference string, a JSON encoded list in
// a string, a list of strings, or a list of {id,url} objects.
func parseMedia(raw json.RawMessage) ([]string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}

	switch raw[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, err
		}
		s = strings.TrimSpace(s)
		if strings.HasPrefix(s, "[") {
			return parseMedia(json.RawMessage(s))
		}
		if s == "" {
			return nil, nil
		}
		return []string{s}, nil
	case '[':
		var items []json.RawMessage
		if err := json.Unmarshal(raw, &items); err != nil {
			return nil, err
		}
		refs := make([]string, 0, len(items))
		for _, item := range items {
			item = bytes.TrimSpace(item)
			if len(item) == 0 {
				continue
			}
			if item[0] == '{' {
				var obj struct {
					ID  flexInt `json:"id"`
					URL string  `json:"url"`
					Key string  `json:"key"`
				}
				if err := json.Unmarshal(item, &obj); err != nil {
					return nil, err
				}
				switch {
				case obj.URL != "":
					refs = append(refs, obj.URL)
				case obj.Key != "":
					refs = append(refs, obj.Key)
				case obj.ID.Set:
					refs = append(refs, strconv.FormatInt(obj.ID.Value, 10))
				}
				continue
			}
			var s string
			if err := json.Unmarshal(item, &s); err != nil {
				return nil, err
			}
			refs = append(refs, strings.TrimSpace(s))
		}
		refs = lo.Compact(refs)
		if len(refs) == 0 {
			return nil, nil
		}
		return refs, nil
	default:
		return nil, fmt.Errorf("unsupported media shape: %s", string(raw))
	}
}

func parseShare(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var n flexInt
	if err := n.UnmarshalJSON(raw); err == nil && n.Set {
		return strconv.FormatInt(n.Value, 10)
	}
	return ""
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func (w wirePost) toDomain() (domain.Post, error) {
	if !w.ID.Set {
		return domain.Post{}, errors.Wrap(errors.ErrMalformedResponse, "post without id")
	}
	media, err := parseMedia(w.Media)
	if err != nil {
		return domain.Post{}, errors.Wrap(errors.ErrMalformedResponse, err.Error())
	}

	post := domain.Post{
		ID:         w.ID.Value,
		FullName:   firstNonEmpty(w.FullName, w.FullNameAlt),
		Username:   firstNonEmpty(w.Username, w.CreatedBy),
		Content:    w.Content,
		Reputation: int(w.Reputation.Value),
		CreatedAt:  parseTime(firstNonEmpty(w.CreatedAt, w.CreatedAtAlt)),
		Media:      media,
		Share:      parseShare(w.Share),
	}
	for _, c := range w.Comments {
		post.Comments = append(post.Comments, domain.Comment{
			Comment:   firstNonEmpty(c.Comment, c.Content),
			CreatedAt: parseTime(firstNonEmpty(c.CreatedAt, c.CreatedAtAlt)),
		})
	}
	return post, nil
}

// unwrapEnvelope strips a {"data": ...}, {"post": ...} or {"posts": ...}
// envelope if there is one.
func unwrapEnvelope(raw json.RawMessage) json.RawMessage {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '{' {
		return raw
	}
	var env map[string]json.RawMessage
	if err := json.Unmarshal(raw, &env); err != nil {
		return raw
	}
	if _, ok := env["id"]; ok {
		return raw
	}
	for _, key := range []string{"data", "post", "posts"} {
		inner, ok := env[key]
		if !ok {
			continue
		}
		inner = bytes.TrimSpace(inner)
		if len(inner) > 0 && (inner[0] == '{' || inner[0] == '[') {
			return unwrapEnvelope(inner)
		}
	}
	return raw
}

// decodePost normalizes a single post record.
func decodePost(raw json.RawMessage) (domain.Post, error) {
	raw = unwrapEnvelope(raw)
	var w wirePost
	if err := json.Unmarshal(raw, &w); err != nil {
		return domain.Post{}, errors.Wrap(errors.ErrMalformedResponse, err.Error())
	}
	return w.toDomain()
}

// decodePosts normalizes a feed listing. Records that cannot be normalized
// are logged and skipped; a listing that is not a list at all is an error.
func decodePosts(raw json.RawMessage, log logger.Logger) ([]domain.Post, error) {
	raw = unwrapEnvelope(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return []domain.Post{}, nil
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, errors.Wrap(errors.ErrMalformedResponse, "feed is not a list")
	}

	posts := make([]domain.Post, 0, len(items))
	for i, item := range items {
		var w wirePost
		if err := json.Unmarshal(item, &w); err != nil {
			log.Warn("Skipping undecodable post", "index", i, "error", err)
			continue
		}
		post, err := w.toDomain()
		if err != nil {
			log.Warn("Skipping post with unknown shape", "index", i, "error", err)
			continue
		}
		posts = append(posts, post)
	}
	return posts, nil
}

// decodeVote accepts a bare number or an object carrying the value under
// one of the historical key names. Null and {} mean no vote.
func decodeVote(raw json.RawMessage) (int, error) {
	raw = unwrapEnvelope(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return 0, nil
	}
	if raw[0] != '{' {
		var v flexInt
		if err := v.UnmarshalJSON(raw); err != nil {
			return 0, errors.Wrap(errors.ErrMalformedResponse, err.Error())
		}
		return int(v.Value), nil
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return 0, errors.Wrap(errors.ErrMalformedResponse, err.Error())
	}
	for _, key := range []string{"type", "vote_type", "voteType", "value", "vote"} {
		field, ok := obj[key]
		if !ok {
			continue
		}
		var v flexInt
		if err := v.UnmarshalJSON(field); err != nil {
			return 0, errors.Wrap(errors.ErrMalformedResponse, err.Error())
		}
		if v.Set {
			return int(v.Value), nil
		}
	}
	return 0, nil
}

// decodeReputation reads the reputation after a vote, either from
// {"reputation": n} or from a full post record.
func decodeReputation(raw json.RawMessage) (int, error) {
	raw = unwrapEnvelope(raw)
	var obj struct {
		Reputation flexInt `json:"reputation"`
	}
	if err := json.Unmarshal(raw, &obj); err != nil {
		return 0, errors.Wrap(errors.ErrMalformedResponse, err.Error())
	}
	if !obj.Reputation.Set {
		return 0, errors.Wrap(errors.ErrMalformedResponse, "vote response without reputation")
	}
	return int(obj.Reputation.Value), nil
}
