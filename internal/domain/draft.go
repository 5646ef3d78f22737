package domain

// MaxDraftLength is the number of runes a draft may hold.
const MaxDraftLength = 500

type File struct {
	Name        string
	ContentType string
	Data        []byte
}

type Draft struct {
	Content string
	Files   []File
	// Thread is the parent post id when the draft is a reply, 0 otherwise.
	Thread int64
}

func (d Draft) IsEmpty() bool {
	return d.Content == "" && len(d.Files) == 0
}

type PublishRequest struct {
	Content string
	Files   []File
	Thread  int64
}
