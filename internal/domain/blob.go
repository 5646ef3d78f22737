package domain

// DownloadedBlob is the raw payload behind one media reference.
type DownloadedBlob struct {
	Ref         string `json:"ref"`
	ContentType string `json:"content_type"`
	Data        []byte `json:"-"`
}

func (b DownloadedBlob) Size() int {
	return len(b.Data)
}
