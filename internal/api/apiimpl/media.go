package apiimpl

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/orgball2608/social-feed-bot/internal/domain"
	"github.com/orgball2608/social-feed-bot/pkg/errors"
)

// rawDecoder hands the response body over untouched. v must be *[]byte.
type rawDecoder struct{}

func (rawDecoder) Decode(resp *http.Response, v interface{}) error {
	dst, ok := v.(*[]byte)
	if !ok {
		return errors.New("raw decoder needs *[]byte")
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	*dst = data
	return nil
}

// mediaPath resolves a media reference to a request path. Absolute URLs are
// used as they are; anything else is served by the API under media/.
func mediaPath(ref string) string {
	if u, err := url.Parse(ref); err == nil && u.IsAbs() {
		return ref
	}
	segments := strings.Split(strings.TrimLeft(ref, "/"), "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}
	return "media/" + strings.Join(segments, "/")
}

func (a *ApiImpl) FetchBlob(ctx context.Context, ref string) (domain.DownloadedBlob, error) {
	if strings.TrimSpace(ref) == "" {
		return domain.DownloadedBlob{}, errors.WrapWithCode(errors.ErrInvalidInput, errors.CodeMediaFetch, "empty media reference")
	}

	var data []byte
	s := a.base.New().Get(mediaPath(ref)).ResponseDecoder(rawDecoder{})
	resp, err := a.do(ctx, s, &data)
	if err != nil {
		return domain.DownloadedBlob{}, errors.WrapWithCode(err, errors.CodeMediaFetch, "failed to fetch media "+ref)
	}

	ct := resp.Header.Get("Content-Type")
	if ct == "" {
		ct = http.DetectContentType(data)
	}
	return domain.DownloadedBlob{Ref: ref, ContentType: ct, Data: data}, nil
}
