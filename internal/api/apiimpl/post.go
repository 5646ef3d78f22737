package apiimpl

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/textproto"
	"strconv"
	"strings"

	"github.com/orgball2608/social-feed-bot/internal/domain"
	"github.com/orgball2608/social-feed-bot/pkg/errors"
)

func (a *ApiImpl) FetchPosts(ctx context.Context, token string) ([]domain.Post, error) {
	var raw json.RawMessage
	if _, err := a.do(ctx, a.request(token).Get("post"), &raw); err != nil {
		return nil, errors.WrapWithCode(err, errors.CodeFeedFetch, "failed to fetch posts")
	}

	posts, err := decodePosts(raw, a.logger)
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.CodeFeedFetch, "failed to decode posts")
	}
	a.logger.Debug("Fetched posts", "count", len(posts))
	return posts, nil
}

func (a *ApiImpl) Publish(ctx context.Context, token string, req domain.PublishRequest) (domain.Post, error) {
	body, contentType, err := encodePublish(req)
	if err != nil {
		return domain.Post{}, errors.WrapWithCode(err, errors.CodePublishFailed, "failed to encode post")
	}

	var raw json.RawMessage
	s := a.request(token).Post("post").Body(body).Set("Content-Type", contentType)
	if _, err := a.do(ctx, s, &raw); err != nil {
		return domain.Post{}, errors.WrapWithCode(err, errors.CodePublishFailed, "failed to publish post")
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return domain.Post{}, errors.WrapWithCode(errors.ErrMalformedResponse, errors.CodePublishFailed, "publish returned an empty body")
	}

	post, err := decodePost(raw)
	if err != nil {
		return domain.Post{}, errors.WrapWithCode(err, errors.CodePublishFailed, "failed to decode published post")
	}
	a.logger.Info("Published post", "post_id", post.ID, "files", len(req.Files), "thread", req.Thread)
	return post, nil
}

// encodePublish builds the multipart form the API expects: repeated "files"
// parts, "content" and an optional "thread".
func encodePublish(req domain.PublishRequest) (*bytes.Buffer, string, error) {
	buf := &bytes.Buffer{}
	mw := multipart.NewWriter(buf)

	for _, f := range req.Files {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fileDisposition("files", f.Name))
		ct := f.ContentType
		if ct == "" {
			ct = "application/octet-stream"
		}
		h.Set("Content-Type", ct)
		part, err := mw.CreatePart(h)
		if err != nil {
			return nil, "", err
		}
		if _, err := part.Write(f.Data); err != nil {
			return nil, "", err
		}
	}

	if err := mw.WriteField("content", req.Content); err != nil {
		return nil, "", err
	}
	if req.Thread != 0 {
		if err := mw.WriteField("thread", strconv.FormatInt(req.Thread, 10)); err != nil {
			return nil, "", err
		}
	}
	if err := mw.Close(); err != nil {
		return nil, "", err
	}
	return buf, mw.FormDataContentType(), nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

// fileDisposition is the form-data header multipart.Writer.CreateFormFile
// writes, without its fixed octet-stream content type.
func fileDisposition(field, filename string) string {
	return fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
		quoteEscaper.Replace(field), quoteEscaper.Replace(filename))
}
