package apiimpl

import (
	"context"
	"net/http"
	"strings"

	"github.com/dghubble/sling"
	"go.uber.org/fx"

	"github.com/orgball2608/social-feed-bot/internal/api"
	"github.com/orgball2608/social-feed-bot/pkg/config"
	"github.com/orgball2608/social-feed-bot/pkg/errors"
	"github.com/orgball2608/social-feed-bot/pkg/logger"
	"github.com/orgball2608/social-feed-bot/pkg/tracing"
)

type Opts struct {
	fx.In

	Config *config.Config
	Logger logger.Logger
}

type ApiImpl struct {
	base   *sling.Sling
	logger logger.Logger
}

func New(opts Opts) *ApiImpl {
	httpClient := &http.Client{
		Timeout:   opts.Config.Feed.RequestTimeout,
		Transport: tracing.Transport(http.DefaultTransport),
	}
	return NewWithClient(opts.Config.Feed.ApiUrl, httpClient, opts.Logger)
}

// NewWithClient builds the client against baseURL using httpClient as is.
func NewWithClient(baseURL string, httpClient *http.Client, log logger.Logger) *ApiImpl {
	// sling resolves paths relative to the base, which drops the last
	// segment unless the base ends with a slash.
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	return &ApiImpl{
		base:   sling.New().Client(httpClient).Base(baseURL),
		logger: log.WithComponent("FeedAPI"),
	}
}

var _ api.Client = (*ApiImpl)(nil)

func (a *ApiImpl) request(token string) *sling.Sling {
	s := a.base.New()
	if token != "" {
		s = s.Set("Authorization", "Bearer "+token)
	}
	return s
}

// do sends the request built by s with ctx attached, decodes a 2xx body into
// successV and maps every other status to a pkg/errors sentinel.
func (a *ApiImpl) do(ctx context.Context, s *sling.Sling, successV interface{}) (*http.Response, error) {
	req, err := s.Request()
	if err != nil {
		return nil, errors.Wrap(err, "failed to build request")
	}
	req = req.WithContext(ctx)

	resp, err := s.Do(req, successV, nil)
	if resp != nil {
		if statusErr := errors.FromStatus(resp.StatusCode); statusErr != nil {
			a.logger.Debug("Feed API returned an error status",
				"method", req.Method,
				"url", req.URL.String(),
				"status", resp.StatusCode)
			return resp, statusErr
		}
	}
	if err != nil {
		if ctx.Err() != nil {
			return resp, ctx.Err()
		}
		if resp == nil {
			return nil, errors.Wrap(errors.ErrServiceUnavailable, err.Error())
		}
		return resp, errors.Wrap(errors.ErrMalformedResponse, err.Error())
	}
	return resp, nil
}
