// Package youtube resolves video metadata through the YouTube Data API v3.
package youtube

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"
	"google.golang.org/api/option"
	yt "google.golang.org/api/youtube/v3"

	"github.com/noah-isme/topfive-api/pkg/config"
)

// ErrVideoNotFound is returned when the API knows no video with the id.
var ErrVideoNotFound = errors.New("youtube: video not found")

// Video is the catalog metadata kept for a suggestion.
type Video struct {
	ID           string
	Title        string
	ThumbnailURL string
	ViewCount    int64
}

// Client wraps the generated YouTube service with an in-process metadata cache.
type Client struct {
	svc    *yt.Service
	cache  *cache.Cache
	logger *zap.Logger
}

// Option customises the client.
type Option func(*clientOptions)

type clientOptions struct {
	transport http.RoundTripper
	logger    *zap.Logger
}

// WithTransport replaces the base HTTP transport. Tests use it for httpmock.
func WithTransport(rt http.RoundTripper) Option {
	return func(o *clientOptions) { o.transport = rt }
}

// WithLogger attaches a logger.
func WithLogger(l *zap.Logger) Option {
	return func(o *clientOptions) { o.logger = l }
}

// NewClient builds a client from catalog configuration.
func NewClient(ctx context.Context, cfg config.CatalogConfig, opts ...Option) (*Client, error) {
	o := clientOptions{transport: http.DefaultTransport, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}

	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	httpClient := &http.Client{
		Timeout:   timeout,
		Transport: &apiKeyTransport{key: cfg.APIKey, base: o.transport},
	}

	// option.WithAPIKey is ignored once WithHTTPClient is set, hence the transport.
	svcOpts := []option.ClientOption{option.WithHTTPClient(httpClient)}
	if cfg.Endpoint != "" {
		svcOpts = append(svcOpts, option.WithEndpoint(cfg.Endpoint))
	}
	svc, err := yt.NewService(ctx, svcOpts...)
	if err != nil {
		return nil, fmt.Errorf("youtube service: %w", err)
	}

	ttl := cfg.CacheTTL
	if ttl <= 0 {
		ttl = time.Hour
	}

	return &Client{
		svc:    svc,
		cache:  cache.New(ttl, ttl*2),
		logger: o.logger,
	}, nil
}

// Video fetches title, thumbnail and view count for one video id.
func (c *Client) Video(ctx context.Context, id string) (*Video, error) {
	if cached, ok := c.cache.Get(id); ok {
		v := cached.(Video)
		return &v, nil
	}

	videos, err := c.lookup(ctx, []string{id})
	if err != nil {
		return nil, err
	}
	if len(videos) == 0 {
		return nil, ErrVideoNotFound
	}
	return &videos[0], nil
}

// Search returns up to maxResults videos matching query ordered by view
// count, each with its statistics resolved.
func (c *Client) Search(ctx context.Context, query string, maxResults int) ([]Video, error) {
	if maxResults <= 0 || maxResults > 50 {
		maxResults = 50
	}
	resp, err := c.svc.Search.List([]string{"snippet"}).
		Q(query).
		Type("video").
		Order("viewCount").
		MaxResults(int64(maxResults)).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("youtube search: %w", err)
	}

	ids := make([]string, 0, len(resp.Items))
	for _, item := range resp.Items {
		if item.Id != nil && item.Id.VideoId != "" {
			ids = append(ids, item.Id.VideoId)
		}
	}
	if len(ids) == 0 {
		return nil, nil
	}

	return c.lookup(ctx, ids)
}

func (c *Client) lookup(ctx context.Context, ids []string) ([]Video, error) {
	resp, err := c.svc.Videos.List([]string{"snippet", "statistics"}).
		Id(ids...).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("youtube videos: %w", err)
	}

	videos := make([]Video, 0, len(resp.Items))
	for _, item := range resp.Items {
		v, ok := toVideo(item)
		if !ok {
			c.logger.Debug("skipping video without snippet", zap.String("video_id", item.Id))
			continue
		}
		c.cache.Set(v.ID, v, cache.DefaultExpiration)
		videos = append(videos, v)
	}
	return videos, nil
}

func toVideo(item *yt.Video) (Video, bool) {
	if item == nil || item.Snippet == nil {
		return Video{}, false
	}
	v := Video{ID: item.Id, Title: item.Snippet.Title}
	if item.Statistics != nil {
		v.ViewCount = int64(item.Statistics.ViewCount)
	}
	if thumbs := item.Snippet.Thumbnails; thumbs != nil {
		switch {
		case thumbs.High != nil:
			v.ThumbnailURL = thumbs.High.Url
		case thumbs.Default != nil:
			v.ThumbnailURL = thumbs.Default.Url
		}
	}
	return v, true
}

type apiKeyTransport struct {
	key  string
	base http.RoundTripper
}

func (t *apiKeyTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.key == "" {
		return t.base.RoundTrip(req)
	}
	clone := req.Clone(req.Context())
	q := clone.URL.Query()
	q.Set("key", t.key)
	clone.URL.RawQuery = q.Encode()
	return t.base.RoundTrip(clone)
}
