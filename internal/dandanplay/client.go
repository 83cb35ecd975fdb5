// Package dandanplay fetches comments from the dandanplay open API. A media
// file is identified by the md5 of its first 16 MiB plus its base name; the
// matched episode's comments (including related third-party sources) are
// returned as records.
package dandanplay

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/zjrosen/mpv-danmaku/internal/cachemanager"
	"github.com/zjrosen/mpv-danmaku/internal/danmaku"
	"github.com/zjrosen/mpv-danmaku/internal/log"
	"github.com/zjrosen/mpv-danmaku/internal/tracing"
)

// DefaultBaseURL is the public API endpoint.
const DefaultBaseURL = "https://api.dandanplay.net"

var (
	// ErrNoMatch means the API knows no episode for the file.
	ErrNoMatch = errors.New("no matching episode")
	// ErrMultipleMatches means the file is ambiguous.
	ErrMultipleMatches = errors.New("multiple matching episodes")
)

// StatusError is a non-2xx API response.
type StatusError struct {
	Endpoint string
	Code     int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: unexpected status %d", e.Endpoint, e.Code)
}

// Config holds connection settings.
type Config struct {
	BaseURL   string
	Timeout   time.Duration
	CacheTTL  time.Duration
	AppID     string
	AppSecret string
}

// DefaultConfig points at the public API with a 30s timeout and a 6h cache.
func DefaultConfig() Config {
	return Config{
		BaseURL:  DefaultBaseURL,
		Timeout:  30 * time.Second,
		CacheTTL: cachemanager.DefaultExpiration,
	}
}

type query struct {
	Name string
	Hash string
}

// Client talks to the API. It is safe for concurrent use.
type Client struct {
	cfg    Config
	http   *http.Client
	tracer trace.Tracer
	cache  cachemanager.CacheManager[string, []danmaku.Record]
	lookup *cachemanager.ReadThroughCache[string, []danmaku.Record, query]
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTracer records fetch spans on t.
func WithTracer(t trace.Tracer) Option {
	return func(c *Client) { c.tracer = t }
}

// WithCache stores fetched comment lists in cache, keyed by file hash.
func WithCache(cache cachemanager.CacheManager[string, []danmaku.Record]) Option {
	return func(c *Client) { c.cache = cache }
}

// New creates a client. Without WithCache an in-memory cache is used.
func New(cfg Config, opts ...Option) *Client {
	def := DefaultConfig()
	if cfg.BaseURL == "" {
		cfg.BaseURL = def.BaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.CacheTTL == 0 {
		cfg.CacheTTL = def.CacheTTL
	}

	c := &Client{
		cfg:    cfg,
		http:   &http.Client{Timeout: cfg.Timeout},
		tracer: noop.NewTracerProvider().Tracer("dandanplay"),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.cache == nil {
		c.cache = cachemanager.NewInMemoryCacheManager[string, []danmaku.Record](
			"dandanplay", cfg.CacheTTL, cachemanager.DefaultCleanupInterval)
	}
	c.lookup = cachemanager.NewReadThroughCache(
		c.cache,
		func(q query) string { return q.Hash },
		c.load,
		cfg.CacheTTL,
		cachemanager.WithBypass(cfg.CacheTTL < 0),
	)
	return c
}

// Fetch returns the comments for the media file at path.
func (c *Client) Fetch(ctx context.Context, path string) ([]danmaku.Record, error) {
	fetchID := uuid.NewString()
	name := filepath.Base(path)
	ctx, span := c.tracer.Start(ctx, tracing.SpanFetch, trace.WithAttributes(
		attribute.String(tracing.AttrFetchID, fetchID),
		attribute.String(tracing.AttrFileName, name),
	))
	defer span.End()

	_, hashSpan := c.tracer.Start(ctx, tracing.SpanHash)
	hash, err := HashFile(path)
	tracing.RecordError(hashSpan, err)
	hashSpan.End()
	if err != nil {
		tracing.RecordError(span, err)
		return nil, err
	}
	span.SetAttributes(attribute.String(tracing.AttrFileHash, hash))

	log.Debug(log.CatFetch, "fetching comments", "fetch_id", fetchID, "file", name, "hash", hash)
	records, hit, err := c.lookup.Get(ctx, query{Name: name, Hash: hash})
	span.SetAttributes(attribute.Bool(tracing.AttrCacheHit, hit))
	if err != nil {
		tracing.RecordError(span, err)
		return nil, err
	}

	span.SetAttributes(attribute.Int(tracing.AttrCommentCount, len(records)))
	log.Info(log.CatFetch, "comments fetched", "fetch_id", fetchID, "count", len(records), "cached", hit)
	return records, nil
}

func (c *Client) load(ctx context.Context, q query) ([]danmaku.Record, error) {
	episode, err := c.Match(ctx, q.Name, q.Hash)
	if err != nil {
		return nil, err
	}
	return c.Comments(ctx, episode)
}

type matchRequest struct {
	FileName string `json:"fileName"`
	FileHash string `json:"fileHash"`
}

type matchResponse struct {
	IsMatched bool `json:"isMatched"`
	Matches   []struct {
		EpisodeID    int64  `json:"episodeId"`
		AnimeTitle   string `json:"animeTitle"`
		EpisodeTitle string `json:"episodeTitle"`
	} `json:"matches"`
}

// Match resolves a file to its episode id.
func (c *Client) Match(ctx context.Context, fileName, fileHash string) (int64, error) {
	ctx, span := c.tracer.Start(ctx, tracing.SpanMatch)
	defer span.End()

	body, err := json.Marshal(matchRequest{FileName: fileName, FileHash: fileHash})
	if err != nil {
		return 0, fmt.Errorf("encoding match request: %w", err)
	}

	var resp matchResponse
	if err := c.do(ctx, span, http.MethodPost, "/api/v2/match", bytes.NewReader(body), &resp); err != nil {
		tracing.RecordError(span, err)
		return 0, err
	}

	switch {
	case len(resp.Matches) > 1:
		err = ErrMultipleMatches
	case !resp.IsMatched || len(resp.Matches) == 0:
		err = ErrNoMatch
	}
	if err != nil {
		tracing.RecordError(span, err)
		return 0, err
	}

	m := resp.Matches[0]
	span.SetAttributes(attribute.Int64(tracing.AttrEpisodeID, m.EpisodeID))
	log.Debug(log.CatFetch, "matched episode", "episode", m.EpisodeID, "anime", m.AnimeTitle, "title", m.EpisodeTitle)
	return m.EpisodeID, nil
}

type commentResponse struct {
	Count    int `json:"count"`
	Comments []struct {
		CID int64  `json:"cid"`
		P   string `json:"p"`
		M   string `json:"m"`
	} `json:"comments"`
}

// Comments downloads an episode's comments. Entries with a malformed p
// attribute are skipped.
func (c *Client) Comments(ctx context.Context, episodeID int64) ([]danmaku.Record, error) {
	ctx, span := c.tracer.Start(ctx, tracing.SpanComments, trace.WithAttributes(
		attribute.Int64(tracing.AttrEpisodeID, episodeID),
	))
	defer span.End()

	var resp commentResponse
	endpoint := fmt.Sprintf("/api/v2/comment/%d?withRelated=true", episodeID)
	if err := c.do(ctx, span, http.MethodGet, endpoint, nil, &resp); err != nil {
		tracing.RecordError(span, err)
		return nil, err
	}

	records := make([]danmaku.Record, 0, len(resp.Comments))
	skipped := 0
	for _, cm := range resp.Comments {
		t, color, err := ParseP(cm.P)
		if err != nil {
			skipped++
			log.Debug(log.CatFetch, "skipping malformed comment", "cid", cm.CID, "p", cm.P, "error", err)
			continue
		}
		records = append(records, danmaku.Record{Time: t, Color: color, Text: cm.M})
	}
	if skipped > 0 {
		log.Warn(log.CatFetch, "skipped malformed comments", "episode", episodeID, "skipped", skipped)
	}
	span.SetAttributes(
		attribute.Int(tracing.AttrCommentCount, len(records)),
		attribute.Int(tracing.AttrSkipped, skipped),
	)
	return records, nil
}

func (c *Client) do(ctx context.Context, span trace.Span, method, endpoint string, body io.Reader, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+endpoint, body)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.cfg.AppID != "" {
		req.Header.Set("X-AppId", c.cfg.AppID)
		req.Header.Set("X-AppSecret", c.cfg.AppSecret)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("requesting %s: %w", endpoint, err)
	}
	defer func() { _ = resp.Body.Close() }()

	span.SetAttributes(attribute.Int(tracing.AttrHTTPStatus, resp.StatusCode))
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return &StatusError{Endpoint: endpoint, Code: resp.StatusCode}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding %s response: %w", endpoint, err)
	}
	return nil
}
