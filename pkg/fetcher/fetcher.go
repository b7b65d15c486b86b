// Package fetcher retrieves the monitored page and reduces it to normalized text.
package fetcher

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"strings"
	"time"

	"golang.org/x/net/html/charset"

	"page-monitor/pkg/apperr"
	"page-monitor/pkg/content"
	"page-monitor/pkg/httpclient"
)

// Mode selects how much of an HTML page is kept.
type Mode string

const (
	// ModeText keeps all visible text.
	ModeText Mode = "text"
	// ModeArticle keeps the main content detected by readability.
	ModeArticle Mode = "article"
)

// ParseMode validates a mode name. An empty name selects ModeText.
func ParseMode(name string) (Mode, error) {
	switch Mode(name) {
	case "", ModeText:
		return ModeText, nil
	case ModeArticle:
		return ModeArticle, nil
	default:
		return "", fmt.Errorf("unknown extract mode %q (want %s or %s)", name, ModeText, ModeArticle)
	}
}

var errNoText = errors.New("page contains no visible text")

// Config configures the fetcher.
type Config struct {
	// ClientType selects the request header profile. Default: browser.
	ClientType httpclient.ClientType
	// Timeout bounds the page GET. Default: 30s.
	Timeout time.Duration
	// ProbeTimeout bounds the reachability HEAD. Default: 10s.
	ProbeTimeout time.Duration
	// Mode selects the HTML extraction strategy. Default: ModeText.
	Mode Mode
	// FailOnEmpty turns a page without text into an error.
	FailOnEmpty bool
	Logger      *slog.Logger
}

func (c *Config) defaults() {
	if c.ClientType == "" {
		c.ClientType = httpclient.BrowserClient
	}
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
	if c.ProbeTimeout <= 0 {
		c.ProbeTimeout = 10 * time.Second
	}
	if c.Mode == "" {
		c.Mode = ModeText
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Fetcher downloads a page and returns its normalized text.
type Fetcher struct {
	client    *httpclient.HTTPClient
	extractor content.Extractor
	cfg       Config
}

// New creates a Fetcher.
func New(cfg Config) *Fetcher {
	cfg.defaults()

	var extractor content.Extractor = content.NewVisibleTextExtractor()
	if cfg.Mode == ModeArticle {
		extractor = content.NewArticleExtractor()
	}

	// The client-level timeout is the larger of the two so the per-call
	// context deadline is what actually applies.
	limit := cfg.Timeout
	if cfg.ProbeTimeout > limit {
		limit = cfg.ProbeTimeout
	}

	return &Fetcher{
		client:    httpclient.NewClient(cfg.ClientType, limit),
		extractor: extractor,
		cfg:       cfg,
	}
}

// Fetch GETs pageURL and returns its normalized text. Transport failures and
// non-2xx statuses are Network errors. An empty result is returned as is
// unless FailOnEmpty is set.
func (f *Fetcher) Fetch(ctx context.Context, pageURL string) (string, error) {
	log := f.cfg.Logger

	ctx, cancel := context.WithTimeout(ctx, f.cfg.Timeout)
	defer cancel()

	start := time.Now()
	resp, err := f.client.Get(ctx, pageURL)
	if err != nil {
		return "", apperr.E(apperr.Network, "fetch page", err)
	}
	if !resp.IsSuccess() {
		return "", apperr.E(apperr.Network, "fetch page", fmt.Errorf("unexpected status: %s", resp.Status()))
	}

	contentType := resp.Header().Get("Content-Type")
	log.Debug("fetcher: page downloaded",
		"url", pageURL, "status", resp.StatusCode(), "content_type", contentType,
		"bytes", len(resp.Body()), "duration", time.Since(start))

	raw, err := f.extract(contentType, resp.Body(), pageURL)
	if err != nil {
		return "", apperr.E(apperr.Parse, "extract text", err)
	}

	text := content.Normalize(strings.ToValidUTF8(raw, "\uFFFD"))
	if text == "" {
		if f.cfg.FailOnEmpty {
			return "", apperr.E(apperr.EmptyContent, "extract text", errNoText)
		}
		log.Warn("fetcher: page yielded no text", "url", pageURL)
	}

	return text, nil
}

// Probe checks that pageURL answers a HEAD request with a 2xx status.
func (f *Fetcher) Probe(ctx context.Context, pageURL string) error {
	ctx, cancel := context.WithTimeout(ctx, f.cfg.ProbeTimeout)
	defer cancel()

	resp, err := f.client.Head(ctx, pageURL)
	if err != nil {
		return apperr.E(apperr.Network, "probe", err)
	}
	if !resp.IsSuccess() {
		return apperr.E(apperr.Network, "probe", fmt.Errorf("unexpected status: %s", resp.Status()))
	}
	return nil
}

type documentKind int

const (
	kindHTML documentKind = iota
	kindPlain
	kindFeed
	kindPDF
)

func classify(contentType string) documentKind {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return kindHTML
	}
	switch mediaType {
	case "text/plain":
		return kindPlain
	case "application/rss+xml", "application/atom+xml", "application/feed+json",
		"application/xml", "text/xml":
		return kindFeed
	case "application/pdf":
		return kindPDF
	default:
		return kindHTML
	}
}

func (f *Fetcher) extract(contentType string, body []byte, pageURL string) (string, error) {
	kind := classify(contentType)
	switch kind {
	case kindPDF:
		return content.ExtractPDFText(body)
	case kindFeed:
		// gofeed honours the encoding of the XML declaration itself.
		text, err := content.ExtractFeedText(string(body))
		if err == nil {
			return text, nil
		}
		// Plain XML documents that are not feeds are still markup.
		f.cfg.Logger.Debug("fetcher: not a feed, extracting as markup", "url", pageURL, "error", err)
	}

	decoded, err := decodeBody(body, contentType)
	if err != nil {
		return "", err
	}
	if kind == kindPlain {
		return decoded, nil
	}
	return f.extractor.ExtractText(decoded, pageURL)
}

// decodeBody converts body to UTF-8 using the charset of the Content-Type
// header, then <meta> declarations, falling back to windows-1252 for
// undeclared bytes that are not UTF-8.
func decodeBody(body []byte, contentType string) (string, error) {
	if len(body) == 0 {
		return "", nil
	}
	r, err := charset.NewReader(bytes.NewReader(body), contentType)
	if err != nil {
		return "", fmt.Errorf("failed to decode body: %w", err)
	}
	decoded, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("failed to decode body: %w", err)
	}
	return string(decoded), nil
}
