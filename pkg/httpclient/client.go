package httpclient

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

// ClientType represents the type of HTTP client configuration
type ClientType string

const (
	// BrowserClient uses browser-like headers to avoid 406 (Not Acceptable) errors
	BrowserClient ClientType = "browser"

	// CloudflareClient uses simple headers (like curl) to avoid 403 (Forbidden) errors
	// from Cloudflare-protected sites that block browser-like User-Agents
	CloudflareClient ClientType = "cloudflare"
)

const browserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"

// ParseClientType validates a client type name. An empty name selects BrowserClient.
func ParseClientType(name string) (ClientType, error) {
	switch ClientType(name) {
	case "", BrowserClient:
		return BrowserClient, nil
	case CloudflareClient:
		return CloudflareClient, nil
	default:
		return "", fmt.Errorf("unknown client type %q (want %s or %s)", name, BrowserClient, CloudflareClient)
	}
}

// HTTPClient wraps a resty client with per-type headers
type HTTPClient struct {
	client     *resty.Client
	clientType ClientType
}

// NewClient creates a new HTTP client with the specified type. timeout bounds
// every request; callers may use a shorter deadline through the context.
func NewClient(clientType ClientType, timeout time.Duration) *HTTPClient {
	client := resty.New()
	client.SetTimeout(timeout)
	client.SetRedirectPolicy(resty.FlexibleRedirectPolicy(10))
	setHeaders(client, clientType)

	return &HTTPClient{
		client:     client,
		clientType: clientType,
	}
}

// Type returns the header profile of the client
func (c *HTTPClient) Type() ClientType {
	return c.clientType
}

// Get issues a GET request. Non-2xx responses are not errors at this level.
func (c *HTTPClient) Get(ctx context.Context, url string) (*resty.Response, error) {
	return c.client.R().SetContext(ctx).Get(url)
}

// Head issues a HEAD request
func (c *HTTPClient) Head(ctx context.Context, url string) (*resty.Response, error) {
	return c.client.R().SetContext(ctx).Head(url)
}

// setHeaders sets the appropriate headers based on client type
func setHeaders(client *resty.Client, clientType ClientType) {
	switch clientType {
	case BrowserClient:
		client.SetHeader("User-Agent", browserUserAgent)
		client.SetHeader("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
		client.SetHeader("Accept-Language", "en-US,en;q=0.9")
		client.SetHeader("Upgrade-Insecure-Requests", "1")

	case CloudflareClient:
		// Cloudflare allows simple tools like curl but blocks browser-like User-Agents
		client.SetHeader("User-Agent", "curl/8.7.1")
	}
}
