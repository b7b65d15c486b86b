package urls

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"page-monitor/pkg/apperr"
)

// ErrUnsupportedScheme is returned for URLs that do not start with http:// or https://.
var ErrUnsupportedScheme = errors.New("URL must start with http:// or https://")

// Prober checks that a URL is reachable before any work is done
type Prober interface {
	Probe(ctx context.Context, url string) error
}

// CheckScheme verifies the URL prefix without touching the network
func CheckScheme(rawURL string) error {
	if strings.HasPrefix(rawURL, "http://") || strings.HasPrefix(rawURL, "https://") {
		return nil
	}
	return apperr.E(apperr.Usage, "", ErrUnsupportedScheme)
}

// Validate checks the URL prefix and then probes it. A nil prober skips the probe.
func Validate(ctx context.Context, rawURL string, prober Prober) error {
	if err := CheckScheme(rawURL); err != nil {
		return err
	}
	if prober == nil {
		return nil
	}
	if err := prober.Probe(ctx, rawURL); err != nil {
		return fmt.Errorf("failed to access URL: %w", err)
	}
	return nil
}
