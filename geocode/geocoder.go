// Copyright 2025 The UrnaMapa Authors
// SPDX-License-Identifier: Apache-2.0

// Package geocode resolves free-text addresses to coordinates through an
// external provider.
package geocode

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/urnamapa/urnamapa/spatial"
	"github.com/urnamapa/urnamapa/utils/httputils"
)

// Provider names accepted by New.
const (
	ProviderOpenCage = "opencage"
	ProviderGoogle   = "google"
)

// Geocoder resolves one address. Implementations must be safe for
// concurrent use and must not retry internally.
type Geocoder interface {
	Geocode(ctx context.Context, address string) (spatial.Point, error)
}

// Func adapts a plain function to the Geocoder interface.
type Func func(ctx context.Context, address string) (spatial.Point, error)

// Geocode calls f.
func (f Func) Geocode(ctx context.Context, address string) (spatial.Point, error) {
	return f(ctx, address)
}

// Options configures a provider built by New.
type Options struct {
	Provider    string
	APIKey      string
	BaseURL     string
	CountryCode string
	Timeout     time.Duration

	// RateLimit in requests per second; zero disables client side shaping.
	RateLimit float64

	// HTTPClient overrides the client built from the fields above.
	HTTPClient *http.Client

	// TraceWriter receives HTTP dumps when not nil.
	TraceWriter io.Writer

	UserAgent string
}

// New builds the configured provider, wrapped in a rate limiter when
// RateLimit is positive.
func New(opts Options) (Geocoder, error) {
	if opts.APIKey == "" {
		return nil, eris.Errorf("geocode: %s provider needs an api key", opts.Provider)
	}

	client := opts.HTTPClient
	if client == nil {
		client = httputils.NewClient(httputils.ClientOptions{
			UserAgent:   opts.UserAgent,
			Timeout:     opts.Timeout,
			TraceWriter: opts.TraceWriter,
			TraceBody:   true,
		})
	}

	var g Geocoder

	switch strings.ToLower(opts.Provider) {
	case "", ProviderOpenCage:
		g = &OpenCage{
			APIKey:      opts.APIKey,
			BaseURL:     opts.BaseURL,
			CountryCode: opts.CountryCode,
			Client:      client,
		}
	case ProviderGoogle:
		g = &GoogleMaps{
			APIKey:  opts.APIKey,
			BaseURL: opts.BaseURL,
			Region:  opts.CountryCode,
			Client:  client,
		}
	default:
		return nil, eris.Errorf("geocode: unknown provider %q", opts.Provider)
	}

	if opts.RateLimit > 0 {
		g = NewRateLimited(g, opts.RateLimit)
	}

	return g, nil
}

// getJSON performs a GET and decodes a 200 response into out. Non-200
// answers and transport failures come back as *Error.
func getJSON(ctx context.Context, client *http.Client, reqURL string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return &Error{Type: ErrorTypeInvalidRequest, Message: "building request", Err: err}
	}

	resp, err := client.Do(req)
	if err != nil {
		return classifyTransportError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))

		return ClassifyHTTPError(resp.StatusCode, strings.TrimSpace(string(body)))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if ctx.Err() != nil {
			return classifyTransportError(ctx.Err())
		}

		return &Error{Type: ErrorTypeUnknown, Message: "decoding response", Err: err}
	}

	return nil
}
