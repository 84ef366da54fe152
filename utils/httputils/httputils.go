// Copyright 2025 The UrnaMapa Authors
// SPDX-License-Identifier: Apache-2.0

// Package httputils provides the HTTP plumbing shared by the geocoding providers.
package httputils

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

// SecretParams are query parameters whose values never reach a trace.
var SecretParams = []string{"key", "api_key", "apikey"}

// ClientOptions configures NewClient.
type ClientOptions struct {
	// UserAgent sent on every request. Defaults to "urnamapa/unknown".
	UserAgent string

	// Timeout bounds the whole request, body included.
	Timeout time.Duration

	// TraceWriter, when set, receives a dump of every request and response.
	TraceWriter io.Writer

	// TraceBody includes response bodies in the trace.
	TraceBody bool
}

// NewClient builds an http.Client with tracing and default headers wired in.
func NewClient(opts ClientOptions) *http.Client {
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		MaxIdleConns:          20,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       30 * time.Second,
		ResponseHeaderTimeout: 30 * time.Second,
	}

	userAgent := "urnamapa/unknown"
	if opts.UserAgent != "" {
		userAgent = opts.UserAgent
	}

	return &http.Client{
		Timeout: opts.Timeout,
		Transport: &AppendRequestHeadersRoundTripper{
			Headers: map[string]string{
				"User-Agent": userAgent,
				"Accept":     "application/json",
			},
			Transport: &LoggingRoundTripper{
				Writer:    opts.TraceWriter,
				DumpBody:  opts.TraceBody,
				Transport: transport,
			},
		},
	}
}

// RedactURL returns u as a string with secret query values masked.
func RedactURL(u *url.URL) string {
	if u == nil {
		return ""
	}

	q := u.Query()
	changed := false

	for _, p := range SecretParams {
		if q.Has(p) {
			q.Set(p, "REDACTED")

			changed = true
		}
	}

	if !changed {
		return u.String()
	}

	c := *u
	c.RawQuery = q.Encode()

	return c.String()
}

/////////////////////////////////////////
/// RoundTrippers

// LoggingRoundTripper dumps every HTTP transaction to Writer. Secret query
// parameters are masked in the dump.
type LoggingRoundTripper struct {
	Transport http.RoundTripper
	Writer    io.Writer
	DumpBody  bool
}

// reduce the content of the lines.
func abbreviate(lines []string, prefix rune) []string {
	const maxLines, maxChars = 512, 512

	if len(lines) > maxLines {
		lines = append(lines[:maxLines], "…")
	}

	for i, line := range lines {
		line = fmt.Sprintf("%c %s", prefix, line)
		if len(line) > maxChars {
			line = line[0:maxChars] + "…"
		}

		lines[i] = line
	}

	return lines
}

func (t *LoggingRoundTripper) dumpRequest(req *http.Request) error {
	dump, err := httputil.DumpRequestOut(req, true)
	if err != nil {
		return eris.Wrap(err, "tracing HTTP request")
	}

	text := string(dump)
	if req.URL != nil && req.URL.RawQuery != "" {
		text = strings.Replace(text, req.URL.RequestURI(), requestURI(req.URL), 1)
	}

	lines := abbreviate(strings.Split(text, "\n"), '>')
	lines = append(lines, "")
	_, err = fmt.Fprint(t.Writer, strings.Join(lines, "\n"))

	return err
}

func requestURI(u *url.URL) string {
	redacted, err := url.Parse(RedactURL(u))
	if err != nil {
		return u.Path
	}

	return redacted.RequestURI()
}

func (t *LoggingRoundTripper) dumpResponse(resp *http.Response, duration time.Duration) error {
	dump, err := httputil.DumpResponse(resp, t.DumpBody)
	if err != nil {
		return eris.Wrap(err, "tracing HTTP response")
	}

	lines := abbreviate(strings.Split(string(dump), "\n"), '<')

	if _, err = fmt.Fprintf(t.Writer, "< RESPONSE: [%v]\n", duration); err != nil {
		return eris.Wrap(err, "tracing HTTP response")
	}

	lines = append(lines, "")
	_, err = fmt.Fprint(t.Writer, strings.Join(lines, "\n"))

	return err
}

// RoundTrip implements the http.RoundTripper interface.
func (t *LoggingRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.Writer == nil {
		return t.Transport.RoundTrip(req)
	}

	if err := t.dumpRequest(req); err != nil {
		return nil, err
	}

	start := time.Now()

	resp, err := t.Transport.RoundTrip(req)
	if err != nil {
		fmt.Fprintf(t.Writer, "< ERROR: [%v] %v\n", time.Since(start), err)

		return nil, err
	}

	if err := t.dumpResponse(resp, time.Since(start)); err != nil {
		resp.Body.Close()

		return nil, err
	}

	return resp, nil
}

// AppendRequestHeadersRoundTripper adds headers to the request.
type AppendRequestHeadersRoundTripper struct {
	Transport http.RoundTripper
	Headers   map[string]string
}

// RoundTrip implements the http.RoundTripper interface.
func (t *AppendRequestHeadersRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	for k, v := range t.Headers {
		req.Header.Set(k, v)
	}

	return t.Transport.RoundTrip(req)
}
