// Package site_api talks to the protected site: it fetches the listing page,
// discovers file links, probes file metadata and streams downloads.
package site_api

import (
	"context"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"
)

// Default per-call time limits. A remote that does not answer within the limit counts as a failure.
// The download limit bounds silence on the connection, not the length of the transfer.
const (
	DefaultPageTimeout     = 15 * time.Second
	DefaultProbeTimeout    = 10 * time.Second
	DefaultDownloadTimeout = 30 * time.Second

	// maxPageSize bounds how much of the listing page is read.
	maxPageSize = 16 << 20
)

// Session holds the HTTP state used against one site.
type Session struct {
	username        string        // Basic-auth user; empty disables auth
	password        string        // Basic-auth password
	startURL        *url.URL      // Listing page
	userAgent       string        // User-Agent header sent with every request
	pageTimeout     time.Duration // Limit for fetching the listing page
	probeTimeout    time.Duration // Limit for one metadata probe
	downloadTimeout time.Duration // Longest wait for download data
	httpClient      *http.Client  // HTTP client with cookie support
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) SessionOption {
	return func(s *Session) {
		s.userAgent = ua
	}
}

// WithPageTimeout sets the time limit for Login.
func WithPageTimeout(d time.Duration) SessionOption {
	return func(s *Session) {
		s.pageTimeout = d
	}
}

// WithProbeTimeout sets the time limit for Probe.
func WithProbeTimeout(d time.Duration) SessionOption {
	return func(s *Session) {
		s.probeTimeout = d
	}
}

// WithDownloadTimeout sets how long Download waits for the response headers or for the next body data.
// Zero disables the limit.
func WithDownloadTimeout(d time.Duration) SessionOption {
	return func(s *Session) {
		s.downloadTimeout = d
	}
}

// NewSession creates a session for the listing page at startURL.
// Credentials are sent as HTTP basic auth, and only to the start URL's host.
func NewSession(startURL string, username string, password string, opts ...SessionOption) (*Session, error) {
	parsed, err := url.Parse(startURL)
	if err != nil {
		return nil, InvalidUrlError(err.Error())
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, InvalidUrlError(startURL + ": scheme must be http or https")
	}
	if parsed.Host == "" {
		return nil, InvalidUrlError(startURL + ": missing host")
	}
	jar, _ := cookiejar.New(nil)
	s := &Session{
		username:        username,
		password:        password,
		startURL:        parsed,
		userAgent:       "go-site-file-harvester",
		pageTimeout:     DefaultPageTimeout,
		probeTimeout:    DefaultProbeTimeout,
		downloadTimeout: DefaultDownloadTimeout,
		httpClient:      &http.Client{Jar: jar},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// StartURL returns the listing page URL.
func (s *Session) StartURL() *url.URL {
	u := *s.startURL
	return &u
}

// newRequest builds a request carrying the session's headers and, for the site's own host, credentials.
func (s *Session) newRequest(ctx context.Context, method string, rawURL string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, rawURL, nil)
	if err != nil {
		return nil, InvalidUrlError(err.Error())
	}
	req.Header.Set("User-Agent", s.userAgent)
	if s.username != "" && strings.EqualFold(req.URL.Host, s.startURL.Host) {
		req.SetBasicAuth(s.username, s.password)
	}
	return req, nil
}

// do sends req and converts transport failures to HttpError.
func (s *Session) do(req *http.Request) (*http.Response, error) {
	res, err := s.httpClient.Do(req)
	if err != nil {
		return nil, HttpError(err.Error())
	}
	return res, nil
}

// drainAndClose discards what is left of a body so the connection can be reused.
func drainAndClose(body io.ReadCloser) {
	_, _ = io.Copy(io.Discard, io.LimitReader(body, 64<<10))
	body.Close()
}

// optionalHeader returns the header value, or nil if the header is absent or empty.
func optionalHeader(h http.Header, name string) *string {
	v := strings.TrimSpace(h.Get(name))
	if v == "" {
		return nil
	}
	return &v
}
