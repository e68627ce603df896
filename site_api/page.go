package site_api

import (
	"context"
	"io"
	"net/http"
	"net/url"
)

// Page is the authenticated listing page.
type Page struct {
	URL         *url.URL // Final URL after redirects, used to resolve relative links
	ContentType string
	Body        []byte
}

// Login fetches the listing page with the session credentials.
// Returns:
//   - AuthError if the site answers 401 or 403
//   - HttpError if the site cannot be reached
//   - *StatusError for any other non-2xx answer
func (s *Session) Login(ctx context.Context) (*Page, error) {
	ctx, cancel := context.WithTimeout(ctx, s.pageTimeout)
	defer cancel()

	req, err := s.newRequest(ctx, http.MethodGet, s.startURL.String())
	if err != nil {
		return nil, err
	}
	res, err := s.do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	switch {
	case res.StatusCode == http.StatusUnauthorized || res.StatusCode == http.StatusForbidden:
		return nil, AuthError(res.Status)
	case res.StatusCode < 200 || res.StatusCode > 299:
		return nil, &StatusError{Method: req.Method, URL: req.URL.String(), StatusCode: res.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(res.Body, maxPageSize))
	if err != nil {
		return nil, HttpError(err.Error())
	}
	return &Page{
		URL:         res.Request.URL,
		ContentType: res.Header.Get("Content-Type"),
		Body:        body,
	}, nil
}
