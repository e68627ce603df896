package site_api

import (
	"context"
	"net/http"
	"strconv"
	"strings"
)

// ProbeResponse is the change-identity a server reports for a file, observed without transferring the body.
type ProbeResponse struct {
	Method        string // HEAD, or GET when the server refused HEAD
	StatusCode    int
	ETag          *string
	LastModified  *string
	ContentLength *int64
}

// Probe checks that rawURL exists and returns its change-identity fields.
// Servers answering HEAD with 405 or 501 are probed again with a one-byte ranged GET.
func (s *Session) Probe(ctx context.Context, rawURL string) (*ProbeResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, s.probeTimeout)
	defer cancel()

	resp, err := s.probeHead(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusMethodNotAllowed || resp.StatusCode == http.StatusNotImplemented {
		resp, err = s.probeRangedGet(ctx, rawURL)
		if err != nil {
			return nil, err
		}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{Method: resp.Method, URL: rawURL, StatusCode: resp.StatusCode}
	}
	return resp, nil
}

func (s *Session) probeHead(ctx context.Context, rawURL string) (*ProbeResponse, error) {
	req, err := s.newRequest(ctx, http.MethodHead, rawURL)
	if err != nil {
		return nil, err
	}
	res, err := s.do(req)
	if err != nil {
		return nil, err
	}
	res.Body.Close()

	resp := &ProbeResponse{
		Method:       http.MethodHead,
		StatusCode:   res.StatusCode,
		ETag:         optionalHeader(res.Header, "ETag"),
		LastModified: optionalHeader(res.Header, "Last-Modified"),
	}
	if res.ContentLength >= 0 {
		n := res.ContentLength
		resp.ContentLength = &n
	}
	return resp, nil
}

func (s *Session) probeRangedGet(ctx context.Context, rawURL string) (*ProbeResponse, error) {
	req, err := s.newRequest(ctx, http.MethodGet, rawURL)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Range", "bytes=0-0")
	res, err := s.do(req)
	if err != nil {
		return nil, err
	}
	// The body is never read: a server ignoring Range would send the whole file.
	res.Body.Close()

	resp := &ProbeResponse{
		Method:       http.MethodGet,
		StatusCode:   res.StatusCode,
		ETag:         optionalHeader(res.Header, "ETag"),
		LastModified: optionalHeader(res.Header, "Last-Modified"),
	}
	switch {
	case res.StatusCode == http.StatusPartialContent:
		resp.ContentLength = totalFromContentRange(res.Header.Get("Content-Range"))
	case res.ContentLength >= 0:
		n := res.ContentLength
		resp.ContentLength = &n
	}
	return resp, nil
}

// totalFromContentRange extracts the complete length from a "bytes 0-0/1234" header.
// An unknown ("*") or malformed total yields nil.
func totalFromContentRange(v string) *int64 {
	idx := strings.LastIndexByte(v, '/')
	if idx < 0 || !strings.HasPrefix(strings.TrimSpace(v), "bytes ") {
		return nil
	}
	n, err := strconv.ParseInt(strings.TrimSpace(v[idx+1:]), 10, 64)
	if err != nil || n < 0 {
		return nil
	}
	return &n
}
