package site_api

import (
	"context"
	"io"
	"net/http"
	"sync/atomic"
	"time"
)

// DownloadResponse streams a file body together with the change-identity of the response that carried it.
// The caller must Close Body.
type DownloadResponse struct {
	Body          io.ReadCloser
	ETag          *string
	LastModified  *string
	ContentLength *int64
}

// idleBody cancels a download once no data has arrived for the idle limit.
// Every read that returns data restarts the limit.
type idleBody struct {
	body    io.ReadCloser
	idle    time.Duration
	timer   *time.Timer
	expired atomic.Bool
	cancel  context.CancelFunc
}

func newIdleBody(idle time.Duration, cancel context.CancelFunc) *idleBody {
	b := &idleBody{idle: idle, cancel: cancel}
	if idle > 0 {
		b.timer = time.AfterFunc(idle, b.expire)
	}
	return b
}

func (b *idleBody) expire() {
	b.expired.Store(true)
	b.cancel()
}

func (b *idleBody) stop() {
	if b.timer != nil {
		b.timer.Stop()
	}
	b.cancel()
}

// wrap converts the error of a cancelled transfer into a timeout error.
func (b *idleBody) wrap(err error) error {
	if err != nil && err != io.EOF && b.expired.Load() {
		return HttpError("no data received for " + b.idle.String())
	}
	return err
}

func (b *idleBody) Read(p []byte) (int, error) {
	n, err := b.body.Read(p)
	if n > 0 && b.timer != nil && !b.expired.Load() {
		b.timer.Reset(b.idle)
	}
	return n, b.wrap(err)
}

func (b *idleBody) Close() error {
	err := b.body.Close()
	b.stop()
	return err
}

// Download starts a GET for rawURL.
// The download time limit applies to waiting for the response headers and to every gap between
// body reads, so a transfer may take as long as the server keeps sending.
func (s *Session) Download(ctx context.Context, rawURL string) (*DownloadResponse, error) {
	ctx, cancel := context.WithCancel(ctx)
	body := newIdleBody(s.downloadTimeout, cancel)

	req, err := s.newRequest(ctx, http.MethodGet, rawURL)
	if err != nil {
		body.stop()
		return nil, err
	}
	res, err := s.do(req)
	if err != nil {
		body.stop()
		return nil, body.wrap(err)
	}
	if res.StatusCode < 200 || res.StatusCode > 299 {
		drainAndClose(res.Body)
		body.stop()
		return nil, &StatusError{Method: req.Method, URL: rawURL, StatusCode: res.StatusCode}
	}

	body.body = res.Body
	resp := &DownloadResponse{
		Body:         body,
		ETag:         optionalHeader(res.Header, "ETag"),
		LastModified: optionalHeader(res.Header, "Last-Modified"),
	}
	if res.ContentLength >= 0 {
		n := res.ContentLength
		resp.ContentLength = &n
	}
	return resp, nil
}
