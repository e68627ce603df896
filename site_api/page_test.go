package site_api

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogin(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/index.html", func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != "user" || pass != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(`<a href="a.pdf">A</a>`))
	})
	_, s := newTestSite(t, mux)

	page, err := s.Login(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "text/html", page.ContentType)
	assert.Contains(t, string(page.Body), "a.pdf")
	assert.Equal(t, "/index.html", page.URL.Path)
}

func TestLoginFollowsRedirect(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/index.html", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/files/list.html", http.StatusFound)
	})
	mux.HandleFunc("/files/list.html", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
	_, s := newTestSite(t, mux)

	page, err := s.Login(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "/files/list.html", page.URL.Path, "links must resolve against the final URL")
}

func TestLoginErrors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		checkFn func(t *testing.T, err error)
	}{
		{
			name:   "401 is an auth failure",
			status: http.StatusUnauthorized,
			checkFn: func(t *testing.T, err error) {
				assert.IsType(t, AuthError(""), err)
			},
		},
		{
			name:   "403 is an auth failure",
			status: http.StatusForbidden,
			checkFn: func(t *testing.T, err error) {
				assert.IsType(t, AuthError(""), err)
			},
		},
		{
			name:   "500 is a status error",
			status: http.StatusInternalServerError,
			checkFn: func(t *testing.T, err error) {
				var se *StatusError
				require.ErrorAs(t, err, &se)
				assert.Equal(t, http.StatusInternalServerError, se.StatusCode)
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, s := newTestSite(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))
			_, err := s.Login(context.Background())
			require.Error(t, err)
			tt.checkFn(t, err)
		})
	}
}

func TestLoginUnreachable(t *testing.T) {
	srv, s := newTestSite(t, http.NotFoundHandler())
	srv.Close()

	_, err := s.Login(context.Background())
	assert.IsType(t, HttpError(""), err)
}
