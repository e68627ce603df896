package harvester

import (
	"fmt"
	"net"
	"net/url"
	"path"
	"path/filepath"
	"strings"

	"github.com/cespare/xxhash/v2"

	"github.com/isseis/go-site-file-harvester/site_api"
)

// CanonicalURL returns the record identity for rawURL: scheme and host
// lower-cased, default port, user info and fragment removed, empty path
// replaced by "/". The query is kept.
func CanonicalURL(rawURL string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return "", site_api.InvalidUrlError(err.Error())
	}
	u.Scheme = strings.ToLower(u.Scheme)
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", site_api.InvalidUrlError(rawURL + ": scheme must be http or https")
	}
	if u.Host == "" {
		return "", site_api.InvalidUrlError(rawURL + ": missing host")
	}

	host := strings.ToLower(u.Hostname())
	port := u.Port()
	if (u.Scheme == "http" && port == "80") || (u.Scheme == "https" && port == "443") {
		port = ""
	}
	if port != "" {
		u.Host = net.JoinHostPort(host, port)
	} else if strings.Contains(host, ":") {
		u.Host = "[" + host + "]"
	} else {
		u.Host = host
	}

	u.User = nil
	u.Fragment = ""
	u.RawFragment = ""
	if u.Path == "" {
		u.Path = "/"
		u.RawPath = ""
	}
	return u.String(), nil
}

// LocalPath maps a canonical URL to a file under downloadDir, mirroring the URL
// path. ".." segments cannot climb out of downloadDir. A query adds a short hash
// of itself before the file extension, so "a.pdf?v=2" and "a.pdf?v=3" are saved apart.
func LocalPath(downloadDir string, canonicalURL string) (string, error) {
	u, err := url.Parse(canonicalURL)
	if err != nil {
		return "", site_api.InvalidUrlError(err.Error())
	}
	rel := strings.TrimPrefix(path.Clean("/"+u.Path), "/")
	if rel == "" || strings.HasSuffix(u.Path, "/") {
		return "", site_api.InvalidUrlError(canonicalURL + ": no file name in path")
	}
	if u.RawQuery != "" {
		rel = withQueryHash(rel, u.RawQuery)
	}
	return filepath.Join(downloadDir, filepath.FromSlash(rel)), nil
}

// withQueryHash inserts an 8-digit hex hash of query between the file name's stem and extension.
func withQueryHash(rel string, query string) string {
	dir, name := path.Split(rel)
	ext := path.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	return dir + fmt.Sprintf("%s_%08x%s", stem, uint32(xxhash.Sum64String(query)), ext)
}
