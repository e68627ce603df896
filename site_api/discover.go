package site_api

import (
	"bytes"
	"net/url"
	"sort"
	"strings"

	"golang.org/x/net/html"
)

// DiscoverLinks returns the absolute URLs of anchors on page whose path ends
// with one of exts. Relative links are resolved against the page URL, or the
// first <base href> if present. Fragments are dropped, only http(s) links are
// kept and the result is sorted and unique.
func DiscoverLinks(page *Page, exts []string) []string {
	if page == nil || len(exts) == 0 {
		return nil
	}
	base := page.URL
	var hrefs []string

	z := html.NewTokenizer(bytes.NewReader(page.Body))
	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			// io.EOF or a malformed document; keep what was found so far.
			break
		}
		if tt != html.StartTagToken && tt != html.SelfClosingTagToken {
			continue
		}
		name, hasAttr := z.TagName()
		if !hasAttr {
			continue
		}
		switch string(name) {
		case "base":
			if href, ok := attr(z, "href"); ok && base == page.URL {
				if u, err := page.URL.Parse(href); err == nil {
					base = u
				}
			}
		case "a":
			if href, ok := attr(z, "href"); ok {
				hrefs = append(hrefs, href)
			}
		}
	}

	seen := make(map[string]bool)
	var links []string
	for _, href := range hrefs {
		u, ok := resolveLink(base, href)
		if !ok || !hasExtension(u.Path, exts) {
			continue
		}
		s := u.String()
		if !seen[s] {
			seen[s] = true
			links = append(links, s)
		}
	}
	sort.Strings(links)
	return links
}

// attr returns the value of the named attribute of the current tag.
func attr(z *html.Tokenizer, name string) (string, bool) {
	for {
		key, val, more := z.TagAttr()
		if string(key) == name {
			return strings.TrimSpace(string(val)), true
		}
		if !more {
			return "", false
		}
	}
}

func resolveLink(base *url.URL, href string) (*url.URL, bool) {
	if href == "" || strings.HasPrefix(href, "#") {
		return nil, false
	}
	u, err := base.Parse(href)
	if err != nil {
		return nil, false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, false
	}
	u.Fragment = ""
	u.RawFragment = ""
	return u, true
}
