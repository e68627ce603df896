package site_api

import (
	"regexp"
	"strings"
)

// DefaultExtensions matches common document and archive downloads.
const DefaultExtensions = ".pdf|.zip|.exe|.doc|.docx|.xlsx|.pptx"

var extensionSeparator = regexp.MustCompile(`[|,]`)

// ParseExtensions parses a pipe- or comma-delimited extension list.
// Entries are trimmed, lower-cased, given a leading dot if missing and de-duplicated.
func ParseExtensions(s string) []string {
	parts := extensionSeparator.Split(s, -1)
	exts := make([]string, 0, len(parts))
	seen := make(map[string]bool)
	for _, p := range parts {
		p = strings.ToLower(strings.TrimSpace(p))
		if p == "" || p == "." {
			continue
		}
		if !strings.HasPrefix(p, ".") {
			p = "." + p
		}
		if !seen[p] {
			exts = append(exts, p)
			seen[p] = true
		}
	}
	return exts
}

// hasExtension reports whether path ends with one of exts, ignoring case.
func hasExtension(path string, exts []string) bool {
	lower := strings.ToLower(path)
	for _, ext := range exts {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}
