package indexer

import (
	"net/url"
	"regexp"
	"sort"
	"strings"
	"unicode"
)

var (
	uuidPattern    = regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`)
	numericPattern = regexp.MustCompile(`^\d+$`)
	hexPattern     = regexp.MustCompile(`^[0-9a-f]{8,}$`)
)

const tokenDelimiters = "/?&=.-_:"

// Tokenize lowercases s and splits it on / ? & = . - _ : and whitespace.
// Tokens shorter than 2 characters are dropped.
func Tokenize(s string) []string {
	fields := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return strings.ContainsRune(tokenDelimiters, r) || unicode.IsSpace(r)
	})

	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if len(f) >= 2 {
			out = append(out, f)
		}
	}
	return out
}

// TokenizeURL extracts tokens from the host, path and query keys of rawURL.
// Query values are not indexed.
func TokenizeURL(rawURL string) []string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return Tokenize(rawURL)
	}

	parts := []string{u.Host, u.Path}
	query := u.Query()
	keys := make([]string, 0, len(query))
	for key := range query {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	parts = append(parts, keys...)
	return Tokenize(strings.Join(parts, " "))
}

// NormalizePath replaces identifier-like path segments with placeholders:
// numbers become {id}, UUIDs {uuid} and long hex strings {hex}.
func NormalizePath(path string) string {
	segments := strings.Split(path, "/")
	for i, seg := range segments {
		if seg != "" {
			segments[i] = normalizeSegment(seg)
		}
	}
	return strings.Join(segments, "/")
}

func normalizeSegment(segment string) string {
	lower := strings.ToLower(segment)
	switch {
	case uuidPattern.MatchString(lower):
		return "{uuid}"
	case numericPattern.MatchString(segment):
		return "{id}"
	case hexPattern.MatchString(lower):
		return "{hex}"
	}
	return segment
}
