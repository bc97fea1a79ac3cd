// Package jsoncompact shrinks JSON values and text for display by trimming
// arrays and truncating strings.
package jsoncompact

import (
	"encoding/json"
	"fmt"
	"unicode/utf8"
)

// Options controls JSON compaction behavior.
type Options struct {
	MaxArrayItems int // Trim arrays to N items (0 = no limit)
	MaxStringLen  int // Truncate strings longer than N chars (0 = no limit)
	MaxDepth      int // Max recursion depth (0 = unlimited)
}

// Default values for compaction options.
const (
	DefaultMaxArrayItems = 3
	DefaultMaxStringLen  = 100
	DefaultMaxDepth      = 0 // unlimited
)

// DefaultOptions returns the default compaction settings.
func DefaultOptions() *Options {
	return &Options{
		MaxArrayItems: DefaultMaxArrayItems,
		MaxStringLen:  DefaultMaxStringLen,
		MaxDepth:      DefaultMaxDepth,
	}
}

// Compact compresses JSON bytes by trimming arrays and strings.
// Returns error if input is not valid JSON.
// If opts is nil, DefaultOptions() is used.
func Compact(data []byte, opts *Options) ([]byte, error) {
	if len(data) == 0 {
		return data, nil
	}

	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}
	return json.Marshal(CompactValue(v, opts))
}

// CompactValue compresses a parsed JSON value (any type from json.Unmarshal).
// If opts is nil, DefaultOptions() is used.
func CompactValue(v any, opts *Options) any {
	if opts == nil {
		opts = DefaultOptions()
	}
	return compactRecursive(v, opts, 0)
}

// Preview cuts s to at most n runes and appends "..." when anything was
// removed. n <= 0 disables truncation.
func Preview(s string, n int) string {
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := 0
	for i := range s {
		if runes == n {
			return s[:i] + "..."
		}
		runes++
	}
	return s
}

func compactRecursive(v any, opts *Options, depth int) any {
	if opts.MaxDepth > 0 && depth >= opts.MaxDepth {
		return "[max depth]"
	}

	switch val := v.(type) {
	case []any:
		return compactArray(val, opts, depth)
	case map[string]any:
		result := make(map[string]any, len(val))
		for k, item := range val {
			result[k] = compactRecursive(item, opts, depth+1)
		}
		return result
	case string:
		if opts.MaxStringLen <= 0 || utf8.RuneCountInString(val) <= opts.MaxStringLen {
			return val
		}
		remaining := utf8.RuneCountInString(val) - opts.MaxStringLen
		return Preview(val, opts.MaxStringLen) + fmt.Sprintf(" (%d more chars)", remaining)
	default:
		return v
	}
}

func compactArray(arr []any, opts *Options, depth int) []any {
	limit := len(arr)
	if opts.MaxArrayItems > 0 && limit > opts.MaxArrayItems {
		limit = opts.MaxArrayItems
	}

	result := make([]any, 0, limit+1)
	for _, item := range arr[:limit] {
		result = append(result, compactRecursive(item, opts, depth+1))
	}
	if remaining := len(arr) - limit; remaining > 0 {
		result = append(result, fmt.Sprintf("... (%d more items)", remaining))
	}
	return result
}
