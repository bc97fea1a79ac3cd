// Package types provides shared types for harreplay.
// These types are used across multiple packages and are designed for external consumption.
package types

// EntrySummary is a compact view of one captured transaction.
type EntrySummary struct {
	Index           int    `json:"index"`
	Method          string `json:"method"`
	URL             string `json:"url"`
	Host            string `json:"host"`
	Path            string `json:"path"`
	Route           string `json:"route,omitempty"`
	Status          int    `json:"status"`
	MimeType        string `json:"mime_type,omitempty"`
	StartedDateTime string `json:"started_date_time,omitempty"`
	HTTPVersion     string `json:"http_version,omitempty"`
	ReqBodyBytes    int    `json:"req_body_bytes"`
	RespBodyBytes   int    `json:"resp_body_bytes"`
	Modified        bool   `json:"modified,omitempty"`
}

// SelectQuery selects captured transactions. Values within one field are
// alternatives; fields combine with AND. Empty fields do not filter.
type SelectQuery struct {
	Indices     []int    `json:"indices,omitempty" yaml:"indices,omitempty" jsonschema:"Explicit transaction indices"`
	Methods     []string `json:"methods,omitempty" yaml:"methods,omitempty" jsonschema:"Request methods (case-insensitive)"`
	Hosts       []string `json:"hosts,omitempty" yaml:"hosts,omitempty" jsonschema:"Hosts; *.example.com matches the domain and its subdomains"`
	Statuses    []int    `json:"statuses,omitempty" yaml:"statuses,omitempty" jsonschema:"Captured response status codes"`
	MimeTypes   []string `json:"mime_types,omitempty" yaml:"mime_types,omitempty" jsonschema:"Captured response media types without parameters"`
	HeaderNames []string `json:"header_names,omitempty" yaml:"header_names,omitempty" jsonschema:"Request header names that must be present"`
	Text        string   `json:"text,omitempty" yaml:"text,omitempty" jsonschema:"Space separated URL tokens that must all appear"`
}

// Empty reports whether q selects everything.
func (q *SelectQuery) Empty() bool {
	return q == nil || (len(q.Indices) == 0 && len(q.Methods) == 0 && len(q.Hosts) == 0 &&
		len(q.Statuses) == 0 && len(q.MimeTypes) == 0 && len(q.HeaderNames) == 0 && q.Text == "")
}
