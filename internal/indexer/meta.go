// Package indexer provides bitmap indexes over the transactions of a loaded
// archive for fast entry selection.
package indexer

import (
	"strings"

	"github.com/usestring/harreplay/pkg/contenttype"
	"github.com/usestring/harreplay/pkg/har"
	"github.com/usestring/harreplay/pkg/types"
)

// EntryMeta holds the searchable fields of one transaction. Bodies are not
// stored.
type EntryMeta struct {
	Index            int
	Method           string
	URL              string
	Host             string
	Path             string
	Route            string
	Status           int
	MimeType         string
	HTTPVersion      string
	StartedDateTime  string
	HeaderNamesLower []string
	ReqBodyBytes     int
	RespBodyBytes    int
}

// FromEntry extracts metadata from a captured transaction.
func FromEntry(index int, e *har.Entry) *EntryMeta {
	req := &e.Request
	m := &EntryMeta{
		Index:           index,
		Method:          strings.ToUpper(req.Method),
		URL:             req.URL,
		Host:            req.Host(),
		Path:            req.Path(),
		Status:          e.Response.Status,
		MimeType:        contenttype.BaseMediaType(e.Response.Content.MimeType),
		HTTPVersion:     strings.ToUpper(req.HTTPVersion),
		StartedDateTime: e.StartedDateTime,
		RespBodyBytes:   int(max(e.Response.Content.Size, 0)),
	}
	m.Route = NormalizePath(m.Path)
	if req.PostData != nil {
		m.ReqBodyBytes = len(req.PostData.Text)
	}

	seen := make(map[string]bool, len(req.Headers))
	for _, h := range req.Headers {
		name := strings.ToLower(h.Name)
		if strings.HasPrefix(name, ":") || seen[name] {
			continue
		}
		seen[name] = true
		m.HeaderNamesLower = append(m.HeaderNamesLower, name)
	}
	return m
}

// ToSummary converts EntryMeta to EntrySummary for tool responses.
func (m *EntryMeta) ToSummary() *types.EntrySummary {
	return &types.EntrySummary{
		Index:           m.Index,
		Method:          m.Method,
		URL:             m.URL,
		Host:            m.Host,
		Path:            m.Path,
		Route:           m.Route,
		Status:          m.Status,
		MimeType:        m.MimeType,
		StartedDateTime: m.StartedDateTime,
		HTTPVersion:     m.HTTPVersion,
		ReqBodyBytes:    m.ReqBodyBytes,
		RespBodyBytes:   m.RespBodyBytes,
	}
}
