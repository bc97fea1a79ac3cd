package indexer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/usestring/harreplay/pkg/har"
	"github.com/usestring/harreplay/pkg/types"
)

func testEntry(method, url string, status int, mime string, headers ...string) har.Entry {
	e := har.Entry{
		StartedDateTime: "2024-03-01T10:00:00Z",
		Request:         har.Request{Method: method, URL: url, HTTPVersion: "HTTP/1.1"},
		Response: har.Response{
			Status:  status,
			Content: har.Content{MimeType: mime, Size: 42},
		},
	}
	for _, h := range headers {
		e.Request.Headers = append(e.Request.Headers, har.NameValue{Name: h, Value: "x"})
	}
	return e
}

func testArchive() *har.Archive {
	a := har.New()
	a.Log.Entries = []har.Entry{
		testEntry("GET", "https://api.example.com/v1/users/123", 200, "application/json; charset=utf-8", "Authorization", ":authority"),
		testEntry("POST", "https://api.example.com/v1/users", 201, "application/json"),
		testEntry("GET", "https://www.example.com/index.html", 200, "text/html"),
		testEntry("get", "https://cdn.other.net/app.js?v=3", 304, ""),
		testEntry("DELETE", "https://example.com/v1/users/550e8400-e29b-41d4-a716-446655440000", 500, "application/json", "authorization"),
	}
	return a
}

func TestFromEntry(t *testing.T) {
	a := testArchive()
	a.Log.Entries[1].Request.PostData = &har.PostData{MimeType: "application/json", Text: `{"name":"x"}`}

	m := FromEntry(0, &a.Log.Entries[0])
	assert.Equal(t, "GET", m.Method)
	assert.Equal(t, "api.example.com", m.Host)
	assert.Equal(t, "/v1/users/123", m.Path)
	assert.Equal(t, "/v1/users/{id}", m.Route)
	assert.Equal(t, "application/json", m.MimeType)
	assert.Equal(t, []string{"authorization"}, m.HeaderNamesLower, "pseudo headers skipped")
	assert.Equal(t, 42, m.RespBodyBytes)

	m = FromEntry(1, &a.Log.Entries[1])
	assert.Equal(t, 12, m.ReqBodyBytes)

	s := FromEntry(4, &a.Log.Entries[4]).ToSummary()
	assert.Equal(t, 4, s.Index)
	assert.Equal(t, "/v1/users/{uuid}", s.Route)
	assert.Equal(t, 500, s.Status)
}

func TestIndexer_Lookups(t *testing.T) {
	idx := Build(testArchive())
	require.Equal(t, 5, idx.Count())

	assert.Equal(t, []uint32{0, 2, 3}, idx.Method("get").ToArray())
	assert.Equal(t, []uint32{0, 1}, idx.Host("API.example.com").ToArray())
	assert.Equal(t, []uint32{0, 1, 2, 4}, idx.Host("*.example.com").ToArray())
	assert.Nil(t, idx.Host("*."))
	assert.Equal(t, []uint32{0, 2}, idx.Status(200).ToArray())
	assert.Equal(t, []uint32{0, 1, 4}, idx.MimeType("application/json").ToArray())
	assert.Equal(t, []uint32{0, 4}, idx.HeaderName("AUTHORIZATION").ToArray())
	assert.Equal(t, []uint32{0, 1, 4}, idx.Token("users").ToArray())
	assert.Equal(t, []uint32{0, 1, 2, 3, 4}, idx.HTTPVersion("http/1.1").ToArray())
	assert.Nil(t, idx.Method("PATCH"))

	assert.Nil(t, idx.Meta(5))
	assert.Nil(t, idx.Meta(-1))
	assert.Equal(t, uint64(5), idx.All().GetCardinality())
}

func TestIndexer_Select(t *testing.T) {
	idx := Build(testArchive())

	tests := []struct {
		name  string
		query *types.SelectQuery
		want  []int
	}{
		{"nil selects all", nil, []int{0, 1, 2, 3, 4}},
		{"empty selects all", &types.SelectQuery{}, []int{0, 1, 2, 3, 4}},
		{"methods are alternatives", &types.SelectQuery{Methods: []string{"POST", "delete"}}, []int{1, 4}},
		{"fields combine", &types.SelectQuery{Methods: []string{"GET"}, Hosts: []string{"*.example.com"}}, []int{0, 2}},
		{"status", &types.SelectQuery{Statuses: []int{304, 500}}, []int{3, 4}},
		{"mime", &types.SelectQuery{MimeTypes: []string{"text/html"}}, []int{2}},
		{"headers all required", &types.SelectQuery{HeaderNames: []string{"authorization"}}, []int{0, 4}},
		{"text tokens all required", &types.SelectQuery{Text: "v1 users"}, []int{0, 1, 4}},
		{"unknown token", &types.SelectQuery{Text: "nothing"}, []int{}},
		{"indices", &types.SelectQuery{Indices: []int{4, 1, 99, -1}}, []int{1, 4}},
		{"indices and method", &types.SelectQuery{Indices: []int{0, 1}, Methods: []string{"POST"}}, []int{1}},
		{"unknown method", &types.SelectQuery{Methods: []string{"PATCH"}}, []int{}},
		{"blank method matches nothing", &types.SelectQuery{Methods: []string{" "}}, []int{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, idx.Indices(tt.query))
		})
	}
}

func TestIndexer_ContainsAndSummaries(t *testing.T) {
	idx := Build(testArchive())
	q := &types.SelectQuery{Methods: []string{"GET"}}

	assert.True(t, idx.Contains(q, 3))
	assert.False(t, idx.Contains(q, 1))
	assert.False(t, idx.Contains(q, -1))

	summaries := idx.Summaries(idx.Select(q))
	require.Len(t, summaries, 3)
	assert.Equal(t, "https://cdn.other.net/app.js?v=3", summaries[2].URL)
}

func TestBuild_Empty(t *testing.T) {
	idx := Build(nil)
	assert.Equal(t, 0, idx.Count())
	assert.Empty(t, idx.Indices(&types.SelectQuery{}))
}
