package tools

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/usestring/harreplay/internal/config"
	"github.com/usestring/harreplay/internal/query"
	"github.com/usestring/harreplay/internal/session"
	"github.com/usestring/harreplay/pkg/har"
	"github.com/usestring/harreplay/pkg/mutate"
	"github.com/usestring/harreplay/pkg/types"
)

const (
	itemsJSON    = `{"ok":true,"items":[{"id":1},{"id":2}]}`
	capturedHTML = `<html><body><h1>Hello</h1></body></html>`
)

type fixture struct {
	deps    *Deps
	archive string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/items":
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(itemsJSON))
		case "/page":
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			w.Write([]byte(`<html><body><h1>Hello</h1><h1>World</h1></body></html>`))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)

	a := har.New()
	a.Log.Entries = []har.Entry{
		{
			Request:  har.Request{Method: "GET", URL: srv.URL + "/items", HTTPVersion: "HTTP/1.1"},
			Response: har.Response{Status: 200, Content: har.Content{MimeType: "application/json", Text: itemsJSON}},
		},
		{
			Request: har.Request{
				Method:      "POST",
				URL:         srv.URL + "/items",
				HTTPVersion: "HTTP/1.1",
				Headers:     []har.NameValue{{Name: "Content-Type", Value: "application/json"}},
				PostData:    &har.PostData{MimeType: "application/json", Text: `{"name":"x"}`},
			},
			Response: har.Response{Status: 200, Content: har.Content{MimeType: "application/json", Text: itemsJSON}},
		},
		{
			Request:  har.Request{Method: "GET", URL: srv.URL + "/page", HTTPVersion: "HTTP/1.1"},
			Response: har.Response{Status: 200, Content: har.Content{MimeType: "text/html", Text: capturedHTML}},
		},
	}
	path := filepath.Join(t.TempDir(), "capture.har")
	require.NoError(t, har.Save(a, path))

	cfg := &config.Config{
		Timeout:              5 * time.Second,
		Concurrency:          1,
		RateLimitBurst:       1,
		DiffPreviewChars:     100,
		ArchiveCacheMaxItems: 4,
		DefaultListLimit:     config.DefaultListLimitValue,
		DefaultQueryLimit:    config.DefaultQueryLimitValue,
	}
	mgr, err := session.NewManager(cfg, nil)
	require.NoError(t, err)

	return &fixture{
		deps:    &Deps{Sessions: mgr, Query: query.NewEngine(), Config: cfg},
		archive: path,
	}
}

func (f *fixture) load(t *testing.T) SessionInfo {
	t.Helper()
	_, out, err := ToolLoadArchive(f.deps)(context.Background(), nil, LoadArchiveInput{Path: f.archive})
	require.NoError(t, err)
	return out.Session
}

func (f *fixture) replay(t *testing.T, input ReplayInput) ReplayOutput {
	t.Helper()
	_, out, err := ToolReplay(f.deps)(context.Background(), nil, input)
	require.NoError(t, err)
	return out
}

func requireCode(t *testing.T, err error, code string) {
	t.Helper()
	var coded *CodedError
	require.True(t, errors.As(err, &coded), "got %v", err)
	assert.Equal(t, code, coded.Code)
}

func TestRegister_AllTools(t *testing.T) {
	srv := sdkmcp.NewServer(&sdkmcp.Implementation{Name: "test", Version: "0"}, nil)
	assert.NotPanics(t, func() {
		Register(srv, &Deps{Config: &config.Config{}})
	})
}

func TestLoadArchive(t *testing.T) {
	f := newFixture(t)

	_, _, err := ToolSessionsList(f.deps)(context.Background(), nil, SessionsListInput{})
	require.NoError(t, err)

	info := f.load(t)
	assert.Equal(t, 3, info.EntryCount)
	assert.True(t, info.Active)
	assert.Zero(t, info.Replayed)

	_, list, err := ToolSessionsList(f.deps)(context.Background(), nil, SessionsListInput{})
	require.NoError(t, err)
	require.Len(t, list.Sessions, 1)
	assert.Equal(t, info.SessionID, list.Sessions[0].SessionID)

	tests := []struct {
		name string
		path string
		code string
	}{
		{name: "empty path", path: "", code: ErrCodeInvalidInput},
		{name: "missing file", path: filepath.Join(t.TempDir(), "absent.har"), code: ErrCodeNotFound},
		{name: "not a har", path: writeFile(t, "bad.har", `{"log": 1}`), code: ErrCodeFormat},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := ToolLoadArchive(f.deps)(context.Background(), nil, LoadArchiveInput{Path: tt.path})
			requireCode(t, err, tt.code)
		})
	}
}

func TestSessionRequired(t *testing.T) {
	f := newFixture(t)
	_, _, err := ToolListEntries(f.deps)(context.Background(), nil, ListEntriesInput{})
	requireCode(t, err, ErrCodeNotFound)
}

func TestListEntries(t *testing.T) {
	f := newFixture(t)
	f.load(t)

	tests := []struct {
		name          string
		input         ListEntriesInput
		wantIndices   []int
		wantTotal     int
		wantTruncated bool
	}{
		{name: "all", input: ListEntriesInput{}, wantIndices: []int{0, 1, 2}, wantTotal: 3},
		{name: "by method", input: ListEntriesInput{Select: &types.SelectQuery{Methods: []string{"get"}}}, wantIndices: []int{0, 2}, wantTotal: 2},
		{name: "paged", input: ListEntriesInput{Offset: 1, Limit: 1}, wantIndices: []int{1}, wantTotal: 3, wantTruncated: true},
		{name: "past end", input: ListEntriesInput{Offset: 5}, wantIndices: []int{}, wantTotal: 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, out, err := ToolListEntries(f.deps)(context.Background(), nil, tt.input)
			require.NoError(t, err)
			got := []int{}
			for _, e := range out.Entries {
				got = append(got, e.Index)
			}
			assert.Equal(t, tt.wantIndices, got)
			assert.Equal(t, tt.wantTotal, out.Total)
			assert.Equal(t, tt.wantTruncated, out.Truncated)
		})
	}

	_, _, err := ToolListEntries(f.deps)(context.Background(), nil, ListEntriesInput{Offset: -1})
	requireCode(t, err, ErrCodeInvalidInput)
}

func TestGetEntryAndModify(t *testing.T) {
	f := newFixture(t)
	info := f.load(t)
	get := ToolGetEntry(f.deps)

	_, out, err := get(context.Background(), nil, GetEntryInput{Index: 0})
	require.NoError(t, err)
	assert.Equal(t, "GET", out.Request.Method)
	assert.Equal(t, 200, out.Response.Status)
	assert.Equal(t, "pending", out.State)
	assert.Nil(t, out.Modification)
	assert.Empty(t, out.Response.Headers)
	assert.Equal(t, "harreplay://session/"+info.SessionID+"/entry/0", out.Resource)

	_, out, err = get(context.Background(), nil, GetEntryInput{Index: 0, BodyMode: BodyModeNone})
	require.NoError(t, err)
	assert.Empty(t, out.Response.Body)

	_, _, err = get(context.Background(), nil, GetEntryInput{Index: 0, BodyMode: "schema"})
	requireCode(t, err, ErrCodeInvalidInput)
	_, _, err = get(context.Background(), nil, GetEntryInput{Index: 7})
	requireCode(t, err, ErrCodeNotFound)

	modify := ToolModifyRequest(f.deps)
	_, _, err = modify(context.Background(), nil, ModifyRequestInput{Index: 1})
	requireCode(t, err, ErrCodeInvalidInput)

	method := "PUT"
	_, mod, err := modify(context.Background(), nil, ModifyRequestInput{
		Index: 1,
		Spec:  &mutate.Spec{Headers: map[string]string{"X-Token": "fresh"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "POST", mod.Method)
	_, mod, err = modify(context.Background(), nil, ModifyRequestInput{Index: 1, Spec: &mutate.Spec{Method: &method}})
	require.NoError(t, err)
	assert.Equal(t, "PUT", mod.Method)
	require.NotNil(t, mod.Modification)
	assert.Equal(t, "fresh", mod.Modification.Headers["X-Token"])

	_, out, err = get(context.Background(), nil, GetEntryInput{Index: 1, IncludeHeaders: true})
	require.NoError(t, err)
	assert.Equal(t, "PUT", out.Request.Method)
	assert.True(t, out.Summary.Modified)
	assert.Contains(t, out.Request.Headers, har.NameValue{Name: "X-Token", Value: "fresh"})
	assert.JSONEq(t, `{"name":"x"}`, out.Request.Body)

	_, mod, err = modify(context.Background(), nil, ModifyRequestInput{Index: 1, Clear: true})
	require.NoError(t, err)
	assert.Nil(t, mod.Modification)
	assert.Equal(t, "POST", mod.Method)
}

func TestReplayAndDiff(t *testing.T) {
	f := newFixture(t)
	info := f.load(t)

	_, _, err := ToolDiffOutcome(f.deps)(context.Background(), nil, DiffOutcomeInput{Index: 2})
	requireCode(t, err, ErrCodeNotFound)

	out := f.replay(t, ReplayInput{Concurrency: 2, Expect: ".status == 200"})
	require.Len(t, out.Outcomes, 3)
	assert.NotEmpty(t, out.RunID)
	assert.Equal(t, 3, out.Summary.Total)
	assert.Equal(t, 2, out.Summary.Matched)
	assert.Equal(t, 1, out.Summary.Mismatched)
	assert.Equal(t, 3, out.Summary.ExpectPassed)
	assert.NotEmpty(t, out.Hint)
	assert.Equal(t, types.ResultMismatched, out.Outcomes[2].Result)

	_, diff, err := ToolDiffOutcome(f.deps)(context.Background(), nil, DiffOutcomeInput{Index: 2})
	require.NoError(t, err)
	assert.False(t, diff.Diff.Matches)
	assert.Equal(t, "medium", diff.Severity)
	assert.Equal(t, "harreplay://session/"+info.SessionID+"/outcome/2", diff.Resource)

	_, diff, err = ToolDiffOutcome(f.deps)(context.Background(), nil, DiffOutcomeInput{Index: 0})
	require.NoError(t, err)
	assert.True(t, diff.Diff.Matches)
	assert.Equal(t, "none", diff.Severity)

	_, entry, err := ToolGetEntry(f.deps)(context.Background(), nil, GetEntryInput{Index: 2})
	require.NoError(t, err)
	assert.Equal(t, "succeeded", entry.State)
	require.NotNil(t, entry.Outcome)
	assert.Equal(t, 200, entry.Outcome.LiveStatus)
}

func TestReplay_InvalidInput(t *testing.T) {
	f := newFixture(t)
	f.load(t)
	negative := -1

	tests := []struct {
		name  string
		input ReplayInput
		code  string
	}{
		{name: "negative concurrency", input: ReplayInput{Concurrency: -1}, code: ErrCodeInvalidInput},
		{name: "negative delay", input: ReplayInput{DelayMs: &negative}, code: ErrCodeInvalidInput},
		{name: "bad expectation", input: ReplayInput{Expect: ".status =="}, code: ErrCodeInvalidInput},
		{name: "out of range", input: ReplayInput{Indices: []int{0, 9}}, code: ErrCodeNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := ToolReplay(f.deps)(context.Background(), nil, tt.input)
			requireCode(t, err, tt.code)
		})
	}
}

func TestQueryBody(t *testing.T) {
	f := newFixture(t)
	f.load(t)
	queryBody := ToolQueryBody(f.deps)

	_, out, err := queryBody(context.Background(), nil, QueryBodyInput{Expression: ".items[].id", Indices: []int{0}})
	require.NoError(t, err)
	assert.Empty(t, out.Values)
	require.Len(t, out.Entries, 1)
	assert.Equal(t, "not replayed", out.Entries[0].Reason)
	assert.NotEmpty(t, out.Hint)

	f.replay(t, ReplayInput{})

	tests := []struct {
		name  string
		input QueryBodyInput
		want  []any
	}{
		{
			name:  "jq over live bodies",
			input: QueryBodyInput{Expression: ".items[].id", Indices: []int{0, 1}},
			want:  []any{float64(1), float64(2), float64(1), float64(2)},
		},
		{
			name:  "deduplicated",
			input: QueryBodyInput{Expression: ".items[].id", Indices: []int{0, 1}, Deduplicate: true},
			want:  []any{float64(1), float64(2)},
		},
		{
			name:  "css detected from html",
			input: QueryBodyInput{Expression: "h1", Indices: []int{2}},
			want:  []any{"Hello", "World"},
		},
		{
			name:  "captured body",
			input: QueryBodyInput{Expression: "h1", Indices: []int{2}, Target: TargetCaptured},
			want:  []any{"Hello"},
		},
		{
			name:  "max results",
			input: QueryBodyInput{Expression: ".items[].id", Indices: []int{0, 1}, MaxResults: 3},
			want:  []any{float64(1), float64(2), float64(1)},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, out, err := queryBody(context.Background(), nil, tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, out.Values)
		})
	}

	_, out, err = queryBody(context.Background(), nil, QueryBodyInput{Expression: ".ok", Select: &types.SelectQuery{Methods: []string{"POST"}}})
	require.NoError(t, err)
	assert.Equal(t, []any{true}, out.Values)
	assert.Equal(t, 1, out.Summary.OutcomesMatched)

	for _, input := range []QueryBodyInput{
		{Expression: ""},
		{Expression: ".a", Mode: "yaml"},
		{Expression: ".[", Mode: "jq"},
		{Expression: ".a", Target: "request"},
	} {
		_, _, err := queryBody(context.Background(), nil, input)
		requireCode(t, err, ErrCodeInvalidInput)
	}
}

func TestReportAndSave(t *testing.T) {
	f := newFixture(t)
	f.load(t)
	f.replay(t, ReplayInput{})

	_, report, err := ToolReport(f.deps)(context.Background(), nil, ReportInput{Failures: true, Text: true})
	require.NoError(t, err)
	assert.Equal(t, 3, report.Summary.Total)
	require.Len(t, report.Outcomes, 1)
	assert.Equal(t, 2, report.Outcomes[0].Index)
	assert.Contains(t, report.Report, "Replay report")

	_, _, err = ToolSaveResults(f.deps)(context.Background(), nil, SaveResultsInput{})
	requireCode(t, err, ErrCodeInvalidInput)

	dir := t.TempDir()
	input := SaveResultsInput{
		JSONPath:   filepath.Join(dir, "out", "results.json"),
		HARPath:    filepath.Join(dir, "out", "live.har"),
		ReportPath: filepath.Join(dir, "report.txt"),
		Reset:      true,
	}
	_, saved, err := ToolSaveResults(f.deps)(context.Background(), nil, input)
	require.NoError(t, err)
	assert.Equal(t, 3, saved.Outcomes)
	assert.Equal(t, []string{input.JSONPath, input.HARPath, input.ReportPath}, saved.Written)
	for _, path := range saved.Written {
		assert.FileExists(t, path)
	}

	_, report, err = ToolReport(f.deps)(context.Background(), nil, ReportInput{})
	require.NoError(t, err)
	assert.Zero(t, report.Summary.Total)
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}
