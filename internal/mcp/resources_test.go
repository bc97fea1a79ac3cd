package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/usestring/harreplay/internal/config"
	"github.com/usestring/harreplay/internal/mcp/tools"
	"github.com/usestring/harreplay/internal/query"
	"github.com/usestring/harreplay/internal/session"
	"github.com/usestring/harreplay/pkg/har"
	"github.com/usestring/harreplay/pkg/mutate"
)

func TestParseResourceURI(t *testing.T) {
	tests := []struct {
		name    string
		uri     string
		want    resourceRef
		wantErr bool
	}{
		{name: "entry", uri: "harreplay://session/abc/entry/3", want: resourceRef{session: "abc", kind: "entry", index: 3}},
		{name: "outcome", uri: "harreplay://session/abc/outcome/0", want: resourceRef{session: "abc", kind: "outcome", index: 0}},
		{name: "wrong scheme", uri: "http://session/abc/entry/3", wantErr: true},
		{name: "missing session", uri: "harreplay://session//entry/3", wantErr: true},
		{name: "unknown kind", uri: "harreplay://session/abc/flow/3", wantErr: true},
		{name: "negative index", uri: "harreplay://session/abc/entry/-1", wantErr: true},
		{name: "non numeric index", uri: "harreplay://session/abc/entry/x", wantErr: true},
		{name: "extra segment", uri: "harreplay://session/abc/entry/3/body", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseResourceURI(tt.uri)
			if tt.wantErr {
				var coded *tools.CodedError
				require.True(t, errors.As(err, &coded))
				assert.Equal(t, tools.ErrCodeInvalidInput, coded.Code)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func newResourceServer(t *testing.T) (*Server, *session.Session) {
	t.Helper()
	a := har.New()
	a.Log.Entries = []har.Entry{{
		Request:  har.Request{Method: "GET", URL: "https://example.com/items"},
		Response: har.Response{Status: 200, Content: har.Content{MimeType: "application/json", Text: `{"ok":true}`}},
	}}
	path := filepath.Join(t.TempDir(), "capture.har")
	require.NoError(t, har.Save(a, path))

	cfg := &config.Config{Concurrency: 1, RateLimitBurst: 1, ArchiveCacheMaxItems: 2}
	mgr, err := session.NewManager(cfg, nil)
	require.NoError(t, err)
	sess, err := mgr.Load(context.Background(), path)
	require.NoError(t, err)

	srv, err := NewServer(&tools.Deps{Sessions: mgr, Query: query.NewEngine(), Config: cfg}, WithBuiltinTools())
	require.NoError(t, err)
	return srv, sess
}

func readRequest(uri string) *sdkmcp.ReadResourceRequest {
	return &sdkmcp.ReadResourceRequest{Params: &sdkmcp.ReadResourceParams{URI: uri}}
}

func TestHandleResourceEntry(t *testing.T) {
	srv, sess := newResourceServer(t)
	method := "POST"
	require.NoError(t, sess.Replayer.Modify(0, mutate.Spec{Method: &method}))

	uri := "harreplay://session/" + sess.ID + "/entry/0"
	res, err := srv.handleResourceEntry(context.Background(), readRequest(uri))
	require.NoError(t, err)
	require.Len(t, res.Contents, 1)
	assert.Equal(t, uri, res.Contents[0].URI)

	var got entryResource
	require.NoError(t, json.Unmarshal([]byte(res.Contents[0].Text), &got))
	assert.Equal(t, "GET", got.Entry.Request.Method)
	assert.Equal(t, "POST", got.Effective.Method)
	require.NotNil(t, got.Modification)

	_, err = srv.handleResourceEntry(context.Background(), readRequest("harreplay://session/"+sess.ID+"/outcome/0"))
	assert.Error(t, err)
	_, err = srv.handleResourceEntry(context.Background(), readRequest("harreplay://session/"+sess.ID+"/entry/4"))
	assert.Error(t, err)
	_, err = srv.handleResourceEntry(context.Background(), readRequest("harreplay://session/unknown/entry/0"))
	assert.Error(t, err)
}

func TestHandleResourceOutcome_NotReplayed(t *testing.T) {
	srv, sess := newResourceServer(t)

	_, err := srv.handleResourceOutcome(context.Background(), readRequest("harreplay://session/"+sess.ID+"/outcome/0"))
	var coded *tools.CodedError
	require.True(t, errors.As(err, &coded))
	assert.Equal(t, tools.ErrCodeNotFound, coded.Code)
}
