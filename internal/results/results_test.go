package results

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/usestring/harreplay/pkg/har"
	"github.com/usestring/harreplay/pkg/transport"
	"github.com/usestring/harreplay/pkg/types"
)

func boolPtr(b bool) *bool { return &b }

func matched(index int) types.Outcome {
	return types.Outcome{
		Index:            index,
		Request:          har.Request{Method: "GET", URL: fmt.Sprintf("https://api.example.com/%d", index), HTTPVersion: "HTTP/1.1"},
		OriginalResponse: har.Response{Status: 200},
		Live: &transport.LiveResponse{
			Status:      200,
			StatusText:  "OK",
			Proto:       "HTTP/1.1",
			ContentType: "application/json",
			Header: http.Header{
				"Content-Type": {"application/json"},
				"Set-Cookie":   {"sid=abc; Path=/; HttpOnly; Secure"},
			},
			Body: []byte(`{"ok":true}`),
		},
		Match:     boolPtr(true),
		StartedAt: time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC),
		ElapsedMs: 12,
	}
}

func failed(index int) types.Outcome {
	return types.Outcome{
		Index:   index,
		Request: har.Request{Method: "POST", URL: "https://down.example.com/", HTTPVersion: "HTTP/2"},
		Err: &transport.Error{
			Code: transport.CodeTimeout, Method: "POST", URL: "https://down.example.com/",
			Message: "deadline exceeded",
		},
		ElapsedMs: 30000,
	}
}

func TestSink_RecordAndSortedOutcomes(t *testing.T) {
	s := NewSink()
	s.Record(matched(2))
	s.Record(failed(0))
	s.Record(matched(1))

	out := s.Outcomes()
	require.Len(t, out, 3)
	for i, o := range out {
		assert.Equal(t, i, o.Index)
	}

	_, ok := s.Get(5)
	assert.False(t, ok, "collection is sparse")

	s.Record(matched(0))
	o, ok := s.Get(0)
	require.True(t, ok)
	assert.Nil(t, o.Err, "overwrite by index")
	assert.Equal(t, 3, s.Len())

	s.Reset()
	assert.Equal(t, 0, s.Len())
}

func TestSink_ListenersInRegistrationOrder(t *testing.T) {
	s := NewSink()
	var calls []string

	s.OnStart(func(index int, req har.Request) { calls = append(calls, fmt.Sprintf("start-a-%d", index)) })
	s.OnStart(func(index int, req har.Request) { calls = append(calls, fmt.Sprintf("start-b-%d", index)) })
	s.OnComplete(func(o types.Outcome) { calls = append(calls, fmt.Sprintf("complete-%d", o.Index)) })
	s.OnError(func(o types.Outcome) { calls = append(calls, fmt.Sprintf("error-%d", o.Index)) })

	s.Start(1, har.Request{})
	s.Record(matched(1))
	s.Start(2, har.Request{})
	s.Record(failed(2))

	assert.Equal(t, []string{
		"start-a-1", "start-b-1", "complete-1",
		"start-a-2", "start-b-2", "error-2",
	}, calls)
}

func TestSink_ConcurrentWriters(t *testing.T) {
	s := NewSink()
	var mu sync.Mutex
	seen := 0
	s.SubscribeAll(func(e Event) {
		mu.Lock()
		seen++
		mu.Unlock()
	})

	var wg sync.WaitGroup
	for i := range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Start(i, har.Request{})
			s.Record(matched(i))
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, s.Len())
	assert.Equal(t, 100, seen)
}

func TestReport(t *testing.T) {
	mismatch := matched(1)
	mismatch.Match = boolPtr(false)
	mismatch.OriginalResponse.Status = 201

	report := Report([]types.Outcome{matched(0), mismatch, failed(2)})

	assert.Contains(t, report, "Total requests: 3")
	assert.Contains(t, report, "Matched:        1 (33.33%)")
	assert.Contains(t, report, "Mismatched:     1 (33.33%)")
	assert.Contains(t, report, "Failed:         1 (33.33%)")
	assert.Contains(t, report, "#0 GET https://api.example.com/0")
	assert.Contains(t, report, "MATCHED (status 200)")
	assert.Contains(t, report, "MISMATCHED (status 200, captured 201)")
	assert.Contains(t, report, "FAILED [TIMEOUT]")
	assert.Contains(t, report, "elapsed: 30000ms")

	assert.Equal(t, "No replay results available.\n", Report(nil))
}

func TestMarshalOutcomes(t *testing.T) {
	data, err := MarshalOutcomes([]types.Outcome{matched(0), failed(1)})
	require.NoError(t, err)

	var records []map[string]any
	require.NoError(t, json.Unmarshal(data, &records))
	require.Len(t, records, 2)

	live := records[0]["replayedResponse"].(map[string]any)
	assert.Equal(t, float64(200), live["status"])
	assert.Equal(t, map[string]any{"ok": true}, live["data"])
	assert.Equal(t, true, records[0]["match"])
	assert.Nil(t, records[0]["error"])

	errRec := records[1]["error"].(map[string]any)
	assert.Equal(t, "TIMEOUT", errRec["code"])
	assert.Contains(t, errRec["message"], "deadline exceeded")
	assert.Equal(t, "POST", errRec["request"].(map[string]any)["method"])
	assert.Nil(t, records[1]["match"])
	assert.Nil(t, records[1]["replayedResponse"])
}

func TestMarshalOutcomes_PlainError(t *testing.T) {
	o := failed(0)
	o.Err = errors.New("plain")
	data, err := MarshalOutcomes([]types.Outcome{o})
	require.NoError(t, err)
	assert.Contains(t, string(data), `"message": "plain"`)
	assert.NotContains(t, string(data), `"code"`)
}

func TestBuildArchive(t *testing.T) {
	a := BuildArchive([]types.Outcome{matched(0), failed(1)})

	assert.Equal(t, har.Version, a.Log.Version)
	assert.Equal(t, har.CreatorName, a.Log.Creator.Name)
	require.Equal(t, 2, a.Len())

	ok := a.Log.Entries[0]
	assert.Equal(t, "2024-03-01T10:00:00Z", ok.StartedDateTime)
	assert.Equal(t, 200, ok.Response.Status)
	assert.Equal(t, `{"ok":true}`, ok.Response.Content.Text)
	assert.Equal(t, "application/json", ok.Response.Content.MimeType)
	require.Len(t, ok.Response.Cookies, 1)
	assert.True(t, ok.Response.Cookies[0].HTTPOnly)
	assert.Equal(t, 0, ok.Replay.Index)
	assert.True(t, *ok.Replay.Match)

	bad := a.Log.Entries[1]
	assert.Equal(t, 0, bad.Response.Status)
	assert.Empty(t, bad.Response.Headers)
	assert.NotNil(t, bad.Response.Headers)
	assert.Nil(t, bad.Replay.Match)
	assert.Contains(t, bad.Replay.Error, "deadline exceeded")
	assert.Equal(t, "HTTP/2", bad.Response.HTTPVersion)
}

func TestBuildArchive_BinaryBodyBase64(t *testing.T) {
	o := matched(0)
	o.Live.ContentType = "image/png"
	o.Live.Body = []byte{0x89, 'P', 'N', 'G'}

	a := BuildArchive([]types.Outcome{o})
	c := a.Log.Entries[0].Response.Content
	assert.Equal(t, "base64", c.Encoding)
	assert.Equal(t, "iVBORw==", c.Text)
}

func TestSave_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	outcomes := []types.Outcome{matched(0), failed(1), matched(2)}

	harPath := filepath.Join(dir, "out", "replayed.har")
	require.NoError(t, SaveArchive(harPath, outcomes))

	loaded, err := har.LoadFile(harPath)
	require.NoError(t, err)
	require.Equal(t, len(outcomes), loaded.Len())
	for i, o := range outcomes {
		assert.Equal(t, o.Request.Method, loaded.Log.Entries[i].Request.Method)
		assert.Equal(t, o.Request.URL, loaded.Log.Entries[i].Request.URL)
	}

	jsonPath := filepath.Join(dir, "deep", "results.json")
	require.NoError(t, SaveJSON(jsonPath, outcomes))
	data, err := os.ReadFile(jsonPath)
	require.NoError(t, err)
	assert.True(t, json.Valid(data))

	reportPath := filepath.Join(dir, "report.txt")
	require.NoError(t, SaveReport(reportPath, outcomes))
	text, err := os.ReadFile(reportPath)
	require.NoError(t, err)
	assert.Contains(t, string(text), "Total requests: 3")
}
