package query

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/usestring/harreplay/pkg/har"
	"github.com/usestring/harreplay/pkg/transport"
)

func TestEngine_Query(t *testing.T) {
	engine := NewEngine()
	data := []byte(`{"items": [{"status": "active", "name": "a"}, {"status": "inactive", "name": "b"}, {"status": "active", "name": "a"}]}`)

	tests := []struct {
		name        string
		expr        string
		deduplicate bool
		max         int
		want        []any
		rawCount    int
	}{
		{"field", ".items[0].name", false, 0, []any{"a"}, 1},
		{"iterate", ".items[].name", false, 0, []any{"a", "b", "a"}, 3},
		{"deduplicate", ".items[].name", true, 0, []any{"a", "b"}, 3},
		{"max results", ".items[].name", false, 2, []any{"a", "b"}, 2},
		{"select", `.items[] | select(.status == "active") | .name`, false, 0, []any{"a", "a"}, 2},
		{"nulls skipped", ".items[].missing", false, 0, []any{}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := engine.Query(data, tt.expr, tt.deduplicate, tt.max)
			require.NoError(t, err)
			assert.Equal(t, tt.want, result.Values)
			assert.Equal(t, tt.rawCount, result.RawCount)
		})
	}
}

func TestEngine_Query_Errors(t *testing.T) {
	engine := NewEngine()

	_, err := engine.Query([]byte(`{}`), ".name[", false, 0)
	assert.ErrorContains(t, err, "invalid jq expression")

	_, err = engine.Query([]byte(`not json`), ".name", false, 0)
	assert.ErrorContains(t, err, "invalid JSON data")

	result, err := engine.Query([]byte(`{"items": null}`), ".items[]", false, 0)
	require.NoError(t, err)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "the path may not exist")
}

func TestEngine_QueryAll(t *testing.T) {
	engine := NewEngine()
	inputs := []Input{
		{Index: 0, Data: []byte(`{"id": 1}`)},
		{Index: 3, Label: "users", Data: []byte(`{"id": 2}`)},
		{Index: 4, Data: []byte(`<html>`)},
		{Index: 5, Data: []byte(`{"id": 1}`)},
		{Index: 6, Data: []byte(`<html>`)},
	}

	result, err := engine.QueryAll(inputs, ".id", true, 0)
	require.NoError(t, err)
	assert.Equal(t, []any{float64(1), float64(2)}, result.Values)
	assert.Equal(t, 3, result.RawCount)
	assert.Equal(t, []int{0, 3, 5}, result.MatchedIndices)
	assert.Equal(t, 1, result.LabelCounts["users"])
	assert.Equal(t, 1, result.LabelCounts["#0"])
	require.Len(t, result.Errors, 2)
	assert.Contains(t, result.Errors[0], "#4: invalid JSON")

	result, err = engine.QueryAll(inputs, ".id", false, 1)
	require.NoError(t, err)
	assert.Len(t, result.Values, 1)
}

func TestEngine_ValidateExpression(t *testing.T) {
	engine := NewEngine()
	assert.NoError(t, engine.ValidateExpression(".a | length"))
	assert.ErrorContains(t, engine.ValidateExpression(".a |"), "position")
	assert.Error(t, engine.ValidateExpression("undefined_fn(1)"))
}

func live(status int, contentType, body string) *transport.LiveResponse {
	return &transport.LiveResponse{
		Status:      status,
		StatusText:  http.StatusText(status),
		ContentType: contentType,
		Header:      http.Header{"Content-Type": {contentType}, "X-Request-Id": {"r1"}},
		Body:        []byte(body),
		Elapsed:     42 * time.Millisecond,
	}
}

func TestExpectation_Evaluate(t *testing.T) {
	captured := har.Response{
		Status:  200,
		Content: har.Content{MimeType: "application/json", Text: `{"items": [1, 2]}`},
	}
	jsonLive := live(200, "application/json", `{"items": [1, 2, 3], "ok": true}`)

	tests := []struct {
		name string
		expr string
		live *transport.LiveResponse
		want bool
	}{
		{"status", ".status == 200", jsonLive, true},
		{"status range", ".status < 300", live(503, "text/plain", "down"), false},
		{"body field", ".body.ok", jsonLive, true},
		{"missing field is null", ".body.missing", jsonLive, false},
		{"header lowercased", `.headers["x-request-id"] == "r1"`, jsonLive, true},
		{"captured comparison", "(.body.items | length) >= (.captured.body.items | length)", jsonLive, true},
		{"text body", `.body | contains("down")`, live(503, "text/plain", "down"), true},
		{"elapsed", ".elapsedMs < 1000", jsonLive, true},
		{"non boolean value is truthy", ".body.items", jsonLive, true},
		{"empty output", "empty", jsonLive, false},
		{"nil live", ".status == 200", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			x, err := CompileExpectation(tt.expr)
			require.NoError(t, err)
			ok, err := x.Evaluate(context.Background(), captured, tt.live)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ok)
		})
	}
}

func TestExpectation_RuntimeError(t *testing.T) {
	x, err := CompileExpectation(".body.items[]")
	require.NoError(t, err)
	assert.Equal(t, ".body.items[]", x.String())

	ok, err := x.Evaluate(context.Background(), har.Response{}, live(200, "application/json", `{"items": null}`))
	assert.False(t, ok)
	assert.ErrorContains(t, err, "evaluating")
}

func TestCompileExpectation_Invalid(t *testing.T) {
	_, err := CompileExpectation(".status ==")
	assert.Error(t, err)
}
