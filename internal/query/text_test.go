package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectMode(t *testing.T) {
	tests := []struct {
		ct   string
		want Mode
	}{
		{"application/json; charset=utf-8", ModeJQ},
		{"application/vnd.api+json", ModeJQ},
		{"text/html", ModeCSS},
		{"application/xml", ModeXPath},
		{"application/x-www-form-urlencoded", ModeForm},
		{"text/plain", ModeRegex},
		{"", ModeRegex},
	}
	for _, tt := range tests {
		t.Run(tt.ct, func(t *testing.T) {
			assert.Equal(t, tt.want, DetectMode(tt.ct))
		})
	}
}

func TestParseMode(t *testing.T) {
	m, err := ParseMode(" CSS ")
	require.NoError(t, err)
	assert.Equal(t, ModeCSS, m)

	m, err = ParseMode("")
	require.NoError(t, err)
	assert.Equal(t, Mode(""), m)

	_, err = ParseMode("sql")
	assert.Error(t, err)
}

func TestEngine_Extract(t *testing.T) {
	engine := NewEngine()
	page := []byte(`<html><body><h1>Title</h1><ul><li class="x">one</li><li class="x">two</li><li class="x"> </li></ul></body></html>`)
	feed := []byte(`<feed><item><id>1</id></item><item><id>2</id></item></feed>`)

	tests := []struct {
		name string
		body []byte
		ct   string
		expr string
		mode Mode
		max  int
		want []any
	}{
		{"css auto", page, "text/html", "li.x", "", 0, []any{"one", "two"}},
		{"css max", page, "text/html", "li.x", "", 1, []any{"one"}},
		{"xpath html", page, "text/html", "//h1", ModeXPath, 0, []any{"Title"}},
		{"xpath xml", feed, "application/xml", "//item/id", "", 0, []any{"1", "2"}},
		{"regex group", []byte("id=7 id=9"), "text/plain", `id=(\d+)`, "", 0, []any{"7", "9"}},
		{"regex whole", []byte("id=7 id=9"), "text/plain", `\d`, "", 1, []any{"7"}},
		{"form key", []byte("a=1&b=2&a=3"), "application/x-www-form-urlencoded", "a", "", 0, []any{"1", "3"}},
		{"form all", []byte("a=1&b=2&a=3"), "application/x-www-form-urlencoded", "*", "", 0,
			[]any{map[string]any{"a": []any{"1", "3"}, "b": "2"}}},
		{"jq", []byte(`{"a":[1,2]}`), "application/json", ".a[]", "", 0, []any{1.0, 2.0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := engine.Extract(tt.body, tt.ct, tt.expr, tt.mode, tt.max)
			require.NoError(t, err)
			assert.Equal(t, tt.want, result.Values)
		})
	}
}

func TestEngine_Extract_Errors(t *testing.T) {
	engine := NewEngine()

	_, err := engine.Extract([]byte("x"), "text/plain", "(", "", 0)
	assert.ErrorContains(t, err, "invalid regex")

	_, err = engine.Extract([]byte("<a/>"), "application/xml", "//[", "", 0)
	assert.ErrorContains(t, err, "invalid XPath")

	_, err = engine.Extract([]byte("x"), "", ".", Mode("sql"), 0)
	assert.Error(t, err)
}
