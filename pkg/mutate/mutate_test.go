package mutate

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/usestring/harreplay/pkg/har"
)

func ptr[T any](v T) *T { return &v }

func captured() har.Request {
	return har.Request{
		Method:      "GET",
		URL:         "https://a/b",
		HTTPVersion: "HTTP/1.1",
		Headers: []har.NameValue{
			{Name: "Accept", Value: "*/*"},
			{Name: "cookie", Value: "old"},
		},
		Cookies: []har.Cookie{
			{Name: "sid", Value: "1", Path: "/", HTTPOnly: true, Secure: true},
		},
		QueryString: []har.NameValue{{Name: "q", Value: "x"}},
		PostData: &har.PostData{
			MimeType: "application/x-www-form-urlencoded",
			Params:   []har.Param{{Name: "a", Value: "1"}},
		},
	}
}

func TestApply_HeadersOnlyLeavesOtherFields(t *testing.T) {
	req := captured()
	out := Apply(req, Spec{Headers: map[string]string{"X-Token": "t"}})

	assert.Equal(t, req.Method, out.Method)
	assert.Equal(t, req.URL, out.URL)
	assert.Equal(t, req.Cookies, out.Cookies)
	assert.Equal(t, req.QueryString, out.QueryString)
	assert.Equal(t, req.PostData, out.PostData)
	assert.Len(t, out.Headers, 3)
}

func TestApply_UpsertByCaseInsensitiveName(t *testing.T) {
	req := captured()
	first := Apply(req, Spec{Headers: map[string]string{"Cookie": "A"}})
	second := Apply(first, Spec{Headers: map[string]string{"COOKIE": "B"}})

	var matches []har.NameValue
	for _, h := range second.Headers {
		if strings.EqualFold(h.Name, "cookie") {
			matches = append(matches, h)
		}
	}
	require.Len(t, matches, 1)
	assert.Equal(t, "B", matches[0].Value)
	assert.Equal(t, "cookie", matches[0].Name, "original header name is kept")
}

func TestMerge_CaseVariantLastWins(t *testing.T) {
	tests := []struct {
		name  string
		prev  Spec
		next  Spec
		check func(t *testing.T, req har.Request)
	}{
		{
			name: "header",
			prev: Spec{Headers: map[string]string{"x-token": "old"}},
			next: Spec{Headers: map[string]string{"X-Token": "new"}},
			check: func(t *testing.T, req har.Request) {
				var values []string
				for _, h := range req.Headers {
					if strings.EqualFold(h.Name, "x-token") {
						values = append(values, h.Value)
					}
				}
				assert.Equal(t, []string{"new"}, values)
			},
		},
		{
			name: "cookie",
			prev: Spec{Cookies: map[string]string{"SID": "old"}},
			next: Spec{Cookies: map[string]string{"sid": "new"}},
			check: func(t *testing.T, req har.Request) {
				i := indexCookie(req.Cookies, "sid")
				require.GreaterOrEqual(t, i, 0)
				assert.Equal(t, "new", req.Cookies[i].Value)
			},
		},
		{
			name: "query",
			prev: Spec{QueryString: map[string]string{"q": "old"}},
			next: Spec{QueryString: map[string]string{"Q": "new"}},
			check: func(t *testing.T, req har.Request) {
				var values []string
				for _, p := range req.QueryString {
					if strings.EqualFold(p.Name, "q") {
						values = append(values, p.Value)
					}
				}
				assert.Equal(t, []string{"new"}, values)
			},
		},
		{
			name: "param",
			prev: Spec{PostData: &BodySpec{Params: map[string]Param{"A": {Value: "old"}}}},
			next: Spec{PostData: &BodySpec{Params: map[string]Param{"a": {Value: "new"}}}},
			check: func(t *testing.T, req har.Request) {
				require.NotNil(t, req.PostData)
				require.Len(t, req.PostData.Params, 1)
				assert.Equal(t, "new", req.PostData.Params[0].Value)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			merged := Merge(tt.prev, tt.next)
			tt.check(t, Apply(captured(), merged))
		})
	}
}

func TestApply_DoesNotModifyInput(t *testing.T) {
	req := captured()
	_ = Apply(req, Spec{
		Method:      ptr("POST"),
		Headers:     map[string]string{"Accept": "text/plain"},
		Cookies:     map[string]string{"sid": "2"},
		QueryString: map[string]string{"q": "y"},
		PostData:    &BodySpec{Params: map[string]Param{"a": {Value: "2"}}},
	})

	assert.Equal(t, captured(), req)
}

func TestApply_MethodAndURL(t *testing.T) {
	out := Apply(captured(), Spec{Method: ptr("POST"), URL: ptr("https://x/y")})
	assert.Equal(t, "POST", out.Method)
	assert.Equal(t, "https://x/y", out.URL)
}

func TestApply_Cookies(t *testing.T) {
	out := Apply(captured(), Spec{Cookies: map[string]string{"sid": "2", "new": "n"}})

	require.Len(t, out.Cookies, 2)
	assert.Equal(t, har.Cookie{Name: "sid", Value: "2"}, out.Cookies[0], "flags are reset on overwrite")
	assert.Equal(t, har.Cookie{Name: "new", Value: "n"}, out.Cookies[1])
}

func TestApply_QueryString(t *testing.T) {
	out := Apply(captured(), Spec{QueryString: map[string]string{"Q": "y", "page": "2"}})
	assert.Equal(t, []har.NameValue{{Name: "q", Value: "y"}, {Name: "page", Value: "2"}}, out.QueryString)
}

func TestApply_Body(t *testing.T) {
	tests := []struct {
		name     string
		req      har.Request
		body     BodySpec
		wantMime string
		wantText string
	}{
		{
			name:     "missing body defaults to json",
			req:      har.Request{Method: "GET"},
			body:     BodySpec{Text: `{"a":1}`},
			wantMime: DefaultBodyMimeType,
			wantText: `{"a":1}`,
		},
		{
			name:     "structured text is serialized",
			req:      har.Request{PostData: &har.PostData{MimeType: "application/json", Text: "{}"}},
			body:     BodySpec{Text: map[string]any{"token": "abc", "n": 2}},
			wantMime: "application/json",
			wantText: `{"n":2,"token":"abc"}`,
		},
		{
			name:     "mime override",
			req:      har.Request{PostData: &har.PostData{MimeType: "application/json", Text: "{}"}},
			body:     BodySpec{MimeType: ptr("text/plain"), Text: "hi"},
			wantMime: "text/plain",
			wantText: "hi",
		},
		{
			name:     "number text",
			req:      har.Request{},
			body:     BodySpec{Text: 42},
			wantMime: DefaultBodyMimeType,
			wantText: "42",
		},
		{
			name:     "unencodable value degrades",
			req:      har.Request{},
			body:     BodySpec{Text: make(chan int)},
			wantMime: DefaultBodyMimeType,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := Apply(tt.req, Spec{PostData: &tt.body})
			require.NotNil(t, out.PostData)
			assert.Equal(t, tt.wantMime, out.PostData.MimeType)
			if tt.wantText != "" {
				assert.Equal(t, tt.wantText, out.PostData.Text)
			} else {
				assert.NotEmpty(t, out.PostData.Text)
			}
		})
	}
}

func TestApply_BodyParams(t *testing.T) {
	out := Apply(captured(), Spec{PostData: &BodySpec{Params: map[string]Param{
		"A":    {Value: "9"},
		"file": {Value: "x", FileName: "f.txt", ContentType: "text/plain"},
	}}})

	require.Len(t, out.PostData.Params, 2)
	assert.Equal(t, "A", out.PostData.Params[0].Name)
	assert.Equal(t, "9", out.PostData.Params[0].Value)
	assert.Equal(t, "f.txt", out.PostData.Params[1].FileName)
}

func TestApply_EmptySpecIsIdentity(t *testing.T) {
	req := captured()
	assert.True(t, Spec{}.Empty())
	assert.Equal(t, req, Apply(req, Spec{}))
}

func TestMerge_LastWriteWins(t *testing.T) {
	a := Spec{Method: ptr("PUT"), Headers: map[string]string{"X": "1", "Y": "1"}}
	b := Spec{URL: ptr("https://z"), Headers: map[string]string{"X": "2"}}

	m := Merge(a, b)
	assert.Equal(t, "PUT", *m.Method)
	assert.Equal(t, "https://z", *m.URL)
	assert.Equal(t, map[string]string{"X": "2", "Y": "1"}, m.Headers)
	assert.Equal(t, map[string]string{"X": "1", "Y": "1"}, a.Headers, "inputs untouched")
}

func TestSpec_DecodeJSONAndYAML(t *testing.T) {
	raw := `{"method":"POST","headers":{"Authorization":"Bearer t"},"postData":{"text":{"k":[1,2]},"params":{"a":"1","f":{"value":"v","fileName":"x.bin"}}}}`

	var js Spec
	require.NoError(t, json.Unmarshal([]byte(raw), &js))
	assert.Equal(t, "POST", *js.Method)
	assert.Equal(t, "1", js.PostData.Params["a"].Value)
	assert.Equal(t, "x.bin", js.PostData.Params["f"].FileName)
	assert.Equal(t, `{"k":[1,2]}`, TextOf(js.PostData.Text))

	y := `
method: POST
postData:
  text:
    k: [1, 2]
  params:
    f:
      value: v
`
	var ys Spec
	require.NoError(t, yaml.Unmarshal([]byte(y), &ys))
	assert.Equal(t, `{"k":[1,2]}`, TextOf(ys.PostData.Text))
	assert.Equal(t, "v", ys.PostData.Params["f"].Value)
}
