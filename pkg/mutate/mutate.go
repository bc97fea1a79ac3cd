// Package mutate applies sparse field overrides to captured requests.
package mutate

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/usestring/harreplay/pkg/har"
)

// DefaultBodyMimeType is used when an overlay adds a body to a request that had none.
const DefaultBodyMimeType = "application/json"

// Spec is a partial overlay for one request. Nil fields are left untouched.
//
// Map-valued fields are upserted by case-insensitive name: the first
// matching entry is replaced, otherwise a new entry is appended. Keys are
// applied in sorted order so appended entries are deterministic.
type Spec struct {
	Method      *string           `json:"method,omitempty" yaml:"method,omitempty" jsonschema:"Replacement HTTP method"`
	URL         *string           `json:"url,omitempty" yaml:"url,omitempty" jsonschema:"Replacement absolute URL"`
	HTTPVersion *string           `json:"httpVersion,omitempty" yaml:"httpVersion,omitempty"`
	Headers     map[string]string `json:"headers,omitempty" yaml:"headers,omitempty" jsonschema:"Headers upserted by case-insensitive name"`
	Cookies     map[string]string `json:"cookies,omitempty" yaml:"cookies,omitempty" jsonschema:"Cookies upserted by name; flags reset to false"`
	QueryString map[string]string `json:"queryString,omitempty" yaml:"queryString,omitempty"`
	PostData    *BodySpec         `json:"postData,omitempty" yaml:"postData,omitempty"`
	HeadersSize *int64            `json:"headersSize,omitempty" yaml:"headersSize,omitempty"`
	BodySize    *int64            `json:"bodySize,omitempty" yaml:"bodySize,omitempty"`
	Comment     *string           `json:"comment,omitempty" yaml:"comment,omitempty"`
}

// BodySpec overlays the request body.
type BodySpec struct {
	MimeType *string `json:"mimeType,omitempty" yaml:"mimeType,omitempty"`
	// Text is either a string used verbatim or any other value that is
	// serialized to JSON text.
	Text   any              `json:"text,omitempty" yaml:"text,omitempty" jsonschema:"Raw body text or a structured value serialized as JSON"`
	Params map[string]Param `json:"params,omitempty" yaml:"params,omitempty"`
}

// Param is a form parameter overlay. In YAML and JSON it may be written as
// a plain string value.
type Param struct {
	Value       string `json:"value,omitempty" yaml:"value,omitempty"`
	FileName    string `json:"fileName,omitempty" yaml:"fileName,omitempty"`
	ContentType string `json:"contentType,omitempty" yaml:"contentType,omitempty"`
}

// UnmarshalJSON accepts either "value" or {"value": ..., "fileName": ...}.
func (p *Param) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*p = Param{Value: s}
		return nil
	}
	type plain Param
	var v plain
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*p = Param(v)
	return nil
}

// UnmarshalYAML accepts the same two shapes as UnmarshalJSON.
func (p *Param) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		*p = Param{Value: node.Value}
		return nil
	}
	type plain Param
	var v plain
	if err := node.Decode(&v); err != nil {
		return err
	}
	*p = Param(v)
	return nil
}

// Empty reports whether the overlay sets nothing.
func (s Spec) Empty() bool {
	return s.Method == nil && s.URL == nil && s.HTTPVersion == nil &&
		len(s.Headers) == 0 && len(s.Cookies) == 0 && len(s.QueryString) == 0 &&
		s.PostData == nil && s.HeadersSize == nil && s.BodySize == nil && s.Comment == nil
}

// Apply returns a copy of req with spec overlaid. req itself is not
// modified. Apply never fails: values that cannot be encoded degrade to
// their fmt representation.
func Apply(req har.Request, spec Spec) har.Request {
	out := req.Clone()

	if spec.Method != nil {
		out.Method = *spec.Method
	}
	if spec.URL != nil {
		out.URL = *spec.URL
	}
	if spec.HTTPVersion != nil {
		out.HTTPVersion = *spec.HTTPVersion
	}

	for _, name := range sortedKeys(spec.Headers) {
		out.Headers = upsertPair(out.Headers, name, spec.Headers[name])
	}

	for _, name := range sortedKeys(spec.Cookies) {
		c := har.Cookie{Name: name, Value: spec.Cookies[name]}
		if i := indexCookie(out.Cookies, name); i >= 0 {
			out.Cookies[i] = c
		} else {
			out.Cookies = append(out.Cookies, c)
		}
	}

	for _, name := range sortedKeys(spec.QueryString) {
		out.QueryString = upsertPair(out.QueryString, name, spec.QueryString[name])
	}

	if spec.PostData != nil {
		applyBody(&out, spec.PostData)
	}

	if spec.HeadersSize != nil {
		out.HeadersSize = *spec.HeadersSize
	}
	if spec.BodySize != nil {
		out.BodySize = *spec.BodySize
	}
	if spec.Comment != nil {
		out.Comment = *spec.Comment
	}
	return out
}

// Merge combines two overlays; fields set in next win. Names in the
// header, cookie, query and param maps match case-insensitively, so a
// later overlay replaces an earlier key that differs only in case.
func Merge(prev, next Spec) Spec {
	out := prev
	if next.Method != nil {
		out.Method = next.Method
	}
	if next.URL != nil {
		out.URL = next.URL
	}
	if next.HTTPVersion != nil {
		out.HTTPVersion = next.HTTPVersion
	}
	out.Headers = mergeMap(prev.Headers, next.Headers)
	out.Cookies = mergeMap(prev.Cookies, next.Cookies)
	out.QueryString = mergeMap(prev.QueryString, next.QueryString)
	if next.PostData != nil {
		if prev.PostData == nil {
			out.PostData = next.PostData
		} else {
			body := *prev.PostData
			if next.PostData.MimeType != nil {
				body.MimeType = next.PostData.MimeType
			}
			if next.PostData.Text != nil {
				body.Text = next.PostData.Text
			}
			body.Params = mergeMap(prev.PostData.Params, next.PostData.Params)
			out.PostData = &body
		}
	}
	if next.HeadersSize != nil {
		out.HeadersSize = next.HeadersSize
	}
	if next.BodySize != nil {
		out.BodySize = next.BodySize
	}
	if next.Comment != nil {
		out.Comment = next.Comment
	}
	return out
}

func applyBody(req *har.Request, body *BodySpec) {
	if req.PostData == nil {
		req.PostData = &har.PostData{MimeType: DefaultBodyMimeType}
	}
	if body.MimeType != nil {
		req.PostData.MimeType = *body.MimeType
	}
	if body.Text != nil {
		req.PostData.Text = TextOf(body.Text)
	}
	for _, name := range sortedKeys(body.Params) {
		p := body.Params[name]
		param := har.Param{Name: name, Value: p.Value, FileName: p.FileName, ContentType: p.ContentType}
		if i := indexParam(req.PostData.Params, name); i >= 0 {
			req.PostData.Params[i] = param
		} else {
			req.PostData.Params = append(req.PostData.Params, param)
		}
	}
}

// TextOf renders an overlay body value as text. Strings and byte slices
// are used verbatim; everything else is JSON-encoded.
func TextOf(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case []byte:
		return string(t)
	case json.RawMessage:
		return string(t)
	}
	data, err := json.Marshal(normalize(v))
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(data)
}

// normalize converts map[any]any values (as produced by some YAML decoders)
// into JSON-encodable maps.
func normalize(v any) any {
	switch t := v.(type) {
	case map[any]any:
		m := make(map[string]any, len(t))
		for k, val := range t {
			m[fmt.Sprint(k)] = normalize(val)
		}
		return m
	case map[string]any:
		m := make(map[string]any, len(t))
		for k, val := range t {
			m[k] = normalize(val)
		}
		return m
	case []any:
		s := make([]any, len(t))
		for i, val := range t {
			s[i] = normalize(val)
		}
		return s
	}
	return v
}

func upsertPair(pairs []har.NameValue, name, value string) []har.NameValue {
	for i := range pairs {
		if strings.EqualFold(pairs[i].Name, name) {
			pairs[i].Value = value
			return pairs
		}
	}
	return append(pairs, har.NameValue{Name: name, Value: value})
}

func indexCookie(cookies []har.Cookie, name string) int {
	for i := range cookies {
		if strings.EqualFold(cookies[i].Name, name) {
			return i
		}
	}
	return -1
}

func indexParam(params []har.Param, name string) int {
	for i := range params {
		if strings.EqualFold(params[i].Name, name) {
			return i
		}
	}
	return -1
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func mergeMap[V any](a, b map[string]V) map[string]V {
	if len(a) == 0 && len(b) == 0 {
		return nil
	}
	out := make(map[string]V, len(a)+len(b))
	for k, v := range a {
		out[k] = v
	}
	for k, v := range b {
		for prev := range out {
			if prev != k && strings.EqualFold(prev, k) {
				delete(out, prev)
			}
		}
		out[k] = v
	}
	return out
}
