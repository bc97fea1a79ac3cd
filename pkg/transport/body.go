package transport

import (
	"bytes"
	"encoding/json"
	"io"
	"net/url"

	"github.com/usestring/harreplay/pkg/contenttype"
	"github.com/usestring/harreplay/pkg/har"
)

// BodyKind tags the variant held by a Body.
type BodyKind int

const (
	BodyNone BodyKind = iota
	BodyJSON
	BodyText
	BodyForm
)

func (k BodyKind) String() string {
	switch k {
	case BodyJSON:
		return "json"
	case BodyText:
		return "text"
	case BodyForm:
		return "form"
	}
	return "none"
}

// Body is an outbound request body decoded from a captured postData block.
// Exactly one of JSON, Text or Form is meaningful, selected by Kind.
type Body struct {
	Kind     BodyKind
	MimeType string
	JSON     json.RawMessage
	Text     string
	Form     []har.NameValue
}

// DecodeBody selects the body encoding by declared mime type. JSON text that
// does not parse is sent verbatim. Form bodies are rebuilt from params; a
// form body without params falls back to its raw text.
func DecodeBody(pd *har.PostData) Body {
	if pd == nil {
		return Body{Kind: BodyNone}
	}
	b := Body{MimeType: pd.MimeType}

	switch {
	case contenttype.IsJSON(pd.MimeType):
		var buf bytes.Buffer
		if pd.Text != "" && json.Compact(&buf, []byte(pd.Text)) == nil {
			b.Kind = BodyJSON
			b.JSON = buf.Bytes()
			return b
		}
	case contenttype.IsForm(pd.MimeType) && len(pd.Params) > 0:
		b.Kind = BodyForm
		b.Form = make([]har.NameValue, 0, len(pd.Params))
		for _, p := range pd.Params {
			b.Form = append(b.Form, har.NameValue{Name: p.Name, Value: p.Value})
		}
		return b
	}

	// A declared but empty body still carries its content type.
	b.Kind = BodyText
	b.Text = pd.Text
	return b
}

// Bytes returns the encoded payload.
func (b Body) Bytes() []byte {
	switch b.Kind {
	case BodyJSON:
		return b.JSON
	case BodyText:
		return []byte(b.Text)
	case BodyForm:
		values := url.Values{}
		for _, p := range b.Form {
			values.Add(p.Name, p.Value)
		}
		return []byte(values.Encode())
	}
	return nil
}

// Reader returns the payload as a request body, or nil for BodyNone.
func (b Body) Reader() io.Reader {
	if b.Kind == BodyNone {
		return nil
	}
	return bytes.NewReader(b.Bytes())
}

// ContentType is the header value used when the request carries none.
func (b Body) ContentType() string {
	if b.MimeType != "" {
		return b.MimeType
	}
	switch b.Kind {
	case BodyJSON:
		return "application/json"
	case BodyForm:
		return "application/x-www-form-urlencoded"
	case BodyText:
		return "text/plain; charset=utf-8"
	}
	return ""
}
