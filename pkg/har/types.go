package har

import (
	"encoding/json"
	"net/url"
	"slices"
	"strings"
)

// HAR 1.2 envelope defaults used when building a new archive.
const (
	Version        = "1.2"
	CreatorName    = "harreplay"
	CreatorVersion = "1.0.0"
)

// Archive is the root of an HTTP Archive document.
type Archive struct {
	Log Log `json:"log"`
}

// Log holds the envelope metadata and the ordered entries.
// Entry order defines the transaction index and is preserved on save.
type Log struct {
	Version string   `json:"version"`
	Creator Creator  `json:"creator"`
	Browser *Creator `json:"browser,omitempty"`
	Pages   []Page   `json:"pages"`
	Entries []Entry  `json:"entries"`
	Comment string   `json:"comment,omitempty"`
}

// Creator identifies the application (or browser) that produced the archive.
type Creator struct {
	Name    string `json:"name"`
	Version string `json:"version"`
	Comment string `json:"comment,omitempty"`
}

// Page groups entries that belong to one page load.
type Page struct {
	StartedDateTime string      `json:"startedDateTime"`
	ID              string      `json:"id"`
	Title           string      `json:"title"`
	PageTimings     PageTimings `json:"pageTimings"`
	Comment         string      `json:"comment,omitempty"`
}

// PageTimings contains page load timing values in milliseconds.
type PageTimings struct {
	OnContentLoad *float64 `json:"onContentLoad,omitempty"`
	OnLoad        *float64 `json:"onLoad,omitempty"`
	Comment       string   `json:"comment,omitempty"`
}

// Entry is one captured transaction.
type Entry struct {
	PageRef         string          `json:"pageref,omitempty"`
	StartedDateTime string          `json:"startedDateTime"`
	Time            float64         `json:"time"`
	Request         Request         `json:"request"`
	Response        Response        `json:"response"`
	Cache           json.RawMessage `json:"cache"`
	Timings         Timings         `json:"timings"`
	ServerIPAddress string          `json:"serverIPAddress,omitempty"`
	Connection      string          `json:"connection,omitempty"`
	Comment         string          `json:"comment,omitempty"`

	// Replay is set on entries exported from a replay run.
	Replay *ReplayInfo `json:"_replay,omitempty"`
}

// ReplayInfo is the custom (underscore-prefixed) block attached to exported entries.
type ReplayInfo struct {
	Index     int    `json:"index"`
	Match     *bool  `json:"match,omitempty"`
	TimeTaken int64  `json:"timeTaken"`
	Error     string `json:"error,omitempty"`
}

// Request is a captured request snapshot.
type Request struct {
	Method      string      `json:"method"`
	URL         string      `json:"url"`
	HTTPVersion string      `json:"httpVersion"`
	Cookies     []Cookie    `json:"cookies"`
	Headers     []NameValue `json:"headers"`
	QueryString []NameValue `json:"queryString"`
	PostData    *PostData   `json:"postData,omitempty"`
	HeadersSize int64       `json:"headersSize"`
	BodySize    int64       `json:"bodySize"`
	Comment     string      `json:"comment,omitempty"`
}

// Response is a captured response snapshot. It is ground truth for
// validation and is never mutated by a replay.
type Response struct {
	Status      int         `json:"status"`
	StatusText  string      `json:"statusText"`
	HTTPVersion string      `json:"httpVersion"`
	Cookies     []Cookie    `json:"cookies"`
	Headers     []NameValue `json:"headers"`
	Content     Content     `json:"content"`
	RedirectURL string      `json:"redirectURL"`
	HeadersSize int64       `json:"headersSize"`
	BodySize    int64       `json:"bodySize"`
	Comment     string      `json:"comment,omitempty"`
}

// Cookie is a request or response cookie record.
type Cookie struct {
	Name     string `json:"name"`
	Value    string `json:"value"`
	Path     string `json:"path,omitempty"`
	Domain   string `json:"domain,omitempty"`
	Expires  string `json:"expires,omitempty"`
	HTTPOnly bool   `json:"httpOnly"`
	Secure   bool   `json:"secure"`
	Comment  string `json:"comment,omitempty"`
}

// NameValue is a header or query string pair. Names are not unique.
type NameValue struct {
	Name    string `json:"name"`
	Value   string `json:"value"`
	Comment string `json:"comment,omitempty"`
}

// PostData is a request body.
type PostData struct {
	MimeType string  `json:"mimeType"`
	Params   []Param `json:"params,omitempty"`
	Text     string  `json:"text"`
	Comment  string  `json:"comment,omitempty"`
}

// Param is a posted form parameter.
type Param struct {
	Name        string `json:"name"`
	Value       string `json:"value,omitempty"`
	FileName    string `json:"fileName,omitempty"`
	ContentType string `json:"contentType,omitempty"`
	Comment     string `json:"comment,omitempty"`
}

// Content describes a response body.
type Content struct {
	Size        int64  `json:"size"`
	Compression *int64 `json:"compression,omitempty"`
	MimeType    string `json:"mimeType"`
	Text        string `json:"text,omitempty"`
	Encoding    string `json:"encoding,omitempty"`
	Comment     string `json:"comment,omitempty"`
}

// Timings is the request phase breakdown in milliseconds. Optional phases
// are pointers so a captured value of zero survives a round trip.
type Timings struct {
	Blocked *float64 `json:"blocked,omitempty"`
	DNS     *float64 `json:"dns,omitempty"`
	Connect *float64 `json:"connect,omitempty"`
	Send    float64  `json:"send"`
	Wait    float64  `json:"wait"`
	Receive float64  `json:"receive"`
	SSL     *float64 `json:"ssl,omitempty"`
	Comment string   `json:"comment,omitempty"`
}

// Len returns the number of entries in the archive.
func (a *Archive) Len() int {
	if a == nil {
		return 0
	}
	return len(a.Log.Entries)
}

// Header returns the first value of the named header (case-insensitive).
func (r *Request) Header(name string) string {
	return lookup(r.Headers, name)
}

// Host returns the lowercase host of the request URL, or "" when unparseable.
func (r *Request) Host() string {
	u, err := url.Parse(r.URL)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}

// Path returns the path of the request URL, or "" when unparseable.
func (r *Request) Path() string {
	u, err := url.Parse(r.URL)
	if err != nil {
		return ""
	}
	return u.Path
}

// Clone returns a deep copy of the request.
func (r Request) Clone() Request {
	out := r
	out.Cookies = slices.Clone(r.Cookies)
	out.Headers = slices.Clone(r.Headers)
	out.QueryString = slices.Clone(r.QueryString)
	if r.PostData != nil {
		pd := *r.PostData
		pd.Params = slices.Clone(r.PostData.Params)
		out.PostData = &pd
	}
	return out
}

// Header returns the first value of the named header (case-insensitive).
func (r *Response) Header(name string) string {
	return lookup(r.Headers, name)
}

func lookup(pairs []NameValue, name string) string {
	for _, h := range pairs {
		if strings.EqualFold(h.Name, name) {
			return h.Value
		}
	}
	return ""
}
