package results

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"sort"
	"time"

	"github.com/usestring/harreplay/pkg/contenttype"
	"github.com/usestring/harreplay/pkg/har"
	"github.com/usestring/harreplay/pkg/transport"
	"github.com/usestring/harreplay/pkg/types"
)

// BuildArchive reconstructs a HAR archive from outcomes, one entry per
// outcome in the order given. Response fields come from the live response;
// failed outcomes get a zero-filled response (status 0, no headers).
func BuildArchive(outcomes []types.Outcome) *har.Archive {
	a := har.New()
	a.Log.Entries = make([]har.Entry, 0, len(outcomes))
	for _, o := range outcomes {
		a.Log.Entries = append(a.Log.Entries, outcomeToEntry(o))
	}
	return a
}

func outcomeToEntry(o types.Outcome) har.Entry {
	started := o.StartedAt
	if started.IsZero() {
		started = time.Unix(0, 0)
	}

	req := o.Request.Clone()
	if req.Cookies == nil {
		req.Cookies = []har.Cookie{}
	}
	if req.Headers == nil {
		req.Headers = []har.NameValue{}
	}
	if req.QueryString == nil {
		req.QueryString = []har.NameValue{}
	}

	elapsed := float64(o.ElapsedMs)
	entry := har.Entry{
		StartedDateTime: started.UTC().Format(time.RFC3339Nano),
		Time:            elapsed,
		Request:         req,
		Response:        buildResponse(o),
		Cache:           json.RawMessage("{}"),
		Timings:         har.Timings{Send: 0, Wait: elapsed, Receive: 0},
		Replay: &har.ReplayInfo{
			Index:     o.Index,
			Match:     o.Match,
			TimeTaken: o.ElapsedMs,
		},
	}
	if o.Err != nil {
		entry.Replay.Error = o.Err.Error()
	}
	return entry
}

func buildResponse(o types.Outcome) har.Response {
	if o.Live == nil {
		return har.Response{
			HTTPVersion: o.Request.HTTPVersion,
			Cookies:     []har.Cookie{},
			Headers:     []har.NameValue{},
		}
	}
	live := o.Live

	content := har.Content{
		Size:     int64(len(live.Body)),
		MimeType: live.ContentType,
	}
	if contenttype.IsBinary(live.ContentType, live.Body) {
		content.Text = base64.StdEncoding.EncodeToString(live.Body)
		content.Encoding = "base64"
	} else {
		content.Text = live.Text()
	}

	return har.Response{
		Status:      live.Status,
		StatusText:  live.StatusText,
		HTTPVersion: live.Proto,
		Cookies:     responseCookies(live),
		Headers:     headerPairs(live.Header),
		Content:     content,
		RedirectURL: live.Header.Get("Location"),
		HeadersSize: -1,
		BodySize:    int64(len(live.Body)),
	}
}

// headerPairs flattens h into name/value pairs sorted by name.
func headerPairs(h http.Header) []har.NameValue {
	names := make([]string, 0, len(h))
	for name := range h {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]har.NameValue, 0, len(names))
	for _, name := range names {
		for _, v := range h[name] {
			out = append(out, har.NameValue{Name: name, Value: v})
		}
	}
	return out
}

func responseCookies(live *transport.LiveResponse) []har.Cookie {
	parsed := (&http.Response{Header: live.Header}).Cookies()
	out := make([]har.Cookie, 0, len(parsed))
	for _, c := range parsed {
		hc := har.Cookie{
			Name:     c.Name,
			Value:    c.Value,
			Path:     c.Path,
			Domain:   c.Domain,
			HTTPOnly: c.HttpOnly,
			Secure:   c.Secure,
		}
		if !c.Expires.IsZero() {
			hc.Expires = c.Expires.UTC().Format(time.RFC3339)
		}
		out = append(out, hc)
	}
	return out
}
