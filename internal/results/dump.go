package results

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/usestring/harreplay/pkg/contenttype"
	"github.com/usestring/harreplay/pkg/har"
	"github.com/usestring/harreplay/pkg/transport"
	"github.com/usestring/harreplay/pkg/types"
)

// Record is the JSON shape of one outcome in a results dump.
type Record struct {
	Index            int               `json:"index"`
	RunID            string            `json:"runId,omitempty"`
	Request          har.Request       `json:"request"`
	OriginalResponse har.Response      `json:"originalResponse"`
	ReplayedResponse *ReplayedResponse `json:"replayedResponse,omitempty"`
	Error            *ErrorRecord      `json:"error,omitempty"`
	Match            *bool             `json:"match,omitempty"`
	Expect           *bool             `json:"expect,omitempty"`
	TimeTaken        int64             `json:"timeTaken"`
}

// ReplayedResponse is the abbreviated live response. Data is the parsed
// JSON body when it parses, the text otherwise.
type ReplayedResponse struct {
	Status     int         `json:"status"`
	StatusText string      `json:"statusText"`
	Headers    http.Header `json:"headers"`
	Data       any         `json:"data"`
	Truncated  bool        `json:"truncated,omitempty"`
}

// ErrorRecord is the stable serialization of a transport failure.
type ErrorRecord struct {
	Message  string         `json:"message"`
	Code     string         `json:"code,omitempty"`
	Request  *ErrorRequest  `json:"request,omitempty"`
	Response *ErrorResponse `json:"response,omitempty"`
}

// ErrorRequest abbreviates the request that failed.
type ErrorRequest struct {
	Method  string          `json:"method"`
	URL     string          `json:"url"`
	Headers []har.NameValue `json:"headers"`
}

// ErrorResponse is set when a failure still carried a partial response.
type ErrorResponse struct {
	Status int `json:"status"`
}

// NewRecord converts an outcome to its dump shape.
func NewRecord(o types.Outcome) Record {
	r := Record{
		Index:            o.Index,
		RunID:            o.RunID,
		Request:          o.Request,
		OriginalResponse: o.OriginalResponse,
		Match:            o.Match,
		Expect:           o.Expect,
		TimeTaken:        o.ElapsedMs,
	}
	if o.Live != nil {
		r.ReplayedResponse = &ReplayedResponse{
			Status:     o.Live.Status,
			StatusText: o.Live.StatusText,
			Headers:    o.Live.Header,
			Data:       liveData(o.Live),
			Truncated:  o.Live.Truncated,
		}
	}
	if o.Err != nil {
		r.Error = &ErrorRecord{
			Message: o.Err.Error(),
			Code:    string(transport.CodeOf(o.Err)),
			Request: &ErrorRequest{
				Method:  o.Request.Method,
				URL:     o.Request.URL,
				Headers: o.Request.Headers,
			},
		}
		var terr *transport.Error
		if errors.As(o.Err, &terr) && terr.Status > 0 {
			r.Error.Response = &ErrorResponse{Status: terr.Status}
		}
	}
	return r
}

func liveData(live *transport.LiveResponse) any {
	if v, ok := live.JSON(); ok {
		return v
	}
	if contenttype.IsBinary(live.ContentType, live.Body) {
		return live.Body // base64 via encoding/json
	}
	return live.Text()
}

// MarshalOutcomes encodes outcomes as an indented JSON array.
func MarshalOutcomes(outcomes []types.Outcome) ([]byte, error) {
	records := make([]Record, 0, len(outcomes))
	for _, o := range outcomes {
		records = append(records, NewRecord(o))
	}
	return json.MarshalIndent(records, "", "  ")
}
