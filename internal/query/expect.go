package query

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/itchyny/gojq"

	"github.com/usestring/harreplay/internal/compare"
	"github.com/usestring/harreplay/pkg/har"
	"github.com/usestring/harreplay/pkg/transport"
)

// Expectation is a compiled success expression. It is evaluated against a
// document describing the live response:
//
//	{
//	  "status": 200, "statusText": "OK", "contentType": "...",
//	  "headers": {"content-type": "..."},
//	  "body": <parsed JSON or text>,
//	  "elapsedMs": 12,
//	  "captured": {"status": 200, "body": <parsed JSON or text>}
//	}
//
// The expectation passes when the first value it yields is neither false
// nor null.
type Expectation struct {
	expr string
	code *gojq.Code
}

// CompileExpectation parses and compiles expr.
func CompileExpectation(expr string) (*Expectation, error) {
	code, err := compile(expr)
	if err != nil {
		return nil, err
	}
	return &Expectation{expr: expr, code: code}, nil
}

// String returns the source expression.
func (x *Expectation) String() string {
	return x.expr
}

// Evaluate runs the expectation for one replayed transaction.
func (x *Expectation) Evaluate(ctx context.Context, captured har.Response, live *transport.LiveResponse) (bool, error) {
	if live == nil {
		return false, nil
	}

	iter := x.code.RunWithContext(ctx, expectDocument(captured, live))
	v, ok := iter.Next()
	if !ok {
		return false, nil
	}
	if err, isErr := v.(error); isErr {
		return false, fmt.Errorf("evaluating %q: %s", x.expr, formatJQError("expect", err))
	}
	return truthy(v), nil
}

func truthy(v any) bool {
	switch val := v.(type) {
	case nil:
		return false
	case bool:
		return val
	}
	return true
}

func expectDocument(captured har.Response, live *transport.LiveResponse) map[string]any {
	headers := make(map[string]any, len(live.Header))
	for name, values := range live.Header {
		headers[strings.ToLower(name)] = strings.Join(values, ", ")
	}

	return map[string]any{
		"status":      live.Status,
		"statusText":  live.StatusText,
		"contentType": live.ContentType,
		"headers":     headers,
		"body":        bodyValue(live.Body),
		"elapsedMs":   int(live.Elapsed.Milliseconds()),
		"captured": map[string]any{
			"status": captured.Status,
			"body":   bodyValue([]byte(compare.CapturedBody(captured))),
		},
	}
}

// bodyValue parses data as JSON, falling back to the raw text.
func bodyValue(data []byte) any {
	if len(data) == 0 {
		return nil
	}
	var v any
	if err := json.Unmarshal(data, &v); err == nil {
		return v
	}
	return string(data)
}
