// Package query runs jq expressions against replayed response bodies and
// evaluates per-request success expressions.
package query

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/itchyny/gojq"
)

// Engine executes jq queries against JSON data.
type Engine struct{}

// NewEngine creates a new query engine.
func NewEngine() *Engine {
	return &Engine{}
}

// Result contains the values extracted by a query.
type Result struct {
	Values         []any          `json:"values"`
	Errors         []string       `json:"errors,omitempty"`
	RawCount       int            `json:"raw_count"`
	MatchedIndices []int          `json:"matched_indices,omitempty"`
	LabelCounts    map[string]int `json:"label_counts,omitempty"`
}

// Input is one document to query. Label identifies it in error messages.
type Input struct {
	Label string
	Index int
	Data  []byte
}

func compile(expression string) (*gojq.Code, error) {
	q, err := gojq.Parse(expression)
	if err != nil {
		var parseErr *gojq.ParseError
		if errors.As(err, &parseErr) {
			return nil, fmt.Errorf("invalid jq expression at position %d: %w", parseErr.Offset, err)
		}
		return nil, fmt.Errorf("invalid jq expression: %w", err)
	}
	code, err := gojq.Compile(q)
	if err != nil {
		return nil, fmt.Errorf("compiling jq expression: %w", err)
	}
	return code, nil
}

// Query executes expression against a single JSON document.
func (e *Engine) Query(data []byte, expression string, deduplicate bool, maxResults int) (*Result, error) {
	code, err := compile(expression)
	if err != nil {
		return nil, err
	}

	var input any
	if err := json.Unmarshal(data, &input); err != nil {
		return nil, fmt.Errorf("invalid JSON data: %w", err)
	}

	result := &Result{Values: make([]any, 0)}
	seen := make(map[string]bool)
	collect(code, input, "body", result, seen, nil, deduplicate, maxResults)
	return result, nil
}

// QueryAll executes expression against every input, combining the values.
// Inputs that are not JSON are reported in Errors and skipped.
func (e *Engine) QueryAll(inputs []Input, expression string, deduplicate bool, maxResults int) (*Result, error) {
	code, err := compile(expression)
	if err != nil {
		return nil, err
	}

	result := &Result{
		Values:      make([]any, 0),
		LabelCounts: make(map[string]int),
	}
	seen := make(map[string]bool)
	seenErrors := make(map[string]bool)

	for _, in := range inputs {
		if maxResults > 0 && len(result.Values) >= maxResults {
			break
		}
		label := in.Label
		if label == "" {
			label = fmt.Sprintf("#%d", in.Index)
		}

		var doc any
		if err := json.Unmarshal(in.Data, &doc); err != nil {
			addError(result, seenErrors, fmt.Sprintf("%s: invalid JSON: %v", label, err))
			continue
		}

		before := result.RawCount
		collect(code, doc, label, result, seen, seenErrors, deduplicate, maxResults)
		if n := result.RawCount - before; n > 0 {
			result.LabelCounts[label] += n
			result.MatchedIndices = append(result.MatchedIndices, in.Index)
		}
	}
	return result, nil
}

func collect(code *gojq.Code, input any, label string, result *Result, seen, seenErrors map[string]bool, deduplicate bool, maxResults int) {
	iter := code.Run(input)
	for {
		if maxResults > 0 && len(result.Values) >= maxResults {
			return
		}
		v, ok := iter.Next()
		if !ok {
			return
		}
		if err, isErr := v.(error); isErr {
			addError(result, seenErrors, formatJQError(label, err))
			continue
		}
		if v == nil {
			continue
		}

		result.RawCount++
		if deduplicate {
			key := valueKey(v)
			if seen[key] {
				continue
			}
			seen[key] = true
		}
		result.Values = append(result.Values, v)
	}
}

func addError(result *Result, seen map[string]bool, msg string) {
	if seen != nil {
		if seen[msg] {
			return
		}
		seen[msg] = true
	}
	result.Errors = append(result.Errors, msg)
}

// formatJQError adds hints for common runtime errors. gojq reports these
// as plain errors, so the hints are picked by message text.
func formatJQError(label string, err error) string {
	var haltErr *gojq.HaltError
	if errors.As(err, &haltErr) {
		if haltErr.Value() == nil {
			return fmt.Sprintf("%s: query halted", label)
		}
		return fmt.Sprintf("%s: query halted with: %v", label, haltErr.Value())
	}

	errStr := err.Error()
	var hint string
	switch {
	case strings.Contains(errStr, "cannot iterate over: null"):
		hint = " (the path may not exist in this response)"
	case strings.Contains(errStr, "cannot index") && strings.Contains(errStr, "with"):
		hint = " (field not found or wrong type)"
	case strings.Contains(errStr, "object") && strings.Contains(errStr, "cannot be iterated"):
		hint = " (expected array but got object, try removing '[]')"
	case strings.Contains(errStr, "array") && strings.Contains(errStr, "cannot be indexed"):
		hint = " (expected object but got array, try adding '[]')"
	}
	return fmt.Sprintf("%s: %s%s", label, errStr, hint)
}

func valueKey(v any) string {
	switch val := v.(type) {
	case string:
		return "s:" + val
	case float64:
		return fmt.Sprintf("n:%v", val)
	case bool:
		return fmt.Sprintf("b:%v", val)
	case nil:
		return "null"
	default:
		b, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprintf("?:%v", val)
		}
		return "j:" + string(b)
	}
}

// ValidateExpression checks that expression parses and compiles.
func (e *Engine) ValidateExpression(expression string) error {
	_, err := compile(expression)
	return err
}
