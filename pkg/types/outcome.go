package types

import (
	"time"

	"github.com/usestring/harreplay/pkg/har"
	"github.com/usestring/harreplay/pkg/transport"
)

// State is the lifecycle position of one transaction in a replay.
type State int

const (
	StatePending State = iota
	StateInFlight
	StateSucceeded
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateInFlight:
		return "in_flight"
	case StateSucceeded:
		return "succeeded"
	case StateFailed:
		return "failed"
	}
	return "pending"
}

// Terminal reports whether no further transition is allowed.
func (s State) Terminal() bool {
	return s == StateSucceeded || s == StateFailed
}

// Result labels used in reports and metrics.
const (
	ResultMatched    = "matched"
	ResultMismatched = "mismatched"
	ResultFailed     = "failed"
)

// Outcome is the result of replaying one transaction. Live and Err are
// mutually exclusive; Match is set only when Live is.
type Outcome struct {
	Index            int                     `json:"index"`
	RunID            string                  `json:"run_id,omitempty"`
	Request          har.Request             `json:"request"`
	OriginalResponse har.Response            `json:"original_response"`
	Live             *transport.LiveResponse `json:"live,omitempty"`
	Err              error                   `json:"-"`
	Match            *bool                   `json:"match,omitempty"`
	// Expect is the verdict of a caller supplied success expression, when one is configured.
	Expect    *bool     `json:"expect,omitempty"`
	StartedAt time.Time `json:"started_at"`
	ElapsedMs int64     `json:"elapsed_ms"`
}

// State derives the terminal state of a settled outcome.
func (o *Outcome) State() State {
	switch {
	case o.Err != nil:
		return StateFailed
	case o.Live != nil:
		return StateSucceeded
	}
	return StateInFlight
}

// Matched reports a successful replay whose response matched the capture.
func (o *Outcome) Matched() bool {
	return o.Match != nil && *o.Match
}

// Result returns ResultMatched, ResultMismatched or ResultFailed.
func (o *Outcome) Result() string {
	switch {
	case o.Err != nil:
		return ResultFailed
	case o.Matched():
		return ResultMatched
	}
	return ResultMismatched
}

// Summary aggregates replay statistics.
type Summary struct {
	Total          int     `json:"total"`
	Matched        int     `json:"matched"`
	Mismatched     int     `json:"mismatched"`
	Failed         int     `json:"failed"`
	ExpectPassed   int     `json:"expect_passed,omitempty"`
	ExpectFailed   int     `json:"expect_failed,omitempty"`
	MatchRate      float64 `json:"match_rate"`
	FailRate       float64 `json:"fail_rate"`
	TotalElapsedMs int64   `json:"total_elapsed_ms"`
}

// Summarize counts outcomes by result.
func Summarize(outcomes []Outcome) Summary {
	var s Summary
	for i := range outcomes {
		o := &outcomes[i]
		s.Total++
		s.TotalElapsedMs += o.ElapsedMs
		switch o.Result() {
		case ResultMatched:
			s.Matched++
		case ResultMismatched:
			s.Mismatched++
		default:
			s.Failed++
		}
		if o.Expect != nil {
			if *o.Expect {
				s.ExpectPassed++
			} else {
				s.ExpectFailed++
			}
		}
	}
	if s.Total > 0 {
		s.MatchRate = float64(s.Matched) / float64(s.Total) * 100
		s.FailRate = float64(s.Failed) / float64(s.Total) * 100
	}
	return s
}
