package types

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/usestring/harreplay/pkg/transport"
)

func boolPtr(b bool) *bool { return &b }

func TestOutcome_Result(t *testing.T) {
	tests := []struct {
		name      string
		outcome   Outcome
		want      string
		wantState State
	}{
		{"matched", Outcome{Live: &transport.LiveResponse{}, Match: boolPtr(true)}, ResultMatched, StateSucceeded},
		{"mismatched", Outcome{Live: &transport.LiveResponse{}, Match: boolPtr(false)}, ResultMismatched, StateSucceeded},
		{"failed", Outcome{Err: errors.New("boom")}, ResultFailed, StateFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.outcome.Result())
			assert.Equal(t, tt.wantState, tt.outcome.State())
			assert.True(t, tt.outcome.State().Terminal())
		})
	}
	assert.False(t, StatePending.Terminal())
	assert.Equal(t, "in_flight", StateInFlight.String())
}

func TestSummarize(t *testing.T) {
	outcomes := []Outcome{
		{Live: &transport.LiveResponse{}, Match: boolPtr(true), ElapsedMs: 10, Expect: boolPtr(true)},
		{Live: &transport.LiveResponse{}, Match: boolPtr(false), ElapsedMs: 20, Expect: boolPtr(false)},
		{Err: errors.New("x"), ElapsedMs: 5},
		{Live: &transport.LiveResponse{}, Match: boolPtr(true), ElapsedMs: 1},
	}
	s := Summarize(outcomes)
	assert.Equal(t, 4, s.Total)
	assert.Equal(t, 2, s.Matched)
	assert.Equal(t, 1, s.Mismatched)
	assert.Equal(t, 1, s.Failed)
	assert.Equal(t, 1, s.ExpectPassed)
	assert.Equal(t, 1, s.ExpectFailed)
	assert.InDelta(t, 50.0, s.MatchRate, 0.001)
	assert.InDelta(t, 25.0, s.FailRate, 0.001)
	assert.Equal(t, int64(36), s.TotalElapsedMs)

	assert.Equal(t, Summary{}, Summarize(nil))
}
