package results

import (
	"fmt"
	"strings"

	"github.com/usestring/harreplay/pkg/transport"
	"github.com/usestring/harreplay/pkg/types"
)

const (
	rule      = "================================"
	separator = "--------------------------------"
)

// Report renders a plain-text summary followed by one block per outcome.
func Report(outcomes []types.Outcome) string {
	if len(outcomes) == 0 {
		return "No replay results available.\n"
	}

	s := types.Summarize(outcomes)
	var b strings.Builder

	b.WriteString("Replay report\n")
	b.WriteString(rule + "\n")
	fmt.Fprintf(&b, "Total requests: %d\n", s.Total)
	fmt.Fprintf(&b, "Matched:        %d (%.2f%%)\n", s.Matched, percent(s.Matched, s.Total))
	fmt.Fprintf(&b, "Mismatched:     %d (%.2f%%)\n", s.Mismatched, percent(s.Mismatched, s.Total))
	fmt.Fprintf(&b, "Failed:         %d (%.2f%%)\n", s.Failed, percent(s.Failed, s.Total))
	if s.ExpectPassed+s.ExpectFailed > 0 {
		fmt.Fprintf(&b, "Expect passed:  %d / %d\n", s.ExpectPassed, s.ExpectPassed+s.ExpectFailed)
	}
	fmt.Fprintf(&b, "Total time:     %dms\n", s.TotalElapsedMs)
	b.WriteString(rule + "\n\n")

	for i := range outcomes {
		o := &outcomes[i]
		fmt.Fprintf(&b, "#%d %s %s\n", o.Index, o.Request.Method, o.Request.URL)
		b.WriteString("  " + statusLine(o) + "\n")
		if o.Expect != nil {
			fmt.Fprintf(&b, "  expect: %t\n", *o.Expect)
		}
		fmt.Fprintf(&b, "  elapsed: %dms\n", o.ElapsedMs)
		b.WriteString(separator + "\n")
	}
	return b.String()
}

func statusLine(o *types.Outcome) string {
	switch o.Result() {
	case types.ResultFailed:
		if code := transport.CodeOf(o.Err); code != "" {
			return fmt.Sprintf("FAILED [%s]: %v", code, o.Err)
		}
		return fmt.Sprintf("FAILED: %v", o.Err)
	case types.ResultMatched:
		return fmt.Sprintf("MATCHED (status %d)", o.Live.Status)
	}
	if o.Live != nil {
		return fmt.Sprintf("MISMATCHED (status %d, captured %d)", o.Live.Status, o.OriginalResponse.Status)
	}
	return "MISMATCHED"
}

func percent(n, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(n) / float64(total) * 100
}
