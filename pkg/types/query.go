package types

// QueryResult contains the results of a body query.
type QueryResult struct {
	Values   []any    `json:"values"`           // Extracted values
	Errors   []string `json:"errors,omitempty"` // Per-item errors
	RawCount int      `json:"raw_count"`        // Count before deduplication
}

// QuerySummary contains summary statistics for a query over replayed bodies.
type QuerySummary struct {
	OutcomesProcessed int  `json:"outcomes_processed"`
	OutcomesMatched   int  `json:"outcomes_matched"`
	OutcomesSkipped   int  `json:"outcomes_skipped"`
	TotalValues       int  `json:"total_values"`
	UniqueValues      int  `json:"unique_values,omitempty"`
	Deduplicated      bool `json:"deduplicated"`
	Truncated         bool `json:"truncated,omitempty"`
}
