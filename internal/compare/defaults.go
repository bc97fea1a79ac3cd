// Package compare judges live responses against captured ones and produces
// structured diffs for reporting.
package compare

// DefaultPreviewChars bounds body previews in diffs.
const DefaultPreviewChars = 100

// DefaultIgnoreHeaders are response headers that commonly vary between a
// capture and a replay and are usually noise.
var DefaultIgnoreHeaders = []string{
	"date",
	"x-request-id",
	"x-correlation-id",
	"x-trace-id",
	"x-amzn-requestid",
	"x-amzn-trace-id",
	"cf-ray",
	"x-cache",
	"age",
	"expires",
	"last-modified",
	"etag",
	"content-length",
	"set-cookie",
	"server-timing",
	"report-to",
	"nel",
	"alt-svc",
	"via",
}
