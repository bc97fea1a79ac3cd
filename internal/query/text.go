package query

import (
	"bytes"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/antchfx/htmlquery"
	"github.com/antchfx/xmlquery"

	"github.com/usestring/harreplay/pkg/contenttype"
)

// Mode selects the extraction language for a body.
type Mode string

const (
	ModeJQ    Mode = "jq"
	ModeCSS   Mode = "css"
	ModeXPath Mode = "xpath"
	ModeRegex Mode = "regex"
	ModeForm  Mode = "form"
)

// Modes lists the accepted extraction modes.
func Modes() []Mode {
	return []Mode{ModeJQ, ModeCSS, ModeXPath, ModeRegex, ModeForm}
}

// DetectMode picks an extraction mode from a content type.
func DetectMode(ct string) Mode {
	switch contenttype.Classify(ct) {
	case contenttype.JSON:
		return ModeJQ
	case contenttype.HTML:
		return ModeCSS
	case contenttype.XML:
		return ModeXPath
	case contenttype.Form:
		return ModeForm
	}
	return ModeRegex
}

// ParseMode validates a mode name. The empty string is returned as is and
// means auto-detect.
func ParseMode(s string) (Mode, error) {
	m := Mode(strings.ToLower(strings.TrimSpace(s)))
	if m == "" {
		return "", nil
	}
	for _, known := range Modes() {
		if m == known {
			return m, nil
		}
	}
	return "", fmt.Errorf("unknown mode %q (valid: jq, css, xpath, regex, form)", s)
}

// Extract runs expression against body in the given mode, detecting it
// from ct when mode is empty. maxResults <= 0 means unlimited.
func (e *Engine) Extract(body []byte, ct, expression string, mode Mode, maxResults int) (*Result, error) {
	if mode == "" {
		mode = DetectMode(ct)
	}

	var (
		values []any
		err    error
	)
	switch mode {
	case ModeJQ:
		return e.Query(body, expression, false, maxResults)
	case ModeCSS:
		values, err = extractCSS(body, expression, maxResults)
	case ModeXPath:
		if contenttype.Classify(ct) == contenttype.HTML {
			values, err = extractXPathHTML(body, expression, maxResults)
		} else {
			values, err = extractXPathXML(body, expression, maxResults)
		}
	case ModeRegex:
		values, err = extractRegex(body, expression, maxResults)
	case ModeForm:
		values, err = extractForm(body, expression, maxResults)
	default:
		return nil, fmt.Errorf("unknown mode %q", mode)
	}
	if err != nil {
		return nil, err
	}
	return &Result{Values: values, RawCount: len(values)}, nil
}

func full(values []any, maxResults int) bool {
	return maxResults > 0 && len(values) >= maxResults
}

func appendText(values []any, text string) []any {
	if text = strings.TrimSpace(text); text != "" {
		values = append(values, text)
	}
	return values
}

func extractCSS(body []byte, selector string, maxResults int) ([]any, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parsing HTML: %w", err)
	}
	values := make([]any, 0)
	doc.Find(selector).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		values = appendText(values, s.Text())
		return !full(values, maxResults)
	})
	return values, nil
}

func extractXPathXML(body []byte, expression string, maxResults int) ([]any, error) {
	doc, err := xmlquery.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parsing XML: %w", err)
	}
	nodes, err := xmlquery.QueryAll(doc, expression)
	if err != nil {
		return nil, fmt.Errorf("invalid XPath expression: %w", err)
	}
	values := make([]any, 0)
	for _, n := range nodes {
		if full(values, maxResults) {
			break
		}
		values = appendText(values, n.InnerText())
	}
	return values, nil
}

func extractXPathHTML(body []byte, expression string, maxResults int) ([]any, error) {
	doc, err := htmlquery.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parsing HTML: %w", err)
	}
	nodes, err := htmlquery.QueryAll(doc, expression)
	if err != nil {
		return nil, fmt.Errorf("invalid XPath expression: %w", err)
	}
	values := make([]any, 0)
	for _, n := range nodes {
		if full(values, maxResults) {
			break
		}
		values = appendText(values, htmlquery.InnerText(n))
	}
	return values, nil
}

// extractRegex returns the first capture group of each match, or the whole
// match when the pattern has no groups.
func extractRegex(body []byte, expression string, maxResults int) ([]any, error) {
	re, err := regexp.Compile(expression)
	if err != nil {
		return nil, fmt.Errorf("invalid regex: %w", err)
	}
	group := 0
	if re.NumSubexp() > 0 {
		group = 1
	}
	values := make([]any, 0)
	for _, m := range re.FindAllSubmatch(body, -1) {
		if full(values, maxResults) {
			break
		}
		values = append(values, string(m[group]))
	}
	return values, nil
}

// extractForm returns the values of one key. "*" or "." returns a single
// object of every key, with repeated keys collected into arrays.
func extractForm(body []byte, expression string, maxResults int) ([]any, error) {
	form, err := url.ParseQuery(string(body))
	if err != nil {
		return nil, fmt.Errorf("parsing form data: %w", err)
	}

	if expression == "*" || expression == "." {
		all := make(map[string]any, len(form))
		for k, vals := range form {
			if len(vals) == 1 {
				all[k] = vals[0]
			} else {
				list := make([]any, len(vals))
				for i, v := range vals {
					list[i] = v
				}
				all[k] = list
			}
		}
		return []any{all}, nil
	}

	values := make([]any, 0)
	for _, v := range form[expression] {
		if full(values, maxResults) {
			break
		}
		values = append(values, v)
	}
	return values, nil
}
