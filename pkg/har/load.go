package har

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// FormatError reports a payload that is not a usable HAR archive.
type FormatError struct {
	Reason  string
	Details []string
	Err     error
}

func (e *FormatError) Error() string {
	msg := "invalid HAR archive: " + e.Reason
	if len(e.Details) > 0 {
		msg += " (" + strings.Join(e.Details, "; ") + ")"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *FormatError) Unwrap() error {
	return e.Err
}

// envelopeSchema only checks the structure the replayer depends on.
// Request contents are deliberately left unchecked.
const envelopeSchema = `{
	"$schema": "https://json-schema.org/draft/2020-12/schema",
	"type": "object",
	"required": ["log"],
	"properties": {
		"log": {
			"type": "object",
			"required": ["entries"],
			"properties": {
				"version": {"type": "string"},
				"entries": {
					"type": "array",
					"items": {"type": "object"}
				}
			}
		}
	}
}`

var compiledEnvelope = sync.OnceValues(func() (*jsonschema.Schema, error) {
	doc, err := jsonschema.UnmarshalJSON(strings.NewReader(envelopeSchema))
	if err != nil {
		return nil, fmt.Errorf("parsing envelope schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("har-envelope.json", doc); err != nil {
		return nil, fmt.Errorf("adding envelope schema: %w", err)
	}
	return compiler.Compile("har-envelope.json")
})

// Load parses a HAR payload. It fails with *FormatError when the payload
// is not JSON or lacks a log.entries array; no partial archive is returned.
func Load(payload []byte) (*Archive, error) {
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(payload))
	if err != nil {
		return nil, &FormatError{Reason: "malformed JSON", Err: err}
	}

	schema, err := compiledEnvelope()
	if err != nil {
		return nil, err
	}
	if err := schema.Validate(doc); err != nil {
		return nil, &FormatError{Reason: "missing or invalid log.entries", Details: validationDetails(err)}
	}

	var archive Archive
	if err := json.Unmarshal(payload, &archive); err != nil {
		return nil, &FormatError{Reason: "unexpected field type", Err: err}
	}
	return &archive, nil
}

// LoadFile reads and loads an archive from disk. Compressed captures are
// detected by extension or gzip magic bytes.
func LoadFile(path string) (*Archive, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading archive: %w", err)
	}
	payload, err := Decompress(raw, path)
	if err != nil {
		return nil, &FormatError{Reason: "undecodable compressed archive", Err: err}
	}
	return Load(payload)
}

var printer = message.NewPrinter(language.English)

// validationDetails flattens leaf schema errors into "path: message" strings.
func validationDetails(err error) []string {
	var verr *jsonschema.ValidationError
	if !errors.As(err, &verr) {
		return []string{err.Error()}
	}
	seen := make(map[string]struct{})
	var out []string
	var walk func(*jsonschema.ValidationError)
	walk = func(v *jsonschema.ValidationError) {
		if v.ErrorKind != nil && len(v.Causes) == 0 {
			msg := v.ErrorKind.LocalizedString(printer)
			if len(v.InstanceLocation) > 0 {
				msg = "/" + strings.Join(v.InstanceLocation, "/") + ": " + msg
			}
			if _, dup := seen[msg]; !dup {
				seen[msg] = struct{}{}
				out = append(out, msg)
			}
		}
		for _, c := range v.Causes {
			walk(c)
		}
	}
	walk(verr)
	sort.Strings(out)
	return out
}
