// Package plan loads YAML replay plans: which archive to replay, which
// transactions, with what overrides, and where to write the results.
package plan

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/invopop/jsonschema"
	"gopkg.in/yaml.v3"

	"github.com/usestring/harreplay/internal/config"
	"github.com/usestring/harreplay/internal/indexer"
	"github.com/usestring/harreplay/internal/query"
	"github.com/usestring/harreplay/internal/replay"
	"github.com/usestring/harreplay/internal/results"
	"github.com/usestring/harreplay/pkg/mutate"
	"github.com/usestring/harreplay/pkg/transport"
	"github.com/usestring/harreplay/pkg/types"
)

// Plan describes one replay run. Unset option fields fall back to the
// environment configuration.
type Plan struct {
	Archive string              `yaml:"archive,omitempty" json:"archive,omitempty" jsonschema_description:"HAR file to replay, relative to the plan file"`
	Select  *types.SelectQuery  `yaml:"select,omitempty" json:"select,omitempty" jsonschema_description:"Transactions to replay; all when omitted"`
	Modify  map[int]mutate.Spec `yaml:"modify,omitempty" json:"modify,omitempty" jsonschema_description:"Request overrides keyed by transaction index"`
	Expect  string              `yaml:"expect,omitempty" json:"expect,omitempty" jsonschema_description:"jq expression that must hold for every live response"`

	Concurrency     int     `yaml:"concurrency,omitempty" json:"concurrency,omitempty" jsonschema:"minimum=0"`
	Delay           string  `yaml:"delay,omitempty" json:"delay,omitempty" jsonschema_description:"Pause between requests such as 250ms"`
	Timeout         string  `yaml:"timeout,omitempty" json:"timeout,omitempty" jsonschema_description:"Per request timeout such as 10s"`
	RateLimit       float64 `yaml:"rate_limit,omitempty" json:"rate_limit,omitempty" jsonschema_description:"Requests per second across all workers"`
	Burst           int     `yaml:"burst,omitempty" json:"burst,omitempty"`
	Proxy           string  `yaml:"proxy,omitempty" json:"proxy,omitempty" jsonschema_description:"Proxy URL such as http://127.0.0.1:8888"`
	Insecure        *bool   `yaml:"insecure,omitempty" json:"insecure,omitempty" jsonschema_description:"Skip TLS certificate verification"`
	MaintainSession *bool   `yaml:"maintain_session,omitempty" json:"maintain_session,omitempty" jsonschema_description:"Share cookies between replayed requests"`
	FollowRedirects *bool   `yaml:"follow_redirects,omitempty" json:"follow_redirects,omitempty"`

	Outputs Outputs `yaml:"outputs,omitempty" json:"outputs,omitempty"`

	dir    string
	delay  time.Duration
	expect *query.Expectation
}

// Outputs names the files written after the run. Empty paths are skipped.
type Outputs struct {
	JSON   string `yaml:"json,omitempty" json:"json,omitempty" jsonschema_description:"Outcome list as JSON"`
	HAR    string `yaml:"har,omitempty" json:"har,omitempty" jsonschema_description:"Live responses as a HAR archive"`
	Report string `yaml:"report,omitempty" json:"report,omitempty" jsonschema_description:"Plain text summary"`
}

// Load reads and validates the plan at path. Relative archive and output
// paths are resolved against the plan's directory.
func Load(path string) (*Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading plan: %w", err)
	}
	p, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("plan %s: %w", path, err)
	}
	p.dir = filepath.Dir(path)
	return p, nil
}

// Parse decodes and validates a plan document. Unknown keys are rejected.
func Parse(data []byte) (*Plan, error) {
	var p Plan
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&p); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decoding plan: %w", err)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

// Validate checks field values and compiles the expectation.
func (p *Plan) Validate() error {
	if p.Concurrency < 0 {
		return fmt.Errorf("concurrency must be >= 0, got %d", p.Concurrency)
	}
	if p.RateLimit < 0 {
		return fmt.Errorf("rate_limit must be >= 0, got %g", p.RateLimit)
	}
	for index := range p.Modify {
		if index < 0 {
			return fmt.Errorf("modify: negative index %d", index)
		}
	}
	if p.Delay != "" {
		d, err := time.ParseDuration(p.Delay)
		if err != nil || d < 0 {
			return fmt.Errorf("invalid delay %q", p.Delay)
		}
		p.delay = d
	}
	if p.Timeout != "" {
		if d, err := time.ParseDuration(p.Timeout); err != nil || d <= 0 {
			return fmt.Errorf("invalid timeout %q", p.Timeout)
		}
	}
	if p.Proxy != "" {
		if _, err := transport.ParseProxy(p.Proxy); err != nil {
			return err
		}
	}
	if p.Expect != "" {
		x, err := query.CompileExpectation(p.Expect)
		if err != nil {
			return fmt.Errorf("expect: %w", err)
		}
		p.expect = x
	}
	return nil
}

// ArchivePath returns the archive path resolved against the plan directory.
func (p *Plan) ArchivePath() string {
	return p.resolve(p.Archive)
}

func (p *Plan) resolve(path string) string {
	if path == "" || filepath.IsAbs(path) || p.dir == "" {
		return path
	}
	return filepath.Join(p.dir, path)
}

// TransportOptions layers the plan's transport overrides on top of cfg.
func (p *Plan) TransportOptions(cfg *config.Config) ([]transport.Option, error) {
	opts, err := cfg.TransportOptions()
	if err != nil {
		return nil, err
	}
	if p.Timeout != "" {
		d, _ := time.ParseDuration(p.Timeout)
		opts = append(opts, transport.WithTimeout(d))
	}
	if p.Proxy != "" {
		proxy, err := transport.ParseProxy(p.Proxy)
		if err != nil {
			return nil, err
		}
		opts = append(opts, transport.WithProxy(proxy))
	}
	if p.Insecure != nil {
		opts = append(opts, transport.WithInsecureSkipVerify(*p.Insecure))
	}
	if p.MaintainSession != nil {
		opts = append(opts, transport.WithSession(*p.MaintainSession))
	}
	if p.FollowRedirects != nil {
		opts = append(opts, transport.WithFollowRedirects(*p.FollowRedirects))
	}
	return opts, nil
}

// ReplayOptions builds replayer options from cfg and the plan overrides.
func (p *Plan) ReplayOptions(cfg *config.Config) ([]replay.Option, error) {
	topts, err := p.TransportOptions(cfg)
	if err != nil {
		return nil, err
	}

	concurrency := cfg.Concurrency
	if p.Concurrency > 0 {
		concurrency = p.Concurrency
	}
	delay := cfg.Delay
	if p.Delay != "" {
		delay = p.delay
	}
	rps, burst := cfg.RateLimitRPS, cfg.RateLimitBurst
	if p.RateLimit > 0 {
		rps = p.RateLimit
	}
	if p.Burst > 0 {
		burst = p.Burst
	}

	opts := []replay.Option{
		replay.WithTransport(topts...),
		replay.WithConcurrency(concurrency),
		replay.WithDelay(delay),
		replay.WithRateLimit(rps, burst),
	}
	if p.expect != nil {
		opts = append(opts, replay.WithExpect(p.expect))
	}
	return opts, nil
}

// Execute applies the plan's overrides to r and replays the selected
// transactions. Explicitly selected indices must exist. Outcomes are
// sorted by index.
func (p *Plan) Execute(ctx context.Context, r *replay.Replayer, idx *indexer.Indexer) ([]types.Outcome, error) {
	for index, spec := range p.Modify {
		if err := r.Modify(index, spec); err != nil {
			return nil, fmt.Errorf("modify: %w", err)
		}
	}
	if p.Select.Empty() {
		return r.ReplayAll(ctx)
	}
	for _, index := range p.Select.Indices {
		if _, err := r.Entry(index); err != nil {
			return nil, fmt.Errorf("select: %w", err)
		}
	}
	return r.ReplayIndices(ctx, idx.Indices(p.Select))
}

// WriteOutputs saves outcomes to every configured output.
func (p *Plan) WriteOutputs(outcomes []types.Outcome) error {
	if path := p.resolve(p.Outputs.JSON); path != "" {
		if err := results.SaveJSON(path, outcomes); err != nil {
			return fmt.Errorf("writing json output: %w", err)
		}
	}
	if path := p.resolve(p.Outputs.HAR); path != "" {
		if err := results.SaveArchive(path, outcomes); err != nil {
			return fmt.Errorf("writing har output: %w", err)
		}
	}
	if path := p.resolve(p.Outputs.Report); path != "" {
		if err := results.SaveReport(path, outcomes); err != nil {
			return fmt.Errorf("writing report: %w", err)
		}
	}
	return nil
}

// Schema returns the JSON Schema of the plan document.
func Schema() ([]byte, error) {
	r := &jsonschema.Reflector{
		FieldNameTag:              "yaml",
		DoNotReference:            true,
		AllowAdditionalProperties: false,
	}
	s := r.Reflect(&Plan{})
	s.Title = "harreplay plan"
	return json.MarshalIndent(s, "", "  ")
}
