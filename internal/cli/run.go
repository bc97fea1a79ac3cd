package cli

import (
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/usestring/harreplay/internal/config"
	"github.com/usestring/harreplay/internal/indexer"
	"github.com/usestring/harreplay/internal/metrics"
	"github.com/usestring/harreplay/internal/plan"
	"github.com/usestring/harreplay/internal/replay"
	"github.com/usestring/harreplay/internal/results"
	"github.com/usestring/harreplay/pkg/har"
	"github.com/usestring/harreplay/pkg/types"
)

type runOptions struct {
	planPath        string
	concurrency     int
	delay           time.Duration
	timeout         time.Duration
	rate            float64
	burst           int
	proxy           string
	insecure        bool
	maintainSession bool
	followRedirects bool
	expect          string
	jsonOut         string
	harOut          string
	reportOut       string
	metricsAddr     string
	failOnMismatch  bool
	quiet           bool
	sel             selectFlags
}

func newRunCmd() *cobra.Command {
	var o runOptions

	cmd := &cobra.Command{
		Use:   "run [capture.har]",
		Short: "Replay a capture and compare live responses",
		Long: `Replays the transactions of a HAR capture against their live endpoints and
compares status, content type and body with what was recorded.

Settings come from the environment (REPLAY_*), then the plan file, then flags.
Relative paths in a plan resolve against the plan's directory.`,
		Example: `  harreplay run capture.har
  harreplay run capture.har.gz --concurrency 8 --host api.example.com --report out.txt
  harreplay run --plan smoke.yaml --fail-on-mismatch
  harreplay run capture.har --expect '.status < 400' --json results.json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := o.buildPlan(cmd, args)
			if err != nil {
				return err
			}
			return o.execute(cmd, p)
		},
	}

	cmd.Flags().StringVar(&o.planPath, "plan", "", "YAML replay plan")
	cmd.Flags().IntVar(&o.concurrency, "concurrency", 0, "parallel workers")
	cmd.Flags().DurationVar(&o.delay, "delay", 0, "pause between requests of one worker")
	cmd.Flags().DurationVar(&o.timeout, "timeout", 0, "per request timeout")
	cmd.Flags().Float64Var(&o.rate, "rate", 0, "requests per second across all workers")
	cmd.Flags().IntVar(&o.burst, "burst", 0, "rate limiter burst")
	cmd.Flags().StringVar(&o.proxy, "proxy", "", "proxy URL such as http://127.0.0.1:8888")
	cmd.Flags().BoolVar(&o.insecure, "insecure", false, "skip TLS certificate verification")
	cmd.Flags().BoolVar(&o.maintainSession, "session", false, "share cookies between replayed requests")
	cmd.Flags().BoolVar(&o.followRedirects, "follow-redirects", false, "follow 3xx responses")
	cmd.Flags().StringVar(&o.expect, "expect", "", "jq expression every live response must satisfy")
	cmd.Flags().StringVar(&o.jsonOut, "json", "", "write outcomes as JSON to this path")
	cmd.Flags().StringVar(&o.harOut, "har", "", "write live responses as a HAR archive to this path")
	cmd.Flags().StringVar(&o.reportOut, "report", "", "write the text report to this path")
	cmd.Flags().StringVar(&o.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address during the run")
	cmd.Flags().BoolVar(&o.failOnMismatch, "fail-on-mismatch", false, "exit non-zero unless every replay matched")
	cmd.Flags().BoolVarP(&o.quiet, "quiet", "q", false, "do not print progress or the report")
	o.sel.register(cmd)

	return cmd
}

// buildPlan loads the plan, when given, and layers flags over it.
func (o *runOptions) buildPlan(cmd *cobra.Command, args []string) (*plan.Plan, error) {
	p := &plan.Plan{}
	if o.planPath != "" {
		loaded, err := plan.Load(o.planPath)
		if err != nil {
			return nil, err
		}
		p = loaded
	}
	if len(args) == 1 {
		p.Archive = absPath(args[0])
	}
	if p.Archive == "" {
		return nil, fmt.Errorf("an archive argument or a plan with archive is required")
	}

	flags := cmd.Flags()
	if flags.Changed("concurrency") {
		p.Concurrency = o.concurrency
	}
	if flags.Changed("delay") {
		p.Delay = o.delay.String()
	}
	if flags.Changed("timeout") {
		p.Timeout = o.timeout.String()
	}
	if flags.Changed("rate") {
		p.RateLimit = o.rate
	}
	if flags.Changed("burst") {
		p.Burst = o.burst
	}
	if flags.Changed("proxy") {
		p.Proxy = o.proxy
	}
	if flags.Changed("insecure") {
		p.Insecure = &o.insecure
	}
	if flags.Changed("session") {
		p.MaintainSession = &o.maintainSession
	}
	if flags.Changed("follow-redirects") {
		p.FollowRedirects = &o.followRedirects
	}
	if flags.Changed("expect") {
		p.Expect = o.expect
	}
	p.Select = o.sel.apply(p.Select)

	if o.jsonOut != "" {
		p.Outputs.JSON = absPath(o.jsonOut)
	}
	if o.harOut != "" {
		p.Outputs.HAR = absPath(o.harOut)
	}
	if o.reportOut != "" {
		p.Outputs.Report = absPath(o.reportOut)
	}

	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

func (o *runOptions) execute(cmd *cobra.Command, p *plan.Plan) error {
	ctx := cmd.Context()
	cfg := config.Load()

	archive, err := har.LoadFile(p.ArchivePath())
	if err != nil {
		return err
	}
	opts, err := p.ReplayOptions(cfg)
	if err != nil {
		return err
	}
	r, err := replay.New(archive, opts...)
	if err != nil {
		return err
	}

	m := metrics.New()
	m.Attach(&r.Sink().Bus)
	if o.metricsAddr != "" {
		go func() {
			if err := m.Serve(ctx, o.metricsAddr); err != nil {
				slog.Error("metrics server stopped", slog.String("error", err.Error()))
			}
		}()
	}
	if !o.quiet {
		progress := progressPrinter(cmd.ErrOrStderr())
		r.Sink().OnComplete(progress)
		r.Sink().OnError(progress)
	}

	outcomes, runErr := p.Execute(ctx, r, indexer.Build(archive))
	if err := p.WriteOutputs(outcomes); err != nil {
		return err
	}
	if runErr != nil {
		return runErr
	}
	if !o.quiet {
		fmt.Fprint(cmd.OutOrStdout(), results.Report(outcomes))
	}

	s := types.Summarize(outcomes)
	slog.Info("replay finished",
		slog.String("run_id", r.RunID()),
		slog.Int("total", s.Total),
		slog.Int("matched", s.Matched),
		slog.Int("mismatched", s.Mismatched),
		slog.Int("failed", s.Failed),
	)
	if o.failOnMismatch && (s.Mismatched > 0 || s.Failed > 0 || s.ExpectFailed > 0) {
		return ErrMismatch
	}
	return nil
}

func progressPrinter(w io.Writer) func(o types.Outcome) {
	return func(o types.Outcome) {
		status := "-"
		if o.Live != nil {
			status = fmt.Sprint(o.Live.Status)
		}
		fmt.Fprintf(w, "  [%-10s] #%d %s %s -> %s (%dms)\n",
			o.Result(), o.Index, o.Request.Method, o.Request.URL, status, o.ElapsedMs)
	}
}

func absPath(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return path
}
