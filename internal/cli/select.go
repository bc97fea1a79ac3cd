package cli

import (
	"github.com/spf13/cobra"

	"github.com/usestring/harreplay/pkg/types"
)

// selectFlags are the entry filters shared by run and list.
type selectFlags struct {
	indices   []int
	methods   []string
	hosts     []string
	statuses  []int
	mimeTypes []string
	text      string
}

func (f *selectFlags) register(cmd *cobra.Command) {
	cmd.Flags().IntSliceVar(&f.indices, "index", nil, "transaction indices (comma-separated)")
	cmd.Flags().StringSliceVar(&f.methods, "method", nil, "request methods (comma-separated)")
	cmd.Flags().StringSliceVar(&f.hosts, "host", nil, "hosts; *.example.com includes subdomains (comma-separated)")
	cmd.Flags().IntSliceVar(&f.statuses, "status", nil, "captured status codes (comma-separated)")
	cmd.Flags().StringSliceVar(&f.mimeTypes, "mime", nil, "captured response media types (comma-separated)")
	cmd.Flags().StringVar(&f.text, "match", "", "space separated URL tokens that must all appear")
}

// apply overrides the fields of base that were given on the command line.
// base may be nil; the result is nil when nothing selects.
func (f *selectFlags) apply(base *types.SelectQuery) *types.SelectQuery {
	q := &types.SelectQuery{}
	if base != nil {
		*q = *base
	}
	if len(f.indices) > 0 {
		q.Indices = f.indices
	}
	if len(f.methods) > 0 {
		q.Methods = f.methods
	}
	if len(f.hosts) > 0 {
		q.Hosts = f.hosts
	}
	if len(f.statuses) > 0 {
		q.Statuses = f.statuses
	}
	if len(f.mimeTypes) > 0 {
		q.MimeTypes = f.mimeTypes
	}
	if f.text != "" {
		q.Text = f.text
	}
	if q.Empty() {
		return nil
	}
	return q
}
