package cli

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/usestring/harreplay/internal/indexer"
	"github.com/usestring/harreplay/pkg/har"
	"github.com/usestring/harreplay/pkg/types"
)

func newListCmd() *cobra.Command {
	var (
		sel        selectFlags
		outputJSON bool
	)

	cmd := &cobra.Command{
		Use:   "list capture.har",
		Short: "List the transactions of a capture",
		Example: `  harreplay list capture.har
  harreplay list capture.har --method POST --host api.example.com --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			archive, err := har.LoadFile(args[0])
			if err != nil {
				return err
			}
			idx := indexer.Build(archive)

			summaries := make([]types.EntrySummary, 0, idx.Count())
			for _, i := range idx.Indices(sel.apply(nil)) {
				summaries = append(summaries, *idx.Meta(i).ToSummary())
			}

			out := cmd.OutOrStdout()
			if outputJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(summaries)
			}

			tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "INDEX\tMETHOD\tSTATUS\tMIME\tURL")
			for _, s := range summaries {
				fmt.Fprintf(tw, "%d\t%s\t%d\t%s\t%s\n", s.Index, s.Method, s.Status, s.MimeType, s.URL)
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(out, "\n%d of %d transactions\n", len(summaries), idx.Count())
			return nil
		},
	}
	sel.register(cmd)
	cmd.Flags().BoolVar(&outputJSON, "json", false, "output summaries as JSON")
	return cmd
}
