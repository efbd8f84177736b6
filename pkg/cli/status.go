package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func NewStatusCommand() *cobra.Command {
	var (
		limit        int
		outputFormat string
	)

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show recent delivery attempts from the journal",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := getRuntime(cmd)
			if err != nil {
				return err
			}
			tracker, err := rt.Tracker()
			if err != nil {
				return err
			}

			stats := tracker.Stats()
			records := tracker.Recent(limit)

			if outputFormat == "json" {
				return writeJSON(rt.Writer(), map[string]any{
					"stats":  stats,
					"recent": records,
				})
			}

			fmt.Fprintf(rt.Writer(), "Deliveries: %d total, %d succeeded, %d failed, %d in flight\n",
				stats.Total(), stats.Succeeded, stats.Failed, stats.Queued+stats.Sending)
			if len(records) == 0 {
				return nil
			}
			tw := tabwriter.NewWriter(rt.Writer(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tRECIPIENT\tSTATUS\tATTEMPTS\tUPDATED\tERROR")
			for _, r := range records {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t%s\n",
					r.ID, r.Recipient, r.Status, r.Attempts,
					r.UpdatedAt.Format("2006-01-02 15:04:05"), r.LastError)
			}
			return tw.Flush()
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of recent deliveries to show")
	cmd.Flags().StringVarP(&outputFormat, "output", "o", "", "Output format: table or json")

	return cmd
}
