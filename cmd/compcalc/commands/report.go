package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// report --in <file> [--out <file>]: render the PDF report.
func reportCmd() *cobra.Command {
	var in, out string
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Render a PDF compensation report",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := readRequest(cmd, in)
			if err != nil {
				return err
			}
			if err := prepare(cmd.Context()); err != nil {
				return err
			}
			doc, err := wire.Service.Report(req)
			if err != nil {
				return err
			}
			if out == "" {
				out = doc.Filename
			}
			if err := os.WriteFile(out, doc.PDF, 0o644); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Report %s written to %s (target $%d)\n", doc.ID, out, doc.Result.Target)
			return nil
		},
	}
	cmd.Flags().StringVar(&in, "in", "", "request JSON file, or - for stdin")
	cmd.Flags().StringVar(&out, "out", "", "output PDF path (default derived from the client name)")
	_ = cmd.MarkFlagRequired("in")
	return cmd
}
