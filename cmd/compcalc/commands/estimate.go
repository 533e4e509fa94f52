package commands

import (
	"github.com/spf13/cobra"
)

// estimate --in <file>: run a calculation and print the result as JSON.
func estimateCmd() *cobra.Command {
	var in string
	cmd := &cobra.Command{
		Use:   "estimate",
		Short: "Calculate a reasonable compensation estimate",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := readRequest(cmd, in)
			if err != nil {
				return err
			}
			if err := prepare(cmd.Context()); err != nil {
				return err
			}
			res, err := wire.Service.Estimate(req)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), res)
		},
	}
	cmd.Flags().StringVar(&in, "in", "", "request JSON file, or - for stdin")
	_ = cmd.MarkFlagRequired("in")
	return cmd
}
