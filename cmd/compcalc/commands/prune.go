package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// prune --keep <n>: drop old market data snapshots from the store.
func pruneCmd() *cobra.Command {
	var keep int
	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete all but the newest stored market data snapshots",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if wire.Repo == nil {
				return fmt.Errorf("no snapshot store configured, set DB_CONN or SQLITE_PATH")
			}
			if keep < 1 {
				return fmt.Errorf("--keep must be at least 1, got %d", keep)
			}
			removed, err := wire.Repo.PruneSnapshots(cmd.Context(), keep)
			if err != nil {
				return err
			}
			left, err := wire.Repo.CountSnapshots(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d snapshots, %d kept\n", removed, left)
			return nil
		},
	}
	cmd.Flags().IntVar(&keep, "keep", 1, "number of newest snapshots to keep")
	return cmd
}
