package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Dan9191/reasonable-comp/internal/config"
	"github.com/Dan9191/reasonable-comp/internal/models"
)

// sources --state <code> --role <role>: refresh market data once and show
// which sources back the pair.
func sourcesCmd() *cobra.Command {
	var state, role string
	cmd := &cobra.Command{
		Use:   "sources",
		Short: "Show market data quality for a state and role",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if wire.Market == nil {
				return fmt.Errorf("sources needs the %s provider", config.ProviderAggregated)
			}
			if err := prepare(cmd.Context()); err != nil {
				return err
			}
			quality, err := wire.Service.DataQuality(normaliseState(state), models.Role(strings.ToLower(role)))
			if err != nil {
				return err
			}
			status, err := wire.Service.DataStatus()
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), map[string]any{
				"state":   normaliseState(state),
				"role":    strings.ToLower(role),
				"quality": quality,
				"sources": status.Sources,
			})
		},
	}
	cmd.Flags().StringVar(&state, "state", "", "two-letter state code")
	cmd.Flags().StringVar(&role, "role", "", "role key (exec, admin, bookkeeping, sales, ops, tech)")
	_ = cmd.MarkFlagRequired("state")
	_ = cmd.MarkFlagRequired("role")
	return cmd
}
