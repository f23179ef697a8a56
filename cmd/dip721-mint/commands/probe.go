package commands

import (
	"fmt"

	"github.com/hashgraph-online/dip721-sdk-go/pkg/dip721"
	"github.com/spf13/cobra"
)

func newProbeCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "probe [network] <canister>",
		Short: "List the DIP-721 interfaces a canister supports",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			network, canister := positional(args)
			settings, transport, err := a.connect(network, canister)
			if err != nil {
				return err
			}
			capabilities, err := dip721.SupportedCapabilities(cmd.Context(), transport, settings.Canister)
			if err != nil {
				return err
			}
			for _, capability := range capabilities.List() {
				fmt.Fprintln(cmd.OutOrStdout(), capability)
			}
			return nil
		},
	}
}
