package commands

import (
	"fmt"
	"os"

	"github.com/hashgraph-online/dip721-sdk-go/pkg/dip721"
	"github.com/spf13/cobra"
)

func newCIDCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "cid <file>",
		Short: "Print the CIDv1 (raw, sha2-256) of a file for use with --ipfs-location",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to read file: %w", err)
			}
			address, err := dip721.ContentAddressFor(data)
			if err != nil {
				return err
			}
			a.logger.Debug("derived content address", "file", args[0], "bytes", len(data))
			fmt.Fprintln(cmd.OutOrStdout(), address)
			return nil
		},
	}
}
