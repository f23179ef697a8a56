package commands

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/aviate-labs/agent-go/principal"
	"github.com/hashgraph-online/dip721-sdk-go/pkg/dip721"
	"github.com/spf13/cobra"
)

const noFilePrompt = "Are you sure you don't want to specify a file? No content will be uploaded, only metadata!"

type mintFlags struct {
	owner         string
	ipfsLocation  string
	assetCanister string
	uri           string
	file          string
	sha2          string
	sha2Auto      bool
	mimeType      string
	yes           bool
}

func newMintCommand(a *app) *cobra.Command {
	var flags mintFlags
	cmd := &cobra.Command{
		Use:   "mint [network] <canister>",
		Short: "Mint a new NFT on a DIP-721 canister",
		Long: `Mints a new NFT with the provided content. The content may live on IPFS,
in an asset canister or at a web URI, or nowhere at all. Pass --file to upload
the file contents to the NFT canister along with the metadata. A SHA-256 hash
is required when the source is a URI; --sha2-auto computes it from --file.

The network is 'ic', 'local' or a replica URL, and defaults to the configured
network. With --transport hedera it names the Hedera network and the canister
is the gateway contract ID.

Not every canister supports minting, and each decides who may mint. That is
usually the canister creator, which may be a wallet rather than your dfx
principal.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runMint(cmd, args, flags)
		},
	}

	f := cmd.Flags()
	f.StringVar(&flags.owner, "owner", "", "the owner of the new NFT")
	f.StringVar(&flags.ipfsLocation, "ipfs-location", "", "the CID of the file on IPFS")
	f.StringVar(&flags.assetCanister, "asset-canister", "", "the principal of the file's asset canister")
	f.StringVar(&flags.uri, "uri", "", "the URI of the file on the internet")
	f.StringVar(&flags.file, "file", "", "path to the file whose contents are sent to the canister")
	f.StringVar(&flags.sha2, "sha2", "", "the SHA-256 hash of the file, hex encoded")
	f.BoolVar(&flags.sha2Auto, "sha2-auto", false, "compute the SHA-256 hash of --file and include it")
	f.StringVar(&flags.mimeType, "mime-type", "", "the MIME type of the file, inferred from --file when omitted")
	f.BoolVarP(&flags.yes, "yes", "y", false, "skip confirmation when no --file is given")

	_ = cmd.MarkFlagRequired("owner")
	cmd.MarkFlagsMutuallyExclusive("ipfs-location", "asset-canister", "uri")
	cmd.MarkFlagsMutuallyExclusive("sha2", "sha2-auto")
	return cmd
}

func (f mintFlags) validate() error {
	hasLocation := f.ipfsLocation != "" || f.assetCanister != "" || f.uri != ""
	switch {
	case f.sha2Auto && f.file == "":
		return fmt.Errorf("--sha2-auto requires --file")
	case f.file == "" && !hasLocation:
		return fmt.Errorf("--file is required unless --ipfs-location, --asset-canister or --uri is given")
	case f.mimeType == "" && f.file == "":
		return fmt.Errorf("--mime-type is required unless --file is given")
	case f.uri != "" && f.sha2 == "" && !f.sha2Auto:
		return fmt.Errorf("--uri requires --sha2 or --sha2-auto")
	}
	return nil
}

func positional(args []string) (string, string) {
	if len(args) == 1 {
		return "", args[0]
	}
	return args[0], args[1]
}

func (a *app) runMint(cmd *cobra.Command, args []string, flags mintFlags) error {
	if err := flags.validate(); err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	if flags.file == "" && !flags.yes {
		confirmed, err := confirm(cmd.InOrStdin(), out, noFilePrompt)
		if err != nil {
			return err
		}
		if !confirmed {
			fmt.Fprintln(out, "Aborted upload")
			return nil
		}
	}

	owner, err := principal.Decode(strings.TrimSpace(flags.owner))
	if err != nil {
		return fmt.Errorf("invalid owner %q: %w", flags.owner, err)
	}
	location, err := dip721.LocationFromOptions(dip721.LocationOptions{
		ContentAddress:     flags.ipfsLocation,
		ContainerReference: flags.assetCanister,
		URI:                flags.uri,
	})
	if err != nil {
		return err
	}

	var file *dip721.File
	if flags.file != "" {
		data, err := os.ReadFile(flags.file)
		if err != nil {
			return fmt.Errorf("failed to read file: %w", err)
		}
		file = &dip721.File{Name: filepath.Base(flags.file), Data: data}
	}

	network, canister := positional(args)
	settings, transport, err := a.connect(network, canister)
	if err != nil {
		return err
	}
	client, err := dip721.NewClient(dip721.ClientConfig{Transport: transport, Logger: a.logger})
	if err != nil {
		return err
	}

	result, err := client.MintToken(cmd.Context(), dip721.MintRequest{
		Canister:    settings.Canister,
		Owner:       owner,
		Location:    location,
		ContentHash: flags.sha2,
		AutoHash:    flags.sha2Auto,
		File:        file,
		ContentType: flags.mimeType,
	})
	if err != nil {
		return err
	}

	receipt, ok := result.Outcome.Receipt()
	if !ok {
		reason, _ := result.Outcome.Denial()
		return &codedError{code: exitDenied, err: errors.New(reason.Message())}
	}
	fmt.Fprintf(out, "Successfully minted token %d to %s (transaction id %s)\n", receipt.TokenID, owner, receipt.TransactionID)
	return nil
}

// confirm asks a yes/no question. Anything but y or yes is a no.
func confirm(in io.Reader, out io.Writer, prompt string) (bool, error) {
	fmt.Fprintf(out, "%s [y/N] ", prompt)
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false, fmt.Errorf("failed to read confirmation: %w", err)
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes", nil
}
