package commands

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/hashgraph-online/dip721-sdk-go/pkg/dip721"
	"github.com/hashgraph-online/dip721-sdk-go/pkg/identity"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	exitOK     = 0
	exitError  = 1
	exitDenied = 2
)

// TransportFactory builds the transport for resolved settings.
type TransportFactory func(settings Settings, logger *slog.Logger) (dip721.Transport, error)

type Options struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
	// Home overrides the user's home directory for config and dfx lookup.
	Home string
	// NewTransport defaults to the agent or Hedera transport chosen by settings.
	NewTransport TransportFactory
	// Identity overrides the identity provider chosen by settings.
	Identity identity.Provider
}

type codedError struct {
	code int
	err  error
}

func (e *codedError) Error() string {
	return e.err.Error()
}

func (e *codedError) Unwrap() error {
	return e.err
}

type app struct {
	options Options
	config  *viper.Viper
	cfgFile string
	verbose bool
	logger  *slog.Logger
}

// Execute runs the CLI and returns the process exit code.
func Execute(args []string, options Options) int {
	root := NewRootCommand(options)
	root.SetArgs(args)
	err := root.Execute()
	if err == nil {
		return exitOK
	}

	stderr := options.Stderr
	if stderr == nil {
		stderr = os.Stderr
	}
	fmt.Fprintln(stderr, err.Error())

	var coded *codedError
	if errors.As(err, &coded) {
		return coded.code
	}
	return exitError
}

// NewRootCommand builds the command tree. Each call uses its own viper
// instance.
func NewRootCommand(options Options) *cobra.Command {
	if options.Stdin == nil {
		options.Stdin = os.Stdin
	}
	if options.Stdout == nil {
		options.Stdout = os.Stdout
	}
	if options.Stderr == nil {
		options.Stderr = os.Stderr
	}
	if options.NewTransport == nil {
		options.NewTransport = defaultTransport
	}

	a := &app{options: options, config: viper.New()}

	root := &cobra.Command{
		Use:           "dip721-mint",
		Short:         "Mint DIP-721 NFTs",
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := loadConfig(a.config, a.cfgFile, a.home()); err != nil {
				return err
			}
			level := slog.LevelWarn
			if a.verbose {
				level = slog.LevelDebug
			}
			a.logger = slog.New(slog.NewTextHandler(a.options.Stderr, &slog.HandlerOptions{Level: level}))
			return nil
		},
	}
	root.SetIn(options.Stdin)
	root.SetOut(options.Stdout)
	root.SetErr(options.Stderr)

	flags := root.PersistentFlags()
	flags.StringVar(&a.cfgFile, "config", "", "config file (default is $HOME/.dip721/config.yaml)")
	flags.BoolVarP(&a.verbose, "verbose", "v", false, "log requests and poll status to stderr")
	flags.String("transport", "", "call transport: agent or hedera")
	flags.String("identity", "", "PEM file holding the signing key")
	flags.String("identity-name", "", "dfx identity name (default is the dfx default identity)")
	flags.Duration("poll-interval", 0, "interval between update status polls")
	flags.Duration("poll-timeout", 0, "maximum time to wait for an update call")
	flags.Bool("fetch-root-key", false, "trust the root key published by the replica (always on for local networks)")
	flags.Uint64("hedera-gas", 0, "gas limit for Hedera gateway calls")

	bindings := map[string]string{
		keyTransport:    "transport",
		keyIdentityPEM:  "identity",
		keyIdentityName: "identity-name",
		keyPollInterval: "poll-interval",
		keyPollTimeout:  "poll-timeout",
		keyFetchRootKey: "fetch-root-key",
		keyHederaGas:    "hedera-gas",
	}
	for key, flag := range bindings {
		if err := a.config.BindPFlag(key, flags.Lookup(flag)); err != nil {
			panic(fmt.Sprintf("failed to bind flag %s: %v", flag, err))
		}
	}

	root.AddCommand(newMintCommand(a), newProbeCommand(a), newCIDCommand(a))
	return root
}

func (a *app) home() string {
	if strings.TrimSpace(a.options.Home) != "" {
		return a.options.Home
	}
	home, _ := os.UserHomeDir()
	return home
}
