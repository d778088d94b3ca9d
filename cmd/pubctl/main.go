package main

import (
	"fmt"
	"os"

	"github.com/danmuck/pubd/internal/observability"
	"github.com/spf13/cobra"
)

const defaultConfigPath = "cmd/pubctl/config.toml"

type rootFlags struct {
	Config    string
	Server    string
	Publisher string
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}
	cmd := &cobra.Command{
		Use:           "pubctl",
		Short:         "Publication protocol client",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&flags.Config, "config", defaultConfigPath, "Path to pubctl config")
	cmd.PersistentFlags().StringVar(&flags.Server, "server", "", "Publication server base URL (overrides config)")
	cmd.PersistentFlags().StringVar(&flags.Publisher, "publisher", "", "Publisher handle (overrides config)")

	cmd.AddCommand(
		newListCmd(flags),
		newPublishCmd(flags),
		newUpdateCmd(flags),
		newWithdrawCmd(flags),
		newDecodeCmd(),
	)
	return cmd
}

func main() {
	observability.InitLogger("pubctl")
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
