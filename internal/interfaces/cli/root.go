package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	Version   = "dev"
	CommitSHA = "none"
	BuildDate = "unknown"
)

type rootFlags struct {
	configFile string
}

func NewRoot() *cobra.Command {
	var f rootFlags
	cmd := &cobra.Command{
		Use:           "tablesearch",
		Short:         "Search restaurant availability from the command line or over HTTP",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&f.configFile, "config", "", "config file (yaml, json or toml)")

	cmd.AddCommand(newSearchCmd(&f))
	cmd.AddCommand(newLoginCmd(&f))
	cmd.AddCommand(newHistoryCmd(&f))
	cmd.AddCommand(newServerCmd(&f))
	cmd.AddCommand(newKeysCmd())
	cmd.AddCommand(newVersionCmd())
	return cmd
}

func Execute() {
	if err := NewRoot().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
