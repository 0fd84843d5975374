package cmd

import (
	"github.com/clinia/bulkx/internal/config"
	"github.com/spf13/cobra"
)

// Version is set at build time.
var Version = "dev"

// NewRootCmd is the root command. The configuration flags are shared by every sub-command.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "bulkx",
		Short:        "bulkx streams documents into a database through its bulk insert endpoint.",
		Version:      Version,
		SilenceUsage: true,
	}

	config.RegisterFlags(cmd.PersistentFlags())
	cmd.AddCommand(newInsertCmd())

	return cmd
}
