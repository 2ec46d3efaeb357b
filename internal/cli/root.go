package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/gradefresh-dev/gradefresh/internal/cli/commands"
)

var version = "dev" // Will be set during build

// NewRootCmd builds the command tree around g
func NewRootCmd(g *commands.Globals) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "gradefresh",
		Short: "GradeFresh - fruit quality inspection from the terminal",
		Long: `GradeFresh CLI - sign in to GradeFresh and analyze fruit images.

The CLI keeps the same session as the web frontend (access_token and user)
in a local file or the OS keyring.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return g.Validate()
		},
	}

	rootCmd.PersistentFlags().StringVar(&g.StorageKind, "storage", g.StorageKind, "Where the session is kept: file or keyring")
	rootCmd.PersistentFlags().StringVar(&g.APIURL, "api-url", g.APIURL, "GradeFresh API base URL (or set GRADEFRESH_API_URL)")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "gradefresh version %s\n", version)
		},
	})

	rootCmd.AddCommand(commands.NewLoginCmd(g))
	rootCmd.AddCommand(commands.NewLogoutCmd(g))
	rootCmd.AddCommand(commands.NewWhoamiCmd(g))
	rootCmd.AddCommand(commands.NewAnalyzeCmd(g))

	return rootCmd
}

// Execute runs the root command
func Execute() error {
	if err := NewRootCmd(commands.DefaultGlobals()).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}
