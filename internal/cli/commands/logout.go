package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gradefresh-dev/gradefresh/internal/session"
)

// NewLogoutCmd creates the logout command
func NewLogoutCmd(g *Globals) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := g.Storage()
			if err != nil {
				return fmt.Errorf("failed to open session storage: %w", err)
			}
			if err := session.ClearSession(st); err != nil {
				return fmt.Errorf("failed to clear session: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "✓ Signed out")
			return nil
		},
	}
}
