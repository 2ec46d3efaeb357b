package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/gradefresh-dev/gradefresh/internal/session"
)

// NewWhoamiCmd creates the whoami command
func NewWhoamiCmd(g *Globals) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := g.Storage()
			if err != nil {
				return fmt.Errorf("failed to open session storage: %w", err)
			}

			sess, err := requireSession(st, cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s (%s)\n", sess.User.Name, sess.User.Email)
			fmt.Fprintf(out, "  Role: %s\n", sess.User.Role.Normalize())
			if sess.User.Username != "" {
				fmt.Fprintf(out, "  Username: %s\n", sess.User.Username)
			}
			if exp, ok := session.TokenExpiry(sess.Token); ok {
				if exp.Before(time.Now()) {
					fmt.Fprintf(out, "  Session: expired %s\n", exp.Local().Format(time.RFC1123))
				} else {
					fmt.Fprintf(out, "  Session: valid until %s\n", exp.Local().Format(time.RFC1123))
				}
			}
			return nil
		},
	}
}
