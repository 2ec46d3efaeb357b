package commands

import (
	"errors"
	"fmt"
	"os"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/gradefresh-dev/gradefresh/internal/apiclient"
	"github.com/gradefresh-dev/gradefresh/internal/session"
)

// NewLoginCmd creates the login command
func NewLoginCmd(g *Globals) *cobra.Command {
	var email, password string
	var admin bool

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in to GradeFresh",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLogin(cmd, g, email, password, admin)
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Email address (or set GRADEFRESH_EMAIL)")
	cmd.Flags().StringVar(&password, "password", "", "Password (or set GRADEFRESH_PASSWORD, will prompt if not provided)")
	cmd.Flags().BoolVar(&admin, "admin", false, "Sign in through the admin login")

	return cmd
}

func runLogin(cmd *cobra.Command, g *Globals, email, password string, admin bool) error {
	// Check for environment variables (useful for CI/CD)
	if email == "" {
		email = os.Getenv("GRADEFRESH_EMAIL")
	}
	if password == "" {
		password = os.Getenv("GRADEFRESH_PASSWORD")
	}

	if email == "" {
		return fmt.Errorf("email is required (use --email flag or GRADEFRESH_EMAIL env var)")
	}

	st, err := g.Storage()
	if err != nil {
		return fmt.Errorf("failed to open session storage: %w", err)
	}

	// Prompt for password if not provided via flag or env var
	if password == "" {
		if !term.IsTerminal(int(syscall.Stdin)) {
			return fmt.Errorf("password is required in non-interactive mode (use --password flag or GRADEFRESH_PASSWORD env var)")
		}
		fmt.Fprint(cmd.OutOrStdout(), "Password: ")
		bytePassword, err := term.ReadPassword(int(syscall.Stdin))
		if err != nil {
			return fmt.Errorf("failed to read password: %w", err)
		}
		password = string(bytePassword)
		fmt.Fprintln(cmd.OutOrStdout()) // New line after password input
	}

	out := cmd.OutOrStdout()
	client := g.Client()
	fmt.Fprintf(out, "Signing in to %s...\n", client.BaseURL())

	var resp *apiclient.AuthResponse
	if admin {
		resp, err = client.AdminLogin(cmd.Context(), email, password)
	} else {
		resp, err = client.Login(cmd.Context(), email, password)
	}
	if err != nil {
		if admin && errors.Is(err, apiclient.ErrForbidden) {
			return fmt.Errorf("login failed: %s does not have admin privileges", email)
		}
		return fmt.Errorf("login failed: %w", err)
	}

	if err := session.SetSession(st, resp.Session()); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}

	fmt.Fprintln(out, "✓ Login successful!")
	fmt.Fprintf(out, "  User: %s (%s)\n", resp.Name, resp.Email)
	fmt.Fprintf(out, "  Role: %s\n", session.Role(resp.Role).Normalize())

	return nil
}
