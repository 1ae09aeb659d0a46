package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
)

// readSecret returns flagValue, or reads one line from in when it is empty.
func readSecret(cmd *cobra.Command, flagValue, prompt string) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	fmt.Fprint(cmd.ErrOrStderr(), prompt)
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read %s: %w", strings.TrimSuffix(strings.ToLower(prompt), ": "), err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func registerCmd() *cobra.Command {
	var name, email, password string
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create a SpendSense account",
		Long: `Create a new account. The password must be at least 8 characters and
contain an uppercase letter, a lowercase letter, a digit and a special character.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			pw, err := readSecret(cmd, password, "Password: ")
			if err != nil {
				return err
			}
			return withApp(cmd.Context(), func(a *app) error {
				user, err := a.session.Register(cmd.Context(), name, email, pw)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), formatSuccess(fmt.Sprintf("Account created for %s. Run 'spendsense login' to sign in.", user.Email)))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "display name")
	cmd.Flags().StringVar(&email, "email", "", "email address")
	cmd.Flags().StringVar(&password, "password", "", "password (prompted when omitted)")
	return cmd
}

func loginCmd() *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and remember the session on this device",
		RunE: func(cmd *cobra.Command, _ []string) error {
			pw, err := readSecret(cmd, password, "Password: ")
			if err != nil {
				return err
			}
			return withApp(cmd.Context(), func(a *app) error {
				if _, err := a.session.Login(cmd.Context(), email, pw); err != nil {
					return err
				}
				user, err := a.session.CurrentUser(cmd.Context())
				if err != nil {
					fmt.Fprintln(cmd.OutOrStdout(), formatSuccess("Logged in."))
					return nil
				}
				fmt.Fprintln(cmd.OutOrStdout(), formatSuccess(fmt.Sprintf("Logged in as %s <%s>.", user.Name, user.Email)))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "email address")
	cmd.Flags().StringVar(&password, "password", "", "password (prompted when omitted)")
	return cmd
}

func logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd.Context(), func(a *app) error {
				if err := a.session.Logout(cmd.Context()); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), formatSuccess("Logged out."))
				return nil
			})
		},
	}
}

func whoamiCmd() *cobra.Command {
	var deleteAccount bool
	cmd := &cobra.Command{
		Use:   "whoami",
		Short: "Show the logged-in user",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd.Context(), func(a *app) error {
				user, err := a.session.CurrentUser(cmd.Context())
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "%s <%s>\n", headerStyle.Render(user.Name), user.Email)
				if claims, err := a.session.Claims(); err == nil && !claims.ExpiresAt.IsZero() {
					fmt.Fprintln(out, subtleStyle.Render("session valid until "+claims.ExpiresAt.In(a.cfg.Location).Format("2006-01-02 15:04 MST")))
				}

				if !deleteAccount {
					return nil
				}
				if err := a.session.DeleteAccount(cmd.Context()); err != nil {
					return err
				}
				fmt.Fprintln(out, formatWarning("Account deleted."))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&deleteAccount, "delete-account", false, "permanently delete this account and log out")
	return cmd
}
