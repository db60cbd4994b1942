package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/x/term"
	"github.com/spf13/cobra"
)

func newLoginCmd(a *app) *cobra.Command {
	var identifier string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and save a session token",
		Long:  "Sign in with your email or username. The password is read from NOTEGENIE_PASSWORD, or prompted for.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runLogin(cmd, a, identifier)
		},
	}

	cmd.Flags().StringVarP(&identifier, "user", "u", "", "Email or username")

	return cmd
}

func runLogin(cmd *cobra.Command, a *app, identifier string) error {
	in := bufio.NewReader(cmd.InOrStdin())
	out := cmd.ErrOrStderr()

	if identifier == "" {
		fmt.Fprint(out, "Email or username: ")
		line, err := readLine(in)
		if err != nil {
			return err
		}
		identifier = line
	}

	password := os.Getenv(envPrefix + "_PASSWORD")
	if password == "" {
		fmt.Fprint(out, "Password: ")
		p, err := readPassword(cmd.InOrStdin(), in)
		fmt.Fprintln(out)
		if err != nil {
			return err
		}
		password = p
	}

	if identifier == "" || password == "" {
		return errors.New("email or username and password are required")
	}

	res, err := a.client("").SignIn(cmd.Context(), identifier, password)
	if err != nil {
		return fmt.Errorf("sign in: %w", err)
	}

	if err := a.creds.save(credentials{
		ServerURL: a.settings.ServerURL,
		Token:     res.Token,
		ExpiresAt: res.ExpiresAt,
		UserID:    res.User.ID,
		Username:  res.User.Username,
	}); err != nil {
		return err
	}

	a.logger.Info("signed in", "user_id", res.User.ID)
	fmt.Fprintf(cmd.OutOrStdout(), "Signed in as %s (%s tier, %d runs left)\n",
		res.User.Username, res.User.Tier, res.User.UsageCount)
	return nil
}

func newLogoutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "End the session and forget the saved token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			creds, err := a.session()
			if err == nil {
				if err := a.client(creds.Token).SignOut(cmd.Context()); err != nil {
					a.logger.Warn("server sign-out failed", "error", err)
				}
			} else if !errors.Is(err, errNotSignedIn) {
				a.logger.Warn("ignoring unreadable credentials", "error", err)
			}

			if err := a.creds.remove(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Signed out")
			return nil
		},
	}
}

func readLine(r *bufio.Reader) (string, error) {
	line, err := r.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", fmt.Errorf("read input: %w", err)
	}
	return strings.TrimSpace(line), nil
}

// readPassword disables echo when stdin is a terminal.
func readPassword(stdin io.Reader, buffered *bufio.Reader) (string, error) {
	if f, ok := stdin.(*os.File); ok && term.IsTerminal(f.Fd()) {
		p, err := term.ReadPassword(f.Fd())
		if err != nil {
			return "", fmt.Errorf("read password: %w", err)
		}
		return string(p), nil
	}
	return readLine(buffered)
}
