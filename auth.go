package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/minios-linux/loksync/config"
	"github.com/minios-linux/loksync/i18n"
	"github.com/minios-linux/loksync/settings"
)

// ---------------------------------------------------------------------------
// auth (bearer tokens per backend URL)
// ---------------------------------------------------------------------------

func newAuthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage backend tokens",
		Long: `Store bearer tokens for translation endpoints that require one.

Tokens are kept per backend URL in the user data directory with owner-only
permissions. A --token flag or the ` + config.TokenEnv + ` variable takes
precedence over a stored token.

Examples:
  loksync auth login -u https://translate.example.com/translate
  loksync auth list
  loksync auth logout -u https://translate.example.com/translate
  loksync auth logout --all`,
	}

	cmd.AddCommand(
		newAuthLoginCmd(),
		newAuthLogoutCmd(),
		newAuthListCmd(),
	)

	return cmd
}

// backendURL returns the --url flag, or the config file's URL when the
// flag is unset.
func backendURL(cmd *cobra.Command, flagValue string) string {
	if cmd.Flags().Changed("url") {
		return flagValue
	}
	if f, err := config.LoadFile(configPath); err == nil && f != nil && f.URL != "" {
		return f.URL
	}
	return flagValue
}

func newAuthLoginCmd() *cobra.Command {
	var url, token string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Store a token for a backend",
		Long: `Store a bearer token for a backend URL. Without --token the token is
read from standard input.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			url = backendURL(cmd, url)
			if token == "" {
				fmt.Fprintf(os.Stderr, i18n.T("Enter token for %s: "), url)
				var err error
				token, err = readToken(cmd.InOrStdin())
				if err != nil {
					return err
				}
			}
			if err := settings.SetToken(url, token); err != nil {
				return err
			}
			logSuccess(i18n.T("Token saved for %s"), settings.NormalizeURL(url))
			return nil
		},
	}

	cmd.Flags().StringVarP(&url, "url", "u", config.DefaultURL, "Translation endpoint URL")
	cmd.Flags().StringVar(&token, "token", "", "Token to store (read from stdin if omitted)")
	return cmd
}

func readToken(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("reading token: %w", err)
	}
	token := strings.TrimSpace(line)
	if token == "" {
		return "", errors.New("empty token")
	}
	return token, nil
}

func newAuthLogoutCmd() *cobra.Command {
	var (
		url string
		all bool
	)

	cmd := &cobra.Command{
		Use:   "logout",
		Short: "Remove a stored token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if all {
				if err := settings.RemoveAll(); err != nil {
					return err
				}
				logSuccess("%s", i18n.T("All tokens removed"))
				return nil
			}

			url = backendURL(cmd, url)
			removed, err := settings.Remove(url)
			if err != nil {
				return err
			}
			if !removed {
				logInfo(i18n.T("No token stored for %s"), settings.NormalizeURL(url))
				return nil
			}
			logSuccess(i18n.T("Token removed for %s"), settings.NormalizeURL(url))
			return nil
		},
	}

	cmd.Flags().StringVarP(&url, "url", "u", config.DefaultURL, "Translation endpoint URL")
	cmd.Flags().BoolVar(&all, "all", false, "Remove every stored token")
	return cmd
}

func newAuthListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored tokens",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			store := settings.Load()
			if len(store) == 0 {
				logInfo("%s", i18n.T("No stored tokens"))
				return
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s\n", colorInfo.Sprint(settings.FilePath()))
			for _, u := range store.URLs() {
				fmt.Fprintf(out, "  %s  %s\n", u, settings.MaskKey(store[u].Token))
			}
		},
	}
}
