// Package cli implements the notegenie command-line client.
package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Execute runs the root command until it finishes or the process is
// interrupted.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return newRootCmd().ExecuteContext(ctx)
}

func newRootCmd() *cobra.Command {
	return newRootCmdWithApp(newApp(viper.New()))
}

func newRootCmdWithApp(a *app) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "notegenie",
		Short:         "Turn meeting recordings into notes",
		Long:          "notegenie compresses a meeting recording, uploads it, and asks the server to turn it into a transcript, summary and action items.",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.load(cmd)
		},
		PersistentPostRunE: func(_ *cobra.Command, _ []string) error {
			return a.close()
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.String("server", "", "Server base URL (config: server_url)")
	flags.String("cache-backend", "", "Local cache backend: file or sqlite (config: cache_backend)")
	flags.String("log-level", "", "Log level: debug, info, warn, error (config: log_level)")
	// Unset flags do not shadow config or env.
	_ = a.v.BindPFlag("server_url", flags.Lookup("server"))
	_ = a.v.BindPFlag("cache_backend", flags.Lookup("cache-backend"))
	_ = a.v.BindPFlag("log_level", flags.Lookup("log-level"))

	rootCmd.AddCommand(
		newLoginCmd(a),
		newLogoutCmd(a),
		newUploadCmd(a),
		newLatestCmd(a),
		newUsageCmd(a),
		newProcessCmd(a),
		newNotesCmd(a),
		newVideosCmd(a),
	)

	return rootCmd
}
