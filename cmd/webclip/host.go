package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/aretw0/webclip"
)

var hostCmd = &cobra.Command{
	Use:   "host",
	Short: "Serve capture requests as JSON lines on stdin/stdout",
	Long: `Run the host side of the bridge. Requests (PING, CAPTURE, SEARCH, GET_TAGS)
arrive one JSON object per line on stdin and responses go to stdout. Logs are
written to stderr so they never mix with the protocol.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		opts := append(cfg.options(), webclip.WithNotifier(logNotifier{}))
		if err := webclip.Serve(ctx, cfg.uri(), os.Stdin, os.Stdout, opts...); err != nil {
			fatal("Host stopped", err)
		}
	},
}

func init() {
	rootCmd.AddCommand(hostCmd)
}
