package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/aretw0/webclip"
)

const statusTimeout = 5 * time.Second

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Check that a host answers",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := context.WithTimeout(cmd.Context(), statusTimeout)
		defer cancel()

		err := withSession(ctx, func(sess *webclip.Session) error {
			ok, err := sess.Ping(ctx)
			if err == nil && !ok {
				err = fmt.Errorf("host reported disconnected")
			}
			return err
		})
		if err != nil {
			slog.Debug("ping failed", "error", err)
			fmt.Println(errorStyle.Render("Not connected"))
			os.Exit(1)
		}
		fmt.Println(successStyle.Render("Connected to host"), infoStyle.Render(cfg.Vault))
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
