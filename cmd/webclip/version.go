package main

import (
	"fmt"
	"strings"

	"github.com/aretw0/webclip"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of webclip",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("webclip version %s\n", strings.TrimSpace(webclip.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
