package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/aretw0/webclip"
	"github.com/aretw0/webclip/pkg/adapters/fs"
)

// initCmd represents the init command
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a webclip vault",
	Long: `Initialize a vault in --vault or the current directory: create it, run
'git init' unless versioning is disabled, and write a default config.yaml.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		dir := cfg.Vault
		if vaultPath == "" {
			cwd, err := os.Getwd()
			if err != nil {
				fatal("Failed to get CWD", err)
			}
			dir = cwd
		}

		opts := append(cfg.options(), webclip.WithAutoInit(true))
		uri := dir
		if cfg.Adapter == webclip.AdapterSQLite {
			uri = cfg.uri()
		}
		_, closer, err := webclip.New(cmd.Context(), uri, opts...)
		if err != nil {
			fatal("Failed to initialize vault", err)
		}
		defer closer.Close()

		configDir := filepath.Join(dir, fs.DefaultSystemDir)
		if err := os.MkdirAll(configDir, 0o755); err != nil {
			fatal("Failed to create system directory", err)
		}
		if err := ensureDefaultConfigFile(configDir); err != nil {
			fatal("Failed to write config", err)
		}

		fmt.Println("Initialized webclip vault in", dir)
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
