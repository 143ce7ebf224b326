package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/searchsync/internal/config"
)

var (
	env        string
	configPath string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "searchsync",
	Short: "Keeps a full-text search index in step with a record store",
	Long: `searchsync indexes documents into Redis (RediSearch), Meilisearch or an
in-process store, serves search over HTTP, and replays record lifecycle
events into the index with queueing and retries.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&env, "env", config.GetEnv(), "Environment name (selects config/<env>.yaml)")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to a config file (overrides --env)")
}

// loadConfig reads the file named by --config, or the env default.
func loadConfig() (config.Config, error) {
	if configPath != "" {
		return config.LoadFile(configPath)
	}
	return config.Load(env)
}
