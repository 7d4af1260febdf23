// Copyright © 2018 One Concern

package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "chunkfs",
	Short: "Chunkfs is a laboratory bench for data deduplication strategies",
	Long: `Chunkfs is an in-memory file system for comparing data deduplication strategies.

Byte streams are split by a content-defined chunking algorithm, hashed,
and deduplicated against a pluggable chunk store. Each run reports
throughput, dedup ratio and average chunk size.
`,
}

// used to patch over calls to os.Exit() during test
var osExit = os.Exit

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		osExit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	flags := rootCmd.PersistentFlags()
	flags.String("log-level", "info", "log level (debug, info, none)")
	flags.String("store", "inmem", "base store backend (inmem, badger, localfs)")
	flags.String("dir", ".chunkfs", "data directory for disk-backed stores")
	flags.String("chunker", "rolling", "chunking algorithm (fixed, rolling)")
	flags.Int("chunk-size", 4096, "chunk size for the fixed chunker, in bytes")
	flags.Int("min-chunk", 0, "minimum chunk size for the rolling chunker, in bytes")
	flags.Int("avg-chunk", 0, "average chunk size for the rolling chunker, in bytes")
	flags.Int("max-chunk", 0, "maximum chunk size for the rolling chunker, in bytes")

	_ = viper.BindPFlags(flags)
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfg := os.Getenv("CHUNKFS_CONFIG"); cfg != "" {
		viper.SetConfigFile(cfg)
	} else {
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME/.chunkfs")
		viper.SetConfigName("chunkfs")
	}
	viper.SetEnvPrefix("chunkfs")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "using config file:", viper.ConfigFileUsed())
	}
}
