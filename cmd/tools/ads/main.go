// cmd/tools/ads/main.go
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"matching-platform/internal/common/config"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "ads",
	Short: "Advertising platform helper",
	Long: `ads manages the advertising account used for conversion tracking.

It provides:
  - the offline OAuth consent flow that yields a refresh token
  - search campaign creation and listing`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "",
		"config file (default: configs/config.yaml with env overrides)")

	rootCmd.AddCommand(tokenCmd)
	rootCmd.AddCommand(campaignCmd)
}

func loadConfig() (*config.Config, error) {
	if configPath != "" {
		return config.LoadFromFile(configPath)
	}
	return config.Load()
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
