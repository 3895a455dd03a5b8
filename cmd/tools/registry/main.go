// cmd/tools/registry/main.go
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"matching-platform/pkg/registry"
)

var registryPath string

var rootCmd = &cobra.Command{
	Use:   "registry",
	Short: "Inspect and validate the worker activity registry",
	Long: `registry reads the activity registry that documents every job worker.
Without --path the registry embedded in the server binary is used.`,
	SilenceUsage: true,
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the registry file",
	RunE: func(cmd *cobra.Command, _ []string) error {
		reg, err := load()
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Registry valid: %d activities (version %s)\n", len(reg.Activities), reg.Version)
		return nil
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered activities",
	RunE: func(cmd *cobra.Command, _ []string) error {
		reg, err := load()
		if err != nil {
			return err
		}

		table := tablewriter.NewWriter(cmd.OutOrStdout())
		table.Header("Task Type", "Category", "Version", "Timeout", "Retries", "Workflows")
		for _, a := range reg.Activities {
			row := []string{a.TaskType, a.Category, a.Version, a.Timeout, strconv.Itoa(a.Retries), strings.Join(a.Workflows, ",")}
			if err := table.Append(row); err != nil {
				return err
			}
		}
		return table.Render()
	},
}

var showCmd = &cobra.Command{
	Use:   "show <taskType>",
	Short: "Print one activity as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, err := load()
		if err != nil {
			return err
		}
		a, ok := reg.Find(args[0])
		if !ok {
			return fmt.Errorf("no activity with task type %q", args[0])
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(a)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&registryPath, "path", "p", "", "registry JSON file (default: embedded registry)")

	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(scaffoldCmd)
}

func load() (*registry.ActivityRegistry, error) {
	if registryPath == "" {
		return registry.Default()
	}
	return registry.LoadRegistry(registryPath)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
