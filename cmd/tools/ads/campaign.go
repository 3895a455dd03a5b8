package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"matching-platform/internal/ads"
)

var (
	campaignName   string
	campaignBudget float64
	outputFmt      string
)

var campaignCmd = &cobra.Command{
	Use:   "campaign",
	Short: "Manage search campaigns",
}

var campaignCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a paused search campaign with a daily budget",
	Long: `create adds a campaign budget and a paused search campaign that uses it.

Examples:
  ads campaign create --name "Therapie Berlin" --budget 25`,
	RunE: runCampaignCreate,
}

var campaignListCmd = &cobra.Command{
	Use:   "list",
	Short: "List campaigns in the configured account",
	RunE:  runCampaignList,
}

func init() {
	campaignCreateCmd.Flags().StringVar(&campaignName, "name", "", "Campaign name")
	campaignCreateCmd.Flags().Float64Var(&campaignBudget, "budget", 0, "Daily budget in account currency")
	_ = campaignCreateCmd.MarkFlagRequired("name")
	_ = campaignCreateCmd.MarkFlagRequired("budget")

	campaignListCmd.Flags().StringVarP(&outputFmt, "output", "o", "table", "output format (table, json)")

	campaignCmd.AddCommand(campaignCreateCmd)
	campaignCmd.AddCommand(campaignListCmd)
}

func newCampaignClient(cmd *cobra.Command) (*ads.CampaignClient, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return ads.NewCampaignClient(cmd.Context(), cfg.Integrations.GoogleAds, nil)
}

func runCampaignCreate(cmd *cobra.Command, _ []string) error {
	if strings.TrimSpace(campaignName) == "" || campaignBudget <= 0 {
		return fmt.Errorf("--name and a positive --budget are required")
	}

	client, err := newCampaignClient(cmd)
	if err != nil {
		return err
	}
	resource, err := client.CreateSearchCampaign(cmd.Context(), ads.SearchCampaign{
		Name:        campaignName,
		DailyBudget: campaignBudget,
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Created paused campaign %s\n", resource)
	return nil
}

func runCampaignList(cmd *cobra.Command, _ []string) error {
	client, err := newCampaignClient(cmd)
	if err != nil {
		return err
	}
	campaigns, err := client.ListCampaigns(cmd.Context())
	if err != nil {
		return err
	}

	if outputFmt == "json" {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(campaigns)
	}

	table := tablewriter.NewWriter(cmd.OutOrStdout())
	table.Header("ID", "Name", "Status", "Channel")
	for _, c := range campaigns {
		if err := table.Append([]string{c.ID, c.Name, c.Status, c.Channel}); err != nil {
			return err
		}
	}
	return table.Render()
}
