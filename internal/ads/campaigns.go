// internal/ads/campaigns.go
package ads

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"golang.org/x/oauth2"

	"matching-platform/internal/common/config"
)

// SearchCampaign describes a paused search campaign to create.
type SearchCampaign struct {
	Name        string
	DailyBudget float64 // account currency units
}

// Campaign is one row of a campaign listing.
type Campaign struct {
	ResourceName string `json:"resourceName"`
	ID           string `json:"id"`
	Name         string `json:"name"`
	Status       string `json:"status"`
	Channel      string `json:"advertisingChannelType"`
}

type mutateRequest struct {
	Operations []map[string]interface{} `json:"operations"`
}

type mutateResponse struct {
	Results []struct {
		ResourceName string `json:"resourceName"`
	} `json:"results"`
}

type searchResponse struct {
	Results []struct {
		Campaign Campaign `json:"campaign"`
	} `json:"results"`
	NextPageToken string `json:"nextPageToken"`
}

const listCampaignsQuery = `SELECT campaign.id, campaign.name, campaign.status, campaign.advertising_channel_type
FROM campaign WHERE campaign.status != 'REMOVED' ORDER BY campaign.id`

type CampaignClient struct {
	api *api
}

// NewCampaignClient requires full credentials. ts may be nil to derive it from cfg.
func NewCampaignClient(ctx context.Context, cfg config.GoogleAdsConfig, ts oauth2.TokenSource) (*CampaignClient, error) {
	if !cfg.Enabled() {
		return nil, errNotConfigured
	}
	if ts == nil {
		ts = TokenSource(ctx, cfg)
	}
	return &CampaignClient{api: newAPI(ctx, cfg, ts)}, nil
}

// CreateSearchCampaign creates a daily budget and a paused manual-CPC search campaign using
// it. It returns the campaign resource name.
func (c *CampaignClient) CreateSearchCampaign(ctx context.Context, sc SearchCampaign) (string, error) {
	if sc.Name == "" {
		return "", errors.New("campaign name is required")
	}
	if sc.DailyBudget <= 0 {
		return "", errors.New("daily budget must be positive")
	}

	var budget mutateResponse
	err := c.api.post(ctx, c.api.customerPath("/campaignBudgets:mutate"), mutateRequest{
		Operations: []map[string]interface{}{{
			"create": map[string]interface{}{
				"name":             sc.Name + " Budget",
				"amountMicros":     strconv.FormatInt(int64(sc.DailyBudget*1_000_000), 10),
				"deliveryMethod":   "STANDARD",
				"explicitlyShared": false,
			},
		}},
	}, &budget)
	if err != nil {
		return "", fmt.Errorf("create budget: %w", err)
	}
	if len(budget.Results) == 0 {
		return "", errors.New("create budget: empty result")
	}

	var campaign mutateResponse
	err = c.api.post(ctx, c.api.customerPath("/campaigns:mutate"), mutateRequest{
		Operations: []map[string]interface{}{{
			"create": map[string]interface{}{
				"name":                   sc.Name,
				"status":                 "PAUSED",
				"advertisingChannelType": "SEARCH",
				"campaignBudget":         budget.Results[0].ResourceName,
				"manualCpc":              map[string]interface{}{},
				"networkSettings": map[string]interface{}{
					"targetGoogleSearch":         true,
					"targetSearchNetwork":        true,
					"targetContentNetwork":       false,
					"targetPartnerSearchNetwork": false,
				},
			},
		}},
	}, &campaign)
	if err != nil {
		return "", fmt.Errorf("create campaign: %w", err)
	}
	if len(campaign.Results) == 0 {
		return "", errors.New("create campaign: empty result")
	}
	return campaign.Results[0].ResourceName, nil
}

// ListCampaigns returns all non-removed campaigns, following result pages.
func (c *CampaignClient) ListCampaigns(ctx context.Context) ([]Campaign, error) {
	var (
		out       []Campaign
		pageToken string
	)
	for {
		body := map[string]string{"query": listCampaignsQuery}
		if pageToken != "" {
			body["pageToken"] = pageToken
		}
		var resp searchResponse
		if err := c.api.post(ctx, c.api.customerPath("/googleAds:search"), body, &resp); err != nil {
			return nil, fmt.Errorf("list campaigns: %w", err)
		}
		for _, r := range resp.Results {
			out = append(out, r.Campaign)
		}
		if resp.NextPageToken == "" {
			return out, nil
		}
		pageToken = resp.NextPageToken
	}
}
