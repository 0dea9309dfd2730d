package universe

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// BrokerSource fetches the active, tradeable NASDAQ/NYSE common-stock list
// from the configured broker API, per §4.5.
type BrokerSource struct {
	BaseURL    string
	HTTPClient *http.Client
}

func (b BrokerSource) ActiveTickers(ctx context.Context) ([]string, error) {
	client := b.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.BaseURL+"/assets?status=active&asset_class=us_equity", nil)
	if err != nil {
		return nil, fmt.Errorf("build broker request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch broker universe: %w", err)
	}
	defer resp.Body.Close()

	var assets []struct {
		Symbol    string `json:"symbol"`
		Exchange  string `json:"exchange"`
		Tradable  bool   `json:"tradable"`
		AssetType string `json:"asset_type"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&assets); err != nil {
		return nil, fmt.Errorf("decode broker universe: %w", err)
	}

	tickers := make([]string, 0, len(assets))
	for _, a := range assets {
		if !a.Tradable {
			continue
		}
		if a.Exchange != "NASDAQ" && a.Exchange != "NYSE" {
			continue
		}
		if a.AssetType != "" && a.AssetType != "common_stock" {
			continue
		}
		tickers = append(tickers, strings.ToUpper(a.Symbol))
	}
	return tickers, nil
}
