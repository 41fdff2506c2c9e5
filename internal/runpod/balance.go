package runpod

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// Balance reports the account's remaining credit and spend figures
type Balance struct {
	ClientBalance     float64 `json:"clientBalance"`
	CurrentSpendPerHr float64 `json:"currentSpendPerHr"`
	SpendLimit        float64 `json:"spendLimit"`
}

const balanceQuery = `query { myself { clientBalance currentSpendPerHr spendLimit } }`

type graphqlResponse struct {
	Data struct {
		Myself Balance `json:"myself"`
	} `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

// FetchBalance queries the RunPod GraphQL API for the account balance
func (c *Client) FetchBalance(ctx context.Context) (*Balance, error) {
	body, err := json.Marshal(map[string]string{"query": balanceQuery})
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, balanceTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.graphqlURL, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("runpod graphql http %d", resp.StatusCode)
	}

	var out graphqlResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}
	if len(out.Errors) > 0 {
		return nil, fmt.Errorf("runpod graphql error: %s", out.Errors[0].Message)
	}
	return &out.Data.Myself, nil
}
