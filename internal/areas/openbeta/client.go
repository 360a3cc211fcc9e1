package openbeta

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"
)

// Endpoint is the OpenBeta GraphQL API.
const Endpoint = "https://api.openbeta.io/graphql"

const areaQuery = `
query ($name: String!) {
  areas(filter: {area_name: {exactMatch: true, match: $name}}) {
    id
    area_name
    metadata {
      lat
      lng
      leaf
      polygon
      bbox
      areaId
    }
    children {
      id
      area_name
      metadata {
        lat
        lng
        leaf
        polygon
        bbox
        areaId
      }
      climbs {
        id
        name
        metadata {
          lat
          lng
        }
        type {
          sport
          trad
          tr
        }
        grades {
          yds
        }
      }
    }
  }
}`

// Client is an HTTP client for the OpenBeta GraphQL API.
type Client struct {
	endpoint   string
	httpClient *http.Client
}

func NewClient() *Client {
	return &Client{
		endpoint: Endpoint,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// FetchAreaByName fetches areas exactly matching a name, with one level of
// children and their climbs.
func (c *Client) FetchAreaByName(ctx context.Context, name string) ([]AreaNode, error) {
	body, err := json.Marshal(map[string]any{
		"query":     areaQuery,
		"variables": map[string]string{"name": name},
	})
	if err != nil {
		return nil, fmt.Errorf("encode query: %w", err)
	}

	log.Printf("[openbeta] POST %s area=%q", c.endpoint, name)

	req, err := http.NewRequestWithContext(ctx, "POST", c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("openbeta request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("openbeta request: status %d", resp.StatusCode)
	}

	var out struct {
		Data struct {
			Areas []AreaNode `json:"areas"`
		} `json:"data"`
		Errors []struct {
			Message string `json:"message"`
		} `json:"errors"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if len(out.Errors) > 0 {
		return nil, fmt.Errorf("openbeta graphql: %s", out.Errors[0].Message)
	}

	return out.Data.Areas, nil
}
