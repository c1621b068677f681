package tracking

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/runwayscope/runwayscope/internal/geo"
	"github.com/runwayscope/runwayscope/pkg/logger"
)

// FeedResponse is the raw live-feed payload: a list of aircraft currently
// inside the requested bounding box.
type FeedResponse struct {
	Aircraft []FeedRecord `json:"aircraft"`
	Time     int64        `json:"time"`
}

// Client fetches live aircraft data around the station
type Client struct {
	httpClient   *http.Client
	feedURL      string
	apiKey       string
	apiKeyHeader string
	bounds       string
	logger       *logger.Logger
}

// NewClient creates a feed client. The feed URL should contain a "{bounds}"
// placeholder which is replaced by "north,south,west,east" computed from the
// station location and the configured radius.
func NewClient(
	feedURL string,
	apiKey string,
	apiKeyHeader string,
	stationLat float64,
	stationLon float64,
	radiusM float64,
	timeout time.Duration,
	loggerObj *logger.Logger,
) *Client {
	south, north, west, east := geo.BoundingBox(stationLat, stationLon, radiusM)
	bounds := fmt.Sprintf("%.6f,%.6f,%.6f,%.6f", north, south, west, east)

	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		feedURL:      feedURL,
		apiKey:       apiKey,
		apiKeyHeader: apiKeyHeader,
		bounds:       bounds,
		logger:       loggerObj.Named("feed-cli"),
	}
}

// Bounds returns the bounding box string sent to the feed
func (c *Client) Bounds() string {
	return c.bounds
}

// FetchData fetches the current aircraft snapshot from the feed
func (c *Client) FetchData(ctx context.Context) (*FeedResponse, error) {
	urlStr := strings.ReplaceAll(c.feedURL, "{bounds}", c.bounds)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, urlStr, nil)
	if err != nil {
		c.logger.Error("Failed to create request", logger.Error(err), logger.String("url", urlStr))
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set(c.apiKeyHeader, c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("Failed to execute request", logger.Error(err), logger.String("url", urlStr))
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.logger.Error("Unexpected status code",
			logger.Int("status_code", resp.StatusCode),
			logger.String("url", urlStr))
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		c.logger.Error("Failed to read response body", logger.Error(err))
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	var data FeedResponse
	if err := json.Unmarshal(body, &data); err != nil {
		c.logger.Error("Failed to parse feed response", logger.Error(err))
		return nil, fmt.Errorf("failed to parse JSON: %w", err)
	}

	c.logger.Debug("Fetched feed snapshot",
		logger.Int("aircraft_count", len(data.Aircraft)))

	return &data, nil
}
