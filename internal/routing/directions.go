package routing

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// DirectionsClient queries the external directions service.
type DirectionsClient struct {
	baseURL string
	http    *http.Client
}

func NewDirectionsClient(baseURL string, timeout time.Duration) *DirectionsClient {
	return &DirectionsClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

func (c *DirectionsClient) Directions(ctx context.Context, req DirectionsRequest) (*Directions, error) {
	q := url.Values{}
	q.Set("originLat", formatFloat(req.OriginLat))
	q.Set("originLon", formatFloat(req.OriginLon))
	if req.DestLocationID != "" {
		q.Set("destLocationId", req.DestLocationID)
	} else {
		q.Set("destLat", formatFloat(req.DestLat))
		q.Set("destLon", formatFloat(req.DestLon))
		if req.DestName != "" {
			q.Set("destName", req.DestName)
		}
	}
	if req.Time != "" {
		q.Set("time", req.Time)
	}
	if req.Day != "" {
		q.Set("day", req.Day)
	}
	if req.ForceBus {
		q.Set("forceBus", "true")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/directions?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("directions request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read directions response: %w", err)
	}
	var d Directions
	if err := json.Unmarshal(body, &d); err != nil {
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("directions: status code %d", resp.StatusCode)
		}
		return nil, fmt.Errorf("decode directions: %w", err)
	}
	if d.Error != "" {
		return nil, &DirectionsError{Message: d.Error, Suggestion: d.Suggestion}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("directions: status code %d", resp.StatusCode)
	}
	return &d, nil
}

func formatFloat(f float64) string { return strconv.FormatFloat(f, 'f', -1, 64) }
