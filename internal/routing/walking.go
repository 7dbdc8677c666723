package routing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"campus-shuttle/internal/geo"
)

var ErrNoRoute = errors.New("no route found")

// WalkingClient fetches walking geometry from an OSRM-compatible routing service.
type WalkingClient struct {
	baseURL string
	profile string
	http    *http.Client
}

func NewWalkingClient(baseURL, profile string, timeout time.Duration) *WalkingClient {
	if profile == "" {
		profile = "foot"
	}
	return &WalkingClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		profile: profile,
		http:    &http.Client{Timeout: timeout},
	}
}

type osrmResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Routes  []struct {
		Geometry json.RawMessage `json:"geometry"`
		Distance float64         `json:"distance"`
		Duration float64         `json:"duration"`
	} `json:"routes"`
}

// Walk returns the walking path between two coordinates.
func (c *WalkingClient) Walk(ctx context.Context, from, to geo.Coordinate) (geo.Path, error) {
	// OSRM wants lon,lat
	u := fmt.Sprintf("%s/route/v1/%s/%s,%s;%s,%s?overview=full&geometries=polyline",
		c.baseURL, c.profile,
		formatFloat(from.Lon), formatFloat(from.Lat),
		formatFloat(to.Lon), formatFloat(to.Lat))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("walking request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to get route: status code %d", resp.StatusCode)
	}
	var r osrmResponse
	if err := json.NewDecoder(resp.Body).Decode(&r); err != nil {
		return nil, fmt.Errorf("decode walking route: %w", err)
	}
	if r.Code != "" && r.Code != "Ok" {
		return nil, fmt.Errorf("%w: %s %s", ErrNoRoute, r.Code, r.Message)
	}
	if len(r.Routes) == 0 {
		return nil, ErrNoRoute
	}
	return decodeRouteGeometry(r.Routes[0].Geometry)
}

// decodeRouteGeometry accepts an encoded polyline string or a GeoJSON geometry.
func decodeRouteGeometry(raw json.RawMessage) (geo.Path, error) {
	var encoded string
	if err := json.Unmarshal(raw, &encoded); err == nil {
		return geo.DecodePath(encoded)
	}
	g, err := geo.ParseGeoJSON(raw)
	if err != nil {
		return nil, err
	}
	return g.Flatten(), nil
}
