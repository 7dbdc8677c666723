package staticdata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"campus-shuttle/internal/transit"
)

// Provider loads the static stop/route/geometry universe.
type Provider interface {
	Load(ctx context.Context) (*transit.StaticData, error)
}

// Decode parses the static data JSON document.
func Decode(r io.Reader) (*transit.StaticData, error) {
	var d transit.StaticData
	if err := json.NewDecoder(r).Decode(&d); err != nil {
		return nil, fmt.Errorf("decode static data: %w", err)
	}
	return &d, nil
}

// FileProvider reads static data from a JSON file on every Load.
type FileProvider struct {
	Path string
}

func (p FileProvider) Load(ctx context.Context) (*transit.StaticData, error) {
	f, err := os.Open(p.Path)
	if err != nil {
		return nil, fmt.Errorf("open static data: %w", err)
	}
	defer f.Close()
	return Decode(f)
}

// HTTPProvider fetches static data from the backend's static endpoint.
type HTTPProvider struct {
	URL  string
	HTTP *http.Client
}

func NewHTTPProvider(url string, timeout time.Duration) *HTTPProvider {
	return &HTTPProvider{URL: url, HTTP: &http.Client{Timeout: timeout}}
}

func (p *HTTPProvider) Load(ctx context.Context) (*transit.StaticData, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.URL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := p.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch static data: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch static data: status code %d", resp.StatusCode)
	}
	return Decode(resp.Body)
}
