// Package geo builds static map images for venue locations.
package geo

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// DefaultBaseURL is the Yandex static maps endpoint.
const DefaultBaseURL = "https://static-maps.yandex.ru/1.x/"

// ErrDisabled is returned by a provider built with Enabled false.
var ErrDisabled = errors.New("map lookup disabled")

// StaticMapProvider returns the URL of a 450x450 map centred on a point
// with a marker on it.  The URL is only handed out after a GET confirms
// the map service answers, so the transport never sends a broken image.
type StaticMapProvider struct {
	enabled bool
	baseURL string
	client  *http.Client
}

// NewStaticMapProvider builds a provider.  An empty baseURL selects
// DefaultBaseURL; timeout bounds the verification request.
func NewStaticMapProvider(enabled bool, baseURL string, timeout time.Duration) *StaticMapProvider {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &StaticMapProvider{
		enabled: enabled,
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

// URL returns the map URL for the point without checking it.
func (p *StaticMapProvider) URL(lat, lon float64) string {
	ll := coord(lon) + "," + coord(lat)
	q := url.Values{}
	q.Set("ll", ll)
	q.Set("size", "450,450")
	q.Set("z", "16")
	q.Set("l", "map")
	q.Set("pt", ll+",pm2rdl")
	return p.baseURL + "?" + q.Encode()
}

// MapImage returns a verified map URL for the point.
func (p *StaticMapProvider) MapImage(ctx context.Context, lat, lon float64) (string, error) {
	if !p.enabled {
		return "", ErrDisabled
	}
	u := p.URL(lat, lon)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return "", fmt.Errorf("build map request: %w", err)
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch map: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch map: unexpected status %d", resp.StatusCode)
	}
	return u, nil
}

func coord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
