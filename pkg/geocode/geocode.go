package geocode

import (
	"context"
	"errors"
	"fmt"

	cmap "github.com/orcaman/concurrent-map/v2"
	"googlemaps.github.io/maps"
)

// GoogleProvider uses the Google Maps Geocoding API. Results are cached
// per rounded coordinate, which bounds quota use while a focused vehicle
// idles at one spot.
type GoogleProvider struct {
	client *maps.Client
	cache  cmap.ConcurrentMap[string, string]
}

// NewGoogleProvider creates a new GoogleProvider instance.
func NewGoogleProvider(apiKey string) (*GoogleProvider, error) {
	c, err := maps.NewClient(maps.WithAPIKey(apiKey))
	if err != nil {
		return nil, err
	}

	return &GoogleProvider{
		client: c,
		cache:  cmap.New[string](),
	}, nil
}

// ReverseGeocode returns the formatted address closest to the point.
func (g *GoogleProvider) ReverseGeocode(ctx context.Context, lat, lng float64) (string, error) {
	// Four decimal places is ~11 m, below marker precision on screen.
	key := fmt.Sprintf("%.4f,%.4f", lat, lng)
	if address, ok := g.cache.Get(key); ok {
		return address, nil
	}

	results, err := g.client.ReverseGeocode(ctx, &maps.GeocodingRequest{
		LatLng: &maps.LatLng{Lat: lat, Lng: lng},
	})
	if err != nil {
		return "", err
	}
	if len(results) == 0 {
		return "", errors.New("no geocoding result for coordinates")
	}

	address := results[0].FormattedAddress
	g.cache.Set(key, address)
	return address, nil
}
