package util

import (
	"context"
	"fmt"

	"googlemaps.github.io/maps"
)

// ReverseGeocodeResult carries the address fields stored on a vendor location.
type ReverseGeocodeResult struct {
	FormattedAddress string
	Locality         string
	Sublocality      string
}

// Geocoder resolves coordinates into human-readable address parts.
type Geocoder interface {
	ReverseGeocode(ctx context.Context, lat, lng float64) (*ReverseGeocodeResult, error)
}

// GoogleGeocoder is a Geocoder backed by the Google Maps Geocoding API.
type GoogleGeocoder struct {
	client *maps.Client
}

func NewGoogleGeocoder(apiKey string) (*GoogleGeocoder, error) {
	client, err := maps.NewClient(maps.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Google Maps client: %w", err)
	}
	return &GoogleGeocoder{client: client}, nil
}

func (g *GoogleGeocoder) ReverseGeocode(ctx context.Context, lat, lng float64) (*ReverseGeocodeResult, error) {
	req := &maps.GeocodingRequest{
		LatLng: &maps.LatLng{Lat: lat, Lng: lng},
	}

	resp, err := g.client.ReverseGeocode(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("reverse geocoding failed: %w", err)
	}
	if len(resp) == 0 {
		return nil, fmt.Errorf("no reverse geocoding result for %f,%f", lat, lng)
	}

	return reverseGeocodeFromComponents(resp[0].FormattedAddress, resp[0].AddressComponents), nil
}

func reverseGeocodeFromComponents(formatted string, components []maps.AddressComponent) *ReverseGeocodeResult {
	result := &ReverseGeocodeResult{FormattedAddress: formatted}
	for _, component := range components {
		for _, t := range component.Types {
			switch t {
			case "locality":
				if result.Locality == "" {
					result.Locality = component.LongName
				}
			case "sublocality", "sublocality_level_1":
				if result.Sublocality == "" {
					result.Sublocality = component.LongName
				}
			}
		}
	}
	return result
}
