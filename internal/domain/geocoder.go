package domain

import "context"

// GeocodingResult is a place returned by a geocoding provider.
type GeocodingResult struct {
	Lat              float64 `json:"lat"`
	Lon              float64 `json:"lon"`
	FormattedAddress string  `json:"formatted_address"`
	PlaceName        string  `json:"place_name"`
	Confidence       float64 `json:"confidence"` // 0.0–1.0 provider relevance
}

// Geocoder resolves place names to coordinates and back.
type Geocoder interface {
	// ForwardGeocode searches for places matching query, best match first.
	ForwardGeocode(ctx context.Context, query string, limit int) ([]GeocodingResult, error)

	// ReverseGeocode returns the address at the given coordinates.
	ReverseGeocode(ctx context.Context, lat, lon float64) (GeocodingResult, error)
}

// Location is a latitude/longitude pair.
type Location struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}
