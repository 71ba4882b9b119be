package domain

import "context"

// GeocodingResult contains location data returned by a geocoding provider.
// A zero result means the provider found nothing.
type GeocodingResult struct {
	Lat         float64
	Lon         float64
	DisplayName string
}

// Found reports whether the result carries coordinates.
func (r GeocodingResult) Found() bool {
	return r.Lat != 0 || r.Lon != 0
}

// Geocoder resolves free-text locations to coordinates.
type Geocoder interface {
	// Geocode returns the best match for query, or a zero result when
	// nothing matched.
	Geocode(ctx context.Context, query string) (GeocodingResult, error)
}
