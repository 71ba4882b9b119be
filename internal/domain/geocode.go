package domain

import (
	"context"
	"log/slog"
)

// Location is a resolved search location.
type Location struct {
	Center    LatLng
	Address   string
	Defaulted bool // true when DefaultCenter was substituted
}

// ResolveLocation geocodes text. If geocoder is nil, the lookup fails, or
// nothing matches, DefaultCenter is returned instead (graceful degradation).
func ResolveLocation(ctx context.Context, geocoder Geocoder, text string, logger *slog.Logger) Location {
	fallback := Location{Center: DefaultCenter, Address: text, Defaulted: true}
	if geocoder == nil || text == "" {
		return fallback
	}

	result, err := geocoder.Geocode(ctx, text)
	if err != nil {
		logger.Warn("geocoding failed, using default center",
			"location", text,
			"error", err,
		)
		return fallback
	}
	if !result.Found() {
		logger.Warn("geocoding returned no match, using default center", "location", text)
		return fallback
	}

	addr := result.DisplayName
	if addr == "" {
		addr = text
	}
	return Location{Center: LatLng{Lat: result.Lat, Lng: result.Lon}, Address: addr}
}
