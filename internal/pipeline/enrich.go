package pipeline

import (
	"context"
	"fmt"

	"github.com/couchcryptid/realty-search-service/internal/domain"
)

// ElevationProvider looks up elevations in meters. A nil entry means the
// elevation is unknown.
type ElevationProvider interface {
	GetElevation(ctx context.Context, at domain.LatLng) (*float64, error)
	GetElevations(ctx context.Context, coords []domain.LatLng) ([]*float64, error)
}

// EnrichWithElevation annotates each property with its elevation, its height
// relative to the city center, and the matching color band. The center is
// taken from the first property's city. Properties whose elevation is unknown
// get the neutral color and a zero difference. On error the input is returned
// unchanged.
func EnrichWithElevation(ctx context.Context, props []domain.Property, provider ElevationProvider) ([]domain.Property, error) {
	if len(props) == 0 || provider == nil {
		return props, nil
	}

	coords := make([]domain.LatLng, len(props))
	for i := range props {
		coords[i] = props[i].Coordinates.LatLng()
	}

	elevations, err := provider.GetElevations(ctx, coords)
	if err != nil {
		return props, fmt.Errorf("property elevations: %w", err)
	}
	if len(elevations) != len(props) {
		return props, fmt.Errorf("property elevations: got %d for %d properties", len(elevations), len(props))
	}

	center := domain.CityCenter(props[0].City, props[0].State)
	centerElevation, err := provider.GetElevation(ctx, center)
	if err != nil {
		return props, fmt.Errorf("city center elevation: %w", err)
	}

	out := make([]domain.Property, len(props))
	for i, p := range props {
		p.Elevation = elevations[i]
		diff := 0.0
		if elevations[i] != nil && centerElevation != nil {
			diff = domain.ToFeet(*elevations[i]) - domain.ToFeet(*centerElevation)
			p.ElevationColor = domain.ColorForDiff(diff)
		} else {
			p.ElevationColor = domain.NeutralColor
		}
		p.RelativeCityDiffElev = &diff
		out[i] = p
	}
	return out, nil
}
