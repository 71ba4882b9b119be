package domain

import "time"

// PropertyType is the canonical listing category.
type PropertyType string

const (
	SingleFamily PropertyType = "single_family"
	Condo        PropertyType = "condo"
	Townhouse    PropertyType = "townhouse"
	MultiFamily  PropertyType = "multi_family"
)

// Valid reports whether t is one of the canonical property types.
func (t PropertyType) Valid() bool {
	switch t {
	case SingleFamily, Condo, Townhouse, MultiFamily:
		return true
	default:
		return false
	}
}

// LatLng is a WGS-84 coordinate in latitude-first order, used by the
// geocoding and elevation services.
type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// LngLat converts to the longitude-first pair used on Property.
func (c LatLng) LngLat() LngLat {
	return LngLat{c.Lng, c.Lat}
}

// LngLat is a longitude-first coordinate pair, the order the map client expects.
// It must never be passed where a LatLng is expected without conversion.
type LngLat [2]float64

// Lng returns the longitude component.
func (c LngLat) Lng() float64 { return c[0] }

// Lat returns the latitude component.
func (c LngLat) Lat() float64 { return c[1] }

// LatLng converts to the latitude-first form.
func (c LngLat) LatLng() LatLng {
	return LatLng{Lat: c[1], Lng: c[0]}
}

// Property is the canonical listing record every consumer receives, whatever
// its upstream origin. Elevation fields are only set by enrichment.
type Property struct {
	ID            string       `json:"id"`
	Price         int          `json:"price"`
	Address       string       `json:"address"`
	City          string       `json:"city"`
	State         string       `json:"state"`
	ZipCode       string       `json:"zipCode"`
	Bedrooms      int          `json:"bedrooms"`
	Bathrooms     int          `json:"bathrooms"`
	Sqft          int          `json:"sqft"`
	PropertyType  PropertyType `json:"propertyType"`
	ListingStatus string       `json:"listingStatus"`
	Coordinates   LngLat       `json:"coordinates"`
	Images        []string     `json:"images"`
	Description   string       `json:"description"`
	YearBuilt     int          `json:"yearBuilt"`
	LotSize       *float64     `json:"lotSize"`
	Garage        int          `json:"garage"`

	// Elevation enrichment fields.
	Elevation            *float64       `json:"elevation,omitempty"`
	RelativeCityDiffElev *float64       `json:"relativeCityDiffElev,omitempty"`
	ElevationColor       ElevationColor `json:"elevationColor,omitempty"`
}

// Result sources reported on SearchResult.Source.
const (
	SourceUpstream = "upstream"
	SourceFallback = "fallback"
)

// SearchResult is the outcome of a property search. Success is false only for
// unexpected internal failures; upstream failures produce fallback data.
type SearchResult struct {
	Success    bool       `json:"success"`
	Properties []Property `json:"properties"`
	Total      int        `json:"total"`
	Source     string     `json:"source,omitempty"`
	Endpoint   string     `json:"endpoint,omitempty"`
	Error      string     `json:"error,omitempty"`
}

// PropertyResult is the outcome of a lookup by ID.
type PropertyResult struct {
	Success  bool      `json:"success"`
	Property *Property `json:"property,omitempty"`
	Error    string    `json:"error,omitempty"`
}

// GeocodeResult carries coordinates in map order for the presentation layer.
type GeocodeResult struct {
	Success     bool   `json:"success"`
	Coordinates LngLat `json:"coordinates"`
	Address     string `json:"address"`
}

// SearchSnapshot is a published search outcome.
type SearchSnapshot struct {
	SearchID   string     `json:"search_id"`
	Location   string     `json:"location"`
	Filters    Filters    `json:"filters"`
	Source     string     `json:"source"`
	Properties []Property `json:"properties"`
	SearchedAt time.Time  `json:"searched_at"`
}
