package domain

import (
	"fmt"
	"strings"
	"time"
)

// FallbackJitterDegrees is the maximum offset, on each axis, of a generated
// property from the search center (roughly a five-mile box).
const FallbackJitterDegrees = 0.05

// Fallback set size bounds, inclusive.
const (
	MinFallbackProperties = 8
	MaxFallbackProperties = 12
)

var streetNames = []string{
	"Main St", "Oak Ave", "Pine Dr", "Maple Ln", "Cedar Blvd",
	"Elm St", "Park Ave", "First St", "Second Ave", "River Rd",
}

// weightedTypes favours single family three to one.
var weightedTypes = []PropertyType{SingleFamily, Condo, Townhouse, SingleFamily, SingleFamily}

// GenerateFallback synthesizes a plausible listing set around center for use
// when upstream data is unavailable. Filters are not applied here.
func GenerateFallback(center LatLng, location string, now time.Time, rnd *Random) []Property {
	city := cityFromLocation(location)
	state := stateFromLocation(location)
	n := rnd.Between(MinFallbackProperties, MaxFallbackProperties+1)

	props := make([]Property, 0, n)
	for i := range n {
		latOffset := (rnd.Float64() - 0.5) * 2 * FallbackJitterDegrees
		lngOffset := (rnd.Float64() - 0.5) * 2 * FallbackJitterDegrees
		zip := fmt.Sprintf("%d", rnd.Between(10000, 100000))
		lot := rnd.Float64()*0.8 + 0.1

		props = append(props, Property{
			ID:            fmt.Sprintf("fallback_%d_%d", now.UnixMilli(), i),
			Price:         rnd.Between(200000, 1000000),
			Address:       fmt.Sprintf("%d %s, %s, %s %s", rnd.Between(1, 10000), Pick(rnd, streetNames), city, state, zip),
			City:          city,
			State:         state,
			ZipCode:       zip,
			Bedrooms:      rnd.Between(1, 5),
			Bathrooms:     rnd.Between(1, 4),
			Sqft:          rnd.Between(800, 3300),
			PropertyType:  Pick(rnd, weightedTypes),
			ListingStatus: "active",
			Coordinates:   LngLat{center.Lng + lngOffset, center.Lat + latOffset},
			Images:        []string{Pick(rnd, StockImages)},
			Description:   fmt.Sprintf("Beautiful property in %s with modern amenities and great location.", city),
			YearBuilt:     rnd.Between(1990, 2020),
			LotSize:       &lot,
			Garage:        rnd.IntN(3),
		})
	}
	return props
}

func cityFromLocation(location string) string {
	city, _, _ := strings.Cut(location, ",")
	return strings.TrimSpace(city)
}

// stateFromLocation takes the first token after the first comma when it is a
// two-letter code, defaulting to TX.
func stateFromLocation(location string) string {
	_, rest, ok := strings.Cut(location, ",")
	if !ok {
		return "TX"
	}
	fields := strings.Fields(rest)
	if len(fields) > 0 && len(fields[0]) == 2 {
		return strings.ToUpper(fields[0])
	}
	return "TX"
}

func ptr[T any](v T) *T { return &v }

// SampleProperties returns the fixed Austin sample set used to resolve
// lookups by ID when upstream is unavailable. Each call returns a fresh copy.
func SampleProperties() []Property {
	return []Property{
		{
			ID: "1", Price: 450000, Address: "123 Main St, Austin, TX 78701",
			City: "Austin", State: "TX", ZipCode: "78701",
			Bedrooms: 3, Bathrooms: 2, Sqft: 1800,
			PropertyType: SingleFamily, ListingStatus: "active",
			Coordinates: LngLat{-97.7431, 30.2672},
			Images:      []string{StockImages[0]},
			Description: "Beautiful single-family home in downtown Austin with modern amenities.",
			YearBuilt:   2015, LotSize: ptr(0.25), Garage: 2,
		},
		{
			ID: "2", Price: 325000, Address: "456 Oak Ave, Austin, TX 78704",
			City: "Austin", State: "TX", ZipCode: "78704",
			Bedrooms: 2, Bathrooms: 2, Sqft: 1200,
			PropertyType: Condo, ListingStatus: "active",
			Coordinates: LngLat{-97.7594, 30.2500},
			Images:      []string{StockImages[1]},
			Description: "Modern condo with city views and luxury finishes.",
			YearBuilt:   2020, Garage: 1,
		},
		{
			ID: "3", Price: 675000, Address: "789 Hill Dr, Austin, TX 78731",
			City: "Austin", State: "TX", ZipCode: "78731",
			Bedrooms: 4, Bathrooms: 3, Sqft: 2800,
			PropertyType: SingleFamily, ListingStatus: "active",
			Coordinates: LngLat{-97.7880, 30.3072},
			Images:      []string{StockImages[2]},
			Description: "Spacious family home with pool and large backyard.",
			YearBuilt:   2010, LotSize: ptr(0.5), Garage: 3,
		},
		{
			ID: "4", Price: 285000, Address: "321 Pine St, Austin, TX 78702",
			City: "Austin", State: "TX", ZipCode: "78702",
			Bedrooms: 2, Bathrooms: 1, Sqft: 950,
			PropertyType: Townhouse, ListingStatus: "active",
			Coordinates: LngLat{-97.7073, 30.2590},
			Images:      []string{StockImages[3]},
			Description: "Charming townhouse in historic East Austin neighborhood.",
			YearBuilt:   1995, LotSize: ptr(0.1), Garage: 1,
		},
		{
			ID: "5", Price: 850000, Address: "567 River Rd, Austin, TX 78746",
			City: "Austin", State: "TX", ZipCode: "78746",
			Bedrooms: 5, Bathrooms: 4, Sqft: 3500,
			PropertyType: SingleFamily, ListingStatus: "active",
			Coordinates: LngLat{-97.8206, 30.2849},
			Images:      []string{StockImages[4]},
			Description: "Luxury home with waterfront views and premium finishes.",
			YearBuilt:   2018, LotSize: ptr(0.75), Garage: 3,
		},
	}
}
