// Command validate checks a JSON fixture of canonical properties against the
// record invariants every consumer relies on, and optionally against a filter
// set that every record must satisfy.
//
// Usage:
//
//	go run ./cmd/validate \
//	  -json data/mock/fallback_austin.json \
//	  -lat 30.2672 -lng -97.7431 -max-offset 0.05 \
//	  -min-price 200000
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"math"
	"os"

	"github.com/couchcryptid/realty-search-service/internal/domain"
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

type options struct {
	path      string
	center    *domain.LatLng
	maxOffset float64
	filters   domain.Filters
}

func main() {
	path := flag.String("json", "", "path to a JSON array of properties")
	lat := flag.Float64("lat", math.NaN(), "expected search center latitude")
	lng := flag.Float64("lng", math.NaN(), "expected search center longitude")
	maxOffset := flag.Float64("max-offset", domain.FallbackJitterDegrees, "max coordinate distance from the center, in degrees")
	minPrice := flag.Int("min-price", -1, "every record must cost at least this much")
	maxPrice := flag.Int("max-price", -1, "every record must cost at most this much")
	beds := flag.Int("bedrooms", -1, "every record must have at least this many bedrooms")
	baths := flag.Int("bathrooms", -1, "every record must have at least this many bathrooms")
	ptype := flag.String("type", "", "every record must have this property type")
	flag.Parse()

	if *path == "" {
		flag.Usage()
		os.Exit(1)
	}

	opts := options{path: *path, maxOffset: *maxOffset}
	if !math.IsNaN(*lat) && !math.IsNaN(*lng) {
		opts.center = &domain.LatLng{Lat: *lat, Lng: *lng}
	}
	opts.filters.MinPrice = optionalInt(*minPrice)
	opts.filters.MaxPrice = optionalInt(*maxPrice)
	opts.filters.Bedrooms = optionalInt(*beds)
	opts.filters.Bathrooms = optionalInt(*baths)
	if *ptype != "" {
		t := domain.PropertyType(*ptype)
		opts.filters.PropertyType = &t
	}

	if code := run(opts); code != 0 {
		os.Exit(code)
	}
}

func optionalInt(v int) *int {
	if v < 0 {
		return nil
	}
	return &v
}

func run(opts options) int {
	fmt.Println("=== Property Fixture Validation ===")
	fmt.Println()

	props, err := loadJSON[domain.Property](opts.path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load fixture: %v\n", err)
		return 1
	}

	phases := []*phase{
		validateRecords(props),
		validateCoordinates(props, opts.center, opts.maxOffset),
		validateUniqueIDs(props),
		validateFilters(props, opts.filters),
	}

	fmt.Println()
	allPassed := true
	for _, p := range phases {
		status := "PASS"
		if !p.passed() {
			status = "FAIL"
			allPassed = false
		}
		fmt.Printf("  %-42s %s\n", p.name, status)
	}
	fmt.Println()
	fmt.Printf("Records: %d\n", len(props))

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Println("\nAll validations passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

func loadJSON[T any](path string) ([]T, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var out []T
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return out, nil
}

func validateRecords(props []domain.Property) *phase {
	p := &phase{name: "Canonical record fields"}
	for i := range props {
		checkRecord(p, i, &props[i])
	}
	return p
}

func checkRecord(p *phase, i int, prop *domain.Property) {
	pf := func(format string, args ...any) {
		p.errorf("record %d (%s): "+format, append([]any{i, prop.ID}, args...)...)
	}
	if prop.ID == "" {
		pf("empty id")
	}
	if len(prop.Images) == 0 {
		pf("no images")
	}
	if !prop.PropertyType.Valid() {
		pf("unknown property type %q", prop.PropertyType)
	}
	if prop.Price < 0 {
		pf("negative price %d", prop.Price)
	}
	if prop.Garage < 0 {
		pf("negative garage %d", prop.Garage)
	}
	if prop.Bedrooms <= 0 || prop.Bathrooms <= 0 || prop.Sqft <= 0 {
		pf("non-positive beds/baths/sqft %d/%d/%d", prop.Bedrooms, prop.Bathrooms, prop.Sqft)
	}
	if prop.LotSize != nil && *prop.LotSize < 0 {
		pf("negative lot size %f", *prop.LotSize)
	}
	if prop.Address == "" {
		pf("empty address")
	}
}

func validateCoordinates(props []domain.Property, center *domain.LatLng, maxOffset float64) *phase {
	p := &phase{name: "Coordinates (lng, lat order and range)"}
	for i := range props {
		c := props[i].Coordinates
		if c.Lng() < -180 || c.Lng() > 180 || c.Lat() < -90 || c.Lat() > 90 {
			p.errorf("record %d (%s): coordinates out of range %v", i, props[i].ID, c)
			continue
		}
		if center == nil {
			continue
		}
		if math.Abs(c.Lat()-center.Lat) > maxOffset || math.Abs(c.Lng()-center.Lng) > maxOffset {
			p.errorf("record %d (%s): %v more than %.3f degrees from center %v", i, props[i].ID, c, maxOffset, center.LngLat())
		}
	}
	return p
}

func validateUniqueIDs(props []domain.Property) *phase {
	p := &phase{name: "Unique IDs"}
	seen := make(map[string]int, len(props))
	for i := range props {
		if prev, ok := seen[props[i].ID]; ok {
			p.errorf("records %d and %d share id %q", prev, i, props[i].ID)
			continue
		}
		seen[props[i].ID] = i
	}
	return p
}

func validateFilters(props []domain.Property, f domain.Filters) *phase {
	p := &phase{name: "Filter constraints"}
	for i := range props {
		if !f.Matches(props[i]) {
			p.errorf("record %d (%s): price=%d beds=%d baths=%d type=%s does not match filters",
				i, props[i].ID, props[i].Price, props[i].Bedrooms, props[i].Bathrooms, props[i].PropertyType)
		}
	}
	return p
}
