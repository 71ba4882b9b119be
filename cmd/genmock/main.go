// Command genmock writes a deterministic fallback listing fixture for a
// location. It uses the same domain generator the service falls back to, with
// a fixed seed and a frozen clock, so the output is stable across runs.
//
// Usage:
//
//	go run ./cmd/genmock \
//	  -location "Austin, TX" \
//	  -seed 42 \
//	  -out data/mock/fallback_austin.json
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/realty-search-service/internal/domain"
)

var frozenAt = time.Date(2026, time.April, 1, 12, 0, 0, 0, time.UTC)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	location := flag.String("location", "Austin, TX", "location text the fixture is generated for")
	seed := flag.Uint64("seed", 42, "random seed")
	lat := flag.Float64("lat", domain.DefaultCenter.Lat, "search center latitude")
	lng := flag.Float64("lng", domain.DefaultCenter.Lng, "search center longitude")
	out := flag.String("out", "", "output path for the JSON fixture")
	samples := flag.Bool("samples", false, "write the built-in sample set instead of generated data")
	flag.Parse()

	if *out == "" {
		flag.Usage()
		return fmt.Errorf("missing required flag: -out")
	}

	var props []domain.Property
	if *samples {
		props = domain.SampleProperties()
	} else {
		clock := clockwork.NewFakeClockAt(frozenAt)
		center := domain.LatLng{Lat: *lat, Lng: *lng}
		props = domain.GenerateFallback(center, *location, clock.Now(), domain.NewRandom(*seed))
	}

	if err := writeJSON(*out, props); err != nil {
		return fmt.Errorf("writing fixture: %w", err)
	}
	log.Printf("wrote fixture: %s (%d properties)", *out, len(props))

	printStats(props)
	return nil
}

func writeJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, 0o600)
}

type typeCount struct {
	t     domain.PropertyType
	count int
}

func printStats(props []domain.Property) {
	if len(props) == 0 {
		return
	}
	counts := map[domain.PropertyType]int{}
	minPrice, maxPrice := props[0].Price, props[0].Price
	for i := range props {
		counts[props[i].PropertyType]++
		minPrice = min(minPrice, props[i].Price)
		maxPrice = max(maxPrice, props[i].Price)
	}

	tc := make([]typeCount, 0, len(counts))
	for t, c := range counts {
		tc = append(tc, typeCount{t, c})
	}
	sort.Slice(tc, func(i, j int) bool { return tc[i].count > tc[j].count })

	fmt.Println("\n=== Stats for updating test assertions ===")
	fmt.Printf("Total: %d\n", len(props))
	fmt.Printf("Price range: %s to %s\n", domain.FormatPrice(minPrice), domain.FormatPrice(maxPrice))
	fmt.Print("By type:")
	for _, c := range tc {
		fmt.Printf(" %s=%d", c.t, c.count)
	}
	fmt.Println()
}
