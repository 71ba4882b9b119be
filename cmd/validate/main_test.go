package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/realty-search-service/internal/domain"
)

func generated(t *testing.T) []domain.Property {
	t.Helper()
	now := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)
	return domain.GenerateFallback(domain.DefaultCenter, "Austin, TX", now, domain.NewRandom(42))
}

func TestValidate_GeneratedFixturePasses(t *testing.T) {
	props := generated(t)
	center := domain.DefaultCenter

	assert.True(t, validateRecords(props).passed())
	assert.True(t, validateCoordinates(props, &center, domain.FallbackJitterDegrees).passed())
	assert.True(t, validateUniqueIDs(props).passed())
	assert.True(t, validateFilters(props, domain.Filters{}).passed())
}

func TestValidate_SamplesPass(t *testing.T) {
	props := domain.SampleProperties()
	assert.True(t, validateRecords(props).passed())
	assert.True(t, validateUniqueIDs(props).passed())
}

func TestValidate_DetectsViolations(t *testing.T) {
	props := domain.SampleProperties()[:2]
	props[0].Images = nil
	props[0].PropertyType = "castle"
	props[1].ID = props[0].ID
	props[1].Coordinates = domain.LngLat{30.2, -97.7} // swapped order

	rec := validateRecords(props)
	assert.Len(t, rec.errors, 2)
	assert.False(t, validateUniqueIDs(props).passed())
	assert.False(t, validateCoordinates(props, nil, 0).passed())

	minPrice := 400000
	assert.Len(t, validateFilters(props, domain.Filters{MinPrice: &minPrice}).errors, 1)
}

func TestRun_ExitCodes(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "good.json")
	data, err := json.Marshal(generated(t))
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(good, data, 0o600))

	assert.Equal(t, 0, run(options{path: good, center: &domain.DefaultCenter, maxOffset: domain.FallbackJitterDegrees}))

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`[{"id":"x","price":-1}]`), 0o600))
	assert.Equal(t, 1, run(options{path: bad}))

	assert.Equal(t, 1, run(options{path: filepath.Join(dir, "missing.json")}))
}
