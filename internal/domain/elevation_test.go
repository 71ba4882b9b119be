package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestColorForDiff(t *testing.T) {
	tests := []struct {
		diff float64
		want ElevationColor
	}{
		{0, ColorGreen},
		{250, ColorRed},
		{-250, ColorDeepBlue},
		{200, ColorRed},
		{-200, ColorDeepBlue},
		{-120.5, ColorDeepBlue},
		{-120, ColorLightBlue},
		{-40.5, ColorLightBlue},
		{-40, ColorGreen},
		{39.5, ColorGreen},
		{40, ColorOrange},
		{119.5, ColorOrange},
		{120, ColorRed},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, ColorForDiff(tt.diff), "diff=%v", tt.diff)
	}
}

func TestNeutralColor(t *testing.T) {
	assert.Equal(t, ColorGreen, NeutralColor)
}

func TestFormatElevation(t *testing.T) {
	m := func(v float64) *float64 { return &v }

	assert.Equal(t, "N/A", FormatElevation(nil))
	assert.Equal(t, "328 ft", FormatElevation(m(100)))
	assert.Equal(t, "0 ft", FormatElevation(m(0)))
	assert.Equal(t, "1,640 ft", FormatElevation(m(500)))
	assert.Equal(t, "-33 ft", FormatElevation(m(-10)))
}

func TestCityCenter(t *testing.T) {
	assert.Equal(t, LatLng{Lat: 29.7604, Lng: -95.3698}, CityCenter("Houston", "TX"))
	assert.Equal(t, LatLng{Lat: 29.4241, Lng: -98.4936}, CityCenter("san antonio", "tx"))
	assert.Equal(t, DefaultCenter, CityCenter("Austin", "TX"))
	assert.Equal(t, DefaultCenter, CityCenter("Boise", "ID"))
	assert.Equal(t, DefaultCenter, CityCenter("", ""))
}

func TestCoordinateOrder(t *testing.T) {
	c := LatLng{Lat: 30.2672, Lng: -97.7431}

	ll := c.LngLat()
	assert.Equal(t, -97.7431, ll.Lng())
	assert.Equal(t, 30.2672, ll.Lat())
	assert.Equal(t, LngLat{-97.7431, 30.2672}, ll)
	assert.Equal(t, c, ll.LatLng())
}

func TestRoundHalfUp(t *testing.T) {
	tests := map[float64]float64{
		-0.5: 0,
		-1.5: -1,
		0.5:  1,
		2.5:  3,
		-2.4: -2,
		-2.6: -3,
	}
	for in, want := range tests {
		assert.InDelta(t, want, roundHalfUp(in), 0, "roundHalfUp(%v)", in)
	}
}
