package domain

import (
	"math"
	"strings"
)

// MetersToFeet is the conversion factor applied to every elevation reading.
const MetersToFeet = 3.28084

// ElevationColor is the display band for a property's height relative to the
// city center.
type ElevationColor string

const (
	ColorDeepBlue  ElevationColor = "#0066CC"
	ColorLightBlue ElevationColor = "#3399FF"
	ColorGreen     ElevationColor = "#00CC66"
	ColorOrange    ElevationColor = "#FF9900"
	ColorRed       ElevationColor = "#CC0000"
)

// elevationSpanFeet bounds the relative difference before it is mapped onto
// the five bands.
const elevationSpanFeet = 200.0

// ColorForDiff maps a relative elevation difference in feet to a band. The
// difference is clamped to ±200 ft and scaled to [0,1]; band edges are at
// 0.2, 0.4, 0.6 and 0.8, each edge belonging to the higher band.
func ColorForDiff(diffFeet float64) ElevationColor {
	clamped := math.Max(-elevationSpanFeet, math.Min(elevationSpanFeet, diffFeet))
	position := (clamped + elevationSpanFeet) / (2 * elevationSpanFeet)
	switch {
	case position < 0.2:
		return ColorDeepBlue
	case position < 0.4:
		return ColorLightBlue
	case position < 0.6:
		return ColorGreen
	case position < 0.8:
		return ColorOrange
	default:
		return ColorRed
	}
}

// NeutralColor is assigned when a property's elevation is unknown.
var NeutralColor = ColorForDiff(0)

// ToFeet converts meters to feet.
func ToFeet(meters float64) float64 {
	return meters * MetersToFeet
}

// FormatElevation renders meters as rounded feet with thousands separators,
// or "N/A" when unknown.
func FormatElevation(meters *float64) string {
	if meters == nil {
		return "N/A"
	}
	return formatInt(int(roundHalfUp(ToFeet(*meters)))) + " ft"
}

// roundHalfUp rounds halves toward positive infinity, so -0.5 becomes 0.
func roundHalfUp(x float64) float64 {
	return math.Floor(x + 0.5)
}

// DefaultCenter is used when no city or location can be resolved.
var DefaultCenter = LatLng{Lat: 30.2672, Lng: -97.7431}

// cityCenters is keyed by "city, ST" in lower case.
var cityCenters = map[string]LatLng{
	"austin, tx":      DefaultCenter,
	"houston, tx":     {Lat: 29.7604, Lng: -95.3698},
	"dallas, tx":      {Lat: 32.7767, Lng: -96.7970},
	"san antonio, tx": {Lat: 29.4241, Lng: -98.4936},
}

// CityCenter returns the reference point for a city, falling back to Austin
// for unknown cities.
func CityCenter(city, state string) LatLng {
	key := strings.ToLower(strings.TrimSpace(city) + ", " + strings.TrimSpace(state))
	if c, ok := cityCenters[key]; ok {
		return c
	}
	return DefaultCenter
}
