package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// SqftPerAcre converts upstream lot sizes (square feet) to acres.
const SqftPerAcre = 43560

// DefaultSqft is used when upstream omits living area.
const DefaultSqft = 1200

// maxIntValue bounds numeric fields converted to int; larger magnitudes are
// treated as missing.
const maxIntValue = 1e12

// StockImages is the pool used when a listing carries no photos.
var StockImages = []string{
	"https://images.unsplash.com/photo-1568605114967-8130f3a36994?w=600&h=400&fit=crop",
	"https://images.unsplash.com/photo-1560448204-e02f11c3d0e2?w=600&h=400&fit=crop",
	"https://images.unsplash.com/photo-1570129477492-45c003edd2be?w=600&h=400&fit=crop",
	"https://images.unsplash.com/photo-1516455590571-18256e5bb9ff?w=600&h=400&fit=crop",
	"https://images.unsplash.com/photo-1512917774080-9991f1c4c750?w=600&h=400&fit=crop",
}

// propertyTypes maps lower-cased upstream labels to canonical types.
var propertyTypes = map[string]PropertyType{
	"single family": SingleFamily,
	"single_family": SingleFamily,
	"single-family": SingleFamily,
	"condo":         Condo,
	"condominium":   Condo,
	"townhouse":     Townhouse,
	"townhome":      Townhouse,
	"multi family":  MultiFamily,
	"multi_family":  MultiFamily,
	"multi-family":  MultiFamily,
	"apartment":     MultiFamily,
}

// NormalizePropertyType maps a free-text upstream label onto a canonical type,
// defaulting to single family.
func NormalizePropertyType(label string) PropertyType {
	if t, ok := propertyTypes[strings.ToLower(strings.TrimSpace(label))]; ok {
		return t
	}
	return SingleFamily
}

// RawListing is one upstream record decoded without a fixed schema.
type RawListing map[string]any

// ShapeAdapter extracts records from one known payload shape. It reports
// ok=false when the payload is not in that shape.
type ShapeAdapter func(payload any) (records []RawListing, ok bool)

// ListingShapes are the search payload shapes, tried in order.
var ListingShapes = []ShapeAdapter{
	BareArray,
	WrappedUnder("comparables"),
	WrappedUnder("properties"),
	WrappedUnder("listings"),
	WrappedUnder("data"),
}

// DetailShapes additionally accept a single bare object.
var DetailShapes = []ShapeAdapter{
	BareObject,
	BareArray,
	WrappedUnder("property"),
	WrappedUnder("properties"),
	WrappedUnder("data"),
}

// BareArray matches a top-level JSON array of objects.
func BareArray(payload any) ([]RawListing, bool) {
	arr, ok := payload.([]any)
	if !ok {
		return nil, false
	}
	return objects(arr), true
}

// WrappedUnder matches an object holding the records under key. The value may
// be an array or a single object.
func WrappedUnder(key string) ShapeAdapter {
	return func(payload any) ([]RawListing, bool) {
		obj, ok := payload.(map[string]any)
		if !ok {
			return nil, false
		}
		switch v := obj[key].(type) {
		case []any:
			return objects(v), true
		case map[string]any:
			return []RawListing{v}, true
		default:
			return nil, false
		}
	}
}

// BareObject matches a single listing object identified by one of its usual keys.
func BareObject(payload any) ([]RawListing, bool) {
	obj, ok := payload.(map[string]any)
	if !ok {
		return nil, false
	}
	for _, k := range []string{"id", "propertyId", "formattedAddress", "price"} {
		if _, present := obj[k]; present {
			return []RawListing{obj}, true
		}
	}
	return nil, false
}

func objects(arr []any) []RawListing {
	out := make([]RawListing, 0, len(arr))
	for _, el := range arr {
		if m, ok := el.(map[string]any); ok {
			out = append(out, m)
		}
	}
	return out
}

// DecodeListings parses body and runs shapes in order, returning the first
// non-empty record set. It returns ErrNoResults when a shape matched but held
// nothing, and ErrShapeMismatch when no shape matched.
func DecodeListings(body []byte, shapes []ShapeAdapter) ([]RawListing, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var payload any
	if err := dec.Decode(&payload); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrShapeMismatch, err)
	}

	matched := false
	for _, shape := range shapes {
		records, ok := shape(payload)
		if !ok {
			continue
		}
		matched = true
		if len(records) > 0 {
			return records, nil
		}
	}
	if matched {
		return nil, ErrNoResults
	}
	return nil, ErrShapeMismatch
}

// NormalizeContext supplies what normalization needs to default missing fields.
type NormalizeContext struct {
	Center LatLng // search center, used when a record has no coordinates
	Now    time.Time
	Rand   *Random
}

// NormalizeListing converts a raw upstream record into a canonical Property.
// Each field prefers the explicit upstream field, then its aliases, then a
// default (fixed or drawn from nc.Rand).
func NormalizeListing(raw RawListing, index int, nc NormalizeContext) Property {
	id := raw.str("id", "propertyId")
	if id == "" {
		id = fmt.Sprintf("rm_%d_%d", nc.Now.UnixMilli(), index)
	}

	beds := raw.positiveIntOr(func() int { return nc.Rand.Between(1, 5) }, "bedrooms", "beds")
	baths := raw.positiveIntOr(func() int { return nc.Rand.Between(1, 4) }, "bathrooms", "baths")
	ptype := NormalizePropertyType(raw.str("propertyType", "type"))
	city := raw.str("city")

	p := Property{
		ID:            id,
		Price:         raw.intOr(func() int { return 0 }, "price", "listPrice", "lastSalePrice", "estimatedValue"),
		Address:       raw.address(),
		City:          city,
		State:         raw.str("state"),
		ZipCode:       raw.str("zipCode", "zip"),
		Bedrooms:      beds,
		Bathrooms:     baths,
		Sqft:          raw.positiveIntOr(func() int { return DefaultSqft }, "squareFootage", "livingArea", "sqft"),
		PropertyType:  ptype,
		ListingStatus: strings.ToLower(raw.str("status", "listingStatus")),
		Coordinates:   raw.coordinates(nc),
		Images:        raw.images(index),
		Description:   raw.str("description"),
		YearBuilt:     raw.positiveIntOr(func() int { return nc.Rand.Between(1990, 2020) }, "yearBuilt", "built"),
	}
	if p.Price < 0 {
		p.Price = 0
	}
	if p.ListingStatus == "" {
		p.ListingStatus = "active"
	}
	if p.Description == "" {
		p.Description = describe(beds, baths, ptype, city)
	}
	if lot, ok := raw.num("lotSize", "lotSizeSqft"); ok && lot > 0 {
		acres := lot / SqftPerAcre
		p.LotSize = &acres
	}
	if g, ok := raw.present("garageSpaces", "garage"); ok && g >= 0 && g <= maxIntValue {
		p.Garage = int(math.Round(g))
	} else {
		p.Garage = nc.Rand.IntN(3)
	}
	return p
}

func describe(beds, baths int, t PropertyType, city string) string {
	if city == "" {
		city = "the area"
	}
	return fmt.Sprintf("%d bedroom, %d bathroom %s located in %s. This property offers great potential and is conveniently located.",
		beds, baths, strings.ReplaceAll(string(t), "_", " "), city)
}

func (r RawListing) address() string {
	if a := r.str("formattedAddress", "address", "addressLine1"); a != "" {
		return a
	}
	street := r.str("streetAddress")
	city := r.str("city")
	region := strings.TrimSpace(r.str("state") + " " + r.str("zipCode", "zip"))

	var parts []string
	if line := strings.TrimSpace(street + " " + city); line != "" {
		parts = append(parts, line)
	}
	if region != "" {
		parts = append(parts, region)
	}
	return strings.Join(parts, ", ")
}

func (r RawListing) coordinates(nc NormalizeContext) LngLat {
	lng, okLng := r.num("longitude", "lng", "lon")
	lat, okLat := r.num("latitude", "lat")
	if okLng && math.Abs(lng) > 180 {
		okLng = false
	}
	if okLat && math.Abs(lat) > 90 {
		okLat = false
	}
	if !okLng {
		lng = nc.Center.Lng + nc.Rand.Float64()*0.2 - 0.1
	}
	if !okLat {
		lat = nc.Center.Lat + nc.Rand.Float64()*0.2 - 0.1
	}
	return LngLat{lng, lat}
}

func (r RawListing) images(index int) []string {
	if photos, ok := r["photos"].([]any); ok {
		var out []string
		for _, ph := range photos {
			switch v := ph.(type) {
			case string:
				if v != "" {
					out = append(out, v)
				}
			case map[string]any:
				if u := RawListing(v).str("href", "url"); u != "" {
					out = append(out, u)
				}
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	if imgs, ok := r["images"].([]any); ok {
		var out []string
		for _, im := range imgs {
			if s, ok := im.(string); ok && s != "" {
				out = append(out, s)
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	if u := r.str("imageUrl"); u != "" {
		return []string{u}
	}
	return []string{StockImages[index%len(StockImages)]}
}

// str returns the first non-empty string (or number rendered as text) under keys.
func (r RawListing) str(keys ...string) string {
	for _, k := range keys {
		switch v := r[k].(type) {
		case string:
			if s := strings.TrimSpace(v); s != "" {
				return s
			}
		case json.Number:
			return v.String()
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64)
		}
	}
	return ""
}

// num returns the first non-zero numeric value under keys. Numeric strings
// are accepted.
func (r RawListing) num(keys ...string) (float64, bool) {
	for _, k := range keys {
		if v, ok := toFloat(r[k]); ok && v != 0 {
			return v, true
		}
	}
	return 0, false
}

// present is like num but accepts zero.
func (r RawListing) present(keys ...string) (float64, bool) {
	for _, k := range keys {
		if v, ok := toFloat(r[k]); ok {
			return v, true
		}
	}
	return 0, false
}

func (r RawListing) intOr(def func() int, keys ...string) int {
	if v, ok := r.num(keys...); ok && math.Abs(v) <= maxIntValue {
		return int(math.Round(v))
	}
	return def()
}

// positiveIntOr is like intOr but skips values that do not round to at
// least 1, so zero or negative counts fall through to the next alias.
func (r RawListing) positiveIntOr(def func() int, keys ...string) int {
	for _, k := range keys {
		if v, ok := toFloat(r[k]); ok && v >= 0.5 && v <= maxIntValue {
			return int(math.Round(v))
		}
	}
	return def()
}

// toFloat accepts JSON numbers and numeric strings. NaN and infinities are
// rejected so they never reach a marshaled record.
func toFloat(v any) (float64, bool) {
	f, ok := rawFloat(v)
	if !ok || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func rawFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case float64:
		return n, true
	case int:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	default:
		return 0, false
	}
}
