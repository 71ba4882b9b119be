package domain

// UnboundedPrice is the "no maximum" sentinel some clients send for MaxPrice.
// It is never applied as a real bound.
const UnboundedPrice = 1<<53 - 1

// Filters narrows a search. A nil field imposes no constraint.
type Filters struct {
	MinPrice     *int          `json:"minPrice,omitempty"`
	MaxPrice     *int          `json:"maxPrice,omitempty"`
	PropertyType *PropertyType `json:"propertyType,omitempty"`
	Bedrooms     *int          `json:"bedrooms,omitempty"` // minimum
	Bathrooms    *int          `json:"bathrooms,omitempty"`
}

// Matches reports whether p satisfies every constraint in f.
func (f Filters) Matches(p Property) bool {
	if f.MinPrice != nil && p.Price < *f.MinPrice {
		return false
	}
	if f.MaxPrice != nil && *f.MaxPrice != UnboundedPrice && p.Price > *f.MaxPrice {
		return false
	}
	if f.PropertyType != nil && *f.PropertyType != "" && p.PropertyType != *f.PropertyType {
		return false
	}
	if f.Bedrooms != nil && p.Bedrooms < *f.Bedrooms {
		return false
	}
	if f.Bathrooms != nil && p.Bathrooms < *f.Bathrooms {
		return false
	}
	return true
}

// Apply returns the properties that satisfy f, preserving order.
func (f Filters) Apply(props []Property) []Property {
	out := make([]Property, 0, len(props))
	for i := range props {
		if f.Matches(props[i]) {
			out = append(out, props[i])
		}
	}
	return out
}

// PriceBounds returns the price range to forward upstream. A bound is omitted
// when unset or when it is the unbounded sentinel.
func (f Filters) PriceBounds() (minPrice int, hasMin bool, maxPrice int, hasMax bool) {
	if f.MinPrice != nil {
		minPrice, hasMin = *f.MinPrice, true
	}
	if f.MaxPrice != nil && *f.MaxPrice != UnboundedPrice {
		maxPrice, hasMax = *f.MaxPrice, true
	}
	return minPrice, hasMin, maxPrice, hasMax
}

// ListingQuery describes an upstream radius search around a center point.
type ListingQuery struct {
	Center      LatLng
	RadiusMiles float64
	Limit       int
	Filters     Filters
}
