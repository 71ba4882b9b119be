// Package domain models real-estate listings and the pure rules applied to
// them on the way from an upstream listing API to a consumer.
//
// # Coordinates
//
// Two orders are in use and must not be mixed:
//
//	LngLat  [lng, lat]  Property.Coordinates, as the map client expects
//	LatLng  {Lat, Lng}  geocoding and elevation lookups
//
// Convert with [LngLat.LatLng] and [LatLng.LngLat].
//
// # Normalization
//
// Upstream payloads vary by endpoint. [DecodeListings] runs an ordered list
// of [ShapeAdapter] functions (bare array, then objects wrapping the records
// under "comparables", "properties", "listings" or "data") and the first
// non-empty match wins. [NormalizeListing] then maps each record onto
// [Property], taking the first present field from a precedence chain:
//
//	id         id | propertyId | rm_<unixms>_<index>
//	price      price | listPrice | lastSalePrice | estimatedValue | 0
//	address    formattedAddress | address | addressLine1 | composed
//	bedrooms   bedrooms | beds | random 1..4
//	bathrooms  bathrooms | baths | random 1..3
//	sqft       squareFootage | livingArea | sqft | 1200
//	yearBuilt  yearBuilt | built | random 1990..2019
//	lotSize    lotSize / 43560 (acres) | null
//	garage     garageSpaces | garage | random 0..2
//
// Missing coordinates are placed within 0.1 degrees of the search center.
// Random defaults come from an injected [Random], so a fixed seed reproduces
// them.
//
// # Fallback data
//
// When upstream data is unavailable, [GenerateFallback] synthesizes 8 to 12
// listings within [FallbackJitterDegrees] of the search center. Filters are
// applied afterwards, exactly as for upstream results.
//
// # Elevation bands
//
// A property's elevation relative to its city center is clamped to ±200 ft
// and mapped onto five colors:
//
//	< -120 ft        deep blue   #0066CC
//	-120 to < -40    light blue  #3399FF
//	-40 to < 40      green       #00CC66
//	40 to < 120      orange      #FF9900
//	>= 120 ft        red         #CC0000
package domain
