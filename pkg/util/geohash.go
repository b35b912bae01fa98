package util

import (
	"github.com/mmcloughlin/geohash"
)

const (
	// StoredGeohashPrecision is the length of the geohash persisted on a vendor.
	StoredGeohashPrecision = 9
	// QueryGeohashPrecision is the cell size (roughly 4.9km x 4.9km) used by
	// nearby search.
	QueryGeohashPrecision = 5

	// geohashRangeSentinel sorts after every base32 geohash character.
	geohashRangeSentinel = "~"
)

// EncodeGeohash encodes a point at the given precision.
func EncodeGeohash(lat, lng float64, precision uint) string {
	return geohash.EncodeWithPrecision(lat, lng, precision)
}

// GeohashPrefixRange returns the half-open range [start, end) that matches
// every geohash sharing the precision-5 cell of (lat, lng). Vendors just
// across a cell edge are not matched.
func GeohashPrefixRange(lat, lng float64) (start, end string) {
	start = EncodeGeohash(lat, lng, QueryGeohashPrecision)
	return start, start + geohashRangeSentinel
}

// ValidCoordinates reports whether lat/lng are within WGS84 bounds.
func ValidCoordinates(lat, lng float64) bool {
	return lat >= -90 && lat <= 90 && lng >= -180 && lng <= 180
}
