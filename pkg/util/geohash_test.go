package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEncodeGeohash(t *testing.T) {
	// Hyderabad, Banjara Hills
	hash := EncodeGeohash(17.4156, 78.4347, StoredGeohashPrecision)

	assert.Len(t, hash, StoredGeohashPrecision)
	assert.Equal(t, hash[:QueryGeohashPrecision], EncodeGeohash(17.4156, 78.4347, QueryGeohashPrecision))
}

func TestGeohashPrefixRange(t *testing.T) {
	start, end := GeohashPrefixRange(17.4156, 78.4347)

	assert.Len(t, start, QueryGeohashPrecision)
	assert.Equal(t, start+"~", end)

	stored := EncodeGeohash(17.4156, 78.4347, StoredGeohashPrecision)
	assert.True(t, stored >= start && stored < end)

	// a point in another cell sorts outside the range
	far := EncodeGeohash(12.9716, 77.5946, StoredGeohashPrecision)
	assert.False(t, far >= start && far < end)
}

func TestGeohashPrefixRange_SentinelSortsAfterAlphabet(t *testing.T) {
	for _, c := range "0123456789bcdefghjkmnpqrstuvwxyz" {
		assert.Less(t, "tdr1v"+string(c)+"zzz", "tdr1v~")
	}
}

func TestValidCoordinates(t *testing.T) {
	assert.True(t, ValidCoordinates(17.38, 78.48))
	assert.True(t, ValidCoordinates(-90, 180))
	assert.False(t, ValidCoordinates(91, 0))
	assert.False(t, ValidCoordinates(0, -181))
}
