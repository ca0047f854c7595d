// Package polyline implements Google's encoded polyline algorithm for
// compact transport of route geometry.
// See: https://developers.google.com/maps/documentation/utilities/polylinealgorithm
package polyline

import (
	"math"

	"github.com/ecodrive/ecodrive/internal/geo"
)

// Precision5 is the standard 1e5 precision used by most routing APIs.
const Precision5 = 1e5

// Encode encodes a path into a polyline string at precision 5.
func Encode(path []geo.Coordinate) string {
	return EncodeWithPrecision(path, Precision5)
}

// EncodeWithPrecision encodes a path at the given coordinate precision
// factor (1e5 or 1e6).
func EncodeWithPrecision(path []geo.Coordinate, factor float64) string {
	if len(path) == 0 {
		return ""
	}

	buf := make([]byte, 0, len(path)*4)
	prevLat, prevLon := 0, 0

	for _, p := range path {
		lat := int(math.Round(p.Lat * factor))
		lon := int(math.Round(p.Lon * factor))

		buf = appendValue(buf, lat-prevLat)
		buf = appendValue(buf, lon-prevLon)

		prevLat, prevLon = lat, lon
	}

	return string(buf)
}

// Decode decodes a polyline string at precision 5.
func Decode(encoded string) []geo.Coordinate {
	return DecodeWithPrecision(encoded, Precision5)
}

// DecodeWithPrecision decodes a polyline string at the given precision
// factor.
func DecodeWithPrecision(encoded string, factor float64) []geo.Coordinate {
	if encoded == "" {
		return nil
	}

	var path []geo.Coordinate
	lat, lon := 0, 0

	for i := 0; i < len(encoded); {
		var dLat, dLon int
		dLat, i = readValue(encoded, i)
		dLon, i = readValue(encoded, i)
		lat += dLat
		lon += dLon

		path = append(path, geo.Coordinate{
			Lat: float64(lat) / factor,
			Lon: float64(lon) / factor,
		})
	}

	return path
}

// appendValue appends one zig-zag encoded delta in 5-bit chunks.
func appendValue(buf []byte, v int) []byte {
	if v < 0 {
		v = ^(v << 1)
	} else {
		v <<= 1
	}

	for v >= 0x20 {
		buf = append(buf, byte((v&0x1f)|0x20)+63)
		v >>= 5
	}
	return append(buf, byte(v)+63)
}

// readValue reads one delta starting at index i, returning the value and the
// index past it.
func readValue(encoded string, i int) (int, int) {
	result, shift := 0, 0

	for i < len(encoded) {
		b := int(encoded[i]) - 63
		i++
		result |= (b & 0x1f) << shift
		shift += 5
		if b < 0x20 {
			break
		}
	}

	if result&1 != 0 {
		return ^(result >> 1), i
	}
	return result >> 1, i
}
