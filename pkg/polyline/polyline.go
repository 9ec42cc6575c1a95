// Package polyline encodes and decodes route geometry in the Google polyline format
// used by OSRM (precision 5, or 6 with geometries=polyline6).
package polyline

import (
	"errors"
	"math"

	"github.com/umahmood/haversine"
)

// Supported precisions.
const (
	Precision5 = 5
	Precision6 = 6
)

// ErrMalformed is returned when the encoded string ends mid-value or has an odd
// number of values.
var ErrMalformed = errors.New("malformed polyline")

// Coordinate represents a geographic point with latitude and longitude.
type Coordinate struct {
	Lat float64
	Lon float64
}

func factor(precision int) float64 {
	if precision <= 0 {
		precision = Precision5
	}
	return math.Pow10(precision)
}

// Decode decodes a polyline-encoded string at the given precision.
func Decode(encoded string, precision int) ([]Coordinate, error) {
	if encoded == "" {
		return nil, nil
	}

	f := factor(precision)
	coords := make([]Coordinate, 0, len(encoded)/4)
	index, lat, lon := 0, 0, 0

	for index < len(encoded) {
		latDelta, next, ok := decodeValue(encoded, index)
		if !ok {
			return nil, ErrMalformed
		}
		lonDelta, next, ok := decodeValue(encoded, next)
		if !ok {
			return nil, ErrMalformed
		}
		index = next
		lat += latDelta
		lon += lonDelta

		coords = append(coords, Coordinate{Lat: float64(lat) / f, Lon: float64(lon) / f})
	}

	return coords, nil
}

// decodeValue reads one zig-zag varint starting at index. ok is false when the
// input ends before the value terminates.
func decodeValue(encoded string, index int) (value, next int, ok bool) {
	shift, result := 0, 0

	for index < len(encoded) {
		b := int(encoded[index]) - 63
		index++
		if b < 0 || b > 63 {
			return 0, index, false
		}
		result |= (b & 0x1f) << shift
		shift += 5
		if b < 0x20 {
			if result&1 != 0 {
				return ^(result >> 1), index, true
			}
			return result >> 1, index, true
		}
	}
	return 0, index, false
}

// Encode encodes coordinates at the given precision.
func Encode(coords []Coordinate, precision int) string {
	if len(coords) == 0 {
		return ""
	}

	f := factor(precision)
	encoded := make([]byte, 0, len(coords)*6)
	prevLat, prevLon := 0, 0

	for _, c := range coords {
		lat := int(math.Round(c.Lat * f))
		lon := int(math.Round(c.Lon * f))

		encoded = encodeValue(encoded, lat-prevLat)
		encoded = encodeValue(encoded, lon-prevLon)

		prevLat, prevLon = lat, lon
	}

	return string(encoded)
}

func encodeValue(buf []byte, value int) []byte {
	if value < 0 {
		value = ^(value << 1)
	} else {
		value <<= 1
	}

	for value >= 0x20 {
		buf = append(buf, byte((value&0x1f)|0x20)+63)
		value >>= 5
	}
	return append(buf, byte(value)+63)
}

// Distance returns the great-circle distance between two points in meters.
func Distance(a, b Coordinate) float64 {
	_, km := haversine.Distance(
		haversine.Coord{Lat: a.Lat, Lon: a.Lon},
		haversine.Coord{Lat: b.Lat, Lon: b.Lon},
	)
	return km * 1000
}

// Length returns the total length of a path in meters.
func Length(coords []Coordinate) float64 {
	var total float64
	for i := 1; i < len(coords); i++ {
		total += Distance(coords[i-1], coords[i])
	}
	return total
}
