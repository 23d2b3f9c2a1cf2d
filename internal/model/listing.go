package model

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Listing field keys as returned by the listing-search tool
const (
	FieldBlock       = "block"
	FieldStreetName  = "street_name"
	FieldResalePrice = "resale_price"
	FieldLat         = "lat"
	FieldLon         = "lon"
)

// Enrichment field keys attached by the proximity enricher
const (
	FieldNearestStation    = "nearest_station"
	FieldDistanceRaw       = "distance_raw"
	FieldDistanceFormatted = "distance_formatted"
	FieldDistanceUnit      = "distance_unit"
)

// Listing is a flat resale record. It is kept as an open mapping so that
// columns the upstream service adds pass through untouched.
type Listing map[string]any

// Clone returns a shallow copy of the listing
func (l Listing) Clone() Listing {
	out := make(Listing, len(l)+4)
	for k, v := range l {
		out[k] = v
	}
	return out
}

// Text returns the value at key rendered as text, or "" when absent
func (l Listing) Text(key string) string {
	switch v := l[key].(type) {
	case nil:
		return ""
	case string:
		return v
	case json.Number:
		return v.String()
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return ""
		}
		return string(b)
	}
}

// Float returns the numeric value at key. Numeric strings are accepted.
func (l Listing) Float(key string) (float64, bool) {
	return ToFloat(l[key])
}

// Coordinates returns the (lat, lon) pair when both are present and finite
func (l Listing) Coordinates() (lat, lon float64, ok bool) {
	lat, okLat := l.Float(FieldLat)
	lon, okLon := l.Float(FieldLon)
	return lat, lon, okLat && okLon && finite(lat) && finite(lon)
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// Identity is block + street, used to match enriched rows to their source
func (l Listing) Identity() string {
	return l.Text(FieldBlock) + " " + l.Text(FieldStreetName)
}

// ToFloat converts JSON-ish numeric values to float64
func ToFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	default:
		return 0, false
	}
}
