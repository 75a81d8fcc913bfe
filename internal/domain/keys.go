package domain

import "math"

// Two deliberately different coarseness levels are used for "duplicate"
// geographic keys. Discovery-time dedupe only has to avoid wasting
// validation work, so a cheap ~1.1km grid (2 decimals, coordinates only) is
// enough. Merge-time dedupe runs after costly human/AI confirmation and
// must not collapse genuinely different observatories, so it uses a finer
// ~111m grid (3 decimals) plus the normalized name.

// CoordKey is the coarse coordinate-only key used during discovery dedupe.
type CoordKey struct {
	Lat float64
	Lon float64
}

// CoarseCoordKey builds the 2-decimal discovery dedupe key.
func CoarseCoordKey(lat, lon float64) CoordKey {
	return CoordKey{
		Lat: math.Round(lat*100) / 100,
		Lon: math.Round(lon*100) / 100,
	}
}

// MergeKey identifies an observatory in the durable output file.
type MergeKey struct {
	Lat  float64
	Lon  float64
	Name string
}

// truncateCoord truncates (not rounds) a coordinate to three decimals so the
// same entry always produces the same key regardless of float formatting.
func truncateCoord(v float64) float64 {
	return math.Trunc(v*1000) / 1000
}

// MergeDedupeKey builds the merge-time key: truncated 3-decimal coordinates
// plus normalized name. This catches the same location under different
// names and the same name at the same location, while allowing the same
// name at different locations.
func MergeDedupeKey(lat, lon float64, name string) MergeKey {
	return MergeKey{
		Lat:  truncateCoord(lat),
		Lon:  truncateCoord(lon),
		Name: NormalizeName(name),
	}
}
