package domain

import (
	"math"
	"strconv"
)

// Elevation bounds and conversion constants. Wikidata's P2044 property is
// nominally in meters, but contributor edits have populated it in feet often
// enough that plausible-range detection is safer than trusting the stated
// unit.
const (
	FeetToMeters = 0.3048
	// MinValidElevation allows Dead Sea area observatories.
	MinValidElevation = -500.0
	// MaxValidElevation is above Everest; anything higher is bad data or feet.
	MaxValidElevation = 9000.0
	// FeetThreshold marks values that are likely feet rather than meters.
	FeetThreshold = 9000.0
)

// Elevation notes attached by NormalizeElevation.
const (
	ElevationNoteMeters        = "meters"
	ElevationNoteConvertedFeet = "converted_from_feet"
	ElevationNoteCorrectedSign = "corrected_sign"
	ElevationNoteNone          = "no_elevation"
)

// NormalizeElevation normalizes a raw elevation value to meters, detecting
// and correcting likely feet values and inverted signs.
//
// Returns the normalized elevation (nil when the value is absent or cannot
// be salvaged) and a note describing what happened. An unsalvageable value
// is reported as "invalid_value_<raw>"; callers must treat that as "omit
// elevation", never as a fatal error.
func NormalizeElevation(raw *float64) (*float64, string) {
	if raw == nil {
		return nil, ElevationNoteNone
	}

	v := *raw

	// Within valid range, assume the stated unit (meters) is correct.
	if v >= MinValidElevation && v <= MaxValidElevation {
		return &v, ElevationNoteMeters
	}

	// Above the threshold the value is likely feet; accept the conversion
	// only if it lands in range.
	if v > FeetThreshold {
		converted := math.Round(v*FeetToMeters*10) / 10
		if converted >= MinValidElevation && converted <= MaxValidElevation {
			return &converted, ElevationNoteConvertedFeet
		}
	}

	// Very negative values are sometimes sign-inverted.
	if v < MinValidElevation {
		abs := math.Abs(v)
		if abs >= MinValidElevation && abs <= MaxValidElevation {
			return &abs, ElevationNoteCorrectedSign
		}
	}

	return nil, "invalid_value_" + strconv.FormatFloat(v, 'f', -1, 64)
}
