// Package domain provides the data model shared across the seeding pipeline:
// discovered observatories, their serialized forms, and the normalization
// helpers applied to raw Wikidata values.
package domain

import (
	"regexp"
	"strings"
)

const slugMaxLen = 50

var (
	slugInvalid  = regexp.MustCompile(`[^a-z0-9\s-]`)
	slugSpaces   = regexp.MustCompile(`[\s_]+`)
	slugDashes   = regexp.MustCompile(`-+`)
	nameSpecials = regexp.MustCompile(`[^a-z0-9\s]`)
	whitespace   = regexp.MustCompile(`\s+`)
)

// Observatory is an observatory discovered from Wikidata.
type Observatory struct {
	WikidataID    string   `json:"wikidata_id"`
	Name          string   `json:"name"`
	Latitude      float64  `json:"latitude"`
	Longitude     float64  `json:"longitude"`
	Elevation     *float64 `json:"elevation"`
	ElevationNote string   `json:"elevation_note"`
	Country       string   `json:"country"`
	ImageURL      string   `json:"image_url"`
	Website       string   `json:"website"`
	Phone         string   `json:"phone"`
}

// Slug generates a URL-friendly identifier from the name plus a wikidata_id
// suffix. The suffix prevents collisions for observatories with identical
// names at different sites (e.g. "Royal Observatory" in Greenwich vs
// Edinburgh). The slug is the join key between discovered.json, the
// per-observatory image directories, validation checkpoints, and the final
// output.
func (o Observatory) Slug() string {
	slug := strings.ToLower(o.Name)
	slug = slugInvalid.ReplaceAllString(slug, "")
	slug = slugSpaces.ReplaceAllString(slug, "-")
	slug = slugDashes.ReplaceAllString(slug, "-")
	slug = strings.Trim(slug, "-")
	if len(slug) > slugMaxLen {
		slug = slug[:slugMaxLen]
	}
	if o.WikidataID == "" {
		return slug
	}
	return slug + "-" + strings.ToLower(o.WikidataID)
}

// IsElevationValid reports whether the elevation is inside the plausible
// range. A missing elevation is valid.
func (o Observatory) IsElevationValid() bool {
	if o.Elevation == nil {
		return true
	}
	return *o.Elevation >= MinValidElevation && *o.Elevation <= MaxValidElevation
}

// TypeMetadata holds the optional contact metadata carried through the
// pipeline alongside coordinates.
type TypeMetadata struct {
	PhoneNumber  string `json:"phone_number,omitempty"`
	PhoneDisplay string `json:"phone_display,omitempty"`
	Website      string `json:"website,omitempty"`
}

// IsEmpty reports whether no metadata field is set.
func (m TypeMetadata) IsEmpty() bool {
	return m.PhoneNumber == "" && m.PhoneDisplay == "" && m.Website == ""
}

// BuildTypeMetadata assembles type metadata from the observatory's phone and
// website. The website is carried as-is; URL validation happens after dedupe
// so no effort is wasted on entries that get dropped. Returns nil when
// neither field yields anything.
func (o Observatory) BuildTypeMetadata() *TypeMetadata {
	md := TypeMetadata{}

	if o.Phone != "" {
		e164, display := NormalizePhone(o.Phone)
		if e164 != "" {
			md.PhoneNumber = e164
			md.PhoneDisplay = display
		}
	}
	if o.Website != "" {
		md.Website = o.Website
	}

	if md.IsEmpty() {
		return nil
	}
	return &md
}

// DiscoveredEntry is the serialized record written to discovered.json.
// Country and elevation are deliberately omitted: Mapbox enrichment
// re-derives them during seeding.
type DiscoveredEntry struct {
	WikidataID   string        `json:"wikidata_id"`
	Slug         string        `json:"slug"`
	Name         string        `json:"name"`
	Latitude     float64       `json:"latitude"`
	Longitude    float64       `json:"longitude"`
	ImageURL     string        `json:"image_url"`
	TypeMetadata *TypeMetadata `json:"type_metadata,omitempty"`
}

// Entry converts the observatory into its discovered.json form.
func (o Observatory) Entry() DiscoveredEntry {
	return DiscoveredEntry{
		WikidataID:   o.WikidataID,
		Slug:         o.Slug(),
		Name:         o.Name,
		Latitude:     o.Latitude,
		Longitude:    o.Longitude,
		ImageURL:     o.ImageURL,
		TypeMetadata: o.BuildTypeMetadata(),
	}
}

// ValidatedObservatory is the durable record stored in
// validated_observatories.json once an image has been accepted.
type ValidatedObservatory struct {
	Name         string        `json:"name"`
	Latitude     float64       `json:"latitude"`
	Longitude    float64       `json:"longitude"`
	ImageURL     string        `json:"image_url"`
	TypeMetadata *TypeMetadata `json:"type_metadata,omitempty"`
}

// NormalizeName normalizes an observatory name for deduplication:
// lowercased, special characters stripped, whitespace collapsed.
func NormalizeName(name string) string {
	n := strings.TrimSpace(strings.ToLower(name))
	n = nameSpecials.ReplaceAllString(n, "")
	return whitespace.ReplaceAllString(n, " ")
}
