package geo

import (
	"regexp"
	"strings"
)

// Address is a best-effort structured view of a free-form location string.
type Address struct {
	Raw     string `json:"raw"`
	Street  string `json:"street,omitempty"`
	City    string `json:"city,omitempty"`
	Region  string `json:"region,omitempty"`
	Postal  string `json:"postal,omitempty"`
	Country string `json:"country,omitempty"`
}

var (
	usZipRegex      = regexp.MustCompile(`\b\d{5}(?:-\d{4})?\b`)
	caPostalRegex   = regexp.MustCompile(`(?i)\b[ABCEGHJ-NPRSTVXY]\d[ABCEGHJ-NPRSTV-Z][ -]?\d[ABCEGHJ-NPRSTV-Z]\d\b`)
	ukPostcodeRegex = regexp.MustCompile(`(?i)\b[A-Z]{1,2}\d[A-Z\d]?\s+\d[A-Z]{2}\b`)
	spaceRegex      = regexp.MustCompile(`\s+`)
)

// cityCorrections maps normalized spellings to canonical city names for
// multi-word and diacritic names geocoders are picky about.
var cityCorrections = map[string]string{
	"st louis":       "St. Louis",
	"saint louis":    "St. Louis",
	"st. louis":      "St. Louis",
	"st paul":        "St. Paul",
	"saint paul":     "St. Paul",
	"st. paul":       "St. Paul",
	"st petersburg":  "St. Petersburg",
	"ft worth":       "Fort Worth",
	"ft. worth":      "Fort Worth",
	"ft lauderdale":  "Fort Lauderdale",
	"ft. lauderdale": "Fort Lauderdale",
	"nyc":            "New York",
	"new york city":  "New York",
	"la":             "Los Angeles",
	"philly":         "Philadelphia",
	"sf":             "San Francisco",
	"slc":            "Salt Lake City",
	"montreal":       "Montréal",
	"quebec city":    "Québec",
	"san jose":       "San José",
	"albuquerque":    "Albuquerque",
	"las cruces":     "Las Cruces",
	"winston salem":  "Winston-Salem",
	"wilkes barre":   "Wilkes-Barre",
}

// Normalize lowercases, trims and collapses whitespace and stray
// punctuation so equivalent spellings share one cache key.
func Normalize(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.Trim(s, " ,.;")
	s = strings.ReplaceAll(s, " ,", ",")
	s = spaceRegex.ReplaceAllString(s, " ")
	return s
}

// ParseAddress splits a location string into components. It never fails;
// unrecognized input ends up in City or Street.
func ParseAddress(raw string) Address {
	a := Address{Raw: raw}
	var segs []string
	for _, s := range strings.Split(raw, ",") {
		s = strings.TrimSpace(spaceRegex.ReplaceAllString(s, " "))
		if s != "" {
			segs = append(segs, s)
		}
	}
	if len(segs) == 0 {
		return a
	}

	// Country
	if c, ok := countryTokens[strings.ToLower(segs[len(segs)-1])]; ok && len(segs) > 1 {
		a.Country = c
		segs = segs[:len(segs)-1]
	}

	// Postal code, either its own segment or embedded in the last one.
	last := segs[len(segs)-1]
	if postal, rest, country := extractPostal(last); postal != "" {
		a.Postal = postal
		if a.Country == "" {
			a.Country = country
		}
		if rest == "" {
			segs = segs[:len(segs)-1]
		} else {
			segs[len(segs)-1] = rest
		}
	}

	// Region: a whole segment, or a trailing token like "Austin TX".
	if len(segs) > 1 {
		if code, country, ok := lookupRegion(segs[len(segs)-1], a.Country); ok {
			a.Region = code
			if a.Country == "" {
				a.Country = country
			}
			segs = segs[:len(segs)-1]
		}
	}
	if a.Region == "" && len(segs) > 0 {
		last = segs[len(segs)-1]
		if i := strings.LastIndex(last, " "); i > 0 {
			if code, country, ok := lookupRegion(last[i+1:], a.Country); ok {
				a.Region = code
				if a.Country == "" {
					a.Country = country
				}
				segs[len(segs)-1] = strings.TrimSpace(last[:i])
			}
		}
	}

	if len(segs) > 0 {
		a.City = correctCity(segs[len(segs)-1])
		segs = segs[:len(segs)-1]
	}
	if len(segs) > 0 {
		a.Street = strings.Join(segs, ", ")
	}
	return a
}

func extractPostal(seg string) (postal, rest, country string) {
	for _, m := range []struct {
		re      *regexp.Regexp
		country string
	}{
		{usZipRegex, "US"},
		{caPostalRegex, "CA"},
		{ukPostcodeRegex, "GB"},
	} {
		loc := m.re.FindStringIndex(seg)
		if loc == nil {
			continue
		}
		postal = strings.ToUpper(seg[loc[0]:loc[1]])
		rest = strings.TrimSpace(seg[:loc[0]] + " " + seg[loc[1]:])
		rest = strings.TrimSpace(spaceRegex.ReplaceAllString(rest, " "))
		return postal, rest, m.country
	}
	return "", seg, ""
}

func correctCity(city string) string {
	key := Normalize(city)
	if fixed, ok := cityCorrections[key]; ok {
		return fixed
	}
	return city
}

// CityKey is the normalized city used for same-city comparisons.
func (a Address) CityKey() string { return Normalize(a.City) }

// RegionKey qualifies the region code with its country, e.g. "AU:WA".
// It is empty when no region was recognized.
func (a Address) RegionKey() string {
	if a.Region == "" {
		return ""
	}
	return regionKey(a.Country, a.Region)
}

// Queries returns geocoding query strings from most to least specific,
// without duplicates.
func (a Address) Queries() []string {
	regionPostal := strings.TrimSpace(a.Region + " " + a.Postal)
	candidates := []string{
		strings.TrimSpace(a.Raw),
		join(a.Street, a.City, regionPostal, a.Country),
		join(a.Street, a.City, a.Region),
		join(a.City, regionPostal),
		join(a.City, a.Region),
		join(a.City, a.Country),
		a.City,
		a.Postal,
	}
	seen := make(map[string]bool, len(candidates))
	out := make([]string, 0, len(candidates))
	for _, q := range candidates {
		k := Normalize(q)
		if k == "" || seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, q)
	}
	return out
}

func join(parts ...string) string {
	var keep []string
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			keep = append(keep, p)
		}
	}
	return strings.Join(keep, ", ")
}
