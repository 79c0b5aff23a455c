package geo

import "strings"

// Closed per-country region tables used by the address parser and the
// neighboring-region distance tier.

var usStates = map[string]string{
	"AL": "alabama", "AK": "alaska", "AZ": "arizona", "AR": "arkansas", "CA": "california",
	"CO": "colorado", "CT": "connecticut", "DE": "delaware", "DC": "district of columbia",
	"FL": "florida", "GA": "georgia", "HI": "hawaii", "ID": "idaho", "IL": "illinois",
	"IN": "indiana", "IA": "iowa", "KS": "kansas", "KY": "kentucky", "LA": "louisiana",
	"ME": "maine", "MD": "maryland", "MA": "massachusetts", "MI": "michigan", "MN": "minnesota",
	"MS": "mississippi", "MO": "missouri", "MT": "montana", "NE": "nebraska", "NV": "nevada",
	"NH": "new hampshire", "NJ": "new jersey", "NM": "new mexico", "NY": "new york",
	"NC": "north carolina", "ND": "north dakota", "OH": "ohio", "OK": "oklahoma", "OR": "oregon",
	"PA": "pennsylvania", "RI": "rhode island", "SC": "south carolina", "SD": "south dakota",
	"TN": "tennessee", "TX": "texas", "UT": "utah", "VT": "vermont", "VA": "virginia",
	"WA": "washington", "WV": "west virginia", "WI": "wisconsin", "WY": "wyoming",
}

var caProvinces = map[string]string{
	"AB": "alberta", "BC": "british columbia", "MB": "manitoba", "NB": "new brunswick",
	"NL": "newfoundland and labrador", "NS": "nova scotia", "NT": "northwest territories",
	"NU": "nunavut", "ON": "ontario", "PE": "prince edward island", "QC": "quebec",
	"SK": "saskatchewan", "YT": "yukon",
}

var auStates = map[string]string{
	"NSW": "new south wales", "VIC": "victoria", "QLD": "queensland", "WA": "western australia",
	"SA": "south australia", "TAS": "tasmania", "ACT": "australian capital territory",
	"NT": "northern territory",
}

// regionTables is consulted in order; the US table wins on ambiguous codes
// unless the country is known. Codes are only unique within a country.
var regionTables = []struct {
	country string
	codes   map[string]string
}{
	{"US", usStates},
	{"CA", caProvinces},
	{"AU", auStates},
}

var countryTokens = map[string]string{
	"usa": "US", "us": "US", "u.s.": "US", "u.s.a.": "US", "united states": "US",
	"united states of america": "US", "america": "US",
	"canada": "CA",
	"australia": "AU",
	"uk": "GB", "united kingdom": "GB", "england": "GB", "scotland": "GB", "wales": "GB",
	"great britain": "GB",
}

// Adjacent regions, each pair stored once. Lookups are symmetric and keyed
// by country, so Australian WA and NT never match Washington or the
// Northwest Territories.
var usNeighbors = [][2]string{
	{"AL", "FL"}, {"AL", "GA"}, {"AL", "MS"}, {"AL", "TN"},
	{"AZ", "CA"}, {"AZ", "CO"}, {"AZ", "NM"}, {"AZ", "NV"}, {"AZ", "UT"},
	{"AR", "LA"}, {"AR", "MO"}, {"AR", "MS"}, {"AR", "OK"}, {"AR", "TN"}, {"AR", "TX"},
	{"CA", "NV"}, {"CA", "OR"},
	{"CO", "KS"}, {"CO", "NE"}, {"CO", "NM"}, {"CO", "OK"}, {"CO", "UT"}, {"CO", "WY"},
	{"CT", "MA"}, {"CT", "NY"}, {"CT", "RI"},
	{"DE", "MD"}, {"DE", "NJ"}, {"DE", "PA"},
	{"DC", "MD"}, {"DC", "VA"},
	{"FL", "GA"},
	{"GA", "NC"}, {"GA", "SC"}, {"GA", "TN"},
	{"ID", "MT"}, {"ID", "NV"}, {"ID", "OR"}, {"ID", "UT"}, {"ID", "WA"}, {"ID", "WY"},
	{"IL", "IN"}, {"IL", "IA"}, {"IL", "KY"}, {"IL", "MO"}, {"IL", "WI"},
	{"IN", "KY"}, {"IN", "MI"}, {"IN", "OH"},
	{"IA", "MN"}, {"IA", "MO"}, {"IA", "NE"}, {"IA", "SD"}, {"IA", "WI"},
	{"KS", "MO"}, {"KS", "NE"}, {"KS", "OK"},
	{"KY", "MO"}, {"KY", "OH"}, {"KY", "TN"}, {"KY", "VA"}, {"KY", "WV"},
	{"LA", "MS"}, {"LA", "TX"},
	{"ME", "NH"},
	{"MD", "PA"}, {"MD", "VA"}, {"MD", "WV"},
	{"MA", "NH"}, {"MA", "NY"}, {"MA", "RI"}, {"MA", "VT"},
	{"MI", "OH"}, {"MI", "WI"},
	{"MN", "ND"}, {"MN", "SD"}, {"MN", "WI"},
	{"MS", "TN"},
	{"MO", "NE"}, {"MO", "OK"}, {"MO", "TN"},
	{"MT", "ND"}, {"MT", "SD"}, {"MT", "WY"},
	{"NE", "SD"}, {"NE", "WY"},
	{"NV", "OR"}, {"NV", "UT"},
	{"NH", "VT"},
	{"NJ", "NY"}, {"NJ", "PA"},
	{"NM", "OK"}, {"NM", "TX"}, {"NM", "UT"},
	{"NY", "PA"}, {"NY", "VT"},
	{"NC", "SC"}, {"NC", "TN"}, {"NC", "VA"},
	{"ND", "SD"},
	{"OH", "PA"}, {"OH", "WV"},
	{"OK", "TX"},
	{"OR", "WA"},
	{"PA", "WV"},
	{"SD", "WY"},
	{"TN", "VA"},
	{"UT", "WY"},
	{"VA", "WV"},
}

var caNeighbors = [][2]string{
	{"AB", "BC"}, {"AB", "SK"}, {"AB", "NT"}, {"BC", "YT"}, {"BC", "NT"},
	{"SK", "MB"}, {"SK", "NT"}, {"MB", "ON"}, {"MB", "NU"}, {"ON", "QC"},
	{"QC", "NB"}, {"QC", "NL"}, {"NB", "NS"}, {"NB", "PE"}, {"NS", "PE"},
	{"YT", "NT"}, {"NT", "NU"},
}

// crossBorder pairs a Canadian province with a US state.
var crossBorder = [][2]string{
	{"BC", "WA"}, {"BC", "ID"}, {"BC", "MT"}, {"AB", "MT"}, {"SK", "MT"}, {"SK", "ND"},
	{"MB", "ND"}, {"MB", "MN"}, {"ON", "MN"}, {"ON", "MI"}, {"ON", "NY"},
	{"QC", "NY"}, {"QC", "VT"}, {"QC", "NH"}, {"QC", "ME"}, {"NB", "ME"},
}

var neighborSet = func() map[[2]string]struct{} {
	m := make(map[[2]string]struct{}, (len(usNeighbors)+len(caNeighbors)+len(crossBorder))*2)
	add := func(a, b string) {
		m[[2]string{a, b}] = struct{}{}
		m[[2]string{b, a}] = struct{}{}
	}
	for _, p := range usNeighbors {
		add(regionKey("US", p[0]), regionKey("US", p[1]))
	}
	for _, p := range caNeighbors {
		add(regionKey("CA", p[0]), regionKey("CA", p[1]))
	}
	for _, p := range crossBorder {
		add(regionKey("CA", p[0]), regionKey("US", p[1]))
	}
	return m
}()

func regionKey(country, code string) string { return country + ":" + code }

// Neighboring reports whether two country-qualified region keys, as
// returned by Address.RegionKey, share a border.
func Neighboring(a, b string) bool {
	_, ok := neighborSet[[2]string{a, b}]
	return ok
}

// lookupRegion resolves a code or full region name to its canonical code.
// country narrows the search when known.
func lookupRegion(token, country string) (code, regionCountry string, ok bool) {
	upper := strings.ToUpper(strings.TrimSpace(token))
	lower := strings.ToLower(strings.TrimSpace(token))
	for _, t := range regionTables {
		if country != "" && country != t.country {
			continue
		}
		if _, found := t.codes[upper]; found {
			return upper, t.country, true
		}
		for c, name := range t.codes {
			if name == lower {
				return c, t.country, true
			}
		}
	}
	return "", "", false
}
