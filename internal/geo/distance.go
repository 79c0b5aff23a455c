package geo

import (
	"context"

	"github.com/golang/geo/s2"
)

const earthRadiusKm = 6371.0

// Method names how an Estimate was produced.
type Method string

const (
	MethodIdentical Method = "identical"
	MethodGeocoded  Method = "geocoded"
	MethodSameCity  Method = "same_city"
	MethodRegion    Method = "same_region"
	MethodNeighbor  Method = "neighboring_region"
	MethodDefault   Method = "default"
)

// Heuristic reports whether the estimate came from a fallback tier.
func (m Method) Heuristic() bool {
	return m != MethodIdentical && m != MethodGeocoded
}

// Label is the human-readable form used in reasoning trails.
func (m Method) Label() string {
	switch m {
	case MethodSameCity:
		return "same city"
	case MethodRegion:
		return "same region"
	case MethodNeighbor:
		return "neighboring region"
	case MethodDefault:
		return "long-distance default"
	default:
		return string(m)
	}
}

// Estimate is a distance in kilometres and how it was derived.
type Estimate struct {
	Km     float64 `json:"km"`
	Method Method  `json:"method"`
}

// Tiers holds the fixed fallback distances.
type Tiers struct {
	SameCityKm     float64 `yaml:"same_city_km" json:"sameCityKm"`
	SameRegionKm   float64 `yaml:"same_region_km" json:"sameRegionKm"`
	NeighborFactor float64 `yaml:"neighbor_factor" json:"neighborFactor"`
	DefaultKm      float64 `yaml:"default_km" json:"defaultKm"`
}

func DefaultTiers() Tiers {
	return Tiers{SameCityKm: 16, SameRegionKm: 240, NeighborFactor: 1.5, DefaultKm: 800}
}

// Estimator computes distances between free-form locations. Routing must
// never stall on a missing distance, so Distance always yields a number.
type Estimator struct {
	geocoder *Geocoder
	tiers    Tiers
}

// NewEstimator returns an Estimator. A nil geocoder makes every estimate
// heuristic; zero tier values are replaced by defaults.
func NewEstimator(geocoder *Geocoder, tiers Tiers) *Estimator {
	def := DefaultTiers()
	if tiers.SameCityKm <= 0 {
		tiers.SameCityKm = def.SameCityKm
	}
	if tiers.SameRegionKm <= 0 {
		tiers.SameRegionKm = def.SameRegionKm
	}
	if tiers.NeighborFactor <= 0 {
		tiers.NeighborFactor = def.NeighborFactor
	}
	if tiers.DefaultKm <= 0 {
		tiers.DefaultKm = def.DefaultKm
	}
	return &Estimator{geocoder: geocoder, tiers: tiers}
}

func (e *Estimator) Tiers() Tiers { return e.tiers }

// Distance estimates the distance between a and b.
func (e *Estimator) Distance(ctx context.Context, a, b string) Estimate {
	na, nb := Normalize(a), Normalize(b)
	if na != "" && na == nb {
		return Estimate{Km: 0, Method: MethodIdentical}
	}
	if e.geocoder != nil && na != "" && nb != "" {
		ca, okA := e.geocoder.Geocode(ctx, a)
		cb, okB := e.geocoder.Geocode(ctx, b)
		if okA && okB {
			return Estimate{Km: GreatCircleKm(ca.Lat, ca.Lng, cb.Lat, cb.Lng), Method: MethodGeocoded}
		}
	}
	return e.heuristic(ParseAddress(a), ParseAddress(b))
}

func (e *Estimator) heuristic(a, b Address) Estimate {
	ra, rb := a.RegionKey(), b.RegionKey()
	sameRegion := ra != "" && ra == rb
	regionsConflict := ra != "" && rb != "" && ra != rb
	if ca, cb := a.CityKey(), b.CityKey(); ca != "" && ca == cb && !regionsConflict {
		return Estimate{Km: e.tiers.SameCityKm, Method: MethodSameCity}
	}
	if sameRegion {
		return Estimate{Km: e.tiers.SameRegionKm, Method: MethodRegion}
	}
	if ra != "" && rb != "" && Neighboring(ra, rb) {
		return Estimate{Km: e.tiers.SameRegionKm * e.tiers.NeighborFactor, Method: MethodNeighbor}
	}
	return Estimate{Km: e.tiers.DefaultKm, Method: MethodDefault}
}

// GreatCircleKm is the great-circle distance between two points on a
// spherical Earth.
func GreatCircleKm(lat1, lng1, lat2, lng2 float64) float64 {
	p1 := s2.LatLngFromDegrees(lat1, lng1)
	p2 := s2.LatLngFromDegrees(lat2, lng2)
	return p1.Distance(p2).Radians() * earthRadiusKm
}
