// Package main implements tourctl, which plans a tour from a JSON dataset
// without running the API server.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"tourplan/internal/buildinfo"
	"tourplan/internal/config"
	"tourplan/internal/geo"
	"tourplan/internal/model"
	"tourplan/internal/recommend"
	"tourplan/internal/store"
	"tourplan/internal/tour"
)

var (
	dataFile   = flag.String("data", "", "JSON dataset of groups, venues, events and calendar blocks (required)")
	groupID    = flag.String("group", "", "group id (defaults to the only group in the dataset)")
	startDate  = flag.String("start", "", "first tour date, YYYY-MM-DD (required)")
	endDate    = flag.String("end", "", "last tour date, YYYY-MM-DD (required)")
	radius     = flag.Float64("radius", 800, "maximum distance from home in km")
	from       = flag.String("from", "", "start location (defaults to the group's home)")
	to         = flag.String("to", "", "end location (defaults to the start location)")
	minGap     = flag.Int("min-gap", 1, "minimum days between shows")
	maxGap     = flag.Int("max-gap", 7, "maximum days between shows")
	driveHours = flag.Float64("drive-hours", 8, "maximum driving hours per day")
	genres     = flag.String("genres", "", "comma-separated genres (defaults to the group's genres)")
	minCap     = flag.Int("min-capacity", 0, "minimum venue capacity")
	maxCap     = flag.Int("max-capacity", 0, "maximum venue capacity")
	weekend    = flag.Bool("weekend", false, "prioritize Friday and Saturday shows")
	exclude    = flag.String("exclude", "", "comma-separated venue ids to skip")
	tuningFile = flag.String("tuning", "", "YAML tuning file (or set TOUR_TUNING_FILE)")
	coordsFile = flag.String("coords", "", "JSON map of location to {lat,lng} used instead of live geocoding")
	mapsAPIKey = flag.String("maps-key", "", "Google Maps API key (or set GOOGLE_MAPS_API_KEY)")
	asJSON     = flag.Bool("json", false, "print the raw result as JSON")
	verbose    = flag.Bool("verbose", false, "enable debug logging")
	version    = flag.Bool("version", false, "show version")
)

func main() {
	flag.Parse()

	if *version {
		fmt.Println("tourctl", buildinfo.Version)
		return
	}
	if *dataFile == "" || *startDate == "" || *endDate == "" {
		fmt.Fprintf(os.Stderr, "Usage: %s -data dataset.json -start YYYY-MM-DD -end YYYY-MM-DD [flags]\n", os.Args[0])
		flag.PrintDefaults()
		os.Exit(2)
	}

	level := "error"
	if *verbose {
		level = "debug"
	}
	logger := config.NewLogger(level, "console", os.Stderr)

	if *tuningFile == "" {
		*tuningFile = os.Getenv("TOUR_TUNING_FILE")
	}
	if *mapsAPIKey == "" {
		*mapsAPIKey = os.Getenv("GOOGLE_MAPS_API_KEY")
	}

	if err := run(logger); err != nil {
		fmt.Fprintln(os.Stderr, "tourctl:", err)
		os.Exit(1)
	}
}

func run(logger zerolog.Logger) error {
	tuning, err := config.LoadTuning(*tuningFile)
	if err != nil {
		return err
	}
	f, err := os.Open(*dataFile)
	if err != nil {
		return err
	}
	ds, err := store.ReadDataset(f)
	_ = f.Close()
	if err != nil {
		return err
	}
	mem := store.NewMemory()
	mem.Seed(ds)

	params, err := buildParams(ds)
	if err != nil {
		return err
	}

	geocoder, err := buildGeocoder(logger)
	if err != nil {
		return err
	}
	engine, err := tour.NewEngine(tour.Deps{
		Availability:    mem,
		Recommendations: recommend.NewAffinity(mem, tuning.Recommend, logger),
		Venues:          mem,
		Events:          mem,
		Groups:          mem,
		Distances:       geo.NewEstimator(geocoder, tuning.Tour.Distance),
	}, tour.WithTuning(tuning.Tour), tour.WithLogger(logger))
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	res, err := engine.GenerateTour(ctx, params)
	if err != nil {
		return err
	}
	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}
	printItinerary(os.Stdout, res, groupName(ds, params.GroupID))
	return nil
}

func buildParams(ds store.Dataset) (model.TourParams, error) {
	gid := *groupID
	if gid == "" {
		if len(ds.Groups) != 1 {
			return model.TourParams{}, fmt.Errorf("-group is required when the dataset has %d groups", len(ds.Groups))
		}
		gid = ds.Groups[0].ID
	}
	var home string
	var groupGenres []string
	for _, g := range ds.Groups {
		if g.ID == gid {
			home, groupGenres = g.Home, g.Genres
		}
	}
	start, err := model.ParseDay(*startDate)
	if err != nil {
		return model.TourParams{}, fmt.Errorf("-start: %w", err)
	}
	end, err := model.ParseDay(*endDate)
	if err != nil {
		return model.TourParams{}, fmt.Errorf("-end: %w", err)
	}
	p := model.TourParams{
		GroupID:             gid,
		StartDate:           start,
		EndDate:             end,
		MaxRadiusKm:         *radius,
		StartLocation:       *from,
		EndLocation:         *to,
		MinDaysBetweenShows: *minGap,
		MaxDaysBetweenShows: *maxGap,
		MaxDriveHoursPerDay: *driveHours,
		Genres:              splitList(*genres),
		MinCapacity:         *minCap,
		MaxCapacity:         *maxCap,
		WeekendPriority:     *weekend,
		ExcludeVenueIDs:     splitList(*exclude),
	}
	if p.StartLocation == "" {
		p.StartLocation = home
	}
	if len(p.Genres) == 0 {
		p.Genres = groupGenres
	}
	return p, nil
}

// buildGeocoder prefers a static coordinate file, then Google, then none.
func buildGeocoder(logger zerolog.Logger) (*geo.Geocoder, error) {
	cache := geo.NewGeocodeCache(4096)
	switch {
	case *coordsFile != "":
		b, err := os.ReadFile(*coordsFile)
		if err != nil {
			return nil, err
		}
		var coords map[string]model.Coordinate
		if err := json.Unmarshal(b, &coords); err != nil {
			return nil, fmt.Errorf("parse %s: %w", *coordsFile, err)
		}
		return geo.NewGeocoder(geo.NewStaticResolver(coords), cache, geo.WithLogger(logger)), nil
	case *mapsAPIKey != "":
		resolver := geo.NewGoogleResolver(*mapsAPIKey, "", &http.Client{Timeout: 10 * time.Second}, logger)
		return geo.NewGeocoder(resolver, cache, geo.WithLogger(logger)), nil
	default:
		return nil, nil
	}
}

func groupName(ds store.Dataset, id string) string {
	for _, g := range ds.Groups {
		if g.ID == id && g.Name != "" {
			return g.Name
		}
	}
	return id
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
