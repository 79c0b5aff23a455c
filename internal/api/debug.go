package api

import (
	"net/http"
	"time"

	"tourplan/internal/buildinfo"
)

func (s *Server) DebugJSON(w http.ResponseWriter, r *http.Request) {
	info := map[string]any{
		"build": buildinfo.Info(),
		"time":  time.Now().UTC().Format(time.RFC3339),
		"config": map[string]any{
			"PORT":                 s.Config.Port,
			"RATE_RPS":             s.Config.RateRPS,
			"RATE_BURST":           s.Config.RateBurst,
			"LOG_LEVEL":            s.Config.LogLevel,
			"GEOCODE_CACHE_SIZE":   s.Config.GeocodeCacheSize,
			"HAS_DATABASE_URL":     s.Config.DatabaseURL != "",
			"HAS_REDIS_URL":        s.Config.RedisURL != "",
			"HAS_GOOGLE_MAPS_KEY":  s.Config.GoogleMapsAPIKey != "",
			"HAS_TOUR_TUNING_FILE": s.Config.TuningFile != "",
		},
	}
	writeJSON(w, http.StatusOK, info)
}
