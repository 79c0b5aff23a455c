package geo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/codeGROOVE-dev/retry"
	"github.com/rs/zerolog"

	"tourplan/internal/model"
)

const googleGeocodeURL = "https://maps.googleapis.com/maps/api/geocode/json"

// HTTPClient interface for making HTTP requests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// GoogleResolver resolves queries with the Google Geocoding API.
type GoogleResolver struct {
	apiKey     string
	baseURL    string
	httpClient HTTPClient
	logger     zerolog.Logger
	attempts   uint
}

// NewGoogleResolver creates a resolver. baseURL may be empty for the public
// endpoint.
func NewGoogleResolver(apiKey, baseURL string, httpClient HTTPClient, logger zerolog.Logger) *GoogleResolver {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	if baseURL == "" {
		baseURL = googleGeocodeURL
	}
	return &GoogleResolver{
		apiKey:     apiKey,
		baseURL:    baseURL,
		httpClient: httpClient,
		logger:     logger,
		attempts:   3,
	}
}

type geocodeResponse struct {
	Results []struct {
		Geometry struct {
			Location struct {
				Lat float64 `json:"lat"`
				Lng float64 `json:"lng"`
			} `json:"location"`
			LocationType string `json:"location_type"`
		} `json:"geometry"`
		Types            []string `json:"types"`
		FormattedAddress string   `json:"formatted_address"`
	} `json:"results"`
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message"`
}

// errTransient marks failures worth retrying against the same query.
var errTransient = errors.New("transient geocoding failure")

// Resolve converts a query to coordinates. Rate limiting and server errors
// are retried with backoff; anything else fails the attempt immediately.
func (r *GoogleResolver) Resolve(ctx context.Context, query string) (model.Coordinate, error) {
	if r.apiKey == "" {
		return model.Coordinate{}, errors.New("google maps API key not configured")
	}
	u, err := url.Parse(r.baseURL)
	if err != nil {
		return model.Coordinate{}, fmt.Errorf("invalid geocoding URL: %w", err)
	}
	q := u.Query()
	q.Set("address", query)
	q.Set("key", r.apiKey)
	u.RawQuery = q.Encode()

	var result geocodeResponse
	err = retry.Do(
		func() error {
			result = geocodeResponse{}
			return r.fetch(ctx, u.String(), &result)
		},
		retry.Context(ctx),
		retry.Attempts(r.attempts),
		retry.Delay(200*time.Millisecond),
		retry.MaxDelay(2*time.Second),
		retry.DelayType(retry.BackOffDelay),
		retry.RetryIf(func(err error) bool { return errors.Is(err, errTransient) }),
		retry.OnRetry(func(n uint, err error) {
			r.logger.Debug().Err(err).Uint("attempt", n+1).Str("query", query).Msg("retrying geocode")
		}),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		return model.Coordinate{}, err
	}

	switch result.Status {
	case "OK":
	case "ZERO_RESULTS":
		return model.Coordinate{}, ErrNotFound
	default:
		if result.ErrorMessage != "" {
			return model.Coordinate{}, fmt.Errorf("geocoding failed with status %s: %s", result.Status, result.ErrorMessage)
		}
		return model.Coordinate{}, fmt.Errorf("geocoding failed with status %s", result.Status)
	}
	if len(result.Results) == 0 {
		return model.Coordinate{}, ErrNotFound
	}

	first := result.Results[0]
	if strings.EqualFold(first.Geometry.LocationType, "approximate") && countryLevelOnly(first.Types) {
		r.logger.Debug().Str("query", query).Str("formatted", first.FormattedAddress).
			Msg("rejecting country-level geocoding result")
		return model.Coordinate{}, ErrNotFound
	}
	return model.Coordinate{Lat: first.Geometry.Location.Lat, Lng: first.Geometry.Location.Lng}, nil
}

func (r *GoogleResolver) fetch(ctx context.Context, rawURL string, out *geocodeResponse) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, http.NoBody)
	if err != nil {
		return retry.Unrecoverable(err)
	}
	resp, err := r.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return retry.Unrecoverable(err)
		}
		return fmt.Errorf("%w: %v", errTransient, err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			r.logger.Debug().Err(err).Msg("failed to close response body")
		}
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: reading body: %v", errTransient, err)
	}
	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError {
		return fmt.Errorf("%w: HTTP %d", errTransient, resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return retry.Unrecoverable(fmt.Errorf("geocoding HTTP %d", resp.StatusCode))
	}
	if err := json.Unmarshal(body, out); err != nil {
		return retry.Unrecoverable(fmt.Errorf("failed to parse geocoding response: %w", err))
	}
	if out.Status == "OVER_QUERY_LIMIT" || out.Status == "UNKNOWN_ERROR" {
		return fmt.Errorf("%w: status %s", errTransient, out.Status)
	}
	return nil
}

func countryLevelOnly(types []string) bool {
	country, precise := false, false
	for _, t := range types {
		switch t {
		case "country":
			country = true
		case "locality", "postal_code", "administrative_area_level_1", "administrative_area_level_2":
			precise = true
		}
	}
	return country && !precise
}
