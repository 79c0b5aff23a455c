package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"tourplan/internal/model"
	"tourplan/internal/tour"
)

// TourRequest is the wire form of a generation request. Dates accept
// YYYY-MM-DD or RFC3339.
type TourRequest struct {
	GroupID             string               `json:"groupId"`
	StartDate           string               `json:"startDate"`
	EndDate             string               `json:"endDate"`
	MaxRadiusKm         float64              `json:"maxRadiusKm"`
	StartLocation       string               `json:"startLocation,omitempty"`
	EndLocation         string               `json:"endLocation,omitempty"`
	MinDaysBetweenShows int                  `json:"minDaysBetweenShows"`
	MaxDaysBetweenShows int                  `json:"maxDaysBetweenShows"`
	MaxDriveHoursPerDay float64              `json:"maxDriveHoursPerDay"`
	Genres              []string             `json:"genres,omitempty"`
	MinCapacity         int                  `json:"minCapacity,omitempty"`
	MaxCapacity         int                  `json:"maxCapacity,omitempty"`
	WeekendPriority     bool                 `json:"weekendPriority"`
	ExcludeVenueIDs     []string             `json:"excludeVenueIds,omitempty"`
	Weights             *model.WeightProfile `json:"weights,omitempty"`
}

// Params converts the request, collecting date parse failures as
// validation problems.
func (r TourRequest) Params() (model.TourParams, error) {
	p := model.TourParams{
		GroupID:             strings.TrimSpace(r.GroupID),
		MaxRadiusKm:         r.MaxRadiusKm,
		StartLocation:       r.StartLocation,
		EndLocation:         r.EndLocation,
		MinDaysBetweenShows: r.MinDaysBetweenShows,
		MaxDaysBetweenShows: r.MaxDaysBetweenShows,
		MaxDriveHoursPerDay: r.MaxDriveHoursPerDay,
		Genres:              r.Genres,
		MinCapacity:         r.MinCapacity,
		MaxCapacity:         r.MaxCapacity,
		WeekendPriority:     r.WeekendPriority,
		ExcludeVenueIDs:     r.ExcludeVenueIDs,
		Weights:             r.Weights,
	}
	ve := &tour.ValidationError{}
	var err error
	if r.StartDate != "" {
		if p.StartDate, err = model.ParseDay(r.StartDate); err != nil {
			ve.Problems = append(ve.Problems, fmt.Sprintf("startDate %q is not a date", r.StartDate))
		}
	}
	if r.EndDate != "" {
		if p.EndDate, err = model.ParseDay(r.EndDate); err != nil {
			ve.Problems = append(ve.Problems, fmt.Sprintf("endDate %q is not a date", r.EndDate))
		}
	}
	if len(ve.Problems) > 0 {
		return p, ve
	}
	return p, nil
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// ValidationProblem extends Problem with the individual failures.
type ValidationProblem struct {
	Problem
	Errors []string `json:"errors"`
}

func writeValidation(w http.ResponseWriter, r *http.Request, err error) {
	var ve *tour.ValidationError
	if !errors.As(err, &ve) {
		writeProblem(w, http.StatusBadRequest, "Invalid request", err.Error(), r.URL.Path)
		return
	}
	writeJSON(w, http.StatusBadRequest, ValidationProblem{
		Problem: Problem{
			Type:     "about:blank",
			Title:    "Invalid tour parameters",
			Status:   http.StatusBadRequest,
			Detail:   strings.Join(ve.Problems, "; "),
			Instance: r.URL.Path,
		},
		Errors: ve.Problems,
	})
}
