package main

import (
	"fmt"
	"io"

	"github.com/fatih/color"

	"tourplan/internal/model"
)

var (
	headColor    = color.New(color.Bold)
	eventColor   = color.New(color.FgGreen)
	venueColor   = color.New(color.FgCyan)
	fillColor    = color.New(color.FgYellow)
	dimColor     = color.New(color.FgHiBlack)
	warnColor    = color.New(color.FgRed)
	tentColor    = color.New(color.FgMagenta)
	summaryColor = color.New(color.FgBlue, color.Bold)
)

// stopColor picks the line color: booked events green, gap fills yellow,
// other venue stops cyan.
func stopColor(s model.Candidate) *color.Color {
	switch {
	case s.IsExistingEvent:
		return eventColor
	case s.IsGapFill:
		return fillColor
	default:
		return venueColor
	}
}

func printItinerary(w io.Writer, res *model.TourResult, group string) {
	headColor.Fprintf(w, "Tour for %s", group)
	dimColor.Fprintf(w, "  (%s)\n", res.ID)

	if len(res.Stops) == 0 {
		fmt.Fprintln(w, "  no stops")
	}
	for i, s := range res.Stops {
		title := s.Venue.Name
		if s.Event != nil && s.Event.Title != "" {
			title = s.Event.Title + " @ " + s.Venue.Name
		}
		stopColor(s).Fprintf(w, "%2d. %s %s  %s", i+1, s.Date.Format("Mon"), s.Date.Format(model.DateLayout), title)
		dimColor.Fprintf(w, "  %s", s.Venue.Location)
		if s.Availability == model.Tentative {
			tentColor.Fprint(w, "  [tentative]")
		}
		fmt.Fprintln(w)
		dimColor.Fprintf(w, "      %.0f km (%s)", s.DistanceFromPrevious, s.Routing)
		if s.TravelDaysNeeded > 0 {
			dimColor.Fprintf(w, ", %d travel day(s)", s.TravelDaysNeeded)
		}
		dimColor.Fprintf(w, ", score %.1f\n", s.Score)
	}

	fmt.Fprintln(w)
	summaryColor.Fprintf(w, "%d shows, %d travel days, %.0f km", res.TotalShowDays, res.TotalTravelDays, res.TotalDistanceKm)
	if res.ReturnLegKm > 0 {
		summaryColor.Fprintf(w, " (+%.0f km home)", res.ReturnLegKm)
	}
	summaryColor.Fprintf(w, ", efficiency %.1f\n", res.EfficiencyScore)

	for _, c := range res.AvailabilityConflicts {
		warnColor.Fprintf(w, "conflict %s: %s\n", c.Date.Format(model.DateLayout), c.Reason)
	}
	for _, msg := range res.Warnings {
		warnColor.Fprintf(w, "warning: %s\n", msg)
	}
	if len(res.RecommendedEvents)+len(res.RecommendedVenues) > 0 {
		dimColor.Fprintf(w, "%d events and %d venues considered\n", len(res.RecommendedEvents), len(res.RecommendedVenues))
	}
}
