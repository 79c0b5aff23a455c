package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"tourplan/internal/model"
	"tourplan/internal/tour"
)

// EventTourGenerated is published to a group's stream after each run.
const EventTourGenerated = "tour.generated"

// GenerateTourHandler handles POST /v1/tours
func (s *Server) GenerateTourHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeProblem(w, http.StatusMethodNotAllowed, "Method Not Allowed", "", r.URL.Path)
		return
	}
	var req TourRequest
	if err := decodeJSON(r, &req); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
		return
	}
	params, err := req.Params()
	if err != nil {
		writeValidation(w, r, err)
		return
	}
	res, err := s.Engine.GenerateTour(r.Context(), params)
	if err != nil {
		s.writeEngineError(w, r, err)
		return
	}
	s.Latest.Put(res)
	evt := tourEventData(res)
	s.Broker.Publish(res.GroupID, SSEEvent{Type: EventTourGenerated, Data: evt})
	s.Hooks.Emit(EventTourGenerated, evt)
	writeJSON(w, http.StatusOK, res)
}

// RecomputeStopRequest carries a stop to re-route after it was moved or
// substituted.
type RecomputeStopRequest struct {
	Params   TourRequest      `json:"params"`
	Previous *model.Candidate `json:"previous,omitempty"`
	Stop     model.Candidate  `json:"stop"`
}

// RecomputeStopHandler handles POST /v1/tours/recompute-stop
func (s *Server) RecomputeStopHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeProblem(w, http.StatusMethodNotAllowed, "Method Not Allowed", "", r.URL.Path)
		return
	}
	var req RecomputeStopRequest
	if err := decodeJSON(r, &req); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
		return
	}
	params, err := req.Params.Params()
	if err != nil {
		writeValidation(w, r, err)
		return
	}
	if req.Stop.Venue.ID == "" || req.Stop.Date.IsZero() {
		writeProblem(w, http.StatusBadRequest, "Invalid stop", "stop.venue.id and stop.date are required", r.URL.Path)
		return
	}
	c, err := s.Engine.RecomputeStop(r.Context(), params, req.Previous, req.Stop)
	if err != nil {
		s.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// TuningHandler handles GET /v1/tuning
func (s *Server) TuningHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		writeProblem(w, http.StatusMethodNotAllowed, "Method Not Allowed", "", r.URL.Path)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"tour":      s.Engine.Tuning(),
		"recommend": s.Tuning.Recommend,
	})
}

// GroupToursHandler handles GET /v1/groups/{id}/tours/{latest|stream|ws}
func (s *Server) GroupToursHandler(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path
	rest := strings.TrimPrefix(path, "/v1/groups/")
	parts := strings.Split(rest, "/")
	if len(parts) != 3 || parts[0] == "" || parts[1] != "tours" {
		writeProblem(w, http.StatusNotFound, "Not Found", "", path)
		return
	}
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		writeProblem(w, http.StatusMethodNotAllowed, "Method Not Allowed", "", path)
		return
	}
	groupID := parts[0]
	switch parts[2] {
	case "latest":
		res, ok := s.Latest.Get(groupID)
		if !ok {
			writeProblem(w, http.StatusNotFound, "No tour generated", "no tour has been generated for group "+groupID, path)
			return
		}
		writeJSON(w, http.StatusOK, res)
	case "stream":
		s.streamTours(w, r, groupID)
	case "ws":
		s.TourWSHandler(w, r, groupID)
	default:
		writeProblem(w, http.StatusNotFound, "Not Found", "", path)
	}
}

// streamTours serves a group's tour events as server-sent events.
func (s *Server) streamTours(w http.ResponseWriter, r *http.Request, groupID string) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeProblem(w, http.StatusInternalServerError, "Streaming unsupported", "", r.URL.Path)
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	// subscribe
	ch := s.Broker.Subscribe(groupID)
	defer s.Broker.Unsubscribe(groupID, ch)
	heartbeat := func() {
		fmt.Fprintf(w, "event: heartbeat\n")
		fmt.Fprintf(w, "data: {\"groupId\":%q,\"ts\":%q}\n\n", groupID, time.Now().UTC().Format(time.RFC3339))
		flusher.Flush()
	}
	heartbeat()
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-r.Context().Done():
			return
		case evt, ok := <-ch:
			if !ok {
				return
			}
			b, _ := json.Marshal(evt.Data)
			fmt.Fprintf(w, "event: %s\n", evt.Type)
			fmt.Fprintf(w, "data: %s\n\n", b)
			flusher.Flush()
		case <-ticker.C:
			heartbeat()
		}
	}
}

// Health
func (s *Server) HealthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) ReadyHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 500*time.Millisecond)
	defer cancel()
	if err := s.Store.Ping(ctx); err != nil {
		writeProblem(w, http.StatusServiceUnavailable, "Not Ready", err.Error(), r.URL.Path)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) writeEngineError(w http.ResponseWriter, r *http.Request, err error) {
	var ve *tour.ValidationError
	if errors.As(err, &ve) {
		writeValidation(w, r, err)
		return
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		writeProblem(w, http.StatusGatewayTimeout, "Generation interrupted", err.Error(), r.URL.Path)
		return
	}
	s.Logger.Error().Err(err).Str("path", r.URL.Path).Msg("tour generation failed")
	writeProblem(w, http.StatusBadGateway, "Upstream failure", err.Error(), r.URL.Path)
}

func tourEventData(res *model.TourResult) map[string]any {
	return map[string]any{
		"tourId":          res.ID,
		"groupId":         res.GroupID,
		"generatedAt":     res.GeneratedAt.Format(time.RFC3339),
		"stops":           len(res.Stops),
		"totalDistanceKm": res.TotalDistanceKm,
		"efficiencyScore": res.EfficiencyScore,
		"warnings":        len(res.Warnings),
	}
}
