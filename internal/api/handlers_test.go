package api

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"tourplan/internal/config"
	"tourplan/internal/model"
	"tourplan/internal/store"
)

func day(s string) time.Time {
	d, err := time.Parse(model.DateLayout, s)
	if err != nil {
		panic(err)
	}
	return d
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	mem := store.NewMemory()
	until := day("2025-03-31")
	mem.Seed(store.Dataset{
		Groups: []store.Group{{ID: "g1", Name: "The Gaps", Home: "Austin, TX", Genres: []string{"rock"}, Favorites: []string{"v1"}}},
		Venues: []model.Venue{
			{ID: "v1", Name: "Mohawk", Location: "Austin, TX", Capacity: 500, Genres: []string{"rock"}, EventCount: 12},
			{ID: "v2", Name: "Cactus", Location: "Austin, TX", Capacity: 80},
		},
		Events: []model.Event{
			{ID: "e1", VenueID: "v1", Title: "Spring", Date: day("2025-03-07"), Genres: []string{"rock"}, Status: model.EventOpen, AcceptingApplications: true},
			{ID: "e2", VenueID: "v2", Title: "Open mic", Date: day("2025-03-04"), Status: model.EventOpen, AcceptingApplications: true,
				Recurrence: model.RecurWeekly, RecurUntil: &until},
		},
	})
	cfg := config.Config{Port: "0", LogFormat: "console"}
	s, err := New(mem, NewBroker(), nil, config.DefaultTuning(), cfg, zerolog.Nop())
	require.NoError(t, err)
	return s
}

const tourBody = `{"groupId":"g1","startDate":"2025-03-01","endDate":"2025-03-21","maxRadiusKm":500,
	"startLocation":"Austin, TX","minDaysBetweenShows":1,"maxDaysBetweenShows":7,"maxDriveHoursPerDay":8,"genres":["rock"]}`

func post(h http.HandlerFunc, path, body string) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	h(rr, req)
	return rr
}

func TestHealthReady(t *testing.T) {
	s := newTestServer(t)
	rr := httptest.NewRecorder()
	s.HealthHandler(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	rr = httptest.NewRecorder()
	s.ReadyHandler(rr, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	require.Equal(t, http.StatusOK, rr.Code)
}

func TestGenerateTour(t *testing.T) {
	s := newTestServer(t)
	ch := s.Broker.Subscribe("g1")

	rr := post(s.GenerateTourHandler, "/v1/tours", tourBody)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var res model.TourResult
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &res))
	require.Equal(t, "g1", res.GroupID)
	require.NotEmpty(t, res.ID)
	require.NotEmpty(t, res.Stops)

	select {
	case evt := <-ch:
		require.Equal(t, EventTourGenerated, evt.Type)
		require.Equal(t, res.ID, evt.Data["tourId"])
	case <-time.After(time.Second):
		t.Fatal("no tour.generated event")
	}

	latest, ok := s.Latest.Get("g1")
	require.True(t, ok)
	require.Equal(t, res.ID, latest.ID)

	rr = httptest.NewRecorder()
	s.GroupToursHandler(rr, httptest.NewRequest(http.MethodGet, "/v1/groups/g1/tours/latest", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	require.Contains(t, rr.Body.String(), res.ID)
}

func TestGenerateTourValidation(t *testing.T) {
	s := newTestServer(t)

	rr := post(s.GenerateTourHandler, "/v1/tours", `{"groupId":"g1","startDate":"nope","endDate":"2025-03-02","maxRadiusKm":10}`)
	require.Equal(t, http.StatusBadRequest, rr.Code)
	var vp ValidationProblem
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &vp))
	require.Equal(t, []string{`startDate "nope" is not a date`}, vp.Errors)

	rr = post(s.GenerateTourHandler, "/v1/tours", `{"startDate":"2025-03-01","endDate":"2025-03-02","maxRadiusKm":10,"maxDaysBetweenShows":3}`)
	require.Equal(t, http.StatusBadRequest, rr.Code)
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &vp))
	require.Contains(t, vp.Errors, "groupId is required")
	require.Equal(t, "Invalid tour parameters", vp.Title)

	rr = post(s.GenerateTourHandler, "/v1/tours", `{"groupId":"g1","bogus":true}`)
	require.Equal(t, http.StatusBadRequest, rr.Code)
	require.Contains(t, rr.Body.String(), "Invalid JSON")

	rr = httptest.NewRecorder()
	s.GenerateTourHandler(rr, httptest.NewRequest(http.MethodGet, "/v1/tours", nil))
	require.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}

func TestRecomputeStop(t *testing.T) {
	s := newTestServer(t)
	rr := post(s.GenerateTourHandler, "/v1/tours", tourBody)
	require.Equal(t, http.StatusOK, rr.Code)
	var res model.TourResult
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &res))
	require.NotEmpty(t, res.Stops)

	stop := res.Stops[0]
	body, err := json.Marshal(map[string]any{"params": json.RawMessage(tourBody), "stop": stop})
	require.NoError(t, err)
	rr = post(s.RecomputeStopHandler, "/v1/tours/recompute-stop", string(body))
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var got model.Candidate
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	require.Equal(t, stop.Venue.ID, got.Venue.ID)
	require.Equal(t, model.RouteHomeStart, got.Routing)

	rr = post(s.RecomputeStopHandler, "/v1/tours/recompute-stop", `{"params":`+tourBody+`,"stop":{}}`)
	require.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestTuningAndLatestMissing(t *testing.T) {
	s := newTestServer(t)
	rr := httptest.NewRecorder()
	s.TuningHandler(rr, httptest.NewRequest(http.MethodGet, "/v1/tuning", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	var body map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	require.Contains(t, body, "tour")
	require.Contains(t, body, "recommend")

	rr = httptest.NewRecorder()
	s.GroupToursHandler(rr, httptest.NewRequest(http.MethodGet, "/v1/groups/g9/tours/latest", nil))
	require.Equal(t, http.StatusNotFound, rr.Code)

	rr = httptest.NewRecorder()
	s.GroupToursHandler(rr, httptest.NewRequest(http.MethodGet, "/v1/groups/g1/other", nil))
	require.Equal(t, http.StatusNotFound, rr.Code)
}

func TestGenerateRateLimited(t *testing.T) {
	s := newTestServer(t)
	s.Limiter = rate.NewLimiter(0, 1)
	h := s.Routes()

	do := func() int {
		rr := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/v1/tours", strings.NewReader(tourBody))
		h.ServeHTTP(rr, req)
		return rr.Code
	}
	require.Equal(t, http.StatusOK, do())
	require.Equal(t, http.StatusTooManyRequests, do())
}

func TestStreamReceivesGeneratedTour(t *testing.T) {
	s := newTestServer(t)
	srv := httptest.NewServer(s.Routes())
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/v1/groups/g1/tours/stream", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	require.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	rd := bufio.NewReader(resp.Body)
	line, err := rd.ReadString('\n')
	require.NoError(t, err)
	require.Equal(t, "event: heartbeat\n", line)

	gen, err := http.Post(srv.URL+"/v1/tours", "application/json", bytes.NewReader([]byte(tourBody)))
	require.NoError(t, err)
	_ = gen.Body.Close()
	require.Equal(t, http.StatusOK, gen.StatusCode)

	for {
		line, err = rd.ReadString('\n')
		require.NoError(t, err)
		if line == "event: "+EventTourGenerated+"\n" {
			break
		}
	}
	data, err := rd.ReadString('\n')
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(data, "data: "))
	require.Contains(t, data, `"groupId":"g1"`)
}

func TestWebSocketReceivesGeneratedTour(t *testing.T) {
	s := newTestServer(t)
	srv := httptest.NewServer(s.Routes())
	defer srv.Close()

	u := "ws" + strings.TrimPrefix(srv.URL, "http") + "/v1/groups/g1/tours/ws"
	c, _, err := websocket.DefaultDialer.Dial(u, nil)
	require.NoError(t, err)
	defer func() { _ = c.Close() }()
	_ = c.SetReadDeadline(time.Now().Add(5 * time.Second))

	var msg wsMessage
	require.NoError(t, c.ReadJSON(&msg))
	require.Equal(t, "connection_ack", msg.Type)

	gen, err := http.Post(srv.URL+"/v1/tours", "application/json", bytes.NewReader([]byte(tourBody)))
	require.NoError(t, err)
	_ = gen.Body.Close()

	require.NoError(t, c.ReadJSON(&msg))
	require.Equal(t, "next", msg.Type)
	var evt SSEEvent
	require.NoError(t, json.Unmarshal(msg.Payload, &evt))
	require.Equal(t, EventTourGenerated, evt.Type)
	require.Equal(t, "g1", evt.Data["groupId"])

	require.NoError(t, c.WriteJSON(wsMessage{Type: "ping"}))
	require.NoError(t, c.ReadJSON(&msg))
	require.Equal(t, "pong", msg.Type)
}

func TestMetricPath(t *testing.T) {
	require.Equal(t, "/v1/groups/{id}/tours/stream", metricPath("/v1/groups/abc/tours/stream"))
	require.Equal(t, "/v1/groups/{id}", metricPath("/v1/groups/abc"))
	require.Equal(t, "/v1/tours", metricPath("/v1/tours"))
}

func TestOpenAPI(t *testing.T) {
	s := newTestServer(t)
	h := s.Routes()

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/openapi.json", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	var doc struct {
		Paths map[string]any `json:"paths"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &doc))
	require.Contains(t, doc.Paths, "/v1/tours")

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/openapi.yaml", nil))
	require.Equal(t, "application/yaml", rr.Header().Get("Content-Type"))
}
