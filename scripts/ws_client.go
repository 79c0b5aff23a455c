// Package main runs a demo WebSocket client for tour events.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/gorilla/websocket"
)

type wsMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

func main() {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	group := os.Getenv("GROUP_ID")
	if group == "" {
		group = "g_demo"
	}
	base := fmt.Sprintf("http://localhost:%s", port)

	// Connect WS first so the generated tour is not missed
	u := url.URL{Scheme: "ws", Host: "localhost:" + port, Path: "/v1/groups/" + group + "/tours/ws"}
	c, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		log.Fatal("dial:", err)
	}
	defer func() { _ = c.Close() }()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			var m wsMessage
			if err := c.ReadJSON(&m); err != nil {
				log.Printf("read: %v", err)
				return
			}
			log.Printf("WS <- %s: %s", m.Type, string(m.Payload))
		}
	}()

	// Generate a tour
	start := time.Now().AddDate(0, 0, 7)
	body, _ := json.Marshal(map[string]any{
		"groupId":             group,
		"startDate":           start.Format("2006-01-02"),
		"endDate":             start.AddDate(0, 0, 21).Format("2006-01-02"),
		"maxRadiusKm":         800,
		"startLocation":       "Austin, TX",
		"minDaysBetweenShows": 1,
		"maxDaysBetweenShows": 5,
		"maxDriveHoursPerDay": 8,
	})
	resp, err := http.Post(base+"/v1/tours", "application/json", bytes.NewReader(body))
	if err != nil {
		log.Fatal(err)
	}
	var res struct {
		ID       string   `json:"id"`
		Warnings []string `json:"warnings"`
	}
	_ = json.NewDecoder(resp.Body).Decode(&res)
	_ = resp.Body.Close()
	log.Printf("POST /v1/tours -> %d tour=%s warnings=%v", resp.StatusCode, res.ID, res.Warnings)

	// Wait briefly to receive the event
	select {
	case <-time.After(2 * time.Second):
	case <-done:
	}
	_ = c.WriteJSON(wsMessage{Type: "complete"})
}
