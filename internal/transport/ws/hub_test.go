package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/imsebeom/ai-survey/internal/cache"
	"github.com/imsebeom/ai-survey/internal/logger"
	"github.com/imsebeom/ai-survey/internal/model"
	"github.com/imsebeom/ai-survey/internal/repository"
	"github.com/imsebeom/ai-survey/internal/service"
)

func waitForSubscribers(t *testing.T, hub *Hub, surveyID string, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for hub.SubscriberCount(surveyID) != want {
		if time.Now().After(deadline) {
			t.Fatalf("expected %d subscribers for %s, got %d", want, surveyID, hub.SubscriberCount(surveyID))
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func receive(t *testing.T, ch <-chan []byte) Message {
	t.Helper()
	select {
	case data, ok := <-ch:
		if !ok {
			t.Fatal("channel closed")
		}
		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			t.Fatal(err)
		}
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for message")
	}
	return Message{}
}

func TestHubBroadcastToSurvey(t *testing.T) {
	hub := NewHub(logger.Discard())
	defer hub.Close()

	watching := &Connection{SurveyID: "s1", Send: make(chan []byte, 8), Hub: hub}
	other := &Connection{SurveyID: "s2", Send: make(chan []byte, 8), Hub: hub}
	hub.Register(watching)
	hub.Register(other)
	waitForSubscribers(t, hub, "s1", 1)
	waitForSubscribers(t, hub, "s2", 1)

	hub.BroadcastToSurvey("s1", service.EventResponseSubmitted, map[string]string{"responseId": "r1"})

	msg := receive(t, watching.Send)
	if msg.Type != MessageType(service.EventResponseSubmitted) {
		t.Errorf("type = %q", msg.Type)
	}
	if !strings.Contains(string(msg.Payload), `"r1"`) {
		t.Errorf("payload = %s", msg.Payload)
	}

	select {
	case data := <-other.Send:
		t.Errorf("other survey received %s", data)
	case <-time.After(50 * time.Millisecond):
	}

	hub.Unregister(watching)
	waitForSubscribers(t, hub, "s1", 0)
	if _, ok := <-watching.Send; ok {
		t.Error("send channel should be closed after unregister")
	}
}

func TestHubClose(t *testing.T) {
	hub := NewHub(logger.Discard())
	conn := &Connection{SurveyID: "s1", Send: make(chan []byte, 1), Hub: hub}
	hub.Register(conn)
	waitForSubscribers(t, hub, "s1", 1)

	hub.Close()
	hub.Close()

	select {
	case _, ok := <-conn.Send:
		if ok {
			t.Error("expected closed channel")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("connection not closed")
	}

	// Calls after Close return instead of blocking
	hub.BroadcastToSurvey("s1", "x", nil)
	hub.Unregister(conn)
}

func TestDashboardWS(t *testing.T) {
	ctx := context.Background()
	log := logger.Discard()

	surveys := repository.NewMemorySurveyRepo()
	responses := repository.NewMemoryResponseRepo()
	survey := &model.Survey{
		Title:     "Library hours",
		Target:    model.TargetParent,
		Mode:      model.ModeClassic,
		Status:    model.StatusPublished,
		Questions: []model.Question{{ID: "q1", Type: model.QuestionText, Question: "Ideas?"}},
	}
	if _, err := surveys.Create(ctx, survey); err != nil {
		t.Fatal(err)
	}

	hub := NewHub(log)
	defer hub.Close()
	stats := service.NewStatsService(surveys, responses, cache.NewMemoryStatsCache(time.Minute), log)

	r := mux.NewRouter()
	r.HandleFunc("/api/ws/surveys/{id}/dashboard", NewHandler(hub, stats, log).DashboardWS)
	srv := httptest.NewServer(r)
	defer srv.Close()

	base := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/ws/surveys/"

	t.Run("unknown survey", func(t *testing.T) {
		_, resp, err := websocket.DefaultDialer.Dial(base+"missing/dashboard", nil)
		if err == nil {
			t.Fatal("expected handshake failure")
		}
		if resp == nil || resp.StatusCode != http.StatusNotFound {
			t.Fatalf("expected 404, got %+v", resp)
		}
	})

	t.Run("snapshot then events", func(t *testing.T) {
		conn, _, err := websocket.DefaultDialer.Dial(base+survey.ID+"/dashboard", nil)
		if err != nil {
			t.Fatal(err)
		}
		defer conn.Close()
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))

		var msg Message
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatal(err)
		}
		if msg.Type != MsgStatsSnapshot {
			t.Fatalf("first message type = %q", msg.Type)
		}
		var snapshot model.SurveyStats
		if err := json.Unmarshal(msg.Payload, &snapshot); err != nil {
			t.Fatal(err)
		}
		if snapshot.SurveyID != survey.ID || snapshot.QuestionCount != 1 {
			t.Errorf("unexpected snapshot: %+v", snapshot)
		}

		waitForSubscribers(t, hub, survey.ID, 1)
		hub.BroadcastToSurvey(survey.ID, service.EventSurveyDeleted, map[string]string{"surveyId": survey.ID})

		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatal(err)
		}
		if msg.Type != MessageType(service.EventSurveyDeleted) {
			t.Errorf("event type = %q", msg.Type)
		}
	})
}
