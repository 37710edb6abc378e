package push

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"campuschat/models"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// newPushServer runs a websocket endpoint that records the dial query and
// writes the given frames to every client.
func newPushServer(t *testing.T, frames []frame) (*httptest.Server, chan map[string]string) {
	t.Helper()

	dialQueries := make(chan map[string]string, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		dialQueries <- map[string]string{
			"token":  r.URL.Query().Get("token"),
			"userId": r.URL.Query().Get("userId"),
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade failed: %v", err)
			return
		}
		defer conn.Close()

		for _, f := range frames {
			if err := conn.WriteJSON(f); err != nil {
				return
			}
		}
		// Hold the connection open until the client closes it.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	t.Cleanup(server.Close)

	return server, dialQueries
}

func wsURL(server *httptest.Server) string {
	return "ws" + strings.TrimPrefix(server.URL, "http")
}

func collectEvents(t *testing.T, events <-chan Event, want int) []Event {
	t.Helper()

	out := make([]Event, 0, want)
	timeout := time.After(5 * time.Second)
	for len(out) < want {
		select {
		case event, ok := <-events:
			if !ok {
				t.Fatalf("events channel closed after %d of %d events", len(out), want)
			}
			out = append(out, event)
		case <-timeout:
			t.Fatalf("timed out waiting for %d events, got %d", want, len(out))
		}
	}
	return out
}

func TestChannelDeliversConnectThenNotifications(t *testing.T) {
	server, dialQueries := newPushServer(t, []frame{
		{
			Event: "new_notification",
			Notification: &models.Notification{
				ID:   "n1",
				Type: models.NotificationTypeMessage,
				Text: "new message from Sam",
			},
		},
		{
			Event: "new_notification",
			Notification: &models.Notification{
				ID:   "n2",
				Type: models.NotificationTypeAddedToGroup,
				Text: "you were added to Robotics Club",
			},
		},
	})

	channel, err := NewChannel(Config{
		URL:    wsURL(server),
		Token:  "tok-1",
		UserID: "user-1",
	})
	if err != nil {
		t.Fatalf("NewChannel failed: %v", err)
	}
	if err := channel.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer channel.Stop()

	query := <-dialQueries
	if query["token"] != "tok-1" || query["userId"] != "user-1" {
		t.Fatalf("unexpected dial query %v", query)
	}

	events := collectEvents(t, channel.Events(), 3)
	if events[0].Type != EventConnected {
		t.Fatalf("expected connect event first, got %q", events[0].Type)
	}
	if events[1].Type != EventNotification || events[1].Notification.ID != "n1" {
		t.Fatalf("unexpected second event %+v", events[1])
	}
	if events[2].Notification.ID != "n2" {
		t.Fatalf("unexpected third event %+v", events[2])
	}
}

func TestChannelSkipsMalformedFrames(t *testing.T) {
	server, _ := newPushServer(t, []frame{
		{Event: "new_notification"}, // missing body, must be skipped
		{Event: "presence_update"},  // unknown event, must be ignored
		{
			Event:        "new_notification",
			Notification: &models.Notification{ID: "n9", Type: models.NotificationTypeRequest},
		},
	})

	channel, err := NewChannel(Config{URL: wsURL(server), Token: "tok", UserID: "u"})
	if err != nil {
		t.Fatalf("NewChannel failed: %v", err)
	}
	if err := channel.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer channel.Stop()

	events := collectEvents(t, channel.Events(), 2)
	if events[0].Type != EventConnected {
		t.Fatalf("expected connect first, got %q", events[0].Type)
	}
	if events[1].Notification == nil || events[1].Notification.ID != "n9" {
		t.Fatalf("expected only the valid notification, got %+v", events[1])
	}
}

func TestStopClosesEventsWithoutError(t *testing.T) {
	server, _ := newPushServer(t, nil)

	channel, err := NewChannel(Config{URL: wsURL(server), Token: "tok", UserID: "u"})
	if err != nil {
		t.Fatalf("NewChannel failed: %v", err)
	}
	if err := channel.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	collectEvents(t, channel.Events(), 1) // connect
	channel.Stop()

	if _, ok := <-channel.Events(); ok {
		t.Fatalf("expected events channel to be closed after Stop")
	}
	if err := channel.Err(); err != nil {
		t.Fatalf("expected no terminal error after clean Stop, got %v", err)
	}
}

func TestStartFailsWhenDialFails(t *testing.T) {
	channel, err := NewChannel(Config{
		URL:    "ws://127.0.0.1:1/socket",
		Token:  "tok",
		UserID: "u",
		Dial: func(ctx context.Context, rawURL string) (Conn, error) {
			return nil, context.DeadlineExceeded
		},
	})
	if err != nil {
		t.Fatalf("NewChannel failed: %v", err)
	}

	if err := channel.Start(context.Background()); err == nil {
		t.Fatalf("expected dial error from Start")
	}
	if _, ok := <-channel.Events(); ok {
		t.Fatalf("expected events channel closed after failed Start")
	}
}
