package app

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/relabs-tech/forktilt/internal/imu"
)

func TestTiltAPI(t *testing.T) {
	hub := newTiltHub()
	srv := httptest.NewServer(hub.routes(""))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/tilt")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("status before data = %d", resp.StatusCode)
	}

	hub.set(imu.Reading{Source: "sim", Angle: 12.5})
	resp, err = http.Get(srv.URL + "/api/tilt")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var got imu.Reading
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatal(err)
	}
	if got.Angle != 12.5 || got.Source != "sim" {
		t.Errorf("got %+v", got)
	}
}

func TestTiltWebsocketStream(t *testing.T) {
	hub := newTiltHub()
	srv := httptest.NewServer(hub.routes(""))
	defer srv.Close()

	hub.set(imu.Reading{Angle: 1})

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/tilt"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var first imu.Reading
	if err := conn.ReadJSON(&first); err != nil {
		t.Fatal(err)
	}
	if first.Angle != 1 {
		t.Errorf("first message angle = %v, want the latest reading", first.Angle)
	}

	hub.set(imu.Reading{Angle: 2})
	var second imu.Reading
	if err := conn.ReadJSON(&second); err != nil {
		t.Fatal(err)
	}
	if second.Angle != 2 {
		t.Errorf("second message angle = %v", second.Angle)
	}
}

func TestTiltHubUnsubscribe(t *testing.T) {
	hub := newTiltHub()
	_, unsubscribe := hub.subscribe()
	unsubscribe()
	hub.set(imu.Reading{})
	if len(hub.subs) != 0 {
		t.Errorf("%d subscribers left", len(hub.subs))
	}
}
