package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"

	"github.com/relabs-tech/forktilt/internal/config"
	"github.com/relabs-tech/forktilt/internal/imu"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // dashboard is served from the same host on another port
	},
}

const wsWriteTimeout = 5 * time.Second

// tiltHub keeps the latest reading and fans new ones out to websocket
// clients. Slow clients miss readings rather than block the MQTT callback.
type tiltHub struct {
	mu   sync.RWMutex
	last imu.Reading
	have bool
	subs map[chan imu.Reading]struct{}
}

func newTiltHub() *tiltHub {
	return &tiltHub{subs: make(map[chan imu.Reading]struct{})}
}

func (h *tiltHub) set(r imu.Reading) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.last = r
	h.have = true
	for ch := range h.subs {
		select {
		case ch <- r:
		default:
		}
	}
}

func (h *tiltHub) latest() (imu.Reading, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.last, h.have
}

func (h *tiltHub) subscribe() (<-chan imu.Reading, func()) {
	ch := make(chan imu.Reading, 8)
	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()
	return ch, func() {
		h.mu.Lock()
		delete(h.subs, ch)
		h.mu.Unlock()
	}
}

func (h *tiltHub) handleAPI(w http.ResponseWriter, r *http.Request) {
	last, ok := h.latest()
	if !ok {
		http.Error(w, "no data yet", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(last); err != nil {
		log.Warnf("web: json encode error: %v", err)
	}
}

func (h *tiltHub) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warnf("web: websocket upgrade error: %v", err)
		return
	}
	defer conn.Close()

	ch, unsubscribe := h.subscribe()
	defer unsubscribe()

	// Reads only detect the client going away.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	if last, ok := h.latest(); ok {
		if err := writeJSON(conn, last); err != nil {
			return
		}
	}
	for {
		select {
		case <-gone:
			return
		case <-r.Context().Done():
			return
		case reading := <-ch:
			if err := writeJSON(conn, reading); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					log.Debugf("web: websocket write: %v", err)
				}
				return
			}
		}
	}
}

func writeJSON(conn *websocket.Conn, v any) error {
	conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	return conn.WriteJSON(v)
}

func (h *tiltHub) routes(staticDir string) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/tilt", h.handleAPI)
	mux.HandleFunc("/ws/tilt", h.handleWS)
	if staticDir != "" {
		mux.Handle("/", http.FileServer(http.Dir(staticDir)))
	}
	return mux
}

// RunWeb subscribes to TOPIC_TILT and serves the latest reading as JSON at
// /api/tilt, a live stream at /ws/tilt and the dashboard from ./web.
func RunWeb(ctx context.Context) error {
	cfg := config.Get()
	hub := newTiltHub()

	client, err := connectMQTT("web", cfg.MQTTBroker, cfg.MQTTClientIDWeb)
	if err != nil {
		return err
	}
	defer client.Disconnect(mqttDisconnectQuiesce)

	if err := subscribeJSON(client, "web", cfg.TopicTilt, hub.set); err != nil {
		return err
	}

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.WebServerPort),
		Handler: hub.routes("web"),
	}
	return serveUntilDone(ctx, "web", srv)
}

// serveUntilDone runs srv and shuts it down when ctx ends.
func serveUntilDone(ctx context.Context, component string, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		log.Infof("%s: listening on %s", component, srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("%s: %w", component, err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("%s: shutdown: %w", component, err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("%s: %w", component, err)
	}
	log.Infof("%s: stopped", component)
	return nil
}
