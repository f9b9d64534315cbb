package app

import (
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/relabs-tech/forktilt/internal/config"
	"github.com/relabs-tech/forktilt/internal/imu"
	"github.com/relabs-tech/forktilt/internal/sensors"
)

// simManager opens a manager on the simulated device. A non-nil frame
// freezes the data registers.
func simManager(t *testing.T, frame *imu.Triple) *sensors.Manager {
	t.Helper()
	cfg := config.Default()
	cfg.UseSim = true
	m := sensors.NewManager()
	if err := m.Open(cfg); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { m.Close() })
	if frame != nil {
		m.Sim().SetFrame(*frame, 340, imu.NewTriple(1, 2, 3))
	}
	return m
}

type doneToken struct{ err error }

func (t doneToken) Wait() bool                     { return true }
func (t doneToken) WaitTimeout(time.Duration) bool { return true }
func (t doneToken) Error() error                   { return t.err }
func (t doneToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}

type published struct {
	topic    string
	retained bool
	payload  []byte
}

type fakePublisher struct {
	msgs []published
	err  error
}

func (p *fakePublisher) Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
	if p.err != nil {
		return doneToken{err: p.err}
	}
	p.msgs = append(p.msgs, published{topic: topic, retained: retained, payload: payload.([]byte)})
	return doneToken{}
}
