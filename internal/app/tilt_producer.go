package app

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/relabs-tech/forktilt/internal/config"
	"github.com/relabs-tech/forktilt/internal/imu"
	"github.com/relabs-tech/forktilt/internal/sensors"
)

// tiltSource is the part of sensors.Manager the producer drives.
type tiltSource interface {
	Update() (imu.Reading, error)
	LatestRaw() (imu.Raw, bool)
}

// RunTiltProducer updates the sensor every SAMPLE_INTERVAL and publishes the
// reading to TOPIC_TILT and the raw burst to TOPIC_IMU_RAW until ctx ends.
func RunTiltProducer(ctx context.Context) error {
	log.Info("starting forktilt tilt producer")

	cfg := config.Get()

	mgr := sensors.GetManager()
	if err := mgr.Open(cfg); err != nil {
		return err
	}
	defer mgr.Close()

	client, err := connectMQTT("producer", cfg.MQTTBroker, cfg.MQTTClientIDProducer)
	if err != nil {
		return err
	}
	defer client.Disconnect(mqttDisconnectQuiesce)

	log.Info("producer: starting publish loop")

	ticker := time.NewTicker(time.Duration(cfg.SampleInterval) * time.Millisecond)
	defer ticker.Stop()

	logEvery := time.Duration(cfg.ConsoleLogInterval) * time.Millisecond
	var lastLog time.Time

	for {
		select {
		case <-ctx.Done():
			log.Info("producer: shutting down")
			return nil
		case t := <-ticker.C:
			r, err := publishTick(mgr, client, cfg)
			if err != nil {
				log.Warnf("producer: %v", err)
				continue
			}
			if t.Sub(lastLog) >= logEvery {
				log.Info(TiltLine(r))
				lastLog = t
			}
		}
	}
}

// publishTick runs one driver update and publishes its results. A failed
// update publishes nothing so subscribers keep the last good reading.
func publishTick(src tiltSource, pub publisher, cfg *config.Config) (imu.Reading, error) {
	r, err := src.Update()
	if err != nil {
		return r, err
	}
	if err := publishJSON(pub, cfg.TopicTilt, r); err != nil {
		return r, err
	}
	if cfg.TopicIMURaw == "" {
		return r, nil
	}
	if raw, ok := src.LatestRaw(); ok {
		if err := publishJSON(pub, cfg.TopicIMURaw, raw); err != nil {
			return r, err
		}
	}
	return r, nil
}
