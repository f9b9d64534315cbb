package app

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/relabs-tech/forktilt/internal/config"
	"github.com/relabs-tech/forktilt/internal/imu"
)

// RunConsoleMQTT prints every tilt reading and raw burst published on the
// broker until ctx ends.
func RunConsoleMQTT(ctx context.Context) error {
	cfg := config.Get()

	client, err := connectMQTT("console", cfg.MQTTBroker, cfg.MQTTClientIDConsole)
	if err != nil {
		return err
	}
	defer client.Disconnect(mqttDisconnectQuiesce)

	if err := subscribeJSON(client, "console", cfg.TopicTilt, func(r imu.Reading) {
		fmt.Println(TiltLine(r))
	}); err != nil {
		return err
	}
	if cfg.TopicIMURaw != "" {
		if err := subscribeJSON(client, "console", cfg.TopicIMURaw, func(r imu.Raw) {
			fmt.Println(RawLine(r))
		}); err != nil {
			return err
		}
	}

	<-ctx.Done()
	log.Info("console: shutting down")
	return nil
}
