// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/relabs-tech/forktilt/internal/config"
	"github.com/relabs-tech/forktilt/internal/sensors"
)

// RunMockConsole runs the real driver against the simulated device and
// prints every reading. No broker or hardware is needed.
func RunMockConsole(ctx context.Context) error {
	cfg := *config.Get()
	cfg.UseSim = true

	mgr := sensors.NewManager()
	if err := mgr.Open(&cfg); err != nil {
		return err
	}
	defer mgr.Close()

	ticker := time.NewTicker(time.Duration(cfg.SampleInterval) * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			r, err := mgr.Update()
			if err != nil {
				log.Warnf("mock: update: %v", err)
				continue
			}
			fmt.Println(TiltLine(r))
		}
	}
}
