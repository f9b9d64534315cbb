// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/relabs-tech/forktilt/internal/config"
	"github.com/relabs-tech/forktilt/internal/imu"
	"github.com/relabs-tech/forktilt/internal/sensors"
	"github.com/relabs-tech/forktilt/internal/sensors/mpu6050"
)

// ---------- Data model (JSON output) ----------

type Vec3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

func vec3(t imu.Triple) Vec3 {
	return Vec3{X: float64(t.X), Y: float64(t.Y), Z: float64(t.Z)}
}

type PhaseStats struct {
	Samples int  `json:"samples"`
	Mean    Vec3 `json:"mean"`
	StdDev  Vec3 `json:"stddev"`
	Min     Vec3 `json:"min"`
	Max     Vec3 `json:"max"`
}

type ScalarStats struct {
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"stddev"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
}

// SurveyReport compares raw and filtered accelerometer output captured
// while the fork is held still. It is a noise characterisation only; nothing
// in it is fed back into the driver.
type SurveyReport struct {
	SchemaVersion int    `json:"schema_version"`
	SurveyAt      string `json:"survey_at"` // RFC3339
	Source        string `json:"source"`
	Filter        string `json:"filter"`
	AngleMode     string `json:"angle_mode"`

	DurationSec      float64 `json:"duration_sec"`
	SampleIntervalMS int     `json:"sample_interval_ms"`
	FailedUpdates    int     `json:"failed_updates"`

	RawAccel      PhaseStats  `json:"raw_accel"`
	FilteredAccel PhaseStats  `json:"filtered_accel"`
	Angle         ScalarStats `json:"angle_deg"`

	// raw stddev / filtered stddev per axis; 0 when the filtered stddev is 0
	NoiseReduction Vec3 `json:"noise_reduction"`

	Notes []string `json:"notes,omitempty"`
}

// ---------- Capture ----------

// surveySource is the part of sensors.Manager the survey drives.
type surveySource interface {
	Update() (imu.Reading, error)
	LatestRaw() (imu.Raw, bool)
}

// captureSurvey runs warmup+n updates, interval apart, and summarises the
// last n. Warm-up lets the rolling windows fill past their zero start.
func captureSurvey(ctx context.Context, src surveySource, warmup, n int, interval time.Duration) (SurveyReport, error) {
	start := time.Now()
	var (
		raw, filtered []Vec3
		angles        []float64
		last          imu.Reading
		failed        int
	)

	for i := 0; i < warmup+n; i++ {
		if i > 0 && interval > 0 {
			select {
			case <-ctx.Done():
				return SurveyReport{}, ctx.Err()
			case <-time.After(interval):
			}
		}
		r, err := src.Update()
		if err != nil {
			failed++
			log.Debugf("survey: update %d failed: %v", i, err)
			continue
		}
		if i < warmup {
			continue
		}
		rb, _ := src.LatestRaw()
		raw = append(raw, vec3(rb.Accel))
		filtered = append(filtered, vec3(r.Accel))
		angles = append(angles, r.Angle)
		last = r
	}
	if len(filtered) == 0 {
		return SurveyReport{}, fmt.Errorf("survey: all %d updates failed", n)
	}

	rep := SurveyReport{
		SchemaVersion:    1,
		SurveyAt:         start.Format(time.RFC3339),
		Source:           last.Source,
		Filter:           last.Filter,
		AngleMode:        last.Mode,
		DurationSec:      time.Since(start).Seconds(),
		SampleIntervalMS: int(interval / time.Millisecond),
		FailedUpdates:    failed,
		RawAccel:         computeStats(raw),
		FilteredAccel:    computeStats(filtered),
		Angle:            computeScalarStats(angles),
	}
	rep.NoiseReduction = Vec3{
		X: ratio(rep.RawAccel.StdDev.X, rep.FilteredAccel.StdDev.X),
		Y: ratio(rep.RawAccel.StdDev.Y, rep.FilteredAccel.StdDev.Y),
		Z: ratio(rep.RawAccel.StdDev.Z, rep.FilteredAccel.StdDev.Z),
	}
	if failed > 0 {
		rep.Notes = append(rep.Notes, fmt.Sprintf("%d of %d updates failed", failed, n))
	}
	if rep.Angle.StdDev > 2 {
		rep.Notes = append(rep.Notes, "angle moved during the survey; hold the fork still")
	}
	return rep, nil
}

// ---------- Stats helpers ----------

func computeStats(values []Vec3) PhaseStats {
	n := len(values)
	if n == 0 {
		return PhaseStats{}
	}
	xs := make([]float64, n)
	ys := make([]float64, n)
	zs := make([]float64, n)
	for i, v := range values {
		xs[i], ys[i], zs[i] = v.X, v.Y, v.Z
	}
	sx, sy, sz := computeScalarStats(xs), computeScalarStats(ys), computeScalarStats(zs)
	return PhaseStats{
		Samples: n,
		Mean:    Vec3{X: sx.Mean, Y: sy.Mean, Z: sz.Mean},
		StdDev:  Vec3{X: sx.StdDev, Y: sy.StdDev, Z: sz.StdDev},
		Min:     Vec3{X: sx.Min, Y: sy.Min, Z: sz.Min},
		Max:     Vec3{X: sx.Max, Y: sy.Max, Z: sz.Max},
	}
}

// computeScalarStats returns the population mean and standard deviation.
func computeScalarStats(xs []float64) ScalarStats {
	if len(xs) == 0 {
		return ScalarStats{}
	}
	st := ScalarStats{Min: math.Inf(1), Max: math.Inf(-1)}
	for _, v := range xs {
		st.Mean += v
		st.Min = math.Min(st.Min, v)
		st.Max = math.Max(st.Max, v)
	}
	st.Mean /= float64(len(xs))
	var s float64
	for _, v := range xs {
		d := v - st.Mean
		s += d * d
	}
	st.StdDev = math.Sqrt(s / float64(len(xs)))
	return st
}

func ratio(a, b float64) float64 {
	if b == 0 {
		return 0
	}
	return a / b
}

// ---------- Output ----------

func writeSurvey(dir string, rep SurveyReport) (string, error) {
	ts := time.Now().Format("2006-01-02T15-04-05Z07-00")
	name := filepath.Join(dir, fmt.Sprintf("%s_%s_%s_survey.json", rep.Source, rep.Filter, ts))

	b, err := json.MarshalIndent(rep, "", "  ")
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(name, b, 0o644); err != nil {
		return "", err
	}
	return name, nil
}

// RunSurvey samples the sensor for SURVEY_DURATION seconds at
// SAMPLE_INTERVAL and writes a JSON noise report into dir.
func RunSurvey(ctx context.Context, dir string) error {
	cfg := config.Get()

	mgr := sensors.GetManager()
	if err := mgr.Open(cfg); err != nil {
		return err
	}
	defer mgr.Close()

	interval := time.Duration(cfg.SampleInterval) * time.Millisecond
	n := max(1, cfg.SurveyDuration*1000/cfg.SampleInterval)
	log.Infof("survey: capturing %d samples over %ds with the %s filter, keep the fork still",
		n, cfg.SurveyDuration, cfg.Filter)

	warmup := 0
	if cfg.Filter == mpu6050.FilterRolling {
		warmup = mpu6050.WindowSize
	}
	rep, err := captureSurvey(ctx, mgr, warmup, n, interval)
	if err != nil {
		return err
	}
	name, err := writeSurvey(dir, rep)
	if err != nil {
		return fmt.Errorf("survey: write report: %w", err)
	}

	fmt.Printf("raw accel      stddev x=%8.2f y=%8.2f z=%8.2f\n", rep.RawAccel.StdDev.X, rep.RawAccel.StdDev.Y, rep.RawAccel.StdDev.Z)
	fmt.Printf("filtered accel stddev x=%8.2f y=%8.2f z=%8.2f\n", rep.FilteredAccel.StdDev.X, rep.FilteredAccel.StdDev.Y, rep.FilteredAccel.StdDev.Z)
	fmt.Printf("angle mean=%.2f stddev=%.3f\n", rep.Angle.Mean, rep.Angle.StdDev)
	for _, note := range rep.Notes {
		fmt.Printf("note: %s\n", note)
	}
	fmt.Printf("\nWrote: %s\n", name)
	return nil
}
