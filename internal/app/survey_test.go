package app

import (
	"context"
	"encoding/json"
	"os"
	"testing"

	"github.com/relabs-tech/forktilt/internal/imu"
	"github.com/relabs-tech/forktilt/internal/sensors/mpu6050"
)

func TestComputeScalarStats(t *testing.T) {
	st := computeScalarStats([]float64{2, 4, 4, 4, 5, 5, 7, 9})
	if st.Mean != 5 || st.StdDev != 2 || st.Min != 2 || st.Max != 9 {
		t.Errorf("stats = %+v", st)
	}
	if (computeScalarStats(nil) != ScalarStats{}) {
		t.Error("empty input should give zero stats")
	}
}

func TestSurveyStillFrame(t *testing.T) {
	frame := imu.NewTriple(-100, 200, 4096)
	m := simManager(t, &frame)

	rep, err := captureSurvey(context.Background(), m, mpu6050.WindowSize, 20, 0)
	if err != nil {
		t.Fatal(err)
	}
	want := Vec3{X: -100, Y: 200, Z: 4096}
	for name, st := range map[string]PhaseStats{"raw": rep.RawAccel, "filtered": rep.FilteredAccel} {
		if st.Samples != 20 || st.Mean != want || st.Min != want || st.Max != want {
			t.Errorf("%s stats = %+v", name, st)
		}
		if st.StdDev != (Vec3{}) {
			t.Errorf("%s stddev = %+v", name, st.StdDev)
		}
	}
	if rep.Source != "sim" || rep.Filter != "rolling" || rep.FailedUpdates != 0 {
		t.Errorf("report header = %+v", rep)
	}
	if rep.NoiseReduction != (Vec3{}) {
		t.Errorf("noise reduction without noise = %+v", rep.NoiseReduction)
	}
}

func TestSurveyFilterReducesNoise(t *testing.T) {
	m := simManager(t, nil)
	rep, err := captureSurvey(context.Background(), m, mpu6050.WindowSize, 300, 0)
	if err != nil {
		t.Fatal(err)
	}
	if rep.FilteredAccel.StdDev.Z >= rep.RawAccel.StdDev.Z {
		t.Errorf("filtered stddev %v not below raw %v", rep.FilteredAccel.StdDev.Z, rep.RawAccel.StdDev.Z)
	}
	if rep.NoiseReduction.Z <= 1 {
		t.Errorf("noise reduction = %v", rep.NoiseReduction.Z)
	}
}

func TestSurveyCountsFailures(t *testing.T) {
	m := simManager(t, &imu.Triple{})
	m.Sim().Fail(3, nil)
	rep, err := captureSurvey(context.Background(), m, 0, 10, 0)
	if err != nil {
		t.Fatal(err)
	}
	if rep.FailedUpdates != 3 || rep.RawAccel.Samples != 7 || len(rep.Notes) == 0 {
		t.Errorf("report = %+v", rep)
	}

	m.Sim().Fail(5, nil)
	if _, err := captureSurvey(context.Background(), m, 0, 5, 0); err == nil {
		t.Error("expected error when every update fails")
	}
}

func TestWriteSurvey(t *testing.T) {
	dir := t.TempDir()
	rep := SurveyReport{SchemaVersion: 1, Source: "sim", Filter: "block"}
	name, err := writeSurvey(dir, rep)
	if err != nil {
		t.Fatal(err)
	}
	b, err := os.ReadFile(name)
	if err != nil {
		t.Fatal(err)
	}
	var got SurveyReport
	if err := json.Unmarshal(b, &got); err != nil {
		t.Fatal(err)
	}
	if got.Source != "sim" || got.Filter != "block" {
		t.Errorf("got %+v", got)
	}
}
