package qualagent

import (
	"math"
	"testing"

	"github.com/golang/geo/s1"
)

func TestNormalizeYaw(t *testing.T) {
	cases := []struct {
		in   float64
		want float64
	}{
		{0, 0},
		{math.Pi, math.Pi},
		{-math.Pi, math.Pi},
		{3 * math.Pi, math.Pi},
		{-3 * math.Pi, math.Pi},
		{2 * math.Pi, 0},
		{-2*math.Pi - 0.5, -0.5},
		{math.Pi + 0.5, -math.Pi + 0.5},
		{7 * math.Pi / 2, -math.Pi / 2},
	}
	for _, c := range cases {
		got := normalizeYaw(s1.Angle(c.in)).Radians()
		if math.Abs(got-c.want) > 1e-9 {
			t.Errorf("normalizeYaw(%v) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestNormalizeYawRange(t *testing.T) {
	for in := -25.0; in <= 25.0; in += 0.37 {
		got := normalizeYaw(s1.Angle(in)).Radians()
		if got <= -math.Pi || got > math.Pi {
			t.Fatalf("normalizeYaw(%v) = %v, outside (-pi, pi]", in, got)
		}
	}
}

func TestIMUConsistentSamplesPass(t *testing.T) {
	est := &stubEstimator{}
	est.samples = append(est.samples, struct {
		yaw float64
		ok  bool
	}{yaw: -0.5, ok: true})

	seq, cmd, _ := newTestSequencer(t, Config{Estimator: est})
	robot := beginRobot(seq)
	robot.LastGyroYaw = 0.5

	if !seq.testIMU(robot, true) {
		t.Fatal("sub-test did not run to completion")
	}
	if !robot.OK(DevIMU) {
		t.Error("consistent samples did not pass")
	}
	if robot.Value(DevIMU) != 2 {
		t.Errorf("sample count = %d, want 2", robot.Value(DevIMU))
	}
	// The turn between samples was actually commanded.
	spins := 0
	for _, d := range cmd.drives {
		if d[1] != 0 {
			spins++
		}
	}
	if spins < 2 {
		t.Errorf("only %d spin commands recorded", spins)
	}
}

func TestIMUDriftingGyroFails(t *testing.T) {
	est := &stubEstimator{}
	est.samples = append(est.samples,
		struct {
			yaw float64
			ok  bool
		}{yaw: -0.5, ok: true},
		struct {
			yaw float64
			ok  bool
		}{yaw: -0.8, ok: true},
	)

	seq, _, _ := newTestSequencer(t, Config{Estimator: est})
	robot := beginRobot(seq)
	robot.LastGyroYaw = 0.5

	if !seq.testIMU(robot, true) {
		t.Fatal("sub-test did not run to completion")
	}
	if robot.OK(DevIMU) {
		t.Error("drifting gyro passed the cross-check")
	}
	if robot.Value(DevIMU) != 2 {
		t.Errorf("sample count = %d, want 2", robot.Value(DevIMU))
	}
}

func TestIMUAbortsWithoutEstimator(t *testing.T) {
	seq, _, _ := newTestSequencer(t, Config{})
	robot := beginRobot(seq)

	if seq.testIMU(robot, true) {
		t.Error("sub-test claimed completion without an estimator")
	}
	if robot.OK(DevIMU) || robot.Value(DevIMU) != 0 {
		t.Error("aborted sub-test recorded progress")
	}
}

func TestIMUBoardNeverRecognized(t *testing.T) {
	est := &stubEstimator{}
	est.samples = append(est.samples, struct {
		yaw float64
		ok  bool
	}{yaw: 0, ok: false})

	seq, _, prompter := newTestSequencer(t, Config{Estimator: est})
	robot := beginRobot(seq)

	if seq.testIMU(robot, true) {
		t.Error("sub-test claimed completion without a board fix")
	}
	if robot.OK(DevIMU) {
		t.Error("unrecognized board passed")
	}
	if est.calls != gyroPollAttempts {
		t.Errorf("polled %d times, want %d", est.calls, gyroPollAttempts)
	}
	if prompter.count("Gyroscope test") < 2 {
		t.Error("operator not asked to reposition the robot")
	}
}
