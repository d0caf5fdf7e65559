package qualagent

import (
	"fmt"
	"math"

	"github.com/golang/geo/s1"
	"github.com/rs/zerolog/log"
)

// normalizeYaw wraps an angular difference into (-pi, pi].
func normalizeYaw(a s1.Angle) s1.Angle {
	r := math.Mod(a.Radians(), 2*math.Pi)
	if r > math.Pi {
		r -= 2 * math.Pi
	} else if r <= -math.Pi {
		r += 2 * math.Pi
	}
	return s1.Angle(r)
}

// testIMU cross-checks the robot's gyroscope against the external camera
// estimator. Two samples are taken, with a full clockwise plus counter-
// clockwise turn in between so a drifting or mis-scaled gyro shows up as a
// discrepancy between the two (gyro yaw - vision yaw) differences.
//
// It returns false when the sub-test could not run to completion (estimator
// init failure or the check board never being recognized); either way the
// caller advances the stage, so a broken camera cannot stall the sequence.
func (s *Sequencer) testIMU(robot *Robot, firstCall bool) bool {
	if firstCall {
		s.cfg.Prompter.ShowPrompt(PromptInfo, "Gyroscope test",
			"Place the robot with the check board right below the camera")
	}

	if s.cfg.Estimator == nil {
		log.Error().Msg("no orientation estimator configured; aborting gyroscope test")
		s.cfg.Prompter.HidePrompt()
		return false
	}
	if err := s.cfg.Estimator.Init(s.cfg.CameraCalibrationFile, s.cfg.CameraDeviceIndex); err != nil {
		log.Error().Err(err).Msg("gyroscope test initialization failed; aborting test")
		s.cfg.Prompter.HidePrompt()
		return false
	}

	for i := 0; i < 2; i++ {
		var visionYaw s1.Angle
		sampled := false
		for j := 0; j < gyroPollAttempts; j++ {
			s.pumpFor(gyroPollInterval)
			yaw, ok := s.cfg.Estimator.SampleYaw()
			if ok {
				// Inverted: the camera looks down AT the robot.
				visionYaw = -s1.Angle(yaw)
				sampled = true
				s.cfg.Prompter.HidePrompt()
				break
			}
			s.cfg.Prompter.ShowPrompt(PromptWarn, "Gyroscope test",
				"Cannot recognize the check board; please place the robot right below the camera")
		}
		if !sampled {
			log.Error().Int("attempts", gyroPollAttempts).
				Msg("cannot recognize the check board; gyroscope test aborted")
			s.cfg.Prompter.HidePrompt()
			return false
		}

		gyroYaw := s1.Angle(robot.LastGyroYaw)
		diff := normalizeYaw(gyroYaw - visionYaw)
		log.Info().Int("sample", i+1).
			Str("imu_yaw", fmt.Sprintf("%.3f", gyroYaw.Radians())).
			Str("vo_yaw", fmt.Sprintf("%.3f", visionYaw.Radians())).
			Str("diff", fmt.Sprintf("%.3f", diff.Radians())).
			Msg("gyroscope test sample")

		robot.IMUSamples[i] = YawSample{GyroYaw: gyroYaw.Radians(), Diff: diff.Radians()}

		if i == 0 {
			// Full turn each way between the samples.
			s.moveBlocking(0, +testGyroW, secs(testGyroA/testGyroW))
			s.moveBlocking(0, -testGyroW, secs(testGyroA/testGyroW))
		}

		robot.AddValue(DevIMU)
		s.drainEvents()
	}

	discrepancy := math.Abs(robot.IMUSamples[0].Diff - robot.IMUSamples[1].Diff)
	if discrepancy <= s.cfg.GyroTolerance {
		log.Info().
			Str("diff_1", fmt.Sprintf("%.3f", robot.IMUSamples[0].Diff)).
			Str("diff_2", fmt.Sprintf("%.3f", robot.IMUSamples[1].Diff)).
			Msg("gyroscope testing successful")
		robot.MarkOK(DevIMU)
	} else {
		log.Warn().
			Str("diff_1", fmt.Sprintf("%.3f", robot.IMUSamples[0].Diff)).
			Str("diff_2", fmt.Sprintf("%.3f", robot.IMUSamples[1].Diff)).
			Msg("gyroscope testing failed")
	}

	s.cfg.Prompter.HidePrompt()
	return true
}
