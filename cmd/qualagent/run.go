package main

import (
	"os/signal"
	"syscall"

	qualagent "github.com/factorymate/QualAgent"
	"github.com/factorymate/QualAgent/internal/config"
	"github.com/factorymate/QualAgent/pkg/report"
	"github.com/factorymate/QualAgent/pkg/serialbus"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func newRunCmd() *cobra.Command {
	var (
		flagPort        string
		flagBaud        int
		flagCSV         string
		flagDB          string
		flagCameraIndex int
		flagCalibration string
		flagFrequency   float64
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the acceptance protocol against a connected robot",
		RunE: func(cmd *cobra.Command, args []string) error {
			csvSink, err := report.NewCSVSink(flagCSV)
			if err != nil {
				return err
			}
			dbSink, err := report.NewSQLiteSink(flagDB)
			if err != nil {
				return err
			}
			defer dbSink.Close()

			queue := qualagent.NewEventQueue(config.Int("QUAL_QUEUE_SIZE", 0))
			bus, err := serialbus.NewBus(serialbus.Config{
				Port: flagPort,
				Baud: flagBaud,
			}, queue)
			if err != nil {
				return err
			}

			seq, err := qualagent.NewSequencer(qualagent.Config{
				Frequency:             flagFrequency,
				Queue:                 queue,
				CameraDeviceIndex:     flagCameraIndex,
				CameraCalibrationFile: flagCalibration,
				Commander:             bus,
				Prompter:              logPrompter{},
				Sinks:                 []qualagent.RecordSink{csvSink, dbSink},
			})
			if err != nil {
				return err
			}

			if err := bus.Connect(); err != nil {
				return err
			}
			defer bus.Disconnect()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			log.Info().
				Str("port", flagPort).
				Str("csv", flagCSV).
				Str("db", flagDB).
				Msg("starting acceptance evaluation")
			return seq.Run(ctx)
		},
	}

	cmd.Flags().StringVar(&flagPort, "port", config.String("QUAL_SERIAL_PORT", "/dev/ttyUSB0"), "Serial port of the robot base")
	cmd.Flags().IntVar(&flagBaud, "baud", config.Int("QUAL_SERIAL_BAUD", 115200), "Serial baud rate")
	cmd.Flags().StringVar(&flagCSV, "out", config.String("QUAL_REPORT_CSV", "evaluations.csv"), "CSV report file")
	cmd.Flags().StringVar(&flagDB, "db", config.String("QUAL_REPORT_DB", "evaluations.db"), "Sqlite audit database")
	cmd.Flags().IntVar(&flagCameraIndex, "camera-index", config.Int("QUAL_CAMERA_INDEX", 0), "Video device index of the ceiling camera")
	cmd.Flags().StringVar(&flagCalibration, "calibration", config.String("QUAL_CAMERA_CALIBRATION", ""), "Camera calibration file for the gyro cross-check")
	cmd.Flags().Float64Var(&flagFrequency, "frequency", config.Float("QUAL_FREQUENCY", 0), "Driver tick rate in Hz (0 = default)")

	return cmd
}

// logPrompter surfaces operator instructions on the console log. Confirmation
// travels back through the robot's own function buttons.
type logPrompter struct{}

func (logPrompter) ShowPrompt(level qualagent.PromptLevel, title, message string) {
	ev := log.Info()
	switch level {
	case qualagent.PromptWarn:
		ev = log.Warn()
	case qualagent.PromptError:
		ev = log.Error()
	}
	ev.Str("title", title).Msg(message)
}

func (logPrompter) HidePrompt() {}
