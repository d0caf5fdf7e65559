package main

import (
	"os"

	"github.com/factorymate/QualAgent/internal/envload"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "qualagent",
	Short: "Factory acceptance evaluation driver for the mobile robot base",
	Long: `qualagent drives the full factory acceptance protocol over the robot's
serial link: device discovery, LED/sound checks, button, bumper, wheel drop
and cliff sensors, motor current, gyroscope cross-check, charge measurement
and the I/O board tests. Results are appended to a CSV report and a sqlite
audit database.`,
}

func init() {
	output := zerolog.ConsoleWriter{Out: os.Stderr}
	log.Logger = zerolog.New(output).With().Timestamp().Logger()
	rootCmd.AddCommand(newRunCmd())
	_ = envload.Ensure()
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatal().Err(err).Msg("qualagent command failed")
	}
}
