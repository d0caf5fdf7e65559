// Package report persists finished robot evaluation records. Two sinks are
// provided: an operator-facing CSV file and a sqlite table kept for later
// audit of the session.
package report

import (
	"strconv"
	"time"

	qualagent "github.com/factorymate/QualAgent"
)

// row flattens a robot record into the persisted column set.
type row struct {
	EvaluatedAt time.Time
	RobotID     int
	Serial      string
	Firmware    uint32
	Hardware    uint32
	Software    uint32
	Health      string
	AllPassed   bool
	Devices     []qualagent.DeviceResult
	Diagnostics string
}

func newRow(r *qualagent.Robot) row {
	return row{
		EvaluatedAt: time.Now(),
		RobotID:     r.ID,
		Serial:      r.Serial,
		Firmware:    r.Version.Firmware,
		Hardware:    r.Version.Hardware,
		Software:    r.Version.Software,
		Health:      r.Health.String(),
		AllPassed:   r.AllOK(),
		Devices:     r.Results(),
		Diagnostics: r.Diagnostics,
	}
}

func boolMark(ok bool) string {
	if ok {
		return "1"
	}
	return "0"
}

func itoa64(v int64) string {
	return strconv.FormatInt(v, 10)
}
