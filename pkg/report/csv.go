package report

import (
	"encoding/csv"
	"os"
	"strconv"
	"time"

	qualagent "github.com/factorymate/QualAgent"
	"github.com/pkg/errors"
)

// CSVSink appends one row per evaluated robot to a CSV file. The header is
// written when the file is created; rows are flushed per record so a crash
// never loses finished robots.
type CSVSink struct {
	path string
}

// NewCSVSink builds a sink writing to path.
func NewCSVSink(path string) (*CSVSink, error) {
	if path == "" {
		return nil, errors.New("report: csv path cannot be empty")
	}
	return &CSVSink{path: path}, nil
}

// SaveRecord appends the record to the CSV file.
func (s *CSVSink) SaveRecord(r *qualagent.Robot) error {
	info, statErr := os.Stat(s.path)
	writeHeader := statErr != nil || info.Size() == 0

	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return errors.Wrap(err, "report: open csv file failed")
	}
	defer f.Close()

	w := csv.NewWriter(f)
	rec := newRow(r)

	if writeHeader {
		header := []string{"evaluated_at", "robot_id", "serial", "hardware", "firmware", "software", "health", "all_passed"}
		for _, dev := range rec.Devices {
			name := dev.Device.String()
			header = append(header, name+"_value", name+"_ok")
		}
		if err := w.Write(header); err != nil {
			return errors.Wrap(err, "report: write csv header failed")
		}
	}

	fields := []string{
		rec.EvaluatedAt.Format(time.RFC3339),
		strconv.Itoa(rec.RobotID),
		rec.Serial,
		strconv.FormatUint(uint64(rec.Hardware), 10),
		strconv.FormatUint(uint64(rec.Firmware), 10),
		strconv.FormatUint(uint64(rec.Software), 10),
		rec.Health,
		boolMark(rec.AllPassed),
	}
	for _, dev := range rec.Devices {
		fields = append(fields, itoa64(dev.Value), boolMark(dev.OK))
	}
	if err := w.Write(fields); err != nil {
		return errors.Wrap(err, "report: write csv row failed")
	}
	w.Flush()
	return errors.Wrap(w.Error(), "report: flush csv failed")
}
