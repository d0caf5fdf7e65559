package report

import (
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	qualagent "github.com/factorymate/QualAgent"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"
)

const (
	sqliteBusyRetries  = 5
	sqliteRetryBackoff = 120 * time.Millisecond
)

const createEvaluationsTable = `
CREATE TABLE IF NOT EXISTS evaluations (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	evaluated_at TEXT NOT NULL,
	robot_id INTEGER NOT NULL,
	serial TEXT NOT NULL,
	hardware INTEGER NOT NULL,
	firmware INTEGER NOT NULL,
	software INTEGER NOT NULL,
	health TEXT NOT NULL,
	all_passed INTEGER NOT NULL,
	devices TEXT NOT NULL,
	diagnostics TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_evaluations_serial ON evaluations(serial);
`

// SQLiteSink stores evaluation records in a sqlite database for audit.
type SQLiteSink struct {
	db *sql.DB
}

// NewSQLiteSink opens (or creates) the database at path and ensures the
// evaluations table exists.
func NewSQLiteSink(path string) (*SQLiteSink, error) {
	if path == "" {
		return nil, errors.New("report: sqlite path cannot be empty")
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrap(err, "report: open sqlite database failed")
	}
	// sqlite serializes writers; one connection keeps lock contention down.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(createEvaluationsTable); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "report: create evaluations table failed")
	}
	return &SQLiteSink{db: db}, nil
}

// Close releases the underlying database handle.
func (s *SQLiteSink) Close() error {
	return s.db.Close()
}

// SaveRecord inserts one evaluation row.
func (s *SQLiteSink) SaveRecord(r *qualagent.Robot) error {
	rec := newRow(r)
	devices, err := json.Marshal(rec.Devices)
	if err != nil {
		return errors.Wrap(err, "report: marshal device results failed")
	}
	passed := 0
	if rec.AllPassed {
		passed = 1
	}
	return s.execWithRetry(
		`INSERT INTO evaluations
			(evaluated_at, robot_id, serial, hardware, firmware, software, health, all_passed, devices, diagnostics)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.EvaluatedAt.Format(time.RFC3339), rec.RobotID, rec.Serial,
		rec.Hardware, rec.Firmware, rec.Software, rec.Health, passed,
		string(devices), rec.Diagnostics,
	)
}

// CountBySerial reports how many evaluations were stored for a serial.
func (s *SQLiteSink) CountBySerial(serial string) (int, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM evaluations WHERE serial = ?`, serial).Scan(&count)
	if err != nil {
		return 0, errors.Wrap(err, "report: count evaluations failed")
	}
	return count, nil
}

func (s *SQLiteSink) execWithRetry(query string, args ...any) error {
	var err error
	for attempt := 0; attempt < sqliteBusyRetries; attempt++ {
		_, err = s.db.Exec(query, args...)
		if err == nil {
			return nil
		}
		if !isSQLiteBusy(err) {
			return errors.Wrap(err, "report: sqlite exec failed")
		}
		log.Warn().Err(err).Int("attempt", attempt+1).Msg("sqlite busy, retrying")
		time.Sleep(sqliteRetryBackoff)
	}
	return errors.Wrap(err, "report: sqlite exec failed after retries")
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "busy")
}
