package qualagent

import (
	"github.com/rs/zerolog/log"
)

// Session owns the single robot-under-test and the append-only registry of
// robots already evaluated in this session. The registry is keyed by serial
// and never mutated after insertion; it backs the non-reevaluation rule.
type Session struct {
	underTest *Robot
	evaluated []*Robot
	bySerial  map[string]*Robot
	sinks     []RecordSink
}

// NewSession builds a session persisting finished records through sinks.
func NewSession(sinks []RecordSink) *Session {
	return &Session{
		bySerial: make(map[string]*Robot),
		sinks:    sinks,
	}
}

// UnderTest returns the robot currently being evaluated, or nil.
func (s *Session) UnderTest() *Robot { return s.underTest }

// Begin creates a fresh robot-under-test. A robot may only be created when
// none exists; callers must persist or discard the previous one first.
func (s *Session) Begin() *Robot {
	if s.underTest != nil {
		// Defensive: the online handler persists before calling Begin, so
		// reaching here means an interruption was not handled upstream.
		log.Warn().Str("serial", s.underTest.Serial).Msg("replacing unfinished robot under test")
	}
	s.underTest = NewRobot(len(s.evaluated))
	return s.underTest
}

// Known reports whether serial was already evaluated in this session.
func (s *Session) Known(serial string) bool {
	if serial == "" {
		return false
	}
	_, ok := s.bySerial[serial]
	return ok
}

// Discard drops the robot-under-test without adding a registry entry. Used
// when a previously evaluated serial comes online again.
func (s *Session) Discard() {
	s.underTest = nil
}

// Persist moves the robot-under-test into the evaluated registry and writes
// it to every sink. Sink failures are logged and never abort the session.
// It returns the persisted record, or nil when no robot was under test.
func (s *Session) Persist() *Robot {
	r := s.underTest
	if r == nil {
		return nil
	}
	log.Info().Str("serial", r.Serial).Bool("all_passed", r.AllOK()).Msg("saving evaluation results")

	s.evaluated = append(s.evaluated, r)
	if r.Serial != "" {
		s.bySerial[r.Serial] = r
	}
	for _, sink := range s.sinks {
		if err := sink.SaveRecord(r); err != nil {
			log.Error().Err(err).Str("serial", r.Serial).Msg("record sink save failed")
		}
	}
	s.underTest = nil
	return r
}

// EvaluatedCount returns the number of registry entries.
func (s *Session) EvaluatedCount() int { return len(s.evaluated) }

// Evaluated returns the registry in evaluation order. The returned slice is
// shared; callers must treat it as read-only.
func (s *Session) Evaluated() []*Robot { return s.evaluated }
