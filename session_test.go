package qualagent

import (
	"testing"

	"github.com/pkg/errors"
)

func TestSessionPersistMovesToRegistry(t *testing.T) {
	sink := &stubSink{}
	s := NewSession([]RecordSink{sink})

	r := s.Begin()
	r.Serial = "S1"

	saved := s.Persist()
	if saved != r {
		t.Fatal("Persist did not return the robot under test")
	}
	if s.UnderTest() != nil {
		t.Error("robot still under test after persist")
	}
	if s.EvaluatedCount() != 1 {
		t.Errorf("registry has %d entries, want 1", s.EvaluatedCount())
	}
	if !s.Known("S1") {
		t.Error("persisted serial not known")
	}
	if len(sink.saved) != 1 || sink.saved[0] != r {
		t.Error("sink did not receive the record")
	}
}

func TestSessionSinkFailureDoesNotAbort(t *testing.T) {
	failing := &stubSink{err: errors.New("disk full")}
	ok := &stubSink{}
	s := NewSession([]RecordSink{failing, ok})

	s.Begin().Serial = "S1"
	if s.Persist() == nil {
		t.Fatal("persist aborted on sink failure")
	}
	if len(ok.saved) != 1 {
		t.Error("later sink skipped after earlier failure")
	}
	if !s.Known("S1") {
		t.Error("registry entry missing after sink failure")
	}
}

func TestSessionDiscard(t *testing.T) {
	s := NewSession(nil)
	s.Begin().Serial = "S1"
	s.Discard()
	if s.UnderTest() != nil {
		t.Error("robot still under test after discard")
	}
	if s.Known("S1") {
		t.Error("discarded robot must not enter the registry")
	}
	if s.EvaluatedCount() != 0 {
		t.Error("discard must not grow the registry")
	}
}

func TestSessionRobotIDsFollowRegistry(t *testing.T) {
	s := NewSession(nil)
	first := s.Begin()
	s.Persist()
	second := s.Begin()
	if first.ID != 0 || second.ID != 1 {
		t.Errorf("ids = %d, %d; want 0, 1", first.ID, second.ID)
	}
}

func TestSessionEmptySerialNeverKnown(t *testing.T) {
	s := NewSession(nil)
	s.Begin()
	s.Persist()
	if s.Known("") {
		t.Error("empty serial must never match the registry")
	}
}
