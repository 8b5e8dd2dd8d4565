package agent

import (
	"fmt"
	"testing"

	"github.com/TreasureProject/voxagent/internal/gateway"
)

func TestSessionAppendAndHistory(t *testing.T) {
	t.Parallel()
	s := NewSession(10)

	s.AppendUser("hello")
	s.AppendAssistant("hi there")

	got := s.History()
	if len(got) != 2 {
		t.Fatalf("history length = %d, want 2", len(got))
	}
	if got[0] != (gateway.Turn{Role: gateway.RoleUser, Content: "hello"}) {
		t.Errorf("turn 0 = %+v", got[0])
	}
	if got[1] != (gateway.Turn{Role: gateway.RoleAssistant, Content: "hi there"}) {
		t.Errorf("turn 1 = %+v", got[1])
	}
}

func TestSessionHistoryIsASnapshot(t *testing.T) {
	t.Parallel()
	s := NewSession(10)
	s.AppendUser("one")

	snap := s.History()
	s.AppendAssistant("two")

	if len(snap) != 1 {
		t.Fatalf("snapshot grew to %d entries", len(snap))
	}
	snap[0].Content = "mutated"
	if s.History()[0].Content != "one" {
		t.Error("mutating the snapshot changed the session")
	}
}

func TestSessionEvictsOldestBeyondCap(t *testing.T) {
	t.Parallel()
	s := NewSession(4)

	for i := 0; i < 6; i++ {
		s.AppendUser(fmt.Sprintf("u%d", i))
		s.AppendAssistant(fmt.Sprintf("a%d", i))
	}

	got := s.History()
	if len(got) != 4 {
		t.Fatalf("history length = %d, want 4", len(got))
	}
	if got[0].Content != "u4" || got[3].Content != "a5" {
		t.Errorf("retained window = %+v, want u4..a5", got)
	}
}

func TestSessionZeroCapFallsBackToDefault(t *testing.T) {
	t.Parallel()
	s := NewSession(0)
	if s.maxTurns != DefaultMaxTurns {
		t.Errorf("maxTurns = %d, want %d", s.maxTurns, DefaultMaxTurns)
	}
}

func TestSessionReset(t *testing.T) {
	t.Parallel()
	s := NewSession(10)
	s.AppendUser("hello")
	s.Reset()
	if s.Len() != 0 {
		t.Errorf("Len = %d after Reset, want 0", s.Len())
	}
}
