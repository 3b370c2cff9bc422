package turns_test

import (
	"testing"

	"github.com/cicerone-ai/cicerone/internal/turns"
	"github.com/cicerone-ai/cicerone/pkg/live"
)

func TestCommit_UserThenAgent(t *testing.T) {
	a := turns.New()
	a.AddDelta(live.SourceInput, "take me ")
	a.AddDelta(live.SourceInput, "to the river")
	a.AddDelta(live.SourceOutput, "Follow me ")
	a.AddDelta(live.SourceOutput, "down to the Thames. ")

	committed := a.Commit()
	if len(committed) != 2 {
		t.Fatalf("committed = %d messages; want 2", len(committed))
	}
	if committed[0].Role != turns.RoleUser || committed[0].Text != "take me to the river" {
		t.Errorf("first = %+v; want trimmed user message", committed[0])
	}
	if committed[1].Role != turns.RoleAgent || committed[1].Text != "Follow me down to the Thames." {
		t.Errorf("second = %+v; want trimmed agent message", committed[1])
	}

	history := a.History()
	if len(history) != 2 {
		t.Fatalf("history = %d; want 2", len(history))
	}
	if history[0].ID == history[1].ID {
		t.Error("messages should carry distinct IDs")
	}
}

func TestCommit_SkipsEmptySides(t *testing.T) {
	a := turns.New()
	a.AddDelta(live.SourceOutput, "Unprompted remark.")

	committed := a.Commit()
	if len(committed) != 1 {
		t.Fatalf("committed = %d; want 1", len(committed))
	}
	if committed[0].Role != turns.RoleAgent {
		t.Errorf("role = %v; want agent", committed[0].Role)
	}

	// Whitespace-only turns commit nothing.
	a.AddDelta(live.SourceInput, "   ")
	if committed := a.Commit(); len(committed) != 0 {
		t.Errorf("committed = %d; want 0 for whitespace-only turn", len(committed))
	}
}

func TestCommit_EmptyTurnIsNoop(t *testing.T) {
	a := turns.New()
	if committed := a.Commit(); len(committed) != 0 {
		t.Errorf("committed = %d; want 0", len(committed))
	}
	if len(a.History()) != 0 {
		t.Error("history should stay empty")
	}
}

func TestCitations_AttachToAgentMessage(t *testing.T) {
	a := turns.New()
	a.AddDelta(live.SourceOutput, "The bridge opened in 1894.")
	a.SetCitations([]live.Citation{{Title: "Tower Bridge", URI: "https://example.com/tb"}})

	committed := a.Commit()
	if len(committed) != 1 {
		t.Fatalf("committed = %d; want 1", len(committed))
	}
	if len(committed[0].Citations) != 1 || committed[0].Citations[0].Title != "Tower Bridge" {
		t.Errorf("citations = %+v", committed[0].Citations)
	}

	// Citations do not leak into the next turn.
	a.AddDelta(live.SourceOutput, "Next stop.")
	committed = a.Commit()
	if len(committed[0].Citations) != 0 {
		t.Errorf("citations leaked into next turn: %+v", committed[0].Citations)
	}
}

func TestReset_DiscardsOpenTurn(t *testing.T) {
	a := turns.New()
	a.AddDelta(live.SourceInput, "wait, actually")
	a.AddDelta(live.SourceOutput, "As I was saying")
	if !a.Pending() {
		t.Fatal("Pending should report buffered fragments")
	}

	a.Reset()

	if a.Pending() {
		t.Error("Pending should be false after Reset")
	}
	if committed := a.Commit(); len(committed) != 0 {
		t.Errorf("committed = %d after Reset; want 0", len(committed))
	}
}

func TestSeed_CommitsGreeting(t *testing.T) {
	a := turns.New()
	a.Seed("  Hello! Ready when you are.  ")

	history := a.History()
	if len(history) != 1 {
		t.Fatalf("history = %d; want 1", len(history))
	}
	if history[0].Role != turns.RoleAgent || history[0].Text != "Hello! Ready when you are." {
		t.Errorf("seeded = %+v", history[0])
	}

	a.Seed("")
	if len(a.History()) != 1 {
		t.Error("empty greeting should not commit")
	}
}

func TestMessages_DeliversCommits(t *testing.T) {
	a := turns.New()
	a.AddDelta(live.SourceInput, "hello")
	a.Commit()

	select {
	case msg := <-a.Messages():
		if msg.Text != "hello" {
			t.Errorf("message = %+v", msg)
		}
	default:
		t.Fatal("committed message not delivered on channel")
	}
}
