package tui

import (
	"bytes"
	"strings"
	"testing"

	"github.com/san-kum/conservation/internal/sim"
)

func TestLiveRendererDrawsEveryStep(t *testing.T) {
	var buf bytes.Buffer
	r := NewLiveRenderer(&buf, "conservation-v0", 1, 0)

	r.OnStep(sim.Row{Time: 0, State: 1, Reward: 1})
	r.OnStep(sim.Row{Time: 1, State: 2, Reward: 2})

	out := buf.String()
	if got := strings.Count(out, clearScreen); got != 2 {
		t.Fatalf("expected 2 frames, got %d", got)
	}
	if !strings.Contains(out, "rep=0 year=1") {
		t.Errorf("missing header in %q", out)
	}
	if !strings.Contains(out, "state=2.0000") {
		t.Error("missing state line")
	}
}

func TestLiveRendererLevels(t *testing.T) {
	r := NewLiveRenderer(&bytes.Buffer{}, "x", 1, 0)
	if got := r.level(2); got != 0 {
		t.Errorf("2K should map to the top row, got %d", got)
	}
	if got := r.level(0); got != height-1 {
		t.Errorf("zero should map to the bottom row, got %d", got)
	}
	if got := r.level(10); got != 0 {
		t.Errorf("values above 2K should be pinned, got %d", got)
	}
}

func TestLiveRendererResetsTrailPerRep(t *testing.T) {
	r := NewLiveRenderer(&bytes.Buffer{}, "x", 1, 0)
	r.OnStep(sim.Row{Rep: 0, State: 1})
	r.OnStep(sim.Row{Rep: 0, State: 1})
	r.OnStep(sim.Row{Rep: 1, State: 0, Done: true})
	if len(r.trail) != 1 {
		t.Errorf("expected trail of the new rep only, got %d rows", len(r.trail))
	}
	if r.canvas[height-1][0] != 'X' {
		t.Errorf("collapse should be marked, got %q", r.canvas[height-1][0])
	}
}

func TestLiveRendererCursor(t *testing.T) {
	var buf bytes.Buffer
	r := NewLiveRenderer(&buf, "x", 1, 30)
	r.Start()
	r.Stop()
	if buf.String() != hideCursor+showCursor {
		t.Errorf("unexpected cursor sequence %q", buf.String())
	}
}
