package system

import (
	"errors"
	"testing"
	"time"
)

type probe struct {
	phase Phase
	name  string
	log   *[]string
	err   error
}

func (p *probe) Phase() Phase { return p.phase }

func (p *probe) Update(time.Duration) error {
	*p.log = append(*p.log, p.name)
	return p.err
}

func TestRunner_PhaseOrder(t *testing.T) {
	var log []string
	r := NewRunner()
	r.Register(&probe{phase: PhaseCleanup, name: "cleanup", log: &log})
	r.Register(&probe{phase: PhaseRender, name: "render", log: &log})
	r.Register(&probe{phase: PhaseInput, name: "input", log: &log})
	r.Register(&probe{phase: PhaseUpdate, name: "update-a", log: &log})
	r.Register(&probe{phase: PhaseUpdate, name: "update-b", log: &log})

	if err := r.Tick(time.Millisecond); err != nil {
		t.Fatalf("tick: %v", err)
	}
	want := []string{"input", "update-a", "update-b", "render", "cleanup"}
	if len(log) != len(want) {
		t.Fatalf("expected %v, got %v", want, log)
	}
	for i := range want {
		if log[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, log)
		}
	}
	if r.Frame() != 1 {
		t.Errorf("expected frame 1, got %d", r.Frame())
	}
}

func TestRunner_ErrorStopsFrame(t *testing.T) {
	var log []string
	boom := errors.New("boom")
	r := NewRunner()
	r.Register(&probe{phase: PhaseRender, name: "render", log: &log, err: boom})
	r.Register(&probe{phase: PhaseCleanup, name: "cleanup", log: &log})

	err := r.Tick(time.Millisecond)
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped boom, got %v", err)
	}
	if len(log) != 1 {
		t.Errorf("cleanup must not run after a failed render, got %v", log)
	}
	if r.Frame() != 0 {
		t.Errorf("failed frame must not count, got %d", r.Frame())
	}
}

func TestRunner_TickPhase(t *testing.T) {
	var log []string
	r := NewRunner()
	r.Register(&probe{phase: PhaseInput, name: "input", log: &log})
	r.Register(&probe{phase: PhaseRender, name: "render", log: &log})

	if err := r.TickPhase(PhaseInput, 0); err != nil {
		t.Fatal(err)
	}
	if len(log) != 1 || log[0] != "input" {
		t.Errorf("expected only input, got %v", log)
	}
}
