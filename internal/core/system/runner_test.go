package system

import (
	"testing"
	"time"
)

type recorder struct {
	phase Phase
	name  string
	log   *[]string
}

func (r recorder) Phase() Phase            { return r.phase }
func (r recorder) Update(dt time.Duration) { *r.log = append(*r.log, r.name) }

func TestRunnerOrdersByPhase(t *testing.T) {
	var log []string
	r := NewRunner()
	r.Register(recorder{PhaseCleanup, "cleanup", &log})
	r.Register(recorder{PhaseInput, "input", &log})
	r.Register(recorder{PhaseUpdate, "pickup", &log})
	r.Register(recorder{PhaseUpdate, "second", &log})

	r.Tick(50 * time.Millisecond)
	want := []string{"input", "pickup", "second", "cleanup"}
	if len(log) != len(want) {
		t.Fatalf("got %v want %v", log, want)
	}
	for i := range want {
		if log[i] != want[i] {
			t.Fatalf("got %v want %v", log, want)
		}
	}

	log = log[:0]
	r.TickPhase(PhaseInput, 0)
	if len(log) != 1 || log[0] != "input" {
		t.Fatalf("TickPhase ran %v", log)
	}
}
