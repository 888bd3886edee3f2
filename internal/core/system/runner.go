package system

import (
	"sort"
	"time"
)

// Runner executes systems in phase order each tick. Registration order
// breaks ties within a phase.
type Runner struct {
	systems []System
	sorted  bool
}

func NewRunner() *Runner {
	return &Runner{
		systems: make([]System, 0, 8),
	}
}

func (r *Runner) Register(s System) {
	r.systems = append(r.systems, s)
	r.sorted = false
}

func (r *Runner) Tick(now time.Time) {
	r.ensureSorted()
	for _, s := range r.systems {
		s.Update(now)
	}
}

func (r *Runner) ensureSorted() {
	if r.sorted {
		return
	}
	sort.SliceStable(r.systems, func(i, j int) bool {
		return r.systems[i].Phase() < r.systems[j].Phase()
	})
	r.sorted = true
}

// Func adapts a plain function into a System.
type Func struct {
	P Phase
	F func(now time.Time)
}

func (f Func) Phase() Phase         { return f.P }
func (f Func) Update(now time.Time) { f.F(now) }
