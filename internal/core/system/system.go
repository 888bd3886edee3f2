package system

import "time"

// Phase defines execution ordering within a single world tick.
type Phase int

const (
	PhaseSessions Phase = iota // 0: session pass, single-threaded
	PhaseMaps                  // 1: map pass, partition workers
	PhaseCleanup               // 2: periodic housekeeping
)

// System is one tick participant. Update receives the tick timestamp so
// every system sees the same clock reading.
type System interface {
	Phase() Phase
	Update(now time.Time)
}
