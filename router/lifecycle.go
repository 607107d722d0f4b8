// Package router implements the message-routing fabric of spec §4.8:
// couplers push envelopes through the filter chain to their subscribed
// publishers over bounded, per-publisher queues, with supervised
// coupler lifecycles and best-effort, never-block-the-producer delivery.
// Grounded on the Stage/Pipeline supervision shape of
// squadracorsepolito-acmetel's pipeline.go, generalized from a fixed
// three-stage ingress/pre-processor/processor pipeline to an arbitrary
// coupler-to-many-publishers fan-out.
package router

// LifecycleState is a coupler's supervised state machine (spec §4.8):
// NotReady → Opening → Open → Connected → Active → {Stopped, Failed}.
type LifecycleState int

const (
	StateNotReady LifecycleState = iota
	StateOpening
	StateOpen
	StateConnected
	StateActive
	StateStopped
	StateFailed
)

func (s LifecycleState) String() string {
	switch s {
	case StateNotReady:
		return "not-ready"
	case StateOpening:
		return "opening"
	case StateOpen:
		return "open"
	case StateConnected:
		return "connected"
	case StateActive:
		return "active"
	case StateStopped:
		return "stopped"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}
