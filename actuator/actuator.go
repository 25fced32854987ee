// Package actuator executes shift requests. A Port is either the real derailleur lines driven by a Pulser
// or a Recorder used by simulations and tests.
package actuator

import (
	"sync"

	"github.com/calvinmclean/autoshift"
)

// Port performs a Request. Apply blocks until every pulse has completed and cannot be cancelled
type Port interface {
	Apply(autoshift.Request)
}

// PortFunc adapts a function to a Port
type PortFunc func(autoshift.Request)

// Apply implements Port.
func (f PortFunc) Apply(r autoshift.Request) {
	f(r)
}

// Discard ignores all requests
var Discard Port = PortFunc(func(autoshift.Request) {})

// Recorder keeps every Request in order instead of moving hardware
type Recorder struct {
	mtx      sync.Mutex
	requests []autoshift.Request
}

var _ Port = &Recorder{}

// Apply implements Port.
func (r *Recorder) Apply(req autoshift.Request) {
	r.mtx.Lock()
	r.requests = append(r.requests, req)
	r.mtx.Unlock()
}

// Requests returns a copy of the recorded requests
func (r *Recorder) Requests() []autoshift.Request {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	result := make([]autoshift.Request, len(r.requests))
	copy(result, r.requests)
	return result
}

// Pulses sums the pulses recorded for a Direction
func (r *Recorder) Pulses(d autoshift.Direction) uint {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	var total uint
	for _, req := range r.requests {
		if req.Direction == d {
			total += req.Pulses
		}
	}
	return total
}

// Reset forgets all recorded requests
func (r *Recorder) Reset() {
	r.mtx.Lock()
	r.requests = nil
	r.mtx.Unlock()
}

// Tee sends each Request to every Port in order
func Tee(ports ...Port) Port {
	return PortFunc(func(r autoshift.Request) {
		for _, p := range ports {
			p.Apply(r)
		}
	})
}
