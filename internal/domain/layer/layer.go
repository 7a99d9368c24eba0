// Package layer routes transport segments to payload dissectors by port.
//
// A Registry replaces implicit, import-time protocol registration: callers
// bind guessers to ports explicitly, and Resolve consults them for each
// segment whose source or destination port is bound.
package layer

import (
	"slices"
	"sync"
)

// RawProtocol is reported when no bound guesser accepts a payload.
const RawProtocol = "raw"

// Segment is a transport payload with the ports it travelled between.
type Segment struct {
	SrcPort uint16
	DstPort uint16
	Payload []byte
}

// Guesser recognises one application protocol from a payload.
type Guesser interface {
	// Protocol names the protocol this guesser recognises.
	Protocol() string
	// Guess returns a protocol-specific variant ("request", "response")
	// or "" when the payload is not recognised.
	Guess(payload []byte) string
}

// Match is the outcome of resolving a segment.
type Match struct {
	// Protocol is the matching guesser's protocol, or RawProtocol.
	Protocol string
	// Variant is what the guesser returned.
	Variant string
	// Gated reports whether either port of the segment was bound.
	Gated bool
	// Port is the bound port that produced the match, 0 when none did.
	Port uint16
}

// Raw reports whether no guesser recognised the payload.
func (m Match) Raw() bool {
	return m.Protocol == RawProtocol
}

// Registry holds port bindings. It is safe for concurrent use.
type Registry struct {
	mu    sync.RWMutex
	ports map[uint16][]Guesser
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{ports: make(map[uint16][]Guesser)}
}

// Bind attaches g to port. Binding the same guesser twice is a no-op.
func (r *Registry) Bind(port uint16, g Guesser) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if slices.Contains(r.ports[port], g) {
		return
	}
	r.ports[port] = append(r.ports[port], g)
}

// Unbind removes every guesser bound to port.
func (r *Registry) Unbind(port uint16) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.ports, port)
}

// Ports returns the bound ports in ascending order.
func (r *Registry) Ports() []uint16 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]uint16, 0, len(r.ports))
	for p := range r.ports {
		out = append(out, p)
	}
	slices.Sort(out)
	return out
}

// Resolve finds the protocol carried by seg. Guessers bound to the
// destination port are tried before those bound to the source port, each
// in bind order.
func (r *Registry) Resolve(seg Segment) Match {
	r.mu.RLock()
	dst := r.ports[seg.DstPort]
	var src []Guesser
	if seg.SrcPort != seg.DstPort {
		src = r.ports[seg.SrcPort]
	}
	r.mu.RUnlock()

	m := Match{Protocol: RawProtocol, Gated: len(dst) > 0 || len(src) > 0}
	if v, g := guess(dst, seg.Payload); g != nil {
		return Match{Protocol: g.Protocol(), Variant: v, Gated: true, Port: seg.DstPort}
	}
	if v, g := guess(src, seg.Payload); g != nil {
		return Match{Protocol: g.Protocol(), Variant: v, Gated: true, Port: seg.SrcPort}
	}
	return m
}

func guess(gs []Guesser, payload []byte) (string, Guesser) {
	for _, g := range gs {
		if v := g.Guess(payload); v != "" {
			return v, g
		}
	}
	return "", nil
}
