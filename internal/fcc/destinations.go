package fcc

import "github.com/arobi/sentinel/internal/geometry"

// destinationQueue is the double-ended ordered sequence of pending
// waypoints described in §9 ("dequeue of destinations"). A slice
// satisfies the head-pop/head-push/tail-push contract directly; nothing
// about the rest of the package depends on this particular backing store.
type destinationQueue []geometry.Vec3

func (q destinationQueue) empty() bool { return len(q) == 0 }

func (q destinationQueue) head() (geometry.Vec3, bool) {
	if len(q) == 0 {
		return geometry.Vec3{}, false
	}
	return q[0], true
}

func (q destinationQueue) pushHead(p geometry.Vec3) destinationQueue {
	return append(destinationQueue{p}, q...)
}

func (q destinationQueue) pushTail(p geometry.Vec3) destinationQueue {
	return append(q, p)
}

func (q destinationQueue) popHead() destinationQueue {
	if len(q) == 0 {
		return q
	}
	return q[1:]
}

// clone returns an independent copy, used when a caller needs a snapshot
// that survives subsequent mutation (e.g. the evade-maneuver round-trip
// test in §8).
func (q destinationQueue) clone() destinationQueue {
	out := make(destinationQueue, len(q))
	copy(out, q)
	return out
}
