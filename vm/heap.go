package vm

import "time"

// ---------------------------------------------------------------------------
// Heap: slot table and mark-and-sweep collector
// ---------------------------------------------------------------------------

// slotKind tracks what occupies a heap slot.
type slotKind uint8

const (
	slotFree slotKind = iota
	slotString
	slotObject
)

// slot is one entry of the heap table. Exactly one of str/obj is set for
// an occupied slot.
type slot struct {
	kind   slotKind
	str    *StringObject
	obj    *MapObject
	marked bool
}

// RootSource supplies the collector with the live roots. The VM implements
// this; tests substitute their own.
type RootSource interface {
	// Running reports whether bytecode is currently executing. While no
	// program runs there is no defined root set and collection is skipped.
	Running() bool

	// Roots appends every root value to dst and returns it.
	Roots(dst []Value) []Value
}

// CollectStats holds statistics from a single collection cycle.
type CollectStats struct {
	Marked    int // residents found reachable
	Swept     int // residents reclaimed
	Live      int // residents remaining after the cycle
	Duration  time.Duration
	Timestamp time.Time
}

// Heap owns every string and object a program allocates. Values reference
// residents by slot id; only the heap can resolve an id. Ids of reclaimed
// slots return to a free pool and are reused by later allocations, so ids
// are not monotonically increasing once collection has run.
type Heap struct {
	slots   []slot
	freeIDs map[uint32]struct{}
	roots   RootSource
	live    int

	// stress forces a collection cycle before every allocation.
	stress bool

	// limit caps the number of live residents; 0 means unbounded.
	limit int

	collections uint64
	lastStats   *CollectStats

	work []Value // mark worklist, reused across cycles
}

// NewHeap creates an empty heap with no root source attached. Until
// SetRoots is called, collection requests are no-ops.
func NewHeap() *Heap {
	return &Heap{
		freeIDs: make(map[uint32]struct{}),
	}
}

// SetRoots attaches the root source consulted by the collector.
func (h *Heap) SetRoots(rs RootSource) {
	h.roots = rs
}

// SetStress enables or disables stress mode. Under stress every allocation
// triggers a full collection cycle first, which surfaces liveness bugs at
// the allocation that would hide them.
func (h *Heap) SetStress(on bool) {
	h.stress = on
}

// SetLimit caps the number of live residents. Zero removes the cap.
func (h *Heap) SetLimit(n int) {
	h.limit = n
}

// Live returns the number of occupied slots.
func (h *Heap) Live() int {
	return h.live
}

// Collections returns the total number of collection cycles run.
func (h *Heap) Collections() uint64 {
	return h.collections
}

// LastStats returns statistics from the most recent collection cycle, or
// nil if none has run.
func (h *Heap) LastStats() *CollectStats {
	return h.lastStats
}

// ---------------------------------------------------------------------------
// Allocation
// ---------------------------------------------------------------------------

// NewString allocates an empty string resident and returns it.
func (h *Heap) NewString() *StringObject {
	id := h.allocate()
	s := &StringObject{id: id}
	h.slots[id] = slot{kind: slotString, str: s}
	h.live++
	return s
}

// NewStringFrom allocates a string resident holding a copy of b.
func (h *Heap) NewStringFrom(b []byte) *StringObject {
	s := h.NewString()
	s.data = append(s.data, b...)
	return s
}

// NewObject allocates an empty object resident and returns it.
func (h *Heap) NewObject() *MapObject {
	id := h.allocate()
	o := &MapObject{id: id, fields: make(map[string]Value)}
	h.slots[id] = slot{kind: slotObject, obj: o}
	h.live++
	return o
}

// String resolves a slot id to its string resident. Returns nil if the
// slot does not hold a live string.
func (h *Heap) String(id uint32) *StringObject {
	if int(id) >= len(h.slots) || h.slots[id].kind != slotString {
		return nil
	}
	return h.slots[id].str
}

// Object resolves a slot id to its object resident. Returns nil if the
// slot does not hold a live object.
func (h *Heap) Object(id uint32) *MapObject {
	if int(id) >= len(h.slots) || h.slots[id].kind != slotObject {
		return nil
	}
	return h.slots[id].obj
}

// allocate acquires a slot id for a new resident, reusing a reclaimed id
// when one is available. When the resident limit is hit it forces a
// collection and retries once; a second failure is fatal.
func (h *Heap) allocate() uint32 {
	if h.stress {
		h.Collect()
	}
	if h.limit > 0 && h.live >= h.limit {
		h.Collect()
		if h.live >= h.limit {
			panic("vm: heap exhausted")
		}
	}
	for id := range h.freeIDs {
		delete(h.freeIDs, id)
		return id
	}
	h.slots = append(h.slots, slot{})
	return uint32(len(h.slots) - 1)
}

// ---------------------------------------------------------------------------
// Collection
// ---------------------------------------------------------------------------

// Collect runs one full mark-and-sweep cycle and returns its statistics.
// While no program is running there is no defined root set, so the request
// is a no-op and Collect returns nil.
func (h *Heap) Collect() *CollectStats {
	if h.roots == nil || !h.roots.Running() {
		return nil
	}

	start := time.Now()
	stats := &CollectStats{Timestamp: start}

	// 1. Mark everything reachable from the roots. The worklist replaces
	// recursion so arbitrarily deep object graphs cannot overflow the Go
	// stack, and marking is checked before children are pushed so cyclic
	// graphs terminate.
	h.work = h.roots.Roots(h.work[:0])
	for len(h.work) > 0 {
		v := h.work[len(h.work)-1]
		h.work = h.work[:len(h.work)-1]
		switch {
		case v.IsString():
			id := v.StringID()
			if int(id) < len(h.slots) && h.slots[id].kind == slotString && !h.slots[id].marked {
				h.slots[id].marked = true
				stats.Marked++
			}
		case v.IsObject():
			id := v.ObjectID()
			if int(id) < len(h.slots) && h.slots[id].kind == slotObject && !h.slots[id].marked {
				h.slots[id].marked = true
				stats.Marked++
				for _, fv := range h.slots[id].obj.fields {
					h.work = append(h.work, fv)
				}
			}
		}
	}

	// 2. Sweep every unmarked slot back to the free pool and clear the
	// marks of the survivors for the next cycle.
	for i := range h.slots {
		s := &h.slots[i]
		if s.kind == slotFree {
			continue
		}
		if s.marked {
			s.marked = false
			continue
		}
		h.release(uint32(i))
		stats.Swept++
	}

	stats.Live = h.live
	stats.Duration = time.Since(start)
	h.collections++
	h.lastStats = stats
	return stats
}

// Reset releases every resident regardless of reachability. The heap is
// empty and reusable afterwards.
func (h *Heap) Reset() {
	for i := range h.slots {
		if h.slots[i].kind != slotFree {
			h.release(uint32(i))
		}
	}
}

// release returns a slot to the free pool.
func (h *Heap) release(id uint32) {
	h.slots[id] = slot{}
	h.freeIDs[id] = struct{}{}
	h.live--
}
