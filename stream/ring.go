package stream

// Slot is one of the two resident slice buffers of the consumer.
type Slot uint8

const (
	SlotEven Slot = 0
	SlotOdd  Slot = 1
)

// SlotFor returns the slot that holds slice i.
func SlotFor(slice int) Slot {
	return Slot(slice & 1)
}

const noSlice = -1

// Ring tracks which slice each slot holds.
type Ring struct {
	resident [2]int
}

// NewRing returns a ring with both slots empty.
func NewRing() *Ring {
	r := &Ring{}
	r.Reset()
	return r
}

// Reset marks both slots empty.
func (r *Ring) Reset() {
	r.resident = [2]int{noSlice, noSlice}
}

// Holds reports whether slice is resident in its slot.
func (r *Ring) Holds(slice int) bool {
	return r.resident[SlotFor(slice)] == slice
}

// Resident returns the slice held by s, or -1.
func (r *Ring) Resident(s Slot) int {
	return r.resident[s]
}

// Set records slice as resident in its slot, replacing the previous one.
func (r *Ring) Set(slice int) Slot {
	s := SlotFor(slice)
	r.resident[s] = slice
	return s
}
