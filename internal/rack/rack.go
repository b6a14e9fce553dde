package rack

import (
	"errors"
	"fmt"
	"strings"

	"github.com/piwi3910/pcbdrill/internal/model"
)

var (
	ErrDuplicateBit   = errors.New("bit already present in the rack")
	ErrSlotOutOfRange = errors.New("slot out of range")
	ErrRackFull       = errors.New("rack is full")
)

// Rack is the ordered set of tool slots loaded in the machine. Slots are
// numbered from 1. A size of 0 means manual tool change: the rack grows as
// needed. No bit is ever held by two slots.
type Rack struct {
	size  int
	slots []*model.Bit
}

// New returns an empty rack with size slots, or an unlimited rack for 0.
func New(size int) *Rack {
	if size < 0 {
		size = 0
	}
	return &Rack{size: size, slots: make([]*model.Bit, size)}
}

// NewManual returns an empty unlimited rack.
func NewManual() *Rack {
	return New(0)
}

// Size returns the slot capacity, 0 for a manual rack.
func (r *Rack) Size() int { return r.size }

// IsManual reports whether the rack has no slot cap.
func (r *Rack) IsManual() bool { return r.size == 0 }

// Len returns the number of addressable slots, occupied or not.
func (r *Rack) Len() int { return len(r.slots) }

// Loaded returns the number of occupied slots.
func (r *Rack) Loaded() int {
	n := 0
	for _, b := range r.slots {
		if b != nil {
			n++
		}
	}
	return n
}

// HasRoom reports whether another bit can be loaded.
func (r *Rack) HasRoom() bool {
	return r.size == 0 || r.Loaded() < r.size
}

// Get returns the bit in slot, if any.
func (r *Rack) Get(slot int) (model.Bit, bool) {
	if slot < 1 || slot > len(r.slots) || r.slots[slot-1] == nil {
		return model.Bit{}, false
	}
	return *r.slots[slot-1], true
}

// Set stores bit in slot, replacing whatever was there. It does not check
// for duplicates; use AddBit for that.
func (r *Rack) Set(slot int, bit model.Bit) error {
	if err := r.checkSlot(slot); err != nil {
		return err
	}
	if slot == len(r.slots)+1 {
		r.slots = append(r.slots, nil)
	}
	b := bit
	r.slots[slot-1] = &b
	return nil
}

// Remove empties slot. Removing an empty slot is a no-op.
func (r *Rack) Remove(slot int) {
	if slot >= 1 && slot <= len(r.slots) {
		r.slots[slot-1] = nil
	}
}

// Find returns the slot holding bit, or 0.
func (r *Rack) Find(bit model.Bit) int {
	for i, b := range r.slots {
		if b != nil && *b == bit {
			return i + 1
		}
	}
	return 0
}

// Bits returns the loaded bits in slot order.
func (r *Rack) Bits() []model.Bit {
	var bits []model.Bit
	for _, b := range r.slots {
		if b != nil {
			bits = append(bits, *b)
		}
	}
	return bits
}

// Diameters returns the loaded diameters of one bit kind in slot order.
func (r *Rack) Diameters(kind model.BitKind) []int {
	var out []int
	for _, b := range r.slots {
		if b != nil && b.Kind == kind {
			out = append(out, b.Diameter)
		}
	}
	return out
}

// FindFreePosition returns the slot a new bit goes to when none is given:
// the one after the highest occupied slot. A fixed rack whose tail is taken
// falls back to its lowest empty slot.
func (r *Rack) FindFreePosition() (int, error) {
	next := 1
	for i := len(r.slots); i > 0; i-- {
		if r.slots[i-1] != nil {
			next = i + 1
			break
		}
	}
	if r.size == 0 || next <= r.size {
		return next, nil
	}
	for i, b := range r.slots {
		if b == nil {
			return i + 1, nil
		}
	}
	return 0, ErrRackFull
}

// AddBit loads bit at slot, or at FindFreePosition when slot is 0. It returns
// the slot used. A bit already present elsewhere is rejected with
// ErrDuplicateBit and the requested slot stays as it was. The returned
// previous bit is set when an occupied slot was overwritten.
func (r *Rack) AddBit(bit model.Bit, slot int) (used int, previous *model.Bit, err error) {
	if slot == 0 {
		if slot, err = r.FindFreePosition(); err != nil {
			return 0, nil, err
		}
	} else if err := r.checkSlot(slot); err != nil {
		return 0, nil, err
	}

	if at := r.Find(bit); at != 0 {
		return 0, nil, fmt.Errorf("%w: %s in T%02d already at T%02d", ErrDuplicateBit, bit, slot, at)
	}

	if old, ok := r.Get(slot); ok {
		previous = &old
	}
	if err := r.Set(slot, bit); err != nil {
		return 0, nil, err
	}
	return slot, previous, nil
}

func (r *Rack) checkSlot(slot int) error {
	if slot < 1 || slot > len(r.slots)+1 {
		return fmt.Errorf("%w: T%02d (rack has %d slots)", ErrSlotOutOfRange, slot, len(r.slots))
	}
	if r.size > 0 && slot > r.size {
		return fmt.Errorf("%w: T%02d exceeds rack size %d", ErrSlotOutOfRange, slot, r.size)
	}
	return nil
}

// Clone returns an independent copy.
func (r *Rack) Clone() *Rack {
	c := &Rack{size: r.size, slots: make([]*model.Bit, len(r.slots))}
	for i, b := range r.slots {
		if b != nil {
			v := *b
			c.slots[i] = &v
		}
	}
	return c
}

// String formats the rack as "T01:0.5 T02:R0.8 T03:x".
func (r *Rack) String() string {
	parts := make([]string, len(r.slots))
	for i, b := range r.slots {
		if b == nil {
			parts[i] = fmt.Sprintf("T%02d:x", i+1)
		} else {
			parts[i] = fmt.Sprintf("T%02d:%s", i+1, b)
		}
	}
	return strings.Join(parts, " ")
}
