package kernel

// Resource describes one allocation unit (a memory region, a hardware channel,
// a communication buffer). The table stores it but only reads MemorySize and
// Critical, for Usage.
type Resource struct {
	Name       string
	Priority   uint32
	MemorySize uint32
	Critical   bool
}

// Usage aggregates the currently allocated slots.
type Usage struct {
	Allocated  int
	MemoryUsed uint64
	Available  int
	Critical   int
}

// ResourceTable is a fixed-capacity slot arena. A handle is a slot index and
// stays valid until that slot is deallocated; the next allocation may reuse it.
type ResourceTable struct {
	slots    [MaxResources]Resource
	used     uint64
	capacity int
}

// NewResourceTable returns a table with capacity slots, clamped to
// [1, MaxResources].
func NewResourceTable(capacity int) *ResourceTable {
	return &ResourceTable{capacity: clampCapacity(capacity, MaxResources)}
}

// Capacity returns the number of slots.
func (t *ResourceTable) Capacity() int { return t.capacity }

// Allocate stores r in the first free slot.
func (t *ResourceTable) Allocate(r Resource) (Handle, error) {
	for i := 0; i < t.capacity; i++ {
		if t.used&(1<<uint(i)) != 0 {
			continue
		}
		t.used |= 1 << uint(i)
		t.slots[i] = r
		return Handle(i), nil
	}
	return 0, slotErr(ErrNoAvailableSlots, "resource", -1)
}

// Deallocate frees the slot behind h. Freeing a free slot is an error.
func (t *ResourceTable) Deallocate(h Handle) error {
	if err := t.check(h); err != nil {
		return err
	}
	t.used &^= 1 << uint(h)
	t.slots[h] = Resource{}
	return nil
}

// Get returns a copy of the resource behind h.
func (t *ResourceTable) Get(h Handle) (Resource, error) {
	if err := t.check(h); err != nil {
		return Resource{}, err
	}
	return t.slots[h], nil
}

// Usage sums memory and critical flags over allocated slots only.
func (t *ResourceTable) Usage() Usage {
	var u Usage
	for i := 0; i < t.capacity; i++ {
		if t.used&(1<<uint(i)) == 0 {
			continue
		}
		u.Allocated++
		u.MemoryUsed += uint64(t.slots[i].MemorySize)
		if t.slots[i].Critical {
			u.Critical++
		}
	}
	u.Available = t.capacity - u.Allocated
	return u
}

// Each calls fn for every allocated slot in handle order until fn returns false.
func (t *ResourceTable) Each(fn func(Handle, Resource) bool) {
	for i := 0; i < t.capacity; i++ {
		if t.used&(1<<uint(i)) == 0 {
			continue
		}
		if !fn(Handle(i), t.slots[i]) {
			return
		}
	}
}

func (t *ResourceTable) check(h Handle) error {
	if int(h) >= t.capacity {
		return slotErr(ErrInvalidID, "resource", int(h))
	}
	if t.used&(1<<uint(h)) == 0 {
		return slotErr(ErrNotAllocated, "resource", int(h))
	}
	return nil
}
