package slot

// Slotted is implemented by anything stored in a Store. The store writes the
// slot index back into the handle so removal never scans.
type Slotted interface {
	comparable
	SlotIndex() int
	SetSlotIndex(idx int)
}

// None is the back-index of a handle that is not stored anywhere.
const None = -1

// Store is a sparse, index-stable collection with hole reuse.
// A handle keeps its index until it is removed or explicitly moved; freed
// indices are handed out again lowest first.
// Accessed only from the frame loop goroutine, so there are no locks.
type Store[T Slotted] struct {
	items      []T
	count      int
	firstFree  int // no hole exists below this index
	generation uint64
	cursor     Cursor[T]
}

func NewStore[T Slotted](capacity int) *Store[T] {
	s := &Store[T]{
		items: make([]T, 0, capacity),
	}
	s.cursor.s = s
	return s
}

// Len returns the number of live handles.
func (s *Store[T]) Len() int { return s.count }

// Cap returns the size of the backing storage, holes included.
func (s *Store[T]) Cap() int { return len(s.items) }

func (s *Store[T]) Empty() bool { return s.count == 0 }

// Generation increments on every structural change (add, remove, reorder).
func (s *Store[T]) Generation() uint64 { return s.generation }

// At returns the handle at idx and whether the slot is live.
func (s *Store[T]) At(idx int) (T, bool) {
	var zero T
	if idx < 0 || idx >= len(s.items) || s.items[idx] == zero {
		return zero, false
	}
	return s.items[idx], true
}

// Contains reports whether h currently occupies its recorded slot.
func (s *Store[T]) Contains(h T) bool {
	idx := h.SlotIndex()
	if idx < 0 || idx >= len(s.items) {
		return false
	}
	return s.items[idx] == h
}

// Add stores h in the lowest free slot, or appends, and returns the index.
func (s *Store[T]) Add(h T) int {
	var zero T
	idx := len(s.items)
	for i := s.firstFree; i < len(s.items); i++ {
		if s.items[i] == zero {
			idx = i
			break
		}
	}
	if idx == len(s.items) {
		s.items = append(s.items, h)
	} else {
		s.items[idx] = h
	}
	s.firstFree = idx + 1
	s.count++
	s.generation++
	h.SetSlotIndex(idx)
	return idx
}

// Remove turns h's slot into a hole. It reports false when h is not stored
// here; that case is a no-op.
func (s *Store[T]) Remove(h T) bool {
	if !s.Contains(h) {
		return false
	}
	var zero T
	idx := h.SlotIndex()
	s.items[idx] = zero
	if idx < s.firstFree {
		s.firstFree = idx
	}
	s.count--
	s.generation++
	h.SetSlotIndex(None)
	return true
}

// MoveToFront re-homes h after the last live slot so it is visited last.
// A trailing hole is reused when there is one, otherwise storage grows by one.
func (s *Store[T]) MoveToFront(h T) bool {
	if !s.Contains(h) {
		return false
	}
	var zero T
	cur := h.SlotIndex()
	last := len(s.items) - 1
	for last > cur && s.items[last] == zero {
		last--
	}
	if last == cur {
		return true
	}
	s.items[cur] = zero
	if cur < s.firstFree {
		s.firstFree = cur
	}
	dst := last + 1
	if dst == len(s.items) {
		s.items = append(s.items, h)
	} else {
		s.items[dst] = h
	}
	h.SetSlotIndex(dst)
	s.generation++
	return true
}

// MoveToBack re-homes h before the first live slot so it is visited first.
// When no hole precedes the first live slot, everything below h shifts up by
// one into the slot h vacates.
func (s *Store[T]) MoveToBack(h T) bool {
	if !s.Contains(h) {
		return false
	}
	var zero T
	cur := h.SlotIndex()
	first := 0
	for first < cur && s.items[first] == zero {
		first++
	}
	if first == cur {
		return true
	}
	if first > 0 {
		s.items[cur] = zero
		s.items[first-1] = h
		h.SetSlotIndex(first - 1)
		s.firstFree = s.lowestHole()
		s.generation++
		return true
	}
	for i := cur; i > 0; i-- {
		s.items[i] = s.items[i-1]
		if s.items[i] != zero {
			s.items[i].SetSlotIndex(i)
		}
	}
	s.items[0] = h
	h.SetSlotIndex(0)
	s.firstFree = s.lowestHole()
	s.generation++
	return true
}

// Compact rewrites the storage as the given order of live handles with no
// holes. order must be a permutation of the live handles.
func (s *Store[T]) Compact(order []T) {
	s.items = s.items[:0]
	for i, h := range order {
		s.items = append(s.items, h)
		h.SetSlotIndex(i)
	}
	s.count = len(order)
	s.firstFree = len(order)
	s.generation++
}

// Live appends the live handles in index order to dst.
func (s *Store[T]) Live(dst []T) []T {
	var zero T
	for _, h := range s.items {
		if h != zero {
			dst = append(dst, h)
		}
	}
	return dst
}

// Clear drops every handle and resets the back-indices.
func (s *Store[T]) Clear() {
	var zero T
	for i, h := range s.items {
		if h != zero {
			h.SetSlotIndex(None)
		}
		s.items[i] = zero
	}
	s.items = s.items[:0]
	s.count = 0
	s.firstFree = 0
	s.generation++
}

func (s *Store[T]) lowestHole() int {
	var zero T
	for i := range s.items {
		if s.items[i] == zero {
			return i
		}
	}
	return len(s.items)
}
