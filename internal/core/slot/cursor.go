package slot

// Cursor walks a Store in index order, skipping holes. Holes punched while a
// cursor is open are safe; reordering the store while one is open is not.
type Cursor[T Slotted] struct {
	s    *Store[T]
	next int
}

// Iter returns a fresh cursor positioned before the first slot.
func (s *Store[T]) Iter() Cursor[T] {
	return Cursor[T]{s: s}
}

// Next returns the next live handle at or after the cursor position.
func (c *Cursor[T]) Next() (T, bool) {
	var zero T
	items := c.s.items
	for i := c.next; i < len(items); i++ {
		if items[i] != zero {
			c.next = i + 1
			return items[i], true
		}
	}
	c.next = len(items)
	return zero, false
}

// Reset rewinds the cursor to slot zero.
func (c *Cursor[T]) Reset() { c.next = 0 }

// First rewinds the store's own cursor and returns the first live handle.
func (s *Store[T]) First() (T, bool) {
	s.cursor = Cursor[T]{s: s}
	return s.cursor.Next()
}

// Next resumes the store's own cursor after the last handle it returned.
func (s *Store[T]) Next() (T, bool) {
	if s.cursor.s == nil {
		s.cursor.s = s
	}
	return s.cursor.Next()
}
