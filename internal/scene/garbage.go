package scene

// GarbageQueue holds renderables awaiting destruction in request order.
// Enqueuing the same object twice keeps one entry.
type GarbageQueue struct {
	items []Renderable
	set   map[Renderable]struct{}
}

func newGarbageQueue() *GarbageQueue {
	return &GarbageQueue{set: make(map[Renderable]struct{})}
}

// Enqueue adds r unless it is already queued. It reports whether r was added.
func (q *GarbageQueue) Enqueue(r Renderable) bool {
	if _, ok := q.set[r]; ok {
		return false
	}
	q.set[r] = struct{}{}
	q.items = append(q.items, r)
	return true
}

func (q *GarbageQueue) Len() int { return len(q.items) }

func (q *GarbageQueue) Contains(r Renderable) bool {
	_, ok := q.set[r]
	return ok
}

// Drain empties the queue and returns its contents in enqueue order.
func (q *GarbageQueue) Drain() []Renderable {
	items := q.items
	q.items = nil
	clear(q.set)
	return items
}
