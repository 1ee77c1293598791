package monitor

// ring is a bounded buffer that evicts the oldest entry once full. The
// fixed capacity is a correctness requirement: the collector must hold
// a hard memory bound no matter how long the process runs.
type ring[T any] struct {
	items []T
	limit int
}

func newRing[T any](limit int) *ring[T] {
	return &ring[T]{limit: limit}
}

func (r *ring[T]) push(v T) {
	if len(r.items) == r.limit {
		copy(r.items, r.items[1:])
		r.items[len(r.items)-1] = v
		return
	}
	r.items = append(r.items, v)
}

func (r *ring[T]) len() int { return len(r.items) }

// last returns up to n most recent entries, oldest first.
func (r *ring[T]) last(n int) []T {
	if n >= len(r.items) {
		out := make([]T, len(r.items))
		copy(out, r.items)
		return out
	}
	out := make([]T, n)
	copy(out, r.items[len(r.items)-n:])
	return out
}
