package filter

// orderedSet keeps the first value added per key, in insertion order
type orderedSet[K comparable, V any] struct {
	index  map[K]int
	values []V
}

func newOrderedSet[K comparable, V any]() *orderedSet[K, V] {
	return &orderedSet[K, V]{index: make(map[K]int)}
}

// Add inserts v under k unless k is already present; reports whether it was added
func (s *orderedSet[K, V]) Add(k K, v V) bool {
	if _, ok := s.index[k]; ok {
		return false
	}
	s.index[k] = len(s.values)
	s.values = append(s.values, v)
	return true
}

// Values returns the stored values in insertion order
func (s *orderedSet[K, V]) Values() []V {
	out := make([]V, len(s.values))
	copy(out, s.values)
	return out
}
