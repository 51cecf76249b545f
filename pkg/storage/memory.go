package storage

// MemoryVisitedSet is an in-memory VisitedSet that remembers insertion order.
// It belongs to a single crawl session and is not safe for concurrent use.
type MemoryVisitedSet struct {
	seen  map[string]struct{}
	order []string
}

// NewMemoryVisitedSet creates an empty MemoryVisitedSet
func NewMemoryVisitedSet() *MemoryVisitedSet {
	return &MemoryVisitedSet{seen: make(map[string]struct{})}
}

// MarkVisited implements VisitedSet
func (s *MemoryVisitedSet) MarkVisited(pageURL string) bool {
	if _, exists := s.seen[pageURL]; exists {
		return false
	}
	s.seen[pageURL] = struct{}{}
	s.order = append(s.order, pageURL)
	return true
}

// IsVisited implements VisitedSet
func (s *MemoryVisitedSet) IsVisited(pageURL string) bool {
	_, exists := s.seen[pageURL]
	return exists
}

// Count implements VisitedSet
func (s *MemoryVisitedSet) Count() int {
	return len(s.order)
}

// URLs implements VisitedSet. The returned slice is a copy.
func (s *MemoryVisitedSet) URLs() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

var _ VisitedSet = (*MemoryVisitedSet)(nil)
