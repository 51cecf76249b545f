package queue

// Frontier is a first-in-first-out queue of URLs awaiting a fetch attempt,
// with constant-time membership checks.
// It is owned by a single crawl session and is not safe for concurrent use.
type Frontier struct {
	items   []string
	head    int                 // Index of the next item to pop
	pending map[string]struct{} // URLs currently queued
}

// NewFrontier creates a Frontier seeded with the given URLs, in order
func NewFrontier(seeds ...string) *Frontier {
	f := &Frontier{pending: make(map[string]struct{})}
	for _, s := range seeds {
		f.Push(s)
	}
	return f
}

// Push appends u at the tail. Returns false if u is already queued.
func (f *Frontier) Push(u string) bool {
	if _, exists := f.pending[u]; exists {
		return false
	}
	f.pending[u] = struct{}{}
	f.items = append(f.items, u)
	return true
}

// Pop removes and returns the head URL. ok is false when the frontier is empty.
func (f *Frontier) Pop() (u string, ok bool) {
	if f.head >= len(f.items) {
		return "", false
	}
	u = f.items[f.head]
	f.items[f.head] = "" // release reference
	f.head++
	delete(f.pending, u)

	// Reclaim the consumed prefix once it dominates the backing array
	if f.head > 32 && f.head*2 >= len(f.items) {
		remaining := copy(f.items, f.items[f.head:])
		f.items = f.items[:remaining]
		f.head = 0
	}
	return u, true
}

// Contains reports whether u is currently queued
func (f *Frontier) Contains(u string) bool {
	_, exists := f.pending[u]
	return exists
}

// Len returns the number of queued URLs
func (f *Frontier) Len() int {
	return len(f.items) - f.head
}
