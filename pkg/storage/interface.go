package storage

// VisitedSet tracks URLs whose fetch has been attempted during one crawl run.
// A URL is added at most once; once added it is never re-enqueued or re-fetched.
type VisitedSet interface {
	// MarkVisited records pageURL as attempted
	// Returns true if the URL was newly added, false if it already existed
	MarkVisited(pageURL string) bool

	// IsVisited reports whether pageURL has been recorded
	IsVisited(pageURL string) bool

	// Count returns the number of distinct URLs recorded
	Count() int

	// URLs returns the recorded URLs in insertion order
	URLs() []string
}
