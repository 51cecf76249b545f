package models

// RunStatus is the top-level state of a finished crawl run
type RunStatus string

const (
	RunStatusUnset     RunStatus = ""          // Zero value = unset/unknown
	RunStatusCompleted RunStatus = "completed" // Traversal ran (frontier exhausted, bound hit or cancelled)
	RunStatusAborted   RunStatus = "aborted"   // Stopped before traversal
)

// String implements fmt.Stringer for logging
func (s RunStatus) String() string {
	if s == "" {
		return "unset"
	}
	return string(s)
}

// IsValid returns true if the status is a known operational value
func (s RunStatus) IsValid() bool {
	switch s {
	case RunStatusCompleted, RunStatusAborted:
		return true
	}
	return false
}

// AbortReason distinguishes why a run was aborted
type AbortReason string

const (
	AbortReasonNone             AbortReason = ""
	AbortReasonStartUnreachable AbortReason = "start_unreachable" // Start page fetch failed
	AbortReasonLogoNotFound     AbortReason = "logo_not_found"    // No image matched the keyword on the start page
)

// String implements fmt.Stringer for logging
func (r AbortReason) String() string {
	if r == "" {
		return "none"
	}
	return string(r)
}

// IsValid returns true if the reason is a known abort cause
func (r AbortReason) IsValid() bool {
	switch r {
	case AbortReasonStartUnreachable, AbortReasonLogoNotFound:
		return true
	}
	return false
}
