package constants

// ProcessingStatus is the canonical OCR processing state for a document.
type ProcessingStatus string

// Stable values (store these exact strings in DB).
const (
	ProcessingPending   ProcessingStatus = "pending"    // uploaded, not yet processed
	ProcessingRunning   ProcessingStatus = "processing" // extraction in progress
	ProcessingCompleted ProcessingStatus = "completed"  // extraction finished
	ProcessingError     ProcessingStatus = "error"      // extraction failed
)

// processingTransitions lists the legal moves between processing states.
// "error" may go back to "processing" so a document can be retried.
var processingTransitions = map[ProcessingStatus][]ProcessingStatus{
	ProcessingPending: {ProcessingRunning},
	ProcessingRunning: {ProcessingCompleted, ProcessingError},
	ProcessingError:   {ProcessingRunning},
}

// CanTransitionTo reports whether moving from s to next is allowed.
func (s ProcessingStatus) CanTransitionTo(next ProcessingStatus) bool {
	for _, t := range processingTransitions[s] {
		if t == next {
			return true
		}
	}
	return false
}

func (s ProcessingStatus) isValid() bool {
	switch s {
	case ProcessingPending, ProcessingRunning, ProcessingCompleted, ProcessingError:
		return true
	}
	return false
}

// ParseProcessingStatus validates a raw string from the API or DB.
func ParseProcessingStatus(raw string) (ProcessingStatus, bool) {
	s := ProcessingStatus(raw)
	return s, s.isValid()
}

// ApplicationStatus is the review lifecycle of a loan application.
type ApplicationStatus string

const (
	AppStatusDraft       ApplicationStatus = "draft"
	AppStatusSubmitted   ApplicationStatus = "submitted"
	AppStatusUnderReview ApplicationStatus = "under-review"
	AppStatusApproved    ApplicationStatus = "approved"
	AppStatusRejected    ApplicationStatus = "rejected"
)

var applicationTransitions = map[ApplicationStatus][]ApplicationStatus{
	AppStatusDraft:       {AppStatusSubmitted},
	AppStatusSubmitted:   {AppStatusUnderReview},
	AppStatusUnderReview: {AppStatusApproved, AppStatusRejected},
}

// CanTransitionTo reports whether moving from s to next is allowed.
// Approved and rejected are terminal.
func (s ApplicationStatus) CanTransitionTo(next ApplicationStatus) bool {
	for _, t := range applicationTransitions[s] {
		if t == next {
			return true
		}
	}
	return false
}

// TransitionSources returns every status that may legally move to next.
// Used by the repository for guarded single-statement updates.
func TransitionSources(next ApplicationStatus) []ApplicationStatus {
	var from []ApplicationStatus
	for s, targets := range applicationTransitions {
		for _, t := range targets {
			if t == next {
				from = append(from, s)
			}
		}
	}
	return from
}

// ParseApplicationStatus validates a raw string from the API or DB.
func ParseApplicationStatus(raw string) (ApplicationStatus, bool) {
	switch s := ApplicationStatus(raw); s {
	case AppStatusDraft, AppStatusSubmitted, AppStatusUnderReview, AppStatusApproved, AppStatusRejected:
		return s, true
	}
	return "", false
}
