package enums

import "fmt"

// RecordStatus tracks the lifecycle of backup and report artifacts.
type RecordStatus string

const (
	RecordStatusPending   RecordStatus = "pending"
	RecordStatusCompleted RecordStatus = "completed"
	RecordStatusFailed    RecordStatus = "failed"
)

var validRecordStatuses = []RecordStatus{
	RecordStatusPending,
	RecordStatusCompleted,
	RecordStatusFailed,
}

// String implements fmt.Stringer.
func (s RecordStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known RecordStatus.
func (s RecordStatus) IsValid() bool {
	for _, candidate := range validRecordStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transitions are allowed.
func (s RecordStatus) IsTerminal() bool {
	return s == RecordStatusCompleted || s == RecordStatusFailed
}

// CanTransitionTo allows only pending -> completed and pending -> failed.
func (s RecordStatus) CanTransitionTo(next RecordStatus) bool {
	return s == RecordStatusPending && next.IsTerminal()
}

// ParseRecordStatus converts raw input into a RecordStatus.
func ParseRecordStatus(value string) (RecordStatus, error) {
	for _, candidate := range validRecordStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid record status %q", value)
}
