// Package audit provides an audit trail for configuration-changing
// operations. Every commit attempt against a device is recorded whether
// it succeeded or not.
package audit

import (
	"fmt"
	"time"
)

// Event represents one auditable gateway operation against a device.
type Event struct {
	ID        string        `json:"id"`
	Timestamp time.Time     `json:"timestamp"`
	Device    string        `json:"device"`
	Operation string        `json:"operation"`
	Comment   string        `json:"comment,omitempty"`
	Diff      string        `json:"diff,omitempty"`
	Success   bool          `json:"success"`
	Error     string        `json:"error,omitempty"`
	Duration  time.Duration `json:"duration"`
}

// Filter defines criteria for querying audit events.
type Filter struct {
	Device      string
	Operation   string
	StartTime   time.Time
	EndTime     time.Time
	SuccessOnly bool
	FailureOnly bool
	Limit       int
	Offset      int
}

// NewEvent creates a new audit event for an operation on a device.
func NewEvent(device, operation string) *Event {
	return &Event{
		ID:        generateID(),
		Timestamp: time.Now(),
		Device:    device,
		Operation: operation,
	}
}

// WithComment records the commit comment.
func (e *Event) WithComment(comment string) *Event {
	e.Comment = comment
	return e
}

// WithDiff records the configuration diff that was committed.
func (e *Event) WithDiff(diff string) *Event {
	e.Diff = diff
	return e
}

// WithSuccess marks the event as successful.
func (e *Event) WithSuccess() *Event {
	e.Success = true
	return e
}

// WithError marks the event as failed.
func (e *Event) WithError(err error) *Event {
	e.Success = false
	if err != nil {
		e.Error = err.Error()
	}
	return e
}

// WithDuration sets the operation duration.
func (e *Event) WithDuration(d time.Duration) *Event {
	e.Duration = d
	return e
}

func generateID() string {
	return fmt.Sprintf("%d", time.Now().UnixNano())
}
