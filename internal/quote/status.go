package quote

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Simplici0/vidrieria/internal/validation"
)

// ErrTerminalStatus is returned for any transition or edit of an approved or
// rejected quote.
var ErrTerminalStatus = errors.New("quote status is final")

type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// ParseStatus accepts a status name in any case.
func ParseStatus(s string) (Status, error) {
	st := Status(strings.ToLower(strings.TrimSpace(s)))
	if !st.Valid() {
		return "", validation.Errorf("status", "unknown status %q", s)
	}
	return st, nil
}

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected:
		return true
	}
	return false
}

// Terminal reports whether no transition leaves s.
func (s Status) Terminal() bool {
	return s == StatusApproved || s == StatusRejected
}

// Transition moves a pending quote to approved or rejected. A rejection
// needs a non-empty reason. On error q is returned unchanged.
func (q Quote) Transition(to Status, reason string) (Quote, error) {
	if q.Status.Terminal() {
		return q, fmt.Errorf("%w: quote %s is already %s", ErrTerminalStatus, q.ID, q.Status)
	}
	reason = strings.TrimSpace(reason)
	switch to {
	case StatusApproved:
		reason = ""
	case StatusRejected:
		if reason == "" {
			return q, validation.Errorf("reason", "is required to reject a quote")
		}
	default:
		return q, validation.Errorf("status", "cannot move a pending quote to %q", to)
	}
	q.Status = to
	q.RejectionReason = reason
	q.UpdatedAt = time.Now().UTC()
	return q, nil
}

// Approve is Transition(StatusApproved, "").
func (q Quote) Approve() (Quote, error) {
	return q.Transition(StatusApproved, "")
}

// Reject is Transition(StatusRejected, reason).
func (q Quote) Reject(reason string) (Quote, error) {
	return q.Transition(StatusRejected, reason)
}
