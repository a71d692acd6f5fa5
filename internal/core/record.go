package core

import (
	"errors"
	"fmt"
	"strings"
)

// Kind discriminates the three record variants the reporting pipeline
// consumes. They share one shape; only status vocabulary differs.
type Kind string

const (
	KindExpense Kind = "expense"
	KindRefund  Kind = "refund"
	KindProblem Kind = "problem"
)

// Status values per kind. Expenses carry no workflow status; refund
// requests move pending -> approved|denied; problem reports open -> fixed.
// Resolution never deletes a record, it only archives it in place.
type Status string

const (
	StatusNone     Status = ""
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusDenied   Status = "denied"
	StatusOpen     Status = "open"
	StatusFixed    Status = "fixed"
)

var (
	ErrInvalidAmount  = errors.New("invalid amount")
	ErrEmptyTitle     = errors.New("empty title")
	ErrUnknownKind    = errors.New("unknown record kind")
	ErrBadTransition  = errors.New("illegal status transition")
	ErrRecordNotFound = errors.New("record not found")
	ErrRecordArchived = errors.New("record already archived")
	ErrMissingField   = errors.New("missing required field")
	ErrUnknownField   = errors.New("unknown field")
)

// Record is one expense, refund request, or problem report as consumed by
// the filtering/aggregation/export pipeline. The ID is assigned by storage
// on creation and is the only identity used anywhere (gallery labels in
// exports match rows by ID, never by slice position).
type Record struct {
	ID            string  `json:"id"`
	Kind          Kind    `json:"kind"`
	Title         string  `json:"title"`
	Amount        Money   `json:"amount"`
	Category      string  `json:"category"`
	PaymentMethod string  `json:"paymentMethod"`
	OwnerName     string  `json:"ownerName"`
	OwnerRoom     string  `json:"ownerRoom"`
	Date          Instant `json:"date"`
	Notes         string  `json:"notes"`
	PhotoURL      string  `json:"photoUrl"`
	Status        Status  `json:"status"`
	Resolved      Instant `json:"resolvedAt"`
	Created       Instant `json:"createdAt"`
}

func (k Kind) Valid() bool {
	switch k {
	case KindExpense, KindRefund, KindProblem:
		return true
	}
	return false
}

// InitialStatus returns the status a freshly created record of this kind
// carries.
func (k Kind) InitialStatus() Status {
	switch k {
	case KindRefund:
		return StatusPending
	case KindProblem:
		return StatusOpen
	default:
		return StatusNone
	}
}

// Archived reports whether the record has been resolved by an admin and
// moved to the archival state for its kind.
func (r Record) Archived() bool {
	switch r.Status {
	case StatusApproved, StatusDenied, StatusFixed:
		return true
	}
	return false
}

// CanTransition reports whether a record of kind k may move from one
// status to another. The transition table is deliberately closed: archived
// records never come back, and expenses have no workflow at all.
func CanTransition(k Kind, from, to Status) bool {
	switch k {
	case KindRefund:
		return from == StatusPending && (to == StatusApproved || to == StatusDenied)
	case KindProblem:
		return from == StatusOpen && to == StatusFixed
	}
	return false
}

// Transition validates and applies a status change, stamping the
// resolution time.
func (r *Record) Transition(to Status, at Instant) error {
	if r.Archived() {
		return ErrRecordArchived
	}
	if !CanTransition(r.Kind, r.Status, to) {
		return fmt.Errorf("%w: %s %s -> %s", ErrBadTransition, r.Kind, r.Status, to)
	}
	r.Status = to
	r.Resolved = at
	return nil
}

func (r Record) Validate() error {
	if !r.Kind.Valid() {
		return ErrUnknownKind
	}
	if len(strings.TrimSpace(r.Title)) == 0 {
		return ErrEmptyTitle
	}
	if len(r.Title) > 200 {
		return errors.New("title too long (max 200 characters)")
	}
	if len(r.Notes) > 2000 {
		return errors.New("notes too long (max 2000 characters)")
	}
	return nil
}
