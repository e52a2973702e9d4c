package library

import (
	"fmt"
	"strings"
	"time"
)

// BorrowStatus classifies the result of a borrow request.
type BorrowStatus int

const (
	BorrowedUntil BorrowStatus = iota
	AddedToWaitlist
	AlreadyBorrowedByMember
	BorrowMemberNotFound
	BorrowBookNotFound
)

func (s BorrowStatus) String() string {
	switch s {
	case BorrowedUntil:
		return "borrowed"
	case AddedToWaitlist:
		return "waitlisted"
	case AlreadyBorrowedByMember:
		return "already borrowed by member"
	case BorrowMemberNotFound:
		return "member not found"
	case BorrowBookNotFound:
		return "book not found"
	}
	return fmt.Sprintf("BorrowStatus(%d)", int(s))
}

// BorrowOutcome is the business result of Borrow. DueDate is set for
// BorrowedUntil and Position for AddedToWaitlist.
type BorrowOutcome struct {
	Status   BorrowStatus
	DueDate  time.Time
	Position int
}

func (o BorrowOutcome) String() string {
	switch o.Status {
	case BorrowedUntil:
		return "Book borrowed successfully until " + formatDate(o.DueDate)
	case AddedToWaitlist:
		return fmt.Sprintf("Book is already borrowed. Added to waitlist (position %d).", o.Position)
	case AlreadyBorrowedByMember:
		return "You already have this book."
	case BorrowMemberNotFound:
		return "Member not found!"
	case BorrowBookNotFound:
		return "Book not found!"
	}
	return o.Status.String()
}

// ReturnStatus classifies the result of a return request.
type ReturnStatus int

const (
	Returned ReturnStatus = iota
	ReturnBookNotFound
	NotBorrowedByThisMember
)

func (s ReturnStatus) String() string {
	switch s {
	case Returned:
		return "returned"
	case ReturnBookNotFound:
		return "book not found"
	case NotBorrowedByThisMember:
		return "not borrowed by this member"
	}
	return fmt.Sprintf("ReturnStatus(%d)", int(s))
}

// ReturnOutcome is the business result of ReturnBook. For Returned, each fact
// is available on its own: the fine charged, and whether and to whom the book
// was promoted.
type ReturnOutcome struct {
	Status      ReturnStatus
	DaysLate    int
	FineCharged int
	PromotedTo  string
	PromotedDue time.Time
}

// Promoted reports whether the book went straight to a waitlisted member.
func (o ReturnOutcome) Promoted() bool { return o.PromotedTo != "" }

func (o ReturnOutcome) String() string {
	switch o.Status {
	case ReturnBookNotFound:
		return "Book not found!"
	case NotBorrowedByThisMember:
		return "This book was not borrowed by this member."
	case Returned:
	default:
		return o.Status.String()
	}

	var lines []string
	if o.FineCharged > 0 {
		lines = append(lines, fmt.Sprintf("Overdue! Fine %d", o.FineCharged))
	}
	if o.Promoted() {
		lines = append(lines, "Book auto-assigned to waitlisted member: "+o.PromotedTo)
	}
	lines = append(lines, "Book returned successfully.")
	return strings.Join(lines, "\n")
}

// CancelStatus classifies the result of leaving a waitlist.
type CancelStatus int

const (
	Cancelled CancelStatus = iota
	CancelBookNotFound
	NotOnWaitlist
)

// CancelOutcome is the business result of CancelWaitlist.
type CancelOutcome struct {
	Status CancelStatus
}

func (o CancelOutcome) String() string {
	switch o.Status {
	case Cancelled:
		return "Removed from waitlist."
	case CancelBookNotFound:
		return "Book not found!"
	case NotOnWaitlist:
		return "Member is not on this book's waitlist."
	}
	return fmt.Sprintf("CancelStatus(%d)", int(o.Status))
}

// Holdings lists what a member has on loan and is waiting for.
type Holdings struct {
	Borrowed []Book
	Waiting  []WaitlistEntry
}

// WaitlistEntry is a book a member is queued for, with their 1-based place.
type WaitlistEntry struct {
	Book     Book
	Position int
}

// OverdueLoan is a loan past its due date as of the day it was computed.
type OverdueLoan struct {
	Book        Book
	DaysLate    int
	AccruedFine int
}
