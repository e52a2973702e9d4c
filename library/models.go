package library

import (
	"slices"
	"time"
)

const (
	// LoanPeriodDays is how long a loan runs from the day it starts.
	LoanPeriodDays = 7
	// FinePerDay is charged for every whole day a book is returned late.
	FinePerDay = 2

	dateLayout = "2006-01-02"
)

// Member represents a registered library member.
type Member struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Role string `json:"role"`
	Fine int    `json:"fine"` // accumulated, never reset
}

// Loan is the borrowed state of a book. A book without a loan is available.
type Loan struct {
	MemberID string    `json:"member_id"`
	Due      time.Time `json:"due"`
}

// Book represents a book in the catalog, its current loan and the queue of
// members waiting for it.
type Book struct {
	ID       string   `json:"id"`
	Title    string   `json:"title"`
	Author   string   `json:"author"`
	Loan     *Loan    `json:"loan,omitempty"`
	Waitlist []string `json:"waitlist"`
}

// Borrowed reports whether the book is currently on loan.
func (b Book) Borrowed() bool { return b.Loan != nil }

// BorrowedBy returns the borrower's id, or "" when the book is available.
func (b Book) BorrowedBy() string {
	if b.Loan == nil {
		return ""
	}
	return b.Loan.MemberID
}

// DueDate returns the loan's due date, or the zero time when available.
func (b Book) DueDate() time.Time {
	if b.Loan == nil {
		return time.Time{}
	}
	return b.Loan.Due
}

// WaitlistPosition returns the 1-based queue position of memberID, or 0.
func (b Book) WaitlistPosition(memberID string) int {
	return slices.Index(b.Waitlist, memberID) + 1
}

func (b *Book) clone() Book {
	c := *b
	if b.Loan != nil {
		loan := *b.Loan
		c.Loan = &loan
	}
	c.Waitlist = slices.Clone(b.Waitlist)
	return c
}

// dateOf truncates t to its calendar date at midnight UTC.
func dateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

const secondsPerDay = 24 * 60 * 60

// daysBetween counts whole calendar days from a to b.
func daysBetween(a, b time.Time) int {
	return int((dateOf(b).Unix() - dateOf(a).Unix()) / secondsPerDay)
}

func formatDate(t time.Time) string { return t.Format(dateLayout) }

func parseDate(s string) (time.Time, error) {
	return time.ParseInLocation(dateLayout, s, time.UTC)
}
