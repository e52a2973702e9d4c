package library

import (
	"errors"
	"fmt"
	"slices"
)

var (
	// ErrMalformedRecord is wrapped by every load failure caused by bad data.
	ErrMalformedRecord = errors.New("malformed record")
	// ErrUnencodable means a value cannot be written in the store's format.
	ErrUnencodable = errors.New("value cannot be stored")
)

// RecordStore persists the member and book collections. It holds no live
// state; the Catalog calls it synchronously.
type RecordStore interface {
	Load() ([]Member, []Book, error)
	Save(members []Member, books []Book) error
}

// RecordError locates a malformed row. Line is 1-based for text files and the
// row sequence number for SQLite.
type RecordError struct {
	Source string
	Line   int
	Err    error
}

func (e *RecordError) Error() string {
	return fmt.Sprintf("%s:%d: %v", e.Source, e.Line, e.Err)
}

func (e *RecordError) Unwrap() error { return e.Err }

func malformed(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrMalformedRecord, fmt.Sprintf(format, args...))
}

// validateBook checks the loan and waitlist invariants every backend must
// hold after decoding.
func validateBook(b *Book) error {
	if b.Loan != nil && b.Loan.MemberID == "" {
		return malformed("book %q is borrowed without a borrower", b.ID)
	}
	seen := make(map[string]struct{}, len(b.Waitlist))
	for _, id := range b.Waitlist {
		if id == "" {
			return malformed("book %q has an empty waitlist entry", b.ID)
		}
		if _, dup := seen[id]; dup {
			return malformed("book %q lists %q twice on its waitlist", b.ID, id)
		}
		if id == b.BorrowedBy() {
			return malformed("book %q has its borrower %q on its waitlist", b.ID, id)
		}
		seen[id] = struct{}{}
	}
	return nil
}

// ------------------ In-memory store ------------------

// MemoryStore keeps copies of the collections in memory only.
type MemoryStore struct {
	members []Member
	books   []Book
	saves   int
}

// NewMemoryStore returns a store preloaded with the given collections.
func NewMemoryStore(members []Member, books []Book) *MemoryStore {
	s := &MemoryStore{}
	s.members, s.books = copyCollections(members, books)
	return s
}

func (s *MemoryStore) Load() ([]Member, []Book, error) {
	for i := range s.books {
		if err := validateBook(&s.books[i]); err != nil {
			return nil, nil, &RecordError{Source: "memory", Line: i + 1, Err: err}
		}
	}
	m, b := copyCollections(s.members, s.books)
	return m, b, nil
}

func (s *MemoryStore) Save(members []Member, books []Book) error {
	s.members, s.books = copyCollections(members, books)
	s.saves++
	return nil
}

// Saves reports how many times Save has been called.
func (s *MemoryStore) Saves() int { return s.saves }

func copyCollections(members []Member, books []Book) ([]Member, []Book) {
	m := slices.Clone(members)
	b := make([]Book, len(books))
	for i := range books {
		b[i] = books[i].clone()
	}
	return m, b
}
