package library

import (
	"io"
	"log/slog"
	"slices"
	"sync"
	"time"
)

// LibraryManager is the lending engine: it applies borrow, return, fine and
// waitlist rules to a Catalog and persists after every change. All methods
// are serialized by one mutex, flush included.
type LibraryManager struct {
	mu      sync.Mutex
	catalog *Catalog
	store   RecordStore
	now     func() time.Time
	logger  *slog.Logger
}

// Option configures a LibraryManager.
type Option func(*LibraryManager)

// WithClock replaces time.Now. The clock is read once per operation.
func WithClock(now func() time.Time) Option {
	return func(lm *LibraryManager) { lm.now = now }
}

// WithLogger sets the structured logger. The default discards everything.
func WithLogger(logger *slog.Logger) Option {
	return func(lm *LibraryManager) { lm.logger = logger }
}

// NewLibraryManager loads the catalog from store.
func NewLibraryManager(store RecordStore, opts ...Option) (*LibraryManager, error) {
	lm := &LibraryManager{
		store:  store,
		now:    time.Now,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(lm)
	}

	catalog, err := LoadCatalog(store)
	if err != nil {
		return nil, err
	}
	lm.catalog = catalog
	lm.logger.Debug("catalog loaded",
		slog.Int("members", len(catalog.members)),
		slog.Int("books", len(catalog.books)))
	return lm, nil
}

// Close closes the underlying store when it holds resources.
func (lm *LibraryManager) Close() error {
	if c, ok := lm.store.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

func (lm *LibraryManager) today() time.Time { return dateOf(lm.now()) }

// ------------------ Catalog operations ------------------

func (lm *LibraryManager) AddMember(id, name, role string) error {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	if lm.catalog.FindMember(id) != nil {
		lm.logger.Warn("duplicate member id added; lookups keep the first", slog.String("member", id))
	}
	if err := lm.catalog.AddMember(id, name, role); err != nil {
		return err
	}
	lm.logger.Info("member added", slog.String("member", id))
	return nil
}

func (lm *LibraryManager) AddBook(id, title, author string) error {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	if lm.catalog.FindBook(id) != nil {
		lm.logger.Warn("duplicate book id added; lookups keep the first", slog.String("book", id))
	}
	if err := lm.catalog.AddBook(id, title, author); err != nil {
		return err
	}
	lm.logger.Info("book added", slog.String("book", id))
	return nil
}

// ListMembers returns a snapshot of all members in insertion order.
func (lm *LibraryManager) ListMembers() []Member {
	lm.mu.Lock()
	defer lm.mu.Unlock()
	return lm.catalog.Members()
}

// ListBooks returns a snapshot of all books in insertion order.
func (lm *LibraryManager) ListBooks() []Book {
	lm.mu.Lock()
	defer lm.mu.Unlock()
	return lm.catalog.Books()
}

// ------------------ Circulation ------------------

// Borrow lends an available book for LoanPeriodDays, or queues the member
// when someone else holds it. Only storage failures are returned as errors.
func (lm *LibraryManager) Borrow(memberID, bookID string) (BorrowOutcome, error) {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	if lm.catalog.FindMember(memberID) == nil {
		return BorrowOutcome{Status: BorrowMemberNotFound}, nil
	}
	book := lm.catalog.FindBook(bookID)
	if book == nil {
		return BorrowOutcome{Status: BorrowBookNotFound}, nil
	}

	if book.Loan != nil {
		if book.Loan.MemberID == memberID {
			return BorrowOutcome{Status: AlreadyBorrowedByMember}, nil
		}
		before := book.clone()
		if book.WaitlistPosition(memberID) == 0 {
			book.Waitlist = append(book.Waitlist, memberID)
		}
		if err := lm.catalog.Flush(); err != nil {
			*book = before
			return BorrowOutcome{}, err
		}
		pos := book.WaitlistPosition(memberID)
		lm.logger.Info("member waitlisted",
			slog.String("member", memberID), slog.String("book", bookID), slog.Int("position", pos))
		return BorrowOutcome{Status: AddedToWaitlist, Position: pos}, nil
	}

	before := book.clone()
	due := lm.today().AddDate(0, 0, LoanPeriodDays)
	book.Loan = &Loan{MemberID: memberID, Due: due}
	book.Waitlist = removeID(book.Waitlist, memberID)
	if err := lm.catalog.Flush(); err != nil {
		*book = before
		return BorrowOutcome{}, err
	}
	lm.logger.Info("book borrowed",
		slog.String("member", memberID), slog.String("book", bookID), slog.String("due", formatDate(due)))
	return BorrowOutcome{Status: BorrowedUntil, DueDate: due}, nil
}

// ReturnBook ends memberID's loan of bookID, charges FinePerDay for every
// whole day past due and hands the book to the head of the waitlist.
func (lm *LibraryManager) ReturnBook(memberID, bookID string) (ReturnOutcome, error) {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	book := lm.catalog.FindBook(bookID)
	if book == nil {
		return ReturnOutcome{Status: ReturnBookNotFound}, nil
	}
	if book.BorrowedBy() != memberID || book.Loan == nil {
		return ReturnOutcome{Status: NotBorrowedByThisMember}, nil
	}

	today := lm.today()
	out := ReturnOutcome{Status: Returned}
	bookBefore := book.clone()
	member := lm.catalog.FindMember(memberID)
	var memberBefore Member
	if member != nil {
		memberBefore = *member
	}

	if today.After(book.Loan.Due) {
		out.DaysLate = daysBetween(book.Loan.Due, today)
		out.FineCharged = out.DaysLate * FinePerDay
		if member != nil {
			member.Fine += out.FineCharged
		} else {
			lm.logger.Warn("late return by unknown member; fine not recorded",
				slog.String("member", memberID), slog.Int("fine", out.FineCharged))
		}
	}

	book.Loan = nil
	if len(book.Waitlist) > 0 {
		next := book.Waitlist[0]
		book.Waitlist = removeID(book.Waitlist, next)
		book.Loan = &Loan{MemberID: next, Due: today.AddDate(0, 0, LoanPeriodDays)}
		out.PromotedTo = next
		out.PromotedDue = book.Loan.Due
	}

	if err := lm.catalog.Flush(); err != nil {
		*book = bookBefore
		if member != nil {
			*member = memberBefore
		}
		return ReturnOutcome{}, err
	}

	lm.logger.Info("book returned",
		slog.String("member", memberID), slog.String("book", bookID),
		slog.Int("days_late", out.DaysLate), slog.Int("fine", out.FineCharged),
		slog.String("promoted_to", out.PromotedTo))
	return out, nil
}

// CancelWaitlist takes memberID off bookID's waitlist.
func (lm *LibraryManager) CancelWaitlist(memberID, bookID string) (CancelOutcome, error) {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	book := lm.catalog.FindBook(bookID)
	if book == nil {
		return CancelOutcome{Status: CancelBookNotFound}, nil
	}
	if book.WaitlistPosition(memberID) == 0 {
		return CancelOutcome{Status: NotOnWaitlist}, nil
	}

	before := book.clone()
	book.Waitlist = removeID(book.Waitlist, memberID)
	if err := lm.catalog.Flush(); err != nil {
		*book = before
		return CancelOutcome{}, err
	}
	lm.logger.Info("waitlist cancelled", slog.String("member", memberID), slog.String("book", bookID))
	return CancelOutcome{Status: Cancelled}, nil
}

// ------------------ Reads ------------------

// Holdings returns the books memberID has on loan and the ones it is queued for.
func (lm *LibraryManager) Holdings(memberID string) Holdings {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	var h Holdings
	for _, b := range lm.catalog.books {
		if b.BorrowedBy() == memberID && b.Loan != nil {
			h.Borrowed = append(h.Borrowed, b.clone())
		}
		if pos := b.WaitlistPosition(memberID); pos > 0 {
			h.Waiting = append(h.Waiting, WaitlistEntry{Book: b.clone(), Position: pos})
		}
	}
	return h
}

// Overdue lists loans past due today, with the fine a return today would
// charge.
func (lm *LibraryManager) Overdue() []OverdueLoan {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	today := lm.today()
	var out []OverdueLoan
	for _, b := range lm.catalog.books {
		if b.Loan == nil || !today.After(b.Loan.Due) {
			continue
		}
		days := daysBetween(b.Loan.Due, today)
		out = append(out, OverdueLoan{Book: b.clone(), DaysLate: days, AccruedFine: days * FinePerDay})
	}
	return out
}

// FindMember returns a copy of the member with id.
func (lm *LibraryManager) FindMember(id string) (Member, bool) {
	lm.mu.Lock()
	defer lm.mu.Unlock()
	if m := lm.catalog.FindMember(id); m != nil {
		return *m, true
	}
	return Member{}, false
}

// FindBook returns a copy of the book with id.
func (lm *LibraryManager) FindBook(id string) (Book, bool) {
	lm.mu.Lock()
	defer lm.mu.Unlock()
	if b := lm.catalog.FindBook(id); b != nil {
		return b.clone(), true
	}
	return Book{}, false
}

// removeID drops id from ids, returning nil when nothing is left.
func removeID(ids []string, id string) []string {
	ids = slices.DeleteFunc(ids, func(s string) bool { return s == id })
	if len(ids) == 0 {
		return nil
	}
	return ids
}
