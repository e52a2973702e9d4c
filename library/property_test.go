package library

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

var (
	propMembers = []string{"M1", "M2", "M3", "M4", "ghost"}
	propBooks   = []string{"B1", "B2", "missing"}
)

func checkBookInvariants(t *rapid.T, books []Book) {
	for _, b := range books {
		if b.Loan != nil {
			require.NotEmpty(t, b.Loan.MemberID, "book %s", b.ID)
			require.False(t, b.Loan.Due.IsZero(), "book %s", b.ID)
		}
		seen := map[string]bool{}
		for _, id := range b.Waitlist {
			require.False(t, seen[id], "book %s lists %s twice", b.ID, id)
			require.NotEqual(t, b.BorrowedBy(), id, "book %s borrower waitlisted", b.ID)
			seen[id] = true
		}
	}
}

func TestLendingProperties(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		clock := newTestClock()
		store := NewMemoryStore(nil, nil)
		lm, err := NewLibraryManager(store, WithClock(clock.Now))
		require.NoError(t, err)
		for _, id := range propMembers[:4] {
			require.NoError(t, lm.AddMember(id, id, "student"))
		}
		for _, id := range propBooks[:2] {
			require.NoError(t, lm.AddBook(id, id, "anon"))
		}

		steps := rapid.IntRange(1, 80).Draw(t, "steps")
		for i := 0; i < steps; i++ {
			clock.advance(rapid.IntRange(0, 10).Draw(t, "days"))
			memberID := rapid.SampledFrom(propMembers).Draw(t, "member")
			bookID := rapid.SampledFrom(propBooks).Draw(t, "book")
			today := dateOf(clock.Now())

			before, hadBook := lm.FindBook(bookID)
			fineBefore, _ := lm.FindMember(memberID)

			switch rapid.IntRange(0, 2).Draw(t, "op") {
			case 0:
				out, err := lm.Borrow(memberID, bookID)
				require.NoError(t, err)
				if out.Status == BorrowedUntil {
					require.Equal(t, today.AddDate(0, 0, LoanPeriodDays), out.DueDate)
					after, _ := lm.FindBook(bookID)
					require.Equal(t, memberID, after.BorrowedBy())
				}
			case 1:
				out, err := lm.ReturnBook(memberID, bookID)
				require.NoError(t, err)
				if out.Status != Returned {
					continue
				}
				require.True(t, hadBook)
				wantLate := 0
				if today.After(before.Loan.Due) {
					wantLate = int(today.Sub(before.Loan.Due) / (24 * time.Hour))
				}
				require.Equal(t, wantLate, out.DaysLate)
				require.Equal(t, 2*wantLate, out.FineCharged)
				fineAfter, _ := lm.FindMember(memberID)
				require.Equal(t, fineBefore.Fine+out.FineCharged, fineAfter.Fine)

				after, _ := lm.FindBook(bookID)
				if len(before.Waitlist) > 0 {
					require.Equal(t, before.Waitlist[0], out.PromotedTo)
					require.Equal(t, before.Waitlist[0], after.BorrowedBy())
					require.Len(t, after.Waitlist, len(before.Waitlist)-1)
				} else {
					require.False(t, after.Borrowed())
				}
			case 2:
				_, err := lm.CancelWaitlist(memberID, bookID)
				require.NoError(t, err)
			}

			for _, m := range lm.ListMembers() {
				require.GreaterOrEqual(t, m.Fine, 0)
			}
			checkBookInvariants(t, lm.ListBooks())
		}

		reloaded, err := NewLibraryManager(store, WithClock(clock.Now))
		require.NoError(t, err)
		require.Equal(t, lm.ListMembers(), reloaded.ListMembers())
		require.Equal(t, lm.ListBooks(), reloaded.ListBooks())
	})
}

func genBooks(t *rapid.T) []Book {
	ids := rapid.SliceOfN(rapid.StringMatching(`[A-Z][0-9]{1,2}`), 0, 6).Draw(t, "ids")
	books := make([]Book, len(ids))
	for i, id := range ids {
		b := Book{
			ID:     id,
			Title:  rapid.StringMatching(`[a-zA-Z ]{0,12}`).Draw(t, "title"),
			Author: rapid.StringMatching(`[a-zA-Z .]{0,12}`).Draw(t, "author"),
		}
		borrower := ""
		if rapid.Bool().Draw(t, "borrowed") {
			borrower = rapid.StringMatching(`M[0-9]`).Draw(t, "borrower")
			offset := rapid.IntRange(-400, 400).Draw(t, "due")
			b.Loan = &Loan{MemberID: borrower, Due: date(2024, 6, 1).AddDate(0, 0, offset)}
		}
		waiting := rapid.SliceOfNDistinct(rapid.StringMatching(`W[0-9]`), 0, 4, rapid.ID[string]).Draw(t, "waitlist")
		if len(waiting) > 0 {
			b.Waitlist = waiting
		}
		books[i] = b
	}
	return books
}

func genMembers(t *rapid.T) []Member {
	n := rapid.IntRange(0, 6).Draw(t, "members")
	members := make([]Member, n)
	for i := range members {
		members[i] = Member{
			ID:   rapid.StringMatching(`M[0-9]`).Draw(t, "id"),
			Name: rapid.StringMatching(`[a-zA-Z ]{0,12}`).Draw(t, "name"),
			Role: rapid.StringMatching(`[a-z]{0,8}`).Draw(t, "role"),
			Fine: rapid.IntRange(0, 500).Draw(t, "fine"),
		}
	}
	return members
}

func TestTextStoreRoundTripProperty(t *testing.T) {
	dir := t.TempDir()
	rapid.Check(t, func(t *rapid.T) {
		s := NewTextStore(dir+"/members.csv", dir+"/books.csv")
		members, books := genMembers(t), genBooks(t)

		require.NoError(t, s.Save(members, books))
		gotMembers, gotBooks, err := s.Load()
		require.NoError(t, err)

		if len(members) == 0 {
			require.Empty(t, gotMembers)
		} else {
			require.Equal(t, members, gotMembers)
		}
		if len(books) == 0 {
			require.Empty(t, gotBooks)
		} else {
			require.Equal(t, books, gotBooks)
		}
	})
}
