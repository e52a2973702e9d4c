package library

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tempDB(t *testing.T) *SQLiteStore {
	t.Helper()
	dir := t.TempDir()
	db, err := NewSQLiteStore(filepath.Join(dir, "test.db"))
	if err != nil {
		t.Fatalf("new db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func sampleCollections() ([]Member, []Book) {
	due := time.Date(2024, 3, 8, 0, 0, 0, 0, time.UTC)
	members := []Member{
		{ID: "M1", Name: "Alice", Role: "student"},
		{ID: "M2", Name: "Doe, Jane", Role: "staff", Fine: 6},
		{ID: "M1", Name: "Shadow", Role: "dup"},
	}
	books := []Book{
		{ID: "B1", Title: "Dune", Author: "Herbert", Loan: &Loan{MemberID: "M1", Due: due}, Waitlist: []string{"M3", "M2"}},
		{ID: "B2", Title: "Emma", Author: "Austen"},
		{ID: "B3", Title: "Ulysses", Author: "Joyce", Loan: &Loan{MemberID: "M2", Due: due.AddDate(0, 0, 3)}},
	}
	return members, books
}

func TestSQLiteStoreEmpty(t *testing.T) {
	db := tempDB(t)
	members, books, err := db.Load()
	require.NoError(t, err)
	assert.Empty(t, members)
	assert.Empty(t, books)
}

func TestSQLiteStoreRoundTrip(t *testing.T) {
	db := tempDB(t)
	members, books := sampleCollections()
	require.NoError(t, db.Save(members, books))

	gotMembers, gotBooks, err := db.Load()
	require.NoError(t, err)
	assert.Equal(t, members, gotMembers)
	assert.Equal(t, books, gotBooks)
}

func TestSQLiteStoreSaveReplacesRows(t *testing.T) {
	db := tempDB(t)
	members, books := sampleCollections()
	require.NoError(t, db.Save(members, books))

	require.NoError(t, db.Save(members[:1], books[1:2]))

	gotMembers, gotBooks, err := db.Load()
	require.NoError(t, err)
	assert.Equal(t, members[:1], gotMembers)
	assert.Equal(t, books[1:2], gotBooks)
}

func TestSQLiteStoreReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lib.db")
	db, err := NewSQLiteStore(path)
	require.NoError(t, err)
	members, books := sampleCollections()
	require.NoError(t, db.Save(members, books))
	require.NoError(t, db.Close())

	// Migrations must be a no-op the second time.
	db, err = NewSQLiteStore(path)
	require.NoError(t, err)
	defer db.Close()

	gotMembers, gotBooks, err := db.Load()
	require.NoError(t, err)
	assert.Equal(t, members, gotMembers)
	assert.Equal(t, books, gotBooks)
}

func TestSQLiteStoreRejectsInvalidWaitlist(t *testing.T) {
	db := tempDB(t)
	due := time.Date(2024, 3, 8, 0, 0, 0, 0, time.UTC)
	books := []Book{{ID: "B1", Loan: &Loan{MemberID: "M1", Due: due}, Waitlist: []string{"M1"}}}
	require.NoError(t, db.Save(nil, books))

	_, _, err := db.Load()
	assert.ErrorIs(t, err, ErrMalformedRecord)
}

func TestLibraryManagerOverSQLite(t *testing.T) {
	db := tempDB(t)
	clock := newTestClock()
	lm, err := NewLibraryManager(db, WithClock(clock.Now))
	require.NoError(t, err)

	require.NoError(t, lm.AddMember("M1", "Alice", "student"))
	require.NoError(t, lm.AddMember("M2", "Bob", "staff"))
	require.NoError(t, lm.AddBook("B1", "Dune", "Herbert"))

	_, err = lm.Borrow("M1", "B1")
	require.NoError(t, err)
	_, err = lm.Borrow("M2", "B1")
	require.NoError(t, err)

	reloaded, err := NewLibraryManager(db, WithClock(clock.Now))
	require.NoError(t, err)
	assert.Equal(t, lm.ListBooks(), reloaded.ListBooks())
	assert.Equal(t, lm.ListMembers(), reloaded.ListMembers())
}
