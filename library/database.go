package library

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteStore persists the collections in a SQLite database. Row order is
// kept with an autoincrement sequence so duplicate ids survive a round trip.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// NewSQLiteStore opens (or creates) the SQLite database at dbPath and applies
// schema migrations.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	// Ensure directory exists so first-run succeeds.
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_foreign_keys=1", dbPath)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// One connection keeps the single-process model and avoids SQLITE_BUSY
	// between our own statements.
	db.SetMaxOpenConns(1)

	if err := applyMigrations(db); err != nil {
		db.Close()
		return nil, err
	}
	return &SQLiteStore{db: db, path: dbPath}, nil
}

// Close closes the DB.
func (s *SQLiteStore) Close() error { return s.db.Close() }

// ---------------------------------------------------------------------------
// Schema migration
// ---------------------------------------------------------------------------

const schemaVersion = 1

func applyMigrations(db *sql.DB) error {
	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		return fmt.Errorf("enable WAL: %w", err)
	}

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS meta (key TEXT PRIMARY KEY, value TEXT);`); err != nil {
		return err
	}

	var current int
	_ = db.QueryRow(`SELECT value FROM meta WHERE key='schema_version';`).Scan(&current)
	if current >= schemaVersion {
		return nil
	}

	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmts := []string{
		`CREATE TABLE IF NOT EXISTS members (
            seq INTEGER PRIMARY KEY AUTOINCREMENT,
            id TEXT NOT NULL,
            name TEXT NOT NULL,
            role TEXT NOT NULL,
            fine INTEGER NOT NULL DEFAULT 0 CHECK (fine >= 0)
        );`,
		`CREATE TABLE IF NOT EXISTS books (
            seq INTEGER PRIMARY KEY AUTOINCREMENT,
            id TEXT NOT NULL,
            title TEXT NOT NULL,
            author TEXT NOT NULL,
            borrowed_by TEXT,
            due_date TEXT,
            CHECK ((borrowed_by IS NULL) = (due_date IS NULL))
        );`,
		`CREATE TABLE IF NOT EXISTS waitlist (
            book_seq INTEGER NOT NULL REFERENCES books(seq) ON DELETE CASCADE,
            position INTEGER NOT NULL,
            member_id TEXT NOT NULL,
            PRIMARY KEY (book_seq, position)
        );`,
	}

	for _, stmt := range stmts {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("apply migration: %w", err)
		}
	}
	if _, err := tx.Exec(`INSERT INTO meta(key,value) VALUES('schema_version',?)
        ON CONFLICT(key) DO UPDATE SET value=excluded.value;`, schemaVersion); err != nil {
		return fmt.Errorf("record schema version: %w", err)
	}

	return tx.Commit()
}

// ---------------------------------------------------------------------------
// RecordStore
// ---------------------------------------------------------------------------

// Load reads members and books in insertion order.
func (s *SQLiteStore) Load() ([]Member, []Book, error) {
	members, err := s.loadMembers()
	if err != nil {
		return nil, nil, err
	}
	books, err := s.loadBooks()
	if err != nil {
		return nil, nil, err
	}
	return members, books, nil
}

func (s *SQLiteStore) loadMembers() ([]Member, error) {
	rows, err := s.db.Query(`SELECT id,name,role,fine FROM members ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("query members: %w", err)
	}
	defer rows.Close()

	var members []Member
	for rows.Next() {
		var m Member
		if err := rows.Scan(&m.ID, &m.Name, &m.Role, &m.Fine); err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

func (s *SQLiteStore) loadBooks() ([]Book, error) {
	rows, err := s.db.Query(`SELECT seq,id,title,author,borrowed_by,due_date FROM books ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("query books: %w", err)
	}
	defer rows.Close()

	var (
		books []Book
		seqs  []int64
	)
	for rows.Next() {
		var (
			b        Book
			seq      int64
			borrower sql.NullString
			due      sql.NullString
		)
		if err := rows.Scan(&seq, &b.ID, &b.Title, &b.Author, &borrower, &due); err != nil {
			return nil, fmt.Errorf("scan book: %w", err)
		}
		if borrower.Valid {
			d, err := parseDate(due.String)
			if err != nil {
				return nil, &RecordError{Source: s.path, Line: int(seq), Err: malformed("due date %q: %v", due.String, err)}
			}
			b.Loan = &Loan{MemberID: borrower.String, Due: d}
		}
		books = append(books, b)
		seqs = append(seqs, seq)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	rows.Close()

	for i := range books {
		if books[i].Waitlist, err = s.loadWaitlist(seqs[i]); err != nil {
			return nil, err
		}
		if err := validateBook(&books[i]); err != nil {
			return nil, &RecordError{Source: s.path, Line: int(seqs[i]), Err: err}
		}
	}
	return books, nil
}

func (s *SQLiteStore) loadWaitlist(bookSeq int64) ([]string, error) {
	rows, err := s.db.Query(`SELECT member_id FROM waitlist WHERE book_seq=? ORDER BY position`, bookSeq)
	if err != nil {
		return nil, fmt.Errorf("query waitlist: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan waitlist: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Save replaces every row in one transaction.
func (s *SQLiteStore) Save(members []Member, books []Book) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, stmt := range []string{
		`DELETE FROM waitlist`,
		`DELETE FROM books`,
		`DELETE FROM members`,
		`DELETE FROM sqlite_sequence WHERE name IN ('books','members')`,
	} {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("clear tables: %w", err)
		}
	}

	addMember, err := tx.Prepare(`INSERT INTO members(id,name,role,fine) VALUES(?,?,?,?)`)
	if err != nil {
		return err
	}
	defer addMember.Close()
	for _, m := range members {
		if _, err := addMember.Exec(m.ID, m.Name, m.Role, m.Fine); err != nil {
			return fmt.Errorf("insert member %q: %w", m.ID, err)
		}
	}

	addBook, err := tx.Prepare(`INSERT INTO books(id,title,author,borrowed_by,due_date) VALUES(?,?,?,?,?)`)
	if err != nil {
		return err
	}
	defer addBook.Close()
	addWaiter, err := tx.Prepare(`INSERT INTO waitlist(book_seq,position,member_id) VALUES(?,?,?)`)
	if err != nil {
		return err
	}
	defer addWaiter.Close()

	for i := range books {
		b := &books[i]
		var borrower, due sql.NullString
		if b.Loan != nil {
			borrower = sql.NullString{String: b.Loan.MemberID, Valid: true}
			due = sql.NullString{String: formatDate(b.Loan.Due), Valid: true}
		}
		res, err := addBook.Exec(b.ID, b.Title, b.Author, borrower, due)
		if err != nil {
			return fmt.Errorf("insert book %q: %w", b.ID, err)
		}
		seq, err := res.LastInsertId()
		if err != nil {
			return err
		}
		for pos, id := range b.Waitlist {
			if _, err := addWaiter.Exec(seq, pos, id); err != nil {
				return fmt.Errorf("insert waitlist %q for book %q: %w", id, b.ID, err)
			}
		}
	}

	return tx.Commit()
}
