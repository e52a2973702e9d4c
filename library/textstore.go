package library

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

const (
	memberFields = 4 // id,name,role,fine
	bookFields   = 7 // id,title,author,borrowed,borrowedBy,dueDate,waitlist
)

// TextStore keeps members and books in two comma-separated text files, one
// record per line, no header and no quoting.
type TextStore struct {
	MembersPath string
	BooksPath   string
}

// NewTextStore returns a TextStore over the two file paths.
func NewTextStore(membersPath, booksPath string) *TextStore {
	return &TextStore{MembersPath: membersPath, BooksPath: booksPath}
}

// Load reads both files. A missing file is an empty collection; the first
// malformed line aborts the whole load.
func (s *TextStore) Load() ([]Member, []Book, error) {
	var members []Member
	err := readLines(s.MembersPath, func(line string) error {
		m, err := decodeMember(line)
		if err != nil {
			return err
		}
		members = append(members, m)
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	var books []Book
	err = readLines(s.BooksPath, func(line string) error {
		b, err := decodeBook(line)
		if err != nil {
			return err
		}
		books = append(books, b)
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return members, books, nil
}

// Save rewrites both files. Nothing is written if any record is unencodable.
func (s *TextStore) Save(members []Member, books []Book) error {
	var mb strings.Builder
	for _, m := range members {
		line, err := encodeMember(m)
		if err != nil {
			return err
		}
		mb.WriteString(line)
		mb.WriteByte('\n')
	}
	var bb strings.Builder
	for i := range books {
		line, err := encodeBook(&books[i])
		if err != nil {
			return err
		}
		bb.WriteString(line)
		bb.WriteByte('\n')
	}

	return commitPair(s.MembersPath, mb.String(), s.BooksPath, bb.String())
}

// ---------------------------------------------------------------------------
// Codec
// ---------------------------------------------------------------------------

func encodeMember(m Member) (string, error) {
	if err := checkFields(m.ID, m.Name, m.Role); err != nil {
		return "", fmt.Errorf("member %q: %w", m.ID, err)
	}
	if m.Fine < 0 {
		return "", fmt.Errorf("member %q: %w: negative fine %d", m.ID, ErrUnencodable, m.Fine)
	}
	return strings.Join([]string{m.ID, m.Name, m.Role, strconv.Itoa(m.Fine)}, ","), nil
}

func decodeMember(line string) (Member, error) {
	parts := strings.Split(line, ",")
	if len(parts) != memberFields {
		return Member{}, malformed("member has %d fields, want %d", len(parts), memberFields)
	}
	fine, err := strconv.Atoi(parts[3])
	if err != nil {
		return Member{}, malformed("fine %q is not an integer", parts[3])
	}
	if fine < 0 {
		return Member{}, malformed("fine %d is negative", fine)
	}
	return Member{ID: parts[0], Name: parts[1], Role: parts[2], Fine: fine}, nil
}

func encodeBook(b *Book) (string, error) {
	if err := checkFields(b.ID, b.Title, b.Author, b.BorrowedBy()); err != nil {
		return "", fmt.Errorf("book %q: %w", b.ID, err)
	}
	for _, id := range b.Waitlist {
		if id == "" || strings.Contains(id, ";") {
			return "", fmt.Errorf("book %q: %w: waitlist id %q", b.ID, ErrUnencodable, id)
		}
		if err := checkFields(id); err != nil {
			return "", fmt.Errorf("book %q: %w", b.ID, err)
		}
	}
	if b.Loan != nil && b.Loan.MemberID == "" {
		return "", fmt.Errorf("book %q: %w: loan without borrower", b.ID, ErrUnencodable)
	}

	due := ""
	if b.Loan != nil {
		due = formatDate(b.Loan.Due)
	}
	return strings.Join([]string{
		b.ID,
		b.Title,
		b.Author,
		strconv.FormatBool(b.Borrowed()),
		b.BorrowedBy(),
		due,
		strings.Join(b.Waitlist, ";"),
	}, ","), nil
}

func decodeBook(line string) (Book, error) {
	parts := strings.Split(line, ",")
	if len(parts) != bookFields {
		return Book{}, malformed("book has %d fields, want %d", len(parts), bookFields)
	}
	b := Book{ID: parts[0], Title: parts[1], Author: parts[2]}

	var borrowed bool
	switch parts[3] {
	case "true":
		borrowed = true
	case "false":
	default:
		return Book{}, malformed("borrowed flag %q is not true/false", parts[3])
	}

	borrower, dueText := parts[4], parts[5]
	if borrowed {
		if borrower == "" || dueText == "" {
			return Book{}, malformed("book %q is borrowed without borrower and due date", b.ID)
		}
		due, err := parseDate(dueText)
		if err != nil {
			return Book{}, malformed("due date %q: %v", dueText, err)
		}
		b.Loan = &Loan{MemberID: borrower, Due: due}
	} else if borrower != "" || dueText != "" {
		return Book{}, malformed("book %q is available but has borrower %q due %q", b.ID, borrower, dueText)
	}

	if parts[6] != "" {
		b.Waitlist = strings.Split(parts[6], ";")
	}
	if err := validateBook(&b); err != nil {
		return Book{}, err
	}
	return b, nil
}

func checkFields(values ...string) error {
	for _, v := range values {
		if strings.ContainsAny(v, ",\r\n") {
			return fmt.Errorf("%w: %q contains a comma or line break", ErrUnencodable, v)
		}
	}
	return nil
}

// ---------------------------------------------------------------------------
// File helpers
// ---------------------------------------------------------------------------

func readLines(path string, fn func(line string) error) error {
	f, err := os.Open(filepath.Clean(path))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return scanLines(path, f, fn)
}

func scanLines(source string, r io.Reader, fn func(line string) error) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	n := 0
	for sc.Scan() {
		n++
		line := strings.TrimSuffix(sc.Text(), "\r")
		if line == "" {
			continue
		}
		if err := fn(line); err != nil {
			return &RecordError{Source: source, Line: n, Err: err}
		}
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("read %s: %w", source, err)
	}
	return nil
}

// commitPair replaces both files or neither. Both temp files are staged
// before either rename; if the books rename fails the members file is put
// back the way it was.
func commitPair(membersPath, members, booksPath, books string) error {
	membersTmp, err := stageFile(membersPath, members)
	if err != nil {
		return fmt.Errorf("save members: %w", err)
	}
	defer os.Remove(membersTmp)
	booksTmp, err := stageFile(booksPath, books)
	if err != nil {
		return fmt.Errorf("save books: %w", err)
	}
	defer os.Remove(booksTmp)

	prev, err := os.ReadFile(membersPath)
	existed := err == nil
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("save members: %w", err)
	}

	if err := os.Rename(membersTmp, membersPath); err != nil {
		return fmt.Errorf("save members: %w", err)
	}
	if err := os.Rename(booksTmp, booksPath); err != nil {
		if rerr := restoreFile(membersPath, prev, existed); rerr != nil {
			return fmt.Errorf("save books: %w (restore members: %v)", err, rerr)
		}
		return fmt.Errorf("save books: %w", err)
	}
	return nil
}

func restoreFile(path string, prev []byte, existed bool) error {
	if !existed {
		return os.Remove(path)
	}
	tmp, err := stageFile(path, string(prev))
	if err != nil {
		return err
	}
	defer os.Remove(tmp)
	return os.Rename(tmp, path)
}

// stageFile writes content to a temp file next to path and returns its name.
func stageFile(path, content string) (string, error) {
	dir := filepath.Dir(path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", fmt.Errorf("create dir: %w", err)
		}
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp*")
	if err != nil {
		return "", err
	}
	if _, err := tmp.WriteString(content); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", err
	}
	return tmp.Name(), nil
}
