package library

import (
	"fmt"
	"strings"
)

// Status is the book's one-line availability text.
func (b Book) Status() string {
	if b.Loan == nil {
		return "AVAILABLE"
	}
	return fmt.Sprintf("BORROWED by %s due %s", b.Loan.MemberID, formatDate(b.Loan.Due))
}

// PrettyBook formats a book for lists.
func PrettyBook(b *Book) string {
	return fmt.Sprintf("%-10s %-30s %-25s %-36s %s",
		b.ID, truncate(b.Title, 30), truncate(b.Author, 25), b.Status(), strings.Join(b.Waitlist, ", "))
}

// PrettyBookHeader is the column header matching PrettyBook.
func PrettyBookHeader() string {
	return fmt.Sprintf("%-10s %-30s %-25s %-36s %s", "ID", "Title", "Author", "Status", "Waitlist")
}

// PrettyMember formats a member for lists.
func PrettyMember(m *Member) string {
	return fmt.Sprintf("%-10s %-30s %-15s %6d", m.ID, truncate(m.Name, 30), truncate(m.Role, 15), m.Fine)
}

// PrettyMemberHeader is the column header matching PrettyMember.
func PrettyMemberHeader() string {
	return fmt.Sprintf("%-10s %-30s %-15s %6s", "ID", "Name", "Role", "Fine")
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	if n <= 3 {
		return s[:n]
	}
	return s[:n-3] + "..."
}
