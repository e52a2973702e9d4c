package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"lending-library/library"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

type app struct {
	cfg     library.Config
	verbose bool
	mgr     *library.LibraryManager
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{cfg: library.ConfigFromEnv()}

	root := &cobra.Command{
		Use:          "library",
		Short:        "Lend books, track due dates, waitlists and fines",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.open(cmd.ErrOrStderr())
		},
		PersistentPostRunE: func(*cobra.Command, []string) error {
			return a.close()
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.cfg.Backend, "backend", a.cfg.Backend, "store backend: text or sqlite")
	pf.StringVar(&a.cfg.MembersPath, "members", a.cfg.MembersPath, "members file (text backend)")
	pf.StringVar(&a.cfg.BooksPath, "books", a.cfg.BooksPath, "books file (text backend)")
	pf.StringVar(&a.cfg.DBPath, "db", a.cfg.DBPath, "database file (sqlite backend)")
	pf.BoolVarP(&a.verbose, "verbose", "v", false, "log debug output to stderr")

	root.AddCommand(
		a.addMemberCmd(),
		a.addBookCmd(),
		a.borrowCmd(),
		a.returnCmd(),
		a.cancelCmd(),
		a.listMembersCmd(),
		a.listBooksCmd(),
		a.memberCmd(),
		a.overdueCmd(),
		a.shellCmd(),
	)
	return root
}

func (a *app) open(stderr io.Writer) error {
	level := slog.LevelWarn
	if a.verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))

	store, err := a.cfg.OpenStore()
	if err != nil {
		return err
	}
	mgr, err := library.NewLibraryManager(store, library.WithLogger(logger))
	if err != nil {
		if c, ok := store.(io.Closer); ok {
			c.Close()
		}
		return err
	}
	a.mgr = mgr
	return nil
}

func (a *app) close() error {
	if a.mgr == nil {
		return nil
	}
	err := a.mgr.Close()
	a.mgr = nil
	return err
}

// ------------------ Catalog commands ------------------

func (a *app) addMemberCmd() *cobra.Command {
	var id, role string
	cmd := &cobra.Command{
		Use:   "add-member NAME",
		Short: "Register a member (id is generated when --id is empty)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if id == "" {
				id = uuid.NewString()
			}
			if err := a.mgr.AddMember(id, args[0], role); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added member '%s' with ID %s\n", args[0], id)
			return nil
		},
	}
	cmd.Flags().StringVar(&id, "id", "", "member id")
	cmd.Flags().StringVar(&role, "role", "", "member role")
	return cmd
}

func (a *app) addBookCmd() *cobra.Command {
	var id string
	cmd := &cobra.Command{
		Use:   "add-book TITLE AUTHOR",
		Short: "Add a book (id is generated when --id is empty)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if id == "" {
				id = uuid.NewString()
			}
			if err := a.mgr.AddBook(id, args[0], args[1]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added book '%s' with ID %s\n", args[0], id)
			return nil
		},
	}
	cmd.Flags().StringVar(&id, "id", "", "book id")
	return cmd
}

func (a *app) listMembersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "members",
		Short: "List members and their fines",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			printMembers(cmd.OutOrStdout(), a.mgr.ListMembers())
			return nil
		},
	}
}

func (a *app) listBooksCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "books",
		Short: "List books with status and waitlist",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			printBooks(cmd.OutOrStdout(), a.mgr.ListBooks())
			return nil
		},
	}
}

// ------------------ Circulation commands ------------------

func (a *app) borrowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "borrow MEMBER_ID BOOK_ID",
		Short: "Borrow a book or join its waitlist",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := a.mgr.Borrow(args[0], args[1])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), out)
			return nil
		},
	}
}

func (a *app) returnCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "return MEMBER_ID BOOK_ID",
		Short: "Return a book, charging any overdue fine",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := a.mgr.ReturnBook(args[0], args[1])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), out)
			return nil
		},
	}
}

func (a *app) cancelCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cancel MEMBER_ID BOOK_ID",
		Short: "Leave a book's waitlist",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := a.mgr.CancelWaitlist(args[0], args[1])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), out)
			return nil
		},
	}
}

func (a *app) memberCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "member MEMBER_ID",
		Short: "Show a member's fine, loans and waitlist places",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			printHoldings(cmd.OutOrStdout(), a.mgr, args[0])
			return nil
		},
	}
}

func (a *app) overdueCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "overdue",
		Short: "List overdue loans and the fine a return today would charge",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			printOverdue(cmd.OutOrStdout(), a.mgr.Overdue())
			return nil
		},
	}
}

// ------------------ Output ------------------

func printMembers(w io.Writer, members []library.Member) {
	if len(members) == 0 {
		fmt.Fprintln(w, "No members registered.")
		return
	}
	fmt.Fprintln(w, library.PrettyMemberHeader())
	fmt.Fprintln(w, strings.Repeat("-", 64))
	for i := range members {
		fmt.Fprintln(w, library.PrettyMember(&members[i]))
	}
}

func printBooks(w io.Writer, books []library.Book) {
	if len(books) == 0 {
		fmt.Fprintln(w, "No books in library.")
		return
	}
	fmt.Fprintln(w, library.PrettyBookHeader())
	fmt.Fprintln(w, strings.Repeat("-", 120))
	for i := range books {
		fmt.Fprintln(w, library.PrettyBook(&books[i]))
	}
}

func printHoldings(w io.Writer, mgr *library.LibraryManager, memberID string) {
	m, ok := mgr.FindMember(memberID)
	if !ok {
		fmt.Fprintln(w, "Member not found!")
		return
	}
	fmt.Fprintf(w, "%s (%s) role=%q fine=%d\n", m.Name, m.ID, m.Role, m.Fine)

	h := mgr.Holdings(memberID)
	if len(h.Borrowed) == 0 {
		fmt.Fprintln(w, "No books on loan.")
	}
	for _, b := range h.Borrowed {
		fmt.Fprintf(w, "  on loan: %s '%s' due %s\n", b.ID, b.Title, b.DueDate().Format("2006-01-02"))
	}
	for _, e := range h.Waiting {
		fmt.Fprintf(w, "  waiting: %s '%s' position %d\n", e.Book.ID, e.Book.Title, e.Position)
	}
}

func printOverdue(w io.Writer, loans []library.OverdueLoan) {
	if len(loans) == 0 {
		fmt.Fprintln(w, "No overdue loans.")
		return
	}
	fmt.Fprintf(w, "%-10s %-30s %-10s %8s %6s\n", "Book", "Title", "Borrower", "DaysLate", "Fine")
	fmt.Fprintln(w, strings.Repeat("-", 70))
	for _, l := range loans {
		fmt.Fprintf(w, "%-10s %-30s %-10s %8d %6d\n",
			l.Book.ID, l.Book.Title, l.Book.BorrowedBy(), l.DaysLate, l.AccruedFine)
	}
}
