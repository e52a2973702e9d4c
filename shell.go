package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"lending-library/library"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func (a *app) shellCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "shell",
		Short: "Interactive prompt over the same operations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			interactive := false
			if f, ok := cmd.InOrStdin().(*os.File); ok {
				interactive = term.IsTerminal(int(f.Fd()))
			}
			return runShell(cmd.InOrStdin(), cmd.OutOrStdout(), a.mgr, interactive)
		},
	}
}

// shell reads one command per line and prompts for its fields. Prompts are
// only printed when a person is typing.
type shell struct {
	sc          *bufio.Scanner
	w           io.Writer
	mgr         *library.LibraryManager
	interactive bool
}

func runShell(r io.Reader, w io.Writer, mgr *library.LibraryManager, interactive bool) error {
	sh := &shell{sc: bufio.NewScanner(r), w: w, mgr: mgr, interactive: interactive}

	if interactive {
		fmt.Fprintln(w, "Welcome to the Library Management System!")
		fmt.Fprintln(w, "Available commands:")
		fmt.Fprintln(w, "  Catalog: add member, add book, list members, list books")
		fmt.Fprintln(w, "  Circulation: borrow, return, cancel, member, overdue")
		fmt.Fprintln(w, "  System: exit")
	}

	for {
		cmd, ok := sh.ask("\n> ")
		if !ok {
			return sh.sc.Err()
		}
		cmd = strings.TrimSpace(cmd)

		var err error
		switch cmd {
		case "":
			continue
		case "add member":
			err = sh.addMember()
		case "add book":
			err = sh.addBook()
		case "list members":
			printMembers(w, mgr.ListMembers())
		case "list books":
			printBooks(w, mgr.ListBooks())
		case "borrow":
			err = sh.borrow()
		case "return":
			err = sh.returnBook()
		case "cancel":
			err = sh.cancel()
		case "member":
			if id, ok := sh.ask("Member ID: "); ok {
				printHoldings(w, mgr, id)
			}
		case "overdue":
			printOverdue(w, mgr.Overdue())
		case "exit", "quit":
			if interactive {
				fmt.Fprintln(w, "Goodbye!")
			}
			return nil
		default:
			fmt.Fprintln(w, "Unknown command. Type one of the available commands listed above.")
		}

		// Storage errors are reported and the session continues; the
		// failed operation left memory unchanged.
		if err != nil {
			fmt.Fprintf(w, "Error: %v\n", err)
		}
	}
}

// ask returns the next line as typed. Ids are matched exactly, so only a
// trailing carriage return is stripped.
func (sh *shell) ask(prompt string) (string, bool) {
	if sh.interactive {
		fmt.Fprint(sh.w, prompt)
	}
	if !sh.sc.Scan() {
		return "", false
	}
	return strings.TrimSuffix(sh.sc.Text(), "\r"), true
}

// askAll prompts for each field in order and stops at end of input.
func (sh *shell) askAll(prompts ...string) ([]string, bool) {
	answers := make([]string, 0, len(prompts))
	for _, p := range prompts {
		v, ok := sh.ask(p)
		if !ok {
			return nil, false
		}
		answers = append(answers, v)
	}
	return answers, true
}

func (sh *shell) addMember() error {
	f, ok := sh.askAll("Member ID (empty to generate): ", "Name: ", "Role: ")
	if !ok {
		return nil
	}
	if f[0] == "" {
		f[0] = uuid.NewString()
	}
	if err := sh.mgr.AddMember(f[0], f[1], f[2]); err != nil {
		return err
	}
	fmt.Fprintf(sh.w, "Added member '%s' with ID %s\n", f[1], f[0])
	return nil
}

func (sh *shell) addBook() error {
	f, ok := sh.askAll("Book ID (empty to generate): ", "Title: ", "Author: ")
	if !ok {
		return nil
	}
	if f[0] == "" {
		f[0] = uuid.NewString()
	}
	if err := sh.mgr.AddBook(f[0], f[1], f[2]); err != nil {
		return err
	}
	fmt.Fprintf(sh.w, "Added book '%s' with ID %s\n", f[1], f[0])
	return nil
}

func (sh *shell) borrow() error {
	f, ok := sh.askAll("Member ID: ", "Book ID: ")
	if !ok {
		return nil
	}
	out, err := sh.mgr.Borrow(f[0], f[1])
	if err != nil {
		return err
	}
	fmt.Fprintln(sh.w, out)
	return nil
}

func (sh *shell) returnBook() error {
	f, ok := sh.askAll("Member ID: ", "Book ID: ")
	if !ok {
		return nil
	}
	out, err := sh.mgr.ReturnBook(f[0], f[1])
	if err != nil {
		return err
	}
	fmt.Fprintln(sh.w, out)
	return nil
}

func (sh *shell) cancel() error {
	f, ok := sh.askAll("Member ID: ", "Book ID: ")
	if !ok {
		return nil
	}
	out, err := sh.mgr.CancelWaitlist(f[0], f[1])
	if err != nil {
		return err
	}
	fmt.Fprintln(sh.w, out)
	return nil
}
