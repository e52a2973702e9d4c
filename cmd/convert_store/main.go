package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"lending-library/library"

	"github.com/spf13/cobra"
)

func main() {
	if err := newConvertCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newConvertCmd() *cobra.Command {
	from := library.DefaultConfig()
	to := library.DefaultConfig()
	to.Backend = library.BackendSQLite

	cmd := &cobra.Command{
		Use:          "convert_store",
		Short:        "Copy a library catalog between the text and sqlite backends",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return convert(cmd.OutOrStdout(), from, to)
		},
	}

	f := cmd.Flags()
	f.StringVar(&from.Backend, "from", from.Backend, "source backend: text or sqlite")
	f.StringVar(&from.MembersPath, "from-members", from.MembersPath, "source members file")
	f.StringVar(&from.BooksPath, "from-books", from.BooksPath, "source books file")
	f.StringVar(&from.DBPath, "from-db", from.DBPath, "source database")
	f.StringVar(&to.Backend, "to", to.Backend, "target backend: text or sqlite")
	f.StringVar(&to.MembersPath, "to-members", to.MembersPath, "target members file")
	f.StringVar(&to.BooksPath, "to-books", to.BooksPath, "target books file")
	f.StringVar(&to.DBPath, "to-db", to.DBPath, "target database")
	return cmd
}

// convert loads every record from one backend and replaces the contents of
// the other. The source is fully validated before anything is written.
func convert(w io.Writer, from, to library.Config) error {
	if from == to {
		return fmt.Errorf("source and target are the same store")
	}

	src, err := from.OpenStore()
	if err != nil {
		return fmt.Errorf("open source: %w", err)
	}
	defer closeStore(src)

	members, books, err := src.Load()
	if err != nil {
		return fmt.Errorf("load source: %w", err)
	}

	dst, err := to.OpenStore()
	if err != nil {
		return fmt.Errorf("open target: %w", err)
	}
	defer closeStore(dst)

	if err := dst.Save(members, books); err != nil {
		return fmt.Errorf("save target: %w", err)
	}

	fmt.Fprintf(w, "Converted %s -> %s\n", from.Backend, to.Backend)
	fmt.Fprintf(w, "Members: %d\n", len(members))
	fmt.Fprintf(w, "Books:   %d\n", len(books))
	if len(books) > 0 {
		fmt.Fprintln(w, library.PrettyBookHeader())
		fmt.Fprintln(w, strings.Repeat("-", 120))
		for i := range books {
			fmt.Fprintln(w, library.PrettyBook(&books[i]))
		}
	}
	return nil
}

func closeStore(s library.RecordStore) {
	if c, ok := s.(io.Closer); ok {
		c.Close()
	}
}
