package library

import (
	"fmt"
	"os"
)

// Store backends understood by Config.
const (
	BackendText   = "text"
	BackendSQLite = "sqlite"
)

// Environment variables read by ConfigFromEnv.
const (
	EnvBackend     = "LIBRARY_BACKEND"
	EnvMembersFile = "LIBRARY_MEMBERS_FILE"
	EnvBooksFile   = "LIBRARY_BOOKS_FILE"
	EnvDB          = "LIBRARY_DB"
)

// Default values
const (
	DefaultMembersFile = "members.csv"
	DefaultBooksFile   = "books.csv"
	DefaultDBFile      = "library.db"
)

// Config says where the catalog is stored.
type Config struct {
	Backend     string
	MembersPath string
	BooksPath   string
	DBPath      string
}

// DefaultConfig stores text files in the working directory.
func DefaultConfig() Config {
	return Config{
		Backend:     BackendText,
		MembersPath: DefaultMembersFile,
		BooksPath:   DefaultBooksFile,
		DBPath:      DefaultDBFile,
	}
}

// ConfigFromEnv starts from DefaultConfig and applies any LIBRARY_* variables
// that are set.
func ConfigFromEnv() Config {
	cfg := DefaultConfig()
	if v := os.Getenv(EnvBackend); v != "" {
		cfg.Backend = v
	}
	if v := os.Getenv(EnvMembersFile); v != "" {
		cfg.MembersPath = v
	}
	if v := os.Getenv(EnvBooksFile); v != "" {
		cfg.BooksPath = v
	}
	if v := os.Getenv(EnvDB); v != "" {
		cfg.DBPath = v
	}
	return cfg
}

// Validate checks the backend name and that its paths are set.
func (c Config) Validate() error {
	switch c.Backend {
	case BackendText:
		if c.MembersPath == "" || c.BooksPath == "" {
			return fmt.Errorf("text backend needs both members and books file paths")
		}
	case BackendSQLite:
		if c.DBPath == "" {
			return fmt.Errorf("sqlite backend needs a database path")
		}
	default:
		return fmt.Errorf("unknown backend %q (want %q or %q)", c.Backend, BackendText, BackendSQLite)
	}
	return nil
}

// OpenStore builds the configured RecordStore.
func (c Config) OpenStore() (RecordStore, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	if c.Backend == BackendSQLite {
		s, err := NewSQLiteStore(c.DBPath)
		if err != nil {
			return nil, err
		}
		return s, nil
	}
	return NewTextStore(c.MembersPath, c.BooksPath), nil
}
