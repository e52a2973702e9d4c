package library

import (
	"fmt"
)

// Catalog owns the in-memory member and book collections and flushes them to
// its RecordStore after every mutation. It does no locking of its own; the
// LibraryManager serializes access.
type Catalog struct {
	store   RecordStore
	members []*Member
	books   []*Book
}

// LoadCatalog reads both collections from store.
func LoadCatalog(store RecordStore) (*Catalog, error) {
	members, books, err := store.Load()
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	c := &Catalog{store: store}
	for i := range members {
		c.members = append(c.members, &members[i])
	}
	for i := range books {
		c.books = append(c.books, &books[i])
	}
	return c, nil
}

// FindMember returns the first member whose id matches exactly, or nil.
func (c *Catalog) FindMember(id string) *Member {
	for _, m := range c.members {
		if m.ID == id {
			return m
		}
	}
	return nil
}

// FindBook returns the first book whose id matches exactly, or nil.
func (c *Catalog) FindBook(id string) *Book {
	for _, b := range c.books {
		if b.ID == id {
			return b
		}
	}
	return nil
}

// AddMember appends a member with no fine and flushes. Duplicate ids are
// accepted; lookups keep returning the first one.
func (c *Catalog) AddMember(id, name, role string) error {
	c.members = append(c.members, &Member{ID: id, Name: name, Role: role})
	if err := c.Flush(); err != nil {
		c.members = c.members[:len(c.members)-1]
		return err
	}
	return nil
}

// AddBook appends an available book with an empty waitlist and flushes.
func (c *Catalog) AddBook(id, title, author string) error {
	c.books = append(c.books, &Book{ID: id, Title: title, Author: author})
	if err := c.Flush(); err != nil {
		c.books = c.books[:len(c.books)-1]
		return err
	}
	return nil
}

// Members returns a snapshot in insertion order.
func (c *Catalog) Members() []Member {
	out := make([]Member, len(c.members))
	for i, m := range c.members {
		out[i] = *m
	}
	return out
}

// Books returns a deep-copied snapshot in insertion order.
func (c *Catalog) Books() []Book {
	out := make([]Book, len(c.books))
	for i, b := range c.books {
		out[i] = b.clone()
	}
	return out
}

// Flush writes both collections to the store.
func (c *Catalog) Flush() error {
	if err := c.store.Save(c.Members(), c.Books()); err != nil {
		return fmt.Errorf("flush catalog: %w", err)
	}
	return nil
}
