package query

import (
	"fmt"
	"strconv"
	"strings"
)

// Key identifies a cache entry. List entries are keyed by the ordered tuple
// (Tag, Page, PageSize, Search); detail entries by (Tag, ID). Scope names a
// sub-collection of the tag, such as the members of one group, and is
// invalidated with it.
type Key struct {
	Tag      string
	Scope    string
	ID       string
	Page     int
	PageSize int
	Search   string
}

// ListKey returns the key of one list page.
func ListKey(tag string, page, pageSize int, search string) Key {
	return Key{Tag: tag, Page: page, PageSize: pageSize, Search: search}
}

// DetailKey returns the key of one entity.
func DetailKey(tag, id string) Key {
	return Key{Tag: tag, ID: id}
}

// IsDetail reports whether k addresses a single entity.
func (k Key) IsDetail() bool {
	return k.ID != ""
}

// String is unique per key and used for request de-duplication.
func (k Key) String() string {
	tag := k.Tag
	if k.Scope != "" {
		tag += "/" + k.Scope
	}
	if k.IsDetail() {
		return tag + "#" + k.ID
	}
	return strings.Join([]string{tag, strconv.Itoa(k.Page), strconv.Itoa(k.PageSize), strconv.Quote(k.Search)}, "|")
}

// State is the lifecycle stage of an entry.
type State int

const (
	Idle State = iota
	Loading
	Fresh
	Stale
	Error
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Loading:
		return "loading"
	case Fresh:
		return "fresh"
	case Stale:
		return "stale"
	case Error:
		return "error"
	}
	return fmt.Sprintf("state(%d)", int(s))
}
