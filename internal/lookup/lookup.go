// Package lookup implements exact-match lookup over a lexicographically
// sorted string table. It is shared by the serial command recognizer and
// the HTTP settings parameter parser.
package lookup

import (
	"fmt"
	"slices"
)

// Table is an immutable, strictly sorted list of words.
type Table struct {
	words []string
}

// New builds a table from words. The words must already be in strictly
// ascending byte order; tables are written as literals, so an unsorted or
// duplicated entry is a programming error and panics.
func New(words ...string) *Table {
	for i := 1; i < len(words); i++ {
		if words[i-1] >= words[i] {
			panic(fmt.Sprintf("lookup: table not strictly sorted at %q, %q", words[i-1], words[i]))
		}
	}
	return &Table{words: slices.Clone(words)}
}

// Find returns the index of s and true when s is in the table.
// Matching is exact and case-sensitive; prefixes never match.
func (t *Table) Find(s string) (int, bool) {
	return slices.BinarySearch(t.words, s)
}

// Len returns the number of words.
func (t *Table) Len() int { return len(t.words) }

// Word returns the word at index i.
func (t *Table) Word(i int) string { return t.words[i] }
