package canonical

import (
	"fmt"
	"strings"
)

// Tag is a font table identifier as named by the dumper, e.g. "GSUB",
// "glyf", "OS_2". Tags are unique within a TableSet.
type Tag string

// TableSet is an ordered mapping from table tag to canonical text block.
// Ordering is the insertion order from the binary's table directory; it
// is preserved for readable output but carries no comparison semantics.
type TableSet struct {
	tags   []Tag
	blocks map[Tag]string
}

// NewTableSet creates an empty table set.
func NewTableSet() *TableSet {
	return &TableSet{blocks: make(map[Tag]string)}
}

// Add appends a table block. Adding a duplicate tag is an error: a
// well-formed font has exactly one directory entry per table.
func (s *TableSet) Add(tag Tag, text string) error {
	if _, ok := s.blocks[tag]; ok {
		return fmt.Errorf("duplicate table tag %q", tag)
	}
	s.tags = append(s.tags, tag)
	s.blocks[tag] = text
	return nil
}

// Replace overwrites the text of an existing table, preserving its
// position. It is a no-op if the tag is not present.
func (s *TableSet) Replace(tag Tag, text string) {
	if _, ok := s.blocks[tag]; ok {
		s.blocks[tag] = text
	}
}

// Remove deletes a table if present.
func (s *TableSet) Remove(tag Tag) {
	if _, ok := s.blocks[tag]; !ok {
		return
	}
	delete(s.blocks, tag)
	for i, t := range s.tags {
		if t == tag {
			s.tags = append(s.tags[:i], s.tags[i+1:]...)
			break
		}
	}
}

// Get returns the text block for tag and whether it exists.
func (s *TableSet) Get(tag Tag) (string, bool) {
	text, ok := s.blocks[tag]
	return text, ok
}

// Has reports whether the set contains tag.
func (s *TableSet) Has(tag Tag) bool {
	_, ok := s.blocks[tag]
	return ok
}

// Tags returns the table tags in insertion order.
// The returned slice is a copy.
func (s *TableSet) Tags() []Tag {
	out := make([]Tag, len(s.tags))
	copy(out, s.tags)
	return out
}

// Len returns the number of tables.
func (s *TableSet) Len() int { return len(s.tags) }

// Clone returns a deep copy of the set.
func (s *TableSet) Clone() *TableSet {
	out := NewTableSet()
	for _, tag := range s.tags {
		out.tags = append(out.tags, tag)
		out.blocks[tag] = s.blocks[tag]
	}
	return out
}

func (s *TableSet) String() string {
	parts := make([]string, len(s.tags))
	for i, t := range s.tags {
		parts[i] = string(t)
	}
	return "[" + strings.Join(parts, " ") + "]"
}
