package fileset

import (
	"path/filepath"
	"sort"
)

// Set is a deduplicated collection of paths.
//
// Paths are stored filepath.Clean'ed so that "a/./b" and "a/b" are one member.
// Membership order carries no meaning; Paths returns a sorted copy.
type Set struct {
	members map[string]struct{}
}

// NewSet builds a Set from paths, dropping duplicates and empty strings.
func NewSet(paths ...string) *Set {
	s := &Set{members: make(map[string]struct{}, len(paths))}
	for _, p := range paths {
		s.Add(p)
	}
	return s
}

// Add inserts path and reports whether it was newly added.
func (s *Set) Add(path string) bool {
	if path == "" {
		return false
	}
	if s.members == nil {
		s.members = make(map[string]struct{})
	}
	key := filepath.Clean(path)
	if _, ok := s.members[key]; ok {
		return false
	}
	s.members[key] = struct{}{}
	return true
}

// Contains reports whether path is a member.
func (s *Set) Contains(path string) bool {
	if s == nil || path == "" {
		return false
	}
	_, ok := s.members[filepath.Clean(path)]
	return ok
}

// Len returns the number of members.
func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return len(s.members)
}

// Replace discards every member and inserts paths.
func (s *Set) Replace(paths []string) {
	s.members = make(map[string]struct{}, len(paths))
	for _, p := range paths {
		s.Add(p)
	}
}

// Paths returns the members sorted lexicographically.
// The slice is a copy; mutating it does not affect the set.
func (s *Set) Paths() []string {
	if s == nil {
		return []string{}
	}
	out := make([]string, 0, len(s.members))
	for p := range s.members {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}
