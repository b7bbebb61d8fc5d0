// Package tlds tracks the set of suffixes open for new registrations.
package tlds

import (
	"sort"
	"sync"

	"registrar/internal/registry/name"
	dErrors "registrar/pkg/domain-errors"
)

// ErrEmptyTLD rejects the empty suffix on administrative mutation.
var ErrEmptyTLD = dErrors.New(dErrors.CodeValidation, "tld must not be empty")

// Set is the admin-mutable collection of supported suffixes. Suffixes are
// stored in canonical (ASCII lower-cased) form. Removing a suffix only stops
// new registrations; records already created under it stay valid.
type Set struct {
	mu        sync.RWMutex
	supported map[string]struct{}
}

// NewSet builds a set seeded with the given suffixes.
func NewSet(initial ...string) *Set {
	s := &Set{supported: make(map[string]struct{}, len(initial))}
	for _, tld := range initial {
		if tld != "" {
			s.supported[name.Canonicalize(tld)] = struct{}{}
		}
	}
	return s
}

// IsSupported reports whether the suffix currently accepts registrations.
func (s *Set) IsSupported(tld string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.supported[name.Canonicalize(tld)]
	return ok
}

// Add opens a suffix for registration. Idempotent.
func (s *Set) Add(tld string) error {
	if tld == "" {
		return ErrEmptyTLD
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.supported[name.Canonicalize(tld)] = struct{}{}
	return nil
}

// Remove closes a suffix for new registrations. Idempotent.
func (s *Set) Remove(tld string) error {
	if tld == "" {
		return ErrEmptyTLD
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.supported, name.Canonicalize(tld))
	return nil
}

// List returns the supported suffixes in sorted order.
func (s *Set) List() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.supported))
	for tld := range s.supported {
		out = append(out, tld)
	}
	sort.Strings(out)
	return out
}
