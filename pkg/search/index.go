package search

import (
	"strings"
	"sync"

	"github.com/vitrina/vitrina/pkg/core"
)

// Index maintains, per owner, a mapping from normalized token prefixes to
// the figure ids containing that token in an indexed field (name or
// manufacturer). Sections for different owners are fully independent.
type Index struct {
	mu       sync.RWMutex
	sections map[string]*section
}

// section is one owner's slice of the index. Its lock serializes mutations
// against each other and against reads of the same section; other owners'
// sections are untouched.
type section struct {
	mu sync.RWMutex
	// postings maps a token prefix to the set of figure ids registered
	// under it.
	postings map[string]map[string]struct{}
	// docTokens maps a figure id to the full tokens it was indexed under,
	// so an update or delete can retract exactly its prior associations.
	docTokens map[string]map[string]struct{}
}

func newSection() *section {
	return &section{
		postings:  make(map[string]map[string]struct{}),
		docTokens: make(map[string]map[string]struct{}),
	}
}

func NewIndex() *Index {
	return &Index{sections: make(map[string]*section)}
}

// Tokenize returns the normalized tokens the index derives from the given
// field values: each whitespace-separated word, plus the full folded field
// value as a single token so multi-word prefixes match too.
func Tokenize(fields ...string) map[string]struct{} {
	tokens := make(map[string]struct{})
	for _, field := range fields {
		folded := Normalize(field)
		if folded == "" {
			continue
		}
		tokens[folded] = struct{}{}
		for _, word := range strings.Fields(folded) {
			tokens[word] = struct{}{}
		}
	}
	return tokens
}

// Upsert registers a figure under every prefix of every token derived from
// its name and manufacturer, scoped to its owner. Any prior associations of
// the same figure id are retracted first, making Upsert idempotent under
// repeated identical input.
func (ix *Index) Upsert(f *core.Figure) {
	if f == nil || f.OwnerID == "" || f.ID == "" {
		return
	}

	sec := ix.getOrCreateSection(f.OwnerID)
	sec.mu.Lock()
	defer sec.mu.Unlock()

	sec.removeLocked(f.ID)
	sec.insertLocked(f.ID, Tokenize(f.Name, f.Manufacturer))
}

// Remove deletes a figure id from every prefix entry it was registered
// under for that owner. No-op if the id was never indexed.
func (ix *Index) Remove(ownerID, figureID string) {
	sec := ix.getSection(ownerID)
	if sec == nil {
		return
	}

	sec.mu.Lock()
	defer sec.mu.Unlock()
	sec.removeLocked(figureID)
}

// LookupPrefix returns the ids of the owner's figures with a token starting
// with the given normalized prefix. The returned slice is a copy.
func (ix *Index) LookupPrefix(ownerID, prefix string) []string {
	sec := ix.getSection(ownerID)
	if sec == nil {
		return nil
	}

	sec.mu.RLock()
	defer sec.mu.RUnlock()

	ids := sec.postings[prefix]
	if len(ids) == 0 {
		return nil
	}
	out := make([]string, 0, len(ids))
	for id := range ids {
		out = append(out, id)
	}
	return out
}

// Rebuild clears and reconstructs the owner's section from a full snapshot
// of that owner's figures. It replaces rather than merges: the same
// snapshot always yields the same contents regardless of prior state.
// Figures belonging to other owners are ignored.
func (ix *Index) Rebuild(ownerID string, figures []*core.Figure) {
	fresh := newSection()
	for _, f := range figures {
		if f == nil || f.ID == "" || f.OwnerID != ownerID {
			continue
		}
		fresh.removeLocked(f.ID)
		fresh.insertLocked(f.ID, Tokenize(f.Name, f.Manufacturer))
	}

	ix.mu.Lock()
	ix.sections[ownerID] = fresh
	ix.mu.Unlock()
}

// HasSection reports whether the owner has an index section, i.e. whether
// the engine can serve word-wheel lookups from the index instead of
// scanning the store.
func (ix *Index) HasSection(ownerID string) bool {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	_, ok := ix.sections[ownerID]
	return ok
}

func (ix *Index) getSection(ownerID string) *section {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.sections[ownerID]
}

func (ix *Index) getOrCreateSection(ownerID string) *section {
	ix.mu.RLock()
	sec, ok := ix.sections[ownerID]
	ix.mu.RUnlock()
	if ok {
		return sec
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()
	if sec, ok := ix.sections[ownerID]; ok {
		return sec
	}
	sec = newSection()
	ix.sections[ownerID] = sec
	return sec
}

func (s *section) insertLocked(figureID string, tokens map[string]struct{}) {
	s.docTokens[figureID] = tokens
	for token := range tokens {
		runes := []rune(token)
		for i := 1; i <= len(runes); i++ {
			prefix := string(runes[:i])
			ids, ok := s.postings[prefix]
			if !ok {
				ids = make(map[string]struct{})
				s.postings[prefix] = ids
			}
			ids[figureID] = struct{}{}
		}
	}
}

func (s *section) removeLocked(figureID string) {
	tokens, ok := s.docTokens[figureID]
	if !ok {
		return
	}

	for token := range tokens {
		runes := []rune(token)
		for i := 1; i <= len(runes); i++ {
			prefix := string(runes[:i])
			ids, ok := s.postings[prefix]
			if !ok {
				continue
			}
			delete(ids, figureID)
			if len(ids) == 0 {
				delete(s.postings, prefix)
			}
		}
	}
	delete(s.docTokens, figureID)
}
