package search

import (
	"fmt"
	"reflect"
	"sort"
	"sync"
	"testing"

	"github.com/vitrina/vitrina/pkg/core"
)

func fig(id, owner, manufacturer, name string) *core.Figure {
	return &core.Figure{ID: id, OwnerID: owner, Manufacturer: manufacturer, Name: name}
}

func sortedLookup(ix *Index, owner, prefix string) []string {
	ids := ix.LookupPrefix(owner, prefix)
	sort.Strings(ids)
	return ids
}

func TestTokenize(t *testing.T) {
	tokens := Tokenize("Hatsune Miku", "Good Smile Company")

	for _, want := range []string{"hatsune", "miku", "hatsune miku", "good", "smile", "company", "good smile company"} {
		if _, ok := tokens[want]; !ok {
			t.Errorf("expected token %q, got %v", want, tokens)
		}
	}
}

func TestUpsertAndLookup(t *testing.T) {
	ix := NewIndex()
	ix.Upsert(fig("f1", "u1", "Good Smile Company", "Hatsune Miku"))
	ix.Upsert(fig("f2", "u1", "Good Smile Company", "Megumin"))

	tests := []struct {
		prefix string
		want   []string
	}{
		{"mik", []string{"f1"}},
		{"m", []string{"f1", "f2"}},
		{"meg", []string{"f2"}},
		{"good", []string{"f1", "f2"}},
		{"good s", []string{"f1", "f2"}}, // multi-word prefix on the full field token
		{"hatsune m", []string{"f1"}},
		{"zzz", nil},
	}

	for _, tt := range tests {
		t.Run(tt.prefix, func(t *testing.T) {
			if got := sortedLookup(ix, "u1", tt.prefix); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("LookupPrefix(%q) = %v, want %v", tt.prefix, got, tt.want)
			}
		})
	}
}

func TestOwnerScoping(t *testing.T) {
	ix := NewIndex()
	ix.Upsert(fig("f1", "u1", "Alter", "Saber"))
	ix.Upsert(fig("f2", "u2", "Alter", "Saber"))

	if got := sortedLookup(ix, "u1", "saber"); !reflect.DeepEqual(got, []string{"f1"}) {
		t.Errorf("u1 lookup = %v, want [f1]", got)
	}
	if got := sortedLookup(ix, "u2", "saber"); !reflect.DeepEqual(got, []string{"f2"}) {
		t.Errorf("u2 lookup = %v, want [f2]", got)
	}
	if got := ix.LookupPrefix("u3", "saber"); got != nil {
		t.Errorf("unknown owner lookup = %v, want nil", got)
	}
}

func TestUpsertIdempotent(t *testing.T) {
	ix := NewIndex()
	f := fig("f1", "u1", "Good Smile Company", "Hatsune Miku")

	ix.Upsert(f)
	once := snapshotSection(ix, "u1")

	ix.Upsert(f)
	twice := snapshotSection(ix, "u1")

	if !reflect.DeepEqual(once, twice) {
		t.Errorf("double upsert changed index state:\nonce:  %v\ntwice: %v", once, twice)
	}
}

func TestUpsertRetractsOldTokens(t *testing.T) {
	ix := NewIndex()
	ix.Upsert(fig("f1", "u1", "Alter", "Saber"))
	ix.Upsert(fig("f1", "u1", "Alter", "Rin Tohsaka"))

	if got := ix.LookupPrefix("u1", "saber"); got != nil {
		t.Errorf("old token still resolves after update: %v", got)
	}
	if got := sortedLookup(ix, "u1", "rin"); !reflect.DeepEqual(got, []string{"f1"}) {
		t.Errorf("new token lookup = %v, want [f1]", got)
	}
}

func TestRemove(t *testing.T) {
	ix := NewIndex()
	ix.Upsert(fig("f1", "u1", "Good Smile Company", "Hatsune Miku"))
	ix.Upsert(fig("f2", "u1", "Good Smile Company", "Megumin"))

	ix.Remove("u1", "f1")

	if got := ix.LookupPrefix("u1", "mik"); got != nil {
		t.Errorf("removed figure still resolves: %v", got)
	}
	if got := sortedLookup(ix, "u1", "good"); !reflect.DeepEqual(got, []string{"f2"}) {
		t.Errorf("sibling figure lost: %v", got)
	}

	// Removing an id that was never indexed is a no-op.
	ix.Remove("u1", "ghost")
	ix.Remove("nobody", "f1")
}

func TestRebuildDeterministic(t *testing.T) {
	snapshot := []*core.Figure{
		fig("f1", "u1", "Good Smile Company", "Hatsune Miku"),
		fig("f2", "u1", "Kotobukiya", "Asuka Langley"),
	}

	ix := NewIndex()
	// Seed divergent state that rebuild must replace, not merge.
	ix.Upsert(fig("stale", "u1", "Alter", "Saber"))

	ix.Rebuild("u1", snapshot)
	first := snapshotSection(ix, "u1")

	ix.Rebuild("u1", snapshot)
	second := snapshotSection(ix, "u1")

	if !reflect.DeepEqual(first, second) {
		t.Error("rebuild is not deterministic for identical snapshots")
	}
	if got := ix.LookupPrefix("u1", "saber"); got != nil {
		t.Errorf("rebuild merged instead of replaced: %v", got)
	}

	// A figure of a different owner in the snapshot never lands in u1's section.
	ix.Rebuild("u1", append(snapshot, fig("f9", "u2", "Alter", "Saber")))
	if got := ix.LookupPrefix("u1", "saber"); got != nil {
		t.Errorf("cross-owner figure indexed: %v", got)
	}
}

func TestConcurrentSectionAccess(t *testing.T) {
	ix := NewIndex()

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			owner := fmt.Sprintf("u%d", w%2)
			for i := 0; i < 200; i++ {
				id := fmt.Sprintf("f%d-%d", w, i)
				ix.Upsert(fig(id, owner, "Alter", "Saber"))
				ix.LookupPrefix(owner, "sab")
				if i%3 == 0 {
					ix.Remove(owner, id)
				}
			}
		}(w)
	}
	wg.Wait()
}

// snapshotSection flattens one owner's postings into a comparable map.
func snapshotSection(ix *Index, ownerID string) map[string][]string {
	sec := ix.getSection(ownerID)
	if sec == nil {
		return nil
	}
	sec.mu.RLock()
	defer sec.mu.RUnlock()

	out := make(map[string][]string, len(sec.postings))
	for prefix, ids := range sec.postings {
		list := make([]string, 0, len(ids))
		for id := range ids {
			list = append(list, id)
		}
		sort.Strings(list)
		out[prefix] = list
	}
	return out
}
