package search

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/vitrina/vitrina/pkg/core"
	"github.com/vitrina/vitrina/pkg/storage"
)

// memStore is an in-memory Store without the SubstringSearcher
// acceleration, exercising the engine's scan-and-filter paths.
type memStore struct {
	figures map[string]map[string]*core.Figure // owner -> id -> figure
}

func newMemStore() *memStore {
	return &memStore{figures: make(map[string]map[string]*core.Figure)}
}

func (m *memStore) put(f *core.Figure) {
	if m.figures[f.OwnerID] == nil {
		m.figures[f.OwnerID] = make(map[string]*core.Figure)
	}
	m.figures[f.OwnerID][f.ID] = f
}

func (m *memStore) delete(ownerID, id string) {
	delete(m.figures[ownerID], id)
}

func (m *memStore) GetFigure(ctx context.Context, ownerID, id string) (*core.Figure, error) {
	if f, ok := m.figures[ownerID][id]; ok {
		return f, nil
	}
	return nil, storage.ErrNotFound
}

func (m *memStore) FindAllByOwner(ctx context.Context, ownerID string) ([]*core.Figure, error) {
	var out []*core.Figure
	for _, f := range m.figures[ownerID] {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool {
		ni, nj := strings.ToLower(out[i].Name), strings.ToLower(out[j].Name)
		if ni != nj {
			return ni < nj
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// failStore simulates an unavailable store.
type failStore struct{}

var errStoreDown = errors.New("store unavailable")

func (failStore) GetFigure(ctx context.Context, ownerID, id string) (*core.Figure, error) {
	return nil, errStoreDown
}

func (failStore) FindAllByOwner(ctx context.Context, ownerID string) ([]*core.Figure, error) {
	return nil, errStoreDown
}

func newTestEngine() (*Engine, *memStore) {
	store := newMemStore()
	return NewEngine(store, NewIndex()), store
}

// seed stores the figure and pairs it with an index upsert, the way every
// mutation path in the system does.
func seed(e *Engine, store *memStore, f *core.Figure) {
	store.put(f)
	e.Index().Upsert(f)
}

func mustQuery(t *testing.T, owner, text string, limit int) Query {
	t.Helper()
	q, err := Validate(owner, text, fmt.Sprintf("%d", limit), "", false)
	if err != nil {
		t.Fatalf("validating query %q: %v", text, err)
	}
	return q
}

func TestWordWheelScenario(t *testing.T) {
	e, store := newTestEngine()
	ctx := context.Background()

	seed(e, store, fig("f1", "u1", "Good Smile Company", "Hatsune Miku"))
	seed(e, store, fig("f2", "u1", "Good Smile Company", "Megumin"))

	results, err := e.WordWheel(ctx, mustQuery(t, "u1", "mik", 10))
	if err != nil {
		t.Fatalf("word wheel: %v", err)
	}
	if len(results) != 1 || results[0].Name != "Hatsune Miku" {
		t.Errorf("WordWheel(mik) = %v, want exactly Hatsune Miku", resultNames(results))
	}
}

func TestPartialScenario(t *testing.T) {
	e, store := newTestEngine()
	ctx := context.Background()

	seed(e, store, fig("f1", "u1", "Good Smile Company", "Hatsune Miku"))
	seed(e, store, fig("f2", "u1", "Good Smile Company", "Megumin"))

	results, err := e.Partial(ctx, mustQuery(t, "u1", "mi", 10))
	if err != nil {
		t.Fatalf("partial: %v", err)
	}
	want := []string{"Hatsune Miku", "Megumin"}
	got := resultNames(results)
	if len(got) != 2 || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("Partial(mi) = %v, want %v", got, want)
	}
}

func TestWordWheelOrdering(t *testing.T) {
	e, store := newTestEngine()
	ctx := context.Background()

	// "saber" is a closer match than "saberface"; shorter token ranks first.
	seed(e, store, fig("f1", "u1", "Alter", "Saberface Collection"))
	seed(e, store, fig("f2", "u1", "Alter", "Saber"))
	seed(e, store, fig("f3", "u1", "Alter", "Saber Alter"))

	results, err := e.WordWheel(ctx, mustQuery(t, "u1", "sab", 10))
	if err != nil {
		t.Fatalf("word wheel: %v", err)
	}
	got := resultNames(results)
	// f2 and f3 both carry the 5-rune token "saber"; names break the tie.
	want := []string{"Saber", "Saber Alter", "Saberface Collection"}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("result[%d] = %s, want %s (full order %v)", i, got[i], want[i], got)
		}
	}
}

func TestWordWheelLimit(t *testing.T) {
	e, store := newTestEngine()
	ctx := context.Background()

	for i := 0; i < 80; i++ {
		seed(e, store, fig(fmt.Sprintf("f%d", i), "u1", "Alter", fmt.Sprintf("Saber %02d", i)))
	}

	results, err := e.WordWheel(ctx, mustQuery(t, "u1", "saber", 1000))
	if err != nil {
		t.Fatalf("word wheel: %v", err)
	}
	if len(results) > MaxLimit {
		t.Errorf("got %d results, want at most %d", len(results), MaxLimit)
	}
}

func TestWordWheelIsSubsetOfPartial(t *testing.T) {
	e, store := newTestEngine()
	ctx := context.Background()

	names := []string{"Hatsune Miku", "Megumin", "Miku Racing Ver.", "Emilia", "Sakura Miku"}
	for i, name := range names {
		seed(e, store, fig(fmt.Sprintf("f%d", i), "u1", "Good Smile Company", name))
	}

	for _, text := range []string{"mi", "mik", "sa", "good"} {
		t.Run(text, func(t *testing.T) {
			wheel, err := e.WordWheel(ctx, mustQuery(t, "u1", text, 50))
			if err != nil {
				t.Fatalf("word wheel: %v", err)
			}
			partial, err := e.Partial(ctx, mustQuery(t, "u1", text, 50))
			if err != nil {
				t.Fatalf("partial: %v", err)
			}

			partialIDs := make(map[string]struct{}, len(partial))
			for _, f := range partial {
				partialIDs[f.ID] = struct{}{}
			}
			for _, f := range wheel {
				if _, ok := partialIDs[f.ID]; !ok {
					t.Errorf("word-wheel result %s (%s) missing from partial results", f.ID, f.Name)
				}
			}
		})
	}
}

func TestPartialPagingDisjointAndOrdered(t *testing.T) {
	e, store := newTestEngine()
	ctx := context.Background()

	for i := 0; i < 25; i++ {
		f := fig(fmt.Sprintf("f%02d", i), "u1", "Good Smile Company", fmt.Sprintf("Miku %02d", i))
		f.CreatedAt = time.Date(2025, 1, 1, 0, 0, i, 0, time.UTC)
		seed(e, store, f)
	}

	full, err := e.Partial(ctx, mustQuery(t, "u1", "miku", 50))
	if err != nil {
		t.Fatalf("partial: %v", err)
	}

	q1 := mustQuery(t, "u1", "miku", 10)
	page1, err := e.Partial(ctx, q1)
	if err != nil {
		t.Fatalf("page 1: %v", err)
	}
	q2 := q1
	q2.Offset = 10
	page2, err := e.Partial(ctx, q2)
	if err != nil {
		t.Fatalf("page 2: %v", err)
	}

	seen := make(map[string]struct{})
	for _, f := range page1 {
		seen[f.ID] = struct{}{}
	}
	for _, f := range page2 {
		if _, dup := seen[f.ID]; dup {
			t.Errorf("figure %s appears on both pages", f.ID)
		}
	}

	combined := append(resultNames(page1), resultNames(page2)...)
	for i, name := range combined {
		if name != full[i].Name {
			t.Errorf("paged order diverges at %d: %s vs %s", i, name, full[i].Name)
		}
	}

	q3 := q1
	q3.Offset = 1000
	empty, err := e.Partial(ctx, q3)
	if err != nil {
		t.Fatalf("past-the-end page: %v", err)
	}
	if len(empty) != 0 {
		t.Errorf("expected empty page past the end, got %v", resultNames(empty))
	}
}

func TestNoCrossOwnerLeakage(t *testing.T) {
	e, store := newTestEngine()
	ctx := context.Background()

	seed(e, store, fig("f1", "u1", "Alter", "Saber"))
	seed(e, store, fig("f2", "u2", "Alter", "Saber Alter"))

	for _, mode := range []string{"wordwheel", "partial"} {
		t.Run(mode, func(t *testing.T) {
			var results []*core.Figure
			var err error
			if mode == "wordwheel" {
				results, err = e.WordWheel(ctx, mustQuery(t, "u1", "saber", 50))
			} else {
				results, err = e.Partial(ctx, mustQuery(t, "u1", "saber", 50))
			}
			if err != nil {
				t.Fatalf("%s: %v", mode, err)
			}
			for _, f := range results {
				if f.OwnerID != "u1" {
					t.Errorf("result %s belongs to %s, not the querying owner", f.ID, f.OwnerID)
				}
			}
		})
	}
}

func TestDeleteRemovesFromSubsequentQueries(t *testing.T) {
	e, store := newTestEngine()
	ctx := context.Background()

	f := fig("f1", "u1", "Good Smile Company", "Hatsune Miku")
	seed(e, store, f)

	// Paired mutation: store delete plus index removal.
	store.delete("u1", "f1")
	e.Index().Remove("u1", "f1")

	results, err := e.WordWheel(ctx, mustQuery(t, "u1", "mik", 10))
	if err != nil {
		t.Fatalf("word wheel: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("deleted figure still returned: %v", resultNames(results))
	}
}

func TestStaleIndexEntrySelfHeals(t *testing.T) {
	e, store := newTestEngine()
	ctx := context.Background()

	seed(e, store, fig("f1", "u1", "Good Smile Company", "Hatsune Miku"))
	// Break the pairing on purpose: delete from the store only.
	staleFig := fig("f2", "u1", "Good Smile Company", "Sakura Miku")
	seed(e, store, staleFig)
	store.delete("u1", "f2")

	results, err := e.WordWheel(ctx, mustQuery(t, "u1", "mik", 10))
	if err != nil {
		t.Fatalf("word wheel: %v", err)
	}
	if len(results) != 1 || results[0].ID != "f1" {
		t.Errorf("expected stale id silently dropped, got %v", resultNames(results))
	}

	// The engine schedules a background rebuild; the stale id must
	// eventually vanish from the index itself.
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		stale := false
		for _, id := range e.Index().LookupPrefix("u1", "mik") {
			if id == "f2" {
				stale = true
			}
		}
		if !stale {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Error("stale id still present in index after rebuild window")
}

func TestStoreFailurePropagates(t *testing.T) {
	e := NewEngine(failStore{}, NewIndex())
	ctx := context.Background()

	if _, err := e.WordWheel(ctx, mustQuery(t, "u1", "miku", 10)); !errors.Is(err, errStoreDown) {
		t.Errorf("word wheel error = %v, want store failure", err)
	}
	if _, err := e.Partial(ctx, mustQuery(t, "u1", "miku", 10)); !errors.Is(err, errStoreDown) {
		t.Errorf("partial error = %v, want store failure", err)
	}
}

func TestWordWheelFallbackWithoutSection(t *testing.T) {
	e, store := newTestEngine()
	ctx := context.Background()

	// Store only; the index has no section for this owner.
	store.put(fig("f1", "u1", "Good Smile Company", "Hatsune Miku"))
	store.put(fig("f2", "u1", "Good Smile Company", "Megumin"))

	results, err := e.WordWheel(ctx, mustQuery(t, "u1", "mik", 10))
	if err != nil {
		t.Fatalf("word wheel: %v", err)
	}
	if len(results) != 1 || results[0].Name != "Hatsune Miku" {
		t.Errorf("fallback scan = %v, want Hatsune Miku", resultNames(results))
	}
}

// TestEngineOverSQLiteStore runs the same scenario against the real store,
// covering the SubstringSearcher acceleration path.
func TestEngineOverSQLiteStore(t *testing.T) {
	store, err := storage.NewStore(filepath.Join(t.TempDir(), "catalog.db"))
	if err != nil {
		t.Fatalf("creating store: %v", err)
	}
	defer func() {
		_ = store.Close()
	}()
	ctx := context.Background()

	user := &core.User{Username: "alice", PasswordHash: "x"}
	if err := store.CreateUser(ctx, user); err != nil {
		t.Fatalf("creating user: %v", err)
	}

	e := NewEngine(store, NewIndex())
	for _, name := range []string{"Hatsune Miku", "Megumin"} {
		f := &core.Figure{OwnerID: user.ID, Manufacturer: "Good Smile Company", Name: name}
		if err := store.CreateFigure(ctx, f); err != nil {
			t.Fatalf("creating figure: %v", err)
		}
		e.Index().Upsert(f)
	}

	wheel, err := e.WordWheel(ctx, mustQuery(t, user.ID, "mik", 10))
	if err != nil {
		t.Fatalf("word wheel: %v", err)
	}
	if len(wheel) != 1 || wheel[0].Name != "Hatsune Miku" {
		t.Errorf("WordWheel(mik) = %v", resultNames(wheel))
	}

	partial, err := e.Partial(ctx, mustQuery(t, user.ID, "mi", 10))
	if err != nil {
		t.Fatalf("partial: %v", err)
	}
	got := resultNames(partial)
	if len(got) != 2 || got[0] != "Hatsune Miku" || got[1] != "Megumin" {
		t.Errorf("Partial(mi) = %v, want [Hatsune Miku Megumin]", got)
	}
}

// TestPartialContainsWordWheelOverSQLiteStore checks that a figure reachable
// by the word wheel is also reachable by partial search when the query needs
// Unicode case folding, which the store's folded shadow columns provide.
func TestPartialContainsWordWheelOverSQLiteStore(t *testing.T) {
	store, err := storage.NewStore(filepath.Join(t.TempDir(), "catalog.db"))
	if err != nil {
		t.Fatalf("creating store: %v", err)
	}
	defer func() {
		_ = store.Close()
	}()
	ctx := context.Background()

	user := &core.User{Username: "alice", PasswordHash: "x"}
	if err := store.CreateUser(ctx, user); err != nil {
		t.Fatalf("creating user: %v", err)
	}

	e := NewEngine(store, NewIndex())
	f := &core.Figure{OwnerID: user.ID, Manufacturer: "Straße Works", Name: "MÜLLER Figure"}
	if err := store.CreateFigure(ctx, f); err != nil {
		t.Fatalf("creating figure: %v", err)
	}
	e.Index().Upsert(f)

	for _, text := range []string{"mü", "müller", "strasse"} {
		wheel, err := e.WordWheel(ctx, mustQuery(t, user.ID, text, 10))
		if err != nil {
			t.Fatalf("WordWheel(%q): %v", text, err)
		}
		if len(wheel) != 1 || wheel[0].Name != "MÜLLER Figure" {
			t.Errorf("WordWheel(%q) = %v, want [MÜLLER Figure]", text, resultNames(wheel))
		}

		partial, err := e.Partial(ctx, mustQuery(t, user.ID, text, 10))
		if err != nil {
			t.Fatalf("Partial(%q): %v", text, err)
		}
		if len(partial) != 1 || partial[0].Name != "MÜLLER Figure" {
			t.Errorf("Partial(%q) = %v, want [MÜLLER Figure]", text, resultNames(partial))
		}
	}
}

func resultNames(figures []*core.Figure) []string {
	out := make([]string, len(figures))
	for i, f := range figures {
		out[i] = f.Name
	}
	return out
}
