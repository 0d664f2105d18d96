package search

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"

	"github.com/vitrina/vitrina/pkg/core"
	"github.com/vitrina/vitrina/pkg/log"
	"github.com/vitrina/vitrina/pkg/storage"
)

// Store is the slice of the figure store the engine depends on. GetFigure
// must return an error matching storage.ErrNotFound when the figure does
// not exist for that owner; any other error is treated as a store failure
// and propagated untouched.
type Store interface {
	GetFigure(ctx context.Context, ownerID, id string) (*core.Figure, error)
	FindAllByOwner(ctx context.Context, ownerID string) ([]*core.Figure, error)
}

// SubstringSearcher is an optional acceleration the store may provide for
// partial search. Results must contain the normalized needle in name or
// manufacturer, ordered by name then creation time, with offset applied
// before limit. When the store does not implement it the engine falls back
// to a full scan and filter.
type SubstringSearcher interface {
	SearchSubstring(ctx context.Context, ownerID, text string, limit, offset int) ([]*core.Figure, error)
}

// Engine executes word-wheel and partial searches for one process. Both
// operations are read-only; the only state the engine touches is the shared
// index, and only through its section locks.
type Engine struct {
	store  Store
	index  *Index
	logger *log.Logger

	// rebuilding tracks owners with an in-flight background rebuild so a
	// burst of stale hits schedules at most one.
	rebuilding sync.Map // map[string]struct{}
}

func NewEngine(store Store, index *Index) *Engine {
	return &Engine{
		store:  store,
		index:  index,
		logger: log.For("search"),
	}
}

// Index exposes the engine's index so figure mutations can pair their store
// writes with the matching index update.
func (e *Engine) Index() *Index {
	return e.index
}

// WordWheel returns up to q.Limit of the owner's figures whose name or
// manufacturer has q.Text as a token prefix, case-insensitively. Results
// are ordered by closeness of the match (shorter matching token first),
// then name, so the list is stable for identical inputs.
func (e *Engine) WordWheel(ctx context.Context, q Query) ([]*core.Figure, error) {
	prefix := Normalize(q.Text)

	var matches []*core.Figure
	if e.index.HasSection(q.OwnerID) {
		resolved, err := e.resolveCandidates(ctx, q.OwnerID, e.index.LookupPrefix(q.OwnerID, prefix))
		if err != nil {
			return nil, err
		}
		matches = resolved
	} else {
		// No section for this owner yet: serve from the store directly and
		// warm the index for subsequent calls.
		figures, err := e.store.FindAllByOwner(ctx, q.OwnerID)
		if err != nil {
			return nil, err
		}
		for _, f := range figures {
			if _, ok := shortestMatch(f, prefix); ok {
				matches = append(matches, f)
			}
		}
		e.scheduleRebuild(q.OwnerID)
	}

	sort.SliceStable(matches, func(i, j int) bool {
		li, _ := shortestMatch(matches[i], prefix)
		lj, _ := shortestMatch(matches[j], prefix)
		if li != lj {
			return li < lj
		}
		ni, nj := strings.ToLower(matches[i].Name), strings.ToLower(matches[j].Name)
		if ni != nj {
			return ni < nj
		}
		return matches[i].ID < matches[j].ID
	})

	if len(matches) > q.Limit {
		matches = matches[:q.Limit]
	}
	return matches, nil
}

// Partial returns the owner's figures whose name or manufacturer contains
// q.Text anywhere, case-insensitively, ordered by name then creation time,
// skipping q.Offset matches and returning at most q.Limit.
func (e *Engine) Partial(ctx context.Context, q Query) ([]*core.Figure, error) {
	needle := Normalize(q.Text)

	if ss, ok := e.store.(SubstringSearcher); ok {
		return ss.SearchSubstring(ctx, q.OwnerID, needle, q.Limit, q.Offset)
	}

	figures, err := e.store.FindAllByOwner(ctx, q.OwnerID)
	if err != nil {
		return nil, err
	}

	var matches []*core.Figure
	for _, f := range figures {
		if strings.Contains(Normalize(f.Name), needle) || strings.Contains(Normalize(f.Manufacturer), needle) {
			matches = append(matches, f)
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		ni, nj := strings.ToLower(matches[i].Name), strings.ToLower(matches[j].Name)
		if ni != nj {
			return ni < nj
		}
		if !matches[i].CreatedAt.Equal(matches[j].CreatedAt) {
			return matches[i].CreatedAt.Before(matches[j].CreatedAt)
		}
		return matches[i].ID < matches[j].ID
	})

	if q.Offset >= len(matches) {
		return nil, nil
	}
	matches = matches[q.Offset:]
	if len(matches) > q.Limit {
		matches = matches[:q.Limit]
	}
	return matches, nil
}

// resolveCandidates loads each candidate id from the store, de-duplicating
// and silently dropping ids the store no longer knows. A stale id means the
// index diverged from the store, so a background rebuild of that owner's
// section is scheduled.
func (e *Engine) resolveCandidates(ctx context.Context, ownerID string, ids []string) ([]*core.Figure, error) {
	seen := make(map[string]struct{}, len(ids))
	figures := make([]*core.Figure, 0, len(ids))
	stale := 0

	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}

		f, err := e.store.GetFigure(ctx, ownerID, id)
		if errors.Is(err, storage.ErrNotFound) {
			stale++
			continue
		}
		if err != nil {
			return nil, err
		}
		figures = append(figures, f)
	}

	if stale > 0 {
		e.logger.Warnf("index returned %d stale ids for owner %s, scheduling rebuild", stale, ownerID)
		e.scheduleRebuild(ownerID)
	}
	return figures, nil
}

// scheduleRebuild reconstructs the owner's index section from the store in
// the background. At most one rebuild per owner is in flight at a time.
func (e *Engine) scheduleRebuild(ownerID string) {
	if _, loaded := e.rebuilding.LoadOrStore(ownerID, struct{}{}); loaded {
		return
	}

	go func() {
		defer e.rebuilding.Delete(ownerID)

		figures, err := e.store.FindAllByOwner(context.Background(), ownerID)
		if err != nil {
			e.logger.Errorf("rebuild for owner %s failed: %v", ownerID, err)
			return
		}
		e.index.Rebuild(ownerID, figures)
		e.logger.Debugf("rebuilt index section for owner %s (%d figures)", ownerID, len(figures))
	}()
}

// RebuildOwner synchronously reconstructs one owner's index section from
// the store. Used on startup and by the rebuild command.
func (e *Engine) RebuildOwner(ctx context.Context, ownerID string) error {
	figures, err := e.store.FindAllByOwner(ctx, ownerID)
	if err != nil {
		return err
	}
	e.index.Rebuild(ownerID, figures)
	return nil
}

// shortestMatch returns the length in runes of the shortest token of the
// figure's indexed fields that starts with prefix, and whether any does.
func shortestMatch(f *core.Figure, prefix string) (int, bool) {
	best := 0
	found := false
	for token := range Tokenize(f.Name, f.Manufacturer) {
		if !strings.HasPrefix(token, prefix) {
			continue
		}
		n := len([]rune(token))
		if !found || n < best {
			best = n
			found = true
		}
	}
	return best, found
}
