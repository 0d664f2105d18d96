// Package scraper runs the configured sources on their own intervals and
// ingests the figures they produce: every stored figure is paired with a
// search index upsert and published on the realtime hub in the same logical
// operation.
package scraper

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/vitrina/vitrina/pkg/core"
	"github.com/vitrina/vitrina/pkg/log"
	"github.com/vitrina/vitrina/pkg/realtime"
	"github.com/vitrina/vitrina/pkg/search"
	"github.com/vitrina/vitrina/pkg/storage"
)

// Config tunes the scheduler.
type Config struct {
	// OptimizeInterval is how often the store's planner statistics are
	// refreshed. Zero disables the optimize ticker.
	OptimizeInterval time.Duration
}

// Scheduler owns the per-source tickers and the ingestion path.
type Scheduler struct {
	config  Config
	store   *storage.Store
	engine  *search.Engine
	hub     *realtime.Hub
	logger  *log.Logger
	sources map[string]core.Source
	// intervals holds the per-source scrape interval; 0 disables the
	// ticker for that source (manual scrapes only).
	intervals      map[string]time.Duration
	tickers        map[string]*time.Ticker
	optimizeTicker *time.Ticker
	stopCh         chan struct{}
	ctx            context.Context
	ctxCancel      context.CancelFunc
	mu             sync.RWMutex
	wg             sync.WaitGroup
	running        bool
}

func NewScheduler(config Config, store *storage.Store, engine *search.Engine, hub *realtime.Hub) *Scheduler {
	return &Scheduler{
		config:    config,
		store:     store,
		engine:    engine,
		hub:       hub,
		logger:    log.For("scraper"),
		sources:   make(map[string]core.Source),
		intervals: make(map[string]time.Duration),
		tickers:   make(map[string]*time.Ticker),
		stopCh:    make(chan struct{}),
	}
}

// AddSource registers a source with its scrape interval. Interval 0 means
// the source is only scraped on demand. If the scheduler is already
// running, the source's ticker starts immediately.
func (s *Scheduler) AddSource(name string, src core.Source, interval time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.sources[name]; exists {
		return fmt.Errorf("source %s already added", name)
	}

	s.sources[name] = src
	s.intervals[name] = interval

	if s.running && s.ctx != nil && interval > 0 {
		ticker := time.NewTicker(interval)
		s.tickers[name] = ticker
		s.wg.Add(1)
		go s.runSource(s.ctx, name, ticker)
		s.logger.Infof("started scheduler for new source %s with interval %v", name, interval)
	}
	return nil
}

// RemoveSource stops and closes a source.
func (s *Scheduler) RemoveSource(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if ticker, exists := s.tickers[name]; exists {
		ticker.Stop()
		delete(s.tickers, name)
	}

	src, exists := s.sources[name]
	if !exists {
		return fmt.Errorf("source %s not found", name)
	}
	delete(s.sources, name)
	delete(s.intervals, name)

	if err := src.Close(); err != nil {
		s.logger.Warnf("closing source %s: %v", name, err)
	}
	s.logger.Infof("removed source %s", name)
	return nil
}

// Start launches one goroutine per scheduled source plus the optimize
// ticker, then kicks off an initial scrape of everything. Non-blocking.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("scheduler is already running")
	}

	s.ctx, s.ctxCancel = context.WithCancel(ctx)
	s.running = true

	for name, interval := range s.intervals {
		if interval == 0 {
			s.logger.Infof("source %s has no interval, manual scrapes only", name)
			continue
		}
		ticker := time.NewTicker(interval)
		s.tickers[name] = ticker
		s.wg.Add(1)
		go s.runSource(s.ctx, name, ticker)
		s.logger.Infof("scheduled source %s every %v", name, interval)
	}

	if s.config.OptimizeInterval > 0 {
		s.optimizeTicker = time.NewTicker(s.config.OptimizeInterval)
		s.wg.Add(1)
		go s.runOptimization(s.ctx)
	}

	go func() {
		if err := s.ScrapeAll(s.ctx); err != nil {
			s.logger.Warnf("initial scrape: %v", err)
		}
	}()

	s.logger.Infof("scheduler started with %d sources", len(s.sources))
	return nil
}

// Stop signals every worker and waits for them to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	close(s.stopCh)
	if s.ctxCancel != nil {
		s.ctxCancel()
	}
	for _, ticker := range s.tickers {
		ticker.Stop()
	}
	s.tickers = make(map[string]*time.Ticker)
	s.mu.Unlock()

	s.wg.Wait()
	s.logger.Infof("scheduler stopped")
}

// Close stops the scheduler and closes every source.
func (s *Scheduler) Close() error {
	s.Stop()

	s.mu.Lock()
	defer s.mu.Unlock()

	var errs []error
	for name, src := range s.sources {
		if err := src.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing source %s: %w", name, err))
		}
	}
	s.sources = make(map[string]core.Source)

	if len(errs) > 0 {
		return fmt.Errorf("errors closing sources: %v", errs)
	}
	return nil
}

func (s *Scheduler) runSource(ctx context.Context, name string, ticker *time.Ticker) {
	defer s.wg.Done()
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.logger.Debugf("scheduled scrape for source %s", name)
			if err := s.ScrapeSource(ctx, name); err != nil {
				s.logger.Errorf("scheduled scrape failed for source %s: %v", name, err)
			}
		}
	}
}

func (s *Scheduler) runOptimization(ctx context.Context) {
	defer s.wg.Done()
	defer s.optimizeTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		case <-s.optimizeTicker.C:
			if err := s.store.Optimize(); err != nil {
				s.logger.Warnf("optimize: %v", err)
			}
		}
	}
}

// ScrapeAll scrapes every registered source once.
func (s *Scheduler) ScrapeAll(ctx context.Context) error {
	s.mu.RLock()
	names := make([]string, 0, len(s.sources))
	for name := range s.sources {
		names = append(names, name)
	}
	s.mu.RUnlock()

	var errs []error
	for _, name := range names {
		if err := s.ScrapeSource(ctx, name); err != nil {
			errs = append(errs, fmt.Errorf("scraping %s: %w", name, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("scrape errors: %v", errs)
	}
	return nil
}

// ScrapeSource runs one source to completion, ingesting every figure it
// emits. Figures are written with UpsertFigure so sources can safely
// re-emit known items.
func (s *Scheduler) ScrapeSource(ctx context.Context, name string) error {
	s.mu.RLock()
	src, exists := s.sources[name]
	s.mu.RUnlock()
	if !exists {
		return fmt.Errorf("source %s not found", name)
	}

	figureCh := make(chan core.Figure, 64)
	ingestDone := make(chan struct{})
	var ingested int

	go func() {
		defer close(ingestDone)
		for f := range figureCh {
			if f.OwnerID == "" {
				f.OwnerID = src.OwnerID()
			}
			if err := s.Ingest(ctx, &f, name); err != nil {
				s.logger.Errorf("ingesting figure %q from %s: %v", f.Name, name, err)
				continue
			}
			ingested++
		}
	}()

	err := src.FetchFigures(ctx, figureCh)
	close(figureCh)
	<-ingestDone

	if err != nil {
		return fmt.Errorf("fetching from %s: %w", name, err)
	}
	s.logger.Infof("source %s ingested %d figures", name, ingested)
	return nil
}

// Ingest writes one figure to the store and, in the same logical operation,
// updates the owner's index section and publishes a realtime event.
func (s *Scheduler) Ingest(ctx context.Context, f *core.Figure, sourceName string) error {
	if err := s.store.UpsertFigure(ctx, f); err != nil {
		return err
	}

	s.engine.Index().Upsert(f)

	if s.hub != nil {
		s.hub.Publish(realtime.FigureEvent{
			FigureID:     f.ID,
			OwnerID:      f.OwnerID,
			Source:       sourceName,
			Name:         f.Name,
			Manufacturer: f.Manufacturer,
			CreatedAt:    f.CreatedAt,
		})
	}
	return nil
}
