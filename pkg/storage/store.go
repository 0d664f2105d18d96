// Package storage persists users and figures in a single SQLite database
// and exposes the owner-scoped queries the search subsystem builds on.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
	"golang.org/x/text/cases"

	"github.com/vitrina/vitrina/pkg/core"
	"github.com/vitrina/vitrina/pkg/db"
)

// ErrNotFound is returned when a figure or user does not exist for the
// given scope.
var ErrNotFound = errors.New("not found")

// ErrUnknownField is returned when a prefix query names a field that is
// not indexed.
var ErrUnknownField = errors.New("field is not indexed")

// Indexed figure fields accepted by FindByOwnerPrefix.
const (
	FieldName         = "name"
	FieldManufacturer = "manufacturer"
)

// Store wraps the catalog database.
type Store struct {
	db *sql.DB
}

// NewStore opens (creating if needed) the catalog database at dbPath,
// applies the performance pragmas, and runs any pending migrations.
func NewStore(dbPath string) (*Store, error) {
	sqlDB, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 30000",
		"PRAGMA cache_size = -64000",
		"PRAGMA temp_store = memory",
		"PRAGMA foreign_keys = ON",
	}
	for _, pragma := range pragmas {
		if _, err := sqlDB.Exec(pragma); err != nil {
			return nil, fmt.Errorf("applying pragma %q: %w", pragma, err)
		}
	}

	if _, err := db.NewManager(sqlDB).MigrateUp(); err != nil {
		return nil, fmt.Errorf("migrating database: %w", err)
	}

	s := &Store{db: sqlDB}
	if err := s.backfillFoldedColumns(); err != nil {
		return nil, fmt.Errorf("backfilling folded columns: %w", err)
	}
	return s, nil
}

// foldText case-folds a value for the shadow columns that substring and
// prefix queries match against. Fresh Caser per call; a Caser is not
// documented as safe for concurrent use.
func foldText(s string) string {
	return cases.Fold().String(s)
}

// backfillFoldedColumns fills name_folded/manufacturer_folded on rows
// written before those columns existed. The fold happens here rather than
// in migration SQL because lower() only folds ASCII. A row's name is never
// empty, so an empty name_folded marks exactly the rows still pending.
func (s *Store) backfillFoldedColumns() error {
	rows, err := s.db.Query("SELECT id, name, manufacturer FROM figures WHERE name_folded = ''")
	if err != nil {
		return err
	}
	type pending struct {
		id, name, manufacturer string
	}
	var todo []pending
	for rows.Next() {
		var p pending
		if err := rows.Scan(&p.id, &p.name, &p.manufacturer); err != nil {
			_ = rows.Close()
			return err
		}
		todo = append(todo, p)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return err
	}
	_ = rows.Close()

	for _, p := range todo {
		_, err := s.db.Exec("UPDATE figures SET name_folded = ?, manufacturer_folded = ? WHERE id = ?",
			foldText(p.name), foldText(p.manufacturer), p.id)
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying handle, used by the migrate command for status
// reporting.
func (s *Store) DB() *sql.DB {
	return s.db
}

// CreateFigure validates and inserts a figure, assigning its id and
// timestamps. The id is immutable from this point on.
func (s *Store) CreateFigure(ctx context.Context, f *core.Figure) error {
	if f.ID == "" {
		f.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	if f.CreatedAt.IsZero() {
		f.CreatedAt = now
	}
	f.UpdatedAt = now

	if err := f.Validate(); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO figures (id, owner_id, manufacturer, name, scale, source_link, location, box_number, image_url, created_at, updated_at, name_folded, manufacturer_folded)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		f.ID, f.OwnerID, f.Manufacturer, f.Name, f.Scale, f.SourceLink, f.Location, f.BoxNumber, f.ImageURL, f.CreatedAt, f.UpdatedAt,
		foldText(f.Name), foldText(f.Manufacturer))
	if err != nil {
		return fmt.Errorf("inserting figure %s: %w", f.ID, err)
	}
	return nil
}

// UpsertFigure inserts the figure or, when a figure with the same id and
// owner already exists, updates its mutable fields. Used by scraping
// sources that re-emit known items on every run.
func (s *Store) UpsertFigure(ctx context.Context, f *core.Figure) error {
	if f.ID == "" {
		return s.CreateFigure(ctx, f)
	}
	now := time.Now().UTC()
	if f.CreatedAt.IsZero() {
		f.CreatedAt = now
	}
	f.UpdatedAt = now

	if err := f.Validate(); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO figures (id, owner_id, manufacturer, name, scale, source_link, location, box_number, image_url, created_at, updated_at, name_folded, manufacturer_folded)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			manufacturer = excluded.manufacturer,
			name = excluded.name,
			scale = excluded.scale,
			source_link = excluded.source_link,
			location = excluded.location,
			box_number = excluded.box_number,
			image_url = excluded.image_url,
			updated_at = excluded.updated_at,
			name_folded = excluded.name_folded,
			manufacturer_folded = excluded.manufacturer_folded
		WHERE figures.owner_id = excluded.owner_id`,
		f.ID, f.OwnerID, f.Manufacturer, f.Name, f.Scale, f.SourceLink, f.Location, f.BoxNumber, f.ImageURL, f.CreatedAt, f.UpdatedAt,
		foldText(f.Name), foldText(f.Manufacturer))
	if err != nil {
		return fmt.Errorf("upserting figure %s: %w", f.ID, err)
	}
	return nil
}

// UpdateFigure updates the mutable fields of an existing figure, scoped to
// its owner. Returns ErrNotFound if the figure does not exist for that owner.
func (s *Store) UpdateFigure(ctx context.Context, f *core.Figure) error {
	if err := f.Validate(); err != nil {
		return err
	}
	f.UpdatedAt = time.Now().UTC()

	res, err := s.db.ExecContext(ctx, `
		UPDATE figures
		SET manufacturer = ?, name = ?, scale = ?, source_link = ?, location = ?, box_number = ?, image_url = ?, updated_at = ?,
			name_folded = ?, manufacturer_folded = ?
		WHERE id = ? AND owner_id = ?`,
		f.Manufacturer, f.Name, f.Scale, f.SourceLink, f.Location, f.BoxNumber, f.ImageURL, f.UpdatedAt,
		foldText(f.Name), foldText(f.Manufacturer),
		f.ID, f.OwnerID)
	if err != nil {
		return fmt.Errorf("updating figure %s: %w", f.ID, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("updating figure %s: %w", f.ID, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteFigure removes a figure, scoped to its owner.
func (s *Store) DeleteFigure(ctx context.Context, ownerID, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM figures WHERE id = ? AND owner_id = ?", id, ownerID)
	if err != nil {
		return fmt.Errorf("deleting figure %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("deleting figure %s: %w", id, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// GetFigure loads one figure, scoped to its owner.
func (s *Store) GetFigure(ctx context.Context, ownerID, id string) (*core.Figure, error) {
	row := s.db.QueryRowContext(ctx, selectFigure+" WHERE id = ? AND owner_id = ?", id, ownerID)
	return scanFigure(row)
}

// FindAllByOwner returns every figure the owner has, ordered by name then
// creation time. This is the rebuild snapshot and the engine's scan
// fallback.
func (s *Store) FindAllByOwner(ctx context.Context, ownerID string) ([]*core.Figure, error) {
	rows, err := s.db.QueryContext(ctx,
		selectFigure+" WHERE owner_id = ? ORDER BY name COLLATE NOCASE ASC, created_at ASC", ownerID)
	if err != nil {
		return nil, fmt.Errorf("querying figures for owner %s: %w", ownerID, err)
	}
	return scanFigures(rows)
}

// FindByOwnerPrefix returns the owner's figures whose field starts with
// prefix, case-insensitively. field must be FieldName or FieldManufacturer.
func (s *Store) FindByOwnerPrefix(ctx context.Context, ownerID, field, prefix string) ([]*core.Figure, error) {
	column, err := indexedColumn(field)
	if err != nil {
		return nil, err
	}

	pattern := escapeLike(foldText(prefix)) + "%"
	rows, err := s.db.QueryContext(ctx,
		selectFigure+` WHERE owner_id = ? AND `+column+` LIKE ? ESCAPE '\'
		 ORDER BY name COLLATE NOCASE ASC, created_at ASC`,
		ownerID, pattern)
	if err != nil {
		return nil, fmt.Errorf("prefix query on %s: %w", column, err)
	}
	return scanFigures(rows)
}

// SearchSubstring returns the owner's figures whose name or manufacturer
// contains text anywhere, case-insensitively, ordered by name then creation
// time, with offset applied before limit. A limit <= 0 means no limit.
func (s *Store) SearchSubstring(ctx context.Context, ownerID, text string, limit, offset int) ([]*core.Figure, error) {
	pattern := "%" + escapeLike(foldText(text)) + "%"

	q := selectFigure + ` WHERE owner_id = ? AND (name_folded LIKE ? ESCAPE '\' OR manufacturer_folded LIKE ? ESCAPE '\')
		 ORDER BY name COLLATE NOCASE ASC, created_at ASC`
	args := []any{ownerID, pattern, pattern}
	if limit > 0 {
		q += " LIMIT ? OFFSET ?"
		args = append(args, limit, offset)
	}

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("substring query: %w", err)
	}
	return scanFigures(rows)
}

// CountByOwner returns how many figures the owner has.
func (s *Store) CountByOwner(ctx context.Context, ownerID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM figures WHERE owner_id = ?", ownerID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting figures: %w", err)
	}
	return n, nil
}

// ListOwnerIDs returns the distinct owners that have figures, used to warm
// the search index on startup.
func (s *Store) ListOwnerIDs(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT DISTINCT owner_id FROM figures")
	if err != nil {
		return nil, fmt.Errorf("listing owners: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var owners []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning owner id: %w", err)
		}
		owners = append(owners, id)
	}
	return owners, rows.Err()
}

const selectFigure = `
	SELECT id, owner_id, manufacturer, name, scale, source_link, location, box_number, image_url, created_at, updated_at
	FROM figures`

func indexedColumn(field string) (string, error) {
	switch field {
	case FieldName:
		return "name_folded", nil
	case FieldManufacturer:
		return "manufacturer_folded", nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownField, field)
	}
}

// escapeLike escapes the LIKE wildcards so user input matches literally.
func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, "%", `\%`)
	s = strings.ReplaceAll(s, "_", `\_`)
	return s
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanFigure(row rowScanner) (*core.Figure, error) {
	var f core.Figure
	err := row.Scan(&f.ID, &f.OwnerID, &f.Manufacturer, &f.Name, &f.Scale, &f.SourceLink,
		&f.Location, &f.BoxNumber, &f.ImageURL, &f.CreatedAt, &f.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning figure: %w", err)
	}
	return &f, nil
}

func scanFigures(rows *sql.Rows) ([]*core.Figure, error) {
	defer func() {
		_ = rows.Close()
	}()

	var figures []*core.Figure
	for rows.Next() {
		f, err := scanFigure(rows)
		if err != nil {
			return nil, err
		}
		figures = append(figures, f)
	}
	return figures, rows.Err()
}
