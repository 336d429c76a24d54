// Package catalog stores the sites served by the /sites endpoint.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"go.uber.org/zap"

	"github.com/nlweb/chatpanel/internal/db"
	"github.com/nlweb/chatpanel/internal/sites"
)

// ErrInvalidName is returned for empty or reserved site names.
var ErrInvalidName = errors.New("invalid site name")

// Site is one catalog entry.
type Site struct {
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Filter decides which catalog sites are visible. A site is visible when it
// matches any Include pattern (or Include is empty) and no Exclude pattern.
type Filter struct {
	Include []string
	Exclude []string
}

// Visible reports whether name passes the filter.
func (f Filter) Visible(name string) bool {
	if len(f.Include) > 0 && !matchesAny(name, f.Include) {
		return false
	}
	return !matchesAny(name, f.Exclude)
}

func matchesAny(name string, patterns []string) bool {
	for _, p := range patterns {
		if ok, err := doublestar.Match(p, name); err == nil && ok {
			return true
		}
	}
	return false
}

// Store manages the site catalog.
type Store struct {
	db     *db.DB
	filter Filter
	logger *zap.Logger
}

// NewStore creates a catalog store.
func NewStore(database *db.DB, filter Filter, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{db: database, filter: filter, logger: logger}
}

// Add inserts a site, updating the description if it already exists.
func (s *Store) Add(ctx context.Context, name, description string) error {
	name = strings.TrimSpace(name)
	if name == "" || name == sites.All {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sites (name, description, created_at) VALUES (?, ?, ?)
		 ON CONFLICT(name) DO UPDATE SET description = excluded.description`,
		name, description, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("inserting site: %w", err)
	}
	return nil
}

// Remove deletes a site. Removing an unknown site is not an error.
func (s *Store) Remove(ctx context.Context, name string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM sites WHERE name = ?`, name); err != nil {
		return fmt.Errorf("deleting site: %w", err)
	}
	return nil
}

// List returns every stored site, visible or not, ordered by name.
func (s *Store) List(ctx context.Context) ([]Site, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT name, description, created_at FROM sites ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("listing sites: %w", err)
	}
	defer rows.Close()

	var out []Site
	for rows.Next() {
		var st Site
		if err := rows.Scan(&st.Name, &st.Description, &st.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning site: %w", err)
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

// Names returns the visible site names in storage order.
func (s *Store) Names(ctx context.Context) ([]string, error) {
	all, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(all))
	for _, st := range all {
		if s.filter.Visible(st.Name) {
			names = append(names, st.Name)
		}
	}
	return names, nil
}

// Seed fills an empty catalog with names. A catalog that already holds
// sites is left alone so removed sites stay removed.
func (s *Store) Seed(ctx context.Context, names []string) error {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sites`).Scan(&count); err != nil {
		return fmt.Errorf("counting sites: %w", err)
	}
	if count > 0 {
		return nil
	}

	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" || n == sites.All {
			continue
		}
		_, err := s.db.ExecContext(ctx,
			`INSERT INTO sites (name, created_at) VALUES (?, ?) ON CONFLICT(name) DO NOTHING`,
			n, time.Now().UTC())
		if err != nil {
			return fmt.Errorf("seeding site %s: %w", n, err)
		}
	}
	s.logger.Debug("seeded catalog", zap.Int("sites", len(names)))
	return nil
}

// ListSites implements sites.Lister over the local catalog. A catalog
// read failure falls back like a failed remote fetch.
func (s *Store) ListSites(ctx context.Context) []string {
	names, err := s.Names(ctx)
	if err != nil {
		s.logger.Warn("catalog unavailable, using fallback", zap.Error(err))
		return sites.Fallback()
	}
	return sites.Normalize(names)
}

var _ sites.Lister = (*Store)(nil)
