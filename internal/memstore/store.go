// Package memstore keeps lobbies, games and users in process memory. It
// honours the same revision checks as the PostgreSQL store and backs the
// memory storage driver and the service tests.
package memstore

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/hundredandten/server/internal/domain"
)

// Store is an in-memory game and user store
type Store struct {
	mu    sync.RWMutex
	games map[string]domain.GameRecord
	users map[string]domain.User
}

// New creates an empty store
func New() *Store {
	return &Store{
		games: make(map[string]domain.GameRecord),
		users: make(map[string]domain.User),
	}
}

// copyRecord deep copies through JSON so callers never share slices with the store
func copyRecord(rec domain.GameRecord) (domain.GameRecord, error) {
	data, err := json.Marshal(rec)
	if err != nil {
		return domain.GameRecord{}, fmt.Errorf("marshaling record: %w", err)
	}
	var out domain.GameRecord
	if err := json.Unmarshal(data, &out); err != nil {
		return domain.GameRecord{}, fmt.Errorf("%w: %v", domain.ErrDecoding, err)
	}
	return out, nil
}

// Get returns the record with id
func (s *Store) Get(ctx context.Context, id string) (*domain.GameRecord, error) {
	s.mu.RLock()
	rec, ok := s.games[id]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: game %s", domain.ErrNotFound, id)
	}
	out, err := copyRecord(rec)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Save inserts or conditionally updates rec
func (s *Store) Save(ctx context.Context, rec *domain.GameRecord) error {
	stored, err := copyRecord(*rec)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	current, exists := s.games[rec.ID]
	switch {
	case rec.Revision == 0 && exists:
		return fmt.Errorf("%w: game %s already exists", domain.ErrConflict, rec.ID)
	case rec.Revision == 0:
		stored.CreatedAt = now
	case !exists:
		return fmt.Errorf("%w: game %s", domain.ErrNotFound, rec.ID)
	case current.Revision != rec.Revision:
		return fmt.Errorf("%w: game %s is at revision %d, not %d", domain.ErrConflict, rec.ID, current.Revision, rec.Revision)
	default:
		stored.CreatedAt = current.CreatedAt
	}

	stored.Revision = rec.Revision + 1
	stored.UpdatedAt = now
	s.games[rec.ID] = stored

	rec.Revision = stored.Revision
	rec.CreatedAt = stored.CreatedAt
	rec.UpdatedAt = stored.UpdatedAt
	return nil
}

// Search returns up to q.Limit matching records ordered by name then id
func (s *Store) Search(ctx context.Context, q domain.RecordQuery) ([]domain.GameRecord, error) {
	s.mu.RLock()
	var matches []domain.GameRecord
	for _, rec := range s.games {
		if q.Matches(&rec) {
			matches = append(matches, rec)
		}
	}
	s.mu.RUnlock()

	sort.Slice(matches, func(i, j int) bool {
		return domain.RecordLess(&matches[i], &matches[j])
	})
	if q.Limit > 0 && len(matches) > q.Limit {
		matches = matches[:q.Limit]
	}

	out := make([]domain.GameRecord, 0, len(matches))
	for _, rec := range matches {
		c, err := copyRecord(rec)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

// ListIDs returns up to limit ids of kind greater than afterID in id order
func (s *Store) ListIDs(ctx context.Context, kind domain.Kind, afterID string, limit int) ([]string, error) {
	s.mu.RLock()
	var ids []string
	for id, rec := range s.games {
		if rec.Kind == kind && id > afterID {
			ids = append(ids, id)
		}
	}
	s.mu.RUnlock()

	sort.Strings(ids)
	if limit > 0 && len(ids) > limit {
		ids = ids[:limit]
	}
	return ids, nil
}

// GetUser returns the user with id
func (s *Store) GetUser(ctx context.Context, id string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, fmt.Errorf("%w: user %s", domain.ErrNotFound, id)
	}
	return &u, nil
}

// GetUsers returns the stored users among ids
func (s *Store) GetUsers(ctx context.Context, ids []string) ([]domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.User
	for _, id := range ids {
		if u, ok := s.users[id]; ok {
			out = append(out, u)
		}
	}
	return out, nil
}

// SearchUsers returns users whose name contains text, ordered by name
func (s *Store) SearchUsers(ctx context.Context, text string, limit int) ([]domain.User, error) {
	text = strings.ToLower(text)
	s.mu.RLock()
	var out []domain.User
	for _, u := range s.users {
		if strings.Contains(strings.ToLower(u.Name), text) {
			out = append(out, u)
		}
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].Identifier < out[j].Identifier
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// SaveUser inserts or replaces user
func (s *Store) SaveUser(ctx context.Context, user domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[user.Identifier] = user
	return nil
}

// SaveUsers inserts or replaces every user
func (s *Store) SaveUsers(ctx context.Context, users []domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range users {
		s.users[u.Identifier] = u
	}
	return nil
}

// Ping always succeeds
func (s *Store) Ping(ctx context.Context) error {
	return nil
}
