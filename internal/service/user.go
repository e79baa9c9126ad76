package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/hundredandten/server/internal/config"
	"github.com/hundredandten/server/internal/domain"
)

// UserService provides business logic for user profiles
type UserService struct {
	store  UserStore
	cache  ProfileCache
	config *config.GameConfig
	logger *slog.Logger
}

// NewUserService creates a new user service. cache may be nil.
func NewUserService(store UserStore, cache ProfileCache, cfg *config.GameConfig, logger *slog.Logger) *UserService {
	return &UserService{
		store:  store,
		cache:  cache,
		config: cfg,
		logger: logger,
	}
}

// Search returns users whose name contains text
func (s *UserService) Search(ctx context.Context, text string, limit int) ([]domain.User, error) {
	users, err := s.store.SearchUsers(ctx, strings.TrimSpace(text), clampLimit(limit, s.config))
	if err != nil {
		return nil, fmt.Errorf("searching users: %w", err)
	}
	return users, nil
}

// Create stores user unless a profile already exists, and returns the
// stored profile
func (s *UserService) Create(ctx context.Context, user domain.User) (*domain.User, error) {
	existing, err := s.store.GetUser(ctx, user.Identifier)
	if err == nil {
		return existing, nil
	}
	if !domain.IsNotFoundError(err) {
		return nil, fmt.Errorf("getting user: %w", err)
	}
	return s.Put(ctx, user)
}

// Put stores user, replacing any existing profile
func (s *UserService) Put(ctx context.Context, user domain.User) (*domain.User, error) {
	if user.Identifier == "" {
		return nil, fmt.Errorf("%w: identifier is required", domain.ErrInvalidRequest)
	}
	if strings.TrimSpace(user.Name) == "" {
		return nil, fmt.Errorf("%w: name is required", domain.ErrInvalidRequest)
	}
	if err := s.store.SaveUser(ctx, user); err != nil {
		return nil, fmt.Errorf("saving user: %w", err)
	}
	if s.cache != nil {
		if err := s.cache.DeleteProfile(ctx, user.Identifier); err != nil {
			s.logger.Warn("failed to evict cached profile", "identifier", user.Identifier, "error", err)
		}
	}
	return &user, nil
}

// PutAll stores users in one batch, replacing existing profiles
func (s *UserService) PutAll(ctx context.Context, users []domain.User) error {
	for _, u := range users {
		if u.Identifier == "" || strings.TrimSpace(u.Name) == "" {
			return fmt.Errorf("%w: identifier and name are required", domain.ErrInvalidRequest)
		}
	}
	if err := s.store.SaveUsers(ctx, users); err != nil {
		return fmt.Errorf("saving users: %w", err)
	}
	if s.cache != nil {
		for _, u := range users {
			if err := s.cache.DeleteProfile(ctx, u.Identifier); err != nil {
				s.logger.Warn("failed to evict cached profile", "identifier", u.Identifier, "error", err)
			}
		}
	}
	return nil
}

// Profiles returns a profile for every id in order. Identities without a
// stored profile, such as computer players, get a placeholder named after
// their identifier.
func (s *UserService) Profiles(ctx context.Context, ids []string) ([]domain.User, error) {
	found := make(map[string]domain.User, len(ids))
	if s.cache != nil {
		cached, err := s.cache.GetProfiles(ctx, ids)
		if err != nil {
			s.logger.Warn("failed to read cached profiles", "error", err)
		}
		for id, u := range cached {
			found[id] = u
		}
	}

	var missing []string
	for _, id := range ids {
		if _, ok := found[id]; !ok {
			missing = append(missing, id)
		}
	}
	if len(missing) > 0 {
		users, err := s.store.GetUsers(ctx, missing)
		if err != nil {
			return nil, fmt.Errorf("getting users: %w", err)
		}
		for _, u := range users {
			found[u.Identifier] = u
		}
		if s.cache != nil && len(users) > 0 {
			if err := s.cache.SetProfiles(ctx, users); err != nil {
				s.logger.Warn("failed to cache profiles", "error", err)
			}
		}
	}

	out := make([]domain.User, 0, len(ids))
	for _, id := range ids {
		u, ok := found[id]
		if !ok {
			u = domain.User{Identifier: id, Name: id}
		}
		out = append(out, u)
	}
	return out, nil
}
