package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hundredandten/server/internal/config"
	"github.com/hundredandten/server/internal/domain"
	"github.com/hundredandten/server/internal/view"
)

// LobbyService provides business logic for lobbies waiting to start
type LobbyService struct {
	store     GameStore
	games     *GameService
	users     *UserService
	publisher Publisher
	config    *config.GameConfig
	logger    *slog.Logger
}

// NewLobbyService creates a new lobby service. users stores profiles for
// computer players and may be nil.
func NewLobbyService(
	store GameStore,
	games *GameService,
	users *UserService,
	publisher Publisher,
	cfg *config.GameConfig,
	logger *slog.Logger,
) *LobbyService {
	return &LobbyService{
		store:     store,
		games:     games,
		users:     users,
		publisher: publisher,
		config:    cfg,
		logger:    logger,
	}
}

// Create opens a new lobby organized by caller
func (s *LobbyService) Create(ctx context.Context, caller, name string, accessibility domain.Accessibility) (*domain.Lobby, error) {
	lobby, err := domain.NewLobby(name, accessibility, caller)
	if err != nil {
		return nil, err
	}
	if err := s.save(ctx, lobby); err != nil {
		return nil, err
	}

	s.logger.Info("lobby created", "game_id", lobby.ID, "organizer", caller)
	return lobby, nil
}

// Get returns a lobby visible to caller
func (s *LobbyService) Get(ctx context.Context, caller, id string) (*domain.Lobby, error) {
	lobby, err := s.load(ctx, id, domain.ErrNotFound)
	if err != nil {
		return nil, err
	}
	if lobby.Accessibility == domain.Private {
		if _, ok := lobby.People.Find(caller); !ok {
			return nil, fmt.Errorf("%w: lobby %s", domain.ErrNotFound, id)
		}
	}
	return lobby, nil
}

// Invite lets caller invite each of invitees in one update
func (s *LobbyService) Invite(ctx context.Context, caller, id string, invitees ...string) (*domain.Lobby, error) {
	if len(invitees) == 0 {
		return nil, fmt.Errorf("%w: no invitees", domain.ErrInvalidRequest)
	}
	return s.mutate(ctx, id, func(l *domain.Lobby) error {
		for _, invitee := range invitees {
			if err := l.Invite(caller, invitee); err != nil {
				return err
			}
		}
		return nil
	})
}

// Join adds caller as a player
func (s *LobbyService) Join(ctx context.Context, caller, id string) (*domain.Lobby, error) {
	return s.mutate(ctx, id, func(l *domain.Lobby) error {
		return l.Join(caller)
	})
}

// Leave removes caller from the lobby
func (s *LobbyService) Leave(ctx context.Context, caller, id string) (*domain.Lobby, error) {
	return s.mutate(ctx, id, func(l *domain.Lobby) error {
		return l.Leave(caller)
	})
}

// Start fills empty seats with computers and promotes the lobby to a game.
// Only the organizer may start.
func (s *LobbyService) Start(ctx context.Context, caller, id string) (*domain.Game, error) {
	lobby, err := s.load(ctx, id, domain.ErrInvalidOperation)
	if err != nil {
		return nil, err
	}
	if n := len(lobby.People.ByRole(domain.RolePlayer)); n > s.config.MaxPlayers {
		return nil, fmt.Errorf("%w: %d players exceed the limit of %d", domain.ErrInvalidOperation, n, s.config.MaxPlayers)
	}

	game, err := lobby.Start(caller, s.config.MinPlayers)
	if err != nil {
		return nil, err
	}
	if err := s.games.save(ctx, game, 0); err != nil {
		return nil, err
	}
	s.saveComputerProfiles(ctx, game)

	s.logger.Info("game started",
		"game_id", game.ID,
		"players", len(game.OrderedPlayers()),
		"moves", game.MoveCount(),
	)
	return game, nil
}

// saveComputerProfiles stores a profile for each automated seat. At start
// only computers are automated.
func (s *LobbyService) saveComputerProfiles(ctx context.Context, game *domain.Game) {
	if s.users == nil {
		return
	}
	var computers []domain.User
	for _, p := range game.People.ByRole(domain.RolePlayer) {
		if p.Automate {
			computers = append(computers, domain.ComputerProfile(p.Identifier))
		}
	}
	if len(computers) == 0 {
		return
	}
	if err := s.users.PutAll(ctx, computers); err != nil {
		s.logger.Warn("failed to save computer profiles", "game_id", game.ID, "error", err)
	}
}

// Search returns lobbies visible to the criteria's client ordered by name
func (s *LobbyService) Search(ctx context.Context, criteria domain.LobbyCriteria, limit int) ([]*domain.Lobby, error) {
	records, err := s.store.Search(ctx, criteria.Query(clampLimit(limit, s.config)))
	if err != nil {
		return nil, fmt.Errorf("searching lobbies: %w", err)
	}

	lobbies := make([]*domain.Lobby, 0, len(records))
	for _, rec := range records {
		lobby, err := domain.LobbyFromRecord(rec)
		if err != nil {
			s.logger.Warn("skipping unreadable lobby", "game_id", rec.ID, "error", err)
			continue
		}
		lobbies = append(lobbies, lobby)
	}
	return lobbies, nil
}

// PlayerIDs returns the identifiers of the lobby's players in join order
func (s *LobbyService) PlayerIDs(ctx context.Context, caller, id string) ([]string, error) {
	lobby, err := s.Get(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	var ids []string
	for _, p := range lobby.People.ByRole(domain.RolePlayer) {
		ids = append(ids, p.Identifier)
	}
	return ids, nil
}

// load reads the lobby id. A lobby that has become a game fails with
// started: reads treat it as missing, mutations as an invalid operation.
func (s *LobbyService) load(ctx context.Context, id string, started error) (*domain.Lobby, error) {
	rec, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("getting lobby: %w", err)
	}
	if rec.Kind == domain.KindGame {
		return nil, fmt.Errorf("%w: lobby %s has already started", started, id)
	}
	return domain.LobbyFromRecord(*rec)
}

// mutate loads a lobby, applies fn and saves it with a revision check
func (s *LobbyService) mutate(ctx context.Context, id string, fn func(*domain.Lobby) error) (*domain.Lobby, error) {
	lobby, err := s.load(ctx, id, domain.ErrInvalidOperation)
	if err != nil {
		return nil, err
	}
	if err := fn(lobby); err != nil {
		return nil, err
	}
	if err := s.save(ctx, lobby); err != nil {
		return nil, err
	}
	return lobby, nil
}

func (s *LobbyService) save(ctx context.Context, lobby *domain.Lobby) error {
	rec := lobby.Record()
	if err := s.store.Save(ctx, &rec); err != nil {
		return fmt.Errorf("saving lobby %s: %w", lobby.ID, err)
	}
	lobby.Revision = rec.Revision

	if s.publisher != nil {
		if err := s.publisher.Publish(ctx, view.LobbyNotification(lobby)); err != nil {
			s.logger.Warn("failed to publish lobby update", "game_id", lobby.ID, "error", err)
		}
	}
	return nil
}

func clampLimit(limit int, cfg *config.GameConfig) int {
	if limit <= 0 {
		return cfg.DefaultSearchLimit
	}
	if limit > cfg.MaxSearchLimit {
		return cfg.MaxSearchLimit
	}
	return limit
}
