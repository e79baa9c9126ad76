package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hundredandten/server/internal/config"
	"github.com/hundredandten/server/internal/domain"
	"github.com/hundredandten/server/internal/engine"
	"github.com/hundredandten/server/internal/view"
)

// GameService provides business logic for started games
type GameService struct {
	store     GameStore
	summaries SummaryCache
	publisher Publisher
	config    *config.GameConfig
	logger    *slog.Logger
}

// NewGameService creates a new game service. summaries and publisher may be nil.
func NewGameService(
	store GameStore,
	summaries SummaryCache,
	publisher Publisher,
	cfg *config.GameConfig,
	logger *slog.Logger,
) *GameService {
	return &GameService{
		store:     store,
		summaries: summaries,
		publisher: publisher,
		config:    cfg,
		logger:    logger,
	}
}

// Get returns a game visible to caller
func (s *GameService) Get(ctx context.Context, caller, id string) (*domain.Game, error) {
	game, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if game.Accessibility == domain.Private {
		if _, ok := game.People.Find(caller); !ok {
			return nil, fmt.Errorf("%w: game %s", domain.ErrNotFound, id)
		}
	}
	return game, nil
}

// CanView returns ErrNotFound unless caller may see the lobby or game id
func (s *GameService) CanView(ctx context.Context, caller, id string) error {
	rec, err := s.store.Get(ctx, id)
	if err != nil {
		return err
	}
	if rec.Accessibility == domain.Private && !rec.HasPerson(caller) {
		return fmt.Errorf("%w: game %s", domain.ErrNotFound, id)
	}
	return nil
}

// Bid places a bid for caller
func (s *GameService) Bid(ctx context.Context, caller, id string, amount engine.BidAmount) (*domain.Game, int, error) {
	return s.Act(ctx, id, engine.Bid{Identifier: caller, Amount: amount})
}

// SelectTrump names trump for caller
func (s *GameService) SelectTrump(ctx context.Context, caller, id string, suit engine.Suit) (*domain.Game, int, error) {
	return s.Act(ctx, id, engine.SelectTrump{Identifier: caller, Suit: suit})
}

// Discard discards cards from caller's hand
func (s *GameService) Discard(ctx context.Context, caller, id string, cards []engine.Card) (*domain.Game, int, error) {
	return s.Act(ctx, id, engine.Discard{Identifier: caller, Cards: cards})
}

// Play plays a card from caller's hand
func (s *GameService) Play(ctx context.Context, caller, id string, card engine.Card) (*domain.Game, int, error) {
	return s.Act(ctx, id, engine.Play{Identifier: caller, Card: card})
}

// Unpass withdraws caller's early pass
func (s *GameService) Unpass(ctx context.Context, caller, id string) (*domain.Game, int, error) {
	return s.Act(ctx, id, engine.Unpass{Identifier: caller})
}

// Act applies action to the game and saves it. It returns the game and the
// number of events that existed before the action.
func (s *GameService) Act(ctx context.Context, id string, action engine.Action) (*domain.Game, int, error) {
	game, err := s.load(ctx, id)
	if err != nil {
		return nil, 0, err
	}
	if _, ok := game.People.Find(action.Actor()); !ok {
		return nil, 0, fmt.Errorf("%w: %s is not in game %s", domain.ErrAuthorizationDenied, action.Actor(), id)
	}

	before := len(game.Events())
	moves := game.MoveCount()
	if err := game.Act(action); err != nil {
		if game.MoveCount() == moves {
			return nil, 0, err
		}
		s.logger.Error("automated move failed", "game_id", id, "error", err)
	}
	if err := s.save(ctx, game, before); err != nil {
		return nil, 0, err
	}

	s.logger.Debug("move accepted",
		"game_id", id,
		"identifier", action.Actor(),
		"move", fmt.Sprintf("%T", action),
		"moves", game.MoveCount(),
	)
	return game, before, nil
}

// Leave hands caller's seat to the computer
func (s *GameService) Leave(ctx context.Context, caller, id string) (*domain.Game, int, error) {
	game, err := s.load(ctx, id)
	if err != nil {
		return nil, 0, err
	}

	before := len(game.Events())
	if err := game.Automate(caller); err != nil {
		return nil, 0, err
	}
	if err := s.save(ctx, game, before); err != nil {
		return nil, 0, err
	}

	s.logger.Info("player left game", "game_id", id, "identifier", caller)
	return game, before, nil
}

// Suggestion returns the recommended action for caller, who must be the
// active player
func (s *GameService) Suggestion(ctx context.Context, caller, id string) (engine.Action, error) {
	game, err := s.Get(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	return game.Suggestion(caller)
}

// PlayerIDs returns the game's players in seat order
func (s *GameService) PlayerIDs(ctx context.Context, caller, id string) ([]string, error) {
	game, err := s.Get(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	var ids []string
	for _, p := range game.OrderedPlayers() {
		ids = append(ids, p.Identifier)
	}
	return ids, nil
}

// Search pages through lobbies and games matching the storage-side criteria
// in (name, id) order, replays each game candidate and keeps those matching
// the replay-dependent criteria until limit results are found. Lobbies are
// always WAITING_FOR_PLAYERS. Cached summaries at the current revision let
// non-matching games skip the replay.
func (s *GameService) Search(ctx context.Context, criteria domain.GameCriteria, limit int) ([]domain.SearchResult, error) {
	limit = clampLimit(limit, s.config)
	q := criteria.Query(s.config.SearchBatchSize)

	results := make([]domain.SearchResult, 0, limit)
	for {
		records, err := s.store.Search(ctx, q)
		if err != nil {
			return nil, fmt.Errorf("searching games: %w", err)
		}

		cached := s.cachedSummaries(ctx, criteria, records)
		var fresh []domain.GameSummary
		for _, rec := range records {
			if rec.Kind == domain.KindLobby {
				lobby, err := domain.LobbyFromRecord(rec)
				if err != nil {
					s.logger.Warn("skipping unreadable lobby", "game_id", rec.ID, "error", err)
					continue
				}
				if !criteria.MatchesSummary(lobby.Summary()) {
					continue
				}
				results = append(results, domain.SearchResult{Lobby: lobby})
				if len(results) == limit {
					break
				}
				continue
			}

			if sum, ok := cached[rec.ID]; ok && sum.Revision == rec.Revision && !criteria.MatchesSummary(sum) {
				continue
			}

			game, err := domain.RestoreGame(rec)
			if err != nil {
				s.logger.Warn("skipping unreadable game", "game_id", rec.ID, "error", err)
				continue
			}
			sum := game.Summary()
			if c, ok := cached[rec.ID]; !ok || c.Revision != rec.Revision {
				fresh = append(fresh, sum)
			}
			if !criteria.MatchesSummary(sum) {
				continue
			}

			results = append(results, domain.SearchResult{Game: game})
			if len(results) == limit {
				break
			}
		}
		s.storeSummaries(ctx, fresh)

		if len(results) == limit || len(records) < q.Limit {
			return results, nil
		}
		q = q.After(records[len(records)-1])
	}
}

// RefreshSummaries replays one page of games after afterID and caches their
// summaries. It returns the last id processed, empty once there are no more.
func (s *GameService) RefreshSummaries(ctx context.Context, afterID string, batchSize int) (string, int, error) {
	ids, err := s.store.ListIDs(ctx, domain.KindGame, afterID, batchSize)
	if err != nil {
		return "", 0, fmt.Errorf("listing games: %w", err)
	}
	if len(ids) == 0 {
		return "", 0, nil
	}

	summaries := make([]domain.GameSummary, 0, len(ids))
	for _, id := range ids {
		game, err := s.load(ctx, id)
		if err != nil {
			s.logger.Warn("skipping game during summary refresh", "game_id", id, "error", err)
			continue
		}
		summaries = append(summaries, game.Summary())
	}
	if s.summaries != nil {
		if err := s.summaries.SetSummaries(ctx, summaries); err != nil {
			return "", 0, fmt.Errorf("caching summaries: %w", err)
		}
	}
	return ids[len(ids)-1], len(summaries), nil
}

func (s *GameService) cachedSummaries(ctx context.Context, criteria domain.GameCriteria, records []domain.GameRecord) map[string]domain.GameSummary {
	if s.summaries == nil || !criteria.NeedsReplay() || len(records) == 0 {
		return nil
	}
	ids := make([]string, 0, len(records))
	for _, rec := range records {
		if rec.Kind == domain.KindGame {
			ids = append(ids, rec.ID)
		}
	}
	if len(ids) == 0 {
		return nil
	}
	cached, err := s.summaries.GetSummaries(ctx, ids)
	if err != nil {
		s.logger.Warn("failed to read cached summaries", "error", err)
		return nil
	}
	return cached
}

func (s *GameService) storeSummaries(ctx context.Context, summaries []domain.GameSummary) {
	if s.summaries == nil || len(summaries) == 0 {
		return
	}
	if err := s.summaries.SetSummaries(ctx, summaries); err != nil {
		s.logger.Warn("failed to cache summaries", "error", err)
	}
}

func (s *GameService) load(ctx context.Context, id string) (*domain.Game, error) {
	rec, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("getting game: %w", err)
	}
	if rec.Kind == domain.KindLobby {
		return nil, fmt.Errorf("%w: game %s has not started", domain.ErrInvalidOperation, id)
	}
	return domain.RestoreGame(*rec)
}

// save writes the game with a revision check, refreshes its cached summary
// and publishes the events from since onwards
func (s *GameService) save(ctx context.Context, game *domain.Game, since int) error {
	rec, err := game.Record()
	if err != nil {
		return err
	}
	if err := s.store.Save(ctx, &rec); err != nil {
		return fmt.Errorf("saving game %s: %w", game.ID, err)
	}
	game.Revision = rec.Revision

	s.storeSummaries(ctx, []domain.GameSummary{game.Summary()})
	if s.publisher != nil {
		if err := s.publisher.Publish(ctx, view.GameNotification(game, since)); err != nil {
			s.logger.Warn("failed to publish game update", "game_id", game.ID, "error", err)
		}
	}
	return nil
}
