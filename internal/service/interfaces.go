package service

import (
	"context"

	"github.com/hundredandten/server/internal/domain"
	"github.com/hundredandten/server/internal/view"
)

// GameStore persists lobby and game records. Save inserts records with
// revision 0 and otherwise updates only when the stored revision equals the
// record's, failing with domain.ErrConflict. On success the record carries
// its new revision.
type GameStore interface {
	Get(ctx context.Context, id string) (*domain.GameRecord, error)
	Save(ctx context.Context, rec *domain.GameRecord) error
	Search(ctx context.Context, q domain.RecordQuery) ([]domain.GameRecord, error)
	ListIDs(ctx context.Context, kind domain.Kind, afterID string, limit int) ([]string, error)
}

// UserStore persists user profiles
type UserStore interface {
	GetUser(ctx context.Context, id string) (*domain.User, error)
	GetUsers(ctx context.Context, ids []string) ([]domain.User, error)
	SearchUsers(ctx context.Context, text string, limit int) ([]domain.User, error)
	SaveUser(ctx context.Context, user domain.User) error
	SaveUsers(ctx context.Context, users []domain.User) error
}

// Publisher delivers change notifications to realtime subscribers
type Publisher interface {
	Publish(ctx context.Context, n view.Notification) error
}

// SummaryCache holds replay-derived game summaries keyed by game id. A
// cached summary is only valid for the revision it records.
type SummaryCache interface {
	GetSummaries(ctx context.Context, ids []string) (map[string]domain.GameSummary, error)
	SetSummaries(ctx context.Context, summaries []domain.GameSummary) error
}

// ProfileCache holds user profiles in front of the user store
type ProfileCache interface {
	GetProfiles(ctx context.Context, ids []string) (map[string]domain.User, error)
	SetProfiles(ctx context.Context, users []domain.User) error
	DeleteProfile(ctx context.Context, id string) error
}
