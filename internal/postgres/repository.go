package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/hundredandten/server/internal/config"
	"github.com/hundredandten/server/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository provides PostgreSQL-based storage for lobbies, games and users
type Repository struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewRepository creates a new PostgreSQL repository
func NewRepository(cfg *config.PostgresConfig, logger *slog.Logger) (*Repository, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("parsing connection string: %w", err)
	}

	poolConfig.MaxConns = int32(cfg.MaxConnections)
	poolConfig.MinConns = int32(cfg.MinConnections)
	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(context.Background(), poolConfig)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	// Test connection
	if err := pool.Ping(context.Background()); err != nil {
		pool.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	return &Repository{
		pool:   pool,
		logger: logger,
	}, nil
}

// Close closes the database connection pool
func (r *Repository) Close() {
	r.pool.Close()
}

// Ping checks the database connection
func (r *Repository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

// RunMigrations executes database migrations. Names use the C collation so
// keyset paging agrees with byte order.
func (r *Repository) RunMigrations(ctx context.Context) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS games (
			id VARCHAR(64) PRIMARY KEY,
			kind VARCHAR(10) NOT NULL,
			name TEXT COLLATE "C" NOT NULL,
			seed VARCHAR(64) NOT NULL,
			accessibility VARCHAR(10) NOT NULL,
			people JSONB NOT NULL DEFAULT '[]',
			moves JSONB NOT NULL DEFAULT '[]',
			revision BIGINT NOT NULL DEFAULT 1,
			created_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS users (
			identifier VARCHAR(255) PRIMARY KEY,
			name TEXT NOT NULL,
			picture_url TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_games_kind_name ON games(kind, name, id)`,
		`CREATE INDEX IF NOT EXISTS idx_games_people ON games USING GIN (people jsonb_path_ops)`,
		`CREATE INDEX IF NOT EXISTS idx_users_name ON users(name)`,
	}

	for _, migration := range migrations {
		_, err := r.pool.Exec(ctx, migration)
		if err != nil {
			return fmt.Errorf("executing migration: %w", err)
		}
	}

	r.logger.Info("database migrations completed")
	return nil
}

const gameColumns = `id, kind, name, seed, accessibility, people, moves, revision, created_at, updated_at`

func scanGame(row pgx.Row) (*domain.GameRecord, error) {
	var rec domain.GameRecord
	var people, moves []byte
	err := row.Scan(
		&rec.ID,
		&rec.Kind,
		&rec.Name,
		&rec.Seed,
		&rec.Accessibility,
		&people,
		&moves,
		&rec.Revision,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(people, &rec.People); err != nil {
		return nil, fmt.Errorf("%w: people of %s: %v", domain.ErrDecoding, rec.ID, err)
	}
	if err := json.Unmarshal(moves, &rec.Moves); err != nil {
		return nil, fmt.Errorf("%w: moves of %s: %v", domain.ErrDecoding, rec.ID, err)
	}
	return &rec, nil
}

// Get retrieves a lobby or game record by ID
func (r *Repository) Get(ctx context.Context, id string) (*domain.GameRecord, error) {
	query := `SELECT ` + gameColumns + ` FROM games WHERE id = $1`
	rec, err := scanGame(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: game %s", domain.ErrNotFound, id)
		}
		return nil, fmt.Errorf("getting game: %w", err)
	}
	return rec, nil
}

// Save inserts a record with revision 0, otherwise updates it only if the
// stored revision still matches. The new revision is written back to rec.
func (r *Repository) Save(ctx context.Context, rec *domain.GameRecord) error {
	people, err := json.Marshal(rec.People)
	if err != nil {
		return fmt.Errorf("marshaling people: %w", err)
	}
	moves := rec.Moves
	if moves == nil {
		moves = []domain.MoveRecord{}
	}
	movesJSON, err := json.Marshal(moves)
	if err != nil {
		return fmt.Errorf("marshaling moves: %w", err)
	}
	now := time.Now()

	if rec.Revision == 0 {
		query := `
			INSERT INTO games (id, kind, name, seed, accessibility, people, moves, revision, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, 1, $8, $8)
			ON CONFLICT (id) DO NOTHING
			RETURNING revision, created_at, updated_at
		`
		err := r.pool.QueryRow(ctx, query,
			rec.ID, string(rec.Kind), rec.Name, rec.Seed, string(rec.Accessibility), people, movesJSON, now,
		).Scan(&rec.Revision, &rec.CreatedAt, &rec.UpdatedAt)
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("%w: game %s already exists", domain.ErrConflict, rec.ID)
		}
		if err != nil {
			return fmt.Errorf("inserting game: %w", err)
		}
		return nil
	}

	query := `
		UPDATE games
		SET kind = $2, name = $3, accessibility = $4, people = $5, moves = $6,
			revision = revision + 1, updated_at = $7
		WHERE id = $1 AND revision = $8
		RETURNING revision, created_at, updated_at
	`
	var revision int64
	var createdAt, updatedAt time.Time
	err = r.pool.QueryRow(ctx, query,
		rec.ID, string(rec.Kind), rec.Name, string(rec.Accessibility), people, movesJSON, now, rec.Revision,
	).Scan(&revision, &createdAt, &updatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return r.saveFailure(ctx, rec.ID, rec.Revision)
	}
	if err != nil {
		return fmt.Errorf("updating game: %w", err)
	}

	rec.Revision, rec.CreatedAt, rec.UpdatedAt = revision, createdAt, updatedAt
	return nil
}

// saveFailure explains why a conditional update matched no row
func (r *Repository) saveFailure(ctx context.Context, id string, revision int64) error {
	var current int64
	err := r.pool.QueryRow(ctx, `SELECT revision FROM games WHERE id = $1`, id).Scan(&current)
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%w: game %s", domain.ErrNotFound, id)
	}
	if err != nil {
		return fmt.Errorf("checking game revision: %w", err)
	}
	return fmt.Errorf("%w: game %s is at revision %d, not %d", domain.ErrConflict, id, current, revision)
}

// escapeLike escapes LIKE wildcards so user input matches literally
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

// Search returns records matching q ordered by name then id. The name
// filter is a case-insensitive substring; private records are only returned
// to people listed in them.
func (r *Repository) Search(ctx context.Context, q domain.RecordQuery) ([]domain.GameRecord, error) {
	member, err := json.Marshal([]map[string]string{{"identifier": q.Client}})
	if err != nil {
		return nil, fmt.Errorf("marshaling member filter: %w", err)
	}

	query := `
		SELECT ` + gameColumns + `
		FROM games
		WHERE ($1::text = '' OR kind = $1)
		  AND name ILIKE $2 ESCAPE '\'
		  AND (accessibility = $3 OR people @> $4::jsonb)
		  AND ($5 = '' OR (name, id) > ($6, $5))
		ORDER BY name, id
		LIMIT $7
	`
	rows, err := r.pool.Query(ctx, query,
		string(q.Kind),
		"%"+escapeLike(q.Name)+"%",
		string(domain.Public),
		string(member),
		q.AfterID,
		q.AfterName,
		q.Limit,
	)
	if err != nil {
		return nil, fmt.Errorf("searching games: %w", err)
	}
	defer rows.Close()

	var records []domain.GameRecord
	for rows.Next() {
		rec, err := scanGame(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning game: %w", err)
		}
		records = append(records, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating games: %w", err)
	}
	return records, nil
}

// ListIDs returns up to limit ids of the given kind after afterID
func (r *Repository) ListIDs(ctx context.Context, kind domain.Kind, afterID string, limit int) ([]string, error) {
	query := `SELECT id FROM games WHERE kind = $1 AND id > $2 ORDER BY id LIMIT $3`
	rows, err := r.pool.Query(ctx, query, string(kind), afterID, limit)
	if err != nil {
		return nil, fmt.Errorf("listing game ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// GetUser retrieves a user profile
func (r *Repository) GetUser(ctx context.Context, id string) (*domain.User, error) {
	query := `SELECT identifier, name, picture_url FROM users WHERE identifier = $1`
	var u domain.User
	err := r.pool.QueryRow(ctx, query, id).Scan(&u.Identifier, &u.Name, &u.PictureURL)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: user %s", domain.ErrNotFound, id)
		}
		return nil, fmt.Errorf("getting user: %w", err)
	}
	return &u, nil
}

// GetUsers retrieves the stored profiles among ids
func (r *Repository) GetUsers(ctx context.Context, ids []string) ([]domain.User, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query := `SELECT identifier, name, picture_url FROM users WHERE identifier = ANY($1)`
	rows, err := r.pool.Query(ctx, query, ids)
	if err != nil {
		return nil, fmt.Errorf("getting users: %w", err)
	}
	defer rows.Close()
	return scanUsers(rows)
}

// SearchUsers returns users whose name contains text
func (r *Repository) SearchUsers(ctx context.Context, text string, limit int) ([]domain.User, error) {
	query := `
		SELECT identifier, name, picture_url
		FROM users
		WHERE name ILIKE $1 ESCAPE '\'
		ORDER BY name, identifier
		LIMIT $2
	`
	rows, err := r.pool.Query(ctx, query, "%"+escapeLike(text)+"%", limit)
	if err != nil {
		return nil, fmt.Errorf("searching users: %w", err)
	}
	defer rows.Close()
	return scanUsers(rows)
}

func scanUsers(rows pgx.Rows) ([]domain.User, error) {
	var users []domain.User
	for rows.Next() {
		var u domain.User
		if err := rows.Scan(&u.Identifier, &u.Name, &u.PictureURL); err != nil {
			return nil, fmt.Errorf("scanning user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// SaveUser inserts or replaces a user profile
func (r *Repository) SaveUser(ctx context.Context, user domain.User) error {
	query := `
		INSERT INTO users (identifier, name, picture_url, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $4)
		ON CONFLICT (identifier)
		DO UPDATE SET name = $2, picture_url = $3, updated_at = $4
	`
	_, err := r.pool.Exec(ctx, query, user.Identifier, user.Name, user.PictureURL, time.Now())
	if err != nil {
		return fmt.Errorf("saving user: %w", err)
	}
	return nil
}

// SaveUsers upserts many profiles in one round trip
func (r *Repository) SaveUsers(ctx context.Context, users []domain.User) error {
	if len(users) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	query := `
		INSERT INTO users (identifier, name, picture_url, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $4)
		ON CONFLICT (identifier)
		DO UPDATE SET name = $2, picture_url = $3, updated_at = $4
	`
	now := time.Now()
	for _, u := range users {
		batch.Queue(query, u.Identifier, u.Name, u.PictureURL, now)
	}

	br := r.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range users {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("batch saving users: %w", err)
		}
	}
	return nil
}
