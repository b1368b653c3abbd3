package repository

import (
	"context"
	"errors"
	"fmt"

	"earnify/database"
	"earnify/domain/entities"
	"earnify/domain/interfaces"

	"github.com/jackc/pgx/v5"
)

const gameColumns = `
	id, name, iframe_url, image_url, min_wager, max_wager,
	total_plays, total_wagered, is_active, created_at, updated_at`

// GameRepository implements interfaces.GameRepository
type GameRepository struct {
	q Queryable
}

// NewGameRepository creates a game repository over the pool
func NewGameRepository(db *database.DB) *GameRepository {
	return &GameRepository{q: db.Pool}
}

func newGameRepository(q Queryable) interfaces.GameRepository {
	return &GameRepository{q: q}
}

func scanGame(row pgx.Row) (*entities.Game, error) {
	var game entities.Game
	err := row.Scan(
		&game.ID,
		&game.Name,
		&game.IframeURL,
		&game.ImageURL,
		&game.MinWager,
		&game.MaxWager,
		&game.TotalPlays,
		&game.TotalWagered,
		&game.IsActive,
		&game.CreatedAt,
		&game.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &game, nil
}

// GetByID retrieves a game by ID
func (r *GameRepository) GetByID(ctx context.Context, id int64) (*entities.Game, error) {
	query := `SELECT ` + gameColumns + ` FROM games WHERE id = $1`

	game, err := scanGame(r.q.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get game %d: %w", id, err)
	}
	return game, nil
}

// ListActive returns active games, newest first
func (r *GameRepository) ListActive(ctx context.Context) ([]*entities.Game, error) {
	query := `SELECT ` + gameColumns + ` FROM games WHERE is_active ORDER BY created_at DESC, id DESC`

	rows, err := r.q.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list games: %w", err)
	}
	defer rows.Close()

	var games []*entities.Game
	for rows.Next() {
		game, err := scanGame(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan game: %w", err)
		}
		games = append(games, game)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate games: %w", err)
	}
	return games, nil
}

// Create inserts a game
func (r *GameRepository) Create(ctx context.Context, game *entities.Game) error {
	query := `
		INSERT INTO games (name, iframe_url, image_url, min_wager, max_wager, is_active)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at
	`
	err := r.q.QueryRow(ctx, query,
		game.Name,
		game.IframeURL,
		game.ImageURL,
		game.MinWager,
		game.MaxWager,
		game.IsActive,
	).Scan(&game.ID, &game.CreatedAt, &game.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create game %q: %w", game.Name, err)
	}
	return nil
}

// RecordPlay increments the play counters for a wager
func (r *GameRepository) RecordPlay(ctx context.Context, id int64, amount int64) error {
	query := `
		UPDATE games
		SET total_plays = total_plays + 1,
			total_wagered = total_wagered + $2,
			updated_at = NOW()
		WHERE id = $1
	`
	result, err := r.q.Exec(ctx, query, id, amount)
	if err != nil {
		return fmt.Errorf("failed to record play for game %d: %w", id, err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("game %d not found", id)
	}
	return nil
}
