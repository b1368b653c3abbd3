package services

import (
	"context"
	"fmt"
	"strings"

	"earnify/domain/apperrors"
	"earnify/domain/entities"
	"earnify/domain/interfaces"
)

// GameInput holds the admin-supplied fields of a new game
type GameInput struct {
	Name      string
	IframeURL string
	ImageURL  string
	MinWager  int64
	MaxWager  int64
}

// GameService handles the game catalogue and wagers
type GameService struct {
	ledger *LedgerService
}

// NewGameService creates a new game service
func NewGameService(ledger *LedgerService) *GameService {
	return &GameService{ledger: ledger}
}

// PlaceWager debits a wager and counts the play in the same unit
func (s *GameService) PlaceWager(ctx context.Context, userID, gameID, amount int64) (*LedgerResult, error) {
	if amount <= 0 {
		return nil, apperrors.InvalidWager("wager must be positive")
	}

	var result *LedgerResult
	err := s.ledger.RunInTransaction(ctx, func(ctx context.Context, uow interfaces.UnitOfWork) error {
		game, err := uow.GameRepository().GetByID(ctx, gameID)
		if err != nil {
			return fmt.Errorf("failed to get game: %w", err)
		}
		if game == nil || !game.IsActive {
			return apperrors.GameNotFound(gameID)
		}
		if !game.AcceptsWager(amount) {
			return apperrors.InvalidWager("wager must be between %d and %d", game.MinWager, game.MaxWager)
		}

		recordPlay := func(ctx context.Context, uow interfaces.UnitOfWork, ac *AtomicContext) error {
			return uow.GameRepository().RecordPlay(ctx, game.ID, amount)
		}

		result, err = s.ledger.ApplyWithinUnit(ctx, uow, BalanceDelta{
			UserID:      userID,
			Amount:      -amount,
			Field:       entities.FieldBalance,
			Category:    entities.CategoryGameWager,
			Status:      entities.StatusCompleted,
			Description: "Wager on " + game.Name,
			Metadata: map[string]any{
				"gameId":   game.ID,
				"gameName": game.Name,
			},
		}, recordPlay)
		return err
	})
	if err != nil {
		s.ledger.recordRejection(ctx, err)
		return nil, err
	}

	s.ledger.recordCommitted(ctx, result)
	return result, nil
}

// ListGames returns active games, newest first
func (s *GameService) ListGames(ctx context.Context) ([]*entities.Game, error) {
	var games []*entities.Game
	err := s.ledger.RunInTransaction(ctx, func(ctx context.Context, uow interfaces.UnitOfWork) error {
		var err error
		games, err = uow.GameRepository().ListActive(ctx)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list games: %w", err)
	}
	return games, nil
}

// CreateGame adds a game to the catalogue. Zero wager bounds take the defaults.
func (s *GameService) CreateGame(ctx context.Context, input GameInput) (*entities.Game, error) {
	game := &entities.Game{
		Name:      strings.TrimSpace(input.Name),
		IframeURL: strings.TrimSpace(input.IframeURL),
		ImageURL:  strings.TrimSpace(input.ImageURL),
		MinWager:  input.MinWager,
		MaxWager:  input.MaxWager,
		IsActive:  true,
	}
	if game.MinWager == 0 {
		game.MinWager = entities.DefaultMinWager
	}
	if game.MaxWager == 0 {
		game.MaxWager = entities.DefaultMaxWager
	}

	if game.Name == "" || game.IframeURL == "" {
		return nil, apperrors.BadRequest("name and iframe URL are required")
	}
	if game.MinWager < 0 || game.MaxWager < game.MinWager {
		return nil, apperrors.BadRequest("wager bounds must satisfy 0 < min <= max")
	}

	err := s.ledger.RunInTransaction(ctx, func(ctx context.Context, uow interfaces.UnitOfWork) error {
		return uow.GameRepository().Create(ctx, game)
	})
	if err != nil {
		return nil, err
	}
	return game, nil
}
