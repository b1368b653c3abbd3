package testutil

import (
	"context"
	"fmt"
	"testing"
	"time"

	"earnify/database"
	"earnify/domain/entities"

	"github.com/stretchr/testify/require"
)

// NewTestUser builds an unsaved user with a code derived from its ID
func NewTestUser(id int64, username string) *entities.User {
	now := time.Now()
	return &entities.User{
		ID:           id,
		Username:     username,
		FirstName:    username,
		ReferralCode: fmt.Sprintf("%06X", id%0xFFFFFF),
		Level:        1,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// InsertUser writes a user row with the given starting balances directly, bypassing the ledger
func InsertUser(t *testing.T, db *database.DB, id int64, balance, pending int64) *entities.User {
	t.Helper()

	user := NewTestUser(id, fmt.Sprintf("user%d", id))
	_, err := db.Exec(context.Background(), `
		INSERT INTO users (id, username, first_name, referral_code, balance, pending_balance, total_earned)
		VALUES ($1, $2, $3, $4, $5, $6, $5 + $6)
	`, user.ID, user.Username, user.FirstName, user.ReferralCode, balance, pending)
	require.NoError(t, err)

	user.Balance = balance
	user.PendingBalance = pending
	user.TotalEarned = balance + pending
	return user
}

// InsertGame writes an active game row
func InsertGame(t *testing.T, db *database.DB, name string, minWager, maxWager int64) *entities.Game {
	t.Helper()

	game := &entities.Game{
		Name:      name,
		IframeURL: "https://games.example/" + name,
		MinWager:  minWager,
		MaxWager:  maxWager,
		IsActive:  true,
	}
	err := db.QueryRow(context.Background(), `
		INSERT INTO games (name, iframe_url, min_wager, max_wager, is_active)
		VALUES ($1, $2, $3, $4, TRUE)
		RETURNING id, created_at, updated_at
	`, game.Name, game.IframeURL, game.MinWager, game.MaxWager).Scan(&game.ID, &game.CreatedAt, &game.UpdatedAt)
	require.NoError(t, err)
	return game
}

// NewTestTransaction builds an unsaved completed credit
func NewTestTransaction(userID int64, category entities.Category, amount int64) *entities.Transaction {
	return &entities.Transaction{
		UserID:        userID,
		Amount:        amount,
		Direction:     entities.DirectionCredit,
		Category:      category,
		Status:        entities.StatusCompleted,
		TargetField:   entities.FieldBalance,
		BalanceBefore: 0,
		BalanceAfter:  amount,
		Description:   "test entry",
		Metadata:      map[string]any{"test": true},
	}
}
