package repository

import (
	"context"
	"testing"
	"time"

	"earnify/domain/entities"
	"earnify/repository/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserRepository_CreateAndGet(t *testing.T) {
	t.Parallel()
	testDB := testutil.SetupTestDatabase(t)

	repo := NewUserRepository(testDB.DB)
	ctx := context.Background()

	t.Run("user not found", func(t *testing.T) {
		user, err := repo.GetByID(ctx, 999999)
		require.NoError(t, err)
		assert.Nil(t, user)
	})

	t.Run("create then read back", func(t *testing.T) {
		newUser := testutil.NewTestUser(1001, "alice")
		created, err := repo.Create(ctx, newUser)
		require.NoError(t, err)
		assert.True(t, created)
		assert.False(t, newUser.CreatedAt.IsZero())

		user, err := repo.GetByID(ctx, 1001)
		require.NoError(t, err)
		require.NotNil(t, user)
		assert.Equal(t, "alice", user.Username)
		assert.Equal(t, int64(0), user.Balance)
		assert.Equal(t, 1, user.Level)
		assert.Nil(t, user.LastClaim)

		byCode, err := repo.GetByReferralCode(ctx, newUser.ReferralCode)
		require.NoError(t, err)
		require.NotNil(t, byCode)
		assert.Equal(t, int64(1001), byCode.ID)
	})

	t.Run("duplicate id is not created twice", func(t *testing.T) {
		first := testutil.NewTestUser(1002, "bob")
		_, err := repo.Create(ctx, first)
		require.NoError(t, err)

		again := testutil.NewTestUser(1002, "bob-again")
		again.ReferralCode = "ABCDEF"
		created, err := repo.Create(ctx, again)
		require.NoError(t, err)
		assert.False(t, created)
	})

	t.Run("update profile", func(t *testing.T) {
		_, err := repo.Create(ctx, testutil.NewTestUser(1003, "carol"))
		require.NoError(t, err)

		require.NoError(t, repo.UpdateProfile(ctx, 1003, "carol2", "Carol", "King"))
		user, err := repo.GetByID(ctx, 1003)
		require.NoError(t, err)
		assert.Equal(t, "carol2", user.Username)
		assert.Equal(t, "King", user.LastName)

		assert.Error(t, repo.UpdateProfile(ctx, 424242, "x", "y", "z"))
	})
}

func TestUserRepository_AdjustBalances(t *testing.T) {
	t.Parallel()
	testDB := testutil.SetupTestDatabase(t)

	repo := NewUserRepository(testDB.DB)
	ctx := context.Background()
	testutil.InsertUser(t, testDB.DB, 2001, 100, 0)

	t.Run("credit increments earned and version", func(t *testing.T) {
		user, err := repo.AdjustBalances(ctx, 2001, entities.BalanceAdjustment{Balance: 5, TotalEarned: 5})
		require.NoError(t, err)
		require.NotNil(t, user)
		assert.Equal(t, int64(105), user.Balance)
		assert.Equal(t, int64(105), user.TotalEarned)
		assert.Equal(t, int64(1), user.Version)
	})

	t.Run("overdraft is refused without changes", func(t *testing.T) {
		user, err := repo.AdjustBalances(ctx, 2001, entities.BalanceAdjustment{Balance: -106})
		require.NoError(t, err)
		assert.Nil(t, user)

		current, err := repo.GetByID(ctx, 2001)
		require.NoError(t, err)
		assert.Equal(t, int64(105), current.Balance)
	})

	t.Run("move balance into pending", func(t *testing.T) {
		user, err := repo.AdjustBalances(ctx, 2001, entities.BalanceAdjustment{Balance: -100, PendingBalance: 100})
		require.NoError(t, err)
		require.NotNil(t, user)
		assert.Equal(t, int64(5), user.Balance)
		assert.Equal(t, int64(100), user.PendingBalance)
	})

	t.Run("unknown user", func(t *testing.T) {
		user, err := repo.AdjustBalances(ctx, 777, entities.BalanceAdjustment{Balance: 1})
		require.NoError(t, err)
		assert.Nil(t, user)
	})
}

func TestUserRepository_UpdateStreak(t *testing.T) {
	t.Parallel()
	testDB := testutil.SetupTestDatabase(t)

	repo := NewUserRepository(testDB.DB)
	ctx := context.Background()
	testutil.InsertUser(t, testDB.DB, 3001, 0, 0)

	claimedAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, repo.UpdateStreak(ctx, 3001, 4, claimedAt))

	user, err := repo.GetByID(ctx, 3001)
	require.NoError(t, err)
	assert.Equal(t, 4, user.DailyStreak)
	require.NotNil(t, user.LastClaim)
	assert.True(t, claimedAt.Equal(*user.LastClaim))
}

func TestSchema_RejectsNegativeBalances(t *testing.T) {
	t.Parallel()
	testDB := testutil.SetupTestDatabase(t)
	testutil.InsertUser(t, testDB.DB, 4001, 10, 0)

	_, err := testDB.DB.Exec(context.Background(), `UPDATE users SET balance = -1 WHERE id = 4001`)
	require.Error(t, err)
	assert.True(t, isCheckViolation(err))
}
