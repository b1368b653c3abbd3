package repository

import (
	"context"
	"testing"
	"time"

	"earnify/domain/entities"
	"earnify/repository/testutil"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGameRepository(t *testing.T) {
	t.Parallel()
	testDB := testutil.SetupTestDatabase(t)

	repo := NewGameRepository(testDB.DB)
	ctx := context.Background()

	game := &entities.Game{
		Name:      "Stack Tower",
		IframeURL: "https://games.example/stack",
		MinWager:  entities.DefaultMinWager,
		MaxWager:  entities.DefaultMaxWager,
		IsActive:  true,
	}
	require.NoError(t, repo.Create(ctx, game))
	require.NotZero(t, game.ID)

	inactive := testutil.InsertGame(t, testDB.DB, "retired", 10, 100)
	_, err := testDB.DB.Exec(ctx, `UPDATE games SET is_active = FALSE WHERE id = $1`, inactive.ID)
	require.NoError(t, err)

	require.NoError(t, repo.RecordPlay(ctx, game.ID, 120))
	require.NoError(t, repo.RecordPlay(ctx, game.ID, 80))

	stored, err := repo.GetByID(ctx, game.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stored.TotalPlays)
	assert.Equal(t, int64(200), stored.TotalWagered)

	active, err := repo.ListActive(ctx)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "Stack Tower", active[0].Name)

	assert.Error(t, repo.RecordPlay(ctx, 99999, 10))
}

func TestReferralRepository(t *testing.T) {
	t.Parallel()
	testDB := testutil.SetupTestDatabase(t)

	repo := NewReferralRepository(testDB.DB)
	ctx := context.Background()
	testutil.InsertUser(t, testDB.DB, 6001, 0, 0)
	testutil.InsertUser(t, testDB.DB, 6002, 0, 0)
	testutil.InsertUser(t, testDB.DB, 6003, 0, 0)

	require.NoError(t, repo.Create(ctx, &entities.ReferralEdge{ReferrerID: 6001, RefereeID: 6002}))
	require.NoError(t, repo.Create(ctx, &entities.ReferralEdge{ReferrerID: 6001, RefereeID: 6003}))

	t.Run("a referee has a single referrer", func(t *testing.T) {
		err := repo.Create(ctx, &entities.ReferralEdge{ReferrerID: 6003, RefereeID: 6002})
		assert.Error(t, err)
	})

	t.Run("edges start inactive", func(t *testing.T) {
		edge, err := repo.GetByReferee(ctx, 6002)
		require.NoError(t, err)
		require.NotNil(t, edge)
		assert.False(t, edge.IsActive)
		assert.Nil(t, edge.ActivatedAt)
	})

	t.Run("activate and accrue commission", func(t *testing.T) {
		ok, err := repo.Activate(ctx, 6002, time.Now())
		require.NoError(t, err)
		assert.True(t, ok)

		require.NoError(t, repo.AddCommission(ctx, 6001, 6002, 10))
		require.NoError(t, repo.AddCommission(ctx, 6001, 6002, 2))

		stats, err := repo.GetStats(ctx, 6001)
		require.NoError(t, err)
		assert.Equal(t, 2, stats.TotalReferrals)
		assert.Equal(t, 1, stats.ActiveReferrals)
		assert.Equal(t, int64(12), stats.TotalCommission)
	})

	t.Run("activate unknown referee", func(t *testing.T) {
		ok, err := repo.Activate(ctx, 6001, time.Now())
		require.NoError(t, err)
		assert.False(t, ok)
	})
}

func TestReferralBonusOutboxRepository(t *testing.T) {
	t.Parallel()
	testDB := testutil.SetupTestDatabase(t)

	repo := NewReferralBonusOutboxRepository(testDB.DB)
	txRepo := NewTransactionRepository(testDB.DB)
	ctx := context.Background()
	testutil.InsertUser(t, testDB.DB, 7001, 0, 0)
	testutil.InsertUser(t, testDB.DB, 7002, 0, 0)

	source := testutil.NewTestTransaction(7002, entities.CategoryAdReward, 100)
	require.NoError(t, txRepo.Create(ctx, source))

	entry := &entities.ReferralBonusEntry{
		ReferrerID:          7001,
		RefereeID:           7002,
		SourceTransactionID: source.ID,
		Amount:              10,
	}
	require.NoError(t, repo.Enqueue(ctx, entry))

	t.Run("one entry per source transaction", func(t *testing.T) {
		dup := *entry
		dup.ID = uuid.Nil
		assert.Error(t, repo.Enqueue(ctx, &dup))
	})

	t.Run("failures are counted", func(t *testing.T) {
		require.NoError(t, repo.RecordFailure(ctx, entry.ID, "referrer blocked"))

		stored, err := repo.GetByID(ctx, entry.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, stored.Attempts)
		assert.Equal(t, "referrer blocked", stored.LastError)

		exhausted, err := repo.ListUnprocessed(ctx, 10, 1)
		require.NoError(t, err)
		assert.Empty(t, exhausted)
	})

	t.Run("settles exactly once", func(t *testing.T) {
		pending, err := repo.ListUnprocessed(ctx, 10, 5)
		require.NoError(t, err)
		require.Len(t, pending, 1)

		ok, err := repo.MarkProcessed(ctx, entry.ID, time.Now())
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = repo.MarkProcessed(ctx, entry.ID, time.Now())
		require.NoError(t, err)
		assert.False(t, ok)

		pending, err = repo.ListUnprocessed(ctx, 10, 5)
		require.NoError(t, err)
		assert.Empty(t, pending)
	})
}

func TestPostbackReceiptRepository_Idempotent(t *testing.T) {
	t.Parallel()
	testDB := testutil.SetupTestDatabase(t)

	repo := newPostbackReceiptRepository(testDB.DB.Pool)
	txRepo := NewTransactionRepository(testDB.DB)
	ctx := context.Background()
	testutil.InsertUser(t, testDB.DB, 8001, 0, 0)

	source := testutil.NewTestTransaction(8001, entities.CategoryCPAReward, 50)
	require.NoError(t, txRepo.Create(ctx, source))

	receipt := &entities.PostbackReceipt{UserID: 8001, OfferID: "offer-1", Reward: 50, TransactionID: source.ID}
	inserted, err := repo.Insert(ctx, receipt)
	require.NoError(t, err)
	assert.True(t, inserted)

	again := &entities.PostbackReceipt{UserID: 8001, OfferID: "offer-1", Reward: 50, TransactionID: source.ID}
	inserted, err = repo.Insert(ctx, again)
	require.NoError(t, err)
	assert.False(t, inserted)

	otherTx := &entities.PostbackReceipt{UserID: 8001, OfferID: "offer-1", NetworkTxID: "net-2", Reward: 50, TransactionID: source.ID}
	inserted, err = repo.Insert(ctx, otherTx)
	require.NoError(t, err)
	assert.True(t, inserted, "a distinct network transaction is a new conversion")
}

func TestOfferRepository(t *testing.T) {
	t.Parallel()
	testDB := testutil.SetupTestDatabase(t)

	repo := newOfferRepository(testDB.DB.Pool)
	ctx := context.Background()
	testutil.InsertUser(t, testDB.DB, 9001, 0, 0)

	low := &entities.Offer{Title: "Survey", Reward: 20, Link: "https://offers.example/s", Category: "General", Type: "direct", IsActive: true}
	high := &entities.Offer{Title: "Install", Reward: 80, Link: "https://offers.example/i", Category: "Apps", Type: "direct", IsActive: true}
	require.NoError(t, repo.Create(ctx, low))
	require.NoError(t, repo.Create(ctx, high))

	offers, err := repo.ListActive(ctx)
	require.NoError(t, err)
	require.Len(t, offers, 2)
	assert.Equal(t, "Install", offers[0].Title)

	require.NoError(t, repo.RecordClick(ctx, 9001, low.ID))
	assert.Error(t, repo.RecordClick(ctx, 9001, 424242))

	missing, err := repo.GetByID(ctx, 424242)
	require.NoError(t, err)
	assert.Nil(t, missing)
}
