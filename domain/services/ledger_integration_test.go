package services_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"earnify/domain/apperrors"
	"earnify/domain/entities"
	"earnify/domain/services"
	"earnify/infrastructure"
	"earnify/repository"
	"earnify/repository/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type integrationEnv struct {
	db     *testutil.TestDatabase
	clock  *testClock
	ledger *services.LedgerService
}

func setupIntegration(t *testing.T) *integrationEnv {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping container-backed test in short mode")
	}

	db := testutil.SetupTestDatabase(t)
	clock := &testClock{now: time.Now().UTC().Truncate(time.Second)}
	factory := infrastructure.NewUnitOfWorkFactory(db.DB, infrastructure.NewNoopEventPublisher())
	ledger := services.NewLedgerService(factory, services.LedgerConfig{
		MaxRetries:  50,
		IsRetryable: repository.IsSerializationFailure,
		Now:         clock.Now,
	})
	return &integrationEnv{db: db, clock: clock, ledger: ledger}
}

// fund credits amount through the ledger so reconciliation has entries to check
func (e *integrationEnv) fund(t *testing.T, userID, amount int64) {
	t.Helper()
	_, err := e.ledger.ApplyBalanceDelta(context.Background(), services.BalanceDelta{
		UserID:      userID,
		Amount:      amount,
		Category:    entities.CategoryAdReward,
		Description: "seed",
	})
	require.NoError(t, err)
}

func (e *integrationEnv) assertReconciled(t *testing.T, userID int64) *services.ReconciliationReport {
	t.Helper()
	report, err := e.ledger.Reconcile(context.Background(), userID)
	require.NoError(t, err)
	assert.True(t, report.InSync(), "ledger drift: %+v", report)
	return report
}

func TestLedgerIntegration_ConcurrentWagersNeverOverdraw(t *testing.T) {
	t.Parallel()
	env := setupIntegration(t)
	ctx := context.Background()

	testutil.InsertUser(t, env.db.DB, 1, 0, 0)
	env.fund(t, 1, 250)
	game := testutil.InsertGame(t, env.db.DB, "tower", 10, 1000)
	games := services.NewGameService(env.ledger)

	const attempts = 10
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		errs      []error
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := games.PlaceWager(ctx, 1, game.ID, 50)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, err)
				return
			}
			succeeded++
		}()
	}
	wg.Wait()

	assert.Equal(t, 5, succeeded)
	for _, err := range errs {
		assert.ErrorIs(t, err, apperrors.ErrInsufficientFunds)
	}

	report := env.assertReconciled(t, 1)
	assert.Equal(t, int64(0), report.Balance)
	assert.Equal(t, int64(6), report.EntryCount)
}

func TestLedgerIntegration_WagerAboveBalance(t *testing.T) {
	t.Parallel()
	env := setupIntegration(t)

	testutil.InsertUser(t, env.db.DB, 1, 0, 0)
	env.fund(t, 1, 40)
	game := testutil.InsertGame(t, env.db.DB, "tower", 10, 1000)

	_, err := services.NewGameService(env.ledger).PlaceWager(context.Background(), 1, game.ID, 50)

	assert.ErrorIs(t, err, apperrors.ErrInsufficientFunds)
	report := env.assertReconciled(t, 1)
	assert.Equal(t, int64(40), report.Balance)
}

func TestLedgerIntegration_DailyClaimCooldown(t *testing.T) {
	t.Parallel()
	env := setupIntegration(t)
	ctx := context.Background()

	testutil.InsertUser(t, env.db.DB, 1, 0, 0)
	bonuses := services.NewReferralBonusService(env.ledger, 1000, nil)
	rewards := services.NewRewardService(env.ledger, bonuses, services.RewardConfig{AdReward: 10, DailyReward: 20})

	first, err := rewards.ClaimDaily(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, first.Streak)

	env.clock.Advance(2 * time.Hour)
	_, err = rewards.ClaimDaily(ctx, 1)
	appErr, ok := apperrors.As(err)
	require.True(t, ok, "expected classified error, got %v", err)
	assert.Equal(t, apperrors.CodeAlreadyClaimed, appErr.Code)
	assert.Equal(t, 22, appErr.NextEligibleInHours)

	env.clock.Advance(23 * time.Hour)
	second, err := rewards.ClaimDaily(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, second.Streak)

	report := env.assertReconciled(t, 1)
	assert.Equal(t, int64(40), report.Balance)
}

func TestLedgerIntegration_WithdrawalLifecycle(t *testing.T) {
	t.Parallel()
	env := setupIntegration(t)
	ctx := context.Background()

	testutil.InsertUser(t, env.db.DB, 1, 0, 0)
	env.fund(t, 1, 1000)
	withdrawals := services.NewWithdrawalService(env.ledger, 500)
	bank := entities.BankDetails{Bank: "First Bank", AccountNumber: "0123456789"}

	result, err := withdrawals.RequestWithdrawal(ctx, 1, 500, bank)
	require.NoError(t, err)
	assert.Equal(t, int64(500), result.User.Balance)
	assert.Equal(t, int64(500), result.User.PendingBalance)
	env.assertReconciled(t, 1)

	tx, err := withdrawals.ResolveWithdrawal(ctx, result.Transaction.ID, false, "account closed")
	require.NoError(t, err)
	assert.Equal(t, entities.StatusFailed, tx.Status)

	report := env.assertReconciled(t, 1)
	assert.Equal(t, int64(1000), report.Balance)
	assert.Equal(t, int64(0), report.PendingBalance)

	_, err = withdrawals.ResolveWithdrawal(ctx, result.Transaction.ID, true, "")
	assert.ErrorIs(t, err, apperrors.ErrTransactionNotPending)
}

func TestLedgerIntegration_DuplicatePostback(t *testing.T) {
	t.Parallel()
	env := setupIntegration(t)
	ctx := context.Background()

	testutil.InsertUser(t, env.db.DB, 1, 0, 0)
	postbacks := services.NewPostbackService(env.ledger, "s3cret", nil)
	req := services.PostbackRequest{UserID: "1", Reward: "50", OfferID: "survey-9", Secret: "s3cret", TxID: "net-1"}

	first, err := postbacks.HandlePostback(ctx, req)
	require.NoError(t, err)
	assert.False(t, first.Duplicate)

	second, err := postbacks.HandlePostback(ctx, req)
	require.NoError(t, err)
	assert.True(t, second.Duplicate)

	report := env.assertReconciled(t, 1)
	assert.Equal(t, int64(50), report.PendingBalance)
	assert.Equal(t, int64(0), report.Balance)
	assert.Equal(t, int64(1), report.EntryCount)
}

func TestLedgerIntegration_ReferralBonus(t *testing.T) {
	t.Parallel()
	env := setupIntegration(t)
	ctx := context.Background()

	referrals := services.NewReferralService(env.ledger)
	users := services.NewUserService(env.ledger, referrals)
	bonuses := services.NewReferralBonusService(env.ledger, 1000, nil)
	rewards := services.NewRewardService(env.ledger, bonuses, services.RewardConfig{AdReward: 100, DailyReward: 20})

	referrer, err := users.Authenticate(ctx, entities.Principal{ID: 10, Username: "referrer"}, "")
	require.NoError(t, err)
	referee, err := users.Authenticate(ctx, entities.Principal{ID: 11, Username: "referee"}, referrer.User.ReferralCode)
	require.NoError(t, err)
	require.NotNil(t, referee.User.ReferredBy)

	// Inactive edges earn nothing
	_, err = rewards.CompleteAdView(ctx, 11)
	require.NoError(t, err)
	profile, err := users.Profile(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(0), profile.Balance)

	require.NoError(t, referrals.Activate(ctx, 11))
	_, err = rewards.CompleteAdView(ctx, 11)
	require.NoError(t, err)

	profile, err = users.Profile(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(10), profile.Balance)
	assert.Equal(t, int64(10), profile.ReferralEarnings)

	stats, err := referrals.Stats(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.TotalReferrals)
	assert.Equal(t, int64(10), stats.TotalCommission)

	processed, err := bonuses.ProcessPending(ctx, 10, 5)
	require.NoError(t, err)
	assert.Zero(t, processed, "settled bonuses are not paid again")

	env.assertReconciled(t, 10)
	env.assertReconciled(t, 11)
}
