package repository

import (
	"context"
	"sync"
	"testing"

	"earnify/domain/entities"
	"earnify/events"
	"earnify/repository/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingPublisher buffers events and records what was flushed or discarded
type recordingPublisher struct {
	mu        sync.Mutex
	pending   []events.Event
	flushed   []events.Event
	discarded int
}

func (p *recordingPublisher) Publish(event events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pending = append(p.pending, event)
	return nil
}

func (p *recordingPublisher) Flush(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.flushed = append(p.flushed, p.pending...)
	p.pending = nil
	return nil
}

func (p *recordingPublisher) Discard() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.discarded += len(p.pending)
	p.pending = nil
}

func TestUnitOfWork_CommitFlushesEvents(t *testing.T) {
	t.Parallel()
	testDB := testutil.SetupTestDatabase(t)
	testutil.InsertUser(t, testDB.DB, 10001, 0, 0)

	ctx := context.Background()
	publisher := &recordingPublisher{}
	uow := NewUnitOfWorkFactory(testDB.DB).CreateWithPublisher(publisher)

	require.NoError(t, uow.Begin(ctx))
	_, err := uow.UserRepository().AdjustBalances(ctx, 10001, entities.BalanceAdjustment{Balance: 5, TotalEarned: 5})
	require.NoError(t, err)
	require.NoError(t, uow.EventBus().Publish(events.BalanceChangeEvent{UserID: 10001, NewValue: 5, ChangeAmount: 5}))
	require.NoError(t, uow.Commit())
	require.NoError(t, uow.Rollback(), "rollback after commit is a no-op")

	assert.Len(t, publisher.flushed, 1)
	assert.Zero(t, publisher.discarded)

	user, err := NewUserRepository(testDB.DB).GetByID(ctx, 10001)
	require.NoError(t, err)
	assert.Equal(t, int64(5), user.Balance)
}

func TestUnitOfWork_RollbackDiscardsEvents(t *testing.T) {
	t.Parallel()
	testDB := testutil.SetupTestDatabase(t)
	testutil.InsertUser(t, testDB.DB, 10002, 100, 0)

	ctx := context.Background()
	publisher := &recordingPublisher{}
	uow := NewUnitOfWorkFactory(testDB.DB).CreateWithPublisher(publisher)

	require.NoError(t, uow.Begin(ctx))
	_, err := uow.UserRepository().AdjustBalances(ctx, 10002, entities.BalanceAdjustment{Balance: -60})
	require.NoError(t, err)
	require.NoError(t, uow.EventBus().Publish(events.BalanceChangeEvent{UserID: 10002, OldValue: 100, NewValue: 40, ChangeAmount: -60}))
	require.NoError(t, uow.Rollback())

	assert.Empty(t, publisher.flushed)
	assert.Equal(t, 1, publisher.discarded)

	user, err := NewUserRepository(testDB.DB).GetByID(ctx, 10002)
	require.NoError(t, err)
	assert.Equal(t, int64(100), user.Balance)
}

func TestUnitOfWork_RepositoriesRequireBegin(t *testing.T) {
	t.Parallel()

	uow := NewUnitOfWorkFactory(nil).CreateWithPublisher(&recordingPublisher{})
	assert.PanicsWithValue(t, "unit of work not started - call Begin() first", func() {
		uow.UserRepository()
	})
	assert.Error(t, uow.Commit())
	assert.NoError(t, uow.Rollback())
}

func TestIsSerializationFailure(t *testing.T) {
	t.Parallel()
	testDB := testutil.SetupTestDatabase(t)
	testutil.InsertUser(t, testDB.DB, 10003, 100, 0)

	ctx := context.Background()
	factory := NewUnitOfWorkFactory(testDB.DB)
	first := factory.CreateWithPublisher(&recordingPublisher{})
	second := factory.CreateWithPublisher(&recordingPublisher{})

	require.NoError(t, first.Begin(ctx))
	require.NoError(t, second.Begin(ctx))

	_, err := first.UserRepository().GetByID(ctx, 10003)
	require.NoError(t, err)
	_, err = second.UserRepository().GetByID(ctx, 10003)
	require.NoError(t, err)

	_, err = first.UserRepository().AdjustBalances(ctx, 10003, entities.BalanceAdjustment{Balance: -10})
	require.NoError(t, err)
	require.NoError(t, first.Commit())

	_, err = second.UserRepository().AdjustBalances(ctx, 10003, entities.BalanceAdjustment{Balance: -10})
	require.Error(t, err)
	assert.True(t, IsSerializationFailure(err))
	require.NoError(t, second.Rollback())
}
