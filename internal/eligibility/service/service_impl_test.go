package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/smallbiznis/checkoutrelay/internal/clock"
	"github.com/smallbiznis/checkoutrelay/internal/config"
	"github.com/smallbiznis/checkoutrelay/internal/eligibility/domain"
	"github.com/smallbiznis/checkoutrelay/internal/eligibility/repository"
	"github.com/smallbiznis/checkoutrelay/internal/eligibility/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var t0 = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func newService(store domain.Store) domain.Service {
	return service.New(service.Params{
		Log:    zap.NewNop(),
		Store:  store,
		Policy: config.NewStaticDiscountPolicy(config.DefaultDiscountPolicy()),
	})
}

func TestGrantThenStatusAfterOneHour(t *testing.T) {
	ctx := context.Background()
	clk := clock.NewFakeClock(t0)
	svc := newService(repository.NewMemoryStore())

	require.NoError(t, svc.Grant(ctx, "user_a", clk.Now()))

	clk.Advance(time.Hour)
	status, err := svc.Status(ctx, "user_a", clk.Now())
	require.NoError(t, err)
	assert.Equal(t, domain.Status{Valid: true, Percent: 10, SecondsLeft: 82800}, status)
}

func TestStatusExpiresAtExactBoundary(t *testing.T) {
	ctx := context.Background()
	svc := newService(repository.NewMemoryStore())
	require.NoError(t, svc.Grant(ctx, "user_a", t0))

	status, err := svc.Status(ctx, "user_a", t0.Add(24*time.Hour-time.Second))
	require.NoError(t, err)
	assert.True(t, status.Valid)
	assert.EqualValues(t, 1, status.SecondsLeft)

	status, err = svc.Status(ctx, "user_a", t0.Add(24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, domain.Status{}, status)
}

func TestStatusForUnknownUser(t *testing.T) {
	svc := newService(repository.NewMemoryStore())
	status, err := svc.Status(context.Background(), "user_new", t0)
	require.NoError(t, err)
	assert.Equal(t, domain.Status{}, status)
}

func TestConsumeMarksUsedAndIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryStore()
	svc := newService(store)
	require.NoError(t, svc.Grant(ctx, "user_c", t0))

	result, err := svc.Consume(ctx, "user_c", t0.Add(10*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, domain.ConsumeResult{Consumed: true}, result)

	after, err := store.Get(ctx, "user_c")
	require.NoError(t, err)

	result, err = svc.Consume(ctx, "user_c", t0.Add(11*time.Minute))
	require.NoError(t, err)
	assert.False(t, result.Consumed)

	again, err := store.Get(ctx, "user_c")
	require.NoError(t, err)
	assert.Equal(t, after, again)
	assert.True(t, again.Used)
	assert.False(t, again.Eligible)

	status, err := svc.Status(ctx, "user_c", t0.Add(12*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, domain.Status{}, status)
}

func TestConsumeAfterExpiryStillConsumes(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryStore()
	svc := newService(store)
	require.NoError(t, svc.Grant(ctx, "user_late", t0))

	result, err := svc.Consume(ctx, "user_late", t0.Add(25*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, domain.ConsumeResult{Consumed: true, Late: true}, result)

	record, err := store.Get(ctx, "user_late")
	require.NoError(t, err)
	assert.True(t, record.Used)
}

func TestConsumeWithoutRecordIsNoop(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryStore()
	svc := newService(store)

	result, err := svc.Consume(ctx, "user_none", t0)
	require.NoError(t, err)
	assert.False(t, result.Consumed)

	record, err := store.Get(ctx, "user_none")
	require.NoError(t, err)
	assert.Equal(t, domain.Eligibility{}, record)
}

func TestGrantDoesNotResetConsumedRecord(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryStore()
	svc := newService(store)
	require.NoError(t, svc.Grant(ctx, "user_r", t0))
	_, err := svc.Consume(ctx, "user_r", t0.Add(time.Minute))
	require.NoError(t, err)

	require.NoError(t, svc.Grant(ctx, "user_r", t0.Add(time.Hour)))

	record, err := store.Get(ctx, "user_r")
	require.NoError(t, err)
	assert.True(t, record.Used)
	assert.False(t, record.Eligible)
}

func TestGrantUsesCurrentPolicy(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryStore()
	svc := service.New(service.Params{
		Log:    zap.NewNop(),
		Store:  store,
		Policy: config.NewStaticDiscountPolicy(config.DiscountPolicy{Percent: 15, Window: 2 * time.Hour}),
	})

	require.NoError(t, svc.Grant(ctx, "user_p", t0))
	record, err := store.Get(ctx, "user_p")
	require.NoError(t, err)
	assert.Equal(t, domain.Eligibility{Eligible: true, ExpiresAt: t0.Add(2 * time.Hour).Unix(), Percent: 15}, record)
}

func TestRejectsEmptyUser(t *testing.T) {
	svc := newService(repository.NewMemoryStore())
	assert.ErrorIs(t, svc.Grant(context.Background(), " ", t0), domain.ErrInvalidUser)
	_, err := svc.Status(context.Background(), "", t0)
	assert.ErrorIs(t, err, domain.ErrInvalidUser)
	_, err = svc.Consume(context.Background(), "", t0)
	assert.ErrorIs(t, err, domain.ErrInvalidUser)
}

type failingStore struct {
	getErr error
	putErr error
}

func (f failingStore) Get(ctx context.Context, userID string) (domain.Eligibility, error) {
	if f.getErr != nil {
		return domain.Eligibility{}, f.getErr
	}
	return domain.Eligibility{Eligible: true, ExpiresAt: t0.Add(time.Hour).Unix(), Percent: 10}, nil
}

func (f failingStore) Put(ctx context.Context, userID string, record domain.Eligibility) error {
	return f.putErr
}

func TestStoreFailuresAreWrapped(t *testing.T) {
	upstream := errors.New("upstream 503")

	svc := newService(failingStore{getErr: upstream})
	_, err := svc.Status(context.Background(), "user_x", t0)
	assert.ErrorIs(t, err, domain.ErrProfileReadFailed)
	assert.ErrorIs(t, err, upstream)

	svc = newService(failingStore{putErr: upstream})
	err = svc.Grant(context.Background(), "user_x", t0)
	assert.ErrorIs(t, err, domain.ErrProfileUpdateFailed)

	_, err = svc.Consume(context.Background(), "user_x", t0)
	assert.ErrorIs(t, err, domain.ErrProfileUpdateFailed)
}

// countingStore counts writes so concurrent consumes can be checked.
type countingStore struct {
	*repository.MemoryStore
	mu     sync.Mutex
	writes int
}

func (s *countingStore) Put(ctx context.Context, userID string, record domain.Eligibility) error {
	s.mu.Lock()
	s.writes++
	s.mu.Unlock()
	return s.MemoryStore.Put(ctx, userID, record)
}

func TestConcurrentConsumeWritesOnce(t *testing.T) {
	ctx := context.Background()
	store := &countingStore{MemoryStore: repository.NewMemoryStore()}
	require.NoError(t, store.MemoryStore.Put(ctx, "user_race", domain.Eligibility{Eligible: true, ExpiresAt: t0.Add(time.Hour).Unix(), Percent: 10}))
	svc := newService(store)

	var wg sync.WaitGroup
	var mu sync.Mutex
	consumed := 0
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			result, err := svc.Consume(ctx, "user_race", t0)
			assert.NoError(t, err)
			if result.Consumed {
				mu.Lock()
				consumed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, consumed)
	assert.Equal(t, 1, store.writes)
}

func TestConsumeHonoursCancelledContextWhileLocked(t *testing.T) {
	blocker := make(chan struct{})
	store := &blockingStore{MemoryStore: repository.NewMemoryStore(), release: blocker, entered: make(chan struct{})}
	require.NoError(t, store.MemoryStore.Put(context.Background(), "user_b", domain.Eligibility{Eligible: true, ExpiresAt: t0.Add(time.Hour).Unix()}))
	svc := newService(store)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = svc.Consume(context.Background(), "user_b", t0)
	}()
	<-store.entered

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := svc.Consume(ctx, "user_b", t0)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	close(blocker)
	<-done
}

type blockingStore struct {
	*repository.MemoryStore
	release chan struct{}
	entered chan struct{}
	once    sync.Once
}

func (s *blockingStore) Get(ctx context.Context, userID string) (domain.Eligibility, error) {
	s.once.Do(func() {
		close(s.entered)
		<-s.release
	})
	return s.MemoryStore.Get(ctx, userID)
}
