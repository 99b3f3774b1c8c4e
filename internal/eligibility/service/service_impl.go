package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/smallbiznis/checkoutrelay/internal/config"
	"github.com/smallbiznis/checkoutrelay/internal/eligibility/domain"
	obsmetrics "github.com/smallbiznis/checkoutrelay/internal/observability/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Log        *zap.Logger
	Store      domain.Store
	Locker     domain.Locker               `optional:"true"`
	Policy     *config.DiscountPolicyHolder `optional:"true"`
	ObsMetrics *obsmetrics.Metrics         `optional:"true"`
}

type Service struct {
	log        *zap.Logger
	store      domain.Store
	locker     domain.Locker
	policy     *config.DiscountPolicyHolder
	obsMetrics *obsmetrics.Metrics
}

func New(p Params) domain.Service {
	locker := p.Locker
	if locker == nil {
		locker = newLocalLocker()
	}
	return &Service{
		log:        p.Log.Named("eligibility.service"),
		store:      p.Store,
		locker:     locker,
		policy:     p.Policy,
		obsMetrics: p.ObsMetrics,
	}
}

// Grant opens a fresh discount window for userID. A record that has already
// been consumed is left untouched so a replayed sign-up cannot re-issue it.
func (s *Service) Grant(ctx context.Context, userID string, now time.Time) error {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return domain.ErrInvalidUser
	}

	unlock, err := s.lock(ctx, userID)
	if err != nil {
		return err
	}
	defer unlock()

	current, err := s.store.Get(ctx, userID)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrProfileReadFailed, err)
	}
	if current.Used {
		s.log.Warn("grant skipped, discount already used", zap.String("user_id", userID))
		return nil
	}

	policy := s.policy.Get()
	record := domain.Eligibility{
		Eligible:  true,
		Used:      false,
		ExpiresAt: now.Add(policy.Window).Unix(),
		Percent:   policy.Percent,
	}
	if err := s.store.Put(ctx, userID, record); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrProfileUpdateFailed, err)
	}

	s.log.Info("first order discount granted",
		zap.String("user_id", userID),
		zap.Int("percent", record.Percent),
		zap.Int64("expires_at", record.ExpiresAt),
	)
	return nil
}

func (s *Service) Status(ctx context.Context, userID string, now time.Time) (domain.Status, error) {
	record, err := s.Eligibility(ctx, userID)
	if err != nil {
		return domain.Status{}, err
	}
	return record.StatusAt(now), nil
}

// Eligibility returns the stored record. It is always read through to the
// profile store.
func (s *Service) Eligibility(ctx context.Context, userID string) (domain.Eligibility, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return domain.Eligibility{}, domain.ErrInvalidUser
	}
	record, err := s.store.Get(ctx, userID)
	if err != nil {
		return domain.Eligibility{}, fmt.Errorf("%w: %w", domain.ErrProfileReadFailed, err)
	}
	return record, nil
}

// Consume marks the discount used once a capture has been verified. The
// record is re-read under the user lock so two captures racing for the same
// discount cannot both observe it unused.
func (s *Service) Consume(ctx context.Context, userID string, now time.Time) (domain.ConsumeResult, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return domain.ConsumeResult{}, domain.ErrInvalidUser
	}

	unlock, err := s.lock(ctx, userID)
	if err != nil {
		return domain.ConsumeResult{}, err
	}
	defer unlock()

	current, err := s.store.Get(ctx, userID)
	if err != nil {
		return domain.ConsumeResult{}, fmt.Errorf("%w: %w", domain.ErrProfileReadFailed, err)
	}
	if !current.Consumable() {
		s.log.Debug("consume skipped",
			zap.String("user_id", userID),
			zap.Bool("eligible", current.Eligible),
			zap.Bool("used", current.Used),
		)
		return domain.ConsumeResult{}, nil
	}

	updated := current
	updated.Eligible = false
	updated.Used = true
	if err := s.store.Put(ctx, userID, updated); err != nil {
		return domain.ConsumeResult{}, fmt.Errorf("%w: %w", domain.ErrProfileUpdateFailed, err)
	}

	result := domain.ConsumeResult{Consumed: true, Late: current.Expired(now)}
	if result.Late {
		s.log.Warn("first order discount consumed after expiry",
			zap.String("user_id", userID),
			zap.Bool("late_capture", true),
			zap.Int64("expires_at", current.ExpiresAt),
		)
	} else {
		s.log.Info("first order discount consumed", zap.String("user_id", userID))
	}
	s.obsMetrics.RecordDiscountConsumed(ctx, result.Late)
	return result, nil
}

func (s *Service) lock(ctx context.Context, userID string) (func(), error) {
	unlock, err := s.locker.Lock(ctx, "eligibility:"+userID)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", domain.ErrLockUnavailable, err)
	}
	return unlock, nil
}

// localLocker serializes per key inside one process.
type localLocker struct {
	mu    sync.Mutex
	locks map[string]*keyLock
}

type keyLock struct {
	ch   chan struct{}
	refs int
}

func newLocalLocker() *localLocker {
	return &localLocker{locks: map[string]*keyLock{}}
}

func (l *localLocker) Lock(ctx context.Context, key string) (func(), error) {
	l.mu.Lock()
	kl, ok := l.locks[key]
	if !ok {
		kl = &keyLock{ch: make(chan struct{}, 1)}
		l.locks[key] = kl
	}
	kl.refs++
	l.mu.Unlock()

	select {
	case kl.ch <- struct{}{}:
	case <-ctx.Done():
		l.release(key, kl, false)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() { l.release(key, kl, true) })
	}, nil
}

func (l *localLocker) release(key string, kl *keyLock, held bool) {
	if held {
		<-kl.ch
	}
	l.mu.Lock()
	kl.refs--
	if kl.refs == 0 {
		delete(l.locks, key)
	}
	l.mu.Unlock()
}
