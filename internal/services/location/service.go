package location

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/j-veylop/attendance-tui/internal/logger"
	"github.com/j-veylop/attendance-tui/internal/models"
)

var (
	// ErrUnavailable means no fix could be obtained.
	ErrUnavailable = errors.New("location unavailable")
	// ErrTimeout means the last fix attempt ran out of time.
	ErrTimeout = errors.New("location timeout")
	// ErrClosed is returned after Close.
	ErrClosed = errors.New("location service closed")
)

// Progress labels reported while acquiring.
const (
	LabelCached  = "Processing location..."
	LabelFast    = "Getting your location..."
	LabelPrecise = "Pinpointing location..."
)

// AcquireError is returned once every tier has failed. It always matches
// ErrUnavailable, and also ErrTimeout when the final attempt timed out.
type AcquireError struct {
	Err     error
	Timeout bool
}

func (e *AcquireError) Error() string {
	if e.Timeout {
		return fmt.Sprintf("%v: %v", ErrTimeout, e.Err)
	}
	return fmt.Sprintf("%v: %v", ErrUnavailable, e.Err)
}

func (e *AcquireError) Unwrap() error { return e.Err }

func (e *AcquireError) Is(target error) bool {
	return target == ErrUnavailable || (e.Timeout && target == ErrTimeout)
}

// Config tunes the acquisition tiers.
type Config struct {
	CacheTTL       time.Duration
	CacheHitDelay  time.Duration
	FastTimeout    time.Duration
	FastMaxAge     time.Duration
	PreciseTimeout time.Duration
	LoginTimeout   time.Duration
	WarmupTimeout  time.Duration
	WarmupMaxAge   time.Duration
	WarmupDistance float64
}

// DefaultConfig returns the production tuning.
func DefaultConfig() Config {
	return Config{
		CacheTTL:       2 * time.Minute,
		CacheHitDelay:  300 * time.Millisecond,
		FastTimeout:    2 * time.Second,
		FastMaxAge:     30 * time.Second,
		PreciseTimeout: 10 * time.Second,
		LoginTimeout:   5 * time.Second,
		WarmupTimeout:  10 * time.Second,
		WarmupMaxAge:   60 * time.Second,
		WarmupDistance: 50,
	}
}

type cacheEntry struct {
	storedAt time.Time
	sample   models.LocationSample
}

// Service acquires fixes with a cache and tiered fallback.
type Service struct {
	provider  Provider
	now       func() time.Time
	cache     *cacheEntry
	stopWatch func()
	cfg       Config
	// mu guards cache. watchMu guards stopWatch and closed; watch callbacks
	// take only mu, so stopping a watch under watchMu cannot deadlock.
	mu      sync.Mutex
	watchMu sync.Mutex
	closed  bool
}

// NewService creates a location service over provider.
func NewService(provider Provider, cfg Config) *Service {
	return &Service{
		provider: provider,
		cfg:      cfg,
		now:      time.Now,
	}
}

// Acquire returns a position for a submission. A cached fix younger than the
// cache TTL is returned without touching the provider. Otherwise a fast
// low-accuracy fix is tried, then a fresh high-accuracy one. report, when
// non-nil, receives a progress label before each step.
func (s *Service) Acquire(ctx context.Context, report func(string)) (models.LocationSample, error) {
	if report == nil {
		report = func(string) {}
	}

	if sample, ok := s.cached(); ok {
		report(LabelCached)
		if err := sleepCtx(ctx, s.cfg.CacheHitDelay); err != nil {
			return models.LocationSample{}, err
		}
		logger.Debug("using cached location", "age", s.now().Sub(sample.Timestamp))
		return sample, nil
	}

	report(LabelFast)
	sample, err := s.fix(ctx, FixOptions{MaximumAge: s.cfg.FastMaxAge}, s.cfg.FastTimeout)
	if err == nil {
		return sample, nil
	}
	logger.Info("fast location fix failed, trying precise", "error", err)
	if ctx.Err() != nil {
		return models.LocationSample{}, ctx.Err()
	}

	report(LabelPrecise)
	sample, err = s.fix(ctx, FixOptions{HighAccuracy: true, MaximumAge: 0}, s.cfg.PreciseTimeout)
	if err == nil {
		return sample, nil
	}
	if ctx.Err() != nil {
		return models.LocationSample{}, ctx.Err()
	}
	logger.Warn("precise location fix failed", "error", err)

	return models.LocationSample{}, &AcquireError{Err: err, Timeout: isTimeout(err)}
}

// Optional returns a best-effort fresh fix, or nil when none arrives within
// the login timeout.
func (s *Service) Optional(ctx context.Context) *models.LocationSample {
	sample, err := s.fix(ctx, FixOptions{HighAccuracy: true, MaximumAge: 0}, s.cfg.LoginTimeout)
	if err != nil {
		logger.Info("optional location unavailable", "error", err)
		return nil
	}
	return &sample
}

// fix runs one provider request bounded by timeout and caches the result.
func (s *Service) fix(ctx context.Context, opts FixOptions, timeout time.Duration) (models.LocationSample, error) {
	if s.isClosed() {
		return models.LocationSample{}, ErrClosed
	}

	opts.Timeout = timeout
	fixCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	sample, err := s.provider.CurrentPosition(fixCtx, opts)
	if err != nil {
		if errors.Is(fixCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			return models.LocationSample{}, fmt.Errorf("no fix within %v: %w", timeout, &PositionError{Code: Timeout})
		}
		return models.LocationSample{}, err
	}

	return s.store(sample), nil
}

// store caches sample as of now and returns it with that timestamp.
func (s *Service) store(sample models.LocationSample) models.LocationSample {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	sample.Timestamp = now
	s.cache = &cacheEntry{sample: sample, storedAt: now}
	return sample
}

func (s *Service) cached() (models.LocationSample, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cache == nil || s.now().Sub(s.cache.storedAt) >= s.cfg.CacheTTL {
		return models.LocationSample{}, false
	}
	return s.cache.sample, true
}

// StartWarmup subscribes a low-accuracy watch that only refreshes the cache.
// Calling it again replaces the running watch.
func (s *Service) StartWarmup() {
	s.watchMu.Lock()
	defer s.watchMu.Unlock()
	if s.closed {
		return
	}
	if s.stopWatch != nil {
		s.stopWatch()
		s.stopWatch = nil
	}

	stop, err := s.provider.Watch(FixOptions{
		Timeout:        s.cfg.WarmupTimeout,
		MaximumAge:     s.cfg.WarmupMaxAge,
		DistanceFilter: s.cfg.WarmupDistance,
	}, func(sample models.LocationSample) {
		s.store(sample)
		logger.Debug("warmup fix", "lat", sample.Latitude, "lng", sample.Longitude)
	}, func(err error) {
		logger.Warn("warmup watch error", "error", err)
	})
	if err != nil {
		logger.Warn("failed to start location warmup", "error", err)
		return
	}
	s.stopWatch = stop
}

// StopWarmup releases the warm-up watch. It is safe to call repeatedly.
func (s *Service) StopWarmup() {
	s.watchMu.Lock()
	defer s.watchMu.Unlock()
	if s.stopWatch != nil {
		s.stopWatch()
		s.stopWatch = nil
	}
}

func (s *Service) warmupActive() bool {
	s.watchMu.Lock()
	defer s.watchMu.Unlock()
	return s.stopWatch != nil
}

// Close stops the warm-up watch and rejects further requests.
func (s *Service) Close() error {
	s.StopWarmup()
	s.watchMu.Lock()
	s.closed = true
	s.watchMu.Unlock()
	return nil
}

func (s *Service) isClosed() bool {
	s.watchMu.Lock()
	defer s.watchMu.Unlock()
	return s.closed
}

func isTimeout(err error) bool {
	return CodeOf(err) == Timeout || errors.Is(err, context.DeadlineExceeded)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
