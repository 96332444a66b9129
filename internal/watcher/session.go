package watcher

import (
	"context"
	"iter"
	"log/slog"
	"regexp"
	"sync"
	"time"

	"github.com/vistta-org/fs/internal/fs"
	"github.com/vistta-org/fs/internal/pathutil"
	"golang.org/x/time/rate"
)

// Session is one live watch over a root path. All methods are safe for
// concurrent use.
type Session struct {
	id       string
	root     string
	storage  fs.Storage
	resolver pathutil.Resolver
	exclude  *regexp.Regexp
	throttle time.Duration
	rescan   time.Duration
	limiter  *rate.Limiter
	logger   *slog.Logger
	metrics  *Metrics

	mu       sync.Mutex
	registry *registry
	closed   bool

	// stale holds tracked paths reported as removed. Change callbacks write
	// it without taking mu.
	staleMu sync.Mutex
	stale   map[string]struct{}

	events    chan string
	done      chan struct{}
	closeOnce sync.Once
}

// ID returns the unique identifier of the session.
func (s *Session) ID() string {
	return s.id
}

// Root returns the resolved root path.
func (s *Session) Root() string {
	return s.root
}

// Tracked returns the sorted paths currently subscribed.
func (s *Session) Tracked() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.registry.paths()
}

// Done is closed when the session is closed.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Next waits a full throttle interval from the moment it is called, re-scans
// the tree and returns the next changed path. Changes that arrive during the
// wait are buffered and returned once it ends. It blocks until a change
// arrives, ctx is done or the session is closed. While it waits for a change
// it keeps re-scanning every rescan period, never more often than once per
// throttle interval, so that new files become watchable.
func (s *Session) Next(ctx context.Context) (string, error) {
	if err := s.sleep(ctx, s.throttle); err != nil {
		return "", err
	}
	// The scan below opens a fresh throttle window for the re-scans.
	s.limiter.Allow()

	for {
		if err := s.scan(); err != nil {
			return "", err
		}

		timer := time.NewTimer(s.rescan)
		select {
		case path := <-s.events:
			timer.Stop()
			s.metrics.delivered()
			return path, nil
		case <-timer.C:
			if err := s.pace(ctx); err != nil {
				return "", err
			}
		case <-s.done:
			timer.Stop()
			return "", ErrClosed
		case <-ctx.Done():
			timer.Stop()
			return "", ctx.Err()
		}
	}
}

// Paths returns the session as a lazy sequence. Each step of the range loop
// is one call to Next; the sequence ends when Next fails. Leaving the loop
// early does not close the session.
func (s *Session) Paths(ctx context.Context) iter.Seq[string] {
	return func(yield func(string) bool) {
		for {
			path, err := s.Next(ctx)
			if err != nil {
				return
			}
			if !yield(path) {
				return
			}
		}
	}
}

// Close unsubscribes every tracked path and unblocks pending pulls. It is
// safe to call more than once.
func (s *Session) Close() error {
	var err error
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		close(s.done)
		count := s.registry.len()
		err = s.registry.closeAll()
		s.mu.Unlock()

		s.metrics.untrack(count)
		s.metrics.sessionClosed()
		s.logger.Debug("watch session closed", "root", s.root, "released", count)
	})
	return err
}

// sleep blocks for d, or until the session is closed or ctx is done.
func (s *Session) sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-s.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// pace delays a re-scan until the limiter grants it.
func (s *Session) pace(ctx context.Context) error {
	r := s.limiter.Reserve()
	delay := r.Delay()
	if delay <= 0 {
		return nil
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-s.done:
		r.Cancel()
		return ErrClosed
	case <-ctx.Done():
		r.Cancel()
		return ctx.Err()
	}
}

// markStale queues path to be subscribed again on the next scan. A removed
// file can come back under the same name while its old subscription no
// longer observes anything.
func (s *Session) markStale(path string) {
	s.staleMu.Lock()
	defer s.staleMu.Unlock()
	if s.stale == nil {
		s.stale = make(map[string]struct{})
	}
	s.stale[path] = struct{}{}
}

func (s *Session) takeStale() map[string]struct{} {
	s.staleMu.Lock()
	defer s.staleMu.Unlock()
	stale := s.stale
	s.stale = nil
	return stale
}

func (s *Session) deliver(path string) {
	select {
	case <-s.done:
		return
	default:
	}

	select {
	case s.events <- path:
	default:
		s.metrics.dropped()
		s.logger.Warn("event buffer full, dropping change", "path", path)
	}
}
