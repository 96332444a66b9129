// Package watcher turns per-file change subscriptions into a single
// pull-based stream of changed paths for a whole directory tree.
//
// A session walks the tree under its root, subscribes to every regular file
// it finds and re-walks the tree before each pull so that files created
// later are picked up. Already tracked files are never subscribed twice.
// Delivery is best-effort: when the consumer falls behind by more than the
// buffer, further changes are dropped until it catches up.
package watcher

import (
	"context"
	"log/slog"
	"regexp"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/vistta-org/fs/internal/fs"
	"github.com/vistta-org/fs/internal/pathutil"
	"golang.org/x/time/rate"
)

const (
	defaultBuffer = 64
	defaultRescan = time.Second
)

// ErrClosed is returned by Next once the session has been closed.
var ErrClosed = errors.New("watch session closed")

// Options controls a watch session.
type Options struct {
	// Exclude is a regular expression matched against every candidate path.
	// Matching paths, and everything below a matching directory, are never
	// subscribed. A pattern that does not compile is ignored with a warning.
	Exclude string
	// ExcludeRegexp takes precedence over Exclude when set.
	ExcludeRegexp *regexp.Regexp
	// Throttle is the minimum spacing between two scans of the tree.
	Throttle time.Duration
	// Rescan is how often a pending pull re-scans the tree while no change
	// arrives. Defaults to Throttle, or one second when Throttle is zero.
	Rescan time.Duration
	// Buffer is the number of changes held for a slow consumer.
	Buffer  int
	Logger  *slog.Logger
	Metrics *Metrics
}

// Watcher starts watch sessions against one storage.
type Watcher struct {
	storage  fs.Storage
	resolver pathutil.Resolver
}

// New creates a Watcher. A nil resolver resolves host paths.
func New(storage fs.Storage, resolver pathutil.Resolver) *Watcher {
	if resolver == nil {
		resolver = pathutil.Native{}
	}
	return &Watcher{storage: storage, resolver: resolver}
}

// Watch starts a session rooted at root and performs the first scan before
// returning. It never fails: a root that does not exist simply yields no
// changes until it appears. The session is closed when ctx is done or when
// Close is called.
func (w *Watcher) Watch(ctx context.Context, root string, opts Options) *Session {
	if ctx == nil {
		ctx = context.Background()
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	id := uuid.NewString()
	logger = logger.With("session", id)

	throttle := opts.Throttle
	if throttle < 0 {
		logger.Warn("watch throttle must not be negative, using 0", "throttle", throttle)
		throttle = 0
	}
	rescan := opts.Rescan
	if rescan <= 0 {
		rescan = throttle
	}
	if rescan <= 0 {
		rescan = defaultRescan
	}
	buffer := opts.Buffer
	if buffer <= 0 {
		buffer = defaultBuffer
	}
	limit := rate.Inf
	if throttle > 0 {
		limit = rate.Every(throttle)
	}

	s := &Session{
		id:       id,
		root:     w.resolver.Resolve(root),
		storage:  w.storage,
		resolver: w.resolver,
		exclude:  compileExclude(opts, logger),
		throttle: throttle,
		rescan:   rescan,
		limiter:  rate.NewLimiter(limit, 1),
		logger:   logger,
		metrics:  opts.Metrics,
		registry: newRegistry(),
		events:   make(chan string, buffer),
		done:     make(chan struct{}),
	}
	s.metrics.sessionOpened()
	logger.Debug("watch session started", "root", s.root, "throttle", throttle)

	_ = s.scan()

	if ctx.Done() != nil {
		go func() {
			select {
			case <-ctx.Done():
				_ = s.Close()
			case <-s.done:
			}
		}()
	}
	return s
}

func compileExclude(opts Options, logger *slog.Logger) *regexp.Regexp {
	if opts.ExcludeRegexp != nil {
		return opts.ExcludeRegexp
	}
	if opts.Exclude == "" {
		return nil
	}
	re, err := regexp.Compile(opts.Exclude)
	if err != nil {
		logger.Warn("watch exclude needs to be a valid regular expression, excluding nothing",
			"exclude", opts.Exclude, "error", err)
		return nil
	}
	return re
}
