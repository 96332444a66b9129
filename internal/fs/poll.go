package fs

import (
	"os"
	"sync"
	"time"

	"github.com/pkg/errors"
)

// DefaultPollInterval is the stat polling interval used when the caller
// does not pick one.
const DefaultPollInterval = 5007 * time.Millisecond

// PollSubscriber reports changes by periodically stating each subscribed
// path. It works on any filesystem, including network mounts where native
// notifications are unreliable.
type PollSubscriber struct {
	interval time.Duration

	mu     sync.Mutex
	subs   map[*pollSubscription]struct{}
	closed bool
}

// NewPollSubscriber creates a PollSubscriber. Non-positive intervals fall
// back to DefaultPollInterval.
func NewPollSubscriber(interval time.Duration) *PollSubscriber {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &PollSubscriber{
		interval: interval,
		subs:     make(map[*pollSubscription]struct{}),
	}
}

// Subscribe starts polling path. The first observation is the baseline and
// is not reported.
func (p *PollSubscriber) Subscribe(path string, fn ChangeFunc) (Subscription, error) {
	if path == "" {
		return nil, errors.New("path is required")
	}
	if fn == nil {
		return nil, errors.New("callback is required")
	}

	sub := &pollSubscription{
		owner: p,
		path:  path,
		fn:    fn,
		last:  statOrZero(path),
		done:  make(chan struct{}),
	}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, errors.New("poll subscriber is closed")
	}
	p.subs[sub] = struct{}{}
	p.mu.Unlock()

	go sub.run(p.interval)
	return sub, nil
}

// Close stops every subscription created by p.
func (p *PollSubscriber) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	subs := make([]*pollSubscription, 0, len(p.subs))
	for sub := range p.subs {
		subs = append(subs, sub)
	}
	p.mu.Unlock()

	for _, sub := range subs {
		_ = sub.Close()
	}
	return nil
}

func (p *PollSubscriber) forget(sub *pollSubscription) {
	p.mu.Lock()
	delete(p.subs, sub)
	p.mu.Unlock()
}

type pollSubscription struct {
	owner *PollSubscriber
	path  string
	fn    ChangeFunc
	last  FileInfo
	done  chan struct{}
	once  sync.Once
}

func (s *pollSubscription) run(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			current := statOrZero(s.path)
			if !changed(s.last, current) {
				continue
			}
			previous := s.last
			s.last = current
			select {
			case <-s.done:
				return
			default:
			}
			s.fn(Change{Path: s.path, Current: current, Previous: previous})
		case <-s.done:
			return
		}
	}
}

func (s *pollSubscription) Close() error {
	s.once.Do(func() {
		close(s.done)
		s.owner.forget(s)
	})
	return nil
}

func statOrZero(path string) FileInfo {
	info, err := os.Stat(path)
	if err != nil {
		return FileInfo{}
	}
	return infoFromOS(info)
}
