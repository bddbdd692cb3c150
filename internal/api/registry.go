package api

import (
	stdcontext "context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/wrenware/vigil/internal/metrics"
	"github.com/wrenware/vigil/internal/watch"
)

const defaultWatchInterval = time.Second

// Registry runs one poll loop per registered watch and keeps the last
// observed state for snapshots. It implements Controller.
type Registry struct {
	interval time.Duration
	log      *slog.Logger

	ctx    stdcontext.Context
	cancel stdcontext.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	watches map[string]*watchEntry
	closed  bool
}

type watchEntry struct {
	id        string
	target    string
	kind      string
	src       watch.Source
	createdAt time.Time
	cancel    stdcontext.CancelFunc

	// status and since are written by the entry's poll goroutine and read
	// by snapshots, both under the registry mutex.
	status watch.Status
	since  time.Time
}

// NewRegistry returns an empty registry polling each watch every interval.
func NewRegistry(interval time.Duration, logger *slog.Logger) *Registry {
	if interval <= 0 {
		interval = defaultWatchInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := stdcontext.WithCancel(stdcontext.Background())
	return &Registry{
		interval: interval,
		log:      logger,
		ctx:      ctx,
		cancel:   cancel,
		watches:  make(map[string]*watchEntry),
	}
}

// CreateWatch starts watching the requested target. The target must be
// probeable right now: a pid on a platform without pid checks or an
// uninspectable container fails here rather than producing a watch that
// can never answer.
func (r *Registry) CreateWatch(ctx stdcontext.Context, req WatchRequest) (*WatchReport, error) {
	src, kind, err := buildSource(ctx, req)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		_ = src.Close()
		return nil, ErrRegistryClosed
	}
	entry := &watchEntry{
		id:        uuid.NewString(),
		target:    src.Describe(),
		kind:      kind,
		src:       src,
		createdAt: time.Now(),
		status:    watch.StatusUnknown,
	}
	loopCtx, cancel := stdcontext.WithCancel(r.ctx)
	entry.cancel = cancel
	r.watches[entry.id] = entry
	report := entry.report()
	r.wg.Add(1)
	r.mu.Unlock()

	r.log.Info("watch created", "id", entry.id, "target", entry.target)
	go r.runWatch(loopCtx, entry)

	return &report, nil
}

func buildSource(ctx stdcontext.Context, req WatchRequest) (watch.Source, string, error) {
	switch {
	case req.Pid != nil && req.Container != "":
		return nil, "", fmt.Errorf("%w: pid and container are mutually exclusive", ErrInvalidTarget)
	case req.Pid != nil:
		src, err := watch.Pid(*req.Pid)
		if err != nil {
			metrics.IncrementProbeFailure(fmt.Sprintf("pid:%d", *req.Pid))
			return nil, "", err
		}
		return src, "pid", nil
	case req.Container != "":
		src, err := watch.Container(ctx, req.Container)
		if err != nil {
			metrics.IncrementProbeFailure("container:" + req.Container)
			return nil, "", fmt.Errorf("%w: %v", ErrInvalidTarget, err)
		}
		return src, "container", nil
	default:
		return nil, "", fmt.Errorf("%w: a pid or container is required", ErrInvalidTarget)
	}
}

// runWatch drains the poll loop for one entry. The loop ends when the
// target dies or the entry is deleted; the entry itself stays registered
// either way.
func (r *Registry) runWatch(ctx stdcontext.Context, entry *watchEntry) {
	defer r.wg.Done()

	events := watch.Run(ctx, &instrumentedSource{src: entry.src}, r.interval)
	for ev := range events {
		r.mu.Lock()
		entry.status = ev.Status
		entry.since = ev.At
		r.mu.Unlock()

		metrics.SetWatchDead(entry.target, ev.Status == watch.StatusDead)
		r.log.Info("watch transition", "id", entry.id, "target", entry.target, "status", ev.Status)
	}
}

// ListWatches snapshots every registered watch, ordered by target for
// stable output.
func (r *Registry) ListWatches(stdcontext.Context) ([]WatchReport, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil, ErrRegistryClosed
	}
	out := make([]WatchReport, 0, len(r.watches))
	for _, entry := range r.watches {
		out = append(out, entry.report())
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Target != out[j].Target {
			return out[i].Target < out[j].Target
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// GetWatch snapshots one watch by id.
func (r *Registry) GetWatch(_ stdcontext.Context, id string) (*WatchReport, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil, ErrRegistryClosed
	}
	entry, ok := r.watches[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownWatch, id)
	}
	report := entry.report()
	return &report, nil
}

// DeleteWatch stops the watch's poll loop, closes its source and drops its
// metric series.
func (r *Registry) DeleteWatch(_ stdcontext.Context, id string) error {
	r.mu.Lock()
	entry, ok := r.watches[id]
	if ok {
		delete(r.watches, id)
	}
	closed := r.closed
	r.mu.Unlock()

	if closed {
		return ErrRegistryClosed
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownWatch, id)
	}

	entry.cancel()
	_ = entry.src.Close()
	metrics.ResetWatch(entry.target)
	r.log.Info("watch deleted", "id", entry.id, "target", entry.target)
	return nil
}

// Close stops all poll loops and releases every source. The registry
// rejects further operations afterwards.
func (r *Registry) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	entries := make([]*watchEntry, 0, len(r.watches))
	for _, entry := range r.watches {
		entries = append(entries, entry)
	}
	r.watches = make(map[string]*watchEntry)
	r.mu.Unlock()

	r.cancel()
	r.wg.Wait()
	for _, entry := range entries {
		_ = entry.src.Close()
		metrics.ResetWatch(entry.target)
	}
}

func (e *watchEntry) report() WatchReport {
	return WatchReport{
		ID:        e.id,
		Target:    e.target,
		Kind:      e.kind,
		Status:    e.status,
		Since:     e.since,
		CreatedAt: e.createdAt,
	}
}

// instrumentedSource counts probes and their latency around the wrapped
// source.
type instrumentedSource struct {
	src watch.Source
}

func (s *instrumentedSource) Describe() string { return s.src.Describe() }

func (s *instrumentedSource) Dead(ctx stdcontext.Context) bool {
	start := time.Now()
	dead := s.src.Dead(ctx)
	metrics.IncrementProbe(s.src.Describe())
	metrics.ObservePollLatency(s.src.Describe(), time.Since(start))
	return dead
}

func (s *instrumentedSource) Close() error { return s.src.Close() }
