// Package autosave keeps a flowchart's remote copy in step with the local
// node store. Mutations mark the synchronizer dirty; saves happen on a
// periodic tick, at the end of the turn in which a save was scheduled, on an
// explicit request, and on flush before the editor closes.
package autosave

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/alexanderramin/flowdesk/internal/ctxlog"
	"github.com/alexanderramin/flowdesk/internal/domain"
)

// DefaultInterval is the periodic save interval.
const DefaultInterval = 30 * time.Second

// ErrSaveInFlight is returned when a save is requested while another is running.
var ErrSaveInFlight = errors.New("save already in flight")

// Saver writes a complete node list to the remote store.
type Saver interface {
	Save(ctx context.Context, nodes []domain.Node) error
}

// SaverFunc adapts a function to the Saver interface.
type SaverFunc func(ctx context.Context, nodes []domain.Node) error

func (f SaverFunc) Save(ctx context.Context, nodes []domain.Node) error {
	return f(ctx, nodes)
}

type State int

const (
	Clean State = iota
	Dirty
	Saving
)

func (s State) String() string {
	switch s {
	case Clean:
		return "clean"
	case Dirty:
		return "dirty"
	case Saving:
		return "saving"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Synchronizer tracks unsaved changes and performs saves. Every mutation
// bumps a generation counter; a save records the generation it captured, so
// a mutation that lands while a save is in flight leaves the state dirty.
type Synchronizer struct {
	snapshot func() []domain.Node
	saver    Saver
	logger   *slog.Logger
	interval time.Duration

	mu         sync.Mutex
	generation uint64
	savedGen   uint64
	pending    bool
	inflight   chan struct{}
}

type Option func(*Synchronizer)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Synchronizer) {
		s.logger = logger
	}
}

func WithInterval(d time.Duration) Option {
	return func(s *Synchronizer) {
		if d > 0 {
			s.interval = d
		}
	}
}

// New creates a clean synchronizer that saves the node list returned by
// snapshot through saver.
func New(snapshot func() []domain.Node, saver Saver, opts ...Option) *Synchronizer {
	s := &Synchronizer{
		snapshot: snapshot,
		saver:    saver,
		interval: DefaultInterval,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = ctxlog.OrDiscard(s.logger)
	return s
}

// MarkDirty records that the node list changed.
func (s *Synchronizer) MarkDirty() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generation++
}

// Schedule requests a save at the end of the current turn. Repeated requests
// within one turn collapse into a single save.
func (s *Synchronizer) Schedule() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = true
}

// Pending reports whether a scheduled save is waiting for the end of the turn.
func (s *Synchronizer) Pending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending
}

// Dirty reports whether there are changes no completed save has captured.
func (s *Synchronizer) Dirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generation != s.savedGen
}

func (s *Synchronizer) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case s.inflight != nil:
		return Saving
	case s.generation != s.savedGen:
		return Dirty
	default:
		return Clean
	}
}

// EndTurn drains the scheduled save, if any. When another save is in flight
// the request stays pending for the next turn. Failures are only logged.
func (s *Synchronizer) EndTurn(ctx context.Context) {
	s.mu.Lock()
	if !s.pending {
		s.mu.Unlock()
		return
	}
	s.pending = false
	s.mu.Unlock()

	err := s.save(ctx)
	switch {
	case errors.Is(err, ErrSaveInFlight):
		s.Schedule()
	case err != nil:
		s.logger.WarnContext(ctx, "scheduled save failed", "error", err)
	}
}

// Tick saves when dirty. Failures are only logged.
func (s *Synchronizer) Tick(ctx context.Context) {
	if !s.Dirty() {
		return
	}
	if err := s.save(ctx); err != nil && !errors.Is(err, ErrSaveInFlight) {
		s.logger.WarnContext(ctx, "periodic save failed", "error", err)
	}
}

// SaveNow performs an explicit save and returns its error so the caller can
// report it.
func (s *Synchronizer) SaveNow(ctx context.Context) error {
	err := s.save(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "save failed", "error", err)
	}
	return err
}

// Flush waits for any in-flight save, then saves if changes remain. It is
// the unload path.
func (s *Synchronizer) Flush(ctx context.Context) error {
	for {
		s.mu.Lock()
		wait := s.inflight
		dirty := s.generation != s.savedGen
		s.mu.Unlock()

		if wait != nil {
			select {
			case <-wait:
				continue
			case <-ctx.Done():
				return fmt.Errorf("flushing flowchart: %w", ctx.Err())
			}
		}
		if !dirty {
			return nil
		}
		err := s.save(ctx)
		if errors.Is(err, ErrSaveInFlight) {
			continue
		}
		return err
	}
}

// Run calls Tick on every interval until ctx is done.
func (s *Synchronizer) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Tick(ctx)
		}
	}
}

func (s *Synchronizer) save(ctx context.Context) error {
	s.mu.Lock()
	if s.inflight != nil {
		s.mu.Unlock()
		return ErrSaveInFlight
	}
	done := make(chan struct{})
	s.inflight = done
	gen := s.generation
	s.mu.Unlock()

	nodes := s.snapshot()
	start := time.Now()
	err := s.saver.Save(ctx, nodes)

	s.mu.Lock()
	s.inflight = nil
	if err == nil && gen > s.savedGen {
		s.savedGen = gen
	}
	s.mu.Unlock()
	close(done)

	if err != nil {
		return fmt.Errorf("saving flowchart: %w", err)
	}
	s.logger.DebugContext(ctx, "flowchart saved", "nodes", len(nodes), "duration_ms", time.Since(start).Milliseconds())
	return nil
}
