package generate

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/yosihaf/wikibook/internal/pdfapi"
	"github.com/yosihaf/wikibook/internal/requests"
)

// DefaultPollInterval is how often an active task is checked.
const DefaultPollInterval = 2 * time.Second

// DefaultMaxTransientFailures bounds consecutive transient status-check
// failures before a task is abandoned. At the default interval this is
// roughly five minutes of continuous failure.
const DefaultMaxTransientFailures = 150

// PollerOptions tune poller behavior. Zero values take defaults.
type PollerOptions struct {
	Interval time.Duration
	// MaxTransientFailures of zero with Unbounded false takes the
	// default bound; set Unbounded to poll forever.
	MaxTransientFailures int
	Unbounded            bool
	// FallbackTitle names downloads when a record carries no usable title.
	FallbackTitle string
}

// Poller runs one status-polling goroutine per active task. Each task
// has its own cancellable context so a cancelled task drops in-flight
// results instead of applying them. The client is resolved per record
// owner so a task submitted against an account's service override keeps
// polling that service.
type Poller struct {
	clients  ClientResolver
	records  *requests.Manager
	logger   *slog.Logger
	interval time.Duration
	maxFails int
	fallback string

	mu      sync.Mutex
	cancels map[string]context.CancelFunc
	wg      sync.WaitGroup
}

// NewPoller creates a poller.
func NewPoller(clients ClientResolver, records *requests.Manager, logger *slog.Logger, opts PollerOptions) *Poller {
	if opts.Interval <= 0 {
		opts.Interval = DefaultPollInterval
	}
	if opts.MaxTransientFailures <= 0 && !opts.Unbounded {
		opts.MaxTransientFailures = DefaultMaxTransientFailures
	}
	if opts.FallbackTitle == "" {
		opts.FallbackTitle = "wiki_book"
	}
	return &Poller{
		clients:  clients,
		records:  records,
		logger:   logger.With("component", "poller"),
		interval: opts.Interval,
		maxFails: opts.MaxTransientFailures,
		fallback: opts.FallbackTitle,
		cancels:  make(map[string]context.CancelFunc),
	}
}

// Track starts polling a record. Tracking an already-tracked record is a
// no-op. The goroutine stops when the task reaches a terminal state, the
// task is cancelled, or ctx is done.
func (p *Poller) Track(ctx context.Context, rec *requests.Record) {
	if rec.Status.Terminal() {
		return
	}

	p.mu.Lock()
	if _, ok := p.cancels[rec.ID]; ok {
		p.mu.Unlock()
		return
	}
	taskCtx, cancel := context.WithCancel(ctx)
	p.cancels[rec.ID] = cancel
	p.wg.Add(1)
	p.mu.Unlock()

	go p.poll(taskCtx, rec)
}

// Cancel stops polling a record. Returns false if it was not tracked.
func (p *Poller) Cancel(recordID string) bool {
	p.mu.Lock()
	cancel, ok := p.cancels[recordID]
	p.mu.Unlock()
	if ok {
		cancel()
	}
	return ok
}

// Tracking reports whether a record is currently being polled.
func (p *Poller) Tracking(recordID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.cancels[recordID]
	return ok
}

// Resume starts polling every stored record that is not yet terminal.
// Called at server startup so restarts pick up where they left off.
func (p *Poller) Resume(ctx context.Context) (int, error) {
	records, err := p.records.List(ctx, requests.ListFilter{})
	if err != nil {
		return 0, err
	}

	resumed := 0
	for _, rec := range records {
		if rec.Status.Terminal() {
			continue
		}
		p.Track(ctx, rec)
		resumed++
	}
	if resumed > 0 {
		p.logger.Info("resumed polling active tasks", "count", resumed)
	}
	return resumed, nil
}

// Shutdown cancels all task contexts and waits for the goroutines.
func (p *Poller) Shutdown() {
	p.mu.Lock()
	for _, cancel := range p.cancels {
		cancel()
	}
	p.mu.Unlock()
	p.wg.Wait()
}

func (p *Poller) poll(ctx context.Context, rec *requests.Record) {
	defer func() {
		p.mu.Lock()
		delete(p.cancels, rec.ID)
		p.mu.Unlock()
		p.wg.Done()
	}()

	logger := p.logger.With("record_id", rec.ID, "task_id", rec.TaskID)
	pdf := p.clients.ClientFor(ctx, rec.Owner)
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	transient := 0
	for {
		select {
		case <-ctx.Done():
			logger.Debug("polling cancelled")
			return
		case <-ticker.C:
		}

		st, err := pdf.Status(ctx, rec.TaskID)
		if ctx.Err() != nil {
			// Cancelled mid-flight; drop the result.
			return
		}

		if err != nil {
			if errors.Is(err, pdfapi.ErrTaskNotFound) {
				logger.Info("task no longer exists on PDF service")
				p.applyChange(ctx, rec, Change{
					Status: requests.StatusFailed,
					Error:  "Task not found",
				}, logger)
				return
			}

			transient++
			logger.Warn("status check failed", "error", err, "consecutive", transient)
			if p.maxFails > 0 && transient >= p.maxFails {
				logger.Error("abandoning task after repeated status failures")
				p.applyChange(ctx, rec, Change{
					Status: requests.StatusFailed,
					Error:  "status checks failed repeatedly",
				}, logger)
				return
			}
			continue
		}
		transient = 0

		change := Reconcile(rec, st, pdf, p.fallback)
		if !change.Empty() {
			p.applyChange(ctx, rec, change, logger)
		}
		if rec.Status.Terminal() {
			logger.Info("task finished", "status", rec.Status)
			return
		}
	}
}

// applyChange persists a change and mirrors it onto the in-memory record.
// Persistence failures are logged and skipped; the next tick retries.
func (p *Poller) applyChange(ctx context.Context, rec *requests.Record, change Change, logger *slog.Logger) {
	if err := p.records.Update(ctx, rec.ID, change.Fields()); err != nil {
		logger.Warn("failed to persist status change", "error", err)
		return
	}
	change.Apply(rec)
}
