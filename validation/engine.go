// Copyright 2023-2024, the esc-node authors.
// For license information, see https://github.com/ethscriptions-protocol/esc-node/blob/master/LICENSE

package validation

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/ethereum/go-ethereum/log"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/ethscriptions-protocol/esc-node/util/stopwaiter"
)

// ErrTransient marks a validation failure caused by the environment (feed
// unavailable, derivation input missing) rather than by a mismatch. It is
// never persisted; the job re-runs.
var ErrTransient = errors.New("transient validation error")

// ReferenceFeed matches the escnode feed client without importing it.
type ReferenceFeed interface {
	BlockEvents(ctx context.Context, l1Block uint64) (json.RawMessage, error)
}

// Deriver rebuilds a block's derivation output for gap jobs.
type Deriver interface {
	DeriveOperations(ctx context.Context, l1Block uint64) ([]OperationSummary, error)
}

// BlockValidator is the pluggable comparison step.
type BlockValidator interface {
	ValidateL1Block(ctx context.Context, job Job) (*Outcome, error)
}

// Outcome is what a validator reports for one block.
type Outcome struct {
	Success bool
	Errors  []string
	Stats   json.RawMessage
}

type EngineConfig struct {
	Threads    int
	Attempts   int
	RetryDelay time.Duration
	QueueSize  int

	GapInterval time.Duration
	GapRecheck  uint64
	GapLookback uint64
	GapEnabled  bool
}

var DefaultEngineConfig = EngineConfig{
	Threads:     10,
	Attempts:    3,
	RetryDelay:  5 * time.Second,
	QueueSize:   1024,
	GapInterval: time.Minute,
	GapRecheck:  100,
	GapLookback: 1000,
	GapEnabled:  true,
}

// Engine runs validation jobs on a worker pool. Parallelism is safe: every
// job is keyed by a distinct L1 block and the store upserts idempotently.
type Engine struct {
	stopwaiter.StopWaiter

	store     *Store
	feed      ReferenceFeed
	deriver   Deriver
	validator BlockValidator
	config    EngineConfig

	jobs      chan Job
	currentL1 atomic.Uint64
}

func NewEngine(store *Store, feed ReferenceFeed, deriver Deriver, validator BlockValidator, config EngineConfig) *Engine {
	if config.Threads <= 0 {
		config.Threads = DefaultEngineConfig.Threads
	}
	if config.Attempts <= 0 {
		config.Attempts = DefaultEngineConfig.Attempts
	}
	if config.QueueSize <= 0 {
		config.QueueSize = DefaultEngineConfig.QueueSize
	}
	if validator == nil {
		validator = NewFeedValidator()
	}
	return &Engine{
		store:     store,
		feed:      feed,
		deriver:   deriver,
		validator: validator,
		config:    config,
		jobs:      make(chan Job, config.QueueSize),
	}
}

func (e *Engine) Start(ctx context.Context) {
	e.StopWaiter.Start(ctx)
	for i := 0; i < e.config.Threads; i++ {
		e.LaunchThread(e.worker)
	}
	if e.config.GapEnabled {
		e.CallIteratively(e.detectGaps)
	}
}

func (e *Engine) Stop(drainTimeout time.Duration) {
	if !e.StopAndWaitTimeout(drainTimeout) {
		log.Warn("validation engine did not drain in time")
	}
}

// Enqueue never blocks the caller. A full queue drops the job; gap
// detection re-enqueues it later.
func (e *Engine) Enqueue(job Job) {
	if job.ID == (uuid.UUID{}) {
		job.ID = uuid.New()
	}
	if current := e.currentL1.Load(); job.L1Block > current {
		e.currentL1.Store(job.L1Block)
	}
	select {
	case e.jobs <- job:
	default:
		log.Warn("validation queue full, dropping job", "l1Block", job.L1Block)
	}
}

// SetCurrentL1 tells the gap detector where the importer is.
func (e *Engine) SetCurrentL1(l1Block uint64) {
	e.currentL1.Store(l1Block)
}

func (e *Engine) worker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case job := <-e.jobs:
			e.runJob(ctx, job)
		}
	}
}

// runJob makes up to Attempts attempts with a fixed delay. Transient errors
// leave no row behind; everything else is persisted as a failure before the
// retry fires.
func (e *Engine) runJob(ctx context.Context, job Job) {
	policy := backoff.WithContext(backoff.WithMaxRetries(
		backoff.NewConstantBackOff(e.config.RetryDelay), uint64(e.config.Attempts-1)), ctx)
	err := backoff.Retry(func() error {
		return e.validateAndSave(ctx, job)
	}, policy)
	if err != nil {
		log.Error("validation failed", "l1Block", job.L1Block, "jobId", job.ID, "err", err)
	}
}

func (e *Engine) validateAndSave(ctx context.Context, job Job) error {
	if job.Rederive {
		if e.deriver == nil {
			return errors.Wrap(ErrTransient, "no deriver for gap job")
		}
		ops, err := e.deriver.DeriveOperations(ctx, job.L1Block)
		if err != nil {
			return errors.Wrap(ErrTransient, err.Error())
		}
		job.Operations = ops
		job.ApiData = nil
	}
	if job.ApiData == nil {
		if e.feed == nil {
			return errors.Wrap(ErrTransient, "no reference feed configured")
		}
		apiData, err := e.feed.BlockEvents(ctx, job.L1Block)
		if err != nil {
			return errors.Wrap(ErrTransient, err.Error())
		}
		job.ApiData = apiData
	}

	outcome, err := e.validator.ValidateL1Block(ctx, job)
	if err != nil {
		if errors.Is(err, ErrTransient) {
			return err
		}
		// A hard validator error is a recorded failure, then re-raised so
		// the retry policy still applies.
		saveErr := e.store.Save(&Result{
			L1Block:      job.L1Block,
			Success:      false,
			ErrorDetails: []string{err.Error()},
			ValidatedAt:  time.Now().UTC(),
		})
		if saveErr != nil {
			log.Error("failed to persist validation error", "l1Block", job.L1Block, "err", saveErr)
		}
		return err
	}

	return e.store.Save(&Result{
		L1Block:         job.L1Block,
		Success:         outcome.Success,
		ErrorDetails:    outcome.Errors,
		ValidationStats: outcome.Stats,
		ValidatedAt:     time.Now().UTC(),
	})
}

// detectGaps enqueues a re-validation job for every block in the window
// around the import position that has no stored result.
func (e *Engine) detectGaps(ctx context.Context) time.Duration {
	current := e.currentL1.Load()
	if current == 0 {
		return e.config.GapInterval
	}
	lower := uint64(0)
	if current > e.config.GapLookback {
		lower = current - e.config.GapLookback
	}
	if last, ok, err := e.store.LastValidated(); err != nil {
		log.Error("gap detection failed", "err", err)
		return e.config.GapInterval
	} else if ok && last > e.config.GapRecheck && last-e.config.GapRecheck > lower {
		lower = last - e.config.GapRecheck
	}
	missing, err := e.store.MissingInRange(lower, current)
	if err != nil {
		log.Error("gap detection failed", "err", err)
		return e.config.GapInterval
	}
	for _, n := range missing {
		e.Enqueue(NewGapJob(n))
	}
	if len(missing) > 0 {
		log.Info("gap detection enqueued blocks", "count", len(missing), "from", lower, "to", current)
	}
	return e.config.GapInterval
}
