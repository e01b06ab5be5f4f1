// Package scheduler implements a batched inference scheduler: many concurrent
// callers submit one request each and block on their own reply channel; a single
// dispatcher goroutine accumulates requests into a batch and flushes it either
// once it reaches a configured size or once an idle timeout elapses since the last
// flush, whichever comes first.
package scheduler

import (
	"context"
	"time"

	"k8s.io/klog/v2"
)

// BatchFunc runs a full batch of requests at once and returns one response per
// request, in the same order. It is the only place a scheduler touches a model.
type BatchFunc[Req, Resp any] func(reqs []Req) ([]Resp, error)

// Config holds the scheduler's batching policy.
type Config struct {
	// BatchSize is the number of requests that triggers an immediate flush.
	BatchSize int
	// IdleTimeout is how long the dispatcher waits for BatchSize to be reached
	// before flushing whatever has accumulated so far. The reference design
	// (original_source's prediction_task) uses a 100µs-class window; callers
	// submitting at human time scales will want something much larger.
	IdleTimeout time.Duration
	// WarnUnderusedFraction, if > 0, logs a warning whenever a timeout flush goes
	// out with fewer than WarnUnderusedFraction*BatchSize requests, the Go
	// analog of original_source's WARN_ON_GPU_UNDERUSAGE.
	WarnUnderusedFraction float64
	// QueueSize bounds the submit channel; 0 means unbuffered (submit blocks
	// until the dispatcher is ready to accept).
	QueueSize int
}

type envelope[Req, Resp any] struct {
	req   Req
	reply chan Resp
	errCh chan error
}

// Scheduler batches Req values submitted concurrently from many goroutines and
// delivers each its own Resp via BatchFunc, generalizing
// internal/ai/tensorflow/auto_batch.go's AutoBatch/autoBatchDispatcher to an
// arbitrary request/response pair instead of a fixed board-scoring tensor set.
type Scheduler[Req, Resp any] struct {
	cfg     Config
	call    BatchFunc[Req, Resp]
	submitC chan envelope[Req, Resp]
}

// New starts a scheduler's dispatcher goroutine, running until ctx is cancelled.
func New[Req, Resp any](ctx context.Context, cfg Config, call BatchFunc[Req, Resp]) *Scheduler[Req, Resp] {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 1
	}
	s := &Scheduler[Req, Resp]{
		cfg:     cfg,
		call:    call,
		submitC: make(chan envelope[Req, Resp], cfg.QueueSize),
	}
	go s.dispatch(ctx)
	return s
}

// Submit enqueues req and blocks until its corresponding response (or the batch's
// error) is delivered, or ctx is cancelled. Cancelling the context the scheduler
// was created with does not by itself unblock a pending Submit. A cancelled
// Submit simply stops reading from its reply channel; the send to it is dropped
// silently (see deliver), so no goroutine leaks.
func (s *Scheduler[Req, Resp]) Submit(ctx context.Context, req Req) (Resp, error) {
	var zero Resp
	env := envelope[Req, Resp]{req: req, reply: make(chan Resp, 1), errCh: make(chan error, 1)}
	select {
	case s.submitC <- env:
	case <-ctx.Done():
		return zero, ctx.Err()
	}
	select {
	case resp := <-env.reply:
		return resp, nil
	case err := <-env.errCh:
		return zero, err
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

func (s *Scheduler[Req, Resp]) dispatch(ctx context.Context) {
	var batch []envelope[Req, Resp]
	timer := time.NewTimer(s.cfg.IdleTimeout)
	defer timer.Stop()

	flush := func() {
		if len(batch) == 0 {
			return
		}
		if s.cfg.WarnUnderusedFraction > 0 && float64(len(batch)) < s.cfg.WarnUnderusedFraction*float64(s.cfg.BatchSize) {
			klog.Warningf("scheduler: flushing underused batch of %d (target %d)", len(batch), s.cfg.BatchSize)
		}
		reqs := make([]Req, len(batch))
		for i, e := range batch {
			reqs[i] = e.req
		}
		flushed := batch
		batch = nil
		go s.deliver(flushed, reqs)
	}

	for {
		select {
		case <-ctx.Done():
			flush()
			return
		case env := <-s.submitC:
			batch = append(batch, env)
			if len(batch) >= s.cfg.BatchSize {
				flush()
				if !timer.Stop() {
					<-timer.C
				}
				timer.Reset(s.cfg.IdleTimeout)
			}
		case <-timer.C:
			flush()
			timer.Reset(s.cfg.IdleTimeout)
		}
	}
}

// deliver runs the batch function and scatters results back to each envelope's
// reply channel, mirroring autoBatchScoreAndDeliver's "go s.autoBatchScoreAndDeliver(ab)"
// so the next batch can start accumulating immediately instead of waiting on this one.
func (s *Scheduler[Req, Resp]) deliver(batch []envelope[Req, Resp], reqs []Req) {
	resps, err := s.call(reqs)
	if err != nil {
		for _, e := range batch {
			select {
			case e.errCh <- err:
			default:
			}
		}
		return
	}
	for i, e := range batch {
		select {
		case e.reply <- resps[i]:
		default:
			// Caller already gave up (context cancelled); discard.
		}
	}
}
