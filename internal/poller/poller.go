// Copyright 2026 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package poller drives an operation adapter until the operation finishes,
// the wait budget runs out, or the caller cancels.
package poller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/google/cloudsdk-go/internal/apierr"
	"github.com/google/cloudsdk-go/internal/operations"
	"github.com/google/cloudsdk-go/pkg/model"

	gax "github.com/googleapis/gax-go/v2"
)

// DefaultCallTimeout bounds each RPC made while waiting.
const DefaultCallTimeout = 20 * time.Second

const defaultCancelTimeout = 5 * time.Second

// EventSink receives the events of one wait, in order. Emit must not block.
type EventSink interface {
	Emit(model.ProgressEvent)
}

// Clock abstracts time for tests.
type Clock interface {
	Now() time.Time
	// Sleep returns early with ctx.Err() when ctx is done.
	Sleep(ctx context.Context, d time.Duration) error
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) Sleep(ctx context.Context, d time.Duration) error {
	return gax.Sleep(ctx, d)
}

// Recorder observes polls and finished waits.
type Recorder interface {
	ObservePoll(kind, result string)
	ObserveWait(kind, outcome string, elapsed time.Duration)
}

// Outcome is the result of one wait. Exactly one of State (success),
// Err (failure) or Canceled describes how it ended.
type Outcome struct {
	State    *model.OperationState
	Err      *model.ClassifiedError
	Canceled bool
	Polls    int
}

// Poller runs the poll loop for one adapter.
type Poller struct {
	adapter       operations.Adapter
	schedule      Schedule
	sink          EventSink
	clock         Clock
	rand          func() float64
	recorder      Recorder
	callTimeout   time.Duration
	cancelTimeout time.Duration
}

// Option configures a Poller.
type Option func(*Poller)

// WithCallTimeout sets the deadline of each poll RPC.
func WithCallTimeout(d time.Duration) Option {
	return func(p *Poller) { p.callTimeout = d }
}

// WithCancelTimeout sets the deadline of the best-effort cancel RPC.
func WithCancelTimeout(d time.Duration) Option {
	return func(p *Poller) { p.cancelTimeout = d }
}

// WithClock replaces the wall clock.
func WithClock(c Clock) Option {
	return func(p *Poller) { p.clock = c }
}

// WithRand replaces the jitter source. f must return values in [0, 1).
func WithRand(f func() float64) Option {
	return func(p *Poller) { p.rand = f }
}

// WithMetrics records polls and wait outcomes.
func WithMetrics(r Recorder) Option {
	return func(p *Poller) { p.recorder = r }
}

// New creates a Poller.
func New(adapter operations.Adapter, schedule Schedule, sink EventSink, opts ...Option) (*Poller, error) {
	if adapter == nil {
		slog.Error("NewPoller: adapter cannot be nil")
		return nil, errors.New("adapter cannot be nil")
	}
	if sink == nil {
		slog.Error("NewPoller: event sink cannot be nil")
		return nil, errors.New("event sink cannot be nil")
	}
	if err := schedule.Validate(); err != nil {
		return nil, fmt.Errorf("invalid poll schedule: %w", err)
	}
	p := &Poller{
		adapter:       adapter,
		schedule:      schedule,
		sink:          sink,
		clock:         realClock{},
		rand:          rand.Float64,
		callTimeout:   DefaultCallTimeout,
		cancelTimeout: defaultCancelTimeout,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Poll blocks until h reaches a terminal state. Cancelling ctx stops polling,
// attempts one server-side cancel, and ends the wait as canceled.
func (p *Poller) Poll(ctx context.Context, h *operations.Handle) Outcome {
	w := &wait{Poller: p, h: h, start: p.clock.Now()}
	out := w.run(ctx)
	if p.recorder != nil {
		p.recorder.ObserveWait(string(h.Kind), outcomeLabel(out), p.clock.Now().Sub(w.start))
	}
	return out
}

// wait holds the state of one Poll call.
type wait struct {
	*Poller
	h     *operations.Handle
	start time.Time
	polls int
	last  *model.OperationState
}

func (w *wait) run(ctx context.Context) Outcome {
	name := w.h.String()
	w.emit(model.ProgressEvent{Type: model.ProgressEventStarted})
	slog.DebugContext(ctx, "Poller: Waiting for operation", "operation", name, "kind", w.h.Kind)

	delay := w.schedule.Initial
	for {
		if ctx.Err() != nil {
			return w.cancel(ctx)
		}
		if err := w.clock.Sleep(ctx, w.schedule.jittered(delay, w.rand())); err != nil || ctx.Err() != nil {
			return w.cancel(ctx)
		}

		state, ce := w.pollOnce(ctx)
		switch {
		case ce != nil && ctx.Err() != nil:
			return w.cancel(ctx)
		case ce != nil && ce.Retriable:
			slog.DebugContext(ctx, "Poller: Retriable error, will poll again", "operation", name, "attempt", w.polls, "error", ce)
			w.emit(model.ProgressEvent{Type: model.ProgressEventPolled, Error: ce, RetryHint: ce.Error()})
		case ce != nil:
			return w.fail(ctx, ce)
		default:
			w.last = state
			w.emit(model.ProgressEvent{Type: model.ProgressEventPolled, State: state})
			if state.Done {
				return w.finish(ctx, state)
			}
		}

		if w.schedule.MaxTotal > 0 && w.clock.Now().Sub(w.start) >= w.schedule.MaxTotal {
			return w.fail(ctx, model.NewError(model.ErrorKindDeadlineExceeded,
				"Operation [%s] did not complete within %v. The operation may still be underway remotely and may still succeed; use describe commands to check resource state.",
				name, w.schedule.MaxTotal))
		}
		if ctx.Err() != nil {
			return w.cancel(ctx)
		}
		delay = w.schedule.next(delay)
	}
}

// pollOnce runs one adapter poll under the per-call deadline.
func (w *wait) pollOnce(ctx context.Context) (*model.OperationState, *model.ClassifiedError) {
	callCtx, cancel := context.WithTimeout(ctx, w.callTimeout)
	defer cancel()
	w.polls++
	state, err := w.adapter.Poll(callCtx, w.h)
	if err != nil {
		ce := apierr.FromError(err)
		w.observePoll(string(ce.Kind))
		return nil, ce
	}
	if state == nil {
		w.observePoll(string(model.ErrorKindInternal))
		return nil, model.NewError(model.ErrorKindInternal, "adapter returned no state for operation [%s]", w.h)
	}
	if state.Done && state.Error != nil {
		state.TargetLink = ""
	}
	w.observePoll(string(state.Status))
	return state, nil
}

func (w *wait) finish(ctx context.Context, state *model.OperationState) Outcome {
	if state.Error != nil {
		return w.fail(ctx, apierr.ClassifyOperationError(state.Error))
	}
	slog.InfoContext(ctx, "Poller: Operation completed", "operation", w.h.String(), "target", state.TargetLink, "polls", w.polls)
	w.emit(model.ProgressEvent{Type: model.ProgressEventCompleted, State: state, TargetLink: state.TargetLink})
	return Outcome{State: state, Polls: w.polls}
}

func (w *wait) fail(ctx context.Context, ce *model.ClassifiedError) Outcome {
	slog.InfoContext(ctx, "Poller: Operation failed", "operation", w.h.String(), "kind", ce.Kind, "polls", w.polls)
	w.emit(model.ProgressEvent{Type: model.ProgressEventFailed, State: w.last, Error: ce})
	return Outcome{State: w.last, Err: ce, Polls: w.polls}
}

// cancel makes one cancel attempt detached from the canceled ctx.
func (w *wait) cancel(ctx context.Context) Outcome {
	cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), w.cancelTimeout)
	defer cancel()
	if err := w.adapter.Cancel(cctx, w.h); err != nil {
		slog.DebugContext(ctx, "Poller: Server-side cancel not applied", "operation", w.h.String(), "error", err)
	} else {
		slog.InfoContext(ctx, "Poller: Server-side cancel requested", "operation", w.h.String())
	}
	w.emit(model.ProgressEvent{Type: model.ProgressEventCanceled, State: w.last})
	return Outcome{State: w.last, Canceled: true, Polls: w.polls}
}

func (w *wait) emit(e model.ProgressEvent) {
	e.Operation = w.h.String()
	e.Time = w.clock.Now()
	w.sink.Emit(e)
}

func (w *wait) observePoll(result string) {
	if w.recorder != nil {
		w.recorder.ObservePoll(string(w.h.Kind), result)
	}
}

func outcomeLabel(o Outcome) string {
	switch {
	case o.Canceled:
		return "canceled"
	case o.Err != nil:
		return string(o.Err.Kind)
	}
	return "completed"
}
