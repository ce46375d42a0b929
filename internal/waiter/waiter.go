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

// Package waiter is the entry point command code uses to wait for an
// operation and obtain the resource it produced.
package waiter

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/cloudsdk-go/internal/apierr"
	"github.com/google/cloudsdk-go/internal/operations"
	"github.com/google/cloudsdk-go/internal/poller"
	"github.com/google/cloudsdk-go/internal/progress"
	"github.com/google/cloudsdk-go/pkg/model"
)

// Options tune one WaitFor call. The zero value waits with the default
// schedule and tracker and does not fetch the target.
type Options struct {
	Schedule *poller.Schedule
	Tracker  progress.Tracker
	// Message is shown by the tracker while waiting.
	Message string
	// FetchTarget issues one Get on the target after a successful,
	// non-delete operation.
	FetchTarget bool
}

// Result is what a finished wait produced. Resource is nil for deletes,
// for operations without a target, and when FetchTarget was not requested.
type Result struct {
	Resource model.Resource
	State    *model.OperationState
	Canceled bool
}

// Waiter holds what every wait of a command shares.
type Waiter struct {
	out         io.Writer
	progressOut io.Writer
	interactive bool
	quiet       bool
	extra       progress.Tracker
	recorder    poller.Recorder
	pollOpts    []poller.Option
	command     string
	callTimeout time.Duration
}

// Option configures a Waiter.
type Option func(*Waiter)

// WithInteractive selects the in-place console tracker.
func WithInteractive(on bool) Option {
	return func(w *Waiter) { w.interactive = on }
}

// WithQuiet replaces the default console tracker with a no-op.
func WithQuiet(on bool) Option {
	return func(w *Waiter) { w.quiet = on }
}

// WithTracker adds a tracker that observes every wait, such as Pub/Sub.
func WithTracker(t progress.Tracker) Option {
	return func(w *Waiter) { w.extra = t }
}

// WithMetrics records poll and wait metrics.
func WithMetrics(r poller.Recorder) Option {
	return func(w *Waiter) { w.recorder = r }
}

// WithPollerOptions passes options to every poller.
func WithPollerOptions(opts ...poller.Option) Option {
	return func(w *Waiter) { w.pollOpts = append(w.pollOpts, opts...) }
}

// WithCallTimeout sets the deadline of each poll and of the target Get.
func WithCallTimeout(d time.Duration) Option {
	return func(w *Waiter) {
		w.callTimeout = d
		w.pollOpts = append(w.pollOpts, poller.WithCallTimeout(d))
	}
}

// WithCommandName sets the binary name used in the async hint.
func WithCommandName(name string) Option {
	return func(w *Waiter) { w.command = name }
}

// New creates a Waiter. out receives user-facing hints; progressOut receives
// tracker output.
func New(out, progressOut io.Writer, opts ...Option) (*Waiter, error) {
	if out == nil || progressOut == nil {
		slog.Error("NewWaiter: output writers cannot be nil")
		return nil, errors.New("output writers cannot be nil")
	}
	w := &Waiter{out: out, progressOut: progressOut, command: "cloudsdk", callTimeout: poller.DefaultCallTimeout}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// WaitFor blocks until the operation finishes. A failed operation returns a
// *model.ClassifiedError. Cancellation is not an error: it returns a Result
// with Canceled set.
func (w *Waiter) WaitFor(ctx context.Context, h *operations.Handle, a operations.Adapter, o Options) (*Result, error) {
	if h == nil || a == nil {
		return nil, model.NewError(model.ErrorKindInvalidArgument, "operation handle and adapter are required")
	}
	schedule := poller.DefaultSchedule()
	if o.Schedule != nil {
		schedule = *o.Schedule
	}

	sink, err := progress.NewEventSink(w.tracker(o.Tracker), o.Message)
	if err != nil {
		return nil, err
	}
	opts := w.pollOpts
	if w.recorder != nil {
		opts = append(opts[:len(opts):len(opts)], poller.WithMetrics(w.recorder))
	}
	p, err := poller.New(a, schedule, sink, opts...)
	if err != nil {
		sink.Close()
		return nil, model.NewError(model.ErrorKindInvalidArgument, "%v", err)
	}
	out := p.Poll(ctx, h)
	sink.Close()

	switch {
	case out.Canceled:
		slog.InfoContext(ctx, "Waiter: Wait canceled", "operation", h.String(), "polls", out.Polls)
		return &Result{State: out.State, Canceled: true}, nil
	case out.Err != nil:
		return nil, out.Err
	}

	res := &Result{State: out.State}
	if !o.FetchTarget || !operations.HasTarget(out.State) {
		return res, nil
	}
	fetchCtx, cancel := context.WithTimeout(ctx, w.callTimeout)
	defer cancel()
	resource, err := a.FetchTarget(fetchCtx, out.State)
	if err != nil {
		slog.ErrorContext(ctx, "Waiter: Failed to fetch operation target", "operation", h.String(), "target", out.State.TargetLink, "error", err)
		return nil, apierr.FromError(err)
	}
	res.Resource = resource
	return res, nil
}

// WaitAsync does not poll. It tells the user how to check on the operation.
func (w *Waiter) WaitAsync(ctx context.Context, h *operations.Handle, a operations.Adapter) error {
	if h == nil || a == nil {
		return model.NewError(model.ErrorKindInvalidArgument, "operation handle and adapter are required")
	}
	link := h.Ref.SelfLink()
	slog.InfoContext(ctx, "Waiter: Not waiting for operation", "operation", h.String())
	_, err := fmt.Fprintf(w.out, "Check operation [%s] for its status.\nTo wait for it to finish, run:\n  $ %s operations wait %s\n", link, w.command, link)
	return err
}

// tracker picks the tracker for one wait: the caller's, else the console
// (or nothing when quiet), plus the waiter-wide extra tracker.
func (w *Waiter) tracker(t progress.Tracker) progress.Tracker {
	if t == nil {
		if w.quiet {
			t = progress.NoOp{}
		} else {
			t = progress.NewConsole(w.progressOut, w.interactive)
		}
	}
	if w.extra == nil {
		return t
	}
	return progress.Multi{t, w.extra}
}
