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

package progress

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/cloudsdk-go/pkg/model"
)

// EventSink queues poller events and delivers them to a Tracker on a worker
// goroutine, so Emit never blocks the poll loop. Events are delivered in
// order and nothing is delivered after the first terminal event.
type EventSink struct {
	tracker Tracker
	message string

	mu       sync.Mutex
	queue    []model.ProgressEvent
	closed   bool
	terminal bool
	notify   chan struct{}
	wg       sync.WaitGroup
}

// NewEventSink creates a sink and starts its worker. message is passed to
// Tracker.Start; when empty it is derived from the operation name.
func NewEventSink(tracker Tracker, message string) (*EventSink, error) {
	if tracker == nil {
		slog.Error("NewEventSink: tracker cannot be nil")
		return nil, errors.New("tracker cannot be nil")
	}
	s := &EventSink{
		tracker: tracker,
		message: message,
		notify:  make(chan struct{}, 1),
	}
	s.wg.Add(1)
	go s.worker()
	return s, nil
}

// Emit queues e for delivery.
func (s *EventSink) Emit(e model.ProgressEvent) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		slog.Warn("EventSink: Event emitted after close, dropping", "operation", e.Operation, "type", e.Type)
		return
	}
	s.queue = append(s.queue, e)
	select {
	case s.notify <- struct{}{}:
	default:
	}
	s.mu.Unlock()
}

// Close delivers every queued event and stops the worker.
func (s *EventSink) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	close(s.notify)
	s.mu.Unlock()
	s.wg.Wait()
}

func (s *EventSink) worker() {
	defer s.wg.Done()
	for {
		_, ok := <-s.notify
		for _, e := range s.drain() {
			s.deliver(e)
		}
		if !ok {
			return
		}
	}
}

func (s *EventSink) drain() []model.ProgressEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	batch := s.queue
	s.queue = nil
	return batch
}

func (s *EventSink) deliver(e model.ProgressEvent) {
	if s.terminal {
		slog.Warn("EventSink: Event after terminal event, dropping", "operation", e.Operation, "type", e.Type)
		return
	}
	if o, ok := s.tracker.(Observer); ok {
		o.Observe(e)
	}
	switch e.Type {
	case model.ProgressEventStarted:
		msg := s.message
		if msg == "" {
			msg = fmt.Sprintf("Waiting for operation [%s] to complete", e.Operation)
		}
		s.tracker.Start(msg)
	case model.ProgressEventPolled:
		s.tracker.Tick(Detail(e))
	case model.ProgressEventCompleted:
		s.terminal = true
		s.tracker.Done(OutcomeDone)
	case model.ProgressEventFailed:
		s.terminal = true
		s.tracker.Done(OutcomeFailed)
	case model.ProgressEventCanceled:
		s.terminal = true
		s.tracker.Done(OutcomeCanceled)
	}
}

// Detail is the short text shown for a Polled event: the status with the
// phase and percentage when known, or the retry hint.
func Detail(e model.ProgressEvent) string {
	if e.State == nil {
		if e.RetryHint != "" {
			return "retrying after " + firstLine(e.RetryHint)
		}
		return ""
	}
	parts := []string{string(e.State.Status)}
	if e.State.Phase != "" {
		parts = append(parts, e.State.Phase)
	}
	if e.State.Progress > 0 {
		parts = append(parts, fmt.Sprintf("%d%%", e.State.Progress))
	}
	return strings.Join(parts, " ")
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return line
}
