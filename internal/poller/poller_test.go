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

package poller

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/google/cloudsdk-go/internal/apierr"
	"github.com/google/cloudsdk-go/internal/operations"
	"github.com/google/cloudsdk-go/internal/resources"
	"github.com/google/cloudsdk-go/pkg/model"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const targetLink = "https://compute.googleapis.com/compute/v1/projects/p/zones/z/instances/i"

// fakeClock advances only when the poller sleeps.
type fakeClock struct {
	now     time.Time
	sleeps  []time.Duration
	onSleep func(n int)
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.sleeps = append(c.sleeps, d)
	c.now = c.now.Add(d)
	if c.onSleep != nil {
		c.onSleep(len(c.sleeps))
	}
	return ctx.Err()
}

type pollResult struct {
	state *model.OperationState
	err   error
}

// fakeAdapter replays scripted poll results; the last one repeats.
type fakeAdapter struct {
	results   []pollResult
	polls     int
	cancels   int
	cancelErr error
	onPoll    func(ctx context.Context)
	onCancel  func(ctx context.Context)
}

func (a *fakeAdapter) Poll(ctx context.Context, h *operations.Handle) (*model.OperationState, error) {
	if a.onPoll != nil {
		a.onPoll(ctx)
	}
	r := a.results[min(a.polls, len(a.results)-1)]
	a.polls++
	return r.state, r.err
}

func (a *fakeAdapter) Cancel(ctx context.Context, h *operations.Handle) error {
	a.cancels++
	if a.onCancel != nil {
		a.onCancel(ctx)
	}
	return a.cancelErr
}

func (a *fakeAdapter) FetchTarget(ctx context.Context, s *model.OperationState) (model.Resource, error) {
	return nil, nil
}

type recordingSink struct {
	events  []model.ProgressEvent
	onEvent func(e model.ProgressEvent)
}

func (s *recordingSink) Emit(e model.ProgressEvent) {
	s.events = append(s.events, e)
	if s.onEvent != nil {
		s.onEvent(e)
	}
}

func (s *recordingSink) types() []model.ProgressEventType {
	out := make([]model.ProgressEventType, len(s.events))
	for i, e := range s.events {
		out[i] = e.Type
	}
	return out
}

// assertOrdering checks Started first, exactly one terminal event, and that
// it is last.
func (s *recordingSink) assertOrdering(t *testing.T) {
	t.Helper()
	require.NotEmpty(t, s.events)
	assert.Equal(t, model.ProgressEventStarted, s.events[0].Type)
	terminals := 0
	for i, e := range s.events {
		if e.Terminal() {
			terminals++
			assert.Equal(t, len(s.events)-1, i, "terminal event must be last")
		}
		if i > 0 {
			assert.NotEqual(t, model.ProgressEventStarted, e.Type)
		}
	}
	assert.Equal(t, 1, terminals, "exactly one terminal event")
}

type fakeRecorder struct {
	polls map[string]int
	waits map[string]int
}

func (r *fakeRecorder) ObservePoll(kind, result string) {
	r.polls[kind+"/"+result]++
}

func (r *fakeRecorder) ObserveWait(kind, outcome string, elapsed time.Duration) {
	r.waits[kind+"/"+outcome]++
}

func testHandle(t *testing.T, collection, relName string) *operations.Handle {
	t.Helper()
	reg, err := resources.NewDefaultRegistry()
	require.NoError(t, err)
	ref, err := reg.Parse(collection, relName, nil)
	require.NoError(t, err)
	h, err := operations.NewHandle(ref, "")
	require.NoError(t, err)
	return h
}

func zonalHandle(t *testing.T) *operations.Handle {
	return testHandle(t, resources.ComputeZoneOperations, "projects/p/zones/z/operations/op-1")
}

func state(status model.OperationStatus) *model.OperationState {
	return &model.OperationState{Status: status, Done: status == model.OperationStatusDone}
}

func unavailable() error {
	return apierr.ClassifyStatus(http.StatusServiceUnavailable, nil, "")
}

func noJitter() Schedule {
	s := DefaultSchedule()
	s.Jitter = 0
	return s
}

func newTestPoller(t *testing.T, a operations.Adapter, s Schedule, sink EventSink, clock Clock, opts ...Option) *Poller {
	t.Helper()
	opts = append([]Option{WithClock(clock), WithRand(func() float64 { return 0.5 })}, opts...)
	p, err := New(a, s, sink, opts...)
	require.NoError(t, err)
	return p
}

func TestPoll_ZonalCreateFastSuccess(t *testing.T) {
	done := state(model.OperationStatusDone)
	done.TargetLink = targetLink
	a := &fakeAdapter{results: []pollResult{{state: state(model.OperationStatusPending)}, {state: done}}}
	sink := &recordingSink{}

	out := newTestPoller(t, a, noJitter(), sink, newFakeClock()).Poll(context.Background(), zonalHandle(t))

	require.Nil(t, out.Err)
	assert.False(t, out.Canceled)
	assert.Equal(t, targetLink, out.State.TargetLink)
	assert.Equal(t, 2, out.Polls)
	want := []model.ProgressEventType{model.ProgressEventStarted, model.ProgressEventPolled, model.ProgressEventPolled, model.ProgressEventCompleted}
	if diff := cmp.Diff(want, sink.types()); diff != "" {
		t.Errorf("events mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, model.OperationStatusPending, sink.events[1].State.Status)
	assert.Equal(t, model.OperationStatusDone, sink.events[2].State.Status)
	assert.Equal(t, targetLink, sink.events[3].TargetLink)
	assert.Equal(t, "projects/p/zones/z/operations/op-1", sink.events[3].Operation)
	sink.assertOrdering(t)
}

func TestPoll_RegionalDeleteEmptyTarget(t *testing.T) {
	a := &fakeAdapter{results: []pollResult{
		{state: state(model.OperationStatusPending)},
		{state: state(model.OperationStatusRunning)},
		{state: state(model.OperationStatusDone)},
	}}
	sink := &recordingSink{}
	h := testHandle(t, resources.ComputeRegionOperations, "projects/p/regions/r/operations/op-2")

	out := newTestPoller(t, a, noJitter(), sink, newFakeClock()).Poll(context.Background(), h)

	require.Nil(t, out.Err)
	assert.Equal(t, 3, a.polls)
	assert.Equal(t, "", out.State.TargetLink)
	assert.Equal(t, model.ProgressEventCompleted, sink.events[len(sink.events)-1].Type)
	sink.assertOrdering(t)
}

func TestPoll_RetryThenSucceed(t *testing.T) {
	a := &fakeAdapter{results: []pollResult{{err: unavailable()}, {state: state(model.OperationStatusDone)}}}
	sink := &recordingSink{}

	out := newTestPoller(t, a, noJitter(), sink, newFakeClock()).Poll(context.Background(), zonalHandle(t))

	require.Nil(t, out.Err)
	assert.Equal(t, 2, a.polls)
	want := []model.ProgressEventType{model.ProgressEventStarted, model.ProgressEventPolled, model.ProgressEventPolled, model.ProgressEventCompleted}
	assert.Equal(t, want, sink.types())
	assert.Equal(t, "UNAVAILABLE: Service Unavailable", sink.events[1].RetryHint)
	assert.Nil(t, sink.events[1].State)
	sink.assertOrdering(t)
}

func TestPoll_OperationLevelFailure(t *testing.T) {
	failed := state(model.OperationStatusDone)
	failed.Error = &model.OperationError{Code: 409, Status: "ABORTED", Message: "resource busy"}
	failed.TargetLink = targetLink
	a := &fakeAdapter{results: []pollResult{{state: failed}}}
	sink := &recordingSink{}

	out := newTestPoller(t, a, noJitter(), sink, newFakeClock()).Poll(context.Background(), zonalHandle(t))

	require.NotNil(t, out.Err)
	assert.Equal(t, model.ErrorKindAborted, out.Err.Kind)
	assert.Equal(t, "resource busy", out.Err.Message)
	last := sink.events[len(sink.events)-1]
	assert.Equal(t, model.ProgressEventFailed, last.Type)
	assert.Equal(t, model.ErrorKindAborted, last.Error.Kind)
	assert.Equal(t, "", out.State.TargetLink, "a failed operation has no target")
	sink.assertOrdering(t)
}

func TestPoll_DeadlineExceededUnderRetries(t *testing.T) {
	s := Schedule{Initial: time.Second, Multiplier: 1, Max: time.Second, MaxTotal: 3 * time.Second}
	a := &fakeAdapter{results: []pollResult{{err: unavailable()}}}
	sink := &recordingSink{}

	out := newTestPoller(t, a, s, sink, newFakeClock()).Poll(context.Background(), zonalHandle(t))

	require.NotNil(t, out.Err)
	assert.Equal(t, model.ErrorKindDeadlineExceeded, out.Err.Kind)
	assert.GreaterOrEqual(t, a.polls, 3)
	assert.Contains(t, out.Err.Message, "may still be underway remotely")
	sink.assertOrdering(t)
}

func TestPoll_CancelMidWait(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	a := &fakeAdapter{results: []pollResult{{state: state(model.OperationStatusPending)}}}
	sink := &recordingSink{onEvent: func(e model.ProgressEvent) {
		if e.Type == model.ProgressEventPolled && e.State != nil && e.State.Status == model.OperationStatusPending {
			cancel()
		}
	}}
	a.onCancel = func(cctx context.Context) {
		assert.NoError(t, cctx.Err(), "cancel RPC must not inherit the canceled context")
		_, ok := cctx.Deadline()
		assert.True(t, ok, "cancel RPC carries its own deadline")
	}

	out := newTestPoller(t, a, noJitter(), sink, newFakeClock()).Poll(ctx, zonalHandle(t))

	assert.True(t, out.Canceled)
	assert.Nil(t, out.Err)
	assert.LessOrEqual(t, a.polls, 2, "at most one further poll after cancellation")
	assert.Equal(t, 1, a.cancels)
	assert.Equal(t, model.ProgressEventCanceled, sink.events[len(sink.events)-1].Type)
	sink.assertOrdering(t)
}

func TestPoll_CancelDuringSleep(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	a := &fakeAdapter{results: []pollResult{{state: state(model.OperationStatusRunning)}}, cancelErr: model.NewError(model.ErrorKindFailedPrecondition, "no cancel")}
	clock := newFakeClock()
	clock.onSleep = func(n int) {
		if n == 3 {
			cancel()
		}
	}
	sink := &recordingSink{}

	out := newTestPoller(t, a, noJitter(), sink, clock).Poll(ctx, zonalHandle(t))

	assert.True(t, out.Canceled)
	assert.Equal(t, 2, a.polls)
	assert.Equal(t, 1, a.cancels)
	assert.Equal(t, model.OperationStatusRunning, out.State.Status)
	sink.assertOrdering(t)
}

func TestPoll_AlreadyCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	a := &fakeAdapter{results: []pollResult{{state: state(model.OperationStatusRunning)}}}
	sink := &recordingSink{}

	out := newTestPoller(t, a, noJitter(), sink, newFakeClock()).Poll(ctx, zonalHandle(t))

	assert.True(t, out.Canceled)
	assert.Equal(t, 0, a.polls)
	assert.Equal(t, []model.ProgressEventType{model.ProgressEventStarted, model.ProgressEventCanceled}, sink.types())
}

func TestPoll_NonRetriableErrorIsTerminal(t *testing.T) {
	a := &fakeAdapter{results: []pollResult{{err: apierr.ClassifyStatus(http.StatusNotFound, nil, "")}}}
	sink := &recordingSink{}

	out := newTestPoller(t, a, noJitter(), sink, newFakeClock()).Poll(context.Background(), zonalHandle(t))

	require.NotNil(t, out.Err)
	assert.Equal(t, model.ErrorKindNotFound, out.Err.Kind)
	assert.Equal(t, 1, a.polls)
	assert.Equal(t, 0, a.cancels)
	sink.assertOrdering(t)
}

func TestPoll_NilStateIsInternal(t *testing.T) {
	a := &fakeAdapter{results: []pollResult{{}}}
	out := newTestPoller(t, a, noJitter(), &recordingSink{}, newFakeClock()).Poll(context.Background(), zonalHandle(t))
	require.NotNil(t, out.Err)
	assert.Equal(t, model.ErrorKindInternal, out.Err.Kind)
}

func TestPoll_PerCallDeadline(t *testing.T) {
	a := &fakeAdapter{results: []pollResult{{state: state(model.OperationStatusDone)}}}
	a.onPoll = func(ctx context.Context) {
		deadline, ok := ctx.Deadline()
		require.True(t, ok)
		assert.LessOrEqual(t, time.Until(deadline), 7*time.Second)
	}
	newTestPoller(t, a, noJitter(), &recordingSink{}, newFakeClock(), WithCallTimeout(7*time.Second)).Poll(context.Background(), zonalHandle(t))
	assert.Equal(t, 1, a.polls)
}

func TestPoll_DelaysGrowAndStayBounded(t *testing.T) {
	s := Schedule{Initial: time.Second, Multiplier: 1.5, Max: 10 * time.Second, MaxTotal: 5 * time.Minute, Jitter: 0.2}
	for _, r := range []float64{0, 0.5, 0.999} {
		a := &fakeAdapter{results: []pollResult{{state: state(model.OperationStatusRunning)}}}
		clock := newFakeClock()
		sink := &recordingSink{}
		out := newTestPoller(t, a, s, sink, clock, WithRand(func() float64 { return r })).Poll(context.Background(), zonalHandle(t))
		require.NotNil(t, out.Err)
		assert.Equal(t, model.ErrorKindDeadlineExceeded, out.Err.Kind)

		base := s.Initial
		var bound time.Duration
		for i, d := range clock.sleeps {
			if i > 0 {
				assert.GreaterOrEqual(t, d, clock.sleeps[i-1], "delays are non-decreasing")
			}
			upper := time.Duration(float64(base) * (1 + s.Jitter/2))
			lower := time.Duration(float64(base) * (1 - s.Jitter/2))
			assert.LessOrEqual(t, d, upper)
			assert.GreaterOrEqual(t, d, lower)
			assert.LessOrEqual(t, d, time.Duration(float64(s.Max)*(1+s.Jitter/2)))
			bound += upper
			base = s.next(base)
		}
		elapsed := clock.now.Sub(newFakeClock().now)
		assert.LessOrEqual(t, elapsed, bound)
		assert.Equal(t, len(clock.sleeps), a.polls)
	}
}

func TestPoll_Metrics(t *testing.T) {
	rec := &fakeRecorder{polls: map[string]int{}, waits: map[string]int{}}
	a := &fakeAdapter{results: []pollResult{{err: unavailable()}, {state: state(model.OperationStatusRunning)}, {state: state(model.OperationStatusDone)}}}

	newTestPoller(t, a, noJitter(), &recordingSink{}, newFakeClock(), WithMetrics(rec)).Poll(context.Background(), zonalHandle(t))

	want := map[string]int{"zonal/UNAVAILABLE": 1, "zonal/RUNNING": 1, "zonal/DONE": 1}
	if diff := cmp.Diff(want, rec.polls); diff != "" {
		t.Errorf("polls mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, map[string]int{"zonal/completed": 1}, rec.waits)
}

func TestNew_Errors(t *testing.T) {
	a := &fakeAdapter{}
	sink := &recordingSink{}
	tests := []struct {
		name    string
		adapter operations.Adapter
		sink    EventSink
		s       Schedule
		wantErr string
	}{
		{"nil adapter", nil, sink, DefaultSchedule(), "adapter cannot be nil"},
		{"nil sink", a, nil, DefaultSchedule(), "event sink cannot be nil"},
		{"bad schedule", a, sink, Schedule{Initial: time.Second, Multiplier: 0.5, Max: time.Second}, "invalid poll schedule"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.adapter, tt.s, tt.sink)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
