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

package cli

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/google/cloudsdk-go/internal/apierr"
	"github.com/google/cloudsdk-go/internal/operations"
	"github.com/google/cloudsdk-go/internal/poller"
	"github.com/google/cloudsdk-go/internal/resources"
	"github.com/google/cloudsdk-go/internal/waiter"
	"github.com/google/cloudsdk-go/pkg/model"
)

const cancelTimeout = 20 * time.Second

// Replaced in tests.
var (
	defaultSchedule = poller.DefaultSchedule
	callTimeout     = poller.DefaultCallTimeout
)

var (
	opCollection string
	opGlobal     bool
	waitTimeout  time.Duration
)

func newOperationsCmd() *cobra.Command {
	describe := &cobra.Command{
		Use:   "describe OPERATION",
		Short: "Show the current state of an operation.",
		Args:  usageArgs(cobra.ExactArgs(1)),
		RunE:  runDescribe,
	}
	wait := &cobra.Command{
		Use:   "wait OPERATION...",
		Short: "Wait for one or more operations to finish.",
		Args:  usageArgs(cobra.MinimumNArgs(1)),
		RunE:  runWait,
	}
	wait.Flags().DurationVar(&waitTimeout, "timeout", 0, "Give up after this long (default 30m)")
	cancel := &cobra.Command{
		Use:   "cancel OPERATION",
		Short: "Ask the service to cancel an operation.",
		Args:  usageArgs(cobra.ExactArgs(1)),
		RunE:  runCancel,
	}
	for _, c := range []*cobra.Command{describe, wait, cancel} {
		c.Flags().StringVar(&opCollection, "collection", "", "Operations collection, e.g. serviceusage.operations")
		c.Flags().BoolVar(&opGlobal, "global", false, "The operation is a global compute operation")
	}
	return newGroupCmd("operations", "Inspect and wait for long-running operations.", describe, wait, cancel)
}

// operationHandle resolves user input to a handle. A URL names its own
// collection; otherwise --collection, --global, the path shape, or the
// --zone / --region flags pick a compute scope.
func operationHandle(input string) (*operations.Handle, error) {
	fb := resources.DefaultFallbacks(rt.props)
	var (
		ref *resources.Ref
		err error
	)
	if strings.HasPrefix(input, "https://") || strings.HasPrefix(input, "http://") {
		ref, err = rt.registry.ParseSelfLink(input)
	} else {
		collection, cerr := operationCollection(input)
		if cerr != nil {
			return nil, cerr
		}
		ref, err = rt.registry.Parse(collection, input, fb)
	}
	if err != nil {
		return nil, err
	}
	return operations.NewHandle(ref, "")
}

func operationCollection(input string) (string, error) {
	switch {
	case opCollection != "":
		if _, ok := rt.registry.Lookup(opCollection); !ok {
			return "", usagef("unknown collection %q", opCollection)
		}
		return opCollection, nil
	case opGlobal || strings.Contains(input, "global/operations/"):
		return resources.ComputeGlobalOperations, nil
	case strings.Contains(input, "zones/"):
		return resources.ComputeZoneOperations, nil
	case strings.Contains(input, "regions/"):
		return resources.ComputeRegionOperations, nil
	case zone != "":
		return resources.ComputeZoneOperations, nil
	case region != "":
		return resources.ComputeRegionOperations, nil
	}
	return "", usagef("cannot tell the scope of operation %q: pass a URL, --collection, --global, --zone or --region", input)
}

func handleAndAdapter(ctx context.Context, input string) (*operations.Handle, operations.Adapter, error) {
	h, err := operationHandle(input)
	if err != nil {
		return nil, nil, err
	}
	clients, err := rt.clients(ctx)
	if err != nil {
		return nil, nil, err
	}
	a, err := operations.NewAdapter(h, clients)
	if err != nil {
		return nil, nil, err
	}
	return h, a, nil
}

func runDescribe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	h, a, err := handleAndAdapter(ctx, args[0])
	if err != nil {
		return err
	}
	pctx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()
	state, err := a.Poll(pctx, h)
	if err != nil {
		return apierr.FromError(err)
	}
	return printValue(cmd.OutOrStdout(), struct {
		Name     string `json:"name"`
		SelfLink string `json:"selfLink"`
		Kind     string `json:"kind"`
		*model.OperationState
	}{h.String(), h.Ref.SelfLink(), string(h.Kind), state})
}

func runWait(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	type job struct {
		h *operations.Handle
		a operations.Adapter
	}
	jobs := make([]job, 0, len(args))
	for _, in := range args {
		h, a, err := handleAndAdapter(ctx, in)
		if err != nil {
			return err
		}
		jobs = append(jobs, job{h, a})
	}

	w, err := rt.newWaiter(cmd, len(jobs) > 1)
	if err != nil {
		return err
	}
	schedule, err := scheduleWithTimeout(waitTimeout)
	if err != nil {
		return err
	}

	// Waits are independent: one failing must not cancel the others, so the
	// group does not derive a context.
	var (
		g        errgroup.Group
		mu       sync.Mutex
		canceled bool
	)
	for _, j := range jobs {
		g.Go(func() error {
			res, err := w.WaitFor(ctx, j.h, j.a, waiter.Options{
				Schedule: schedule,
				Message:  fmt.Sprintf("Waiting for operation [%s]", j.h),
			})
			if err != nil {
				return err
			}
			if res.Canceled {
				mu.Lock()
				canceled = true
				mu.Unlock()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	if canceled {
		return errCanceled
	}
	slog.InfoContext(ctx, "CLI: Operations finished", "count", len(jobs))
	return nil
}

func runCancel(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	h, a, err := handleAndAdapter(ctx, args[0])
	if err != nil {
		return err
	}
	cctx, cancel := context.WithTimeout(ctx, cancelTimeout)
	defer cancel()
	if err := a.Cancel(cctx, h); err != nil {
		return apierr.FromError(err)
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "Requested cancellation of [%s].\n", h.Ref.SelfLink())
	return nil
}

// scheduleWithTimeout returns the default schedule, with MaxTotal replaced
// when timeout is set.
func scheduleWithTimeout(timeout time.Duration) (*poller.Schedule, error) {
	s := defaultSchedule()
	if timeout < 0 {
		return nil, usagef("--timeout must not be negative")
	}
	if timeout > 0 {
		s.MaxTotal = timeout
	}
	return &s, nil
}
