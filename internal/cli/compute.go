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
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	compute "google.golang.org/api/compute/v1"

	"github.com/google/cloudsdk-go/internal/apierr"
	"github.com/google/cloudsdk-go/internal/operations"
	"github.com/google/cloudsdk-go/internal/resources"
	"github.com/google/cloudsdk-go/internal/waiter"
)

var (
	async         bool
	mutateTimeout time.Duration
)

// mutation describes one compute call that returns an operation.
type mutation struct {
	collection string
	verb       string
	// fetch requests the target resource after success.
	fetch bool
	call  func(ctx context.Context, svc *compute.Service, ref *resources.Ref, requestID string) (*compute.Operation, error)
}

var (
	startInstance = mutation{
		collection: resources.ComputeInstances,
		verb:       "Starting",
		fetch:      true,
		call: func(ctx context.Context, svc *compute.Service, ref *resources.Ref, requestID string) (*compute.Operation, error) {
			return svc.Instances.Start(ref.Param("project"), ref.Param("zone"), ref.Param("instance")).RequestId(requestID).Context(ctx).Do()
		},
	}
	deleteInstance = mutation{
		collection: resources.ComputeInstances,
		verb:       "Deleting",
		call: func(ctx context.Context, svc *compute.Service, ref *resources.Ref, requestID string) (*compute.Operation, error) {
			return svc.Instances.Delete(ref.Param("project"), ref.Param("zone"), ref.Param("instance")).RequestId(requestID).Context(ctx).Do()
		},
	}
	deleteAddress = mutation{
		collection: resources.ComputeAddresses,
		verb:       "Deleting",
		call: func(ctx context.Context, svc *compute.Service, ref *resources.Ref, requestID string) (*compute.Operation, error) {
			return svc.Addresses.Delete(ref.Param("project"), ref.Param("region"), ref.Param("address")).RequestId(requestID).Context(ctx).Do()
		},
	}
)

func newComputeCmd() *cobra.Command {
	instances := newGroupCmd("instances", "Manage virtual machine instances.",
		newMutationCmd("start NAME", "Start a stopped instance.", startInstance),
		newMutationCmd("delete NAME", "Delete an instance.", deleteInstance),
	)
	addresses := newGroupCmd("addresses", "Manage regional IP addresses.",
		newMutationCmd("delete NAME", "Release a regional address.", deleteAddress),
	)
	return newGroupCmd("compute", "Manage Compute Engine resources.", instances, addresses)
}

func newMutationCmd(use, short string, m mutation) *cobra.Command {
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  usageArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMutation(cmd, args[0], m)
		},
	}
	cmd.Flags().BoolVar(&async, "async", false, "Return immediately without waiting for the operation")
	cmd.Flags().DurationVar(&mutateTimeout, "timeout", 0, "Give up waiting after this long (default 30m)")
	return cmd
}

func runMutation(cmd *cobra.Command, name string, m mutation) error {
	ctx := cmd.Context()
	ref, err := rt.registry.Parse(m.collection, name, resources.DefaultFallbacks(rt.props))
	if err != nil {
		return err
	}
	schedule, err := scheduleWithTimeout(mutateTimeout)
	if err != nil {
		return err
	}
	clients, err := rt.clients(ctx)
	if err != nil {
		return err
	}

	requestID := uuid.NewString()
	slog.InfoContext(ctx, "CLI: Issuing compute request", "verb", m.verb, "resource", ref.RelativeName(), "request_id", requestID)
	op, err := m.call(ctx, clients.Compute, ref, requestID)
	if err != nil {
		return apierr.FromError(err)
	}
	h, err := operations.ComputeOperationHandle(rt.registry, op)
	if err != nil {
		return err
	}
	a, err := operations.NewAdapter(h, clients)
	if err != nil {
		return err
	}
	w, err := rt.newWaiter(cmd, false)
	if err != nil {
		return err
	}
	if async {
		return w.WaitAsync(ctx, h, a)
	}

	res, err := w.WaitFor(ctx, h, a, waiter.Options{
		Schedule:    schedule,
		Message:     fmt.Sprintf("%s [%s]", m.verb, ref.SelfLink()),
		FetchTarget: m.fetch,
	})
	if err != nil {
		return err
	}
	if res.Canceled {
		return errCanceled
	}
	if res.Resource != nil {
		return printValue(cmd.OutOrStdout(), res.Resource)
	}
	if res.State.IsDelete() && rt.props.UserOutputEnabled() {
		fmt.Fprintf(cmd.ErrOrStderr(), "Deleted [%s].\n", ref.SelfLink())
	}
	return nil
}
