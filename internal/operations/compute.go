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

package operations

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/cloudsdk-go/internal/resources"
	"github.com/google/cloudsdk-go/pkg/model"

	compute "google.golang.org/api/compute/v1"
)

// ComputeAdapter polls compute global, regional and zonal operations.
type ComputeAdapter struct {
	svc     *compute.Service
	targets TargetGetter
}

// NewComputeAdapter creates a ComputeAdapter.
func NewComputeAdapter(svc *compute.Service, targets TargetGetter) (*ComputeAdapter, error) {
	if svc == nil {
		slog.Error("NewComputeAdapter: compute service cannot be nil")
		return nil, errors.New("compute service cannot be nil")
	}
	if targets == nil {
		slog.Error("NewComputeAdapter: target getter cannot be nil")
		return nil, errors.New("target getter cannot be nil")
	}
	return &ComputeAdapter{svc: svc, targets: targets}, nil
}

// Poll issues the operations.get RPC matching the handle's scope.
func (a *ComputeAdapter) Poll(ctx context.Context, h *Handle) (*model.OperationState, error) {
	ref := h.Ref
	var (
		op  *compute.Operation
		err error
	)
	switch h.Kind {
	case KindGlobal:
		op, err = a.svc.GlobalOperations.Get(ref.Param("project"), ref.Param("operation")).Context(ctx).Do()
	case KindRegional:
		op, err = a.svc.RegionOperations.Get(ref.Param("project"), ref.Param("region"), ref.Param("operation")).Context(ctx).Do()
	case KindZonal:
		op, err = a.svc.ZoneOperations.Get(ref.Param("project"), ref.Param("zone"), ref.Param("operation")).Context(ctx).Do()
	default:
		return nil, model.NewError(model.ErrorKindInvalidArgument, "compute adapter cannot poll %s operation [%s]", h.Kind, h)
	}
	if err != nil {
		return nil, classify(err, ref.SelfLink())
	}
	state := computeState(op)
	if state.OperationType == "" {
		state.OperationType = h.OperationType
	}
	return state, nil
}

// Cancel always fails: compute operations cannot be canceled.
func (a *ComputeAdapter) Cancel(ctx context.Context, h *Handle) error {
	return errCancelUnsupported(h.Kind)
}

// FetchTarget follows the operation's target link.
func (a *ComputeAdapter) FetchTarget(ctx context.Context, state *model.OperationState) (model.Resource, error) {
	if !HasTarget(state) {
		return nil, nil
	}
	return a.targets.GetTarget(ctx, state.TargetLink)
}

// computeState converts a compute Operation. A failed operation never keeps
// its target link.
func computeState(op *compute.Operation) *model.OperationState {
	state := &model.OperationState{
		Status:        model.OperationStatusRunning,
		Progress:      int(op.Progress),
		Phase:         op.StatusMessage,
		OperationType: op.OperationType,
		TargetLink:    op.TargetLink,
		Metadata: map[string]any{
			"name":       op.Name,
			"selfLink":   op.SelfLink,
			"insertTime": op.InsertTime,
			"user":       op.User,
		},
	}
	switch op.Status {
	case "PENDING":
		state.Status = model.OperationStatusPending
	case "DONE":
		state.Status = model.OperationStatusDone
		state.Done = true
		state.Progress = 100
	}
	if state.Progress < 0 || state.Progress > 100 {
		state.Progress = model.ProgressUnknown
	}
	if op.Error != nil && len(op.Error.Errors) > 0 {
		state.Error = computeError(op)
		state.TargetLink = ""
	}
	return state
}

func computeError(op *compute.Operation) *model.OperationError {
	messages := make([]string, 0, len(op.Error.Errors))
	for _, e := range op.Error.Errors {
		if e.Message != "" {
			messages = append(messages, e.Message)
		}
	}
	message := strings.Join(messages, "\n")
	if message == "" {
		message = op.HttpErrorMessage
	}
	return &model.OperationError{
		Code:    int(op.HttpErrorStatusCode),
		Status:  op.Error.Errors[0].Code,
		Message: message,
	}
}

// ComputeOperationHandle builds a handle for an operation returned by a
// mutating compute call, from its self link or, failing that, its scope and
// name.
func ComputeOperationHandle(reg *resources.Registry, op *compute.Operation) (*Handle, error) {
	if op == nil {
		return nil, errors.New("compute operation cannot be nil")
	}
	if op.SelfLink != "" {
		ref, err := reg.ParseSelfLink(op.SelfLink)
		if err == nil {
			return NewHandle(ref, op.OperationType)
		}
		if op.Name == "" {
			return nil, fmt.Errorf("failed to parse operation self link: %w", err)
		}
		slog.Warn("ComputeOperationHandle: Self link not recognized, using operation scope", "self_link", op.SelfLink, "error", err)
	}
	if op.Name == "" {
		return nil, model.NewError(model.ErrorKindInvalidArgument, "compute operation has neither a self link nor a name")
	}

	var (
		collection = resources.ComputeGlobalOperations
		scopeParam string
		scopeLink  string
	)
	switch {
	case op.Zone != "":
		collection, scopeParam, scopeLink = resources.ComputeZoneOperations, "zone", op.Zone
	case op.Region != "":
		collection, scopeParam, scopeLink = resources.ComputeRegionOperations, "region", op.Region
	}
	params := map[string]string{"operation": op.Name}
	if target, err := reg.ParseSelfLink(op.TargetLink); err == nil {
		params["project"] = target.Param("project")
	}
	if scopeLink != "" {
		if err := scopeParams(reg, scopeParam, scopeLink, params); err != nil {
			return nil, err
		}
	}
	ref, err := reg.Create(collection, params)
	if err != nil {
		return nil, err
	}
	return NewHandle(ref, op.OperationType)
}

// scopeParams fills project and zone or region from a scope self link, or
// only the scope from a bare zone or region name.
func scopeParams(reg *resources.Registry, name, link string, params map[string]string) error {
	if !strings.Contains(link, "/") {
		params[name] = link
		return nil
	}
	scope, err := reg.ParseSelfLink(link)
	if err != nil {
		return fmt.Errorf("failed to parse operation scope: %w", err)
	}
	for k, v := range scope.Params() {
		params[k] = v
	}
	return nil
}
