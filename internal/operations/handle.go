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

// Package operations adapts each service's operation API to one uniform
// poll/cancel/fetch contract.
package operations

import (
	"context"
	"errors"

	"github.com/google/cloudsdk-go/internal/apierr"
	"github.com/google/cloudsdk-go/internal/resources"
	"github.com/google/cloudsdk-go/pkg/model"
)

// Kind selects the adapter variant for a handle.
type Kind string

// Defines the valid Kind values.
const (
	KindGlobal   Kind = "global"
	KindRegional Kind = "regional"
	KindZonal    Kind = "zonal"
	KindProject  Kind = "project"
	KindService  Kind = "service"
)

// Handle identifies one in-flight operation.
type Handle struct {
	Ref  *resources.Ref
	Kind Kind
	// OperationType is the verb that started the operation, e.g. "insert" or
	// "delete", when the caller knows it.
	OperationType string
}

// NewHandle wraps ref, deriving the kind from its collection.
func NewHandle(ref *resources.Ref, operationType string) (*Handle, error) {
	if ref == nil {
		return nil, errors.New("operation ref cannot be nil")
	}
	return &Handle{Ref: ref, Kind: KindFor(ref.Collection()), OperationType: operationType}, nil
}

// KindFor maps an operations collection to its adapter kind.
func KindFor(c *resources.Collection) Kind {
	switch c.FullName() {
	case resources.ComputeGlobalOperations:
		return KindGlobal
	case resources.ComputeRegionOperations:
		return KindRegional
	case resources.ComputeZoneOperations:
		return KindZonal
	case resources.ProjectOperations:
		return KindProject
	}
	return KindService
}

// Name returns the operation id.
func (h *Handle) Name() string {
	return h.Ref.Name()
}

// String returns the operation's relative name.
func (h *Handle) String() string {
	return h.Ref.RelativeName()
}

// Adapter hides one service's operation API.
type Adapter interface {
	// Poll returns a snapshot or a *model.ClassifiedError.
	Poll(ctx context.Context, h *Handle) (*model.OperationState, error)
	// Cancel asks the server to stop the operation. Services without a
	// cancel RPC return FAILED_PRECONDITION.
	Cancel(ctx context.Context, h *Handle) error
	// FetchTarget resolves the resource a successful operation produced. It
	// returns nil for deletes and operations without a target.
	FetchTarget(ctx context.Context, state *model.OperationState) (model.Resource, error)
}

// HasTarget reports whether a follow-up Get makes sense for state.
func HasTarget(state *model.OperationState) bool {
	return state.Succeeded() && !state.IsDelete() && state.TargetLink != ""
}

func errCancelUnsupported(k Kind) error {
	return model.NewError(model.ErrorKindFailedPrecondition, "%s operations cannot be canceled", k)
}

// classify turns a client error into a ClassifiedError that names the URL.
func classify(err error, url string) error {
	ce := apierr.FromError(err)
	if ce.URL == "" {
		ce.URL = url
	}
	return ce
}
