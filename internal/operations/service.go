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
	"log/slog"

	"github.com/google/cloudsdk-go/internal/client"
	"github.com/google/cloudsdk-go/pkg/model"
)

// ServiceAdapter polls any google.longrunning.Operation over REST.
type ServiceAdapter struct {
	rest *client.RESTClient
}

// NewServiceAdapter creates a ServiceAdapter. rest must be rooted at the
// service's version URL.
func NewServiceAdapter(rest *client.RESTClient) (*ServiceAdapter, error) {
	if rest == nil {
		slog.Error("NewServiceAdapter: REST client cannot be nil")
		return nil, errors.New("REST client cannot be nil")
	}
	return &ServiceAdapter{rest: rest}, nil
}

// Poll issues GET {name}.
func (a *ServiceAdapter) Poll(ctx context.Context, h *Handle) (*model.OperationState, error) {
	var op longrunningOperation
	if err := a.rest.Get(ctx, h.Ref.RelativeName(), &op); err != nil {
		return nil, err
	}
	return lroState(&op, a.rest.BaseURL(), h.OperationType), nil
}

// Cancel issues POST {name}:cancel.
func (a *ServiceAdapter) Cancel(ctx context.Context, h *Handle) error {
	slog.InfoContext(ctx, "ServiceAdapter: Requesting cancellation", "operation", h.String())
	return a.rest.Post(ctx, h.Ref.RelativeName()+":cancel", nil, nil)
}

// FetchTarget issues GET on the target link.
func (a *ServiceAdapter) FetchTarget(ctx context.Context, state *model.OperationState) (model.Resource, error) {
	if !HasTarget(state) {
		return nil, nil
	}
	var out model.Resource
	if err := a.rest.GetURL(ctx, state.TargetLink, &out); err != nil {
		return nil, err
	}
	return out, nil
}
