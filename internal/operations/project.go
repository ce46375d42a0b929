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
	"encoding/json"
	"errors"
	"log/slog"
	"strings"

	"github.com/google/cloudsdk-go/pkg/model"

	crm "google.golang.org/api/cloudresourcemanager/v3"
)

// ProjectAdapter polls resource manager operations. linkBase is the
// canonical version URL, e.g. "https://cloudresourcemanager.googleapis.com/v3/".
type ProjectAdapter struct {
	svc      *crm.Service
	linkBase string
}

// NewProjectAdapter creates a ProjectAdapter.
func NewProjectAdapter(svc *crm.Service, linkBase string) (*ProjectAdapter, error) {
	if svc == nil {
		slog.Error("NewProjectAdapter: resource manager service cannot be nil")
		return nil, errors.New("resource manager service cannot be nil")
	}
	return &ProjectAdapter{svc: svc, linkBase: linkBase}, nil
}

// Poll issues operations.get.
func (a *ProjectAdapter) Poll(ctx context.Context, h *Handle) (*model.OperationState, error) {
	op, err := a.svc.Operations.Get(h.Ref.RelativeName()).Context(ctx).Do()
	if err != nil {
		return nil, classify(err, h.Ref.SelfLink())
	}
	lro := &longrunningOperation{
		Name:     op.Name,
		Done:     op.Done,
		Metadata: json.RawMessage(op.Metadata),
		Response: json.RawMessage(op.Response),
	}
	if op.Error != nil {
		lro.Error = &lroStatus{Code: int(op.Error.Code), Message: op.Error.Message}
		for _, d := range op.Error.Details {
			lro.Error.Details = append(lro.Error.Details, json.RawMessage(d))
		}
	}
	return lroState(lro, a.linkBase, h.OperationType), nil
}

// Cancel always fails: resource manager operations cannot be canceled.
func (a *ProjectAdapter) Cancel(ctx context.Context, h *Handle) error {
	return errCancelUnsupported(h.Kind)
}

// FetchTarget reads the project the operation produced.
func (a *ProjectAdapter) FetchTarget(ctx context.Context, state *model.OperationState) (model.Resource, error) {
	if !HasTarget(state) {
		return nil, nil
	}
	name, ok := strings.CutPrefix(state.TargetLink, a.linkBase)
	if !ok || !strings.HasPrefix(name, "projects/") {
		return nil, model.NewError(model.ErrorKindInvalidArgument, "target [%s] is not a project", state.TargetLink)
	}
	p, err := a.svc.Projects.Get(name).Context(ctx).Do()
	if err != nil {
		return nil, classify(err, state.TargetLink)
	}
	return toResource(p)
}
