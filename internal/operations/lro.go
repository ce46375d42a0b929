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
	"encoding/json"
	"strings"

	"github.com/google/cloudsdk-go/internal/apierr"
	"github.com/google/cloudsdk-go/pkg/model"

	"google.golang.org/grpc/codes"
)

// lroStatus is the google.rpc.Status embedded in a google.longrunning.Operation.
type lroStatus struct {
	Code    int               `json:"code"`
	Message string            `json:"message"`
	Details []json.RawMessage `json:"details,omitempty"`
}

// longrunningOperation is the JSON shape of google.longrunning.Operation.
type longrunningOperation struct {
	Name     string          `json:"name"`
	Metadata json.RawMessage `json:"metadata,omitempty"`
	Done     bool            `json:"done"`
	Error    *lroStatus      `json:"error,omitempty"`
	Response json.RawMessage `json:"response,omitempty"`
}

// lroState converts an LRO. linkBase is the version URL a relative response
// name is resolved against.
func lroState(op *longrunningOperation, linkBase, operationType string) *model.OperationState {
	state := &model.OperationState{
		Done:          op.Done,
		Status:        model.OperationStatusRunning,
		Progress:      model.ProgressUnknown,
		OperationType: operationType,
		Metadata:      map[string]any{"name": op.Name},
	}
	if op.Done {
		state.Status = model.OperationStatusDone
	}

	var meta map[string]any
	if len(op.Metadata) > 0 && json.Unmarshal(op.Metadata, &meta) == nil {
		for k, v := range meta {
			state.Metadata[k] = v
		}
		if p, ok := meta["progressPercent"].(float64); ok && p >= 0 && p <= 100 {
			state.Progress = int(p)
		}
		if v, ok := meta["verb"].(string); ok && state.OperationType == "" {
			state.OperationType = v
		}
	}

	if op.Error != nil {
		code := codes.Code(op.Error.Code)
		state.Error = &model.OperationError{
			Code:    apierr.HTTPStatusForCode(code),
			Status:  apierr.StatusName(code),
			Message: op.Error.Message,
			Details: op.Error.Details,
		}
		return state
	}
	if op.Done {
		state.TargetLink = responseLink(op.Response, linkBase)
	}
	return state
}

// responseLink derives the target from the response's selfLink or name.
func responseLink(response json.RawMessage, linkBase string) string {
	if len(response) == 0 {
		return ""
	}
	var r struct {
		SelfLink string `json:"selfLink"`
		Name     string `json:"name"`
	}
	if err := json.Unmarshal(response, &r); err != nil {
		return ""
	}
	switch {
	case r.SelfLink != "":
		return r.SelfLink
	case r.Name == "":
		return ""
	case strings.HasPrefix(r.Name, "https://") || strings.HasPrefix(r.Name, "http://"):
		return r.Name
	case linkBase == "":
		return ""
	}
	return linkBase + r.Name
}
