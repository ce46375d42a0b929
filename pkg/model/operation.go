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

package model

import (
	"encoding/json"
	"errors"
	"time"
)

// OperationStatus defines the set of possible statuses for an LRO.
type OperationStatus string

// Defines the valid OperationStatus values.
const (
	// OperationStatusPending indicates that the operation has been accepted but has not started.
	OperationStatusPending OperationStatus = "PENDING"
	// OperationStatusRunning indicates that the operation is in progress.
	OperationStatusRunning OperationStatus = "RUNNING"
	// OperationStatusDone indicates that the operation reached a terminal state.
	OperationStatusDone OperationStatus = "DONE"
)

// OperationTypeDelete is the operation type reported for deletions.
const OperationTypeDelete = "delete"

// ProgressUnknown is used when the service does not report a percentage.
const ProgressUnknown = -1

// OperationError is the error embedded in a finished operation. Code is an
// HTTP status code; Status is the canonical status name when known.
type OperationError struct {
	Code    int               `json:"code"`
	Status  string            `json:"status,omitempty"`
	Message string            `json:"message"`
	Details []json.RawMessage `json:"details,omitempty"`
}

// OperationState is a snapshot returned by one poll.
type OperationState struct {
	Done          bool            `json:"done"`
	Status        OperationStatus `json:"status"`
	Error         *OperationError `json:"error,omitempty"`
	TargetLink    string          `json:"targetLink,omitempty"`
	Progress      int             `json:"progress"`
	Phase         string          `json:"phase,omitempty"`
	OperationType string          `json:"operationType,omitempty"`
	Metadata      map[string]any  `json:"metadata,omitempty"`
}

// Succeeded reports whether the operation is done without an error.
func (s *OperationState) Succeeded() bool {
	return s != nil && s.Done && s.Error == nil
}

// IsDelete reports whether the operation removed its target.
func (s *OperationState) IsDelete() bool {
	return s != nil && s.OperationType == OperationTypeDelete
}

// Validate checks the invariants of a polled state.
func (s *OperationState) Validate() error {
	if s == nil {
		return errors.New("operation state is nil")
	}
	if s.Done != (s.Status == OperationStatusDone) {
		return errors.New("operation state: done flag disagrees with status " + string(s.Status))
	}
	if s.Done && s.Error != nil && s.TargetLink != "" {
		return errors.New("operation state: error and target link are both set")
	}
	if s.Progress < ProgressUnknown || s.Progress > 100 {
		return errors.New("operation state: progress out of range")
	}
	return nil
}

// Resource is a decoded API resource.
type Resource map[string]any

// ProgressEventType identifies a ProgressEvent.
type ProgressEventType string

// Defines the valid ProgressEventType values.
const (
	ProgressEventStarted   ProgressEventType = "STARTED"
	ProgressEventPolled    ProgressEventType = "POLLED"
	ProgressEventCompleted ProgressEventType = "COMPLETED"
	ProgressEventFailed    ProgressEventType = "FAILED"
	ProgressEventCanceled  ProgressEventType = "CANCELED"
)

// ProgressEvent is emitted by the poller for each state transition of one wait.
type ProgressEvent struct {
	Type       ProgressEventType `json:"type"`
	Operation  string            `json:"operation"`
	State      *OperationState   `json:"state,omitempty"`
	TargetLink string            `json:"targetLink,omitempty"`
	Error      *ClassifiedError  `json:"error,omitempty"`
	// RetryHint is set on POLLED events caused by a retriable failure.
	RetryHint string    `json:"retryHint,omitempty"`
	Time      time.Time `json:"time"`
}

// Terminal reports whether no event may follow e.
func (e ProgressEvent) Terminal() bool {
	switch e.Type {
	case ProgressEventCompleted, ProgressEventFailed, ProgressEventCanceled:
		return true
	}
	return false
}
