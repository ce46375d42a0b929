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
	"fmt"
	"strings"
)

// ErrorKind defines the category of a classified error.
type ErrorKind string

// Defines the valid ErrorKind values.
const (
	// ErrorKindNotFound indicates that a requested resource does not exist.
	ErrorKindNotFound ErrorKind = "NOT_FOUND"
	// ErrorKindPermissionDenied indicates that the caller lacks permission.
	ErrorKindPermissionDenied ErrorKind = "PERMISSION_DENIED"
	// ErrorKindAlreadyExists indicates that the resource being created already exists.
	ErrorKindAlreadyExists ErrorKind = "ALREADY_EXISTS"
	// ErrorKindInvalidArgument indicates that the request or a resource reference is malformed.
	ErrorKindInvalidArgument ErrorKind = "INVALID_ARGUMENT"
	// ErrorKindResourceExhausted indicates a quota or rate limit.
	ErrorKindResourceExhausted ErrorKind = "RESOURCE_EXHAUSTED"
	// ErrorKindFailedPrecondition indicates the system is not in a state required for the operation.
	ErrorKindFailedPrecondition ErrorKind = "FAILED_PRECONDITION"
	// ErrorKindAborted indicates a concurrency conflict such as a busy resource.
	ErrorKindAborted ErrorKind = "ABORTED"
	// ErrorKindUnavailable indicates the service is temporarily unavailable.
	ErrorKindUnavailable ErrorKind = "UNAVAILABLE"
	// ErrorKindDeadlineExceeded indicates a timeout, either of one call or of a whole wait.
	ErrorKindDeadlineExceeded ErrorKind = "DEADLINE_EXCEEDED"
	// ErrorKindInternal indicates a server-side error.
	ErrorKindInternal ErrorKind = "INTERNAL"
	// ErrorKindUnauthenticated indicates missing or invalid credentials.
	ErrorKindUnauthenticated ErrorKind = "UNAUTHENTICATED"
	// ErrorKindCanceled indicates that the request was canceled by the caller.
	ErrorKindCanceled ErrorKind = "CANCELLED"
	// ErrorKindUnknown is used when nothing more specific applies.
	ErrorKindUnknown ErrorKind = "UNKNOWN"
)

var validErrorKinds = map[ErrorKind]bool{
	ErrorKindNotFound:           true,
	ErrorKindPermissionDenied:   true,
	ErrorKindAlreadyExists:      true,
	ErrorKindInvalidArgument:    true,
	ErrorKindResourceExhausted:  true,
	ErrorKindFailedPrecondition: true,
	ErrorKindAborted:            true,
	ErrorKindUnavailable:        true,
	ErrorKindDeadlineExceeded:   true,
	ErrorKindInternal:           true,
	ErrorKindUnauthenticated:    true,
	ErrorKindCanceled:           true,
	ErrorKindUnknown:            true,
}

// Valid reports whether k is one of the defined kinds.
func (k ErrorKind) Valid() bool {
	return validErrorKinds[k]
}

// MarshalJSON implements the json.Marshaler interface for ErrorKind.
func (k ErrorKind) MarshalJSON() ([]byte, error) {
	return json.Marshal(string(k))
}

// UnmarshalJSON implements the json.Unmarshaler interface for ErrorKind.
func (k *ErrorKind) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}
	*k = ErrorKind(str)
	if !validErrorKinds[*k] {
		return fmt.Errorf("invalid ErrorKind: %s", str)
	}
	return nil
}

// FieldViolation describes one invalid field reported by the server.
type FieldViolation struct {
	Field       string `json:"field"`
	Description string `json:"description"`
}

// ClassifiedError is the single outward-facing error type of the core.
type ClassifiedError struct {
	Kind       ErrorKind        `json:"kind"`
	Message    string           `json:"message"`
	Reason     string           `json:"reason,omitempty"`
	Retriable  bool             `json:"retriable"`
	StatusCode int              `json:"statusCode,omitempty"`
	URL        string           `json:"url,omitempty"`
	Violations []FieldViolation `json:"violations,omitempty"`
	Err        error            `json:"-"`
}

// NewError is a helper to create a ClassifiedError without an HTTP origin.
func NewError(kind ErrorKind, format string, args ...any) *ClassifiedError {
	return &ClassifiedError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Error makes ClassifiedError satisfy the error interface.
// The kind is always the upper-case prefix.
func (e *ClassifiedError) Error() string {
	if e.Message == "" {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap returns the underlying transport error, if any.
func (e *ClassifiedError) Unwrap() error {
	return e.Err
}

// Render returns the user-visible form: the first line is "KIND: message" and
// every further line of the message is indented.
func (e *ClassifiedError) Render() string {
	lines := strings.Split(e.Error(), "\n")
	for i := 1; i < len(lines); i++ {
		if !strings.HasPrefix(lines[i], "  ") {
			lines[i] = "  " + lines[i]
		}
	}
	return strings.Join(lines, "\n")
}

// IsKind reports whether err is a ClassifiedError of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var ce *ClassifiedError
	if errors.As(err, &ce) {
		return ce.Kind == kind
	}
	return false
}
