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

package apierr

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/url"

	"github.com/google/cloudsdk-go/pkg/model"

	"github.com/googleapis/gax-go/v2/apierror"
	"google.golang.org/api/googleapi"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// statusClientClosedRequest is the non-standard code google APIs use for CANCELLED.
const statusClientClosedRequest = 499

var codeToHTTP = map[codes.Code]int{
	codes.OK:                 http.StatusOK,
	codes.Canceled:           statusClientClosedRequest,
	codes.Unknown:            http.StatusInternalServerError,
	codes.InvalidArgument:    http.StatusBadRequest,
	codes.DeadlineExceeded:   http.StatusGatewayTimeout,
	codes.NotFound:           http.StatusNotFound,
	codes.AlreadyExists:      http.StatusConflict,
	codes.PermissionDenied:   http.StatusForbidden,
	codes.ResourceExhausted:  http.StatusTooManyRequests,
	codes.FailedPrecondition: http.StatusBadRequest,
	codes.Aborted:            http.StatusConflict,
	codes.OutOfRange:         http.StatusBadRequest,
	codes.Unimplemented:      http.StatusNotImplemented,
	codes.Internal:           http.StatusInternalServerError,
	codes.Unavailable:        http.StatusServiceUnavailable,
	codes.DataLoss:           http.StatusInternalServerError,
	codes.Unauthenticated:    http.StatusUnauthorized,
}

var codeToName = map[codes.Code]string{
	codes.OK:                 "OK",
	codes.Canceled:           "CANCELLED",
	codes.Unknown:            "UNKNOWN",
	codes.InvalidArgument:    "INVALID_ARGUMENT",
	codes.DeadlineExceeded:   "DEADLINE_EXCEEDED",
	codes.NotFound:           "NOT_FOUND",
	codes.AlreadyExists:      "ALREADY_EXISTS",
	codes.PermissionDenied:   "PERMISSION_DENIED",
	codes.ResourceExhausted:  "RESOURCE_EXHAUSTED",
	codes.FailedPrecondition: "FAILED_PRECONDITION",
	codes.Aborted:            "ABORTED",
	codes.OutOfRange:         "OUT_OF_RANGE",
	codes.Unimplemented:      "UNIMPLEMENTED",
	codes.Internal:           "INTERNAL",
	codes.Unavailable:        "UNAVAILABLE",
	codes.DataLoss:           "DATA_LOSS",
	codes.Unauthenticated:    "UNAUTHENTICATED",
}

var statusNameToHTTP = func() map[string]int {
	m := make(map[string]int, len(codeToName))
	for c, name := range codeToName {
		m[name] = codeToHTTP[c]
	}
	return m
}()

// HTTPStatusForCode maps a google.rpc code onto the HTTP status used by the
// classification table.
func HTTPStatusForCode(c codes.Code) int {
	if s, ok := codeToHTTP[c]; ok {
		return s
	}
	return http.StatusInternalServerError
}

// StatusName returns the canonical upper-case name of a google.rpc code.
func StatusName(c codes.Code) string {
	if n, ok := codeToName[c]; ok {
		return n
	}
	return "UNKNOWN"
}

// FromError classifies any error returned by an API client or the transport.
// It returns nil for a nil error.
func FromError(err error) *model.ClassifiedError {
	if err == nil {
		return nil
	}

	var ce *model.ClassifiedError
	if errors.As(err, &ce) {
		return ce
	}

	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		out := ClassifyStatus(gerr.Code, []byte(gerr.Body), "")
		if gerr.Body == "" && gerr.Message != "" {
			out.Message = gerr.Message
		}
		out.Err = err
		return out
	}

	switch {
	case errors.Is(err, context.Canceled):
		return &model.ClassifiedError{Kind: model.ErrorKindCanceled, Message: "request canceled", Err: err}
	case errors.Is(err, context.DeadlineExceeded):
		return &model.ClassifiedError{Kind: model.ErrorKindDeadlineExceeded, Message: "request timed out", Retriable: true, Err: err}
	}

	if ae, ok := apierror.FromError(err); ok {
		return fromAPIError(ae, err)
	}
	if st, ok := status.FromError(err); ok && st.Code() != codes.Unknown {
		code := HTTPStatusForCode(st.Code())
		out := &model.ClassifiedError{StatusCode: code, Message: st.Message(), Err: err}
		out.Kind, out.Retriable = kindForStatus(code, StatusName(st.Code()))
		return out
	}

	var uerr *url.Error
	var nerr net.Error
	if errors.As(err, &uerr) || errors.As(err, &nerr) {
		return &model.ClassifiedError{Kind: model.ErrorKindUnavailable, Message: err.Error(), Retriable: true, Err: err}
	}
	return &model.ClassifiedError{Kind: model.ErrorKindUnknown, Message: err.Error(), Err: err}
}

func fromAPIError(ae *apierror.APIError, err error) *model.ClassifiedError {
	out := &model.ClassifiedError{Reason: ae.Reason(), Err: err}
	statusName := ""
	code := ae.HTTPCode()
	if st := ae.GRPCStatus(); st != nil {
		statusName = StatusName(st.Code())
		if code <= 0 {
			code = HTTPStatusForCode(st.Code())
		}
		out.Message = st.Message()
	}
	out.StatusCode = code
	out.Kind, out.Retriable = kindForStatus(code, statusName)

	for _, fv := range ae.Details().BadRequest.GetFieldViolations() {
		out.Violations = append(out.Violations, model.FieldViolation{Field: fv.GetField(), Description: fv.GetDescription()})
	}
	out.Violations = groupByField(out.Violations)
	if out.Message == "" {
		out.Message = ae.Error()
	}
	out.Message = composeMessage(out.Violations, out.Message, code)
	return out
}
