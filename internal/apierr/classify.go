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

// Package apierr classifies transport and API failures into the fixed
// model.ErrorKind taxonomy. Every function here is pure and never panics.
package apierr

import (
	"encoding/json"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/google/cloudsdk-go/pkg/model"
)

// maxRawBody bounds the raw body used as a message when the body is not JSON.
const maxRawBody = 4 << 10

const (
	badRequestType = "type.googleapis.com/google.rpc.BadRequest"
	errorInfoType  = "type.googleapis.com/google.rpc.ErrorInfo"
)

type errorBody struct {
	Error *struct {
		Code    int               `json:"code"`
		Status  string            `json:"status"`
		Message string            `json:"message"`
		Details []json.RawMessage `json:"details"`
	} `json:"error"`
}

type errorDetail struct {
	Type            string                 `json:"@type"`
	Reason          string                 `json:"reason"`
	FieldViolations []model.FieldViolation `json:"fieldViolations"`
}

// ClassifyStatus classifies an HTTP failure from its status code and body.
func ClassifyStatus(code int, body []byte, url string) *model.ClassifiedError {
	ce := &model.ClassifiedError{StatusCode: code, URL: url}

	var parsed errorBody
	if err := json.Unmarshal(body, &parsed); err != nil || parsed.Error == nil {
		ce.Kind, ce.Retriable = kindForStatus(code, "")
		ce.Message = rawMessage(code, body)
		return ce
	}

	ce.Kind, ce.Retriable = kindForStatus(code, parsed.Error.Status)
	ce.Violations, ce.Reason = parseDetails(parsed.Error.Details)
	ce.Message = composeMessage(ce.Violations, parsed.Error.Message, code)
	return ce
}

// ClassifyOperationError classifies the error embedded in a finished operation
// through the same table as transport failures.
func ClassifyOperationError(e *model.OperationError) *model.ClassifiedError {
	if e == nil {
		return nil
	}
	ce := &model.ClassifiedError{StatusCode: e.Code}
	if e.Code == 0 {
		ce.Kind, ce.Retriable = kindForStatusName(e.Status)
	} else {
		ce.Kind, ce.Retriable = kindForStatus(e.Code, e.Status)
	}
	ce.Violations, ce.Reason = parseDetails(e.Details)
	ce.Message = composeMessage(ce.Violations, e.Message, e.Code)
	return ce
}

// kindForStatus is the authoritative HTTP status mapping. status is the
// canonical status name from the body and only refines 400 and 409.
//
// Two rows extend the base table: 400 refined by FAILED_PRECONDITION and a
// bare 412 both classify as FAILED_PRECONDITION rather than INVALID_ARGUMENT
// and UNKNOWN.
func kindForStatus(code int, status string) (model.ErrorKind, bool) {
	switch code {
	case http.StatusBadRequest:
		if strings.Contains(status, "FAILED_PRECONDITION") {
			return model.ErrorKindFailedPrecondition, false
		}
		return model.ErrorKindInvalidArgument, false
	case http.StatusUnauthorized:
		return model.ErrorKindUnauthenticated, false
	case http.StatusForbidden:
		return model.ErrorKindPermissionDenied, false
	case http.StatusNotFound:
		return model.ErrorKindNotFound, false
	case http.StatusConflict:
		if strings.Contains(status, "ABORTED") {
			return model.ErrorKindAborted, false
		}
		return model.ErrorKindAlreadyExists, false
	case http.StatusPreconditionFailed:
		return model.ErrorKindFailedPrecondition, false
	case http.StatusTooManyRequests:
		return model.ErrorKindResourceExhausted, true
	case statusClientClosedRequest:
		return model.ErrorKindCanceled, false
	case http.StatusInternalServerError:
		return model.ErrorKindInternal, true
	case http.StatusBadGateway, http.StatusServiceUnavailable:
		return model.ErrorKindUnavailable, true
	case http.StatusGatewayTimeout:
		return model.ErrorKindDeadlineExceeded, true
	}
	if code > 500 && code < 600 {
		return model.ErrorKindInternal, true
	}
	return model.ErrorKindUnknown, false
}

// computeCodeToHTTP maps the error codes compute writes into operation errors
// onto the HTTP status the API uses for the same condition.
var computeCodeToHTTP = map[string]int{
	"RESOURCE_NOT_FOUND":                  http.StatusNotFound,
	"RESOURCE_ALREADY_EXISTS":             http.StatusConflict,
	"INVALID_FIELD_VALUE":                 http.StatusBadRequest,
	"BAD_REQUEST":                         http.StatusBadRequest,
	"PERMISSIONS_ERROR":                   http.StatusForbidden,
	"FORBIDDEN":                           http.StatusForbidden,
	"QUOTA_EXCEEDED":                      http.StatusTooManyRequests,
	"RATE_LIMIT_EXCEEDED":                 http.StatusTooManyRequests,
	"RESOURCE_OPERATION_RATE_EXCEEDED":    http.StatusTooManyRequests,
	"ZONE_RESOURCE_POOL_EXHAUSTED":        http.StatusTooManyRequests,
	"RESOURCE_IN_USE_BY_ANOTHER_RESOURCE": http.StatusPreconditionFailed,
	"RESOURCE_NOT_READY":                  http.StatusPreconditionFailed,
	"CONDITION_NOT_MET":                   http.StatusPreconditionFailed,
	"INTERNAL_ERROR":                      http.StatusInternalServerError,
	"SERVICE_UNAVAILABLE":                 http.StatusServiceUnavailable,
}

// kindForStatusName handles operation errors that carry no HTTP code. It
// accepts canonical status names and compute error codes.
func kindForStatusName(status string) (model.ErrorKind, bool) {
	if code, ok := statusNameToHTTP[status]; ok {
		return kindForStatus(code, status)
	}
	if code, ok := computeCodeToHTTP[status]; ok {
		return kindForStatus(code, status)
	}
	return model.ErrorKindUnknown, false
}

func parseDetails(details []json.RawMessage) ([]model.FieldViolation, string) {
	var violations []model.FieldViolation
	var reason string
	for _, raw := range details {
		var d errorDetail
		if err := json.Unmarshal(raw, &d); err != nil {
			continue
		}
		switch {
		case d.Type == errorInfoType && reason == "":
			reason = d.Reason
		case len(d.FieldViolations) > 0:
			for _, v := range d.FieldViolations {
				if v.Description != "" {
					violations = append(violations, v)
				}
			}
		}
	}
	return groupByField(violations), reason
}

// groupByField keeps violations of the same field adjacent, fields in
// first-seen order.
func groupByField(violations []model.FieldViolation) []model.FieldViolation {
	if len(violations) < 2 {
		return violations
	}
	var order []string
	byField := map[string][]model.FieldViolation{}
	for _, v := range violations {
		if _, ok := byField[v.Field]; !ok {
			order = append(order, v.Field)
		}
		byField[v.Field] = append(byField[v.Field], v)
	}
	grouped := make([]model.FieldViolation, 0, len(violations))
	for _, f := range order {
		grouped = append(grouped, byField[f]...)
	}
	return grouped
}

func composeMessage(violations []model.FieldViolation, message string, code int) string {
	if len(violations) > 0 {
		lines := make([]string, 0, len(violations)+1)
		lines = append(lines, "Problems:")
		for _, v := range violations {
			if v.Field == "" {
				lines = append(lines, "  "+v.Description)
				continue
			}
			lines = append(lines, "  "+v.Field+": "+v.Description)
		}
		return strings.Join(lines, "\n")
	}
	if message != "" {
		return message
	}
	return http.StatusText(code)
}

func rawMessage(code int, body []byte) string {
	if len(body) == 0 {
		return http.StatusText(code)
	}
	if len(body) > maxRawBody {
		// Cut on a rune boundary; bytes before the cut are kept as they are.
		n := maxRawBody
		for i := 0; i < utf8.UTFMax-1 && n > 0 && !utf8.RuneStart(body[n]); i++ {
			n--
		}
		body = body[:n]
	}
	return strings.TrimSpace(string(body))
}
