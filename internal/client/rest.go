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

package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/google/cloudsdk-go/internal/apierr"
)

// maxErrorBody bounds how much of an error response is read.
const maxErrorBody = 64 << 10

// RESTClient issues JSON requests relative to one service version URL, e.g.
// "https://run.googleapis.com/v2/".
type RESTClient struct {
	client  *http.Client
	baseURL string
}

// NewRESTClient creates a RESTClient over a shared HTTP client.
func NewRESTClient(hc *http.Client, baseURL string) (*RESTClient, error) {
	if hc == nil {
		slog.Error("NewRESTClient: http client cannot be nil")
		return nil, errors.New("http client cannot be nil")
	}
	if baseURL == "" {
		slog.Error("NewRESTClient: base url cannot be empty")
		return nil, errors.New("base url cannot be empty")
	}
	return &RESTClient{client: hc, baseURL: baseURL}, nil
}

// BaseURL returns the version URL requests are resolved against.
func (c *RESTClient) BaseURL() string {
	return c.baseURL
}

var jsonMarshal = json.Marshal

// Get fetches path and decodes the JSON response into out.
func (c *RESTClient) Get(ctx context.Context, path string, out any) error {
	return c.do(ctx, http.MethodGet, c.baseURL+path, nil, out)
}

// GetURL fetches an absolute URL such as a self link.
func (c *RESTClient) GetURL(ctx context.Context, url string, out any) error {
	return c.do(ctx, http.MethodGet, url, nil, out)
}

// Post sends body as JSON to path and decodes the response into out. A nil
// body sends "{}".
func (c *RESTClient) Post(ctx context.Context, path string, body, out any) error {
	if body == nil {
		body = struct{}{}
	}
	return c.do(ctx, http.MethodPost, c.baseURL+path, body, out)
}

// do returns a *model.ClassifiedError for every failure.
func (c *RESTClient) do(ctx context.Context, method, url string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := jsonMarshal(body)
		if err != nil {
			slog.ErrorContext(ctx, "RESTClient: Failed to marshal request", "url", url, "error", err)
			return apierr.FromError(fmt.Errorf("failed to marshal request: %w", err))
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		slog.ErrorContext(ctx, "RESTClient: Failed to create HTTP request", "url", url, "error", err)
		return apierr.FromError(fmt.Errorf("failed to create HTTP request: %w", err))
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	slog.DebugContext(ctx, "RESTClient: Sending request", "method", method, "url", url)
	resp, err := c.client.Do(req)
	if err != nil {
		slog.DebugContext(ctx, "RESTClient: Request failed", "method", method, "url", url, "error", err)
		ce := apierr.FromError(err)
		if ce.URL == "" {
			ce.URL = url
		}
		return ce
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		slog.DebugContext(ctx, "RESTClient: Non-OK status", "method", method, "url", url, "status_code", resp.StatusCode)
		return apierr.ClassifyStatus(resp.StatusCode, data, url)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && !errors.Is(err, io.EOF) {
		slog.ErrorContext(ctx, "RESTClient: Failed to decode response", "url", url, "error", err)
		return apierr.FromError(fmt.Errorf("failed to decode response from %s: %w", url, err))
	}
	return nil
}
