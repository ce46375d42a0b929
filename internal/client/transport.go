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

// Package client builds the HTTP client shared by every API call of one
// command invocation.
package client

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const (
	userAgentHeader    = "User-Agent"
	quotaProjectHeader = "X-Goog-User-Project"

	// AccessTokenEnv overrides application default credentials.
	AccessTokenEnv = "CLOUDSDK_AUTH_ACCESS_TOKEN"

	cloudPlatformScope = "https://www.googleapis.com/auth/cloud-platform"
)

// TransportConfig holds configuration for the shared HTTP client.
type TransportConfig struct {
	UserAgent string `yaml:"userAgent"`
	// RetryMax bounds retries of connection-level failures. HTTP error
	// responses are never retried here; the poller owns that policy.
	RetryMax     int           `yaml:"retryMax"`
	RetryWaitMin time.Duration `yaml:"retryWaitMin"`
	RetryWaitMax time.Duration `yaml:"retryWaitMax"`
	// Timeout bounds each request, retries included. Zero means no limit.
	Timeout time.Duration `yaml:"timeout"`
	// QuotaProject returns the X-Goog-User-Project value, if any. It is
	// consulted per request.
	QuotaProject func() (string, bool) `yaml:"-"`
	// TokenSource authorizes requests. Nil sends unauthenticated requests.
	TokenSource oauth2.TokenSource `yaml:"-"`
}

// DefaultTransportConfig provides a sensible default configuration.
func DefaultTransportConfig() TransportConfig {
	return TransportConfig{ //nolint:gomnd // Default configuration values
		UserAgent:    "cloudsdk-go/0.1",
		RetryMax:     3,
		RetryWaitMin: 200 * time.Millisecond,
		RetryWaitMax: 2 * time.Second,
		Timeout:      60 * time.Second,
	}
}

// NewHTTPClient returns a client that retries connection failures, stamps
// user agent and quota project headers, and authorizes with cfg.TokenSource.
func NewHTTPClient(cfg TransportConfig) *http.Client {
	rc := retryablehttp.NewClient()
	rc.RetryMax = cfg.RetryMax
	rc.RetryWaitMin = cfg.RetryWaitMin
	rc.RetryWaitMax = cfg.RetryWaitMax
	rc.Logger = slog.Default()
	rc.CheckRetry = retryConnectionErrors

	var rt http.RoundTripper = &headerTransport{
		base:         rc.StandardClient().Transport,
		userAgent:    cfg.UserAgent,
		quotaProject: cfg.QuotaProject,
	}
	if cfg.TokenSource != nil {
		rt = &oauth2.Transport{Source: cfg.TokenSource, Base: rt}
	}
	return &http.Client{Transport: rt, Timeout: cfg.Timeout}
}

// retryConnectionErrors retries only when no response was received.
func retryConnectionErrors(ctx context.Context, resp *http.Response, err error) (bool, error) {
	if ctx.Err() != nil {
		return false, ctx.Err()
	}
	if err == nil {
		return false, nil
	}
	return retryablehttp.DefaultRetryPolicy(ctx, resp, err)
}

// TokenSource returns a static token from CLOUDSDK_AUTH_ACCESS_TOKEN when set,
// otherwise application default credentials.
func TokenSource(ctx context.Context) (oauth2.TokenSource, error) {
	if tok := os.Getenv(AccessTokenEnv); tok != "" {
		slog.DebugContext(ctx, "Transport: Using access token from environment", "env", AccessTokenEnv)
		return oauth2.StaticTokenSource(&oauth2.Token{AccessToken: tok, TokenType: "Bearer"}), nil
	}
	ts, err := google.DefaultTokenSource(ctx, cloudPlatformScope)
	if err != nil {
		return nil, fmt.Errorf("failed to find default credentials: %w", err)
	}
	return ts, nil
}

type headerTransport struct {
	base         http.RoundTripper
	userAgent    string
	quotaProject func() (string, bool)
}

// RoundTrip clones the request before setting headers, per the
// http.RoundTripper contract.
func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	if t.userAgent != "" {
		if ua := req.Header.Get(userAgentHeader); ua != "" {
			req.Header.Set(userAgentHeader, t.userAgent+" "+ua)
		} else {
			req.Header.Set(userAgentHeader, t.userAgent)
		}
	}
	req.Header.Del(quotaProjectHeader)
	if t.quotaProject != nil {
		if project, ok := t.quotaProject(); ok {
			req.Header.Set(quotaProjectHeader, project)
		}
	}
	return t.base.RoundTrip(req)
}
