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

package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"sync"

	"github.com/spf13/cobra"
	crm "google.golang.org/api/cloudresourcemanager/v3"
	compute "google.golang.org/api/compute/v1"
	"google.golang.org/api/option"
	"gopkg.in/yaml.v3"

	"github.com/google/cloudsdk-go/internal/client"
	clog "github.com/google/cloudsdk-go/internal/log"
	"github.com/google/cloudsdk-go/internal/operations"
	"github.com/google/cloudsdk-go/internal/progress"
	"github.com/google/cloudsdk-go/internal/properties"
	"github.com/google/cloudsdk-go/internal/resources"
	"github.com/google/cloudsdk-go/internal/telemetry"
	"github.com/google/cloudsdk-go/internal/waiter"
	"github.com/google/cloudsdk-go/pkg/model"
)

// env is what one invocation shares between its commands.
type env struct {
	cfg       *properties.Config
	props     *properties.Properties
	registry  *resources.Registry
	metrics   *telemetry.Metrics
	publisher *progress.PubSub
	logCloser io.Closer
}

// rt is set by setup and released by teardown.
var rt *env

// newTokenSource is replaced in tests.
var newTokenSource = client.TokenSource

func setup(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	if format != "yaml" && format != "json" {
		return usagef("invalid --format %q: expected yaml or json", format)
	}
	logCfg := clog.DefaultConfig()
	logCfg.Level = verbosity
	logCfg.File = logFile
	closer, err := clog.Setup(logCfg, stderrFile(cmd))
	if err != nil {
		return &usageError{err: err}
	}
	e := &env{logCloser: closer}
	rt = e

	path := cfgFile
	if path == "" {
		path = properties.DefaultConfigPath()
	}
	if e.cfg, err = properties.LoadConfig(path); err != nil {
		return model.NewError(model.ErrorKindInvalidArgument, "%v", err)
	}
	e.props = properties.New(e.cfg, properties.Overrides{
		Project:        &project,
		Region:         &region,
		Zone:           &zone,
		BillingProject: &billingProject,
		Quiet:          &quiet,
	})
	if e.registry, err = resources.NewDefaultRegistry(); err != nil {
		return fmt.Errorf("failed to build resource registry: %w", err)
	}
	if metricsFile != "" {
		if e.metrics, err = telemetry.NewMetrics(); err != nil {
			return err
		}
	}
	if progressTopic != "" {
		var opts []option.ClientOption
		if ep := e.cfg.Get("api_endpoint_overrides", "pubsub"); ep != "" {
			opts = append(opts, option.WithEndpoint(ep))
		}
		if e.publisher, err = progress.OpenPubSub(ctx, progressTopic, opts...); err != nil {
			return fmt.Errorf("failed to open progress topic: %w", err)
		}
	}
	slog.DebugContext(ctx, "CLI: Invocation configured", "command", cmd.CommandPath(), "properties", path)
	return nil
}

// teardown flushes what setup opened. It runs even when the command failed.
func teardown(ctx context.Context) {
	e := rt
	rt = nil
	if e == nil {
		return
	}
	if e.publisher != nil {
		if err := e.publisher.Close(ctx); err != nil {
			slog.WarnContext(ctx, "CLI: Failed to flush progress events", "error", err)
		}
	}
	if err := e.metrics.WriteToTextfile(metricsFile); err != nil {
		slog.WarnContext(ctx, "CLI: Failed to write metrics", "error", err)
	}
	if e.logCloser != nil {
		e.logCloser.Close()
	}
}

// clients builds the authorized API clients, honoring endpoint overrides.
func (e *env) clients(ctx context.Context) (operations.Clients, error) {
	ts, err := newTokenSource(ctx)
	if err != nil {
		return operations.Clients{}, model.NewError(model.ErrorKindUnauthenticated, "%v", err)
	}
	tc := client.DefaultTransportConfig()
	tc.QuotaProject = e.props.QuotaProject
	tc.TokenSource = ts
	hc := client.NewHTTPClient(tc)

	computeSvc, err := compute.NewService(ctx, e.serviceOptions(hc, "compute", "")...)
	if err != nil {
		return operations.Clients{}, fmt.Errorf("failed to create compute client: %w", err)
	}
	crmSvc, err := crm.NewService(ctx, e.serviceOptions(hc, "cloudresourcemanager", "v3/")...)
	if err != nil {
		return operations.Clients{}, fmt.Errorf("failed to create resource manager client: %w", err)
	}
	return operations.Clients{
		Compute:         computeSvc,
		ResourceManager: crmSvc,
		HTTP:            hc,
		Registry:        e.registry,
		Endpoint: func(api string) string {
			return e.cfg.Get("api_endpoint_overrides", api)
		},
	}, nil
}

// serviceOptions hands hc to a generated client. Overrides name the version
// URL; versionPath is stripped for clients whose base path omits it.
func (e *env) serviceOptions(hc *http.Client, api, versionPath string) []option.ClientOption {
	opts := []option.ClientOption{option.WithHTTPClient(hc)}
	if ep := e.cfg.Get("api_endpoint_overrides", api); ep != "" {
		opts = append(opts, option.WithEndpoint(strings.TrimSuffix(ep, versionPath)))
	}
	return opts
}

// newWaiter builds a waiter writing progress to stderr. Several concurrent
// waits always use the line-per-transition console.
func (e *env) newWaiter(cmd *cobra.Command, concurrent bool) (*waiter.Waiter, error) {
	opts := []waiter.Option{
		waiter.WithQuiet(!e.props.UserOutputEnabled()),
		waiter.WithInteractive(!concurrent && progress.IsInteractive(stderrFile(cmd))),
		waiter.WithCommandName(RootCmd.Name()),
		waiter.WithCallTimeout(callTimeout),
	}
	if e.metrics != nil {
		opts = append(opts, waiter.WithMetrics(e.metrics))
	}
	if e.publisher != nil {
		opts = append(opts, waiter.WithTracker(e.publisher))
	}
	progressOut := cmd.ErrOrStderr()
	if concurrent {
		progressOut = &lockedWriter{w: progressOut}
	}
	return waiter.New(cmd.OutOrStdout(), progressOut, opts...)
}

// lockedWriter keeps lines from concurrent waits whole.
type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}

func stderrFile(cmd *cobra.Command) *os.File {
	f, _ := cmd.ErrOrStderr().(*os.File)
	return f
}

var jsonMarshal = json.Marshal

// printValue writes v in the selected format, using its JSON field names.
func printValue(w io.Writer, v any) error {
	data, err := jsonMarshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	if format == "json" {
		var buf bytes.Buffer
		if err := json.Indent(&buf, data, "", "  "); err != nil {
			return fmt.Errorf("failed to encode output: %w", err)
		}
		buf.WriteByte('\n')
		_, err = buf.WriteTo(w)
		return err
	}
	var generic any
	if err := yaml.Unmarshal(data, &generic); err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	out, err := yaml.Marshal(generic)
	if err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	_, err = w.Write(out)
	return err
}
