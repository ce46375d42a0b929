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
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"cloud.google.com/go/pubsub"
	"cloud.google.com/go/pubsub/pstest"
	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
	compute "google.golang.org/api/compute/v1"
	"google.golang.org/api/option"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"gopkg.in/yaml.v3"

	"github.com/google/cloudsdk-go/internal/poller"
)

const (
	computeV1    = "https://compute.googleapis.com/compute/v1/"
	instanceLink = computeV1 + "projects/p/zones/z/instances/i"
	addressLink  = computeV1 + "projects/p/regions/r/addresses/a"
)

// fakeCompute serves canned compute responses keyed by "METHOD path", with
// paths relative to the v1 root.
type fakeCompute struct {
	mu         sync.Mutex
	routes     map[string]any
	requests   []string
	requestIDs []string
}

// hang makes a route block until the client gives up.
type hang struct{}

func zoneOp(name, status, target, opType string) *compute.Operation {
	return &compute.Operation{
		Name:          name,
		Status:        status,
		OperationType: opType,
		TargetLink:    target,
		Zone:          computeV1 + "projects/p/zones/z",
		SelfLink:      computeV1 + "projects/p/zones/z/operations/" + name,
	}
}

func regionOp(name, status, target, opType string) *compute.Operation {
	return &compute.Operation{
		Name:          name,
		Status:        status,
		OperationType: opType,
		TargetLink:    target,
		Region:        computeV1 + "projects/p/regions/r",
		SelfLink:      computeV1 + "projects/p/regions/r/operations/" + name,
	}
}

func newFakeCompute() *fakeCompute {
	broken := zoneOp("op-broken", "DONE", computeV1+"projects/p/zones/z/instances/broken", "start")
	broken.HttpErrorStatusCode = http.StatusForbidden
	broken.Error = &compute.OperationError{Errors: []*compute.OperationErrorErrors{
		{Code: "QUOTA_EXCEEDED", Message: "Quota 'CPUS' exceeded."},
	}}
	return &fakeCompute{routes: map[string]any{
		"POST projects/p/zones/z/instances/i/start":      zoneOp("op-start", "RUNNING", instanceLink, "start"),
		"GET projects/p/zones/z/operations/op-start":     zoneOp("op-start", "DONE", instanceLink, "start"),
		"GET projects/p/zones/z/instances/i":             &compute.Instance{Name: "i", Status: "RUNNING", SelfLink: instanceLink},
		"DELETE projects/p/zones/z/instances/i":          zoneOp("op-delete", "RUNNING", instanceLink, "delete"),
		"GET projects/p/zones/z/operations/op-delete":    zoneOp("op-delete", "DONE", instanceLink, "delete"),
		"DELETE projects/p/regions/r/addresses/a":        regionOp("op-addr", "PENDING", addressLink, "delete"),
		"GET projects/p/regions/r/operations/op-addr":    regionOp("op-addr", "DONE", addressLink, "delete"),
		"POST projects/p/zones/z/instances/broken/start": zoneOp("op-broken", "RUNNING", computeV1+"projects/p/zones/z/instances/broken", "start"),
		"GET projects/p/zones/z/operations/op-broken":    broken,
	}}
}

func (f *fakeCompute) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	key := r.Method + " " + strings.TrimPrefix(r.URL.Path, "/compute/v1/")
	f.mu.Lock()
	f.requests = append(f.requests, key)
	if id := r.URL.Query().Get("requestId"); id != "" {
		f.requestIDs = append(f.requestIDs, id)
	}
	resp, ok := f.routes[key]
	f.mu.Unlock()

	if _, ok := resp.(hang); ok {
		<-r.Context().Done()
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":{"code":404,"message":"The resource was not found","status":"NOT_FOUND"}}`))
		return
	}
	json.NewEncoder(w).Encode(resp)
}

func (f *fakeCompute) seen() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.requests...)
}

// testEnv points the CLI at a fake compute server through a properties file.
type testEnv struct {
	compute *fakeCompute
	config  string
	dir     string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	fc := newFakeCompute()
	srv := httptest.NewServer(fc)
	t.Cleanup(srv.Close)

	dir := t.TempDir()
	cfg := filepath.Join(dir, "properties.yaml")
	props := "core:\n  project: p\ncompute:\n  region: r\n  zone: z\napi_endpoint_overrides:\n  compute: " + srv.URL + "/compute/v1/\n"
	require.NoError(t, os.WriteFile(cfg, []byte(props), 0o600))

	for _, name := range []string{"CLOUDSDK_CORE_PROJECT", "CLOUDSDK_COMPUTE_REGION", "CLOUDSDK_COMPUTE_ZONE", "CLOUDSDK_BILLING_QUOTA_PROJECT", "CLOUDSDK_CORE_USER_OUTPUT_ENABLED"} {
		t.Setenv(name, "")
	}

	origTokens, origSchedule := newTokenSource, defaultSchedule
	newTokenSource = func(context.Context) (oauth2.TokenSource, error) {
		return oauth2.StaticTokenSource(&oauth2.Token{AccessToken: "test-token"}), nil
	}
	defaultSchedule = func() poller.Schedule {
		return poller.Schedule{Initial: time.Millisecond, Multiplier: 1, Max: time.Millisecond, MaxTotal: 10 * time.Second}
	}
	t.Cleanup(func() { newTokenSource, defaultSchedule = origTokens, origSchedule })

	return &testEnv{compute: fc, config: cfg, dir: dir}
}

// resetFlags restores every flag in the tree to its default.
func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		f.Value.Set(f.DefValue)
		f.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

// run executes the command tree and returns stdout, stderr and the exit code.
func (e *testEnv) run(t *testing.T, args ...string) (string, string, int) {
	t.Helper()
	resetFlags(RootCmd)
	code := ExitOK
	origExit := OsExit
	OsExit = func(c int) { code = c }
	defer func() { OsExit = origExit }()

	var stdout, stderr bytes.Buffer
	RootCmd.SetOut(&stdout)
	RootCmd.SetErr(&stderr)
	defer func() {
		RootCmd.SetOut(nil)
		RootCmd.SetErr(nil)
	}()
	if e != nil {
		args = append([]string{"--config", e.config}, args...)
	}
	RootCmd.SetArgs(args)

	Execute(context.Background())
	return stdout.String(), stderr.String(), code
}

func TestInstancesStart_PrintsInstance(t *testing.T) {
	e := newTestEnv(t)
	stdout, stderr, code := e.run(t, "compute", "instances", "start", "i", "--format", "json")
	require.Equal(t, ExitOK, code, stderr)

	var got map[string]any
	require.NoError(t, json.Unmarshal([]byte(stdout), &got))
	assert.Equal(t, "i", got["name"])
	assert.Equal(t, instanceLink, got["selfLink"])

	assert.Equal(t, []string{
		"POST projects/p/zones/z/instances/i/start",
		"GET projects/p/zones/z/operations/op-start",
		"GET projects/p/zones/z/instances/i",
	}, e.compute.seen())
	require.Len(t, e.compute.requestIDs, 1)
	_, err := uuid.Parse(e.compute.requestIDs[0])
	assert.NoError(t, err)

	assert.True(t, strings.HasPrefix(stderr, "Starting ["+instanceLink+"]..."), stderr)
	assert.Contains(t, stderr, "done.")
}

func TestInstancesStart_LegacySelfLinks(t *testing.T) {
	e := newTestEnv(t)
	const legacy = "https://www.googleapis.com/compute/v1/"
	legacyOp := func(status string) *compute.Operation {
		op := zoneOp("op-start", status, legacy+"projects/p/zones/z/instances/i", "start")
		op.Zone = legacy + "projects/p/zones/z"
		op.SelfLink = legacy + "projects/p/zones/z/operations/op-start"
		return op
	}
	e.compute.routes["POST projects/p/zones/z/instances/i/start"] = legacyOp("RUNNING")
	e.compute.routes["GET projects/p/zones/z/operations/op-start"] = legacyOp("DONE")

	stdout, stderr, code := e.run(t, "compute", "instances", "start", "i", "--format", "json")
	require.Equal(t, ExitOK, code, stderr)

	var got map[string]any
	require.NoError(t, json.Unmarshal([]byte(stdout), &got))
	assert.Equal(t, "i", got["name"])
	assert.Equal(t, []string{
		"POST projects/p/zones/z/instances/i/start",
		"GET projects/p/zones/z/operations/op-start",
		"GET projects/p/zones/z/instances/i",
	}, e.compute.seen())
}

func TestInstancesDelete_NoFollowUpGet(t *testing.T) {
	e := newTestEnv(t)
	stdout, stderr, code := e.run(t, "compute", "instances", "delete", "zones/z/instances/i")
	require.Equal(t, ExitOK, code, stderr)

	assert.Empty(t, stdout)
	assert.Equal(t, []string{
		"DELETE projects/p/zones/z/instances/i",
		"GET projects/p/zones/z/operations/op-delete",
	}, e.compute.seen())
	assert.Contains(t, stderr, "Deleted ["+instanceLink+"].")
}

func TestAddressesDelete_RegionalOperation(t *testing.T) {
	e := newTestEnv(t)
	_, stderr, code := e.run(t, "compute", "addresses", "delete", "a")
	require.Equal(t, ExitOK, code, stderr)

	assert.Equal(t, []string{
		"DELETE projects/p/regions/r/addresses/a",
		"GET projects/p/regions/r/operations/op-addr",
	}, e.compute.seen())
	assert.Contains(t, stderr, "Deleted ["+addressLink+"].")
}

func TestInstancesStart_Async(t *testing.T) {
	e := newTestEnv(t)
	stdout, stderr, code := e.run(t, "compute", "instances", "start", "i", "--async")
	require.Equal(t, ExitOK, code, stderr)

	opLink := computeV1 + "projects/p/zones/z/operations/op-start"
	want := "Check operation [" + opLink + "] for its status.\nTo wait for it to finish, run:\n  $ cloudsdk operations wait " + opLink + "\n"
	if diff := cmp.Diff(want, stdout); diff != "" {
		t.Errorf("async output mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, []string{"POST projects/p/zones/z/instances/i/start"}, e.compute.seen())
}

func TestInstancesStart_OperationFailure(t *testing.T) {
	e := newTestEnv(t)
	stdout, stderr, code := e.run(t, "compute", "instances", "start", "broken")

	assert.Equal(t, ExitError, code)
	assert.Empty(t, stdout)
	assert.Contains(t, stderr, "PERMISSION_DENIED: Quota 'CPUS' exceeded.")
	assert.Contains(t, stderr, "failed.")
	assert.NotContains(t, e.compute.seen(), "GET projects/p/zones/z/instances/broken")
}

func TestInstancesStart_APIError(t *testing.T) {
	e := newTestEnv(t)
	_, stderr, code := e.run(t, "compute", "instances", "start", "missing")

	assert.Equal(t, ExitError, code)
	assert.True(t, strings.HasPrefix(stderr, "NOT_FOUND: "), stderr)
}

func TestInstancesStart_Quiet(t *testing.T) {
	e := newTestEnv(t)
	stdout, stderr, code := e.run(t, "-q", "compute", "instances", "start", "i")
	require.Equal(t, ExitOK, code, stderr)

	assert.Empty(t, stderr)
	var got map[string]any
	require.NoError(t, yaml.Unmarshal([]byte(stdout), &got))
	assert.Equal(t, "RUNNING", got["status"])
}

func TestOperationsDescribe(t *testing.T) {
	e := newTestEnv(t)
	stdout, stderr, code := e.run(t, "operations", "describe", "op-start", "--zone", "z", "--format", "json")
	require.Equal(t, ExitOK, code, stderr)

	var got map[string]any
	require.NoError(t, json.Unmarshal([]byte(stdout), &got))
	assert.Equal(t, "projects/p/zones/z/operations/op-start", got["name"])
	assert.Equal(t, computeV1+"projects/p/zones/z/operations/op-start", got["selfLink"])
	assert.Equal(t, "zonal", got["kind"])
	assert.Equal(t, true, got["done"])
	assert.Equal(t, "DONE", got["status"])
	assert.Equal(t, instanceLink, got["targetLink"])
}

func TestOperationsDescribe_CallDeadline(t *testing.T) {
	e := newTestEnv(t)
	e.compute.routes["GET projects/p/zones/z/operations/op-stuck"] = hang{}
	orig := callTimeout
	callTimeout = 50 * time.Millisecond
	t.Cleanup(func() { callTimeout = orig })

	stdout, stderr, code := e.run(t, "operations", "describe", "op-stuck", "--zone", "z")
	assert.Equal(t, ExitError, code)
	assert.Empty(t, stdout)
	assert.True(t, strings.HasPrefix(stderr, "DEADLINE_EXCEEDED:"), stderr)
}

func TestInstancesStart_FollowUpGetDeadline(t *testing.T) {
	e := newTestEnv(t)
	e.compute.routes["GET projects/p/zones/z/instances/i"] = hang{}
	orig := callTimeout
	callTimeout = 50 * time.Millisecond
	t.Cleanup(func() { callTimeout = orig })

	stdout, stderr, code := e.run(t, "compute", "instances", "start", "i")
	assert.Equal(t, ExitError, code)
	assert.Empty(t, stdout)
	assert.Contains(t, stderr, "DEADLINE_EXCEEDED:")
	assert.Equal(t, []string{
		"POST projects/p/zones/z/instances/i/start",
		"GET projects/p/zones/z/operations/op-start",
		"GET projects/p/zones/z/instances/i",
	}, e.compute.seen())
}

func TestOperationsWait(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		wantCode int
		wantErr  string
		wantGets []string
	}{
		{
			name:     "zonal by url",
			args:     []string{computeV1 + "projects/p/zones/z/operations/op-start"},
			wantCode: ExitOK,
			wantGets: []string{"GET projects/p/zones/z/operations/op-start"},
		},
		{
			name:     "zonal by legacy url",
			args:     []string{"https://www.googleapis.com/compute/v1/projects/p/zones/z/operations/op-start"},
			wantCode: ExitOK,
			wantGets: []string{"GET projects/p/zones/z/operations/op-start"},
		},
		{
			name:     "regional by suffix",
			args:     []string{"regions/r/operations/op-addr"},
			wantCode: ExitOK,
			wantGets: []string{"GET projects/p/regions/r/operations/op-addr"},
		},
		{
			name:     "several at once",
			args:     []string{"zones/z/operations/op-start", "zones/z/operations/op-delete", "regions/r/operations/op-addr"},
			wantCode: ExitOK,
			wantGets: []string{
				"GET projects/p/zones/z/operations/op-start",
				"GET projects/p/zones/z/operations/op-delete",
				"GET projects/p/regions/r/operations/op-addr",
			},
		},
		{
			name:     "one failure fails the command",
			args:     []string{"zones/z/operations/op-start", "zones/z/operations/op-broken"},
			wantCode: ExitError,
			wantErr:  "PERMISSION_DENIED",
			wantGets: []string{
				"GET projects/p/zones/z/operations/op-start",
				"GET projects/p/zones/z/operations/op-broken",
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestEnv(t)
			_, stderr, code := e.run(t, append([]string{"operations", "wait"}, tt.args...)...)
			assert.Equal(t, tt.wantCode, code, stderr)
			if tt.wantErr != "" {
				assert.Contains(t, stderr, tt.wantErr)
			}
			assert.ElementsMatch(t, tt.wantGets, e.compute.seen())
		})
	}
}

func TestOperationsCancel_ComputeUnsupported(t *testing.T) {
	e := newTestEnv(t)
	_, stderr, code := e.run(t, "operations", "cancel", "op-start", "--zone", "z")

	assert.Equal(t, ExitError, code)
	assert.True(t, strings.HasPrefix(stderr, "FAILED_PRECONDITION: zonal operations cannot be canceled"), stderr)
	assert.Empty(t, e.compute.seen())
}

func TestResourcesParse(t *testing.T) {
	e := newTestEnv(t)
	stdout, stderr, code := e.run(t, "resources", "parse", "compute.instances", "i", "--format", "json")
	require.Equal(t, ExitOK, code, stderr)

	var got parsedRef
	require.NoError(t, json.Unmarshal([]byte(stdout), &got))
	want := parsedRef{
		Collection:   "compute.instances",
		Params:       map[string]string{"project": "p", "zone": "z", "instance": "i"},
		RelativeName: "projects/p/zones/z/instances/i",
		SelfLink:     instanceLink,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("parse output mismatch (-want +got):\n%s", diff)
	}
}

func TestResourcesParse_FlagsBeatProperties(t *testing.T) {
	e := newTestEnv(t)
	stdout, stderr, code := e.run(t, "--project", "other", "--zone", "z2", "resources", "parse", "compute.instances", "i")
	require.Equal(t, ExitOK, code, stderr)

	var got map[string]any
	require.NoError(t, yaml.Unmarshal([]byte(stdout), &got))
	assert.Equal(t, "projects/other/zones/z2/instances/i", got["relativeName"])
}

func TestResourcesParse_Errors(t *testing.T) {
	e := newTestEnv(t)
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"unknown collection", []string{"nosuch.things", "x"}, "INVALID_ARGUMENT: unknown collection [nosuch.things]"},
		{"url of another collection", []string{"compute.instances", addressLink}, "INVALID_ARGUMENT"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, stderr, code := e.run(t, append([]string{"resources", "parse"}, tt.args...)...)
			assert.Equal(t, ExitError, code)
			assert.True(t, strings.HasPrefix(stderr, tt.want), stderr)
		})
	}
}

func TestResourcesCollections(t *testing.T) {
	e := newTestEnv(t)
	stdout, stderr, code := e.run(t, "resources", "collections")
	require.Equal(t, ExitOK, code, stderr)
	assert.Contains(t, stdout, "name: compute.zoneOperations")
	assert.Contains(t, stdout, "template: projects/{project}/zones/{zone}/operations/{operation}")
}

func TestMetricsAndLogFiles(t *testing.T) {
	e := newTestEnv(t)
	metrics := filepath.Join(e.dir, "cloudsdk.prom")
	logs := filepath.Join(e.dir, "cloudsdk.log")
	_, stderr, code := e.run(t, "--metrics-file", metrics, "--log-file", logs, "--verbosity", "debug",
		"compute", "instances", "start", "i")
	require.Equal(t, ExitOK, code, stderr)

	prom, err := os.ReadFile(metrics)
	require.NoError(t, err)
	assert.Contains(t, string(prom), `cloudsdk_operation_polls_total{kind="zonal",result="DONE"} 1`)
	assert.Contains(t, string(prom), `cloudsdk_operation_waits_total{kind="zonal",outcome="completed"} 1`)

	logged, err := os.ReadFile(logs)
	require.NoError(t, err)
	assert.Contains(t, string(logged), "Poller: Waiting for operation")
	assert.Contains(t, string(logged), "CLI: Issuing compute request")
}

func TestProgressTopic(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	srv := pstest.NewServer()
	t.Cleanup(func() { srv.Close() })
	conn, err := grpc.NewClient(srv.Addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	client, err := pubsub.NewClient(ctx, "p", option.WithGRPCConn(conn))
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })
	_, err = client.CreateTopic(ctx, "progress")
	require.NoError(t, err)
	t.Setenv("PUBSUB_EMULATOR_HOST", srv.Addr)

	_, stderr, code := e.run(t, "--progress-topic", "projects/p/topics/progress", "compute", "instances", "delete", "i")
	require.Equal(t, ExitOK, code, stderr)

	var types []string
	for _, m := range srv.Messages() {
		assert.Equal(t, "projects/p/zones/z/operations/op-delete", m.Attributes["operation"])
		types = append(types, m.Attributes["type"])
	}
	assert.ElementsMatch(t, []string{"STARTED", "POLLED", "COMPLETED"}, types)
}

func TestProgressTopic_Invalid(t *testing.T) {
	e := newTestEnv(t)
	_, stderr, code := e.run(t, "--progress-topic", "progress", "resources", "collections")
	assert.Equal(t, ExitError, code)
	assert.Contains(t, stderr, "expected projects/PROJECT/topics/TOPIC")
}
