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

// Package cli wires the operation core into a small cobra command tree.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/google/cloudsdk-go/pkg/model"
)

// Exit codes.
const (
	ExitOK       = 0
	ExitError    = 1
	ExitUsage    = 2
	ExitCanceled = 130
)

var (
	project        string
	region         string
	zone           string
	billingProject string
	quiet          bool
	cfgFile        string
	verbosity      string
	logFile        string
	metricsFile    string
	progressTopic  string
	format         string

	// OsExit is a function that can be mocked in tests.
	OsExit = os.Exit
)

// errCanceled ends a command whose wait was interrupted by the user.
var errCanceled = errors.New("aborted by user")

// usageError marks errors caused by how the command was invoked.
type usageError struct {
	err error
}

func (e *usageError) Error() string { return e.err.Error() }
func (e *usageError) Unwrap() error { return e.err }

func usagef(format string, args ...any) error {
	return &usageError{err: fmt.Errorf(format, args...)}
}

// usageArgs marks positional argument errors as usage errors.
func usageArgs(v cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := v(cmd, args); err != nil {
			return &usageError{err: err}
		}
		return nil
	}
}

// RootCmd is the cloudsdk command.
var RootCmd = &cobra.Command{
	Use:   "cloudsdk",
	Short: "Manage cloud resources and the long-running operations they start.",
	Long: `cloudsdk issues cloud API calls and waits for the long-running operations
they return, printing progress while it polls.`,
	Args:              cobra.ArbitraryArgs,
	SilenceErrors:     true,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
	RunE:              groupRun,
}

func init() {
	pf := RootCmd.PersistentFlags()
	pf.StringVar(&project, "project", "", "Project to use for this invocation")
	pf.StringVar(&region, "region", "", "Region to use for this invocation")
	pf.StringVar(&zone, "zone", "", "Zone to use for this invocation")
	pf.StringVar(&billingProject, "billing-project", "", "Project to bill quota to, or LEGACY / CURRENT_PROJECT")
	pf.BoolVarP(&quiet, "quiet", "q", false, "Disable progress output and prompts")
	pf.StringVar(&cfgFile, "config", "", "Properties file (default $CLOUDSDK_CONFIG/properties.yaml)")
	pf.StringVar(&verbosity, "verbosity", "warning", "Log level: debug, info, warning, error, critical, none")
	pf.StringVar(&logFile, "log-file", "", "Also write JSON logs to this file, rotated by size")
	pf.StringVar(&metricsFile, "metrics-file", "", "Write Prometheus metrics to this textfile on exit")
	pf.StringVar(&progressTopic, "progress-topic", "", "Publish progress events to this Pub/Sub topic (projects/P/topics/T)")
	pf.StringVar(&format, "format", "yaml", "Output format: yaml or json")

	RootCmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &usageError{err: err}
	})

	RootCmd.AddCommand(newOperationsCmd(), newComputeCmd(), newResourcesCmd())
}

// groupRun prints help for command groups and rejects unknown subcommands.
func groupRun(cmd *cobra.Command, args []string) error {
	if len(args) > 0 {
		return usagef("unknown command %q for %q", args[0], cmd.CommandPath())
	}
	return cmd.Help()
}

func newGroupCmd(use, short string, children ...*cobra.Command) *cobra.Command {
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ArbitraryArgs,
		RunE:  groupRun,
	}
	cmd.AddCommand(children...)
	return cmd
}

// Execute runs the command tree and exits with the mapped exit code.
func Execute(ctx context.Context) {
	err := RootCmd.ExecuteContext(ctx)
	teardown(ctx)
	code := exitCode(err)
	if code != ExitOK {
		report(RootCmd.ErrOrStderr(), err)
		OsExit(code)
	}
}

func exitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	if errors.Is(err, errCanceled) {
		return ExitCanceled
	}
	var ue *usageError
	if errors.As(err, &ue) {
		return ExitUsage
	}
	var ce *model.ClassifiedError
	if errors.As(err, &ce) && ce.Kind == model.ErrorKindCanceled {
		return ExitCanceled
	}
	return ExitError
}

// report prints err the way the user sees it: classified errors as
// "KIND: message" with indented detail lines, others with an "Error:" prefix.
func report(w io.Writer, err error) {
	if errors.Is(err, errCanceled) {
		return
	}
	var ce *model.ClassifiedError
	if errors.As(err, &ce) {
		fmt.Fprintln(w, ce.Render())
		return
	}
	fmt.Fprintf(w, "Error: %v\n", err)
	var ue *usageError
	if errors.As(err, &ue) {
		fmt.Fprintf(w, "Run '%s --help' for usage.\n", RootCmd.Name())
	}
}
