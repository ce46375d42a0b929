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

// Command cloudsdk issues cloud API calls and waits on the long-running
// operations they return.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/cloudsdk-go/internal/cli"
)

func main() {
	// The first interrupt cancels the context; waits then issue a best-effort
	// server-side cancel and the command exits with 130.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	cli.Execute(ctx)
}
