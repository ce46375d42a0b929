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

// Package progress renders the events of a wait for humans and automation.
package progress

import "github.com/google/cloudsdk-go/pkg/model"

// Outcome is how a tracked wait ended.
type Outcome string

// Defines the valid Outcome values.
const (
	OutcomeDone     Outcome = "done"
	OutcomeFailed   Outcome = "failed"
	OutcomeCanceled Outcome = "canceled"
)

// Tracker renders one wait. Calls arrive serially from a single EventSink:
// Start once, Tick any number of times, Done once.
type Tracker interface {
	Start(message string)
	Tick(detail string)
	Done(outcome Outcome)
}

// Observer is implemented by trackers that want the raw events as well.
// Observe is called before the matching Tracker method.
type Observer interface {
	Observe(e model.ProgressEvent)
}

// NoOp discards everything. It is used when user output is disabled.
type NoOp struct{}

func (NoOp) Start(string) {}
func (NoOp) Tick(string) {}
func (NoOp) Done(Outcome) {}

// Multi fans calls out to several trackers in order.
type Multi []Tracker

func (m Multi) Start(message string) {
	for _, t := range m {
		t.Start(message)
	}
}

func (m Multi) Tick(detail string) {
	for _, t := range m {
		t.Tick(detail)
	}
}

func (m Multi) Done(o Outcome) {
	for _, t := range m {
		t.Done(o)
	}
}

// Observe forwards e to every member that is an Observer.
func (m Multi) Observe(e model.ProgressEvent) {
	for _, t := range m {
		if o, ok := t.(Observer); ok {
			o.Observe(e)
		}
	}
}
