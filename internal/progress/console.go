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

package progress

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"golang.org/x/term"
)

const (
	spinMarks           = `|/-\`
	defaultSpinInterval = 100 * time.Millisecond
)

var suffixes = map[Outcome]string{
	OutcomeDone:     "done.",
	OutcomeFailed:   "failed.",
	OutcomeCanceled: "aborted by ctrl-c.",
}

// IsInteractive reports whether f is attached to a terminal.
func IsInteractive(f *os.File) bool {
	return f != nil && term.IsTerminal(int(f.Fd()))
}

// Console writes progress to a terminal or a log stream.
//
// Interactive mode keeps a single line "message...<spin> detail" that is
// redrawn in place. Non-interactive mode writes one line per distinct
// transition: "message..." on start, "message...detail" when the detail
// changes, and "message...done." at the end.
type Console struct {
	w            io.Writer
	interactive  bool
	spinInterval time.Duration

	mu       sync.Mutex
	message  string
	detail   string
	spin     int
	lastLen  int
	finished bool
	stop     chan struct{}
	stopped  chan struct{}
}

// ConsoleOption configures a Console.
type ConsoleOption func(*Console)

// WithSpinInterval sets how often the interactive spinner advances.
func WithSpinInterval(d time.Duration) ConsoleOption {
	return func(c *Console) { c.spinInterval = d }
}

// NewConsole creates a console tracker writing to w.
func NewConsole(w io.Writer, interactive bool, opts ...ConsoleOption) *Console {
	c := &Console{w: w, interactive: interactive, spinInterval: defaultSpinInterval}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Start prints the message and, in interactive mode, starts the spinner.
func (c *Console) Start(message string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.message = message
	if !c.interactive {
		fmt.Fprintf(c.w, "%s...\n", message)
		return
	}
	c.redrawLocked()
	if c.spinInterval > 0 {
		c.stop = make(chan struct{})
		c.stopped = make(chan struct{})
		go c.spinLoop(c.stop, c.stopped)
	}
}

// Tick records a new detail. Repeated details are not printed again.
func (c *Console) Tick(detail string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.finished || detail == c.detail {
		return
	}
	c.detail = detail
	if !c.interactive {
		fmt.Fprintf(c.w, "%s...%s\n", c.message, detail)
		return
	}
	c.redrawLocked()
}

// Done stops the spinner and prints the outcome suffix.
func (c *Console) Done(o Outcome) {
	c.mu.Lock()
	if c.finished {
		c.mu.Unlock()
		return
	}
	c.finished = true
	stop, stopped := c.stop, c.stopped
	c.mu.Unlock()

	if stop != nil {
		close(stop)
		<-stopped
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	line := c.message + "..." + suffixes[o]
	if c.interactive {
		fmt.Fprintf(c.w, "\r%s\n", pad(line, c.lastLen))
		return
	}
	fmt.Fprintln(c.w, line)
}

func (c *Console) spinLoop(stop <-chan struct{}, stopped chan<- struct{}) {
	defer close(stopped)
	ticker := time.NewTicker(c.spinInterval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			c.mu.Lock()
			c.spin = (c.spin + 1) % len(spinMarks)
			c.redrawLocked()
			c.mu.Unlock()
		}
	}
}

func (c *Console) redrawLocked() {
	line := c.message + "..." + string(spinMarks[c.spin])
	if c.detail != "" {
		line += " " + c.detail
	}
	fmt.Fprintf(c.w, "\r%s", pad(line, c.lastLen))
	c.lastLen = len(line)
}

// pad blanks out what is left of a previous, longer line.
func pad(line string, prev int) string {
	if n := prev - len(line); n > 0 {
		return line + strings.Repeat(" ", n)
	}
	return line
}
