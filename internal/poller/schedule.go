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

package poller

import (
	"fmt"
	"time"
)

// Schedule controls the delays between polls.
type Schedule struct {
	Initial    time.Duration `yaml:"initial"`
	Multiplier float64       `yaml:"multiplier"`
	Max        time.Duration `yaml:"max"`
	// MaxTotal bounds the whole wait; zero means unbounded.
	MaxTotal time.Duration `yaml:"maxTotal"`
	// Jitter spreads each delay uniformly over delay*(1±Jitter/2).
	Jitter float64 `yaml:"jitter"`
}

// DefaultSchedule returns 1s initial, x1.4, 30s max, 30m total, 0.1 jitter.
func DefaultSchedule() Schedule {
	return Schedule{ //nolint:gomnd // Default configuration values
		Initial:    time.Second,
		Multiplier: 1.4,
		Max:        30 * time.Second,
		MaxTotal:   30 * time.Minute,
		Jitter:     0.1,
	}
}

// Validate checks the schedule's invariants.
func (s Schedule) Validate() error {
	switch {
	case s.Initial < 0 || s.Max < 0 || s.MaxTotal < 0:
		return fmt.Errorf("schedule durations must not be negative: %+v", s)
	case s.Max == 0:
		return fmt.Errorf("schedule max delay must be positive")
	case s.Multiplier < 1:
		return fmt.Errorf("schedule multiplier %v must be at least 1", s.Multiplier)
	case s.Max < s.Initial:
		return fmt.Errorf("schedule max delay %v is below initial delay %v", s.Max, s.Initial)
	case s.Jitter < 0 || s.Jitter > 1:
		return fmt.Errorf("schedule jitter %v must be within [0, 1]", s.Jitter)
	}
	return nil
}

// next grows delay by the multiplier, capped at Max. A zero initial delay
// continues at Max.
func (s Schedule) next(delay time.Duration) time.Duration {
	if delay == 0 {
		return s.Max
	}
	grown := time.Duration(float64(delay) * s.Multiplier)
	if grown > s.Max || grown < delay {
		return s.Max
	}
	return grown
}

// jittered applies the jitter for a uniform sample r in [0, 1).
func (s Schedule) jittered(delay time.Duration, r float64) time.Duration {
	if s.Jitter == 0 || delay == 0 {
		return delay
	}
	return time.Duration(float64(delay) * (1 + s.Jitter*(r-0.5)))
}
