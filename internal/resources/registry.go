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

package resources

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
)

// ErrFrozen is returned when registering into a frozen registry.
var ErrFrozen = errors.New("resource registry is frozen")

type collectionKey struct {
	api, version, name string
}

// Registry maps (api, version, collection) to a Collection. It is populated
// at startup, frozen, and then shared read-only.
type Registry struct {
	mu          sync.RWMutex
	collections map[collectionKey]*Collection
	// order keeps registration order; the first version of a collection is
	// its default.
	order  []*Collection
	frozen bool
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{collections: map[collectionKey]*Collection{}}
}

// Register adds c. Registering an identical collection again is a no-op; a
// differing one, an unknown parent, or a parent cycle is an error.
func (r *Registry) Register(c Collection) error {
	if err := c.validate(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.frozen {
		return fmt.Errorf("register %s: %w", c.FullName(), ErrFrozen)
	}

	key := collectionKey{c.APIName, c.APIVersion, c.Name}
	if existing, ok := r.collections[key]; ok {
		if *existing == c {
			return nil
		}
		slog.Error("Registry: conflicting registration", "collection", c.FullName(), "version", c.APIVersion)
		return fmt.Errorf("collection %s %s already registered with a different definition", c.FullName(), c.APIVersion)
	}
	if err := r.checkParentLocked(&c); err != nil {
		return err
	}

	stored := c
	r.collections[key] = &stored
	r.order = append(r.order, &stored)
	return nil
}

// checkParentLocked requires the parent to be registered already and walks
// the chain to reject cycles.
func (r *Registry) checkParentLocked(c *Collection) error {
	seen := map[string]bool{c.FullName(): true}
	parent := c.Parent
	for parent != "" {
		if seen[parent] {
			return fmt.Errorf("collection %s: parent cycle through %s", c.FullName(), parent)
		}
		seen[parent] = true
		api, name, ok := strings.Cut(parent, ".")
		if !ok {
			return fmt.Errorf("collection %s: malformed parent %q", c.FullName(), parent)
		}
		p, ok := r.collections[collectionKey{api, c.APIVersion, name}]
		if !ok {
			return fmt.Errorf("collection %s: unknown parent %s", c.FullName(), parent)
		}
		parent = p.Parent
	}
	return nil
}

// Freeze makes the registry read-only.
func (r *Registry) Freeze() {
	r.mu.Lock()
	r.frozen = true
	r.mu.Unlock()
}

// Collection returns the collection for an exact (api, version, name) triple.
func (r *Registry) Collection(api, version, name string) (*Collection, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.collections[collectionKey{api, version, name}]
	return c, ok
}

// Lookup returns the default version of a collection by full name, e.g.
// "compute.instances".
func (r *Registry) Lookup(fullName string) (*Collection, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, c := range r.order {
		if c.FullName() == fullName {
			return c, true
		}
	}
	return nil, false
}

// Collections returns every registered collection in registration order.
func (r *Registry) Collections() []*Collection {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Collection, len(r.order))
	copy(out, r.order)
	return out
}
