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

package operations

import (
	"fmt"
	"net/http"

	"github.com/google/cloudsdk-go/internal/client"
	"github.com/google/cloudsdk-go/internal/resources"

	crm "google.golang.org/api/cloudresourcemanager/v3"
	compute "google.golang.org/api/compute/v1"
)

// Clients carries the service clients adapters are built from. Any field may
// be nil when no handle of that kind is expected.
type Clients struct {
	Compute         *compute.Service
	ResourceManager *crm.Service
	HTTP            *http.Client
	Registry        *resources.Registry
	// Endpoint returns an override of an API's version URL, or "".
	Endpoint func(api string) string
}

func (c Clients) endpoint(col *resources.Collection) string {
	if c.Endpoint != nil {
		if e := c.Endpoint(col.APIName); e != "" {
			return e
		}
	}
	return col.VersionURL()
}

// NewAdapter selects the adapter variant for h.
func NewAdapter(h *Handle, c Clients) (Adapter, error) {
	switch h.Kind {
	case KindGlobal, KindRegional, KindZonal:
		var fallback TargetGetter
		if c.HTTP != nil {
			rest, err := client.NewRESTClient(c.HTTP, c.endpoint(h.Ref.Collection()))
			if err != nil {
				return nil, fmt.Errorf("failed to create target client: %w", err)
			}
			fallback = NewLinkTargets(rest)
		}
		a, err := NewComputeAdapter(c.Compute, NewComputeTargets(c.Compute, c.Registry, fallback))
		if err != nil {
			return nil, err
		}
		return a, nil
	case KindProject:
		a, err := NewProjectAdapter(c.ResourceManager, h.Ref.Collection().VersionURL())
		if err != nil {
			return nil, err
		}
		return a, nil
	case KindService:
		rest, err := client.NewRESTClient(c.HTTP, c.endpoint(h.Ref.Collection()))
		if err != nil {
			return nil, fmt.Errorf("failed to create service client for %s: %w", h.Ref.Collection().FullName(), err)
		}
		a, err := NewServiceAdapter(rest)
		if err != nil {
			return nil, err
		}
		return a, nil
	}
	return nil, fmt.Errorf("unknown operation kind %q", h.Kind)
}
