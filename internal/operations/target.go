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
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/cloudsdk-go/internal/client"
	"github.com/google/cloudsdk-go/internal/resources"
	"github.com/google/cloudsdk-go/pkg/model"

	compute "google.golang.org/api/compute/v1"
)

// TargetGetter resolves a target link to the resource it names.
type TargetGetter interface {
	GetTarget(ctx context.Context, link string) (model.Resource, error)
}

// LinkTargets fetches any target link with a plain GET.
type LinkTargets struct {
	rest *client.RESTClient
}

// NewLinkTargets creates a LinkTargets over rest.
func NewLinkTargets(rest *client.RESTClient) *LinkTargets {
	return &LinkTargets{rest: rest}
}

// GetTarget implements TargetGetter.
func (t *LinkTargets) GetTarget(ctx context.Context, link string) (model.Resource, error) {
	var out model.Resource
	if err := t.rest.GetURL(ctx, link, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ComputeTargets uses the typed compute client for the collections it knows
// and falls back to a plain GET for the rest.
type ComputeTargets struct {
	svc      *compute.Service
	registry *resources.Registry
	fallback TargetGetter
}

// NewComputeTargets creates a ComputeTargets. fallback may be nil.
func NewComputeTargets(svc *compute.Service, registry *resources.Registry, fallback TargetGetter) *ComputeTargets {
	return &ComputeTargets{svc: svc, registry: registry, fallback: fallback}
}

// GetTarget implements TargetGetter.
func (t *ComputeTargets) GetTarget(ctx context.Context, link string) (model.Resource, error) {
	ref, err := t.registry.ParseSelfLink(link)
	if err != nil {
		return t.viaFallback(ctx, link, err)
	}

	var (
		obj  any
		gerr error
	)
	switch ref.Collection().FullName() {
	case resources.ComputeInstances:
		obj, gerr = t.svc.Instances.Get(ref.Param("project"), ref.Param("zone"), ref.Param("instance")).Context(ctx).Do()
	case resources.ComputeDisks:
		obj, gerr = t.svc.Disks.Get(ref.Param("project"), ref.Param("zone"), ref.Param("disk")).Context(ctx).Do()
	case resources.ComputeAddresses:
		obj, gerr = t.svc.Addresses.Get(ref.Param("project"), ref.Param("region"), ref.Param("address")).Context(ctx).Do()
	default:
		return t.viaFallback(ctx, link, fmt.Errorf("no typed getter for collection %s", ref.Collection().FullName()))
	}
	if gerr != nil {
		return nil, classify(gerr, link)
	}
	return toResource(obj)
}

func (t *ComputeTargets) viaFallback(ctx context.Context, link string, cause error) (model.Resource, error) {
	if t.fallback == nil {
		return nil, model.NewError(model.ErrorKindInvalidArgument, "cannot fetch target [%s]: %v", link, cause)
	}
	slog.DebugContext(ctx, "ComputeTargets: Using plain GET for target", "link", link, "reason", cause)
	return t.fallback.GetTarget(ctx, link)
}

// toResource converts a generated API struct into a generic resource.
func toResource(obj any) (model.Resource, error) {
	data, err := json.Marshal(obj)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal resource: %w", err)
	}
	var out model.Resource
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("failed to unmarshal resource: %w", err)
	}
	return out, nil
}
