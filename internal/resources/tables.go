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

import "fmt"

// Full names of the built-in collections.
const (
	ComputeProjects         = "compute.projects"
	ComputeRegions          = "compute.regions"
	ComputeZones            = "compute.zones"
	ComputeInstances        = "compute.instances"
	ComputeDisks            = "compute.disks"
	ComputeAddresses        = "compute.addresses"
	ComputeGlobalOperations = "compute.globalOperations"
	ComputeRegionOperations = "compute.regionOperations"
	ComputeZoneOperations   = "compute.zoneOperations"
	ProjectOperations       = "cloudresourcemanager.operations"
	ServiceUsageOperations  = "serviceusage.operations"
	RunOperations           = "run.projects.locations.operations"
)

const computeBase = "https://compute.googleapis.com/compute/"

// computeLegacyBase is the root compute still writes into selfLink, zone and
// targetLink fields.
const computeLegacyBase = "https://www.googleapis.com/compute/"

// builtinCollections is ordered so that every parent precedes its children.
var builtinCollections = []Collection{
	{APIName: "compute", APIVersion: "v1", Name: "projects", BaseURL: computeBase, AltBaseURL: computeLegacyBase, PathTemplate: "projects/{project}"},
	{APIName: "compute", APIVersion: "v1", Name: "regions", BaseURL: computeBase, AltBaseURL: computeLegacyBase, PathTemplate: "projects/{project}/regions/{region}", Parent: ComputeProjects},
	{APIName: "compute", APIVersion: "v1", Name: "zones", BaseURL: computeBase, AltBaseURL: computeLegacyBase, PathTemplate: "projects/{project}/zones/{zone}", Parent: ComputeProjects},
	{APIName: "compute", APIVersion: "v1", Name: "instances", BaseURL: computeBase, AltBaseURL: computeLegacyBase, PathTemplate: "projects/{project}/zones/{zone}/instances/{instance}", Parent: ComputeZones},
	{APIName: "compute", APIVersion: "v1", Name: "disks", BaseURL: computeBase, AltBaseURL: computeLegacyBase, PathTemplate: "projects/{project}/zones/{zone}/disks/{disk}", Parent: ComputeZones},
	{APIName: "compute", APIVersion: "v1", Name: "addresses", BaseURL: computeBase, AltBaseURL: computeLegacyBase, PathTemplate: "projects/{project}/regions/{region}/addresses/{address}", Parent: ComputeRegions},
	{APIName: "compute", APIVersion: "v1", Name: "globalOperations", BaseURL: computeBase, AltBaseURL: computeLegacyBase, PathTemplate: "projects/{project}/global/operations/{operation}", Parent: ComputeProjects},
	{APIName: "compute", APIVersion: "v1", Name: "regionOperations", BaseURL: computeBase, AltBaseURL: computeLegacyBase, PathTemplate: "projects/{project}/regions/{region}/operations/{operation}", Parent: ComputeRegions},
	{APIName: "compute", APIVersion: "v1", Name: "zoneOperations", BaseURL: computeBase, AltBaseURL: computeLegacyBase, PathTemplate: "projects/{project}/zones/{zone}/operations/{operation}", Parent: ComputeZones},

	{APIName: "cloudresourcemanager", APIVersion: "v3", Name: "projects", BaseURL: "https://cloudresourcemanager.googleapis.com/", PathTemplate: "projects/{projectsId}"},
	{APIName: "cloudresourcemanager", APIVersion: "v3", Name: "operations", BaseURL: "https://cloudresourcemanager.googleapis.com/", PathTemplate: "operations/{operationsId}"},

	{APIName: "serviceusage", APIVersion: "v1", Name: "operations", BaseURL: "https://serviceusage.googleapis.com/", PathTemplate: "operations/{operationsId}"},

	{APIName: "run", APIVersion: "v2", Name: "projects", BaseURL: "https://run.googleapis.com/", PathTemplate: "projects/{projectsId}"},
	{APIName: "run", APIVersion: "v2", Name: "projects.locations", BaseURL: "https://run.googleapis.com/", PathTemplate: "projects/{projectsId}/locations/{locationsId}", Parent: "run.projects"},
	{APIName: "run", APIVersion: "v2", Name: "projects.locations.operations", BaseURL: "https://run.googleapis.com/", PathTemplate: "projects/{projectsId}/locations/{locationsId}/operations/{operationsId}", Parent: "run.projects.locations"},
}

// NewDefaultRegistry returns a frozen registry holding the built-in tables.
func NewDefaultRegistry() (*Registry, error) {
	r := NewRegistry()
	for _, c := range builtinCollections {
		if err := r.Register(c); err != nil {
			return nil, fmt.Errorf("failed to register built-in collection %s: %w", c.FullName(), err)
		}
	}
	r.Freeze()
	return r, nil
}
