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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegister_Idempotent(t *testing.T) {
	r := NewRegistry()
	c := Collection{APIName: "x", APIVersion: "v1", Name: "things", PathTemplate: "things/{thing}"}
	require.NoError(t, r.Register(c))
	require.NoError(t, r.Register(c))
	assert.Len(t, r.Collections(), 1)
}

func TestRegister_Errors(t *testing.T) {
	base := Collection{APIName: "x", APIVersion: "v1", Name: "things", PathTemplate: "things/{thing}"}
	tests := []struct {
		name    string
		setup   []Collection
		c       Collection
		wantErr string
	}{
		{
			name:    "conflicting duplicate",
			setup:   []Collection{base},
			c:       Collection{APIName: "x", APIVersion: "v1", Name: "things", PathTemplate: "items/{thing}"},
			wantErr: "already registered with a different definition",
		},
		{
			name:    "unknown parent",
			c:       Collection{APIName: "x", APIVersion: "v1", Name: "parts", PathTemplate: "things/{thing}/parts/{part}", Parent: "x.things"},
			wantErr: "unknown parent x.things",
		},
		{
			name:    "self parent",
			c:       Collection{APIName: "x", APIVersion: "v1", Name: "loops", PathTemplate: "loops/{loop}", Parent: "x.loops"},
			wantErr: "parent cycle",
		},
		{
			name:    "malformed placeholder",
			c:       Collection{APIName: "x", APIVersion: "v1", Name: "bad", PathTemplate: "bad/{id"},
			wantErr: "malformed placeholder",
		},
		{
			name:    "duplicate param",
			c:       Collection{APIName: "x", APIVersion: "v1", Name: "dup", PathTemplate: "a/{id}/b/{id}"},
			wantErr: "duplicate param",
		},
		{
			name:    "no params",
			c:       Collection{APIName: "x", APIVersion: "v1", Name: "flat", PathTemplate: "flat"},
			wantErr: "has no params",
		},
		{
			name:    "relative base url",
			c:       Collection{APIName: "x", APIVersion: "v1", Name: "rel", PathTemplate: "rel/{id}", BaseURL: "x.example.com/"},
			wantErr: "must be absolute",
		},
		{
			name:    "relative alternate base url",
			c:       Collection{APIName: "x", APIVersion: "v1", Name: "rel", PathTemplate: "rel/{id}", BaseURL: "https://x.example.com/", AltBaseURL: "https://old.example.com"},
			wantErr: "must be absolute and end with '/'",
		},
		{
			name:    "alternate base url alone",
			c:       Collection{APIName: "x", APIVersion: "v1", Name: "alt", PathTemplate: "alt/{id}", AltBaseURL: "https://old.example.com/"},
			wantErr: "alternate base url without a base url",
		},
		{
			name:    "missing version",
			c:       Collection{APIName: "x", Name: "things", PathTemplate: "things/{thing}"},
			wantErr: "requires api name",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRegistry()
			for _, c := range tt.setup {
				require.NoError(t, r.Register(c))
			}
			err := r.Register(tt.c)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestRegister_AfterFreeze(t *testing.T) {
	r := NewRegistry()
	r.Freeze()
	err := r.Register(Collection{APIName: "x", APIVersion: "v1", Name: "things", PathTemplate: "things/{thing}"})
	assert.True(t, errors.Is(err, ErrFrozen))
}

func TestLookup_DefaultVersionIsFirst(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(Collection{APIName: "x", APIVersion: "v1", Name: "things", PathTemplate: "things/{thing}"}))
	require.NoError(t, r.Register(Collection{APIName: "x", APIVersion: "v2", Name: "things", PathTemplate: "things/{thing}"}))

	c, ok := r.Lookup("x.things")
	require.True(t, ok)
	assert.Equal(t, "v1", c.APIVersion)

	c, ok = r.Collection("x", "v2", "things")
	require.True(t, ok)
	assert.Equal(t, "v2", c.APIVersion)

	_, ok = r.Lookup("x.missing")
	assert.False(t, ok)
}

func TestNewDefaultRegistry(t *testing.T) {
	r, err := NewDefaultRegistry()
	require.NoError(t, err)
	for _, name := range []string{
		ComputeInstances, ComputeAddresses, ComputeGlobalOperations, ComputeRegionOperations,
		ComputeZoneOperations, ProjectOperations, ServiceUsageOperations, RunOperations,
	} {
		_, ok := r.Lookup(name)
		assert.True(t, ok, name)
	}
	assert.ErrorIs(t, r.Register(builtinCollections[0]), ErrFrozen)
}

func TestCollection_Params(t *testing.T) {
	c := Collection{APIName: "compute", APIVersion: "v1", Name: "instances", PathTemplate: "projects/{project}/zones/{zone}/instances/{instance}"}
	assert.Equal(t, []string{"project", "zone", "instance"}, c.Params())
	assert.Equal(t, "compute.instances", c.FullName())
	assert.Equal(t, "", c.VersionURL())
}
