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

// Package properties resolves ambient values (project, region, zone, quota
// project, output) through ordered chains of typed sources.
package properties

import (
	"os"
	"strconv"
	"strings"
)

// Source is one place a property value may come from.
type Source struct {
	// Description names the source in hints, e.g. "flag --zone".
	Description string
	Lookup      func() (string, bool)
}

// FlagSource reads a command-line override. value is read at lookup time so
// the chain can be built before flags are parsed.
func FlagSource(name string, value *string) Source {
	return Source{
		Description: "flag --" + name,
		Lookup: func() (string, bool) {
			if value == nil || *value == "" {
				return "", false
			}
			return *value, true
		},
	}
}

// EnvSource reads an environment variable.
func EnvSource(name string) Source {
	return Source{
		Description: "environment variable " + name,
		Lookup: func() (string, bool) {
			v, ok := os.LookupEnv(name)
			return v, ok && v != ""
		},
	}
}

// FileSource reads section/key from the properties file.
func FileSource(cfg *Config, section, key string) Source {
	return Source{
		Description: "property " + section + "/" + key,
		Lookup: func() (string, bool) {
			v := cfg.Get(section, key)
			return v, v != ""
		},
	}
}

// DefaultSource always yields value.
func DefaultSource(value string) Source {
	return Source{
		Description: "default " + value,
		Lookup: func() (string, bool) {
			return value, value != ""
		},
	}
}

// Chain is an ordered list of sources; the first non-empty value wins.
type Chain []Source

// Resolve walks the chain once.
func (c Chain) Resolve() (string, bool) {
	for _, s := range c {
		if s.Lookup == nil {
			continue
		}
		if v, ok := s.Lookup(); ok && v != "" {
			return v, true
		}
	}
	return "", false
}

// Describe lists the sources for error hints.
func (c Chain) Describe() string {
	names := make([]string, 0, len(c))
	for _, s := range c {
		names = append(names, s.Description)
	}
	return strings.Join(names, ", ")
}

// Properties bundles the chains for every ambient value the core reads.
type Properties struct {
	Project        Chain
	Region         Chain
	Zone           Chain
	BillingProject Chain
	OutputOn       Chain
	quiet          *bool
}

// Overrides carries command-line values. Pointers are read lazily.
type Overrides struct {
	Project        *string
	Region         *string
	Zone           *string
	BillingProject *string
	Quiet          *bool
}

// New builds the standard chains: flag, environment, properties file, default.
func New(cfg *Config, o Overrides) *Properties {
	return &Properties{
		Project: Chain{
			FlagSource("project", o.Project),
			EnvSource("CLOUDSDK_CORE_PROJECT"),
			FileSource(cfg, "core", "project"),
		},
		Region: Chain{
			FlagSource("region", o.Region),
			EnvSource("CLOUDSDK_COMPUTE_REGION"),
			FileSource(cfg, "compute", "region"),
		},
		Zone: Chain{
			FlagSource("zone", o.Zone),
			EnvSource("CLOUDSDK_COMPUTE_ZONE"),
			FileSource(cfg, "compute", "zone"),
		},
		BillingProject: Chain{
			FlagSource("billing-project", o.BillingProject),
			EnvSource("CLOUDSDK_BILLING_QUOTA_PROJECT"),
			FileSource(cfg, "core", "billing_quota_project"),
			DefaultSource(QuotaCurrentProject),
		},
		OutputOn: Chain{
			EnvSource("CLOUDSDK_CORE_USER_OUTPUT_ENABLED"),
			FileSource(cfg, "core", "user_output_enabled"),
			DefaultSource("true"),
		},
		quiet: o.Quiet,
	}
}

// UserOutputEnabled reports whether progress output should be shown. --quiet
// always wins.
func (p *Properties) UserOutputEnabled() bool {
	if p.quiet != nil && *p.quiet {
		return false
	}
	v, ok := p.OutputOn.Resolve()
	if !ok {
		return true
	}
	on, err := strconv.ParseBool(v)
	return err != nil || on
}

// Quota project sentinels.
const (
	QuotaLegacy         = "LEGACY"
	QuotaCurrentProject = "CURRENT_PROJECT"
)

// QuotaProject applies the X-Goog-User-Project rule: LEGACY omits the header,
// CURRENT_PROJECT uses the resolved project, an explicit value is used as is,
// and an unset value omits the header.
func QuotaProject(setting, currentProject string) (string, bool) {
	switch setting {
	case "", QuotaLegacy:
		return "", false
	case QuotaCurrentProject:
		return currentProject, currentProject != ""
	}
	return setting, true
}

// QuotaProject resolves the quota header value from the chains.
func (p *Properties) QuotaProject() (string, bool) {
	setting, _ := p.BillingProject.Resolve()
	project, _ := p.Project.Resolve()
	return QuotaProject(setting, project)
}
