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

package properties

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config represents the structure of the YAML properties file.
type Config struct {
	Core      CoreSection       `yaml:"core"`
	Compute   ComputeSection    `yaml:"compute"`
	Endpoints map[string]string `yaml:"api_endpoint_overrides,omitempty"`
}

// CoreSection holds the core/* properties.
type CoreSection struct {
	Project             string `yaml:"project,omitempty"`
	BillingQuotaProject string `yaml:"billing_quota_project,omitempty"`
	UserOutputEnabled   *bool  `yaml:"user_output_enabled,omitempty"`
}

// ComputeSection holds the compute/* properties.
type ComputeSection struct {
	Region string `yaml:"region,omitempty"`
	Zone   string `yaml:"zone,omitempty"`
}

// DefaultConfigPath returns the properties file location: $CLOUDSDK_CONFIG
// if set, otherwise the user config directory.
func DefaultConfigPath() string {
	if dir := os.Getenv("CLOUDSDK_CONFIG"); dir != "" {
		return filepath.Join(dir, "properties.yaml")
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return "properties.yaml"
	}
	return filepath.Join(dir, "cloudsdk", "properties.yaml")
}

// LoadConfig reads the YAML properties file and validates it. A missing file
// yields an empty configuration.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return &Config{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read properties file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal properties YAML: %w", err)
	}

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("properties validation failed: %w", err)
	}
	return &config, nil
}

// validateConfig checks value formats that would otherwise surface much later.
func validateConfig(config *Config) error {
	if strings.Contains(config.Core.Project, "/") {
		return fmt.Errorf("core/project %q must be a project id, not a path", config.Core.Project)
	}
	for api, endpoint := range config.Endpoints {
		u, err := url.Parse(endpoint)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("api_endpoint_overrides/%s %q is not an absolute URL", api, endpoint)
		}
		if !strings.HasSuffix(endpoint, "/") {
			return fmt.Errorf("api_endpoint_overrides/%s %q must end with '/'", api, endpoint)
		}
	}
	return nil
}

// Get returns the value of section/key, or "" when unset.
func (c *Config) Get(section, key string) string {
	if c == nil {
		return ""
	}
	switch section + "/" + key {
	case "core/project":
		return c.Core.Project
	case "core/billing_quota_project":
		return c.Core.BillingQuotaProject
	case "core/user_output_enabled":
		if c.Core.UserOutputEnabled == nil {
			return ""
		}
		return strconv.FormatBool(*c.Core.UserOutputEnabled)
	case "compute/region":
		return c.Compute.Region
	case "compute/zone":
		return c.Compute.Zone
	}
	if section == "api_endpoint_overrides" {
		return c.Endpoints[key]
	}
	return ""
}
