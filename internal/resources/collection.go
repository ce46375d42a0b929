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

// Package resources parses user-supplied resource identifiers into typed
// references and renders them back to relative names and self links.
package resources

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Collection describes one addressable resource type of one API version.
type Collection struct {
	APIName    string
	APIVersion string
	// Name is the collection name within the API, e.g. "instances" or
	// "projects.locations.operations".
	Name string
	// BaseURL is the service root up to, not including, the version. It ends
	// with "/". Empty when the collection has no self links.
	BaseURL string
	// AltBaseURL is a legacy root the service still uses in the self links it
	// returns. Parsing accepts it; rendering always uses BaseURL.
	AltBaseURL string
	// PathTemplate uses {param} placeholders, e.g.
	// "projects/{project}/zones/{zone}/instances/{instance}".
	PathTemplate string
	// Parent is the full name of the parent collection in the same API version.
	Parent string
}

// FullName returns "api.name", e.g. "compute.instances".
func (c *Collection) FullName() string {
	return c.APIName + "." + c.Name
}

// Params returns the template placeholders in path order.
func (c *Collection) Params() []string {
	var params []string
	for _, seg := range c.segments() {
		if name, ok := paramName(seg); ok {
			params = append(params, name)
		}
	}
	return params
}

// VersionURL returns BaseURL + APIVersion + "/", the prefix of every self link.
func (c *Collection) VersionURL() string {
	if c.BaseURL == "" {
		return ""
	}
	return c.BaseURL + c.APIVersion + "/"
}

// bases returns BaseURL followed by AltBaseURL when set.
func (c *Collection) bases() []string {
	if c.BaseURL == "" {
		return nil
	}
	if c.AltBaseURL == "" {
		return []string{c.BaseURL}
	}
	return []string{c.BaseURL, c.AltBaseURL}
}

// trimBase strips whichever base prefixes link and returns the rest,
// starting at the version.
func (c *Collection) trimBase(link string) (string, bool) {
	for _, base := range c.bases() {
		if rest, ok := strings.CutPrefix(link, base); ok {
			return rest, true
		}
	}
	return "", false
}

func (c *Collection) segments() []string {
	return strings.Split(c.PathTemplate, "/")
}

func paramName(seg string) (string, bool) {
	if len(seg) > 2 && seg[0] == '{' && seg[len(seg)-1] == '}' {
		return seg[1 : len(seg)-1], true
	}
	return "", false
}

func (c *Collection) validate() error {
	if c.APIName == "" || c.APIVersion == "" || c.Name == "" {
		return errors.New("collection requires api name, api version and name")
	}
	if c.PathTemplate == "" {
		return fmt.Errorf("collection %s has an empty path template", c.FullName())
	}
	seen := map[string]bool{}
	for _, seg := range c.segments() {
		if seg == "" {
			return fmt.Errorf("collection %s: empty segment in template %q", c.FullName(), c.PathTemplate)
		}
		if strings.ContainsAny(seg, "{}") {
			name, ok := paramName(seg)
			if !ok {
				return fmt.Errorf("collection %s: malformed placeholder %q", c.FullName(), seg)
			}
			if seen[name] {
				return fmt.Errorf("collection %s: duplicate param %q", c.FullName(), name)
			}
			seen[name] = true
		}
	}
	if len(seen) == 0 {
		return fmt.Errorf("collection %s: template %q has no params", c.FullName(), c.PathTemplate)
	}
	if c.AltBaseURL != "" && c.BaseURL == "" {
		return fmt.Errorf("collection %s: alternate base url without a base url", c.FullName())
	}
	for _, base := range c.bases() {
		u, err := url.Parse(base)
		if err != nil || u.Scheme == "" || u.Host == "" || !strings.HasSuffix(base, "/") {
			return fmt.Errorf("collection %s: base url %q must be absolute and end with '/'", c.FullName(), base)
		}
	}
	return nil
}
