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
	"net/url"
	"strings"

	"github.com/google/cloudsdk-go/internal/properties"
	"github.com/google/cloudsdk-go/pkg/model"
)

// Fallbacks supplies values for params the input leaves out, keyed by param
// name.
type Fallbacks map[string]properties.Chain

// DefaultFallbacks wires the ambient project, region and zone chains to the
// param names used by the built-in collections.
func DefaultFallbacks(p *properties.Properties) Fallbacks {
	return Fallbacks{
		"project":     p.Project,
		"projectsId":  p.Project,
		"region":      p.Region,
		"locationsId": p.Region,
		"zone":        p.Zone,
	}
}

// Parse resolves input against the named collection. input may be a bare id,
// a relative name, a self link, or a collection-scoped suffix such as
// "zones/z/instances/i". Failures are INVALID_ARGUMENT.
func (r *Registry) Parse(collection, input string, fb Fallbacks) (*Ref, error) {
	c, ok := r.Lookup(collection)
	if !ok {
		return nil, model.NewError(model.ErrorKindInvalidArgument, "unknown collection [%s]", collection)
	}
	if input == "" {
		return nil, model.NewError(model.ErrorKindInvalidArgument, "empty resource name for collection [%s]", collection)
	}

	path := input
	if isURL(input) {
		if c.BaseURL == "" {
			return nil, model.NewError(model.ErrorKindInvalidArgument, "collection [%s] does not accept URLs, got [%s]", collection, input)
		}
		rest, ok := c.trimBase(input)
		if !ok {
			return nil, model.NewError(model.ErrorKindInvalidArgument, "[%s] is not a URL of collection [%s]; expected prefix [%s]", input, collection, c.BaseURL)
		}
		version, rel, _ := strings.Cut(rest, "/")
		if version != c.APIVersion {
			return nil, model.NewError(model.ErrorKindInvalidArgument, "[%s] has API version [%s], collection [%s] uses [%s]", input, version, collection, c.APIVersion)
		}
		params, err := matchFull(c, rel)
		if err != nil {
			return nil, err
		}
		return newRef(c, params), nil
	}

	params, err := matchSuffix(c, path)
	if err != nil {
		return nil, err
	}
	if err := fillFallbacks(c, params, fb); err != nil {
		return nil, err
	}
	return newRef(c, params), nil
}

// ParseSelfLink infers the collection from a full URL.
func (r *Registry) ParseSelfLink(link string) (*Ref, error) {
	if !isURL(link) {
		return nil, model.NewError(model.ErrorKindInvalidArgument, "[%s] is not a URL", link)
	}
	for _, c := range r.Collections() {
		rest, ok := c.trimBase(link)
		if !ok {
			continue
		}
		rel, ok := strings.CutPrefix(rest, c.APIVersion+"/")
		if !ok {
			continue
		}
		if params, err := matchFull(c, rel); err == nil {
			return newRef(c, params), nil
		}
	}
	return nil, model.NewError(model.ErrorKindInvalidArgument, "no registered collection matches [%s]", link)
}

func isURL(s string) bool {
	return strings.HasPrefix(s, "https://") || strings.HasPrefix(s, "http://")
}

// matchFull requires rel to cover the whole template.
func matchFull(c *Collection, rel string) (map[string]string, error) {
	segs := strings.Split(rel, "/")
	if len(segs) != len(c.segments()) {
		return nil, model.NewError(model.ErrorKindInvalidArgument, "[%s] does not match [%s] of collection [%s]", rel, c.PathTemplate, c.FullName())
	}
	return matchSegments(c, segs, 0)
}

// matchSuffix aligns the input with the tail of the template. A partial match
// must start at a literal segment unless it is a bare id.
func matchSuffix(c *Collection, path string) (map[string]string, error) {
	segs := strings.Split(path, "/")
	tmpl := c.segments()
	start := len(tmpl) - len(segs)
	if start < 0 {
		return nil, model.NewError(model.ErrorKindInvalidArgument, "[%s] has too many segments for [%s] of collection [%s]", path, c.PathTemplate, c.FullName())
	}
	if start > 0 && len(segs) > 1 {
		if _, isParam := paramName(tmpl[start]); isParam {
			return nil, model.NewError(model.ErrorKindInvalidArgument, "[%s] does not match [%s] of collection [%s]", path, c.PathTemplate, c.FullName())
		}
	}
	return matchSegments(c, segs, start)
}

func matchSegments(c *Collection, segs []string, start int) (map[string]string, error) {
	tmpl := c.segments()
	params := map[string]string{}
	for i, seg := range segs {
		t := tmpl[start+i]
		name, isParam := paramName(t)
		if !isParam {
			if seg != t {
				return nil, model.NewError(model.ErrorKindInvalidArgument, "expected [%s] but found [%s] in [%s] for collection [%s]", t, seg, strings.Join(segs, "/"), c.FullName())
			}
			continue
		}
		v, err := url.PathUnescape(seg)
		if err != nil || v == "" {
			return nil, model.NewError(model.ErrorKindInvalidArgument, "invalid value [%s] for [%s] in collection [%s]", seg, name, c.FullName())
		}
		params[name] = v
	}
	return params, nil
}

func fillFallbacks(c *Collection, params map[string]string, fb Fallbacks) error {
	for _, name := range c.Params() {
		if _, ok := params[name]; ok {
			continue
		}
		chain, ok := fb[name]
		if !ok || len(chain) == 0 {
			return model.NewError(model.ErrorKindInvalidArgument, "could not resolve [%s] for collection [%s]: no value in the resource name and no fallback", name, c.FullName())
		}
		v, ok := chain.Resolve()
		if !ok {
			return model.NewError(model.ErrorKindInvalidArgument, "could not resolve [%s] for collection [%s]; set one of: %s", name, c.FullName(), chain.Describe())
		}
		params[name] = v
	}
	return nil
}

// Create builds a ref from explicit param values; every param is required.
func (r *Registry) Create(collection string, params map[string]string) (*Ref, error) {
	c, ok := r.Lookup(collection)
	if !ok {
		return nil, model.NewError(model.ErrorKindInvalidArgument, "unknown collection [%s]", collection)
	}
	values := make(map[string]string, len(params))
	for _, name := range c.Params() {
		v := params[name]
		if v == "" {
			return nil, model.NewError(model.ErrorKindInvalidArgument, "missing [%s] for collection [%s]", name, collection)
		}
		values[name] = v
	}
	return newRef(c, values), nil
}
