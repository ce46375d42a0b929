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
)

// Ref is a fully resolved reference to one resource. It is immutable.
type Ref struct {
	collection *Collection
	params     map[string]string
	relName    string
}

func newRef(c *Collection, params map[string]string) *Ref {
	r := &Ref{collection: c, params: params}
	segs := c.segments()
	out := make([]string, len(segs))
	for i, seg := range segs {
		if name, ok := paramName(seg); ok {
			out[i] = url.PathEscape(params[name])
			continue
		}
		out[i] = seg
	}
	r.relName = strings.Join(out, "/")
	return r
}

// Collection returns the collection the ref belongs to.
func (r *Ref) Collection() *Collection {
	return r.collection
}

// Param returns the value of one param.
func (r *Ref) Param(name string) string {
	return r.params[name]
}

// Params returns a copy of the param values.
func (r *Ref) Params() map[string]string {
	out := make(map[string]string, len(r.params))
	for k, v := range r.params {
		out[k] = v
	}
	return out
}

// Name returns the value of the last param, the resource's own id.
func (r *Ref) Name() string {
	params := r.collection.Params()
	return r.params[params[len(params)-1]]
}

// RelativeName renders the path template with every segment escaped.
func (r *Ref) RelativeName() string {
	return r.relName
}

// SelfLink returns BaseURL + APIVersion + "/" + RelativeName(), or "" when the
// collection has no base URL.
func (r *Ref) SelfLink() string {
	prefix := r.collection.VersionURL()
	if prefix == "" {
		return ""
	}
	return prefix + r.relName
}

// Equal reports whether both refs name the same collection and params.
func (r *Ref) Equal(o *Ref) bool {
	if r == nil || o == nil {
		return r == o
	}
	if *r.collection != *o.collection || len(r.params) != len(o.params) {
		return false
	}
	for k, v := range r.params {
		if ov, ok := o.params[k]; !ok || ov != v {
			return false
		}
	}
	return true
}

// String returns the relative name.
func (r *Ref) String() string {
	return r.relName
}
