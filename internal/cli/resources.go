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

package cli

import (
	"github.com/spf13/cobra"

	"github.com/google/cloudsdk-go/internal/resources"
)

// parsedRef is the printed form of a parsed reference.
type parsedRef struct {
	Collection   string            `json:"collection"`
	Params       map[string]string `json:"params"`
	RelativeName string            `json:"relativeName"`
	SelfLink     string            `json:"selfLink"`
}

func newResourcesCmd() *cobra.Command {
	parse := &cobra.Command{
		Use:   "parse COLLECTION INPUT",
		Short: "Resolve a resource name, URL or bare id and print its forms.",
		Args:  usageArgs(cobra.ExactArgs(2)),
		RunE:  runParse,
	}
	list := &cobra.Command{
		Use:   "collections",
		Short: "List the known resource collections.",
		Args:  usageArgs(cobra.NoArgs),
		RunE:  runCollections,
	}
	return newGroupCmd("resources", "Work with resource references.", parse, list)
}

func runParse(cmd *cobra.Command, args []string) error {
	ref, err := rt.registry.Parse(args[0], args[1], resources.DefaultFallbacks(rt.props))
	if err != nil {
		return err
	}
	return printValue(cmd.OutOrStdout(), parsedRef{
		Collection:   ref.Collection().FullName(),
		Params:       ref.Params(),
		RelativeName: ref.RelativeName(),
		SelfLink:     ref.SelfLink(),
	})
}

func runCollections(cmd *cobra.Command, _ []string) error {
	type row struct {
		Name     string `json:"name"`
		Version  string `json:"version"`
		Template string `json:"template"`
		Parent   string `json:"parent,omitempty"`
	}
	var rows []row
	for _, c := range rt.registry.Collections() {
		rows = append(rows, row{c.FullName(), c.APIVersion, c.PathTemplate, c.Parent})
	}
	return printValue(cmd.OutOrStdout(), rows)
}
