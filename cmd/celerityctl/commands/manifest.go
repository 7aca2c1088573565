// Package commands implements celerityctl's subcommand actions.
package commands

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/newstack-cloud/celerity-core/examples/httpserver/widgets"
	"github.com/newstack-cloud/celerity-core/pkg/graph"
	"github.com/newstack-cloud/celerity-core/pkg/manifest"
)

// Manifest builds the module graph for the bundled example module, extracts
// its deployment manifest, and writes it in the requested format. A real
// host would point this at its own root module; celerityctl ships with the
// example module so the command has something concrete to demonstrate
// against.
func Manifest(c *cli.Context) error {
	root := widgets.Module()

	g, err := graph.Build(root)
	if err != nil {
		return fmt.Errorf("failed to build module graph: %w", err)
	}
	if err := graph.Validate(g); err != nil {
		return fmt.Errorf("module graph failed validation: %w", err)
	}

	m, err := manifest.Extract(g)
	if err != nil {
		return fmt.Errorf("failed to extract manifest: %w", err)
	}

	var out []byte
	switch c.String("format") {
	case "yaml":
		out, err = m.YAML()
	default:
		out, err = m.JSON()
	}
	if err != nil {
		return fmt.Errorf("failed to encode manifest: %w", err)
	}

	dest := c.String("out")
	if dest == "" {
		_, err = os.Stdout.Write(append(out, '\n'))
		return err
	}
	return os.WriteFile(dest, out, 0644)
}
