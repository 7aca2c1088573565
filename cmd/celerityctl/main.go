// Command celerityctl is a small operator CLI over the manifest extractor.
// It is not part of the core's contract (the CLI entry point is explicitly
// out of scope) but every other ambient tool in this
// ecosystem is a urfave/cli app, so this one is too.
package main

import (
	"fmt"
	"log"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/newstack-cloud/celerity-core/cmd/celerityctl/commands"
)

func appFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "format",
			Aliases: []string{"f"},
			Value:   "json",
			Usage:   "output format: json or yaml",
			EnvVars: []string{"CELERITYCTL_FORMAT"},
		},
		&cli.StringFlag{
			Name:    "out",
			Aliases: []string{"o"},
			Usage:   "write the manifest to this file instead of stdout",
			EnvVars: []string{"CELERITYCTL_OUT"},
		},
	}
}

func main() {
	app := &cli.App{
		Name:  "celerityctl",
		Usage: "inspect and extract celerity-core deployment manifests",
		Commands: []*cli.Command{
			{
				Name:   "manifest",
				Usage:  "extract the deployment manifest for a registered example module",
				Flags:  appFlags(),
				Action: commands.Manifest,
			},
			{
				Name:  "version",
				Usage: "print version information",
				Action: func(c *cli.Context) error {
					fmt.Println("celerityctl (dev)")
					return nil
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
