// Command segtool inspects segment storage: binlog frames, index artifacts,
// delta logs and configuration files.
package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
)

func newApp() *cli.App {
	return &cli.App{
		Name:  "segtool",
		Usage: "inspect sealed segment files",
		Commands: []*cli.Command{
			inspectCommand(),
			dumpCommand(),
			packCommand(),
			lsCommand(),
			configCommand(),
		},
	}
}

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "segtool:", err)
		os.Exit(1)
	}
}
