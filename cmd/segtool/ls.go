package main

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/hupe1980/segcore/blobstore"
)

func lsCommand() *cli.Command {
	return &cli.Command{
		Name:      "ls",
		Usage:     "list the objects of a local store under a prefix",
		ArgsUsage: "[PREFIX]",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "root", Aliases: []string{"r"}, Value: ".", Usage: "store directory"},
		},
		Action: func(c *cli.Context) error {
			store := blobstore.NewLocalStore(c.String("root"))
			names, err := store.List(c.Context, c.Args().First())
			if err != nil {
				return err
			}
			for _, name := range names {
				size, err := store.Size(c.Context, name)
				if err != nil {
					return err
				}
				fmt.Fprintf(c.App.Writer, "%10d  %s\n", size, name)
			}
			return nil
		},
	}
}
