package main

import (
	"github.com/urfave/cli/v2"

	"github.com/hupe1980/segcore/config"
)

func configCommand() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "validate a configuration file and print the effective settings",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "file", Aliases: []string{"f"}, Usage: "YAML file; defaults are printed when empty"},
		},
		Action: func(c *cli.Context) error {
			cfg := config.Default()
			if path := c.String("file"); path != "" {
				var err error
				if cfg, err = config.LoadFile(path); err != nil {
					return err
				}
			}
			out, err := cfg.Marshal()
			if err != nil {
				return err
			}
			_, err = c.App.Writer.Write(out)
			return err
		},
	}
}
