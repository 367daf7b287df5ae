package main

import (
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/hupe1980/segcore/internal/binlog"
	"github.com/hupe1980/segcore/internal/index"
)

func inspectCommand() *cli.Command {
	return &cli.Command{
		Name:      "inspect",
		Usage:     "print the header of binlog, index and delta files",
		ArgsUsage: "FILE...",
		Action: func(c *cli.Context) error {
			if c.NArg() == 0 {
				return fmt.Errorf("inspect: FILE is needed")
			}
			for _, name := range c.Args().Slice() {
				data, err := os.ReadFile(name)
				if err != nil {
					return err
				}
				if err := inspect(c.App.Writer, name, data); err != nil {
					return fmt.Errorf("%s: %w", name, err)
				}
			}
			return nil
		},
	}
}

func inspect(w io.Writer, name string, data []byte) error {
	h, err := binlog.DecodeHeader(data)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "%s:\n", name)
	fmt.Fprintf(w, "  kind:        %s\n", h.Kind)
	fmt.Fprintf(w, "  version:     %d\n", h.Version)
	fmt.Fprintf(w, "  compression: %s\n", h.Compression)
	fmt.Fprintf(w, "  raw size:    %d\n", h.RawSize)
	fmt.Fprintf(w, "  stored size: %d\n", h.StoredSize)
	fmt.Fprintf(w, "  checksum:    %#08x\n", h.Checksum)

	switch h.Kind {
	case binlog.KindFieldData:
		d, err := binlog.DecodeFieldData(data)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "  type:        %s\n", d.Type)
		if d.Dim > 0 {
			fmt.Fprintf(w, "  dim:         %d\n", d.Dim)
		}
		fmt.Fprintf(w, "  rows:        %d\n", d.Rows)
		fmt.Fprintf(w, "  nullable:    %t\n", d.Valid != nil)
	case binlog.KindIndex:
		a, err := index.Decode(data)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "  index kind:  %s\n", a.Meta.Kind)
		fmt.Fprintf(w, "  type:        %s\n", a.Meta.DataType)
		fmt.Fprintf(w, "  dim:         %d\n", a.Meta.Dim)
		fmt.Fprintf(w, "  metric:      %s\n", a.Meta.Metric)
		fmt.Fprintf(w, "  rows:        %d\n", a.Meta.Rows)
	case binlog.KindDelta:
		pks, _, err := binlog.DecodeDelta(data)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "  tombstones:  %d\n", len(pks))
	}
	return nil
}
