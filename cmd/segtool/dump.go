package main

import (
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/hupe1980/segcore/internal/binlog"
	"github.com/hupe1980/segcore/internal/column"
	"github.com/hupe1980/segcore/schema"
)

func dumpCommand() *cli.Command {
	return &cli.Command{
		Name:      "dump",
		Usage:     "print the rows of a field binlog or the records of a delta log",
		ArgsUsage: "FILE",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "limit",
				Aliases: []string{"n"},
				Value:   20,
				Usage:   "maximum rows to print, 0 prints all",
			},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return fmt.Errorf("dump: exactly one FILE is needed")
			}
			data, err := os.ReadFile(c.Args().First())
			if err != nil {
				return err
			}
			return dump(c.App.Writer, data, c.Int("limit"))
		},
	}
}

func dump(w io.Writer, data []byte, limit int) error {
	h, err := binlog.DecodeHeader(data)
	if err != nil {
		return err
	}
	switch h.Kind {
	case binlog.KindFieldData:
		d, err := binlog.DecodeFieldData(data)
		if err != nil {
			return err
		}
		n := rowsToPrint(d.Rows, limit)
		for i := 0; i < n; i++ {
			fmt.Fprintf(w, "%d\t%s\n", i, formatRow(d, i))
		}
		if n < d.Rows {
			fmt.Fprintf(w, "... %d more rows\n", d.Rows-n)
		}
	case binlog.KindDelta:
		pks, tss, err := binlog.DecodeDelta(data)
		if err != nil {
			return err
		}
		n := rowsToPrint(len(pks), limit)
		for i := 0; i < n; i++ {
			fmt.Fprintf(w, "%s\t%d\n", pks[i], tss[i])
		}
		if n < len(pks) {
			fmt.Fprintf(w, "... %d more records\n", len(pks)-n)
		}
	default:
		return fmt.Errorf("cannot dump %s frames", h.Kind)
	}
	return nil
}

func rowsToPrint(rows, limit int) int {
	if limit <= 0 || limit > rows {
		return rows
	}
	return limit
}

func formatRow(d *column.FieldData, i int) string {
	if !d.IsValid(i) {
		return "null"
	}
	row := d.Row(i)
	switch {
	case d.Type == schema.FloatVector:
		v := make([]float32, d.Dim)
		schema.DecodeFloatVector(v, row)
		return fmt.Sprint(v)
	case d.Type.IsVector():
		return fmt.Sprintf("%x", row)
	case d.Type.IsString(), d.Type == schema.JSON:
		return string(row)
	case d.Type.IsVariableLength():
		return fmt.Sprintf("%x", row)
	default:
		return schema.DecodeFixed(d.Type, row).String()
	}
}
