package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/hupe1980/segcore/internal/binlog"
	"github.com/hupe1980/segcore/internal/column"
	"github.com/hupe1980/segcore/schema"
)

func packCommand() *cli.Command {
	return &cli.Command{
		Name:      "pack",
		Usage:     "write scalar values as a field binlog",
		ArgsUsage: "VALUE...",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "type", Aliases: []string{"t"}, Value: "Int64", Usage: "data type: Bool, Int8..Int64, Float, Double, VarChar"},
			&cli.StringFlag{Name: "compression", Aliases: []string{"c"}, Value: "zstd", Usage: "none, zstd, lz4 or snappy"},
			&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Required: true, Usage: "output file"},
		},
		Action: func(c *cli.Context) error {
			t, err := parseDataType(c.String("type"))
			if err != nil {
				return err
			}
			comp, err := binlog.ParseCompression(c.String("compression"))
			if err != nil {
				return err
			}
			d, err := packValues(t, c.Args().Slice())
			if err != nil {
				return err
			}
			frame, err := binlog.EncodeFieldData(d, comp)
			if err != nil {
				return err
			}
			if err := os.WriteFile(c.String("out"), frame, 0o644); err != nil {
				return err
			}
			fmt.Fprintf(c.App.Writer, "wrote %d rows of %s to %s\n", d.Rows, t, c.String("out"))
			return nil
		},
	}
}

func parseDataType(s string) (schema.DataType, error) {
	for t := schema.Bool; t.Valid(); t++ {
		if strings.EqualFold(t.String(), s) {
			return t, nil
		}
	}
	return schema.None, fmt.Errorf("unknown data type %q", s)
}

// packValues parses args as values of t. The literal "null" makes the
// column nullable and that row null.
func packValues(t schema.DataType, args []string) (*column.FieldData, error) {
	vals := make([]schema.Value, len(args))
	valid := make([]bool, len(args))
	nullable := false
	for i, a := range args {
		if a == "null" {
			nullable = true
			vals[i] = schema.Value{Type: t}
			continue
		}
		v, err := parseValue(t, a)
		if err != nil {
			return nil, fmt.Errorf("value %d: %w", i, err)
		}
		vals[i], valid[i] = v, true
	}
	if !nullable {
		valid = nil
	}

	d := &column.FieldData{Type: t, Rows: len(args), Valid: valid}
	for i, v := range vals {
		if t.IsVariableLength() {
			d.Var = append(d.Var, v.VarBytes())
			continue
		}
		if valid != nil && !valid[i] {
			d.Fixed = append(d.Fixed, make([]byte, t.RowSize(0))...)
			continue
		}
		d.Fixed = v.AppendFixed(d.Fixed)
	}
	return d, d.Validate()
}

func parseValue(t schema.DataType, s string) (schema.Value, error) {
	switch {
	case t == schema.Bool:
		b, err := strconv.ParseBool(s)
		return schema.BoolValue(b), err
	case t.IsInteger():
		n, err := strconv.ParseInt(s, 10, 64)
		return schema.IntValue(t, n), err
	case t.IsFloating():
		f, err := strconv.ParseFloat(s, 64)
		return schema.FloatValue(t, f), err
	case t.IsString():
		return schema.StringValue(s).Convert(t), nil
	default:
		return schema.Value{}, fmt.Errorf("cannot pack %s values", t)
	}
}
