package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/samcharles93/r1cs/internal/logger"
	"github.com/samcharles93/r1cs/pkg/r1cs"
)

func exportCmd() *cli.Command {
	var (
		outPath string
		noMap   bool
	)

	return &cli.Command{
		Name:  "export",
		Usage: "Export an R1CS file as JSON",
		Flags: []cli.Flag{
			fileFlag(),
			&cli.StringFlag{
				Name:        "out",
				Aliases:     []string{"o"},
				Usage:       "output .json path (- for stdout)",
				Value:       "-",
				Destination: &outPath,
			},
			&cli.BoolFlag{
				Name:        "no-map",
				Usage:       "leave the wire map out of the document",
				Destination: &noMap,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			log := logger.FromContext(ctx)
			start := time.Now()
			c, err := r1cs.Load(filePath, r1cs.LoadOptions{
				Options:         codecOptions(log),
				File:            fileOptions(),
				LoadConstraints: true,
				LoadMap:         !noMap,
			})
			if err != nil {
				return err
			}
			defer func() { _ = c.Close() }()

			if outPath == "-" {
				return r1cs.ExportJSON(stdout(cmd), c)
			}
			if err := writeFile(outPath, func(w io.Writer) error { return r1cs.ExportJSON(w, c) }); err != nil {
				return err
			}
			log.Info("exported", "file", filePath, "out", outPath,
				"constraints", c.Header.NConstraints, "elapsed", time.Since(start))
			return nil
		},
	}
}

func importCmd() *cli.Command {
	var (
		inPath  string
		outPath string
	)

	return &cli.Command{
		Name:  "import",
		Usage: "Build an R1CS file from an exported JSON document",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "in",
				Aliases:     []string{"i"},
				Usage:       "input .json path (- for stdin)",
				Required:    true,
				Destination: &inPath,
			},
			&cli.StringFlag{
				Name:        "out",
				Aliases:     []string{"o"},
				Usage:       "output .r1cs path",
				Required:    true,
				Destination: &outPath,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			log := logger.FromContext(ctx)
			var r io.Reader = os.Stdin
			if inPath != "-" {
				f, err := os.Open(inPath)
				if err != nil {
					return err
				}
				defer func() { _ = f.Close() }()
				r = f
			}
			c, err := r1cs.ImportJSON(bufio.NewReader(r))
			if err != nil {
				return fmt.Errorf("%s: %w", inPath, err)
			}
			defer func() { _ = c.Close() }()

			if err := r1cs.Save(outPath, c, r1cs.SaveOptions{
				Options: codecOptions(log),
				File:    fileOptions(),
			}); err != nil {
				return err
			}
			log.Info("imported", "in", inPath, "out", outPath,
				"curve", c.Header.CurveName(), "constraints", c.Header.NConstraints)
			return nil
		},
	}
}

func writeFile(path string, fn func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	bw := bufio.NewWriter(f)
	if err := fn(bw); err != nil {
		_ = f.Close()
		return err
	}
	if err := bw.Flush(); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
