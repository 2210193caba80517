package main

import (
	"context"
	"fmt"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/samcharles93/r1cs/internal/logger"
	"github.com/samcharles93/r1cs/pkg/r1cs"
)

func checkCmd() *cli.Command {
	var (
		strictField bool
		concurrent  bool
	)

	return &cli.Command{
		Name:  "check",
		Usage: "Decode every section and report structural errors",
		Flags: []cli.Flag{
			fileFlag(),
			&cli.BoolFlag{
				Name:        "strict-field",
				Usage:       "reject coefficients that are not below the prime",
				Destination: &strictField,
			},
			&cli.BoolFlag{
				Name:        "concurrent",
				Usage:       "decode constraints and the wire map in parallel",
				Value:       true,
				Destination: &concurrent,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			log := logger.FromContext(ctx)
			opts := codecOptions(log)
			opts.StrictField = strictField

			start := time.Now()
			c, err := r1cs.Load(filePath, r1cs.LoadOptions{
				Options:         opts,
				File:            fileOptions(),
				LoadConstraints: true,
				LoadMap:         true,
				Concurrent:      concurrent,
			})
			if err != nil {
				log.Error("check failed", "file", filePath, "error", err)
				return err
			}
			defer func() { _ = c.Close() }()

			log.Info("check passed", "file", filePath,
				"curve", c.Header.CurveName(),
				"constraints", c.Constraints.Len(),
				"wires", c.Map.Len(),
				"elapsed", time.Since(start))
			_, err = fmt.Fprintf(stdout(cmd), "%s: ok\n", filePath)
			return err
		},
	}
}
