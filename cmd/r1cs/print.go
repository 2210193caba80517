package main

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/samcharles93/r1cs/internal/logger"
	"github.com/samcharles93/r1cs/pkg/r1cs"
)

func printCmd() *cli.Command {
	var (
		limit   int64
		withMap bool
	)

	return &cli.Command{
		Name:  "print",
		Usage: "Print constraints in human readable form",
		Flags: []cli.Flag{
			fileFlag(),
			&cli.Int64Flag{
				Name:        "limit",
				Aliases:     []string{"n"},
				Usage:       "maximum number of constraints to print (0 = all)",
				Value:       100,
				Destination: &limit,
			},
			&cli.BoolFlag{
				Name:        "map",
				Usage:       "also print the wire to label map",
				Destination: &withMap,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			log := logger.FromContext(ctx)
			c, err := r1cs.Load(filePath, r1cs.LoadOptions{
				Options:         codecOptions(log),
				File:            fileOptions(),
				LoadConstraints: true,
				LoadMap:         withMap,
			})
			if err != nil {
				return err
			}
			defer func() { _ = c.Close() }()
			return r1cs.WriteText(stdout(cmd), c, int(limit))
		},
	}
}
