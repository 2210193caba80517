package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/goccy/go-json"
	"github.com/urfave/cli/v3"

	"github.com/samcharles93/r1cs/internal/r1csstore"
	"github.com/samcharles93/r1cs/pkg/binfile"
	"github.com/samcharles93/r1cs/pkg/r1cs"
)

type infoSection struct {
	ID     uint32 `json:"id"`
	Name   string `json:"name"`
	Offset int64  `json:"offset"`
	Size   uint64 `json:"size"`
}

type infoReport struct {
	Path     string          `json:"path"`
	Size     int64           `json:"size"`
	Version  uint32          `json:"version"`
	Header   r1cs.JSONHeader `json:"header"`
	Sections []infoSection   `json:"sections,omitempty"`
	Digest   string          `json:"blake3,omitempty"`
}

func infoCmd() *cli.Command {
	var (
		showSections bool
		withDigest   bool
		asJSON       bool
	)

	return &cli.Command{
		Name:  "info",
		Usage: "Print the header of an R1CS file",
		Flags: []cli.Flag{
			fileFlag(),
			&cli.BoolFlag{
				Name:        "sections",
				Usage:       "list the section table",
				Destination: &showSections,
			},
			&cli.BoolFlag{
				Name:        "digest",
				Usage:       "compute the blake3 digest of the file",
				Destination: &withDigest,
			},
			&cli.BoolFlag{
				Name:        "json",
				Usage:       "print the report as JSON",
				Destination: &asJSON,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			report, err := readInfo(filePath, showSections, withDigest)
			if err != nil {
				return err
			}
			w := stdout(cmd)
			if asJSON {
				enc := json.NewEncoder(w)
				enc.SetIndent("", "  ")
				return enc.Encode(report)
			}
			return printInfo(w, report)
		},
	}
}

func readInfo(path string, sections, digest bool) (infoReport, error) {
	st, err := os.Stat(path)
	if err != nil {
		return infoReport{}, err
	}
	f, err := binfile.Open(path, r1cs.Magic, r1cs.Version, fileOptions())
	if err != nil {
		return infoReport{}, err
	}
	defer func() { _ = f.Close() }()

	h, err := r1cs.ReadHeader(f)
	if err != nil {
		return infoReport{}, fmt.Errorf("%s: %w", path, err)
	}
	report := infoReport{
		Path:    path,
		Size:    st.Size(),
		Version: f.Version(),
		Header:  h.JSON(),
	}
	if sections {
		for _, e := range f.Directory().Entries() {
			report.Sections = append(report.Sections, infoSection{
				ID:     e.ID,
				Name:   r1cs.SectionName(e.ID),
				Offset: e.Offset,
				Size:   e.Size,
			})
		}
	}
	if digest {
		if report.Digest, err = r1csstore.Digest(path); err != nil {
			return infoReport{}, err
		}
	}
	return report, nil
}

func printInfo(w io.Writer, r infoReport) error {
	curve := r.Header.Curve
	if curve == "" {
		curve = "unknown"
	}
	fmt.Fprintf(w, "file:        %s (%d bytes, version %d)\n", r.Path, r.Size, r.Version)
	fmt.Fprintf(w, "curve:       %s\n", curve)
	fmt.Fprintf(w, "prime:       %s\n", r.Header.Prime)
	fmt.Fprintf(w, "field bytes: %d\n", r.Header.N8)
	fmt.Fprintf(w, "wires:       %d\n", r.Header.NVars)
	fmt.Fprintf(w, "outputs:     %d\n", r.Header.NOutputs)
	fmt.Fprintf(w, "public:      %d\n", r.Header.NPubInputs)
	fmt.Fprintf(w, "private:     %d\n", r.Header.NPrvInputs)
	fmt.Fprintf(w, "labels:      %d\n", r.Header.NLabels)
	fmt.Fprintf(w, "constraints: %d\n", r.Header.NConstraints)
	if r.Digest != "" {
		fmt.Fprintf(w, "blake3:      %s\n", r.Digest)
	}
	if len(r.Sections) == 0 {
		return nil
	}
	fmt.Fprintln(w)
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tOFFSET\tSIZE")
	for _, s := range r.Sections {
		fmt.Fprintf(tw, "%d\t%s\t%d\t%d\n", s.ID, s.Name, s.Offset, s.Size)
	}
	return tw.Flush()
}
