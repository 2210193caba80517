package r1cs

import (
	"github.com/samcharles93/r1cs/internal/bigseq"
	"github.com/samcharles93/r1cs/internal/logger"
	"github.com/samcharles93/r1cs/pkg/binfile"
)

const (
	// DefaultReadInterval is the progress interval of constraint decoding.
	DefaultReadInterval = 100_000
	// DefaultInterval applies to every other long pass.
	DefaultInterval = 10_000
)

// Progress describes how far a long pass over a section has got.
type Progress struct {
	Section uint32
	Done    uint64
	Total   uint64
}

// Options tunes the section codecs. The zero value is usable.
type Options struct {
	// Sequence selects in-memory or paged storage for decoded lists.
	Sequence bigseq.Config
	// Logger receives a progress line every ProgressInterval items.
	Logger   logger.Logger
	Progress func(Progress)
	// ProgressInterval of zero picks DefaultReadInterval for constraint
	// decoding and DefaultInterval elsewhere.
	ProgressInterval int
	// StrictField rejects coefficients that are not below the prime.
	StrictField bool
}

// LoadOptions selects what Load decodes beyond the header.
type LoadOptions struct {
	Options
	File binfile.Options

	LoadConstraints bool
	LoadMap         bool
	// Concurrent decodes the constraints and the map on separate handles.
	Concurrent bool
}

// SaveOptions configures Save.
type SaveOptions struct {
	Options
	File binfile.Options
}

type reporter struct {
	section  uint32
	total    uint64
	interval uint64
	log      logger.Logger
	fn       func(Progress)
}

func (o Options) reporter(section uint32, total uint64, op string, defaultInterval int) *reporter {
	if o.Logger == nil && o.Progress == nil {
		return nil
	}
	interval := o.ProgressInterval
	if interval <= 0 {
		interval = defaultInterval
	}
	r := &reporter{
		section:  section,
		total:    total,
		interval: uint64(interval),
		fn:       o.Progress,
	}
	if o.Logger != nil {
		r.log = o.Logger.With("op", op, "section", SectionName(section))
	}
	return r
}

// step is called as item i (zero based) is reached.
func (r *reporter) step(i uint64) {
	if r == nil || i%r.interval != 0 {
		return
	}
	p := Progress{Section: r.section, Done: i, Total: r.total}
	if r.log != nil {
		r.log.Info("progress", "done", p.Done, "total", p.Total)
	}
	if r.fn != nil {
		r.fn(p)
	}
}

// SectionName is a display name for a section id.
func SectionName(id uint32) string {
	switch id {
	case SectionHeader:
		return "header"
	case SectionConstraints:
		return "constraints"
	case SectionWireMap:
		return "map"
	default:
		return "unknown"
	}
}
